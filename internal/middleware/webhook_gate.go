package middleware

import (
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/uran124/avito-relay/internal/audit"
	apperrors "github.com/uran124/avito-relay/internal/errors"
	"github.com/uran124/avito-relay/internal/util"
)

// WebhookGateMiddleware enforces the ingress security checks in order:
// kill switch, IP allowlist, shared secret. Rejected deliveries are audit
// logged and never reach storage or the model.
type WebhookGateMiddleware struct {
	enabled      bool
	allowIPs     map[string]struct{}
	secretHeader string
	secret       string
}

type WebhookGateOptions struct {
	Enabled      bool
	AllowIPs     []string
	SecretHeader string
	Secret       string
}

func NewWebhookGateMiddleware(opts WebhookGateOptions) *WebhookGateMiddleware {
	allow := make(map[string]struct{}, len(opts.AllowIPs))
	for _, ip := range opts.AllowIPs {
		if ip != "" {
			allow[ip] = struct{}{}
		}
	}
	return &WebhookGateMiddleware{
		enabled:      opts.Enabled,
		allowIPs:     allow,
		secretHeader: opts.SecretHeader,
		secret:       opts.Secret,
	}
}

func (m *WebhookGateMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !m.enabled {
			m.reject(w, r, "disabled", apperrors.WebhookDisabled())
			return
		}

		if len(m.allowIPs) > 0 {
			if _, ok := m.allowIPs[audit.ClientIP(r)]; !ok {
				m.reject(w, r, "ip_not_allowed", apperrors.Forbidden("IP not allowed"))
				return
			}
		}

		if m.secret != "" {
			presented := r.Header.Get(m.secretHeader)
			if !util.ConstantTimeEqual(presented, m.secret) {
				m.reject(w, r, "bad_secret", apperrors.Unauthorized("Bad webhook secret"))
				return
			}
		}

		next.ServeHTTP(w, r)
	})
}

func (m *WebhookGateMiddleware) reject(w http.ResponseWriter, r *http.Request, reason string, err *apperrors.AppError) {
	log.Warn().Str("reason", reason).Str("ip", audit.ClientIP(r)).Msg("webhook delivery rejected")
	audit.LogFromRequest(r, audit.Event{
		Type:    audit.EventInboundRejected,
		Details: map[string]interface{}{"reason": reason},
	})
	writeError(w, err)
}
