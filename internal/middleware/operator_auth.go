package middleware

import (
	"net/http"
	"strings"

	"github.com/rs/zerolog/log"

	apperrors "github.com/uran124/avito-relay/internal/errors"
	"github.com/uran124/avito-relay/internal/util"
)

// OperatorAuthMiddleware guards the operator API with a static token.
// No token configured means the API is shut, not open.
type OperatorAuthMiddleware struct {
	token string
}

func NewOperatorAuthMiddleware(token string) *OperatorAuthMiddleware {
	return &OperatorAuthMiddleware{token: token}
}

func (m *OperatorAuthMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if m.token == "" {
			log.Warn().Msg("operator API request rejected: OPERATOR_TOKEN is not configured")
			writeError(w, apperrors.Forbidden("Operator API is disabled"))
			return
		}

		presented := extractBearer(r)
		if presented == "" || !util.ConstantTimeEqual(presented, m.token) {
			log.Warn().Msg("operator API request with invalid token")
			writeError(w, apperrors.Unauthorized("Invalid operator token"))
			return
		}

		next.ServeHTTP(w, r)
	})
}

func extractBearer(r *http.Request) string {
	authHeader := r.Header.Get("Authorization")
	if strings.HasPrefix(authHeader, "Bearer ") {
		return strings.TrimPrefix(authHeader, "Bearer ")
	}
	return ""
}
