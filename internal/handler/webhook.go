package handler

import (
	"io"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/uran124/avito-relay/internal/audit"
	"github.com/uran124/avito-relay/internal/config"
	apperrors "github.com/uran124/avito-relay/internal/errors"
	"github.com/uran124/avito-relay/internal/service"
	"github.com/uran124/avito-relay/internal/util"
)

type WebhookHandler struct {
	pipeline *service.Pipeline
}

func NewWebhookHandler(pipeline *service.Pipeline) *WebhookHandler {
	return &WebhookHandler{pipeline: pipeline}
}

// Webhook handles one marketplace delivery. The platform retries on
// non-2xx, so every processed delivery answers 200 with ok:true — only
// the security gate and a dead request body say otherwise.
func (h *WebhookHandler) Webhook(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		log.Warn().Err(err).Msg("failed to read webhook body")
		writeError(w, apperrors.New(apperrors.ErrCodeValidation, "Failed to read request body"))
		return
	}

	event := ParseEvent(body)

	if event.Text == "" {
		audit.LogFromRequest(r, audit.Event{
			Type: audit.EventInboundEmpty,
			Details: map[string]interface{}{
				"payload": util.Truncate(string(body), config.RawResponseLogLimit),
			},
		})
		writeJSON(w, http.StatusOK, WebhookResponse{OK: true, ReplyText: ""})
		return
	}

	audit.LogFromRequest(r, audit.Event{
		Type:   audit.EventInboundReceived,
		ChatID: event.ChatID,
		Details: map[string]interface{}{
			"text": event.Text,
		},
	})

	result, err := h.pipeline.ProcessEvent(r.Context(), event)
	if err != nil {
		log.Error().Err(err).Str("chat_id", event.ChatID).Msg("webhook processing failed")
		writeError(w, apperrors.Storage(err))
		return
	}

	writeJSON(w, http.StatusOK, WebhookResponse{
		OK:        true,
		ReplyText: result.ReplyText,
		Lead: &LeadInfo{
			ChatID: result.ChatID,
			Phone:  result.Phone,
		},
	})
}
