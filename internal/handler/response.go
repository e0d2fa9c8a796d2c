package handler

import (
	"net/http"

	"github.com/uran124/avito-relay/internal/httputil"
)

func writeJSON(w http.ResponseWriter, status int, data any) {
	httputil.WriteJSON(w, status, data)
}

func writeError(w http.ResponseWriter, err error) {
	httputil.WriteError(w, err)
}

// LeadInfo is the lead snapshot returned with every processed delivery.
type LeadInfo struct {
	ChatID string  `json:"chat_id"`
	Phone  *string `json:"phone"`
}

// WebhookResponse is the synchronous integrator reply. Deliveries without
// usable text carry no lead block at all.
type WebhookResponse struct {
	OK        bool      `json:"ok"`
	ReplyText string    `json:"reply_text"`
	Lead      *LeadInfo `json:"lead,omitempty"`
}
