package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"github.com/uran124/avito-relay/internal/audit"
	apperrors "github.com/uran124/avito-relay/internal/errors"
	"github.com/uran124/avito-relay/internal/marketplace"
	"github.com/uran124/avito-relay/internal/model"
	"github.com/uran124/avito-relay/internal/util"
)

// CodeExchanger trades a one-time OAuth authorization code for tokens.
type CodeExchanger interface {
	ExchangeCode(ctx context.Context, code string) (model.Credentials, error)
}

// OperatorHandler serves the token-guarded operator API: manual sends
// into a chat and the one-time OAuth code exchange.
type OperatorHandler struct {
	sender    *marketplace.Client
	exchanger CodeExchanger
}

func NewOperatorHandler(sender *marketplace.Client, exchanger CodeExchanger) *OperatorHandler {
	return &OperatorHandler{sender: sender, exchanger: exchanger}
}

func (h *OperatorHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Post("/send", h.Send)
	r.Post("/oauth/exchange", h.ExchangeCode)
	return r
}

type sendRequest struct {
	ChatID string `json:"chat_id"`
	Text   string `json:"text"`
}

func (h *OperatorHandler) Send(w http.ResponseWriter, r *http.Request) {
	var req sendRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apperrors.New(apperrors.ErrCodeValidation, "Invalid request body"))
		return
	}

	req.ChatID = strings.TrimSpace(req.ChatID)
	req.Text = strings.TrimSpace(req.Text)
	if req.ChatID == "" {
		writeError(w, apperrors.InvalidInput("chat_id", "must not be empty"))
		return
	}
	if req.Text == "" {
		writeError(w, apperrors.InvalidInput("text", "must not be empty"))
		return
	}

	sent, err := h.sender.SendMessage(r.Context(), req.ChatID, req.Text)
	if err != nil {
		log.Error().Err(err).Str("chat_id", req.ChatID).Msg("manual send failed")
		writeError(w, err)
		return
	}

	audit.LogFromRequest(r, audit.Event{
		Type:   audit.EventManualSend,
		ChatID: req.ChatID,
		Details: map[string]interface{}{
			"message_id": sent.ID,
		},
	})

	writeJSON(w, http.StatusOK, map[string]any{
		"ok":         true,
		"message_id": sent.ID,
	})
}

type exchangeRequest struct {
	Code string `json:"code"`
}

func (h *OperatorHandler) ExchangeCode(w http.ResponseWriter, r *http.Request) {
	var req exchangeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apperrors.New(apperrors.ErrCodeValidation, "Invalid request body"))
		return
	}

	req.Code = strings.TrimSpace(req.Code)
	if req.Code == "" {
		writeError(w, apperrors.InvalidInput("code", "must not be empty"))
		return
	}

	creds, err := h.exchanger.ExchangeCode(r.Context(), req.Code)
	if err != nil {
		log.Error().Err(err).Msg("oauth code exchange failed")
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"ok":           true,
		"account_id":   creds.AccountID,
		"access_token": util.MaskSecret(creds.AccessToken),
		"expires_at":   creds.ExpiresAt,
	})
}
