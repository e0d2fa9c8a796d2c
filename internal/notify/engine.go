package notify

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/uran124/avito-relay/internal/audit"
	"github.com/uran124/avito-relay/internal/config"
	"github.com/uran124/avito-relay/internal/policy"
)

// Sender delivers one operator alert.
type Sender interface {
	Send(ctx context.Context, text string) error
	Configured() bool
}

// Engine decides when a turn warrants an operator alert and formats it.
type Engine struct {
	sender Sender
	policy policy.Policy
	mode   string
}

func NewEngine(sender Sender, p policy.Policy, mode string) *Engine {
	return &Engine{sender: sender, policy: p, mode: mode}
}

// ShouldNotify applies the configured mode: always fires, never stays
// silent, handoff fires when the reply asks for contact details.
func (e *Engine) ShouldNotify(reply string) bool {
	switch e.mode {
	case config.NotifyAlways:
		return true
	case config.NotifyNever:
		return false
	default:
		return e.policy.IsHandoff(reply)
	}
}

// Alert holds everything the operator message mentions about one turn.
type Alert struct {
	ChatID string
	In     string
	Out    string
	Phone  string
}

// Format renders the operator message. The phone line appears only when a
// number was collected.
func Format(a Alert) string {
	text := fmt.Sprintf("🟣 Avito лид\nChat: %s\nВход: %s\nОтвет: %s", a.ChatID, a.In, a.Out)
	if a.Phone != "" {
		text += "\nТелефон: " + a.Phone
	}
	return text
}

// Notify sends the alert when the mode calls for it. Delivery failures are
// logged and swallowed: an alert must never break the customer reply.
func (e *Engine) Notify(ctx context.Context, a Alert) bool {
	if !e.ShouldNotify(a.Out) {
		return false
	}
	if !e.sender.Configured() {
		log.Debug().Str("chat_id", a.ChatID).Msg("operator alert skipped: sender not configured")
		return false
	}

	if err := e.sender.Send(ctx, Format(a)); err != nil {
		log.Error().Err(err).Str("chat_id", a.ChatID).Msg("operator alert failed")
		return false
	}
	audit.Log(audit.Event{Type: audit.EventNotifySent, ChatID: a.ChatID})
	return true
}
