package store

import (
	"context"
	"errors"

	"github.com/uran124/avito-relay/internal/model"
)

// ErrLeadsUnavailable is returned by backends that cannot persist leads.
// The file session fallback keeps conversations alive but drops lead rows.
var ErrLeadsUnavailable = errors.New("lead persistence unavailable on this backend")

// ConversationStore is the logical conversation persistence contract shared
// by the relational primary backend and the file session fallback.
type ConversationStore interface {
	// GetOrCreate loads the conversation for chatID, creating it on first contact.
	GetOrCreate(ctx context.Context, chatID string) (*model.Conversation, error)

	// AppendMessage records one turn. Messages are immutable once written.
	AppendMessage(ctx context.Context, conv *model.Conversation, role model.Role, text string) error

	// RecentHistory returns at most limit turns, oldest first.
	RecentHistory(ctx context.Context, conv *model.Conversation, limit int) ([]model.HistoryEntry, error)

	// UpdateCollected replaces the collected mapping wholesale.
	UpdateCollected(ctx context.Context, conv *model.Conversation, collected model.Collected) error

	// InsertLead persists a handoff lead row.
	InsertLead(ctx context.Context, params model.CreateLeadParams) error
}
