package store

import (
	"context"

	"github.com/rs/zerolog/log"

	"github.com/uran124/avito-relay/internal/audit"
	"github.com/uran124/avito-relay/internal/model"
)

// Failover attempts the primary backend and, on the first failure, switches
// to the fallback for the remainder of the request. The switch is
// request-scoped: a new Failover is built per webhook delivery, and the
// configured backend preference is never altered here. The failed operation
// is replayed on the fallback so no turn is lost at the switch point.
type Failover struct {
	primary       ConversationStore
	fallback      ConversationStore
	usingFallback bool
}

// NewFailover builds a request-scoped selector. primary may be nil when the
// relational backend is not configured at all.
func NewFailover(primary, fallback ConversationStore) *Failover {
	return &Failover{
		primary:       primary,
		fallback:      fallback,
		usingFallback: primary == nil,
	}
}

// UsingFallback reports whether the request has degraded to file sessions.
// Lead rows are only persisted while the primary backend is active.
func (f *Failover) UsingFallback() bool {
	return f.usingFallback
}

func (f *Failover) degrade(op string, err error) {
	log.Error().Err(err).Str("op", op).Msg("primary store failed, switching to file sessions for this request")
	audit.Log(audit.Event{
		Type:    audit.EventStoreFallback,
		Details: map[string]interface{}{"op": op, "error": err.Error()},
	})
	f.usingFallback = true
}

func (f *Failover) GetOrCreate(ctx context.Context, chatID string) (*model.Conversation, error) {
	if !f.usingFallback {
		conv, err := f.primary.GetOrCreate(ctx, chatID)
		if err == nil {
			return conv, nil
		}
		f.degrade("get_or_create", err)
	}
	return f.fallback.GetOrCreate(ctx, chatID)
}

func (f *Failover) AppendMessage(ctx context.Context, conv *model.Conversation, role model.Role, text string) error {
	if !f.usingFallback {
		err := f.primary.AppendMessage(ctx, conv, role, text)
		if err == nil {
			return nil
		}
		f.degrade("append_message", err)
	}
	return f.fallback.AppendMessage(ctx, conv, role, text)
}

func (f *Failover) RecentHistory(ctx context.Context, conv *model.Conversation, limit int) ([]model.HistoryEntry, error) {
	if !f.usingFallback {
		entries, err := f.primary.RecentHistory(ctx, conv, limit)
		if err == nil {
			return entries, nil
		}
		f.degrade("recent_history", err)
	}
	return f.fallback.RecentHistory(ctx, conv, limit)
}

func (f *Failover) UpdateCollected(ctx context.Context, conv *model.Conversation, collected model.Collected) error {
	if !f.usingFallback {
		err := f.primary.UpdateCollected(ctx, conv, collected)
		if err == nil {
			return nil
		}
		f.degrade("update_collected", err)
	}
	return f.fallback.UpdateCollected(ctx, conv, collected)
}

// InsertLead never falls through: leads exist only in the primary backend,
// so a degraded request simply skips lead capture.
func (f *Failover) InsertLead(ctx context.Context, params model.CreateLeadParams) error {
	if f.usingFallback {
		return ErrLeadsUnavailable
	}
	if err := f.primary.InsertLead(ctx, params); err != nil {
		f.degrade("insert_lead", err)
		return err
	}
	return nil
}
