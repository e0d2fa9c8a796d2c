package store

import (
	"context"

	"github.com/uran124/avito-relay/internal/model"
	"github.com/uran124/avito-relay/internal/session"
)

// Fallback adapts the file session store to the ConversationStore contract.
// Best effort by design: history is bounded and leads are not persisted.
type Fallback struct {
	sessions *session.Store
}

func NewFallback(sessions *session.Store) *Fallback {
	return &Fallback{sessions: sessions}
}

func (f *Fallback) GetOrCreate(_ context.Context, chatID string) (*model.Conversation, error) {
	sess := f.sessions.Load(chatID)
	return &model.Conversation{
		ChatID:    chatID,
		Stage:     sess.Stage,
		Collected: sess.Collected.Clone(),
	}, nil
}

func (f *Fallback) AppendMessage(_ context.Context, conv *model.Conversation, role model.Role, text string) error {
	_, err := f.sessions.Append(conv.ChatID, role, text)
	return err
}

func (f *Fallback) RecentHistory(_ context.Context, conv *model.Conversation, limit int) ([]model.HistoryEntry, error) {
	hist := f.sessions.Load(conv.ChatID).History
	if limit > 0 && len(hist) > limit {
		hist = hist[len(hist)-limit:]
	}
	return hist, nil
}

func (f *Fallback) UpdateCollected(_ context.Context, conv *model.Conversation, collected model.Collected) error {
	sess := f.sessions.Load(conv.ChatID)
	sess.Collected = collected.Clone()
	conv.Collected = collected
	return f.sessions.Save(conv.ChatID, sess)
}

func (f *Fallback) InsertLead(context.Context, model.CreateLeadParams) error {
	return ErrLeadsUnavailable
}
