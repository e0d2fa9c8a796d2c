package store

import (
	"context"
	"fmt"

	"github.com/uran124/avito-relay/internal/model"
	"github.com/uran124/avito-relay/internal/repository"
)

// Primary is the relational conversation store.
type Primary struct {
	convRepo repository.ConversationRepository
	msgRepo  repository.MessageRepository
	leadRepo repository.LeadRepository
}

func NewPrimary(
	convRepo repository.ConversationRepository,
	msgRepo repository.MessageRepository,
	leadRepo repository.LeadRepository,
) *Primary {
	return &Primary{convRepo: convRepo, msgRepo: msgRepo, leadRepo: leadRepo}
}

func (p *Primary) GetOrCreate(ctx context.Context, chatID string) (*model.Conversation, error) {
	conv, err := p.convRepo.GetOrCreate(ctx, chatID)
	if err != nil {
		return nil, fmt.Errorf("get or create conversation: %w", err)
	}
	return conv, nil
}

func (p *Primary) AppendMessage(ctx context.Context, conv *model.Conversation, role model.Role, text string) error {
	if _, err := p.msgRepo.Append(ctx, conv.ID, role, text); err != nil {
		return fmt.Errorf("append message: %w", err)
	}
	return nil
}

func (p *Primary) RecentHistory(ctx context.Context, conv *model.Conversation, limit int) ([]model.HistoryEntry, error) {
	msgs, err := p.msgRepo.FindRecent(ctx, conv.ID, limit)
	if err != nil {
		return nil, fmt.Errorf("read recent messages: %w", err)
	}

	entries := make([]model.HistoryEntry, 0, len(msgs))
	for _, m := range msgs {
		entries = append(entries, model.HistoryEntry{
			Role:      m.Role,
			Text:      m.Text,
			Timestamp: m.CreatedAt,
		})
	}
	return entries, nil
}

func (p *Primary) UpdateCollected(ctx context.Context, conv *model.Conversation, collected model.Collected) error {
	if err := p.convRepo.UpdateCollected(ctx, conv.ID, collected); err != nil {
		return fmt.Errorf("update collected: %w", err)
	}
	conv.Collected = collected
	return nil
}

func (p *Primary) InsertLead(ctx context.Context, params model.CreateLeadParams) error {
	if _, err := p.leadRepo.Create(ctx, params); err != nil {
		return fmt.Errorf("insert lead: %w", err)
	}
	return nil
}
