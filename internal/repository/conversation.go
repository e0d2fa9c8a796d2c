package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/uran124/avito-relay/internal/model"
)

type ConversationRepository interface {
	FindByChatID(ctx context.Context, chatID string) (*model.Conversation, error)
	GetOrCreate(ctx context.Context, chatID string) (*model.Conversation, error)
	UpdateCollected(ctx context.Context, conversationID int64, collected model.Collected) error
	UpdateStage(ctx context.Context, conversationID int64, stage string) error
}

type conversationRepo struct {
	db     *sqlx.DB
	prefix string
}

func NewConversationRepository(db *sqlx.DB, prefix string) ConversationRepository {
	return &conversationRepo{db: db, prefix: prefix}
}

func (r *conversationRepo) table() string {
	return r.prefix + "conversations"
}

func (r *conversationRepo) FindByChatID(ctx context.Context, chatID string) (*model.Conversation, error) {
	var conv model.Conversation
	err := r.db.GetContext(ctx, &conv, fmt.Sprintf(`
		SELECT * FROM %s WHERE chat_id = $1
	`, r.table()), chatID)
	return HandleNotFound(&conv, err)
}

func (r *conversationRepo) GetOrCreate(ctx context.Context, chatID string) (*model.Conversation, error) {
	var conv model.Conversation
	err := r.db.GetContext(ctx, &conv, fmt.Sprintf(`
		INSERT INTO %s (chat_id, stage, collected)
		VALUES ($1, $2, '{}')
		ON CONFLICT (chat_id) DO UPDATE SET updated_at = NOW()
		RETURNING *
	`, r.table()), chatID, model.StageStart)
	if err != nil {
		return nil, err
	}
	return &conv, nil
}

// UpdateCollected is a full replace, not a merge: callers pass the complete
// mapping including prior fields.
func (r *conversationRepo) UpdateCollected(ctx context.Context, conversationID int64, collected model.Collected) error {
	_, err := r.db.ExecContext(ctx, fmt.Sprintf(`
		UPDATE %s SET collected = $2, updated_at = NOW() WHERE id = $1
	`, r.table()), conversationID, collected)
	return err
}

func (r *conversationRepo) UpdateStage(ctx context.Context, conversationID int64, stage string) error {
	_, err := r.db.ExecContext(ctx, fmt.Sprintf(`
		UPDATE %s SET stage = $2, updated_at = NOW() WHERE id = $1
	`, r.table()), conversationID, stage)
	return err
}
