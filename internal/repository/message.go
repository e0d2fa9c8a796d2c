package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/uran124/avito-relay/internal/model"
)

type MessageRepository interface {
	Append(ctx context.Context, conversationID int64, role model.Role, text string) (*model.Message, error)
	FindRecent(ctx context.Context, conversationID int64, limit int) ([]model.Message, error)
	CountByConversation(ctx context.Context, conversationID int64) (int, error)
}

type messageRepo struct {
	db     *sqlx.DB
	prefix string
}

func NewMessageRepository(db *sqlx.DB, prefix string) MessageRepository {
	return &messageRepo{db: db, prefix: prefix}
}

func (r *messageRepo) table() string {
	return r.prefix + "messages"
}

func (r *messageRepo) Append(ctx context.Context, conversationID int64, role model.Role, text string) (*model.Message, error) {
	var msg model.Message
	err := r.db.GetContext(ctx, &msg, fmt.Sprintf(`
		INSERT INTO %s (conversation_id, role, text)
		VALUES ($1, $2, $3)
		RETURNING *
	`, r.table()), conversationID, role, text)
	if err != nil {
		return nil, err
	}
	return &msg, nil
}

// FindRecent returns at most limit messages, oldest first. The newest rows
// are selected by descending id and reversed, so the caller always sees the
// tail of the conversation in chronological order.
func (r *messageRepo) FindRecent(ctx context.Context, conversationID int64, limit int) ([]model.Message, error) {
	if limit < 1 {
		limit = 1
	}
	if limit > 50 {
		limit = 50
	}

	var msgs []model.Message
	err := r.db.SelectContext(ctx, &msgs, fmt.Sprintf(`
		SELECT * FROM %s
		WHERE conversation_id = $1
		ORDER BY id DESC
		LIMIT $2
	`, r.table()), conversationID, limit)
	if err != nil {
		return nil, err
	}

	for i, j := 0, len(msgs)-1; i < j; i, j = i+1, j-1 {
		msgs[i], msgs[j] = msgs[j], msgs[i]
	}
	return msgs, nil
}

func (r *messageRepo) CountByConversation(ctx context.Context, conversationID int64) (int, error) {
	var count int
	err := r.db.GetContext(ctx, &count, fmt.Sprintf(`
		SELECT COUNT(*) FROM %s WHERE conversation_id = $1
	`, r.table()), conversationID)
	return count, err
}
