package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/uran124/avito-relay/internal/model"
)

type LeadRepository interface {
	Create(ctx context.Context, params model.CreateLeadParams) (*model.Lead, error)
	FindByChatID(ctx context.Context, chatID string, limit int) ([]model.Lead, error)
}

type leadRepo struct {
	db     *sqlx.DB
	prefix string
}

func NewLeadRepository(db *sqlx.DB, prefix string) LeadRepository {
	return &leadRepo{db: db, prefix: prefix}
}

func (r *leadRepo) table() string {
	return r.prefix + "leads"
}

func (r *leadRepo) Create(ctx context.Context, params model.CreateLeadParams) (*model.Lead, error) {
	payload, err := json.Marshal(params.Payload)
	if err != nil {
		return nil, fmt.Errorf("marshal lead payload: %w", err)
	}

	status := params.Status
	if status == "" {
		status = model.LeadStatusHandoff
	}

	var lead model.Lead
	err = r.db.GetContext(ctx, &lead, fmt.Sprintf(`
		INSERT INTO %s (id, conversation_id, chat_id, phone, payload, status)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING *
	`, r.table()), uuid.NewString(), params.ConversationID, params.ChatID, params.Phone, payload, status)
	if err != nil {
		return nil, err
	}
	return &lead, nil
}

func (r *leadRepo) FindByChatID(ctx context.Context, chatID string, limit int) ([]model.Lead, error) {
	if limit <= 0 {
		limit = 20
	}

	var leads []model.Lead
	err := r.db.SelectContext(ctx, &leads, fmt.Sprintf(`
		SELECT * FROM %s
		WHERE chat_id = $1
		ORDER BY created_at DESC
		LIMIT $2
	`, r.table()), chatID, limit)
	return leads, err
}
