package model

import (
	"encoding/json"
	"time"
)

const LeadStatusHandoff = "handoff"

// Lead is a captured handoff: one row per triggering event, not deduplicated
// across repeated handoffs for the same chat.
type Lead struct {
	ID             string          `db:"id" json:"id"`
	ConversationID int64           `db:"conversation_id" json:"conversationId"`
	ChatID         string          `db:"chat_id" json:"chatId"`
	Phone          *string         `db:"phone" json:"phone"`
	Payload        json.RawMessage `db:"payload" json:"payload"`
	Status         string          `db:"status" json:"status"`
	CreatedAt      time.Time       `db:"created_at" json:"createdAt"`
}

// LeadPayload is the snapshot stored with every lead.
type LeadPayload struct {
	In         string          `json:"in"`
	Out        string          `json:"out"`
	Collected  Collected       `json:"collected"`
	RawPayload json.RawMessage `json:"raw_payload"`
}

type CreateLeadParams struct {
	ConversationID int64
	ChatID         string
	Phone          *string
	Payload        LeadPayload
	Status         string
}
