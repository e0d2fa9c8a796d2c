package model

import "time"

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one conversation turn. Append-only and immutable once written;
// ordering is by the monotonic id.
type Message struct {
	ID             int64     `db:"id" json:"id"`
	ConversationID int64     `db:"conversation_id" json:"conversationId"`
	Role           Role      `db:"role" json:"role"`
	Text           string    `db:"text" json:"text"`
	CreatedAt      time.Time `db:"created_at" json:"createdAt"`
}

// HistoryEntry is the backend-neutral view of a stored turn, shared by the
// relational store and the file session fallback.
type HistoryEntry struct {
	Role      Role      `json:"role"`
	Text      string    `json:"text"`
	Timestamp time.Time `json:"ts"`
}
