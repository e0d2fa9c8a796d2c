package model

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// Collected holds structured fields extracted from free-text conversation
// (e.g. a phone number). Stored as JSONB on the conversation row.
type Collected map[string]string

func (c Collected) Value() (driver.Value, error) {
	if c == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(c)
}

func (c *Collected) Scan(src any) error {
	if src == nil {
		*c = Collected{}
		return nil
	}

	var raw []byte
	switch v := src.(type) {
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("unsupported collected type %T", src)
	}

	if len(raw) == 0 {
		*c = Collected{}
		return nil
	}
	return json.Unmarshal(raw, c)
}

// Clone returns a copy so in-memory merges never alias the stored map.
func (c Collected) Clone() Collected {
	out := make(Collected, len(c))
	for k, v := range c {
		out[k] = v
	}
	return out
}

// Conversation is one marketplace chat. Created lazily on first inbound
// message for a chat id; never deleted by this service.
type Conversation struct {
	ID        int64     `db:"id" json:"id"`
	ChatID    string    `db:"chat_id" json:"chatId"`
	Stage     string    `db:"stage" json:"stage"`
	Collected Collected `db:"collected" json:"collected"`
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt time.Time `db:"updated_at" json:"updatedAt"`
}

const StageStart = "start"
