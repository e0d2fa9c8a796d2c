package handler

import (
	"encoding/json"
	"strconv"
	"strings"

	"github.com/uran124/avito-relay/internal/service"
	"github.com/uran124/avito-relay/internal/util"
)

// The platform has shipped several webhook payload shapes over time, so
// extraction walks an ordered list of paths and takes the first hit.
var textPaths = [][]string{
	{"payload", "value", "message", "text"},
	{"payload", "message", "text"},
	{"message", "text"},
	{"message_text"},
	{"text"},
	{"data", "text"},
	{"body", "text"},
	{"message", "content", "text"},
}

var chatIDPaths = [][]string{
	{"payload", "value", "conversation_id"},
	{"payload", "value", "chat_id"},
	{"payload", "conversation_id"},
	{"chat_id"},
	{"conversation_id"},
	{"dialog_id"},
	{"message", "chat_id"},
	{"data", "chat_id"},
}

// ParseEvent decodes one webhook delivery into a typed event. Text may be
// empty (the caller short-circuits); chat id never is — a payload without
// one gets a stable hash of the raw body so the turn still lands somewhere.
func ParseEvent(raw []byte) service.InboundEvent {
	var payload map[string]any
	if err := json.Unmarshal(raw, &payload); err != nil {
		payload = map[string]any{}
	}

	return service.InboundEvent{
		ChatID:     extractChatID(payload, raw),
		Text:       extractText(payload),
		RawPayload: json.RawMessage(raw),
	}
}

func extractText(payload map[string]any) string {
	for _, path := range textPaths {
		value, ok := lookup(payload, path)
		if !ok {
			continue
		}
		if s, ok := value.(string); ok {
			if trimmed := strings.TrimSpace(s); trimmed != "" {
				return trimmed
			}
		}
	}
	return ""
}

func extractChatID(payload map[string]any, raw []byte) string {
	for _, path := range chatIDPaths {
		value, ok := lookup(payload, path)
		if !ok {
			continue
		}
		switch v := value.(type) {
		case string:
			if v != "" {
				return v
			}
		case float64:
			// Integer ids are tolerated, fractional values are not ids.
			if v == float64(int64(v)) {
				return strconv.FormatInt(int64(v), 10)
			}
		}
	}
	return util.PayloadHash(raw)
}

func lookup(payload map[string]any, path []string) (any, bool) {
	var current any = payload
	for _, key := range path {
		m, ok := current.(map[string]any)
		if !ok {
			return nil, false
		}
		current, ok = m[key]
		if !ok {
			return nil, false
		}
	}
	return current, true
}
