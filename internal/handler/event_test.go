package handler

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/uran124/avito-relay/internal/util"
)

func TestParseEvent(t *testing.T) {
	t.Run("modern nested shape", func(t *testing.T) {
		raw := []byte(`{"payload":{"value":{"chat_id":"u2i-abc","message":{"text":"Хочу 11 роз"}}}}`)
		event := ParseEvent(raw)
		assert.Equal(t, "u2i-abc", event.ChatID)
		assert.Equal(t, "Хочу 11 роз", event.Text)
	})

	t.Run("conversation_id outranks chat_id", func(t *testing.T) {
		raw := []byte(`{"payload":{"value":{"conversation_id":"conv-1","chat_id":"chat-1"}},"text":"hi"}`)
		event := ParseEvent(raw)
		assert.Equal(t, "conv-1", event.ChatID)
	})

	t.Run("flat legacy shape", func(t *testing.T) {
		raw := []byte(`{"chat_id":"c-7","text":"  привет  "}`)
		event := ParseEvent(raw)
		assert.Equal(t, "c-7", event.ChatID)
		assert.Equal(t, "привет", event.Text)
	})

	t.Run("numeric chat id is tolerated", func(t *testing.T) {
		raw := []byte(`{"dialog_id":421337,"message_text":"ок"}`)
		event := ParseEvent(raw)
		assert.Equal(t, "421337", event.ChatID)
	})

	t.Run("blank text at a higher-priority path falls through", func(t *testing.T) {
		raw := []byte(`{"message":{"text":"   "},"text":"настоящий текст"}`)
		event := ParseEvent(raw)
		assert.Equal(t, "настоящий текст", event.Text)
	})

	t.Run("missing chat id hashes the payload", func(t *testing.T) {
		raw := []byte(`{"text":"без чата"}`)
		event := ParseEvent(raw)
		assert.Equal(t, util.PayloadHash(raw), event.ChatID)
		assert.Len(t, event.ChatID, 16)

		// The substitute is stable for identical payloads.
		assert.Equal(t, event.ChatID, ParseEvent(raw).ChatID)
	})

	t.Run("unparseable body yields empty text and a hash id", func(t *testing.T) {
		raw := []byte(`not json at all`)
		event := ParseEvent(raw)
		assert.Empty(t, event.Text)
		assert.Equal(t, util.PayloadHash(raw), event.ChatID)
	})

	t.Run("nested content shape", func(t *testing.T) {
		raw := []byte(`{"message":{"chat_id":"m-1","content":{"text":"вложенный"}}}`)
		event := ParseEvent(raw)
		assert.Equal(t, "m-1", event.ChatID)
		assert.Equal(t, "вложенный", event.Text)
	})
}
