package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/uran124/avito-relay/internal/config"
)

func captureServer(t *testing.T, status int, response any) (*httptest.Server, *map[string]any) {
	t.Helper()
	captured := &map[string]any{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(captured))
		(*captured)["_auth"] = r.Header.Get("Authorization")
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		require.NoError(t, json.NewEncoder(w).Encode(response))
	}))
	t.Cleanup(srv.Close)
	return srv, captured
}

func TestYandexComplete(t *testing.T) {
	t.Run("builds model uri and extracts text", func(t *testing.T) {
		srv, captured := captureServer(t, http.StatusOK, map[string]any{
			"result": map[string]any{
				"alternatives": []any{
					map[string]any{"message": map[string]any{"role": "assistant", "text": "  Привет! Сколько роз нужно?  "}},
				},
			},
		})
		client := NewYandex(YandexOptions{
			APIKey: "yc-key", FolderID: "b1folder", Model: "yandexgpt/latest",
			Temperature: 0.2, MaxTokens: 260, BaseURL: srv.URL,
		})

		text, err := client.Complete(context.Background(), "будь кратким", "хочу букет")
		require.NoError(t, err)
		assert.Equal(t, "Привет! Сколько роз нужно?", text)

		assert.Equal(t, "Api-Key yc-key", (*captured)["_auth"])
		assert.Equal(t, "gpt://b1folder/yandexgpt/latest", (*captured)["modelUri"])
		msgs := (*captured)["messages"].([]any)
		require.Len(t, msgs, 2)
		assert.Equal(t, "system", msgs[0].(map[string]any)["role"])
	})

	t.Run("blank instructions omit the system message", func(t *testing.T) {
		srv, captured := captureServer(t, http.StatusOK, map[string]any{
			"result": map[string]any{
				"alternatives": []any{map[string]any{"message": map[string]any{"text": "ок"}}},
			},
		})
		client := NewYandex(YandexOptions{APIKey: "k", FolderID: "f", Model: "m", BaseURL: srv.URL})

		_, err := client.Complete(context.Background(), "   ", "вопрос")
		require.NoError(t, err)
		assert.Len(t, (*captured)["messages"].([]any), 1)
	})

	t.Run("upstream error carries status and body", func(t *testing.T) {
		srv, _ := captureServer(t, http.StatusTooManyRequests, map[string]any{"error": "quota"})
		client := NewYandex(YandexOptions{APIKey: "k", FolderID: "f", Model: "m", BaseURL: srv.URL})

		_, err := client.Complete(context.Background(), "", "вопрос")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "429")
		assert.Contains(t, err.Error(), "quota")
	})

	t.Run("missing credentials fail before any call", func(t *testing.T) {
		client := NewYandex(YandexOptions{FolderID: "f", Model: "m"})
		_, err := client.Complete(context.Background(), "", "вопрос")
		assert.ErrorContains(t, err, "api key")
	})
}

func TestOpenAIComplete(t *testing.T) {
	t.Run("prefers output_text", func(t *testing.T) {
		srv, captured := captureServer(t, http.StatusOK, map[string]any{"output_text": "готово"})
		client := NewOpenAI(OpenAIOptions{APIKey: "sk-1", Model: "gpt-4.1-mini", MaxTokens: 260, BaseURL: srv.URL})

		text, err := client.Complete(context.Background(), "инструкции", "ввод")
		require.NoError(t, err)
		assert.Equal(t, "готово", text)
		assert.Equal(t, "Bearer sk-1", (*captured)["_auth"])
		assert.Equal(t, false, (*captured)["store"])
		assert.Equal(t, float64(260), (*captured)["max_output_tokens"])
	})

	t.Run("falls back to message output parts", func(t *testing.T) {
		srv, _ := captureServer(t, http.StatusOK, map[string]any{
			"output": []any{
				map[string]any{"type": "reasoning"},
				map[string]any{"type": "message", "content": []any{
					map[string]any{"text": "первая"},
					map[string]any{"text": "вторая"},
				}},
			},
		})
		client := NewOpenAI(OpenAIOptions{APIKey: "sk-1", Model: "m", BaseURL: srv.URL})

		text, err := client.Complete(context.Background(), "", "ввод")
		require.NoError(t, err)
		assert.Equal(t, "первая\nвторая", text)
	})

	t.Run("empty output is an error", func(t *testing.T) {
		srv, _ := captureServer(t, http.StatusOK, map[string]any{"output": []any{}})
		client := NewOpenAI(OpenAIOptions{APIKey: "sk-1", Model: "m", BaseURL: srv.URL})

		_, err := client.Complete(context.Background(), "", "ввод")
		assert.ErrorContains(t, err, "empty")
	})
}

func TestDeepSeekComplete(t *testing.T) {
	srv, captured := captureServer(t, http.StatusOK, map[string]any{
		"choices": []any{
			map[string]any{"message": map[string]any{"role": "assistant", "content": "ответ"}},
		},
	})
	client := NewDeepSeek(DeepSeekOptions{APIKey: "ds-1", Model: "deepseek-chat", MaxTokens: 260, BaseURL: srv.URL})

	text, err := client.Complete(context.Background(), "системные", "вопрос")
	require.NoError(t, err)
	assert.Equal(t, "ответ", text)
	assert.Equal(t, "Bearer ds-1", (*captured)["_auth"])
	msgs := (*captured)["messages"].([]any)
	require.Len(t, msgs, 2)
	assert.Equal(t, "системные", msgs[0].(map[string]any)["content"])
}

func TestNewSelectsProvider(t *testing.T) {
	cases := []struct {
		provider string
		name     string
	}{
		{"yandex", "yandex"},
		{"openai", "openai"},
		{"deepseek", "deepseek"},
	}
	for _, tc := range cases {
		t.Run(tc.provider, func(t *testing.T) {
			client, err := New(&config.Config{LLMProvider: tc.provider})
			require.NoError(t, err)
			assert.Equal(t, tc.name, client.Name())
		})
	}

	_, err := New(&config.Config{LLMProvider: "llama"})
	assert.Error(t, err)
}
