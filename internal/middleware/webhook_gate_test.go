package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func okHandler() (http.Handler, *bool) {
	reached := false
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reached = true
		w.WriteHeader(http.StatusOK)
	}), &reached
}

func TestWebhookGate(t *testing.T) {
	post := func(headers map[string]string, remoteAddr string) *http.Request {
		req := httptest.NewRequest(http.MethodPost, "/webhook", strings.NewReader(`{}`))
		req.RemoteAddr = remoteAddr
		for k, v := range headers {
			req.Header.Set(k, v)
		}
		return req
	}

	t.Run("disabled webhook returns 410 before any check", func(t *testing.T) {
		next, reached := okHandler()
		gate := NewWebhookGateMiddleware(WebhookGateOptions{Enabled: false})
		rec := httptest.NewRecorder()

		gate.Handler(next).ServeHTTP(rec, post(nil, "1.2.3.4:1000"))

		assert.Equal(t, http.StatusGone, rec.Code)
		assert.False(t, *reached)

		var body map[string]any
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.Equal(t, false, body["ok"])
		assert.Equal(t, "WEBHOOK_DISABLED", body["code"])
	})

	t.Run("ip outside the allowlist gets 403", func(t *testing.T) {
		next, reached := okHandler()
		gate := NewWebhookGateMiddleware(WebhookGateOptions{Enabled: true, AllowIPs: []string{"10.0.0.1"}})
		rec := httptest.NewRecorder()

		gate.Handler(next).ServeHTTP(rec, post(nil, "10.0.0.2:4000"))

		assert.Equal(t, http.StatusForbidden, rec.Code)
		assert.False(t, *reached)
	})

	t.Run("allowlisted ip via forwarded header passes", func(t *testing.T) {
		next, reached := okHandler()
		gate := NewWebhookGateMiddleware(WebhookGateOptions{Enabled: true, AllowIPs: []string{"10.0.0.1"}})
		rec := httptest.NewRecorder()

		gate.Handler(next).ServeHTTP(rec, post(map[string]string{"X-Forwarded-For": "10.0.0.1"}, "127.0.0.1:9"))

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.True(t, *reached)
	})

	t.Run("wrong secret gets 401", func(t *testing.T) {
		next, reached := okHandler()
		gate := NewWebhookGateMiddleware(WebhookGateOptions{
			Enabled: true, SecretHeader: "X-Webhook-Secret", Secret: "s3cret",
		})
		rec := httptest.NewRecorder()

		gate.Handler(next).ServeHTTP(rec, post(map[string]string{"X-Webhook-Secret": "wrong"}, "1.1.1.1:1"))

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.False(t, *reached)
	})

	t.Run("missing secret header gets 401", func(t *testing.T) {
		next, _ := okHandler()
		gate := NewWebhookGateMiddleware(WebhookGateOptions{
			Enabled: true, SecretHeader: "X-Webhook-Secret", Secret: "s3cret",
		})
		rec := httptest.NewRecorder()

		gate.Handler(next).ServeHTTP(rec, post(nil, "1.1.1.1:1"))
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("correct secret passes", func(t *testing.T) {
		next, reached := okHandler()
		gate := NewWebhookGateMiddleware(WebhookGateOptions{
			Enabled: true, SecretHeader: "X-Webhook-Secret", Secret: "s3cret",
		})
		rec := httptest.NewRecorder()

		gate.Handler(next).ServeHTTP(rec, post(map[string]string{"X-Webhook-Secret": "s3cret"}, "1.1.1.1:1"))

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.True(t, *reached)
	})

	t.Run("no secret and no allowlist configured lets everything through", func(t *testing.T) {
		next, reached := okHandler()
		gate := NewWebhookGateMiddleware(WebhookGateOptions{Enabled: true})
		rec := httptest.NewRecorder()

		gate.Handler(next).ServeHTTP(rec, post(nil, "8.8.8.8:53"))

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.True(t, *reached)
	})
}

func TestOperatorAuth(t *testing.T) {
	get := func(auth string) *http.Request {
		req := httptest.NewRequest(http.MethodPost, "/v1/send", nil)
		if auth != "" {
			req.Header.Set("Authorization", auth)
		}
		return req
	}

	t.Run("valid bearer token passes", func(t *testing.T) {
		next, reached := okHandler()
		rec := httptest.NewRecorder()
		NewOperatorAuthMiddleware("op-token").Handler(next).ServeHTTP(rec, get("Bearer op-token"))
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.True(t, *reached)
	})

	t.Run("wrong token gets 401", func(t *testing.T) {
		next, _ := okHandler()
		rec := httptest.NewRecorder()
		NewOperatorAuthMiddleware("op-token").Handler(next).ServeHTTP(rec, get("Bearer nope"))
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("missing header gets 401", func(t *testing.T) {
		next, _ := okHandler()
		rec := httptest.NewRecorder()
		NewOperatorAuthMiddleware("op-token").Handler(next).ServeHTTP(rec, get(""))
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("unconfigured token shuts the API", func(t *testing.T) {
		next, reached := okHandler()
		rec := httptest.NewRecorder()
		NewOperatorAuthMiddleware("").Handler(next).ServeHTTP(rec, get("Bearer anything"))
		assert.Equal(t, http.StatusForbidden, rec.Code)
		assert.False(t, *reached)
	})
}

func TestBodyLimit(t *testing.T) {
	next, _ := okHandler()
	m := NewBodyLimitMiddleware(16)

	t.Run("oversized declared body rejected", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/webhook", strings.NewReader(strings.Repeat("a", 64)))
		rec := httptest.NewRecorder()
		m.Handler(next).ServeHTTP(rec, req)
		assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	})

	t.Run("small body passes", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/webhook", strings.NewReader("tiny"))
		rec := httptest.NewRecorder()
		m.Handler(next).ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code)
	})
}
