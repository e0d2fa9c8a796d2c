package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/uran124/avito-relay/internal/config"
	"github.com/uran124/avito-relay/internal/util"
)

const telegramAPIBase = "https://api.telegram.org"

// Telegram delivers operator alerts via the bot sendMessage API.
type Telegram struct {
	botToken string
	chatID   string
	threadID string
	base     string
	http     *http.Client
}

type TelegramOptions struct {
	BotToken   string
	ChatID     string
	ThreadID   string
	BaseURL    string
	HTTPClient *http.Client
}

func NewTelegram(opts TelegramOptions) *Telegram {
	base := opts.BaseURL
	if base == "" {
		base = telegramAPIBase
	}
	httpc := opts.HTTPClient
	if httpc == nil {
		httpc = &http.Client{Timeout: config.NotifyRequestTimeout}
	}
	return &Telegram{
		botToken: opts.BotToken,
		chatID:   opts.ChatID,
		threadID: opts.ThreadID,
		base:     base,
		http:     httpc,
	}
}

// Configured reports whether alerts can be delivered at all.
func (t *Telegram) Configured() bool {
	return t.botToken != "" && t.chatID != ""
}

// Send posts one alert. Thread id is attached only when set, for group
// topics.
func (t *Telegram) Send(ctx context.Context, text string) error {
	if !t.Configured() {
		return fmt.Errorf("telegram bot token or chat id not configured")
	}

	payload := map[string]any{
		"chat_id":                  t.chatID,
		"text":                     text,
		"disable_web_page_preview": true,
	}
	if t.threadID != "" {
		threadID, err := strconv.Atoi(t.threadID)
		if err != nil {
			return fmt.Errorf("invalid telegram thread id %q: %w", t.threadID, err)
		}
		payload["message_thread_id"] = threadID
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal telegram payload: %w", err)
	}

	url := fmt.Sprintf("%s/bot%s/sendMessage", t.base, t.botToken)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build telegram request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.http.Do(req)
	if err != nil {
		return fmt.Errorf("telegram request: %w", err)
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("telegram returned %d: %s", resp.StatusCode, util.Truncate(string(raw), config.RawResponseLogLimit))
	}
	return nil
}
