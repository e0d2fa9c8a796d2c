package marketplace

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/uran124/avito-relay/internal/config"
	apperrors "github.com/uran124/avito-relay/internal/errors"
	"github.com/uran124/avito-relay/internal/util"
)

// Messages longer than this are cut before sending, matching the
// platform's message size limit.
const maxMessageLen = 1000

// TokenSource supplies a usable marketplace access token.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// Client is the authenticated outbound messenger API client.
type Client struct {
	apiBase   string
	accountID string
	tokens    TokenSource
	http      *http.Client
}

type Options struct {
	APIBase    string
	AccountID  string
	HTTPClient *http.Client
}

func NewClient(tokens TokenSource, opts Options) *Client {
	httpc := opts.HTTPClient
	if httpc == nil {
		httpc = &http.Client{Timeout: config.SendRequestTimeout}
	}
	return &Client{
		apiBase:   opts.APIBase,
		accountID: opts.AccountID,
		tokens:    tokens,
		http:      httpc,
	}
}

type sendRequest struct {
	Message struct {
		Text string `json:"text"`
	} `json:"message"`
	Type string `json:"type"`
}

// SentMessage is the platform's record of a delivered message.
type SentMessage struct {
	ID      string `json:"id"`
	Type    string `json:"type"`
	Created int64  `json:"created"`
}

// SendMessage posts one text message into a chat on behalf of the account.
func (c *Client) SendMessage(ctx context.Context, chatID, text string) (*SentMessage, error) {
	if c.accountID == "" {
		return nil, apperrors.InvalidInput("account_id", "not configured")
	}

	token, err := c.tokens.Token(ctx)
	if err != nil {
		return nil, err
	}

	if runes := []rune(text); len(runes) > maxMessageLen {
		text = string(runes[:maxMessageLen])
	}

	var body sendRequest
	body.Message.Text = text
	body.Type = "text"

	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal send request: %w", err)
	}

	endpoint := fmt.Sprintf("%s/messenger/v1/accounts/%s/chats/%s/messages",
		c.apiBase, url.PathEscape(c.accountID), url.PathEscape(chatID))

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("build send request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, apperrors.Upstream("marketplace", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, apperrors.Upstream("marketplace", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, apperrors.Upstream("marketplace", fmt.Errorf(
			"send returned %d: %s", resp.StatusCode, util.Truncate(string(raw), config.RawResponseLogLimit)))
	}

	var sent SentMessage
	if err := json.Unmarshal(raw, &sent); err != nil {
		return nil, apperrors.Upstream("marketplace", fmt.Errorf("parse send response: %w", err))
	}
	return &sent, nil
}
