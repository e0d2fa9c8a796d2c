package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
)

const deepSeekChatURL = "https://api.deepseek.com/v1/chat/completions"

type DeepSeekOptions struct {
	APIKey     string
	Model      string
	MaxTokens  int
	BaseURL    string
	HTTPClient *http.Client
}

// DeepSeek talks to the chat completions API.
type DeepSeek struct {
	apiKey    string
	model     string
	maxTokens int
	url       string
	http      *http.Client
}

type deepSeekMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type deepSeekRequest struct {
	Model     string            `json:"model"`
	Messages  []deepSeekMessage `json:"messages"`
	MaxTokens int               `json:"max_tokens"`
}

type deepSeekResponse struct {
	Choices []struct {
		Message deepSeekMessage `json:"message"`
	} `json:"choices"`
}

func NewDeepSeek(opts DeepSeekOptions) *DeepSeek {
	url := opts.BaseURL
	if url == "" {
		url = deepSeekChatURL
	}
	return &DeepSeek{
		apiKey:    opts.APIKey,
		model:     opts.Model,
		maxTokens: opts.MaxTokens,
		url:       url,
		http:      defaultHTTPClient(opts.HTTPClient),
	}
}

func (d *DeepSeek) Name() string { return "deepseek" }

func (d *DeepSeek) Complete(ctx context.Context, instructions, input string) (string, error) {
	if d.apiKey == "" {
		return "", fmt.Errorf("deepseek api key is empty")
	}

	var messages []deepSeekMessage
	if strings.TrimSpace(instructions) != "" {
		messages = append(messages, deepSeekMessage{Role: "system", Content: instructions})
	}
	messages = append(messages, deepSeekMessage{Role: "user", Content: input})

	raw, err := postJSON(ctx, d.http, d.url, map[string]string{
		"Authorization": "Bearer " + d.apiKey,
	}, deepSeekRequest{
		Model:     d.model,
		Messages:  messages,
		MaxTokens: d.maxTokens,
	})
	if err != nil {
		return "", err
	}

	var parsed deepSeekResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return "", fmt.Errorf("parse deepseek response: %w", err)
	}
	if len(parsed.Choices) == 0 {
		return "", fmt.Errorf("deepseek response has no choices")
	}
	text := strings.TrimSpace(parsed.Choices[0].Message.Content)
	if text == "" {
		return "", fmt.Errorf("deepseek response text is empty")
	}
	return text, nil
}
