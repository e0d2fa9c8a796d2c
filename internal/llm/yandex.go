package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
)

const yandexCompletionURL = "https://llm.api.cloud.yandex.net/foundationModels/v1/completion"

type YandexOptions struct {
	APIKey      string
	FolderID    string
	Model       string
	Temperature float64
	MaxTokens   int
	BaseURL     string
	HTTPClient  *http.Client
}

// Yandex talks to the Yandex AI Studio completion API.
type Yandex struct {
	apiKey      string
	folderID    string
	model       string
	temperature float64
	maxTokens   int
	url         string
	http        *http.Client
}

type yandexMessage struct {
	Role string `json:"role"`
	Text string `json:"text"`
}

type yandexRequest struct {
	ModelURI          string          `json:"modelUri"`
	CompletionOptions yandexOptions   `json:"completionOptions"`
	Messages          []yandexMessage `json:"messages"`
}

type yandexOptions struct {
	Stream      bool    `json:"stream"`
	Temperature float64 `json:"temperature"`
	MaxTokens   int     `json:"maxTokens"`
}

type yandexResponse struct {
	Result struct {
		Alternatives []struct {
			Message yandexMessage `json:"message"`
		} `json:"alternatives"`
	} `json:"result"`
}

func NewYandex(opts YandexOptions) *Yandex {
	url := opts.BaseURL
	if url == "" {
		url = yandexCompletionURL
	}
	return &Yandex{
		apiKey:      opts.APIKey,
		folderID:    opts.FolderID,
		model:       opts.Model,
		temperature: opts.Temperature,
		maxTokens:   opts.MaxTokens,
		url:         url,
		http:        defaultHTTPClient(opts.HTTPClient),
	}
}

func (y *Yandex) Name() string { return "yandex" }

func (y *Yandex) Complete(ctx context.Context, instructions, input string) (string, error) {
	if y.apiKey == "" {
		return "", fmt.Errorf("yandex api key is empty")
	}
	if y.folderID == "" {
		return "", fmt.Errorf("yandex folder id is empty")
	}

	var messages []yandexMessage
	if strings.TrimSpace(instructions) != "" {
		messages = append(messages, yandexMessage{Role: "system", Text: instructions})
	}
	messages = append(messages, yandexMessage{Role: "user", Text: input})

	body := yandexRequest{
		ModelURI: fmt.Sprintf("gpt://%s/%s", y.folderID, y.model),
		CompletionOptions: yandexOptions{
			Stream:      false,
			Temperature: y.temperature,
			MaxTokens:   y.maxTokens,
		},
		Messages: messages,
	}

	raw, err := postJSON(ctx, y.http, y.url, map[string]string{
		"Authorization": "Api-Key " + y.apiKey,
	}, body)
	if err != nil {
		return "", err
	}

	var parsed yandexResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return "", fmt.Errorf("parse yandex response: %w", err)
	}
	if len(parsed.Result.Alternatives) == 0 {
		return "", fmt.Errorf("yandex response has no alternatives")
	}
	text := strings.TrimSpace(parsed.Result.Alternatives[0].Message.Text)
	if text == "" {
		return "", fmt.Errorf("yandex response text is empty")
	}
	return text, nil
}
