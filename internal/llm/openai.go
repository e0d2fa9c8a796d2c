package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
)

const openAIResponsesURL = "https://api.openai.com/v1/responses"

type OpenAIOptions struct {
	APIKey     string
	Model      string
	MaxTokens  int
	BaseURL    string
	HTTPClient *http.Client
}

// OpenAI talks to the Responses API.
type OpenAI struct {
	apiKey    string
	model     string
	maxTokens int
	url       string
	http      *http.Client
}

type openAIRequest struct {
	Model           string `json:"model"`
	Instructions    string `json:"instructions"`
	Input           string `json:"input"`
	MaxOutputTokens int    `json:"max_output_tokens"`
	Store           bool   `json:"store"`
}

type openAIResponse struct {
	OutputText string `json:"output_text"`
	Output     []struct {
		Type    string `json:"type"`
		Content []struct {
			Text string `json:"text"`
		} `json:"content"`
	} `json:"output"`
}

func NewOpenAI(opts OpenAIOptions) *OpenAI {
	url := opts.BaseURL
	if url == "" {
		url = openAIResponsesURL
	}
	return &OpenAI{
		apiKey:    opts.APIKey,
		model:     opts.Model,
		maxTokens: opts.MaxTokens,
		url:       url,
		http:      defaultHTTPClient(opts.HTTPClient),
	}
}

func (o *OpenAI) Name() string { return "openai" }

func (o *OpenAI) Complete(ctx context.Context, instructions, input string) (string, error) {
	if o.apiKey == "" {
		return "", fmt.Errorf("openai api key is empty")
	}

	raw, err := postJSON(ctx, o.http, o.url, map[string]string{
		"Authorization": "Bearer " + o.apiKey,
	}, openAIRequest{
		Model:           o.model,
		Instructions:    instructions,
		Input:           input,
		MaxOutputTokens: o.maxTokens,
		Store:           false,
	})
	if err != nil {
		return "", err
	}

	var parsed openAIResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return "", fmt.Errorf("parse openai response: %w", err)
	}

	if text := strings.TrimSpace(parsed.OutputText); text != "" {
		return text, nil
	}

	// Older response shape: text parts nested under message output items.
	var parts []string
	for _, item := range parsed.Output {
		if item.Type != "message" {
			continue
		}
		for _, part := range item.Content {
			if part.Text != "" {
				parts = append(parts, part.Text)
			}
		}
	}
	text := strings.TrimSpace(strings.Join(parts, "\n"))
	if text == "" {
		return "", fmt.Errorf("openai response text is empty")
	}
	return text, nil
}
