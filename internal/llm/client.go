package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/uran124/avito-relay/internal/config"
	"github.com/uran124/avito-relay/internal/util"
)

// Client generates one reply from static instructions and the user input.
// Implementations own their provider's wire format; callers only see text.
type Client interface {
	Complete(ctx context.Context, instructions, input string) (string, error)
	Name() string
}

// New builds the client selected by LLM_PROVIDER.
func New(cfg *config.Config) (Client, error) {
	switch cfg.LLMProvider {
	case "yandex":
		return NewYandex(YandexOptions{
			APIKey:      cfg.YandexAPIKey,
			FolderID:    cfg.YandexFolderID,
			Model:       cfg.YandexModel,
			Temperature: cfg.YandexTemp,
			MaxTokens:   cfg.MaxOutputTokens,
		}), nil
	case "openai":
		return NewOpenAI(OpenAIOptions{
			APIKey:    cfg.OpenAIAPIKey,
			Model:     cfg.OpenAIModel,
			MaxTokens: cfg.MaxOutputTokens,
		}), nil
	case "deepseek":
		return NewDeepSeek(DeepSeekOptions{
			APIKey:    cfg.DeepSeekAPIKey,
			Model:     cfg.DeepSeekModel,
			MaxTokens: cfg.MaxOutputTokens,
		}), nil
	default:
		return nil, fmt.Errorf("unknown LLM provider %q", cfg.LLMProvider)
	}
}

func defaultHTTPClient(c *http.Client) *http.Client {
	if c != nil {
		return c
	}
	return &http.Client{Timeout: config.LLMRequestTimeout}
}

// postJSON issues one provider call and returns the raw response body.
// Errors embed the status and a truncated body so callers can log them
// without re-reading anything.
func postJSON(ctx context.Context, httpc *http.Client, url string, headers map[string]string, body any) ([]byte, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := httpc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("call provider: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("provider returned %d: %s", resp.StatusCode, util.Truncate(string(raw), config.RawResponseLogLimit))
	}
	return raw, nil
}
