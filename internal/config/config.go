package config

import (
	"fmt"
	"net/url"

	"github.com/caarlos0/env/v11"
	"github.com/rs/zerolog/log"
)

type Config struct {
	Port     int    `env:"PORT" envDefault:"8080"`
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`

	// Webhook security gate
	WebhookEnabled      bool     `env:"WEBHOOK_ENABLED" envDefault:"true"`
	WebhookSecretHeader string   `env:"WEBHOOK_SECRET_HEADER" envDefault:"X-Webhook-Secret"`
	WebhookSecret       string   `env:"WEBHOOK_SECRET"`
	AllowIPs            []string `env:"ALLOW_IPS"`

	// Primary conversation store (Postgres). The server still starts when the
	// database is unreachable; requests degrade to the file session fallback.
	DBEnabled   bool   `env:"DB_ENABLED" envDefault:"true"`
	DBHost      string `env:"DB_HOST" envDefault:"127.0.0.1"`
	DBPort      int    `env:"DB_PORT" envDefault:"5432"`
	DBName      string `env:"DB_NAME"`
	DBUser      string `env:"DB_USER"`
	DBPassword  string `env:"DB_PASSWORD"`
	TablePrefix string `env:"DB_TABLE_PREFIX"`

	// Optional redis for webhook IP rate limiting
	RedisURL       string `env:"REDIS_URL"`
	RateLimitPerIP int    `env:"RATE_LIMIT_PER_IP" envDefault:"120"`

	// Durable file state (fallback sessions, credentials)
	DataDir string `env:"DATA_DIR" envDefault:"data"`

	// Marketplace OAuth
	MarketplaceAPIBase  string `env:"MARKETPLACE_API_BASE" envDefault:"https://api.avito.ru"`
	MarketplaceTokenURL string `env:"MARKETPLACE_TOKEN_URL" envDefault:"https://api.avito.ru/token"`
	ClientID            string `env:"MARKETPLACE_CLIENT_ID"`
	ClientSecret        string `env:"MARKETPLACE_CLIENT_SECRET"`
	AccountID           string `env:"MARKETPLACE_ACCOUNT_ID"`
	OAuthRedirectURI    string `env:"MARKETPLACE_REDIRECT_URI"`

	// LLM provider
	LLMProvider     string  `env:"LLM_PROVIDER" envDefault:"yandex"`
	YandexAPIKey    string  `env:"YANDEX_API_KEY"`
	YandexFolderID  string  `env:"YANDEX_FOLDER_ID"`
	YandexModel     string  `env:"YANDEX_MODEL" envDefault:"yandexgpt/latest"`
	YandexTemp      float64 `env:"YANDEX_TEMPERATURE" envDefault:"0.2"`
	OpenAIAPIKey    string  `env:"OPENAI_API_KEY"`
	OpenAIModel     string  `env:"OPENAI_MODEL" envDefault:"gpt-4.1-mini"`
	DeepSeekAPIKey  string  `env:"DEEPSEEK_API_KEY"`
	DeepSeekModel   string  `env:"DEEPSEEK_MODEL" envDefault:"deepseek-chat"`
	MaxOutputTokens int     `env:"LLM_MAX_OUTPUT_TOKENS" envDefault:"260"`
	PolicyFile      string  `env:"POLICY_FILE" envDefault:"policy.yaml"`
	LeadCaptureMode string  `env:"LEAD_CAPTURE_MODE" envDefault:"soft"`
	HistoryLimit    int     `env:"HISTORY_LIMIT" envDefault:"12"`

	// Telegram operator notifications
	TelegramBotToken string `env:"TG_BOT_TOKEN"`
	TelegramChatID   string `env:"TG_CHAT_ID"`
	TelegramThreadID string `env:"TG_THREAD_ID"`
	NotifyMode       string `env:"TG_NOTIFY_MODE" envDefault:"handoff"`

	// Operator API (manual send)
	OperatorToken string `env:"OPERATOR_TOKEN"`
}

func (c *Config) Addr() string {
	return fmt.Sprintf(":%d", c.Port)
}

// DatabaseDSN assembles the Postgres connection string from its parts.
func (c *Config) DatabaseDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d dbname=%s user=%s password=%s sslmode=disable",
		c.DBHost, c.DBPort, c.DBName, c.DBUser, url.QueryEscape(c.DBPassword),
	)
}

// PrimaryStoreConfigured reports whether the relational backend is usable at all.
func (c *Config) PrimaryStoreConfigured() bool {
	return c.DBEnabled && c.DBHost != "" && c.DBName != "" && c.DBUser != ""
}

func (c *Config) Validate() error {
	switch c.NotifyMode {
	case NotifyAlways, NotifyNever, NotifyHandoff:
	default:
		return fmt.Errorf("TG_NOTIFY_MODE must be one of always|never|handoff, got %q", c.NotifyMode)
	}

	switch c.LeadCaptureMode {
	case LeadModeSoft, LeadModeAskPhone:
	default:
		return fmt.Errorf("LEAD_CAPTURE_MODE must be soft|ask_phone, got %q", c.LeadCaptureMode)
	}

	switch c.LLMProvider {
	case "yandex", "openai", "deepseek":
	default:
		return fmt.Errorf("LLM_PROVIDER must be yandex|openai|deepseek, got %q", c.LLMProvider)
	}

	if c.HistoryLimit < 1 || c.HistoryLimit > MaxHistoryLimit {
		return fmt.Errorf("HISTORY_LIMIT must be within 1..%d, got %d", MaxHistoryLimit, c.HistoryLimit)
	}

	if c.WebhookSecret == "" {
		log.Warn().Msg("WEBHOOK_SECRET is empty: shared-secret check disabled")
	}
	if len(c.AllowIPs) == 0 {
		log.Warn().Msg("ALLOW_IPS is empty: IP allowlist disabled")
	}
	if !c.PrimaryStoreConfigured() {
		log.Warn().Msg("primary store not configured: conversations will use file sessions only")
	}

	return nil
}

func Load() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return &cfg, nil
}
