package config

import "time"

// Database connection pool settings
const (
	DBMaxOpenConns    = 25
	DBMaxIdleConns    = 5
	DBConnMaxLifetime = 5 * time.Minute
	DBPingTimeout     = 5 * time.Second
)

// HTTP server timeouts
const (
	ServerRequestTimeout  = 60 * time.Second
	ServerReadTimeout     = 15 * time.Second
	ServerIdleTimeout     = 120 * time.Second
	ServerShutdownTimeout = 30 * time.Second
)

// Outbound call timeouts. No automatic retries anywhere: a failed call
// degrades to a fallback value within the same request.
const (
	TokenRequestTimeout  = 15 * time.Second
	LLMRequestTimeout    = 20 * time.Second
	NotifyRequestTimeout = 10 * time.Second
	SendRequestTimeout   = 20 * time.Second
)

// Conversation history bounds
const (
	MaxHistoryLimit     = 50
	FallbackHistoryCap  = 12
	RawResponseLogLimit = 2000
)

// Access tokens are refreshed this long before their server-side expiry.
const TokenExpirySkew = 90 * time.Second

// Background job intervals
const (
	CleanupJobInterval = 1 * time.Hour
	SessionMaxIdleAge  = 30 * 24 * time.Hour
)

// Operator notification modes
const (
	NotifyAlways  = "always"
	NotifyNever   = "never"
	NotifyHandoff = "handoff"
)

// Lead capture modes
const (
	LeadModeSoft     = "soft"
	LeadModeAskPhone = "ask_phone"
)
