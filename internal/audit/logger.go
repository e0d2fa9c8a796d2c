package audit

import (
	"net/http"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

type EventType string

const (
	EventInboundReceived EventType = "inbound_received"
	EventInboundRejected EventType = "inbound_rejected"
	EventInboundEmpty    EventType = "inbound_empty"
	EventStoreFallback   EventType = "store_fallback"
	EventTokenRefresh    EventType = "token_refresh"
	EventTokenIssue      EventType = "token_issue"
	EventNotifySent      EventType = "notify_sent"
	EventLeadCreated     EventType = "lead_created"
	EventManualSend      EventType = "manual_send"
)

type Event struct {
	Type    EventType
	ChatID  string
	IP      string
	Details map[string]interface{}
}

// Log writes an audit line. Inbound events are logged unconditionally,
// including requests rejected before any processing.
func Log(event Event) {
	logger := log.With().
		Str("audit", "webhook").
		Str("event_type", string(event.Type)).
		Time("timestamp", time.Now()).
		Logger()

	if event.ChatID != "" {
		logger = logger.With().Str("chat_id", event.ChatID).Logger()
	}
	if event.IP != "" {
		logger = logger.With().Str("ip", event.IP).Logger()
	}

	logEvent := logger.Info()
	for k, v := range event.Details {
		logEvent = addField(logEvent, k, v)
	}
	logEvent.Msg("audit event")
}

func addField(e *zerolog.Event, key string, value interface{}) *zerolog.Event {
	switch v := value.(type) {
	case string:
		return e.Str(key, v)
	case int:
		return e.Int(key, v)
	case int64:
		return e.Int64(key, v)
	case bool:
		return e.Bool(key, v)
	default:
		return e.Interface(key, v)
	}
}

func LogFromRequest(r *http.Request, event Event) {
	event.IP = ClientIP(r)
	Log(event)
}

// ClientIP returns the caller address, preferring proxy headers.
func ClientIP(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		return forwarded
	}
	if realIP := r.Header.Get("X-Real-IP"); realIP != "" {
		return realIP
	}
	return r.RemoteAddr
}
