package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/uran124/avito-relay/internal/database"
)

const healthPingTimeout = 2 * time.Second

// HealthHandler reports liveness plus the state of the primary store, so
// operators can see a degraded-to-files service before customers do.
type HealthHandler struct {
	db *database.DB
}

func NewHealthHandler(db *database.DB) *HealthHandler {
	return &HealthHandler{db: db}
}

func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	primary := "disabled"
	if h.db != nil {
		ctx, cancel := context.WithTimeout(r.Context(), healthPingTimeout)
		defer cancel()

		if err := h.db.Ping(ctx); err != nil {
			primary = "unavailable"
		} else {
			primary = "ok"
		}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"status":        "ok",
		"primary_store": primary,
		"timestamp":     time.Now().UnixMilli(),
	})
}
