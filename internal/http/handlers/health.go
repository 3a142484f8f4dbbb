package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"time"
)

const healthPingTimeout = 2 * time.Second

// Pinger reports whether the store is reachable
type Pinger interface {
	PingContext(ctx context.Context) error
}

// HealthHandler serves GET /health
type HealthHandler struct {
	db     Pinger
	logger *slog.Logger
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(db Pinger, logger *slog.Logger) *HealthHandler {
	return &HealthHandler{db: db, logger: logger}
}

func (h *HealthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), healthPingTimeout)
	defer cancel()

	if err := h.db.PingContext(ctx); err != nil {
		h.logger.ErrorContext(r.Context(), "health check failed", "error", err)
		respondJSON(w, h.logger, http.StatusServiceUnavailable, map[string]bool{"ok": false})
		return
	}
	respondJSON(w, h.logger, http.StatusOK, map[string]bool{"ok": true})
}
