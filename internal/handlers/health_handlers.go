package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"dm-relay/pkg/logger"
)

type Pinger interface {
	Ping(ctx context.Context) error
}

type Counter interface {
	Len() int
}

type HealthHandlers struct {
	store   Pinger
	online  Counter
	timeout time.Duration
}

func NewHealthHandlers(store Pinger, online Counter) *HealthHandlers {
	return &HealthHandlers{
		store:   store,
		online:  online,
		timeout: 2 * time.Second,
	}
}

func (h *HealthHandlers) Health(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	w.Header().Set("Content-Type", "application/json")

	if err := h.store.Ping(ctx); err != nil {
		l := logger.Ctx(r.Context())
		l.Warn().Err(err).Msg("health check: store unreachable")
		w.WriteHeader(http.StatusServiceUnavailable)
		json.NewEncoder(w).Encode(map[string]any{"status": "unavailable"})
		return
	}

	json.NewEncoder(w).Encode(map[string]any{
		"status": "ok",
		"online": h.online.Len(),
	})
}
