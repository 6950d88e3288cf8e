package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/kuromall/api/internal/platform/httpx"
)

// Pinger reports datastore reachability.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthHandlers exposes liveness and readiness endpoints.
type HealthHandlers struct {
	store Pinger
}

// NewHealthHandlers constructs a new HealthHandlers instance.
func NewHealthHandlers(store Pinger) *HealthHandlers {
	return &HealthHandlers{store: store}
}

// Healthz reports process liveness plus datastore reachability.
func (h *HealthHandlers) Healthz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if h.store != nil {
		if err := h.store.Ping(ctx); err != nil {
			httpx.WriteJSON(w, http.StatusServiceUnavailable, map[string]string{
				"status": "degraded",
				"reason": "database unreachable",
			})
			return
		}
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
