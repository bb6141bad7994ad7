package api

import (
	"context"
	"net/http"
	"time"

	"github.com/ignite/nondisposable/internal/pkg/httputil"
)

// HandleLiveness always returns 200 while the process is running.
//
//	GET /health
func (h *Handlers) HandleLiveness(w http.ResponseWriter, r *http.Request) {
	httputil.OK(w, map[string]any{
		"status": "alive",
		"uptime": time.Since(h.startTime).Round(time.Second).String(),
	})
}

// HandleReadiness returns 200 only when the domain store answers.
//
//	GET /health/ready
func (h *Handlers) HandleReadiness(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	n, err := h.store.Count(ctx)
	if err != nil {
		httputil.JSON(w, http.StatusServiceUnavailable, map[string]any{
			"status": "unhealthy",
			"store":  "unavailable",
		})
		return
	}
	httputil.OK(w, map[string]any{
		"status":  "ready",
		"domains": n,
	})
}
