package httptransport

import (
	"context"
	"net/http"
	"sync"
	"time"

	"tradegraph/pkg/platform/httputil"
)

const healthTimeout = 2 * time.Second

type HealthResponse struct {
	Status       string            `json:"status"`
	Dependencies map[string]string `json:"dependencies,omitempty"`
}

func (h *Handler) handleLiveness(w http.ResponseWriter, _ *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, HealthResponse{Status: "ok"})
}

// handleReadiness probes every configured dependency in parallel. Any
// failure turns the whole report unavailable.
func (h *Handler) handleReadiness(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), healthTimeout)
	defer cancel()

	var (
		mu   sync.Mutex
		wg   sync.WaitGroup
		deps = make(map[string]string, len(h.checks))
	)
	for name, check := range h.checks {
		wg.Go(func() {
			state := "ok"
			if err := check(ctx); err != nil {
				h.logger.WarnContext(ctx, "dependency unhealthy", "dependency", name, "error", err)
				state = "unavailable"
			}
			mu.Lock()
			deps[name] = state
			mu.Unlock()
		})
	}
	wg.Wait()

	resp := HealthResponse{Status: "ok", Dependencies: deps}
	status := http.StatusOK
	for _, state := range deps {
		if state != "ok" {
			resp.Status = "degraded"
			status = http.StatusServiceUnavailable
		}
	}
	httputil.WriteJSON(w, status, resp)
}
