package gateway

import (
	"context"
	"encoding/json"
	"net/http"
	"time"
)

const healthProbeTimeout = 2 * time.Second

// HealthResponse is the JSON response for GET /health.
type HealthResponse struct {
	Status string `json:"status"` // "ok" or "degraded"
	Stats  string `json:"stats"`  // "ok", "missing", or the probe error
}

// handleHealth returns an http.HandlerFunc for GET /health.
// Returns 200 when the stats store answers, 503 otherwise.
func (g *Gateway) handleHealth() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp := HealthResponse{Status: "ok", Stats: "ok"}

		switch {
		case g.store == nil:
			resp.Status, resp.Stats = "degraded", "missing"
		default:
			ctx, cancel := context.WithTimeout(r.Context(), healthProbeTimeout)
			// An unknown room keeps the probe to an index lookup.
			_, err := g.store.Snapshot(ctx, "!health")
			cancel()
			if err != nil {
				resp.Status, resp.Stats = "degraded", err.Error()
			}
		}

		w.Header().Set("Content-Type", "application/json")
		if resp.Status == "degraded" {
			w.WriteHeader(http.StatusServiceUnavailable)
		}
		_ = json.NewEncoder(w).Encode(resp)
	}
}
