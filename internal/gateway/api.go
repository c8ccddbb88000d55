package gateway

import (
	"encoding/json"
	"net/http"
	"net/url"
	"strings"

	"github.com/flemzord/catbot/internal/core"
	"github.com/flemzord/catbot/internal/stats"
	"github.com/go-chi/chi/v5"
)

// StatsResponse is the JSON response for the stats endpoints.
type StatsResponse struct {
	Room    string           `json:"room,omitempty"`
	Totals  map[string]int64 `json:"totals"`
	Entries []stats.Entry    `json:"entries"`
}

// handleStats returns every counter cell.
func (g *Gateway) handleStats() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		g.writeStats(w, r, "")
	}
}

// handleRoomStats returns the counter cells of one room. Room IDs contain
// '!' and ':' and may arrive percent-encoded.
func (g *Gateway) handleRoomStats() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		room, err := url.PathUnescape(chi.URLParam(r, "room"))
		if err != nil || !strings.HasPrefix(room, "!") {
			http.Error(w, "room must be a room ID (!opaque:server)", http.StatusBadRequest)
			return
		}
		g.writeStats(w, r, room)
	}
}

func (g *Gateway) writeStats(w http.ResponseWriter, r *http.Request, room string) {
	if g.store == nil {
		http.Error(w, "stats store unavailable", http.StatusServiceUnavailable)
		return
	}
	entries, err := g.store.Snapshot(r.Context(), room)
	if err != nil {
		g.logger.Error("gateway stats snapshot failed", "room", room, "error", err)
		http.Error(w, "stats snapshot failed", http.StatusInternalServerError)
		return
	}
	if entries == nil {
		entries = []stats.Entry{}
	}

	resp := StatsResponse{Room: room, Totals: make(map[string]int64), Entries: entries}
	for _, e := range entries {
		resp.Totals[e.Counter] += e.Value
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(resp)
}

// moduleJSON is a serializable module info snapshot.
type moduleJSON struct {
	ID        string `json:"id"`
	Namespace string `json:"namespace"`
	Loaded    bool   `json:"loaded"`
}

// handleListModules lists every registered module and whether the running
// config loads it.
func (g *Gateway) handleListModules() http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		mods := core.GetModules()
		out := make([]moduleJSON, 0, len(mods))
		for _, m := range mods {
						out = append(out, moduleJSON{
				ID:        string(m.ID),
				Namespace: m.ID.Namespace(),
				Loaded:    g.appCtx.HasModuleConfig(string(m.ID)),
			})
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(out)
	}
}
