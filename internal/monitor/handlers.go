package monitor

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/ziadkadry99/opbot/internal/audit"
	"github.com/ziadkadry99/opbot/internal/interactions"
)

const (
	recentDefault = 10
	recentMax     = 50
)

// statsResponse is the JSON response for the stats endpoint.
type statsResponse struct {
	Window   string                       `json:"window"`
	Total    int                          `json:"total"`
	Outcomes map[interactions.Outcome]int `json:"outcomes"`
	Clients  int                          `json:"live_clients"`
}

// recentResponse is the JSON response for the recent activity endpoint.
type recentResponse struct {
	Entries []audit.Entry `json:"entries"`
}

// handleStats reports outcome counts over ?window= (a Go duration, default
// 24h; 0 means all time).
func (m *Monitor) handleStats(w http.ResponseWriter, r *http.Request) {
	window := 24 * time.Hour
	if v := r.URL.Query().Get("window"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d < 0 {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid window"})
			return
		}
		window = d
	}

	var since time.Time
	if window > 0 {
		since = m.now().Add(-window)
	}

	counts, err := m.history.CountByOutcome(r.Context(), since)
	if err != nil {
		m.logger.Error("monitor stats", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}

	resp := statsResponse{
		Window:   window.String(),
		Outcomes: make(map[interactions.Outcome]int, len(interactions.Outcomes)),
		Clients:  m.hub.Clients(),
	}
	for _, o := range interactions.Outcomes {
		resp.Outcomes[o] = counts[o]
		resp.Total += counts[o]
	}
	writeJSON(w, http.StatusOK, resp)
}

func (m *Monitor) handleRecent(w http.ResponseWriter, r *http.Request) {
	limit := recentDefault
	if v := r.URL.Query().Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = min(n, recentMax)
		}
	}

	entries, err := m.history.Query(r.Context(), audit.QueryFilter{Limit: limit})
	if err != nil {
		m.logger.Error("monitor recent", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	if entries == nil {
		entries = []audit.Entry{}
	}
	writeJSON(w, http.StatusOK, recentResponse{Entries: entries})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
