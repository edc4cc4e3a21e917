package api

import (
	"net/http"
	"strings"
)

// StatsProvider exposes a station's counters and gauges by name.
type StatsProvider interface {
	GetStats() map[string]interface{}
}

// StatsHandler serves GET /stats.
type StatsHandler struct {
	provider StatsProvider
}

// NewStatsHandler creates a new stats handler.
func NewStatsHandler(provider StatsProvider) *StatsHandler {
	return &StatsHandler{provider: provider}
}

// HandleStats writes the station snapshot. A comma-separated fields query
// narrows it to the named entries; unknown names are ignored.
func (h *StatsHandler) HandleStats(w http.ResponseWriter, r *http.Request) {
	stats := h.provider.GetStats()
	w.Header().Set("Cache-Control", "no-store")

	fields := r.URL.Query().Get("fields")
	if fields == "" {
		writeJSON(w, http.StatusOK, stats)
		return
	}

	picked := make(map[string]interface{})
	for _, name := range strings.Split(fields, ",") {
		name = strings.TrimSpace(name)
		if v, ok := stats[name]; ok {
			picked[name] = v
		}
	}
	writeJSON(w, http.StatusOK, picked)
}
