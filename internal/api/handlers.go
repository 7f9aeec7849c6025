package api

import (
	"encoding/json"
	"net/http"

	"kiosk-ingest/internal/ingest"
)

// StatsProvider is satisfied by *ingest.Orchestrator.
type StatsProvider interface {
	Stats() ingest.Stats
}

type Handlers struct {
	stats StatsProvider
}

func NewHandlers(stats StatsProvider) *Handlers {
	return &Handlers{stats: stats}
}

func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("OK"))
}

// Stats returns the live counters of the consume loop.
func (h *Handlers) Stats(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-cache, no-store, must-revalidate")
	json.NewEncoder(w).Encode(h.stats.Stats())
}
