package http

import (
	"net/http"

	"github.com/dictdb/dictdb/internal/ingest"
	"github.com/dictdb/dictdb/internal/observability"
)

// StatsResponse combines engine and stream counters.
type StatsResponse struct {
	Engine observability.Snapshot `json:"engine"`
	Ingest *ingest.Stats           `json:"ingest,omitempty"`
}

// Stats handles GET /v1/stats.
func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	resp := StatsResponse{Engine: h.engine.Stats()}
	if h.ingest != nil {
		s := h.ingest.Stats()
		resp.Ingest = &s
	}
	writeJSON(w, http.StatusOK, resp)
}
