package http

import (
	"net/http"

	"github.com/dictdb/dictdb/internal/export"
)

// ExportRequest is the body of POST /v1/export.
type ExportRequest struct {
	Table string `json:"table"`
	export.Options
}

// ExportResponse reports a finished export.
type ExportResponse struct {
	export.Result
	RequestID string `json:"request_id"`
}

// Export handles POST /v1/export.
func (h *Handler) Export(w http.ResponseWriter, r *http.Request) {
	requestID := GetRequestID(r.Context())
	if h.exporter == nil {
		writeError(w, http.StatusServiceUnavailable, "export is not configured", requestID)
		return
	}

	var req ExportRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Table == "" {
		writeError(w, http.StatusBadRequest, "table is required", requestID)
		return
	}

	res, err := h.exporter.Export(r.Context(), req.Table, req.Options)
	if err != nil {
		writeEngineError(w, err, requestID)
		return
	}
	writeJSON(w, http.StatusOK, ExportResponse{Result: res, RequestID: requestID})
}
