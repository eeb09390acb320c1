package http

import (
	"net/http"
	"slices"

	"github.com/dictdb/dictdb/internal/engine"
	"github.com/dictdb/dictdb/pkg/types"
)

// WriteRequest is the body of POST /v1/records.
type WriteRequest struct {
	Table   string         `json:"table,omitempty"`
	Mode    string         `json:"mode,omitempty"`
	Records []types.Record `json:"records"`
	CallFlags
}

// WriteResponse reports a finished write.
type WriteResponse struct {
	engine.Result
	RequestID string `json:"request_id"`
}

// Write handles POST /v1/records.
func (h *Handler) Write(w http.ResponseWriter, r *http.Request) {
	requestID := GetRequestID(r.Context())

	var req WriteRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if len(req.Records) == 0 {
		writeError(w, http.StatusBadRequest, "records must not be empty", requestID)
		return
	}
	mode, err := engine.ParseMode(req.Mode)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error(), requestID)
		return
	}
	opts, err := req.options()
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error(), requestID)
		return
	}
	if req.Table != "" {
		opts = append(opts, engine.WithTable(req.Table))
	}

	res, err := h.engine.Write(r.Context(), mode, slices.Values(req.Records), opts...)
	if err != nil {
		writeEngineError(w, err, requestID)
		return
	}
	writeJSON(w, http.StatusOK, WriteResponse{Result: res, RequestID: requestID})
}

// UpdateRequest is the body of POST /v1/update. Either Set and Where or
// Pairs is given.
type UpdateRequest struct {
	Table string              `json:"table"`
	Set   types.Record        `json:"set,omitempty"`
	Where types.Record        `json:"where,omitempty"`
	Pairs []engine.UpdatePair `json:"pairs,omitempty"`
	CallFlags
}

// Update handles POST /v1/update.
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	requestID := GetRequestID(r.Context())

	var req UpdateRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Table == "" {
		writeError(w, http.StatusBadRequest, "table is required", requestID)
		return
	}
	pairs := req.Pairs
	if len(req.Set) > 0 {
		pairs = append(pairs, engine.UpdatePair{Set: req.Set, Where: req.Where})
	}
	if len(pairs) == 0 {
		writeError(w, http.StatusBadRequest, "set or pairs is required", requestID)
		return
	}
	opts, err := req.options()
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error(), requestID)
		return
	}

	res, err := h.engine.UpdateMany(r.Context(), req.Table, pairs, opts...)
	if err != nil {
		writeEngineError(w, err, requestID)
		return
	}
	writeJSON(w, http.StatusOK, WriteResponse{Result: res, RequestID: requestID})
}
