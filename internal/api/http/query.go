package http

import (
	"net/http"

	"github.com/dictdb/dictdb/internal/engine"
	"github.com/dictdb/dictdb/pkg/types"
)

// SelectRequest is the body of POST /v1/select.
type SelectRequest struct {
	Table string `json:"table"`
	engine.Query
}

// SelectResponse carries the selected rows.
type SelectResponse struct {
	Rows      []types.Record `json:"rows"`
	RequestID string         `json:"request_id"`
}

// Select handles POST /v1/select.
func (h *Handler) Select(w http.ResponseWriter, r *http.Request) {
	requestID := GetRequestID(r.Context())

	var req SelectRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Table == "" {
		writeError(w, http.StatusBadRequest, "table is required", requestID)
		return
	}

	rows, err := h.engine.Select(r.Context(), req.Table, req.Query)
	if err != nil {
		writeEngineError(w, err, requestID)
		return
	}
	if rows == nil {
		rows = []types.Record{}
	}
	writeJSON(w, http.StatusOK, SelectResponse{Rows: rows, RequestID: requestID})
}

// DeleteRequest is the body of POST /v1/delete.
type DeleteRequest struct {
	Table string       `json:"table"`
	Where types.Record `json:"where,omitempty"`
}

// Delete handles POST /v1/delete.
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	requestID := GetRequestID(r.Context())

	var req DeleteRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Table == "" {
		writeError(w, http.StatusBadRequest, "table is required", requestID)
		return
	}

	res, err := h.engine.Delete(r.Context(), req.Table, req.Where)
	if err != nil {
		writeEngineError(w, err, requestID)
		return
	}
	writeJSON(w, http.StatusOK, WriteResponse{Result: res, RequestID: requestID})
}

// DDLRequest is the body of POST /v1/ddl.
type DDLRequest struct {
	Table  string       `json:"table,omitempty"`
	Record types.Record `json:"record"`
	CallFlags
}

// DDLResponse carries the CREATE TABLE statement for a record.
type DDLResponse struct {
	DDL       string `json:"ddl"`
	RequestID string `json:"request_id"`
}

// DDL handles POST /v1/ddl. Nothing is executed.
func (h *Handler) DDL(w http.ResponseWriter, r *http.Request) {
	requestID := GetRequestID(r.Context())

	var req DDLRequest
	if !decodeBody(w, r, &req) {
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

	ddl, err := h.engine.DDLFor(req.Record, opts...)
	if err != nil {
		writeEngineError(w, err, requestID)
		return
	}
	writeJSON(w, http.StatusOK, DDLResponse{DDL: ddl, RequestID: requestID})
}

// Tables handles GET /v1/tables.
func (h *Handler) Tables(w http.ResponseWriter, r *http.Request) {
	tables := h.engine.Tables()
	if tables == nil {
		tables = []types.TableSchema{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"tables": tables})
}
