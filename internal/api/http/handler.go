package http

import (
	"context"
	"encoding/json"
	"fmt"
	"iter"
	"net/http"

	"github.com/dictdb/dictdb/internal/engine"
	dberrors "github.com/dictdb/dictdb/internal/errors"
	"github.com/dictdb/dictdb/internal/export"
	"github.com/dictdb/dictdb/internal/ingest"
	"github.com/dictdb/dictdb/internal/observability"
	"github.com/dictdb/dictdb/pkg/types"
)

// Engine is the record engine as seen by the HTTP API.
type Engine interface {
	Write(ctx context.Context, mode engine.Mode, recs iter.Seq[types.Record], opts ...engine.Option) (engine.Result, error)
	UpdateMany(ctx context.Context, table string, pairs []engine.UpdatePair, opts ...engine.Option) (engine.Result, error)
	Select(ctx context.Context, table string, q engine.Query) ([]types.Record, error)
	Delete(ctx context.Context, table string, where types.Record, opts ...engine.Option) (engine.Result, error)
	DDLFor(rec types.Record, opts ...engine.Option) (string, error)
	Tables() []types.TableSchema
	Stats() observability.Snapshot
}

// Exporter exports tables to object storage.
type Exporter interface {
	Export(ctx context.Context, table string, opts export.Options) (export.Result, error)
}

// IngestStats reports stream consumer counters.
type IngestStats interface {
	Stats() ingest.Stats
}

// Handler serves the record API.
type Handler struct {
	engine   Engine
	exporter Exporter
	ingest   IngestStats
	service  string
}

// HandlerOption configures a Handler.
type HandlerOption func(*Handler)

// WithExporter enables POST /v1/export.
func WithExporter(x Exporter) HandlerOption {
	return func(h *Handler) { h.exporter = x }
}

// WithIngestStats adds stream consumer counters to /v1/stats.
func WithIngestStats(s IngestStats) HandlerOption {
	return func(h *Handler) { h.ingest = s }
}

// WithServiceName sets the service name reported by /health.
func WithServiceName(name string) HandlerOption {
	return func(h *Handler) { h.service = name }
}

// NewHandler creates a record API handler.
func NewHandler(e Engine, opts ...HandlerOption) *Handler {
	h := &Handler{engine: e, service: "dictdb"}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Register adds the API routes to mux, wrapping each in middleware.
func (h *Handler) Register(mux *http.ServeMux, middleware func(http.Handler) http.Handler) {
	routes := map[string]http.HandlerFunc{
		"POST /v1/records": h.Write,
		"POST /v1/update":  h.Update,
		"POST /v1/select":  h.Select,
		"POST /v1/delete":  h.Delete,
		"POST /v1/ddl":     h.DDL,
		"POST /v1/export":  h.Export,
		"GET /v1/tables":   h.Tables,
		"GET /v1/stats":    h.Stats,
	}
	for pattern, fn := range routes {
		mux.Handle(pattern, middleware(fn))
	}
	mux.HandleFunc("GET /health", h.Health)
}

// CallFlags are the per-call engine overrides accepted by write endpoints.
type CallFlags struct {
	InsertTime     *bool    `json:"insert_time,omitempty"`
	UpdateTime     *bool    `json:"update_time,omitempty"`
	Export         *bool    `json:"export,omitempty"`
	AutoAlter      *bool    `json:"auto_alter,omitempty"`
	AutoUpdateTime *bool    `json:"auto_update_time,omitempty"`
	Ignore         []string `json:"ignore,omitempty"`
}

func (f CallFlags) options() ([]engine.Option, error) {
	var opts []engine.Option
	flag := func(v *bool, fn func(bool) engine.Option) {
		if v != nil {
			opts = append(opts, fn(*v))
		}
	}
	flag(f.InsertTime, engine.WithInsertTime)
	flag(f.UpdateTime, engine.WithUpdateTime)
	flag(f.Export, engine.WithExport)
	flag(f.AutoAlter, engine.WithAutoAlter)
	flag(f.AutoUpdateTime, engine.WithAutoUpdateTime)

	for _, code := range f.Ignore {
		sentinel, ok := dberrors.FromCode(code)
		if !ok {
			return nil, fmt.Errorf("unknown error code %q", code)
		}
		opts = append(opts, engine.WithIgnore(sentinel))
	}
	return opts, nil
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		status := statusFor(err)
		if status == http.StatusInternalServerError {
			status = http.StatusBadRequest
		}
		writeError(w, status, fmt.Sprintf("invalid request body: %v", err), GetRequestID(r.Context()))
		return false
	}
	return true
}

// Health reports liveness.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy", "service": h.service})
}
