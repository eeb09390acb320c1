// Package export writes table snapshots as JSON lines to object storage and
// loads them back.
package export

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"iter"
	"log"
	"os"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/ulikunitz/xz"

	"github.com/dictdb/dictdb/internal/engine"
	dberrors "github.com/dictdb/dictdb/internal/errors"
	"github.com/dictdb/dictdb/internal/schema"
	"github.com/dictdb/dictdb/internal/storage"
	"github.com/dictdb/dictdb/pkg/types"
)

const (
	jsonlExt = ".jsonl"
	xzExt    = ".xz"
)

// Engine is the part of the record engine the exporter needs.
type Engine interface {
	Table(name string) (types.TableSchema, bool)
	Select(ctx context.Context, table string, q engine.Query) ([]types.Record, error)
	UpdateMany(ctx context.Context, table string, pairs []engine.UpdatePair, opts ...engine.Option) (engine.Result, error)
	Write(ctx context.Context, mode engine.Mode, recs iter.Seq[types.Record], opts ...engine.Option) (engine.Result, error)
}

// Config holds exporter settings.
type Config struct {
	// Prefix is prepended to every object path
	Prefix string

	// Compress writes xz-compressed files
	Compress bool

	// WorkDir holds files while they are written or read; os.TempDir when empty
	WorkDir string
}

// Options controls one export.
type Options struct {
	// OnlyUnexported selects rows whose export flag is still false
	OnlyUnexported bool `json:"only_unexported"`

	// MarkExported sets the export flag of every exported row
	MarkExported bool `json:"mark_exported"`

	// KeyColumns identify a row when marking; the primary key when empty
	KeyColumns []string `json:"key_columns,omitempty"`

	// Columns to export; all columns when empty
	Columns []string `json:"columns,omitempty"`
}

// Result describes a finished export.
type Result struct {
	Table  string `json:"table"`
	Object string `json:"object,omitempty"`
	ETag   string `json:"etag,omitempty"`
	Rows   int    `json:"rows"`
	Marked int64  `json:"marked"`
}

// Exporter moves table rows between the engine and object storage.
type Exporter struct {
	engine  Engine
	storage storage.ObjectStorage
	config  Config
	now     func() time.Time
}

// New creates an exporter.
func New(e Engine, s storage.ObjectStorage, cfg Config) *Exporter {
	return &Exporter{engine: e, storage: s, config: cfg, now: time.Now}
}

// Export writes the rows of table to a new object. Nothing is uploaded when
// no rows match.
func (x *Exporter) Export(ctx context.Context, table string, opts Options) (Result, error) {
	res := Result{Table: table}
	ts, ok := x.engine.Table(table)
	if !ok {
		return res, dberrors.NewTableNotFound(table)
	}

	var keys []string
	if opts.MarkExported {
		if !ts.HasColumn(schema.ExportColumn) {
			return res, dberrors.NewInvalidKey(fmt.Sprintf("table %q has no %s column", table, schema.ExportColumn))
		}
		keys = opts.KeyColumns
		if len(keys) == 0 {
			keys = ts.PrimaryKey
		}
		if len(keys) == 0 {
			return res, dberrors.NewInvalidKey(fmt.Sprintf("table %q has no primary key; key columns are required to mark rows", table))
		}
	}

	q := engine.Query{Columns: opts.Columns}
	if opts.OnlyUnexported {
		if !ts.HasColumn(schema.ExportColumn) {
			return res, dberrors.NewInvalidKey(fmt.Sprintf("table %q has no %s column", table, schema.ExportColumn))
		}
		q.Where = types.Record{{Key: schema.ExportColumn, Value: false}}
	}
	if len(q.Columns) > 0 && len(keys) > 0 {
		q.Columns = withColumns(q.Columns, keys)
	}

	rows, err := x.engine.Select(ctx, table, q)
	if err != nil {
		return res, err
	}
	if len(rows) == 0 {
		return res, nil
	}

	local, err := x.writeFile(table, rows)
	if err != nil {
		return res, err
	}
	defer os.Remove(local)

	object := x.objectPath(table)
	etag, err := x.storage.Upload(ctx, local, object)
	if err != nil {
		log.Printf("[WARN] export: upload of %s failed: %v", object, err)
		return res, err
	}
	res.Object = object
	res.ETag = etag
	res.Rows = len(rows)

	if opts.MarkExported {
		pairs := make([]engine.UpdatePair, 0, len(rows))
		set := types.Record{{Key: schema.ExportColumn, Value: true}}
		for _, row := range rows {
			where := make(types.Record, 0, len(keys))
			for _, k := range keys {
				v, _ := row.Get(k)
				where = append(where, types.Field{Key: k, Value: v})
			}
			pairs = append(pairs, engine.UpdatePair{Set: set, Where: where})
		}
		updated, err := x.engine.UpdateMany(ctx, table, pairs)
		res.Marked = updated.Rows
		if err != nil {
			return res, err
		}
	}

	log.Printf("export: wrote %d rows of %s to %s", res.Rows, table, object)
	return res, nil
}

// Restore writes the records of an exported object back through the engine
// using mode. Records are decoded lazily while they are written.
func (x *Exporter) Restore(ctx context.Context, object string, mode engine.Mode, opts ...engine.Option) (engine.Result, error) {
	local, err := x.tempPath("restore-*" + path.Ext(object))
	if err != nil {
		return engine.Result{}, err
	}
	defer os.Remove(local)

	if err := x.storage.Download(ctx, object, local); err != nil {
		return engine.Result{}, err
	}

	f, err := os.Open(local)
	if err != nil {
		return engine.Result{}, err
	}
	defer f.Close()

	var r io.Reader = f
	if strings.HasSuffix(object, xzExt) {
		xr, err := xz.NewReader(f)
		if err != nil {
			return engine.Result{}, fmt.Errorf("export: open xz stream: %w", err)
		}
		r = xr
	}

	var decodeErr error
	recs := func(yield func(types.Record) bool) {
		scanner := bufio.NewScanner(r)
		scanner.Buffer(make([]byte, 0, 64*1024), 64*1024*1024)
		line := 0
		for scanner.Scan() {
			line++
			text := scanner.Bytes()
			if len(bytes.TrimSpace(text)) == 0 {
				continue
			}
			var rec types.Record
			if err := json.Unmarshal(text, &rec); err != nil {
				decodeErr = fmt.Errorf("export: %s line %d: %w", object, line, err)
				return
			}
			if !yield(rec) {
				return
			}
		}
		if err := scanner.Err(); err != nil {
			decodeErr = fmt.Errorf("export: read %s: %w", object, err)
		}
	}

	res, err := x.engine.Write(ctx, mode, recs, opts...)
	if err != nil {
		return res, err
	}
	return res, decodeErr
}

// List returns the objects exported for table, oldest first.
func (x *Exporter) List(ctx context.Context, table string) ([]string, error) {
	return x.storage.ListObjects(ctx, path.Join(x.config.Prefix, table)+"/")
}

func (x *Exporter) writeFile(table string, rows []types.Record) (string, error) {
	local, err := x.tempPath("export-" + table + "-*")
	if err != nil {
		return "", err
	}
	f, err := os.OpenFile(local, os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		return "", err
	}

	if err := encodeRows(f, rows, x.config.Compress); err != nil {
		f.Close()
		os.Remove(local)
		return "", err
	}
	if err := f.Close(); err != nil {
		os.Remove(local)
		return "", err
	}
	return local, nil
}

func encodeRows(w io.Writer, rows []types.Record, compress bool) error {
	var xw *xz.Writer
	if compress {
		var err error
		if xw, err = xz.NewWriter(w); err != nil {
			return fmt.Errorf("export: open xz stream: %w", err)
		}
		w = xw
	}

	bw := bufio.NewWriter(w)
	enc := json.NewEncoder(bw)
	enc.SetEscapeHTML(false)
	for _, row := range rows {
		if err := enc.Encode(row); err != nil {
			return fmt.Errorf("export: encode row: %w", err)
		}
	}
	if err := bw.Flush(); err != nil {
		return err
	}
	if xw != nil {
		return xw.Close()
	}
	return nil
}

func (x *Exporter) tempPath(pattern string) (string, error) {
	dir := x.config.WorkDir
	if dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return "", err
		}
	}
	f, err := os.CreateTemp(dir, pattern)
	if err != nil {
		return "", err
	}
	name := f.Name()
	f.Close()
	return name, nil
}

func (x *Exporter) objectPath(table string) string {
	name := x.now().UTC().Format("20060102T150405Z") + "-" + uuid.NewString() + jsonlExt
	if x.config.Compress {
		name += xzExt
	}
	return path.Join(x.config.Prefix, table, name)
}

func withColumns(cols, extra []string) []string {
	out := append([]string(nil), cols...)
	for _, c := range extra {
		found := false
		for _, have := range out {
			if have == c {
				found = true
				break
			}
		}
		if !found {
			out = append(out, c)
		}
	}
	return out
}
