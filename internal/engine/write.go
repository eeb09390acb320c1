package engine

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"log"
	"strings"

	"github.com/dictdb/dictdb/internal/codec"
	dberrors "github.com/dictdb/dictdb/internal/errors"
	"github.com/dictdb/dictdb/internal/schema"
	"github.com/dictdb/dictdb/internal/store"
	"github.com/dictdb/dictdb/pkg/types"
)

// Mode selects how a record is written.
type Mode string

const (
	// ModeInsert inserts and fails on key conflicts
	ModeInsert Mode = "insert"

	// ModeReplace inserts, replacing a conflicting row entirely
	ModeReplace Mode = "replace"

	// ModeUpsert inserts, updating the conflicting row on key conflicts
	ModeUpsert Mode = "upsert"
)

// ParseMode parses a mode name. The empty string is ModeInsert.
func ParseMode(s string) (Mode, error) {
	switch Mode(strings.ToLower(s)) {
	case "", ModeInsert:
		return ModeInsert, nil
	case ModeReplace:
		return ModeReplace, nil
	case ModeUpsert:
		return ModeUpsert, nil
	}
	return "", fmt.Errorf("unknown write mode %q", s)
}

// Result summarizes a write call.
type Result struct {
	// Table is the table the first record went to
	Table string `json:"table,omitempty"`

	// Records is the number of records written
	Records int `json:"records"`

	// Rows is the number of rows affected
	Rows int64 `json:"rows"`

	// Ignored is the number of records skipped by an ignorable error
	Ignored int `json:"ignored,omitempty"`
}

// Insert writes one record. Without WithTable the record goes to the table
// whose columns match its keys, which is created when none does.
func (e *Engine) Insert(ctx context.Context, rec types.Record, opts ...Option) (Result, error) {
	return e.Write(ctx, ModeInsert, one(rec), opts...)
}

// InsertAll writes a sequence of records. The first record resolves the
// table; the rest go to the same table, adding columns as needed.
func (e *Engine) InsertAll(ctx context.Context, recs iter.Seq[types.Record], opts ...Option) (Result, error) {
	return e.Write(ctx, ModeInsert, recs, opts...)
}

// InsertOrReplace writes one record, replacing any row it conflicts with.
// Columns absent from the record are reset to their defaults.
func (e *Engine) InsertOrReplace(ctx context.Context, rec types.Record, opts ...Option) (Result, error) {
	return e.Write(ctx, ModeReplace, one(rec), opts...)
}

// InsertOrReplaceAll is InsertOrReplace over a sequence, resolved like InsertAll.
func (e *Engine) InsertOrReplaceAll(ctx context.Context, recs iter.Seq[types.Record], opts ...Option) (Result, error) {
	return e.Write(ctx, ModeReplace, recs, opts...)
}

// InsertOrUpdate writes one record; on a uniqueness conflict it updates the
// conflicting row, keyed on the conflicting columns, with the other fields.
func (e *Engine) InsertOrUpdate(ctx context.Context, rec types.Record, opts ...Option) (Result, error) {
	return e.Write(ctx, ModeUpsert, one(rec), opts...)
}

// InsertOrUpdateAll is InsertOrUpdate over a sequence. Each record resolves
// its own table unless WithTable is given.
func (e *Engine) InsertOrUpdateAll(ctx context.Context, recs iter.Seq[types.Record], opts ...Option) (Result, error) {
	return e.Write(ctx, ModeUpsert, recs, opts...)
}

// Write writes records in order with the given mode. A failing record stops
// the call unless its error is ignorable; with commit on, the records before
// it are committed either way.
func (e *Engine) Write(ctx context.Context, mode Mode, recs iter.Seq[types.Record], opts ...Option) (Result, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	var res Result
	if err := e.checkOpen(); err != nil {
		return res, err
	}
	o := e.options(opts)
	if o.table != "" {
		if err := schema.ValidateTableName(o.table); err != nil {
			return res, err
		}
	}
	if err := e.begin(ctx); err != nil {
		return res, err
	}

	table := o.table
	for rec := range recs {
		written, n, err := e.writeRecord(ctx, mode, table, rec, &o)
		if err != nil {
			if o.ignorable(err) {
				log.Printf("[WARN] engine: %s skipped record %s: %v", mode, describeRecord(rec), err)
				e.counters.IgnoredError()
				res.Ignored++
				continue
			}
			return res, e.finish(ctx, o.commit, err)
		}
		if res.Table == "" {
			res.Table = written
		}
		if mode != ModeUpsert {
			table = written
		}
		res.Records++
		res.Rows += n
		e.counters.RecordWritten(n)
	}
	return res, e.finish(ctx, o.commit, nil)
}

func (e *Engine) writeRecord(ctx context.Context, mode Mode, table string, rec types.Record, o *callOptions) (string, int64, error) {
	if len(rec) == 0 {
		return table, 0, dberrors.NewInvalidKey("cannot write an empty record")
	}
	if table == "" {
		res, err := e.registry.Resolve(rec, o.implicit)
		if err != nil {
			return "", 0, err
		}
		table = res.Table
	}
	if err := e.ensureTable(ctx, table, rec, o.implicit); err != nil {
		return table, 0, err
	}

	var (
		n   int64
		err error
	)
	switch mode {
	case ModeUpsert:
		n, err = e.upsert(ctx, table, rec, o)
	case ModeReplace:
		n, err = e.insert(ctx, table, rec, true, o)
	default:
		n, err = e.insert(ctx, table, rec, false, o)
	}
	return table, n, err
}

// ensureTable creates table from rec when it does not exist yet. Every key
// is validated before any statement runs.
func (e *Engine) ensureTable(ctx context.Context, table string, rec types.Record, implicit schema.Implicit) error {
	if e.registry.Has(table) {
		return nil
	}
	ts, err := schema.TableFromRecord(table, rec, implicit)
	if err != nil {
		return err
	}
	if err := store.ExecScript(ctx, e.tx, schema.CreateTableSQL(ts)); err != nil {
		return err
	}
	e.registry.RecordNewTable(ts)
	e.counters.TableCreated()
	log.Printf("engine: created table %s (%s)", table, strings.Join(ts.ColumnNames(), ", "))
	return e.refresh(ctx)
}

func (e *Engine) insert(ctx context.Context, table string, rec types.Record, replace bool, o *callOptions) (int64, error) {
	cols, err := schema.BareColumns(rec)
	if err != nil {
		return 0, err
	}
	ts, _ := e.registry.View(table)
	args, err := codec.Adapt(rec, ts)
	if err != nil {
		return 0, err
	}

	query := e.cache.Insert(table, cols)
	if replace {
		query = e.cache.Replace(table, cols)
	}
	return e.execMigrating(ctx, table, rec, o.autoAlter, query, args)
}

// execMigrating runs a write statement. When the store reports a missing
// column it adds the columns of migrate that the table lacks and retries the
// same statement and values exactly once.
func (e *Engine) execMigrating(ctx context.Context, table string, migrate types.Record, autoAlter bool, query string, args []any) (int64, error) {
	n, err := store.Exec(ctx, e.tx, query, args...)
	if err == nil || !errors.Is(err, dberrors.ErrSchemaMismatch) {
		return n, err
	}
	if !autoAlter {
		return 0, dberrors.NewStoreFatal(
			fmt.Sprintf("table %s lacks a column the statement names and auto-alter is off", table), driverCause(err))
	}

	if err := e.ensureColumns(ctx, table, migrate); err != nil {
		return 0, err
	}
	n, err = store.Exec(ctx, e.tx, query, args...)
	if errors.Is(err, dberrors.ErrSchemaMismatch) {
		return 0, dberrors.NewStoreFatal(
			fmt.Sprintf("table %s still lacks a column after migration", table), driverCause(err))
	}
	return n, err
}

// ensureColumns adds the columns of rec that table lacks in one batch of
// ALTER statements, then reloads the registry.
func (e *Engine) ensureColumns(ctx context.Context, table string, rec types.Record) error {
	ts, ok := e.registry.View(table)
	if !ok {
		return dberrors.NewTableNotFound(table)
	}
	missing, err := schema.MissingColumns(*ts, rec)
	if err != nil {
		return err
	}
	if len(missing) == 0 {
		// The table may have changed outside the engine.
		if err := e.refresh(ctx); err != nil {
			return err
		}
		if ts, ok = e.registry.View(table); !ok {
			return dberrors.NewTableNotFound(table)
		}
		if missing, err = schema.MissingColumns(*ts, rec); err != nil || len(missing) == 0 {
			return err
		}
	}

	var script strings.Builder
	names := make([]string, len(missing))
	for i, c := range missing {
		script.WriteString(schema.AddColumnSQL(table, c))
		script.WriteByte('\n')
		names[i] = c.Name
	}
	log.Printf("[WARN] engine: table %s is missing column(s) %s, altering", table, strings.Join(names, ", "))
	if err := store.ExecScript(ctx, e.tx, script.String()); err != nil {
		return err
	}
	if err := e.registry.RecordAddedColumns(table, missing); err != nil {
		return err
	}
	e.counters.Migration(len(missing))
	return e.refresh(ctx)
}

// upsert inserts rec and turns a uniqueness conflict into an update of the
// conflicting row.
func (e *Engine) upsert(ctx context.Context, table string, rec types.Record, o *callOptions) (int64, error) {
	n, err := e.insert(ctx, table, rec, false, o)
	if err == nil || !errors.Is(err, dberrors.ErrUniquenessViolation) {
		return n, err
	}

	conflict := conflictColumns(err)
	set, where, ok := splitRecord(rec, conflict)
	if !ok {
		return 0, err
	}
	if o.autoUpdateTime {
		set = e.stampUpdateTime(table, set)
	}
	if len(set) == 0 {
		// Every column of the record is part of the conflicting key.
		return 0, nil
	}

	n, err = e.update(ctx, table, set, where, o)
	if errors.Is(err, dberrors.ErrUniquenessViolation) {
		return 0, dberrors.NewStoreFatal(
			fmt.Sprintf("conflict update on table %s hit another uniqueness conflict", table), driverCause(err))
	}
	if err != nil {
		return 0, err
	}
	e.counters.ConflictUpdate()
	return n, nil
}

func conflictColumns(err error) []string {
	var de *dberrors.DictError
	if !errors.As(err, &de) {
		return nil
	}
	cols, _ := de.Detail("columns").([]string)
	return cols
}

// splitRecord partitions rec into the fields outside and inside columns.
// It fails when rec lacks one of the columns.
func splitRecord(rec types.Record, columns []string) (set, where types.Record, ok bool) {
	if len(columns) == 0 {
		return nil, nil, false
	}
	byName := make(map[string]types.Field, len(rec))
	for _, f := range rec {
		byName[schema.BareName(f.Key)] = f
	}
	in := make(map[string]bool, len(columns))
	for _, c := range columns {
		f, found := byName[c]
		if !found {
			return nil, nil, false
		}
		in[c] = true
		where = append(where, f)
	}
	for _, f := range rec {
		if !in[schema.BareName(f.Key)] {
			set = append(set, f)
		}
	}
	return set, where, true
}

// stampUpdateTime appends the current time as update_time when the table
// has that column and set does not already carry it.
func (e *Engine) stampUpdateTime(table string, set types.Record) types.Record {
	ts, ok := e.registry.View(table)
	if !ok || !ts.HasColumn(schema.UpdateTimeColumn) {
		return set
	}
	for _, f := range set {
		if schema.BareName(f.Key) == schema.UpdateTimeColumn {
			return set
		}
	}
	stamped := set.Clone()
	stamped.Set(schema.UpdateTimeColumn, e.now())
	return stamped
}

// driverCause strips the classification from a translated store error so
// that a reclassified error does not also match its old code.
func driverCause(err error) error {
	var de *dberrors.DictError
	if errors.As(err, &de) && de.Cause != nil {
		return de.Cause
	}
	return err
}

func describeRecord(rec types.Record) string {
	const max = 200
	b, err := rec.MarshalJSON()
	if err != nil {
		return fmt.Sprintf("%v", rec.Keys())
	}
	if len(b) > max {
		return string(b[:max]) + "..."
	}
	return string(b)
}

func one(rec types.Record) iter.Seq[types.Record] {
	return func(yield func(types.Record) bool) {
		yield(rec)
	}
}
