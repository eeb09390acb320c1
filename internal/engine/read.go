package engine

import (
	"context"

	"github.com/dictdb/dictdb/internal/codec"
	dberrors "github.com/dictdb/dictdb/internal/errors"
	"github.com/dictdb/dictdb/internal/schema"
	"github.com/dictdb/dictdb/internal/statement"
	"github.com/dictdb/dictdb/internal/store"
	"github.com/dictdb/dictdb/pkg/types"
)

// Query selects rows of a table.
type Query struct {
	// Columns to return; all columns when empty
	Columns []string `json:"columns,omitempty"`

	// Where is an equality filter, fields joined with and
	Where types.Record `json:"where,omitempty"`

	// First returns at most one row
	First bool `json:"first,omitempty"`
}

// Select returns the rows of table matching q, with structured values
// decoded back into their Go form.
func (e *Engine) Select(ctx context.Context, table string, q Query) ([]types.Record, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.checkOpen(); err != nil {
		return nil, err
	}
	if err := schema.ValidateTableName(table); err != nil {
		return nil, err
	}

	ts, ok := e.registry.View(table)
	if !ok {
		return nil, dberrors.NewTableNotFound(table)
	}
	whereCols, err := schema.BareColumns(q.Where)
	if err != nil {
		return nil, err
	}
	args, err := codec.Adapt(q.Where, ts)
	if err != nil {
		return nil, err
	}
	for _, c := range whereCols {
		e.filters.RecordFilter(table, c, "select")
	}

	query := statement.Select(table, q.Columns, whereCols)
	if q.First {
		query += " limit 1"
	}
	return store.QueryRecords(ctx, e.execer(), query, args...)
}

// Delete removes the rows of table matching where. An empty where is
// rejected with INVALID_KEY.
func (e *Engine) Delete(ctx context.Context, table string, where types.Record, opts ...Option) (Result, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	res := Result{Table: table}
	if err := e.checkOpen(); err != nil {
		return res, err
	}
	if err := schema.ValidateTableName(table); err != nil {
		return res, err
	}
	if len(where) == 0 {
		return res, dberrors.NewInvalidKey("delete requires a where filter")
	}
	ts, ok := e.registry.View(table)
	if !ok {
		return res, dberrors.NewTableNotFound(table)
	}
	o := e.options(opts)

	whereCols, err := schema.BareColumns(where)
	if err != nil {
		return res, err
	}
	args, err := codec.Adapt(where, ts)
	if err != nil {
		return res, err
	}
	for _, c := range whereCols {
		e.filters.RecordFilter(table, c, "delete")
	}

	if err := e.begin(ctx); err != nil {
		return res, err
	}
	n, err := store.Exec(ctx, e.tx, statement.Delete(table, whereCols), args...)
	if err == nil {
		res.Rows = n
		e.counters.RowsAffected(n)
	}
	return res, e.finish(ctx, o.commit, err)
}

// DDLFor returns the CREATE TABLE statement a record would produce, without
// running it. The table name comes from WithTable or from resolving the
// record against the known tables.
func (e *Engine) DDLFor(rec types.Record, opts ...Option) (string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	o := e.options(opts)
	table := o.table
	if table != "" {
		if err := schema.ValidateTableName(table); err != nil {
			return "", err
		}
	} else {
		res, err := e.registry.Resolve(rec, o.implicit)
		if err != nil {
			return "", err
		}
		table = res.Table
	}
	ts, err := schema.TableFromRecord(table, rec, o.implicit)
	if err != nil {
		return "", err
	}
	return schema.CreateTableSQL(ts), nil
}
