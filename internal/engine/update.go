package engine

import (
	"context"

	"github.com/dictdb/dictdb/internal/codec"
	dberrors "github.com/dictdb/dictdb/internal/errors"
	"github.com/dictdb/dictdb/internal/schema"
	"github.com/dictdb/dictdb/pkg/types"
)

// UpdatePair is one update: the fields to set and the equality filter.
type UpdatePair struct {
	Set   types.Record `json:"set"`
	Where types.Record `json:"where"`
}

// Update sets the fields of set on the rows of table matching where. Columns
// of set the table lacks are added on demand. With update time on, the
// update_time column is stamped unless set carries it.
func (e *Engine) Update(ctx context.Context, table string, set, where types.Record, opts ...Option) (Result, error) {
	return e.UpdateMany(ctx, table, []UpdatePair{{Set: set, Where: where}}, opts...)
}

// UpdateMany applies updates to table in order.
func (e *Engine) UpdateMany(ctx context.Context, table string, pairs []UpdatePair, opts ...Option) (Result, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	res := Result{Table: table}
	if err := e.checkOpen(); err != nil {
		return res, err
	}
	if err := schema.ValidateTableName(table); err != nil {
		return res, err
	}
	if !e.registry.Has(table) {
		return res, dberrors.NewTableNotFound(table)
	}
	o := e.options(opts)
	if err := e.begin(ctx); err != nil {
		return res, err
	}

	for _, p := range pairs {
		set := p.Set
		if o.implicit.UpdateTime {
			set = e.stampUpdateTime(table, set)
		}
		n, err := e.update(ctx, table, set, p.Where, &o)
		if err != nil {
			return res, e.finish(ctx, o.commit, err)
		}
		res.Records++
		res.Rows += n
		e.counters.RowsAffected(n)
	}
	return res, e.finish(ctx, o.commit, nil)
}

func (e *Engine) update(ctx context.Context, table string, set, where types.Record, o *callOptions) (int64, error) {
	setCols, err := schema.BareColumns(set)
	if err != nil {
		return 0, err
	}
	if len(setCols) == 0 {
		return 0, dberrors.NewInvalidKey("update needs at least one field to set")
	}
	whereCols, err := schema.BareColumns(where)
	if err != nil {
		return 0, err
	}

	ts, _ := e.registry.View(table)
	args, err := codec.Adapt(set, ts)
	if err != nil {
		return 0, err
	}
	whereArgs, err := codec.Adapt(where, ts)
	if err != nil {
		return 0, err
	}
	for _, c := range whereCols {
		e.filters.RecordFilter(table, c, "update")
	}

	query := e.cache.Update(table, setCols, whereCols)
	return e.execMigrating(ctx, table, set, o.autoAlter, query, append(args, whereArgs...))
}
