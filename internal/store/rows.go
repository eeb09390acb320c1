package store

import (
	"context"
	"fmt"

	"github.com/dictdb/dictdb/internal/codec"
	"github.com/dictdb/dictdb/pkg/types"
)

// QueryRecords runs a query and decodes every row into a record keyed by
// result column name. Values of columns with a registered converter are
// decoded back into their Go form.
func QueryRecords(ctx context.Context, ex Execer, query string, args ...any) ([]types.Record, error) {
	rows, err := ex.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, Translate(err)
	}
	defer rows.Close()

	names, err := rows.Columns()
	if err != nil {
		return nil, Translate(err)
	}
	colTypes, err := rows.ColumnTypes()
	if err != nil {
		return nil, Translate(err)
	}
	declTypes := make([]string, len(colTypes))
	for i, ct := range colTypes {
		declTypes[i] = ct.DatabaseTypeName()
	}

	var out []types.Record
	raw := make([]any, len(names))
	ptrs := make([]any, len(names))
	for i := range raw {
		ptrs[i] = &raw[i]
	}
	for rows.Next() {
		if err := rows.Scan(ptrs...); err != nil {
			return nil, Translate(err)
		}
		rec := make(types.Record, len(names))
		for i, name := range names {
			v, err := codec.Decode(declTypes[i], raw[i])
			if err != nil {
				return nil, fmt.Errorf("store: column %q: %w", name, err)
			}
			rec[i] = types.Field{Key: name, Value: v}
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, Translate(err)
	}
	return out, nil
}
