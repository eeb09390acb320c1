package codec

import (
	"fmt"

	"github.com/dictdb/dictdb/internal/schema"
	"github.com/dictdb/dictdb/pkg/types"
)

// Adapt returns the driver values for a record, one per key in key order.
// The column type comes from the table schema when it knows the column and
// from the key annotation or fresh inference otherwise, which is the case on
// the attempt that precedes an auto-migration.
func Adapt(r types.Record, ts *types.TableSchema) ([]any, error) {
	values := make([]any, len(r))
	for i, f := range r {
		t, err := columnType(f, ts)
		if err != nil {
			return nil, err
		}
		v, err := Encode(t, f.Value)
		if err != nil {
			return nil, fmt.Errorf("column %q: %w", schema.BareName(f.Key), err)
		}
		values[i] = v
	}
	return values, nil
}

func columnType(f types.Field, ts *types.TableSchema) (types.StorageType, error) {
	ann, err := schema.ParseKey(f.Key)
	if err != nil {
		return "", err
	}
	if ts != nil {
		if c, ok := ts.Column(ann.Name); ok {
			return c.Type, nil
		}
	}
	if ann.ExplicitType != "" {
		return ann.ExplicitType, nil
	}
	if f.Value == nil {
		return types.TypeText, nil
	}
	return schema.InferType(f.Value)
}
