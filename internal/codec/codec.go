// Package codec converts record values to driver values and back. Columns
// declared with a structured storage type go through a registered converter
// pair so that values round-trip transparently.
package codec

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	dberrors "github.com/dictdb/dictdb/internal/errors"
	"github.com/dictdb/dictdb/internal/schema"
	"github.com/dictdb/dictdb/pkg/types"
)

// Converter is an encode/decode pair for one declared column type.
type Converter struct {
	// Encode turns a Go value into a driver value
	Encode func(v any) (any, error)

	// Decode turns a driver value read from the column back into a Go value
	Decode func(raw any) (any, error)
}

var (
	convertersMu sync.RWMutex
	converters   = map[types.StorageType]Converter{
		types.TypeJSONText:  {Encode: encodeJSONText, Decode: decodeJSONText},
		types.TypeTupleText: {Encode: encodeTupleText, Decode: decodeTupleText},
		types.TypeSetText:   {Encode: encodeSetText, Decode: decodeSetText},
		types.TypeObject:    {Encode: encodeObject, Decode: decodeObject},
		types.TypeDate:      {Encode: encodeDate, Decode: decodeDate},
		types.TypeBoolean:   {Encode: passThrough, Decode: decodeBoolean},
	}
)

// Register installs a converter pair for a declared column type, replacing
// any existing one. Type names are matched case-insensitively.
func Register(t types.StorageType, c Converter) {
	convertersMu.Lock()
	defer convertersMu.Unlock()
	converters[types.StorageType(strings.ToLower(string(t)))] = c
}

func lookup(t types.StorageType) (Converter, bool) {
	convertersMu.RLock()
	defer convertersMu.RUnlock()
	c, ok := converters[types.StorageType(strings.ToLower(string(t)))]
	return c, ok
}

// Encode converts v for a column declared as t. Scalars pass through
// unchanged. Containers use the converter of the column type when it is a
// structured type, otherwise the converter of their own inferred type.
func Encode(t types.StorageType, v any) (any, error) {
	switch x := v.(type) {
	case nil:
		return nil, nil
	case string, bool, int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64,
		float32, float64, time.Time:
		return v, nil
	case types.Date:
		return x.String(), nil
	}

	if !t.Structured() {
		inferred, err := schema.InferType(v)
		if err != nil {
			return nil, err
		}
		t = inferred
	}
	c, ok := lookup(t)
	if !ok {
		return nil, dberrors.NewUnsupportedType(fmt.Sprintf("no converter for column type %q (value %T)", t, v))
	}
	return c.Encode(v)
}

// Decode converts a raw value read from a column declared as declType.
// Columns without a converter return raw unchanged.
func Decode(declType string, raw any) (any, error) {
	if raw == nil {
		return nil, nil
	}
	c, ok := lookup(types.StorageType(declType))
	if !ok {
		return raw, nil
	}
	return c.Decode(raw)
}

func passThrough(v any) (any, error) { return v, nil }

func marshalText(v any) (string, error) {
	b, err := types.CanonicalJSON(v)
	if err != nil {
		return "", fmt.Errorf("codec: %w", err)
	}
	return string(b), nil
}

func unmarshalText(raw any) (any, error) {
	var data []byte
	switch x := raw.(type) {
	case string:
		data = []byte(x)
	case []byte:
		data = x
	default:
		return nil, fmt.Errorf("codec: expected text, got %T", raw)
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, fmt.Errorf("codec: %w", err)
	}
	return types.NormalizeJSON(v), nil
}

func encodeJSONText(v any) (any, error) {
	return marshalText(v)
}

func decodeJSONText(raw any) (any, error) {
	return unmarshalText(raw)
}

func encodeTupleText(v any) (any, error) {
	return marshalText(v)
}

func decodeTupleText(raw any) (any, error) {
	v, err := unmarshalText(raw)
	if err != nil {
		return nil, err
	}
	xs, ok := v.([]any)
	if !ok {
		return nil, fmt.Errorf("codec: tuple_text holds %T, want array", v)
	}
	return types.Tuple(xs), nil
}

func encodeSetText(v any) (any, error) {
	if s, ok := v.(types.Set); ok {
		v = types.NewSet(s...)
	}
	return marshalText(v)
}

func decodeSetText(raw any) (any, error) {
	v, err := unmarshalText(raw)
	if err != nil {
		return nil, err
	}
	xs, ok := v.([]any)
	if !ok {
		return nil, fmt.Errorf("codec: set_text holds %T, want array", v)
	}
	return types.NewSet(xs...), nil
}

func encodeDate(v any) (any, error) {
	switch x := v.(type) {
	case types.Date:
		return x.String(), nil
	case time.Time:
		return types.DateOf(x).String(), nil
	}
	return v, nil
}

func decodeDate(raw any) (any, error) {
	switch x := raw.(type) {
	case time.Time:
		return types.DateOf(x), nil
	case string:
		return types.ParseDate(x)
	case []byte:
		return types.ParseDate(string(x))
	}
	return raw, nil
}

func decodeBoolean(raw any) (any, error) {
	switch x := raw.(type) {
	case bool:
		return x, nil
	case int64:
		return x != 0, nil
	}
	return raw, nil
}
