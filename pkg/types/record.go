package types

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"

	dberrors "github.com/dictdb/dictdb/internal/errors"
)

// Field is one key/value pair of a Record. The key may carry annotation
// tags (see internal/schema.ParseKey).
type Field struct {
	Key   string
	Value any
}

// Record is an insertion-ordered mapping from annotated key to value.
// Key order decides column order in generated SQL.
type Record []Field

// FromPairs builds a record from alternating key/value arguments. A key that
// is not a string fails with an INVALID_KEY error.
func FromPairs(pairs ...any) (Record, error) {
	if len(pairs)%2 != 0 {
		return nil, dberrors.NewInvalidKey(fmt.Sprintf("odd number of arguments (%d) for key/value pairs", len(pairs)))
	}
	r := make(Record, 0, len(pairs)/2)
	for i := 0; i < len(pairs); i += 2 {
		key, ok := pairs[i].(string)
		if !ok {
			return nil, dberrors.NewInvalidKey(fmt.Sprintf("key %v (%T) is not a string", pairs[i], pairs[i])).
				WithDetails(map[string]interface{}{"position": i / 2})
		}
		r.Set(key, pairs[i+1])
	}
	return r, nil
}

// MustPairs is like FromPairs but panics on error. Intended for literals in
// tests and examples.
func MustPairs(pairs ...any) Record {
	r, err := FromPairs(pairs...)
	if err != nil {
		panic(err)
	}
	return r
}

// FromMap builds a record from a Go map. Map iteration order is random, so
// keys are taken in sorted order.
func FromMap(m map[string]any) Record {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	r := make(Record, 0, len(keys))
	for _, k := range keys {
		r = append(r, Field{Key: k, Value: m[k]})
	}
	return r
}

// Keys returns the keys in insertion order.
func (r Record) Keys() []string {
	keys := make([]string, len(r))
	for i, f := range r {
		keys[i] = f.Key
	}
	return keys
}

// Get returns the value stored under key.
func (r Record) Get(key string) (any, bool) {
	for _, f := range r {
		if f.Key == key {
			return f.Value, true
		}
	}
	return nil, false
}

// Has reports whether key is present.
func (r Record) Has(key string) bool {
	_, ok := r.Get(key)
	return ok
}

// Set replaces the value for an existing key or appends a new field.
func (r *Record) Set(key string, value any) {
	for i := range *r {
		if (*r)[i].Key == key {
			(*r)[i].Value = value
			return
		}
	}
	*r = append(*r, Field{Key: key, Value: value})
}

// Clone returns a shallow copy that can be extended without aliasing.
func (r Record) Clone() Record {
	return append(Record(nil), r...)
}

// Map returns the record as an unordered Go map.
func (r Record) Map() map[string]any {
	m := make(map[string]any, len(r))
	for _, f := range r {
		m[f.Key] = f.Value
	}
	return m
}

// MarshalJSON encodes the record as a JSON object preserving key order.
func (r Record) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, f := range r {
		if i > 0 {
			buf.WriteByte(',')
		}
		k, err := json.Marshal(f.Key)
		if err != nil {
			return nil, err
		}
		v, err := json.Marshal(f.Value)
		if err != nil {
			return nil, fmt.Errorf("record: field %q: %w", f.Key, err)
		}
		buf.Write(k)
		buf.WriteByte(':')
		buf.Write(v)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON decodes a JSON object preserving key order. Numbers become
// int64 when integral and float64 otherwise.
func (r *Record) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		*r = nil
		return nil
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return fmt.Errorf("record: %w", err)
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return fmt.Errorf("record: expected JSON object, got %v", tok)
	}

	out := Record{}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return fmt.Errorf("record: %w", err)
		}
		key, ok := tok.(string)
		if !ok {
			return fmt.Errorf("record: unexpected token %v", tok)
		}
		var raw any
		if err := dec.Decode(&raw); err != nil {
			return fmt.Errorf("record: field %q: %w", key, err)
		}
		out.Set(key, NormalizeJSON(raw))
	}
	if _, err := dec.Token(); err != nil {
		return fmt.Errorf("record: %w", err)
	}

	*r = out
	return nil
}

// NormalizeJSON converts json.Number leaves of a decoded JSON value into
// int64 (integral literals) or float64.
func NormalizeJSON(v any) any {
	switch x := v.(type) {
	case json.Number:
		if i, err := x.Int64(); err == nil {
			return i
		}
		f, _ := x.Float64()
		return f
	case map[string]any:
		for k, e := range x {
			x[k] = NormalizeJSON(e)
		}
		return x
	case []any:
		for i, e := range x {
			x[i] = NormalizeJSON(e)
		}
		return x
	default:
		return v
	}
}
