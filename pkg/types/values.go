package types

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"time"
)

// Date is a calendar date without a time of day. It is stored in date
// columns as YYYY-MM-DD.
type Date struct {
	Year  int
	Month time.Month
	Day   int
}

const dateLayout = "2006-01-02"

// NewDate returns the normalised date for the given parts.
func NewDate(year int, month time.Month, day int) Date {
	return DateOf(time.Date(year, month, day, 0, 0, 0, 0, time.UTC))
}

// DateOf returns the date part of t in t's location.
func DateOf(t time.Time) Date {
	y, m, d := t.Date()
	return Date{Year: y, Month: m, Day: d}
}

// ParseDate parses a YYYY-MM-DD string.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return Date{}, fmt.Errorf("invalid date %q: %w", s, err)
	}
	return DateOf(t), nil
}

// Time returns midnight UTC of the date.
func (d Date) Time() time.Time {
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, time.UTC)
}

func (d Date) String() string {
	return d.Time().Format(dateLayout)
}

// MarshalJSON encodes the date as a YYYY-MM-DD string.
func (d Date) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

// UnmarshalJSON decodes a YYYY-MM-DD string.
func (d *Date) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// Tuple is a fixed, ordered sequence stored in tuple_text columns.
type Tuple []any

// Set is an unordered collection of distinct members stored in set_text
// columns. Build it with NewSet so members are deduplicated and kept in a
// canonical order, which makes equal sets deep-equal.
type Set []any

// NewSet returns the canonical set of the given members.
func NewSet(members ...any) Set {
	type keyed struct {
		key string
		v   any
	}
	seen := make(map[string]bool, len(members))
	items := make([]keyed, 0, len(members))
	for _, m := range members {
		m = NormalizeNumbers(m)
		k := memberKey(m)
		if seen[k] {
			continue
		}
		seen[k] = true
		items = append(items, keyed{key: k, v: m})
	}
	sort.Slice(items, func(i, j int) bool { return items[i].key < items[j].key })

	s := make(Set, len(items))
	for i, it := range items {
		s[i] = it.v
	}
	return s
}

// Contains reports whether m is a member.
func (s Set) Contains(m any) bool {
	k := memberKey(m)
	for _, e := range s {
		if memberKey(e) == k {
			return true
		}
	}
	return false
}

func memberKey(m any) string {
	if b, err := json.Marshal(m); err == nil {
		return string(b)
	}
	return fmt.Sprintf("%#v", m)
}

// NormalizeNumbers widens every integer to int64 and every float to float64,
// recursing into []any, map[string]any, Tuple and Set. Unsigned values that
// do not fit in int64 are left alone.
func NormalizeNumbers(v any) any {
	switch x := v.(type) {
	case int:
		return int64(x)
	case int8:
		return int64(x)
	case int16:
		return int64(x)
	case int32:
		return int64(x)
	case uint:
		if uint64(x) <= math.MaxInt64 {
			return int64(x)
		}
		return x
	case uint8:
		return int64(x)
	case uint16:
		return int64(x)
	case uint32:
		return int64(x)
	case uint64:
		if x <= math.MaxInt64 {
			return int64(x)
		}
		return x
	case float32:
		return float64(x)
	case []any:
		out := make([]any, len(x))
		for i, e := range x {
			out[i] = NormalizeNumbers(e)
		}
		return out
	case Tuple:
		out := make(Tuple, len(x))
		for i, e := range x {
			out[i] = NormalizeNumbers(e)
		}
		return out
	case Set:
		out := make(Set, len(x))
		for i, e := range x {
			out[i] = NormalizeNumbers(e)
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(x))
		for k, e := range x {
			out[k] = NormalizeNumbers(e)
		}
		return out
	default:
		return v
	}
}

// CanonicalJSON is the text form of structured column values: compact JSON
// without HTML escaping, where floats always carry a fraction or exponent so
// that 2.0 reads back as a float rather than an integer.
func CanonicalJSON(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(floatLiterals(v)); err != nil {
		return nil, err
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}

// jsonFloat marshals like float64 but keeps integral values distinguishable
// from integers.
type jsonFloat float64

func (f jsonFloat) MarshalJSON() ([]byte, error) {
	b, err := json.Marshal(float64(f))
	if err != nil {
		return nil, err
	}
	if !bytes.ContainsAny(b, ".eE") {
		b = append(b, ".0"...)
	}
	return b, nil
}

func floatLiterals(v any) any {
	switch x := v.(type) {
	case float64:
		return jsonFloat(x)
	case float32:
		return jsonFloat(x)
	case []any:
		out := make([]any, len(x))
		for i, e := range x {
			out[i] = floatLiterals(e)
		}
		return out
	case Tuple:
		return floatLiterals([]any(x))
	case Set:
		return floatLiterals([]any(x))
	case map[string]any:
		out := make(map[string]any, len(x))
		for k, e := range x {
			out[k] = floatLiterals(e)
		}
		return out
	default:
		return v
	}
}
