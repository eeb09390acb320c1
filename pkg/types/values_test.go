package types

import (
	"encoding/json"
	"reflect"
	"testing"
	"time"
)

func TestNewSet_CanonicalOrder(t *testing.T) {
	a := NewSet(3, 1, 2, 1)
	b := NewSet(int64(2), int64(3), int64(1))

	if len(a) != 3 {
		t.Fatalf("expected 3 members, got %v", a)
	}
	if !reflect.DeepEqual(a, b) {
		t.Errorf("equal sets should be deep-equal: %v vs %v", a, b)
	}
	if !a.Contains(2) || a.Contains(9) {
		t.Error("Contains returned wrong answer")
	}
}

func TestDate_JSONAndParse(t *testing.T) {
	d := NewDate(2024, time.February, 29)
	data, err := json.Marshal(d)
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}
	if string(data) != `"2024-02-29"` {
		t.Errorf("got %s", data)
	}

	var back Date
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}
	if back != d {
		t.Errorf("got %v, want %v", back, d)
	}

	if _, err := ParseDate("2024-13-01"); err == nil {
		t.Error("expected error for month 13")
	}
}

func TestNormalizeNumbers(t *testing.T) {
	in := map[string]any{"a": 1, "b": []any{int8(2), float32(1.5)}, "t": Tuple{uint16(7)}}
	want := map[string]any{"a": int64(1), "b": []any{int64(2), float64(1.5)}, "t": Tuple{int64(7)}}
	if got := NormalizeNumbers(in); !reflect.DeepEqual(got, want) {
		t.Errorf("got %#v, want %#v", got, want)
	}
}

func TestCanonicalJSON(t *testing.T) {
	tests := []struct {
		value any
		want  string
	}{
		{map[string]any{"a": 2.0, "b": 1, "c": "<x>"}, `{"a":2.0,"b":1,"c":"<x>"}`},
		{[]any{1.5, float32(3), 0.0, 1e21}, `[1.5,3.0,0.0,1e+21]`},
		{Tuple{1, 2.0}, `[1,2.0]`},
		{[]any{map[string]any{"n": []any{4.0}}}, `[{"n":[4.0]}]`},
	}
	for _, tt := range tests {
		got, err := CanonicalJSON(tt.value)
		if err != nil {
			t.Fatalf("CanonicalJSON(%#v) failed: %v", tt.value, err)
		}
		if string(got) != tt.want {
			t.Errorf("CanonicalJSON(%#v) = %s, want %s", tt.value, got, tt.want)
		}
	}
}
