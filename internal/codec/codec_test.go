package codec

import (
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	dberrors "github.com/dictdb/dictdb/internal/errors"
	"github.com/dictdb/dictdb/pkg/types"
)

type gadget struct {
	Name  string
	Parts []string
}

func init() {
	RegisterObjectType(gadget{})
}

func roundTrip(t *testing.T, typ types.StorageType, v any) any {
	t.Helper()
	raw, err := Encode(typ, v)
	if err != nil {
		t.Fatalf("Encode(%s, %v) failed: %v", typ, v, err)
	}
	back, err := Decode(string(typ), raw)
	if err != nil {
		t.Fatalf("Decode(%s) failed: %v", typ, err)
	}
	return back
}

func TestEncode_ScalarsPassThrough(t *testing.T) {
	now := time.Now()
	for _, v := range []any{"x", 7, int64(-2), 3.5, true, now} {
		got, err := Encode(types.TypeText, v)
		if err != nil {
			t.Fatalf("Encode(%v) failed: %v", v, err)
		}
		if !reflect.DeepEqual(got, v) {
			t.Errorf("Encode(%v) = %v, want unchanged", v, got)
		}
	}
	if got, _ := Encode(types.TypeJSONText, nil); got != nil {
		t.Errorf("nil should encode as NULL, got %v", got)
	}
}

func TestEncode_JSONTextIsCompactAndUnescaped(t *testing.T) {
	got, err := Encode(types.TypeJSONText, map[string]any{"a": []any{1, "<b>"}})
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	if got != `{"a":[1,"<b>"]}` {
		t.Errorf("got %v", got)
	}
}

func TestRoundTrip_JSONText(t *testing.T) {
	v := map[string]any{"a": []any{1, 2.5, "x", nil, true}, "b": map[string]any{"c": 1}}
	back := roundTrip(t, types.TypeJSONText, v)
	if !reflect.DeepEqual(back, types.NormalizeNumbers(v)) {
		t.Errorf("got %#v", back)
	}
}

func TestRoundTrip_IntegralFloatStaysFloat(t *testing.T) {
	raw, err := Encode(types.TypeJSONText, map[string]any{"price": 2.0, "qty": 2})
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	if raw != `{"price":2.0,"qty":2}` {
		t.Errorf("text = %v", raw)
	}
	back, err := Decode(string(types.TypeJSONText), raw)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	want := map[string]any{"price": float64(2), "qty": int64(2)}
	if !reflect.DeepEqual(back, want) {
		t.Errorf("got %#v, want %#v", back, want)
	}
}

func TestRoundTrip_Tuple(t *testing.T) {
	back := roundTrip(t, types.TypeTupleText, types.Tuple{1, "two", 3.5})
	want := types.Tuple{int64(1), "two", 3.5}
	if !reflect.DeepEqual(back, want) {
		t.Errorf("got %#v, want %#v", back, want)
	}
}

func TestRoundTrip_SetIsCanonical(t *testing.T) {
	raw, err := Encode(types.TypeSetText, types.Set{3, 1, 2, 1})
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	if raw != "[1,2,3]" {
		t.Errorf("set text = %v, want [1,2,3]", raw)
	}
	back, err := Decode(string(types.TypeSetText), raw)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if !reflect.DeepEqual(back, types.NewSet(1, 2, 3)) {
		t.Errorf("got %#v", back)
	}
}

func TestRoundTrip_Object(t *testing.T) {
	g := gadget{Name: "widget", Parts: []string{"a", "b"}}
	raw, err := Encode(types.TypeObject, g)
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	if _, ok := raw.([]byte); !ok {
		t.Fatalf("obj should encode to bytes, got %T", raw)
	}
	back, err := Decode(string(types.TypeObject), raw)
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if !reflect.DeepEqual(back, g) {
		t.Errorf("got %#v, want %#v", back, g)
	}
}

func TestRoundTrip_BytesAsObject(t *testing.T) {
	back := roundTrip(t, types.TypeObject, []byte{1, 2, 3})
	if !reflect.DeepEqual(back, []byte{1, 2, 3}) {
		t.Errorf("got %#v", back)
	}
}

func TestEncode_ObjectWithoutExportedFields(t *testing.T) {
	type hidden struct{ x int }
	_, err := Encode(types.TypeObject, hidden{x: 1})
	if !errors.Is(err, dberrors.ErrUnsupportedType) {
		t.Errorf("expected UNSUPPORTED_TYPE, got %v", err)
	}
}

func TestEncode_ContainerInScalarColumnUsesInferredType(t *testing.T) {
	got, err := Encode(types.TypeText, []any{1, 2})
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	if got != "[1,2]" {
		t.Errorf("got %v", got)
	}
}

func TestDecode_DateAndBoolean(t *testing.T) {
	d := types.NewDate(2021, time.March, 4)
	if got := roundTrip(t, types.TypeDate, d); got != d {
		t.Errorf("date round trip = %v", got)
	}
	// The cgo driver hands date columns back as time.Time.
	got, err := Decode("date", time.Date(2021, 3, 4, 0, 0, 0, 0, time.UTC))
	if err != nil || got != d {
		t.Errorf("Decode(time) = %v, %v", got, err)
	}
	got, _ = Decode("BOOLEAN", int64(1))
	if got != true {
		t.Errorf("Decode(boolean 1) = %v", got)
	}
}

func TestDecode_UnknownTypeIsRaw(t *testing.T) {
	got, err := Decode("varchar(10)", "abc")
	if err != nil || got != "abc" {
		t.Errorf("Decode = %v, %v", got, err)
	}
}

func TestRegister_CustomConverter(t *testing.T) {
	Register("upper_text", Converter{
		Encode: func(v any) (any, error) { return v, nil },
		Decode: func(raw any) (any, error) { return "decoded:" + raw.(string), nil },
	})
	got, err := Decode("UPPER_TEXT", "x")
	if err != nil || got != "decoded:x" {
		t.Errorf("Decode = %v, %v", got, err)
	}
}

func TestAdapt_UsesSchemaThenAnnotation(t *testing.T) {
	ts := &types.TableSchema{
		Name: "t1",
		Columns: []types.ColumnDef{
			{Name: "id", Type: types.TypeInteger},
			{Name: "tags", Type: types.TypeSetText},
		},
	}
	r := types.MustPairs("id#pk", 1, "tags", types.Set{"b", "a"}, "extra@tuple_text", types.Tuple{1})
	values, err := Adapt(r, ts)
	if err != nil {
		t.Fatalf("Adapt failed: %v", err)
	}
	want := []any{1, `["a","b"]`, "[1]"}
	if !reflect.DeepEqual(values, want) {
		t.Errorf("got %#v, want %#v", values, want)
	}
}

func TestAdapt_PropagatesKeyErrors(t *testing.T) {
	_, err := Adapt(types.MustPairs("a#x;drop", 1), nil)
	if !errors.Is(err, dberrors.ErrMalformedDescriptor) {
		t.Errorf("expected MALFORMED_DESCRIPTOR, got %v", err)
	}
}

func TestProperty_JSONTextRoundTrip(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	properties.Property("string/int maps survive json_text", prop.ForAll(
		func(keys []string, n int64) bool {
			m := make(map[string]any, len(keys))
			for i, k := range keys {
				if i%2 == 0 {
					m[k] = k
				} else {
					m[k] = n + int64(i)
				}
			}
			raw, err := Encode(types.TypeJSONText, m)
			if err != nil {
				return false
			}
			back, err := Decode(string(types.TypeJSONText), raw)
			if err != nil {
				return false
			}
			return reflect.DeepEqual(back, types.NormalizeNumbers(m))
		},
		gen.SliceOf(gen.AlphaString()),
		gen.Int64Range(-1<<40, 1<<40),
	))

	properties.TestingRun(t)
}
