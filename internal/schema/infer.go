package schema

import (
	"bytes"
	"encoding/json"
	"fmt"
	"reflect"
	"time"

	dberrors "github.com/dictdb/dictdb/internal/errors"
	"github.com/dictdb/dictdb/pkg/types"
)

// InferType maps a Go value to its storage type. Containers only keep their
// structured type when they survive a trip through their JSON text form;
// everything else without a native column type is stored as obj.
func InferType(v any) (types.StorageType, error) {
	switch x := v.(type) {
	case string:
		return types.TypeText, nil
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return types.TypeInteger, nil
	case float32, float64:
		return types.TypeDouble, nil
	case bool:
		return types.TypeBoolean, nil
	case types.Date:
		return types.TypeDate, nil
	case time.Time:
		return types.TypeTimestamp, nil
	case []any, map[string]any:
		if RoundTrips(x) {
			return types.TypeJSONText, nil
		}
		return types.TypeObject, nil
	case types.Tuple:
		if RoundTrips(x) {
			return types.TypeTupleText, nil
		}
		return types.TypeObject, nil
	case types.Set:
		if RoundTrips(x) {
			return types.TypeSetText, nil
		}
		return types.TypeObject, nil
	case nil:
		return types.TypeObject, nil
	}

	switch reflect.TypeOf(v).Kind() {
	case reflect.Func, reflect.Chan, reflect.UnsafePointer:
		return "", dberrors.NewUnsupportedType(fmt.Sprintf("values of type %T cannot be stored", v))
	}
	return types.TypeObject, nil
}

// RoundTrips reports whether decoding the canonical JSON text of a
// container yields a value equal to the container, after widening numbers
// to int64/float64.
func RoundTrips(v any) bool {
	text, err := types.CanonicalJSON(v)
	if err != nil {
		return false
	}

	dec := json.NewDecoder(bytes.NewReader(text))
	dec.UseNumber()
	var back any
	if err := dec.Decode(&back); err != nil {
		return false
	}
	back = types.NormalizeJSON(back)

	want := types.NormalizeNumbers(v)
	switch w := want.(type) {
	case types.Tuple:
		want = []any(w)
	case types.Set:
		want = []any(w)
	}
	return reflect.DeepEqual(want, back)
}
