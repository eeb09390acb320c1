package codec

import (
	"bytes"
	"encoding/gob"
	"fmt"
	"time"

	"github.com/golang/snappy"

	dberrors "github.com/dictdb/dictdb/internal/errors"
	"github.com/dictdb/dictdb/pkg/types"
)

// objectEnvelope lets gob carry the dynamic type of the stored value.
type objectEnvelope struct {
	Value any
}

func init() {
	for _, v := range []any{
		map[string]any{}, []any{}, types.Tuple{}, types.Set{}, types.Date{}, time.Time{},
	} {
		gob.Register(v)
	}
}

// RegisterObjectType makes a concrete type known to the obj codec. Encoding
// registers top-level values on the fly, but a fresh process must register a
// type before it can decode values of it, as must any type nested inside an
// interface.
func RegisterObjectType(v any) {
	gob.Register(v)
}

func encodeObject(v any) (out any, err error) {
	defer func() {
		if r := recover(); r != nil {
			out, err = nil, dberrors.NewUnsupportedType(fmt.Sprintf("cannot register %T for object storage: %v", v, r))
		}
	}()
	gob.Register(v)

	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(&objectEnvelope{Value: v}); err != nil {
		return nil, dberrors.Wrap(dberrors.ErrCategoryValidation, dberrors.CodeUnsupportedType,
			fmt.Sprintf("cannot serialize %T", v), err)
	}
	return snappy.Encode(nil, buf.Bytes()), nil
}

func decodeObject(raw any) (any, error) {
	data, ok := raw.([]byte)
	if !ok {
		// Scalars written into an obj column come back as themselves.
		return raw, nil
	}
	plain, err := snappy.Decode(nil, data)
	if err != nil {
		return nil, fmt.Errorf("codec: obj column is not snappy framed: %w", err)
	}
	var env objectEnvelope
	if err := gob.NewDecoder(bytes.NewReader(plain)).Decode(&env); err != nil {
		return nil, fmt.Errorf("codec: decode obj: %w", err)
	}
	return env.Value, nil
}
