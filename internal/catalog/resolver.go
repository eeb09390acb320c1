package catalog

import (
	"github.com/dictdb/dictdb/internal/schema"
	"github.com/dictdb/dictdb/pkg/types"
)

// Resolution is the outcome of resolving a record to a table.
type Resolution struct {
	// Table is the resolved table name
	Table string

	// Exists is false when Table is a fresh name that still has to be created
	Exists bool

	// Signature is the record's bare columns plus the requested implicit columns
	Signature Signature
}

// RecordSignature computes the signature of a record with the given implicit
// columns. Key errors surface before any signature is computed.
func RecordSignature(rec types.Record, implicit schema.Implicit) (Signature, error) {
	cols, err := schema.BareColumns(rec)
	if err != nil {
		return nil, err
	}
	return NewSignature(append(cols, implicit.Names()...)...), nil
}

// Resolve finds the table whose column set equals the record signature, or
// picks the next generated name when none does.
func (r *Registry) Resolve(rec types.Record, implicit schema.Implicit) (Resolution, error) {
	sig, err := RecordSignature(rec, implicit)
	if err != nil {
		return Resolution{}, err
	}
	if name, ok := r.Match(sig); ok {
		return Resolution{Table: name, Exists: true, Signature: sig}, nil
	}
	return Resolution{Table: r.NextTableName(), Signature: sig}, nil
}
