// Package schema derives column and table definitions from record keys and
// values: key annotation parsing, storage type inference and DDL rendering.
package schema

import (
	"fmt"
	"regexp"
	"strings"

	dberrors "github.com/dictdb/dictdb/internal/errors"
	"github.com/dictdb/dictdb/pkg/types"
)

// Key annotation syntax: name[@type][#clause__clause...]
const (
	TypeDelimiter       = "@"
	DescriptorDelimiter = "#"
	ClauseSeparator     = "__"
)

var (
	primaryKeyPattern = regexp.MustCompile(`^primary\s+key(\s+.*)?$`)

	// typeTagPattern admits a type name with an optional size or precision,
	// e.g. text, varchar(32), decimal(10, 2).
	typeTagPattern = regexp.MustCompile(`^\w+(\s*\(\s*\d+(\s*,\s*\d+)?\s*\))?$`)
)

// clauseShorthand expands descriptor shorthands to SQL fragments.
var clauseShorthand = map[string]string{
	"pk": "primary key",
	"uq": "unique",
}

// KeyAnnotation is the decoded form of an annotated record key.
type KeyAnnotation struct {
	// Name is the bare column name
	Name string

	// ExplicitType is the type tag, empty when the type must be inferred
	ExplicitType types.StorageType

	// PrimaryKey is set when a descriptor clause marks the column as a key
	PrimaryKey bool

	// Clauses are the remaining descriptor clauses, shorthands expanded
	Clauses []string
}

// ParseKey decodes an annotated key. Whichever delimiter comes first decides
// the shape: a type tag may be followed by descriptors, descriptors run to
// the end of the key.
func ParseKey(key string) (KeyAnnotation, error) {
	var ann KeyAnnotation
	var descriptor string
	hasDescriptor := false

	typeAt := strings.Index(key, TypeDelimiter)
	descAt := strings.Index(key, DescriptorDelimiter)

	switch {
	case typeAt >= 0 && (descAt < 0 || typeAt < descAt):
		ann.Name = key[:typeAt]
		rest := key[typeAt+len(TypeDelimiter):]
		if j := strings.Index(rest, DescriptorDelimiter); j >= 0 {
			ann.ExplicitType = types.StorageType(rest[:j])
			descriptor = rest[j+len(DescriptorDelimiter):]
			hasDescriptor = true
		} else {
			ann.ExplicitType = types.StorageType(rest)
		}
		if strings.TrimSpace(string(ann.ExplicitType)) == "" {
			return KeyAnnotation{}, dberrors.NewInvalidKey(fmt.Sprintf("key %q has an empty type tag", key))
		}
		if !typeTagPattern.MatchString(string(ann.ExplicitType)) {
			return KeyAnnotation{}, dberrors.NewInvalidKey(
				fmt.Sprintf("key %q has an invalid type tag %q", key, ann.ExplicitType)).
				WithDetails(map[string]interface{}{"key": key, "type": string(ann.ExplicitType)})
		}
	case descAt >= 0:
		ann.Name = key[:descAt]
		descriptor = key[descAt+len(DescriptorDelimiter):]
		hasDescriptor = true
	default:
		ann.Name = key
	}

	if err := validateName(key, ann.Name); err != nil {
		return KeyAnnotation{}, err
	}

	if hasDescriptor {
		for _, clause := range strings.Split(descriptor, ClauseSeparator) {
			if strings.Contains(clause, ";") {
				return KeyAnnotation{}, dberrors.NewMalformedDescriptor(
					fmt.Sprintf("descriptor clause %q of key %q contains ';'", clause, key)).
					WithDetails(map[string]interface{}{"key": key, "clause": clause})
			}
			clause = strings.TrimSpace(clause)
			if clause == "" {
				continue
			}
			if expanded, ok := clauseShorthand[clause]; ok {
				clause = expanded
			}
			if primaryKeyPattern.MatchString(clause) {
				ann.PrimaryKey = true
				continue
			}
			ann.Clauses = append(ann.Clauses, clause)
		}
	}

	return ann, nil
}

// BareName strips annotation tags from a key without validating descriptors.
func BareName(key string) string {
	end := len(key)
	if i := strings.Index(key, TypeDelimiter); i >= 0 && i < end {
		end = i
	}
	if i := strings.Index(key, DescriptorDelimiter); i >= 0 && i < end {
		end = i
	}
	return key[:end]
}

// ParseRecord decodes every key of a record and checks that the bare names
// are unique.
func ParseRecord(r types.Record) ([]KeyAnnotation, error) {
	anns := make([]KeyAnnotation, len(r))
	seen := make(map[string]string, len(r))
	for i, f := range r {
		ann, err := ParseKey(f.Key)
		if err != nil {
			return nil, err
		}
		if prev, dup := seen[ann.Name]; dup {
			return nil, dberrors.NewInvalidKey(
				fmt.Sprintf("keys %q and %q both decode to column %q", prev, f.Key, ann.Name))
		}
		seen[ann.Name] = f.Key
		anns[i] = ann
	}
	return anns, nil
}

// BareColumns returns the bare column names of a record in key order.
func BareColumns(r types.Record) ([]string, error) {
	anns, err := ParseRecord(r)
	if err != nil {
		return nil, err
	}
	names := make([]string, len(anns))
	for i, a := range anns {
		names[i] = a.Name
	}
	return names, nil
}

func validateName(key, name string) error {
	if strings.TrimSpace(name) == "" {
		return dberrors.NewInvalidKey(fmt.Sprintf("key %q has an empty column name", key))
	}
	if strings.ContainsAny(name, "[]") {
		return dberrors.NewInvalidKey(fmt.Sprintf("column name %q cannot contain brackets", name))
	}
	return nil
}
