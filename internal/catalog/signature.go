// Package catalog mirrors the tables of the store in memory and resolves
// records to tables by their column signature.
package catalog

import (
	"sort"
	"strings"

	"github.com/spaolacci/murmur3"
)

// Signature is the order-independent set of bare column names identifying
// the shape of a record or a table, kept sorted and free of duplicates.
type Signature []string

// NewSignature builds a signature from column names in any order.
func NewSignature(names ...string) Signature {
	sig := make(Signature, 0, len(names))
	seen := make(map[string]struct{}, len(names))
	for _, n := range names {
		if _, dup := seen[n]; dup {
			continue
		}
		seen[n] = struct{}{}
		sig = append(sig, n)
	}
	sort.Strings(sig)
	return sig
}

// Equal reports whether two signatures name the same columns.
func (s Signature) Equal(other Signature) bool {
	if len(s) != len(other) {
		return false
	}
	for i := range s {
		if s[i] != other[i] {
			return false
		}
	}
	return true
}

// Fingerprint hashes the signature for index lookups. Equal signatures have
// equal fingerprints; a fingerprint match still needs an Equal check.
func (s Signature) Fingerprint() uint64 {
	return murmur3.Sum64([]byte(strings.Join(s, "\x00")))
}

func (s Signature) String() string {
	return "{" + strings.Join(s, ",") + "}"
}
