package catalog

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strconv"

	dberrors "github.com/dictdb/dictdb/internal/errors"
	"github.com/dictdb/dictdb/internal/store"
	"github.com/dictdb/dictdb/pkg/types"
)

var generatedName = regexp.MustCompile(`^t(\d+)$`)

// Registry is the in-memory mirror of the store catalog: table name to
// schema, plus an index from signature fingerprint to table names.
//
// A Registry has no locking of its own. The engine owns one per store and
// serializes every read and write of it together with statement execution.
type Registry struct {
	tables       map[string]*types.TableSchema
	fingerprints map[uint64][]string
	refreshes    int
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		tables:       make(map[string]*types.TableSchema),
		fingerprints: make(map[uint64][]string),
	}
}

// Refresh reloads the whole registry from the store catalog.
func (r *Registry) Refresh(ctx context.Context, ex store.Execer) error {
	tables, err := store.ReadCatalog(ctx, ex)
	if err != nil {
		return fmt.Errorf("catalog: refresh failed: %w", err)
	}
	r.Load(tables)
	r.refreshes++
	return nil
}

// Load replaces the registry contents.
func (r *Registry) Load(tables []types.TableSchema) {
	r.tables = make(map[string]*types.TableSchema, len(tables))
	r.fingerprints = make(map[uint64][]string, len(tables))
	for i := range tables {
		r.put(tables[i].Clone())
	}
}

func (r *Registry) put(ts types.TableSchema) {
	if old, ok := r.tables[ts.Name]; ok {
		r.unindex(old)
	}
	r.tables[ts.Name] = &ts
	fp := signatureOf(&ts).Fingerprint()
	names := append(r.fingerprints[fp], ts.Name)
	sort.Strings(names)
	r.fingerprints[fp] = names
}

func (r *Registry) unindex(ts *types.TableSchema) {
	fp := signatureOf(ts).Fingerprint()
	names := r.fingerprints[fp]
	for i, n := range names {
		if n == ts.Name {
			names = append(names[:i], names[i+1:]...)
			break
		}
	}
	if len(names) == 0 {
		delete(r.fingerprints, fp)
	} else {
		r.fingerprints[fp] = names
	}
}

func signatureOf(ts *types.TableSchema) Signature {
	return NewSignature(ts.ColumnNames()...)
}

// Lookup returns a copy of the named table schema.
func (r *Registry) Lookup(name string) (types.TableSchema, bool) {
	ts, ok := r.tables[name]
	if !ok {
		return types.TableSchema{}, false
	}
	return ts.Clone(), true
}

// View returns the registry's own copy of a schema. Callers must not
// modify it; it is replaced, not mutated, on the next change to the table.
func (r *Registry) View(name string) (*types.TableSchema, bool) {
	ts, ok := r.tables[name]
	return ts, ok
}

// Has reports whether the table is registered.
func (r *Registry) Has(name string) bool {
	_, ok := r.tables[name]
	return ok
}

// RecordNewTable registers a table that was just created.
func (r *Registry) RecordNewTable(ts types.TableSchema) {
	r.put(ts.Clone())
}

// RecordAddedColumns appends columns that were just added to a table.
func (r *Registry) RecordAddedColumns(table string, cols []types.ColumnDef) error {
	ts, ok := r.tables[table]
	if !ok {
		return dberrors.NewTableNotFound(table)
	}
	updated := ts.Clone()
	for _, c := range cols {
		if !updated.HasColumn(c.Name) {
			updated.Columns = append(updated.Columns, c)
		}
	}
	r.put(updated)
	return nil
}

// Match returns the table whose column set equals sig. When several tables
// match, the lexically smallest name wins.
func (r *Registry) Match(sig Signature) (string, bool) {
	for _, name := range r.fingerprints[sig.Fingerprint()] {
		if signatureOf(r.tables[name]).Equal(sig) {
			return name, true
		}
	}
	return "", false
}

// NextTableName returns "t" followed by one more than the largest numeric
// suffix among tables named t<digits>, or "t1" when there are none.
func (r *Registry) NextTableName() string {
	max := 0
	for name := range r.tables {
		m := generatedName.FindStringSubmatch(name)
		if m == nil {
			continue
		}
		n, err := strconv.Atoi(m[1])
		if err != nil {
			continue
		}
		if n > max {
			max = n
		}
	}
	return "t" + strconv.Itoa(max+1)
}

// Names returns the registered table names in sorted order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.tables))
	for name := range r.tables {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Tables returns copies of every registered schema, sorted by name.
func (r *Registry) Tables() []types.TableSchema {
	names := r.Names()
	out := make([]types.TableSchema, len(names))
	for i, name := range names {
		out[i] = r.tables[name].Clone()
	}
	return out
}

// Len returns the number of registered tables.
func (r *Registry) Len() int {
	return len(r.tables)
}

// Refreshes returns how many times the registry was reloaded from the store.
func (r *Registry) Refreshes() int {
	return r.refreshes
}
