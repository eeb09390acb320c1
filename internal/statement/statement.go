// Package statement builds the parameterized SQL the engine executes.
// Insert, replace and update text is cached per table and column signature;
// select and delete are built on every call.
package statement

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/dictdb/dictdb/internal/schema"
)

// Kind is a cached statement kind.
type Kind string

const (
	KindInsert  Kind = "insert"
	KindReplace Kind = "replace"
	KindUpdate  Kind = "update"
)

// Stats counts cache lookups.
type Stats struct {
	Hits    int64
	Misses  int64
	Entries int
}

// Cache holds generated statement text. For a given key the text never
// changes once built. Like the catalog registry it has no locking of its
// own and is owned by one engine.
type Cache struct {
	entries map[Kind]map[string]string
	hits    int64
	misses  int64
}

// NewCache creates an empty cache.
func NewCache() *Cache {
	return &Cache{entries: make(map[Kind]map[string]string)}
}

// InsertKey is the cache key of an insert or replace statement. Names are
// quoted so that no two column lists share a key.
func InsertKey(table string, columns []string) string {
	return quoteList(columns) + "_" + strconv.Quote(table)
}

// UpdateKey is the cache key of an update statement.
func UpdateKey(table string, set, where []string) string {
	return quoteList(set) + "@" + quoteList(where) + "_" + strconv.Quote(table)
}

func quoteList(names []string) string {
	quoted := make([]string, len(names))
	for i, n := range names {
		quoted[i] = strconv.Quote(n)
	}
	return strings.Join(quoted, "-")
}

func (c *Cache) get(kind Kind, key string, build func() string) string {
	m, ok := c.entries[kind]
	if !ok {
		m = make(map[string]string)
		c.entries[kind] = m
	}
	if sql, ok := m[key]; ok {
		c.hits++
		return sql
	}
	c.misses++
	sql := build()
	m[key] = sql
	return sql
}

// Insert returns the insert statement for the columns, in order.
func (c *Cache) Insert(table string, columns []string) string {
	return c.get(KindInsert, InsertKey(table, columns), func() string {
		return buildInsert("insert", table, columns)
	})
}

// Replace returns the insert-or-replace statement for the columns, in order.
func (c *Cache) Replace(table string, columns []string) string {
	return c.get(KindReplace, InsertKey(table, columns), func() string {
		return buildInsert("replace", table, columns)
	})
}

// Update returns the update statement setting set and matching on where.
// Its placeholders take the set values followed by the where values.
func (c *Cache) Update(table string, set, where []string) string {
	return c.get(KindUpdate, UpdateKey(table, set, where), func() string {
		return fmt.Sprintf("update %s set %s%s", schema.Quote(table), assignments(set, ","), whereClause(where))
	})
}

// Stats returns the cache counters.
func (c *Cache) Stats() Stats {
	n := 0
	for _, m := range c.entries {
		n += len(m)
	}
	return Stats{Hits: c.hits, Misses: c.misses, Entries: n}
}

func buildInsert(verb, table string, columns []string) string {
	quoted := make([]string, len(columns))
	for i, col := range columns {
		quoted[i] = schema.Quote(col)
	}
	return fmt.Sprintf("%s into %s(%s) values(%s)",
		verb, schema.Quote(table), strings.Join(quoted, ","), placeholders(len(columns)))
}

// Select builds a select of columns (all when empty) filtered by equality on
// where, in order.
func Select(table string, columns, where []string) string {
	cols := "*"
	if len(columns) > 0 {
		quoted := make([]string, len(columns))
		for i, col := range columns {
			quoted[i] = schema.Quote(col)
		}
		cols = strings.Join(quoted, ",")
	}
	return fmt.Sprintf("select %s from %s%s", cols, schema.Quote(table), whereClause(where))
}

// Delete builds a delete filtered by equality on where. An empty where
// deletes every row.
func Delete(table string, where []string) string {
	return fmt.Sprintf("delete from %s%s", schema.Quote(table), whereClause(where))
}

func placeholders(n int) string {
	if n == 0 {
		return ""
	}
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}

func assignments(columns []string, sep string) string {
	parts := make([]string, len(columns))
	for i, col := range columns {
		parts[i] = schema.Quote(col) + "=?"
	}
	return strings.Join(parts, sep)
}

func whereClause(where []string) string {
	if len(where) == 0 {
		return ""
	}
	return " where " + assignments(where, " and ")
}
