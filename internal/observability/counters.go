package observability

import "sync/atomic"

// Counters are the engine's running totals. All methods are safe for
// concurrent use.
type Counters struct {
	recordsWritten  atomic.Int64
	rowsAffected    atomic.Int64
	tablesCreated   atomic.Int64
	columnsAdded    atomic.Int64
	migrations      atomic.Int64
	conflictUpdates atomic.Int64
	ignoredErrors   atomic.Int64
	failures        atomic.Int64
}

// Snapshot is a point-in-time copy of the counters plus cache figures.
type Snapshot struct {
	RecordsWritten  int64 `json:"records_written"`
	RowsAffected    int64 `json:"rows_affected"`
	TablesCreated   int64 `json:"tables_created"`
	ColumnsAdded    int64 `json:"columns_added"`
	Migrations      int64 `json:"migrations"`
	ConflictUpdates int64 `json:"conflict_updates"`
	IgnoredErrors   int64 `json:"ignored_errors"`
	Failures        int64 `json:"failures"`

	CacheHits    int64 `json:"statement_cache_hits"`
	CacheMisses  int64 `json:"statement_cache_misses"`
	CacheEntries int   `json:"statement_cache_entries"`
	Tables       int   `json:"tables"`

	TopFilters []ColumnStats `json:"top_filters,omitempty"`
}

func (c *Counters) RecordWritten(rows int64) {
	c.recordsWritten.Add(1)
	c.rowsAffected.Add(rows)
}

func (c *Counters) RowsAffected(rows int64) { c.rowsAffected.Add(rows) }
func (c *Counters) TableCreated()           { c.tablesCreated.Add(1) }
func (c *Counters) ConflictUpdate()         { c.conflictUpdates.Add(1) }
func (c *Counters) IgnoredError()           { c.ignoredErrors.Add(1) }
func (c *Counters) Failure()                { c.failures.Add(1) }

// Migration records one ALTER batch adding n columns.
func (c *Counters) Migration(n int) {
	c.migrations.Add(1)
	c.columnsAdded.Add(int64(n))
}

// Snapshot copies the counters.
func (c *Counters) Snapshot() Snapshot {
	return Snapshot{
		RecordsWritten:  c.recordsWritten.Load(),
		RowsAffected:    c.rowsAffected.Load(),
		TablesCreated:   c.tablesCreated.Load(),
		ColumnsAdded:    c.columnsAdded.Load(),
		Migrations:      c.migrations.Load(),
		ConflictUpdates: c.conflictUpdates.Load(),
		IgnoredErrors:   c.ignoredErrors.Load(),
		Failures:        c.failures.Load(),
	}
}
