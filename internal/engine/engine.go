// Package engine turns schemaless records into tables and rows. It owns the
// catalog registry and statement cache of one store and serializes every
// statement, schema change and cache access behind a single mutex.
package engine

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/dictdb/dictdb/internal/catalog"
	dberrors "github.com/dictdb/dictdb/internal/errors"
	"github.com/dictdb/dictdb/internal/observability"
	"github.com/dictdb/dictdb/internal/statement"
	"github.com/dictdb/dictdb/internal/store"
	"github.com/dictdb/dictdb/pkg/types"
)

// Config holds the engine-wide defaults that individual calls may override.
type Config struct {
	// InsertTime adds an insert_time column to generated tables
	InsertTime bool `yaml:"insert_time" json:"insert_time"`

	// UpdateTime adds an update_time column to generated tables and stamps it on updates
	UpdateTime bool `yaml:"update_time" json:"update_time"`

	// Export adds an export flag column to generated tables
	Export bool `yaml:"export" json:"export"`

	// AutoCommit commits at the end of every call
	AutoCommit bool `yaml:"auto_commit" json:"auto_commit"`

	// AutoAlter adds missing columns when a statement names them
	AutoAlter bool `yaml:"auto_alter" json:"auto_alter"`

	// AutoUpdateTime stamps update_time on conflict updates
	AutoUpdateTime bool `yaml:"auto_update_time" json:"auto_update_time"`
}

// DefaultConfig returns the default engine configuration.
func DefaultConfig() Config {
	return Config{
		InsertTime:     true,
		UpdateTime:     true,
		Export:         true,
		AutoCommit:     true,
		AutoAlter:      true,
		AutoUpdateTime: true,
	}
}

// Engine is the record store. It is safe for concurrent use.
type Engine struct {
	mu       sync.Mutex
	db       *store.DB
	cfg      Config
	registry *catalog.Registry
	cache    *statement.Cache
	tx       *sql.Tx
	closed   bool

	counters observability.Counters
	filters  *observability.FilterStats
	now      func() time.Time
}

// New creates an engine over an open store and loads the registry from the
// store catalog. The engine takes ownership of db.
func New(ctx context.Context, db *store.DB, cfg Config) (*Engine, error) {
	e := &Engine{
		db:       db,
		cfg:      cfg,
		registry: catalog.NewRegistry(),
		cache:    statement.NewCache(),
		filters:  observability.NewFilterStats(time.Hour),
		now:      time.Now,
	}
	if err := e.registry.Refresh(ctx, db.SQL()); err != nil {
		return nil, err
	}
	log.Printf("engine: loaded %d table(s) from %s (%s driver)", e.registry.Len(), db.Path(), db.Driver())
	return e, nil
}

// Open opens the store at path and creates an engine over it.
func Open(ctx context.Context, path string, opts store.Options, cfg Config) (*Engine, error) {
	db, err := store.Open(path, opts)
	if err != nil {
		return nil, err
	}
	e, err := New(ctx, db, cfg)
	if err != nil {
		db.Close()
		return nil, err
	}
	return e, nil
}

// Config returns the engine-wide defaults.
func (e *Engine) Config() Config {
	return e.cfg
}

// Filters returns the filter column usage tracker.
func (e *Engine) Filters() *observability.FilterStats {
	return e.filters
}

func (e *Engine) checkOpen() error {
	if e.closed {
		return dberrors.New(dberrors.ErrCategoryInternal, dberrors.CodeUnexpected, "engine is closed")
	}
	return nil
}

// execer returns the open transaction, or the database when none is open.
func (e *Engine) execer() store.Execer {
	if e.tx != nil {
		return e.tx
	}
	return e.db.SQL()
}

// begin opens the implicit transaction statements run in. The transaction
// outlives the call that opened it when commit is deferred, so it must not
// be bound to the caller's context.
func (e *Engine) begin(ctx context.Context) error {
	if e.tx != nil {
		return nil
	}
	tx, err := e.db.Begin(context.WithoutCancel(ctx))
	if err != nil {
		return err
	}
	e.tx = tx
	return nil
}

func (e *Engine) commitLocked(ctx context.Context) error {
	if e.tx == nil {
		return nil
	}
	tx := e.tx
	e.tx = nil
	if err := tx.Commit(); err != nil {
		log.Printf("[ERROR] engine: commit failed: %v", err)
		if rerr := e.registry.Refresh(ctx, e.db.SQL()); rerr != nil {
			log.Printf("[ERROR] engine: registry refresh after failed commit: %v", rerr)
		}
		return store.Translate(err)
	}
	return nil
}

// finish ends a call: it commits when asked to, including the statements
// that ran before a failure, and returns the call's error first.
func (e *Engine) finish(ctx context.Context, commit bool, opErr error) error {
	if opErr != nil {
		e.counters.Failure()
	}
	if !commit {
		return opErr
	}
	if err := e.commitLocked(ctx); err != nil && opErr == nil {
		return err
	}
	return opErr
}

func (e *Engine) refresh(ctx context.Context) error {
	return e.registry.Refresh(ctx, e.execer())
}

// Commit commits the open transaction, if any.
func (e *Engine) Commit(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.commitLocked(ctx)
}

// Close commits pending work and closes the store.
func (e *Engine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return nil
	}
	e.closed = true
	cerr := e.commitLocked(context.Background())
	if err := e.db.Close(); err != nil {
		return fmt.Errorf("engine: close store: %w", err)
	}
	return cerr
}

// Tables returns a snapshot of the known table schemas.
func (e *Engine) Tables() []types.TableSchema {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.registry.Tables()
}

// Table returns the schema of one table.
func (e *Engine) Table(name string) (types.TableSchema, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.registry.Lookup(name)
}

// Stats returns the engine counters.
func (e *Engine) Stats() observability.Snapshot {
	e.mu.Lock()
	cs := e.cache.Stats()
	tables := e.registry.Len()
	e.mu.Unlock()

	s := e.counters.Snapshot()
	s.CacheHits = cs.Hits
	s.CacheMisses = cs.Misses
	s.CacheEntries = cs.Entries
	s.Tables = tables
	s.TopFilters = e.filters.Top(10)
	return s
}

// Exec runs a statement as is. Schema statements refresh the registry.
// The statement is committed when the engine auto-commits.
func (e *Engine) Exec(ctx context.Context, query string, args ...any) (int64, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.checkOpen(); err != nil {
		return 0, err
	}
	if err := e.begin(ctx); err != nil {
		return 0, err
	}
	n, err := store.Exec(ctx, e.tx, query, args...)
	if err == nil && isSchemaStatement(query) {
		err = e.refresh(ctx)
	}
	return n, e.finish(ctx, e.cfg.AutoCommit, err)
}

// ExecScript runs a script of statements as is and refreshes the registry.
func (e *Engine) ExecScript(ctx context.Context, script string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.checkOpen(); err != nil {
		return err
	}
	if err := e.begin(ctx); err != nil {
		return err
	}
	err := store.ExecScript(ctx, e.tx, script)
	if err == nil {
		err = e.refresh(ctx)
	}
	return e.finish(ctx, e.cfg.AutoCommit, err)
}

// Query runs a query as is and decodes the rows.
func (e *Engine) Query(ctx context.Context, query string, args ...any) ([]types.Record, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if err := e.checkOpen(); err != nil {
		return nil, err
	}
	return store.QueryRecords(ctx, e.execer(), query, args...)
}

func isSchemaStatement(query string) bool {
	fields := strings.Fields(query)
	if len(fields) == 0 {
		return false
	}
	switch strings.ToLower(fields[0]) {
	case "create", "alter", "drop":
		return true
	}
	return false
}
