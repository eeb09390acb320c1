// Package store is the boundary to the embedded SQLite database: opening it,
// reading the catalog of existing tables, executing generated statements and
// classifying driver errors.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// Execer is the subset of *sql.DB and *sql.Tx the engine runs statements
// through. Passing the open transaction keeps every statement of a batch on
// the single store connection.
type Execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	PrepareContext(ctx context.Context, query string) (*sql.Stmt, error)
}

// Options tune how the database is opened.
type Options struct {
	// BusyTimeout is how long a statement waits on a locked database
	BusyTimeout time.Duration

	// JournalMode is the SQLite journal mode, e.g. WAL or DELETE
	JournalMode string
}

// DefaultOptions returns the options used when none are given.
func DefaultOptions() Options {
	return Options{
		BusyTimeout: 5 * time.Second,
		JournalMode: "WAL",
	}
}

// DB is an open store.
type DB struct {
	db   *sql.DB
	path string
}

// Open opens (creating if needed) the database at path. ":memory:" opens a
// private in-memory database. The pool is pinned to one connection: SQLite
// has a single writer and an in-memory database lives only as long as its
// connection.
func Open(path string, opts Options) (*DB, error) {
	if path == "" {
		return nil, fmt.Errorf("store: empty database path")
	}
	if opts.BusyTimeout <= 0 {
		opts.BusyTimeout = DefaultOptions().BusyTimeout
	}
	if path == ":memory:" {
		opts.JournalMode = ""
	}

	db, err := sql.Open(driverName, dsn(path, opts))
	if err != nil {
		return nil, fmt.Errorf("store: failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)
	db.SetConnMaxIdleTime(0)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("store: failed to connect: %w", err)
	}
	return &DB{db: db, path: path}, nil
}

// SQL returns the underlying handle.
func (d *DB) SQL() *sql.DB {
	return d.db
}

// Path returns the path the database was opened with.
func (d *DB) Path() string {
	return d.path
}

// Driver returns the name of the registered database/sql driver in use.
func (d *DB) Driver() string {
	return driverName
}

// Begin starts a transaction.
func (d *DB) Begin(ctx context.Context) (*sql.Tx, error) {
	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, Translate(err)
	}
	return tx, nil
}

// Close closes the database.
func (d *DB) Close() error {
	return d.db.Close()
}

// ExecScript runs a script of one or more ';'-terminated statements.
func ExecScript(ctx context.Context, ex Execer, script string) error {
	if _, err := ex.ExecContext(ctx, script); err != nil {
		return Translate(err)
	}
	return nil
}

// Exec runs a single statement and returns the number of affected rows.
func Exec(ctx context.Context, ex Execer, query string, args ...any) (int64, error) {
	res, err := ex.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, Translate(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, nil
	}
	return n, nil
}

// ExecMany runs one prepared statement once per argument row and returns the
// total number of affected rows. It stops at the first failing row; the
// returned count covers the rows executed before it.
func ExecMany(ctx context.Context, ex Execer, query string, rows [][]any) (int64, error) {
	stmt, err := ex.PrepareContext(ctx, query)
	if err != nil {
		return 0, Translate(err)
	}
	defer stmt.Close()

	var total int64
	for _, args := range rows {
		res, err := stmt.ExecContext(ctx, args...)
		if err != nil {
			return total, Translate(err)
		}
		if n, err := res.RowsAffected(); err == nil {
			total += n
		}
	}
	return total, nil
}
