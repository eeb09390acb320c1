//go:build !purego

package store

import (
	"errors"
	"fmt"
	"net/url"

	sqlite3 "github.com/mattn/go-sqlite3"
)

const driverName = "sqlite3"

func dsn(path string, opts Options) string {
	q := url.Values{}
	q.Set("_busy_timeout", fmt.Sprintf("%d", opts.BusyTimeout.Milliseconds()))
	if opts.JournalMode != "" {
		q.Set("_journal_mode", opts.JournalMode)
	}
	return path + "?" + q.Encode()
}

func isUniqueViolation(err error) bool {
	var se sqlite3.Error
	if !errors.As(err, &se) {
		return false
	}
	return se.ExtendedCode == sqlite3.ErrConstraintUnique ||
		se.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
}
