package store

import (
	"errors"
	"strings"

	dberrors "github.com/dictdb/dictdb/internal/errors"
)

const uniqueMarker = "UNIQUE constraint failed: "

// Translate classifies a driver error. Missing columns become
// SCHEMA_MISMATCH, uniqueness and primary key conflicts become
// UNIQUENESS_VIOLATION carrying the conflicting columns, a missing table
// becomes TABLE_NOT_FOUND and everything else is STORE_FATAL. Errors that
// are already classified pass through.
func Translate(err error) error {
	if err == nil {
		return nil
	}
	var de *dberrors.DictError
	if errors.As(err, &de) {
		return err
	}

	msg := err.Error()
	switch {
	case isMissingColumn(msg):
		return dberrors.Wrap(dberrors.ErrCategorySchema, dberrors.CodeSchemaMismatch, msg, err)
	case isUniqueViolation(err) || strings.Contains(msg, uniqueMarker):
		return dberrors.Wrap(dberrors.ErrCategoryStore, dberrors.CodeUniquenessViolation, msg, err).
			WithDetails(map[string]interface{}{"columns": ConflictColumns(msg)})
	case strings.Contains(msg, "no such table: "):
		table := strings.TrimSpace(msg[strings.Index(msg, "no such table: ")+len("no such table: "):])
		if i := strings.IndexAny(table, " ("); i >= 0 {
			table = table[:i]
		}
		return dberrors.Wrap(dberrors.ErrCategorySchema, dberrors.CodeTableNotFound, msg, err).
			WithDetails(map[string]interface{}{"table": table})
	}
	return dberrors.NewStoreFatal("store operation failed", err)
}

func isMissingColumn(msg string) bool {
	return strings.Contains(msg, "no such column") || strings.Contains(msg, "has no column named")
}

// ConflictColumns extracts the bare column names from a uniqueness failure
// message such as "UNIQUE constraint failed: t1.a, t1.b".
func ConflictColumns(msg string) []string {
	i := strings.Index(msg, uniqueMarker)
	if i < 0 {
		return nil
	}
	list := msg[i+len(uniqueMarker):]
	if j := strings.Index(list, " ("); j >= 0 {
		list = list[:j]
	}

	var cols []string
	for _, part := range strings.Split(list, ",") {
		part = strings.TrimSpace(part)
		if dot := strings.LastIndex(part, "."); dot >= 0 {
			part = part[dot+1:]
		}
		if part != "" {
			cols = append(cols, part)
		}
	}
	return cols
}
