// Package errors provides structured error types for dictdb.
// All errors include a category, code, message, and retryable flag so the
// engine can reason about a closed taxonomy instead of raw driver text.
package errors

import (
	"errors"
	"fmt"
)

// ErrorCategory classifies errors by the layer that raised them.
type ErrorCategory string

const (
	ErrCategoryValidation ErrorCategory = "VALIDATION"
	ErrCategorySchema     ErrorCategory = "SCHEMA"
	ErrCategoryStore      ErrorCategory = "STORE"
	ErrCategoryInternal   ErrorCategory = "INTERNAL"
)

// Error codes for each category.
const (
	// Validation codes
	CodeInvalidKey          = "INVALID_KEY"
	CodeMalformedDescriptor = "MALFORMED_DESCRIPTOR"
	CodeUnsupportedType     = "UNSUPPORTED_TYPE"

	// Schema codes
	CodeUnsupportedMigration = "UNSUPPORTED_MIGRATION"
	CodeSchemaMismatch       = "SCHEMA_MISMATCH"
	CodeTableNotFound        = "TABLE_NOT_FOUND"

	// Store codes
	CodeUniquenessViolation = "UNIQUENESS_VIOLATION"
	CodeStoreFatal          = "STORE_FATAL"

	// Internal codes
	CodeUnexpected = "UNEXPECTED"
)

// Sentinels for errors.Is matching and for per-call ignorable error sets.
var (
	ErrInvalidKey           = New(ErrCategoryValidation, CodeInvalidKey, "invalid key")
	ErrMalformedDescriptor  = New(ErrCategoryValidation, CodeMalformedDescriptor, "malformed descriptor")
	ErrUnsupportedType      = New(ErrCategoryValidation, CodeUnsupportedType, "unsupported type")
	ErrUnsupportedMigration = New(ErrCategorySchema, CodeUnsupportedMigration, "unsupported migration")
	ErrSchemaMismatch       = New(ErrCategorySchema, CodeSchemaMismatch, "schema mismatch")
	ErrTableNotFound        = New(ErrCategorySchema, CodeTableNotFound, "table not found")
	ErrUniquenessViolation  = New(ErrCategoryStore, CodeUniquenessViolation, "uniqueness violation")
	ErrStoreFatal           = New(ErrCategoryStore, CodeStoreFatal, "store error")
)

// DictError is the structured error type used throughout the system.
type DictError struct {
	Category  ErrorCategory
	Code      string
	Message   string
	Details   map[string]interface{}
	Cause     error
	Retryable bool
}

// Error returns a formatted error string.
func (e *DictError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s:%s] %s: %v", e.Category, e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s:%s] %s", e.Category, e.Code, e.Message)
}

// Unwrap returns the underlying cause for errors.Is/As compatibility.
func (e *DictError) Unwrap() error {
	return e.Cause
}

// Is reports whether the target matches this error's category and code.
func (e *DictError) Is(target error) bool {
	var t *DictError
	if errors.As(target, &t) {
		return e.Category == t.Category && e.Code == t.Code
	}
	return false
}

// New creates a new DictError.
func New(category ErrorCategory, code, message string) *DictError {
	return &DictError{
		Category:  category,
		Code:      code,
		Message:   message,
		Retryable: isRetryable(category, code),
	}
}

// Wrap creates a new DictError wrapping an existing error.
func Wrap(category ErrorCategory, code, message string, cause error) *DictError {
	return &DictError{
		Category:  category,
		Code:      code,
		Message:   message,
		Cause:     cause,
		Retryable: isRetryable(category, code),
	}
}

// WithDetails returns a copy of the error with additional details.
func (e *DictError) WithDetails(details map[string]interface{}) *DictError {
	cp := *e
	cp.Details = details
	return &cp
}

// Detail returns a single detail value, or nil.
func (e *DictError) Detail(key string) interface{} {
	if e.Details == nil {
		return nil
	}
	return e.Details[key]
}

// IsRetryable checks whether an error (or its chain) can be recovered inside
// the engine: a missing column or a uniqueness conflict.
func IsRetryable(err error) bool {
	var de *DictError
	if errors.As(err, &de) {
		return de.Retryable
	}
	return false
}

// GetCategory extracts the error category from an error chain.
// Returns empty string if the error is not a DictError.
func GetCategory(err error) ErrorCategory {
	var de *DictError
	if errors.As(err, &de) {
		return de.Category
	}
	return ""
}

// GetCode extracts the error code from an error chain.
// Returns empty string if the error is not a DictError.
func GetCode(err error) string {
	var de *DictError
	if errors.As(err, &de) {
		return de.Code
	}
	return ""
}

// FromCode returns the sentinel for a code name, used when ignorable error
// sets come from configuration.
func FromCode(code string) (*DictError, bool) {
	for _, s := range []*DictError{
		ErrInvalidKey, ErrMalformedDescriptor, ErrUnsupportedType,
		ErrUnsupportedMigration, ErrSchemaMismatch, ErrTableNotFound,
		ErrUniquenessViolation, ErrStoreFatal,
	} {
		if s.Code == code {
			return s, true
		}
	}
	return nil, false
}

func isRetryable(category ErrorCategory, code string) bool {
	switch {
	case category == ErrCategorySchema && code == CodeSchemaMismatch:
		return true
	case category == ErrCategoryStore && code == CodeUniquenessViolation:
		return true
	default:
		return false
	}
}

// Convenience constructors for common errors.

func NewInvalidKey(message string) *DictError {
	return New(ErrCategoryValidation, CodeInvalidKey, message)
}

func NewMalformedDescriptor(message string) *DictError {
	return New(ErrCategoryValidation, CodeMalformedDescriptor, message)
}

func NewUnsupportedType(message string) *DictError {
	return New(ErrCategoryValidation, CodeUnsupportedType, message)
}

func NewUnsupportedMigration(message string) *DictError {
	return New(ErrCategorySchema, CodeUnsupportedMigration, message)
}

func NewTableNotFound(table string) *DictError {
	return New(ErrCategorySchema, CodeTableNotFound, fmt.Sprintf("no table named %q", table)).
		WithDetails(map[string]interface{}{"table": table})
}

func NewStoreFatal(message string, cause error) *DictError {
	return Wrap(ErrCategoryStore, CodeStoreFatal, message, cause)
}

func NewInternalError(message string, cause error) *DictError {
	return Wrap(ErrCategoryInternal, CodeUnexpected, message, cause)
}
