package queryspec

import (
	"errors"
	"fmt"
)

// ErrorCode categorizes query errors.
type ErrorCode string

const (
	// ErrCodeMalformedQuery indicates invalid JSON or a missing/invalid
	// required key such as fields.
	ErrCodeMalformedQuery ErrorCode = "MALFORMED_QUERY"

	// ErrCodeUnknownOperator indicates a where-condition operator outside
	// eq, ne, gte, lte, gt, lt, start, end, contain.
	ErrCodeUnknownOperator ErrorCode = "UNKNOWN_OPERATOR"

	// ErrCodeUnknownColumn indicates a table or field the schema registry
	// does not know.
	ErrCodeUnknownColumn ErrorCode = "UNKNOWN_COLUMN"

	// ErrCodeInvalidLimit indicates a limit window with negative bounds or
	// end before start.
	ErrCodeInvalidLimit ErrorCode = "INVALID_LIMIT"

	// ErrCodeMergeSection indicates a result row section that could not be
	// merged. It is logged, never returned from a run.
	ErrCodeMergeSection ErrorCode = "MERGE_SECTION"
)

// Error is a typed query failure. Path locates the offending key in the
// query document (e.g. "where[0].conditions[1].operator").
type Error struct {
	Code    ErrorCode
	Message string
	Path    string
	Table   string
	Field   string
	Err     error
}

// Error implements the error interface.
func (e *Error) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Code, e.Message)
	if e.Path != "" {
		msg = fmt.Sprintf("%s: %s (at %s)", e.Code, e.Message, e.Path)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Err
}

// Malformed creates a MALFORMED_QUERY error.
func Malformed(path, format string, args ...any) *Error {
	return &Error{
		Code:    ErrCodeMalformedQuery,
		Message: fmt.Sprintf(format, args...),
		Path:    path,
	}
}

// UnknownOperator creates an UNKNOWN_OPERATOR error.
func UnknownOperator(path, table, field, operator string) *Error {
	return &Error{
		Code:    ErrCodeUnknownOperator,
		Message: fmt.Sprintf("unknown operator %q", operator),
		Path:    path,
		Table:   table,
		Field:   field,
	}
}

// UnknownColumn wraps a schema lookup failure.
func UnknownColumn(path, table, field string, err error) *Error {
	return &Error{
		Code:    ErrCodeUnknownColumn,
		Message: fmt.Sprintf("unknown column %s.%s", table, field),
		Path:    path,
		Table:   table,
		Field:   field,
		Err:     err,
	}
}

// MergeSection creates a MERGE_SECTION error for a row section.
func MergeSection(section, reason string) *Error {
	return &Error{
		Code:    ErrCodeMergeSection,
		Message: reason,
		Table:   section,
	}
}

// CodeOf returns the ErrorCode carried by err, or "" if err is not an *Error.
// Uses errors.As to handle wrapped errors.
func CodeOf(err error) ErrorCode {
	var qe *Error
	if errors.As(err, &qe) {
		return qe.Code
	}
	return ""
}

// IsMalformedQuery returns true if err is a MALFORMED_QUERY error.
func IsMalformedQuery(err error) bool {
	return CodeOf(err) == ErrCodeMalformedQuery
}

// IsUnknownOperator returns true if err is an UNKNOWN_OPERATOR error.
func IsUnknownOperator(err error) bool {
	return CodeOf(err) == ErrCodeUnknownOperator
}

// IsUnknownColumn returns true if err is an UNKNOWN_COLUMN error.
func IsUnknownColumn(err error) bool {
	return CodeOf(err) == ErrCodeUnknownColumn
}
