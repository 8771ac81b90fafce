package remote

import (
	"errors"
	"fmt"
)

// Code is the machine classification attached to every backend failure.
// Callers branch on the code, never on the message text.
type Code string

const (
	CodeMissingTable     Code = "schema_missing_table"
	CodeMissingColumn    Code = "schema_missing_column"
	CodePermissionDenied Code = "permission_denied"
	CodeUniqueConflict   Code = "unique_conflict"
	CodeNotFound         Code = "not_found"
	CodeUnknown          Code = "unknown"
)

// Error is a classified backend failure.
type Error struct {
	Code    Code
	Message string
	Err     error
}

// NewError builds a classified error wrapping cause.
func NewError(code Code, message string, cause error) *Error {
	return &Error{Code: code, Message: message, Err: cause}
}

func (e *Error) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("remote: %s", e.Code)
	}
	return fmt.Sprintf("remote: %s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// CodeOf extracts the classification of err. Unclassified errors report
// CodeUnknown; a nil error reports the empty code.
func CodeOf(err error) Code {
	if err == nil {
		return ""
	}
	var rerr *Error
	if errors.As(err, &rerr) {
		return rerr.Code
	}
	return CodeUnknown
}

// IsSchemaMissing reports a missing table or column.
func IsSchemaMissing(err error) bool {
	code := CodeOf(err)
	return code == CodeMissingTable || code == CodeMissingColumn
}
