package resource

import (
	"errors"
	"fmt"

	"github.com/lumen-foundation/lumen/internal/remote"
)

// Kind is the classification surfaced to callers of a Store.
type Kind string

const (
	KindSchemaMissing    Kind = "schema_missing"
	KindPermissionDenied Kind = "permission_denied"
	KindUniqueConflict   Kind = "unique_conflict"
	KindNotFound         Kind = "not_found"
	KindInvalid          Kind = "invalid"
	KindUnknown          Kind = "unknown"
)

// Error is a classified store failure carrying a display message.
type Error struct {
	Kind     Kind
	Resource string
	Op       string
	Err      error
}

func (e *Error) Error() string { return e.Message() }

func (e *Error) Unwrap() error { return e.Err }

// Message renders a human-readable explanation naming the resource.
func (e *Error) Message() string {
	switch e.Kind {
	case KindSchemaMissing:
		return fmt.Sprintf("The %s collection is not available yet. Ask an administrator to finish setting it up.", e.Resource)
	case KindPermissionDenied:
		return fmt.Sprintf("You do not have permission to %s %s.", verb(e.Op), e.Resource)
	case KindUniqueConflict:
		return fmt.Sprintf("An entry with the same details already exists in %s.", e.Resource)
	case KindNotFound:
		return fmt.Sprintf("The requested entry no longer exists in %s.", e.Resource)
	case KindInvalid:
		if e.Err != nil {
			return fmt.Sprintf("The %s entry is not valid: %s", e.Resource, e.Err.Error())
		}
		return fmt.Sprintf("The %s entry is not valid.", e.Resource)
	default:
		return fmt.Sprintf("Could not %s %s. Please try again.", verb(e.Op), e.Resource)
	}
}

// KindOf returns the classification of err, or KindUnknown.
func KindOf(err error) Kind {
	var serr *Error
	if errors.As(err, &serr) {
		return serr.Kind
	}
	return KindUnknown
}

// classify maps the backend code onto the store taxonomy.
func classify(resource, op string, err error) *Error {
	kind := KindUnknown
	switch remote.CodeOf(err) {
	case remote.CodeMissingTable, remote.CodeMissingColumn:
		kind = KindSchemaMissing
	case remote.CodePermissionDenied:
		kind = KindPermissionDenied
	case remote.CodeUniqueConflict:
		kind = KindUniqueConflict
	case remote.CodeNotFound:
		kind = KindNotFound
	}
	return &Error{Kind: kind, Resource: resource, Op: op, Err: err}
}

// classifyList collapses list failures to SchemaMissing or Unknown; the
// ordering-fallback chain has already absorbed everything recoverable.
func classifyList(resource string, err error) *Error {
	kind := KindUnknown
	if remote.IsSchemaMissing(err) {
		kind = KindSchemaMissing
	}
	return &Error{Kind: kind, Resource: resource, Op: opList, Err: err}
}

const (
	opList   = "list"
	opCreate = "create"
	opUpdate = "update"
	opDelete = "delete"
	opWhere  = "where"
	opCount  = "count"
)

func verb(op string) string {
	switch op {
	case opList, opWhere:
		return "load"
	case opCount:
		return "count"
	case opCreate:
		return "add to"
	case opUpdate:
		return "update"
	case opDelete:
		return "delete from"
	default:
		return "change"
	}
}
