// Package remote defines the per-collection query protocol spoken with the
// hosted content backend, plus the helpers its adapters share.
package remote

import "context"

// Filter is an equality predicate on one column.
type Filter struct {
	Column string
	Value  any
}

// Order sorts a select by one column.
type Order struct {
	Column     string
	Descending bool
}

// Query describes a select. A nil Order leaves ordering to the backend.
type Query struct {
	Filters []Filter
	Order   *Order
	Limit   int
}

// OrderBy is shorthand for a single-column ordering.
func OrderBy(column string, descending bool) *Order {
	return &Order{Column: column, Descending: descending}
}

// Values holds column assignments for insert and update.
type Values map[string]any

// Collection is one named table of rows decoded into T.
type Collection[T any] interface {
	Name() string
	Select(ctx context.Context, q Query) ([]T, error)
	// Insert returns the row as stored, including server-assigned columns.
	Insert(ctx context.Context, values Values) (T, error)
	// Update returns the updated row, or a CodeNotFound error when no row has id.
	Update(ctx context.Context, id int64, values Values) (T, error)
	// Delete succeeds even when no row matched.
	Delete(ctx context.Context, id int64) error
	Count(ctx context.Context, filters ...Filter) (int64, error)
}
