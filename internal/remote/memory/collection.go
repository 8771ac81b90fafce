// Package memory implements remote.Collection in process memory. It backs
// tests and demo installs, and can simulate schema drift and backend failures.
package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/lumen-foundation/lumen/internal/remote"
)

// Op names a collection operation for failure injection and call records.
type Op string

const (
	OpSelect Op = "select"
	OpInsert Op = "insert"
	OpUpdate Op = "update"
	OpDelete Op = "delete"
	OpCount  Op = "count"
)

// Call records one invocation against the collection.
type Call struct {
	Op    Op
	Query remote.Query
	ID    int64
}

// Option configures a Collection.
type Option func(*options)

type options struct {
	columns []string
	missing bool
	clock   func() time.Time
}

// WithColumns restricts the simulated schema to the named columns ("id" is
// always present). Without it every column is accepted.
func WithColumns(columns ...string) Option {
	return func(o *options) { o.columns = columns }
}

// WithoutTable makes every call fail as if the table did not exist.
func WithoutTable() Option {
	return func(o *options) { o.missing = true }
}

// WithClock overrides the clock used for created_at.
func WithClock(clock func() time.Time) Option {
	return func(o *options) { o.clock = clock }
}

// Collection is an in-memory remote.Collection.
type Collection[T any] struct {
	name     string
	columns  map[string]struct{}
	missing  bool
	clock    func() time.Time
	mu       sync.Mutex
	rows     []remote.Values
	nextID   int64
	failures map[Op][]error
	calls    []Call
}

var _ remote.Collection[struct{}] = (*Collection[struct{}])(nil)

// New constructs an empty collection.
func New[T any](name string, opts ...Option) *Collection[T] {
	o := options{clock: func() time.Time { return time.Now().UTC() }}
	for _, opt := range opts {
		opt(&o)
	}
	c := &Collection[T]{
		name:     name,
		missing:  o.missing,
		clock:    o.clock,
		nextID:   1,
		failures: make(map[Op][]error),
	}
	if len(o.columns) > 0 {
		c.columns = map[string]struct{}{"id": {}}
		for _, col := range o.columns {
			c.columns[col] = struct{}{}
		}
	}
	return c
}

// Name returns the table name.
func (c *Collection[T]) Name() string { return c.name }

// FailNext queues err to be returned by the next call of op.
func (c *Collection[T]) FailNext(op Op, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.failures[op] = append(c.failures[op], err)
}

// Calls returns the recorded invocations in order.
func (c *Collection[T]) Calls() []Call {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Call, len(c.calls))
	copy(out, c.calls)
	return out
}

// Seed stores rows as-is. Rows carrying an id keep it.
func (c *Collection[T]) Seed(rows ...T) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, row := range rows {
		values, err := remote.ValuesOf(row)
		if err != nil {
			return err
		}
		id := toInt64(values["id"])
		if id == 0 {
			id = c.nextID
		}
		values["id"] = id
		if id >= c.nextID {
			c.nextID = id + 1
		}
		c.rows = append(c.rows, values)
	}
	return nil
}

// Select returns matching rows.
func (c *Collection[T]) Select(_ context.Context, q remote.Query) ([]T, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls = append(c.calls, Call{Op: OpSelect, Query: q})
	if err := c.precheck(OpSelect); err != nil {
		return nil, err
	}
	for _, f := range q.Filters {
		if err := c.checkColumn(f.Column); err != nil {
			return nil, err
		}
	}
	if q.Order != nil {
		if err := c.checkColumn(q.Order.Column); err != nil {
			return nil, err
		}
	}

	matched := c.filter(q.Filters)
	if q.Order != nil {
		col, desc := q.Order.Column, q.Order.Descending
		sort.SliceStable(matched, func(i, j int) bool {
			cmp := compare(matched[i][col], matched[j][col])
			if desc {
				return cmp > 0
			}
			return cmp < 0
		})
	}
	if q.Limit > 0 && len(matched) > q.Limit {
		matched = matched[:q.Limit]
	}
	out := make([]T, 0, len(matched))
	for _, values := range matched {
		row, err := remote.DecodeMap[T](values)
		if err != nil {
			return nil, err
		}
		out = append(out, row)
	}
	return out, nil
}

// Insert stores a new row with a fresh id and created_at.
func (c *Collection[T]) Insert(_ context.Context, values remote.Values) (T, error) {
	var zero T
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls = append(c.calls, Call{Op: OpInsert})
	if err := c.precheck(OpInsert); err != nil {
		return zero, err
	}
	for _, col := range values.Columns() {
		if err := c.checkColumn(col); err != nil {
			return zero, err
		}
	}
	row := values.Without("id")
	row["id"] = c.nextID
	c.nextID++
	if _, set := row["created_at"]; !set && c.hasColumn("created_at") {
		row["created_at"] = c.clock().Format(time.RFC3339Nano)
	}
	c.rows = append(c.rows, row)
	return remote.DecodeMap[T](row)
}

// Update merges values into the row with id.
func (c *Collection[T]) Update(_ context.Context, id int64, values remote.Values) (T, error) {
	var zero T
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls = append(c.calls, Call{Op: OpUpdate, ID: id})
	if err := c.precheck(OpUpdate); err != nil {
		return zero, err
	}
	for _, col := range values.Columns() {
		if err := c.checkColumn(col); err != nil {
			return zero, err
		}
	}
	for _, row := range c.rows {
		if toInt64(row["id"]) != id {
			continue
		}
		for col, val := range values.Without("id") {
			row[col] = val
		}
		return remote.DecodeMap[T](row)
	}
	return zero, remote.NewError(remote.CodeNotFound, fmt.Sprintf("%s: no row with id %d", c.name, id), nil)
}

// Delete removes the row with id if present.
func (c *Collection[T]) Delete(_ context.Context, id int64) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls = append(c.calls, Call{Op: OpDelete, ID: id})
	if err := c.precheck(OpDelete); err != nil {
		return err
	}
	for i, row := range c.rows {
		if toInt64(row["id"]) == id {
			c.rows = append(c.rows[:i], c.rows[i+1:]...)
			return nil
		}
	}
	return nil
}

// Count returns the number of matching rows.
func (c *Collection[T]) Count(_ context.Context, filters ...remote.Filter) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls = append(c.calls, Call{Op: OpCount, Query: remote.Query{Filters: filters}})
	if err := c.precheck(OpCount); err != nil {
		return 0, err
	}
	for _, f := range filters {
		if err := c.checkColumn(f.Column); err != nil {
			return 0, err
		}
	}
	return int64(len(c.filter(filters))), nil
}

func (c *Collection[T]) precheck(op Op) error {
	if queued := c.failures[op]; len(queued) > 0 {
		c.failures[op] = queued[1:]
		return queued[0]
	}
	if c.missing {
		return remote.NewError(remote.CodeMissingTable, fmt.Sprintf("relation %q does not exist", c.name), nil)
	}
	return nil
}

func (c *Collection[T]) hasColumn(col string) bool {
	if c.columns == nil {
		return true
	}
	_, ok := c.columns[col]
	return ok
}

func (c *Collection[T]) checkColumn(col string) error {
	if c.hasColumn(col) {
		return nil
	}
	return remote.NewError(remote.CodeMissingColumn, fmt.Sprintf("column %s.%s does not exist", c.name, col), nil)
}

func (c *Collection[T]) filter(filters []remote.Filter) []remote.Values {
	var out []remote.Values
	for _, row := range c.rows {
		if matches(row, filters) {
			out = append(out, row)
		}
	}
	return out
}

func matches(row remote.Values, filters []remote.Filter) bool {
	for _, f := range filters {
		if fmt.Sprint(row[f.Column]) != fmt.Sprint(f.Value) {
			return false
		}
	}
	return true
}

func compare(a, b any) int {
	af, aNum := toFloat(a)
	bf, bNum := toFloat(b)
	if aNum && bNum {
		switch {
		case af < bf:
			return -1
		case af > bf:
			return 1
		default:
			return 0
		}
	}
	as, bs := fmt.Sprint(a), fmt.Sprint(b)
	switch {
	case as < bs:
		return -1
	case as > bs:
		return 1
	default:
		return 0
	}
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int64:
		return float64(n), true
	case int:
		return float64(n), true
	case float64:
		return n, true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	default:
		return 0, false
	}
}

func toInt64(v any) int64 {
	switch n := v.(type) {
	case int64:
		return n
	case int:
		return int64(n)
	case float64:
		return int64(n)
	case json.Number:
		i, _ := n.Int64()
		return i
	case string:
		i, _ := strconv.ParseInt(n, 10, 64)
		return i
	default:
		return 0
	}
}
