// Package postgres implements remote.Collection on PostgreSQL via pgx.
//
// Rows are projected with to_jsonb and writes are routed through
// jsonb_populate_record, so a record type and its table may disagree on
// optional columns without breaking reads.
package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/lumen-foundation/lumen/internal/remote"
)

// Querier is the subset of pgxpool.Pool the collection needs.
type Querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// Collection is a table-backed remote.Collection.
type Collection[T any] struct {
	db    Querier
	table string
}

// New binds a collection to table.
func New[T any](db Querier, table string) *Collection[T] {
	return &Collection[T]{db: db, table: table}
}

// Name returns the table name.
func (c *Collection[T]) Name() string { return c.table }

// Select returns matching rows.
func (c *Collection[T]) Select(ctx context.Context, q remote.Query) ([]T, error) {
	sql, args := buildSelect(c.table, q)
	rows, err := c.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, classify(c.table, err)
	}
	defer rows.Close()

	var out []T
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return nil, classify(c.table, err)
		}
		row, err := remote.DecodeRow[T](raw)
		if err != nil {
			return nil, err
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, classify(c.table, err)
	}
	return out, nil
}

// Insert stores a row and returns it as written.
func (c *Collection[T]) Insert(ctx context.Context, values remote.Values) (T, error) {
	sql, args, err := buildInsert(c.table, values.Without("id"))
	if err != nil {
		var zero T
		return zero, err
	}
	return c.returning(ctx, sql, args...)
}

// Update assigns values to the row with id and returns it.
func (c *Collection[T]) Update(ctx context.Context, id int64, values remote.Values) (T, error) {
	values = values.Without("id")
	if len(values) == 0 {
		sql, args := buildSelect(c.table, remote.Query{Filters: []remote.Filter{{Column: "id", Value: id}}, Limit: 1})
		return c.returning(ctx, sql, args...)
	}
	sql, args, err := buildUpdate(c.table, id, values)
	if err != nil {
		var zero T
		return zero, err
	}
	return c.returning(ctx, sql, args...)
}

// Delete removes the row with id.
func (c *Collection[T]) Delete(ctx context.Context, id int64) error {
	sql := "DELETE FROM " + ident(c.table) + " WHERE id = $1"
	if _, err := c.db.Exec(ctx, sql, id); err != nil {
		return classify(c.table, err)
	}
	return nil
}

// Count returns the number of matching rows.
func (c *Collection[T]) Count(ctx context.Context, filters ...remote.Filter) (int64, error) {
	where, args := buildWhere(filters, 1)
	sql := "SELECT count(*) FROM " + ident(c.table) + " AS t" + where
	var n int64
	if err := c.db.QueryRow(ctx, sql, args...).Scan(&n); err != nil {
		return 0, classify(c.table, err)
	}
	return n, nil
}

func (c *Collection[T]) returning(ctx context.Context, sql string, args ...any) (T, error) {
	var zero T
	var raw []byte
	if err := c.db.QueryRow(ctx, sql, args...).Scan(&raw); err != nil {
		return zero, classify(c.table, err)
	}
	return remote.DecodeRow[T](raw)
}

func buildSelect(table string, q remote.Query) (string, []any) {
	var b strings.Builder
	b.WriteString("SELECT to_jsonb(t) FROM ")
	b.WriteString(ident(table))
	b.WriteString(" AS t")
	where, args := buildWhere(q.Filters, 1)
	b.WriteString(where)
	if q.Order != nil {
		b.WriteString(" ORDER BY t.")
		b.WriteString(ident(q.Order.Column))
		if q.Order.Descending {
			b.WriteString(" DESC")
		}
	}
	if q.Limit > 0 {
		b.WriteString(" LIMIT ")
		b.WriteString(strconv.Itoa(q.Limit))
	}
	return b.String(), args
}

func buildWhere(filters []remote.Filter, start int) (string, []any) {
	if len(filters) == 0 {
		return "", nil
	}
	clauses := make([]string, 0, len(filters))
	args := make([]any, 0, len(filters))
	for i, f := range filters {
		clauses = append(clauses, "t."+ident(f.Column)+" = $"+strconv.Itoa(start+i))
		args = append(args, f.Value)
	}
	return " WHERE " + strings.Join(clauses, " AND "), args
}

func buildInsert(table string, values remote.Values) (string, []any, error) {
	if len(values) == 0 {
		return "INSERT INTO " + ident(table) + " AS t DEFAULT VALUES RETURNING to_jsonb(t)", nil, nil
	}
	payload, err := json.Marshal(values)
	if err != nil {
		return "", nil, fmt.Errorf("postgres: encode %s values: %w", table, err)
	}
	cols := columnList(values)
	sql := "INSERT INTO " + ident(table) + " AS t (" + cols + ") SELECT " + cols +
		" FROM jsonb_populate_record(NULL::" + ident(table) + ", $1::jsonb) RETURNING to_jsonb(t)"
	return sql, []any{string(payload)}, nil
}

func buildUpdate(table string, id int64, values remote.Values) (string, []any, error) {
	payload, err := json.Marshal(values)
	if err != nil {
		return "", nil, fmt.Errorf("postgres: encode %s values: %w", table, err)
	}
	cols := columnList(values)
	sql := "UPDATE " + ident(table) + " AS t SET (" + cols + ") = (SELECT " + cols +
		" FROM jsonb_populate_record(NULL::" + ident(table) + ", $1::jsonb)) WHERE t.id = $2 RETURNING to_jsonb(t)"
	return sql, []any{string(payload), id}, nil
}

func columnList(values remote.Values) string {
	cols := values.Columns()
	quoted := make([]string, len(cols))
	for i, col := range cols {
		quoted[i] = ident(col)
	}
	return strings.Join(quoted, ", ")
}

func ident(name string) string {
	return pgx.Identifier{name}.Sanitize()
}

// SQLSTATE codes the adapter classifies.
const (
	sqlstateUndefinedTable        = "42P01"
	sqlstateUndefinedColumn       = "42703"
	sqlstateInsufficientPrivilege = "42501"
	sqlstateUniqueViolation       = "23505"
)

func classify(table string, err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return remote.NewError(remote.CodeNotFound, table+": no matching row", err)
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case sqlstateUndefinedTable:
			return remote.NewError(remote.CodeMissingTable, pgErr.Message, err)
		case sqlstateUndefinedColumn:
			return remote.NewError(remote.CodeMissingColumn, pgErr.Message, err)
		case sqlstateInsufficientPrivilege:
			return remote.NewError(remote.CodePermissionDenied, pgErr.Message, err)
		case sqlstateUniqueViolation:
			return remote.NewError(remote.CodeUniqueConflict, pgErr.Message, err)
		default:
			return remote.NewError(remote.CodeUnknown, pgErr.Message, err)
		}
	}
	return remote.NewError(remote.CodeUnknown, err.Error(), err)
}
