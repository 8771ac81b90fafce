// Package sqlite implements remote.Collection on SQLite (modernc.org/sqlite)
// for local development and single-node installs.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strconv"
	"strings"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/lumen-foundation/lumen/internal/remote"
)

// Open opens a database and limits it to one connection so ":memory:"
// databases are shared by every caller.
func Open(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("sqlite: open: %w", err)
	}
	db.SetMaxOpenConns(1)
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlite: pragma: %w", err)
	}
	return db, nil
}

// Collection is a table-backed remote.Collection.
type Collection[T any] struct {
	db    *sql.DB
	table string
	bools map[string]bool
}

// New binds a collection to table.
func New[T any](db *sql.DB, table string) *Collection[T] {
	return &Collection[T]{db: db, table: table, bools: boolColumns[T]()}
}

// Name returns the table name.
func (c *Collection[T]) Name() string { return c.table }

// Select returns matching rows.
func (c *Collection[T]) Select(ctx context.Context, q remote.Query) ([]T, error) {
	query := "SELECT * FROM " + ident(c.table)
	where, args := buildWhere(q.Filters)
	query += where
	if q.Order != nil {
		query += " ORDER BY " + ident(q.Order.Column)
		if q.Order.Descending {
			query += " DESC"
		}
	}
	if q.Limit > 0 {
		query += " LIMIT " + strconv.Itoa(q.Limit)
	}
	rows, err := c.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, classify(c.table, err)
	}
	defer rows.Close()
	return c.collect(rows)
}

// Insert stores a row and returns it as written.
func (c *Collection[T]) Insert(ctx context.Context, values remote.Values) (T, error) {
	var zero T
	values = values.Without("id")
	var query string
	var args []any
	if len(values) == 0 {
		query = "INSERT INTO " + ident(c.table) + " DEFAULT VALUES RETURNING *"
	} else {
		cols := values.Columns()
		quoted := make([]string, len(cols))
		marks := make([]string, len(cols))
		for i, col := range cols {
			quoted[i] = ident(col)
			marks[i] = "?"
			arg, err := bindValue(values[col])
			if err != nil {
				return zero, err
			}
			args = append(args, arg)
		}
		query = "INSERT INTO " + ident(c.table) + " (" + strings.Join(quoted, ", ") + ") VALUES (" + strings.Join(marks, ", ") + ") RETURNING *"
	}
	return c.one(ctx, query, args...)
}

// Update assigns values to the row with id and returns it.
func (c *Collection[T]) Update(ctx context.Context, id int64, values remote.Values) (T, error) {
	var zero T
	values = values.Without("id")
	if len(values) == 0 {
		return c.one(ctx, "SELECT * FROM "+ident(c.table)+" WHERE id = ?", id)
	}
	cols := values.Columns()
	sets := make([]string, len(cols))
	args := make([]any, 0, len(cols)+1)
	for i, col := range cols {
		sets[i] = ident(col) + " = ?"
		arg, err := bindValue(values[col])
		if err != nil {
			return zero, err
		}
		args = append(args, arg)
	}
	args = append(args, id)
	return c.one(ctx, "UPDATE "+ident(c.table)+" SET "+strings.Join(sets, ", ")+" WHERE id = ? RETURNING *", args...)
}

// Delete removes the row with id.
func (c *Collection[T]) Delete(ctx context.Context, id int64) error {
	if _, err := c.db.ExecContext(ctx, "DELETE FROM "+ident(c.table)+" WHERE id = ?", id); err != nil {
		return classify(c.table, err)
	}
	return nil
}

// Count returns the number of matching rows.
func (c *Collection[T]) Count(ctx context.Context, filters ...remote.Filter) (int64, error) {
	where, args := buildWhere(filters)
	var n int64
	if err := c.db.QueryRowContext(ctx, "SELECT count(*) FROM "+ident(c.table)+where, args...).Scan(&n); err != nil {
		return 0, classify(c.table, err)
	}
	return n, nil
}

func (c *Collection[T]) one(ctx context.Context, query string, args ...any) (T, error) {
	var zero T
	rows, err := c.db.QueryContext(ctx, query, args...)
	if err != nil {
		return zero, classify(c.table, err)
	}
	defer rows.Close()
	out, err := c.collect(rows)
	if err != nil {
		return zero, err
	}
	if len(out) == 0 {
		return zero, remote.NewError(remote.CodeNotFound, c.table+": no matching row", sql.ErrNoRows)
	}
	return out[0], nil
}

func (c *Collection[T]) collect(rows *sql.Rows) ([]T, error) {
	cols, err := rows.Columns()
	if err != nil {
		return nil, classify(c.table, err)
	}
	types, err := rows.ColumnTypes()
	if err != nil {
		return nil, classify(c.table, err)
	}
	var out []T
	for rows.Next() {
		raw := make([]any, len(cols))
		dest := make([]any, len(cols))
		for i := range raw {
			dest[i] = &raw[i]
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, classify(c.table, err)
		}
		m := make(map[string]any, len(cols))
		for i, col := range cols {
			m[col] = columnValue(c.bools[col] || strings.EqualFold(types[i].DatabaseTypeName(), "BOOLEAN"), raw[i])
		}
		row, err := remote.DecodeMap[T](m)
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

// columnValue undoes SQLite's storage classes: booleans come back as
// integers and TEXT as bytes.
func columnValue(boolean bool, v any) any {
	switch val := v.(type) {
	case []byte:
		return string(val)
	case int64:
		if boolean {
			return val != 0
		}
	}
	return v
}

// boolColumns lists the json column names of T's bool fields.
func boolColumns[T any]() map[string]bool {
	out := make(map[string]bool)
	typ := reflect.TypeOf((*T)(nil)).Elem()
	if typ.Kind() != reflect.Struct {
		return out
	}
	for i := 0; i < typ.NumField(); i++ {
		f := typ.Field(i)
		ft := f.Type
		if ft.Kind() == reflect.Pointer {
			ft = ft.Elem()
		}
		if ft.Kind() != reflect.Bool {
			continue
		}
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "" {
			name = f.Name
		}
		out[name] = true
	}
	return out
}

func buildWhere(filters []remote.Filter) (string, []any) {
	if len(filters) == 0 {
		return "", nil
	}
	clauses := make([]string, len(filters))
	args := make([]any, len(filters))
	for i, f := range filters {
		clauses[i] = ident(f.Column) + " = ?"
		args[i] = f.Value
	}
	return " WHERE " + strings.Join(clauses, " AND "), args
}

func bindValue(v any) (any, error) {
	switch val := v.(type) {
	case nil, string, bool, int64, float64:
		return val, nil
	case json.Number:
		if i, err := val.Int64(); err == nil {
			return i, nil
		}
		return val.Float64()
	case map[string]any, []any:
		data, err := json.Marshal(val)
		if err != nil {
			return nil, fmt.Errorf("sqlite: encode value: %w", err)
		}
		return string(data), nil
	default:
		return val, nil
	}
}

func ident(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

// classify maps driver errors onto remote codes. SQLite reports missing
// tables and columns with the generic SQLITE_ERROR code, so those two are
// told apart by the driver message here at the adapter edge.
func classify(table string, err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return remote.NewError(remote.CodeNotFound, table+": no matching row", err)
	}
	var sqlErr *sqlite.Error
	if errors.As(err, &sqlErr) {
		msg := sqlErr.Error()
		switch sqlErr.Code() {
		case sqlite3.SQLITE_CONSTRAINT_UNIQUE, sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY:
			return remote.NewError(remote.CodeUniqueConflict, msg, err)
		case sqlite3.SQLITE_AUTH, sqlite3.SQLITE_PERM, sqlite3.SQLITE_READONLY:
			return remote.NewError(remote.CodePermissionDenied, msg, err)
		}
		switch {
		case strings.Contains(msg, "UNIQUE constraint failed"):
			return remote.NewError(remote.CodeUniqueConflict, msg, err)
		case strings.Contains(msg, "no such table"):
			return remote.NewError(remote.CodeMissingTable, msg, err)
		case strings.Contains(msg, "no such column"), strings.Contains(msg, "has no column named"):
			return remote.NewError(remote.CodeMissingColumn, msg, err)
		}
		return remote.NewError(remote.CodeUnknown, msg, err)
	}
	return remote.NewError(remote.CodeUnknown, err.Error(), err)
}
