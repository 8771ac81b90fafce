package content

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"strings"
)

//go:embed schema.sql
var sqliteSchema string

// BootstrapSQLite creates any missing collection tables in a SQLite
// database. Existing tables are left as they are.
func BootstrapSQLite(ctx context.Context, db *sql.DB) error {
	for _, stmt := range strings.Split(sqliteSchema, ";") {
		stmt = strings.TrimSpace(stmt)
		if stmt == "" {
			continue
		}
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("content: bootstrap sqlite: %w", err)
		}
	}
	return nil
}
