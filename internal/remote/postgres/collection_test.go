package postgres

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lumen-foundation/lumen/internal/remote"
)

func TestBuildSelect(t *testing.T) {
	sql, args := buildSelect("project_tasks", remote.Query{
		Filters: []remote.Filter{{Column: "project_id", Value: int64(4)}, {Column: "status", Value: "done"}},
		Order:   remote.OrderBy("created_at", true),
		Limit:   10,
	})

	assert.Equal(t, `SELECT to_jsonb(t) FROM "project_tasks" AS t WHERE t."project_id" = $1 AND t."status" = $2 ORDER BY t."created_at" DESC LIMIT 10`, sql)
	assert.Equal(t, []any{int64(4), "done"}, args)
}

func TestBuildSelectUnordered(t *testing.T) {
	sql, args := buildSelect("news", remote.Query{})
	assert.Equal(t, `SELECT to_jsonb(t) FROM "news" AS t`, sql)
	assert.Empty(t, args)
}

func TestBuildInsert(t *testing.T) {
	sql, args, err := buildInsert("news", remote.Values{"title": "Hello", "body": "<p>x</p>"})
	require.NoError(t, err)

	assert.Equal(t, `INSERT INTO "news" AS t ("body", "title") SELECT "body", "title" FROM jsonb_populate_record(NULL::"news", $1::jsonb) RETURNING to_jsonb(t)`, sql)
	require.Len(t, args, 1)
	assert.JSONEq(t, `{"title":"Hello","body":"<p>x</p>"}`, args[0].(string))
}

func TestBuildInsertDefaults(t *testing.T) {
	sql, args, err := buildInsert("news", remote.Values{})
	require.NoError(t, err)
	assert.Equal(t, `INSERT INTO "news" AS t DEFAULT VALUES RETURNING to_jsonb(t)`, sql)
	assert.Nil(t, args)
}

func TestBuildUpdate(t *testing.T) {
	sql, args, err := buildUpdate("faqs", 7, remote.Values{"answer": "yes"})
	require.NoError(t, err)

	assert.Equal(t, `UPDATE "faqs" AS t SET ("answer") = (SELECT "answer" FROM jsonb_populate_record(NULL::"faqs", $1::jsonb)) WHERE t.id = $2 RETURNING to_jsonb(t)`, sql)
	assert.Equal(t, int64(7), args[1])
}

func TestIdentQuotesInjection(t *testing.T) {
	assert.Equal(t, `"a""b"`, ident(`a"b`))
}

func TestClassify(t *testing.T) {
	cases := map[string]remote.Code{
		"42P01": remote.CodeMissingTable,
		"42703": remote.CodeMissingColumn,
		"42501": remote.CodePermissionDenied,
		"23505": remote.CodeUniqueConflict,
		"22001": remote.CodeUnknown,
	}
	for sqlstate, want := range cases {
		t.Run(sqlstate, func(t *testing.T) {
			err := classify("news", fmt.Errorf("wrapped: %w", &pgconn.PgError{Code: sqlstate, Message: "boom"}))
			assert.Equal(t, want, remote.CodeOf(err))
		})
	}

	assert.Equal(t, remote.CodeNotFound, remote.CodeOf(classify("news", pgx.ErrNoRows)))
	assert.Equal(t, remote.CodeUnknown, remote.CodeOf(classify("news", errors.New("dial tcp: refused"))))
}
