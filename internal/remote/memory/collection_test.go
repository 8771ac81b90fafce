package memory

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lumen-foundation/lumen/internal/remote"
)

type item struct {
	ID     int64   `json:"id"`
	Title  *string `json:"title,omitempty"`
	Rank   *int    `json:"rank,omitempty"`
	Parent *int64  `json:"parent_id,omitempty"`
}

func ptr[V any](v V) *V { return &v }

func TestInsertAssignsIDs(t *testing.T) {
	c := New[item]("items")
	ctx := context.Background()

	first, err := c.Insert(ctx, remote.Values{"title": "a"})
	require.NoError(t, err)
	second, err := c.Insert(ctx, remote.Values{"title": "b", "id": int64(99)})
	require.NoError(t, err)

	assert.Equal(t, int64(1), first.ID)
	assert.Equal(t, int64(2), second.ID)
	assert.Equal(t, "b", *second.Title)
}

func TestSelectOrdersAndFilters(t *testing.T) {
	c := New[item]("items")
	require.NoError(t, c.Seed(
		item{ID: 1, Rank: ptr(3), Parent: ptr(int64(10))},
		item{ID: 2, Rank: ptr(1), Parent: ptr(int64(10))},
		item{ID: 3, Rank: ptr(2), Parent: ptr(int64(20))},
	))
	ctx := context.Background()

	rows, err := c.Select(ctx, remote.Query{Order: remote.OrderBy("id", true)})
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, []int64{3, 2, 1}, []int64{rows[0].ID, rows[1].ID, rows[2].ID})

	rows, err = c.Select(ctx, remote.Query{Filters: []remote.Filter{{Column: "parent_id", Value: int64(10)}}, Order: remote.OrderBy("rank", false)})
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, int64(2), rows[0].ID)

	n, err := c.Count(ctx, remote.Filter{Column: "parent_id", Value: 20})
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestUnknownColumnIsClassified(t *testing.T) {
	c := New[item]("items", WithColumns("title"))

	_, err := c.Select(context.Background(), remote.Query{Order: remote.OrderBy("created_at", true)})
	assert.Equal(t, remote.CodeMissingColumn, remote.CodeOf(err))

	_, err = c.Insert(context.Background(), remote.Values{"rank": 1})
	assert.Equal(t, remote.CodeMissingColumn, remote.CodeOf(err))
}

func TestMissingTable(t *testing.T) {
	c := New[item]("items", WithoutTable())
	_, err := c.Select(context.Background(), remote.Query{})
	assert.True(t, remote.IsSchemaMissing(err))
	assert.Equal(t, remote.CodeMissingTable, remote.CodeOf(err))
}

func TestFailNextIsConsumedOnce(t *testing.T) {
	c := New[item]("items")
	boom := errors.New("boom")
	c.FailNext(OpDelete, boom)

	assert.ErrorIs(t, c.Delete(context.Background(), 1), boom)
	assert.NoError(t, c.Delete(context.Background(), 1))
	assert.Len(t, c.Calls(), 2)
}

func TestUpdateMissingRow(t *testing.T) {
	c := New[item]("items")
	_, err := c.Update(context.Background(), 5, remote.Values{"title": "x"})
	assert.Equal(t, remote.CodeNotFound, remote.CodeOf(err))
}
