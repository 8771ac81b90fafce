package httpx

import (
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewPaginationDefaults(t *testing.T) {
	p := NewPagination(0, 0, 45)

	assert.Equal(t, Pagination{Page: 1, PerPage: 20, Total: 45, TotalPages: 3}, p)
	assert.Equal(t, MaxPerPage, NewPagination(1, 10000, 1).PerPage)
}

func TestPaginationBounds(t *testing.T) {
	start, end := NewPagination(3, 20, 45).Bounds()
	assert.Equal(t, 40, start)
	assert.Equal(t, 45, end)

	start, end = NewPagination(9, 20, 45).Bounds()
	assert.Equal(t, 45, start)
	assert.Equal(t, 45, end)
}

func TestParsePage(t *testing.T) {
	_, _, ok, err := ParsePage(httptest.NewRequest("GET", "/news", nil))
	require.NoError(t, err)
	assert.False(t, ok)

	page, per, ok, err := ParsePage(httptest.NewRequest("GET", "/news?page=2&per_page=5", nil))
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 2, page)
	assert.Equal(t, 5, per)

	_, _, _, err = ParsePage(httptest.NewRequest("GET", "/news?page=zero", nil))
	assert.ErrorIs(t, err, ErrValidation)
}
