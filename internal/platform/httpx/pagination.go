package httpx

import (
	"fmt"
	"math"
	"net/http"
	"strconv"
)

// MaxPerPage bounds the page size a caller may request.
const MaxPerPage = 200

// Pagination describes one page of a listing.
type Pagination struct {
	Page       int `json:"page"`
	PerPage    int `json:"per_page"`
	Total      int `json:"total"`
	TotalPages int `json:"total_pages"`
}

// NewPagination computes pagination metadata.
func NewPagination(page, perPage, total int) Pagination {
	if perPage <= 0 {
		perPage = 20
	}
	if perPage > MaxPerPage {
		perPage = MaxPerPage
	}
	if page <= 0 {
		page = 1
	}
	totalPages := int(math.Ceil(float64(total) / float64(perPage)))
	return Pagination{Page: page, PerPage: perPage, Total: total, TotalPages: totalPages}
}

// Bounds returns the slice indexes of the page inside a listing of Total rows.
func (p Pagination) Bounds() (start, end int) {
	start = (p.Page - 1) * p.PerPage
	if start > p.Total {
		start = p.Total
	}
	end = start + p.PerPage
	if end > p.Total {
		end = p.Total
	}
	return start, end
}

// ParsePage reads the page and per_page query parameters. ok is false when
// the caller asked for neither.
func ParsePage(r *http.Request) (page, perPage int, ok bool, err error) {
	q := r.URL.Query()
	rawPage, rawPer := q.Get("page"), q.Get("per_page")
	if rawPage == "" && rawPer == "" {
		return 0, 0, false, nil
	}
	if rawPage != "" {
		if page, err = strconv.Atoi(rawPage); err != nil || page < 1 {
			return 0, 0, false, fmt.Errorf("%w: invalid page %q", ErrValidation, rawPage)
		}
	}
	if rawPer != "" {
		if perPage, err = strconv.Atoi(rawPer); err != nil || perPage < 1 {
			return 0, 0, false, fmt.Errorf("%w: invalid per_page %q", ErrValidation, rawPer)
		}
	}
	return page, perPage, true, nil
}
