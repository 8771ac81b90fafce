package api

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/lumen-foundation/lumen/internal/capability"
	"github.com/lumen-foundation/lumen/internal/platform/httpx"
	"github.com/lumen-foundation/lumen/internal/resource"
)

// listResponse wraps a collection read.
type listResponse[T any] struct {
	Data       []T               `json:"data"`
	Total      int               `json:"total"`
	Stale      bool              `json:"stale,omitempty"`
	Pagination *httpx.Pagination `json:"pagination,omitempty"`
}

// newListResponse slices rows to the requested page, if any.
func newListResponse[T any](r *http.Request, rows []T, stale bool) (listResponse[T], error) {
	resp := listResponse[T]{Data: rows, Total: len(rows), Stale: stale}
	page, perPage, ok, err := httpx.ParsePage(r)
	if err != nil || !ok {
		return resp, err
	}
	p := httpx.NewPagination(page, perPage, len(rows))
	start, end := p.Bounds()
	resp.Data = rows[start:end]
	resp.Pagination = &p
	return resp, nil
}

// mountCollection registers list, read, create, update and delete routes
// for store. Private collections are readable only by roles that may edit
// them.
func mountCollection[T resource.Record](r chi.Router, h *Handler, store *resource.Store[T], private bool) {
	name := store.Name()
	c := collectionHandler[T]{store: store}

	r.Group(func(r chi.Router) {
		if private {
			r.Use(h.require(name, capability.ActionEdit))
		}
		r.Get("/", c.list)
		r.Get("/{id}", c.show)
	})
	r.With(h.require(name, capability.ActionCreate)).Post("/", c.create)
	r.With(h.require(name, capability.ActionEdit)).Patch("/{id}", c.update)
	r.With(h.require(name, capability.ActionDelete)).Delete("/{id}", c.remove)
}

type collectionHandler[T resource.Record] struct {
	store *resource.Store[T]
}

// list serves the cached rows, loading them first when the store has never
// been listed or the caller asks for a refresh. A failed refresh still serves the previous
// rows, flagged stale.
func (c collectionHandler[T]) list(w http.ResponseWriter, r *http.Request) {
	rows, stale := c.store.Rows(), false
	if !c.store.Loaded() || r.URL.Query().Get("refresh") != "" {
		fresh, err := c.store.List(r.Context())
		switch {
		case err == nil:
			rows = fresh
		case !c.store.Loaded():
			httpx.RespondError(w, err)
			return
		default:
			stale = true
		}
	}
	resp, err := newListResponse(r, rows, stale)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, resp)
}

func (c collectionHandler[T]) show(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	row, err := findRow(r, c.store, id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, row)
}

func (c collectionHandler[T]) create(w http.ResponseWriter, r *http.Request) {
	var partial T
	if err := httpx.DecodeJSON(r, &partial); err != nil {
		httpx.RespondError(w, err)
		return
	}
	row, err := c.store.Create(r.Context(), partial)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, row)
}

func (c collectionHandler[T]) update(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	var partial T
	if err := httpx.DecodeJSON(r, &partial); err != nil {
		httpx.RespondError(w, err)
		return
	}
	row, err := c.store.Update(r.Context(), id, partial)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, row)
}

func (c collectionHandler[T]) remove(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	if _, err := c.store.Delete(r.Context(), id); err != nil {
		httpx.RespondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func parseID(r *http.Request) (int64, error) {
	raw := chi.URLParam(r, "id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: invalid id %q", httpx.ErrValidation, raw)
	}
	return id, nil
}
