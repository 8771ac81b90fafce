package resource

import (
	"context"
	"errors"
	"sort"
	"sync"

	"golang.org/x/sync/errgroup"
)

type entry struct {
	store   any
	refresh func(context.Context) error
	count   func(context.Context) (int64, error)
	close   func()
}

// Registry groups the stores owned by one surface so they can be refreshed
// and released together.
type Registry struct {
	mu      sync.Mutex
	entries map[string]entry
	limit   int
}

// NewRegistry builds a registry refreshing at most limit stores at once.
// A limit of zero or less means no limit.
func NewRegistry(limit int) *Registry {
	return &Registry{entries: make(map[string]entry), limit: limit}
}

// Register adds s under its resource name, replacing any previous store.
func Register[T Record](r *Registry, s *Store[T]) *Store[T] {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries[s.Name()] = entry{
		store: s,
		refresh: func(ctx context.Context) error {
			_, err := s.Refresh(ctx)
			return err
		},
		count: func(ctx context.Context) (int64, error) {
			return s.Count(ctx)
		},
		close: s.Close,
	}
	return s
}

// Lookup returns the store registered under name when it holds rows of T.
func Lookup[T Record](r *Registry, name string) (*Store[T], bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[name]
	if !ok {
		return nil, false
	}
	s, ok := e.store.(*Store[T])
	return s, ok
}

// Names lists registered resources, sorted.
func (r *Registry) Names() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	names := make([]string, 0, len(r.entries))
	for name := range r.entries {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// RefreshAll refreshes every store concurrently. One store failing does not
// stop the others; all failures are joined into the returned error.
func (r *Registry) RefreshAll(ctx context.Context) error {
	r.mu.Lock()
	entries := make([]entry, 0, len(r.entries))
	for _, e := range r.entries {
		entries = append(entries, e)
	}
	r.mu.Unlock()

	var (
		g    errgroup.Group
		mu   sync.Mutex
		errs []error
	)
	if r.limit > 0 {
		g.SetLimit(r.limit)
	}
	for _, e := range entries {
		e := e
		g.Go(func() error {
			if err := e.refresh(ctx); err != nil {
				mu.Lock()
				errs = append(errs, err)
				mu.Unlock()
			}
			return nil
		})
	}
	_ = g.Wait()
	return errors.Join(errs...)
}

// CountAll asks the backend for the row count of every store. Stores whose
// count fails are left out of the map and their errors are joined.
func (r *Registry) CountAll(ctx context.Context) (map[string]int64, error) {
	r.mu.Lock()
	names := make([]string, 0, len(r.entries))
	counts := make([]func(context.Context) (int64, error), 0, len(r.entries))
	for name, e := range r.entries {
		names = append(names, name)
		counts = append(counts, e.count)
	}
	r.mu.Unlock()

	var (
		g    errgroup.Group
		mu   sync.Mutex
		out  = make(map[string]int64, len(names))
		errs []error
	)
	if r.limit > 0 {
		g.SetLimit(r.limit)
	}
	for i := range names {
		name, count := names[i], counts[i]
		g.Go(func() error {
			n, err := count(ctx)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				errs = append(errs, err)
				return nil
			}
			out[name] = n
			return nil
		})
	}
	_ = g.Wait()
	return out, errors.Join(errs...)
}

// Close releases every registered store.
func (r *Registry) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for name, e := range r.entries {
		e.close()
		delete(r.entries, name)
	}
}
