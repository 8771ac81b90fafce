// Package resource keeps a local, ordered cache of one remote collection in
// sync with the backend. Caches change only after the backend confirms a
// call; a failed call leaves the cache exactly as it was.
package resource

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/lumen-foundation/lumen/internal/remote"
)

// Record is a row with a unique identifier.
type Record interface {
	RowID() int64
}

// Column names the ordering-fallback chain relies on.
const (
	IDColumn        = "id"
	CreatedAtColumn = "created_at"
)

// Normalizer validates or rewrites a partial row before it is written.
type Normalizer[T any] func(T) (T, error)

// Option configures a Store.
type Option[T Record] func(*Store[T])

// WithLogger sets the store logger.
func WithLogger[T Record](logger *slog.Logger) Option[T] {
	return func(s *Store[T]) { s.logger = logger }
}

// WithMetrics records store activity on m.
func WithMetrics[T Record](m *Metrics) Option[T] {
	return func(s *Store[T]) { s.metrics = m }
}

// WithNormalizer runs fn on every partial row before create and update.
func WithNormalizer[T Record](fn Normalizer[T]) Option[T] {
	return func(s *Store[T]) { s.normalize = fn }
}

// Store mirrors one remote collection.
type Store[T Record] struct {
	name      string
	coll      remote.Collection[T]
	logger    *slog.Logger
	metrics   *Metrics
	normalize Normalizer[T]

	mu           sync.RWMutex
	rows         []T
	loaded       bool
	loading      int
	lastErr      error
	generation   uint64
	listeners    map[uint64]func([]T)
	nextListener uint64
}

// New constructs an empty store over coll.
func New[T Record](coll remote.Collection[T], opts ...Option[T]) *Store[T] {
	s := &Store[T]{
		name:      coll.Name(),
		coll:      coll,
		listeners: make(map[uint64]func([]T)),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	s.logger = s.logger.With(slog.String("resource", s.name))
	return s
}

// Name returns the resource name.
func (s *Store[T]) Name() string { return s.name }

// Rows returns a copy of the cached rows.
func (s *Store[T]) Rows() []T {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return clone(s.rows)
}

// Find returns the cached row with id.
func (s *Store[T]) Find(id int64) (T, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, row := range s.rows {
		if row.RowID() == id {
			return row, true
		}
	}
	var zero T
	return zero, false
}

// Loaded reports whether a List has succeeded since the store was built or
// last closed. Rows created before that are only a partial view.
func (s *Store[T]) Loaded() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loaded
}

// IsLoading reports whether a list call is in flight.
func (s *Store[T]) IsLoading() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loading > 0
}

// LastError returns the most recent failure, cleared by the next success.
func (s *Store[T]) LastError() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastErr
}

// Subscribe registers fn to receive a snapshot after every cache change.
func (s *Store[T]) Subscribe(fn func([]T)) (unsubscribe func()) {
	s.mu.Lock()
	id := s.nextListener
	s.nextListener++
	s.listeners[id] = fn
	s.mu.Unlock()
	return func() {
		s.mu.Lock()
		delete(s.listeners, id)
		s.mu.Unlock()
	}
}

// Close discards the cache and listeners. Responses to calls issued before
// Close are dropped when they arrive.
func (s *Store[T]) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.generation++
	s.rows = nil
	s.loaded = false
	s.loading = 0
	s.lastErr = nil
	s.listeners = make(map[uint64]func([]T))
}

// List fetches every row and replaces the cache. Ordering degrades from id
// descending to created_at descending to backend order as the schema allows.
func (s *Store[T]) List(ctx context.Context) ([]T, error) {
	start := time.Now()
	gen := s.beginLoading()
	defer s.endLoading(gen)

	rows, err := s.fetch(ctx)
	if err != nil {
		serr := classifyList(s.name, err)
		s.logger.Error("list failed", slog.String("kind", string(serr.Kind)), slog.Any("error", err))
		s.fail(gen, serr)
		s.metrics.observe(s.name, opList, serr, start)
		return nil, serr
	}
	// commit holds the lock while fn runs and only runs it for the current
	// generation.
	s.commit(gen, func([]T) []T {
		s.loaded = true
		return rows
	})
	s.metrics.observe(s.name, opList, nil, start)
	return clone(rows), nil
}

// Refresh re-reads the collection; it is List under another name.
func (s *Store[T]) Refresh(ctx context.Context) ([]T, error) {
	return s.List(ctx)
}

func (s *Store[T]) fetch(ctx context.Context) ([]T, error) {
	rows, err := s.coll.Select(ctx, remote.Query{Order: remote.OrderBy(IDColumn, true)})
	if err == nil {
		return rows, nil
	}
	if remote.CodeOf(err) != remote.CodeMissingColumn {
		return nil, err
	}
	s.logger.Warn("ordering by id unavailable, falling back to created_at", slog.Any("error", err))
	s.metrics.fallback(s.name, CreatedAtColumn)

	rows, err = s.coll.Select(ctx, remote.Query{Order: remote.OrderBy(CreatedAtColumn, true)})
	if err == nil {
		return rows, nil
	}
	s.logger.Warn("ordering by created_at unavailable, fetching unordered", slog.Any("error", err))
	s.metrics.fallback(s.name, "none")

	return s.coll.Select(ctx, remote.Query{})
}

// Create inserts partial and prepends the stored row to the cache.
func (s *Store[T]) Create(ctx context.Context, partial T) (T, error) {
	var zero T
	start := time.Now()
	gen := s.currentGeneration()
	values, err := s.prepare(opCreate, partial)
	if err != nil {
		s.fail(gen, err)
		s.metrics.observe(s.name, opCreate, err, start)
		return zero, err
	}
	row, err := s.coll.Insert(ctx, values)
	if err != nil {
		serr := classify(s.name, opCreate, err)
		s.logger.Warn("create failed", slog.String("kind", string(serr.Kind)), slog.Any("error", err))
		s.fail(gen, serr)
		s.metrics.observe(s.name, opCreate, serr, start)
		return zero, serr
	}
	s.commit(gen, func(rows []T) []T {
		return append([]T{row}, rows...)
	})
	s.metrics.observe(s.name, opCreate, nil, start)
	return row, nil
}

// Update writes partial to the row with id and replaces its cache entry.
func (s *Store[T]) Update(ctx context.Context, id int64, partial T) (T, error) {
	var zero T
	start := time.Now()
	gen := s.currentGeneration()
	values, err := s.prepare(opUpdate, partial)
	if err != nil {
		s.fail(gen, err)
		s.metrics.observe(s.name, opUpdate, err, start)
		return zero, err
	}
	row, err := s.coll.Update(ctx, id, values)
	if err != nil {
		serr := classify(s.name, opUpdate, err)
		s.logger.Warn("update failed", slog.Int64("id", id), slog.String("kind", string(serr.Kind)), slog.Any("error", err))
		s.fail(gen, serr)
		s.metrics.observe(s.name, opUpdate, serr, start)
		return zero, serr
	}
	s.commit(gen, func(rows []T) []T {
		for i := range rows {
			if rows[i].RowID() == id {
				rows[i] = row
			}
		}
		return rows
	})
	s.metrics.observe(s.name, opUpdate, nil, start)
	return row, nil
}

// Delete removes the row with id. Deleting an id that is not cached is not
// an error.
func (s *Store[T]) Delete(ctx context.Context, id int64) (bool, error) {
	start := time.Now()
	gen := s.currentGeneration()
	if err := s.coll.Delete(ctx, id); err != nil {
		serr := classify(s.name, opDelete, err)
		s.logger.Warn("delete failed", slog.Int64("id", id), slog.String("kind", string(serr.Kind)), slog.Any("error", err))
		s.fail(gen, serr)
		s.metrics.observe(s.name, opDelete, serr, start)
		return false, serr
	}
	s.commit(gen, func(rows []T) []T {
		kept := rows[:0]
		for _, row := range rows {
			if row.RowID() != id {
				kept = append(kept, row)
			}
		}
		return kept
	})
	s.metrics.observe(s.name, opDelete, nil, start)
	return true, nil
}

// Patch assigns raw column values to the row with id, bypassing the
// normalizer. A nil value clears the column. The cache entry is replaced on
// success like Update.
func (s *Store[T]) Patch(ctx context.Context, id int64, values remote.Values) (T, error) {
	var zero T
	start := time.Now()
	gen := s.currentGeneration()
	row, err := s.coll.Update(ctx, id, values.Without(IDColumn))
	if err != nil {
		serr := classify(s.name, opUpdate, err)
		s.logger.Warn("patch failed", slog.Int64("id", id), slog.String("kind", string(serr.Kind)), slog.Any("error", err))
		s.fail(gen, serr)
		s.metrics.observe(s.name, opUpdate, serr, start)
		return zero, serr
	}
	s.commit(gen, func(rows []T) []T {
		for i := range rows {
			if rows[i].RowID() == id {
				rows[i] = row
			}
		}
		return rows
	})
	s.metrics.observe(s.name, opUpdate, nil, start)
	return row, nil
}

// Where runs a filtered select without touching the cache.
func (s *Store[T]) Where(ctx context.Context, filters ...remote.Filter) ([]T, error) {
	start := time.Now()
	rows, err := s.coll.Select(ctx, remote.Query{Filters: filters})
	if err != nil {
		serr := classify(s.name, opList, err)
		s.metrics.observe(s.name, opWhere, serr, start)
		return nil, serr
	}
	s.metrics.observe(s.name, opWhere, nil, start)
	return clone(rows), nil
}

// Count asks the backend how many rows match filters without fetching them.
func (s *Store[T]) Count(ctx context.Context, filters ...remote.Filter) (int64, error) {
	start := time.Now()
	n, err := s.coll.Count(ctx, filters...)
	if err != nil {
		serr := classify(s.name, opCount, err)
		s.metrics.observe(s.name, opCount, serr, start)
		return 0, serr
	}
	s.metrics.observe(s.name, opCount, nil, start)
	return n, nil
}

func (s *Store[T]) prepare(op string, partial T) (remote.Values, error) {
	if s.normalize != nil {
		normalized, err := s.normalize(partial)
		if err != nil {
			return nil, &Error{Kind: KindInvalid, Resource: s.name, Op: op, Err: err}
		}
		partial = normalized
	}
	values, err := remote.ValuesOf(partial)
	if err != nil {
		return nil, &Error{Kind: KindInvalid, Resource: s.name, Op: op, Err: fmt.Errorf("encode: %w", err)}
	}
	return values.Without(IDColumn), nil
}

func (s *Store[T]) currentGeneration() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.generation
}

func (s *Store[T]) beginLoading() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loading++
	return s.generation
}

func (s *Store[T]) endLoading(gen uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if gen == s.generation && s.loading > 0 {
		s.loading--
	}
}

func (s *Store[T]) fail(gen uint64, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.generation {
		return
	}
	s.lastErr = err
}

// commit applies fn to a private copy of the cache unless the store was
// closed after the call was issued, then notifies listeners.
func (s *Store[T]) commit(gen uint64, fn func([]T) []T) {
	s.mu.Lock()
	if gen != s.generation {
		s.mu.Unlock()
		s.logger.Debug("discarding response for closed store")
		s.metrics.discarded(s.name)
		return
	}
	s.rows = fn(clone(s.rows))
	s.lastErr = nil
	snapshot := clone(s.rows)
	listeners := make([]func([]T), 0, len(s.listeners))
	for _, fn := range s.listeners {
		listeners = append(listeners, fn)
	}
	s.mu.Unlock()

	s.metrics.setRows(s.name, len(snapshot))
	for _, fn := range listeners {
		fn(clone(snapshot))
	}
}

func clone[T any](rows []T) []T {
	if rows == nil {
		return []T{}
	}
	out := make([]T, len(rows))
	copy(out, rows)
	return out
}
