package wizard

import (
	"context"

	"github.com/lumen-foundation/lumen/internal/content"
	"github.com/lumen-foundation/lumen/internal/resource"
)

// StorePersister persists drafts through a store's Create.
func StorePersister[T resource.Record](store *resource.Store[T]) Persister[T] {
	return func(ctx context.Context, draft T) (int64, error) {
		row, err := store.Create(ctx, draft)
		if err != nil {
			return 0, err
		}
		return row.RowID(), nil
	}
}

// NewProject starts a project creation run backed by the projects store.
func NewProject(projects *resource.Store[content.Project], draft content.Project) *Workflow[content.Project] {
	if draft.ID != 0 {
		return Resume(draft, draft.ID, StorePersister(projects))
	}
	return New(draft, StorePersister(projects))
}
