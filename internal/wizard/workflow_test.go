package wizard

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lumen-foundation/lumen/internal/content"
	"github.com/lumen-foundation/lumen/internal/remote"
	"github.com/lumen-foundation/lumen/internal/remote/memory"
	"github.com/lumen-foundation/lumen/internal/resource"
)

type draft struct{ Title string }

func TestNextPersistsParentBeforeTasks(t *testing.T) {
	ctx := context.Background()
	saved := 0
	w := New(draft{Title: "Wells"}, func(_ context.Context, d draft) (int64, error) {
		saved++
		assert.Equal(t, "Wells", d.Title)
		return 42, nil
	})

	require.NoError(t, w.Next(ctx))
	assert.Equal(t, StepDocuments, w.Step())
	assert.Equal(t, 0, saved)

	require.NoError(t, w.Next(ctx))
	assert.Equal(t, StepTasks, w.Step())
	assert.Equal(t, 1, saved)
	assert.Equal(t, int64(42), w.ParentID())

	assert.ErrorIs(t, w.Next(ctx), ErrLastStep)
}

func TestNextStaysWhenPersistFails(t *testing.T) {
	ctx := context.Background()
	boom := errors.New("permission denied")
	w := New(draft{}, func(context.Context, draft) (int64, error) { return 0, boom })

	require.NoError(t, w.Next(ctx))
	err := w.Next(ctx)

	assert.ErrorIs(t, err, boom)
	assert.Equal(t, StepDocuments, w.Step())
	assert.False(t, w.Visited(StepTasks))
	assert.ErrorIs(t, w.GoTo(StepTasks), ErrNotVisited)
}

func TestPersistOnlyOnce(t *testing.T) {
	ctx := context.Background()
	saved := 0
	w := New(draft{}, func(context.Context, draft) (int64, error) { saved++; return 7, nil })

	require.NoError(t, w.Next(ctx))
	require.NoError(t, w.Next(ctx))
	require.NoError(t, w.Back())
	require.NoError(t, w.Next(ctx))

	assert.Equal(t, 1, saved)
}

func TestBackAndGoToVisited(t *testing.T) {
	ctx := context.Background()
	w := Resume(draft{}, 9, nil)

	assert.ErrorIs(t, w.Back(), ErrFirstStep)
	assert.ErrorIs(t, w.GoTo(StepDocuments), ErrNotVisited)

	require.NoError(t, w.Next(ctx))
	require.NoError(t, w.Next(ctx))
	require.NoError(t, w.GoTo(StepInfo))
	assert.Equal(t, StepInfo, w.Step())
	require.NoError(t, w.GoTo(StepTasks))
	assert.Equal(t, StepTasks, w.Step())
}

func TestNextWithoutPersister(t *testing.T) {
	ctx := context.Background()
	w := New[draft](draft{}, nil)
	require.NoError(t, w.Next(ctx))
	assert.ErrorIs(t, w.Next(ctx), ErrNoParent)
}

func TestParseStep(t *testing.T) {
	s, ok := ParseStep("documents")
	require.True(t, ok)
	assert.Equal(t, StepDocuments, s)
	_, ok = ParseStep("review")
	assert.False(t, ok)
}

func TestNewProjectCreatesThroughStore(t *testing.T) {
	ctx := context.Background()
	coll := memory.New[content.Project]("projects")
	store := resource.New[content.Project](coll)
	title := "School garden"
	w := NewProject(store, content.Project{Title: &title})

	require.NoError(t, w.Next(ctx))
	require.NoError(t, w.Next(ctx))

	require.Len(t, store.Rows(), 1)
	assert.Equal(t, store.Rows()[0].ID, w.ParentID())
}

func TestNewProjectRejectedLeavesStoreEmpty(t *testing.T) {
	ctx := context.Background()
	coll := memory.New[content.Project]("projects")
	coll.FailNext(memory.OpInsert, remote.NewError(remote.CodePermissionDenied, "denied", nil))
	store := resource.New[content.Project](coll)
	w := NewProject(store, content.Project{})

	require.NoError(t, w.Next(ctx))
	err := w.Next(ctx)

	assert.Equal(t, resource.KindPermissionDenied, resource.KindOf(err))
	assert.Equal(t, StepDocuments, w.Step())
	assert.Empty(t, store.Rows())
}
