package aggregate

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lumen-foundation/lumen/internal/content"
	"github.com/lumen-foundation/lumen/internal/remote/memory"
	"github.com/lumen-foundation/lumen/internal/resource"
)

func TestRatio(t *testing.T) {
	assert.Equal(t, 0, Ratio(0, 0))
	assert.Equal(t, 50, Ratio(2, 4))
	assert.Equal(t, 33, Ratio(1, 3))
	assert.Equal(t, 67, Ratio(2, 3))
	assert.Equal(t, 100, Ratio(5, 5))
	for done := 0; done <= 7; done++ {
		got := Ratio(done, 7)
		assert.GreaterOrEqual(t, got, 0)
		assert.LessOrEqual(t, got, 100)
	}
}

func task(id, project int64, status content.TaskStatus) content.ProjectTask {
	return content.ProjectTask{ID: id, ProjectID: &project, Status: &status}
}

func TestProjectProgress(t *testing.T) {
	tasks := []content.ProjectTask{
		task(1, 10, content.TaskDone),
		task(2, 10, content.TaskTodo),
		task(3, 10, content.TaskDone),
		task(4, 10, content.TaskInProgress),
		task(5, 11, content.TaskDone),
		{ID: 6},
	}

	assert.Equal(t, 50, ProjectProgress(10, tasks))
	assert.Equal(t, 100, ProjectProgress(11, tasks))
	assert.Equal(t, 0, ProjectProgress(12, tasks))
}

func TestAttachmentRoundTrip(t *testing.T) {
	for _, list := range [][]string{{}, {"a"}, {"a", "b", "c"}} {
		assert.Equal(t, list, DecodeAttachments(EncodeAttachments(list)))
	}
	assert.Nil(t, EncodeAttachments([]string{}))
	assert.Nil(t, EncodeAttachments(nil))
	assert.Equal(t, []string{}, DecodeAttachments(nil))

	legacy := "https://cdn.example/report.pdf"
	assert.Equal(t, []string{legacy}, DecodeAttachments(&legacy))

	empty := ""
	assert.Equal(t, []string{}, DecodeAttachments(&empty))
}

func TestTrackCompletionRecomputesOnEitherStore(t *testing.T) {
	ctx := context.Background()
	projects := resource.New[content.Project](memory.New[content.Project]("projects"))
	tasks := resource.New[content.ProjectTask](memory.New[content.ProjectTask]("project_tasks"))

	var last Progress
	calls := 0
	stop := TrackCompletion(projects, tasks, func(p Progress) {
		calls++
		last = p
	})
	assert.Equal(t, 1, calls)

	p, err := projects.Create(ctx, content.Project{})
	require.NoError(t, err)
	assert.Equal(t, 0, last[p.ID])

	done := content.TaskDone
	_, err = tasks.Create(ctx, content.ProjectTask{ProjectID: &p.ID, Status: &done})
	require.NoError(t, err)
	assert.Equal(t, 100, last[p.ID])

	todo := content.TaskTodo
	_, err = tasks.Create(ctx, content.ProjectTask{ProjectID: &p.ID, Status: &todo})
	require.NoError(t, err)
	assert.Equal(t, 50, last[p.ID])

	stop()
	_, err = tasks.Create(ctx, content.ProjectTask{ProjectID: &p.ID, Status: &todo})
	require.NoError(t, err)
	assert.Equal(t, 50, last[p.ID])
	assert.Equal(t, 4, calls)
}

func TestMigrateLegacyAttachments(t *testing.T) {
	ctx := context.Background()
	projectRows := memory.New[content.Project]("projects")
	docRows := memory.New[content.ProjectDocument]("project_documents")
	list := `["https://cdn.example/a.pdf","https://cdn.example/b.pdf"]`
	single := "https://cdn.example/legacy.pdf"
	require.NoError(t, projectRows.Seed(
		content.Project{ID: 1, Documents: &list},
		content.Project{ID: 2, Documents: &single},
		content.Project{ID: 3},
	))
	pid := int64(1)
	already := "https://cdn.example/a.pdf"
	require.NoError(t, docRows.Seed(content.ProjectDocument{ProjectID: &pid, URL: &already}))

	projects := resource.New[content.Project](projectRows)
	documents := resource.New[content.ProjectDocument](docRows)

	report, err := MigrateLegacyAttachments(ctx, projects, documents, nil)
	require.NoError(t, err)

	assert.Equal(t, MigrationReport{Projects: 2, Documents: 2, Skipped: 1}, report)
	for _, p := range projects.Rows() {
		assert.Nil(t, p.Documents, "project %d", p.ID)
	}
	n, err := documents.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)

	again, err := MigrateLegacyAttachments(ctx, projects, documents, nil)
	require.NoError(t, err)
	assert.Equal(t, MigrationReport{}, again)
}

func TestMigrateKeepsColumnWhenRowsFail(t *testing.T) {
	ctx := context.Background()
	projectRows := memory.New[content.Project]("projects")
	list := `["a","b"]`
	require.NoError(t, projectRows.Seed(content.Project{ID: 1, Documents: &list}))
	docRows := memory.New[content.ProjectDocument]("project_documents", memory.WithoutTable())

	projects := resource.New[content.Project](projectRows)
	report, err := MigrateLegacyAttachments(ctx, projects, resource.New[content.ProjectDocument](docRows), nil)

	require.Error(t, err)
	assert.Equal(t, 0, report.Projects)
	row, ok := projects.Find(1)
	require.True(t, ok)
	assert.Equal(t, list, *row.Documents)
}
