package cli

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/lumen-foundation/lumen/internal/content"
	"github.com/lumen-foundation/lumen/internal/resource"
)

// SeedOptions defines the flags of the seed command.
type SeedOptions struct {
	Stdout io.Writer
	Stderr io.Writer
}

func ptr[T any](v T) *T { return &v }

type seedProject struct {
	project content.Project
	tasks   []content.ProjectTask
	docs    []content.ProjectDocument
}

var demoProjects = []seedProject{
	{
		project: content.Project{
			Title:    ptr("Clean Water for Riverside"),
			Slug:     ptr("clean-water-riverside"),
			Summary:  ptr("Drilling and maintaining community wells."),
			Status:   ptr(content.ProjectActive),
			Category: ptr("water"),
			Location: ptr("Riverside"),
			Budget:   ptr(25000.0),
		},
		tasks: []content.ProjectTask{
			{Title: ptr("Survey sites"), Status: ptr(content.TaskDone), Position: ptr(0)},
			{Title: ptr("Drill first well"), Status: ptr(content.TaskInProgress), Position: ptr(1)},
			{Title: ptr("Train maintenance crew"), Status: ptr(content.TaskTodo), Position: ptr(2)},
		},
		docs: []content.ProjectDocument{
			{Title: ptr("Site survey"), URL: ptr("https://files.lumen.example/riverside/survey.pdf"), Kind: ptr("report")},
		},
	},
	{
		project: content.Project{
			Title:    ptr("Evening Literacy Classes"),
			Slug:     ptr("evening-literacy"),
			Summary:  ptr("Reading and writing classes for adults."),
			Status:   ptr(content.ProjectPlanned),
			Category: ptr("education"),
		},
		tasks: []content.ProjectTask{
			{Title: ptr("Recruit volunteer teachers"), Status: ptr(content.TaskTodo), Position: ptr(0)},
		},
	},
}

var demoNews = []content.News{
	{Title: ptr("First well opens in Riverside"), Slug: ptr("first-well-riverside"), Excerpt: ptr("Three hundred families now have clean water."), Published: ptr(true)},
}

var demoFAQs = []content.FAQ{
	{Question: ptr("How are donations used?"), Answer: ptr("Every donation is assigned to a published project."), SortOrder: ptr(0)},
	{Question: ptr("Can I volunteer?"), Answer: ptr("Yes, use the contact form and we will reach out."), SortOrder: ptr(1)},
}

var demoPartners = []content.Partner{
	{Name: ptr("Riverside Council"), Website: ptr("https://riverside.example.org"), Tier: ptr("gold")},
}

// SeedCommand fills empty collections with demo content. Collections that
// already hold rows are left untouched, so the command can be rerun.
func SeedCommand(ctx context.Context, catalog *content.Catalog, opts SeedOptions) int {
	if opts.Stdout == nil {
		opts.Stdout = os.Stdout
	}
	if opts.Stderr == nil {
		opts.Stderr = os.Stderr
	}

	steps := []struct {
		name string
		run  func(context.Context, *content.Catalog) (int, error)
	}{
		{"projects", seedProjects},
		{"news", func(ctx context.Context, c *content.Catalog) (int, error) { return seedRows(ctx, c.News, demoNews) }},
		{"faqs", func(ctx context.Context, c *content.Catalog) (int, error) { return seedRows(ctx, c.FAQs, demoFAQs) }},
		{"partners", func(ctx context.Context, c *content.Catalog) (int, error) {
			return seedRows(ctx, c.Partners, demoPartners)
		}},
	}
	for _, step := range steps {
		_, _ = fmt.Fprintf(opts.Stdout, "→ Seeding %s...\n", step.name)
		n, err := step.run(ctx, catalog)
		if err != nil {
			_, _ = fmt.Fprintf(opts.Stderr, "seed %s: %v\n", step.name, err)
			return 3
		}
		if n == 0 {
			_, _ = fmt.Fprintf(opts.Stdout, "  %s already populated, skipped\n", step.name)
			continue
		}
		_, _ = fmt.Fprintf(opts.Stdout, "  %d %s created\n", n, step.name)
	}
	_, _ = fmt.Fprintln(opts.Stdout, "✓ Seed complete")
	return 0
}

func seedRows[T resource.Record](ctx context.Context, store *resource.Store[T], rows []T) (int, error) {
	n, err := store.Count(ctx)
	if err != nil || n > 0 {
		return 0, err
	}
	for _, row := range rows {
		if _, err := store.Create(ctx, row); err != nil {
			return 0, err
		}
	}
	return len(rows), nil
}

func seedProjects(ctx context.Context, c *content.Catalog) (int, error) {
	n, err := c.Projects.Count(ctx)
	if err != nil || n > 0 {
		return 0, err
	}
	for _, demo := range demoProjects {
		project, err := c.Projects.Create(ctx, demo.project)
		if err != nil {
			return 0, err
		}
		for _, task := range demo.tasks {
			task.ProjectID = ptr(project.ID)
			if _, err := c.ProjectTasks.Create(ctx, task); err != nil {
				return 0, fmt.Errorf("task for project %d: %w", project.ID, err)
			}
		}
		for _, doc := range demo.docs {
			doc.ProjectID = ptr(project.ID)
			if _, err := c.ProjectDocuments.Create(ctx, doc); err != nil {
				return 0, fmt.Errorf("document for project %d: %w", project.ID, err)
			}
		}
	}
	return len(demoProjects), nil
}
