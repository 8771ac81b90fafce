package aggregate

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"path"
	"strings"

	"github.com/lumen-foundation/lumen/internal/content"
	"github.com/lumen-foundation/lumen/internal/remote"
	"github.com/lumen-foundation/lumen/internal/resource"
)

// DecodeAttachments reads a scalar attachment column. An absent or empty
// value is an empty list, a JSON array of strings is returned as is, and
// anything else is a single legacy reference.
func DecodeAttachments(text *string) []string {
	if text == nil || strings.TrimSpace(*text) == "" {
		return []string{}
	}
	var list []string
	if err := json.Unmarshal([]byte(*text), &list); err == nil {
		if list == nil {
			return []string{}
		}
		return list
	}
	return []string{*text}
}

// EncodeAttachments is the inverse of DecodeAttachments for lists of valid
// UTF-8 references; invalid bytes are replaced with U+FFFD. An empty list
// encodes to nil, never "[]".
func EncodeAttachments(list []string) *string {
	if len(list) == 0 {
		return nil
	}
	data, err := json.Marshal(list)
	if err != nil {
		return nil
	}
	s := string(data)
	return &s
}

// MigrationReport summarises a MigrateLegacyAttachments run.
type MigrationReport struct {
	Projects  int
	Documents int
	Skipped   int
}

// MigrateLegacyAttachments moves attachment lists stored in the legacy
// projects.documents column into project_documents rows, then clears the
// column. References already present as rows for the same project are not
// duplicated, so the migration can be re-run after a partial failure. A
// project whose rows could not all be written keeps its column.
//
// This is a one-time shim; remove it once no project carries the column.
func MigrateLegacyAttachments(ctx context.Context, projects *resource.Store[content.Project], documents *resource.Store[content.ProjectDocument], logger *slog.Logger) (MigrationReport, error) {
	if logger == nil {
		logger = slog.Default()
	}
	var report MigrationReport
	rows, err := projects.List(ctx)
	if err != nil {
		return report, fmt.Errorf("aggregate: migrate attachments: %w", err)
	}

	var errs []error
	for _, project := range rows {
		if project.Documents == nil {
			continue
		}
		moved, skipped, err := migrateProject(ctx, project.ID, DecodeAttachments(project.Documents), documents)
		report.Documents += moved
		report.Skipped += skipped
		if err != nil {
			logger.Warn("attachment migration failed", slog.Int64("project_id", project.ID), slog.Any("error", err))
			errs = append(errs, err)
			continue
		}
		if _, err := projects.Patch(ctx, project.ID, remote.Values{"documents": nil}); err != nil {
			logger.Warn("clearing legacy attachments failed", slog.Int64("project_id", project.ID), slog.Any("error", err))
			errs = append(errs, err)
			continue
		}
		report.Projects++
	}
	logger.Info("attachment migration finished",
		slog.Int("projects", report.Projects),
		slog.Int("documents", report.Documents),
		slog.Int("skipped", report.Skipped),
	)
	return report, errors.Join(errs...)
}

func migrateProject(ctx context.Context, projectID int64, refs []string, documents *resource.Store[content.ProjectDocument]) (moved, skipped int, err error) {
	existing, err := documents.Where(ctx, remote.Filter{Column: "project_id", Value: projectID})
	if err != nil {
		return 0, 0, err
	}
	seen := make(map[string]struct{}, len(existing))
	for _, doc := range existing {
		if doc.URL != nil {
			seen[*doc.URL] = struct{}{}
		}
	}
	for _, ref := range refs {
		if _, ok := seen[ref]; ok {
			skipped++
			continue
		}
		pid, url, title := projectID, ref, path.Base(ref)
		if _, err := documents.Create(ctx, content.ProjectDocument{ProjectID: &pid, URL: &url, Title: &title}); err != nil {
			return moved, skipped, err
		}
		seen[ref] = struct{}{}
		moved++
	}
	return moved, skipped, nil
}
