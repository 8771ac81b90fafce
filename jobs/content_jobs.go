package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/hibiken/asynq"
	"golang.org/x/time/rate"

	"github.com/lumen-foundation/lumen/internal/aggregate"
	"github.com/lumen-foundation/lumen/internal/content"
	jobmetrics "github.com/lumen-foundation/lumen/internal/jobs"
)

// ContentJobs runs the maintenance tasks over a content catalog.
type ContentJobs struct {
	catalog   *content.Catalog
	logger    *slog.Logger
	metrics   *jobmetrics.Metrics
	links     *http.Client
	linkLimit *rate.Limiter
}

// NewContentJobs wires the handlers. A nil metrics falls back to the default
// registerer.
func NewContentJobs(catalog *content.Catalog, logger *slog.Logger, metrics *jobmetrics.Metrics) *ContentJobs {
	if logger == nil {
		logger = slog.Default()
	}
	if metrics == nil {
		metrics = jobmetrics.NewMetrics(nil)
	}
	return &ContentJobs{
		catalog:   catalog,
		logger:    logger,
		metrics:   metrics,
		links:     NewLinkClient(linkTimeout),
		linkLimit: newLinkLimiter(),
	}
}

// Handlers lists the task handlers for worker registration.
func (j *ContentJobs) Handlers() []TaskHandler {
	return []TaskHandler{
		{Type: TaskAttachmentsMigrate, Handler: j.HandleMigrate},
		{Type: TaskContentCensus, Handler: j.HandleCensus},
		{Type: TaskContentRefresh, Handler: j.HandleRefresh},
		{Type: TaskAttachmentsVerify, Handler: j.HandleVerify},
	}
}

// HandleMigrate moves legacy attachment references into project_documents.
// Partial failures are retried; already moved references are not repeated.
func (j *ContentJobs) HandleMigrate(ctx context.Context, t *asynq.Task) (resultErr error) {
	tracker := j.metrics.Track(TaskAttachmentsMigrate)
	defer func() { resultErr = tracker.End(resultErr) }()

	var payload MigratePayload
	if len(t.Payload()) > 0 {
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return errors.Join(err, asynq.SkipRetry)
		}
	}

	logger := j.logger.With(slog.String("task", TaskAttachmentsMigrate))
	if payload.RequestedBy != "" {
		logger = logger.With(slog.String("requested_by", payload.RequestedBy))
	}
	report, err := aggregate.MigrateLegacyAttachments(ctx, j.catalog.Projects, j.catalog.ProjectDocuments, logger)
	j.metrics.AddMigrated("moved", report.Documents)
	j.metrics.AddMigrated("skipped", report.Skipped)
	if err != nil {
		logger.Error("attachment migration incomplete", slog.Any("error", err))
	}
	return err
}

// HandleCensus publishes per-collection row counts. Collections that fail to
// count keep their previous gauge value.
func (j *ContentJobs) HandleCensus(ctx context.Context, t *asynq.Task) (resultErr error) {
	tracker := j.metrics.Track(TaskContentCensus)
	defer func() { resultErr = tracker.End(resultErr) }()

	var payload CensusPayload
	if len(t.Payload()) > 0 {
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return errors.Join(err, asynq.SkipRetry)
		}
	}

	counts, err := j.catalog.Registry.CountAll(ctx)
	wanted := make(map[string]bool, len(payload.Resources))
	for _, name := range payload.Resources {
		wanted[name] = true
	}
	for name, n := range counts {
		if len(wanted) > 0 && !wanted[name] {
			continue
		}
		j.metrics.SetRows(name, n)
	}
	if err != nil {
		j.logger.Warn("census incomplete", slog.Any("error", err))
		return err
	}
	return nil
}

// HandleRefresh reloads every store.
func (j *ContentJobs) HandleRefresh(ctx context.Context, _ *asynq.Task) (resultErr error) {
	tracker := j.metrics.Track(TaskContentRefresh)
	defer func() { resultErr = tracker.End(resultErr) }()
	return j.catalog.Registry.RefreshAll(ctx)
}
