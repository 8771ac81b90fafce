package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/hibiken/asynq"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/lumen-foundation/lumen/internal/app"
	"github.com/lumen-foundation/lumen/internal/content"
	jobmetrics "github.com/lumen-foundation/lumen/internal/jobs"
	"github.com/lumen-foundation/lumen/internal/resource"
	"github.com/lumen-foundation/lumen/jobs"
)

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping worker startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	backends, err := app.OpenBackends(ctx, cfg, logger)
	if err != nil {
		logger.Error("open backends", slog.Any("error", err))
		os.Exit(1)
	}
	defer backends.Close()

	catalog, err := content.NewCatalog(backends.Source, content.Options{
		Logger:       logger,
		Metrics:      resource.NewMetrics(prometheus.DefaultRegisterer),
		RefreshLimit: cfg.RefreshLimit,
	})
	if err != nil {
		logger.Error("build catalog", slog.Any("error", err))
		os.Exit(1)
	}
	defer catalog.Close()

	contentJobs := jobs.NewContentJobs(catalog, logger, jobmetrics.NewMetrics(nil))

	censusTask, err := jobs.NewCensusTask(jobs.CensusPayload{})
	if err != nil {
		logger.Error("build census task", slog.Any("error", err))
		os.Exit(1)
	}

	cron := []jobs.CronRegistration{
		{Spec: cfg.CensusCron, Task: censusTask, Options: []asynq.Option{asynq.MaxRetry(1)}},
	}
	if cfg.LinkCheckCron != "" {
		cron = append(cron, jobs.CronRegistration{Spec: cfg.LinkCheckCron, Task: jobs.NewVerifyTask()})
	}

	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts: backends.RedisOptions.Asynq(),
		Logger:    logger,
		Handlers:  contentJobs.Handlers(),
		Cron:      cron,
	})
	if err != nil {
		logger.Error("init worker", slog.Any("error", err))
		os.Exit(1)
	}

	if err := worker.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("worker run", slog.Any("error", err))
		os.Exit(1)
	}
}
