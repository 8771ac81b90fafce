package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"github.com/spf13/pflag"

	"github.com/lumen-foundation/lumen/cmd/lumen/cli"
	"github.com/lumen-foundation/lumen/internal/api"
	"github.com/lumen-foundation/lumen/internal/app"
	"github.com/lumen-foundation/lumen/internal/capability"
	"github.com/lumen-foundation/lumen/internal/content"
	"github.com/lumen-foundation/lumen/internal/observability"
	"github.com/lumen-foundation/lumen/internal/resource"
	"github.com/lumen-foundation/lumen/internal/session"
	"github.com/lumen-foundation/lumen/jobs"
)

const usage = `usage: lumen [command] [flags]

commands:
  serve          run the HTTP server (default)
  grant-role     assign a role to a registered actor
  capabilities   print the scopes each role receives
  jobs           trigger or inspect background jobs
  seed           fill empty collections with demo content
`

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	command, args := "serve", os.Args[1:]
	if len(args) > 0 && args[0] != "" && args[0][0] != '-' {
		command, args = args[0], args[1:]
	}

	switch command {
	case "serve":
		os.Exit(serve(ctx))
	case "grant-role":
		os.Exit(grantRole(ctx, args))
	case "capabilities":
		os.Exit(capabilities(args))
	case "jobs":
		os.Exit(jobsCommand(ctx, args))
	case "seed":
		os.Exit(seed(ctx))
	default:
		fmt.Fprint(os.Stderr, usage)
		os.Exit(1)
	}
}

func serve(ctx context.Context) int {
	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		return 1
	}
	logger := app.NewLogger(cfg)

	backends, err := app.OpenBackends(ctx, cfg, logger)
	if err != nil {
		logger.Error("open backends", slog.Any("error", err))
		return 1
	}
	defer backends.Close()

	matrix, err := capability.LoadFile(cfg.CapabilityFile)
	if err != nil {
		logger.Error("load capability table", slog.Any("error", err))
		return 1
	}

	metrics := observability.NewMetrics()
	storeMetrics := resource.NewMetrics(metrics.Registerer())
	catalog, err := content.NewCatalog(backends.Source, content.Options{
		Logger:       logger,
		Metrics:      storeMetrics,
		RefreshLimit: cfg.RefreshLimit,
	})
	if err != nil {
		logger.Error("build catalog", slog.Any("error", err))
		return 1
	}
	defer catalog.Close()

	accounts := resource.New[session.Account](
		content.Collection[session.Account](backends.Source, session.AccountsTable),
		resource.WithLogger[session.Account](logger),
		resource.WithMetrics[session.Account](storeMetrics),
	)
	defer accounts.Close()
	sessions := session.NewManager(backends.Redis, cfg.SessionCookie, cfg.SessionTTL, cfg.IsProduction())
	auth := session.NewService(accounts, session.NewStoreProfiles(catalog.Profiles, logger), sessions, logger)
	auth.SetPasswordCost(cfg.PasswordCost)

	jobClient := jobs.NewClient(backends.RedisOptions.Asynq())
	defer func() {
		if err := jobClient.Close(); err != nil {
			logger.Warn("jobs client close", slog.Any("error", err))
		}
	}()
	inspector := asynq.NewInspector(backends.RedisOptions.Asynq())
	defer func() { _ = inspector.Close() }()

	if err := catalog.Registry.RefreshAll(ctx); err != nil {
		logger.Warn("initial load incomplete", slog.Any("error", err))
	}

	router := app.NewRouter(app.RouterParams{
		Logger:  logger,
		Config:  cfg,
		API:     api.NewHandler(catalog, auth, matrix, logger),
		Jobs:    jobs.NewHandler(jobClient, inspector, logger),
		Metrics: metrics,
		Checks:  backends.Checks(),
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	serveCtx, cancelServe := context.WithCancel(ctx)
	defer cancelServe()
	go func() {
		logger.Info("starting http server",
			slog.String("addr", cfg.AppAddr),
			slog.String("backend", cfg.StoreBackend),
		)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server", slog.Any("error", err))
			cancelServe()
		}
	}()

	<-serveCtx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", slog.Any("error", err))
		return 1
	}
	return 0
}

func grantRole(ctx context.Context, args []string) int {
	fs := pflag.NewFlagSet("grant-role", pflag.ContinueOnError)
	email := fs.String("email", "", "email the actor signed up with")
	role := fs.String("role", "", "role to assign")
	jsonOut := fs.Bool("json", false, "print JSON")
	if err := fs.Parse(args); err != nil {
		return 1
	}

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		return 1
	}
	logger := app.NewLogger(cfg)
	backends, err := app.OpenBackends(ctx, cfg, logger)
	if err != nil {
		logger.Error("open backends", slog.Any("error", err))
		return 1
	}
	defer backends.Close()

	profiles := resource.New[content.Profile](
		content.Collection[content.Profile](backends.Source, capability.ResourceProfiles),
		resource.WithLogger[content.Profile](logger),
		resource.WithNormalizer[content.Profile](content.Normalize[content.Profile]),
	)
	defer profiles.Close()

	return cli.GrantCommand(ctx, session.NewStoreProfiles(profiles, logger), cli.GrantOptions{
		Email:      *email,
		Role:       *role,
		JSONOutput: *jsonOut,
	})
}

func capabilities(args []string) int {
	fs := pflag.NewFlagSet("capabilities", pflag.ContinueOnError)
	path := fs.String("file", os.Getenv("CAPABILITY_FILE"), "capability table to check")
	role := fs.String("role", "", "limit output to one role")
	jsonOut := fs.Bool("json", false, "print JSON")
	if err := fs.Parse(args); err != nil {
		return 1
	}
	return cli.CapabilitiesCommand(cli.CapabilitiesOptions{Path: *path, Role: *role, JSONOutput: *jsonOut})
}

func jobsCommand(ctx context.Context, args []string) int {
	if len(args) == 0 {
		fmt.Fprintln(os.Stderr, "usage: lumen jobs trigger <task> | stats | scheduled")
		return 1
	}
	opts := cli.JobsOptions{Action: args[0]}
	if len(args) > 1 {
		opts.Job = args[1]
	}

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		return 1
	}
	redisOpts := asynq.RedisClientOpt{Addr: cfg.RedisAddr, Password: cfg.RedisPassword, DB: cfg.RedisDB}
	jobsCLI := cli.NewJobsCLI(redisOpts)
	defer func() { _ = jobsCLI.Close() }()
	return jobsCLI.JobsCommand(ctx, opts)
}

func seed(ctx context.Context) int {
	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		return 1
	}
	logger := app.NewLogger(cfg)
	backends, err := app.OpenBackends(ctx, cfg, logger)
	if err != nil {
		logger.Error("open backends", slog.Any("error", err))
		return 1
	}
	defer backends.Close()

	catalog, err := content.NewCatalog(backends.Source, content.Options{Logger: logger})
	if err != nil {
		logger.Error("build catalog", slog.Any("error", err))
		return 1
	}
	defer catalog.Close()
	return cli.SeedCommand(ctx, catalog, cli.SeedOptions{})
}
