package app

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/lumen-foundation/lumen/internal/api"
	"github.com/lumen-foundation/lumen/internal/capability"
	"github.com/lumen-foundation/lumen/internal/observability"
	"github.com/lumen-foundation/lumen/internal/platform/httpx"
	"github.com/lumen-foundation/lumen/jobs"
)

// ReadinessCheck probes one dependency.
type ReadinessCheck func(ctx context.Context) error

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger  *slog.Logger
	Config  *Config
	API     *api.Handler
	Jobs    *jobs.Handler
	Metrics *observability.Metrics
	// Checks run on /readyz, keyed by dependency name.
	Checks map[string]ReadinessCheck
}

// NewRouter constructs the chi.Router with Lumen defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	var session func(http.Handler) http.Handler
	if params.API != nil {
		session = params.API.Session
	}

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		httpx.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Get("/readyz", readyHandler(params.Logger, params.Checks))
	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}

	r.Group(func(r chi.Router) {
		for _, mw := range MiddlewareStack(MiddlewareConfig{
			Logger:  params.Logger,
			Config:  params.Config,
			Metrics: params.Metrics,
			Session: session,
		}) {
			r.Use(mw)
		}
		r.Use(chimw.Logger)
		if params.API != nil {
			params.API.MountRoutes(r)
			if params.Jobs != nil {
				// Running maintenance is limited to roles that may delete projects.
				r.With(params.API.Require(capability.ResourceProjects, capability.ActionDelete)).
					Route("/jobs", params.Jobs.MountRoutes)
			}
		}
	})

	return r
}

func readyHandler(logger *slog.Logger, checks map[string]ReadinessCheck) http.HandlerFunc {
	if logger == nil {
		logger = slog.Default()
	}
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		status := map[string]string{}
		code := http.StatusOK
		for name, check := range checks {
			if err := check(ctx); err != nil {
				logger.Warn("readiness check failed", slog.String("dependency", name), slog.Any("error", err))
				status[name] = "unavailable"
				code = http.StatusServiceUnavailable
				continue
			}
			status[name] = "ok"
		}
		httpx.JSON(w, code, status)
	}
}
