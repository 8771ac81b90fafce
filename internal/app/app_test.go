package app

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lumen-foundation/lumen/internal/content"
	"github.com/lumen-foundation/lumen/internal/observability"
)

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("STORE_BACKEND", "sqlite")
	t.Setenv("SQLITE_PATH", "/tmp/lumen-test.db")

	cfg, err := LoadConfig()

	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.AppAddr)
	assert.Equal(t, "lumen_session", cfg.SessionCookie)
	assert.Equal(t, 120, cfg.RateLimitPerMinute)
	assert.False(t, cfg.IsProduction())
}

func TestConfigValidate(t *testing.T) {
	base := Config{StoreBackend: "memory", SessionCookie: "s", RateLimitPerMinute: 10}
	require.NoError(t, base.Validate())

	prod := base
	prod.AppEnv = "production"
	assert.Error(t, prod.Validate())

	unknown := base
	unknown.StoreBackend = "mongo"
	assert.Error(t, unknown.Validate())

	noLimit := base
	noLimit.RateLimitPerMinute = 0
	assert.Error(t, noLimit.Validate())
}

func TestLoggerHonoursLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := newLogger(&buf, &Config{LogFormat: "json", LogLevel: "warn"})

	logger.Info("hidden")
	logger.Warn("shown")

	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), `"msg":"shown"`)
}

func TestRefreshTestMode(t *testing.T) {
	t.Setenv(testModeEnv, "1")
	RefreshTestMode()
	assert.True(t, InTestMode())

	t.Setenv(testModeEnv, "")
	RefreshTestMode()
	assert.False(t, InTestMode())
}

func TestRouterHealthAndReadiness(t *testing.T) {
	failing := errors.New("down")
	router := NewRouter(RouterParams{
		Logger:  slog.Default(),
		Config:  &Config{RateLimitPerMinute: 100},
		Metrics: observability.NewMetrics(),
		Checks: map[string]ReadinessCheck{
			"redis": func(context.Context) error { return nil },
			"store": func(context.Context) error { return failing },
		},
	})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.JSONEq(t, `{"redis":"ok","store":"unavailable"}`, rec.Body.String())

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestMiddlewareStackRateLimits(t *testing.T) {
	var h http.Handler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	stack := MiddlewareStack(MiddlewareConfig{Config: &Config{RateLimitPerMinute: 2}})
	for i := len(stack) - 1; i >= 0; i-- {
		h = stack[i](h)
	}

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodGet, "/api/me", nil)
		req.RemoteAddr = "203.0.113.7:4000"
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		codes = append(codes, rec.Code)
		if i == 0 {
			assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
		}
	}

	assert.Equal(t, []int{http.StatusNoContent, http.StatusNoContent, http.StatusTooManyRequests}, codes)
}

func TestOpenBackendsSQLite(t *testing.T) {
	mr := miniredis.RunT(t)
	cfg := &Config{
		StoreBackend: "sqlite",
		SQLitePath:   ":memory:",
		RedisAddr:    mr.Addr(),
	}
	ctx := context.Background()

	b, err := OpenBackends(ctx, cfg, slog.Default())
	require.NoError(t, err)
	t.Cleanup(b.Close)

	require.NotNil(t, b.Source.SQLite)
	checks := b.Checks()
	assert.Len(t, checks, 2)
	for name, check := range checks {
		assert.NoError(t, check(ctx), name)
	}

	catalog, err := content.NewCatalog(b.Source, content.Options{})
	require.NoError(t, err)
	n, err := catalog.Projects.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestOpenBackendsNeedsRedis(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	_, err := OpenBackends(context.Background(), &Config{StoreBackend: "memory", RedisAddr: addr}, slog.Default())

	assert.Error(t, err)
}
