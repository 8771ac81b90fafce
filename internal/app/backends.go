package app

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/lumen-foundation/lumen/internal/content"
	"github.com/lumen-foundation/lumen/internal/platform/cache"
	"github.com/lumen-foundation/lumen/internal/platform/db"
	"github.com/lumen-foundation/lumen/internal/remote/sqlite"
)

// Backends holds the connections opened for one process.
type Backends struct {
	Source content.Source
	Redis  *redis.Client
	// RedisOptions addresses the same database for the job queue.
	RedisOptions cache.Options

	pool   *pgxpool.Pool
	sqlite *sql.DB
	logger *slog.Logger
}

// OpenBackends connects to Redis and to the configured content backend.
// SQLite databases get their tables created on first use.
func OpenBackends(ctx context.Context, cfg *Config, logger *slog.Logger) (*Backends, error) {
	b := &Backends{
		RedisOptions: cache.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword, DB: cfg.RedisDB},
		logger:       logger,
	}
	rdb, err := cache.New(ctx, b.RedisOptions)
	if err != nil {
		return nil, err
	}
	b.Redis = rdb

	b.Source.Backend = cfg.StoreBackend
	switch cfg.StoreBackend {
	case content.BackendPostgres:
		pool, err := db.New(ctx, db.Options{DSN: cfg.PGDSN, MaxConns: cfg.PGMaxConns})
		if err != nil {
			b.Close()
			return nil, err
		}
		b.pool = pool
		b.Source.Postgres = pool
	case content.BackendSQLite:
		sdb, err := sqlite.Open(cfg.SQLitePath)
		if err != nil {
			b.Close()
			return nil, err
		}
		b.sqlite = sdb
		b.Source.SQLite = sdb
		if err := content.BootstrapSQLite(ctx, sdb); err != nil {
			b.Close()
			return nil, fmt.Errorf("app: bootstrap sqlite: %w", err)
		}
	case content.BackendMemory:
		logger.Warn("content kept in memory; data is lost on restart")
	}
	return b, nil
}

// Checks returns readiness probes for every open connection.
func (b *Backends) Checks() map[string]ReadinessCheck {
	checks := map[string]ReadinessCheck{
		"redis": func(ctx context.Context) error { return b.Redis.Ping(ctx).Err() },
	}
	if b.pool != nil {
		checks["postgres"] = b.pool.Ping
	}
	if b.sqlite != nil {
		checks["sqlite"] = b.sqlite.PingContext
	}
	return checks
}

// Close releases every connection.
func (b *Backends) Close() {
	if b.pool != nil {
		b.pool.Close()
	}
	if b.sqlite != nil {
		if err := b.sqlite.Close(); err != nil {
			b.logger.Warn("sqlite close", slog.Any("error", err))
		}
	}
	if b.Redis != nil {
		if err := b.Redis.Close(); err != nil {
			b.logger.Warn("redis close", slog.Any("error", err))
		}
	}
}
