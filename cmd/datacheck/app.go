package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"fortio.org/safecast"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/JonMunkholm/datacheck/internal/check"
	"github.com/JonMunkholm/datacheck/internal/config"
	"github.com/JonMunkholm/datacheck/internal/refstore"
	"github.com/JonMunkholm/datacheck/internal/runner"
	"github.com/JonMunkholm/datacheck/internal/schema"
	"github.com/JonMunkholm/datacheck/internal/store"
)

// app holds the optional backends shared by check and serve.
type app struct {
	cfg   *config.Config
	redis *redis.Client
	pool  *pgxpool.Pool
}

// openApp connects to Redis and PostgreSQL when they are configured and
// registers extra schema files.
func openApp(ctx context.Context, cfg *config.Config) (*app, error) {
	a := &app{cfg: cfg}

	for _, path := range cfg.Check.SchemaFiles {
		ds, err := schema.RegisterFile(path)
		if err != nil {
			return nil, err
		}
		slog.Info("dataset registered", "dataset", ds.Name, "path", path)
	}

	if cfg.Redis.URL != "" {
		client, err := refstore.Connect(ctx, refstore.Config{
			URL:            cfg.Redis.URL,
			RetryAttempts:  cfg.Redis.RetryAttempts,
			RetryInterval:  cfg.Redis.RetryInterval,
			ConnectTimeout: cfg.Redis.ConnectTimeout,
			KeyTTL:         cfg.Redis.KeyTTL,
		})
		if err != nil {
			return nil, fmt.Errorf("connect redis: %w", err)
		}
		a.redis = client
		slog.Info("connected to redis")
	}

	if cfg.Database.URL != "" {
		maxConns, err := safecast.Conv[int32](cfg.Database.MaxConns)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("DB_MAX_CONNS: %w", err)
		}
		minConns, err := safecast.Conv[int32](cfg.Database.MinConns)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("DB_MIN_CONNS: %w", err)
		}
		pool, err := store.Connect(ctx, store.Config{
			URL:             cfg.Database.URL,
			MaxConns:        maxConns,
			MinConns:        minConns,
			MaxConnLifetime: cfg.Database.MaxConnLifetime,
			MaxConnIdleTime: cfg.Database.MaxConnIdleTime,
			RetryAttempts:   cfg.Database.RetryAttempts,
			RetryInterval:   cfg.Database.RetryInterval,
		})
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("connect database: %w", err)
		}
		a.pool = pool
		if err := store.Migrate(ctx, pool, cfg.Database.MigrationsTable, slog.Default()); err != nil {
			a.Close()
			return nil, err
		}
		slog.Info("connected to database")
	}

	return a, nil
}

func (a *app) Close() {
	if a.pool != nil {
		a.pool.Close()
	}
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			slog.Warn("close redis", "error", err)
		}
	}
}

// stores picks the reference store backend.
func (a *app) stores() runner.StoreFactory {
	if strings.ToLower(a.cfg.Check.RefBackend) != "redis" || a.redis == nil {
		return runner.MemoryStores
	}
	client, ttl := a.redis, a.cfg.Redis.KeyTTL
	return func(_ context.Context, runID string) (check.Store, func(context.Context) error, error) {
		s := refstore.New(client, runID, ttl)
		return s, s.Cleanup, nil
	}
}

// recorders returns every configured report sink and the one reports are
// read back from: the database if set, else the Redis cache, else memory.
func (a *app) recorders() ([]runner.Recorder, runner.Reports) {
	var (
		recs    []runner.Recorder
		reports runner.Reports
	)
	if a.pool != nil {
		runs := store.NewRuns(a.pool)
		recs = append(recs, runs)
		reports = runs
	}
	if a.redis != nil {
		cache := refstore.NewReports(a.redis, a.cfg.Redis.ReportTTL, a.cfg.Redis.ReportKeep)
		recs = append(recs, cache)
		if reports == nil {
			reports = cache
		}
	}
	if reports == nil {
		history := runner.NewHistory(a.cfg.Check.HistorySize)
		recs = append(recs, history)
		reports = history
	}
	return recs, reports
}

func (a *app) runner(recs []runner.Recorder) *runner.Runner {
	opts := []runner.Option{runner.WithStores(a.stores())}
	for _, rec := range recs {
		opts = append(opts, runner.WithRecorder(rec))
	}
	return runner.New(opts...)
}

// loadConfig wraps config.Load with a hint for the common failure.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, errors.Join(errors.New("invalid configuration (see environment variables)"), err)
	}
	return cfg, nil
}
