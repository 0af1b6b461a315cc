package store

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/atmx/ledger-engine/internal/config"
)

// Open builds the store cfg selects and, when cfg.RedisURL is set, wraps it
// in the read-through cache. The returned cleanup releases everything Open
// created and is safe to call once.
func Open(ctx context.Context, cfg config.StoreConfig, logger *slog.Logger) (Store, func(), error) {
	var (
		st      Store
		cleanup []func()
	)
	closeAll := func() {
		for i := len(cleanup) - 1; i >= 0; i-- {
			cleanup[i]()
		}
	}

	switch cfg.Driver {
	case config.DriverPostgres:
		pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, nil, fmt.Errorf("database connection failed: %w", err)
		}
		cleanup = append(cleanup, pool.Close)
		pg, err := NewPostgresStore(ctx, pool)
		if err != nil {
			closeAll()
			return nil, nil, err
		}
		st = pg
		logger.Info("connected to PostgreSQL")
	case config.DriverSQLite:
		sq, err := NewSQLiteStore(cfg.SQLitePath)
		if err != nil {
			return nil, nil, fmt.Errorf("open sqlite %s: %w", cfg.SQLitePath, err)
		}
		st = sq
		logger.Info("opened SQLite store", "path", cfg.SQLitePath)
	default:
		logger.Warn("using in-memory store (data will not persist)")
		st = NewMemoryStore()
	}

	if cfg.RedisURL != "" {
		opt, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			st.Close()
			closeAll()
			return nil, nil, fmt.Errorf("invalid REDIS_URL: %w", err)
		}
		ttl, err := cfg.CacheTTLDuration()
		if err != nil {
			st.Close()
			closeAll()
			return nil, nil, fmt.Errorf("invalid cache ttl: %w", err)
		}
		st = NewCachedStore(st, redis.NewClient(opt), ttl)
		logger.Info("Redis cache enabled", "ttl", ttl)
	}

	return st, func() {
		if err := st.Close(); err != nil {
			logger.Error("store close failed", "err", err)
		}
		closeAll()
	}, nil
}
