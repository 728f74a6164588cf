package database

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	// ApplicationName tags park store sessions in pg_stat_activity.
	ApplicationName = "bounceheads-directory"
	// StatementTimeout bounds a single statement.
	StatementTimeout = "30s"
)

// Connect opens the park store pool and verifies connectivity. Callers run
// EnsureSchema before use.
func Connect(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	cfg, err := PoolConfig(dsn)
	if err != nil {
		return nil, err
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create pgx pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return pool, nil
}

// PoolConfig parses dsn and applies the park store pool settings. Runtime
// parameters already present in the DSN win over the defaults.
func PoolConfig(dsn string) (*pgxpool.Config, error) {
	if dsn == "" {
		return nil, fmt.Errorf("database DSN must not be empty")
	}

	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse pgx config: %w", err)
	}

	// Pipeline runs are sequential; the API is read-mostly.
	cfg.MaxConns = 8
	cfg.MaxConnLifetime = 1 * time.Hour
	cfg.MaxConnIdleTime = 15 * time.Minute
	cfg.HealthCheckPeriod = 30 * time.Second

	params := cfg.ConnConfig.RuntimeParams
	if params["application_name"] == "" {
		params["application_name"] = ApplicationName
	}
	if params["statement_timeout"] == "" {
		params["statement_timeout"] = StatementTimeout
	}

	return cfg, nil
}
