package repository

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/jiralite/api/internal/config"
)

const connectAttempts = 5

// DB owns the pgx pool shared by the credential repositories. One pool,
// many repositories: the conditional-update transitions rely on every
// writer reaching the same database, not on pool topology.
type DB struct {
	Pool *pgxpool.Pool
}

// NewDB connects with linear backoff. Postgres tends to come up after the
// service under orchestration, so a failed first dial is normal.
func NewDB(ctx context.Context, cfg config.DatabaseConfig) (*DB, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	poolConfig.MaxConns = int32(cfg.MaxOpenConns)
	poolConfig.MinConns = int32(cfg.MaxIdleConns)
	poolConfig.MaxConnLifetime = cfg.ConnMaxLifetime
	poolConfig.ConnConfig.ConnectTimeout = 10 * time.Second

	var lastErr error
	for attempt := 1; attempt <= connectAttempts; attempt++ {
		pool, err := connect(ctx, poolConfig)
		if err == nil {
			slog.Info("Database connected",
				slog.String("host", cfg.Host),
				slog.Int("port", cfg.Port),
				slog.String("database", cfg.Name),
				slog.String("ssl_mode", cfg.SSLMode),
			)
			return &DB{Pool: pool}, nil
		}

		lastErr = err
		slog.Warn("Database connection failed",
			slog.Int("attempt", attempt),
			slog.String("host", cfg.Host),
			slog.Any("error", err))
		time.Sleep(time.Duration(attempt) * time.Second)
	}

	return nil, fmt.Errorf("connect after %d attempts: %w", connectAttempts, lastErr)
}

func connect(ctx context.Context, poolConfig *pgxpool.Config) (*pgxpool.Pool, error) {
	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, err
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, err
	}
	return pool, nil
}

func (db *DB) Close() {
	if db.Pool != nil {
		db.Pool.Close()
	}
}

// HealthCheck verifies the database answers queries, not just pings.
func (db *DB) HealthCheck(ctx context.Context) error {
	var ok int
	return db.Pool.QueryRow(ctx, "SELECT 1").Scan(&ok)
}
