package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/facturaIA/invoice-stock-service/internal/config"
	"github.com/facturaIA/invoice-stock-service/internal/logger"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrNoDatabase is returned when no store is configured or reachable
var ErrNoDatabase = errors.New("database not available")

// Pool is the global postgres connection pool. It stays nil in sqlite mode.
var Pool *pgxpool.Pool

// Init initializes the postgres connection pool
func Init(ctx context.Context, cfg config.DatabaseConfig) error {
	if cfg.URL == "" {
		return fmt.Errorf("%w: no postgres URL configured", ErrNoDatabase)
	}

	poolConfig, err := pgxpool.ParseConfig(cfg.URL)
	if err != nil {
		return fmt.Errorf("failed to parse database URL: %w", err)
	}

	// Connection pool settings optimized for PgBouncer
	poolConfig.MaxConns = 10
	poolConfig.MinConns = 2
	if cfg.MaxConns > 0 {
		poolConfig.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		poolConfig.MinConns = cfg.MinConns
	}
	poolConfig.MaxConnLifetime = 1 * time.Hour
	poolConfig.MaxConnIdleTime = 30 * time.Minute
	poolConfig.HealthCheckPeriod = 1 * time.Minute

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return fmt.Errorf("failed to create connection pool: %w", err)
	}

	// Verify connection
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return fmt.Errorf("failed to ping database: %w", err)
	}

	Pool = pool
	l := logger.WithComponent("db")
	l.Info().Int32("max_conns", poolConfig.MaxConns).Msg("database connection pool initialized")
	return nil
}

// Close closes the database connection pool
func Close() {
	if Pool != nil {
		Pool.Close()
		Pool = nil
		l := logger.WithComponent("db")
		l.Info().Msg("database connection pool closed")
	}
}

// PoolStats reports pool usage for the health endpoint. ok is false in sqlite mode.
func PoolStats() (total, idle int32, ok bool) {
	if Pool == nil {
		return 0, 0, false
	}
	s := Pool.Stat()
	return s.TotalConns(), s.IdleConns(), true
}
