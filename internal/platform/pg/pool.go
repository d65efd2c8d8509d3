// Package pg opens PostgreSQL connection pools and applies the embedded
// document store migrations.
package pg

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// PoolOptions configures the pgx connection pool.
type PoolOptions struct {
	MaxConns          int32
	MinConns          int32
	HealthCheckPeriod time.Duration
	MaxConnLifetime   time.Duration
	MaxConnIdleTime   time.Duration
	PingTimeout       time.Duration
}

// DefaultPoolOptions returns settings suited for a small document service.
func DefaultPoolOptions() PoolOptions {
	return PoolOptions{
		MaxConns:          10,
		MinConns:          1,
		HealthCheckPeriod: 30 * time.Second,
		MaxConnLifetime:   time.Hour,
		MaxConnIdleTime:   10 * time.Minute,
		PingTimeout:       5 * time.Second,
	}
}

// NewPool connects to PostgreSQL with default options.
func NewPool(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	return NewPoolWithOptions(ctx, dsn, DefaultPoolOptions())
}

// NewPoolWithOptions connects to PostgreSQL with explicit pool options and
// verifies the connection before returning.
func NewPoolWithOptions(ctx context.Context, dsn string, opts PoolOptions) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, err
	}
	cfg.MaxConns = opts.MaxConns
	cfg.MinConns = opts.MinConns
	cfg.HealthCheckPeriod = opts.HealthCheckPeriod
	cfg.MaxConnLifetime = opts.MaxConnLifetime
	cfg.MaxConnIdleTime = opts.MaxConnIdleTime

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, err
	}

	pingCtx, cancel := context.WithTimeout(ctx, opts.PingTimeout)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, err
	}
	return pool, nil
}
