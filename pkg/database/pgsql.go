package database

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// PoolOptions tunes the ledger connection pool.
type PoolOptions struct {
	URL            string
	MaxConns       int32
	ConnectTimeout time.Duration
	// Ping verifies connectivity before the pool is handed out.
	Ping bool
}

// NewPgxPool opens a pgx pool for the ledger store.
func NewPgxPool(ctx context.Context, logger *slog.Logger, opts PoolOptions) (*pgxpool.Pool, error) {
	if opts.URL == "" {
		return nil, errors.New("database URL cannot be empty")
	}

	poolCfg, err := pgxpool.ParseConfig(opts.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database config from URL: %w", err)
	}
	if opts.ConnectTimeout > 0 {
		poolCfg.ConnConfig.ConnectTimeout = opts.ConnectTimeout
	}
	if opts.MaxConns > 0 {
		poolCfg.MaxConns = opts.MaxConns
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if opts.Ping {
		pingCtx, cancel := context.WithTimeout(ctx, opts.ConnectTimeout+time.Second)
		defer cancel()
		if err := pool.Ping(pingCtx); err != nil {
			pool.Close()
			return nil, fmt.Errorf("failed to ping database: %w", err)
		}
		logger.Info("Ledger database reachable",
			slog.String("host", poolCfg.ConnConfig.Host),
			slog.String("database", poolCfg.ConnConfig.Database),
			slog.Int("max_conns", int(poolCfg.MaxConns)))
	}

	return pool, nil
}

// ClosePgxPool closes pool, if any.
func ClosePgxPool(logger *slog.Logger, pool *pgxpool.Pool) {
	if pool == nil {
		return
	}
	pool.Close()
	logger.Info("Ledger database pool closed")
}
