// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package store owns the PostgreSQL connection pool and the embedded
// membership schema.
package store

import (
	"context"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/samber/oops"
	"github.com/sethvargo/go-retry"
)

// PoolOptions tunes Open.
type PoolOptions struct {
	// MaxConns caps the pool size. Zero keeps the pgxpool default.
	MaxConns int32
	// ConnectAttempts is how many times the first ping is tried.
	ConnectAttempts uint64
	// ConnectBackoff is the initial delay between attempts; it doubles
	// each time up to ten times its value.
	ConnectBackoff time.Duration
}

// DefaultPoolOptions returns the options used by the serve command.
func DefaultPoolOptions() PoolOptions {
	return PoolOptions{
		ConnectAttempts: 5,
		ConnectBackoff:  500 * time.Millisecond,
	}
}

// Open creates a pool for dsn and waits until the database answers a ping.
func Open(ctx context.Context, dsn string, opts PoolOptions) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, oops.Code("DB_CONFIG_INVALID").With("operation", "parse database url").Wrap(err)
	}
	if opts.MaxConns > 0 {
		cfg.MaxConns = opts.MaxConns
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, oops.Code("DB_CONNECT_FAILED").With("operation", "create pool").Wrap(err)
	}

	if err := ping(ctx, pool, opts); err != nil {
		pool.Close()
		return nil, err
	}
	return pool, nil
}

func ping(ctx context.Context, pool *pgxpool.Pool, opts PoolOptions) error {
	if opts.ConnectAttempts == 0 {
		opts.ConnectAttempts = 1
	}
	if opts.ConnectBackoff <= 0 {
		opts.ConnectBackoff = 100 * time.Millisecond
	}

	backoff := retry.NewExponential(opts.ConnectBackoff)
	backoff = retry.WithCappedDuration(10*opts.ConnectBackoff, backoff)
	backoff = retry.WithMaxRetries(opts.ConnectAttempts-1, backoff)

	attempt := 0
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		attempt++
		if err := pool.Ping(ctx); err != nil {
			slog.Warn("database not ready", "attempt", attempt, "error", err)
			return retry.RetryableError(err)
		}
		return nil
	})
	if err != nil {
		return oops.Code("DB_CONNECT_FAILED").
			With("operation", "ping database").
			With("attempts", attempt).
			Wrap(err)
	}
	return nil
}
