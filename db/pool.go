package db

import (
	"context"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

// NewPool opens a pgx pool sized by maxConns/minConns and pings it once.
// It does not retry; see Connect.
func NewPool(ctx context.Context, databaseURL string, maxConns, minConns int32) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}

	cfg.MaxConns = maxConns
	cfg.MinConns = minConns

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return pool, nil
}

// Connect opens a pool, retrying with exponential backoff while the
// database is unreachable. A malformed URL fails immediately.
func Connect(ctx context.Context, databaseURL string, maxConns, minConns int32, retries uint64, log zerolog.Logger) (*pgxpool.Pool, error) {
	if _, err := pgxpool.ParseConfig(databaseURL); err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = 250 * time.Millisecond
	bo.MaxInterval = 5 * time.Second

	var pool *pgxpool.Pool
	attempt := 0
	err := backoff.Retry(
		func() error {
			attempt++
			p, err := NewPool(ctx, databaseURL, maxConns, minConns)
			if err != nil {
				log.Warn().Err(err).Int("attempt", attempt).Msg("database not ready")
				return err
			}
			pool = p
			return nil
		},
		backoff.WithContext(backoff.WithMaxRetries(bo, retries), ctx),
	)
	if err != nil {
		return nil, err
	}
	log.Info().Int("attempts", attempt).Msg("connected to database")
	return pool, nil
}
