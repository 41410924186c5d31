package db

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"

	"carestats/metrics"
	"carestats/records"
)

const DefaultBatchSize = 1000

type LoadOptions struct {
	// BatchSize is the number of records per transaction.
	BatchSize int
	// Replace truncates the table before loading.
	Replace bool
}

type LoadStats struct {
	Rows     int64
	Batches  int
	Duration time.Duration
}

// LoadRecords creates the schema if needed and copies recs into the
// patient table, committing every BatchSize records.
func LoadRecords(ctx context.Context, pool *pgxpool.Pool, recs []records.PatientRecord, opts LoadOptions, log zerolog.Logger) (LoadStats, error) {
	start := time.Now()
	batchSize := opts.BatchSize
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}

	q := New(pool)
	if err := q.InitSchema(ctx); err != nil {
		return LoadStats{}, err
	}
	if opts.Replace {
		if err := q.TruncatePatients(ctx); err != nil {
			return LoadStats{}, fmt.Errorf("truncate: %w", err)
		}
	}

	var stats LoadStats
	lastLog := time.Now()
	for lo := 0; lo < len(recs); lo += batchSize {
		hi := min(lo+batchSize, len(recs))

		tx, err := pool.Begin(ctx)
		if err != nil {
			return stats, fmt.Errorf("begin tx: %w", err)
		}
		n, err := New(tx).CopyPatients(ctx, recs[lo:hi])
		if err != nil {
			tx.Rollback(ctx)
			return stats, err
		}
		if err := tx.Commit(ctx); err != nil {
			return stats, fmt.Errorf("commit: %w", err)
		}
		stats.Rows += n
		stats.Batches++
		metrics.RecordRecordsLoaded("postgres", n)

		if time.Since(lastLog) >= 5*time.Second {
			elapsed := time.Since(start).Seconds()
			log.Info().
				Int64("rows", stats.Rows).
				Int("total", len(recs)).
				Float64("pct", float64(stats.Rows)/float64(len(recs))*100).
				Float64("rows_per_sec", float64(stats.Rows)/elapsed).
				Msg("load progress")
			lastLog = time.Now()
		}
	}

	stats.Duration = time.Since(start)
	log.Info().
		Int64("rows", stats.Rows).
		Int("batches", stats.Batches).
		Dur("elapsed", stats.Duration).
		Msg("load complete")
	return stats, nil
}
