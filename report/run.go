package report

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"carestats/metrics"
)

// Result is the envelope of one run over a dataset snapshot.
type Result struct {
	RunID       string    `json:"run_id"`
	GeneratedAt time.Time `json:"generated_at"`
	Source      string    `json:"source"`
	Records     int       `json:"records"`
	Tables      []Table   `json:"reports"`
}

// Run builds the named reports, or the whole catalogue when names is
// empty, concurrently against the same dataset. Tables come back in the
// order requested.
func Run(ctx context.Context, env *Env, names []string, log zerolog.Logger) (*Result, error) {
	if len(names) == 0 {
		names = Names()
	}
	reports := make([]Report, len(names))
	for i, n := range names {
		r, err := Lookup(n)
		if err != nil {
			return nil, err
		}
		reports[i] = r
	}

	res := &Result{
		RunID:       uuid.NewString(),
		GeneratedAt: time.Now().UTC(),
		Source:      "memory",
		Records:     env.Dataset.Len(),
		Tables:      make([]Table, len(reports)),
	}

	g, ctx := errgroup.WithContext(ctx)
	for i, r := range reports {
		i, r := i, r
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			start := time.Now()
			res.Tables[i] = r.Build(env)
			metrics.RecordReport(r.Name, nil, time.Since(start))
			log.Debug().
				Str("run_id", res.RunID).
				Str("report", r.Name).
				Int("rows", len(res.Tables[i].Rows)).
				Dur("elapsed", time.Since(start)).
				Msg("report built")
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return res, nil
}
