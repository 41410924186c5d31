package report

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"carestats/analysis"
	"carestats/db"
	"carestats/metrics"
)

// sqlReport builds one table with queries against the loaded table.
type sqlReport struct {
	name  string
	build func(context.Context, *db.Queries, Options) (Table, error)
}

// SQLCatalog holds the reports that also run inside PostgreSQL.
var SQLCatalog = []sqlReport{
	sqlGrouped(billingByInsurer),
	sqlGrouped(costByCondition),
	sqlGrouped(losByAdmissionType),
	sqlGrouped(costPerDayByCondition),
	sqlGrouped(crosstab),
	{variability.name, sqlVariability},
	{"billing-deciles", sqlDeciles},
	{"top-billing", sqlTopBilling},
	{"longest-stays", sqlLongestStays},
	{"yearly-trend", sqlYearlyTrend},
	{"quality", sqlNullCounts},
}

// SQLNames lists the SQL catalogue in run order.
func SQLNames() []string {
	out := make([]string, len(SQLCatalog))
	for i, r := range SQLCatalog {
		out[i] = r.name
	}
	return out
}

// RunSQL runs the named SQL reports, or all of them, concurrently over q.
func RunSQL(ctx context.Context, q *db.Queries, opts Options, names []string, log zerolog.Logger) (*Result, error) {
	if len(names) == 0 {
		names = SQLNames()
	}
	reports := make([]sqlReport, len(names))
	for i, n := range names {
		found := false
		for _, r := range SQLCatalog {
			if r.name == n {
				reports[i], found = r, true
				break
			}
		}
		if !found {
			return nil, fmt.Errorf("%w: %q has no SQL rendition", ErrUnknownReport, n)
		}
	}

	count, err := q.CountPatients(ctx)
	if err != nil {
		return nil, fmt.Errorf("count patients: %w", err)
	}
	res := &Result{
		RunID:       uuid.NewString(),
		GeneratedAt: time.Now().UTC(),
		Source:      "postgres",
		Records:     int(count),
		Tables:      make([]Table, len(reports)),
	}

	g, ctx := errgroup.WithContext(ctx)
	for i, r := range reports {
		i, r := i, r
		g.Go(func() error {
			start := time.Now()
			t, err := r.build(ctx, q, opts)
			metrics.RecordReport("sql:"+r.name, err, time.Since(start))
			if err != nil {
				return fmt.Errorf("%s: %w", r.name, err)
			}
			res.Tables[i] = t
			log.Debug().Str("run_id", res.RunID).Str("report", r.name).Dur("elapsed", time.Since(start)).Msg("sql report built")
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return res, nil
}

func sqlGrouped(g grouped) sqlReport {
	return sqlReport{g.name, func(ctx context.Context, q *db.Queries, _ Options) (Table, error) {
		rows, err := q.GroupStats(ctx, g.dims, g.measure, true, 0)
		if err != nil {
			return Table{}, err
		}
		return groupTable(g, rows), nil
	}}
}

func sqlVariability(ctx context.Context, q *db.Queries, opts Options) (Table, error) {
	rows, err := q.GroupStats(ctx, variability.dims, variability.measure, true, opts.MinSupport)
	if err != nil {
		return Table{}, err
	}
	kept := rows[:0]
	for _, r := range rows {
		if r.CV != nil {
			kept = append(kept, r)
		}
	}
	analysis.SortGroupStats(kept, analysis.SortByCV, true)
	return variabilityTable(kept, opts.MinSupport), nil
}

func sqlDeciles(ctx context.Context, q *db.Queries, _ Options) (Table, error) {
	bins, err := q.BinBoundaries(ctx, analysis.Billing, 10)
	if err != nil {
		return Table{}, err
	}
	t := newTable("billing-deciles", "Billing Deciles", "decile", "count", "min", "max")
	for _, b := range bins {
		t.add(b.Bin, b.Count, b.Min, b.Max)
	}
	return t, nil
}

func sqlRanked(ctx context.Context, q *db.Queries, name, title, valueCol string, m analysis.Measure, n int) (Table, error) {
	rows, err := q.TopN(ctx, m, n, true)
	if err != nil {
		return Table{}, err
	}
	t := newTable(name, title, "rank", "id", "name", valueCol)
	for _, r := range rows {
		t.add(r.Rank, r.ID, r.Name, r.Value)
	}
	return t, nil
}

func sqlTopBilling(ctx context.Context, q *db.Queries, opts Options) (Table, error) {
	return sqlRanked(ctx, q, "top-billing", "Highest Bills", "billing amount", analysis.Billing, opts.TopN)
}

func sqlLongestStays(ctx context.Context, q *db.Queries, opts Options) (Table, error) {
	return sqlRanked(ctx, q, "longest-stays", "Longest Stays", "days", analysis.LengthOfStay, opts.LongestStaysN)
}

func sqlYearlyTrend(ctx context.Context, q *db.Queries, _ Options) (Table, error) {
	rows, err := q.YearlyTrend(ctx)
	if err != nil {
		return Table{}, err
	}
	return trendTable(rows), nil
}

func sqlNullCounts(ctx context.Context, q *db.Queries, _ Options) (Table, error) {
	counts, err := q.NullCounts(ctx)
	if err != nil {
		return Table{}, err
	}
	t := newTable("quality", "Null Counts", "column", "nulls")
	for _, c := range counts {
		t.add(c.Column, c.Nulls)
	}
	return t, nil
}
