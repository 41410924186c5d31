package db

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"

	"carestats/analysis"
	"carestats/records"
)

func builder() squirrel.StatementBuilderType {
	return squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar)
}

const losExpr = "(discharge_date - date_of_admission)"

// dimensionExprs maps analysis dimensions onto column expressions. NULL
// text reads back as "" to match the in-memory keys.
var dimensionExprs = map[string]string{
	analysis.Insurer.Name:       "COALESCE(insurance_provider, '')",
	analysis.Condition.Name:     "COALESCE(medical_condition, '')",
	analysis.AdmissionType.Name: "COALESCE(admission_type, '')",
	analysis.Gender.Name:        "COALESCE(gender, '')",
	analysis.BloodType.Name:     "COALESCE(blood_type, '')",
	analysis.Hospital.Name:      "COALESCE(hospital, '')",
	analysis.Doctor.Name:        "COALESCE(doctor, '')",
	analysis.Medication.Name:    "COALESCE(medication, '')",
	analysis.TestResults.Name:   "COALESCE(test_results, '')",
	analysis.AdmissionYear.Name: "EXTRACT(YEAR FROM date_of_admission)::int::text",
}

// measureExprs yields NULL where the measure is undefined.
var measureExprs = map[string]string{
	analysis.Billing.Name:      "billing_amount",
	analysis.LengthOfStay.Name: losExpr,
	analysis.CostPerDay.Name:   "CASE WHEN " + losExpr + " > 0 THEN billing_amount / " + losExpr + " END",
	analysis.Age.Name:          "age",
}

func dimensionExpr(d analysis.Dimension) (string, error) {
	e, ok := dimensionExprs[d.Name]
	if !ok {
		return "", fmt.Errorf("%w: %q", analysis.ErrUnknownDimension, d.Name)
	}
	return e, nil
}

func measureExpr(m analysis.Measure) (string, error) {
	e, ok := measureExprs[m.Name]
	if !ok {
		return "", fmt.Errorf("%w: %q", analysis.ErrUnknownMeasure, m.Name)
	}
	return e, nil
}

// GroupStats runs the grouped summary of m by dims in SQL. Rows come back
// ordered by mean (descending when desc), ties by key. minSupport drops
// groups with fewer rows.
func (q *Queries) GroupStats(ctx context.Context, dims []analysis.Dimension, m analysis.Measure, desc bool, minSupport int) ([]analysis.GroupStat, error) {
	me, err := measureExpr(m)
	if err != nil {
		return nil, err
	}

	cols := make([]string, 0, len(dims)+7)
	groupBy := make([]string, 0, len(dims))
	for _, d := range dims {
		de, err := dimensionExpr(d)
		if err != nil {
			return nil, err
		}
		cols = append(cols, de)
		groupBy = append(groupBy, de)
	}
	cols = append(cols,
		"COUNT(*)",
		"COUNT("+me+")",
		"COALESCE(SUM("+me+"), 0)::float8",
		"COALESCE(AVG("+me+"), 0)::float8",
		"COALESCE(MIN("+me+"), 0)::float8",
		"COALESCE(MAX("+me+"), 0)::float8",
		"COALESCE(stddev_pop("+me+"), 0)::float8",
	)

	dir := "ASC"
	if desc {
		dir = "DESC"
	}
	orderBy := []string{fmt.Sprintf("%d %s", len(dims)+4, dir)}
	for i := range dims {
		orderBy = append(orderBy, fmt.Sprintf("%d", i+1))
	}

	sb := builder().Select(cols...).From(Table).GroupBy(groupBy...).OrderBy(orderBy...)
	if minSupport > 0 {
		sb = sb.Having("COUNT(*) >= ?", minSupport)
	}
	sql, args, err := sb.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build group stats query: %w", err)
	}

	rows, err := q.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("group stats: %w", err)
	}
	defer rows.Close()

	var out []analysis.GroupStat
	for rows.Next() {
		key := make([]string, len(dims))
		var count, valid int64
		var s analysis.Summary
		dest := make([]interface{}, 0, len(dims)+7)
		for i := range key {
			dest = append(dest, &key[i])
		}
		dest = append(dest, &count, &valid, &s.Sum, &s.Mean, &s.Min, &s.Max, &s.StdDev)
		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("scan group stats: %w", err)
		}
		s.Count = int(count)
		s.Valid = int(valid)
		s.Undefined = s.Count - s.Valid
		if s.Valid > 0 {
			s.CV = analysis.CoefficientOfVariation(s.StdDev, s.Mean)
		}
		out = append(out, analysis.GroupStat{Key: key, Summary: s})
	}
	return out, rows.Err()
}

// binned numbers the rows with a defined measure into n bins using NTILE,
// ordered by the measure then id.
func binned(me string, n int) squirrel.SelectBuilder {
	return builder().
		Select("id", me+"::float8 AS v", fmt.Sprintf("NTILE(%d) OVER (ORDER BY %s, id) AS bin", n, me)).
		From(Table).
		Where(me + " IS NOT NULL")
}

// AssignBins returns the NTILE(n) bin of every row with a defined m.
func (q *Queries) AssignBins(ctx context.Context, m analysis.Measure, n int) ([]analysis.BinAssignment, error) {
	me, err := measureExpr(m)
	if err != nil {
		return nil, err
	}
	sql, args, err := builder().Select("id", "v", "bin").
		FromSelect(binned(me, n), "b").
		OrderBy("bin", "v", "id").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build bins query: %w", err)
	}

	rows, err := q.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("assign bins: %w", err)
	}
	defer rows.Close()

	var out []analysis.BinAssignment
	for rows.Next() {
		var a analysis.BinAssignment
		var bin int32
		if err := rows.Scan(&a.RecordID, &a.Value, &bin); err != nil {
			return nil, fmt.Errorf("scan bins: %w", err)
		}
		a.Bin = int(bin)
		out = append(out, a)
	}
	return out, rows.Err()
}

// BinRow is the SQL rendition of one bin's bounds.
type BinRow struct {
	Bin   int
	Count int
	Min   float64
	Max   float64
}

// BinBoundaries reports count, min and max per NTILE(n) bin of m.
func (q *Queries) BinBoundaries(ctx context.Context, m analysis.Measure, n int) ([]BinRow, error) {
	me, err := measureExpr(m)
	if err != nil {
		return nil, err
	}
	sql, args, err := builder().Select("bin", "COUNT(*)", "MIN(v)", "MAX(v)").
		FromSelect(binned(me, n), "b").
		GroupBy("bin").
		OrderBy("bin").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build bin bounds query: %w", err)
	}

	rows, err := q.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("bin bounds: %w", err)
	}
	defer rows.Close()

	var out []BinRow
	for rows.Next() {
		var b BinRow
		var bin int32
		var count int64
		if err := rows.Scan(&bin, &count, &b.Min, &b.Max); err != nil {
			return nil, fmt.Errorf("scan bin bounds: %w", err)
		}
		b.Bin, b.Count = int(bin), int(count)
		out = append(out, b)
	}
	return out, rows.Err()
}

// RankedRow is one row of a SQL top-N listing.
type RankedRow struct {
	Rank  int
	ID    int64
	Name  string
	Value float64
}

// TopN ranks rows by m with RANK() and returns the first n, ties at the
// cut broken by id.
func (q *Queries) TopN(ctx context.Context, m analysis.Measure, n int, desc bool) ([]RankedRow, error) {
	me, err := measureExpr(m)
	if err != nil {
		return nil, err
	}
	dir := "ASC"
	if desc {
		dir = "DESC"
	}
	sb := builder().
		Select("id", "COALESCE(name, '')", me+"::float8", fmt.Sprintf("RANK() OVER (ORDER BY %s %s) AS rnk", me, dir)).
		From(Table).
		Where(me + " IS NOT NULL").
		OrderBy("rnk", "id")
	if n > 0 {
		sb = sb.Limit(uint64(n))
	}
	sql, args, err := sb.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build top-n query: %w", err)
	}

	rows, err := q.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("top-n: %w", err)
	}
	defer rows.Close()

	var out []RankedRow
	for rows.Next() {
		var r RankedRow
		var rank int64
		if err := rows.Scan(&r.ID, &r.Name, &r.Value, &rank); err != nil {
			return nil, fmt.Errorf("scan top-n: %w", err)
		}
		r.Rank = int(rank)
		out = append(out, r)
	}
	return out, rows.Err()
}

// YearlyTrend buckets rows by admission year. RevenueChangePct is filled
// in from consecutive calendar years as in analysis.YearlyTrend.
func (q *Queries) YearlyTrend(ctx context.Context) ([]analysis.YearTrend, error) {
	sql, args, err := builder().
		Select(
			"EXTRACT(YEAR FROM date_of_admission)::int AS yr",
			"COUNT(*)",
			"SUM(billing_amount)",
			"AVG(billing_amount)::float8",
			"AVG"+losExpr+"::float8",
		).
		From(Table).
		GroupBy("yr").
		OrderBy("yr").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build trend query: %w", err)
	}

	rows, err := q.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("yearly trend: %w", err)
	}
	defer rows.Close()

	var out []analysis.YearTrend
	for rows.Next() {
		var t analysis.YearTrend
		var year int32
		var count int64
		var revenue pgtype.Numeric
		if err := rows.Scan(&year, &count, &revenue, &t.MeanBilling, &t.MeanLOS); err != nil {
			return nil, fmt.Errorf("scan trend: %w", err)
		}
		t.Year, t.Count = int(year), int(count)
		t.TotalRevenue = numericToDecimal(revenue)
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	hundred := decimal.NewFromInt(100)
	for i := 1; i < len(out); i++ {
		prev := out[i-1]
		if prev.Year != out[i].Year-1 || prev.TotalRevenue.IsZero() {
			continue
		}
		pct, _ := out[i].TotalRevenue.Sub(prev.TotalRevenue).Div(prev.TotalRevenue).Mul(hundred).Float64()
		out[i].RevenueChangePct = &pct
	}
	return out, nil
}

// NullCount is the number of NULL values in one column.
type NullCount struct {
	Column string
	Nulls  int64
}

// NullCounts reports NULLs per column, in column order.
func (q *Queries) NullCounts(ctx context.Context) ([]NullCount, error) {
	cols := make([]string, len(records.Columns))
	for i, c := range records.Columns {
		cols[i] = fmt.Sprintf("COUNT(*) - COUNT(%s)", c)
	}
	sql, args, err := builder().Select(cols...).From(Table).ToSql()
	if err != nil {
		return nil, fmt.Errorf("build null count query: %w", err)
	}

	counts := make([]int64, len(cols))
	dest := make([]interface{}, len(cols))
	for i := range counts {
		dest[i] = &counts[i]
	}
	if err := q.db.QueryRow(ctx, sql, args...).Scan(dest...); err != nil {
		return nil, fmt.Errorf("null counts: %w", err)
	}

	out := make([]NullCount, len(cols))
	for i, c := range records.Columns {
		out[i] = NullCount{Column: c, Nulls: counts[i]}
	}
	return out, nil
}
