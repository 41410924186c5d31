package analysis

import (
	"sort"

	"github.com/shopspring/decimal"

	"carestats/records"
)

// YearTrend aggregates the records admitted in one calendar year.
type YearTrend struct {
	Year         int
	Count        int
	TotalRevenue decimal.Decimal
	MeanBilling  float64
	MeanLOS      float64
	// RevenueChangePct is the change against the previous calendar year,
	// nil when that year has no records or zero revenue.
	RevenueChangePct *float64
}

// YearlyTrend buckets v by admission year. Years without records are
// omitted; rows are ordered by year.
func YearlyTrend(v View) []YearTrend {
	type acc struct {
		count   int
		revenue decimal.Decimal
		los     int
	}
	years := make(map[int]*acc)
	v.Each(func(r *records.PatientRecord) {
		y := r.AdmissionYear()
		a, ok := years[y]
		if !ok {
			a = &acc{}
			years[y] = a
		}
		a.count++
		a.revenue = a.revenue.Add(r.BillingAmount)
		a.los += r.LengthOfStay()
	})

	out := make([]YearTrend, 0, len(years))
	for y, a := range years {
		n := decimal.NewFromInt(int64(a.count))
		mean, _ := a.revenue.DivRound(n, 8).Float64()
		out = append(out, YearTrend{
			Year:         y,
			Count:        a.count,
			TotalRevenue: a.revenue,
			MeanBilling:  mean,
			MeanLOS:      float64(a.los) / float64(a.count),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Year < out[j].Year })

	for i := 1; i < len(out); i++ {
		prev := out[i-1]
		if prev.Year != out[i].Year-1 || prev.TotalRevenue.IsZero() {
			continue
		}
		pct, _ := out[i].TotalRevenue.Sub(prev.TotalRevenue).
			Div(prev.TotalRevenue).Mul(decimal.NewFromInt(100)).Float64()
		out[i].RevenueChangePct = &pct
	}
	return out
}
