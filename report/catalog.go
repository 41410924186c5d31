package report

import (
	"errors"
	"fmt"
	"strings"

	"carestats/analysis"
	"carestats/records"
)

var ErrUnknownReport = errors.New("unknown report")

// Options tunes the catalogue reports.
type Options struct {
	MinSupport    int
	TopN          int
	LongestStaysN int
}

func DefaultOptions() Options {
	return Options{MinSupport: analysis.DefaultMinSupport, TopN: 10, LongestStaysN: 20}
}

// Env is what a report reads: the frozen dataset and its load quality.
type Env struct {
	Dataset *analysis.Dataset
	Quality *records.Quality
	Options Options
}

// Report is one entry of the catalogue.
type Report struct {
	Name        string
	Title       string
	Description string
	Build       func(*Env) Table
}

// grouped describes a grouped-statistics report. The SQL renditions share
// these definitions.
type grouped struct {
	name, title string
	dims        []analysis.Dimension
	measure     analysis.Measure
}

var (
	billingByInsurer = grouped{"billing-by-insurer", "Billing by Insurance Provider",
		[]analysis.Dimension{analysis.Insurer}, analysis.Billing}
	costByCondition = grouped{"cost-by-condition", "Billing by Medical Condition",
		[]analysis.Dimension{analysis.Condition}, analysis.Billing}
	losByAdmissionType = grouped{"los-by-admission-type", "Length of Stay by Admission Type",
		[]analysis.Dimension{analysis.AdmissionType}, analysis.LengthOfStay}
	costPerDayByCondition = grouped{"cost-per-day-by-condition", "Cost per Day by Medical Condition",
		[]analysis.Dimension{analysis.Condition}, analysis.CostPerDay}
	crosstab = grouped{"crosstab", "Billing by Insurer, Condition and Admission Type",
		[]analysis.Dimension{analysis.Insurer, analysis.Condition, analysis.AdmissionType}, analysis.Billing}
	variability = grouped{"variability", "Billing Variability by Insurer and Condition",
		[]analysis.Dimension{analysis.Insurer, analysis.Condition}, analysis.Billing}
)

// Catalog lists every report in run order.
var Catalog = []Report{
	{"overview", "Dataset Overview", "record count, admission range, distinct values and overall billing", buildOverview},
	groupedReport(billingByInsurer, "mean billing per insurance provider, ranked"),
	groupedReport(costByCondition, "mean billing per medical condition, ranked"),
	groupedReport(losByAdmissionType, "length of stay per admission type"),
	groupedReport(costPerDayByCondition, "billing divided by stay length; zero-day stays are undefined"),
	groupedReport(crosstab, "three-way grouped billing statistics"),
	{variability.name, variability.title, "coefficient of variation of billing, small groups excluded", buildVariability},
	{"billing-quartiles-by-insurer", "Billing Quartiles by Insurance Provider", "equal-frequency quartile bounds within each insurer",
		quartiles("billing-quartiles-by-insurer", "Billing Quartiles by Insurance Provider", analysis.Insurer, analysis.Billing)},
	{"los-quartiles-by-admission-type", "Length of Stay Quartiles by Admission Type", "equal-frequency quartile bounds within each admission type",
		quartiles("los-quartiles-by-admission-type", "Length of Stay Quartiles by Admission Type", analysis.AdmissionType, analysis.LengthOfStay)},
	{"billing-deciles", "Billing Decile Profile", "per billing decile bounds, averages and modal categories", buildDeciles},
	{"top-billing", "Highest Bills", "top records by billing amount", buildTopBilling},
	{"longest-stays", "Longest Stays", "top records by length of stay", buildLongestStays},
	{"yearly-trend", "Yearly Trend", "per admission year volume, revenue and averages", buildYearlyTrend},
	{"gender-condition-mix", "Gender by Medical Condition", "record counts per condition and gender", buildGenderMix},
	{"quality", "Data Quality", "rejected rows, anomalies and empty fields found at load", buildQuality},
}

// Lookup finds a report by name.
func Lookup(name string) (Report, error) {
	for _, r := range Catalog {
		if r.Name == name {
			return r, nil
		}
	}
	return Report{}, fmt.Errorf("%w: %q", ErrUnknownReport, name)
}

// Names lists the catalogue in run order.
func Names() []string {
	out := make([]string, len(Catalog))
	for i, r := range Catalog {
		out[i] = r.Name
	}
	return out
}

func groupedReport(g grouped, desc string) Report {
	return Report{
		Name:        g.name,
		Title:       g.title,
		Description: desc,
		Build: func(env *Env) Table {
			rows := analysis.GroupStats(env.Dataset.All(), g.dims, g.measure,
				analysis.GroupOptions{Sort: analysis.SortByMean, Descending: true})
			return groupTable(g, rows)
		},
	}
}

func groupTable(g grouped, rows []analysis.GroupStat) Table {
	cols := make([]string, 0, len(g.dims)+9)
	cols = append(cols, "rank")
	for _, d := range g.dims {
		cols = append(cols, d.Label)
	}
	cols = append(cols, "count")
	hasUndefined := false
	for _, r := range rows {
		if r.Undefined > 0 {
			hasUndefined = true
			break
		}
	}
	if hasUndefined {
		cols = append(cols, "undefined")
	}
	cols = append(cols, "mean", "min", "max", "stddev", "cv_pct")

	t := newTable(g.name, g.title+" ("+g.measure.Label+")", cols...)
	for _, r := range analysis.RankGroups(rows, true) {
		cells := make([]any, 0, len(cols))
		cells = append(cells, r.Rank)
		for _, k := range r.Key {
			cells = append(cells, k)
		}
		cells = append(cells, r.Count)
		if hasUndefined {
			cells = append(cells, r.Undefined)
		}
		cells = append(cells, r.Mean, r.Min, r.Max, r.StdDev, optFloat(r.CV))
		t.add(cells...)
	}
	return t
}

func buildOverview(env *Env) Table {
	o := analysis.Describe(env.Dataset.All())
	t := newTable("overview", "Dataset Overview", "metric", "value")
	t.add("records", o.Records)
	if o.Records > 0 {
		t.add("first admission", o.FirstAdmission)
		t.add("last admission", o.LastAdmission)
	}
	for _, d := range []analysis.Dimension{analysis.Insurer, analysis.Condition, analysis.AdmissionType, analysis.Hospital, analysis.Doctor} {
		t.add("distinct "+strings.ToLower(d.Label), o.Distinct[d.Name])
	}
	t.add("total billing", o.Billing.Sum)
	t.add("mean billing", o.Billing.Mean)
	t.add("billing stddev", o.Billing.StdDev)
	t.add("billing cv %", optFloat(o.Billing.CV))
	t.add("mean length of stay", o.LengthOfStay.Mean)
	t.add("zero-day stays", o.ZeroDayStays)
	t.add("negative stays", o.NegativeStays)
	return t
}

func buildVariability(env *Env) Table {
	rows := analysis.VariabilityRanking(env.Dataset.All(), variability.dims, variability.measure, env.Options.MinSupport)
	return variabilityTable(rows, env.Options.MinSupport)
}

// variabilityTable expects rows with a defined CV, ordered by CV.
func variabilityTable(rows []analysis.GroupStat, minSupport int) Table {
	t := newTable(variability.name, variability.title, "rank", "Insurance Provider", "Medical Condition", "count", "mean", "stddev", "cv_pct")
	cvs := make([]float64, len(rows))
	for i, r := range rows {
		cvs[i] = *r.CV
	}
	ranks := analysis.CompetitionRanks(cvs, true)
	for i, r := range rows {
		t.add(ranks[i], r.Key[0], r.Key[1], r.Count, r.Mean, r.StdDev, *r.CV)
	}
	if minSupport > 0 {
		t.note("groups with fewer than %d records are excluded", minSupport)
	}
	return t
}

func quartiles(name, title string, dim analysis.Dimension, m analysis.Measure) func(*Env) Table {
	return func(env *Env) Table {
		t := newTable(name, title, dim.Label, "quartile", "count", "min", "max")
		for _, p := range analysis.BinsWithin(env.Dataset.All(), []analysis.Dimension{dim}, m, 4) {
			for _, b := range p.Bins {
				t.add(p.Key[0], b.Bin, b.Count, b.Min, b.Max)
			}
		}
		t.note("bounds are the member values of equal-count bins, not interpolated percentiles")
		return t
	}
}

func buildDeciles(env *Env) Table {
	t := newTable("billing-deciles", "Billing Decile Profile",
		"decile", "count", "min", "max", "mean billing", "mean los", "modal admission type", "modal condition", "modal insurer")
	for _, p := range analysis.Profile(env.Dataset.All(), analysis.Billing, 10) {
		t.add(p.Bin, p.Count, p.Min, p.Max, p.MeanBilling, p.MeanLOS, p.ModalAdmissionType, p.ModalCondition, p.ModalInsurer)
	}
	return t
}

func buildTopBilling(env *Env) Table {
	t := newTable("top-billing", "Highest Bills",
		"rank", "id", "name", "Insurance Provider", "Medical Condition", "billing amount")
	for _, r := range analysis.TopN(env.Dataset.All(), analysis.Billing, env.Options.TopN, true) {
		t.add(r.Rank, r.Record.ID, r.Record.Name, r.Record.InsuranceProvider, r.Record.MedicalCondition, r.Record.BillingAmount)
	}
	return t
}

func buildLongestStays(env *Env) Table {
	t := newTable("longest-stays", "Longest Stays",
		"rank", "id", "name", "Admission Type", "Medical Condition", "admitted", "discharged", "days")
	for _, r := range analysis.TopN(env.Dataset.All(), analysis.LengthOfStay, env.Options.LongestStaysN, true) {
		t.add(r.Rank, r.Record.ID, r.Record.Name, r.Record.AdmissionType, r.Record.MedicalCondition,
			r.Record.AdmissionDate, r.Record.DischargeDate, r.Record.LengthOfStay())
	}
	return t
}

func buildYearlyTrend(env *Env) Table {
	return trendTable(analysis.YearlyTrend(env.Dataset.All()))
}

func trendTable(rows []analysis.YearTrend) Table {
	t := newTable("yearly-trend", "Yearly Trend",
		"year", "count", "total revenue", "mean billing", "mean los", "revenue change %")
	for _, y := range rows {
		t.add(y.Year, y.Count, y.TotalRevenue, y.MeanBilling, y.MeanLOS, optFloat(y.RevenueChangePct))
	}
	t.note("years without admissions are omitted")
	return t
}

func buildGenderMix(env *Env) Table {
	ct := analysis.CrossTabulate(env.Dataset.All(), analysis.Condition, analysis.Gender)
	cols := append([]string{analysis.Condition.Label}, ct.Cols...)
	cols = append(cols, "total")
	t := newTable("gender-condition-mix", "Gender by Medical Condition", cols...)
	for i, row := range ct.Rows {
		cells := make([]any, 0, len(cols))
		cells = append(cells, row)
		total := 0
		for _, n := range ct.Counts[i] {
			cells = append(cells, n)
			total += n
		}
		cells = append(cells, total)
		t.add(cells...)
	}
	return t
}

func buildQuality(env *Env) Table {
	t := newTable("quality", "Data Quality", "section", "item", "count", "sample rows")
	q := env.Quality
	if q == nil {
		q = records.NewQuality()
	}
	t.add("rows", "read", q.TotalRows, "")
	t.add("rows", "accepted", q.Accepted, "")
	t.add("rows", "rejected", q.RejectedTotal(), "")
	for _, r := range records.Reasons(q.Rejected) {
		t.add("rejected", string(r), q.Rejected[r], sampleRows(q.Samples[r]))
	}
	for _, r := range records.Reasons(q.Anomalies) {
		t.add("anomaly", string(r), q.Anomalies[r], sampleRows(q.Samples[r]))
	}
	for _, c := range records.Columns {
		if n := q.EmptyFields[c]; n > 0 {
			t.add("empty field", c, n, "")
		}
	}
	return t
}

// sampleRows lists file lines, or record IDs as "#id" where the line is
// unknown.
func sampleRows(errs []records.RowError) string {
	parts := make([]string, len(errs))
	for i, e := range errs {
		if e.Row == 0 {
			parts[i] = fmt.Sprintf("#%d", e.Record)
			continue
		}
		parts[i] = fmt.Sprint(e.Row)
	}
	return strings.Join(parts, " ")
}
