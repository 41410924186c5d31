package analysis

import (
	"sort"
	"time"
)

// SegmentProfile describes one equal-frequency bin of a measure: its
// bounds, average billing and stay, and the modal categories inside it.
type SegmentProfile struct {
	Bin                int
	Count              int
	Min                float64
	Max                float64
	MeanBilling        float64
	MeanLOS            float64
	ModalAdmissionType string
	ModalCondition     string
	ModalInsurer       string
}

// Profile bins v by m into n bins and profiles each bin.
func Profile(v View, m Measure, n int) []SegmentProfile {
	bins := BinBoundaries(v, m, n)
	out := make([]SegmentProfile, 0, len(bins))
	for _, b := range bins {
		p := SegmentProfile{Bin: b.Bin, Count: b.Count, Min: b.Min, Max: b.Max}
		p.MeanBilling, _ = Mean(b.Members, Billing)
		p.MeanLOS, _ = Mean(b.Members, LengthOfStay)
		p.ModalAdmissionType, _ = Mode(b.Members, AdmissionType)
		p.ModalCondition, _ = Mode(b.Members, Condition)
		p.ModalInsurer, _ = Mode(b.Members, Insurer)
		out = append(out, p)
	}
	return out
}

// CrossTab counts records for every pair of row and column values. Rows
// and Cols are sorted; Counts[i][j] pairs Rows[i] with Cols[j].
type CrossTab struct {
	Rows   []string
	Cols   []string
	Counts [][]int
}

// Total returns the sum of all cells.
func (c CrossTab) Total() int {
	var n int
	for _, row := range c.Counts {
		for _, x := range row {
			n += x
		}
	}
	return n
}

// CrossTabulate counts v by (row, col).
func CrossTabulate(v View, row, col Dimension) CrossTab {
	cells := make(map[[2]string]int)
	rowSet := make(map[string]struct{})
	colSet := make(map[string]struct{})
	for i := 0; i < v.Len(); i++ {
		r := v.At(i)
		rk, ck := row.Value(r), col.Value(r)
		cells[[2]string{rk, ck}]++
		rowSet[rk] = struct{}{}
		colSet[ck] = struct{}{}
	}

	ct := CrossTab{Rows: sortedKeys(rowSet), Cols: sortedKeys(colSet)}
	ct.Counts = make([][]int, len(ct.Rows))
	for i, rk := range ct.Rows {
		ct.Counts[i] = make([]int, len(ct.Cols))
		for j, ck := range ct.Cols {
			ct.Counts[i][j] = cells[[2]string{rk, ck}]
		}
	}
	return ct
}

func sortedKeys(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Overview is a whole-dataset summary.
type Overview struct {
	Records        int
	FirstAdmission time.Time
	LastAdmission  time.Time
	Distinct       map[string]int
	Billing        Summary
	LengthOfStay   Summary
	NegativeStays  int
	ZeroDayStays   int
}

// overviewDimensions are counted for distinct values in Overview.
var overviewDimensions = []Dimension{Insurer, Condition, AdmissionType, Hospital, Doctor}

// Describe builds the overview of v.
func Describe(v View) Overview {
	o := Overview{Records: v.Len(), Distinct: make(map[string]int, len(overviewDimensions))}
	sets := make([]map[string]struct{}, len(overviewDimensions))
	for i := range sets {
		sets[i] = make(map[string]struct{})
	}
	for i := 0; i < v.Len(); i++ {
		r := v.At(i)
		if o.FirstAdmission.IsZero() || r.AdmissionDate.Before(o.FirstAdmission) {
			o.FirstAdmission = r.AdmissionDate
		}
		if r.AdmissionDate.After(o.LastAdmission) {
			o.LastAdmission = r.AdmissionDate
		}
		switch los := r.LengthOfStay(); {
		case los < 0:
			o.NegativeStays++
		case los == 0:
			o.ZeroDayStays++
		}
		for d, dim := range overviewDimensions {
			sets[d][dim.Value(r)] = struct{}{}
		}
	}
	for d, dim := range overviewDimensions {
		o.Distinct[dim.Name] = len(sets[d])
	}
	o.Billing = SummarizeView(v, Billing)
	o.LengthOfStay = SummarizeView(v, LengthOfStay)
	return o
}
