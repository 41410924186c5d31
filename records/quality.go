package records

import (
	"fmt"
	"sort"
)

// Reason classifies why a row was rejected or flagged.
type Reason string

// Structural reasons reject the row.
const (
	ReasonColumnCount  Reason = "column_count"
	ReasonBadDate      Reason = "bad_date"
	ReasonBadBilling   Reason = "bad_billing_amount"
	ReasonBadAge       Reason = "bad_age"
	ReasonBadRoom      Reason = "bad_room_number"
	ReasonMalformedCSV Reason = "malformed_csv"
)

// Logical anomalies keep the row.
const (
	AnomalyDischargeBeforeAdmission Reason = "discharge_before_admission"
	AnomalyNegativeBilling          Reason = "negative_billing_amount"
	AnomalySameDayStay              Reason = "same_day_stay"
	AnomalyNegativeAge              Reason = "negative_age"
)

// maxSamples bounds how many offending rows are kept per reason.
const maxSamples = 20

// RowError describes a single rejected or flagged input row.
type RowError struct {
	Row    int64 // 1-based file line, header is row 1; 0 when unknown
	Record int64 // accepted record ID; 0 for rejected rows
	Reason Reason
	Column string
	Value  string
}

func (e *RowError) Error() string {
	loc := fmt.Sprintf("row %d", e.Row)
	if e.Row == 0 {
		loc = fmt.Sprintf("record %d", e.Record)
	}
	if e.Column == "" {
		return fmt.Sprintf("%s: %s", loc, e.Reason)
	}
	return fmt.Sprintf("%s: %s: column %s value %q", loc, e.Reason, e.Column, e.Value)
}

// Quality accumulates data-quality counts during a load. It detects and
// reports; it never repairs.
type Quality struct {
	TotalRows   int64
	Accepted    int64
	Rejected    map[Reason]int64
	Anomalies   map[Reason]int64
	EmptyFields map[string]int64
	Samples     map[Reason][]RowError
}

// NewQuality returns an empty summary.
func NewQuality() *Quality {
	return &Quality{
		Rejected:    make(map[Reason]int64),
		Anomalies:   make(map[Reason]int64),
		EmptyFields: make(map[string]int64),
		Samples:     make(map[Reason][]RowError),
	}
}

func (q *Quality) reject(e RowError) {
	q.Rejected[e.Reason]++
	q.sample(e)
}

func (q *Quality) flag(e RowError) {
	q.Anomalies[e.Reason]++
	q.sample(e)
}

func (q *Quality) sample(e RowError) {
	if len(q.Samples[e.Reason]) < maxSamples {
		q.Samples[e.Reason] = append(q.Samples[e.Reason], e)
	}
}

// RejectedTotal returns the number of rows dropped for structural reasons.
func (q *Quality) RejectedTotal() int64 {
	var n int64
	for _, c := range q.Rejected {
		n += c
	}
	return n
}

// inspect records logical anomalies for an accepted record.
func (q *Quality) inspect(row, id int64, r *PatientRecord) {
	if r.DischargedBeforeAdmission() {
		q.flag(RowError{Row: row, Record: id, Reason: AnomalyDischargeBeforeAdmission, Column: ColDischargeDate,
			Value: r.DischargeDate.Format(dateLayout)})
	} else if r.LengthOfStay() == 0 {
		q.flag(RowError{Row: row, Record: id, Reason: AnomalySameDayStay, Column: ColDischargeDate,
			Value: r.DischargeDate.Format(dateLayout)})
	}
	if r.BillingAmount.IsNegative() {
		q.flag(RowError{Row: row, Record: id, Reason: AnomalyNegativeBilling, Column: ColBillingAmount,
			Value: r.BillingAmount.String()})
	}
	if r.Age < 0 {
		q.flag(RowError{Row: row, Record: id, Reason: AnomalyNegativeAge, Column: ColAge,
			Value: fmt.Sprint(r.Age)})
	}
}

// Check recomputes anomaly counts for already-loaded records, e.g. ones
// read back from a Parquet snapshot. File lines are unknown there, so
// samples carry only the record ID.
func Check(recs []PatientRecord) *Quality {
	q := NewQuality()
	for i := range recs {
		q.TotalRows++
		q.Accepted++
		q.inspect(0, recs[i].ID, &recs[i])
	}
	return q
}

// Reasons returns the keys of m sorted for stable output.
func Reasons(m map[Reason]int64) []Reason {
	out := make([]Reason, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
