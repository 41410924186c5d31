package records

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

const testHeader = "Name,Age,Gender,Blood Type,Medical Condition,Date of Admission,Doctor,Hospital,Insurance Provider,Billing Amount,Room Number,Admission Type,Discharge Date,Medication,Test Results\n"

// writeCSV writes content under a temp dir and returns its path.
func writeCSV(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "healthcare.csv")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write CSV: %v", err)
	}
	return path
}

func TestReadAll(t *testing.T) {
	path := writeCSV(t, "\xEF\xBB\xBF"+testHeader+
		"Bobby Jackson,30,Male,B-,Cancer,2024-01-31,Matthew Smith,Sons and Miller,Blue Cross,18856.281305978155,328,Urgent,2024-02-02,Paracetamol,Normal\n"+
		"Leslie Terry,62,Male,A+,Obesity,2019-08-20,Samantha Davies,Kim Inc,Medicare,33643.327286577885,265,Emergency,2019-08-26,Ibuprofen,Inconclusive\n"+
		"\n"+
		"Danny Smith,76,Female,A-,Obesity,09/22/2022,Tiffany Mitchell,Cook PLC,Aetna,27955.096078842456,205,Emergency,10/07/2022,Aspirin,Normal\n")

	recs, q, err := ReadAll(path)
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	if len(recs) != 3 {
		t.Fatalf("records = %d, want 3", len(recs))
	}

	r := recs[0]
	if r.ID != 1 || r.Name != "Bobby Jackson" || r.Age != 30 || r.BloodType != "B-" {
		t.Errorf("record[0] = %+v", r)
	}
	if r.InsuranceProvider != "Blue Cross" || r.AdmissionType != AdmissionUrgent || r.RoomNumber != 328 {
		t.Errorf("record[0] categorical fields = %q %q %d", r.InsuranceProvider, r.AdmissionType, r.RoomNumber)
	}
	if got := r.BillingAmount.String(); got != "18856.281305978155" {
		t.Errorf("billing = %s, want exact decimal text", got)
	}
	if !r.AdmissionDate.Equal(time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("admission = %v", r.AdmissionDate)
	}
	if r.LengthOfStay() != 2 {
		t.Errorf("los = %d, want 2", r.LengthOfStay())
	}

	// US-style dates parse too.
	if recs[2].LengthOfStay() != 15 {
		t.Errorf("record[2] los = %d, want 15", recs[2].LengthOfStay())
	}
	if recs[2].ID != 3 {
		t.Errorf("record[2] id = %d, want 3 (empty rows do not consume ids)", recs[2].ID)
	}

	if q.TotalRows != 3 || q.Accepted != 3 || q.RejectedTotal() != 0 {
		t.Errorf("quality totals = %d/%d/%d", q.TotalRows, q.Accepted, q.RejectedTotal())
	}
}

func TestReadAll_StructuralRejects(t *testing.T) {
	path := writeCSV(t, testHeader+
		"Good Row,40,Female,O+,Diabetes,2021-03-01,Dr A,Hosp,Cigna,1000.50,101,Elective,2021-03-05,Aspirin,Normal\n"+
		"Short Row,40,Female\n"+
		"Bad Date,40,Female,O+,Diabetes,2021-13-45,Dr A,Hosp,Cigna,1000.50,101,Elective,2021-03-05,Aspirin,Normal\n"+
		"Bad Bill,40,Female,O+,Diabetes,2021-03-01,Dr A,Hosp,Cigna,lots,101,Elective,2021-03-05,Aspirin,Normal\n"+
		"Bad Age,forty,Female,O+,Diabetes,2021-03-01,Dr A,Hosp,Cigna,1000.50,101,Elective,2021-03-05,Aspirin,Normal\n"+
		"Bad Room,40,Female,O+,Diabetes,2021-03-01,Dr A,Hosp,Cigna,1000.50,,Elective,2021-03-05,Aspirin,Normal\n"+
		"Second Good,50,Male,AB+,Asthma,2021-04-01,Dr B,Hosp,Medicare,\"2,500.00\",102,Urgent,2021-04-03,Lipitor,Abnormal\n")

	recs, q, err := ReadAll(path)
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	if len(recs) != 2 {
		t.Fatalf("records = %d, want 2", len(recs))
	}
	if recs[1].ID != 2 {
		t.Errorf("second accepted id = %d, want 2", recs[1].ID)
	}
	if got := recs[1].BillingAmount.String(); got != "2500" {
		t.Errorf("thousands-separated billing = %s, want 2500", got)
	}

	want := map[Reason]int64{
		ReasonColumnCount: 1,
		ReasonBadDate:     1,
		ReasonBadBilling:  1,
		ReasonBadAge:      1,
		ReasonBadRoom:     1,
	}
	for reason, n := range want {
		if q.Rejected[reason] != n {
			t.Errorf("rejected[%s] = %d, want %d", reason, q.Rejected[reason], n)
		}
	}
	if q.TotalRows != 7 || q.Accepted != 2 || q.RejectedTotal() != 5 {
		t.Errorf("totals = %d/%d/%d, want 7/2/5", q.TotalRows, q.Accepted, q.RejectedTotal())
	}

	// Row numbers count the header as row 1.
	samples := q.Samples[ReasonBadDate]
	if len(samples) != 1 || samples[0].Row != 4 || samples[0].Column != ColDateOfAdmission {
		t.Errorf("bad date sample = %+v", samples)
	}
	// the empty room number rejected its row, so it is not an empty field too
	if q.EmptyFields[ColRoomNumber] != 0 {
		t.Errorf("empty room_number = %d, want 0", q.EmptyFields[ColRoomNumber])
	}
}

func TestReadAll_Anomalies(t *testing.T) {
	path := writeCSV(t, testHeader+
		"Backwards,40,Female,O+,Diabetes,2021-03-10,Dr A,Hosp,Cigna,1000,101,Elective,2021-03-05,Aspirin,Normal\n"+
		"Refund,40,Female,O+,Diabetes,2021-03-01,Dr A,Hosp,Cigna,-502.5,101,Elective,2021-03-05,Aspirin,Normal\n"+
		"Same Day,40,Female,O+,Diabetes,2021-03-01,Dr A,Hosp,Cigna,300,101,Elective,2021-03-01,Aspirin,Normal\n")

	recs, q, err := ReadAll(path)
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	// Anomalies are flagged, never dropped or corrected.
	if len(recs) != 3 {
		t.Fatalf("records = %d, want 3", len(recs))
	}
	if recs[0].LengthOfStay() != -5 {
		t.Errorf("backwards los = %d, want -5", recs[0].LengthOfStay())
	}
	for reason, n := range map[Reason]int64{
		AnomalyDischargeBeforeAdmission: 1,
		AnomalyNegativeBilling:          1,
		AnomalySameDayStay:              1,
	} {
		if q.Anomalies[reason] != n {
			t.Errorf("anomalies[%s] = %d, want %d", reason, q.Anomalies[reason], n)
		}
	}
}

func TestNewReader_MissingColumns(t *testing.T) {
	path := writeCSV(t, "name,age\nA,1\n")
	_, err := NewReader(path)
	if err == nil {
		t.Fatal("expected error for header without required columns")
	}
	if !strings.Contains(err.Error(), "billing_amount") {
		t.Errorf("error %q should name the missing columns", err)
	}
}

func TestNormalizeHeader(t *testing.T) {
	tests := map[string]string{
		"Date of Admission":   "date_of_admission",
		" Insurance Provider": "insurance_provider",
		"blood-type":          "blood_type",
		"billing_amount":      "billing_amount",
	}
	for in, want := range tests {
		if got := normalizeHeader(in); got != want {
			t.Errorf("normalizeHeader(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestParseDate(t *testing.T) {
	tests := []struct {
		in   string
		want time.Time
		ok   bool
	}{
		{"2020-12-31", time.Date(2020, 12, 31, 0, 0, 0, 0, time.UTC), true},
		{"12/31/2020", time.Date(2020, 12, 31, 0, 0, 0, 0, time.UTC), true},
		{"2020-12-31 00:00:00", time.Date(2020, 12, 31, 0, 0, 0, 0, time.UTC), true},
		{"", time.Time{}, false},
		{"yesterday", time.Time{}, false},
	}
	for _, tt := range tests {
		got, ok := ParseDate(tt.in)
		if ok != tt.ok || !got.Equal(tt.want) {
			t.Errorf("ParseDate(%q) = %v, %v; want %v, %v", tt.in, got, ok, tt.want, tt.ok)
		}
	}
}

func TestReadAll_EmptyFieldsOnlyForAccepted(t *testing.T) {
	path := writeCSV(t, testHeader+
		"No Doctor,40,Female,O+,Diabetes,2021-03-01,,Hosp,Cigna,1000,101,Elective,2021-03-05,,Normal\n"+
		"No Age,,Female,O+,Diabetes,2021-03-01,,Hosp,Cigna,1000,101,Elective,2021-03-05,Aspirin,Normal\n")

	_, q, err := ReadAll(path)
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	if q.Rejected[ReasonBadAge] != 1 {
		t.Errorf("rejected[bad_age] = %d, want 1", q.Rejected[ReasonBadAge])
	}
	for col, want := range map[string]int64{ColDoctor: 1, ColMedication: 1, ColAge: 0} {
		if got := q.EmptyFields[col]; got != want {
			t.Errorf("empty %s = %d, want %d", col, got, want)
		}
	}
}

func TestQualitySamples_RowAndRecord(t *testing.T) {
	path := writeCSV(t, testHeader+
		"Rejected,40,Female,O+,Diabetes,bad,Dr A,Hosp,Cigna,1000,101,Elective,2021-03-05,Aspirin,Normal\n"+
		"Same Day,40,Female,O+,Diabetes,2021-03-01,Dr A,Hosp,Cigna,300,101,Elective,2021-03-01,Aspirin,Normal\n")

	recs, q, err := ReadAll(path)
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	csvSample := q.Samples[AnomalySameDayStay]
	if len(csvSample) != 1 || csvSample[0].Row != 3 || csvSample[0].Record != 1 {
		t.Errorf("csv same-day sample = %+v, want row 3 record 1", csvSample)
	}

	// re-checked records have IDs but no file lines
	snap := Check(recs).Samples[AnomalySameDayStay]
	if len(snap) != 1 || snap[0].Row != 0 || snap[0].Record != 1 {
		t.Fatalf("checked same-day sample = %+v, want row 0 record 1", snap)
	}
	if got := snap[0].Error(); !strings.HasPrefix(got, "record 1: same_day_stay") {
		t.Errorf("Error() = %q", got)
	}
}
