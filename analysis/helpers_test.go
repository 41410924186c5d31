package analysis

import (
	"math"
	"time"

	"github.com/shopspring/decimal"

	"carestats/records"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func approxEqual(a, b, tol float64) bool {
	return math.Abs(a-b) < tol
}

// rec builds a record admitted on 2020-01-01 with the given billing and
// stay length.
func rec(id int64, insurer, condition, admission string, billing string, los int) records.PatientRecord {
	adm := date(2020, 1, 1)
	return records.PatientRecord{
		ID:                id,
		Name:              "Patient",
		Age:               40,
		Gender:            "Female",
		MedicalCondition:  condition,
		InsuranceProvider: insurer,
		AdmissionType:     admission,
		AdmissionDate:     adm,
		DischargeDate:     adm.AddDate(0, 0, los),
		BillingAmount:     decimal.RequireFromString(billing),
	}
}

func billingDataset(amounts ...string) *Dataset {
	recs := make([]records.PatientRecord, len(amounts))
	for i, a := range amounts {
		recs[i] = rec(int64(i+1), "Aetna", "Asthma", records.AdmissionElective, a, 3)
	}
	return NewDataset(recs)
}

func sampleDataset() *Dataset {
	return NewDataset([]records.PatientRecord{
		rec(1, "Aetna", "Asthma", records.AdmissionElective, "1000", 2),
		rec(2, "Aetna", "Cancer", records.AdmissionEmergency, "3000", 10),
		rec(3, "Cigna", "Asthma", records.AdmissionUrgent, "500", 0),
		rec(4, "Medicare", "Diabetes", records.AdmissionElective, "2000", 4),
		rec(5, "Cigna", "Asthma", records.AdmissionUrgent, "1500", 5),
		rec(6, "Aetna", "Asthma", records.AdmissionElective, "2000", -1),
		rec(7, "Medicare", "Cancer", records.AdmissionEmergency, "4000", 8),
	})
}
