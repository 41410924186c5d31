package analysis

import (
	"testing"

	"carestats/records"
)

func TestMode(t *testing.T) {
	ds := sampleDataset()
	if v, n := Mode(ds.All(), Condition); v != "Asthma" || n != 4 {
		t.Errorf("Mode(condition) = %q, %d; want Asthma, 4", v, n)
	}

	// Aetna 3, Cigna 2, Medicare 2: Cigna wins the tie for second place
	rest := ds.All().Filter(func(r *records.PatientRecord) bool { return r.InsuranceProvider != "Aetna" })
	if v, n := Mode(rest, Insurer); v != "Cigna" || n != 2 {
		t.Errorf("Mode(insurer) = %q, %d; want Cigna, 2", v, n)
	}

	if v, n := Mode(View{}, Insurer); v != "" || n != 0 {
		t.Errorf("Mode(empty) = %q, %d", v, n)
	}
}

func TestMode_IgnoresBlank(t *testing.T) {
	ds := NewDataset([]records.PatientRecord{
		rec(1, "", "x", records.AdmissionElective, "1", 1),
		rec(2, "", "x", records.AdmissionElective, "1", 1),
		rec(3, "Aetna", "x", records.AdmissionElective, "1", 1),
	})
	if v, n := Mode(ds.All(), Insurer); v != "Aetna" || n != 1 {
		t.Errorf("Mode = %q, %d; want Aetna, 1", v, n)
	}
}
