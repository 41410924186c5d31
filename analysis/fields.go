package analysis

import (
	"errors"
	"fmt"
	"sort"
	"strconv"

	"carestats/records"
)

var (
	ErrUnknownDimension = errors.New("unknown dimension")
	ErrUnknownMeasure   = errors.New("unknown measure")
)

// Dimension is a named categorical accessor used for partitioning.
type Dimension struct {
	Name  string
	Label string
	Value func(*records.PatientRecord) string
}

// Measure is a named numeric accessor. ok is false when the value is
// undefined for a record (cost per day on a zero-day stay).
type Measure struct {
	Name  string
	Label string
	Value func(*records.PatientRecord) (float64, bool)
}

var (
	Insurer = Dimension{"insurance_provider", "Insurance Provider",
		func(r *records.PatientRecord) string { return r.InsuranceProvider }}
	Condition = Dimension{"medical_condition", "Medical Condition",
		func(r *records.PatientRecord) string { return r.MedicalCondition }}
	AdmissionType = Dimension{"admission_type", "Admission Type",
		func(r *records.PatientRecord) string { return r.AdmissionType }}
	Gender = Dimension{"gender", "Gender",
		func(r *records.PatientRecord) string { return r.Gender }}
	BloodType = Dimension{"blood_type", "Blood Type",
		func(r *records.PatientRecord) string { return r.BloodType }}
	Hospital = Dimension{"hospital", "Hospital",
		func(r *records.PatientRecord) string { return r.Hospital }}
	Doctor = Dimension{"doctor", "Doctor",
		func(r *records.PatientRecord) string { return r.Doctor }}
	Medication = Dimension{"medication", "Medication",
		func(r *records.PatientRecord) string { return r.Medication }}
	TestResults = Dimension{"test_results", "Test Results",
		func(r *records.PatientRecord) string { return r.TestResults }}
	AdmissionYear = Dimension{"admission_year", "Admission Year",
		func(r *records.PatientRecord) string { return strconv.Itoa(r.AdmissionYear()) }}
)

var (
	Billing = Measure{"billing_amount", "Billing Amount",
		func(r *records.PatientRecord) (float64, bool) { return r.Billing(), true }}
	LengthOfStay = Measure{"length_of_stay", "Length of Stay (days)",
		func(r *records.PatientRecord) (float64, bool) { return float64(r.LengthOfStay()), true }}
	CostPerDay = Measure{"cost_per_day", "Cost per Day",
		func(r *records.PatientRecord) (float64, bool) { return r.CostPerDay() }}
	Age = Measure{"age", "Age",
		func(r *records.PatientRecord) (float64, bool) { return float64(r.Age), true }}
)

var dimensions = indexDimensions(Insurer, Condition, AdmissionType, Gender, BloodType,
	Hospital, Doctor, Medication, TestResults, AdmissionYear)

var measures = indexMeasures(Billing, LengthOfStay, CostPerDay, Age)

func indexDimensions(ds ...Dimension) map[string]Dimension {
	m := make(map[string]Dimension, len(ds))
	for _, d := range ds {
		m[d.Name] = d
	}
	return m
}

func indexMeasures(ms ...Measure) map[string]Measure {
	m := make(map[string]Measure, len(ms))
	for _, x := range ms {
		m[x.Name] = x
	}
	return m
}

// LookupDimension resolves a dimension by name.
func LookupDimension(name string) (Dimension, error) {
	d, ok := dimensions[name]
	if !ok {
		return Dimension{}, fmt.Errorf("%w: %q", ErrUnknownDimension, name)
	}
	return d, nil
}

// LookupDimensions resolves several dimension names in order.
func LookupDimensions(names ...string) ([]Dimension, error) {
	out := make([]Dimension, 0, len(names))
	for _, n := range names {
		d, err := LookupDimension(n)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, nil
}

// LookupMeasure resolves a measure by name.
func LookupMeasure(name string) (Measure, error) {
	m, ok := measures[name]
	if !ok {
		return Measure{}, fmt.Errorf("%w: %q", ErrUnknownMeasure, name)
	}
	return m, nil
}

// DimensionNames lists the registered dimensions alphabetically.
func DimensionNames() []string {
	out := make([]string, 0, len(dimensions))
	for n := range dimensions {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

// MeasureNames lists the registered measures alphabetically.
func MeasureNames() []string {
	out := make([]string, 0, len(measures))
	for n := range measures {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}
