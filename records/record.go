package records

import (
	"time"

	"github.com/shopspring/decimal"
)

// Column names as they appear (after normalization) in the input CSV header.
const (
	ColName              = "name"
	ColAge               = "age"
	ColGender            = "gender"
	ColBloodType         = "blood_type"
	ColMedicalCondition  = "medical_condition"
	ColDateOfAdmission   = "date_of_admission"
	ColDoctor            = "doctor"
	ColHospital          = "hospital"
	ColInsuranceProvider = "insurance_provider"
	ColBillingAmount     = "billing_amount"
	ColRoomNumber        = "room_number"
	ColAdmissionType     = "admission_type"
	ColDischargeDate     = "discharge_date"
	ColMedication        = "medication"
	ColTestResults       = "test_results"
)

// Columns lists every input column in file order.
var Columns = []string{
	ColName,
	ColAge,
	ColGender,
	ColBloodType,
	ColMedicalCondition,
	ColDateOfAdmission,
	ColDoctor,
	ColHospital,
	ColInsuranceProvider,
	ColBillingAmount,
	ColRoomNumber,
	ColAdmissionType,
	ColDischargeDate,
	ColMedication,
	ColTestResults,
}

// Admission types present in the dataset.
const (
	AdmissionEmergency = "Emergency"
	AdmissionUrgent    = "Urgent"
	AdmissionElective  = "Elective"
)

// PatientRecord is one hospital stay with its bill. Records are never
// mutated after load; derived fields are recomputed on every call.
type PatientRecord struct {
	ID                int64
	Name              string
	Age               int
	Gender            string
	BloodType         string
	MedicalCondition  string
	AdmissionDate     time.Time
	Doctor            string
	Hospital          string
	InsuranceProvider string
	BillingAmount     decimal.Decimal
	RoomNumber        int
	AdmissionType     string
	DischargeDate     time.Time
	Medication        string
	TestResults       string
}

const secondsPerDay = 24 * 60 * 60

// LengthOfStay returns discharge minus admission in whole days. The result
// is negative when the discharge date precedes the admission date. Dates
// are UTC midnights, so the Unix difference is an exact multiple of a day
// at any span.
func (r *PatientRecord) LengthOfStay() int {
	return int((r.DischargeDate.Unix() - r.AdmissionDate.Unix()) / secondsPerDay)
}

// CostPerDay returns the billing amount divided by the length of stay.
// ok is false when the stay is zero or negative days long.
func (r *PatientRecord) CostPerDay() (float64, bool) {
	los := r.LengthOfStay()
	if los <= 0 {
		return 0, false
	}
	return r.BillingAmount.InexactFloat64() / float64(los), true
}

// Billing returns the billing amount as a float for statistics.
func (r *PatientRecord) Billing() float64 {
	return r.BillingAmount.InexactFloat64()
}

// AdmissionYear returns the calendar year of the admission date.
func (r *PatientRecord) AdmissionYear() int {
	return r.AdmissionDate.Year()
}

// DischargedBeforeAdmission reports the date-order anomaly.
func (r *PatientRecord) DischargedBeforeAdmission() bool {
	return r.DischargeDate.Before(r.AdmissionDate)
}
