package records

import (
	"fmt"
	"io"
	"os"

	"github.com/parquet-go/parquet-go"
	"github.com/parquet-go/parquet-go/compress/zstd"
	"github.com/shopspring/decimal"
)

// SnapshotRow is the Parquet layout of a PatientRecord.
//
// Dates are stored as ISO strings and billing as the exact decimal text so
// a snapshot round-trips without float rounding. Categorical columns
// dictionary-encode to near-zero.
type SnapshotRow struct {
	ID                int64  `parquet:"id"`
	InsuranceProvider string `parquet:"insurance_provider"`
	MedicalCondition  string `parquet:"medical_condition"`
	AdmissionType     string `parquet:"admission_type"`
	AdmissionDate     string `parquet:"date_of_admission"`
	DischargeDate     string `parquet:"discharge_date"`
	BillingAmount     string `parquet:"billing_amount"`

	Name        string `parquet:"name"`
	Age         int32  `parquet:"age"`
	Gender      string `parquet:"gender"`
	BloodType   string `parquet:"blood_type"`
	Doctor      string `parquet:"doctor"`
	Hospital    string `parquet:"hospital"`
	RoomNumber  int32  `parquet:"room_number"`
	Medication  string `parquet:"medication"`
	TestResults string `parquet:"test_results"`
}

func toSnapshotRow(r *PatientRecord) SnapshotRow {
	return SnapshotRow{
		ID:                r.ID,
		InsuranceProvider: r.InsuranceProvider,
		MedicalCondition:  r.MedicalCondition,
		AdmissionType:     r.AdmissionType,
		AdmissionDate:     r.AdmissionDate.Format(dateLayout),
		DischargeDate:     r.DischargeDate.Format(dateLayout),
		BillingAmount:     r.BillingAmount.String(),
		Name:              r.Name,
		Age:               int32(r.Age),
		Gender:            r.Gender,
		BloodType:         r.BloodType,
		Doctor:            r.Doctor,
		Hospital:          r.Hospital,
		RoomNumber:        int32(r.RoomNumber),
		Medication:        r.Medication,
		TestResults:       r.TestResults,
	}
}

func fromSnapshotRow(s *SnapshotRow) (PatientRecord, error) {
	adm, ok := ParseDate(s.AdmissionDate)
	if !ok {
		return PatientRecord{}, fmt.Errorf("record %d: bad admission date %q", s.ID, s.AdmissionDate)
	}
	dis, ok := ParseDate(s.DischargeDate)
	if !ok {
		return PatientRecord{}, fmt.Errorf("record %d: bad discharge date %q", s.ID, s.DischargeDate)
	}
	bill, err := decimal.NewFromString(s.BillingAmount)
	if err != nil {
		return PatientRecord{}, fmt.Errorf("record %d: bad billing amount %q: %w", s.ID, s.BillingAmount, err)
	}
	return PatientRecord{
		ID:                s.ID,
		Name:              s.Name,
		Age:               int(s.Age),
		Gender:            s.Gender,
		BloodType:         s.BloodType,
		MedicalCondition:  s.MedicalCondition,
		AdmissionDate:     adm,
		Doctor:            s.Doctor,
		Hospital:          s.Hospital,
		InsuranceProvider: s.InsuranceProvider,
		BillingAmount:     bill,
		RoomNumber:        int(s.RoomNumber),
		AdmissionType:     s.AdmissionType,
		DischargeDate:     dis,
		Medication:        s.Medication,
		TestResults:       s.TestResults,
	}, nil
}

// SnapshotWriter writes records to a zstd-compressed Parquet file.
type SnapshotWriter struct {
	file   *os.File
	writer *parquet.GenericWriter[SnapshotRow]
	buf    []SnapshotRow
	count  int
}

// NewSnapshotWriter creates filename and prepares a Parquet writer.
func NewSnapshotWriter(filename string) (*SnapshotWriter, error) {
	file, err := os.Create(filename)
	if err != nil {
		return nil, fmt.Errorf("create parquet file: %w", err)
	}

	writer := parquet.NewGenericWriter[SnapshotRow](file,
		parquet.Compression(&zstd.Codec{Level: zstd.SpeedDefault}),
		parquet.PageBufferSize(8*1024),
		parquet.DataPageStatistics(true),
		parquet.CreatedBy("carestats", "1.0", ""),
	)

	return &SnapshotWriter{
		file:   file,
		writer: writer,
	}, nil
}

// Write writes a batch of records. Callers should batch (e.g. 10K at a
// time) to amortize write overhead.
func (w *SnapshotWriter) Write(recs []PatientRecord) (int, error) {
	w.buf = w.buf[:0]
	for i := range recs {
		w.buf = append(w.buf, toSnapshotRow(&recs[i]))
	}
	n, err := w.writer.Write(w.buf)
	w.count += n
	if err != nil {
		return n, fmt.Errorf("write parquet rows: %w", err)
	}
	return n, nil
}

// Close flushes the final row group and closes the file.
func (w *SnapshotWriter) Close() error {
	if err := w.writer.Close(); err != nil {
		w.file.Close()
		return fmt.Errorf("close parquet writer: %w", err)
	}
	return w.file.Close()
}

// Count returns the total number of rows written.
func (w *SnapshotWriter) Count() int {
	return w.count
}

// ReadSnapshot loads every record from a Parquet snapshot.
func ReadSnapshot(path string) ([]PatientRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open parquet: %w", err)
	}
	defer f.Close()

	reader := parquet.NewGenericReader[SnapshotRow](f)
	defer reader.Close()

	recs := make([]PatientRecord, 0, reader.NumRows())
	buf := make([]SnapshotRow, 8192)
	for {
		n, readErr := reader.Read(buf)
		for i := 0; i < n; i++ {
			rec, err := fromSnapshotRow(&buf[i])
			if err != nil {
				return nil, err
			}
			recs = append(recs, rec)
		}
		if readErr != nil {
			if readErr == io.EOF {
				break
			}
			return nil, fmt.Errorf("read parquet: %w", readErr)
		}
	}
	return recs, nil
}
