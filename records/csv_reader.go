package records

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const dateLayout = "2006-01-02"

// dateLayouts are tried in order when parsing admission/discharge dates.
var dateLayouts = []string{dateLayout, "01/02/2006", "2006/01/02"}

// Reader streams patient records from a CSV file with a header row.
// Rows that fail structural checks are skipped and counted in Quality;
// Next only returns an error for I/O failures and io.EOF.
type Reader struct {
	file    io.Closer
	csv     *csv.Reader
	rowNum  int64
	colIdx  map[string]int // normalized header → column index
	ncols   int
	nextID  int64
	quality *Quality
}

// NewReader opens path and reads its header row.
func NewReader(path string) (*Reader, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	r, err := NewReaderFrom(file)
	if err != nil {
		file.Close()
		return nil, err
	}
	r.file = file
	return r, nil
}

// NewReaderFrom reads CSV from src. The caller owns src.
func NewReaderFrom(src io.Reader) (*Reader, error) {
	bufReader := bufio.NewReaderSize(src, 256*1024)

	// Skip UTF-8 BOM if present
	bom, err := bufReader.Peek(3)
	if err == nil && len(bom) >= 3 && bom[0] == 0xEF && bom[1] == 0xBB && bom[2] == 0xBF {
		bufReader.Discard(3)
	}

	reader := csv.NewReader(bufReader)
	reader.LazyQuotes = true
	reader.FieldsPerRecord = -1
	reader.ReuseRecord = true

	r := &Reader{
		csv:     reader,
		colIdx:  make(map[string]int),
		quality: NewQuality(),
	}
	if err := r.readHeader(); err != nil {
		return nil, err
	}
	return r, nil
}

// normalizeHeader turns "Date of Admission" into "date_of_admission".
func normalizeHeader(h string) string {
	h = strings.ToLower(strings.TrimSpace(h))
	h = strings.ReplaceAll(h, " ", "_")
	h = strings.ReplaceAll(h, "-", "_")
	return h
}

func (r *Reader) readHeader() error {
	header, err := r.csv.Read()
	if err != nil {
		return fmt.Errorf("read header row: %w", err)
	}
	r.rowNum++
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], "\ufeff")
	}
	for i, h := range header {
		r.colIdx[normalizeHeader(h)] = i
	}
	r.ncols = len(header)

	var missing []string
	for _, c := range Columns {
		if _, ok := r.colIdx[c]; !ok {
			missing = append(missing, c)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("header missing columns: %s", strings.Join(missing, ", "))
	}
	return nil
}

// Next returns the next structurally valid record, or io.EOF when done.
func (r *Reader) Next() (PatientRecord, error) {
	for {
		row, err := r.csv.Read()
		if err == io.EOF {
			return PatientRecord{}, io.EOF
		}
		r.rowNum++
		if err != nil {
			var perr *csv.ParseError
			if errors.As(err, &perr) {
				r.quality.TotalRows++
				r.quality.reject(RowError{Row: r.rowNum, Reason: ReasonMalformedCSV, Value: perr.Err.Error()})
				continue
			}
			return PatientRecord{}, fmt.Errorf("read row %d: %w", r.rowNum, err)
		}

		// Skip empty rows
		if len(row) == 0 || (len(row) == 1 && strings.TrimSpace(row[0]) == "") {
			continue
		}

		r.quality.TotalRows++
		rec, rowErr := r.parseRow(row)
		if rowErr != nil {
			r.quality.reject(*rowErr)
			continue
		}

		r.nextID++
		rec.ID = r.nextID
		r.quality.Accepted++
		r.quality.inspect(r.rowNum, rec.ID, &rec)
		return rec, nil
	}
}

func (r *Reader) parseRow(row []string) (PatientRecord, *RowError) {
	if len(row) != r.ncols {
		return PatientRecord{}, &RowError{Row: r.rowNum, Reason: ReasonColumnCount,
			Value: fmt.Sprintf("%d fields, want %d", len(row), r.ncols)}
	}

	rec := PatientRecord{
		Name:              valAt(row, r.colIdx, ColName),
		Gender:            valAt(row, r.colIdx, ColGender),
		BloodType:         valAt(row, r.colIdx, ColBloodType),
		MedicalCondition:  valAt(row, r.colIdx, ColMedicalCondition),
		Doctor:            valAt(row, r.colIdx, ColDoctor),
		Hospital:          valAt(row, r.colIdx, ColHospital),
		InsuranceProvider: valAt(row, r.colIdx, ColInsuranceProvider),
		AdmissionType:     valAt(row, r.colIdx, ColAdmissionType),
		Medication:        valAt(row, r.colIdx, ColMedication),
		TestResults:       valAt(row, r.colIdx, ColTestResults),
	}

	var ok bool
	if rec.Age, ok = intAt(row, r.colIdx, ColAge); !ok {
		return rec, r.rowError(ReasonBadAge, row, ColAge)
	}
	if rec.RoomNumber, ok = intAt(row, r.colIdx, ColRoomNumber); !ok {
		return rec, r.rowError(ReasonBadRoom, row, ColRoomNumber)
	}
	if rec.AdmissionDate, ok = dateAt(row, r.colIdx, ColDateOfAdmission); !ok {
		return rec, r.rowError(ReasonBadDate, row, ColDateOfAdmission)
	}
	if rec.DischargeDate, ok = dateAt(row, r.colIdx, ColDischargeDate); !ok {
		return rec, r.rowError(ReasonBadDate, row, ColDischargeDate)
	}
	if rec.BillingAmount, ok = decimalAt(row, r.colIdx, ColBillingAmount); !ok {
		return rec, r.rowError(ReasonBadBilling, row, ColBillingAmount)
	}

	// Empty fields are counted for accepted rows only; rejects carry their reason.
	for _, c := range Columns {
		if valAt(row, r.colIdx, c) == "" {
			r.quality.EmptyFields[c]++
		}
	}
	return rec, nil
}

func (r *Reader) rowError(reason Reason, row []string, col string) *RowError {
	return &RowError{Row: r.rowNum, Reason: reason, Column: col, Value: valAt(row, r.colIdx, col)}
}

// RowNum returns the current CSV row number (1-based, header included).
func (r *Reader) RowNum() int64 {
	return r.rowNum
}

// Quality returns the running data-quality summary.
func (r *Reader) Quality() *Quality {
	return r.quality
}

func (r *Reader) Close() error {
	if r.file != nil {
		return r.file.Close()
	}
	return nil
}

// ReadAll loads every valid record from a CSV file.
func ReadAll(path string) ([]PatientRecord, *Quality, error) {
	r, err := NewReader(path)
	if err != nil {
		return nil, nil, err
	}
	defer r.Close()

	var recs []PatientRecord
	for {
		rec, err := r.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, r.Quality(), err
		}
		recs = append(recs, rec)
	}
	return recs, r.Quality(), nil
}

// Column access helpers. Strings are sanitized to valid UTF-8 since the
// synthetic exports are not guaranteed to be clean.

func valAt(row []string, idx map[string]int, col string) string {
	if i, ok := idx[col]; ok && i < len(row) {
		return strings.ToValidUTF8(strings.TrimSpace(row[i]), "\uFFFD")
	}
	return ""
}

func intAt(row []string, idx map[string]int, col string) (int, bool) {
	s := valAt(row, idx, col)
	if s == "" {
		return 0, false
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		// "42.0" style exports
		f, ferr := strconv.ParseFloat(s, 64)
		if ferr != nil || f != float64(int(f)) {
			return 0, false
		}
		n = int(f)
	}
	return n, true
}

func dateAt(row []string, idx map[string]int, col string) (time.Time, bool) {
	return ParseDate(valAt(row, idx, col))
}

func decimalAt(row []string, idx map[string]int, col string) (decimal.Decimal, bool) {
	s := valAt(row, idx, col)
	s = strings.ReplaceAll(s, ",", "")
	s = strings.ReplaceAll(s, "$", "")
	if s == "" {
		return decimal.Zero, false
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, false
	}
	return d, true
}

// ParseDate parses a calendar date into UTC midnight.
func ParseDate(s string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}
	// Timestamps like "2024-01-31 00:00:00" keep only the date part.
	if len(s) > len(dateLayout) && s[4] == '-' {
		s = s[:len(dateLayout)]
	}
	for _, layout := range dateLayouts {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
