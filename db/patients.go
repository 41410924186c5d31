package db

import (
	"context"
	"fmt"
	"math/big"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"

	"carestats/records"
)

var patientCopyCols = []string{
	"id", "name", "age", "gender", "blood_type", "medical_condition",
	"date_of_admission", "doctor", "hospital", "insurance_provider",
	"billing_amount", "room_number", "admission_type", "discharge_date",
	"medication", "test_results",
}

// CopyPatients bulk-inserts recs via COPY and returns the number of rows
// written.
func (q *Queries) CopyPatients(ctx context.Context, recs []records.PatientRecord) (int64, error) {
	rows := make([][]interface{}, len(recs))
	for i := range recs {
		r := &recs[i]
		rows[i] = []interface{}{
			r.ID,
			textOrNull(r.Name),
			int32(r.Age),
			textOrNull(r.Gender),
			textOrNull(r.BloodType),
			textOrNull(r.MedicalCondition),
			pgtype.Date{Time: r.AdmissionDate, Valid: true},
			textOrNull(r.Doctor),
			textOrNull(r.Hospital),
			textOrNull(r.InsuranceProvider),
			decimalToNumeric(r.BillingAmount),
			int32(r.RoomNumber),
			textOrNull(r.AdmissionType),
			pgtype.Date{Time: r.DischargeDate, Valid: true},
			textOrNull(r.Medication),
			textOrNull(r.TestResults),
		}
	}
	n, err := q.db.CopyFrom(ctx, pgx.Identifier{Table}, patientCopyCols, pgx.CopyFromRows(rows))
	if err != nil {
		return 0, fmt.Errorf("copy %s: %w", Table, err)
	}
	return n, nil
}

func (q *Queries) CountPatients(ctx context.Context) (int64, error) {
	var n int64
	err := q.db.QueryRow(ctx, "SELECT COUNT(*) FROM "+Table).Scan(&n)
	return n, err
}

func (q *Queries) TruncatePatients(ctx context.Context) error {
	_, err := q.db.Exec(ctx, "TRUNCATE "+Table)
	return err
}

// textOrNull stores blank fields as NULL so null checks see them.
func textOrNull(s string) pgtype.Text {
	if s == "" {
		return pgtype.Text{Valid: false}
	}
	return pgtype.Text{String: s, Valid: true}
}

func decimalToNumeric(d decimal.Decimal) pgtype.Numeric {
	var num pgtype.Numeric
	if err := num.Scan(d.String()); err != nil {
		return pgtype.Numeric{Valid: false}
	}
	return num
}

func numericToDecimal(n pgtype.Numeric) decimal.Decimal {
	if !n.Valid || n.Int == nil {
		return decimal.Zero
	}
	return decimal.NewFromBigInt(new(big.Int).Set(n.Int), n.Exp)
}
