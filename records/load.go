package records

import (
	"path/filepath"
	"strings"
)

// Load reads records from a CSV file or a Parquet snapshot, chosen by
// extension. For snapshots the quality summary only carries anomaly
// counts; structural rejects happened when the snapshot was written.
func Load(path string) ([]PatientRecord, *Quality, error) {
	if strings.EqualFold(filepath.Ext(path), ".parquet") {
		recs, err := ReadSnapshot(path)
		if err != nil {
			return nil, nil, err
		}
		return recs, Check(recs), nil
	}
	return ReadAll(path)
}
