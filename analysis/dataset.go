// Package analysis computes the descriptive statistics, segmentations and
// rankings behind every report. All functions are pure reads over a frozen
// Dataset; derived subsets are index lists into it, never copies.
package analysis

import (
	"sort"

	"carestats/records"
)

// Dataset is an immutable, contiguous collection of patient records. It is
// built once after load and may be shared by any number of goroutines.
type Dataset struct {
	records []records.PatientRecord
}

// NewDataset copies recs into a new frozen dataset.
func NewDataset(recs []records.PatientRecord) *Dataset {
	own := make([]records.PatientRecord, len(recs))
	copy(own, recs)
	return &Dataset{records: own}
}

// Len returns the number of records.
func (d *Dataset) Len() int { return len(d.records) }

// All returns a view over every record.
func (d *Dataset) All() View {
	return View{ds: d}
}

// View is an ordered subset of a Dataset. The zero View is empty.
//
// A View holds indices into its dataset; the records it yields must be
// treated as read-only.
type View struct {
	ds      *Dataset
	idx     []int
	indexed bool // false: the view spans the whole dataset
}

// Len returns the number of records in the view.
func (v View) Len() int {
	if v.ds == nil {
		return 0
	}
	if !v.indexed {
		return len(v.ds.records)
	}
	return len(v.idx)
}

// At returns the i-th record of the view.
func (v View) At(i int) *records.PatientRecord {
	return &v.ds.records[v.index(i)]
}

// index maps a view position to a dataset index.
func (v View) index(i int) int {
	if !v.indexed {
		return i
	}
	return v.idx[i]
}

// sub builds a view from dataset indices.
func (v View) sub(indices []int) View {
	return View{ds: v.ds, idx: indices, indexed: true}
}

// Filter returns the records for which keep returns true, in view order.
func (v View) Filter(keep func(*records.PatientRecord) bool) View {
	out := make([]int, 0, v.Len())
	for i := 0; i < v.Len(); i++ {
		if keep(v.At(i)) {
			out = append(out, v.index(i))
		}
	}
	return v.sub(out)
}

// Each calls fn for every record in view order.
func (v View) Each(fn func(*records.PatientRecord)) {
	for i := 0; i < v.Len(); i++ {
		fn(v.At(i))
	}
}

// Values extracts the defined values of m, in view order, and reports how
// many records had an undefined value.
func (v View) Values(m Measure) (values []float64, undefined int) {
	values = make([]float64, 0, v.Len())
	for i := 0; i < v.Len(); i++ {
		if x, ok := m.Value(v.At(i)); ok {
			values = append(values, x)
		} else {
			undefined++
		}
	}
	return values, undefined
}

// member pairs a dataset index with its measure value.
type member struct {
	index int
	id    int64
	value float64
}

// sortedMembers returns the view's records with a defined value of m,
// ordered by value ascending (descending when desc), ties by record ID.
func (v View) sortedMembers(m Measure, desc bool) []member {
	ms := make([]member, 0, v.Len())
	for i := 0; i < v.Len(); i++ {
		r := v.At(i)
		if x, ok := m.Value(r); ok {
			ms = append(ms, member{index: v.index(i), id: r.ID, value: x})
		}
	}
	sort.Slice(ms, func(i, j int) bool {
		if ms[i].value != ms[j].value {
			if desc {
				return ms[i].value > ms[j].value
			}
			return ms[i].value < ms[j].value
		}
		return ms[i].id < ms[j].id
	})
	return ms
}
