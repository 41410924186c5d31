package analysis

// BinSizes splits s members into n equal-frequency bins. Every size is
// s/n or s/n+1; the first s%n bins take the extra member.
func BinSizes(s, n int) []int {
	if n <= 0 {
		return nil
	}
	sizes := make([]int, n)
	base, extra := s/n, s%n
	for i := range sizes {
		sizes[i] = base
		if i < extra {
			sizes[i]++
		}
	}
	return sizes
}

// BinAssignment places one record into a bin numbered from 1.
type BinAssignment struct {
	RecordID int64
	Value    float64
	Bin      int
}

// AssignBins orders the records of v ascending by m (ties by record ID)
// and deals them into n equal-frequency bins. Records with an undefined
// measure are left out. This matches SQL NTILE(n).
func AssignBins(v View, m Measure, n int) []BinAssignment {
	ms := v.sortedMembers(m, false)
	out := make([]BinAssignment, 0, len(ms))
	pos := 0
	for b, size := range BinSizes(len(ms), n) {
		for k := 0; k < size; k++ {
			out = append(out, BinAssignment{RecordID: ms[pos].id, Value: ms[pos].value, Bin: b + 1})
			pos++
		}
	}
	return out
}

// Bin summarises one equal-frequency bin. Min of bin k+1 approximates the
// k/n percentile of the measure; no interpolation is done.
type Bin struct {
	Bin     int
	Count   int
	Min     float64
	Max     float64
	Members View
}

// BinBoundaries bins v by m into n bins and reports each non-empty bin's
// bounds and members.
func BinBoundaries(v View, m Measure, n int) []Bin {
	ms := v.sortedMembers(m, false)
	out := make([]Bin, 0, n)
	pos := 0
	for b, size := range BinSizes(len(ms), n) {
		if size == 0 {
			continue
		}
		idx := make([]int, size)
		for k := range idx {
			idx[k] = ms[pos+k].index
		}
		out = append(out, Bin{
			Bin:     b + 1,
			Count:   size,
			Min:     ms[pos].value,
			Max:     ms[pos+size-1].value,
			Members: v.sub(idx),
		})
		pos += size
	}
	return out
}

// PartitionBins holds the bins of one partition.
type PartitionBins struct {
	Key  []string
	Bins []Bin
}

// BinsWithin bins m into n bins separately within each partition of v by
// dims (quartiles of billing per insurer, for instance).
func BinsWithin(v View, dims []Dimension, m Measure, n int) []PartitionBins {
	groups := Partition(v, dims...)
	out := make([]PartitionBins, 0, len(groups))
	for _, g := range groups {
		out = append(out, PartitionBins{Key: g.Key, Bins: BinBoundaries(g.View, m, n)})
	}
	return out
}
