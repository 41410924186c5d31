package analysis

import (
	"sort"

	"carestats/records"
)

// CompetitionRanks assigns standard competition ranks ("1224") to values:
// equal values share a rank and the next distinct value ranks one past the
// number of values strictly ahead of it. Ranks are returned in input order.
func CompetitionRanks(values []float64, desc bool) []int {
	order := make([]int, len(values))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(i, j int) bool {
		if desc {
			return values[order[i]] > values[order[j]]
		}
		return values[order[i]] < values[order[j]]
	})

	ranks := make([]int, len(values))
	for pos, i := range order {
		if pos > 0 && values[i] == values[order[pos-1]] {
			ranks[i] = ranks[order[pos-1]]
			continue
		}
		ranks[i] = pos + 1
	}
	return ranks
}

// Ranked is one row of a top-N listing.
type Ranked struct {
	Rank   int
	Record *records.PatientRecord
	Value  float64
}

// TopN ranks the records of v by m and returns the first n in rank order.
// Ties at the cut are broken by record ID. Records with an undefined
// measure are not ranked. n <= 0 returns every ranked record.
func TopN(v View, m Measure, n int, desc bool) []Ranked {
	ms := v.sortedMembers(m, desc)
	if n <= 0 || n > len(ms) {
		n = len(ms)
	}

	out := make([]Ranked, n)
	rank := 0
	for i := 0; i < n; i++ {
		if i == 0 || ms[i].value != ms[i-1].value {
			rank = i + 1
		}
		out[i] = Ranked{Rank: rank, Record: &v.ds.records[ms[i].index], Value: ms[i].value}
	}
	return out
}
