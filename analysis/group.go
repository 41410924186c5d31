package analysis

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// DefaultMinSupport is the smallest partition size kept in variability
// rankings unless configured otherwise.
const DefaultMinSupport = 5

// Group is one partition of a view: the records sharing a key tuple.
type Group struct {
	Key  []string
	View View
}

// Label joins the key tuple for display.
func (g Group) Label() string { return strings.Join(g.Key, " / ") }

// Partition splits v by the given dimensions. Every record lands in exactly
// one group. Groups are ordered by key tuple ascending; records keep view
// order within a group.
func Partition(v View, dims ...Dimension) []Group {
	if len(dims) == 0 {
		return []Group{{Key: []string{}, View: v}}
	}

	type bucket struct {
		key []string
		idx []int
	}
	buckets := make(map[string]*bucket)
	for i := 0; i < v.Len(); i++ {
		r := v.At(i)
		key := make([]string, len(dims))
		for d, dim := range dims {
			key[d] = dim.Value(r)
		}
		k := bucketKey(key)
		b, ok := buckets[k]
		if !ok {
			b = &bucket{key: key}
			buckets[k] = b
		}
		b.idx = append(b.idx, v.index(i))
	}

	groups := make([]Group, 0, len(buckets))
	for _, b := range buckets {
		groups = append(groups, Group{Key: b.key, View: v.sub(b.idx)})
	}
	sort.Slice(groups, func(i, j int) bool {
		return compareKeys(groups[i].Key, groups[j].Key) < 0
	})
	return groups
}

// bucketKey length-prefixes each part so no field content can make two
// distinct tuples collide.
func bucketKey(key []string) string {
	var sb strings.Builder
	for _, s := range key {
		sb.WriteString(strconv.Itoa(len(s)))
		sb.WriteByte(':')
		sb.WriteString(s)
	}
	return sb.String()
}

func compareKeys(a, b []string) int {
	for i := 0; i < len(a) && i < len(b); i++ {
		if c := strings.Compare(a[i], b[i]); c != 0 {
			return c
		}
	}
	return len(a) - len(b)
}

// SortKey selects the statistic group rows are ordered by.
type SortKey string

const (
	SortByKey    SortKey = "key"
	SortByCount  SortKey = "count"
	SortBySum    SortKey = "sum"
	SortByMean   SortKey = "mean"
	SortByStdDev SortKey = "stddev"
	SortByCV     SortKey = "cv"
)

// ParseSortKey validates a sort key name.
func ParseSortKey(s string) (SortKey, error) {
	switch k := SortKey(s); k {
	case SortByKey, SortByCount, SortBySum, SortByMean, SortByStdDev, SortByCV:
		return k, nil
	}
	return "", fmt.Errorf("unknown sort key %q", s)
}

// GroupOptions controls ordering and filtering of GroupStats.
type GroupOptions struct {
	Sort       SortKey
	Descending bool
	// MinSupport drops groups with fewer records. Zero keeps all.
	MinSupport int
}

// GroupStat is the summary of one measure over one group.
type GroupStat struct {
	Key []string
	Summary
}

// Label joins the key tuple for display.
func (g GroupStat) Label() string { return strings.Join(g.Key, " / ") }

// GroupStats partitions v by dims and summarises m per partition.
func GroupStats(v View, dims []Dimension, m Measure, opts GroupOptions) []GroupStat {
	groups := Partition(v, dims...)
	out := make([]GroupStat, 0, len(groups))
	for _, g := range groups {
		if opts.MinSupport > 0 && g.View.Len() < opts.MinSupport {
			continue
		}
		out = append(out, GroupStat{Key: g.Key, Summary: SummarizeView(g.View, m)})
	}
	SortGroupStats(out, opts.Sort, opts.Descending)
	return out
}

// SortGroupStats orders rows by key, with ties broken by the group key
// ascending. Rows with an undefined CV sort last when ordering by CV.
func SortGroupStats(rows []GroupStat, key SortKey, desc bool) {
	sort.SliceStable(rows, func(i, j int) bool {
		a, b := rows[i], rows[j]
		if key == SortByCV && (a.CV == nil) != (b.CV == nil) {
			return b.CV == nil
		}
		av, bv := sortValue(a, key), sortValue(b, key)
		if av != bv {
			if desc {
				return av > bv
			}
			return av < bv
		}
		return compareKeys(a.Key, b.Key) < 0
	})
}

func sortValue(g GroupStat, key SortKey) float64 {
	switch key {
	case SortByCount:
		return float64(g.Count)
	case SortBySum:
		return g.Sum
	case SortByMean:
		return g.Mean
	case SortByStdDev:
		return g.StdDev
	case SortByCV:
		if g.CV == nil {
			return 0
		}
		return *g.CV
	}
	return 0
}

// VariabilityRanking returns groups with at least minSupport records and a
// defined CV, ordered by CV descending.
func VariabilityRanking(v View, dims []Dimension, m Measure, minSupport int) []GroupStat {
	rows := GroupStats(v, dims, m, GroupOptions{MinSupport: minSupport})
	kept := rows[:0]
	for _, r := range rows {
		if r.CV != nil {
			kept = append(kept, r)
		}
	}
	SortGroupStats(kept, SortByCV, true)
	return kept
}

// RankedGroup is a GroupStat with its competition rank by mean.
type RankedGroup struct {
	Rank int
	GroupStat
}

// RankGroups orders stats by mean and assigns competition ranks.
func RankGroups(stats []GroupStat, desc bool) []RankedGroup {
	rows := make([]GroupStat, len(stats))
	copy(rows, stats)
	SortGroupStats(rows, SortByMean, desc)

	means := make([]float64, len(rows))
	for i, r := range rows {
		means[i] = r.Mean
	}
	ranks := CompetitionRanks(means, desc)

	out := make([]RankedGroup, len(rows))
	for i, r := range rows {
		out[i] = RankedGroup{Rank: ranks[i], GroupStat: r}
	}
	return out
}
