package analysis

import (
	"reflect"
	"testing"

	"carestats/records"
)

func TestPartition_Complete(t *testing.T) {
	ds := sampleDataset()
	for _, dims := range [][]Dimension{
		{Insurer},
		{Condition},
		{Insurer, Condition, AdmissionType},
		nil,
	} {
		groups := Partition(ds.All(), dims...)
		seen := make(map[int64]int)
		total := 0
		for _, g := range groups {
			total += g.View.Len()
			g.View.Each(func(r *records.PatientRecord) { seen[r.ID]++ })
		}
		if total != ds.Len() {
			t.Errorf("dims %d: sum of group counts = %d, want %d", len(dims), total, ds.Len())
		}
		for id, n := range seen {
			if n != 1 {
				t.Errorf("dims %d: record %d in %d groups", len(dims), id, n)
			}
		}
	}
}

func TestPartition_SeparatorInValues(t *testing.T) {
	ds := NewDataset([]records.PatientRecord{
		rec(1, "A\x1fB", "C", records.AdmissionElective, "100", 1),
		rec(2, "A", "B\x1fC", records.AdmissionElective, "200", 1),
		rec(3, "A:1", "B", records.AdmissionElective, "300", 1),
		rec(4, "A", "1:B", records.AdmissionElective, "400", 1),
	})
	groups := Partition(ds.All(), Insurer, Condition)
	if len(groups) != 4 {
		t.Fatalf("groups = %d, want 4", len(groups))
	}
	for _, g := range groups {
		if g.View.Len() != 1 {
			t.Errorf("group %q has %d records, want 1", g.Key, g.View.Len())
		}
		r := g.View.At(0)
		if r.InsuranceProvider != g.Key[0] || r.MedicalCondition != g.Key[1] {
			t.Errorf("record %d filed under %q", r.ID, g.Key)
		}
	}
}

func TestPartition_KeyOrder(t *testing.T) {
	groups := Partition(sampleDataset().All(), Insurer, Condition)
	var got [][]string
	for _, g := range groups {
		got = append(got, g.Key)
	}
	want := [][]string{
		{"Aetna", "Asthma"},
		{"Aetna", "Cancer"},
		{"Cigna", "Asthma"},
		{"Medicare", "Cancer"},
		{"Medicare", "Diabetes"},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("keys = %v, want %v", got, want)
	}
}

func TestGroupStats_SortByMeanDesc(t *testing.T) {
	rows := GroupStats(sampleDataset().All(), []Dimension{Insurer}, Billing,
		GroupOptions{Sort: SortByMean, Descending: true})
	// Medicare 3000, Aetna 2000, Cigna 1000
	want := []string{"Medicare", "Aetna", "Cigna"}
	if len(rows) != len(want) {
		t.Fatalf("rows = %d, want %d", len(rows), len(want))
	}
	for i, w := range want {
		if rows[i].Key[0] != w {
			t.Errorf("row %d = %s, want %s", i, rows[i].Key[0], w)
		}
	}
	if rows[1].Count != 3 || rows[1].Min != 1000 || rows[1].Max != 3000 {
		t.Errorf("Aetna = %+v", rows[1].Summary)
	}
}

func TestGroupStats_TiesByKey(t *testing.T) {
	ds := NewDataset([]records.PatientRecord{
		rec(1, "Zeta", "Asthma", records.AdmissionElective, "100", 1),
		rec(2, "Alpha", "Asthma", records.AdmissionElective, "100", 1),
		rec(3, "Mid", "Asthma", records.AdmissionElective, "100", 1),
	})
	for _, desc := range []bool{false, true} {
		rows := GroupStats(ds.All(), []Dimension{Insurer}, Billing, GroupOptions{Sort: SortByMean, Descending: desc})
		got := []string{rows[0].Key[0], rows[1].Key[0], rows[2].Key[0]}
		want := []string{"Alpha", "Mid", "Zeta"}
		if !reflect.DeepEqual(got, want) {
			t.Errorf("desc=%v: order = %v, want %v", desc, got, want)
		}
	}
}

func TestVariabilityRanking_MinSupport(t *testing.T) {
	ds := sampleDataset()
	rows := VariabilityRanking(ds.All(), []Dimension{Insurer}, Billing, 3)
	if len(rows) != 1 || rows[0].Key[0] != "Aetna" {
		t.Fatalf("rows = %+v, want only Aetna", rows)
	}

	rows = VariabilityRanking(ds.All(), []Dimension{Insurer}, Billing, 1)
	if len(rows) != 3 {
		t.Fatalf("rows = %d, want 3", len(rows))
	}
	for i := 1; i < len(rows); i++ {
		if *rows[i].CV > *rows[i-1].CV {
			t.Errorf("CV not descending at %d: %v > %v", i, *rows[i].CV, *rows[i-1].CV)
		}
	}
}

func TestSortGroupStats_NilCVLast(t *testing.T) {
	cv := 10.0
	rows := []GroupStat{
		{Key: []string{"a"}},
		{Key: []string{"b"}, Summary: Summary{CV: &cv}},
	}
	for _, desc := range []bool{false, true} {
		SortGroupStats(rows, SortByCV, desc)
		if rows[0].Key[0] != "b" {
			t.Errorf("desc=%v: nil CV sorted first", desc)
		}
	}
}

func TestRankGroups(t *testing.T) {
	ds := NewDataset([]records.PatientRecord{
		rec(1, "A", "x", records.AdmissionElective, "100", 1),
		rec(2, "B", "x", records.AdmissionElective, "300", 1),
		rec(3, "C", "x", records.AdmissionElective, "300", 1),
		rec(4, "D", "x", records.AdmissionElective, "200", 1),
	})
	stats := GroupStats(ds.All(), []Dimension{Insurer}, Billing, GroupOptions{})
	ranked := RankGroups(stats, true)
	got := make(map[string]int)
	for _, r := range ranked {
		got[r.Key[0]] = r.Rank
	}
	want := map[string]int{"B": 1, "C": 1, "D": 3, "A": 4}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("ranks = %v, want %v", got, want)
	}
}
