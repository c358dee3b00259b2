package compare

import (
	"fmt"
	"math"
	"testing"
)

func closeTo(a, b float64) bool {
	return math.Abs(a-b) < 1e-12
}

func TestRunIndependent(t *testing.T) {
	in := &StatsInput{
		Comparisons: []Comparison{
			{
				A: GroupColumn{Group: "reference", Values: []float64{4.5, 5.0}},
				B: GroupColumn{Group: "0", Values: []float64{3.1, 2.9, 3.0}},
			},
			{
				A: GroupColumn{Group: "reference", Values: []float64{4.5, 5.0}},
				B: GroupColumn{Group: "7", Values: []float64{3.3, 3.8}},
			},
			{
				A: GroupColumn{Group: "reference", Values: []float64{4.5, 5.0}},
				B: GroupColumn{Group: "30", Values: []float64{3.5}},
			},
		},
	}

	ps := []float64{0.01, 0.04, 0.04}
	call := 0
	test := func(a, b []float64) (float64, float64, error) {
		p := ps[call]
		call++
		return float64(len(a) * len(b)), p, nil
	}

	rows, err := Run(in, test)
	if err != nil {
		t.Fatal(err)
	}

	if len(rows) != 3 {
		t.Fatalf("Expected 3 rows, got %d", len(rows))
	}

	first := rows[0]
	if first.AGroup != "reference" || first.BGroup != "0" {
		t.Errorf("Unexpected groups: %+v", first)
	}
	if first.AN != 2 || first.BN != 3 || first.N != 5 {
		t.Errorf("Unexpected counts: %+v", first)
	}
	if !closeTo(first.AMeasure, 4.75) || !closeTo(first.BMeasure, 3.0) {
		t.Errorf("Unexpected medians: %+v", first)
	}
	if first.Stat != 6 {
		t.Errorf("Expected the stage's statistic to be carried, got %v", first.Stat)
	}

	// Benjamini-Hochberg with tied p-values sharing an average rank:
	// 0.01 ranks first, the tied 0.04s share rank 2.5.
	if !closeTo(rows[0].Q, 0.03) {
		t.Errorf("Expected q 0.03, got %v", rows[0].Q)
	}
	if !closeTo(rows[1].Q, 0.048) || !closeTo(rows[2].Q, 0.048) {
		t.Errorf("Expected tied q 0.048, got %v and %v", rows[1].Q, rows[2].Q)
	}
}

func TestRunPaired(t *testing.T) {
	in := &StatsInput{
		Paired: true,
		Comparisons: []Comparison{
			{
				A:       GroupColumn{Group: "0", Subjects: []string{"sub1", "sub2"}, Values: []float64{3.1, 2.9}},
				B:       GroupColumn{Group: "7", Subjects: []string{"sub1", "sub2"}, Values: []float64{3.3, 3.8}},
				PairedA: []float64{3.1},
				PairedB: []float64{3.3},
			},
		},
	}

	var gotA, gotB int
	test := func(a, b []float64) (float64, float64, error) {
		gotA, gotB = len(a), len(b)
		return 1, 0.5, nil
	}

	rows, err := Run(in, test)
	if err != nil {
		t.Fatal(err)
	}

	if gotA != 1 || gotB != 1 {
		t.Errorf("Expected the stage to receive the paired slices, got lengths %d and %d", gotA, gotB)
	}

	row := rows[0]
	if row.AN != 2 || row.BN != 2 {
		t.Errorf("Expected full group sizes, got %+v", row)
	}
	if row.N != 1 {
		t.Errorf("Expected the paired count, got %d", row.N)
	}
	if !closeTo(row.Q, 0.5) {
		t.Errorf("Expected a single-row q equal to p, got %v", row.Q)
	}
}

func TestRunClampsQ(t *testing.T) {
	in := &StatsInput{
		Comparisons: []Comparison{
			{A: GroupColumn{Group: "a", Values: []float64{1}}, B: GroupColumn{Group: "b", Values: []float64{2}}},
			{A: GroupColumn{Group: "a", Values: []float64{1}}, B: GroupColumn{Group: "c", Values: []float64{3}}},
			{A: GroupColumn{Group: "a", Values: []float64{1}}, B: GroupColumn{Group: "d", Values: []float64{4}}},
		},
	}

	ps := []float64{0.9, 0.8, 0.7}
	call := 0
	test := func(a, b []float64) (float64, float64, error) {
		p := ps[call]
		call++
		return 0, p, nil
	}

	rows, err := Run(in, test)
	if err != nil {
		t.Fatal(err)
	}

	if !closeTo(rows[0].Q, 0.9) {
		t.Errorf("Expected q 0.9 for the largest p, got %v", rows[0].Q)
	}
	if rows[1].Q != 1 || rows[2].Q != 1 {
		t.Errorf("Expected clamped q-values, got %v and %v", rows[1].Q, rows[2].Q)
	}
}

func TestRunStageError(t *testing.T) {
	in := &StatsInput{
		Comparisons: []Comparison{
			{A: GroupColumn{Group: "a", Values: []float64{1}}, B: GroupColumn{Group: "b", Values: []float64{2}}},
		},
	}

	test := func(a, b []float64) (float64, float64, error) {
		return 0, 0, fmt.Errorf("too few observations")
	}

	if _, err := Run(in, test); err == nil {
		t.Error("Expected the stage error to propagate")
	}

	if _, err := Run(&StatsInput{}, test); err == nil {
		t.Error("Expected an error for an empty stats input")
	}
}

func TestAverageRanks(t *testing.T) {
	ranks := averageRanks([]float64{0.04, 0.01, 0.04, 0.2})

	expected := []float64{2.5, 1, 2.5, 4}
	for i := range expected {
		if ranks[i] != expected[i] {
			t.Fatalf("Expected ranks %v, got %v", expected, ranks)
		}
	}
}
