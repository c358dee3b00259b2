package diversity

import (
	"errors"
	"testing"
)

func testMatrix() *BetaMatrix {
	ids := []string{"sampleA", "sampleB", "donor1"}
	values := [][]float64{
		{0, 0.4, 0.1},
		{0.4, 0, 0.2},
		{0.1, 0.2, 0},
	}

	return NewBetaMatrix("distance", ids, values)
}

func TestAlphaSubjectValue(t *testing.T) {
	series := NewAlphaSeries("shannon_entropy", map[string]float64{
		"sampleA": 3.1,
		"donor1":  4.5,
	})

	if series.Variant() != Alpha {
		t.Error("Expected an Alpha variant")
	}

	v, err := series.SubjectValue("sampleA", "donor1")
	if err != nil {
		t.Fatal(err)
	}
	if v != 3.1 {
		t.Errorf("Expected the sample's own value 3.1, got %v", v)
	}

	_, err = series.SubjectValue("sampleX", "donor1")
	var missing MissingSampleError
	if !errors.As(err, &missing) {
		t.Fatalf("Expected a MissingSampleError, got %v", err)
	}
	if missing.Sample != "sampleX" {
		t.Errorf("Expected the error to name sampleX, got %s", missing.Sample)
	}
}

func TestAlphaCohortValues(t *testing.T) {
	series := NewAlphaSeries("shannon_entropy", map[string]float64{
		"donor1": 4.5,
		"donor2": 5.0,
	})

	got, err := series.CohortValues([]string{"donor2", "donor1"})
	if err != nil {
		t.Fatal(err)
	}

	expected := []CohortValue{
		{ID: "donor2", Value: 5.0},
		{ID: "donor1", Value: 4.5},
	}

	if len(got) != len(expected) {
		t.Fatalf("Expected %d values, got %d", len(expected), len(got))
	}
	for i := range expected {
		if got[i] != expected[i] {
			t.Errorf("Value %d: expected %+v, got %+v", i, expected[i], got[i])
		}
	}
}

func TestBetaSubjectValue(t *testing.T) {
	m := testMatrix()

	if m.Variant() != Beta {
		t.Error("Expected a Beta variant")
	}

	v, err := m.SubjectValue("sampleA", "donor1")
	if err != nil {
		t.Fatal(err)
	}
	if v != 0.1 {
		t.Errorf("Expected distance 0.1, got %v", v)
	}

	// Symmetric lookup.
	v, err = m.SubjectValue("donor1", "sampleA")
	if err != nil {
		t.Fatal(err)
	}
	if v != 0.1 {
		t.Errorf("Expected distance 0.1, got %v", v)
	}

	_, err = m.SubjectValue("sampleA", "donorX")
	var missing MissingSampleError
	if !errors.As(err, &missing) {
		t.Fatalf("Expected a MissingSampleError, got %v", err)
	}
	if missing.Sample != "donorX" {
		t.Errorf("Expected the error to name donorX, got %s", missing.Sample)
	}

	if _, err := m.SubjectValue("sampleA", "sampleA"); err == nil {
		t.Error("Expected an error for a sample that references itself")
	}
}

func TestBetaCohortValues(t *testing.T) {
	m := testMatrix()

	got, err := m.CohortValues([]string{"sampleA", "sampleB", "donor1"})
	if err != nil {
		t.Fatal(err)
	}

	expected := []CohortValue{
		{ID: "sampleA..sampleB", A: "sampleA", B: "sampleB", Value: 0.4},
		{ID: "sampleA..donor1", A: "sampleA", B: "donor1", Value: 0.1},
		{ID: "sampleB..donor1", A: "sampleB", B: "donor1", Value: 0.2},
	}

	if len(got) != len(expected) {
		t.Fatalf("Expected %d pairs, got %d", len(expected), len(got))
	}
	for i := range expected {
		if got[i] != expected[i] {
			t.Errorf("Pair %d: expected %+v, got %+v", i, expected[i], got[i])
		}
	}

	if pairs, err := m.CohortValues([]string{"sampleA"}); err != nil || len(pairs) != 0 {
		t.Errorf("Expected no pairs for a single sample, got %v (%v)", pairs, err)
	}

	_, err = m.CohortValues([]string{"sampleA", "sampleX"})
	var missing MissingPairError
	if !errors.As(err, &missing) {
		t.Fatalf("Expected a MissingPairError, got %v", err)
	}
}

func TestRenamed(t *testing.T) {
	src := Renamed(testMatrix(), "braycurtis")

	if src.MeasureName() != "braycurtis" {
		t.Errorf("Expected the renamed measure, got %s", src.MeasureName())
	}
	if src.Variant() != Beta {
		t.Error("Expected the wrapped variant to pass through")
	}

	if v, err := src.SubjectValue("sampleA", "donor1"); err != nil || v != 0.1 {
		t.Errorf("Expected the wrapped lookup to pass through, got %v (%v)", v, err)
	}
}
