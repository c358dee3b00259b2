package samplemeta

import (
	"errors"
	"strings"
	"testing"
)

func testTable(t *testing.T, input string) *Table {
	t.Helper()

	table, err := Load(strings.NewReader(input), '\t')
	if err != nil {
		t.Fatal(err)
	}

	return table
}

var resolveInput = strings.Join([]string{
	"id\tdays_post_transplant\trelevant_donor\tsubject\tcontrol",
	"sampleA\t0\tdonor1\tsub1\t",
	"sampleB\t7\tdonor1\tsub1\t",
	"sampleC\t0\tdonor2\tsub2\t",
	"sampleD\t7\tdonor2\tsub2\t",
	"donor1\t\t\t\t",
	"donor2\t\t\t\t",
	"ctrl1\t\t\t\tmock",
	"ctrl2\t\t\t\tmock",
}, "\n")

func baseConfig() Config {
	return Config{
		TimeColumn:      "days_post_transplant",
		ReferenceColumn: "relevant_donor",
		SubjectColumn:   "subject",
		ControlColumn:   "control",
	}
}

func TestResolvePartition(t *testing.T) {
	table := testTable(t, resolveInput)

	resolved, err := Resolve(table, baseConfig())
	if err != nil {
		t.Fatal(err)
	}

	expectedSubjects := []SubjectSample{
		{Sample: "sampleA", Subject: "sub1", Time: 0, Reference: "donor1"},
		{Sample: "sampleB", Subject: "sub1", Time: 7, Reference: "donor1"},
		{Sample: "sampleC", Subject: "sub2", Time: 0, Reference: "donor2"},
		{Sample: "sampleD", Subject: "sub2", Time: 7, Reference: "donor2"},
	}

	if len(resolved.Subjects) != len(expectedSubjects) {
		t.Fatalf("Expected %d subject samples, got %d", len(expectedSubjects), len(resolved.Subjects))
	}
	for i, expected := range expectedSubjects {
		if resolved.Subjects[i] != expected {
			t.Errorf("Subject %d: expected %+v, got %+v", i, expected, resolved.Subjects[i])
		}
	}

	expectedControls := []ControlSample{
		{Sample: "ctrl1", Group: "mock"},
		{Sample: "ctrl2", Group: "mock"},
	}

	if len(resolved.Controls) != len(expectedControls) {
		t.Fatalf("Expected %d control samples, got %d", len(expectedControls), len(resolved.Controls))
	}
	for i, expected := range expectedControls {
		if resolved.Controls[i] != expected {
			t.Errorf("Control %d: expected %+v, got %+v", i, expected, resolved.Controls[i])
		}
	}

	if resolved.RowsFiltered != 0 {
		t.Errorf("Expected no rows filtered, got %d", resolved.RowsFiltered)
	}
}

func TestResolveWhere(t *testing.T) {
	table := testTable(t, resolveInput)

	cfg := baseConfig()
	cfg.Where = "subject = 'sub1'"

	resolved, err := Resolve(table, cfg)
	if err != nil {
		t.Fatal(err)
	}

	if len(resolved.Subjects) != 2 {
		t.Fatalf("Expected 2 subject samples, got %d", len(resolved.Subjects))
	}

	// The filter applies to every row, so donor and control rows with a
	// null subject cell are excluded along with sub2's samples.
	if resolved.RowsFiltered != 6 {
		t.Errorf("Expected 6 rows filtered, got %d", resolved.RowsFiltered)
	}

	if len(resolved.Controls) != 0 {
		t.Errorf("Expected no control samples under this filter, got %d", len(resolved.Controls))
	}
}

func TestResolveMissingConfigColumn(t *testing.T) {
	table := testTable(t, resolveInput)

	cfg := baseConfig()
	cfg.TimeColumn = "days_post_tx"

	_, err := Resolve(table, cfg)

	var missing MissingColumnError
	if !errors.As(err, &missing) {
		t.Fatalf("Expected a MissingColumnError, got %v", err)
	}
	if missing.Column != "days_post_tx" {
		t.Errorf("Expected the error to name days_post_tx, got %s", missing.Column)
	}
}

func TestResolveMissingWhereColumn(t *testing.T) {
	table := testTable(t, resolveInput)

	cfg := baseConfig()
	cfg.Where = "cohort = 'fmt'"

	_, err := Resolve(table, cfg)

	var missing MissingColumnError
	if !errors.As(err, &missing) {
		t.Fatalf("Expected a MissingColumnError, got %v", err)
	}
	if missing.Column != "cohort" {
		t.Errorf("Expected the error to name cohort, got %s", missing.Column)
	}
}

func TestResolveNonNumericTime(t *testing.T) {
	input := "id\tdays_post_transplant\trelevant_donor\tsubject\n" +
		"sampleA\tearly\tdonor1\tsub1\n"
	table := testTable(t, input)

	cfg := baseConfig()
	cfg.ControlColumn = ""

	_, err := Resolve(table, cfg)

	var nonNumeric NonNumericTimeError
	if !errors.As(err, &nonNumeric) {
		t.Fatalf("Expected a NonNumericTimeError, got %v", err)
	}
	if nonNumeric.Sample != "sampleA" || nonNumeric.Value != "early" {
		t.Errorf("Unexpected error fields: %+v", nonNumeric)
	}
}

func TestResolveBothRoles(t *testing.T) {
	input := "id\tdays_post_transplant\trelevant_donor\tsubject\tcontrol\n" +
		"sampleA\t0\tdonor1\tsub1\tmock\n"
	table := testTable(t, input)

	if _, err := Resolve(table, baseConfig()); err == nil {
		t.Error("Expected an error for a sample with both a timepoint and a control value")
	}
}

func TestResolveMissingReference(t *testing.T) {
	input := "id\tdays_post_transplant\trelevant_donor\tsubject\n" +
		"sampleA\t0\tdonor1\tsub1\n" +
		"sampleB\t7\t\tsub1\n" +
		"sampleC\t0\t\tsub2\n"
	table := testTable(t, input)

	cfg := baseConfig()
	cfg.ControlColumn = ""

	_, err := Resolve(table, cfg)

	var missingRef MissingReferenceError
	if !errors.As(err, &missingRef) {
		t.Fatalf("Expected a MissingReferenceError, got %v", err)
	}
	if len(missingRef.Samples) != 2 || missingRef.Samples[0] != "sampleB" || missingRef.Samples[1] != "sampleC" {
		t.Errorf("Expected the error to name sampleB and sampleC, got %v", missingRef.Samples)
	}

	cfg.FilterMissingReferences = true

	resolved, err := Resolve(table, cfg)
	if err != nil {
		t.Fatal(err)
	}

	if len(resolved.Subjects) != 1 || resolved.Subjects[0].Sample != "sampleA" {
		t.Fatalf("Expected only sampleA to survive, got %+v", resolved.Subjects)
	}
	if len(resolved.MissingReferenceSamples) != 2 {
		t.Errorf("Expected 2 filtered samples to be recorded, got %v", resolved.MissingReferenceSamples)
	}
}

func TestResolveSubjectRequired(t *testing.T) {
	input := "id\tdays_post_transplant\trelevant_donor\tsubject\n" +
		"sampleA\t0\tdonor1\t\n"
	table := testTable(t, input)

	cfg := baseConfig()
	cfg.ControlColumn = ""

	if _, err := Resolve(table, cfg); err == nil {
		t.Error("Expected an error for a timepoint sample without a subject")
	}
}

func TestResolveWithoutSubjectColumn(t *testing.T) {
	table := testTable(t, resolveInput)

	cfg := baseConfig()
	cfg.SubjectColumn = ""

	resolved, err := Resolve(table, cfg)
	if err != nil {
		t.Fatal(err)
	}

	for _, s := range resolved.Subjects {
		if s.Subject != "" {
			t.Fatalf("Expected no subject annotation, got %+v", s)
		}
	}
}
