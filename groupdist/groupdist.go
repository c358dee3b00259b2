// Package groupdist builds the two distributions that longitudinal
// microbiome comparisons run over: a timepoint distribution holding one
// diversity value per study sample grouped by collection time, and a
// reference distribution holding the within-cohort values of the donor
// pool and of any control cohorts.
package groupdist

import (
	"fmt"
	"sort"
	"strings"

	"github.com/carbocation/microbiomisc/diversity"
	"github.com/carbocation/microbiomisc/samplemeta"
)

// ReferenceGroup is the reserved label for the donor cohort in the
// reference distribution. Control cohorts may not use it.
const ReferenceGroup = "reference"

// TimepointRecord is one sample's diversity value at its collection time.
// For a matrix measure the value is the distance between the sample and
// its own reference, not a property of the sample alone.
type TimepointRecord struct {
	ID      string  `csv:"id" json:"id"`
	Measure float64 `csv:"measure" json:"measure"`
	Group   float64 `csv:"group" json:"group"`
	Subject string  `csv:"subject" json:"subject"`
}

// ReferenceRecord is one within-cohort diversity value. For a scalar
// measure each record belongs to a single cohort member and A and B are
// empty; for a matrix measure each record belongs to a pair of members.
type ReferenceRecord struct {
	ID      string  `csv:"id" json:"id"`
	Measure float64 `csv:"measure" json:"measure"`
	Group   string  `csv:"group" json:"group"`
	A       string  `csv:"A" json:"A"`
	B       string  `csv:"B" json:"B"`
}

// TimepointDistribution groups study samples by collection time.
type TimepointDistribution struct {
	Records     []TimepointRecord `json:"records"`
	MeasureName string            `json:"measure_name"`

	// TimeColumn and SubjectColumn carry the metadata column labels
	// through to plot axes and diagnostics.
	TimeColumn    string `json:"time_column"`
	SubjectColumn string `json:"subject_column"`
}

// Groups returns the distinct timepoints in ascending order.
func (d *TimepointDistribution) Groups() []float64 {
	seen := make(map[float64]struct{})
	out := make([]float64, 0)
	for _, rec := range d.Records {
		if _, exists := seen[rec.Group]; exists {
			continue
		}
		seen[rec.Group] = struct{}{}
		out = append(out, rec.Group)
	}
	sort.Float64s(out)

	return out
}

// Select returns the records belonging to one timepoint, in record order.
func (d *TimepointDistribution) Select(group float64) []TimepointRecord {
	var out []TimepointRecord
	for _, rec := range d.Records {
		if rec.Group == group {
			out = append(out, rec)
		}
	}

	return out
}

// ReferenceDistribution groups within-cohort values by cohort: the donor
// pool under the reserved "reference" label, then any control cohorts.
type ReferenceDistribution struct {
	Records     []ReferenceRecord `json:"records"`
	MeasureName string            `json:"measure_name"`
}

// Groups returns the cohort labels in record order: the reference cohort
// first when present, then control cohorts.
func (d *ReferenceDistribution) Groups() []string {
	seen := make(map[string]struct{})
	out := make([]string, 0)
	for _, rec := range d.Records {
		if _, exists := seen[rec.Group]; exists {
			continue
		}
		seen[rec.Group] = struct{}{}
		out = append(out, rec.Group)
	}

	return out
}

// Select returns the records belonging to one cohort, in record order.
func (d *ReferenceDistribution) Select(group string) []ReferenceRecord {
	var out []ReferenceRecord
	for _, rec := range d.Records {
		if rec.Group == group {
			out = append(out, rec)
		}
	}

	return out
}

// Diagnostics summarizes what resolution discarded before grouping.
type Diagnostics struct {
	RowsFiltered            int
	MissingReferenceSamples []string
}

func (d Diagnostics) String() string {
	parts := make([]string, 0, 2)
	if d.RowsFiltered > 0 {
		parts = append(parts, fmt.Sprintf("%d rows excluded by the filter expression", d.RowsFiltered))
	}
	if len(d.MissingReferenceSamples) > 0 {
		parts = append(parts, fmt.Sprintf("%d samples dropped for missing references (%s)",
			len(d.MissingReferenceSamples), strings.Join(d.MissingReferenceSamples, ", ")))
	}
	if len(parts) == 0 {
		return "no rows were excluded"
	}

	return strings.Join(parts, "; ")
}

// Grouping is the full output of Build.
type Grouping struct {
	Timepoints  TimepointDistribution
	References  ReferenceDistribution
	Diagnostics Diagnostics
}

// Build joins resolved metadata against a diversity source. Timepoint
// records keep metadata row order. The donor cohort lists each distinct
// reference once, in order of first appearance; control cohorts follow,
// sorted by label, each cohort's members in metadata row order. Any
// sample or pair the source cannot value is fatal.
func Build(resolved *samplemeta.Resolved, src diversity.Source) (*Grouping, error) {
	out := &Grouping{
		Timepoints: TimepointDistribution{
			MeasureName:   src.MeasureName(),
			TimeColumn:    resolved.TimeColumn,
			SubjectColumn: resolved.SubjectColumn,
		},
		References: ReferenceDistribution{
			MeasureName: src.MeasureName(),
		},
		Diagnostics: Diagnostics{
			RowsFiltered:            resolved.RowsFiltered,
			MissingReferenceSamples: resolved.MissingReferenceSamples,
		},
	}

	donors := make([]string, 0)
	seenDonors := make(map[string]struct{})

	for _, s := range resolved.Subjects {
		v, err := src.SubjectValue(s.Sample, s.Reference)
		if err != nil {
			return nil, err
		}

		out.Timepoints.Records = append(out.Timepoints.Records, TimepointRecord{
			ID:      s.Sample,
			Measure: v,
			Group:   s.Time,
			Subject: s.Subject,
		})

		if _, exists := seenDonors[s.Reference]; !exists {
			seenDonors[s.Reference] = struct{}{}
			donors = append(donors, s.Reference)
		}
	}

	refRecords, err := cohortRecords(src, ReferenceGroup, donors)
	if err != nil {
		return nil, err
	}
	out.References.Records = append(out.References.Records, refRecords...)

	cohorts := make(map[string][]string)
	labels := make([]string, 0)
	for _, c := range resolved.Controls {
		if c.Group == ReferenceGroup {
			return nil, fmt.Errorf("Control group name %q is reserved for the reference cohort", ReferenceGroup)
		}
		if _, exists := cohorts[c.Group]; !exists {
			labels = append(labels, c.Group)
		}
		cohorts[c.Group] = append(cohorts[c.Group], c.Sample)
	}
	sort.Strings(labels)

	for _, label := range labels {
		recs, err := cohortRecords(src, label, cohorts[label])
		if err != nil {
			return nil, err
		}
		out.References.Records = append(out.References.Records, recs...)
	}

	return out, nil
}

func cohortRecords(src diversity.Source, group string, members []string) ([]ReferenceRecord, error) {
	values, err := src.CohortValues(members)
	if err != nil {
		return nil, err
	}

	out := make([]ReferenceRecord, 0, len(values))
	for _, v := range values {
		out = append(out, ReferenceRecord{
			ID:      v.ID,
			Measure: v.Value,
			Group:   group,
			A:       v.A,
			B:       v.B,
		})
	}

	return out, nil
}
