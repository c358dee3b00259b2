// Package compare shapes grouped diversity distributions into the exact
// inputs that an external statistical stage and an external rendering
// stage consume. The four comparison families mirror the questions an FMT
// study asks: did a subject change from its baseline (paired), from the
// previous visit (paired), and does a timepoint resemble the donor pool or
// any other cohort (independent)?
package compare

import (
	"fmt"
	"sort"
	"strconv"

	"github.com/carbocation/microbiomisc/groupdist"
)

// Family selects which comparison layout Package builds.
type Family int

const (
	// Baseline pairs every timepoint against a fixed anchor timepoint,
	// matched by subject.
	Baseline Family = iota
	// Consecutive pairs every timepoint against its immediate
	// predecessor in time order, matched by subject.
	Consecutive
	// Reference compares an anchor cohort against each timepoint group
	// (or, with no timepoint distribution, against each other cohort)
	// with no subject matching.
	Reference
	// AllPairwise compares every cohort against every timepoint group
	// (or, with no timepoint distribution, every unordered cohort pair).
	AllPairwise
)

var familyNames = map[Family]string{
	Baseline:    "baseline",
	Consecutive: "consecutive",
	Reference:   "reference",
	AllPairwise: "all-pairwise",
}

func (f Family) String() string {
	if name, exists := familyNames[f]; exists {
		return name
	}
	return fmt.Sprintf("family(%d)", int(f))
}

// Paired reports whether the family matches values by subject.
func (f Family) Paired() bool {
	return f == Baseline || f == Consecutive
}

// ParseFamily maps the user-facing family names onto Family values.
func ParseFamily(s string) (Family, error) {
	for f, name := range familyNames {
		if s == name {
			return f, nil
		}
	}

	return 0, fmt.Errorf("Invalid comparison %q. Please choose baseline, consecutive, reference, or all-pairwise", s)
}

// Spec is one invocation's comparison request. Anchor names the baseline
// timepoint for the Baseline family or the anchor cohort for the Reference
// family (defaulting to the reserved reference cohort); the other families
// take no anchor.
type Spec struct {
	Family Family
	Anchor string
}

// GroupColumn is the full value series of one group of one distribution.
// Subjects is populated for timepoint groups and aligned with Values.
type GroupColumn struct {
	Group    string    `json:"group"`
	Subjects []string  `json:"subjects,omitempty"`
	Values   []float64 `json:"values"`
}

// Comparison is one A-versus-B entry in the packaged stats input. For
// paired families, PairedA and PairedB hold the subject-matched values in
// sorted subject order; subjects missing a value at either endpoint are
// excluded from the pairing but remain in the full columns.
type Comparison struct {
	A GroupColumn `json:"A"`
	B GroupColumn `json:"B"`

	PairedA []float64 `json:"paired_a,omitempty"`
	PairedB []float64 `json:"paired_b,omitempty"`
}

// StatsInput is the table layout the statistical stage consumes.
type StatsInput struct {
	Paired      bool         `json:"paired"`
	Comparisons []Comparison `json:"comparisons"`
}

// AmbiguousOrderError indicates that a subject was sampled more than once
// at the same timepoint, which leaves paired ordering undefined.
type AmbiguousOrderError struct {
	Subject string
	Time    float64
}

func (e AmbiguousOrderError) Error() string {
	return fmt.Sprintf("Subject %s was found more than once within timepoint group %s, so paired ordering is undefined",
		e.Subject, formatTime(e.Time))
}

// Package builds the stats input for one comparison family over the two
// distributions. It performs no statistics itself.
func Package(spec Spec, tdist *groupdist.TimepointDistribution, rdist *groupdist.ReferenceDistribution) (*StatsInput, error) {
	switch spec.Family {
	case Baseline, Consecutive:
		return packagePaired(spec, tdist)
	case Reference, AllPairwise:
		return packageIndependent(spec, tdist, rdist)
	}

	return nil, fmt.Errorf("Unknown comparison family %v", spec.Family)
}

func formatTime(t float64) string {
	return strconv.FormatFloat(t, 'f', -1, 64)
}

func packagePaired(spec Spec, tdist *groupdist.TimepointDistribution) (*StatsInput, error) {
	if tdist == nil || len(tdist.Records) == 0 {
		return nil, fmt.Errorf("Not enough groups to compare")
	}

	if spec.Family == Consecutive && spec.Anchor != "" {
		return nil, fmt.Errorf("The consecutive family does not use an anchor." +
			" Please either choose the baseline family or remove the anchor")
	}

	// Pairing is by subject, so every record needs one, and a subject may
	// appear only once per timepoint group.
	type subjectTime struct {
		subject string
		time    float64
	}
	seen := make(map[subjectTime]struct{}, len(tdist.Records))
	for _, rec := range tdist.Records {
		if rec.Subject == "" {
			return nil, fmt.Errorf("Paired comparisons require a subject for every sample, but %s has none", rec.ID)
		}
		key := subjectTime{subject: rec.Subject, time: rec.Group}
		if _, exists := seen[key]; exists {
			return nil, AmbiguousOrderError{Subject: rec.Subject, Time: rec.Group}
		}
		seen[key] = struct{}{}
	}

	times := tdist.Groups()

	var pairs [][2]float64
	switch spec.Family {
	case Baseline:
		if spec.Anchor == "" {
			return nil, fmt.Errorf("An anchor timepoint must be provided for the baseline family")
		}
		anchor, err := strconv.ParseFloat(spec.Anchor, 64)
		if err != nil {
			return nil, fmt.Errorf("%q was not found as a group within the distribution", spec.Anchor)
		}
		found := false
		for _, t := range times {
			if t == anchor {
				found = true
				break
			}
		}
		if !found {
			return nil, fmt.Errorf("%q was not found as a group within the distribution", spec.Anchor)
		}
		for _, t := range times {
			if t != anchor {
				pairs = append(pairs, [2]float64{anchor, t})
			}
		}

	case Consecutive:
		for i := 0; i+1 < len(times); i++ {
			pairs = append(pairs, [2]float64{times[i], times[i+1]})
		}
	}

	if len(pairs) == 0 {
		return nil, fmt.Errorf("Not enough groups to compare")
	}

	out := &StatsInput{Paired: true, Comparisons: make([]Comparison, 0, len(pairs))}
	for _, pair := range pairs {
		a := timeColumn(tdist, pair[0])
		b := timeColumn(tdist, pair[1])
		pairedA, pairedB := alignBySubject(a, b)

		out.Comparisons = append(out.Comparisons, Comparison{
			A:       a,
			B:       b,
			PairedA: pairedA,
			PairedB: pairedB,
		})
	}

	return out, nil
}

func packageIndependent(spec Spec, tdist *groupdist.TimepointDistribution, rdist *groupdist.ReferenceDistribution) (*StatsInput, error) {
	if rdist == nil || len(rdist.Records) == 0 {
		return nil, fmt.Errorf("Not enough groups to compare")
	}

	cohorts := rdist.Groups()
	sort.Strings(cohorts)

	againstTimes := tdist != nil && len(tdist.Records) > 0

	var times []float64
	if againstTimes {
		times = tdist.Groups()
	}

	out := &StatsInput{}

	switch spec.Family {
	case Reference:
		anchor := spec.Anchor
		if anchor == "" {
			anchor = groupdist.ReferenceGroup
		}
		found := false
		for _, c := range cohorts {
			if c == anchor {
				found = true
				break
			}
		}
		if !found {
			return nil, fmt.Errorf("%q was not found as a group within the distribution", anchor)
		}

		a := cohortColumn(rdist, anchor)
		if againstTimes {
			for _, t := range times {
				out.Comparisons = append(out.Comparisons, Comparison{A: a, B: timeColumn(tdist, t)})
			}
		} else {
			for _, c := range cohorts {
				if c == anchor {
					continue
				}
				out.Comparisons = append(out.Comparisons, Comparison{A: a, B: cohortColumn(rdist, c)})
			}
		}

	case AllPairwise:
		if spec.Anchor != "" {
			return nil, fmt.Errorf("The all-pairwise family does not use an anchor." +
				" Please either choose the reference family or remove the anchor")
		}
		if againstTimes {
			for _, c := range cohorts {
				a := cohortColumn(rdist, c)
				for _, t := range times {
					out.Comparisons = append(out.Comparisons, Comparison{A: a, B: timeColumn(tdist, t)})
				}
			}
		} else {
			for i := 0; i < len(cohorts); i++ {
				for j := i + 1; j < len(cohorts); j++ {
					out.Comparisons = append(out.Comparisons, Comparison{
						A: cohortColumn(rdist, cohorts[i]),
						B: cohortColumn(rdist, cohorts[j]),
					})
				}
			}
		}
	}

	if len(out.Comparisons) == 0 {
		return nil, fmt.Errorf("Not enough groups to compare")
	}

	return out, nil
}

func timeColumn(d *groupdist.TimepointDistribution, t float64) GroupColumn {
	recs := d.Select(t)

	col := GroupColumn{
		Group:    formatTime(t),
		Subjects: make([]string, 0, len(recs)),
		Values:   make([]float64, 0, len(recs)),
	}
	for _, rec := range recs {
		col.Subjects = append(col.Subjects, rec.Subject)
		col.Values = append(col.Values, rec.Measure)
	}

	return col
}

func cohortColumn(d *groupdist.ReferenceDistribution, group string) GroupColumn {
	recs := d.Select(group)

	col := GroupColumn{
		Group:  group,
		Values: make([]float64, 0, len(recs)),
	}
	for _, rec := range recs {
		col.Values = append(col.Values, rec.Measure)
	}

	return col
}

// alignBySubject intersects the subjects of two group columns and returns
// their values aligned index-for-index, in sorted subject order. Subjects
// present on only one side are left out of the pairing.
func alignBySubject(a, b GroupColumn) (pairedA, pairedB []float64) {
	aVals := make(map[string]float64, len(a.Subjects))
	for i, subject := range a.Subjects {
		aVals[subject] = a.Values[i]
	}

	bVals := make(map[string]float64, len(b.Subjects))
	for i, subject := range b.Subjects {
		bVals[subject] = b.Values[i]
	}

	common := make([]string, 0, len(aVals))
	for subject := range aVals {
		if _, exists := bVals[subject]; exists {
			common = append(common, subject)
		}
	}
	sort.Strings(common)

	for _, subject := range common {
		pairedA = append(pairedA, aVals[subject])
		pairedB = append(pairedB, bVals[subject])
	}

	return pairedA, pairedB
}
