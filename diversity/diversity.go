// Package diversity abstracts over the two shapes a diversity artifact can
// take: a per-sample series of scalar values (alpha diversity) and a square
// matrix of pairwise distances (beta diversity). Everything downstream
// works through the Source interface so that grouping and comparison code
// never branches on which shape it was handed.
package diversity

// Variant identifies which shape a Source carries.
type Variant int

const (
	// Alpha sources map each sample to its own scalar value.
	Alpha Variant = iota
	// Beta sources map each pair of samples to a distance.
	Beta
)

func (v Variant) String() string {
	if v == Beta {
		return "beta"
	}
	return "alpha"
}

// CohortValue is one within-cohort diversity value. For Alpha sources each
// value belongs to a single sample and A and B are empty. For Beta sources
// each value belongs to an unordered pair of samples, and ID joins the two
// with "..".
type CohortValue struct {
	ID    string
	A     string
	B     string
	Value float64
}

// Source is the single dispatch boundary between the two diversity shapes.
type Source interface {
	Variant() Variant

	// MeasureName labels the measure for output columns and plot axes.
	MeasureName() string

	// SubjectValue returns the value recorded for a timepoint sample:
	// the sample's own value for Alpha sources, or the distance between
	// the sample and its reference for Beta sources.
	SubjectValue(sample, reference string) (float64, error)

	// CohortValues returns the values within a cohort of samples: one
	// per sample for Alpha sources, or one per unordered pair of
	// samples for Beta sources. Order follows the input slice; pairs
	// are emitted in combination order.
	CohortValues(samples []string) ([]CohortValue, error)
}

// Renamed wraps a Source so that it reports a different measure name.
// Useful when a caller wants axis labels that the artifact itself does not
// carry, as with distance matrices.
func Renamed(src Source, name string) Source {
	return renamedSource{Source: src, name: name}
}

type renamedSource struct {
	Source
	name string
}

func (r renamedSource) MeasureName() string { return r.name }
