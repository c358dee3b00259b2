package diversity

import "fmt"

// PairIDSeparator joins the two member ids of a pairwise value into a
// single id for output tables.
const PairIDSeparator = ".."

// BetaMatrix is a symmetric matrix of pairwise distances between samples.
type BetaMatrix struct {
	name   string
	index  map[string]int
	values [][]float64
}

// NewBetaMatrix builds a BetaMatrix from a measure name, the sample ids in
// matrix order, and a square slice of distances. The caller is responsible
// for symmetry; loaders in this package verify it before construction.
func NewBetaMatrix(name string, ids []string, values [][]float64) *BetaMatrix {
	index := make(map[string]int, len(ids))
	for i, id := range ids {
		index[id] = i
	}

	return &BetaMatrix{name: name, index: index, values: values}
}

func (m *BetaMatrix) Variant() Variant { return Beta }

func (m *BetaMatrix) MeasureName() string { return m.name }

// Len returns the number of samples in the matrix.
func (m *BetaMatrix) Len() int { return len(m.index) }

// Distance returns the distance between two samples.
func (m *BetaMatrix) Distance(a, b string) (float64, error) {
	ai, ok := m.index[a]
	if !ok {
		return 0, MissingPairError{A: a, B: b}
	}
	bi, ok := m.index[b]
	if !ok {
		return 0, MissingPairError{A: a, B: b}
	}

	return m.values[ai][bi], nil
}

// SubjectValue returns the distance between a timepoint sample and its
// reference. A sample listed as its own reference has no distance to
// measure, which points at a metadata error rather than a zero.
func (m *BetaMatrix) SubjectValue(sample, reference string) (float64, error) {
	if _, ok := m.index[sample]; !ok {
		return 0, MissingSampleError{Sample: sample}
	}
	if _, ok := m.index[reference]; !ok {
		return 0, MissingSampleError{Sample: reference}
	}
	if sample == reference {
		return 0, fmt.Errorf("Sample %s is listed as its own reference, so there is no distance to measure", sample)
	}

	return m.Distance(sample, reference)
}

// CohortValues returns the distance for each unordered pair of cohort
// members, iterating pairs in combination order over the input slice.
func (m *BetaMatrix) CohortValues(samples []string) ([]CohortValue, error) {
	var out []CohortValue
	for i := 0; i < len(samples); i++ {
		for j := i + 1; j < len(samples); j++ {
			d, err := m.Distance(samples[i], samples[j])
			if err != nil {
				return nil, err
			}
			out = append(out, CohortValue{
				ID:    samples[i] + PairIDSeparator + samples[j],
				A:     samples[i],
				B:     samples[j],
				Value: d,
			})
		}
	}

	return out, nil
}
