package diversity

// AlphaSeries is a scalar diversity measure: one value per sample.
type AlphaSeries struct {
	name   string
	values map[string]float64
}

// NewAlphaSeries builds an AlphaSeries from a measure name and a map of
// per-sample values.
func NewAlphaSeries(name string, values map[string]float64) *AlphaSeries {
	return &AlphaSeries{name: name, values: values}
}

func (s *AlphaSeries) Variant() Variant { return Alpha }

func (s *AlphaSeries) MeasureName() string { return s.name }

// Len returns the number of samples with a value.
func (s *AlphaSeries) Len() int { return len(s.values) }

// Value returns the sample's own value.
func (s *AlphaSeries) Value(sample string) (float64, error) {
	v, ok := s.values[sample]
	if !ok {
		return 0, MissingSampleError{Sample: sample}
	}

	return v, nil
}

// SubjectValue returns the sample's own value. The reference is not
// consulted for a scalar measure.
func (s *AlphaSeries) SubjectValue(sample, reference string) (float64, error) {
	return s.Value(sample)
}

// CohortValues returns one value per sample, in input order.
func (s *AlphaSeries) CohortValues(samples []string) ([]CohortValue, error) {
	out := make([]CohortValue, 0, len(samples))
	for _, sample := range samples {
		v, err := s.Value(sample)
		if err != nil {
			return nil, err
		}
		out = append(out, CohortValue{ID: sample, Value: v})
	}

	return out, nil
}
