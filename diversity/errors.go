package diversity

import "fmt"

// ShapeError indicates that tabular input matched neither a per-sample
// series nor a square distance matrix, or that callers used a Source in a
// way its shape cannot answer.
type ShapeError struct {
	Reason string
}

func (e ShapeError) Error() string {
	return fmt.Sprintf("The diversity data matches neither a per-sample series nor a square distance matrix: %s", e.Reason)
}

// MissingSampleError indicates that a sample named by the metadata has no
// value in the diversity data.
type MissingSampleError struct {
	Sample string
}

func (e MissingSampleError) Error() string {
	return fmt.Sprintf("There was an error finding the sample %s in the diversity data", e.Sample)
}

// MissingPairError indicates that a distance matrix has no entry for a
// pair of samples that the metadata requires.
type MissingPairError struct {
	A string
	B string
}

func (e MissingPairError) Error() string {
	return fmt.Sprintf("There was an error finding the distance between %s and %s in the diversity data", e.A, e.B)
}
