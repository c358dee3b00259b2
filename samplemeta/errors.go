package samplemeta

import (
	"fmt"
	"strings"
)

// MissingColumnError indicates that a column named in the configuration or
// in the where expression does not exist in the metadata table.
type MissingColumnError struct {
	Column string
}

func (e MissingColumnError) Error() string {
	return fmt.Sprintf("There was an error finding %s in the metadata", e.Column)
}

// NonNumericTimeError indicates that a sample carried a timepoint value
// that could not be interpreted as a number.
type NonNumericTimeError struct {
	Sample string
	Column string
	Value  string
}

func (e NonNumericTimeError) Error() string {
	return fmt.Sprintf("Time value %q for sample %s in column %s is not numeric", e.Value, e.Sample, e.Column)
}

// MissingReferenceError indicates that samples with a timepoint value had
// no reference assigned, and the caller asked for that to be fatal rather
// than filtered.
type MissingReferenceError struct {
	Samples []string
}

func (e MissingReferenceError) Error() string {
	return fmt.Sprintf("Missing references for the associated sample data."+
		" Please make sure that all samples with a timepoint value have an"+
		" associated reference. IDs where missing references were found:"+
		" %s", strings.Join(e.Samples, ", "))
}
