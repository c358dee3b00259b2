package peds

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/carbocation/pfx"
)

// FeatureTable is a sample-by-feature presence table. Counts or relative
// abundances both work as input; any value greater than zero marks the
// feature as observed in that sample.
type FeatureTable struct {
	observed map[string]map[string]struct{}
}

// MissingSampleError indicates that a metadata sample has no row in the
// feature table.
type MissingSampleError struct {
	Sample string
}

func (e MissingSampleError) Error() string {
	return fmt.Sprintf("There was an error finding the sample %s in your feature table", e.Sample)
}

// Has reports whether the table has a row for the sample.
func (t *FeatureTable) Has(sample string) bool {
	_, exists := t.observed[sample]
	return exists
}

// ObservedFeatures returns the set of features observed in a sample.
func (t *FeatureTable) ObservedFeatures(sample string) (map[string]struct{}, error) {
	features, exists := t.observed[sample]
	if !exists {
		return nil, MissingSampleError{Sample: sample}
	}

	return features, nil
}

// LoadFeatureTable parses a delimited feature table whose header names the
// features and whose first column names the samples.
func LoadFeatureTable(r io.Reader, delim rune) (*FeatureTable, error) {
	fileCSV := csv.NewReader(r)
	fileCSV.Comma = delim
	fileCSV.Comment = '#'
	fileCSV.LazyQuotes = true

	recs, err := fileCSV.ReadAll()
	if err != nil {
		return nil, pfx.Err(err)
	}

	if len(recs) < 1 {
		return nil, fmt.Errorf("The feature table has no header row")
	}

	header := recs[0]
	features := make([]string, 0, len(header)-1)
	seenFeatures := make(map[string]struct{})
	for _, feature := range header[1:] {
		feature = strings.TrimSpace(feature)
		if _, exists := seenFeatures[feature]; exists {
			return nil, fmt.Errorf("Feature %s appears more than once in the feature table", feature)
		}
		seenFeatures[feature] = struct{}{}
		features = append(features, feature)
	}

	out := &FeatureTable{observed: make(map[string]map[string]struct{}, len(recs)-1)}
	for _, rec := range recs[1:] {
		id := strings.TrimSpace(rec[0])
		if _, exists := out.observed[id]; exists {
			return nil, fmt.Errorf("Sample %s appears more than once in the feature table", id)
		}

		present := make(map[string]struct{})
		for i, feature := range features {
			v, err := strconv.ParseFloat(strings.TrimSpace(rec[i+1]), 64)
			if err != nil {
				return nil, fmt.Errorf("Feature count %q for sample %s is not numeric", rec[i+1], id)
			}
			if v > 0 {
				present[feature] = struct{}{}
			}
		}

		out.observed[id] = present
	}

	return out, nil
}
