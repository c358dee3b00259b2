package diversity

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/carbocation/pfx"
)

// Resolve reads a delimited diversity artifact and decides which shape it
// carries. A table whose row labels mirror its header columns is read as a
// square distance matrix; a two-column table is read as a per-sample
// series named after its value column. A 1x1 table satisfies both readings
// and is rejected as ambiguous rather than silently guessed at.
func Resolve(r io.Reader, delim rune) (Source, error) {
	fileCSV := csv.NewReader(r)
	fileCSV.Comma = delim
	fileCSV.Comment = '#'
	fileCSV.LazyQuotes = true

	recs, err := fileCSV.ReadAll()
	if err != nil {
		return nil, pfx.Err(err)
	}

	if len(recs) < 2 {
		return nil, ShapeError{Reason: "the input has no data rows"}
	}

	header, data := recs[0], recs[1:]
	for i := range header {
		header[i] = strings.TrimSpace(header[i])
	}
	ncol := len(header)

	matrixShaped := ncol > 1 && len(data) == ncol-1
	if matrixShaped {
		for i, rec := range data {
			if strings.TrimSpace(rec[0]) != header[i+1] {
				matrixShaped = false
				break
			}
		}
	}

	switch {
	case matrixShaped && ncol == 2:
		return nil, ShapeError{Reason: "a 1x1 table could be either shape"}
	case matrixShaped:
		return parseMatrix(header, data)
	case ncol == 2:
		return parseSeries(header, data)
	}

	return nil, ShapeError{Reason: fmt.Sprintf("%d rows by %d columns, with row labels that do not mirror the header", len(data), ncol)}
}

func parseMatrix(header []string, data [][]string) (*BetaMatrix, error) {
	ids := header[1:]

	seen := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		if _, exists := seen[id]; exists {
			return nil, fmt.Errorf("Sample %s appears more than once in the distance matrix", id)
		}
		seen[id] = struct{}{}
	}

	values := make([][]float64, len(ids))
	for i, rec := range data {
		row := make([]float64, len(ids))
		for j, raw := range rec[1:] {
			v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
			if err != nil {
				return nil, fmt.Errorf("Distance between %s and %s is not numeric: %q", ids[i], ids[j], raw)
			}
			row[j] = v
		}
		values[i] = row
	}

	for i := 0; i < len(ids); i++ {
		if values[i][i] != 0 {
			return nil, fmt.Errorf("The distance matrix has a nonzero distance from %s to itself: %v", ids[i], values[i][i])
		}
		for j := i + 1; j < len(ids); j++ {
			if values[i][j] != values[j][i] {
				return nil, fmt.Errorf("The distance matrix is not symmetric: [%s, %s] is %v but [%s, %s] is %v",
					ids[i], ids[j], values[i][j], ids[j], ids[i], values[j][i])
			}
		}
	}

	return NewBetaMatrix("distance", ids, values), nil
}

func parseSeries(header []string, data [][]string) (*AlphaSeries, error) {
	values := make(map[string]float64, len(data))
	for _, rec := range data {
		id := strings.TrimSpace(rec[0])
		if _, exists := values[id]; exists {
			return nil, fmt.Errorf("Sample %s appears more than once in the diversity series", id)
		}

		v, err := strconv.ParseFloat(strings.TrimSpace(rec[1]), 64)
		if err != nil {
			return nil, fmt.Errorf("Diversity value %q for sample %s is not numeric", rec[1], id)
		}
		values[id] = v
	}

	return NewAlphaSeries(header[1], values), nil
}
