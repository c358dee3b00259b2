package compare

import (
	"fmt"
	"sort"

	"github.com/montanaflynn/stats"
)

// TestFunc is the boundary to the external statistical stage. Paired
// families call it with the subject-aligned slices; independent families
// call it with the full value series of each group. Implementations return
// their test statistic and p-value.
type TestFunc func(a, b []float64) (stat, p float64, err error)

// ResultRow is one row of the assembled stats table, laid out the way the
// rendering stage expects it. Group sizes and medians describe the full
// groups; N is the number of values actually compared, which for paired
// families is the subject-matched count.
type ResultRow struct {
	AGroup   string  `csv:"A:group" json:"A:group"`
	AN       int     `csv:"A:n" json:"A:n"`
	AMeasure float64 `csv:"A:measure" json:"A:measure"`
	BGroup   string  `csv:"B:group" json:"B:group"`
	BN       int     `csv:"B:n" json:"B:n"`
	BMeasure float64 `csv:"B:measure" json:"B:measure"`
	N        int     `csv:"n" json:"n"`
	Stat     float64 `csv:"test-statistic" json:"test-statistic"`
	P        float64 `csv:"p-value" json:"p-value"`
	Q        float64 `csv:"q-value" json:"q-value"`
}

// Run invokes the statistical stage once per packaged comparison and
// assembles the result table, filling in group medians and
// Benjamini-Hochberg q-values. No statistics beyond that bookkeeping
// happen here.
func Run(in *StatsInput, test TestFunc) ([]ResultRow, error) {
	if in == nil || len(in.Comparisons) == 0 {
		return nil, fmt.Errorf("Not enough groups to compare")
	}

	out := make([]ResultRow, 0, len(in.Comparisons))
	for _, comp := range in.Comparisons {
		aMedian, err := stats.Median(comp.A.Values)
		if err != nil {
			return nil, fmt.Errorf("Computing the median for group %q: %v", comp.A.Group, err)
		}
		bMedian, err := stats.Median(comp.B.Values)
		if err != nil {
			return nil, fmt.Errorf("Computing the median for group %q: %v", comp.B.Group, err)
		}

		a, b := comp.A.Values, comp.B.Values
		n := len(a) + len(b)
		if in.Paired {
			a, b = comp.PairedA, comp.PairedB
			n = len(a)
		}

		stat, p, err := test(a, b)
		if err != nil {
			return nil, fmt.Errorf("Comparing %q with %q: %v", comp.A.Group, comp.B.Group, err)
		}

		out = append(out, ResultRow{
			AGroup:   comp.A.Group,
			AN:       len(comp.A.Values),
			AMeasure: aMedian,
			BGroup:   comp.B.Group,
			BN:       len(comp.B.Values),
			BMeasure: bMedian,
			N:        n,
			Stat:     stat,
			P:        p,
		})
	}

	for i, q := range falseDiscoveryRates(pValues(out)) {
		out[i].Q = q
	}

	return out, nil
}

func pValues(rows []ResultRow) []float64 {
	out := make([]float64, len(rows))
	for i, row := range rows {
		out[i] = row.P
	}

	return out
}

// falseDiscoveryRates adjusts p-values with the Benjamini-Hochberg
// procedure: each p is scaled by the table size over its rank, with tied
// p-values sharing their average rank, and the result clamped to 1.
func falseDiscoveryRates(p []float64) []float64 {
	ranks := averageRanks(p)

	out := make([]float64, len(p))
	for i := range p {
		q := p[i] * float64(len(p)) / ranks[i]
		if q > 1 {
			q = 1
		}
		out[i] = q
	}

	return out
}

func averageRanks(vals []float64) []float64 {
	order := make([]int, len(vals))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(i, j int) bool { return vals[order[i]] < vals[order[j]] })

	ranks := make([]float64, len(vals))
	for i := 0; i < len(order); {
		j := i
		for j+1 < len(order) && vals[order[j+1]] == vals[order[i]] {
			j++
		}

		// Positions i..j hold tied values; 1-based ranks i+1..j+1
		// average to (i+j+2)/2.
		avg := float64(i+j+2) / 2
		for k := i; k <= j; k++ {
			ranks[order[k]] = avg
		}

		i = j + 1
	}

	return ranks
}
