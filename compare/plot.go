package compare

import "github.com/carbocation/microbiomisc/groupdist"

// PlotInput packages everything the rendering stage needs: the full
// timepoint distribution regardless of which comparisons were selected,
// the reference distribution when it has any records, and the stats table
// when a statistical stage ran. The raw trajectories are displayed beside
// the test results, never merged with them.
type PlotInput struct {
	Timepoints *groupdist.TimepointDistribution `json:"timepoints"`
	References *groupdist.ReferenceDistribution `json:"references,omitempty"`
	Results    []ResultRow                      `json:"results,omitempty"`
}

// BuildPlotInput assembles the rendering-stage package.
func BuildPlotInput(tdist *groupdist.TimepointDistribution, rdist *groupdist.ReferenceDistribution, results []ResultRow) *PlotInput {
	out := &PlotInput{Timepoints: tdist, Results: results}
	if rdist != nil && len(rdist.Records) > 0 {
		out.References = rdist
	}

	return out
}
