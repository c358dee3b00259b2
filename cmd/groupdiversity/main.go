// groupdiversity is a convenience tool to join longitudinal sample metadata
// against an alpha or beta diversity artifact, group the diversity values into
// timepoint and reference distributions, and optionally package a comparison
// request for a downstream statistical test.
package main

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"cloud.google.com/go/storage"
	"github.com/aybabtme/uniplot/histogram"
	"github.com/carbocation/microbiomisc"
	"github.com/carbocation/microbiomisc/compare"
	"github.com/carbocation/microbiomisc/diversity"
	"github.com/carbocation/microbiomisc/groupdist"
	"github.com/carbocation/microbiomisc/samplemeta"
	"github.com/carbocation/pfx"
	"github.com/gocarina/gocsv"
	"github.com/montanaflynn/stats"
	"gonum.org/v1/gonum/stat"
)

const (
	TimepointFileName = "timepoint-dist.tsv"
	ReferenceFileName = "reference-dist.tsv"
	StatsFileName     = "stats-input.json"
	PlotFileName      = "plot-input.json"
)

var client *storage.Client

func main() {
	microbiomisc.PrintBuildInfo()

	var diversityPath, metadataPath string
	var timeColumn, referenceColumn, subjectColumn, controlColumn string
	var where string
	var filterMissingReferences bool
	var comparison, anchor, againstGroup string
	var measureName string
	var output string
	var verbose bool

	flag.StringVar(&diversityPath, "diversity", "", "Alpha diversity series (sample, value) or square beta diversity distance matrix. May be local or gs://, and may be compressed.")
	flag.StringVar(&metadataPath, "metadata", "", "Sample metadata table whose first column holds the sample identifier. May be local or gs://, and may be compressed.")
	flag.StringVar(&timeColumn, "time-column", "", "Metadata column holding the numeric collection timepoint of each recipient sample.")
	flag.StringVar(&referenceColumn, "reference-column", "", "Metadata column naming the donated material that each recipient sample descends from.")
	flag.StringVar(&subjectColumn, "subject-column", "", "Metadata column holding the subject identifier. Required for the baseline and consecutive comparisons.")
	flag.StringVar(&controlColumn, "control-column", "", "Metadata column assigning control samples to named control groups.")
	flag.StringVar(&where, "where", "", "Optional SQL-style filter applied to metadata rows before grouping, e.g. \"[body-site]='gut' AND age>7\".")
	flag.BoolVar(&filterMissingReferences, "filter-missing-references", false, "Drop recipient samples whose reference is not found in the metadata, instead of stopping with an error.")
	flag.StringVar(&comparison, "compare", "", "Comparison to package for the statistical stage: baseline, consecutive, reference, or all-pairwise. If empty, only the distributions are written.")
	flag.StringVar(&anchor, "anchor", "", "Baseline timepoint for -compare=baseline.")
	flag.StringVar(&againstGroup, "against-group", "", "Anchor group for -compare=reference. Defaults to the donor reference group.")
	flag.StringVar(&measureName, "measure-name", "", "Overrides the measure label carried into the output files.")
	flag.StringVar(&output, "output", ".", "Directory where the output files will be written.")
	flag.BoolVar(&verbose, "verbose", false, "Print per-group summary statistics and a histogram for each distribution.")
	flag.Parse()

	if diversityPath == "" {
		fmt.Fprintln(os.Stderr, "Please provide --diversity")
		flag.PrintDefaults()
		os.Exit(1)
	}

	if metadataPath == "" {
		fmt.Fprintln(os.Stderr, "Please provide --metadata")
		flag.PrintDefaults()
		os.Exit(1)
	}

	if timeColumn == "" {
		fmt.Fprintln(os.Stderr, "Please provide --time-column")
		flag.PrintDefaults()
		os.Exit(1)
	}

	if referenceColumn == "" {
		fmt.Fprintln(os.Stderr, "Please provide --reference-column")
		flag.PrintDefaults()
		os.Exit(1)
	}

	// Initialize the Google Storage client, but only if our paths indicate
	// that we are pointing to a Google Storage path.
	if strings.HasPrefix(diversityPath, "gs://") || strings.HasPrefix(metadataPath, "gs://") {
		var err error
		client, err = storage.NewClient(context.Background())
		if err != nil {
			log.Fatalln(err)
		}
	}

	cfg := samplemeta.Config{
		TimeColumn:              timeColumn,
		ReferenceColumn:         referenceColumn,
		SubjectColumn:           subjectColumn,
		ControlColumn:           controlColumn,
		Where:                   where,
		FilterMissingReferences: filterMissingReferences,
	}

	if err := run(diversityPath, metadataPath, cfg, comparison, anchor, againstGroup, measureName, output, verbose); err != nil {
		log.Fatalln(err)
	}
}

func run(diversityPath, metadataPath string, cfg samplemeta.Config, comparison, anchor, againstGroup, measureName, output string, verbose bool) error {
	metaReader, metaDelim, err := microbiomisc.OpenTabular(metadataPath, client)
	if err != nil {
		return err
	}

	table, err := samplemeta.Load(metaReader, metaDelim)
	if err != nil {
		return err
	}

	divReader, divDelim, err := microbiomisc.OpenTabular(diversityPath, client)
	if err != nil {
		return err
	}

	src, err := diversity.Resolve(divReader, divDelim)
	if err != nil {
		return err
	}
	if measureName != "" {
		src = diversity.Renamed(src, measureName)
	}

	log.Println("Loaded", len(table.Rows), "metadata rows;", src.Variant(), "diversity measure:", src.MeasureName())

	resolved, err := samplemeta.Resolve(table, cfg)
	if err != nil {
		return err
	}

	grouping, err := groupdist.Build(resolved, src)
	if err != nil {
		return err
	}

	log.Println("Grouped", len(grouping.Timepoints.Records), "timepoint values and", len(grouping.References.Records), "reference values;", grouping.Diagnostics)

	var statsInput *compare.StatsInput
	if comparison != "" {
		family, err := compare.ParseFamily(comparison)
		if err != nil {
			return err
		}

		if family.Paired() && againstGroup != "" {
			return fmt.Errorf("--against-group applies to the reference comparison; use --anchor with --compare=%s", family)
		}
		if !family.Paired() && anchor != "" {
			return fmt.Errorf("--anchor applies to the baseline comparison; use --against-group with --compare=%s", family)
		}

		spec := compare.Spec{Family: family}
		if family.Paired() {
			spec.Anchor = anchor
		} else {
			spec.Anchor = againstGroup
		}

		statsInput, err = compare.Package(spec, &grouping.Timepoints, &grouping.References)
		if err != nil {
			return err
		}

		log.Println("Packaged", len(statsInput.Comparisons), "group comparisons for", family)
	}

	if verbose {
		if err := describeTimepoints(&grouping.Timepoints); err != nil {
			return err
		}
		if err := describeReferences(&grouping.References); err != nil {
			return err
		}
	}

	// All computation has succeeded, so it is now safe to start writing
	// output files.
	if err := os.MkdirAll(output, os.ModePerm); err != nil {
		return pfx.Err(err)
	}

	// Tell gocsv to emit tab-delimited output
	gocsv.SetCSVWriter(func(out io.Writer) *gocsv.SafeCSVWriter {
		w := csv.NewWriter(out)
		w.Comma = '\t'
		return gocsv.NewSafeCSVWriter(w)
	})

	if err := writeTSV(filepath.Join(output, TimepointFileName), &grouping.Timepoints.Records); err != nil {
		return err
	}

	if err := writeTSV(filepath.Join(output, ReferenceFileName), &grouping.References.Records); err != nil {
		return err
	}

	plot := compare.BuildPlotInput(&grouping.Timepoints, &grouping.References, nil)
	if err := writeJSON(filepath.Join(output, PlotFileName), plot); err != nil {
		return err
	}

	if statsInput != nil {
		if err := writeJSON(filepath.Join(output, StatsFileName), statsInput); err != nil {
			return err
		}
	}

	log.Println("Wrote output files to", output)

	return nil
}

func writeTSV(path string, records interface{}) error {
	f, err := os.Create(path)
	if err != nil {
		return pfx.Err(err)
	}
	defer f.Close()

	if err := gocsv.Marshal(records, f); err != nil {
		return pfx.Err(fmt.Errorf("%s: %v", path, err))
	}

	return nil
}

func writeJSON(path string, v interface{}) error {
	f, err := os.Create(path)
	if err != nil {
		return pfx.Err(err)
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return pfx.Err(fmt.Errorf("%s: %v", path, err))
	}

	return nil
}

func describeTimepoints(dist *groupdist.TimepointDistribution) error {
	for _, group := range dist.Groups() {
		values := make([]float64, 0)
		for _, rec := range dist.Select(group) {
			values = append(values, rec.Measure)
		}

		label := dist.TimeColumn + "=" + strconv.FormatFloat(group, 'f', -1, 64)
		if err := describeGroup(label, dist.MeasureName, values); err != nil {
			return err
		}
	}

	return nil
}

func describeReferences(dist *groupdist.ReferenceDistribution) error {
	for _, group := range dist.Groups() {
		values := make([]float64, 0)
		for _, rec := range dist.Select(group) {
			values = append(values, rec.Measure)
		}

		if err := describeGroup(group, dist.MeasureName, values); err != nil {
			return err
		}
	}

	return nil
}

func describeGroup(label, measure string, values []float64) error {
	if len(values) == 0 {
		return nil
	}

	sort.Float64s(values)

	mean, sd := stat.MeanStdDev(values, nil)
	median, err := stats.Median(values)
	if err != nil {
		return pfx.Err(err)
	}
	q1 := stat.Quantile(0.25, stat.LinInterp, values, nil)
	q3 := stat.Quantile(0.75, stat.LinInterp, values, nil)

	fmt.Fprintf(os.Stderr, "%s: n=%d %s mean=%.4f sd=%.4f median=%.4f q1=%.4f q3=%.4f\n",
		label, len(values), measure, mean, sd, median, q1, q3)

	hist := histogram.Hist(10, values)
	if err := histogram.Fprint(os.Stderr, hist, histogram.Linear(40)); err != nil {
		return pfx.Err(err)
	}

	return nil
}
