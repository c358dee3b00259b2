// distsummary is a convenience tool to summarize a grouped diversity
// distribution produced by groupdiversity, printing per-group summary
// statistics as a tab-delimited table.
package main

import (
	"context"
	"encoding/csv"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"strings"

	"cloud.google.com/go/storage"
	"github.com/aybabtme/uniplot/histogram"
	"github.com/carbocation/microbiomisc"
	"github.com/gocarina/gocsv"
	"github.com/montanaflynn/stats"
)

// distributionRow captures the columns shared by the timepoint and
// reference distribution files. Columns specific to one file, such as the
// subject or the pair endpoints, are ignored.
type distributionRow struct {
	Measure float64 `csv:"measure"`
	Group   string  `csv:"group"`
}

var client *storage.Client

func main() {
	var input string
	var showHistogram bool

	flag.StringVar(&input, "input", "", "Distribution file written by groupdiversity (timepoint or reference). May be local or gs://, and may be compressed.")
	flag.BoolVar(&showHistogram, "histogram", false, "Also print a histogram of each group to STDERR.")
	flag.Parse()

	if input == "" {
		flag.PrintDefaults()
		os.Exit(1)
	}

	// Initialize the Google Storage client, but only if our path indicates
	// that we are pointing to a Google Storage path.
	if strings.HasPrefix(input, "gs://") {
		var err error
		client, err = storage.NewClient(context.Background())
		if err != nil {
			log.Fatalln(err)
		}
	}

	if err := run(input, showHistogram); err != nil {
		log.Fatalln(err)
	}
}

func run(input string, showHistogram bool) error {
	reader, delim, err := microbiomisc.OpenTabular(input, client)
	if err != nil {
		return err
	}

	// Tell gocsv to use the detected delimiter
	gocsv.SetCSVReader(func(in io.Reader) gocsv.CSVReader {
		r := csv.NewReader(in)
		r.Comma = delim
		r.LazyQuotes = true
		return r
	})

	rows := []*distributionRow{}
	if err := gocsv.Unmarshal(reader, &rows); err != nil {
		return err
	}

	// Group values in order of first appearance, which keeps timepoints in
	// their written order and the reference cohort ahead of the controls.
	groupValues := make(map[string][]float64)
	groups := make([]string, 0)
	for _, row := range rows {
		if _, exists := groupValues[row.Group]; !exists {
			groups = append(groups, row.Group)
		}
		groupValues[row.Group] = append(groupValues[row.Group], row.Measure)
	}

	header := []string{"Group", "N", "Mean", "SD", "Min", "Q1", "Median", "Q3", "Max"}
	fmt.Println(strings.Join(header, "\t"))

	for _, group := range groups {
		if err := printGroup(group, groupValues[group], showHistogram); err != nil {
			return err
		}
	}

	return nil
}

func printGroup(group string, values []float64, showHistogram bool) error {
	output := []string{group, fmt.Sprintf("%d", len(values))}

	data := stats.LoadRawData(values)

	mean, err := data.Mean()
	if err != nil {
		return err
	}

	sd, err := data.StandardDeviation()
	if err != nil {
		return err
	}

	min, err := data.Min()
	if err != nil {
		return err
	}

	max, err := data.Max()
	if err != nil {
		return err
	}

	output = append(output, fmt.Sprintf("%.3f", mean), fmt.Sprintf("%.3f", sd), fmt.Sprintf("%.3f", min))

	if quartiles, err := stats.Quartile(data); err != nil {
		// Too few values to cut into quartiles.
		output = append(output, "N/A", "N/A", "N/A")
	} else {
		output = append(output, fmt.Sprintf("%.3f", quartiles.Q1), fmt.Sprintf("%.3f", quartiles.Q2), fmt.Sprintf("%.3f", quartiles.Q3))
	}

	output = append(output, fmt.Sprintf("%.3f", max))

	fmt.Println(strings.Join(output, "\t"))

	if showHistogram {
		fmt.Fprintf(os.Stderr, "%s:\n", group)
		hist := histogram.Hist(10, values)
		if err := histogram.Fprint(os.Stderr, hist, histogram.Linear(40)); err != nil {
			return err
		}
	}

	return nil
}
