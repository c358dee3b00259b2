// peds is a convenience tool to compute the proportional engraftment of
// donor strains for each recipient sample, given a feature table and sample
// metadata that links recipients to their donated material over time.
package main

import (
	"bufio"
	"context"
	"encoding/csv"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"strings"

	"cloud.google.com/go/storage"
	"github.com/carbocation/microbiomisc"
	"github.com/carbocation/microbiomisc/peds"
	"github.com/carbocation/microbiomisc/samplemeta"
	"github.com/carbocation/pfx"
	"github.com/gocarina/gocsv"
)

var (
	BufferSize = 4096 * 8
	STDOUT     = bufio.NewWriterSize(os.Stdout, BufferSize)
)

var client *storage.Client

func main() {
	defer STDOUT.Flush()

	microbiomisc.PrintBuildInfo()

	var tablePath, metadataPath string
	var timeColumn, referenceColumn, subjectColumn string
	var where string
	var filterMissingReferences, dropIncompleteSubjects bool
	var output string

	flag.StringVar(&tablePath, "table", "", "Feature table with one sample per row and one feature per column. May be local or gs://, and may be compressed.")
	flag.StringVar(&metadataPath, "metadata", "", "Sample metadata table whose first column holds the sample identifier. May be local or gs://, and may be compressed.")
	flag.StringVar(&timeColumn, "time-column", "", "Metadata column holding the numeric collection timepoint of each recipient sample.")
	flag.StringVar(&referenceColumn, "reference-column", "", "Metadata column naming the donated material that each recipient sample descends from.")
	flag.StringVar(&subjectColumn, "subject-column", "", "Metadata column holding the subject identifier.")
	flag.StringVar(&where, "where", "", "Optional SQL-style filter applied to metadata rows, e.g. \"[body-site]='gut' AND age>7\".")
	flag.BoolVar(&filterMissingReferences, "filter-missing-references", false, "Drop recipient samples whose reference is not found in the metadata, instead of stopping with an error.")
	flag.BoolVar(&dropIncompleteSubjects, "drop-incomplete-subjects", false, "Drop subjects that were not sampled at every timepoint, instead of stopping with an error.")
	flag.StringVar(&output, "output", "", "Output file. If empty, results are written to STDOUT.")
	flag.Parse()

	if tablePath == "" {
		fmt.Fprintln(os.Stderr, "Please provide --table")
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

	if subjectColumn == "" {
		fmt.Fprintln(os.Stderr, "Please provide --subject-column")
		flag.PrintDefaults()
		os.Exit(1)
	}

	// Initialize the Google Storage client, but only if our paths indicate
	// that we are pointing to a Google Storage path.
	if strings.HasPrefix(tablePath, "gs://") || strings.HasPrefix(metadataPath, "gs://") {
		var err error
		client, err = storage.NewClient(context.Background())
		if err != nil {
			log.Fatalln(err)
		}
	}

	cfg := samplemeta.Config{
		TimeColumn:      timeColumn,
		ReferenceColumn: referenceColumn,
		SubjectColumn:   subjectColumn,
		Where:           where,
	}

	opts := peds.Options{
		FilterMissingReferences: filterMissingReferences,
		DropIncompleteSubjects:  dropIncompleteSubjects,
	}

	if err := run(tablePath, metadataPath, cfg, opts, output); err != nil {
		log.Fatalln(err)
	}
}

func run(tablePath, metadataPath string, cfg samplemeta.Config, opts peds.Options, output string) error {
	tableReader, tableDelim, err := microbiomisc.OpenTabular(tablePath, client)
	if err != nil {
		return err
	}

	features, err := peds.LoadFeatureTable(tableReader, tableDelim)
	if err != nil {
		return err
	}

	metaReader, metaDelim, err := microbiomisc.OpenTabular(metadataPath, client)
	if err != nil {
		return err
	}

	md, err := samplemeta.Load(metaReader, metaDelim)
	if err != nil {
		return err
	}

	results, err := peds.Compute(features, md, cfg, opts)
	if err != nil {
		return err
	}

	log.Println("Computed proportional engraftment for", len(results), "recipient samples")

	// Tell gocsv to emit tab-delimited output
	gocsv.SetCSVWriter(func(out io.Writer) *gocsv.SafeCSVWriter {
		w := csv.NewWriter(out)
		w.Comma = '\t'
		return gocsv.NewSafeCSVWriter(w)
	})

	var w io.Writer = STDOUT
	if output != "" {
		f, err := os.Create(output)
		if err != nil {
			return pfx.Err(err)
		}
		defer f.Close()
		w = f
	}

	return gocsv.Marshal(&results, w)
}
