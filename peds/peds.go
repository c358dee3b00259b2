// Package peds computes the proportional engraftment of donor strains: the
// fraction of a donor's observed features that show up in a recipient
// sample after transplant. Unlike the diversity measures, it works from a
// raw feature table rather than a precomputed artifact.
package peds

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/carbocation/microbiomisc/samplemeta"
)

// Options control how strictly the metadata must line up before anything
// is computed.
type Options struct {
	// FilterMissingReferences drops timepoint samples with no reference
	// instead of treating them as fatal.
	FilterMissingReferences bool

	// DropIncompleteSubjects removes subjects that were not sampled at
	// every timepoint instead of treating them as fatal.
	DropIncompleteSubjects bool
}

// Result is one sample's engraftment measurement.
type Result struct {
	ID                       string  `csv:"id" json:"id"`
	Measure                  float64 `csv:"measure" json:"measure"`
	TransferredDonorFeatures int     `csv:"transfered_donor_features" json:"transfered_donor_features"`
	TotalDonorFeatures       int     `csv:"total_donor_features" json:"total_donor_features"`
	Donor                    string  `csv:"donor" json:"donor"`
	Subject                  string  `csv:"subject" json:"subject"`
	Time                     float64 `csv:"group" json:"group"`
}

type timepointRow struct {
	sample    string
	subject   string
	time      float64
	reference string
	hasRef    bool
}

// Compute measures engraftment for every timepoint sample in the metadata.
// The subject-completeness check runs before the missing-reference policy,
// so an incomplete subject is reported even when its references are also
// missing. cfg's time, subject, and reference columns are all required
// here; the control column is not consulted.
func Compute(table *FeatureTable, md *samplemeta.Table, cfg samplemeta.Config, opts Options) ([]Result, error) {
	if cfg.TimeColumn == "" || cfg.ReferenceColumn == "" || cfg.SubjectColumn == "" {
		return nil, fmt.Errorf("Compute requires time, reference, and subject columns")
	}

	var pred *samplemeta.Predicate
	if cfg.Where != "" {
		var err error
		pred, err = samplemeta.Compile(cfg.Where)
		if err != nil {
			return nil, err
		}
		for _, col := range pred.Columns() {
			if !md.HasColumn(col) {
				return nil, samplemeta.MissingColumnError{Column: col}
			}
		}
	}

	for _, col := range []string{cfg.TimeColumn, cfg.ReferenceColumn, cfg.SubjectColumn} {
		if !md.HasColumn(col) {
			return nil, samplemeta.MissingColumnError{Column: col}
		}
	}

	rows, err := timepointRows(md, cfg, pred)
	if err != nil {
		return nil, err
	}

	rows, err = completeSubjects(rows, opts.DropIncompleteSubjects)
	if err != nil {
		return nil, err
	}

	var missingRef []string
	kept := rows[:0]
	for _, row := range rows {
		if !row.hasRef {
			missingRef = append(missingRef, row.sample)
			continue
		}
		kept = append(kept, row)
	}
	if len(missingRef) > 0 && !opts.FilterMissingReferences {
		return nil, samplemeta.MissingReferenceError{Samples: missingRef}
	}

	out := make([]Result, 0, len(kept))
	for _, row := range kept {
		donorFeatures, err := table.ObservedFeatures(row.reference)
		if err != nil {
			return nil, err
		}
		if len(donorFeatures) == 0 {
			return nil, fmt.Errorf("Donor Sample %s has no features in it.", row.reference)
		}

		sampleFeatures, err := table.ObservedFeatures(row.sample)
		if err != nil {
			return nil, err
		}

		transferred := 0
		for feature := range donorFeatures {
			if _, exists := sampleFeatures[feature]; exists {
				transferred++
			}
		}

		out = append(out, Result{
			ID:                       row.sample,
			Measure:                  float64(transferred) / float64(len(donorFeatures)),
			TransferredDonorFeatures: transferred,
			TotalDonorFeatures:       len(donorFeatures),
			Donor:                    row.reference,
			Subject:                  row.subject,
			Time:                     row.time,
		})
	}

	return out, nil
}

func timepointRows(md *samplemeta.Table, cfg samplemeta.Config, pred *samplemeta.Predicate) ([]timepointRow, error) {
	var out []timepointRow

	for _, row := range md.Rows {
		if pred != nil && !pred.Match(row) {
			continue
		}

		timeCell := row.Cell(cfg.TimeColumn)
		if !timeCell.Valid {
			continue
		}

		timeVal, err := strconv.ParseFloat(timeCell.String, 64)
		if err != nil {
			return nil, samplemeta.NonNumericTimeError{Sample: row.ID, Column: cfg.TimeColumn, Value: timeCell.String}
		}

		subjectCell := row.Cell(cfg.SubjectColumn)
		if !subjectCell.Valid {
			return nil, fmt.Errorf("Sample %s has a %s value but no %s value", row.ID, cfg.TimeColumn, cfg.SubjectColumn)
		}

		refCell := row.Cell(cfg.ReferenceColumn)

		out = append(out, timepointRow{
			sample:    row.ID,
			subject:   subjectCell.String,
			time:      timeVal,
			reference: refCell.String,
			hasRef:    refCell.Valid,
		})
	}

	return out, nil
}

// completeSubjects enforces that every subject was sampled at every
// distinct timepoint. With drop enabled, subjects with any other count are
// removed; otherwise undersampled subjects are fatal, as are subjects with
// more samples than there are timepoints.
func completeSubjects(rows []timepointRow, drop bool) ([]timepointRow, error) {
	times := make(map[float64]struct{})
	counts := make(map[string]int)
	subjects := make([]string, 0)
	for _, row := range rows {
		times[row.time] = struct{}{}
		if _, exists := counts[row.subject]; !exists {
			subjects = append(subjects, row.subject)
		}
		counts[row.subject]++
	}

	numTimepoints := len(times)

	var incomplete, oversampled []string
	for _, subject := range subjects {
		switch {
		case counts[subject] < numTimepoints:
			incomplete = append(incomplete, subject)
		case counts[subject] > numTimepoints:
			oversampled = append(oversampled, subject)
		}
	}

	if len(incomplete) == 0 && len(oversampled) == 0 {
		return rows, nil
	}

	if drop {
		kept := rows[:0]
		for _, row := range rows {
			if counts[row.subject] == numTimepoints {
				kept = append(kept, row)
			}
		}
		return kept, nil
	}

	if len(incomplete) > 0 {
		return nil, fmt.Errorf("Missing timepoints for associated subjects. Please make sure that"+
			" all subjects have all timepoints or use the drop-incomplete-subjects option."+
			" The incomplete subjects were: %s", strings.Join(incomplete, ", "))
	}

	return nil, fmt.Errorf("There are more occurrences of subjects than timepoints." +
		" Make sure that all of your relevant samples have associated timepoints.")
}
