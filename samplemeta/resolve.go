package samplemeta

import (
	"fmt"
	"strconv"

	"gopkg.in/guregu/null.v3"
)

// Config names the metadata columns that drive resolution. TimeColumn and
// ReferenceColumn are required. SubjectColumn and ControlColumn are
// optional: without a subject column the resolved rows carry no subject,
// and without a control column no control cohorts are resolved. Where is
// an optional filter expression applied before anything else.
type Config struct {
	TimeColumn      string
	ReferenceColumn string
	SubjectColumn   string
	ControlColumn   string
	Where           string

	// FilterMissingReferences drops timepoint samples whose reference
	// cell is empty instead of treating them as fatal.
	FilterMissingReferences bool
}

// SubjectSample is a resolved study sample: it has a numeric timepoint and
// a reference (donor) sample it will be compared against. Subject is empty
// when no subject column was configured.
type SubjectSample struct {
	Sample    string
	Subject   string
	Time      float64
	Reference string
}

// ControlSample is a member of a named control cohort.
type ControlSample struct {
	Sample string
	Group  string
}

// Resolved is the outcome of resolving a metadata table against a Config.
// Subjects and Controls preserve metadata row order. RowsFiltered counts
// rows excluded by the where expression, and MissingReferenceSamples lists
// timepoint samples dropped under FilterMissingReferences.
type Resolved struct {
	Subjects []SubjectSample
	Controls []ControlSample

	RowsFiltered            int
	MissingReferenceSamples []string

	IDColumn      string
	TimeColumn    string
	SubjectColumn string
}

// Resolve partitions the table's rows into timepoint samples and control
// samples. A row with a timepoint value is a timepoint sample; a row with
// a control value (and no timepoint) is a control sample; a row with
// neither is ignored, which is how donor rows usually ride along in the
// same table. A row with both is an error, because downstream grouping
// would count that sample on both sides of a comparison.
func Resolve(t *Table, cfg Config) (*Resolved, error) {
	if cfg.TimeColumn == "" {
		return nil, fmt.Errorf("Resolve requires a time column")
	}
	if cfg.ReferenceColumn == "" {
		return nil, fmt.Errorf("Resolve requires a reference column")
	}

	var pred *Predicate
	if cfg.Where != "" {
		var err error
		pred, err = Compile(cfg.Where)
		if err != nil {
			return nil, err
		}
		for _, col := range pred.Columns() {
			if !t.HasColumn(col) {
				return nil, MissingColumnError{Column: col}
			}
		}
	}

	for _, col := range []string{cfg.TimeColumn, cfg.ReferenceColumn, cfg.SubjectColumn, cfg.ControlColumn} {
		if col == "" {
			continue
		}
		if !t.HasColumn(col) {
			return nil, MissingColumnError{Column: col}
		}
	}

	out := &Resolved{
		IDColumn:      t.IDColumn,
		TimeColumn:    cfg.TimeColumn,
		SubjectColumn: cfg.SubjectColumn,
	}

	var missingRef []string

	for _, row := range t.Rows {
		if pred != nil && !pred.Match(row) {
			out.RowsFiltered++
			continue
		}

		timeCell := row.Cell(cfg.TimeColumn)

		var controlCell null.String
		if cfg.ControlColumn != "" {
			controlCell = row.Cell(cfg.ControlColumn)
		}

		if timeCell.Valid && controlCell.Valid {
			return nil, fmt.Errorf("Sample %s has both a %s value and a %s value, so it cannot be"+
				" assigned to a single role", row.ID, cfg.TimeColumn, cfg.ControlColumn)
		}

		switch {
		case timeCell.Valid:
			timeVal, err := strconv.ParseFloat(timeCell.String, 64)
			if err != nil {
				return nil, NonNumericTimeError{Sample: row.ID, Column: cfg.TimeColumn, Value: timeCell.String}
			}

			subject := ""
			if cfg.SubjectColumn != "" {
				subjectCell := row.Cell(cfg.SubjectColumn)
				if !subjectCell.Valid {
					return nil, fmt.Errorf("Sample %s has a %s value but no %s value", row.ID, cfg.TimeColumn, cfg.SubjectColumn)
				}
				subject = subjectCell.String
			}

			refCell := row.Cell(cfg.ReferenceColumn)
			if !refCell.Valid {
				missingRef = append(missingRef, row.ID)
				continue
			}

			out.Subjects = append(out.Subjects, SubjectSample{
				Sample:    row.ID,
				Subject:   subject,
				Time:      timeVal,
				Reference: refCell.String,
			})

		case controlCell.Valid:
			out.Controls = append(out.Controls, ControlSample{Sample: row.ID, Group: controlCell.String})
		}
	}

	if len(missingRef) > 0 {
		if !cfg.FilterMissingReferences {
			return nil, MissingReferenceError{Samples: missingRef}
		}
		out.MissingReferenceSamples = missingRef
	}

	return out, nil
}
