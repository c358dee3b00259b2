// Package samplemeta loads per-sample study metadata tables and resolves
// them into the typed rows that grouping needs: which samples belong to a
// subject at a timepoint, which reference (donor) sample each one is
// compared against, and which samples are members of a control cohort.
package samplemeta

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/carbocation/pfx"
	"gopkg.in/guregu/null.v3"
)

// Row is one metadata record. Cells are keyed by column name; a cell that
// was empty (or whitespace only) in the source file is an invalid
// null.String, which is how the rest of the system distinguishes "missing"
// from "present but odd".
type Row struct {
	ID    string
	Cells map[string]null.String
}

// Cell returns the named cell, or an invalid null.String when the column
// does not exist at all.
func (r Row) Cell(column string) null.String {
	return r.Cells[column]
}

// Table is a parsed metadata file. The first column of the file names the
// samples; the remaining columns are user metadata. Row order is preserved
// from the file, and everything downstream relies on that for deterministic
// output.
type Table struct {
	IDColumn string
	Columns  []string
	Rows     []Row
}

// HasColumn reports whether the table carries the named metadata column.
// The sample-id column does not count; it is an index, not metadata.
func (t *Table) HasColumn(name string) bool {
	for _, c := range t.Columns {
		if c == name {
			return true
		}
	}
	return false
}

// Load parses a delimited metadata table. The header's first field names
// the sample-id column. Lines starting with # are skipped, which also
// covers the q2:types directive row that QIIME-flavored metadata files
// carry.
func Load(r io.Reader, delim rune) (*Table, error) {
	fileCSV := csv.NewReader(r)
	fileCSV.Comma = delim
	fileCSV.Comment = '#'
	fileCSV.LazyQuotes = true

	recs, err := fileCSV.ReadAll()
	if err != nil {
		return nil, pfx.Err(err)
	}

	if len(recs) < 1 {
		return nil, fmt.Errorf("The metadata table has no header row")
	}

	header := recs[0]
	if len(header) < 1 || strings.TrimSpace(header[0]) == "" {
		return nil, fmt.Errorf("The metadata table has no sample-id column")
	}

	out := &Table{
		IDColumn: strings.TrimSpace(header[0]),
		Columns:  make([]string, 0, len(header)-1),
		Rows:     make([]Row, 0, len(recs)-1),
	}

	seenColumns := make(map[string]struct{})
	for _, col := range header[1:] {
		col = strings.TrimSpace(col)
		if _, exists := seenColumns[col]; exists {
			return nil, fmt.Errorf("Metadata column %q appears more than once", col)
		}
		seenColumns[col] = struct{}{}
		out.Columns = append(out.Columns, col)
	}

	seenIDs := make(map[string]struct{})
	for _, rec := range recs[1:] {
		id := strings.TrimSpace(rec[0])
		if id == "" {
			return nil, fmt.Errorf("The metadata table contains a row with an empty sample id")
		}
		if _, exists := seenIDs[id]; exists {
			return nil, fmt.Errorf("Sample %s appears more than once in the metadata", id)
		}
		seenIDs[id] = struct{}{}

		row := Row{ID: id, Cells: make(map[string]null.String, len(out.Columns))}
		for i, col := range out.Columns {
			row.Cells[col] = cellValue(rec[i+1])
		}

		out.Rows = append(out.Rows, row)
	}

	return out, nil
}

// LoadFile parses a delimited metadata table from disk.
func LoadFile(path string, delim rune) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, pfx.Err(err)
	}
	defer f.Close()

	return Load(f, delim)
}

func cellValue(raw string) null.String {
	v := strings.TrimSpace(raw)
	if v == "" {
		return null.NewString("", false)
	}

	return null.StringFrom(v)
}
