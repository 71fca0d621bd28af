// =============================================================================
// transferfix - Shared Types
// =============================================================================
//
// This package contains the types shared by every stage of the pipeline, kept
// here to avoid import cycles. Types defined here are used by:
//   - csvparser  (creates the Table)
//   - classifier (reads the Table)
//   - converter  (mutates the Table in place)
//   - repair     (partitions the Table into transfer groups)
//   - numeric    (attaches decimal values to records)
//   - writer     (renders the Table)
//
// OWNERSHIP:
//   A Table is created once by the parser and is exclusively owned by the
//   pipeline for the duration of a run. Stages mutate it through the indexed
//   accessors below; there is no per-row copy that could fail to propagate.
//
// =============================================================================

package types

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// =============================================================================
// FILE TYPES
// =============================================================================

// FileType identifies one of the five known record layouts.
type FileType string

const (
	RFH  FileType = "RFH"
	RHC  FileType = "RHC"
	PTOI FileType = "PTOI"
	PTOC FileType = "PTOC"
	NTO  FileType = "NTO"
)

// FileTypes lists every layout in canonical order. This order is also the
// classifier's tie-break order.
var FileTypes = []FileType{RFH, RHC, PTOI, PTOC, NTO}

// ParseFileType converts a string such as "ptoc" to a FileType.
func ParseFileType(s string) (FileType, error) {
	candidate := FileType(strings.ToUpper(strings.TrimSpace(s)))
	for _, ft := range FileTypes {
		if ft == candidate {
			return ft, nil
		}
	}
	return "", fmt.Errorf("unknown file type: %q", s)
}

// In reports whether ft is one of the given types.
func (ft FileType) In(types ...FileType) bool {
	for _, t := range types {
		if ft == t {
			return true
		}
	}
	return false
}

// =============================================================================
// RECORD
// =============================================================================

// Record is a single data row.
type Record struct {
	// Row is the 1-based data-row number in the source text (header excluded).
	// It is assigned once by the parser and survives row removal, so change
	// descriptions always point at the row the user pasted.
	Row int

	// Cells holds one value per table column, in column order.
	Cells []string

	// Numbers holds the parsed value of every numeric column, keyed by column
	// index. It is nil until numeric normalization runs.
	Numbers map[int]decimal.Decimal
}

// =============================================================================
// TABLE
// =============================================================================

// Table is an ordered sequence of records sharing one column set.
type Table struct {
	// Columns are the column names, in order.
	Columns []string

	// Records are the data rows.
	Records []Record
}

// Len returns the number of records.
func (t *Table) Len() int {
	return len(t.Records)
}

// Width returns the number of columns.
func (t *Table) Width() int {
	return len(t.Columns)
}

// Index returns the position of a column, or -1 if the table has no such column.
func (t *Table) Index(column string) int {
	for i, name := range t.Columns {
		if name == column {
			return i
		}
	}
	return -1
}

// MustIndex returns the position of a column or an error naming it.
func (t *Table) MustIndex(column string) (int, error) {
	idx := t.Index(column)
	if idx < 0 {
		return -1, fmt.Errorf("column %q not found in table", column)
	}
	return idx, nil
}

// Get returns the value of a column in record i.
// Unknown columns read as the empty string.
func (t *Table) Get(i int, column string) string {
	idx := t.Index(column)
	if idx < 0 {
		return ""
	}
	return t.Records[i].Cells[idx]
}

// Cell returns the value at record i, column position col.
// Positions beyond the record width read as the empty string.
func (t *Table) Cell(i, col int) string {
	cells := t.Records[i].Cells
	if col < 0 || col >= len(cells) {
		return ""
	}
	return cells[col]
}

// Set writes the value of a column in record i, directly into the table.
func (t *Table) Set(i int, column, value string) error {
	idx, err := t.MustIndex(column)
	if err != nil {
		return err
	}
	t.Records[i].Cells[idx] = value
	return nil
}

// Column returns a copy of every value in a column.
func (t *Table) Column(column string) []string {
	idx := t.Index(column)
	values := make([]string, len(t.Records))
	if idx < 0 {
		return values
	}
	for i, rec := range t.Records {
		values[i] = rec.Cells[idx]
	}
	return values
}

// SetNumber attaches a parsed decimal to record i and rewrites the cell to
// the canonical decimal string.
func (t *Table) SetNumber(i int, column string, value decimal.Decimal) error {
	idx, err := t.MustIndex(column)
	if err != nil {
		return err
	}
	rec := &t.Records[i]
	if rec.Numbers == nil {
		rec.Numbers = make(map[int]decimal.Decimal)
	}
	rec.Numbers[idx] = value
	rec.Cells[idx] = value.String()
	return nil
}

// Number returns the parsed decimal of a numeric column in record i.
func (t *Table) Number(i int, column string) (decimal.Decimal, bool) {
	idx := t.Index(column)
	if idx < 0 {
		return decimal.Zero, false
	}
	value, ok := t.Records[i].Numbers[idx]
	return value, ok
}

// IsNumeric reports whether a column holds parsed decimals.
func (t *Table) IsNumeric(column string) bool {
	idx := t.Index(column)
	if idx < 0 || len(t.Records) == 0 {
		return false
	}
	_, ok := t.Records[0].Numbers[idx]
	return ok
}

// Keep retains only the records at the given positions, in the given order.
func (t *Table) Keep(positions []int) {
	kept := make([]Record, 0, len(positions))
	for _, p := range positions {
		kept = append(kept, t.Records[p])
	}
	t.Records = kept
}

// Validate checks that every record has exactly one cell per column.
func (t *Table) Validate() error {
	for _, rec := range t.Records {
		if len(rec.Cells) != len(t.Columns) {
			return fmt.Errorf("row %d has %d cells, table has %d columns", rec.Row, len(rec.Cells), len(t.Columns))
		}
	}
	return nil
}

// Clone returns a deep copy of the table.
func (t *Table) Clone() *Table {
	clone := &Table{
		Columns: append([]string(nil), t.Columns...),
		Records: make([]Record, len(t.Records)),
	}
	for i, rec := range t.Records {
		clone.Records[i] = Record{
			Row:   rec.Row,
			Cells: append([]string(nil), rec.Cells...),
		}
		if rec.Numbers != nil {
			clone.Records[i].Numbers = make(map[int]decimal.Decimal, len(rec.Numbers))
			for k, v := range rec.Numbers {
				clone.Records[i].Numbers[k] = v
			}
		}
	}
	return clone
}
