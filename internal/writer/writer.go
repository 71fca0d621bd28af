// =============================================================================
// transferfix - Output Writer Module
// =============================================================================
//
// This module renders a corrected table in the formats the downstream system
// and the operators consume. It never changes the table.
//
// FORMATS:
//   csv   ';'-separated, decimal comma. Archived next to the audit log.
//   txt   tab-separated, decimal comma. The hand-off file for upload.
//   xlsx  one sheet, numeric columns as numbers (xlsx.go).
//   xml   records nested under their transfer group (xml.go).
//
// NUMERIC CELLS:
//   Cells of columns converted by the numeric normalizer are rendered from
//   their decimal value, not from the cell text, so "1234.5" is written as
//   "1234,5" in the delimited formats.
//
// =============================================================================

package writer

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"strings"

	"github.com/ginjaninja78/transferfix/internal/types"
)

// Format names.
const (
	FormatCSV  = "csv"
	FormatTXT  = "txt"
	FormatXLSX = "xlsx"
	FormatXML  = "xml"
)

// =============================================================================
// WRITE OPTIONS
// =============================================================================

// Options contains options for rendering.
type Options struct {
	// FileType is the classified layout. It is written as the XML root
	// attribute and as the XLSX sheet name.
	FileType types.FileType

	// GroupColumn is the transfer group key. XML output nests records under
	// one element per group. Leave empty to write a flat list.
	GroupColumn string

	// DecimalComma renders numeric cells with ',' as the decimal mark in the
	// delimited formats.
	// Default: true
	DecimalComma bool

	// Indent is the string used for XML indentation.
	// Default: "  " (two spaces)
	Indent string

	// IncludeXMLDeclaration determines whether to include the XML declaration.
	// Default: true
	IncludeXMLDeclaration bool

	// RootElement is the XML root element name.
	// Default: "transfers"
	RootElement string

	// SheetName overrides the XLSX sheet name.
	// Default: the file type, or "Sheet1" when it is unknown.
	SheetName string
}

// DefaultOptions returns the default rendering options for a file type.
func DefaultOptions(ft types.FileType, groupColumn string) Options {
	return Options{
		FileType:              ft,
		GroupColumn:           groupColumn,
		DecimalComma:          true,
		Indent:                "  ",
		IncludeXMLDeclaration: true,
		RootElement:           "transfers",
	}
}

// =============================================================================
// RENDERING
// =============================================================================

// Render renders the table in the named format.
//
// PARAMETERS:
//   - table: The corrected table.
//   - format: One of FormatCSV, FormatTXT, FormatXLSX, FormatXML.
//   - options: The rendering options.
//
// RETURNS:
//   - The file contents.
//   - An error for an unknown format or a rendering failure.
func Render(table *types.Table, format string, options Options) ([]byte, error) {
	switch strings.ToLower(format) {
	case FormatCSV:
		return WriteDelimited(table, ';', options.DecimalComma)
	case FormatTXT:
		return WriteDelimited(table, '\t', options.DecimalComma)
	case FormatXLSX:
		return WriteXLSX(table, options)
	case FormatXML:
		return WriteXML(table, options)
	default:
		return nil, fmt.Errorf("unknown output format %q", format)
	}
}

// Extension returns the file extension of a format, including the dot.
func Extension(format string) string {
	return "." + strings.ToLower(format)
}

// WriteDelimited renders the header and every record with the given
// separator. Line endings are "\n".
func WriteDelimited(table *types.Table, sep rune, decimalComma bool) ([]byte, error) {
	var buffer bytes.Buffer

	w := csv.NewWriter(&buffer)
	w.Comma = sep

	if err := w.Write(table.Columns); err != nil {
		return nil, fmt.Errorf("failed to write header: %w", err)
	}

	row := make([]string, table.Width())
	for i := range table.Records {
		for col := range table.Columns {
			row[col] = FormatCell(table, i, col, decimalComma)
		}
		if err := w.Write(row); err != nil {
			return nil, fmt.Errorf("failed to write row %d: %w", table.Records[i].Row, err)
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("failed to flush output: %w", err)
	}

	return buffer.Bytes(), nil
}

// FormatCell returns the text of one cell. Numeric cells are rendered from
// their decimal value.
func FormatCell(table *types.Table, i, col int, decimalComma bool) string {
	rec := table.Records[i]
	if d, ok := rec.Numbers[col]; ok {
		s := d.String()
		if decimalComma {
			s = strings.Replace(s, ".", ",", 1)
		}
		return s
	}
	return table.Cell(i, col)
}
