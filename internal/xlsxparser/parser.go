// =============================================================================
// transferfix - Reference Workbook Parser
// =============================================================================
//
// This module reads an optional XLSX workbook maintained by operations and
// overlays it on the YAML reference data. It lets the distributor synonym
// table, the tax keywords and the canonical column lists be edited in a
// spreadsheet without touching configs/reference.yaml.
//
// WORKBOOK STRUCTURE (sheet names are configurable via WorkbookLayout):
//
//   Sheet "Schemas": one column per file type, type name in row 1,
//   canonical column names below it in order.
//
//   | A                  | B                               | ... |
//   |--------------------|---------------------------------|-----|
//   | RFH                | RHC                             |     |
//   | AVGIVENDE_TILBYDER | MASTERTRANSFERREF_(FULLMAKTSNR) |     |
//   | ...                | ...                             |     |
//
//   Sheet "Distributors": synonym in column A, canonical identifier in B.
//
//   | Synonym        | Canonical |
//   |----------------|-----------|
//   | DNB Bank ASA   | DNB       |
//
//   Sheet "TaxKeywords": one keyword per row in column A.
//
// MERGE RULES:
//   - A sheet that is missing leaves the YAML value untouched.
//   - Schema columns replace the YAML list of the same file type.
//   - Distributor rows are added to the YAML table, replacing equal synonyms.
//   - Tax keywords are appended when not already present.
//   The merged reference is validated again.
//
// =============================================================================

package xlsxparser

import (
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/ginjaninja78/transferfix/internal/config"
	"github.com/ginjaninja78/transferfix/internal/types"
)

// =============================================================================
// WORKBOOK LAYOUT
// =============================================================================

// WorkbookLayout defines where the parser looks for each table.
type WorkbookLayout struct {
	// SchemaSheet holds one column per file type.
	// Default: "Schemas"
	SchemaSheet string

	// DistributorSheet holds synonym/canonical pairs.
	// Default: "Distributors"
	DistributorSheet string

	// TaxKeywordSheet holds one tax keyword per row.
	// Default: "TaxKeywords"
	TaxKeywordSheet string

	// DataStartRow is the 0-based row index where data starts in the
	// distributor and tax keyword sheets (skipping the header row).
	// Default: 1
	DataStartRow int
}

// DefaultWorkbookLayout returns the default sheet names.
func DefaultWorkbookLayout() WorkbookLayout {
	return WorkbookLayout{
		SchemaSheet:      "Schemas",
		DistributorSheet: "Distributors",
		TaxKeywordSheet:  "TaxKeywords",
		DataStartRow:     1,
	}
}

// =============================================================================
// OVERLAY STRUCTURE
// =============================================================================

// Overlay is the reference data read from a workbook.
type Overlay struct {
	// Workbook is the path to the source file.
	Workbook string

	// Schemas maps each file type found in the schema sheet to its columns.
	Schemas map[types.FileType][]string

	// Distributors maps synonyms to canonical identifiers.
	Distributors map[string]string

	// TaxKeywords are the keywords in sheet order.
	TaxKeywords []string
}

// Summary describes the overlay in one line for operational logging.
func (o *Overlay) Summary() string {
	return fmt.Sprintf("%d schema(s), %d distributor synonym(s), %d tax keyword(s)",
		len(o.Schemas), len(o.Distributors), len(o.TaxKeywords))
}

// =============================================================================
// PARSING FUNCTIONS
// =============================================================================

// Parse reads a reference workbook using the default layout.
func Parse(path string) (*Overlay, error) {
	return ParseWithLayout(path, DefaultWorkbookLayout())
}

// ParseWithLayout reads a reference workbook using a custom layout.
//
// PARAMETERS:
//   - path: The path to the XLSX file.
//   - layout: The sheet names and data start row.
//
// RETURNS:
//   - The overlay. Sheets that are absent leave the matching field empty.
//   - An error if the file cannot be opened or a sheet is malformed.
func ParseWithLayout(path string, layout WorkbookLayout) (*Overlay, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open reference workbook: %w", err)
	}
	defer f.Close()

	overlay := &Overlay{
		Workbook:     path,
		Schemas:      make(map[types.FileType][]string),
		Distributors: make(map[string]string),
	}

	if hasSheet(f, layout.SchemaSheet) {
		if err := parseSchemaSheet(f, layout.SchemaSheet, overlay); err != nil {
			return nil, fmt.Errorf("sheet %q: %w", layout.SchemaSheet, err)
		}
	}

	if hasSheet(f, layout.DistributorSheet) {
		if err := parseDistributorSheet(f, layout, overlay); err != nil {
			return nil, fmt.Errorf("sheet %q: %w", layout.DistributorSheet, err)
		}
	}

	if hasSheet(f, layout.TaxKeywordSheet) {
		if err := parseTaxKeywordSheet(f, layout, overlay); err != nil {
			return nil, fmt.Errorf("sheet %q: %w", layout.TaxKeywordSheet, err)
		}
	}

	return overlay, nil
}

// parseSchemaSheet reads one column per file type.
func parseSchemaSheet(f *excelize.File, sheetName string, overlay *Overlay) error {
	cols, err := f.GetCols(sheetName)
	if err != nil {
		return fmt.Errorf("failed to read columns: %w", err)
	}

	for i, col := range cols {
		if len(col) == 0 || isRowEmpty(col) {
			continue
		}

		ft, err := types.ParseFileType(col[0])
		if err != nil {
			return fmt.Errorf("column %d: %w", i+1, err)
		}
		if _, exists := overlay.Schemas[ft]; exists {
			return fmt.Errorf("file type %s listed twice", ft)
		}

		var columns []string
		for _, cell := range col[1:] {
			if name := strings.TrimSpace(cell); name != "" {
				columns = append(columns, name)
			}
		}
		overlay.Schemas[ft] = columns
	}

	return nil
}

// parseDistributorSheet reads synonym/canonical pairs.
func parseDistributorSheet(f *excelize.File, layout WorkbookLayout, overlay *Overlay) error {
	rows, err := f.GetRows(layout.DistributorSheet)
	if err != nil {
		return fmt.Errorf("failed to read rows: %w", err)
	}

	for i := layout.DataStartRow; i < len(rows); i++ {
		row := rows[i]
		if len(row) == 0 || isRowEmpty(row) {
			continue
		}

		synonym := strings.TrimSpace(getCell(row, 0))
		canonical := strings.TrimSpace(getCell(row, 1))
		if synonym == "" || canonical == "" {
			return fmt.Errorf("row %d: synonym and canonical identifier are both required", i+1)
		}
		overlay.Distributors[synonym] = canonical
	}

	return nil
}

// parseTaxKeywordSheet reads one keyword per row.
func parseTaxKeywordSheet(f *excelize.File, layout WorkbookLayout, overlay *Overlay) error {
	rows, err := f.GetRows(layout.TaxKeywordSheet)
	if err != nil {
		return fmt.Errorf("failed to read rows: %w", err)
	}

	for i := layout.DataStartRow; i < len(rows); i++ {
		if keyword := strings.TrimSpace(getCell(rows[i], 0)); keyword != "" {
			overlay.TaxKeywords = append(overlay.TaxKeywords, keyword)
		}
	}

	return nil
}

// =============================================================================
// MERGING
// =============================================================================

// Apply overlays the workbook data on ref and validates the result. ref is
// modified in place.
func (o *Overlay) Apply(ref *config.Reference) error {
	for ft, columns := range o.Schemas {
		if ref.Schemas == nil {
			ref.Schemas = make(map[string]*config.Schema)
		}
		schema, ok := ref.Schemas[string(ft)]
		if !ok || schema == nil {
			schema = &config.Schema{}
			ref.Schemas[string(ft)] = schema
		}
		schema.Columns = append([]string(nil), columns...)
	}

	if len(o.Distributors) > 0 && ref.Distributors == nil {
		ref.Distributors = make(map[string]string, len(o.Distributors))
	}
	for synonym, canonical := range o.Distributors {
		ref.Distributors[synonym] = canonical
	}

	known := make(map[string]bool, len(ref.TaxKeywords))
	for _, k := range ref.TaxKeywords {
		known[k] = true
	}
	for _, k := range o.TaxKeywords {
		if !known[k] {
			ref.TaxKeywords = append(ref.TaxKeywords, k)
			known[k] = true
		}
	}

	if err := ref.Validate(); err != nil {
		return fmt.Errorf("reference data invalid after applying %s: %w", o.Workbook, err)
	}
	return nil
}

// MergeReference parses the workbook at path and applies it to ref.
func MergeReference(path string, ref *config.Reference) (*Overlay, error) {
	overlay, err := Parse(path)
	if err != nil {
		return nil, err
	}
	if err := overlay.Apply(ref); err != nil {
		return nil, err
	}
	return overlay, nil
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

// hasSheet reports whether the workbook contains a sheet.
func hasSheet(f *excelize.File, name string) bool {
	if name == "" {
		return false
	}
	idx, err := f.GetSheetIndex(name)
	return err == nil && idx >= 0
}

// getCell safely gets a cell value from a row.
func getCell(row []string, index int) string {
	if index < 0 || index >= len(row) {
		return ""
	}
	return row[index]
}

// isRowEmpty checks if all cells in a row are empty.
func isRowEmpty(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}
