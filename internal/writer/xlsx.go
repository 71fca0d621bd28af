package writer

import (
	"fmt"

	"github.com/xuri/excelize/v2"

	"github.com/ginjaninja78/transferfix/internal/types"
)

// defaultSheet is the sheet excelize creates with a new file.
const defaultSheet = "Sheet1"

// WriteXLSX renders the table as a single-sheet workbook. The header row is
// bold. Numeric cells are written as numbers, every other cell as text, so
// zero-padded customer numbers keep their leading zeros.
func WriteXLSX(table *types.Table, options Options) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	sheet := options.SheetName
	if sheet == "" && options.FileType != "" {
		sheet = string(options.FileType)
	}
	if sheet == "" {
		sheet = defaultSheet
	}
	if sheet != defaultSheet {
		if err := f.SetSheetName(defaultSheet, sheet); err != nil {
			return nil, fmt.Errorf("failed to name sheet: %w", err)
		}
	}

	header := make([]any, len(table.Columns))
	for col, name := range table.Columns {
		header[col] = name
	}
	if err := f.SetSheetRow(sheet, "A1", &header); err != nil {
		return nil, fmt.Errorf("failed to write header: %w", err)
	}

	if len(table.Columns) > 0 {
		bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
		if err != nil {
			return nil, fmt.Errorf("failed to create header style: %w", err)
		}
		last, err := excelize.CoordinatesToCellName(len(table.Columns), 1)
		if err != nil {
			return nil, err
		}
		if err := f.SetCellStyle(sheet, "A1", last, bold); err != nil {
			return nil, fmt.Errorf("failed to style header: %w", err)
		}
	}

	for i, rec := range table.Records {
		row := make([]any, len(table.Columns))
		for col := range table.Columns {
			if d, ok := rec.Numbers[col]; ok {
				row[col] = d.InexactFloat64()
				continue
			}
			row[col] = table.Cell(i, col)
		}

		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return nil, err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return nil, fmt.Errorf("failed to write row %d: %w", rec.Row, err)
		}
	}

	// Auto-width columns
	for col := range table.Columns {
		name, err := excelize.ColumnNumberToName(col + 1)
		if err != nil {
			return nil, err
		}
		if err := f.SetColWidth(sheet, name, name, 18); err != nil {
			return nil, err
		}
	}

	buffer, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to write xlsx: %w", err)
	}
	return buffer.Bytes(), nil
}
