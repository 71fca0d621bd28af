// =============================================================================
// transferfix - Delimited Text Parser
// =============================================================================
//
// This module turns pasted back-office exports into a Table. The exports come
// from several systems and are not consistent:
//   - the delimiter may be ';', tab or ','
//   - trailing delimiters produce empty, unnamed columns
//   - rows may be shorter or longer than the header
//   - copy/paste introduces Unicode minus signs and decomposed characters
//
// FEATURES:
//   - Separator detection from the first line (earliest delimiter wins)
//   - Interactive capture terminated by an END line
//   - Unicode normalization of the raw text before parsing
//   - Synthetic column names for unnamed fields, dropped when entirely empty
//
// The header row is read but not trusted: it only fixes the column count. The
// classifier decides what the columns mean.
//
// =============================================================================

package csvparser

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/ginjaninja78/transferfix/internal/audit"
	"github.com/ginjaninja78/transferfix/internal/types"
	"github.com/ginjaninja78/transferfix/internal/validation"
)

// EndMarker terminates interactive input.
const EndMarker = "END"

// byteOrderMark is stripped from input; it would otherwise stick to the
// first header name.
const byteOrderMark = '\uFEFF'

// unnamedPrefix marks columns that had no header name.
const unnamedPrefix = "Unnamed_"

// separators are the supported delimiters with the names used in the audit log.
var separators = []struct {
	name  string
	comma rune
}{
	{"semicolon", ';'},
	{"tab", '\t'},
	{"comma", ','},
}

// =============================================================================
// INPUT CAPTURE
// =============================================================================

// ReadInput reads lines from r until a line reading END (any case) or EOF.
// Blank lines are skipped. The collected text is normalized with
// NormalizeInput.
func ReadInput(r io.Reader) (string, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)

	var builder strings.Builder
	for scanner.Scan() {
		line := scanner.Text()
		trimmed := strings.TrimSpace(line)
		if strings.EqualFold(trimmed, EndMarker) {
			break
		}
		if trimmed == "" {
			continue
		}
		builder.WriteString(line)
		builder.WriteByte('\n')
	}
	if err := scanner.Err(); err != nil {
		return "", fmt.Errorf("failed to read input: %w", err)
	}

	return NormalizeInput(builder.String())
}

// NormalizeInput prepares pasted text for parsing:
//   - byte order marks removed (Excel writes one in "CSV UTF-8" exports)
//   - Unicode NFC composition
//   - U+2212 MINUS SIGN mapped to '-'
//   - CRLF line endings reduced to LF
//   - blank lines removed
func NormalizeInput(raw string) (string, error) {
	t := transform.Chain(
		runes.Remove(runes.Predicate(func(r rune) bool { return r == byteOrderMark })),
		norm.NFC,
		runes.Map(func(r rune) rune {
			if r == '−' {
				return '-'
			}
			return r
		}),
	)
	normalized, _, err := transform.String(t, raw)
	if err != nil {
		return "", fmt.Errorf("failed to normalize input: %w", err)
	}

	lines := strings.Split(strings.ReplaceAll(normalized, "\r\n", "\n"), "\n")
	kept := lines[:0]
	for _, line := range lines {
		if strings.TrimSpace(line) != "" {
			kept = append(kept, line)
		}
	}
	if len(kept) == 0 {
		return "", nil
	}
	return strings.Join(kept, "\n") + "\n", nil
}

// =============================================================================
// SEPARATOR DETECTION
// =============================================================================

// DetectSeparator returns the delimiter that occurs first on the first line of
// raw. The decision is recorded under SEPARATOR.
//
// RETURNS:
//   - The delimiter rune (';', '\t' or ',').
//   - A *validation.ParseError when none of them occurs on the first line.
func DetectSeparator(raw string, sink audit.Sink) (rune, error) {
	firstLine := raw
	if i := strings.IndexByte(raw, '\n'); i >= 0 {
		firstLine = raw[:i]
	}

	best, bestIndex := -1, -1
	for i, sep := range separators {
		idx := strings.IndexRune(firstLine, sep.comma)
		if idx < 0 {
			continue
		}
		if bestIndex < 0 || idx < bestIndex {
			best, bestIndex = i, idx
		}
	}

	if best < 0 {
		return 0, &validation.ParseError{Message: "unable to identify separator used in the first line"}
	}

	sink.Record("SEPARATOR", []string{"Separator identified to be: " + separators[best].name})
	return separators[best].comma, nil
}

// SeparatorName returns the audit-log name of a delimiter.
func SeparatorName(sep rune) string {
	for _, s := range separators {
		if s.comma == sep {
			return s.name
		}
	}
	return fmt.Sprintf("%q", sep)
}

// =============================================================================
// TABLE PARSING
// =============================================================================

// Parse splits raw text into a Table using sep as the delimiter.
//
// PARSING PROCESS:
//   1. Read every row with encoding/csv (lazy quotes, ragged rows allowed)
//   2. Build the column list from the header row, naming empty headers and
//      any extra columns of wider rows "Unnamed_N"
//   3. Trim every cell, pad short rows with "" and skip all-empty rows
//   4. Drop unnamed columns that are empty in every record
//
// Record.Row is the 1-based position of the row below the header. A leading
// byte order mark is ignored.
func Parse(raw string, sep rune) (*types.Table, error) {
	raw = strings.TrimPrefix(raw, string(byteOrderMark))

	reader := csv.NewReader(strings.NewReader(raw))
	configureReader(reader, sep)

	allRows, err := reader.ReadAll()
	if err != nil {
		return nil, &validation.ParseError{Message: fmt.Sprintf("failed to read delimited text: %v", err)}
	}
	if len(allRows) == 0 {
		return nil, &validation.ParseError{Message: "input is empty"}
	}

	width := 0
	for _, row := range allRows {
		if len(row) > width {
			width = len(row)
		}
	}

	columns, synthetic := extractHeaders(allRows[0], width)

	table := &types.Table{Columns: columns}
	for rowIndex := 1; rowIndex < len(allRows); rowIndex++ {
		row := allRows[rowIndex]
		if isRowEmpty(row) {
			continue
		}

		cells := make([]string, width)
		for col := 0; col < width && col < len(row); col++ {
			cells[col] = strings.TrimSpace(row[col])
		}
		table.Records = append(table.Records, types.Record{Row: rowIndex, Cells: cells})
	}

	dropEmptySynthetic(table, synthetic)
	return table, nil
}

// configureReader configures the csv reader for pasted exports.
//
// TrimLeadingSpace is left off: with a tab delimiter it would swallow empty
// fields. Cells are trimmed after reading instead.
func configureReader(reader *csv.Reader, sep rune) {
	reader.Comma = sep
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
}

// extractHeaders names every column of a table that is width columns wide.
// Duplicate names get a ".N" suffix so each column stays addressable.
func extractHeaders(header []string, width int) ([]string, []bool) {
	columns := make([]string, width)
	synthetic := make([]bool, width)
	seen := make(map[string]int, width)

	for i := 0; i < width; i++ {
		name := ""
		if i < len(header) {
			name = strings.TrimSpace(header[i])
		}
		if name == "" {
			name = fmt.Sprintf("%s%d", unnamedPrefix, i)
			synthetic[i] = true
		}
		if n := seen[name]; n > 0 {
			seen[name] = n + 1
			name = fmt.Sprintf("%s.%d", name, n)
		} else {
			seen[name] = 1
		}
		columns[i] = name
	}

	return columns, synthetic
}

// dropEmptySynthetic removes unnamed columns whose cells are all empty.
func dropEmptySynthetic(table *types.Table, synthetic []bool) {
	keep := make([]int, 0, len(table.Columns))
	for col := range table.Columns {
		if synthetic[col] && columnEmpty(table, col) {
			continue
		}
		keep = append(keep, col)
	}
	if len(keep) == len(table.Columns) {
		return
	}

	columns := make([]string, len(keep))
	for i, col := range keep {
		columns[i] = table.Columns[col]
	}
	table.Columns = columns

	for r := range table.Records {
		cells := make([]string, len(keep))
		for i, col := range keep {
			cells[i] = table.Records[r].Cells[col]
		}
		table.Records[r].Cells = cells
	}
}

func columnEmpty(table *types.Table, col int) bool {
	for _, rec := range table.Records {
		if rec.Cells[col] != "" {
			return false
		}
	}
	return true
}

// isRowEmpty checks if a row contains only empty values.
func isRowEmpty(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}
