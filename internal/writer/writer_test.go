package writer

import (
	"bytes"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"github.com/ginjaninja78/transferfix/internal/types"
)

func sampleTable(t *testing.T) *types.Table {
	t.Helper()
	table := &types.Table{
		Columns: []string{"MTR", "KUNDENR", "VERDI"},
		Records: []types.Record{
			{Row: 1, Cells: []string{"M1", "00012", "1234.5"}},
			{Row: 2, Cells: []string{"M2", "00034", "7"}},
			{Row: 4, Cells: []string{"M1", "", "-0.25"}},
		},
	}
	for i, value := range []string{"1234.5", "7", "-0.25"} {
		if err := table.SetNumber(i, "VERDI", decimal.RequireFromString(value)); err != nil {
			t.Fatalf("SetNumber: %v", err)
		}
	}
	return table
}

func TestWriteDelimited(t *testing.T) {
	tests := []struct {
		name         string
		format       string
		decimalComma bool
		want         string
	}{
		{
			name:         "csv with decimal comma",
			format:       FormatCSV,
			decimalComma: true,
			want:         "MTR;KUNDENR;VERDI\nM1;00012;1234,5\nM2;00034;7\nM1;;-0,25\n",
		},
		{
			name:         "txt with decimal comma",
			format:       FormatTXT,
			decimalComma: true,
			want:         "MTR\tKUNDENR\tVERDI\nM1\t00012\t1234,5\nM2\t00034\t7\nM1\t\t-0,25\n",
		},
		{
			name:   "csv with decimal point",
			format: FormatCSV,
			want:   "MTR;KUNDENR;VERDI\nM1;00012;1234.5\nM2;00034;7\nM1;;-0.25\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			options := DefaultOptions(types.RHC, "MTR")
			options.DecimalComma = tt.decimalComma

			got, err := Render(sampleTable(t), tt.format, options)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if string(got) != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestWriteDelimitedQuotesSeparator(t *testing.T) {
	table := &types.Table{
		Columns: []string{"A", "B"},
		Records: []types.Record{{Row: 1, Cells: []string{"x;y", "z"}}},
	}
	got, err := WriteDelimited(table, ';', true)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if want := "A;B\n\"x;y\";z\n"; string(got) != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestFormatCellTextColumns(t *testing.T) {
	table := sampleTable(t)
	// Text cells keep their value even when they look numeric.
	if got := FormatCell(table, 0, 1, true); got != "00012" {
		t.Errorf("got %q, want %q", got, "00012")
	}
}

func TestRenderUnknownFormat(t *testing.T) {
	if _, err := Render(sampleTable(t), "pdf", DefaultOptions(types.RHC, "")); err == nil {
		t.Error("expected error for unknown format")
	}
}

func TestExtension(t *testing.T) {
	if got := Extension("TXT"); got != ".txt" {
		t.Errorf("got %q, want %q", got, ".txt")
	}
}

func TestWriteXMLGrouped(t *testing.T) {
	got, err := WriteXML(sampleTable(t), DefaultOptions(types.RHC, "MTR"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	out := string(got)

	wantInOrder := []string{
		`<?xml version="1.0" encoding="UTF-8"?>`,
		`<transfers type="RHC">`,
		`<group n="1" key="M1">`,
		`<record n="1" row="1">`,
		`<field name="VERDI">1234.5</field>`,
		`<record n="2" row="4">`,
		`<field name="KUNDENR"/>`,
		`<group n="2" key="M2">`,
		`<record n="3" row="2">`,
		`</transfers>`,
	}
	pos := 0
	for _, want := range wantInOrder {
		idx := strings.Index(out[pos:], want)
		if idx < 0 {
			t.Fatalf("missing %q after offset %d in:\n%s", want, pos, out)
		}
		pos += idx + len(want)
	}
}

func TestWriteXMLFlatAndEscaped(t *testing.T) {
	table := &types.Table{
		Columns: []string{"MASTERTRANSFERREF_(FULLMAKTSNR)", "NAVN"},
		Records: []types.Record{{Row: 1, Cells: []string{"1", "A & B <C>"}}},
	}
	options := DefaultOptions(types.NTO, "")
	options.IncludeXMLDeclaration = false

	got, err := WriteXML(table, options)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	out := string(got)

	if strings.HasPrefix(out, "<?xml") {
		t.Error("declaration should be omitted")
	}
	if strings.Contains(out, "<group") {
		t.Error("flat output should have no group elements")
	}
	if !strings.Contains(out, `<field name="NAVN">A &amp; B &lt;C&gt;</field>`) {
		t.Errorf("value not escaped in:\n%s", out)
	}
	if !strings.Contains(out, `<field name="MASTERTRANSFERREF_(FULLMAKTSNR)">1</field>`) {
		t.Errorf("column name not kept in:\n%s", out)
	}
}

func TestWriteXLSX(t *testing.T) {
	data, err := WriteXLSX(sampleTable(t), DefaultOptions(types.PTOC, "MTR"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("failed to open workbook: %v", err)
	}
	defer f.Close()

	if got := f.GetSheetName(0); got != "PTOC" {
		t.Fatalf("sheet got %q, want %q", got, "PTOC")
	}

	rows, err := f.GetRows("PTOC")
	if err != nil {
		t.Fatalf("failed to read rows: %v", err)
	}
	if len(rows) != 4 {
		t.Fatalf("got %d rows, want 4", len(rows))
	}
	if got := strings.Join(rows[0], ","); got != "MTR,KUNDENR,VERDI" {
		t.Errorf("header got %q", got)
	}
	if rows[1][1] != "00012" {
		t.Errorf("customer number got %q, want %q", rows[1][1], "00012")
	}

	cellType, err := f.GetCellType("PTOC", "C2")
	if err != nil {
		t.Fatalf("GetCellType: %v", err)
	}
	if cellType == excelize.CellTypeSharedString || cellType == excelize.CellTypeInlineString {
		t.Errorf("numeric cell stored as text")
	}
}
