package csvparser

import (
	"errors"
	"strings"
	"testing"

	"github.com/ginjaninja78/transferfix/internal/audit"
	"github.com/ginjaninja78/transferfix/internal/validation"
)

func TestDetectSeparator(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  rune
	}{
		{"semicolon before comma", "a;b,c", ';'},
		{"comma before semicolon", "a,b;c", ','},
		{"tab only", "a\tb\tc", '\t'},
		{"only first line counts", "a\tb\nc;d", '\t'},
		{"comma in later field", "x\ty,z", '\t'},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DetectSeparator(tt.input, audit.Discard)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestDetectSeparatorDeterministic(t *testing.T) {
	for i := 0; i < 10; i++ {
		got, _ := DetectSeparator("a;b,c", audit.Discard)
		if got != ';' {
			t.Fatalf("run %d: got %q, want ';'", i, got)
		}
	}
}

func TestDetectSeparatorFails(t *testing.T) {
	_, err := DetectSeparator("no delimiter here\na;b", audit.Discard)
	var pe *validation.ParseError
	if !errors.As(err, &pe) {
		t.Fatalf("got %v, want *validation.ParseError", err)
	}
}

func TestDetectSeparatorRecordsDecision(t *testing.T) {
	log := audit.NewLog()
	if _, err := DetectSeparator("a\tb", log); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	entry, ok := log.Find("SEPARATOR")
	if !ok {
		t.Fatal("SEPARATOR entry missing")
	}
	if entry.Changes[0] != "Separator identified to be: tab" {
		t.Errorf("got %q", entry.Changes[0])
	}
}

func TestNormalizeInput(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"unicode minus", "a;−12,5\n", "a;-12,5\n"},
		{"blank lines and CRLF", "a;b\r\n\r\n  \n1;2\r\n", "a;b\n1;2\n"},
		{"decomposed to composed", "Sparebank o\u0308st\n", "Sparebank \u00f6st\n"},
		{"byte order mark", "\ufeffA;B\n1;2\n", "A;B\n1;2\n"},
		{"empty", "\n\n", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NormalizeInput(tt.input)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestReadInputStopsAtEnd(t *testing.T) {
	input := "A;B\n\n1;2\n end \n3;4\n"
	got, err := ReadInput(strings.NewReader(input))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "A;B\n1;2\n" {
		t.Errorf("got %q, want %q", got, "A;B\n1;2\n")
	}
}

func TestParse(t *testing.T) {
	raw := "A;B;;\n 1 ; 2;;\n;;;\n3;4;;\n"
	table, err := Parse(raw, ';')
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if strings.Join(table.Columns, ",") != "A,B" {
		t.Errorf("columns got %v, want [A B]", table.Columns)
	}
	if table.Len() != 2 {
		t.Fatalf("got %d records, want 2", table.Len())
	}
	if got := table.Records[0].Cells[0]; got != "1" {
		t.Errorf("cell got %q, want %q", got, "1")
	}
	if got := table.Records[1].Row; got != 3 {
		t.Errorf("row number got %d, want 3", got)
	}
	if err := table.Validate(); err != nil {
		t.Errorf("table invalid: %v", err)
	}
}

func TestParseIgnoresByteOrderMark(t *testing.T) {
	table, err := Parse("\ufeffAVGIVENDE_TILBYDER;KUNDENR\nDNB;1\n", ';')
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := table.Columns[0]; got != "AVGIVENDE_TILBYDER" {
		t.Errorf("first column got %q, want %q", got, "AVGIVENDE_TILBYDER")
	}
}

func TestParseKeepsNonEmptyUnnamedColumns(t *testing.T) {
	raw := "A;;C\n1;x;3\n4;;6;extra\n"
	table, err := Parse(raw, ';')
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := "A,Unnamed_1,C,Unnamed_3"
	if got := strings.Join(table.Columns, ","); got != want {
		t.Errorf("columns got %q, want %q", got, want)
	}
	if got := table.Records[0].Cells[3]; got != "" {
		t.Errorf("short row not padded: got %q", got)
	}
}

func TestParseDuplicateHeaders(t *testing.T) {
	table, err := Parse("A,A,A\n1,2,3\n", ',')
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := "A,A.1,A.2"
	if got := strings.Join(table.Columns, ","); got != want {
		t.Errorf("columns got %q, want %q", got, want)
	}
}

func TestParseTabKeepsEmptyFields(t *testing.T) {
	table, err := Parse("A\tB\tC\n1\t\t3\n", '\t')
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := table.Get(0, "C"); got != "3" {
		t.Errorf("got %q, want %q", got, "3")
	}
}

func TestParseEmpty(t *testing.T) {
	_, err := Parse("", ';')
	var pe *validation.ParseError
	if !errors.As(err, &pe) {
		t.Fatalf("got %v, want *validation.ParseError", err)
	}
}

func TestSeparatorName(t *testing.T) {
	if got := SeparatorName(';'); got != "semicolon" {
		t.Errorf("got %q, want semicolon", got)
	}
}
