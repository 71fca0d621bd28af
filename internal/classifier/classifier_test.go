package classifier

import (
	"reflect"
	"strings"
	"testing"

	"github.com/ginjaninja78/transferfix/internal/config"
	"github.com/ginjaninja78/transferfix/internal/types"
)

func loadReference(t *testing.T) *config.Reference {
	t.Helper()
	ref, err := config.LoadReference("../../configs/reference.yaml")
	if err != nil {
		t.Fatalf("failed to load reference: %v", err)
	}
	return ref
}

// makeTable builds a table of the given width with generic column names.
// cells maps a column index to the value written in every row.
func makeTable(width, rows int, cells map[int]string) *types.Table {
	table := &types.Table{Columns: make([]string, width)}
	for i := range table.Columns {
		table.Columns[i] = "col" + strings.Repeat("x", i)
	}
	for r := 0; r < rows; r++ {
		rec := types.Record{Row: r + 1, Cells: make([]string, width)}
		for col, v := range cells {
			rec.Cells[col] = v
		}
		table.Records = append(table.Records, rec)
	}
	return table
}

func TestClassify(t *testing.T) {
	ref := loadReference(t)

	tests := []struct {
		name  string
		table *types.Table
		want  types.FileType
	}{
		{
			name:  "9 columns with ISIN at column 6",
			table: makeTable(9, 3, map[int]string{6: "NO0010000001", 7: "NOK"}),
			want:  types.RFH,
		},
		{
			name:  "17 columns holdings report",
			table: makeTable(17, 4, map[int]string{6: "NO0010000001", 7: "NOK", 9: "12,5"}),
			want:  types.RHC,
		},
		{
			name:  "17 columns order",
			table: makeTable(17, 4, map[int]string{11: "SE0000000001", 12: "SEK"}),
			want:  types.PTOI,
		},
		{
			name:  "27 columns",
			table: makeTable(27, 2, map[int]string{10: "LU0000000001"}),
			want:  types.PTOC,
		},
		{
			name:  "13 columns",
			table: makeTable(13, 2, map[int]string{9: "NO0010000001"}),
			want:  types.NTO,
		},
		{
			name:  "narrow table skips out-of-range patterns",
			table: makeTable(5, 3, map[int]string{4: "abc"}),
			want:  types.RFH,
		},
		{
			name:  "near 27 columns",
			table: makeTable(28, 3, nil),
			want:  types.PTOC,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := Classify(tt.table, ref)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if result.Type != tt.want {
				t.Errorf("got %s, want %s (scores %s)", result.Type, tt.want, result.Summary())
			}
		})
	}
}

func TestClassifyRFHWithTwoThirdsISIN(t *testing.T) {
	ref := loadReference(t)
	table := makeTable(9, 3, map[int]string{6: "NO0010000001"})
	table.Records[2].Cells[6] = "n/a"

	result, err := Classify(table, ref)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Type != types.RFH {
		t.Errorf("got %s, want RFH", result.Type)
	}
	if got := result.Score(types.RHC); got != PatternScore {
		t.Errorf("RHC score got %d, want %d", got, PatternScore)
	}
}

func TestClassifyHeaderSetMatch(t *testing.T) {
	ref := loadReference(t)
	schema, err := ref.Schema(types.PTOC)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	table := makeTable(27, 1, nil)
	copy(table.Columns, schema.Columns)
	table.Columns[0], table.Columns[26] = table.Columns[26], table.Columns[0]

	result, err := Classify(table, ref)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := result.Score(types.PTOC); got != ExactCountScore+HeaderMatchScore {
		t.Errorf("PTOC score got %d, want %d", got, ExactCountScore+HeaderMatchScore)
	}
}

func TestClassifyThreshold(t *testing.T) {
	ref := loadReference(t)
	table := makeTable(17, 3, nil)
	table.Records[0].Cells[6] = "NO0010000001"

	result, err := Classify(table, ref)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := result.Score(types.RHC); got != ExactCountScore {
		t.Errorf("RHC score got %d, want %d", got, ExactCountScore)
	}
}

func TestClassifyDominance(t *testing.T) {
	ref := loadReference(t)
	// Column 11 holds an ISIN on every row and column 6 on two of three, so
	// both clear the threshold but only column 11 dominates.
	table := makeTable(17, 3, map[int]string{11: "NO0010000001"})
	table.Records[0].Cells[6] = "NO0010000001"
	table.Records[1].Cells[6] = "NO0010000001"

	result, err := Classify(table, ref)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := result.Score(types.RHC); got != ExactCountScore {
		t.Errorf("RHC score got %d, want %d", got, ExactCountScore)
	}
	if got := result.Score(types.PTOI); got != ExactCountScore+PatternScore {
		t.Errorf("PTOI score got %d, want %d", got, ExactCountScore+PatternScore)
	}
}

func TestClassifyCashUnits(t *testing.T) {
	ref := loadReference(t)
	table := makeTable(17, 2, map[int]string{9: "NO0000000000", 10: "1500.00"})

	result, err := Classify(table, ref)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := result.Score(types.RHC); got != ExactCountScore+PatternScore {
		t.Errorf("RHC score got %d, want %d", got, ExactCountScore+PatternScore)
	}
}

func TestClassifyTieBreak(t *testing.T) {
	ref := loadReference(t)
	result, err := Classify(makeTable(50, 0, nil), ref)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Type != types.RFH {
		t.Errorf("got %s, want RFH", result.Type)
	}

	// RHC and PTOI tie at 17 columns with no content evidence.
	result, err = Classify(makeTable(17, 2, nil), ref)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Type != types.RHC {
		t.Errorf("got %s, want RHC", result.Type)
	}
}

func TestClassifyDeterministic(t *testing.T) {
	ref := loadReference(t)
	table := makeTable(17, 5, map[int]string{6: "NO0010000001", 12: "NOK"})

	first, err := Classify(table, ref)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for i := 0; i < 20; i++ {
		again, err := Classify(table, ref)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !reflect.DeepEqual(first, again) {
			t.Fatalf("run %d differs: %s vs %s", i, first.Summary(), again.Summary())
		}
	}
}

func TestResultChanges(t *testing.T) {
	result := &Result{
		Type:   types.PTOC,
		Scores: []TypeScore{{types.RFH, 0}, {types.PTOC, 10}},
	}
	changes := result.Changes()
	if changes[0] != "File identified as: PTOC" {
		t.Errorf("got %q", changes[0])
	}
	if changes[1] != "Scores: RFH=0, PTOC=10" {
		t.Errorf("got %q", changes[1])
	}
}
