// =============================================================================
// transferfix - File-Type Classifier
// =============================================================================
//
// The classifier maps an untrusted Table to one of the five layouts. Exports
// often arrive without a usable header, so the decision is built from three
// independent kinds of evidence, each adding points to an ordered scoreboard:
//
//   1. Column-count prior      exact schema length +10, near length +2
//   2. Header-set match        column names equal a schema as a set, +20
//   3. Content-pattern voting  positional cell shapes (ISIN, currency, units)
//                              that hold for two thirds of the rows and beat
//                              the competing positions, +4 per category
//
// The scoreboard is an ordered slice in canonical type order and the winner is
// the first maximal entry, so equal inputs always give equal results.
//
// =============================================================================

package classifier

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/ginjaninja78/transferfix/internal/config"
	"github.com/ginjaninja78/transferfix/internal/types"
)

// Score weights.
const (
	ExactCountScore  = 10
	NearCountScore   = 2
	HeaderMatchScore = 20
	PatternScore     = 4
)

// noISIN is the placeholder ISIN written on cash lines.
const noISIN = "NO0000000000"

// =============================================================================
// RESULT
// =============================================================================

// TypeScore is the accumulated score of one file type.
type TypeScore struct {
	Type  types.FileType
	Score int
}

// Result is the outcome of a classification.
type Result struct {
	// Type is the chosen layout.
	Type types.FileType

	// Scores holds one entry per layout, in canonical order.
	Scores []TypeScore

	// Evidence lists every heuristic that awarded points, in evaluation order.
	Evidence []string
}

// Score returns the score of a type.
func (r *Result) Score(ft types.FileType) int {
	for _, s := range r.Scores {
		if s.Type == ft {
			return s.Score
		}
	}
	return 0
}

// Summary renders the scores as "RFH=0, RHC=18, ...".
func (r *Result) Summary() string {
	parts := make([]string, len(r.Scores))
	for i, s := range r.Scores {
		parts[i] = fmt.Sprintf("%s=%d", s.Type, s.Score)
	}
	return strings.Join(parts, ", ")
}

// Changes renders the result for the audit log.
func (r *Result) Changes() []string {
	changes := []string{"File identified as: " + string(r.Type), "Scores: " + r.Summary()}
	return append(changes, r.Evidence...)
}

// scoreboard accumulates points in canonical order.
type scoreboard struct {
	scores   []TypeScore
	evidence []string
}

func newScoreboard() *scoreboard {
	scores := make([]TypeScore, len(types.FileTypes))
	for i, ft := range types.FileTypes {
		scores[i] = TypeScore{Type: ft}
	}
	return &scoreboard{scores: scores}
}

func (b *scoreboard) add(ft types.FileType, points int, format string, args ...any) {
	for i := range b.scores {
		if b.scores[i].Type == ft {
			b.scores[i].Score += points
		}
	}
	b.evidence = append(b.evidence, fmt.Sprintf("%s +%d: %s", ft, points, fmt.Sprintf(format, args...)))
}

// best returns the first type holding the maximum score.
func (b *scoreboard) best() types.FileType {
	winner := b.scores[0]
	for _, s := range b.scores[1:] {
		if s.Score > winner.Score {
			winner = s
		}
	}
	return winner.Type
}

// =============================================================================
// CLASSIFICATION
// =============================================================================

// heuristic adds evidence for one kind of signal.
type heuristic func(table *types.Table, ref *config.Reference, board *scoreboard) error

// heuristics run in this order; the order fixes the evidence listing only,
// since points are summed.
var heuristics = []heuristic{
	columnCountPrior,
	headerSetMatch,
	contentPatterns,
}

// Classify scores table against every layout and returns the best match.
func Classify(table *types.Table, ref *config.Reference) (*Result, error) {
	board := newScoreboard()
	for _, h := range heuristics {
		if err := h(table, ref, board); err != nil {
			return nil, fmt.Errorf("failed to classify table: %w", err)
		}
	}

	return &Result{
		Type:     board.best(),
		Scores:   board.scores,
		Evidence: board.evidence,
	}, nil
}

// columnCountPrior rewards layouts whose length equals or is near the table width.
func columnCountPrior(table *types.Table, ref *config.Reference, board *scoreboard) error {
	width := table.Width()
	for _, ft := range types.FileTypes {
		schema, err := ref.Schema(ft)
		if err != nil {
			return err
		}
		switch {
		case width == len(schema.Columns):
			board.add(ft, ExactCountScore, "%d columns match the schema length", width)
		case schema.NearColumns.Contains(width):
			board.add(ft, NearCountScore, "%d columns are within %d-%d", width, schema.NearColumns.Min, schema.NearColumns.Max)
		}
	}
	return nil
}

// headerSetMatch rewards a layout whose column names equal the table's as a set.
func headerSetMatch(table *types.Table, ref *config.Reference, board *scoreboard) error {
	present := make(map[string]bool, table.Width())
	for _, c := range table.Columns {
		present[strings.TrimSpace(c)] = true
	}

	for _, ft := range types.FileTypes {
		schema, err := ref.Schema(ft)
		if err != nil {
			return err
		}
		if len(present) != len(schema.Columns) {
			continue
		}
		match := true
		for _, c := range schema.Columns {
			if !present[c] {
				match = false
				break
			}
		}
		if match {
			board.add(ft, HeaderMatchScore, "header names match the schema")
		}
	}
	return nil
}

// =============================================================================
// CONTENT PATTERNS
// =============================================================================

// candidate is a column position that indicates a layout when a pattern holds there.
type candidate struct {
	ft  types.FileType
	col int
}

// pattern is one category of positional evidence.
type pattern struct {
	category   string
	test       func(table *types.Table, row, col int) bool
	candidates []candidate
}

// patterns are evaluated per category; within a category at most one
// candidate is awarded, the first that clears the threshold and dominates.
var patterns = []pattern{
	{
		category:   "currency",
		test:       isCurrency,
		candidates: []candidate{{types.RHC, 7}, {types.PTOI, 12}},
	},
	{
		category:   "ISIN",
		test:       isISIN,
		candidates: []candidate{{types.RHC, 6}, {types.PTOI, 11}, {types.PTOC, 10}},
	},
	{
		category:   "units",
		test:       looksLikeUnits,
		candidates: []candidate{{types.RHC, 9}},
	},
}

func contentPatterns(table *types.Table, _ *config.Reference, board *scoreboard) error {
	rows := table.Len()
	if rows == 0 {
		return nil
	}

	for _, p := range patterns {
		hits := make([]int, len(p.candidates))
		for i, c := range p.candidates {
			// Positions beyond the table are skipped and score no hits.
			if c.col >= table.Width() {
				continue
			}
			for row := 0; row < rows; row++ {
				if p.test(table, row, c.col) {
					hits[i]++
				}
			}
		}

		for i, c := range p.candidates {
			if !clearsThreshold(hits[i], rows) || !dominates(hits, i) {
				continue
			}
			board.add(c.ft, PatternScore, "%s shape in column %d on %d of %d rows", p.category, c.col, hits[i], rows)
			break
		}
	}
	return nil
}

// clearsThreshold reports whether hits is at least two thirds of rows.
func clearsThreshold(hits, rows int) bool {
	return hits > 0 && hits*3 >= rows*2
}

// dominates reports whether hits[i] is at least every other count.
func dominates(hits []int, i int) bool {
	for j, h := range hits {
		if j != i && h > hits[i] {
			return false
		}
	}
	return true
}

// isCurrency matches a three-character value such as "NOK".
func isCurrency(table *types.Table, row, col int) bool {
	return utf8.RuneCountInString(table.Cell(row, col)) == 3
}

// isISIN matches a twelve-character value starting with two letters.
func isISIN(table *types.Table, row, col int) bool {
	value := table.Cell(row, col)
	if utf8.RuneCountInString(value) != 12 {
		return false
	}
	prefix := []rune(value)[:2]
	return unicode.IsLetter(prefix[0]) && unicode.IsLetter(prefix[1])
}

// looksLikeUnits matches a unit count: a value with a decimal mark, or the
// cash placeholder ISIN followed by an amount in the next column.
func looksLikeUnits(table *types.Table, row, col int) bool {
	value := table.Cell(row, col)
	if looksNumeric(value) {
		return true
	}
	return value == noISIN && looksNumeric(table.Cell(row, col+1))
}

func looksNumeric(value string) bool {
	return strings.ContainsAny(value, ",.")
}
