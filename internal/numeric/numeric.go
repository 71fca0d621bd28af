// Package numeric converts locale-formatted amount columns to decimals.
//
// The exports mix "1 234,56" and "1,234.56" styles. The convention is decided
// once for the whole set of numeric columns by majority vote: every value that
// contains a comma or a period votes for the separator that appears last as
// the decimal mark. The other separator is treated as thousands grouping and
// removed. Values that still fail to parse become zero.
package numeric

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/shopspring/decimal"

	"github.com/ginjaninja78/transferfix/internal/types"
)

// Votes is the tally of decimal-mark votes across a set of values.
type Votes struct {
	Comma  int
	Period int
}

// Dropped returns the separator treated as thousands grouping. Ties keep the
// period as the decimal mark.
func (v Votes) Dropped() string {
	if v.Comma > v.Period {
		return "."
	}
	return ","
}

// Clean removes all whitespace, including no-break spaces used as grouping.
func Clean(value string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, value)
}

// Vote tallies the decimal-mark votes of values.
func Vote(values []string) Votes {
	var v Votes
	for _, raw := range values {
		value := Clean(raw)
		comma := strings.Index(value, ",")
		period := strings.Index(value, ".")
		if comma < 0 && period < 0 {
			continue
		}
		if comma > period {
			v.Comma++
		} else {
			v.Period++
		}
	}
	return v
}

// Parse converts value using dropped as the grouping separator. The second
// result is false when the value could not be parsed and zero was returned.
func Parse(value, dropped string) (decimal.Decimal, bool) {
	cleaned := strings.ReplaceAll(Clean(value), dropped, "")
	cleaned = strings.ReplaceAll(cleaned, ",", ".")
	if cleaned == "" {
		return decimal.Zero, false
	}
	d, err := decimal.NewFromString(cleaned)
	if err != nil {
		return decimal.Zero, false
	}
	return d, true
}

// Normalize converts every column in columns to decimals in place.
//
// RETURNS:
//   - One change description per column naming the separator removed, plus a
//     line per column counting values that were coerced to zero.
//   - An error when a column is missing from the table.
func Normalize(table *types.Table, columns []string) ([]string, error) {
	var values []string
	for _, column := range columns {
		if _, err := table.MustIndex(column); err != nil {
			return nil, fmt.Errorf("failed to convert to numeric: %w", err)
		}
		values = append(values, table.Column(column)...)
	}

	dropped := Vote(values).Dropped()

	var changes []string
	for _, column := range columns {
		coerced := 0
		for i := range table.Records {
			raw := table.Get(i, column)
			d, ok := Parse(raw, dropped)
			if !ok && Clean(raw) != "" {
				coerced++
			}
			if err := table.SetNumber(i, column, d); err != nil {
				return nil, err
			}
		}

		changes = append(changes, fmt.Sprintf("%q converted to numeric with separator assumed to be: %q", column, dropped))
		if coerced > 0 {
			changes = append(changes, fmt.Sprintf("%q: %d value(s) could not be parsed and were set to 0", column, coerced))
		}
	}

	return changes, nil
}
