// =============================================================================
// transferfix - Validation and Error Kinds
// =============================================================================
//
// This package defines every error kind the pipeline can raise and the one
// domain validation that runs as its own stage (the error-code column).
//
// ERROR KINDS:
//   - ParseError          : no delimiter on the first line (fatal)
//   - SchemaMismatchError : column count differs from the target schema (fatal)
//   - ValidationError     : value outside a fixed allowed domain (fatal)
//   - ConsistencyError    : distributor fill found zero or several values (fatal)
//   - ConsistencyWarning  : account fill ambiguity, removed duplicates (logged)
//
// PROPAGATION:
//   Fatal kinds are returned as errors and abort the run with no partial
//   output. Warnings are accumulated and processing continues. Callers match
//   the fatal kinds with errors.As.
//
// =============================================================================

package validation

import (
	"fmt"
	"strings"

	"github.com/ginjaninja78/transferfix/internal/types"
)

// =============================================================================
// SEVERITY
// =============================================================================

// Severity classifies a ConsistencyWarning marker.
type Severity string

const (
	// SeverityError marks a group whose data is contradictory but which is
	// left unchanged instead of aborting the run.
	SeverityError Severity = "error"

	// SeverityWarning marks a suspicious but acceptable condition.
	SeverityWarning Severity = "warning"
)

// =============================================================================
// FATAL ERROR TYPES
// =============================================================================

// ParseError is returned when raw text cannot be tabularized.
type ParseError struct {
	Message string
}

// Error implements the error interface.
func (e *ParseError) Error() string {
	return "parse error: " + e.Message
}

// SchemaMismatchError is returned when a table cannot be mapped onto the
// canonical schema of a file type.
type SchemaMismatchError struct {
	FileType types.FileType
	Want     int
	Got      int
}

// Error implements the error interface.
func (e *SchemaMismatchError) Error() string {
	return fmt.Sprintf("unable to update header for %s: schema has %d columns, table has %d",
		e.FileType, e.Want, e.Got)
}

// ValidationError is returned when a value falls outside its allowed domain.
type ValidationError struct {
	// Field is the column that failed validation.
	Field string

	// Value is the offending value.
	Value string

	// RowNumber is the 1-based data-row number.
	RowNumber int

	// Allowed lists the accepted values, for the message.
	Allowed []string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s on row %d: %q (allowed: %s)",
		e.Field, e.RowNumber, e.Value, formatAllowed(e.Allowed))
}

// ConsistencyError is returned when a transfer group has no single value for
// a column that must be uniform across the group.
type ConsistencyError struct {
	// GroupKey is the transfer-group reference.
	GroupKey string

	// Field is the column being resolved.
	Field string

	// Values are the distinct non-empty values found (empty when none).
	Values []string
}

// Error implements the error interface.
func (e *ConsistencyError) Error() string {
	if len(e.Values) == 0 {
		return fmt.Sprintf("unable to determine %s for transfer group %q: no value found", e.Field, e.GroupKey)
	}
	return fmt.Sprintf("unable to determine %s for transfer group %q: multiple values %s",
		e.Field, e.GroupKey, strings.Join(e.Values, ", "))
}

// =============================================================================
// WARNINGS
// =============================================================================

// Warning kinds.
const (
	KindAccountFill     = "account_fill"
	KindDistributorFill = "distributor_fill"
	KindDuplicate       = "duplicate"
)

// ConsistencyWarning is a non-fatal finding recorded in the audit log.
type ConsistencyWarning struct {
	Severity Severity
	Kind     string
	GroupKey string
	Field    string
	Message  string
}

// Error renders the warning in the same shape as a fatal error, so warnings
// can be printed or promoted without extra formatting.
func (w *ConsistencyWarning) Error() string {
	return fmt.Sprintf("[%s] %s", strings.ToUpper(string(w.Severity)), w.Message)
}

// =============================================================================
// ERROR-CODE VALIDATION
// =============================================================================

// CheckErrorCodes verifies that every value in column belongs to allowed.
// The empty string is only accepted when it is part of allowed.
//
// RETURNS:
//   - nil when every value is allowed.
//   - A *ValidationError for the first offending row.
func CheckErrorCodes(table *types.Table, column string, allowed []string) error {
	idx, err := table.MustIndex(column)
	if err != nil {
		return err
	}

	domain := make(map[string]bool, len(allowed))
	for _, code := range allowed {
		domain[code] = true
	}

	for _, rec := range table.Records {
		value := rec.Cells[idx]
		if !domain[value] {
			return &ValidationError{
				Field:     column,
				Value:     value,
				RowNumber: rec.Row,
				Allowed:   allowed,
			}
		}
	}

	return nil
}

// =============================================================================
// FORMATTING
// =============================================================================

// FormatWarnings formats warnings for display at the end of a run.
func FormatWarnings(warnings []*ConsistencyWarning) string {
	if len(warnings) == 0 {
		return "No warnings."
	}

	var builder strings.Builder
	builder.WriteString(fmt.Sprintf("Completed with %d warning(s):\n", len(warnings)))
	for i, w := range warnings {
		builder.WriteString(fmt.Sprintf("%d. %s\n", i+1, w.Error()))
	}
	return builder.String()
}

// formatAllowed renders a domain, showing the empty string as "".
func formatAllowed(allowed []string) string {
	parts := make([]string, len(allowed))
	for i, v := range allowed {
		if v == "" {
			parts[i] = `""`
		} else {
			parts[i] = v
		}
	}
	return strings.Join(parts, ",")
}
