// =============================================================================
// transferfix - Row Transformations
// =============================================================================
//
// This module holds the stages that rewrite individual cells. Each stage reads
// the column names it works on from the reference data, mutates the table in
// place through its indexed accessors and returns one change description per
// rewritten cell.
//
// STAGES BY FILE TYPE:
//   all                 convert distributor, add distributor
//   RFH RHC PTOI PTOC   pad customer number
//   RHC PTOC            check error code
//   PTOI                remove units, move misplaced account number, fix sell cash
//   RHC                 remove negative cash
//   PTOC                set tax value per ISIN, update tax identifier,
//                       update cash identifier, set tax and cash account,
//                       move tax data, fix sell cash
//   RHC PTOC NTO        convert to numeric
//
// Text comparisons that must ignore case use Unicode case folding, so "ØST"
// and "øst" are treated the same.
//
// =============================================================================

package converter

import (
	"fmt"
	"strings"

	"golang.org/x/text/cases"

	"github.com/ginjaninja78/transferfix/internal/audit"
	"github.com/ginjaninja78/transferfix/internal/numeric"
	"github.com/ginjaninja78/transferfix/internal/repair"
	"github.com/ginjaninja78/transferfix/internal/validation"
)

// notSellingAll is the sell-all-units flag value of a partial transfer.
const notSellingAll = "N"

// =============================================================================
// DISTRIBUTORS
// =============================================================================

// distributorIndex folds the synonym table for case-insensitive lookup.
// Canonical identifiers map to themselves so lower-case codes are fixed too.
func distributorIndex(synonyms map[string]string) map[string]string {
	index := make(map[string]string, len(synonyms)*2)
	for synonym, canonical := range synonyms {
		index[fold(synonym)] = canonical
	}
	for _, canonical := range synonyms {
		if _, exists := index[fold(canonical)]; !exists {
			index[fold(canonical)] = canonical
		}
	}
	return index
}

// convertDistributors rewrites raw distributor tokens at the schema's
// distributor code positions to canonical identifiers.
func convertDistributors(r *run) ([]string, error) {
	var changes []string
	for i := range r.table.Records {
		for _, col := range r.schema.DistributorCodeColumns {
			value := r.table.Cell(i, col)
			if value == "" {
				continue
			}
			canonical, ok := r.distributors[fold(value)]
			if !ok || canonical == value {
				continue
			}
			r.table.Records[i].Cells[col] = canonical
			changes = append(changes, audit.FormatChange(r.table.Records[i].Row, r.table.Columns[col], value, canonical))
		}
	}
	return changes, nil
}

// addDistributors fills missing distributors from the rest of the transfer group.
func addDistributors(r *run) ([]string, error) {
	changes, warnings, err := repair.FillDistributors(r.table, repair.DistributorOptions{
		KeyColumn:       r.schema.GroupKey,
		Roles:           r.schema.DistributorColumns,
		WarnOnAmbiguity: r.warnOnAmbiguity,
	})
	if err != nil {
		return nil, err
	}
	return append(changes, r.warn(warnings)...), nil
}

// =============================================================================
// COMMON STAGES
// =============================================================================

// padCustomerNumber left-pads customer numbers with zeros. Empty cells are
// left empty.
func padCustomerNumber(r *run) ([]string, error) {
	column := r.ref.Fields.CustomerNumber
	return rewrite(r, column, func(i int, value string) (string, bool) {
		if value == "" {
			return value, false
		}
		padded := PadLeft(value, r.ref.CustomerNumberWidth, '0')
		return padded, padded != value
	})
}

// checkErrorCodes fails on the first error code outside the allowed domain.
func checkErrorCodes(r *run) ([]string, error) {
	column := r.ref.Fields.ErrorCode
	if err := validation.CheckErrorCodes(r.table, column, r.ref.ErrorCodes); err != nil {
		return nil, err
	}
	return []string{fmt.Sprintf("All %d value(s) in %s are valid", r.table.Len(), column)}, nil
}

// fixSellCash defaults blank sell-all flags on cash records and blank
// stop-agreement flags on every record.
func fixSellCash(r *run) ([]string, error) {
	f := r.ref.Fields
	cash := r.ref.Placeholders.Cash

	changes, err := rewrite(r, f.SellAllUnits, func(i int, value string) (string, bool) {
		if value != "" || r.table.Get(i, f.SecurityName) != cash {
			return value, false
		}
		return r.ref.Defaults.SellAllUnitsForCash, true
	})
	if err != nil {
		return nil, err
	}

	more, err := rewrite(r, f.StopSavingsAgreement, func(i int, value string) (string, bool) {
		if value != "" {
			return value, false
		}
		return r.ref.Defaults.StopSavingsAgreement, true
	})
	if err != nil {
		return nil, err
	}
	return append(changes, more...), nil
}

// convertToNumeric converts the schema's numeric columns to decimals.
func convertToNumeric(r *run) ([]string, error) {
	if len(r.schema.NumericColumns) == 0 {
		return nil, nil
	}
	return numeric.Normalize(r.table, r.schema.NumericColumns)
}

// =============================================================================
// PTOI STAGES
// =============================================================================

// removeUnits blanks unit counts, which are not expected on PTOI orders.
func removeUnits(r *run) ([]string, error) {
	return rewrite(r, r.ref.Fields.Units, func(i int, value string) (string, bool) {
		return "", value != ""
	})
}

// moveMisplacedAccount moves an account number into the nominee column when
// the order buys a receiving distributor's own fund, does not sell all units,
// and the account was entered in the customer account column instead.
func moveMisplacedAccount(r *run) ([]string, error) {
	f := r.ref.Fields
	source, err := r.table.MustIndex(f.Account)
	if err != nil {
		return nil, err
	}
	target, err := r.table.MustIndex(f.NomineeAccount)
	if err != nil {
		return nil, err
	}

	var changes []string
	for i := range r.table.Records {
		receiving := r.table.Get(i, f.ReceivingDistributor)
		security := r.table.Get(i, f.SecurityName)
		rec := &r.table.Records[i]

		if receiving == "" || !strings.HasPrefix(fold(security), fold(receiving)) {
			continue
		}
		if r.table.Get(i, f.SellAllUnits) != notSellingAll {
			continue
		}
		if rec.Cells[target] != "" || rec.Cells[source] == "" {
			continue
		}

		account := rec.Cells[source]
		rec.Cells[target] = account
		rec.Cells[source] = ""
		changes = append(changes,
			audit.FormatChange(rec.Row, f.Account, account, "")+withRef(r, i),
			audit.FormatChange(rec.Row, f.NomineeAccount, "", account)+withRef(r, i),
		)
	}
	return changes, nil
}

// =============================================================================
// RHC STAGES
// =============================================================================

// removeNegativeCash zeroes negative cash values already marked as corrected.
func removeNegativeCash(r *run) ([]string, error) {
	f := r.ref.Fields
	return rewrite(r, f.CashValue, func(i int, value string) (string, bool) {
		if r.table.Get(i, f.ErrorCode) != r.ref.CorrectedToZeroErrorCode {
			return value, false
		}
		if r.table.Get(i, f.SecurityName) != r.ref.Placeholders.Cash {
			return value, false
		}
		if !strings.HasPrefix(value, "-") {
			return value, false
		}
		return "0", true
	})
}

// =============================================================================
// PTOC STAGES
// =============================================================================

// setTaxValuePerISIN defaults a blank cost basis to 0 on records with an ISIN.
func setTaxValuePerISIN(r *run) ([]string, error) {
	f := r.ref.Fields
	return rewrite(r, f.TaxCostBasis, func(i int, value string) (string, bool) {
		if value != "" || r.table.Get(i, f.ISIN) == "" {
			return value, false
		}
		return "0", true
	})
}

// updateTaxIdentifier relabels any tax keyword to the tax placeholder.
func updateTaxIdentifier(r *run) ([]string, error) {
	keywords := make(map[string]bool, len(r.ref.TaxKeywords))
	for _, k := range r.ref.TaxKeywords {
		keywords[fold(k)] = true
	}
	tax := r.ref.Placeholders.Tax

	return rewrite(r, r.ref.Fields.SecurityName, func(i int, value string) (string, bool) {
		if value == tax || !keywords[fold(value)] {
			return value, false
		}
		return tax, true
	})
}

// updateCashIdentifier relabels security names starting with the cash
// keyword to the cash placeholder.
func updateCashIdentifier(r *run) ([]string, error) {
	cash := r.ref.Placeholders.Cash
	keyword := fold(r.ref.Placeholders.CashKeyword)

	return rewrite(r, r.ref.Fields.SecurityName, func(i int, value string) (string, bool) {
		if value == cash || !strings.HasPrefix(fold(value), keyword) {
			return value, false
		}
		return cash, true
	})
}

// setTaxAndCashAccount fills the account of tax and cash records from the
// transfer group.
func setTaxAndCashAccount(r *run) ([]string, error) {
	f := r.ref.Fields
	changes, warnings, err := repair.FillAccounts(r.table, repair.AccountOptions{
		KeyColumn:      r.schema.GroupKey,
		AccountColumn:  f.Account,
		SecurityColumn: f.SecurityName,
		Placeholders:   []string{r.ref.Placeholders.Tax, r.ref.Placeholders.Cash},
	})
	if err != nil {
		return nil, err
	}
	return append(changes, r.warn(warnings)...), nil
}

// moveTaxData moves the cost basis of tax records to the moved-cost-basis column.
func moveTaxData(r *run) ([]string, error) {
	f := r.ref.Fields
	source, err := r.table.MustIndex(f.TaxCostBasis)
	if err != nil {
		return nil, err
	}
	target, err := r.table.MustIndex(f.MovedTaxCostBasis)
	if err != nil {
		return nil, err
	}

	var changes []string
	for i := range r.table.Records {
		rec := &r.table.Records[i]
		if r.table.Get(i, f.SecurityName) != r.ref.Placeholders.Tax {
			continue
		}
		if rec.Cells[source] == "" || rec.Cells[target] != "" {
			continue
		}

		value := rec.Cells[source]
		rec.Cells[target] = value
		rec.Cells[source] = ""
		changes = append(changes, fmt.Sprintf("%d [MTR: %s] %s moved to %s: %s",
			rec.Row, r.table.Get(i, r.schema.GroupKey), f.TaxCostBasis, f.MovedTaxCostBasis, value))
	}
	return changes, nil
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

// rewrite applies fn to every cell of column and records each change.
// fn returns the new value and whether it differs.
func rewrite(r *run, column string, fn func(i int, value string) (string, bool)) ([]string, error) {
	idx, err := r.table.MustIndex(column)
	if err != nil {
		return nil, err
	}

	var changes []string
	for i := range r.table.Records {
		rec := &r.table.Records[i]
		before := rec.Cells[idx]
		after, changed := fn(i, before)
		if !changed {
			continue
		}
		rec.Cells[idx] = after
		changes = append(changes, audit.FormatChange(rec.Row, column, before, after)+withRef(r, i))
	}
	return changes, nil
}

// withRef returns the transfer reference suffix of a change line.
func withRef(r *run, i int) string {
	ref := r.table.Get(i, r.ref.Fields.TransferRef)
	if ref == "" {
		return ""
	}
	return " (" + r.ref.Fields.TransferRef + ": " + ref + ")"
}

// fold returns the case-folded, trimmed form of s.
func fold(s string) string {
	return cases.Fold().String(strings.TrimSpace(s))
}

// PadLeft pads a string with a character on the left to reach the target length.
// Length is counted in characters.
func PadLeft(s string, length int, padChar rune) string {
	n := len([]rune(s))
	if n >= length {
		return s
	}
	return strings.Repeat(string(padChar), length-n) + s
}
