// =============================================================================
// transferfix - Group Consistency Repair
// =============================================================================
//
// Records that share a transfer reference describe one logical transfer and
// must agree on who sends, who receives, and which account the tax and cash
// lines belong to. Exports frequently leave those cells blank on all but one
// line of a group. This package partitions the table into transfer groups and
// fills the blanks from the group's single known value.
//
// POLICIES:
//   - Distributor ambiguity (no value, or several) is fatal: the distributor
//     is needed downstream to route the transfer. It can be downgraded to a
//     warning, in which case the group is left untouched.
//   - Account ambiguity is only a warning: an account may legitimately be
//     missing, and the group's accounts are left as they are.
//
// =============================================================================

package repair

import (
	"fmt"
	"strings"

	"github.com/ginjaninja78/transferfix/internal/audit"
	"github.com/ginjaninja78/transferfix/internal/types"
	"github.com/ginjaninja78/transferfix/internal/validation"
)

// =============================================================================
// PARTITIONING
// =============================================================================

// Group is one transfer group: the positions of every record whose key column
// holds Key, in table order.
type Group struct {
	Key     string
	Indices []int
}

// Partition splits table into groups by the value of keyColumn. Groups are
// returned in order of first appearance.
func Partition(table *types.Table, keyColumn string) ([]Group, error) {
	keyIdx, err := table.MustIndex(keyColumn)
	if err != nil {
		return nil, fmt.Errorf("failed to partition table: %w", err)
	}

	positions := make(map[string]int)
	var groups []Group

	for i, rec := range table.Records {
		key := rec.Cells[keyIdx]
		pos, exists := positions[key]
		if !exists {
			pos = len(groups)
			positions[key] = pos
			groups = append(groups, Group{Key: key})
		}
		groups[pos].Indices = append(groups[pos].Indices, i)
	}

	return groups, nil
}

// distinct returns the non-empty values of column idx across the group, in
// order of first appearance.
func distinct(table *types.Table, group Group, idx int) []string {
	seen := make(map[string]bool)
	var values []string
	for _, i := range group.Indices {
		v := table.Records[i].Cells[idx]
		if v == "" || seen[v] {
			continue
		}
		seen[v] = true
		values = append(values, v)
	}
	return values
}

// =============================================================================
// DISTRIBUTOR FILL
// =============================================================================

// DistributorOptions configures FillDistributors.
type DistributorOptions struct {
	// KeyColumn partitions the table into transfer groups.
	KeyColumn string

	// Roles are the distributor columns resolved per group.
	Roles []string

	// WarnOnAmbiguity downgrades ConsistencyErrors to warnings. Ambiguous
	// groups are then left unchanged.
	WarnOnAmbiguity bool
}

// FillDistributors fills every empty distributor cell with the group's single
// non-empty value for that role.
//
// RETURNS:
//   - One change description per filled cell.
//   - Warnings for ambiguous groups when WarnOnAmbiguity is set.
//   - A *validation.ConsistencyError for the first ambiguous group otherwise.
func FillDistributors(table *types.Table, opts DistributorOptions) ([]string, []*validation.ConsistencyWarning, error) {
	groups, err := Partition(table, opts.KeyColumn)
	if err != nil {
		return nil, nil, err
	}

	roleIdx := make([]int, len(opts.Roles))
	for i, role := range opts.Roles {
		if roleIdx[i], err = table.MustIndex(role); err != nil {
			return nil, nil, fmt.Errorf("failed to fill distributors: %w", err)
		}
	}

	var changes []string
	var warnings []*validation.ConsistencyWarning

	for _, group := range groups {
		resolved := make([]string, len(opts.Roles))
		ambiguous := false

		for r, role := range opts.Roles {
			values := distinct(table, group, roleIdx[r])
			if len(values) == 1 {
				resolved[r] = values[0]
				continue
			}

			cerr := &validation.ConsistencyError{GroupKey: group.Key, Field: role, Values: values}
			if !opts.WarnOnAmbiguity {
				return nil, nil, cerr
			}
			ambiguous = true
			warnings = append(warnings, &validation.ConsistencyWarning{
				Severity: validation.SeverityError,
				Kind:     validation.KindDistributorFill,
				GroupKey: group.Key,
				Field:    role,
				Message:  cerr.Error() + "; group left unchanged",
			})
		}

		if ambiguous {
			continue
		}

		for r, role := range opts.Roles {
			for _, i := range group.Indices {
				rec := &table.Records[i]
				if rec.Cells[roleIdx[r]] != "" {
					continue
				}
				rec.Cells[roleIdx[r]] = resolved[r]
				changes = append(changes, fmt.Sprintf("%s (MTR: %s)",
					audit.FormatChange(rec.Row, role, "", resolved[r]), group.Key))
			}
		}
	}

	return changes, warnings, nil
}

// =============================================================================
// ACCOUNT FILL
// =============================================================================

// AccountOptions configures FillAccounts.
type AccountOptions struct {
	// KeyColumn partitions the table into transfer groups.
	KeyColumn string

	// AccountColumn is the account number resolved per group.
	AccountColumn string

	// SecurityColumn holds the security name.
	SecurityColumn string

	// Placeholders are the security names whose records receive the account.
	Placeholders []string
}

// FillAccounts fills the empty account cell of every placeholder record with
// the group's single account number. Only groups holding at least one such
// record are examined.
//
// A group with several account numbers gets an error-severity warning and a
// group with none a warning-severity one; both are left unchanged.
func FillAccounts(table *types.Table, opts AccountOptions) ([]string, []*validation.ConsistencyWarning, error) {
	groups, err := Partition(table, opts.KeyColumn)
	if err != nil {
		return nil, nil, err
	}
	accountIdx, err := table.MustIndex(opts.AccountColumn)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to fill accounts: %w", err)
	}
	securityIdx, err := table.MustIndex(opts.SecurityColumn)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to fill accounts: %w", err)
	}

	isPlaceholder := func(i int) bool {
		name := table.Records[i].Cells[securityIdx]
		for _, p := range opts.Placeholders {
			if name == p {
				return true
			}
		}
		return false
	}

	var changes []string
	var warnings []*validation.ConsistencyWarning

	for _, group := range groups {
		var targets []int
		for _, i := range group.Indices {
			if isPlaceholder(i) && table.Records[i].Cells[accountIdx] == "" {
				targets = append(targets, i)
			}
		}
		if len(targets) == 0 {
			continue
		}

		accounts := distinct(table, group, accountIdx)
		switch len(accounts) {
		case 0:
			warnings = append(warnings, &validation.ConsistencyWarning{
				Severity: validation.SeverityWarning,
				Kind:     validation.KindAccountFill,
				GroupKey: group.Key,
				Field:    opts.AccountColumn,
				Message:  fmt.Sprintf("no %s found for transfer group %q; %d record(s) left without account", opts.AccountColumn, group.Key, len(targets)),
			})
		case 1:
			for _, i := range targets {
				rec := &table.Records[i]
				rec.Cells[accountIdx] = accounts[0]
				changes = append(changes, fmt.Sprintf("%s (MTR: %s)",
					audit.FormatChange(rec.Row, opts.AccountColumn, "", accounts[0]), group.Key))
			}
		default:
			warnings = append(warnings, &validation.ConsistencyWarning{
				Severity: validation.SeverityError,
				Kind:     validation.KindAccountFill,
				GroupKey: group.Key,
				Field:    opts.AccountColumn,
				Message:  fmt.Sprintf("multiple %s values for transfer group %q: %s; accounts left unchanged", opts.AccountColumn, group.Key, strings.Join(accounts, ", ")),
			})
		}
	}

	return changes, warnings, nil
}
