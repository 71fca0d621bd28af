// =============================================================================
// transferfix - Reference Data
// =============================================================================
//
// Reference data is everything the pipeline needs to know about the five
// layouts that is not an algorithm: the canonical column lists, which columns
// play which role, the distributor synonym table, the tax keyword list and the
// placeholder labels. It is loaded from YAML and handed to the pipeline; no
// package below cmd/ embeds any of it.
//
// FILE STRUCTURE (configs/reference.yaml):
//
//   schemas:
//     RFH:
//       columns: [AVGIVENDE_TILBYDER, MOTTAKENDE_TILBYDER, ...]
//       near_columns: {min: 1, max: 12}
//       group_key: MASTERTRANSFERREF_(FULLMAKTSNR)
//       distributor_columns: [AVGIVENDE_TILBYDER, MOTTAKENDE_TILBYDER]
//       distributor_code_columns: [0, 1]
//       numeric_columns: []
//   fields: {customer_number: KUNDENR, ...}
//   distributors: {"dnb bank asa": DNB, ...}
//   tax_keywords: [Skatt, ...]
//   placeholders: {tax: Skatteopplysninger, cash: Kontanter, cash_keyword: Kontant}
//
// =============================================================================

package config

import (
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/ginjaninja78/transferfix/internal/types"
)

// SchemaLengths are the column counts of the five layouts.
var SchemaLengths = map[types.FileType]int{
	types.RFH:  9,
	types.RHC:  17,
	types.PTOI: 17,
	types.PTOC: 27,
	types.NTO:  13,
}

// =============================================================================
// REFERENCE STRUCTURES
// =============================================================================

// Reference is the complete set of reference data.
type Reference struct {
	// Schemas is keyed by file type name ("RFH", "RHC", ...).
	Schemas map[string]*Schema `yaml:"schemas"`

	// Fields names the columns that individual stages operate on.
	Fields Fields `yaml:"fields"`

	// Distributors maps raw distributor tokens to canonical identifiers.
	// Keys are matched case-insensitively.
	Distributors map[string]string `yaml:"distributors"`

	// TaxKeywords are security names that mark a tax-data record.
	// Matched case-insensitively against the whole name.
	TaxKeywords []string `yaml:"tax_keywords"`

	// Placeholders are the sentinel security names.
	Placeholders Placeholders `yaml:"placeholders"`

	// ErrorCodes is the allowed domain of the error-code column.
	// Include "" to accept blank codes.
	ErrorCodes []string `yaml:"error_codes"`

	// CorrectedToZeroErrorCode is the error code that means a negative cash
	// value has been corrected to zero.
	CorrectedToZeroErrorCode string `yaml:"corrected_to_zero_error_code"`

	// CustomerNumberWidth is the zero-padded width of customer numbers.
	CustomerNumberWidth int `yaml:"customer_number_width"`

	// Defaults are the values written into blank flag columns.
	Defaults FlagDefaults `yaml:"flag_defaults"`
}

// Schema describes one layout.
type Schema struct {
	// Columns is the canonical ordered column list.
	Columns []string `yaml:"columns"`

	// NearColumns is the range of column counts treated as "close" to this
	// layout by the classifier. The exact length is excluded automatically.
	NearColumns ColumnRange `yaml:"near_columns"`

	// GroupKey is the column that partitions records into transfer groups.
	GroupKey string `yaml:"group_key"`

	// DistributorColumns are the distributor-role columns resolved per group.
	DistributorColumns []string `yaml:"distributor_columns"`

	// DistributorCodeColumns are the zero-based positions rewritten through
	// the distributor synonym table.
	DistributorCodeColumns []int `yaml:"distributor_code_columns"`

	// NumericColumns are converted by the numeric locale normalizer.
	NumericColumns []string `yaml:"numeric_columns"`
}

// ColumnRange is an inclusive range of column counts.
type ColumnRange struct {
	Min int `yaml:"min"`
	Max int `yaml:"max"`
}

// Contains reports whether n lies inside the range. A zero range contains nothing.
func (r ColumnRange) Contains(n int) bool {
	if r.Min == 0 && r.Max == 0 {
		return false
	}
	return n >= r.Min && n <= r.Max
}

// Fields names the columns individual stages work on.
type Fields struct {
	CustomerNumber       string `yaml:"customer_number"`
	ErrorCode            string `yaml:"error_code"`
	SecurityName         string `yaml:"security_name"`
	ISIN                 string `yaml:"isin"`
	Units                string `yaml:"units"`
	CashValue            string `yaml:"cash_value"`
	TaxCostBasis         string `yaml:"tax_cost_basis"`
	MovedTaxCostBasis    string `yaml:"moved_tax_cost_basis"`
	Account              string `yaml:"account"`
	NomineeAccount       string `yaml:"nominee_account"`
	ReceivingDistributor string `yaml:"receiving_distributor"`
	SellAllUnits         string `yaml:"sell_all_units"`
	StopSavingsAgreement string `yaml:"stop_savings_agreement"`
	TransferRef          string `yaml:"transfer_ref"`
}

// Placeholders are the sentinel security names.
type Placeholders struct {
	// Tax is the canonical tax-data label, e.g. "Skatteopplysninger".
	Tax string `yaml:"tax"`

	// Cash is the canonical cash label, e.g. "Kontanter".
	Cash string `yaml:"cash"`

	// CashKeyword is the prefix that identifies cash records, e.g. "Kontant".
	CashKeyword string `yaml:"cash_keyword"`
}

// FlagDefaults are the values written into blank flag columns.
type FlagDefaults struct {
	// SellAllUnitsForCash is written into a blank sell-all flag on cash records.
	SellAllUnitsForCash string `yaml:"sell_all_units_for_cash"`

	// StopSavingsAgreement is written into any blank stop-agreement flag.
	StopSavingsAgreement string `yaml:"stop_savings_agreement"`
}

// =============================================================================
// LOADING
// =============================================================================

// LoadReference loads reference data from a YAML file, applies defaults and
// validates it.
func LoadReference(path string) (*Reference, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read reference file: %w", err)
	}

	ref, err := ParseReference(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return ref, nil
}

// ParseReference decodes, defaults and validates reference data.
func ParseReference(data []byte) (*Reference, error) {
	var ref Reference
	if err := yaml.Unmarshal(data, &ref); err != nil {
		return nil, fmt.Errorf("failed to parse reference data: %w", err)
	}

	applyReferenceDefaults(&ref)

	if err := ref.Validate(); err != nil {
		return nil, fmt.Errorf("invalid reference data: %w", err)
	}
	return &ref, nil
}

// applyReferenceDefaults fills the scalar settings that have a natural default.
func applyReferenceDefaults(ref *Reference) {
	if ref.CustomerNumberWidth == 0 {
		ref.CustomerNumberWidth = 11
	}
	if len(ref.ErrorCodes) == 0 {
		ref.ErrorCodes = []string{"A", "B", "C", "D", "E", "F", "G", "H", ""}
	}
	if ref.Defaults.SellAllUnitsForCash == "" {
		ref.Defaults.SellAllUnitsForCash = "N"
	}
	if ref.Defaults.StopSavingsAgreement == "" {
		ref.Defaults.StopSavingsAgreement = "J"
	}
}

// =============================================================================
// ACCESSORS AND VALIDATION
// =============================================================================

// Schema returns the schema of a file type.
func (r *Reference) Schema(ft types.FileType) (*Schema, error) {
	schema, ok := r.Schemas[string(ft)]
	if !ok || schema == nil {
		return nil, fmt.Errorf("no schema configured for %s", ft)
	}
	return schema, nil
}

// Validate checks that every layout is present with the expected length and
// that every column a schema refers to is part of that schema. Field roles
// must name columns of each layout whose stages read them.
func (r *Reference) Validate() error {
	for _, ft := range types.FileTypes {
		schema, err := r.Schema(ft)
		if err != nil {
			return err
		}
		if want := SchemaLengths[ft]; len(schema.Columns) != want {
			return fmt.Errorf("schema %s has %d columns, expected %d", ft, len(schema.Columns), want)
		}
		if err := schema.validate(); err != nil {
			return fmt.Errorf("schema %s: %w", ft, err)
		}
	}

	if len(r.Schemas) != len(types.FileTypes) {
		return fmt.Errorf("expected %d schemas, found %d", len(types.FileTypes), len(r.Schemas))
	}

	if err := r.validateFields(); err != nil {
		return err
	}

	if r.Placeholders.Tax == "" || r.Placeholders.Cash == "" || r.Placeholders.CashKeyword == "" {
		return fmt.Errorf("placeholders tax, cash and cash_keyword are required")
	}

	for synonym, canonical := range r.Distributors {
		if synonym == "" || canonical == "" {
			return fmt.Errorf("distributor synonyms must not be empty (%q -> %q)", synonym, canonical)
		}
	}

	return nil
}

// fieldsFor returns the field roles the repair stages of ft read, keyed by
// their YAML name.
func (f Fields) fieldsFor(ft types.FileType) map[string]string {
	fields := make(map[string]string)
	if ft.In(types.RFH, types.RHC, types.PTOI, types.PTOC) {
		fields["customer_number"] = f.CustomerNumber
	}
	if ft.In(types.RHC, types.PTOC) {
		fields["error_code"] = f.ErrorCode
		fields["security_name"] = f.SecurityName
	}

	switch ft {
	case types.PTOI:
		fields["units"] = f.Units
		fields["security_name"] = f.SecurityName
		fields["account"] = f.Account
		fields["nominee_account"] = f.NomineeAccount
		fields["receiving_distributor"] = f.ReceivingDistributor
		fields["sell_all_units"] = f.SellAllUnits
		fields["stop_savings_agreement"] = f.StopSavingsAgreement
	case types.RHC:
		fields["cash_value"] = f.CashValue
	case types.PTOC:
		fields["isin"] = f.ISIN
		fields["tax_cost_basis"] = f.TaxCostBasis
		fields["moved_tax_cost_basis"] = f.MovedTaxCostBasis
		fields["account"] = f.Account
		fields["sell_all_units"] = f.SellAllUnits
		fields["stop_savings_agreement"] = f.StopSavingsAgreement
	}
	return fields
}

// validateFields checks that every field role a file type's stages read
// names a column of that type's schema.
func (r *Reference) validateFields() error {
	if r.Fields.TransferRef == "" {
		return fmt.Errorf("fields.transfer_ref is required")
	}

	for _, ft := range types.FileTypes {
		schema, err := r.Schema(ft)
		if err != nil {
			return err
		}

		fields := r.Fields.fieldsFor(ft)
		names := make([]string, 0, len(fields))
		for name := range fields {
			names = append(names, name)
		}
		sort.Strings(names)

		for _, name := range names {
			column := fields[name]
			if column == "" {
				return fmt.Errorf("fields.%s is required for %s", name, ft)
			}
			if !schema.Has(column) {
				return fmt.Errorf("fields.%s %q is not a column of %s", name, column, ft)
			}
		}
	}
	return nil
}

// validate checks the column references of one schema.
func (s *Schema) validate() error {
	seen := make(map[string]bool, len(s.Columns))
	for _, c := range s.Columns {
		if c == "" {
			return fmt.Errorf("empty column name")
		}
		if seen[c] {
			return fmt.Errorf("duplicate column %q", c)
		}
		seen[c] = true
	}

	if !seen[s.GroupKey] {
		return fmt.Errorf("group_key %q is not a column", s.GroupKey)
	}
	if len(s.DistributorColumns) == 0 {
		return fmt.Errorf("at least one distributor column is required")
	}
	for _, c := range s.DistributorColumns {
		if !seen[c] {
			return fmt.Errorf("distributor column %q is not a column", c)
		}
	}
	for _, pos := range s.DistributorCodeColumns {
		if pos < 0 || pos >= len(s.Columns) {
			return fmt.Errorf("distributor code position %d out of range", pos)
		}
	}
	for _, c := range s.NumericColumns {
		if !seen[c] {
			return fmt.Errorf("numeric column %q is not a column", c)
		}
	}
	return nil
}

// Has reports whether the schema contains a column.
func (s *Schema) Has(column string) bool {
	for _, c := range s.Columns {
		if c == column {
			return true
		}
	}
	return false
}
