// =============================================================================
// transferfix - Converter Module
// =============================================================================
//
// This module contains the core pipeline. It takes the raw pasted text of one
// export and returns the repaired Table, from separator detection to numeric
// conversion. It performs no file I/O: every decision is reported to an
// audit.Sink and operational messages go to a Logger.
//
// CONVERSION PIPELINE:
//   1. Detect the separator and parse the text into a Table
//   2. Classify the Table as RFH, RHC, PTOI, PTOC or NTO
//   3. Run the stages of that type, in order (see stagesFor)
//
// A stage either completes and records one audit entry, or fails and aborts
// the run. There is no partial output: on error the Result is nil.
//
// =============================================================================

package converter

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/ginjaninja78/transferfix/internal/audit"
	"github.com/ginjaninja78/transferfix/internal/classifier"
	"github.com/ginjaninja78/transferfix/internal/config"
	"github.com/ginjaninja78/transferfix/internal/csvparser"
	"github.com/ginjaninja78/transferfix/internal/types"
	"github.com/ginjaninja78/transferfix/internal/validation"
)

// =============================================================================
// RESULT STRUCTURE
// =============================================================================

// Result represents the outcome of a successful run.
type Result struct {
	// Table is the repaired output table.
	Table *types.Table

	// FileType is the layout the table was processed as.
	FileType types.FileType

	// Classification holds the per-type scores and the evidence behind them.
	Classification *classifier.Result

	// Warnings are the non-fatal findings of the run, in stage order.
	Warnings []*validation.ConsistencyWarning

	// Stats contains processing statistics.
	Stats ProcessingStats
}

// ProcessingStats contains statistics about the processing.
type ProcessingStats struct {
	// RowsParsed is the number of records read from the input.
	RowsParsed int

	// RowsWritten is the number of records in the output table.
	RowsWritten int

	// DuplicatesRemoved is the number of exact duplicate records dropped.
	DuplicatesRemoved int

	// Stages is the number of stages that ran.
	Stages int

	// ProcessingTime is the time taken by the run.
	ProcessingTime time.Duration
}

// =============================================================================
// CONVERTER STRUCTURE
// =============================================================================

// Converter runs the pipeline against one set of reference data.
type Converter struct {
	// ref supplies schemas, lookup tables and placeholder labels.
	ref *config.Reference

	// sink receives one audit entry per stage.
	sink audit.Sink

	// logger is used for operational logging.
	logger Logger

	// warnOnAmbiguity downgrades distributor ambiguity to a warning.
	warnOnAmbiguity bool

	// fileType, when set, overrides the classifier's decision.
	fileType types.FileType

	// distributors maps case-folded synonyms to canonical identifiers.
	distributors map[string]string
}

// Logger is the logging interface used by the converter. *logrus.Logger and
// *logrus.Entry both satisfy it.
type Logger interface {
	Debugf(format string, args ...interface{})
	Infof(format string, args ...interface{})
	Warnf(format string, args ...interface{})
	Errorf(format string, args ...interface{})
}

// Option configures a Converter.
type Option func(*Converter)

// WithLogger sets the operational logger.
func WithLogger(logger Logger) Option {
	return func(c *Converter) {
		c.logger = logger
	}
}

// WithDistributorPolicy sets the distributor ambiguity policy
// (config.PolicyError or config.PolicyWarn).
func WithDistributorPolicy(policy string) Option {
	return func(c *Converter) {
		c.warnOnAmbiguity = policy == config.PolicyWarn
	}
}

// WithFileType forces the layout instead of using the classifier's decision.
// The classifier still runs so its scores are logged.
func WithFileType(ft types.FileType) Option {
	return func(c *Converter) {
		c.fileType = ft
	}
}

// =============================================================================
// CONSTRUCTOR
// =============================================================================

// New creates a new Converter.
//
// PARAMETERS:
//   - ref: Validated reference data.
//   - sink: Receives the audit entries. audit.Discard drops them.
//   - opts: Optional settings.
func New(ref *config.Reference, sink audit.Sink, opts ...Option) *Converter {
	c := &Converter{
		ref:          ref,
		sink:         sink,
		logger:       discardLogger(),
		distributors: distributorIndex(ref.Distributors),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// discardLogger returns a logrus logger that writes nowhere.
func discardLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

// =============================================================================
// MAIN PROCESSING FUNCTION
// =============================================================================

// Run executes the pipeline on raw text.
//
// RETURNS:
//   - The Result of a completed run.
//   - The first fatal error otherwise. Errors wrap the kinds defined in
//     package validation and can be matched with errors.As.
func (c *Converter) Run(raw string) (*Result, error) {
	startTime := time.Now()

	// =========================================================================
	// STEP 1: TABULARIZE
	// =========================================================================

	sep, err := csvparser.DetectSeparator(raw, c.sink)
	if err != nil {
		return nil, err
	}
	c.logger.Debugf("Separator identified: %s", csvparser.SeparatorName(sep))

	table, err := csvparser.Parse(raw, sep)
	if err != nil {
		return nil, err
	}
	c.sink.Record("CONVERT TO TABLE", tableLines(table))
	c.logger.Debugf("Parsed %d rows and %d columns", table.Len(), table.Width())

	// =========================================================================
	// STEP 2: CLASSIFY
	// =========================================================================

	classification, err := classifier.Classify(table, c.ref)
	if err != nil {
		return nil, err
	}

	fileType := classification.Type
	changes := classification.Changes()
	if c.fileType != "" && c.fileType != fileType {
		changes = append(changes, fmt.Sprintf("File type overridden to: %s", c.fileType))
		fileType = c.fileType
	}
	c.sink.Record("IDENTIFY FILE TYPE", changes)
	c.logger.Infof("File identified as: %s (%s)", fileType, classification.Summary())

	// =========================================================================
	// STEP 3: RUN STAGES
	// =========================================================================

	schema, err := c.ref.Schema(fileType)
	if err != nil {
		return nil, err
	}

	r := &run{
		table:           table,
		fileType:        fileType,
		schema:          schema,
		ref:             c.ref,
		distributors:    c.distributors,
		warnOnAmbiguity: c.warnOnAmbiguity,
	}

	stages := stagesFor(fileType)
	for _, s := range stages {
		changes, err := s.apply(r)
		if err != nil {
			c.logger.Errorf("Stage %s failed: %v", s.heading, err)
			return nil, fmt.Errorf("%s: %w", strings.ToLower(s.heading), err)
		}
		c.sink.Record(s.heading, changes)
		c.logger.Debugf("Stage %s: %d change(s)", s.heading, len(changes))
	}

	for _, w := range r.warnings {
		c.logger.Warnf("%s", w.Error())
	}

	return &Result{
		Table:          table,
		FileType:       fileType,
		Classification: classification,
		Warnings:       r.warnings,
		Stats: ProcessingStats{
			RowsParsed:        r.parsedRows(),
			RowsWritten:       table.Len(),
			DuplicatesRemoved: r.duplicates,
			Stages:            len(stages),
			ProcessingTime:    time.Since(startTime),
		},
	}, nil
}

// =============================================================================
// STAGES
// =============================================================================

// run is the state shared by the stages of one pipeline run.
type run struct {
	table           *types.Table
	fileType        types.FileType
	schema          *config.Schema
	ref             *config.Reference
	distributors    map[string]string
	warnOnAmbiguity bool

	warnings   []*validation.ConsistencyWarning
	duplicates int
}

func (r *run) parsedRows() int {
	return r.table.Len() + r.duplicates
}

// warn adds warnings to the run and returns their audit lines.
func (r *run) warn(warnings []*validation.ConsistencyWarning) []string {
	lines := make([]string, 0, len(warnings))
	for _, w := range warnings {
		r.warnings = append(r.warnings, w)
		lines = append(lines, w.Error())
	}
	return lines
}

// stage is one named step of the pipeline.
type stage struct {
	heading string
	apply   func(r *run) ([]string, error)
}

// stagesFor returns the stages of a file type in execution order. Later
// stages rely on earlier ones, so the order is fixed.
func stagesFor(ft types.FileType) []stage {
	stages := []stage{
		{"UPDATE HEADER", updateHeader},
		{"CONVERT DISTRIBUTOR", convertDistributors},
		{"ADD DISTRIBUTOR", addDistributors},
		{"REMOVE DUPLICATE", removeDuplicates},
	}

	if ft.In(types.RFH, types.RHC, types.PTOI, types.PTOC) {
		stages = append(stages, stage{"PAD CUSTOMER NUMBER", padCustomerNumber})
	}
	if ft.In(types.RHC, types.PTOC) {
		stages = append(stages, stage{"CHECK ERROR CODE", checkErrorCodes})
	}

	switch ft {
	case types.PTOI:
		stages = append(stages,
			stage{"REMOVE UNITS PTOI", removeUnits},
			stage{"MOVE MISPLACED ACCOUNT NUMBER", moveMisplacedAccount},
			stage{"FIX SELL CASH", fixSellCash},
		)
	case types.RHC:
		stages = append(stages, stage{"REMOVE NEGATIVE CASH", removeNegativeCash})
	case types.PTOC:
		stages = append(stages,
			stage{"SET TAX VALUE PER ISIN", setTaxValuePerISIN},
			stage{"UPDATE TAX IDENTIFIER", updateTaxIdentifier},
			stage{"UPDATE CASH IDENTIFIER", updateCashIdentifier},
			stage{"SET TAX AND CASH ACCOUNT", setTaxAndCashAccount},
			stage{"MOVE TAX DATA", moveTaxData},
			stage{"FIX SELL CASH", fixSellCash},
		)
	}

	if ft.In(types.RHC, types.PTOC, types.NTO) {
		stages = append(stages, stage{"CONVERT TO NUMERIC", convertToNumeric})
	}

	return stages
}

// Headings returns the audit headings of a file type's stages, in order.
func Headings(ft types.FileType) []string {
	stages := stagesFor(ft)
	headings := make([]string, len(stages))
	for i, s := range stages {
		headings[i] = s.heading
	}
	return headings
}

// =============================================================================
// HEADER MAPPING
// =============================================================================

// MapHeader replaces the column names of table with the schema of ft.
//
// RETURNS:
//   - One "old -> new" line per renamed column.
//   - A *validation.SchemaMismatchError when the column counts differ; the
//     table is left unchanged.
func MapHeader(table *types.Table, ft types.FileType, schema *config.Schema) ([]string, error) {
	if table.Width() != len(schema.Columns) {
		return nil, &validation.SchemaMismatchError{
			FileType: ft,
			Want:     len(schema.Columns),
			Got:      table.Width(),
		}
	}

	var changes []string
	for i, name := range schema.Columns {
		if table.Columns[i] != name {
			changes = append(changes, fmt.Sprintf("Updated header: %s -> %s", table.Columns[i], name))
		}
	}

	table.Columns = append([]string(nil), schema.Columns...)
	return changes, nil
}

func updateHeader(r *run) ([]string, error) {
	return MapHeader(r.table, r.fileType, r.schema)
}

// =============================================================================
// DUPLICATE REMOVAL
// =============================================================================

// duplicateKey identifies a record by its cells. Every cell is quoted so that
// no choice of cell content makes two different records share a key.
func duplicateKey(cells []string) string {
	var b strings.Builder
	for _, cell := range cells {
		b.WriteString(strconv.Quote(cell))
	}
	return b.String()
}

// RemoveDuplicates drops every record whose cells all equal an earlier
// record's, keeping the first occurrence.
//
// RETURNS:
//   - One line per removed record holding its full ';'-joined content.
//   - One duplicate warning per removed record.
func RemoveDuplicates(table *types.Table) ([]string, []*validation.ConsistencyWarning) {
	seen := make(map[string]int, table.Len())
	keep := make([]int, 0, table.Len())

	var changes []string
	var warnings []*validation.ConsistencyWarning

	for i, rec := range table.Records {
		key := duplicateKey(rec.Cells)
		if first, exists := seen[key]; exists {
			content := strings.Join(rec.Cells, ";")
			changes = append(changes, fmt.Sprintf("%d duplicate of row %d removed: %s", rec.Row, first, content))
			warnings = append(warnings, &validation.ConsistencyWarning{
				Severity: validation.SeverityWarning,
				Kind:     validation.KindDuplicate,
				Message:  fmt.Sprintf("row %d is a duplicate of row %d and was removed: %s", rec.Row, first, content),
			})
			continue
		}
		seen[key] = rec.Row
		keep = append(keep, i)
	}

	table.Keep(keep)
	return changes, warnings
}

func removeDuplicates(r *run) ([]string, error) {
	changes, warnings := RemoveDuplicates(r.table)
	r.duplicates += len(warnings)
	r.warnings = append(r.warnings, warnings...)
	return changes, nil
}

// =============================================================================
// HELPERS
// =============================================================================

// tableLines renders the parsed table for the audit log, header first.
func tableLines(table *types.Table) []string {
	lines := make([]string, 0, table.Len()+1)
	lines = append(lines, strings.Join(table.Columns, ";"))
	for _, rec := range table.Records {
		lines = append(lines, strings.Join(rec.Cells, ";"))
	}
	return lines
}
