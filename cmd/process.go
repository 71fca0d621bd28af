// =============================================================================
// transferfix - Process Command
// =============================================================================
//
// This file defines the 'process' command, the main command of the tool. It
// reads one export, runs the pipeline and writes the corrected files.
//
// COMMAND USAGE:
//   transferfix process [flags]
//
// FLAGS:
//   --file      : Read the export from a file instead of the terminal
//   --dry-run   : Run the pipeline and print the audit log, write nothing
//   --format    : Output formats, overriding output_formats from the config
//   --type      : Force the file type instead of the classifier's decision
//
// PROCESSING PIPELINE:
//   1. Load configuration and reference data
//   2. Read the export (until a line containing END)
//   3. Create the run folder and its audit log
//   4. Run the pipeline (converter.Run)
//   5. Render every output format in memory
//   6. Write the outputs: the csv into the run folder, the rest into the
//      download folder
//   7. Rename the run folder to the output name
//
// On error only the audit log is left behind, ending with an ERROR entry.
//
// =============================================================================

package cmd

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/ginjaninja78/transferfix/internal/audit"
	"github.com/ginjaninja78/transferfix/internal/config"
	"github.com/ginjaninja78/transferfix/internal/converter"
	"github.com/ginjaninja78/transferfix/internal/csvparser"
	"github.com/ginjaninja78/transferfix/internal/types"
	"github.com/ginjaninja78/transferfix/internal/validation"
	"github.com/ginjaninja78/transferfix/internal/writer"
	"github.com/ginjaninja78/transferfix/pkg/utils"
)

// =============================================================================
// COMMAND FLAGS
// =============================================================================

// dryRun runs the pipeline without writing any file.
var dryRun bool

// inputFile is the path of an export to read instead of the terminal.
var inputFile string

// formats overrides the configured output formats.
var formats []string

// forcedType overrides the classifier's decision.
var forcedType string

// =============================================================================
// PROCESS COMMAND DEFINITION
// =============================================================================

// processCmd represents the 'process' command.
var processCmd = &cobra.Command{
	Use:   "process",
	Short: "Repair one export and write the corrected files",
	Long: `The process command reads one export, pasted into the terminal and
terminated by a line containing END, or read from --file.

On success:
  - The audit log and a ';'-separated copy are kept in the run folder,
    named <TYPE>_<customer number>_<timestamp>
  - The tab-separated hand-off file is written to the download folder

On error:
  - Nothing but the audit log is written
  - The log ends with the error that stopped the run`,

	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := loadSettings()
		if err != nil {
			return err
		}

		raw, err := readExport(cmd, inputFile)
		if err != nil {
			return err
		}

		req := processRequest{
			config:    s.config,
			reference: s.reference,
			logger:    s.logger,
			raw:       raw,
			formats:   s.config.OutputFormats,
			dryRun:    dryRun,
			out:       cmd.OutOrStdout(),
		}
		if len(formats) > 0 {
			req.formats = formats
		}
		if forcedType != "" {
			ft, err := types.ParseFileType(forcedType)
			if err != nil {
				return err
			}
			req.fileType = ft
		}

		_, err = processExport(req)
		return err
	},
}

// =============================================================================
// INITIALIZATION
// =============================================================================

// init registers the process command with the root command and sets up flags.
func init() {
	rootCmd.AddCommand(processCmd)

	processCmd.Flags().BoolVar(
		&dryRun,
		"dry-run",
		false,
		"Run the pipeline and print the audit log without writing files",
	)

	processCmd.Flags().StringVar(
		&inputFile,
		"file",
		"",
		"Read the export from a file instead of the terminal",
	)

	processCmd.Flags().StringSliceVar(
		&formats,
		"format",
		nil,
		"Output formats (csv, txt, xlsx, xml); overrides the config",
	)

	processCmd.Flags().StringVar(
		&forcedType,
		"type",
		"",
		"Force the file type (RFH, RHC, PTOI, PTOC, NTO)",
	)
}

// =============================================================================
// MAIN PROCESSING FUNCTION
// =============================================================================

// processRequest is one invocation of the process command.
type processRequest struct {
	config    *config.MainConfig
	reference *config.Reference
	logger    *logrus.Logger
	raw       string
	formats   []string
	fileType  types.FileType
	dryRun    bool
	out       io.Writer
}

// processOutcome describes what a successful run produced.
type processOutcome struct {
	result *converter.Result
	runDir string
	files  []string
}

// rendition is one rendered output waiting to be written.
type rendition struct {
	// name is the file name suffix, the extension.
	name string
	data []byte

	// archived renditions are kept in the run folder next to the audit log
	// instead of the download folder.
	archived bool
}

// processExport runs the pipeline on req.raw and writes the outputs.
func processExport(req processRequest) (*processOutcome, error) {
	if req.dryRun {
		return dryRunExport(req)
	}

	fm := utils.NewFileManager(req.config.LogFolder, req.config.DownloadFolder)

	// =========================================================================
	// STEP 1: RUN FOLDER AND AUDIT LOG
	// =========================================================================

	run, err := fm.StartRun()
	if err != nil {
		return nil, err
	}
	logFile, err := run.OpenLog()
	if err != nil {
		return nil, err
	}
	closed := false
	defer func() {
		if !closed {
			logFile.Close()
		}
	}()

	logger := req.logger.WithField("run_id", run.ID)
	logger.Infof("Run folder: %s", run.Dir)

	entries := audit.NewLog()
	fileSink := audit.NewWriterSink(logFile)
	sink := audit.Multi(entries, fileSink)

	sink.Record("USER INPUT", inputLines(req.raw))

	fail := func(err error) (*processOutcome, error) {
		sink.Record("ERROR", []string{err.Error()})
		logger.Errorf("Run failed, see %s", run.LogPath())
		return nil, err
	}

	// =========================================================================
	// STEP 2: PIPELINE
	// =========================================================================

	conv := converter.New(req.reference, sink, converterOptions(req, logger)...)
	result, err := conv.Run(req.raw)
	if err != nil {
		return fail(err)
	}

	// =========================================================================
	// STEP 3: RENDER AND WRITE OUTPUTS
	// =========================================================================

	base := utils.OutputBaseName(result.FileType, result.Table, run.Started)

	renditions, err := render(result, req.reference, req.formats)
	if err != nil {
		return fail(err)
	}

	var written []string
	for _, r := range renditions {
		dir := req.config.DownloadFolder
		if r.archived {
			dir = run.Dir
		}
		path, err := utils.WriteOutput(dir, base+r.name, r.data)
		if err != nil {
			for _, p := range written {
				os.Remove(p)
			}
			return fail(err)
		}
		written = append(written, path)
	}

	names := make([]string, len(renditions))
	for i, r := range renditions {
		names[i] = base + r.name
	}
	sink.Record("OUTPUT", names)

	if err := fileSink.Err(); err != nil {
		return nil, err
	}

	// =========================================================================
	// STEP 4: FINALIZE
	// =========================================================================

	closed = true
	if err := logFile.Close(); err != nil {
		return nil, fmt.Errorf("failed to close audit log: %w", err)
	}
	if err := fm.Finalize(run, base); err != nil {
		return nil, err
	}

	// The csv was written inside the run folder before it was renamed.
	for i, r := range renditions {
		if r.archived {
			written[i] = filepath.Join(run.Dir, base+r.name)
		}
	}

	printSummary(req.out, result, run.Dir, written)
	logger.Infof("Processed %s: %d row(s), %d audit entries, %s",
		result.FileType, result.Stats.RowsWritten, len(entries.Entries()), result.Stats.ProcessingTime)

	return &processOutcome{result: result, runDir: run.Dir, files: written}, nil
}

// dryRunExport runs the pipeline and prints the audit log and the csv
// rendition without touching the file system.
func dryRunExport(req processRequest) (*processOutcome, error) {
	entries := audit.NewLog()
	entries.Record("USER INPUT", inputLines(req.raw))

	logger := req.logger.WithField("run_id", "dry-run")
	conv := converter.New(req.reference, entries, converterOptions(req, logger)...)
	result, runErr := conv.Run(req.raw)
	if runErr != nil {
		entries.Record("ERROR", []string{runErr.Error()})
	}

	fmt.Fprint(req.out, entries.Render())
	if runErr != nil {
		return nil, runErr
	}

	data, err := writer.Render(result.Table, writer.FormatCSV, writer.DefaultOptions(result.FileType, ""))
	if err != nil {
		return nil, err
	}
	fmt.Fprintf(req.out, "%s\n", data)

	return &processOutcome{result: result}, nil
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

// converterOptions builds the converter options of a request.
func converterOptions(req processRequest, logger converter.Logger) []converter.Option {
	opts := []converter.Option{
		converter.WithLogger(logger),
		converter.WithDistributorPolicy(req.config.DistributorAmbiguity),
	}
	if req.fileType != "" {
		opts = append(opts, converter.WithFileType(req.fileType))
	}
	return opts
}

// render renders the result in every format. The csv is archived in the run
// folder; every other format goes to the download folder.
func render(result *converter.Result, ref *config.Reference, formats []string) ([]rendition, error) {
	groupKey := ""
	if schema, err := ref.Schema(result.FileType); err == nil {
		groupKey = schema.GroupKey
	}
	options := writer.DefaultOptions(result.FileType, groupKey)

	var out []rendition
	seen := make(map[string]bool)
	for _, format := range formats {
		format = strings.ToLower(strings.TrimSpace(format))
		if seen[format] {
			continue
		}
		seen[format] = true

		data, err := writer.Render(result.Table, format, options)
		if err != nil {
			return nil, fmt.Errorf("failed to render %s: %w", format, err)
		}

		out = append(out, rendition{
			name:     writer.Extension(format),
			data:     data,
			archived: format == writer.FormatCSV,
		})
	}
	return out, nil
}

// readExport reads the export from path, or from stdin when path is empty.
func readExport(cmd *cobra.Command, path string) (string, error) {
	if path != "" {
		f, err := os.Open(path)
		if err != nil {
			return "", fmt.Errorf("failed to open input file: %w", err)
		}
		defer f.Close()
		return csvparser.ReadInput(f)
	}

	fmt.Fprintf(cmd.ErrOrStderr(), "Paste the export, then type %s on its own line:\n", csvparser.EndMarker)
	return csvparser.ReadInput(cmd.InOrStdin())
}

// inputLines splits raw input into audit lines.
func inputLines(raw string) []string {
	raw = strings.TrimRight(raw, "\n")
	if raw == "" {
		return nil
	}
	return strings.Split(raw, "\n")
}

// printSummary prints the outcome of a run.
func printSummary(w io.Writer, result *converter.Result, runDir string, files []string) {
	fmt.Fprintln(w, "=== Processing Complete ===")
	fmt.Fprintf(w, "File type:          %s\n", result.FileType)
	fmt.Fprintf(w, "Rows parsed:        %d\n", result.Stats.RowsParsed)
	fmt.Fprintf(w, "Rows written:       %d\n", result.Stats.RowsWritten)
	fmt.Fprintf(w, "Duplicates removed: %d\n", result.Stats.DuplicatesRemoved)
	fmt.Fprintf(w, "Audit log:          %s\n", runDir)
	for _, f := range files {
		fmt.Fprintf(w, "Output:             %s\n", f)
	}
	if len(result.Warnings) > 0 {
		fmt.Fprintf(w, "\n%s", validation.FormatWarnings(result.Warnings))
	}
}
