// =============================================================================
// transferfix - Classify Command
// =============================================================================
//
// This file defines the 'classify' command. It parses an export and prints
// how the file type was decided, without running any repair stage or writing
// any file.
//
// COMMAND USAGE:
//   transferfix classify [--file export.csv]
//
// OUTPUT:
//   Separator:  semicolon
//   Columns:    17
//   Rows:       42
//   File type:  RHC
//
//   RFH    0
//   RHC   18  <-
//   ...
//
//   Evidence:
//     ...
//
// =============================================================================

package cmd

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/ginjaninja78/transferfix/internal/audit"
	"github.com/ginjaninja78/transferfix/internal/classifier"
	"github.com/ginjaninja78/transferfix/internal/config"
	"github.com/ginjaninja78/transferfix/internal/csvparser"
)

// classifyFile is the path of an export to read instead of the terminal.
var classifyFile string

// classifyCmd represents the 'classify' command.
var classifyCmd = &cobra.Command{
	Use:   "classify",
	Short: "Show the file type scores of an export",
	Long: `The classify command parses an export and prints the score of every file
type together with the evidence behind it. Nothing is written to disk.`,

	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := loadSettings()
		if err != nil {
			return err
		}

		raw, err := readExport(cmd, classifyFile)
		if err != nil {
			return err
		}

		return classifyExport(cmd.OutOrStdout(), raw, s.reference)
	},
}

// init registers the classify command with the root command.
func init() {
	rootCmd.AddCommand(classifyCmd)

	classifyCmd.Flags().StringVar(
		&classifyFile,
		"file",
		"",
		"Read the export from a file instead of the terminal",
	)
}

// classifyExport parses raw, classifies it and prints the scoreboard.
func classifyExport(w io.Writer, raw string, ref *config.Reference) error {
	sep, err := csvparser.DetectSeparator(raw, audit.Discard)
	if err != nil {
		return err
	}

	table, err := csvparser.Parse(raw, sep)
	if err != nil {
		return err
	}

	result, err := classifier.Classify(table, ref)
	if err != nil {
		return err
	}

	fmt.Fprintf(w, "Separator:  %s\n", csvparser.SeparatorName(sep))
	fmt.Fprintf(w, "Columns:    %d\n", table.Width())
	fmt.Fprintf(w, "Rows:       %d\n", table.Len())
	fmt.Fprintf(w, "File type:  %s\n\n", result.Type)

	for _, s := range result.Scores {
		marker := ""
		if s.Type == result.Type {
			marker = "  <-"
		}
		fmt.Fprintf(w, "%-5s %3d%s\n", s.Type, s.Score, marker)
	}

	if len(result.Evidence) > 0 {
		fmt.Fprintln(w, "\nEvidence:")
		for _, e := range result.Evidence {
			fmt.Fprintf(w, "  %s\n", e)
		}
	}

	return nil
}
