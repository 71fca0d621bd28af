// =============================================================================
// transferfix - Check Config Command
// =============================================================================
//
// This file defines the 'check-config' command, which loads and validates the
// main configuration and the reference data (including the reference
// workbook, if any) without processing anything.
//
// COMMAND USAGE:
//   transferfix check-config
//
// =============================================================================

package cmd

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ginjaninja78/transferfix/internal/config"
	"github.com/ginjaninja78/transferfix/internal/converter"
	"github.com/ginjaninja78/transferfix/internal/types"
)

// checkConfigCmd represents the 'check-config' command.
var checkConfigCmd = &cobra.Command{
	Use:   "check-config",
	Short: "Validate the configuration and reference data",
	Long: `The check-config command loads the main configuration and the reference
data, applies the reference workbook if one is configured, and prints a
summary of every file type and the stages that run for it.`,

	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := loadSettings()
		if err != nil {
			return err
		}
		return describeConfig(cmd.OutOrStdout(), s.config, s.reference)
	},
}

// init registers the check-config command with the root command.
func init() {
	rootCmd.AddCommand(checkConfigCmd)
}

// describeConfig prints the loaded settings.
func describeConfig(w io.Writer, cfg *config.MainConfig, ref *config.Reference) error {
	fmt.Fprintln(w, "=== Configuration OK ===")
	fmt.Fprintf(w, "Log folder:             %s\n", cfg.LogFolder)
	fmt.Fprintf(w, "Download folder:        %s\n", cfg.DownloadFolder)
	fmt.Fprintf(w, "Reference file:         %s\n", cfg.ReferenceFile)
	if cfg.ReferenceWorkbook != "" {
		fmt.Fprintf(w, "Reference workbook:     %s\n", cfg.ReferenceWorkbook)
	}
	fmt.Fprintf(w, "Output formats:         %s\n", strings.Join(cfg.OutputFormats, ", "))
	fmt.Fprintf(w, "Distributor ambiguity:  %s\n", cfg.DistributorAmbiguity)
	fmt.Fprintf(w, "Distributor synonyms:   %d\n", len(ref.Distributors))
	fmt.Fprintf(w, "Tax keywords:           %d\n", len(ref.TaxKeywords))

	for _, ft := range types.FileTypes {
		schema, err := ref.Schema(ft)
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "\n%s: %d columns, group key %s, %d numeric\n",
			ft, len(schema.Columns), schema.GroupKey, len(schema.NumericColumns))
		for i, heading := range converter.Headings(ft) {
			fmt.Fprintf(w, "  %2d. %s\n", i+1, heading)
		}
	}

	return nil
}
