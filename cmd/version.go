// =============================================================================
// transferfix - Version Command
// =============================================================================
//
// This file defines the 'version' command. Besides the build information it
// prints the built-in conversion profile: the layouts the classifier knows,
// the weights it scores them with, and the output formats that can be written.
// Two binaries that print the same profile classify exports the same way.
//
// COMMAND USAGE:
//   transferfix version
//
// OUTPUT:
//   transferfix
//   Version:      0.1.0
//   Build Date:   2024-01-01
//   Go Version:   go1.22.0
//   File types:   RFH, RHC, PTOI, PTOC, NTO
//   Weights:      exact count 10, near count 2, header 20, pattern 4
//   Formats:      csv, txt, xlsx, xml
//
// =============================================================================

package cmd

import (
	"fmt"
	"io"
	"runtime"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ginjaninja78/transferfix/internal/classifier"
	"github.com/ginjaninja78/transferfix/internal/types"
	"github.com/ginjaninja78/transferfix/internal/writer"
)

// =============================================================================
// VERSION INFORMATION
// =============================================================================
// These variables are set at build time using ldflags.
// Example build command:
//   go build -ldflags "-X 'github.com/ginjaninja78/transferfix/cmd.Version=0.1.0'"

// Version is the application version.
var Version = "0.1.0"

// BuildDate is the date the application was built.
var BuildDate = "unknown"

// versionCmd represents the 'version' command.
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Display the version and conversion profile",
	Long: `Display the application version and build date together with the file
types, classifier weights and output formats built into this binary.`,
	Run: func(cmd *cobra.Command, args []string) {
		printVersion(cmd.OutOrStdout())
	},
}

// init registers the version command with the root command.
func init() {
	rootCmd.AddCommand(versionCmd)
}

// printVersion writes the build information and the conversion profile.
func printVersion(w io.Writer) {
	fileTypes := make([]string, len(types.FileTypes))
	for i, ft := range types.FileTypes {
		fileTypes[i] = string(ft)
	}

	fmt.Fprintln(w, "transferfix")
	fmt.Fprintf(w, "Version:      %s\n", Version)
	fmt.Fprintf(w, "Build Date:   %s\n", BuildDate)
	fmt.Fprintf(w, "Go Version:   %s\n", runtime.Version())
	fmt.Fprintf(w, "File types:   %s\n", strings.Join(fileTypes, ", "))
	fmt.Fprintf(w, "Weights:      exact count %d, near count %d, header %d, pattern %d\n",
		classifier.ExactCountScore, classifier.NearCountScore,
		classifier.HeaderMatchScore, classifier.PatternScore)
	fmt.Fprintf(w, "Formats:      %s\n", strings.Join([]string{
		writer.FormatCSV, writer.FormatTXT, writer.FormatXLSX, writer.FormatXML,
	}, ", "))
}
