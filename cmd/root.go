// =============================================================================
// transferfix - Root Command
// =============================================================================
//
// This file defines the root command for the Cobra CLI. The root command is
// the base command that all other commands are attached to.
//
// COBRA CLI STRUCTURE:
//   rootCmd (transferfix)
//   ├── processCmd     (transferfix process)
//   ├── classifyCmd    (transferfix classify)
//   ├── checkConfigCmd (transferfix check-config)
//   ├── cleanCmd       (transferfix clean)
//   └── versionCmd     (transferfix version)
//
// CONFIGURATION:
//   The root command is responsible for:
//   1. Setting up global flags (--config, --env-file, --verbose,
//      --reference-workbook)
//   2. Loading the .env file, the main config and the reference data
//   3. Setting up operational logging (logrus)
//
// =============================================================================

package cmd

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/ginjaninja78/transferfix/internal/config"
	"github.com/ginjaninja78/transferfix/internal/xlsxparser"
)

// =============================================================================
// GLOBAL VARIABLES
// =============================================================================

// cfgFile holds the path to the main configuration file.
var cfgFile string

// envFile is the optional .env file loaded before the configuration.
var envFile string

// referenceWorkbook overrides reference_workbook from the main config.
var referenceWorkbook string

// verbose enables debug logging when set to true.
var verbose bool

// =============================================================================
// ROOT COMMAND DEFINITION
// =============================================================================

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "transferfix",
	Short: "transferfix - Repair fund-transfer exports before upload",
	Long: `transferfix repairs the delimited exports of fund-transfer orders that are
pasted from back-office systems before they are uploaded to the transfer
platform.

It detects the separator, identifies which of the five record layouts
(RFH, RHC, PTOI, PTOC, NTO) the data is, and applies the fixes of that layout:
canonical headers, distributor codes, padded customer numbers, tax and cash
records, numeric columns and duplicates. Every change is written to an audit
log.

Example Usage:
  transferfix process                      # Paste the export, finish with END
  transferfix process --file export.csv    # Read the export from a file
  transferfix classify --file export.csv   # Show how the layout is decided
  transferfix check-config                 # Validate the reference data`,

	SilenceUsage: true,

	Run: func(cmd *cobra.Command, args []string) {
		cmd.Help()
	},
}

// =============================================================================
// EXECUTE FUNCTION
// =============================================================================

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// =============================================================================
// INITIALIZATION
// =============================================================================

// init sets up the global flags.
func init() {
	rootCmd.PersistentFlags().StringVar(
		&cfgFile,
		"config",
		"configs/config.yaml",
		"Path to the main configuration file",
	)

	rootCmd.PersistentFlags().StringVar(
		&envFile,
		"env-file",
		".env",
		"Path to an optional .env file",
	)

	rootCmd.PersistentFlags().StringVar(
		&referenceWorkbook,
		"reference-workbook",
		"",
		"XLSX workbook overlaid on the reference data",
	)

	rootCmd.PersistentFlags().BoolVarP(
		&verbose,
		"verbose",
		"v",
		false,
		"Enable verbose output for debugging",
	)
}

// =============================================================================
// SETTINGS
// =============================================================================

// settings is everything a command needs from the configuration files.
type settings struct {
	config    *config.MainConfig
	reference *config.Reference
	logger    *logrus.Logger
}

// loadSettings loads the .env file, the main config and the reference data,
// applies the reference workbook if one is configured and builds the logger.
func loadSettings() (*settings, error) {
	if err := config.LoadEnvFile(envFile); err != nil {
		return nil, err
	}

	mainConfig, err := config.LoadMainConfig(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load main config: %w", err)
	}

	logger := newLogger(mainConfig.LogLevel, verbose)

	ref, err := config.LoadReference(mainConfig.ReferenceFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load reference data: %w", err)
	}
	logger.Debugf("Loaded reference data from %s", mainConfig.ReferenceFile)

	workbook := referenceWorkbook
	if workbook == "" {
		workbook = mainConfig.ReferenceWorkbook
	}
	if workbook != "" {
		overlay, err := xlsxparser.MergeReference(workbook, ref)
		if err != nil {
			return nil, fmt.Errorf("failed to apply reference workbook: %w", err)
		}
		logger.Infof("Applied reference workbook %s: %s", workbook, overlay.Summary())
	}

	return &settings{
		config:    mainConfig,
		reference: ref,
		logger:    logger,
	}, nil
}

// newLogger builds the operational logger. Messages go to stderr so they
// never mix with command output.
func newLogger(level string, verbose bool) *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(os.Stderr)
	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05",
	})

	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		lvl = logrus.InfoLevel
	}
	if verbose {
		lvl = logrus.DebugLevel
	}
	logger.SetLevel(lvl)

	return logger
}
