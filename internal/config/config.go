// =============================================================================
// transferfix - Configuration Module
// =============================================================================
//
// This module loads and validates the two configuration files of the tool.
//
// CONFIGURATION FILES:
//   1. Main Config (configs/config.yaml): where runs are logged and written,
//      log level, output formats, consistency policy.
//   2. Reference Data (configs/reference.yaml): canonical schemas and the
//      static lookup tables the pipeline needs (see reference.go).
//
// ENVIRONMENT:
//   An optional .env file is loaded with godotenv before the main config is
//   read. The following variables override the file values:
//     TRANSFERFIX_LOG_FOLDER       -> log_folder
//     TRANSFERFIX_DOWNLOAD_FOLDER  -> download_folder
//     TRANSFERFIX_REFERENCE        -> reference_file
//
// =============================================================================

package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Environment variable names.
const (
	EnvLogFolder      = "TRANSFERFIX_LOG_FOLDER"
	EnvDownloadFolder = "TRANSFERFIX_DOWNLOAD_FOLDER"
	EnvReference      = "TRANSFERFIX_REFERENCE"
)

// Distributor ambiguity policies.
const (
	PolicyError = "error"
	PolicyWarn  = "warn"
)

// Output formats understood by the writer.
var knownFormats = map[string]bool{
	"csv":  true,
	"txt":  true,
	"xlsx": true,
	"xml":  true,
}

// =============================================================================
// MAIN CONFIGURATION STRUCTURE
// =============================================================================

// MainConfig holds the global application configuration.
type MainConfig struct {
	// =========================================================================
	// DIRECTORY SETTINGS
	// =========================================================================

	// LogFolder is where one audit folder per run is created.
	// The folder holds log.txt and the ';'-separated copy of the output.
	// Default: "./logs"
	LogFolder string `yaml:"log_folder"`

	// DownloadFolder receives the tab-separated hand-off file.
	// Default: "./downloads"
	DownloadFolder string `yaml:"download_folder"`

	// =========================================================================
	// REFERENCE DATA
	// =========================================================================

	// ReferenceFile is the YAML file with schemas and lookup tables.
	// Default: "./configs/reference.yaml"
	ReferenceFile string `yaml:"reference_file"`

	// ReferenceWorkbook is an optional XLSX file whose sheets override the
	// schemas, distributor synonyms and tax keywords of ReferenceFile.
	ReferenceWorkbook string `yaml:"reference_workbook,omitempty"`

	// =========================================================================
	// LOGGING SETTINGS
	// =========================================================================

	// LogLevel controls the verbosity of operational logging.
	// Valid values: "debug", "info", "warn", "error"
	// Default: "info"
	LogLevel string `yaml:"log_level"`

	// =========================================================================
	// PROCESSING SETTINGS
	// =========================================================================

	// OutputFormats lists the renditions written on success.
	// Valid values: "csv", "txt", "xlsx", "xml"
	// Default: ["csv", "txt"]
	OutputFormats []string `yaml:"output_formats"`

	// DistributorAmbiguity decides what happens when a transfer group has no
	// single distributor value: "error" aborts the run, "warn" logs the group
	// and leaves it unchanged.
	// Default: "error"
	DistributorAmbiguity string `yaml:"distributor_ambiguity"`
}

// =============================================================================
// CONFIGURATION LOADING FUNCTIONS
// =============================================================================

// LoadMainConfig loads the main configuration from a YAML file, applies
// environment overrides and defaults, and validates the result.
//
// A missing file is not an error: the defaults are used.
func LoadMainConfig(configPath string) (*MainConfig, error) {
	var config MainConfig

	data, err := os.ReadFile(configPath)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		// Defaults only.
	case err != nil:
		return nil, fmt.Errorf("failed to read config file: %w", err)
	default:
		if err := yaml.Unmarshal(data, &config); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	applyEnvOverrides(&config)
	applyMainConfigDefaults(&config)

	if err := validateMainConfig(&config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// LoadEnvFile loads environment variables from a .env file.
// A missing file is silently ignored; variables already set are kept.
func LoadEnvFile(path string) error {
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("failed to load env file %s: %w", path, err)
	}
	return nil
}

// applyEnvOverrides copies environment variables over the file values.
func applyEnvOverrides(config *MainConfig) {
	if v := os.Getenv(EnvLogFolder); v != "" {
		config.LogFolder = v
	}
	if v := os.Getenv(EnvDownloadFolder); v != "" {
		config.DownloadFolder = v
	}
	if v := os.Getenv(EnvReference); v != "" {
		config.ReferenceFile = v
	}
}

// applyMainConfigDefaults sets default values for any unset configuration options.
func applyMainConfigDefaults(config *MainConfig) {
	if config.LogFolder == "" {
		config.LogFolder = "./logs"
	}
	if config.DownloadFolder == "" {
		config.DownloadFolder = "./downloads"
	}
	if config.ReferenceFile == "" {
		config.ReferenceFile = "./configs/reference.yaml"
	}
	if config.LogLevel == "" {
		config.LogLevel = "info"
	}
	if len(config.OutputFormats) == 0 {
		config.OutputFormats = []string{"csv", "txt"}
	}
	if config.DistributorAmbiguity == "" {
		config.DistributorAmbiguity = PolicyError
	}
}

// validateMainConfig validates the main configuration.
// Directories are not created here; that happens when a run starts.
func validateMainConfig(config *MainConfig) error {
	switch strings.ToLower(config.LogLevel) {
	case "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("unknown log_level %q", config.LogLevel)
	}

	for i, format := range config.OutputFormats {
		format = strings.ToLower(strings.TrimSpace(format))
		if !knownFormats[format] {
			return fmt.Errorf("unknown output format %q", config.OutputFormats[i])
		}
		config.OutputFormats[i] = format
	}

	switch config.DistributorAmbiguity {
	case PolicyError, PolicyWarn:
	default:
		return fmt.Errorf("distributor_ambiguity must be %q or %q, got %q",
			PolicyError, PolicyWarn, config.DistributorAmbiguity)
	}

	return nil
}
