// =============================================================================
// transferfix - Main Entry Point
// =============================================================================
//
// This is the main entry point for the transferfix CLI application. It
// delegates command execution to the cmd package.
//
// USAGE:
//   transferfix process       - Repair one export and write the corrected files
//   transferfix classify      - Show how the file type of an export is decided
//   transferfix check-config  - Validate the configuration and reference data
//   transferfix clean         - Remove old run folders
//   transferfix version       - Display the application version
//
// ARCHITECTURE:
//   - cmd/           : CLI command definitions (Cobra)
//   - internal/      : Core pipeline (not for external import)
//   - pkg/           : Shared file utilities
//   - configs/       : Main configuration and reference data
//
// =============================================================================

package main

import (
	"github.com/ginjaninja78/transferfix/cmd"
)

func main() {
	cmd.Execute()
}
