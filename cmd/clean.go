package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/ginjaninja78/transferfix/pkg/utils"
)

// olderThan is the age after which run folders are removed.
var olderThan time.Duration

// cleanCmd represents the 'clean' command.
var cleanCmd = &cobra.Command{
	Use:   "clean",
	Short: "Remove old run folders from the log folder",
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := loadSettings()
		if err != nil {
			return err
		}

		removed, err := utils.CleanOldRuns(s.config.LogFolder, olderThan, time.Now())
		if err != nil {
			return err
		}

		s.logger.Infof("Removed %d run folder(s) older than %s from %s", removed, olderThan, s.config.LogFolder)
		fmt.Fprintf(cmd.OutOrStdout(), "Removed %d run folder(s)\n", removed)
		return nil
	},
}

// init registers the clean command with the root command.
func init() {
	rootCmd.AddCommand(cleanCmd)

	cleanCmd.Flags().DurationVar(
		&olderThan,
		"older-than",
		30*24*time.Hour,
		"Remove run folders last modified before this age",
	)
}
