package cmd

import (
	"fmt"

	"github.com/healthmate/server/internal/cli/output"
	"github.com/spf13/cobra"
)

var whoamiCmd = &cobra.Command{
	Use:   "whoami",
	Short: "Show the current user and session",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requireAuth(); err != nil {
			return err
		}

		me, err := apiClient.Me()
		if err != nil {
			return fmt.Errorf("fetching user: %w", err)
		}

		if flagJSON {
			output.JSON(me)
			return nil
		}
		output.UserInfo(*me)
		return nil
	},
}

var activityCmd = &cobra.Command{
	Use:   "activity",
	Short: "Show recent account activity",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requireAuth(); err != nil {
			return err
		}

		entries, err := apiClient.Activity()
		if err != nil {
			return fmt.Errorf("fetching activity: %w", err)
		}

		if flagJSON {
			output.JSON(entries)
			return nil
		}
		output.ActivityTable(entries)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(whoamiCmd)
	rootCmd.AddCommand(activityCmd)
}
