package cmd

import (
	"fmt"
	"os"

	"github.com/healthmate/server/internal/cli/config"
	"github.com/spf13/cobra"
)

var logoutCmd = &cobra.Command{
	Use:   "logout",
	Short: "End the session and remove stored credentials",
	RunE: func(cmd *cobra.Command, args []string) error {
		if cfg.HasToken() {
			// The local token is dropped even when the server session is already gone.
			if err := apiClient.Logout(); err != nil {
				fmt.Fprintln(os.Stderr, "Warning: server logout failed:", err)
			}
		}
		if err := config.ClearToken(cfg); err != nil {
			return fmt.Errorf("clearing config: %w", err)
		}
		fmt.Println("Logged out.")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(logoutCmd)
}
