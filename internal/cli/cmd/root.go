package cmd

import (
	"bufio"
	"fmt"
	"os"

	"github.com/healthmate/server/internal/cli/api"
	"github.com/healthmate/server/internal/cli/config"
	"github.com/spf13/cobra"
)

var (
	flagJSON      bool
	flagServerURL string

	cfg       *config.Config
	apiClient *api.Client
	stdin     = bufio.NewReader(os.Stdin)
)

var rootCmd = &cobra.Command{
	Use:   "healthmate",
	Short: "HealthMate CLI: talk to CuraBot and manage your medical records",
	Long: `HealthMate CLI lets you consult the CuraBot assistant and keep your
medical records on a HealthMate server from the terminal.

Get started:
  healthmate signup              Create an account
  healthmate login               Log in and start a session
  healthmate chat                Talk to CuraBot
  healthmate records upload x.pdf  Store a PDF record`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load()
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}
		if flagServerURL != "" {
			cfg.ServerURL = flagServerURL
		}
		apiClient = api.NewClient(cfg.ServerURL, cfg.Token)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&flagJSON, "json", false, "Output as JSON")
	rootCmd.PersistentFlags().StringVar(&flagServerURL, "server", "", "Override server URL (default: from config or "+config.DefaultURL+")")
}

// Execute runs the root command.
func Execute() error {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		return err
	}
	return nil
}

func requireAuth() error {
	if cfg == nil || !cfg.HasToken() {
		return fmt.Errorf("not logged in, run \"healthmate login\" first")
	}
	return nil
}
