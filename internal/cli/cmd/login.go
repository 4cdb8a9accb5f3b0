package cmd

import (
	"errors"
	"fmt"
	"net/http"
	"os"

	"github.com/healthmate/server/internal/cli/api"
	"github.com/healthmate/server/internal/cli/config"
	"github.com/healthmate/server/internal/cli/output"
	"github.com/healthmate/server/internal/cli/prompt"
	"github.com/spf13/cobra"
)

var flagLoginEmail string

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Log in and start a consultation session",
	RunE:  runLogin,
}

func init() {
	loginCmd.Flags().StringVar(&flagLoginEmail, "email", "", "Email address")
	rootCmd.AddCommand(loginCmd)
}

func runLogin(cmd *cobra.Command, args []string) error {
	email, err := prompt.Fill(stdin, os.Stdout, "Email", flagLoginEmail)
	if err != nil {
		return fmt.Errorf("reading email: %w", err)
	}
	password, err := prompt.Password(os.Stdout, "Password")
	if err != nil {
		return fmt.Errorf("reading password: %w", err)
	}

	resp, err := api.NewClient(cfg.ServerURL, "").Login(email, password)
	if err != nil {
		var apiErr *api.APIError
		if errors.As(err, &apiErr) && apiErr.Status == http.StatusUnauthorized {
			return errors.New(apiErr.Message)
		}
		return fmt.Errorf("logging in: %w", err)
	}

	cfg.Token = resp.Token
	cfg.Email = resp.User.Email
	if err := config.Save(cfg); err != nil {
		return fmt.Errorf("saving config: %w", err)
	}

	if flagJSON {
		output.JSON(resp)
		return nil
	}
	fmt.Printf("Logged in as %s %s (%s)\n", resp.User.FirstName, resp.User.LastName, resp.User.Email)
	return nil
}
