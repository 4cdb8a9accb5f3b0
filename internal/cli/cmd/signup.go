package cmd

import (
	"fmt"
	"os"

	"github.com/healthmate/server/internal/cli/api"
	"github.com/healthmate/server/internal/cli/output"
	"github.com/healthmate/server/internal/cli/prompt"
	"github.com/spf13/cobra"
)

var signupReq api.RegisterRequest

var signupCmd = &cobra.Command{
	Use:   "signup",
	Short: "Create a HealthMate account",
	Long: `Create an account. Missing fields are prompted for.

  healthmate signup --first-name Ann --last-name Lee --dob 1990-01-01 --email ann@x.com`,
	RunE: runSignup,
}

func init() {
	signupCmd.Flags().StringVar(&signupReq.FirstName, "first-name", "", "First name")
	signupCmd.Flags().StringVar(&signupReq.LastName, "last-name", "", "Last name")
	signupCmd.Flags().StringVar(&signupReq.DateOfBirth, "dob", "", "Date of birth (YYYY-MM-DD)")
	signupCmd.Flags().StringVar(&signupReq.Email, "email", "", "Email address")
	rootCmd.AddCommand(signupCmd)
}

func runSignup(cmd *cobra.Command, args []string) error {
	req := signupReq
	fields := []struct {
		label string
		value *string
	}{
		{"First name", &req.FirstName},
		{"Last name", &req.LastName},
		{"Date of birth (YYYY-MM-DD)", &req.DateOfBirth},
		{"Email", &req.Email},
	}
	for _, f := range fields {
		v, err := prompt.Fill(stdin, os.Stdout, f.label, *f.value)
		if err != nil {
			return fmt.Errorf("reading %s: %w", f.label, err)
		}
		*f.value = v
	}

	password, err := prompt.Password(os.Stdout, "Password")
	if err != nil {
		return fmt.Errorf("reading password: %w", err)
	}
	req.Password = password

	resp, err := apiClient.Register(req)
	if err != nil {
		return fmt.Errorf("signing up: %w", err)
	}

	if flagJSON {
		output.JSON(resp)
		return nil
	}
	fmt.Println(resp.Message)
	return nil
}
