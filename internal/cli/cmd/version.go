package cmd

import (
	"fmt"

	"github.com/healthmate/server/internal/cli/output"
	"github.com/spf13/cobra"
)

// Version is the CLI version, injected at build time:
//
//	go build -ldflags "-X github.com/healthmate/server/internal/cli/cmd.Version=1.2.3"
var Version = "dev"

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show CLI and server version",
	RunE: func(cmd *cobra.Command, args []string) error {
		info, serverErr := apiClient.Version()

		if flagJSON {
			type jsonOut struct {
				CLIVersion    string `json:"cliVersion"`
				ServerVersion string `json:"serverVersion,omitempty"`
				APIVersion    string `json:"apiVersion,omitempty"`
				Model         string `json:"assistantModel,omitempty"`
				ServerError   string `json:"serverError,omitempty"`
			}
			out := jsonOut{CLIVersion: Version}
			if serverErr == nil {
				out.ServerVersion = info.Version
				out.APIVersion = info.APIVersion
				out.Model = info.AssistantModel
			} else {
				out.ServerError = serverErr.Error()
			}
			output.JSON(out)
			return nil
		}

		fmt.Printf("CLI:    %s\n", Version)
		if serverErr != nil {
			fmt.Printf("Server: unreachable (%v)\n", serverErr)
			return nil
		}
		fmt.Printf("Server: %s (API %s)\n", info.Version, info.APIVersion)
		if info.AssistantEnabled {
			fmt.Printf("Model:  %s\n", info.AssistantModel)
		} else {
			fmt.Println("Model:  disabled")
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
