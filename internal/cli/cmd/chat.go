package cmd

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/healthmate/server/internal/cli/api"
	"github.com/healthmate/server/internal/cli/output"
	"github.com/healthmate/server/internal/cli/prompt"
	"github.com/spf13/cobra"
)

var chatCmd = &cobra.Command{
	Use:   "chat [message]",
	Short: "Talk to CuraBot",
	Long: `Send a message to CuraBot. With no argument an interactive session
starts; type "exit" or press Ctrl-D to leave.

  healthmate chat "I have had a headache for two days"
  healthmate chat`,
	RunE: runChat,
}

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show the consultation transcript for this session",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requireAuth(); err != nil {
			return err
		}

		resp, err := apiClient.Transcript()
		if err != nil {
			return fmt.Errorf("fetching transcript: %w", err)
		}

		if flagJSON {
			output.JSON(resp)
			return nil
		}
		output.Transcript(resp.Transcript)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(chatCmd)
	rootCmd.AddCommand(historyCmd)
}

func runChat(cmd *cobra.Command, args []string) error {
	if err := requireAuth(); err != nil {
		return err
	}

	if len(args) > 0 {
		return sendChat(strings.Join(args, " "))
	}

	resp, err := apiClient.Transcript()
	if err != nil {
		return fmt.Errorf("fetching transcript: %w", err)
	}
	output.Transcript(resp.Transcript)

	for {
		line, err := prompt.Line(stdin, os.Stdout, "You")
		if errors.Is(err, io.EOF) {
			fmt.Println()
			return nil
		}
		if err != nil {
			return err
		}
		if line == "" {
			continue
		}
		if line == "exit" || line == "quit" {
			return nil
		}
		if err := sendChat(line); err != nil {
			// Keep the session open; the transcript is unchanged on failure.
			fmt.Fprintln(os.Stderr, "Error:", err)
		}
	}
}

func sendChat(message string) error {
	resp, err := apiClient.SendMessage(message)
	if err != nil {
		return fmt.Errorf("sending message: %w", err)
	}

	if flagJSON {
		output.JSON(resp)
		return nil
	}
	output.Turn(api.Turn{Role: "assistant", Content: resp.Reply})
	return nil
}
