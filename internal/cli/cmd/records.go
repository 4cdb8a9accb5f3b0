package cmd

import (
	"fmt"
	"strconv"

	"github.com/healthmate/server/internal/cli/output"
	"github.com/spf13/cobra"
)

var flagRecordName string

var recordsCmd = &cobra.Command{
	Use:   "records",
	Short: "Manage your medical records",
}

var recordsLsCmd = &cobra.Command{
	Use:   "ls",
	Short: "List your stored records",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requireAuth(); err != nil {
			return err
		}

		records, err := apiClient.Records()
		if err != nil {
			return fmt.Errorf("listing records: %w", err)
		}

		if flagJSON {
			output.JSON(records)
			return nil
		}
		output.RecordTable(records)
		return nil
	},
}

var recordsUploadCmd = &cobra.Command{
	Use:   "upload <file.pdf>",
	Short: "Upload and register a PDF record",
	Long: `Upload a PDF and register it under a display name.

  healthmate records upload labs.pdf
  healthmate records upload labs.pdf --name "Blood panel March"`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requireAuth(); err != nil {
			return err
		}

		staged, err := apiClient.StageRecord(args[0])
		if err != nil {
			return fmt.Errorf("uploading %s: %w", args[0], err)
		}

		record, err := apiClient.ConfirmRecord(staged.StorageLocation, flagRecordName)
		if err != nil {
			return fmt.Errorf("registering %s: %w", staged.FileName, err)
		}

		if flagJSON {
			output.JSON(record)
			return nil
		}
		fmt.Printf("Stored %s as record %d (%s)\n", record.FileName, record.ID, output.FormatSize(staged.Size))
		return nil
	},
}

var recordsReadCmd = &cobra.Command{
	Use:   "read <id>",
	Short: "Print the text of a stored record",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := requireAuth(); err != nil {
			return err
		}

		id, err := strconv.ParseUint(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid record id %q", args[0])
		}

		text, err := apiClient.RecordText(uint(id))
		if err != nil {
			return fmt.Errorf("reading record: %w", err)
		}

		if flagJSON {
			output.JSON(text)
			return nil
		}
		fmt.Println(text.Text)
		return nil
	},
}

func init() {
	recordsUploadCmd.Flags().StringVar(&flagRecordName, "name", "", "Display name (default: the file name)")
	recordsCmd.AddCommand(recordsLsCmd, recordsUploadCmd, recordsReadCmd)
	rootCmd.AddCommand(recordsCmd)
}
