package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"ocrprobe/internal/mistral"
)

var schemaCmd = &cobra.Command{
	Use:   "schema",
	Short: "Print the image annotation format sent with every OCR request",
	Long: `Print the bbox annotation format as JSON. With --url, print the complete
OCR request body that would be sent for that document URL instead.`,
	Example: `  # Show the annotation format
  ocrprobe schema

  # Show a full request body
  ocrprobe schema --url https://example.com/signed/file.pdf`,
	Args: cobra.NoArgs,
	RunE: runSchema,
}

func init() {
	rootCmd.AddCommand(schemaCmd)

	schemaCmd.Flags().String("url", "", "Document URL to build a full OCR request for")
}

func runSchema(cmd *cobra.Command, args []string) error {
	documentURL, _ := cmd.Flags().GetString("url")

	var payload any = mistral.ImageAnnotationFormat()
	if documentURL != "" {
		client := mistral.NewClient(appConfig.GetMistralConfig())
		payload = client.NewOCRRequest(documentURL)
	}

	data, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode schema: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(data))
	return nil
}
