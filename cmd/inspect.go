package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"ocrprobe/internal/batch"
	"ocrprobe/internal/logger"
	"ocrprobe/internal/ocr"
)

var inspectCmd = &cobra.Command{
	Use:   "inspect [result-file...]",
	Short: "Re-analyse saved OCR results without calling the API",
	Long: `Read test_results_<name>.json files written by "run" and print the same
quick analysis and summary, including annotation conformance counts.

Use --markdown to print the combined markdown of all pages instead, with
pages separated by a horizontal rule.`,
	Example: `  # Analyse two saved results
  ocrprobe inspect test_results_2507.13264v1.json test_results_teste.json

  # Dump the combined markdown of one result
  ocrprobe inspect test_results_teste.json --markdown`,
	Args: cobra.MinimumNArgs(1),
	RunE: runInspect,
}

func init() {
	rootCmd.AddCommand(inspectCmd)

	inspectCmd.Flags().Bool("markdown", false, "Print the combined markdown instead of the analysis")
}

func runInspect(cmd *cobra.Command, args []string) error {
	log := logger.WithComponent("inspect")
	out := cmd.OutOrStdout()
	markdown, _ := cmd.Flags().GetBool("markdown")

	validator, err := ocr.NewImageAnnotationValidator()
	if err != nil {
		return err
	}

	report := &batch.Report{Results: make(map[string]*ocr.Result)}
	for _, path := range args {
		report.Paths = append(report.Paths, path)

		result, err := loadResult(path)
		if err != nil {
			log.Error().Err(err).Str("file", path).Msg("Failed to load OCR result")
			fmt.Fprintf(out, "\n❌ %s: %v\n", path, err)
			continue
		}
		report.Results[path] = result

		if markdown {
			fmt.Fprintln(out, result.CombinedMarkdown())
			continue
		}

		fmt.Fprintf(out, "\n🔍 %s\n%s\n", path, strings.Repeat("=", 50))
		annotations := validator.Check(result)
		batch.WriteAnalysis(out, result, &annotations)
	}

	if !markdown {
		batch.WriteSummary(out, report)
	}
	return nil
}

func loadResult(path string) (*ocr.Result, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read result file: %w", err)
	}
	return ocr.ParseResult(data)
}
