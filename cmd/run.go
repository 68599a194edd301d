package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"ocrprobe/internal/batch"
	"ocrprobe/internal/config"
	"ocrprobe/internal/logger"
	"ocrprobe/internal/mistral"
	"ocrprobe/internal/ocr"
	"ocrprobe/internal/sheets"
)

var runCmd = &cobra.Command{
	Use:   "run [files...]",
	Short: "Run OCR over a batch of documents",
	Long: `Process each document in order through upload, signed URL and OCR.

Files given as arguments replace the OCR_DOCUMENTS list from the configuration.
A document that fails at any stage is reported as failed and the batch moves
on. The raw OCR response of every successful document is written to
<output>/test_results_<name>.json, where <output> is a local directory or a
gs://bucket/prefix location.

Required environment variables:
  MISTRAL_API_KEY - Mistral API key

Optional environment variables:
  OCR_DOCUMENTS        - Comma separated list of documents
  OCR_OUTPUT_DIR       - Output directory or gs://bucket/prefix (default: .)
  OCR_RETRY_ATTEMPTS   - Attempts per remote call on 429/5xx (default: 1)
  OCR_HTTP_TIMEOUT     - Per-request timeout, 0 for none (default: 0s)
  OCR_SHEET_URL        - Google Sheet to append the batch summary to
  OCR_SHEET_NAME       - Sheet tab for the summary (default: OCR)
  GOOGLE_APPLICATION_CREDENTIALS or GOOGLE_CREDENTIALS - for gs:// output and the sheet`,
	Example: `  # Process two documents into the working directory
  ocrprobe run 2507.13264v1.pdf teste.pdf

  # Write results to a bucket and retry rate limited calls
  ocrprobe run scan.pdf -o gs://my-bucket/ocr --retries 3

  # Fail with a non-zero exit status when any document failed
  ocrprobe run *.pdf --strict`,
	RunE: runBatch,
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringP("output", "o", "", "Output directory or gs://bucket/prefix (overrides OCR_OUTPUT_DIR)")
	runCmd.Flags().Uint("retries", 0, "Attempts per remote call on rate limits and server errors (overrides OCR_RETRY_ATTEMPTS)")
	runCmd.Flags().Bool("no-image-base64", false, "Do not request base64 image data")
	runCmd.Flags().Bool("skip-annotation-check", false, "Do not validate image annotations against the schema")
	runCmd.Flags().Bool("strict", false, "Exit with an error when any document failed")
	runCmd.Flags().String("sheet", "", "Google Sheet URL to append the batch summary to (overrides OCR_SHEET_URL)")
}

func runBatch(cmd *cobra.Command, args []string) error {
	cfg := *appConfig
	applyRunFlags(cmd, &cfg)

	if err := cfg.RequireAPIKey(); err != nil {
		return err
	}

	paths := args
	if len(paths) == 0 {
		paths = cfg.Documents
	}
	if len(paths) == 0 {
		return fmt.Errorf("no documents to process: pass files as arguments or set OCR_DOCUMENTS")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	runID := uuid.NewString()
	log := logger.WithRunID("batch", runID)
	out := cmd.OutOrStdout()

	log.Info().
		Int("documents", len(paths)).
		Str("output", cfg.OutputDir).
		Str("model", cfg.MistralOCRModel).
		Uint("retries", cfg.RetryAttempts).
		Msg("Starting OCR batch")

	skipCheck, _ := cmd.Flags().GetBool("skip-annotation-check")
	orchestrator, cleanup, err := newOrchestrator(ctx, &cfg, out, log, runID, !skipCheck)
	if err != nil {
		return err
	}
	defer cleanup()

	fmt.Fprintf(out, "🚀 Mistral OCR: %d documento(s), modelo %s\n", len(paths), cfg.MistralOCRModel)

	report := orchestrator.RunBatch(ctx, paths)

	if cfg.SheetURL != "" {
		exportToSheet(ctx, &cfg, report, out, log)
	}

	strict, _ := cmd.Flags().GetBool("strict")
	if strict && report.Failed() > 0 {
		return fmt.Errorf("%d of %d documents failed", report.Failed(), len(report.Paths))
	}
	return nil
}

// applyRunFlags lets explicitly set flags override the loaded configuration.
func applyRunFlags(cmd *cobra.Command, cfg *config.Config) {
	flags := cmd.Flags()
	if flags.Changed("output") {
		cfg.OutputDir, _ = flags.GetString("output")
	}
	if flags.Changed("sheet") {
		cfg.SheetURL, _ = flags.GetString("sheet")
	}
	if flags.Changed("retries") {
		cfg.RetryAttempts, _ = flags.GetUint("retries")
	}
	if noImages, _ := flags.GetBool("no-image-base64"); noImages {
		cfg.IncludeImageBase64 = false
	}
}

// exportToSheet appends the batch summary to the configured Google Sheet.
// A failed export is reported but does not change the batch outcome.
func exportToSheet(ctx context.Context, cfg *config.Config, report *batch.Report, out io.Writer, log zerolog.Logger) {
	sheetsService, err := sheets.NewSheetsService(ctx, cfg.SheetURL, cfg.GetSheetsCredentials())
	if err == nil {
		err = sheetsService.WriteReport(ctx, report, cfg.SheetName)
	}
	if err != nil {
		log.Error().Err(err).Str("sheet_url", cfg.SheetURL).Msg("Failed to export batch summary")
		fmt.Fprintf(out, "⚠️ Falha ao exportar resumo para a planilha: %v\n", err)
		return
	}
	fmt.Fprintf(out, "📊 Resumo exportado para a planilha (%s)\n", cfg.SheetName)
}

// newOrchestrator wires the Mistral client, pipeline, sink and annotation
// validator. cleanup releases the sink.
func newOrchestrator(ctx context.Context, cfg *config.Config, out io.Writer, log zerolog.Logger, runID string, checkAnnotations bool) (*batch.Orchestrator, func(), error) {
	client := mistral.NewClient(cfg.GetMistralConfig())
	runner := ocr.NewRunner(client, cfg.GetRunnerConfig(),
		ocr.WithStageHook(batch.NewStagePrinter(out)),
		ocr.WithLogger(log),
	)

	sink, err := batch.NewSink(ctx, cfg.GetSinkConfig())
	if err != nil {
		log.Error().Err(err).Str("output", cfg.OutputDir).Msg("Failed to create result sink")
		return nil, nil, err
	}
	cleanup := func() {
		if closer, ok := sink.(io.Closer); ok {
			if err := closer.Close(); err != nil {
				log.Warn().Err(err).Msg("Failed to close result sink")
			}
		}
	}

	// RunBatch tags its own lines with runID.
	opts := []batch.Option{
		batch.WithOutput(out),
		batch.WithLogger(logger.WithComponent("batch")),
		batch.WithRunID(runID),
	}
	if checkAnnotations {
		validator, err := ocr.NewImageAnnotationValidator()
		if err != nil {
			cleanup()
			return nil, nil, err
		}
		opts = append(opts, batch.WithAnnotationValidator(validator))
	}

	return batch.NewOrchestrator(runner, sink, opts...), cleanup, nil
}
