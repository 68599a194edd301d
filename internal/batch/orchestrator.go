// Package batch runs the OCR pipeline over a list of documents, one at a time,
// saving each raw response and printing a per-document analysis followed by a
// one-line summary per document.
//
// A document that fails at any stage is reported as failed and the batch moves
// on; no failure aborts the batch.
package batch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"ocrprobe/internal/ocr"
)

// Pipeline runs one document. *ocr.Runner implements it.
type Pipeline interface {
	Run(ctx context.Context, path string) (*ocr.Result, error)
}

var _ Pipeline = (*ocr.Runner)(nil)

// Orchestrator drives a batch.
type Orchestrator struct {
	pipeline  Pipeline
	sink      ResultSink
	out       io.Writer
	log       zerolog.Logger
	validator *ocr.AnnotationValidator
	runID     string
}

// Option customises an Orchestrator.
type Option func(*Orchestrator)

// WithOutput sets where progress, analysis and summary lines are printed.
func WithOutput(w io.Writer) Option {
	return func(o *Orchestrator) {
		o.out = w
	}
}

// WithLogger sets the structured logger.
func WithLogger(log zerolog.Logger) Option {
	return func(o *Orchestrator) {
		o.log = log
	}
}

// WithAnnotationValidator enables annotation conformance counts in the analysis.
func WithAnnotationValidator(v *ocr.AnnotationValidator) Option {
	return func(o *Orchestrator) {
		o.validator = v
	}
}

// WithRunID fixes the batch run ID instead of generating one.
func WithRunID(id string) Option {
	return func(o *Orchestrator) {
		o.runID = id
	}
}

// NewOrchestrator creates an Orchestrator printing to stdout.
func NewOrchestrator(pipeline Pipeline, sink ResultSink, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		pipeline: pipeline,
		sink:     sink,
		out:      os.Stdout,
		log:      zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// RunBatch processes paths strictly in order and prints the summary.
//
// Every path appears in the report; it has a result only if all three stages
// succeeded and the result was written to the sink. Once ctx is done the
// remaining paths are reported as failed without being attempted.
func (o *Orchestrator) RunBatch(ctx context.Context, paths []string) *Report {
	runID := o.runID
	if runID == "" {
		runID = uuid.NewString()
	}
	log := o.log.With().Str("run_id", runID).Logger()
	report := newReport(runID)

	log.Info().Int("documents", len(paths)).Msg("Starting batch")

	for _, path := range paths {
		report.Paths = append(report.Paths, path)

		if err := ctx.Err(); err != nil {
			log.Warn().Err(err).Str("file", path).Msg("Skipping document, batch cancelled")
			fmt.Fprintf(o.out, "\n⏹️ Ignorado: %s (%v)\n", path, err)
			report.Errors[path] = err
			continue
		}

		fmt.Fprintf(o.out, "\n🔍 Testando: %s\n", path)
		fmt.Fprintln(o.out, strings.Repeat("=", ruleWidth))

		result, location, err := o.process(ctx, path)
		if err != nil {
			o.printFailure(err)
			log.Error().Err(err).Str("file", path).Msg("Document failed")
			report.Errors[path] = err
			continue
		}

		report.Results[path] = result
		report.Locations[path] = location
		o.printAnalysis(result)
	}

	log.Info().
		Int("succeeded", report.Succeeded()).
		Int("failed", report.Failed()).
		Msg("Batch completed")

	WriteSummary(o.out, report)
	return report
}

// process runs the pipeline for one document and saves the raw response.
func (o *Orchestrator) process(ctx context.Context, path string) (*ocr.Result, string, error) {
	result, err := o.pipeline.Run(ctx, path)
	if err != nil {
		return nil, "", err
	}
	fmt.Fprintf(o.out, "🎉 Tempo total: %.2fs\n", result.Timings.Total.Seconds())

	data, err := FormatResult(result.Raw)
	if err != nil {
		return nil, "", &saveError{err: err}
	}
	location, err := o.sink.Write(ctx, ResultFileName(path), data)
	if err != nil {
		return nil, "", &saveError{err: err}
	}
	fmt.Fprintf(o.out, "💾 Resultado salvo em: %s\n", location)
	return result, location, nil
}

func (o *Orchestrator) printAnalysis(result *ocr.Result) {
	if o.validator == nil {
		WriteAnalysis(o.out, result, nil)
		return
	}
	annotations := o.validator.Check(result)
	WriteAnalysis(o.out, result, &annotations)
}

// printFailure prints the diagnostic for a failed document.
func (o *Orchestrator) printFailure(err error) {
	var saveErr *saveError
	if errors.As(err, &saveErr) {
		fmt.Fprintf(o.out, "❌ Falha ao salvar resultado: %v\n", saveErr.err)
		return
	}

	var stageErr *ocr.StageError
	if !errors.As(err, &stageErr) {
		fmt.Fprintf(o.out, "❌ Erro: %v\n", err)
		return
	}

	if stageErr.Stage == ocr.StageRead {
		if errors.Is(err, ocr.ErrDocumentNotFound) {
			fmt.Fprintf(o.out, "❌ Arquivo não encontrado: %s\n", stageErr.Path)
			return
		}
		fmt.Fprintf(o.out, "❌ Arquivo inválido: %v\n", stageErr.Err)
		return
	}

	label := stageLabels[stageErr.Stage]
	if stageErr.StatusCode != 0 {
		fmt.Fprintf(o.out, "❌ %s falhou: %d\n", label, stageErr.StatusCode)
		if stageErr.Body != "" {
			fmt.Fprintln(o.out, stageErr.Body)
		}
		return
	}
	fmt.Fprintf(o.out, "❌ %s falhou: %v\n", label, stageErr.Err)
}

// saveError marks a document whose OCR succeeded but whose result could not be written.
type saveError struct {
	err error
}

func (e *saveError) Error() string {
	return "failed to save result: " + e.err.Error()
}

func (e *saveError) Unwrap() error {
	return e.err
}

var stageLabels = map[ocr.Stage]string{
	ocr.StageUpload:  "Upload",
	ocr.StageSignURL: "URL assinada",
	ocr.StageOCR:     "OCR",
}

// NewStagePrinter returns a stage hook that prints pipeline progress to w.
func NewStagePrinter(w io.Writer) func(ocr.StageEvent) {
	return func(ev ocr.StageEvent) {
		switch {
		case ev.Stage == ocr.StageRead:
			if ev.Document != nil {
				fmt.Fprintf(w, "📁 Tamanho do arquivo: %.2f MB\n", ev.Document.SizeMB())
				if ev.Document.LocalPages > 0 {
					fmt.Fprintf(w, "📑 Páginas no PDF: %d\n", ev.Document.LocalPages)
				}
			}
		case !ev.Done:
			fmt.Fprintf(w, "%s Step %d/3: %s...\n", stageIcons[ev.Stage], ev.Stage.Step(), stageActions[ev.Stage])
		case ev.Stage == ocr.StageUpload:
			fmt.Fprintf(w, "✅ Upload completo em %.2fs - ID: %s\n", ev.Elapsed.Seconds(), ev.FileID)
		case ev.Stage == ocr.StageSignURL:
			fmt.Fprintf(w, "✅ URL obtida em %.2fs\n", ev.Elapsed.Seconds())
		case ev.Stage == ocr.StageOCR:
			fmt.Fprintf(w, "✅ OCR completo em %.2fs\n", ev.Elapsed.Seconds())
		}
	}
}

var stageIcons = map[ocr.Stage]string{
	ocr.StageUpload:  "⬆️",
	ocr.StageSignURL: "🔗",
	ocr.StageOCR:     "🔍",
}

var stageActions = map[ocr.Stage]string{
	ocr.StageUpload:  "Fazendo upload",
	ocr.StageSignURL: "Obtendo URL assinada",
	ocr.StageOCR:     "Processando OCR",
}
