package ocr

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"

	"ocrprobe/internal/mistral"
)

// RunnerConfig tunes the pipeline.
type RunnerConfig struct {
	// SignedURLExpiryHours is the lifetime requested for the signed URL.
	SignedURLExpiryHours int

	// MaxFileSizeBytes rejects larger documents before any remote call.
	// Zero disables the check.
	MaxFileSizeBytes int64
}

// DefaultRunnerConfig returns the reference settings: 24 hour URLs and a 50MB limit.
func DefaultRunnerConfig() RunnerConfig {
	return RunnerConfig{
		SignedURLExpiryHours: mistral.DefaultSignedURLExpiryHours,
		MaxFileSizeBytes:     DefaultMaxFileSizeBytes,
	}
}

// Runner executes the upload → signed URL → OCR pipeline for one document at a time.
type Runner struct {
	svc     Service
	cfg     RunnerConfig
	log     zerolog.Logger
	onStage func(StageEvent)
	now     func() time.Time
}

// RunnerOption customises a Runner.
type RunnerOption func(*Runner)

// WithStageHook registers fn to observe stage starts and completions.
func WithStageHook(fn func(StageEvent)) RunnerOption {
	return func(r *Runner) {
		r.onStage = fn
	}
}

// WithLogger sets the logger used for stage timings.
func WithLogger(log zerolog.Logger) RunnerOption {
	return func(r *Runner) {
		r.log = log
	}
}

// NewRunner creates a Runner backed by svc.
func NewRunner(svc Service, cfg RunnerConfig, opts ...RunnerOption) *Runner {
	if cfg.SignedURLExpiryHours <= 0 {
		cfg.SignedURLExpiryHours = mistral.DefaultSignedURLExpiryHours
	}
	r := &Runner{
		svc:     svc,
		cfg:     cfg,
		log:     zerolog.Nop(),
		onStage: func(StageEvent) {},
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run sends the document at path through the three remote stages.
//
// On failure the returned error is a *StageError naming the stage that failed;
// stages after it were not attempted. A missing document fails at StageRead
// without any remote call.
func (r *Runner) Run(ctx context.Context, path string) (*Result, error) {
	log := r.log.With().Str("file", path).Logger()

	doc, data, err := r.readDocument(path)
	if err != nil {
		log.Error().Err(err).Msg("Document could not be read")
		return nil, WrapStageError(StageRead, path, err)
	}

	r.onStage(StageEvent{Stage: StageRead, Done: true, Document: doc})

	log.Info().
		Int64("size", doc.Size).
		Int("local_pages", doc.LocalPages).
		Msg("Starting OCR pipeline")

	var timings Timings
	start := r.now()

	// Stage 1: upload
	stageStart := r.begin(StageUpload)
	file, err := r.svc.UploadFile(ctx, doc.Name(), data)
	if err != nil {
		return nil, r.fail(log, StageUpload, path, err)
	}
	timings.Upload = r.now().Sub(stageStart)
	r.complete(log, StageEvent{Stage: StageUpload, Elapsed: timings.Upload, FileID: file.ID})

	// Stage 2: signed URL
	stageStart = r.begin(StageSignURL)
	signed, err := r.svc.GetSignedURL(ctx, file.ID, r.cfg.SignedURLExpiryHours)
	if err != nil {
		return nil, r.fail(log, StageSignURL, path, err)
	}
	timings.SignURL = r.now().Sub(stageStart)
	r.complete(log, StageEvent{Stage: StageSignURL, Elapsed: timings.SignURL})

	// Stage 3: OCR
	stageStart = r.begin(StageOCR)
	body, err := r.svc.ProcessDocument(ctx, signed.URL)
	if err != nil {
		return nil, r.fail(log, StageOCR, path, err)
	}
	result, err := ParseResult(body)
	if err != nil {
		return nil, r.fail(log, StageOCR, path, err)
	}
	end := r.now()
	timings.OCR = end.Sub(stageStart)
	timings.Total = end.Sub(start)
	r.complete(log, StageEvent{Stage: StageOCR, Elapsed: timings.OCR})

	result.Document = doc
	result.Timings = timings

	log.Info().
		Int("pages", result.PageCount()).
		Int("images", result.TotalImages()).
		Dur("total", timings.Total).
		Msg("OCR pipeline completed")

	return result, nil
}

// readDocument validates and reads the document, counting PDF pages locally.
func (r *Runner) readDocument(path string) (*Document, []byte, error) {
	doc, err := StatDocument(path, r.cfg.MaxFileSizeBytes)
	if err != nil {
		return nil, nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read document: %w", err)
	}

	if IsPDF(data) {
		pages, err := CountPDFPages(data)
		if err != nil {
			r.log.Warn().Err(err).Str("file", path).Msg("Could not count PDF pages locally")
		} else {
			doc.LocalPages = pages
		}
	}

	return doc, data, nil
}

func (r *Runner) begin(stage Stage) time.Time {
	r.onStage(StageEvent{Stage: stage})
	return r.now()
}

func (r *Runner) complete(log zerolog.Logger, ev StageEvent) {
	ev.Done = true
	log.Debug().
		Str("stage", string(ev.Stage)).
		Dur("elapsed", ev.Elapsed).
		Str("file_id", ev.FileID).
		Msg("Stage completed")
	r.onStage(ev)
}

func (r *Runner) fail(log zerolog.Logger, stage Stage, path string, err error) error {
	stageErr := NewStageError(stage, path, err)
	log.Error().
		Err(err).
		Str("stage", string(stage)).
		Int("status", stageErr.StatusCode).
		Msg("OCR pipeline stage failed")
	return stageErr
}
