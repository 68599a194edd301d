// Package ocr runs a single document through the remote OCR pipeline.
//
// The pipeline has three strictly ordered remote stages:
//  1. upload the document bytes (purpose "ocr")
//  2. obtain a time-limited signed URL for the uploaded file
//  3. submit the signed URL for OCR with the image annotation format
//
// A failing stage stops the pipeline; later stages are never attempted. The
// outcome is either a *Result or a *StageError naming the stage that failed.
//
// The package also holds the typed view of an OCR response (pages, images,
// annotations) and the helpers that count and summarise it.
package ocr

import (
	"context"
	"time"

	"ocrprobe/internal/mistral"
)

// Service is the remote capability the pipeline depends on.
// *mistral.Client implements it.
type Service interface {
	// UploadFile uploads the document bytes and returns the remote file handle.
	UploadFile(ctx context.Context, filename string, data []byte) (*mistral.File, error)

	// GetSignedURL returns a retrieval URL for an uploaded file.
	GetSignedURL(ctx context.Context, fileID string, expiryHours int) (*mistral.SignedURL, error)

	// ProcessDocument runs OCR on a remote document and returns the raw response body.
	ProcessDocument(ctx context.Context, documentURL string) ([]byte, error)
}

var _ Service = (*mistral.Client)(nil)

// Timings holds the wall-clock duration of each stage.
type Timings struct {
	Upload  time.Duration `json:"upload"`
	SignURL time.Duration `json:"signed_url"`
	OCR     time.Duration `json:"ocr"`

	// Total runs from the start of the upload to the end of the OCR call.
	Total time.Duration `json:"total"`
}

// StageEvent is emitted when a stage starts and when it completes.
type StageEvent struct {
	Stage Stage

	// Done is false when the stage starts and true when it completed successfully.
	Done    bool
	Elapsed time.Duration

	// FileID is set on the completed upload event.
	FileID string

	// Document is set on the completed read event.
	Document *Document
}
