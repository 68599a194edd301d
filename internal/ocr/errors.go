package ocr

import (
	"errors"
	"fmt"

	"ocrprobe/internal/mistral"
)

// Common pipeline errors
var (
	// ErrDocumentNotFound is returned when the document path does not exist locally.
	// No remote call is made in that case.
	ErrDocumentNotFound = errors.New("document not found")

	// ErrNotAFile is returned when the document path is a directory or other non-regular file.
	ErrNotAFile = errors.New("document path is not a regular file")

	// ErrDocumentTooLarge is returned when the document exceeds the configured size limit.
	ErrDocumentTooLarge = errors.New("document exceeds the maximum file size")

	// ErrRemoteStatus is returned when a remote stage answers with a non-success status.
	ErrRemoteStatus = errors.New("remote call returned a non-success status")

	// ErrMalformedResponse is returned when a remote stage answers 2xx with an
	// unusable body.
	ErrMalformedResponse = mistral.ErrMalformedResponse
)

// Stage names one step of the per-document pipeline.
type Stage string

const (
	StageRead    Stage = "read"
	StageUpload  Stage = "upload"
	StageSignURL Stage = "signed_url"
	StageOCR     Stage = "ocr"
)

// Step returns the 1-based position of a remote stage, or 0 for the local read.
func (s Stage) Step() int {
	switch s {
	case StageUpload:
		return 1
	case StageSignURL:
		return 2
	case StageOCR:
		return 3
	default:
		return 0
	}
}

// StageError reports where a document's pipeline stopped.
type StageError struct {
	// Stage is the step that failed. Later stages were not attempted.
	Stage Stage

	// Path is the local document path.
	Path string

	// StatusCode and Body are set when the remote side answered with a non-2xx status.
	StatusCode int
	Body       string

	// Err is the underlying error.
	Err error
}

// Error implements the error interface.
func (e *StageError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("ocr: %s failed for %s (status %d): %v", e.Stage, e.Path, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("ocr: %s failed for %s: %v", e.Stage, e.Path, e.Err)
}

// Unwrap returns the underlying error for error unwrapping.
func (e *StageError) Unwrap() error {
	return e.Err
}

// Is implements error matching for Go 1.13+ error handling.
func (e *StageError) Is(target error) bool {
	if target == ErrRemoteStatus {
		return e.StatusCode != 0
	}
	return errors.Is(e.Err, target)
}

// NewStageError creates a StageError, lifting status code and body out of a
// *mistral.APIError when err carries one.
func NewStageError(stage Stage, path string, err error) *StageError {
	stageErr := &StageError{
		Stage: stage,
		Path:  path,
		Err:   err,
	}

	var apiErr *mistral.APIError
	if errors.As(err, &apiErr) {
		stageErr.StatusCode = apiErr.StatusCode
		stageErr.Body = apiErr.Body
	}
	return stageErr
}

// WrapStageError wraps an error as a StageError if it isn't already one.
func WrapStageError(stage Stage, path string, err error) error {
	if err == nil {
		return nil
	}

	var stageErr *StageError
	if errors.As(err, &stageErr) {
		return err // Already wrapped
	}

	return NewStageError(stage, path, err)
}
