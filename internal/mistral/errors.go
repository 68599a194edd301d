package mistral

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

// ErrMalformedResponse is returned when a 2xx response cannot be decoded or
// lacks a field the caller depends on.
var ErrMalformedResponse = errors.New("malformed response")

// APIError is a non-2xx answer from the API.
type APIError struct {
	// Op is the call that failed ("upload", "signed_url", "ocr").
	Op string

	StatusCode int

	// Body is the raw response body, kept verbatim for diagnostics.
	Body string
}

// Error implements the error interface.
func (e *APIError) Error() string {
	if msg := e.Message(); msg != "" {
		return fmt.Sprintf("mistral: %s failed (status %d): %s", e.Op, e.StatusCode, msg)
	}
	return fmt.Sprintf("mistral: %s failed (status %d)", e.Op, e.StatusCode)
}

// Message extracts the error message from a JSON error body, falling back to
// the raw body.
func (e *APIError) Message() string {
	var errResp struct {
		Message string `json:"message"`
		Detail  any    `json:"detail"`
		Error   struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if json.Unmarshal([]byte(e.Body), &errResp) == nil {
		switch {
		case errResp.Error.Message != "":
			return errResp.Error.Message
		case errResp.Message != "":
			return errResp.Message
		case errResp.Detail != nil:
			if s, ok := errResp.Detail.(string); ok {
				return s
			}
		}
	}
	return e.Body
}

// Temporary reports whether the status is one that may succeed on retry.
func (e *APIError) Temporary() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= 500
}

func malformed(op, detail string, err error) error {
	if err != nil {
		return fmt.Errorf("%w: %s: %s: %v", ErrMalformedResponse, op, detail, err)
	}
	return fmt.Errorf("%w: %s: %s", ErrMalformedResponse, op, detail)
}
