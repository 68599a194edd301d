// Package mistral is a small HTTP client for the Mistral files and OCR endpoints.
//
// It covers exactly the three calls the OCR pipeline needs:
//   - POST /files            multipart upload with purpose "ocr"
//   - GET  /files/{id}/url   time-limited signed retrieval URL
//   - POST /ocr              document OCR with an image annotation format
//
// Every call authenticates with a bearer token. Non-2xx responses are returned
// as *APIError carrying the status code and the raw response body.
package mistral

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/avast/retry-go/v4"
)

const (
	// DefaultBaseURL is the public Mistral API root.
	DefaultBaseURL = "https://api.mistral.ai/v1"

	// DefaultModel is the OCR model used when none is configured.
	DefaultModel = "mistral-ocr-latest"

	// DefaultSignedURLExpiryHours is how long a signed retrieval URL stays valid.
	DefaultSignedURLExpiryHours = 24

	// PurposeOCR tags uploads meant for OCR processing.
	PurposeOCR = "ocr"

	defaultRetryDelay = 2 * time.Second
)

// Config holds configuration for the Mistral client.
type Config struct {
	APIKey  string
	BaseURL string
	Model   string

	// Timeout bounds each HTTP exchange. Zero means no client-side timeout.
	Timeout time.Duration

	// IncludeImageBase64 asks the OCR endpoint to inline extracted image payloads.
	IncludeImageBase64 bool

	// RetryAttempts is the total number of tries for a call that fails with a
	// transient error (transport failure, 429 or 5xx). Values below 1 mean 1.
	RetryAttempts uint
	RetryDelay    time.Duration

	// HTTPClient overrides the client built from Timeout.
	HTTPClient *http.Client
}

// Client talks to the Mistral API.
type Client struct {
	apiKey             string
	baseURL            string
	model              string
	includeImageBase64 bool
	attempts           uint
	retryDelay         time.Duration
	http               *http.Client
}

// NewClient creates a new Mistral client.
func NewClient(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.RetryAttempts < 1 {
		cfg.RetryAttempts = 1
	}
	if cfg.RetryDelay == 0 {
		cfg.RetryDelay = defaultRetryDelay
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}

	return &Client{
		apiKey:             cfg.APIKey,
		baseURL:            strings.TrimRight(cfg.BaseURL, "/"),
		model:              cfg.Model,
		includeImageBase64: cfg.IncludeImageBase64,
		attempts:           cfg.RetryAttempts,
		retryDelay:         cfg.RetryDelay,
		http:               httpClient,
	}
}

// Model returns the OCR model requested by ProcessDocument.
func (c *Client) Model() string {
	return c.model
}

// requestFunc builds a fresh request for every attempt so bodies can be replayed.
type requestFunc func(ctx context.Context) (*http.Request, error)

// do executes the request built by newReq, retrying transient failures, and
// returns the body of the first 2xx response.
func (c *Client) do(ctx context.Context, op string, newReq requestFunc) ([]byte, error) {
	var body []byte

	err := retry.Do(
		func() error {
			req, err := newReq(ctx)
			if err != nil {
				return retry.Unrecoverable(fmt.Errorf("failed to create request: %w", err))
			}
			req.Header.Set("Authorization", "Bearer "+c.apiKey)

			resp, err := c.http.Do(req)
			if err != nil {
				return fmt.Errorf("%s request failed: %w", op, err)
			}
			defer resp.Body.Close()

			respBody, err := io.ReadAll(resp.Body)
			if err != nil {
				return fmt.Errorf("failed to read %s response: %w", op, err)
			}

			if resp.StatusCode < 200 || resp.StatusCode >= 300 {
				return &APIError{
					Op:         op,
					StatusCode: resp.StatusCode,
					Body:       string(respBody),
				}
			}

			body = respBody
			return nil
		},
		retry.Context(ctx),
		retry.Attempts(c.attempts),
		retry.Delay(c.retryDelay),
		retry.RetryIf(isTransient),
		retry.LastErrorOnly(true),
	)
	if err != nil {
		return nil, err
	}
	return body, nil
}

// isTransient reports whether a failed call is worth another attempt.
func isTransient(err error) bool {
	if !retry.IsRecoverable(err) {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Temporary()
	}
	return true
}
