package batch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"

	"cloud.google.com/go/storage"
	"google.golang.org/api/option"

	"ocrprobe/internal/ocr"
)

const (
	resultFilePrefix = "test_results_"
	resultFileSuffix = ".json"
	gcsScheme        = "gs://"
)

// ResultFileName returns the output file name for the document at docPath:
// test_results_<stem>.json.
func ResultFileName(docPath string) string {
	return resultFilePrefix + ocr.Stem(docPath) + resultFileSuffix
}

// FormatResult re-indents a raw OCR response with two spaces. Key order,
// values and non-ASCII text are kept exactly as received.
func FormatResult(raw []byte) ([]byte, error) {
	var buf bytes.Buffer
	if err := json.Indent(&buf, raw, "", "  "); err != nil {
		return nil, fmt.Errorf("failed to format OCR response: %w", err)
	}
	return buf.Bytes(), nil
}

// ResultSink persists formatted OCR responses.
type ResultSink interface {
	// Write stores data under name, replacing any previous content, and
	// returns the location it was written to.
	Write(ctx context.Context, name string, data []byte) (string, error)
}

// SinkConfig selects the sink for an output location.
type SinkConfig struct {
	// Output is a local directory or a gs://bucket/prefix URL.
	Output string

	// CredentialsJSON and CredentialsFile are only used for gs:// outputs.
	// Application default credentials apply when both are empty.
	CredentialsJSON string
	CredentialsFile string
}

// NewSink returns a GCSSink for gs:// outputs and a LocalSink otherwise.
func NewSink(ctx context.Context, cfg SinkConfig) (ResultSink, error) {
	bucket, prefix, ok := ParseGCSURL(cfg.Output)
	if !ok {
		return NewLocalSink(cfg.Output), nil
	}
	if bucket == "" {
		return nil, fmt.Errorf("invalid output location %q: missing bucket", cfg.Output)
	}

	var opts []option.ClientOption
	if cfg.CredentialsJSON != "" {
		opts = append(opts, option.WithCredentialsJSON([]byte(cfg.CredentialsJSON)))
	} else if cfg.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}

	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create Storage client: %w", err)
	}
	return NewGCSSink(client, bucket, prefix), nil
}

// ParseGCSURL splits gs://bucket/prefix into its parts. ok is false when
// output is not a gs:// URL.
func ParseGCSURL(output string) (bucket, prefix string, ok bool) {
	if !strings.HasPrefix(output, gcsScheme) {
		return "", "", false
	}
	rest := strings.TrimPrefix(output, gcsScheme)
	bucket, prefix, _ = strings.Cut(rest, "/")
	return bucket, strings.Trim(prefix, "/"), true
}

// LocalSink writes result files into a directory.
type LocalSink struct {
	Dir string
}

// NewLocalSink returns a sink writing into dir. An empty dir means the
// working directory.
func NewLocalSink(dir string) *LocalSink {
	if dir == "" {
		dir = "."
	}
	return &LocalSink{Dir: dir}
}

func (s *LocalSink) Write(_ context.Context, name string, data []byte) (string, error) {
	if err := os.MkdirAll(s.Dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create output directory: %w", err)
	}
	target := filepath.Join(s.Dir, name)
	if err := os.WriteFile(target, data, 0o644); err != nil {
		return "", fmt.Errorf("failed to write result file: %w", err)
	}
	return target, nil
}

// GCSSink writes result files as objects under a bucket prefix.
type GCSSink struct {
	client *storage.Client
	bucket string
	prefix string
}

func NewGCSSink(client *storage.Client, bucket, prefix string) *GCSSink {
	return &GCSSink{client: client, bucket: bucket, prefix: prefix}
}

// ObjectName returns the object path a result file named name is stored at.
func (s *GCSSink) ObjectName(name string) string {
	if s.prefix == "" {
		return name
	}
	return path.Join(s.prefix, name)
}

func (s *GCSSink) Write(ctx context.Context, name string, data []byte) (string, error) {
	object := s.ObjectName(name)
	w := s.client.Bucket(s.bucket).Object(object).NewWriter(ctx)
	w.ContentType = "application/json; charset=utf-8"

	if _, err := w.Write(data); err != nil {
		w.Close()
		return "", fmt.Errorf("failed to upload result to gs://%s/%s: %w", s.bucket, object, err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("failed to finalize gs://%s/%s: %w", s.bucket, object, err)
	}
	return gcsScheme + s.bucket + "/" + object, nil
}

// Close releases the storage client.
func (s *GCSSink) Close() error {
	return s.client.Close()
}
