package batch

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func TestResultFileName(t *testing.T) {
	tests := map[string]string{
		"/docs/2507.13264v1.pdf":    "test_results_2507.13264v1.json",
		"teste.pdf":                 "test_results_teste.json",
		"relative/dir/scan.jpeg":    "test_results_scan.json",
		"/docs/no_extension":        "test_results_no_extension.json",
		"/docs/relatorio anual.pdf": "test_results_relatorio anual.json",
	}
	for path, want := range tests {
		if got := ResultFileName(path); got != want {
			t.Errorf("ResultFileName(%q) = %q, want %q", path, got, want)
		}
	}
}

func TestFormatResult(t *testing.T) {
	raw := []byte(`{"pages":[{"markdown":"Olá, <mundo> & ção"}],"model":"m","a":1}`)

	got, err := FormatResult(raw)
	if err != nil {
		t.Fatalf("FormatResult() error = %v", err)
	}

	want := `{
  "pages": [
    {
      "markdown": "Olá, <mundo> & ção"
    }
  ],
  "model": "m",
  "a": 1
}`
	if string(got) != want {
		t.Errorf("FormatResult() =\n%s\nwant:\n%s", got, want)
	}

	if _, err := FormatResult([]byte(`{"pages":`)); err == nil {
		t.Error("expected error for truncated JSON")
	}
}

func TestParseGCSURL(t *testing.T) {
	tests := []struct {
		output string
		bucket string
		prefix string
		ok     bool
	}{
		{"gs://bucket", "bucket", "", true},
		{"gs://bucket/", "bucket", "", true},
		{"gs://bucket/ocr/results/", "bucket", "ocr/results", true},
		{"gs://", "", "", true},
		{"./results", "", "", false},
		{"/tmp/gs://bucket", "", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.output, func(t *testing.T) {
			bucket, prefix, ok := ParseGCSURL(tt.output)
			if bucket != tt.bucket || prefix != tt.prefix || ok != tt.ok {
				t.Errorf("ParseGCSURL(%q) = (%q, %q, %v), want (%q, %q, %v)",
					tt.output, bucket, prefix, ok, tt.bucket, tt.prefix, tt.ok)
			}
		})
	}
}

func TestNewSink_Local(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "out")

	sink, err := NewSink(context.Background(), SinkConfig{Output: dir})
	if err != nil {
		t.Fatalf("NewSink() error = %v", err)
	}
	local, ok := sink.(*LocalSink)
	if !ok {
		t.Fatalf("NewSink() = %T, want *LocalSink", sink)
	}

	location, err := local.Write(context.Background(), "test_results_a.json", []byte(`{}`))
	if err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	if location != filepath.Join(dir, "test_results_a.json") {
		t.Errorf("location = %q", location)
	}
	if data, _ := os.ReadFile(location); string(data) != `{}` {
		t.Errorf("file content = %q", data)
	}
}

func TestNewSink_MissingBucket(t *testing.T) {
	if _, err := NewSink(context.Background(), SinkConfig{Output: "gs:///prefix"}); err == nil {
		t.Error("expected error for gs:// URL without bucket")
	}
}

func TestGCSSink_ObjectName(t *testing.T) {
	if got := NewGCSSink(nil, "b", "").ObjectName("x.json"); got != "x.json" {
		t.Errorf("ObjectName without prefix = %q", got)
	}
	if got := NewGCSSink(nil, "b", "ocr/runs").ObjectName("x.json"); got != "ocr/runs/x.json" {
		t.Errorf("ObjectName with prefix = %q", got)
	}
}
