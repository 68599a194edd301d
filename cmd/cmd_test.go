package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
		rootCmd.SetArgs(nil)
	})
	err := rootCmd.Execute()
	return out.String(), err
}

func TestInspect(t *testing.T) {
	dir := t.TempDir()
	good := filepath.Join(dir, "test_results_teste.json")
	body := `{"pages":[{"index":0,"markdown":"Página um","images":[{"id":"img-0"}]},{"index":1,"markdown":"Página dois"}]}`
	if err := os.WriteFile(good, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	bad := filepath.Join(dir, "test_results_broken.json")
	if err := os.WriteFile(bad, []byte(`[]`), 0o644); err != nil {
		t.Fatal(err)
	}

	out, err := execute(t, "inspect", good, bad)
	if err != nil {
		t.Fatalf("inspect error = %v", err)
	}
	for _, want := range []string{
		"Páginas: 2",
		"📁 test_results_teste.json: 2 páginas, 1 imagens",
		"📁 test_results_broken.json: Falhou",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q\n%s", want, out)
		}
	}

	out, err = execute(t, "inspect", good, "--markdown")
	if err != nil {
		t.Fatalf("inspect --markdown error = %v", err)
	}
	if !strings.Contains(out, "Página um\n\n---\n\nPágina dois") {
		t.Errorf("unexpected markdown output\n%s", out)
	}
}

func TestSchema(t *testing.T) {
	out, err := execute(t, "schema")
	if err != nil {
		t.Fatalf("schema error = %v", err)
	}
	for _, want := range []string{`"type": "json_schema"`, `"name": "ImageAnnotation"`, `"short_description"`} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %s\n%s", want, out)
		}
	}
}

func TestRun_RequiresAPIKey(t *testing.T) {
	t.Setenv("MISTRAL_API_KEY", "")

	_, err := execute(t, "run", "teste.pdf")
	if err == nil || !strings.Contains(err.Error(), "MISTRAL_API_KEY") {
		t.Errorf("run error = %v, want missing API key", err)
	}
}

func TestRun_RequiresDocuments(t *testing.T) {
	t.Setenv("MISTRAL_API_KEY", "k")
	t.Setenv("OCR_DOCUMENTS", "")

	_, err := execute(t, "run")
	if err == nil || !strings.Contains(err.Error(), "no documents") {
		t.Errorf("run error = %v, want no documents", err)
	}
}

func TestRun_LogsRunIDOnce(t *testing.T) {
	dir := t.TempDir()
	logPath := filepath.Join(dir, "run.log")
	t.Setenv("MISTRAL_API_KEY", "k")
	t.Setenv("OCR_OUTPUT_DIR", dir)
	t.Setenv("LOG_FORMAT", "json")
	t.Setenv("LOG_OUTPUT", logPath)
	t.Cleanup(func() { zerolog.SetGlobalLevel(zerolog.InfoLevel) })

	out, err := execute(t, "run", filepath.Join(dir, "missing.pdf"))
	if err != nil {
		t.Fatalf("run error = %v", err)
	}
	if !strings.Contains(out, "📁 missing.pdf: Falhou") {
		t.Errorf("output missing failed summary\n%s", out)
	}

	data, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatal(err)
	}
	var batchLines int
	for _, line := range strings.Split(strings.TrimSpace(string(data)), "\n") {
		if n := strings.Count(line, `"run_id"`); n > 1 {
			t.Errorf("run_id appears %d times in %s", n, line)
		}
		if strings.Contains(line, `"component":"batch"`) {
			batchLines++
			if !strings.Contains(line, `"run_id"`) {
				t.Errorf("batch line without run_id: %s", line)
			}
		}
	}
	if batchLines == 0 {
		t.Errorf("no batch log lines in\n%s", data)
	}
}
