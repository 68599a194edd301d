package batch

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"ocrprobe/internal/mistral"
	"ocrprobe/internal/ocr"
)

const twoPageBody = `{"pages":[{"index":0,"markdown":"# Título\nLinha um","images":[{"id":"img-0.jpeg","top_left_x":1,"top_left_y":2,"bottom_right_x":3,"bottom_right_y":4,"image_annotation":"{\"image_type\":\"gráfico\",\"short_description\":\"Barras\",\"summary\":\"Vendas por mês\"}"}]},{"index":1,"markdown":"Fim","images":[{"id":"img-1.jpeg"},{"id":"img-2.jpeg","image_annotation":"{\"image_type\":\"foto\"}"}]}],"model":"mistral-ocr-2505","usage_info":{"pages_processed":2,"doc_size_bytes":1234}}`

// fakeAPI serves the three remote endpoints and records the calls it saw.
type fakeAPI struct {
	t *testing.T

	mu    sync.Mutex
	calls []string

	uploadStatus int
	ocrBody      string
}

func (f *fakeAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	f.calls = append(f.calls, r.Method+" "+r.URL.Path)
	f.mu.Unlock()

	switch {
	case r.Method == http.MethodPost && r.URL.Path == "/files":
		if f.uploadStatus != 0 {
			w.WriteHeader(f.uploadStatus)
			w.Write([]byte(`{"message":"Unauthorized"}`))
			return
		}
		w.Write([]byte(`{"id":"file-1","object":"file","purpose":"ocr"}`))
	case r.Method == http.MethodGet && r.URL.Path == "/files/file-1/url":
		w.Write([]byte(`{"url":"https://storage.example/signed/file-1"}`))
	case r.Method == http.MethodPost && r.URL.Path == "/ocr":
		w.Write([]byte(f.ocrBody))
	default:
		f.t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		w.WriteHeader(http.StatusNotFound)
	}
}

func (f *fakeAPI) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

type harness struct {
	api    *fakeAPI
	out    *bytes.Buffer
	outDir string
	orch   *Orchestrator
}

func newHarness(t *testing.T, api *fakeAPI, opts ...Option) *harness {
	t.Helper()
	api.t = t
	server := httptest.NewServer(api)
	t.Cleanup(server.Close)

	client := mistral.NewClient(mistral.Config{
		APIKey:     "test-key",
		BaseURL:    server.URL,
		RetryDelay: time.Millisecond,
	})

	out := &bytes.Buffer{}
	runner := ocr.NewRunner(client, ocr.DefaultRunnerConfig(), ocr.WithStageHook(NewStagePrinter(out)))
	outDir := t.TempDir()

	opts = append([]Option{WithOutput(out), WithRunID("run-test")}, opts...)
	return &harness{
		api:    api,
		out:    out,
		outDir: outDir,
		orch:   NewOrchestrator(runner, NewLocalSink(outDir), opts...),
	}
}

func writeDoc(t *testing.T, name string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte("not really a pdf"), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestRunBatch_MissingFileDoesNotStopBatch(t *testing.T) {
	h := newHarness(t, &fakeAPI{ocrBody: `{"pages":[{"index":0,"markdown":"ok","images":[]}]}`})
	missing := filepath.Join(t.TempDir(), "missing.pdf")
	present := writeDoc(t, "teste.pdf")

	report := h.orch.RunBatch(context.Background(), []string{missing, present})

	if len(report.Paths) != 2 {
		t.Fatalf("report has %d paths, want 2", len(report.Paths))
	}
	if _, ok := report.Result(missing); ok {
		t.Error("missing file should have no result")
	}
	if _, ok := report.Result(present); !ok {
		t.Error("present file should have a result")
	}

	calls := h.api.Calls()
	if len(calls) != 3 {
		t.Errorf("got %d remote calls, want 3 (only for the present file): %v", len(calls), calls)
	}

	out := h.out.String()
	for _, want := range []string{
		"❌ Arquivo não encontrado: " + missing,
		"📁 missing.pdf: Falhou",
		"📁 teste.pdf: 1 páginas, 0 imagens",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q\n%s", want, out)
		}
	}
	if _, err := os.Stat(filepath.Join(h.outDir, "test_results_missing.json")); !os.IsNotExist(err) {
		t.Error("no result file should be written for the missing document")
	}
}

func TestRunBatch_UploadRejected(t *testing.T) {
	h := newHarness(t, &fakeAPI{uploadStatus: http.StatusUnauthorized})
	doc := writeDoc(t, "teste.pdf")

	report := h.orch.RunBatch(context.Background(), []string{doc})

	if report.Failed() != 1 {
		t.Errorf("Failed() = %d, want 1", report.Failed())
	}
	if calls := h.api.Calls(); len(calls) != 1 || calls[0] != "POST /files" {
		t.Errorf("calls = %v, want only the upload", calls)
	}

	out := h.out.String()
	for _, want := range []string{"❌ Upload falhou: 401", `{"message":"Unauthorized"}`, "📁 teste.pdf: Falhou"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q\n%s", want, out)
		}
	}
	if strings.Contains(out, "Step 2/3") {
		t.Error("signed URL stage should not start after a failed upload")
	}
	entries, _ := os.ReadDir(h.outDir)
	if len(entries) != 0 {
		t.Errorf("output dir has %d entries, want none", len(entries))
	}
}

func TestRunBatch_SavesRawResponse(t *testing.T) {
	validator, err := ocr.NewImageAnnotationValidator()
	if err != nil {
		t.Fatal(err)
	}
	h := newHarness(t, &fakeAPI{ocrBody: twoPageBody}, WithAnnotationValidator(validator))
	doc := writeDoc(t, "teste.pdf")

	report := h.orch.RunBatch(context.Background(), []string{doc})

	result, ok := report.Result(doc)
	if !ok {
		t.Fatalf("expected a result\n%s", h.out.String())
	}
	if result.PageCount() != 2 || result.TotalImages() != 3 {
		t.Errorf("got %d pages, %d images", result.PageCount(), result.TotalImages())
	}

	target := filepath.Join(h.outDir, "test_results_teste.json")
	if report.Locations[doc] != target {
		t.Errorf("location = %q, want %q", report.Locations[doc], target)
	}
	saved, err := os.ReadFile(target)
	if err != nil {
		t.Fatalf("result file not written: %v", err)
	}
	want, _ := FormatResult([]byte(twoPageBody))
	if !bytes.Equal(saved, want) {
		t.Errorf("saved file differs from the indented response\ngot:\n%s\nwant:\n%s", saved, want)
	}

	out := h.out.String()
	for _, want := range []string{
		"⬆️ Step 1/3: Fazendo upload...",
		"✅ Upload completo em",
		"- ID: file-1",
		"🔗 Step 2/3: Obtendo URL assinada...",
		"🔍 Step 3/3: Processando OCR...",
		"💾 Resultado salvo em: " + target,
		"Páginas: 2",
		"  🖼️ Imagens: 1",
		"    Imagem 1: [gráfico] Barras",
		"    Imagem 1: [id]",
		"  📝 Markdown (preview): # Título Linha um...",
		"🏷️ Anotações válidas: 1/2",
		"📈 Uso: 2 páginas processadas, 1234 bytes",
		"📁 teste.pdf: 2 páginas, 3 imagens",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q\n%s", want, out)
		}
	}
}

func TestRunBatch_PageWithoutImages(t *testing.T) {
	body := `{"pages":[{"index":0,"markdown":"texto"},{"index":1,"images":[{"id":"a"},{"id":"b"}]}]}`
	h := newHarness(t, &fakeAPI{ocrBody: body})
	doc := writeDoc(t, "scan.pdf")

	h.orch.RunBatch(context.Background(), []string{doc})

	out := h.out.String()
	if !strings.Contains(out, "📁 scan.pdf: 2 páginas, 2 imagens") {
		t.Errorf("unexpected summary\n%s", out)
	}
	if strings.Count(out, "🖼️ Imagens:") != 1 {
		t.Errorf("only the page with an images list should print an image count\n%s", out)
	}
	if strings.Count(out, "📝 Markdown (preview)") != 1 {
		t.Errorf("only the page with markdown should print a preview\n%s", out)
	}
}

func TestRunBatch_ZeroPages(t *testing.T) {
	h := newHarness(t, &fakeAPI{ocrBody: `{"pages":[],"model":"m"}`})
	doc := writeDoc(t, "vazio.pdf")

	h.orch.RunBatch(context.Background(), []string{doc})

	if !strings.Contains(h.out.String(), "📁 vazio.pdf: 0 páginas, 0 imagens") {
		t.Errorf("unexpected output\n%s", h.out.String())
	}
}

func TestRunBatch_MissingPagesKey(t *testing.T) {
	h := newHarness(t, &fakeAPI{ocrBody: `{"model":"m"}`})
	doc := writeDoc(t, "nopages.pdf")

	report := h.orch.RunBatch(context.Background(), []string{doc})

	if _, err := os.Stat(filepath.Join(h.outDir, "test_results_nopages.json")); err != nil {
		t.Errorf("response should still be saved: %v", err)
	}
	if report.Succeeded() != 0 || report.Failed() != 1 {
		t.Errorf("succeeded=%d failed=%d, want 0 and 1", report.Succeeded(), report.Failed())
	}
	out := h.out.String()
	if !strings.Contains(out, "📁 nopages.pdf: Falhou") {
		t.Errorf("unexpected summary\n%s", out)
	}
	if strings.Contains(out, "nopages.pdf: 0 páginas") {
		t.Errorf("missing pages must not be summarised as zero pages\n%s", out)
	}
}

func TestRunBatch_Idempotent(t *testing.T) {
	h := newHarness(t, &fakeAPI{ocrBody: twoPageBody})
	doc := writeDoc(t, "teste.pdf")
	target := filepath.Join(h.outDir, "test_results_teste.json")

	h.orch.RunBatch(context.Background(), []string{doc})
	first, err := os.ReadFile(target)
	if err != nil {
		t.Fatal(err)
	}
	h.orch.RunBatch(context.Background(), []string{doc})
	second, err := os.ReadFile(target)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(first, second) {
		t.Error("second run should overwrite with identical content")
	}
}

func TestRunBatch_Cancelled(t *testing.T) {
	h := newHarness(t, &fakeAPI{ocrBody: twoPageBody})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	report := h.orch.RunBatch(ctx, []string{writeDoc(t, "a.pdf"), writeDoc(t, "b.pdf")})

	if report.Failed() != 2 {
		t.Errorf("Failed() = %d, want 2", report.Failed())
	}
	if calls := h.api.Calls(); len(calls) != 0 {
		t.Errorf("no remote calls expected after cancellation, got %v", calls)
	}
}

type failingSink struct{}

func (failingSink) Write(context.Context, string, []byte) (string, error) {
	return "", errors.New("disk full")
}

func TestRunBatch_SinkFailureCountsAsFailure(t *testing.T) {
	h := newHarness(t, &fakeAPI{ocrBody: twoPageBody})
	h.orch.sink = failingSink{}
	doc := writeDoc(t, "teste.pdf")

	report := h.orch.RunBatch(context.Background(), []string{doc})

	if _, ok := report.Result(doc); ok {
		t.Error("a result that could not be saved should not count as a success")
	}
	out := h.out.String()
	if !strings.Contains(out, "❌ Falha ao salvar resultado: disk full") || !strings.Contains(out, "📁 teste.pdf: Falhou") {
		t.Errorf("unexpected output\n%s", out)
	}
}

func TestRunBatch_Empty(t *testing.T) {
	h := newHarness(t, &fakeAPI{})

	report := h.orch.RunBatch(context.Background(), nil)

	if len(report.Paths) != 0 || report.RunID != "run-test" {
		t.Errorf("report = %+v", report)
	}
	if !strings.Contains(h.out.String(), "🎯 RESUMO DOS TESTES") {
		t.Error("summary header should always be printed")
	}
}
