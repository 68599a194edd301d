package batch_test

import (
	"context"
	"log"
	"os"
	"os/signal"

	"ocrprobe/internal/batch"
	"ocrprobe/internal/mistral"
	"ocrprobe/internal/ocr"
)

// Example demonstrates running a batch and writing results to the working directory.
func Example() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	client := mistral.NewClient(mistral.Config{
		APIKey:             os.Getenv("MISTRAL_API_KEY"),
		IncludeImageBase64: true,
	})
	runner := ocr.NewRunner(client, ocr.DefaultRunnerConfig(),
		ocr.WithStageHook(batch.NewStagePrinter(os.Stdout)))

	sink, err := batch.NewSink(ctx, batch.SinkConfig{Output: "."})
	if err != nil {
		log.Fatalf("Failed to create result sink: %v", err)
	}

	report := batch.NewOrchestrator(runner, sink).RunBatch(ctx, []string{"2507.13264v1.pdf", "teste.pdf"})
	if report.Failed() > 0 {
		log.Printf("%d documents failed", report.Failed())
	}
}

// ExampleWriteSummary shows the summary block for one failed and one
// successful document.
func ExampleWriteSummary() {
	result, err := ocr.ParseResult([]byte(`{"pages":[{"index":0,"images":[{"id":"a"}]},{"index":1}]}`))
	if err != nil {
		log.Fatal(err)
	}

	report := &batch.Report{
		Paths:   []string{"/docs/missing.pdf", "/docs/teste.pdf"},
		Results: map[string]*ocr.Result{"/docs/teste.pdf": result},
	}
	batch.WriteSummary(os.Stdout, report)
	// Output:
	// ==================================================
	// 🎯 RESUMO DOS TESTES
	// ==================================================
	// 📁 missing.pdf: Falhou
	// 📁 teste.pdf: 2 páginas, 1 imagens
}
