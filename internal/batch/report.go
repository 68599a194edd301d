package batch

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"ocrprobe/internal/ocr"
)

const (
	descriptionPreviewLen = 100
	markdownPreviewLen    = 200
	ruleWidth             = 50
)

// Report is the outcome of a batch: the requested paths in order and the
// results of those whose response was saved. A path without a result failed,
// and so did one whose response carried no "pages" list.
type Report struct {
	RunID   string
	Paths   []string
	Results map[string]*ocr.Result

	// Locations maps a successful path to where its result was written.
	Locations map[string]string

	// Errors maps a failed path to the reason it failed.
	Errors map[string]error
}

func newReport(runID string) *Report {
	return &Report{
		RunID:     runID,
		Results:   make(map[string]*ocr.Result),
		Locations: make(map[string]string),
		Errors:    make(map[string]error),
	}
}

// Result returns the result for path, if it succeeded.
func (r *Report) Result(path string) (*ocr.Result, bool) {
	result, ok := r.Results[path]
	return result, ok
}

// Succeeded returns the number of documents summarised with page counts.
func (r *Report) Succeeded() int {
	n := 0
	for _, s := range r.Summaries() {
		if !s.Failed {
			n++
		}
	}
	return n
}

// Failed returns the number of documents summarised as failed.
func (r *Report) Failed() int {
	return len(r.Paths) - r.Succeeded()
}

// Summary is the one-line outcome of a document.
type Summary struct {
	Path   string
	Failed bool
	Pages  int
	Images int
}

// Name is the base name shown in the summary.
func (s Summary) Name() string {
	return filepath.Base(s.Path)
}

func (s Summary) String() string {
	if s.Failed {
		return fmt.Sprintf("📁 %s: Falhou", s.Name())
	}
	return fmt.Sprintf("📁 %s: %d páginas, %d imagens", s.Name(), s.Pages, s.Images)
}

// Summaries returns one summary per path, in input order.
func (r *Report) Summaries() []Summary {
	summaries := make([]Summary, 0, len(r.Paths))
	for _, path := range r.Paths {
		result, ok := r.Results[path]
		if !ok || !result.HasPages() {
			summaries = append(summaries, Summary{Path: path, Failed: true})
			continue
		}
		summaries = append(summaries, Summary{
			Path:   path,
			Pages:  result.PageCount(),
			Images: result.TotalImages(),
		})
	}
	return summaries
}

// WriteSummary prints the end-of-batch summary block.
func WriteSummary(w io.Writer, r *Report) {
	rule := strings.Repeat("=", ruleWidth)
	fmt.Fprintf(w, "\n%s\n", rule)
	fmt.Fprintln(w, "🎯 RESUMO DOS TESTES")
	fmt.Fprintln(w, rule)
	for _, s := range r.Summaries() {
		fmt.Fprintln(w, s.String())
	}
}

// WriteAnalysis prints the quick analysis of a successful result. annotations
// may be nil when conformance was not checked.
func WriteAnalysis(w io.Writer, result *ocr.Result, annotations *ocr.AnnotationReport) {
	fmt.Fprintln(w, "\n📊 ANÁLISE RÁPIDA:")
	fmt.Fprintf(w, "Páginas: %d\n", result.PageCount())
	if result.Document != nil && result.Document.LocalPages > 0 {
		fmt.Fprintf(w, "Páginas no arquivo local: %d\n", result.Document.LocalPages)
	}

	for i, page := range result.Pages {
		fmt.Fprintf(w, "\n📄 Página %d:\n", i+1)

		if page.Images != nil {
			fmt.Fprintf(w, "  🖼️ Imagens: %d\n", len(page.Images))
			for j, img := range page.Images {
				fmt.Fprintf(w, "    Imagem %d: %s\n", j+1, img.Summary(descriptionPreviewLen))
			}
		}

		if preview, ok := page.Preview(markdownPreviewLen); ok {
			fmt.Fprintf(w, "  📝 Markdown (preview): %s...\n", preview)
		}
	}

	if annotations != nil && annotations.Annotated > 0 {
		fmt.Fprintf(w, "\n🏷️ Anotações válidas: %d/%d\n", annotations.Conformant, annotations.Annotated)
		for _, f := range annotations.Failures {
			fmt.Fprintf(w, "  ⚠️ Página %d, imagem %d (%s): %v\n", f.Page, f.Image, f.ImageID, f.Err)
		}
	}

	if usage := result.UsageInfo; usage != nil {
		fmt.Fprintf(w, "\n📈 Uso: %d páginas processadas", usage.PagesProcessed)
		if usage.DocSizeBytes != nil {
			fmt.Fprintf(w, ", %d bytes", *usage.DocSizeBytes)
		}
		fmt.Fprintln(w)
	}
}
