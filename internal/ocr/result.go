package ocr

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// PageSeparator joins page markdown in CombinedMarkdown.
const PageSeparator = "\n\n---\n\n"

// Result is an OCR response: the verbatim body plus a typed view of it.
//
// Fields the service may omit are pointers or nil slices. A page without
// "images" has zero images and a page without "markdown" has no text; neither
// is an error.
type Result struct {
	// Raw is the response body exactly as received.
	Raw json.RawMessage `json:"-"`

	Model              string     `json:"model,omitempty"`
	Pages              []Page     `json:"pages"`
	DocumentAnnotation *string    `json:"document_annotation,omitempty"`
	UsageInfo          *UsageInfo `json:"usage_info,omitempty"`

	// Document and Timings are filled in by the Runner.
	Document *Document `json:"-"`
	Timings  Timings   `json:"-"`
}

// Page is one page of an OCR response.
type Page struct {
	Index      int         `json:"index"`
	Markdown   *string     `json:"markdown,omitempty"`
	Images     []Image     `json:"images,omitempty"`
	Dimensions *Dimensions `json:"dimensions,omitempty"`
}

// Image is a detected image region on a page.
type Image struct {
	ID           string `json:"id,omitempty"`
	TopLeftX     int    `json:"top_left_x"`
	TopLeftY     int    `json:"top_left_y"`
	BottomRightX int    `json:"bottom_right_x"`
	BottomRightY int    `json:"bottom_right_y"`
	ImageBase64  string `json:"image_base64,omitempty"`

	Description *string `json:"description,omitempty"`

	// ImageAnnotation is the JSON document produced for the bbox annotation format.
	ImageAnnotation *string `json:"image_annotation,omitempty"`

	// Keys lists the fields present in the response object, in the order
	// the service sent them.
	Keys []string `json:"-"`
}

// Dimensions is the rendered size of a page.
type Dimensions struct {
	DPI    int `json:"dpi"`
	Height int `json:"height"`
	Width  int `json:"width"`
}

// UsageInfo is the service's accounting for a request.
type UsageInfo struct {
	PagesProcessed int    `json:"pages_processed"`
	DocSizeBytes   *int64 `json:"doc_size_bytes,omitempty"`
}

// UnmarshalJSON decodes an image and records which keys it carried.
func (img *Image) UnmarshalJSON(data []byte) error {
	type plain Image
	var decoded plain
	if err := json.Unmarshal(data, &decoded); err != nil {
		return err
	}

	keys, err := objectKeys(data)
	if err != nil {
		return err
	}
	decoded.Keys = keys

	*img = Image(decoded)
	return nil
}

// objectKeys returns the keys of a JSON object in document order. A repeated
// key keeps its first position.
func objectKeys(data []byte) ([]string, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	if tok, err := dec.Token(); err != nil {
		return nil, err
	} else if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return nil, fmt.Errorf("expected JSON object, got %v", tok)
	}

	var keys []string
	seen := make(map[string]bool)
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		key, _ := tok.(string)
		var value json.RawMessage
		if err := dec.Decode(&value); err != nil {
			return nil, err
		}
		if !seen[key] {
			seen[key] = true
			keys = append(keys, key)
		}
	}
	return keys, nil
}

// ParseResult decodes an OCR response body. The body must be a JSON object.
func ParseResult(body []byte) (*Result, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return nil, fmt.Errorf("%w: OCR response is not a JSON object", ErrMalformedResponse)
	}

	var result Result
	if err := json.Unmarshal(trimmed, &result); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	result.Raw = append(json.RawMessage(nil), body...)
	return &result, nil
}

// HasPages reports whether the response carried a "pages" list. An empty
// list counts; a missing or null key does not.
func (r *Result) HasPages() bool {
	return r != nil && r.Pages != nil
}

// PageCount returns the number of pages in the result.
func (r *Result) PageCount() int {
	if r == nil {
		return 0
	}
	return len(r.Pages)
}

// TotalImages returns the number of images across all pages.
func (r *Result) TotalImages() int {
	if r == nil {
		return 0
	}
	total := 0
	for _, page := range r.Pages {
		total += len(page.Images)
	}
	return total
}

// CombinedMarkdown joins the markdown of every page with PageSeparator.
// Pages without markdown contribute an empty string.
func (r *Result) CombinedMarkdown() string {
	if r == nil {
		return ""
	}
	parts := make([]string, len(r.Pages))
	for i, page := range r.Pages {
		if page.Markdown != nil {
			parts[i] = *page.Markdown
		}
	}
	return strings.Join(parts, PageSeparator)
}

// Preview returns the first n characters of the page markdown with newlines
// flattened to spaces. ok is false when the page has no markdown.
func (p Page) Preview(n int) (preview string, ok bool) {
	if p.Markdown == nil {
		return "", false
	}
	return strings.ReplaceAll(truncate(*p.Markdown, n), "\n", " "), true
}

// Annotation decodes the image annotation. ok is false when the image has none
// or it is not a JSON object.
func (img Image) Annotation() (annotation ImageAnnotation, ok bool) {
	if img.ImageAnnotation == nil {
		return annotation, false
	}
	if err := json.Unmarshal([]byte(*img.ImageAnnotation), &annotation); err != nil {
		return annotation, false
	}
	return annotation, true
}

// Summary describes the image in at most n characters: its description, else
// its annotation's short description, else the list of keys it carried.
func (img Image) Summary(n int) string {
	if img.Description != nil {
		return truncate(*img.Description, n) + "..."
	}
	if annotation, ok := img.Annotation(); ok && annotation.ShortDescription != "" {
		if annotation.ImageType != "" {
			return fmt.Sprintf("[%s] %s", annotation.ImageType, truncate(annotation.ShortDescription, n))
		}
		return truncate(annotation.ShortDescription, n)
	}
	return "[" + strings.Join(img.Keys, " ") + "]"
}

// truncate cuts s to at most n characters.
func truncate(s string, n int) string {
	runes := []rune(s)
	if n < 0 || len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
