package mistral

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
)

// DocumentSource points the OCR endpoint at the document to process.
type DocumentSource struct {
	Type        string `json:"type"` // "document_url"
	DocumentURL string `json:"document_url"`
}

// OCRRequest is the body of POST /ocr.
type OCRRequest struct {
	Model                string          `json:"model"`
	Document             DocumentSource  `json:"document"`
	IncludeImageBase64   bool            `json:"include_image_base64"`
	BBoxAnnotationFormat *ResponseFormat `json:"bbox_annotation_format,omitempty"`
}

// NewOCRRequest builds the request for a remote document, annotating detected
// images with ImageAnnotationFormat.
func (c *Client) NewOCRRequest(documentURL string) OCRRequest {
	return OCRRequest{
		Model: c.model,
		Document: DocumentSource{
			Type:        "document_url",
			DocumentURL: documentURL,
		},
		IncludeImageBase64:   c.includeImageBase64,
		BBoxAnnotationFormat: ImageAnnotationFormat(),
	}
}

// ProcessDocument runs OCR on the document behind documentURL and returns the
// response body verbatim.
func (c *Client) ProcessDocument(ctx context.Context, documentURL string) ([]byte, error) {
	const op = "ocr"

	payload, err := json.Marshal(c.NewOCRRequest(documentURL))
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	body, err := c.do(ctx, op, func(ctx context.Context) (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/ocr", bytes.NewReader(payload))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")
		return req, nil
	})
	if err != nil {
		return nil, err
	}

	if !json.Valid(body) {
		return nil, malformed(op, "invalid JSON", nil)
	}
	return body, nil
}
