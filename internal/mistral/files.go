package mistral

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"
)

// File is the handle returned by the upload endpoint.
type File struct {
	ID        string `json:"id"`
	Object    string `json:"object,omitempty"`
	Bytes     int64  `json:"bytes,omitempty"`
	CreatedAt int64  `json:"created_at,omitempty"`
	Filename  string `json:"filename,omitempty"`
	Purpose   string `json:"purpose,omitempty"`
}

// SignedURL is a time-limited retrieval URL for an uploaded file.
type SignedURL struct {
	URL string `json:"url"`
}

// UploadFile uploads data as a multipart form with purpose "ocr".
func (c *Client) UploadFile(ctx context.Context, filename string, data []byte) (*File, error) {
	const op = "upload"

	var form bytes.Buffer
	writer := multipart.NewWriter(&form)

	if err := writer.WriteField("purpose", PurposeOCR); err != nil {
		return nil, fmt.Errorf("failed to write purpose field: %w", err)
	}
	part, err := writer.CreateFormFile("file", filename)
	if err != nil {
		return nil, fmt.Errorf("failed to create form file part: %w", err)
	}
	if _, err := part.Write(data); err != nil {
		return nil, fmt.Errorf("failed to write file data to form: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("failed to close multipart writer: %w", err)
	}

	payload := form.Bytes()
	contentType := writer.FormDataContentType()

	body, err := c.do(ctx, op, func(ctx context.Context) (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/files", bytes.NewReader(payload))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", contentType)
		return req, nil
	})
	if err != nil {
		return nil, err
	}

	var file File
	if err := json.Unmarshal(body, &file); err != nil {
		return nil, malformed(op, "invalid JSON", err)
	}
	if file.ID == "" {
		return nil, malformed(op, `missing "id"`, nil)
	}
	return &file, nil
}

// GetSignedURL requests a retrieval URL for fileID valid for expiryHours.
func (c *Client) GetSignedURL(ctx context.Context, fileID string, expiryHours int) (*SignedURL, error) {
	const op = "signed_url"

	if expiryHours <= 0 {
		expiryHours = DefaultSignedURLExpiryHours
	}
	endpoint := fmt.Sprintf("%s/files/%s/url?expiry=%s",
		c.baseURL, url.PathEscape(fileID), strconv.Itoa(expiryHours))

	body, err := c.do(ctx, op, func(ctx context.Context) (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Accept", "application/json")
		return req, nil
	})
	if err != nil {
		return nil, err
	}

	var signed SignedURL
	if err := json.Unmarshal(body, &signed); err != nil {
		return nil, malformed(op, "invalid JSON", err)
	}
	if signed.URL == "" {
		return nil, malformed(op, `missing "url"`, nil)
	}
	return &signed, nil
}
