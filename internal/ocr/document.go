package ocr

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pdfcpu/pdfcpu/pkg/api"
)

const (
	// DefaultMaxFileSizeBytes is the default upload limit (50MB).
	DefaultMaxFileSizeBytes = 50 * 1024 * 1024
)

// Document is a local file queued for OCR.
type Document struct {
	Path string
	Size int64

	// LocalPages is the page count read from the file itself. Zero when the
	// file is not a PDF or could not be parsed.
	LocalPages int
}

// Name returns the base filename.
func (d *Document) Name() string {
	return filepath.Base(d.Path)
}

// Stem returns the base filename without its extension.
func (d *Document) Stem() string {
	return Stem(d.Path)
}

// Stem returns the base filename of path without its extension.
func Stem(path string) string {
	name := filepath.Base(path)
	return strings.TrimSuffix(name, filepath.Ext(name))
}

// SizeMB returns the size in mebibytes.
func (d *Document) SizeMB() float64 {
	return float64(d.Size) / 1024 / 1024
}

// StatDocument checks that path is a readable regular file no larger
// than maxSize bytes. A maxSize of zero disables the size check.
func StatDocument(path string, maxSize int64) (*Document, error) {
	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrDocumentNotFound, path)
		}
		return nil, fmt.Errorf("error accessing document: %w", err)
	}

	if !info.Mode().IsRegular() {
		return nil, fmt.Errorf("%w: %s", ErrNotAFile, path)
	}
	if maxSize > 0 && info.Size() > maxSize {
		return nil, fmt.Errorf("%w: %d bytes (limit %d)", ErrDocumentTooLarge, info.Size(), maxSize)
	}

	return &Document{
		Path: path,
		Size: info.Size(),
	}, nil
}

// IsPDF reports whether data starts with a PDF header.
func IsPDF(data []byte) bool {
	return bytes.HasPrefix(data, []byte("%PDF"))
}

// CountPDFPages returns the page count of an in-memory PDF.
func CountPDFPages(data []byte) (int, error) {
	if !IsPDF(data) {
		return 0, fmt.Errorf("missing PDF header")
	}
	pages, err := api.PageCount(bytes.NewReader(data), nil)
	if err != nil {
		return 0, fmt.Errorf("failed to count PDF pages: %w", err)
	}
	return pages, nil
}
