package ocr

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"ocrprobe/internal/mistral"
)

// ImageAnnotation is the decoded image annotation.
type ImageAnnotation = mistral.ImageAnnotation

// AnnotationValidator checks image annotations against a JSON schema.
type AnnotationValidator struct {
	schema *jsonschema.Schema
}

// AnnotationReport counts how the annotations of a result matched the schema.
type AnnotationReport struct {
	// Annotated is the number of images that carried an annotation.
	Annotated int

	// Conformant is the number of annotations that validated.
	Conformant int

	Failures []AnnotationFailure
}

// AnnotationFailure is an annotation that did not validate.
type AnnotationFailure struct {
	Page    int
	Image   int
	ImageID string
	Err     error
}

// NewAnnotationValidator compiles schemaRaw.
func NewAnnotationValidator(schemaRaw json.RawMessage) (*AnnotationValidator, error) {
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("image_annotation.json", bytes.NewReader(schemaRaw)); err != nil {
		return nil, fmt.Errorf("failed to load annotation schema: %w", err)
	}
	schema, err := compiler.Compile("image_annotation.json")
	if err != nil {
		return nil, fmt.Errorf("failed to compile annotation schema: %w", err)
	}
	return &AnnotationValidator{schema: schema}, nil
}

// NewImageAnnotationValidator compiles the schema sent with every OCR request.
func NewImageAnnotationValidator() (*AnnotationValidator, error) {
	return NewAnnotationValidator(mistral.ImageAnnotationSchema)
}

// Validate checks a single annotation document.
func (v *AnnotationValidator) Validate(annotation string) error {
	var doc any
	if err := json.Unmarshal([]byte(annotation), &doc); err != nil {
		return fmt.Errorf("annotation is not valid JSON: %w", err)
	}
	if err := v.schema.Validate(doc); err != nil {
		return fmt.Errorf("annotation does not match schema: %w", err)
	}
	return nil
}

// Check validates every image annotation in result. Images without an
// annotation are not counted.
func (v *AnnotationValidator) Check(result *Result) AnnotationReport {
	var report AnnotationReport
	if result == nil {
		return report
	}

	for pageIdx, page := range result.Pages {
		for imgIdx, img := range page.Images {
			if img.ImageAnnotation == nil {
				continue
			}
			report.Annotated++
			if err := v.Validate(*img.ImageAnnotation); err != nil {
				report.Failures = append(report.Failures, AnnotationFailure{
					Page:    pageIdx + 1,
					Image:   imgIdx + 1,
					ImageID: img.ID,
					Err:     err,
				})
				continue
			}
			report.Conformant++
		}
	}
	return report
}
