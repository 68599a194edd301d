package mistral

import "encoding/json"

// ImageAnnotationSchema is the JSON schema every annotated image region must
// follow. Descriptions are in Brazilian Portuguese so the service answers in it.
var ImageAnnotationSchema = json.RawMessage(`{
  "type": "object",
  "properties": {
    "image_type": {
      "type": "string",
      "description": "Tipo da imagem: gráfico, tabela, figura, diagrama, foto, esquema, fluxograma, etc."
    },
    "short_description": {
      "type": "string",
      "description": "Descrição curta e objetiva da imagem em português (máximo 100 caracteres)"
    },
    "summary": {
      "type": "string",
      "description": "Resumo detalhado do conteúdo visual, dados, texto e elementos importantes da imagem em português"
    }
  },
  "required": ["image_type", "short_description", "summary"],
  "additionalProperties": false
}`)

// ResponseFormat is a structured output contract passed to the OCR endpoint.
type ResponseFormat struct {
	Type       string           `json:"type"`
	JSONSchema JSONSchemaFormat `json:"json_schema"`
}

// JSONSchemaFormat names and wraps a JSON schema.
type JSONSchemaFormat struct {
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	Schema      json.RawMessage `json:"schema"`
	Strict      bool            `json:"strict"`
}

// ImageAnnotation is the decoded form of an annotation following ImageAnnotationSchema.
type ImageAnnotation struct {
	ImageType        string `json:"image_type"`
	ShortDescription string `json:"short_description"`
	Summary          string `json:"summary"`
}

// ImageAnnotationFormat returns the bbox annotation format sent with every OCR request.
func ImageAnnotationFormat() *ResponseFormat {
	return &ResponseFormat{
		Type: "json_schema",
		JSONSchema: JSONSchemaFormat{
			Name:        "ImageAnnotation",
			Description: "Anotação detalhada de imagem em português brasileiro",
			Schema:      ImageAnnotationSchema,
			Strict:      false,
		},
	}
}
