package httpx

import (
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

const batchRequestSchema = `{
  "type": "object",
  "required": ["vulnerableIds", "questionsId"],
  "additionalProperties": false,
  "properties": {
    "vulnerableIds": {
      "type": "array",
      "minItems": 1,
      "maxItems": 1000,
      "items": {"type": "string", "minLength": 1}
    },
    "questionsId": {"type": "string", "minLength": 1},
    "accountId": {"type": "string"}
  }
}`

const startRequestSchema = `{
  "type": "object",
  "additionalProperties": false,
  "properties": {
    "accountId": {"type": "string"}
  }
}`

const schemaRootField = "(root)"

var (
	batchSchema = mustSchema(batchRequestSchema)
	startSchema = mustSchema(startRequestSchema)
)

// schemaValidator is a compiled request schema.
type schemaValidator struct {
	schema *gojsonschema.Schema
}

func mustSchema(raw string) schemaValidator {
	s, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(raw))
	if err != nil {
		panic(fmt.Sprintf("invalid embedded schema: %v", err))
	}
	return schemaValidator{schema: s}
}

// ValidationErrorItem is one schema violation in a request body.
type ValidationErrorItem struct {
	Path    string `json:"path"`
	Message string `json:"message"`
	Value   any    `json:"value,omitempty"`
}

// SchemaError reports a request body that does not match its schema.
type SchemaError struct {
	Items []ValidationErrorItem
}

func (e *SchemaError) Error() string {
	if len(e.Items) == 0 {
		return "request body does not match schema"
	}
	msgs := make([]string, 0, len(e.Items))
	for _, it := range e.Items {
		msgs = append(msgs, it.Path+": "+it.Message)
	}
	return strings.Join(msgs, "; ")
}

// validate checks raw JSON against the schema. An empty body is validated as {}.
func (v schemaValidator) validate(raw []byte) error {
	doc := strings.TrimSpace(string(raw))
	if doc == "" {
		doc = "{}"
	}
	res, err := v.schema.Validate(gojsonschema.NewStringLoader(doc))
	if err != nil {
		return fmt.Errorf("invalid JSON: %w", err)
	}
	if res.Valid() {
		return nil
	}
	items := make([]ValidationErrorItem, 0, len(res.Errors()))
	for _, item := range res.Errors() {
		items = append(items, ValidationErrorItem{
			Path:    resultPath(item),
			Message: item.Description(),
			Value:   item.Value(),
		})
	}
	return &SchemaError{Items: items}
}

// resultPath names the offending property. Missing and unexpected properties
// are reported against their parent, so the property name is appended.
func resultPath(item gojsonschema.ResultError) string {
	field := item.Field()
	switch item.Type() {
	case "required", "additional_property_not_allowed":
		prop, _ := item.Details()["property"].(string)
		if prop == "" {
			return field
		}
		if field == "" || field == schemaRootField {
			return prop
		}
		return field + "." + prop
	}
	return field
}
