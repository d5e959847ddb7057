package notes

import (
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/kaptinlin/jsonschema"

	"github.com/matzehuels/scribetree/pkg/errors"
)

func keyPointDef() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"id":      map[string]any{"type": "string", "description": "uuid"},
			"title":   map[string]any{"type": "string", "description": "The title of the key point"},
			"content": map[string]any{"type": "string", "description": "The content of the key point"},
			"children": map[string]any{
				"type":        "array",
				"description": "The sub key points of the key point",
				"items":       map[string]any{"$ref": "#/$defs/keyPoint"},
			},
		},
		"required":             []any{"id", "title", "content", "children"},
		"additionalProperties": false,
	}
}

// Schema returns the JSON Schema of a complete LectureNote. The key point
// definition is recursive through $defs.
func Schema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"summary":  map[string]any{"type": "string", "description": "The summary of the lecture"},
			"logistic": map[string]any{"type": "string", "description": "The logistic of the lecture, including homework, exam, etc."},
			"children": map[string]any{
				"type":        "array",
				"description": "The key points of the lecture",
				"items":       map[string]any{"$ref": "#/$defs/keyPoint"},
			},
		},
		"required":             []any{"summary", "logistic", "children"},
		"additionalProperties": false,
		"$defs":                map[string]any{"keyPoint": keyPointDef()},
	}
}

// ExpansionSchema returns the JSON Schema of an [Expansion].
func ExpansionSchema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"keyPoint": map[string]any{"$ref": "#/$defs/keyPoint"},
		},
		"required":             []any{"keyPoint"},
		"additionalProperties": false,
		"$defs":                map[string]any{"keyPoint": keyPointDef()},
	}
}

// Validator checks final model output against a compiled JSON Schema.
type Validator struct {
	schema *jsonschema.Schema
}

// NewValidator compiles schema.
func NewValidator(schema map[string]any) (*Validator, error) {
	raw, err := json.Marshal(schema)
	if err != nil {
		return nil, fmt.Errorf("marshal schema: %w", err)
	}
	compiled, err := jsonschema.NewCompiler().Compile(raw)
	if err != nil {
		return nil, fmt.Errorf("compile schema: %w", err)
	}
	return &Validator{schema: compiled}, nil
}

// Validate checks raw model output. Code fences are stripped first.
// Failures carry the MODEL_SCHEMA_VIOLATION code.
func (v *Validator) Validate(raw string) error {
	var data any
	if err := json.UnmarshalFromString(StripFence(raw), &data); err != nil {
		return errors.Wrap(errors.ErrCodeModelSchema, err, "model output is not valid JSON")
	}

	result := v.schema.Validate(data)
	if result.IsValid() {
		return nil
	}

	msgs := make([]string, 0, len(result.Errors))
	for _, field := range slices.Sorted(maps.Keys(result.Errors)) {
		msgs = append(msgs, fmt.Sprintf("%s: %s", field, result.Errors[field].Message))
	}
	return errors.New(errors.ErrCodeModelSchema, "model output violates schema: %s", strings.Join(msgs, "; "))
}
