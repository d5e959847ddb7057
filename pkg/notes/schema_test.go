package notes

import (
	"testing"

	"github.com/matzehuels/scribetree/pkg/errors"
)

func TestValidatorAcceptsCompleteNote(t *testing.T) {
	v, err := NewValidator(Schema())
	if err != nil {
		t.Fatalf("NewValidator: %v", err)
	}

	raw := `{
		"summary": "S",
		"logistic": "L",
		"children": [
			{"id": "a", "title": "A", "content": "x", "children": [
				{"id": "b", "title": "B", "content": "y", "children": []}
			]}
		]
	}`
	if err := v.Validate(raw); err != nil {
		t.Errorf("Validate: %v", err)
	}
	if err := v.Validate("```json\n" + raw + "\n```"); err != nil {
		t.Errorf("Validate(fenced): %v", err)
	}
}

func TestValidatorRejects(t *testing.T) {
	v, err := NewValidator(Schema())
	if err != nil {
		t.Fatalf("NewValidator: %v", err)
	}

	tests := []struct {
		name string
		raw  string
	}{
		{"not json", `{"summary": "S"`},
		{"missing logistic", `{"summary": "S", "children": []}`},
		{"wrong type", `{"summary": 1, "logistic": "L", "children": []}`},
		{"nested missing title", `{"summary": "S", "logistic": "L", "children": [{"id": "a", "content": "x", "children": []}]}`},
		{"extra field", `{"summary": "S", "logistic": "L", "children": [], "extra": true}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.Validate(tt.raw)
			if !errors.Is(err, errors.ErrCodeModelSchema) {
				t.Errorf("Validate() = %v, want %s", err, errors.ErrCodeModelSchema)
			}
		})
	}
}

func TestExpansionSchema(t *testing.T) {
	v, err := NewValidator(ExpansionSchema())
	if err != nil {
		t.Fatalf("NewValidator: %v", err)
	}
	if err := v.Validate(`{"keyPoint": {"id": "n", "title": "T", "content": "C", "children": []}}`); err != nil {
		t.Errorf("Validate: %v", err)
	}
	if err := v.Validate(`{"keyPoint": {"title": "T"}}`); err == nil {
		t.Error("Validate() accepted incomplete key point")
	}
}
