package planparse

import (
	"encoding/json"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/joseph-ayodele/curriculum-pipeline/internal/llm"
)

// itemSchema describes a normalized item as it is persisted.
var itemSchema = mustCompile(map[string]any{
	"type":     "object",
	"required": []string{"grado", "grado_normalizado", "area", "descripcion", "metadata"},
	"properties": map[string]any{
		"grado":             map[string]any{"type": []string{"string", "null"}, "minLength": 1},
		"grado_normalizado": map[string]any{"type": []string{"string", "null"}, "minLength": 1},
		"area":              map[string]any{"type": "string", "minLength": 1, "maxLength": maxAreaRunes},
		"descripcion":       map[string]any{"type": "string", "minLength": 1},
		"metadata": map[string]any{
			"type":     "object",
			"required": []string{"fragment_index", "source"},
			"properties": map[string]any{
				"fragment_index": map[string]any{"type": "integer", "minimum": 0},
				"source":         map[string]any{"type": "string", "minLength": 1},
				"title":          map[string]any{"type": "string"},
				"period":         map[string]any{"type": "string"},
				"class_ideas":    map[string]any{"type": "array", "items": map[string]any{"type": "string"}},
			},
		},
	},
})

func mustCompile(schema map[string]any) *jsonschema.Schema {
	s, err := llm.CompileSchema(schema)
	if err != nil {
		panic(err)
	}
	return s
}

func validateItem(item any) error {
	b, err := json.Marshal(item)
	if err != nil {
		return err
	}
	return llm.ValidateJSONAgainstSchema(itemSchema, b)
}
