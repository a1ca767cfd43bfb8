package planparse

import (
	"encoding/json"

	"github.com/joseph-ayodele/curriculum-pipeline/internal/llm"
)

// listKeys are the object keys that may wrap the item list, in lookup order.
var listKeys = []string{"items", "plan_items", "data", "objetivos"}

// ParseResponse pulls plan item objects out of free-form model output. Anything
// that does not decode to a list of objects yields no items.
func ParseResponse(raw string) []map[string]any {
	candidate := llm.ExtractJSON(raw)
	if candidate == "" {
		return nil
	}
	var data any
	if err := json.Unmarshal([]byte(candidate), &data); err != nil {
		return nil
	}
	switch v := data.(type) {
	case []any:
		return objects(v)
	case map[string]any:
		for _, key := range listKeys {
			if list, ok := v[key].([]any); ok {
				return objects(list)
			}
		}
	}
	return nil
}

func objects(list []any) []map[string]any {
	out := make([]map[string]any, 0, len(list))
	for _, it := range list {
		if m, ok := it.(map[string]any); ok {
			out = append(out, m)
		}
	}
	return out
}
