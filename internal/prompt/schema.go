package prompt

import "github.com/KaramelBytes/dataagent-cli/internal/chart"

// SchemaName identifies the reply schema in provider requests.
const SchemaName = "analysis_response"

// ResponseSchema returns the JSON Schema every reply must satisfy: a string
// "answer" and an optional, nullable "visualization" chart descriptor.
func ResponseSchema() map[string]any {
	kinds := make([]any, 0, len(chart.Kinds))
	for _, k := range chart.Kinds {
		kinds = append(kinds, string(k))
	}
	series := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"dataKey": map[string]any{"type": "string"},
			"name":    map[string]any{"type": "string"},
			"color":   map[string]any{"type": "string"},
		},
		"required": []any{"dataKey"},
	}
	visualization := map[string]any{
		"type": []any{"object", "null"},
		"properties": map[string]any{
			"type":        map[string]any{"type": "string", "enum": kinds},
			"xAxisKey":    map[string]any{"type": "string"},
			"series":      map[string]any{"type": "array", "items": series},
			"title":       map[string]any{"type": "string"},
			"description": map[string]any{"type": "string"},
		},
		"required": []any{"type", "xAxisKey", "series"},
	}
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"answer":        map[string]any{"type": "string"},
			"visualization": visualization,
		},
		"required": []any{"answer"},
	}
}
