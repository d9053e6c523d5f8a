package schema

import "packsense/internal/mcp/contracts"

type ToolDefinition struct {
	Name        string         `json:"name"`
	Description string         `json:"description,omitempty"`
	InputSchema map[string]any `json:"input_schema"`
	Version     string         `json:"version"`
}

func BuildToolDefinitions(allowed func(contracts.OperationID) bool) []ToolDefinition {
	operations := make([]string, 0, len(contracts.Operations))
	for _, op := range contracts.Operations {
		if allowed != nil && !allowed(op) {
			continue
		}
		operations = append(operations, string(op))
	}

	return []ToolDefinition{
		{
			Name:        contracts.ToolNamePacksense,
			Description: "Symbol lookups for AVR assembly sources and device family packs.",
			Version:     contracts.ContractVersion,
			InputSchema: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"operation": map[string]any{
						"type":        "string",
						"description": "Operation identifier (e.g., symbols.hover).",
						"enum":        operations,
					},
					"params": map[string]any{
						"type": "object",
						"properties": map[string]any{
							"uri":                 map[string]any{"type": "string", "description": "Document URI or file path."},
							"text":                map[string]any{"type": "string"},
							"version":             map[string]any{"type": "integer"},
							"line":                map[string]any{"type": "integer", "minimum": 0, "description": "0-based line."},
							"character":           map[string]any{"type": "integer", "minimum": 0, "description": "0-based character."},
							"query":               map[string]any{"type": "string"},
							"include_declaration": map[string]any{"type": "boolean"},
						},
						"additionalProperties": true,
					},
				},
				"required": []string{"operation"},
			},
		},
	}
}
