package validate

import (
	"packsense/internal/mcp/contracts"
	"reflect"
	"testing"
)

func TestParseToolArgs_Hover(t *testing.T) {
	raw := map[string]any{
		"operation": "symbols.hover",
		"params": map[string]any{
			"uri":       " file:///fw/main.S ",
			"line":      float64(3),
			"character": float64(7),
		},
	}

	op, input, err := ParseToolArgs(contracts.ToolNamePacksense, raw)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if op != contracts.OperationSymbolsHover {
		t.Fatalf("expected operation %s, got %s", contracts.OperationSymbolsHover, op)
	}
	pos, ok := input.(contracts.PositionInput)
	if !ok {
		t.Fatalf("expected PositionInput, got %T", input)
	}
	expected := contracts.PositionInput{URI: "file:///fw/main.S", Line: 3, Character: 7}
	if !reflect.DeepEqual(pos, expected) {
		t.Fatalf("expected %+v, got %+v", expected, pos)
	}
}

func TestParseToolArgs_References(t *testing.T) {
	raw := map[string]any{
		"operation": "references",
		"params": map[string]any{
			"uri":                 "/fw/main.S",
			"line":                1,
			"character":           2,
			"include_declaration": true,
		},
	}
	input, err := ValidateToolArgs(contracts.ToolNamePacksense, raw)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	refs := input.(contracts.ReferencesInput)
	if !refs.IncludeDeclaration || refs.URI != "/fw/main.S" || refs.Line != 1 || refs.Character != 2 {
		t.Fatalf("unexpected references input: %+v", refs)
	}
}

func TestParseToolArgs_DocumentOpen(t *testing.T) {
	raw := map[string]any{
		"operation": string(contracts.OperationDocumentOpen),
		"params":    map[string]any{"uri": "untitled:1", "text": "ldi r16, 1\n", "version": 2},
	}
	input, err := ValidateToolArgs(contracts.ToolNamePacksense, raw)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	expected := contracts.DocumentOpenInput{URI: "untitled:1", Text: "ldi r16, 1\n", Version: 2}
	if !reflect.DeepEqual(input, expected) {
		t.Fatalf("expected %v, got %v", expected, input)
	}
}

func TestParseToolArgs_TargetAllowsEmptyURI(t *testing.T) {
	op, input, err := ParseToolArgs(contracts.ToolNamePacksense, map[string]any{"operation": "describe"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if op != contracts.OperationTargetDescribe {
		t.Fatalf("expected alias to resolve, got %s", op)
	}
	if input.(contracts.TargetInput).URI != "" {
		t.Fatalf("expected empty uri, got %+v", input)
	}
}

func TestParseToolArgs_Errors(t *testing.T) {
	tests := []struct {
		name string
		tool string
		raw  map[string]any
	}{
		{name: "missing tool", tool: "", raw: map[string]any{"operation": "hover"}},
		{name: "wrong tool", tool: "circular", raw: map[string]any{"operation": "hover"}},
		{name: "missing operation", tool: contracts.ToolNamePacksense, raw: map[string]any{}},
		{name: "unknown operation", tool: contracts.ToolNamePacksense, raw: map[string]any{"operation": "nope"}},
		{name: "params not object", tool: contracts.ToolNamePacksense, raw: map[string]any{"operation": "hover", "params": "x"}},
		{name: "missing uri", tool: contracts.ToolNamePacksense, raw: map[string]any{"operation": "hover", "params": map[string]any{"line": 1}}},
		{name: "negative line", tool: contracts.ToolNamePacksense, raw: map[string]any{"operation": "hover", "params": map[string]any{"uri": "a.S", "line": -1}}},
		{name: "fractional character", tool: contracts.ToolNamePacksense, raw: map[string]any{"operation": "hover", "params": map[string]any{"uri": "a.S", "character": 1.5}}},
		{name: "close without uri", tool: contracts.ToolNamePacksense, raw: map[string]any{"operation": "document.close"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := ParseToolArgs(tt.tool, tt.raw)
			if err == nil {
				t.Fatal("expected error")
			}
			toolErr, ok := err.(contracts.ToolError)
			if !ok {
				t.Fatalf("expected ToolError, got %T", err)
			}
			if toolErr.Code != contracts.ErrorInvalidArgument {
				t.Fatalf("expected invalid_argument, got %s", toolErr.Code)
			}
		})
	}
}

func TestNormalizeOperation(t *testing.T) {
	for _, op := range contracts.Operations {
		if got := NormalizeOperation(" " + string(op) + " "); got != op {
			t.Fatalf("expected %s to normalize to itself, got %s", op, got)
		}
	}
	if got := NormalizeOperation("Complete"); got != contracts.OperationSymbolsCompletion {
		t.Fatalf("expected completion alias, got %s", got)
	}
}
