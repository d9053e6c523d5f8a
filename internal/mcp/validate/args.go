package validate

import (
	"encoding/json"
	"fmt"
	"packsense/internal/mcp/contracts"
	"strings"
)

const (
	maxURILength   = 4096
	maxQueryLength = 200
	maxTextBytes   = 8 << 20
	maxLine        = 1 << 20
	maxCharacter   = 1 << 16
)

func ValidateToolArgs(tool string, raw map[string]any) (any, error) {
	_, input, err := ParseToolArgs(tool, raw)
	return input, err
}

func ParseToolArgs(tool string, raw map[string]any) (contracts.OperationID, any, error) {
	if strings.TrimSpace(tool) == "" {
		return "", nil, contracts.ToolError{Code: contracts.ErrorInvalidArgument, Message: "tool name is required"}
	}
	if tool != contracts.ToolNamePacksense {
		return "", nil, contracts.ToolError{Code: contracts.ErrorInvalidArgument, Message: fmt.Sprintf("unsupported tool: %s", tool)}
	}
	if raw == nil {
		raw = map[string]any{}
	}

	operationRaw, ok := raw["operation"].(string)
	if !ok || strings.TrimSpace(operationRaw) == "" {
		return "", nil, contracts.ToolError{Code: contracts.ErrorInvalidArgument, Message: "operation is required"}
	}
	operation := NormalizeOperation(operationRaw)

	params := map[string]any{}
	if rawParams, ok := raw["params"]; ok && rawParams != nil {
		if typed, ok := rawParams.(map[string]any); ok {
			params = typed
		} else {
			return "", nil, contracts.ToolError{Code: contracts.ErrorInvalidArgument, Message: "params must be an object"}
		}
	}

	switch operation {
	case contracts.OperationDocumentOpen:
		var input contracts.DocumentOpenInput
		if err := decodeParams(params, &input); err != nil {
			return "", nil, err
		}
		if err := checkURI(&input.URI); err != nil {
			return "", nil, err
		}
		if err := checkText(input.Text); err != nil {
			return "", nil, err
		}
		return operation, input, nil
	case contracts.OperationDocumentChange:
		var input contracts.DocumentChangeInput
		if err := decodeParams(params, &input); err != nil {
			return "", nil, err
		}
		if err := checkURI(&input.URI); err != nil {
			return "", nil, err
		}
		if err := checkText(input.Text); err != nil {
			return "", nil, err
		}
		return operation, input, nil
	case contracts.OperationDocumentClose:
		var input contracts.DocumentCloseInput
		if err := decodeParams(params, &input); err != nil {
			return "", nil, err
		}
		if err := checkURI(&input.URI); err != nil {
			return "", nil, err
		}
		return operation, input, nil
	case contracts.OperationSymbolsHover, contracts.OperationSymbolsDefinition, contracts.OperationSymbolsCompletion:
		var input contracts.PositionInput
		if err := decodeParams(params, &input); err != nil {
			return "", nil, err
		}
		if err := checkPosition(&input); err != nil {
			return "", nil, err
		}
		return operation, input, nil
	case contracts.OperationSymbolsReferences:
		var input contracts.ReferencesInput
		if err := decodeParams(params, &input); err != nil {
			return "", nil, err
		}
		if err := checkPosition(&input.PositionInput); err != nil {
			return "", nil, err
		}
		return operation, input, nil
	case contracts.OperationSymbolsDocument:
		var input contracts.DocumentSymbolsInput
		if err := decodeParams(params, &input); err != nil {
			return "", nil, err
		}
		if err := checkURI(&input.URI); err != nil {
			return "", nil, err
		}
		return operation, input, nil
	case contracts.OperationSymbolsWorkspace:
		var input contracts.WorkspaceSymbolsInput
		if err := decodeParams(params, &input); err != nil {
			return "", nil, err
		}
		input.Query = strings.TrimSpace(input.Query)
		if len(input.Query) > maxQueryLength {
			return "", nil, contracts.ToolError{Code: contracts.ErrorInvalidArgument, Message: "query is too long"}
		}
		return operation, input, nil
	case contracts.OperationIndexRebuild, contracts.OperationTargetDescribe:
		var input contracts.TargetInput
		if err := decodeParams(params, &input); err != nil {
			return "", nil, err
		}
		input.URI = strings.TrimSpace(input.URI)
		if len(input.URI) > maxURILength {
			return "", nil, contracts.ToolError{Code: contracts.ErrorInvalidArgument, Message: "uri is too long"}
		}
		return operation, input, nil
	default:
		return "", nil, contracts.ToolError{Code: contracts.ErrorInvalidArgument, Message: fmt.Sprintf("unsupported operation: %s", operation)}
	}
}

// NormalizeOperation maps an operation name or one of its short aliases to
// its canonical identifier. Unknown names are returned lowercased.
func NormalizeOperation(raw string) contracts.OperationID {
	value := strings.ToLower(strings.TrimSpace(raw))
	switch value {
	case "open", "document.open":
		return contracts.OperationDocumentOpen
	case "change", "document.change":
		return contracts.OperationDocumentChange
	case "close", "document.close":
		return contracts.OperationDocumentClose
	case "hover", "symbols.hover":
		return contracts.OperationSymbolsHover
	case "definition", "symbols.definition":
		return contracts.OperationSymbolsDefinition
	case "outline", "symbols.document":
		return contracts.OperationSymbolsDocument
	case "search", "symbols.workspace":
		return contracts.OperationSymbolsWorkspace
	case "references", "symbols.references":
		return contracts.OperationSymbolsReferences
	case "complete", "completion", "symbols.completion":
		return contracts.OperationSymbolsCompletion
	case "rebuild", "index.rebuild":
		return contracts.OperationIndexRebuild
	case "describe", "target.describe":
		return contracts.OperationTargetDescribe
	default:
		return contracts.OperationID(value)
	}
}

func decodeParams(params map[string]any, out any) error {
	data, err := json.Marshal(params)
	if err != nil {
		return contracts.ToolError{Code: contracts.ErrorInvalidArgument, Message: "invalid params encoding"}
	}
	if err := json.Unmarshal(data, out); err != nil {
		return contracts.ToolError{Code: contracts.ErrorInvalidArgument, Message: "invalid params", Details: map[string]any{"error": err.Error()}}
	}
	return nil
}

func checkURI(uri *string) error {
	*uri = strings.TrimSpace(*uri)
	if *uri == "" {
		return contracts.ToolError{Code: contracts.ErrorInvalidArgument, Message: "uri is required"}
	}
	if len(*uri) > maxURILength {
		return contracts.ToolError{Code: contracts.ErrorInvalidArgument, Message: "uri is too long"}
	}
	return nil
}

func checkText(text string) error {
	if len(text) > maxTextBytes {
		return contracts.ToolError{Code: contracts.ErrorInvalidArgument, Message: "text is too large"}
	}
	return nil
}

func checkPosition(in *contracts.PositionInput) error {
	if err := checkURI(&in.URI); err != nil {
		return err
	}
	if in.Line < 0 || in.Line > maxLine {
		return outOfRange("line")
	}
	if in.Character < 0 || in.Character > maxCharacter {
		return outOfRange("character")
	}
	return nil
}

func outOfRange(field string) error {
	return contracts.ToolError{Code: contracts.ErrorInvalidArgument, Message: fmt.Sprintf("%s is out of range", field)}
}
