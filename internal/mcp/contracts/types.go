package contracts

import "packsense/internal/core/ports"

const (
	ToolNamePacksense = "packsense"
	ContractVersion   = "v1"
)

type OperationID string

const (
	OperationDocumentOpen      OperationID = "document.open"
	OperationDocumentChange    OperationID = "document.change"
	OperationDocumentClose     OperationID = "document.close"
	OperationSymbolsHover      OperationID = "symbols.hover"
	OperationSymbolsDefinition OperationID = "symbols.definition"
	OperationSymbolsDocument   OperationID = "symbols.document"
	OperationSymbolsWorkspace  OperationID = "symbols.workspace"
	OperationSymbolsReferences OperationID = "symbols.references"
	OperationSymbolsCompletion OperationID = "symbols.completion"
	OperationIndexRebuild      OperationID = "index.rebuild"
	OperationTargetDescribe    OperationID = "target.describe"
)

// Operations lists every operation in the order tools/list reports them.
var Operations = []OperationID{
	OperationDocumentOpen,
	OperationDocumentChange,
	OperationDocumentClose,
	OperationSymbolsHover,
	OperationSymbolsDefinition,
	OperationSymbolsDocument,
	OperationSymbolsWorkspace,
	OperationSymbolsReferences,
	OperationSymbolsCompletion,
	OperationIndexRebuild,
	OperationTargetDescribe,
}

type DocumentOpenInput struct {
	URI     string `json:"uri"`
	Text    string `json:"text"`
	Version int    `json:"version,omitempty"`
}

type DocumentChangeInput struct {
	URI     string `json:"uri"`
	Text    string `json:"text"`
	Version int    `json:"version"`
}

type DocumentCloseInput struct {
	URI string `json:"uri"`
}

type DocumentOutput struct {
	URI    string `json:"uri"`
	Status string `json:"status"`
}

// PositionInput addresses a token in a document. Line and Character are
// 0-based.
type PositionInput struct {
	URI       string `json:"uri"`
	Line      int    `json:"line"`
	Character int    `json:"character"`
}

func (p PositionInput) Position() ports.Position {
	return ports.Position{Line: p.Line, Character: p.Character}
}

type ReferencesInput struct {
	PositionInput
	IncludeDeclaration bool `json:"include_declaration,omitempty"`
}

type DocumentSymbolsInput struct {
	URI string `json:"uri"`
}

type WorkspaceSymbolsInput struct {
	Query string `json:"query"`
}

// TargetInput selects a scope by any document inside it. An empty URI
// selects the first workspace root.
type TargetInput struct {
	URI string `json:"uri,omitempty"`
}

type HoverOutput struct {
	Found bool         `json:"found"`
	Hover *ports.Hover `json:"hover,omitempty"`
}

type LocationsOutput struct {
	Count     int              `json:"count"`
	Locations []ports.Location `json:"locations"`
}

type DocumentSymbolsOutput struct {
	Count   int                    `json:"count"`
	Symbols []ports.DocumentSymbol `json:"symbols"`
}

type WorkspaceSymbolsOutput struct {
	Count   int                     `json:"count"`
	Symbols []ports.WorkspaceSymbol `json:"symbols"`
}

type ReferencesOutput struct {
	Count      int               `json:"count"`
	References []ports.Reference `json:"references"`
}

type CompletionOutput struct {
	Count int                    `json:"count"`
	Items []ports.CompletionItem `json:"items"`
}

type TargetOutput struct {
	Target ports.TargetDescription `json:"target"`
}

type ToolError struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}

func (e ToolError) Error() string {
	return e.Message
}

const (
	ErrorInvalidArgument = "invalid_argument"
	ErrorNotFound        = "not_found"
	ErrorInternal        = "internal"
	ErrorUnavailable     = "unavailable"
	ErrorBuildFailed     = "index_build_failed"
)
