package ports

import (
	"context"
	"packsense/internal/engine/scanner"
	"time"
)

// Position is a 0-based line/character pair.
type Position struct {
	Line      int `json:"line"`
	Character int `json:"character"`
}

// Range is a half-open span [Start, End) on a single document.
type Range struct {
	Start Position `json:"start"`
	End   Position `json:"end"`
}

// Location points at a range inside a file. Path is a file-system path, or
// the document URI for buffers that are not backed by a file.
type Location struct {
	Path  string `json:"path"`
	Range Range  `json:"range"`
}

// Document is an editor buffer as seen by the symbol engine.
type Document interface {
	URI() string
	// Path is the backing file-system path, empty for untitled buffers.
	Path() string
	Version() int
	Text() string
	// WordRangeAt returns the identifier token range at pos.
	WordRangeAt(pos Position) (Range, bool)
}

// FileInfo is the subset of file metadata the engine needs.
type FileInfo struct {
	IsDir   bool
	Size    int64
	ModTime time.Time
}

// DirEntry is one directory listing element.
type DirEntry struct {
	Name  string
	IsDir bool
}

// FileSystem is the read-only file-system port. Missing paths are never an
// error: ReadFile returns (nil, nil), Stat returns false and ReadDir returns
// an empty listing. Only unexpected failures surface from ReadFile.
type FileSystem interface {
	ReadFile(path string) ([]byte, error)
	Exists(path string) bool
	Stat(path string) (FileInfo, bool)
	ReadDir(path string) []DirEntry
}

// Workspace exposes project roots, file discovery and the open-document set.
type Workspace interface {
	Roots() []string
	// FindFiles returns up to limit files under root matching include and not
	// matching exclude, in a stable order.
	FindFiles(ctx context.Context, root, include, exclude string, limit int) ([]string, error)
	// ReadText prefers open-buffer content over disk content.
	ReadText(path string) (string, bool)
	OpenDocuments() []Document
	Document(uri string) (Document, bool)
}

// EventKind classifies a workspace file event.
type EventKind string

const (
	EventCreate EventKind = "create"
	EventDelete EventKind = "delete"
	EventRename EventKind = "rename"
	EventSave   EventKind = "save"
)

// FileEvent is one classified workspace change.
type FileEvent struct {
	Kind EventKind `json:"kind"`
	Path string    `json:"path"`
}

// SymbolKind mirrors the scanner's definition forms for outward-facing
// results, plus the instruction band used by completion.
type SymbolKind string

const (
	SymbolInstruction SymbolKind = "instruction"
)

func KindOf(k scanner.Kind) SymbolKind { return SymbolKind(k) }

// Hover is rendered hover content for the token under the cursor.
type Hover struct {
	Symbol   string `json:"symbol"`
	Markdown string `json:"markdown"`
	Range    Range  `json:"range"`
}

// DocumentSymbol is one outline entry.
type DocumentSymbol struct {
	Name           string     `json:"name"`
	Kind           SymbolKind `json:"kind"`
	Range          Range      `json:"range"`
	SelectionRange Range      `json:"selectionRange"`
}

// WorkspaceSymbol is one workspace-wide search hit. Container is "workspace"
// for local symbols or the pack device for pack symbols.
type WorkspaceSymbol struct {
	Name      string     `json:"name"`
	Kind      SymbolKind `json:"kind"`
	Location  Location   `json:"location"`
	Container string     `json:"container"`
}

// CompletionSource tells which priority band produced an item.
type CompletionSource string

const (
	CompletionLocal       CompletionSource = "local"
	CompletionInstruction CompletionSource = "instruction"
	CompletionPack        CompletionSource = "pack"
)

type CompletionItem struct {
	Label  string           `json:"label"`
	Kind   SymbolKind       `json:"kind"`
	Source CompletionSource `json:"source"`
	Detail string           `json:"detail,omitempty"`
}

// Reference is one whole-token occurrence of a symbol.
type Reference struct {
	Location    Location `json:"location"`
	Declaration bool     `json:"declaration"`
}

// FileSpec is one pack file scheduled for scanning.
type FileSpec struct {
	Kind string `json:"kind"`
	Path string `json:"path"`
}

// TargetDescription summarizes the active resolution for a scope.
type TargetDescription struct {
	Scope           string     `json:"scope"`
	Device          string     `json:"device"`
	DeviceSource    string     `json:"deviceSource"`
	Library         string     `json:"library"`
	PackRoot        string     `json:"packRoot"`
	PackSource      string     `json:"packSource"`
	Descriptor      string     `json:"descriptor,omitempty"`
	Files           []FileSpec `json:"files"`
	SymbolCount     int        `json:"symbolCount"`
	OccurrenceCount int        `json:"occurrenceCount"`
	BuildID         string     `json:"buildId"`
	BuiltAt         time.Time  `json:"builtAt"`
}

// SymbolService is the driving port used by the tool server and the CLI.
// Query methods never fail because of index problems; they log and return
// empty results. Errors are reserved for unknown documents and for the two
// imperative operations.
type SymbolService interface {
	OpenDocument(uri, text string, version int) error
	ChangeDocument(uri, text string, version int) error
	CloseDocument(uri string) error

	Hover(ctx context.Context, uri string, pos Position) (*Hover, error)
	Definition(ctx context.Context, uri string, pos Position) ([]Location, error)
	DocumentSymbols(ctx context.Context, uri string) ([]DocumentSymbol, error)
	WorkspaceSymbols(ctx context.Context, query string) ([]WorkspaceSymbol, error)
	References(ctx context.Context, uri string, pos Position, includeDeclaration bool) ([]Reference, error)
	Completion(ctx context.Context, uri string, pos Position) ([]CompletionItem, error)

	RebuildIndex(ctx context.Context, uri string) (TargetDescription, error)
	DescribeActiveTarget(ctx context.Context, uri string) (TargetDescription, error)
}
