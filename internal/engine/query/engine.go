// # internal/engine/query/engine.go
package query

import (
	"context"
	"errors"
	"log/slog"
	"packsense/internal/core/ports"
	"packsense/internal/engine/index"
	"packsense/internal/engine/scanner"
	"packsense/internal/engine/symbols"
	"packsense/internal/shared/observability"
	"strings"
	"sync"
	"time"
)

// Settings are the feature toggles and caps the queries honor.
type Settings struct {
	CompletionEnabled     bool
	InstructionCompletion bool
	ReferencesEnabled     bool
	WorkspaceIncludePack  bool

	MaxHoverResults     int
	MaxCompletionItems  int
	MaxScanFiles        int
	MaxWorkspaceSymbols int
	MaxReferenceResults int

	Include string
	Exclude string
}

func DefaultSettings() Settings {
	return Settings{
		CompletionEnabled:     true,
		InstructionCompletion: true,
		ReferencesEnabled:     true,
		WorkspaceIncludePack:  true,
		MaxHoverResults:       6,
		MaxCompletionItems:    200,
		MaxScanFiles:          400,
		MaxWorkspaceSymbols:   300,
		MaxReferenceResults:   500,
		Include:               "**/*.{s,S,asm,inc,sx}",
	}
}

// IndexSource provides pack indexes per scope.
type IndexSource interface {
	Get(ctx context.Context, scope index.Scope, force bool) (*index.Index, error)
	Known() []*index.Index
}

// Engine answers symbol queries by merging local tables with pack indexes.
type Engine struct {
	ws     ports.Workspace
	locals *symbols.Cache
	packs  IndexSource
	logger *slog.Logger

	mu       sync.RWMutex
	settings Settings
}

func NewEngine(ws ports.Workspace, locals *symbols.Cache, packs IndexSource, settings Settings, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	if locals == nil {
		locals = symbols.NewCache()
	}
	return &Engine{ws: ws, locals: locals, packs: packs, settings: settings, logger: logger}
}

func (e *Engine) Settings() Settings {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.settings
}

func (e *Engine) SetSettings(s Settings) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.settings = s
}

// ScopeOf maps a document to its indexing scope.
func (e *Engine) ScopeOf(doc ports.Document) index.Scope {
	return index.ScopeFor(e.ws.Roots(), doc.Path())
}

// packIndex returns the index for doc's scope. A cancelled wait yields a
// nil index and no error so callers return partial results.
func (e *Engine) packIndex(ctx context.Context, doc ports.Document) (*index.Index, error) {
	if e.packs == nil {
		return nil, nil
	}
	ix, err := e.packs.Get(ctx, e.ScopeOf(doc), false)
	if err != nil {
		if isCancel(err) {
			return nil, nil
		}
		return nil, err
	}
	return ix, nil
}

func isCancel(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

func observe(name string, start time.Time) {
	observability.QueryDuration.WithLabelValues(name).Observe(time.Since(start).Seconds())
}

// tokenAt returns the identifier under pos and its range.
func tokenAt(doc ports.Document, pos ports.Position) (string, ports.Range, bool) {
	rng, ok := doc.WordRangeAt(pos)
	if !ok || rng.Start.Line != rng.End.Line {
		return "", ports.Range{}, false
	}
	line, ok := lineAt(doc.Text(), rng.Start.Line)
	if !ok || rng.Start.Character < 0 || rng.End.Character > len(line) || rng.Start.Character >= rng.End.Character {
		return "", ports.Range{}, false
	}
	return line[rng.Start.Character:rng.End.Character], rng, true
}

// prefixAt returns the partial identifier ending at pos.
func prefixAt(doc ports.Document, pos ports.Position) string {
	line, ok := lineAt(doc.Text(), pos.Line)
	if !ok {
		return ""
	}
	end := min(max(pos.Character, 0), len(line))
	start := end
	for start > 0 && scanner.IsIdentChar(line[start-1]) {
		start--
	}
	return line[start:end]
}

func lineAt(text string, n int) (string, bool) {
	if n < 0 {
		return "", false
	}
	lines := scanner.SplitLines(text)
	if n >= len(lines) {
		return "", false
	}
	return lines[n], true
}

// docLocationPath is the path shown for a document's own occurrences.
func docLocationPath(doc ports.Document) string {
	if p := doc.Path(); p != "" {
		return p
	}
	return doc.URI()
}

// occurrenceLocation converts an occurrence to a location. Occurrences of
// the current buffer carry the sentinel file and take fallback instead.
func occurrenceLocation(occ scanner.Occurrence, fallback string) ports.Location {
	path := occ.File
	if path == scanner.CurrentDocument || path == "" {
		path = fallback
	}
	line := occ.Line - 1
	return ports.Location{
		Path: path,
		Range: ports.Range{
			Start: ports.Position{Line: line, Character: occ.Column},
			End:   ports.Position{Line: line, Character: occ.Column + len(occ.Name)},
		},
	}
}

func capOf(n, fallback int) int {
	if n <= 0 {
		return fallback
	}
	return n
}

// candidateFiles lists workspace files across roots, bounded by limit in
// total.
func (e *Engine) candidateFiles(ctx context.Context, s Settings) []string {
	limit := capOf(s.MaxScanFiles, 400)
	var out []string
	seen := make(map[string]bool)
	for _, root := range e.ws.Roots() {
		if len(out) >= limit || ctx.Err() != nil {
			break
		}
		found, err := e.ws.FindFiles(ctx, root, s.Include, s.Exclude, limit-len(out))
		if err != nil {
			if !isCancel(err) {
				e.logger.Warn("workspace file discovery failed", "root", root, "error", err)
			}
			continue
		}
		for _, p := range found {
			if !seen[p] {
				seen[p] = true
				out = append(out, p)
			}
		}
	}
	return out
}

func lowerContains(s, sub string) bool {
	return strings.Contains(strings.ToLower(s), sub)
}
