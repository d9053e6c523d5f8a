package query

import (
	"context"
	"packsense/internal/core/ports"
	"packsense/internal/engine/scanner"
	"packsense/internal/engine/symbols"
	"strings"
	"time"
)

// DocumentSymbols lists every local definition of doc in source order.
func (e *Engine) DocumentSymbols(_ context.Context, doc ports.Document) ([]ports.DocumentSymbol, error) {
	defer observe("document_symbols", time.Now())
	table := e.locals.Get(doc)
	if table == nil || len(table.Ordered) == 0 {
		return nil, nil
	}
	lines := scanner.SplitLines(doc.Text())
	out := make([]ports.DocumentSymbol, 0, len(table.Ordered))
	for _, occ := range table.Ordered {
		line := occ.Line - 1
		lineLen := 0
		if line < len(lines) {
			lineLen = len(lines[line])
		}
		out = append(out, ports.DocumentSymbol{
			Name: occ.Name,
			Kind: ports.KindOf(occ.Kind),
			Range: ports.Range{
				Start: ports.Position{Line: line},
				End:   ports.Position{Line: line, Character: lineLen},
			},
			SelectionRange: ports.Range{
				Start: ports.Position{Line: line, Character: occ.Column},
				End:   ports.Position{Line: line, Character: occ.Column + len(occ.Name)},
			},
		})
	}
	return out, nil
}

type localKey struct {
	path string
	line int
	col  int
}

type packKey struct {
	path string
	line int
	name string
}

// WorkspaceSymbols matches query as a case-insensitive substring against
// local symbols of workspace files and open documents, then against pack
// symbols of every known scope. An empty query returns nothing.
func (e *Engine) WorkspaceSymbols(ctx context.Context, query string) ([]ports.WorkspaceSymbol, error) {
	defer observe("workspace_symbols", time.Now())
	needle := strings.ToLower(strings.TrimSpace(query))
	if needle == "" {
		return nil, nil
	}
	s := e.Settings()
	limit := capOf(s.MaxWorkspaceSymbols, 300)
	var out []ports.WorkspaceSymbol

	seenLocal := make(map[localKey]bool)
	addLocal := func(path string, table *symbols.Table) bool {
		for _, occ := range table.Ordered {
			if len(out) >= limit {
				return false
			}
			if !lowerContains(occ.Name, needle) {
				continue
			}
			loc := occurrenceLocation(occ, path)
			k := localKey{path, loc.Range.Start.Line, loc.Range.Start.Character}
			if seenLocal[k] {
				continue
			}
			seenLocal[k] = true
			out = append(out, ports.WorkspaceSymbol{Name: occ.Name, Kind: ports.KindOf(occ.Kind), Location: loc, Container: "workspace"})
		}
		return len(out) < limit
	}

	open := make(map[string]ports.Document)
	for _, d := range e.ws.OpenDocuments() {
		open[docLocationPath(d)] = d
	}
	visited := make(map[string]bool)
	for _, p := range e.candidateFiles(ctx, s) {
		if ctx.Err() != nil {
			return out, nil
		}
		visited[p] = true
		var table *symbols.Table
		if d, ok := open[p]; ok {
			table = e.locals.Get(d)
		} else if text, ok := e.ws.ReadText(p); ok {
			table = symbols.Build(text, 0)
		} else {
			continue
		}
		if !addLocal(p, table) {
			return out, nil
		}
	}
	for _, d := range e.ws.OpenDocuments() {
		if ctx.Err() != nil {
			return out, nil
		}
		p := docLocationPath(d)
		if visited[p] {
			continue
		}
		visited[p] = true
		if !addLocal(p, e.locals.Get(d)) {
			return out, nil
		}
	}

	if !s.WorkspaceIncludePack || e.packs == nil {
		return out, nil
	}
	seenPack := make(map[packKey]bool)
	for _, ix := range e.packs.Known() {
		if ctx.Err() != nil {
			return out, nil
		}
		container := ix.Resolution.Device
		if container == "" {
			container = "pack"
		}
		for _, name := range ix.Names {
			if !lowerContains(name, needle) {
				continue
			}
			for _, occ := range ix.Symbols[name] {
				if len(out) >= limit {
					return out, nil
				}
				k := packKey{occ.File, occ.Line, occ.Name}
				if seenPack[k] {
					continue
				}
				seenPack[k] = true
				out = append(out, ports.WorkspaceSymbol{
					Name:      occ.Name,
					Kind:      ports.KindOf(occ.Kind),
					Location:  occurrenceLocation(occ, occ.File),
					Container: container,
				})
			}
		}
	}
	return out, nil
}
