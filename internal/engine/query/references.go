package query

import (
	"context"
	"packsense/internal/core/ports"
	"packsense/internal/engine/index"
	"packsense/internal/engine/scanner"
	"strings"
	"time"
)

type refKey struct {
	path string
	line int
	col  int
}

type refCollector struct {
	out   []ports.Reference
	seen  map[refKey]bool
	limit int
}

func (c *refCollector) full() bool { return len(c.out) >= c.limit }

func (c *refCollector) add(ref ports.Reference) {
	k := refKey{ref.Location.Path, ref.Location.Range.Start.Line, ref.Location.Range.Start.Character}
	if c.seen[k] || c.full() {
		return
	}
	c.seen[k] = true
	c.out = append(c.out, ref)
}

type refSource struct {
	path string
	text func() (string, bool)
}

// References finds whole-token uses of the symbol under pos across
// workspace files, open documents and doc itself when it is assembly. Definition sites are
// included only with includeDeclaration, which also appends the pack
// definitions. Cancellation returns what was found so far.
func (e *Engine) References(ctx context.Context, doc ports.Document, pos ports.Position, includeDeclaration bool) ([]ports.Reference, error) {
	defer observe("references", time.Now())
	s := e.Settings()
	if !s.ReferencesEnabled {
		return nil, nil
	}
	token, _, ok := tokenAt(doc, pos)
	if !ok {
		return nil, nil
	}

	c := &refCollector{seen: make(map[refKey]bool), limit: capOf(s.MaxReferenceResults, 500)}
	for _, src := range e.referenceSources(ctx, doc, s) {
		if ctx.Err() != nil || c.full() {
			return c.out, nil
		}
		text, ok := src.text()
		if !ok {
			continue
		}
		scanReferences(ctx, c, src.path, text, token, includeDeclaration)
	}
	if ctx.Err() != nil || !includeDeclaration {
		return c.out, nil
	}

	ix, err := e.packIndex(ctx, doc)
	if err != nil {
		e.logger.Warn("pack declarations unavailable for references", "symbol", token, "error", err)
		return c.out, nil
	}
	for i, occ := range ix.Lookup(token) {
		if i >= index.MaxOccurrencesPerSymbol || c.full() {
			break
		}
		c.add(ports.Reference{Location: occurrenceLocation(occ, occ.File), Declaration: true})
	}
	return c.out, nil
}

// referenceSources orders workspace files, then open documents, then doc
// when it is an assembly-family file. Each path appears once; open buffers
// win over disk content.
func (e *Engine) referenceSources(ctx context.Context, doc ports.Document, s Settings) []refSource {
	var out []refSource
	seen := make(map[string]bool)
	open := make(map[string]ports.Document)
	for _, d := range e.ws.OpenDocuments() {
		open[docLocationPath(d)] = d
	}
	addDoc := func(d ports.Document) {
		p := docLocationPath(d)
		if seen[p] {
			return
		}
		seen[p] = true
		out = append(out, refSource{path: p, text: func() (string, bool) { return d.Text(), true }})
	}

	for _, p := range e.candidateFiles(ctx, s) {
		if d, ok := open[p]; ok {
			addDoc(d)
			continue
		}
		if seen[p] {
			continue
		}
		seen[p] = true
		path := p
		out = append(out, refSource{path: path, text: func() (string, bool) { return e.ws.ReadText(path) }})
	}
	for _, d := range e.ws.OpenDocuments() {
		addDoc(d)
	}
	if scanner.IsAssemblyFile(docLocationPath(doc)) {
		addDoc(doc)
	}
	return out
}

func scanReferences(ctx context.Context, c *refCollector, path, text, token string, includeDeclaration bool) {
	for lineNo, line := range scanner.SplitLines(text) {
		if ctx.Err() != nil || c.full() {
			return
		}
		cols := tokenColumns(line, token)
		if len(cols) == 0 {
			continue
		}
		defCol := definitionColumn(line, token)
		for _, col := range cols {
			decl := col == defCol
			if decl && !includeDeclaration {
				continue
			}
			c.add(ports.Reference{
				Location: ports.Location{
					Path: path,
					Range: ports.Range{
						Start: ports.Position{Line: lineNo, Character: col},
						End:   ports.Position{Line: lineNo, Character: col + len(token)},
					},
				},
				Declaration: decl,
			})
		}
	}
}

// tokenColumns returns the byte offsets where token occurs on line bounded
// by non-identifier characters.
func tokenColumns(line, token string) []int {
	if token == "" {
		return nil
	}
	var cols []int
	from := 0
	for from <= len(line)-len(token) {
		i := strings.Index(line[from:], token)
		if i < 0 {
			break
		}
		col := from + i
		end := col + len(token)
		before := col == 0 || !scanner.IsIdentChar(line[col-1])
		after := end == len(line) || !scanner.IsIdentChar(line[end])
		if before && after {
			cols = append(cols, col)
		}
		from = col + 1
	}
	return cols
}

// definitionColumn returns the column at which line defines token with a
// label, .equ or .set form, or -1.
func definitionColumn(line, token string) int {
	for _, m := range scanner.ScanLine(line, scanner.FileAssembly) {
		if m.Name == token && scanner.IsDefinitionForm(m.Kind) {
			return m.Column
		}
	}
	return -1
}
