package query

import (
	"context"
	"packsense/internal/core/ports"
	"packsense/internal/data/instructions"
	"strings"
	"time"
)

// Completion lists symbols starting with the partial identifier at pos in
// three bands: local symbols, instruction mnemonics, pack symbols. The
// first spelling of a name wins across bands, compared case-insensitively.
func (e *Engine) Completion(ctx context.Context, doc ports.Document, pos ports.Position) ([]ports.CompletionItem, error) {
	defer observe("completion", time.Now())
	s := e.Settings()
	if !s.CompletionEnabled {
		return nil, nil
	}
	prefix := strings.ToLower(prefixAt(doc, pos))
	limit := capOf(s.MaxCompletionItems, 200)

	out := make([]ports.CompletionItem, 0, min(limit, 64))
	seen := make(map[string]bool)
	add := func(item ports.CompletionItem) bool {
		key := strings.ToLower(item.Label)
		if seen[key] || !strings.HasPrefix(key, prefix) {
			return len(out) < limit
		}
		seen[key] = true
		out = append(out, item)
		return len(out) < limit
	}

	for _, occ := range e.locals.Get(doc).Ordered {
		if !add(ports.CompletionItem{Label: occ.Name, Kind: ports.KindOf(occ.Kind), Source: ports.CompletionLocal, Detail: occ.Text}) {
			return out, nil
		}
	}
	if ctx.Err() != nil {
		return out, nil
	}

	if s.InstructionCompletion {
		for _, ins := range instructions.All() {
			if !add(ports.CompletionItem{Label: ins.Mnemonic, Kind: ports.SymbolInstruction, Source: ports.CompletionInstruction, Detail: ins.Summary}) {
				return out, nil
			}
		}
	}
	if ctx.Err() != nil {
		return out, nil
	}

	ix, err := e.packIndex(ctx, doc)
	if err != nil {
		return nil, err
	}
	if ix == nil {
		return out, nil
	}
	for _, name := range ix.Names {
		occs := ix.Symbols[name]
		item := ports.CompletionItem{Label: name, Source: ports.CompletionPack}
		if len(occs) > 0 {
			item.Kind = ports.KindOf(occs[0].Kind)
			item.Detail = occs[0].Text
		}
		if !add(item) {
			break
		}
	}
	return out, nil
}
