package query

import (
	"context"
	"fmt"
	"packsense/internal/core/ports"
	"packsense/internal/data/instructions"
	"packsense/internal/engine/scanner"
	"path/filepath"
	"strings"
	"time"
)

// Hover renders the instruction reference, local definition and pack
// definitions of the token under pos. It returns nil when there is no token
// or nothing is known about it.
func (e *Engine) Hover(ctx context.Context, doc ports.Document, pos ports.Position) (*ports.Hover, error) {
	defer observe("hover", time.Now())
	token, rng, ok := tokenAt(doc, pos)
	if !ok {
		return nil, nil
	}
	s := e.Settings()

	ins, hasIns := instructions.Lookup(token)
	local, hasLocal := e.locals.Get(doc).Lookup(token)

	ix, err := e.packIndex(ctx, doc)
	if err != nil {
		return nil, err
	}
	packOccs := ix.Lookup(token)
	if limit := capOf(s.MaxHoverResults, 6); len(packOccs) > limit {
		packOccs = packOccs[:limit]
	}

	if !hasIns && !hasLocal && len(packOccs) == 0 {
		return nil, nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "**%s**\n", token)
	if hasIns {
		fmt.Fprintf(&b, "\nInstruction `%s`: %s\n", ins.Usage(), ins.Summary)
	}
	if hasLocal {
		fmt.Fprintf(&b, "\nLocal %s, line %d:\n```asm\n%s\n```\n", local.Kind, local.Line, local.Text)
	}
	if len(packOccs) > 0 {
		device := ""
		if ix != nil {
			device = ix.Resolution.Device
		}
		if device != "" {
			fmt.Fprintf(&b, "\nPack definitions (%s):\n", device)
		} else {
			b.WriteString("\nPack definitions:\n")
		}
		for _, occ := range packOccs {
			fmt.Fprintf(&b, "- `%s` (%s, %s:%d)\n", occ.Text, occ.Kind, displayName(occ), occ.Line)
		}
	}
	return &ports.Hover{Symbol: token, Markdown: b.String(), Range: rng}, nil
}

func displayName(occ scanner.Occurrence) string {
	if occ.File == scanner.CurrentDocument {
		return occ.File
	}
	return filepath.Base(occ.File)
}
