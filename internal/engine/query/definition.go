package query

import (
	"context"
	"packsense/internal/core/ports"
	"packsense/internal/engine/index"
	"time"
)

// Definition returns the local definition of the token under pos followed
// by up to index.MaxOccurrencesPerSymbol pack definitions. An empty result
// means no definition.
func (e *Engine) Definition(ctx context.Context, doc ports.Document, pos ports.Position) ([]ports.Location, error) {
	defer observe("definition", time.Now())
	token, _, ok := tokenAt(doc, pos)
	if !ok {
		return nil, nil
	}

	var out []ports.Location
	if local, ok := e.locals.Get(doc).Lookup(token); ok {
		out = append(out, occurrenceLocation(local, docLocationPath(doc)))
	}

	ix, err := e.packIndex(ctx, doc)
	if err != nil {
		return nil, err
	}
	for i, occ := range ix.Lookup(token) {
		if i >= index.MaxOccurrencesPerSymbol {
			break
		}
		out = append(out, occurrenceLocation(occ, occ.File))
	}
	return out, nil
}
