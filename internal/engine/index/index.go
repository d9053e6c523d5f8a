// # internal/engine/index/index.go
package index

import (
	"context"
	"log/slog"
	"packsense/internal/core/ports"
	"packsense/internal/engine/pack"
	"packsense/internal/engine/scanner"
	"sort"
	"time"

	"github.com/google/uuid"
)

// MaxOccurrencesPerSymbol bounds how many definition sites one name keeps.
const MaxOccurrencesPerSymbol = 20

// Index is the built symbol map of one scope.
type Index struct {
	Scope      Scope
	BuildID    string
	BuiltAt    time.Time
	Symbols    map[string][]scanner.Occurrence
	Names      []string
	Resolution pack.Result
}

// Lookup returns the pack occurrences of name in scan order.
func (ix *Index) Lookup(name string) []scanner.Occurrence {
	if ix == nil {
		return nil
	}
	return ix.Symbols[name]
}

func (ix *Index) OccurrenceCount() int {
	if ix == nil {
		return 0
	}
	n := 0
	for _, occs := range ix.Symbols {
		n += len(occs)
	}
	return n
}

// ResolveFunc produces the resolution a build for scope scans.
type ResolveFunc func(ctx context.Context, scope Scope) (pack.Result, error)

// ScanCache persists per-file scan results between processes. Load reports
// a hit only when the stored entry matches info.
type ScanCache interface {
	Load(path string, info ports.FileInfo) ([]scanner.Occurrence, bool, error)
	Save(path string, info ports.FileInfo, occs []scanner.Occurrence) error
}

type builder struct {
	fs     ports.FileSystem
	cache  ScanCache
	logger *slog.Logger
	now    func() time.Time
}

func (b *builder) build(ctx context.Context, scope Scope, res pack.Result) (*Index, error) {
	ix := &Index{
		Scope:      scope,
		BuildID:    uuid.NewString(),
		Symbols:    make(map[string][]scanner.Occurrence),
		Resolution: res,
	}
	for _, spec := range res.Files {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		occs, ok, err := b.scanFile(spec)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		for _, occ := range occs {
			existing, seen := ix.Symbols[occ.Name]
			if !seen {
				ix.Names = append(ix.Names, occ.Name)
			}
			if len(existing) >= MaxOccurrencesPerSymbol {
				continue
			}
			ix.Symbols[occ.Name] = append(existing, occ)
		}
	}
	sort.Strings(ix.Names)
	ix.BuiltAt = b.now()
	return ix, nil
}

// scanFile returns the occurrences of one pack file. ok is false when the
// file does not exist.
func (b *builder) scanFile(spec pack.FileSpec) ([]scanner.Occurrence, bool, error) {
	var info ports.FileInfo
	if b.cache != nil {
		st, exists := b.fs.Stat(spec.Path)
		if !exists {
			return nil, false, nil
		}
		info = st
		occs, hit, err := b.cache.Load(spec.Path, info)
		if err != nil {
			b.logger.Warn("pack scan cache load failed", "path", spec.Path, "error", err)
		} else if hit {
			countScan("store")
			return occs, true, nil
		}
	}

	data, err := b.fs.ReadFile(spec.Path)
	if err != nil {
		return nil, false, err
	}
	if data == nil {
		return nil, false, nil
	}
	occs := scanner.ScanText(spec.Path, string(data), spec.Kind)
	countScan("disk")

	if b.cache != nil {
		if err := b.cache.Save(spec.Path, info, occs); err != nil {
			b.logger.Warn("pack scan cache save failed", "path", spec.Path, "error", err)
		}
	}
	return occs, true, nil
}
