package index

import (
	"packsense/internal/shared/util"
	"path/filepath"
)

// GlobalKey identifies the scope used by documents outside every root.
const GlobalKey = "__global__"

// Scope is an isolation boundary for pack indexes.
type Scope struct {
	Key  string
	Root string
}

func GlobalScope() Scope { return Scope{Key: GlobalKey} }

// IsGlobal reports whether s has no owning project root.
func (s Scope) IsGlobal() bool { return s.Root == "" }

// RootScope returns the scope owned by root.
func RootScope(root string) Scope {
	clean := filepath.Clean(root)
	return Scope{Key: clean, Root: clean}
}

// ScopeFor returns the scope of the longest root containing path, or the
// global scope when none does.
func ScopeFor(roots []string, path string) Scope {
	if path == "" {
		return GlobalScope()
	}
	best := ""
	for _, root := range roots {
		root = filepath.Clean(root)
		if !util.WithinDir(root, path) {
			continue
		}
		if len(root) > len(best) {
			best = root
		}
	}
	if best == "" {
		return GlobalScope()
	}
	return RootScope(best)
}
