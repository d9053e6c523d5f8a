// # internal/core/workspace/workspace.go
package workspace

import (
	"context"
	"io/fs"
	"log/slog"
	"packsense/internal/core/errors"
	"packsense/internal/core/ports"
	"path/filepath"
	"sort"
	"sync"
)

// Local is the on-disk workspace with an open-document overlay.
type Local struct {
	fs     ports.FileSystem
	logger *slog.Logger

	mu     sync.RWMutex
	roots  []string
	docs   map[string]*Document
	byPath map[string]string

	matchMu  sync.Mutex
	matchers map[string]*Matcher
}

var _ ports.Workspace = (*Local)(nil)

func New(fsys ports.FileSystem, roots []string, logger *slog.Logger) *Local {
	if logger == nil {
		logger = slog.Default()
	}
	w := &Local{
		fs:       fsys,
		logger:   logger,
		docs:     make(map[string]*Document),
		byPath:   make(map[string]string),
		matchers: make(map[string]*Matcher),
	}
	w.SetRoots(roots)
	return w
}

// SetRoots replaces the project roots. It reports whether the set changed.
func (w *Local) SetRoots(roots []string) bool {
	clean := make([]string, 0, len(roots))
	seen := make(map[string]bool)
	for _, r := range roots {
		if r == "" {
			continue
		}
		abs, err := filepath.Abs(r)
		if err != nil {
			abs = filepath.Clean(r)
		}
		if !seen[abs] {
			seen[abs] = true
			clean = append(clean, abs)
		}
	}
	sort.Strings(clean)

	w.mu.Lock()
	defer w.mu.Unlock()
	changed := len(clean) != len(w.roots)
	if !changed {
		for i := range clean {
			if clean[i] != w.roots[i] {
				changed = true
				break
			}
		}
	}
	w.roots = clean
	return changed
}

func (w *Local) Roots() []string {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return append([]string(nil), w.roots...)
}

// Open adds or replaces a buffer.
func (w *Local) Open(uri, text string, version int) *Document {
	doc := NewDocument(uri, text, version)
	w.mu.Lock()
	defer w.mu.Unlock()
	w.docs[uri] = doc
	if doc.path != "" {
		w.byPath[doc.path] = uri
	}
	return doc
}

// Change replaces the text of an open buffer.
func (w *Local) Change(uri, text string, version int) (*Document, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if _, ok := w.docs[uri]; !ok {
		return nil, errors.AddContext(errors.New(errors.CodeNotFound, "document is not open"), errors.CtxPath, uri)
	}
	doc := NewDocument(uri, text, version)
	w.docs[uri] = doc
	return doc, nil
}

func (w *Local) Close(uri string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	doc, ok := w.docs[uri]
	if !ok {
		return errors.AddContext(errors.New(errors.CodeNotFound, "document is not open"), errors.CtxPath, uri)
	}
	delete(w.docs, uri)
	if doc.path != "" && w.byPath[doc.path] == uri {
		delete(w.byPath, doc.path)
	}
	return nil
}

func (w *Local) Document(uri string) (ports.Document, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	doc, ok := w.docs[uri]
	if !ok {
		return nil, false
	}
	return doc, true
}

// OpenDocuments returns the open buffers ordered by URI.
func (w *Local) OpenDocuments() []ports.Document {
	w.mu.RLock()
	uris := make([]string, 0, len(w.docs))
	for uri := range w.docs {
		uris = append(uris, uri)
	}
	sort.Strings(uris)
	out := make([]ports.Document, 0, len(uris))
	for _, uri := range uris {
		out = append(out, w.docs[uri])
	}
	w.mu.RUnlock()
	return out
}

// ReadText returns the open buffer text for path, else the file content.
func (w *Local) ReadText(path string) (string, bool) {
	clean := filepath.Clean(path)
	w.mu.RLock()
	if uri, ok := w.byPath[clean]; ok {
		doc := w.docs[uri]
		w.mu.RUnlock()
		return doc.text, true
	}
	w.mu.RUnlock()

	data, err := w.fs.ReadFile(clean)
	if err != nil {
		w.logger.Debug("workspace read failed", "path", clean, "error", err)
		return "", false
	}
	if data == nil {
		return "", false
	}
	return string(data), true
}

// FindFiles walks root in lexical order and returns up to limit files whose
// root-relative slash path matches include and not exclude. Excluded
// directories are pruned.
func (w *Local) FindFiles(ctx context.Context, root, include, exclude string, limit int) ([]string, error) {
	if root == "" || limit <= 0 {
		return nil, nil
	}
	inc, err := w.matcher(include)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeValidationError, "invalid include glob")
	}
	exc, err := w.matcher(exclude)
	if err != nil {
		return nil, errors.Wrap(err, errors.CodeValidationError, "invalid exclude glob")
	}

	var out []string
	walkErr := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if err != nil {
			if d != nil && d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		rel, relErr := filepath.Rel(root, path)
		if relErr != nil || rel == "." {
			return nil
		}
		rel = filepath.ToSlash(rel)
		if d.IsDir() {
			if d.Name() == ".git" || (!exc.Empty() && exc.Match(rel+"/")) {
				return filepath.SkipDir
			}
			return nil
		}
		if !exc.Empty() && exc.Match(rel) {
			return nil
		}
		if !inc.Empty() && !inc.Match(rel) {
			return nil
		}
		out = append(out, path)
		if len(out) >= limit {
			return filepath.SkipAll
		}
		return nil
	})
	if walkErr != nil {
		return out, walkErr
	}
	return out, nil
}

func (w *Local) matcher(pattern string) (*Matcher, error) {
	w.matchMu.Lock()
	defer w.matchMu.Unlock()
	if m, ok := w.matchers[pattern]; ok {
		return m, nil
	}
	m, err := CompileMatcher(pattern)
	if err != nil {
		return nil, err
	}
	w.matchers[pattern] = m
	return m, nil
}
