package watcher

import (
	"log/slog"
	"os"
	"packsense/internal/core/ports"
	"packsense/internal/engine/scanner"
	"packsense/internal/shared/observability"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/gobwas/glob"
)

// DefaultExtensions are the assembly-family and header extensions whose
// changes can alter symbol results.
var DefaultExtensions = scanner.AssemblyExtensions

// Watcher recursively watches workspace roots and forwards debounced,
// classified file events.
type Watcher struct {
	fsWatcher        *fsnotify.Watcher
	debounce         time.Duration
	excludeDirs      []glob.Glob
	extFilters       map[string]bool
	descriptorSuffix string
	onChange         func([]ports.FileEvent)
	callbackMu       sync.Mutex
	logger           *slog.Logger

	pending   map[string]ports.EventKind
	pendingMu sync.Mutex
	timer     *time.Timer
}

// NewWatcher creates a watcher. excludeDirs are glob patterns matched against
// directory base names. descriptorSuffix marks project descriptor files,
// which are forwarded regardless of extension.
func NewWatcher(debounce time.Duration, excludeDirs []string, descriptorSuffix string, onChange func([]ports.FileEvent)) (*Watcher, error) {
	if onChange == nil {
		return nil, os.ErrInvalid
	}

	compiledDirs := make([]glob.Glob, 0, len(excludeDirs))
	for _, pattern := range excludeDirs {
		g, err := glob.Compile(pattern)
		if err != nil {
			return nil, err
		}
		compiledDirs = append(compiledDirs, g)
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	w := &Watcher{
		fsWatcher:        fsw,
		debounce:         debounce,
		excludeDirs:      compiledDirs,
		descriptorSuffix: strings.ToLower(descriptorSuffix),
		onChange:         onChange,
		logger:           slog.Default(),
		pending:          make(map[string]ports.EventKind),
	}
	w.SetExtensions(DefaultExtensions)
	return w, nil
}

func (w *Watcher) SetExtensions(extensions []string) {
	filter := make(map[string]bool, len(extensions))
	for _, ext := range extensions {
		normalized := strings.ToLower(strings.TrimSpace(ext))
		if normalized == "" {
			continue
		}
		filter[normalized] = true
	}
	w.extFilters = filter
}

func (w *Watcher) SetDebounce(debounce time.Duration) {
	w.pendingMu.Lock()
	defer w.pendingMu.Unlock()
	w.debounce = debounce
}

func (w *Watcher) Watch(paths []string) error {
	for _, path := range paths {
		if err := w.watchRecursive(path); err != nil {
			return err
		}
	}

	go w.run()
	return nil
}

func (w *Watcher) watchRecursive(root string) error {
	return filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}

		if info.IsDir() {
			if path != root && w.shouldExcludeDir(path) {
				return filepath.SkipDir
			}
			return w.fsWatcher.Add(path)
		}

		return nil
	})
}

func (w *Watcher) run() {
	for {
		select {
		case event, ok := <-w.fsWatcher.Events:
			if !ok {
				return
			}
			observability.WatcherEventsTotal.Inc()

			if event.Op&fsnotify.Create == fsnotify.Create {
				info, err := os.Stat(event.Name)
				if err == nil && info.IsDir() {
					if !w.shouldExcludeDir(event.Name) {
						if err := w.watchRecursive(event.Name); err != nil {
							w.logger.Warn("failed to watch new directory", "path", event.Name, "error", err)
						} else {
							w.enqueueExistingFiles(event.Name)
						}
					}
					continue
				}
			}

			if !w.shouldForward(event.Name) {
				continue
			}
			if kind, ok := classify(event.Op); ok {
				w.scheduleChange(event.Name, kind)
			}

		case err, ok := <-w.fsWatcher.Errors:
			if !ok {
				return
			}
			w.logger.Error("watcher error", "error", err)
		}
	}
}

// classify maps an fsnotify operation to an event kind.
func classify(op fsnotify.Op) (ports.EventKind, bool) {
	switch {
	case op&fsnotify.Remove == fsnotify.Remove:
		return ports.EventDelete, true
	case op&fsnotify.Rename == fsnotify.Rename:
		return ports.EventRename, true
	case op&fsnotify.Create == fsnotify.Create:
		return ports.EventCreate, true
	case op&fsnotify.Write == fsnotify.Write:
		return ports.EventSave, true
	}
	return "", false
}

var kindRank = map[ports.EventKind]int{
	ports.EventSave:   0,
	ports.EventCreate: 1,
	ports.EventRename: 2,
	ports.EventDelete: 3,
}

func (w *Watcher) scheduleChange(path string, kind ports.EventKind) {
	w.pendingMu.Lock()
	defer w.pendingMu.Unlock()

	// Within one window the most structural change wins.
	if prev, ok := w.pending[path]; !ok || kindRank[kind] > kindRank[prev] {
		w.pending[path] = kind
	}

	if w.timer != nil {
		w.timer.Stop()
	}

	w.timer = time.AfterFunc(w.debounce, func() {
		w.flushChanges()
	})
}

func (w *Watcher) flushChanges() {
	w.pendingMu.Lock()
	events := make([]ports.FileEvent, 0, len(w.pending))
	for path, kind := range w.pending {
		events = append(events, ports.FileEvent{Kind: kind, Path: path})
	}
	w.pending = make(map[string]ports.EventKind)
	w.pendingMu.Unlock()

	if len(events) > 0 {
		sort.Slice(events, func(i, j int) bool { return events[i].Path < events[j].Path })
		w.callbackMu.Lock()
		defer w.callbackMu.Unlock()
		w.onChange(events)
	}
}

func (w *Watcher) shouldExcludeDir(path string) bool {
	base := filepath.Base(path)
	if base == ".git" {
		return true
	}
	for _, g := range w.excludeDirs {
		if g.Match(base) {
			return true
		}
	}
	return false
}

func (w *Watcher) shouldForward(path string) bool {
	base := strings.ToLower(filepath.Base(path))
	if w.descriptorSuffix != "" && strings.HasSuffix(base, w.descriptorSuffix) {
		return true
	}
	return w.extFilters[filepath.Ext(base)]
}

func (w *Watcher) Close() error {
	w.pendingMu.Lock()
	if w.timer != nil {
		w.timer.Stop()
	}
	w.pendingMu.Unlock()
	return w.fsWatcher.Close()
}

func (w *Watcher) enqueueExistingFiles(root string) {
	_ = filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil || info == nil || info.IsDir() {
			return nil
		}
		if !w.shouldForward(path) {
			return nil
		}
		w.scheduleChange(path, ports.EventCreate)
		return nil
	})
}
