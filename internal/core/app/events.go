package app

import (
	"packsense/internal/core/config"
	"packsense/internal/core/ports"
	"packsense/internal/engine/index"
	"packsense/internal/engine/scanner"
	"packsense/internal/shared/util"
	"path/filepath"
	"strings"
)

// HandleEvents invalidates the pack indexes affected by workspace file
// events. An event inside a workspace root only invalidates that root's
// scope; anything else invalidates every scope.
func (s *Session) HandleEvents(events []ports.FileEvent) {
	if len(events) == 0 {
		return
	}
	suffix := strings.ToLower(s.Config().Pack.DescriptorSuffix)
	roots := s.ws.Roots()

	scopes := make(map[string]bool)
	all := false
	for _, ev := range events {
		if !relevantPath(ev.Path, suffix) {
			continue
		}
		scope := index.ScopeFor(roots, ev.Path)
		if scope.IsGlobal() {
			all = true
			continue
		}
		scopes[scope.Key] = true
	}

	if all {
		s.logger.Info("workspace change outside roots, invalidating all pack indexes", "events", len(events))
		s.store.InvalidateAll("file_event")
		return
	}
	for _, key := range util.SortedStringKeys(scopes) {
		s.logger.Debug("invalidating pack index", "scope", key)
		s.store.Invalidate(key, "file_event")
	}
}

func relevantPath(path, descriptorSuffix string) bool {
	base := strings.ToLower(filepath.Base(path))
	if descriptorSuffix != "" && strings.HasSuffix(base, descriptorSuffix) {
		return true
	}
	return scanner.IsAssemblyFile(base)
}

// UpdateConfig swaps in a new configuration. Any change to an effective
// key invalidates every pack index. The pack scan cache setting only
// applies to new sessions.
func (s *Session) UpdateConfig(cfg *config.Config) error {
	if cfg == nil {
		return nil
	}
	paths, err := config.ResolvePaths(cfg, s.cwd)
	if err != nil {
		return err
	}

	s.mu.Lock()
	prev := s.cfg
	changed := prev.Dump() != cfg.Dump()
	s.cfg = cfg
	s.paths = paths
	s.mu.Unlock()

	s.engine.SetSettings(settingsFrom(cfg))
	rootsChanged := s.ws.SetRoots(paths.Roots)
	if prev.Store.Enabled != cfg.Store.Enabled {
		s.logger.Info("pack scan cache setting changes apply on restart", "enabled", cfg.Store.Enabled)
	}
	if changed || rootsChanged {
		s.logger.Info("configuration changed, invalidating all pack indexes")
		s.store.InvalidateAll("config")
	}
	return nil
}

// SetRoots replaces the workspace roots. A changed root set invalidates
// every pack index.
func (s *Session) SetRoots(roots []string) {
	if s.ws.SetRoots(roots) {
		s.logger.Info("workspace roots changed, invalidating all pack indexes", "roots", len(roots))
		s.store.InvalidateAll("roots")
	}
}
