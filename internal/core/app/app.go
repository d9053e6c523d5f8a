package app

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"packsense/internal/core/config"
	"packsense/internal/core/ports"
	"packsense/internal/core/workspace"
	"packsense/internal/data/fsys"
	"packsense/internal/data/packstore"
	"packsense/internal/engine/index"
	"packsense/internal/engine/pack"
	"packsense/internal/engine/query"
	"packsense/internal/engine/symbols"
	"sync"
	"time"
)

// Session owns every piece of state behind the symbol service: the
// configuration, the workspace overlay, the local table cache and the
// per-scope pack index store. Nothing is process-global; closing the
// session releases it all.
type Session struct {
	logger *slog.Logger
	fs     ports.FileSystem
	cwd    string
	now    func() time.Time

	ws        *workspace.Local
	locals    *symbols.Cache
	resolver  *pack.Resolver
	store     *index.Store
	packStore *packstore.SQLiteStore
	engine    *query.Engine

	mu    sync.RWMutex
	cfg   *config.Config
	paths config.ResolvedPaths

	watcherMu     sync.Mutex
	activeWatcher interface{ Close() error }
}

var _ ports.SymbolService = (*Session)(nil)

type Option func(*Session)

func WithFileSystem(f ports.FileSystem) Option {
	return func(s *Session) { s.fs = f }
}

func WithLogger(l *slog.Logger) Option {
	return func(s *Session) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithWorkingDir sets the directory relative configured paths resolve
// against. It defaults to the process working directory.
func WithWorkingDir(dir string) Option {
	return func(s *Session) { s.cwd = dir }
}

func WithClock(now func() time.Time) Option {
	return func(s *Session) {
		if now != nil {
			s.now = now
		}
	}
}

func New(cfg *config.Config, opts ...Option) (*Session, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	s := &Session{
		logger: slog.Default(),
		fs:     fsys.OS{},
		now:    time.Now,
		cfg:    cfg,
		locals: symbols.NewCache(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.cwd == "" {
		cwd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("resolve working directory: %w", err)
		}
		s.cwd = cwd
	}

	paths, err := config.ResolvePaths(cfg, s.cwd)
	if err != nil {
		return nil, err
	}
	s.paths = paths

	s.ws = workspace.New(s.fs, paths.Roots, s.logger)
	s.resolver = pack.NewResolver(s.fs, s.ws, s.logger)

	storeOpts := []index.Option{index.WithLogger(s.logger), index.WithClock(s.now)}
	if err := s.initPackStore(); err != nil {
		s.logger.Warn("pack scan cache disabled", "path", paths.StorePath, "error", err)
	} else if s.packStore != nil {
		storeOpts = append(storeOpts, index.WithScanCache(s.packStore))
	}
	s.store = index.NewStore(s.fs, s.resolve, storeOpts...)
	s.engine = query.NewEngine(s.ws, s.locals, s.store, settingsFrom(cfg), s.logger)
	return s, nil
}

// Close stops the workspace watcher and releases the pack scan cache.
func (s *Session) Close() error {
	s.watcherMu.Lock()
	w := s.activeWatcher
	s.activeWatcher = nil
	s.watcherMu.Unlock()
	if w != nil {
		if err := w.Close(); err != nil {
			s.logger.Warn("failed to close workspace watcher", "error", err)
		}
	}
	return s.closePackStore()
}

func (s *Session) Config() *config.Config {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cfg
}

func (s *Session) Workspace() *workspace.Local { return s.ws }

func (s *Session) Store() *index.Store { return s.store }

// resolve is the index store's resolution hook. Options are read fresh on
// every build so configuration changes apply to the next build.
func (s *Session) resolve(ctx context.Context, scope index.Scope) (pack.Result, error) {
	return s.resolver.Resolve(ctx, scope.Root, s.packOptions())
}

func (s *Session) packOptions() pack.Options {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return pack.Options{
		PackPath:         s.paths.PackPath,
		Device:           s.cfg.Pack.Device,
		AutoDetect:       s.cfg.Pack.AutoDetectEnabled(),
		CacheDir:         s.paths.CacheDir,
		Vendor:           s.cfg.Pack.Vendor,
		DescriptorDir:    s.cfg.Pack.DescriptorDir,
		DescriptorSuffix: s.cfg.Pack.DescriptorSuffix,
		ScanLimit:        s.cfg.Limits.ScanFiles(),
		Include:          s.cfg.Workspace.Include,
		Exclude:          s.cfg.Workspace.Exclude,
	}
}

func settingsFrom(cfg *config.Config) query.Settings {
	return query.Settings{
		CompletionEnabled:     cfg.Features.CompletionEnabled(),
		InstructionCompletion: cfg.Features.InstructionCompletionEnabled(),
		ReferencesEnabled:     cfg.Features.ReferencesEnabled(),
		WorkspaceIncludePack:  cfg.Features.WorkspaceIncludesPack(),
		MaxHoverResults:       cfg.Limits.HoverResults(),
		MaxCompletionItems:    cfg.Limits.CompletionItems(),
		MaxScanFiles:          cfg.Limits.ScanFiles(),
		MaxWorkspaceSymbols:   cfg.Limits.WorkspaceSymbols(),
		MaxReferenceResults:   cfg.Limits.ReferenceResults(),
		Include:               cfg.Workspace.Include,
		Exclude:               cfg.Workspace.Exclude,
	}
}
