package index

import (
	"context"
	"log/slog"
	"packsense/internal/core/errors"
	"packsense/internal/core/ports"
	"packsense/internal/shared/observability"
	"sort"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/singleflight"
)

// Store owns the per-scope index cache and the in-flight builds. At most one
// build per scope key runs at a time; concurrent callers share its outcome.
type Store struct {
	builder *builder
	resolve ResolveFunc
	logger  *slog.Logger

	mu          sync.Mutex
	entries     map[string]*Index
	generations map[string]uint64
	epoch       uint64
	flight      singleflight.Group
}

type Option func(*Store)

func WithScanCache(c ScanCache) Option {
	return func(s *Store) { s.builder.cache = c }
}

func WithLogger(l *slog.Logger) Option {
	return func(s *Store) {
		if l != nil {
			s.logger = l
			s.builder.logger = l
		}
	}
}

// WithClock overrides the build timestamp source.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.builder.now = now
		}
	}
}

func NewStore(fsys ports.FileSystem, resolve ResolveFunc, opts ...Option) *Store {
	s := &Store{
		builder: &builder{
			fs:     fsys,
			logger: slog.Default(),
			now:    time.Now,
		},
		resolve:     resolve,
		logger:      slog.Default(),
		entries:     make(map[string]*Index),
		generations: make(map[string]uint64),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Get returns the cached index of scope, building it on a miss. With force
// the cache entry is discarded first. A caller whose ctx ends while waiting
// gets ctx.Err(); the build itself carries on for the other waiters.
//
// A build that started before the caller's view of the scope was
// invalidated is waited out, then followed by one fresh build shared by
// every such caller. Two scans of one scope never overlap.
func (s *Store) Get(ctx context.Context, scope Scope, force bool) (*Index, error) {
	if force {
		s.Invalidate(scope.Key, "rebuild")
	}
	for {
		s.mu.Lock()
		if ix, ok := s.entries[scope.Key]; ok {
			s.mu.Unlock()
			observability.IndexCacheRequestsTotal.WithLabelValues("hit").Inc()
			return ix, nil
		}
		gen, epoch := s.generations[scope.Key], s.epoch
		s.mu.Unlock()

		ch := s.flight.DoChan(scope.Key, func() (any, error) {
			return s.run(context.WithoutCancel(ctx), scope)
		})
		var r singleflight.Result
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case r = <-ch:
		}

		res := r.Val.(buildResult)
		if res.gen < gen || res.epoch < epoch {
			observability.IndexCacheRequestsTotal.WithLabelValues("stale").Inc()
			continue
		}
		outcome := "miss"
		if r.Shared {
			outcome = "shared"
		}
		observability.IndexCacheRequestsTotal.WithLabelValues(outcome).Inc()
		if r.Err != nil {
			return nil, r.Err
		}
		return res.ix, nil
	}
}

// buildResult carries the generation a build started under so waiters can
// tell whether it predates their invalidation.
type buildResult struct {
	ix    *Index
	gen   uint64
	epoch uint64
}

// Peek returns the cached index without building.
func (s *Store) Peek(key string) (*Index, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ix, ok := s.entries[key]
	return ix, ok
}

// Known returns every cached index ordered by scope key.
func (s *Store) Known() []*Index {
	s.mu.Lock()
	out := make([]*Index, 0, len(s.entries))
	for _, ix := range s.entries {
		out = append(out, ix)
	}
	s.mu.Unlock()
	sort.Slice(out, func(i, j int) bool { return out[i].Scope.Key < out[j].Scope.Key })
	return out
}

// Invalidate drops the cache entry of key. A build already running for key
// still answers the waiters that joined before the invalidation but is not
// installed.
func (s *Store) Invalidate(key, trigger string) {
	s.mu.Lock()
	delete(s.entries, key)
	s.generations[key]++
	s.mu.Unlock()
	observability.IndexInvalidationsTotal.WithLabelValues(trigger).Inc()
	s.logger.Debug("pack index invalidated", "scope", key, "trigger", trigger)
}

// InvalidateAll drops every cache entry.
func (s *Store) InvalidateAll(trigger string) {
	s.mu.Lock()
	n := len(s.entries)
	s.entries = make(map[string]*Index)
	s.epoch++
	s.mu.Unlock()
	observability.IndexInvalidationsTotal.WithLabelValues(trigger).Inc()
	s.logger.Debug("all pack indexes invalidated", "trigger", trigger, "scopes", n)
}

func (s *Store) run(ctx context.Context, scope Scope) (buildResult, error) {
	s.mu.Lock()
	gen, epoch := s.generations[scope.Key], s.epoch
	s.mu.Unlock()
	res := buildResult{gen: gen, epoch: epoch}

	ctx, span := observability.Tracer.Start(ctx, "index.Build", trace.WithAttributes(
		attribute.String("scope", scope.Key),
	))
	defer span.End()

	start := time.Now()
	ix, err := s.buildScope(ctx, scope)
	elapsed := time.Since(start).Seconds()
	if err != nil {
		observability.IndexBuildDuration.WithLabelValues("error").Observe(elapsed)
		observability.IndexBuildsTotal.WithLabelValues("error").Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		s.logger.Warn("pack index build failed", "scope", scope.Key, "error", err)
		return res, err
	}
	observability.IndexBuildDuration.WithLabelValues("ok").Observe(elapsed)
	observability.IndexBuildsTotal.WithLabelValues("ok").Inc()
	observability.IndexSymbols.WithLabelValues(scope.Key).Set(float64(len(ix.Names)))
	span.SetAttributes(
		attribute.String("device", ix.Resolution.Device),
		attribute.Int("files", len(ix.Resolution.Files)),
		attribute.Int("symbols", len(ix.Names)),
	)

	s.mu.Lock()
	current := s.generations[scope.Key] == gen && s.epoch == epoch
	if current {
		s.entries[scope.Key] = ix
	}
	s.mu.Unlock()
	if !current {
		s.logger.Debug("discarding stale pack index", "scope", scope.Key)
	}
	s.logger.Info("pack index built",
		"scope", scope.Key,
		"device", ix.Resolution.Device,
		"files", len(ix.Resolution.Files),
		"symbols", len(ix.Names),
		"duration", time.Since(start).Round(time.Millisecond))
	res.ix = ix
	return res, nil
}

func (s *Store) buildScope(ctx context.Context, scope Scope) (*Index, error) {
	res, err := s.resolve(ctx, scope)
	if err != nil {
		return nil, wrapBuildError(err, scope, "resolve pack target")
	}
	ix, err := s.builder.build(ctx, scope, res)
	if err != nil {
		return nil, wrapBuildError(err, scope, "scan pack files")
	}
	return ix, nil
}

func wrapBuildError(err error, scope Scope, msg string) error {
	wrapped := errors.Wrap(err, errors.CodeIndexBuildFailed, msg)
	return errors.AddContext(wrapped, errors.CtxScope, scope.Key)
}

func countScan(source string) {
	observability.PackFilesScannedTotal.WithLabelValues(source).Inc()
}
