package app

import (
	"context"
	"packsense/internal/engine/index"
	"packsense/internal/shared/util"

	"golang.org/x/sync/errgroup"
)

const warmupConcurrency = 2

// Warmup builds the pack index of every workspace root in the background
// of startup, or the global scope when there are no roots. Builds start at
// the configured rate. Individual build failures are logged and left for
// the next query to retry; only cancellation is returned.
func (s *Session) Warmup(ctx context.Context) error {
	ctx, span := s.startSpan(ctx, "Warmup", "")
	defer span.End()

	scopes := s.warmupScopes()
	limiter := util.NewLimiter(s.Config().Observability.WarmupRate, 1)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(warmupConcurrency)
	for _, scope := range scopes {
		if err := limiter.Wait(gctx, 1); err != nil {
			break
		}
		scope := scope
		g.Go(func() error {
			ix, err := s.store.Get(gctx, scope, false)
			if err != nil {
				if gctx.Err() != nil {
					return gctx.Err()
				}
				s.logger.Warn("pack index warm-up failed", "scope", scope.Key, "error", err)
				return nil
			}
			s.logger.Debug("pack index warmed", "scope", scope.Key, "symbols", len(ix.Names))
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	return ctx.Err()
}

func (s *Session) warmupScopes() []index.Scope {
	roots := s.ws.Roots()
	if len(roots) == 0 {
		return []index.Scope{index.GlobalScope()}
	}
	scopes := make([]index.Scope, 0, len(roots))
	for _, root := range roots {
		scopes = append(scopes, index.RootScope(root))
	}
	return scopes
}
