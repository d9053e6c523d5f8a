package runtime

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"packsense/internal/core/config"
	domainerrors "packsense/internal/core/errors"
	"packsense/internal/core/ports"
	"packsense/internal/mcp/contracts"
	"packsense/internal/mcp/registry"
	"packsense/internal/mcp/transport"
	"packsense/internal/mcp/validate"
	"packsense/internal/shared/observability"
	"packsense/internal/shared/util"
	"strings"
	"sync"
	"time"
)

const (
	rebuildRate  = 0.5
	rebuildBurst = 2
	rebuildTTL   = 10 * time.Minute
)

type Dependencies struct {
	Symbols ports.SymbolService
	Logger  *slog.Logger
}

type Server struct {
	cfg       *config.Config
	deps      Dependencies
	registry  *registry.Registry
	transport transport.Adapter
	allowlist OperationAllowlist
	toolName  string
	rebuilds  *util.LimiterRegistry

	mu      sync.Mutex
	running bool
}

func New(cfg *config.Config, deps Dependencies, reg *registry.Registry, adapter transport.Adapter, allowlist OperationAllowlist) (*Server, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	if deps.Symbols == nil {
		return nil, fmt.Errorf("symbol service dependency is required")
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if reg == nil {
		reg = registry.New()
	}
	if adapter == nil {
		return nil, fmt.Errorf("transport is required")
	}

	s := &Server{
		cfg:       cfg,
		deps:      deps,
		registry:  reg,
		transport: adapter,
		allowlist: allowlist,
		toolName:  contracts.ToolNamePacksense,
		rebuilds:  util.NewLimiterRegistry(rebuildRate, rebuildBurst, rebuildTTL),
	}
	if err := s.registerOperations(); err != nil {
		s.rebuilds.Close()
		return nil, err
	}
	return s, nil
}

func (s *Server) Start(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		<-ctx.Done()
		return ctx.Err()
	}
	s.running = true
	s.mu.Unlock()

	s.deps.Logger.Info("tool server active", "transport", s.cfg.MCP.Transport, "tool", s.toolName, "operations", len(s.registry.Operations()), "classes", s.registry.Count())

	err := s.transport.Start(ctx, s.handleToolCall)

	s.mu.Lock()
	s.running = false
	s.mu.Unlock()

	return err
}

func (s *Server) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.rebuilds.Close()
	if !s.running {
		return nil
	}
	return s.transport.Stop()
}

func (s *Server) Run(ctx context.Context) error {
	return s.Start(ctx)
}

func (s *Server) registerOperations() error {
	svc := s.deps.Symbols
	handlers := map[contracts.OperationID]registry.Handler{
		contracts.OperationDocumentOpen: func(_ context.Context, input any) (any, error) {
			in := input.(contracts.DocumentOpenInput)
			if err := svc.OpenDocument(in.URI, in.Text, in.Version); err != nil {
				return nil, err
			}
			return contracts.DocumentOutput{URI: in.URI, Status: "open"}, nil
		},
		contracts.OperationDocumentChange: func(_ context.Context, input any) (any, error) {
			in := input.(contracts.DocumentChangeInput)
			if err := svc.ChangeDocument(in.URI, in.Text, in.Version); err != nil {
				return nil, err
			}
			return contracts.DocumentOutput{URI: in.URI, Status: "changed"}, nil
		},
		contracts.OperationDocumentClose: func(_ context.Context, input any) (any, error) {
			in := input.(contracts.DocumentCloseInput)
			if err := svc.CloseDocument(in.URI); err != nil {
				return nil, err
			}
			return contracts.DocumentOutput{URI: in.URI, Status: "closed"}, nil
		},
		contracts.OperationSymbolsHover: func(ctx context.Context, input any) (any, error) {
			in := input.(contracts.PositionInput)
			h, err := svc.Hover(ctx, in.URI, in.Position())
			if err != nil {
				return nil, err
			}
			return contracts.HoverOutput{Found: h != nil, Hover: h}, nil
		},
		contracts.OperationSymbolsDefinition: func(ctx context.Context, input any) (any, error) {
			in := input.(contracts.PositionInput)
			locs, err := svc.Definition(ctx, in.URI, in.Position())
			if err != nil {
				return nil, err
			}
			return contracts.LocationsOutput{Count: len(locs), Locations: nonNil(locs)}, nil
		},
		contracts.OperationSymbolsDocument: func(ctx context.Context, input any) (any, error) {
			in := input.(contracts.DocumentSymbolsInput)
			syms, err := svc.DocumentSymbols(ctx, in.URI)
			if err != nil {
				return nil, err
			}
			return contracts.DocumentSymbolsOutput{Count: len(syms), Symbols: nonNil(syms)}, nil
		},
		contracts.OperationSymbolsWorkspace: func(ctx context.Context, input any) (any, error) {
			in := input.(contracts.WorkspaceSymbolsInput)
			syms, err := svc.WorkspaceSymbols(ctx, in.Query)
			if err != nil {
				return nil, err
			}
			return contracts.WorkspaceSymbolsOutput{Count: len(syms), Symbols: nonNil(syms)}, nil
		},
		contracts.OperationSymbolsReferences: func(ctx context.Context, input any) (any, error) {
			in := input.(contracts.ReferencesInput)
			refs, err := svc.References(ctx, in.URI, in.Position(), in.IncludeDeclaration)
			if err != nil {
				return nil, err
			}
			return contracts.ReferencesOutput{Count: len(refs), References: nonNil(refs)}, nil
		},
		contracts.OperationSymbolsCompletion: func(ctx context.Context, input any) (any, error) {
			in := input.(contracts.PositionInput)
			items, err := svc.Completion(ctx, in.URI, in.Position())
			if err != nil {
				return nil, err
			}
			return contracts.CompletionOutput{Count: len(items), Items: nonNil(items)}, nil
		},
		contracts.OperationIndexRebuild: func(ctx context.Context, input any) (any, error) {
			in := input.(contracts.TargetInput)
			if !s.rebuilds.Get(in.URI).Allow(1) {
				return nil, contracts.ToolError{Code: contracts.ErrorUnavailable, Message: "rebuild requested too often; retry shortly"}
			}
			target, err := svc.RebuildIndex(ctx, in.URI)
			if err != nil {
				return nil, err
			}
			return contracts.TargetOutput{Target: target}, nil
		},
		contracts.OperationTargetDescribe: func(ctx context.Context, input any) (any, error) {
			in := input.(contracts.TargetInput)
			target, err := svc.DescribeActiveTarget(ctx, in.URI)
			if err != nil {
				return nil, err
			}
			return contracts.TargetOutput{Target: target}, nil
		},
	}

	for _, op := range contracts.Operations {
		if !s.allowlist.Allows(op) {
			continue
		}
		if err := s.registry.Register(op, handlers[op]); err != nil {
			return err
		}
	}
	return nil
}

func (s *Server) handleToolCall(ctx context.Context, tool string, raw map[string]any) (any, error) {
	if strings.TrimSpace(tool) == "" {
		return nil, contracts.ToolError{Code: contracts.ErrorInvalidArgument, Message: "tool is required"}
	}
	if !strings.EqualFold(tool, s.toolName) {
		return nil, contracts.ToolError{Code: contracts.ErrorInvalidArgument, Message: fmt.Sprintf("unsupported tool: %s", tool)}
	}

	operation, input, err := validate.ParseToolArgs(s.toolName, raw)
	if err != nil {
		observability.ToolRequestsTotal.WithLabelValues("invalid", "error").Inc()
		return nil, err
	}
	if !s.allowlist.Allows(operation) {
		observability.ToolRequestsTotal.WithLabelValues(string(operation), "denied").Inc()
		return nil, contracts.ToolError{Code: contracts.ErrorInvalidArgument, Message: fmt.Sprintf("operation not allowlisted: %s", operation)}
	}
	entry, ok := s.registry.Lookup(operation)
	if !ok {
		return nil, contracts.ToolError{Code: contracts.ErrorUnavailable, Message: fmt.Sprintf("operation handler not registered: %s", operation)}
	}

	// Document edits run without a deadline.
	timeout := s.cfg.MCP.RequestTimeout
	if timeout > 0 && entry.Class != registry.ClassDocument {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	start := time.Now()
	var out any
	err = ctx.Err()
	if err == nil {
		out, err = entry.Handler(ctx, input)
	}
	if err != nil {
		toolErr := toToolError(err)
		observability.ToolRequestsTotal.WithLabelValues(string(operation), "error").Inc()
		s.deps.Logger.Debug("tool operation failed", "operation", operation, "class", entry.Class, "code", toolErr.Code, "error", err)
		return nil, toolErr
	}
	observability.ToolRequestsTotal.WithLabelValues(string(operation), "ok").Inc()
	s.deps.Logger.Debug("tool operation served", "operation", operation, "class", entry.Class, "duration", time.Since(start))
	return wrapToolResult(operation, out), nil
}

func wrapToolResult(operation contracts.OperationID, payload any) any {
	return map[string]any{
		"version":   contracts.ContractVersion,
		"operation": operation,
		"result":    payload,
	}
}

func toToolError(err error) contracts.ToolError {
	var toolErr contracts.ToolError
	if errors.As(err, &toolErr) {
		return toolErr
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return contracts.ToolError{Code: contracts.ErrorUnavailable, Message: "request timed out"}
	}
	if errors.Is(err, context.Canceled) {
		return contracts.ToolError{Code: contracts.ErrorUnavailable, Message: "request cancelled"}
	}

	code := contracts.ErrorInternal
	switch domainerrors.CodeOf(err) {
	case domainerrors.CodeNotFound:
		code = contracts.ErrorNotFound
	case domainerrors.CodeValidationError:
		code = contracts.ErrorInvalidArgument
	case domainerrors.CodeIndexBuildFailed:
		code = contracts.ErrorBuildFailed
	case domainerrors.CodeNotSupported:
		code = contracts.ErrorUnavailable
	}
	return contracts.ToolError{Code: code, Message: err.Error()}
}

func nonNil[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}
