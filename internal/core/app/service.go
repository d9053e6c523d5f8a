package app

import (
	"context"
	"packsense/internal/core/errors"
	"packsense/internal/core/ports"
	"packsense/internal/core/workspace"
	"packsense/internal/engine/index"
	"packsense/internal/shared/observability"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

func (s *Session) OpenDocument(uri, text string, version int) error {
	if strings.TrimSpace(uri) == "" {
		return errors.New(errors.CodeValidationError, "document uri must not be empty")
	}
	s.ws.Open(uri, text, version)
	return nil
}

func (s *Session) ChangeDocument(uri, text string, version int) error {
	if _, err := s.ws.Change(uri, text, version); err != nil {
		return errors.AddContext(err, errors.CtxOperation, "document.change")
	}
	return nil
}

func (s *Session) CloseDocument(uri string) error {
	if err := s.ws.Close(uri); err != nil {
		return errors.AddContext(err, errors.CtxOperation, "document.close")
	}
	s.locals.Forget(uri)
	return nil
}

// document returns the open buffer for uri, or a transient document read
// from disk. release must be called once the query is done with it.
func (s *Session) document(uri string) (doc ports.Document, release func(), err error) {
	if d, ok := s.ws.Document(uri); ok {
		return d, func() {}, nil
	}
	path := workspace.PathFromURI(uri)
	if path == "" {
		return nil, nil, errors.Newf(errors.CodeNotFound, "document %q is not open", uri)
	}
	text, ok := s.ws.ReadText(path)
	if !ok {
		return nil, nil, errors.AddContext(
			errors.Newf(errors.CodeNotFound, "document %q is neither open nor readable", uri),
			errors.CtxPath, path)
	}
	transient := workspace.NewDocument(uri, text, -1)
	return transient, func() { s.locals.Forget(uri) }, nil
}

func (s *Session) startSpan(ctx context.Context, name, uri string) (context.Context, trace.Span) {
	return observability.Tracer.Start(ctx, "session."+name, trace.WithAttributes(attribute.String("uri", uri)))
}

// queryFailed logs a failed query and records it. Callers return an empty
// result afterwards.
func (s *Session) queryFailed(name, uri string, err error) {
	observability.QueryFailuresTotal.WithLabelValues(name).Inc()
	s.logger.Warn("symbol query failed", "query", name, "uri", uri, "error", err)
}

func (s *Session) Hover(ctx context.Context, uri string, pos ports.Position) (*ports.Hover, error) {
	ctx, span := s.startSpan(ctx, "Hover", uri)
	defer span.End()

	doc, release, err := s.document(uri)
	if err != nil {
		return nil, err
	}
	defer release()

	h, err := s.engine.Hover(ctx, doc, pos)
	if err != nil {
		s.queryFailed("hover", uri, err)
		return nil, nil
	}
	return h, nil
}

func (s *Session) Definition(ctx context.Context, uri string, pos ports.Position) ([]ports.Location, error) {
	ctx, span := s.startSpan(ctx, "Definition", uri)
	defer span.End()

	doc, release, err := s.document(uri)
	if err != nil {
		return nil, err
	}
	defer release()

	locs, err := s.engine.Definition(ctx, doc, pos)
	if err != nil {
		s.queryFailed("definition", uri, err)
		return nil, nil
	}
	return locs, nil
}

func (s *Session) DocumentSymbols(ctx context.Context, uri string) ([]ports.DocumentSymbol, error) {
	ctx, span := s.startSpan(ctx, "DocumentSymbols", uri)
	defer span.End()

	doc, release, err := s.document(uri)
	if err != nil {
		return nil, err
	}
	defer release()

	syms, err := s.engine.DocumentSymbols(ctx, doc)
	if err != nil {
		s.queryFailed("document_symbols", uri, err)
		return nil, nil
	}
	return syms, nil
}

func (s *Session) WorkspaceSymbols(ctx context.Context, query string) ([]ports.WorkspaceSymbol, error) {
	ctx, span := observability.Tracer.Start(ctx, "session.WorkspaceSymbols", trace.WithAttributes(attribute.String("query", query)))
	defer span.End()

	syms, err := s.engine.WorkspaceSymbols(ctx, query)
	if err != nil {
		s.queryFailed("workspace_symbols", "", err)
		return nil, nil
	}
	return syms, nil
}

func (s *Session) References(ctx context.Context, uri string, pos ports.Position, includeDeclaration bool) ([]ports.Reference, error) {
	ctx, span := s.startSpan(ctx, "References", uri)
	defer span.End()

	doc, release, err := s.document(uri)
	if err != nil {
		return nil, err
	}
	defer release()

	refs, err := s.engine.References(ctx, doc, pos, includeDeclaration)
	if err != nil {
		s.queryFailed("references", uri, err)
		return nil, nil
	}
	return refs, nil
}

func (s *Session) Completion(ctx context.Context, uri string, pos ports.Position) ([]ports.CompletionItem, error) {
	ctx, span := s.startSpan(ctx, "Completion", uri)
	defer span.End()

	doc, release, err := s.document(uri)
	if err != nil {
		return nil, err
	}
	defer release()

	items, err := s.engine.Completion(ctx, doc, pos)
	if err != nil {
		s.queryFailed("completion", uri, err)
		return nil, nil
	}
	return items, nil
}

// ScopeForURI maps a document to its scope. An empty uri selects the first
// workspace root, or the global scope when there is none.
func (s *Session) ScopeForURI(uri string) index.Scope {
	roots := s.ws.Roots()
	if strings.TrimSpace(uri) == "" {
		if len(roots) == 0 {
			return index.GlobalScope()
		}
		return index.RootScope(roots[0])
	}
	if doc, ok := s.ws.Document(uri); ok {
		return s.engine.ScopeOf(doc)
	}
	return index.ScopeFor(roots, workspace.PathFromURI(uri))
}

// RebuildIndex discards the scope's cached index and builds it again.
// Build failures are returned to the caller.
func (s *Session) RebuildIndex(ctx context.Context, uri string) (ports.TargetDescription, error) {
	ctx, span := s.startSpan(ctx, "RebuildIndex", uri)
	defer span.End()

	scope := s.ScopeForURI(uri)
	ix, err := s.store.Get(ctx, scope, true)
	if err != nil {
		span.RecordError(err)
		return ports.TargetDescription{}, errors.AddContext(err, errors.CtxOperation, "index.rebuild")
	}
	return Describe(ix), nil
}

// DescribeActiveTarget reports the resolution behind the scope's index,
// building it when necessary.
func (s *Session) DescribeActiveTarget(ctx context.Context, uri string) (ports.TargetDescription, error) {
	ctx, span := s.startSpan(ctx, "DescribeActiveTarget", uri)
	defer span.End()

	scope := s.ScopeForURI(uri)
	ix, err := s.store.Get(ctx, scope, false)
	if err != nil {
		span.RecordError(err)
		return ports.TargetDescription{}, errors.AddContext(err, errors.CtxOperation, "target.describe")
	}
	return Describe(ix), nil
}

// Describe converts a built index into its outward-facing summary.
func Describe(ix *index.Index) ports.TargetDescription {
	if ix == nil {
		return ports.TargetDescription{}
	}
	res := ix.Resolution
	files := make([]ports.FileSpec, 0, len(res.Files))
	for _, spec := range res.Files {
		files = append(files, ports.FileSpec{Kind: string(spec.Kind), Path: spec.Path})
	}
	return ports.TargetDescription{
		Scope:           ix.Scope.Key,
		Device:          res.Device,
		DeviceSource:    string(res.DeviceSource),
		Library:         res.Library,
		PackRoot:        res.PackRoot,
		PackSource:      string(res.PackSource),
		Descriptor:      res.Descriptor,
		Files:           files,
		SymbolCount:     len(ix.Names),
		OccurrenceCount: ix.OccurrenceCount(),
		BuildID:         ix.BuildID,
		BuiltAt:         ix.BuiltAt,
	}
}
