package registry

import (
	"context"
	"fmt"
	"packsense/internal/mcp/contracts"
	"sort"
	"strings"
	"sync"
)

// Handler runs one operation on already validated input.
type Handler func(ctx context.Context, input any) (any, error)

// Class groups operations by how the server has to treat them.
type Class string

const (
	// ClassDocument edits the open-document overlay and never blocks.
	ClassDocument Class = "document"
	// ClassQuery reads symbols; cancellation yields partial results.
	ClassQuery Class = "query"
	// ClassImperative rebuilds or describes a scope and surfaces errors.
	ClassImperative Class = "imperative"
)

// ClassOf derives the class from the operation namespace.
func ClassOf(op contracts.OperationID) Class {
	ns, _, _ := strings.Cut(string(op), ".")
	switch ns {
	case "document":
		return ClassDocument
	case "symbols":
		return ClassQuery
	default:
		return ClassImperative
	}
}

type Entry struct {
	Operation contracts.OperationID
	Class     Class
	Handler   Handler
}

// Registry holds the handlers of the exposed operations. Only operations of
// the contract can be registered, and they are always listed in contract
// order whatever the registration order was.
type Registry struct {
	mu      sync.RWMutex
	entries map[contracts.OperationID]Entry
	rank    map[contracts.OperationID]int
}

func New() *Registry {
	rank := make(map[contracts.OperationID]int, len(contracts.Operations))
	for i, op := range contracts.Operations {
		rank[op] = i
	}
	return &Registry{
		entries: make(map[contracts.OperationID]Entry),
		rank:    rank,
	}
}

func (r *Registry) Register(op contracts.OperationID, handler Handler) error {
	if handler == nil {
		return fmt.Errorf("handler is required")
	}
	if _, known := r.rank[op]; !known {
		return fmt.Errorf("unknown operation: %q", op)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.entries[op]; exists {
		return fmt.Errorf("operation already registered: %s", op)
	}
	r.entries[op] = Entry{Operation: op, Class: ClassOf(op), Handler: handler}
	return nil
}

func (r *Registry) Lookup(op contracts.OperationID) (Entry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	e, ok := r.entries[op]
	return e, ok
}

// Operations lists the registered operations in contract order.
func (r *Registry) Operations() []contracts.OperationID {
	r.mu.RLock()
	out := make([]contracts.OperationID, 0, len(r.entries))
	for op := range r.entries {
		out = append(out, op)
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return r.rank[out[i]] < r.rank[out[j]] })
	return out
}

// Count reports how many operations of each class are registered.
func (r *Registry) Count() map[Class]int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make(map[Class]int, 3)
	for _, e := range r.entries {
		out[e.Class]++
	}
	return out
}
