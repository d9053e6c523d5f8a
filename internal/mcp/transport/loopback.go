package transport

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
)

// Loopback is an in-process Adapter. Calls made with Call are handed to the
// running handler one at a time.
type Loopback struct {
	mu       sync.Mutex
	started  bool
	ready    chan struct{}
	requests chan loopbackRequest
}

type loopbackRequest struct {
	tool string
	args map[string]any
	res  chan loopbackResponse
}

type loopbackResponse struct {
	result any
	err    error
}

func NewLoopback() *Loopback {
	return &Loopback{
		ready:    make(chan struct{}),
		requests: make(chan loopbackRequest),
	}
}

func (l *Loopback) Start(ctx context.Context, handler Handler) error {
	l.mu.Lock()
	if l.started {
		l.mu.Unlock()
		return fmt.Errorf("loopback adapter already started")
	}
	l.started = true
	close(l.ready)
	l.mu.Unlock()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case req := <-l.requests:
			res, err := handler(ctx, req.tool, req.args)
			req.res <- loopbackResponse{result: res, err: err}
		}
	}
}

func (l *Loopback) Stop() error {
	return nil
}

// Call round-trips args through JSON, as a real client would, and waits for
// the handler's answer.
func (l *Loopback) Call(ctx context.Context, tool string, args map[string]any) (any, error) {
	data, err := json.Marshal(args)
	if err != nil {
		return nil, err
	}
	var decoded map[string]any
	if err := json.Unmarshal(data, &decoded); err != nil {
		return nil, err
	}

	select {
	case <-l.ready:
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	res := make(chan loopbackResponse, 1)
	select {
	case l.requests <- loopbackRequest{tool: tool, args: decoded, res: res}:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	select {
	case resp := <-res:
		return resp.result, resp.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
