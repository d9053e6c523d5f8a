package queue

import (
	"context"
	"io"
	"packsense/internal/core/ports"
	"sync"
	"sync/atomic"
	"time"
)

type EnqueueResult string

const (
	EnqueueAccepted EnqueueResult = "accepted"
	EnqueueDropped  EnqueueResult = "dropped"
)

// EventQueue is a bounded FIFO of file events. Enqueue never blocks; events
// arriving while the queue is full are dropped and counted.
type EventQueue struct {
	ch      chan ports.FileEvent
	mu      sync.RWMutex
	closed  bool
	dropped atomic.Int64
}

func NewEventQueue(capacity int) *EventQueue {
	if capacity <= 0 {
		capacity = 1
	}
	return &EventQueue{ch: make(chan ports.FileEvent, capacity)}
}

func (q *EventQueue) Enqueue(ev ports.FileEvent) EnqueueResult {
	q.mu.RLock()
	defer q.mu.RUnlock()
	if q.closed {
		return EnqueueDropped
	}
	select {
	case q.ch <- ev:
		return EnqueueAccepted
	default:
		q.dropped.Add(1)
		return EnqueueDropped
	}
}

// DequeueBatch waits up to wait for a first event, then takes whatever else
// is already queued up to maxItems. It returns (nil, nil) on timeout and
// io.EOF once the queue is closed and drained.
func (q *EventQueue) DequeueBatch(ctx context.Context, maxItems int, wait time.Duration) ([]ports.FileEvent, error) {
	if maxItems <= 0 {
		maxItems = 1
	}
	batch := make([]ports.FileEvent, 0, maxItems)

	var timer <-chan time.Time
	if wait > 0 {
		t := time.NewTimer(wait)
		defer t.Stop()
		timer = t.C
	}

	select {
	case ev, ok := <-q.ch:
		if !ok {
			return nil, io.EOF
		}
		batch = append(batch, ev)
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-timer:
		return nil, nil
	default:
		if wait <= 0 {
			return nil, nil
		}
		select {
		case ev, ok := <-q.ch:
			if !ok {
				return nil, io.EOF
			}
			batch = append(batch, ev)
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-timer:
			return nil, nil
		}
	}

	for len(batch) < maxItems {
		select {
		case ev, ok := <-q.ch:
			if !ok {
				return batch, io.EOF
			}
			batch = append(batch, ev)
		default:
			return batch, nil
		}
	}

	return batch, nil
}

// TakeDropped returns the number of events dropped since the last call and
// resets the counter.
func (q *EventQueue) TakeDropped() int64 {
	return q.dropped.Swap(0)
}

func (q *EventQueue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return nil
	}
	q.closed = true
	close(q.ch)
	return nil
}

func (q *EventQueue) Len() int {
	if q == nil {
		return 0
	}
	return len(q.ch)
}
