package app

import (
	"context"
	"errors"
	"io"
	"packsense/internal/core/ports"
	"packsense/internal/core/watcher"
	"packsense/internal/data/queue"
	"time"
)

const (
	eventQueueCapacity = 1024
	eventBatchSize     = 256
	eventPollInterval  = time.Second
)

// activeWatch couples an fsnotify watcher with the queue that hands its
// events to the invalidation loop.
type activeWatch struct {
	w      *watcher.Watcher
	events *queue.EventQueue
	done   chan struct{}
}

func (a *activeWatch) Close() error {
	err := a.w.Close()
	_ = a.events.Close()
	<-a.done
	return err
}

// StartWatcher watches every workspace root and feeds classified file
// events into HandleEvents. It is a no-op when watching is disabled.
func (s *Session) StartWatcher() error {
	cfg := s.Config()
	if !cfg.Watch.IsEnabled() {
		return nil
	}

	events := queue.NewEventQueue(eventQueueCapacity)
	w, err := watcher.NewWatcher(
		cfg.Watch.Debounce,
		cfg.Watch.ExcludeDirs,
		cfg.Pack.DescriptorSuffix,
		func(batch []ports.FileEvent) {
			for _, ev := range batch {
				events.Enqueue(ev)
			}
		},
	)
	if err != nil {
		return err
	}
	if err := w.Watch(s.ws.Roots()); err != nil {
		_ = w.Close()
		return err
	}

	active := &activeWatch{w: w, events: events, done: make(chan struct{})}
	go s.drainEvents(active)

	s.watcherMu.Lock()
	prev := s.activeWatcher
	s.activeWatcher = active
	s.watcherMu.Unlock()
	if prev != nil {
		_ = prev.Close()
	}
	return nil
}

// drainEvents applies queued events until the queue is closed. After an
// overflow every scope is invalidated.
func (s *Session) drainEvents(a *activeWatch) {
	defer close(a.done)
	for {
		batch, err := a.events.DequeueBatch(context.Background(), eventBatchSize, eventPollInterval)
		if n := a.events.TakeDropped(); n > 0 {
			s.logger.Warn("file event queue overflowed, invalidating all pack indexes", "dropped", n)
			s.store.InvalidateAll("queue_overflow")
		} else {
			s.HandleEvents(batch)
		}
		if errors.Is(err, io.EOF) {
			return
		}
	}
}
