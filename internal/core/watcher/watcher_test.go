package watcher

import (
	"errors"
	"os"
	"packsense/internal/core/ports"
	"path/filepath"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
)

func TestNewWatcher_RejectsNilCallback(t *testing.T) {
	w, err := NewWatcher(100*time.Millisecond, nil, ".mplab.json", nil)
	if err == nil {
		t.Fatal("expected error for nil callback")
	}
	if !errors.Is(err, os.ErrInvalid) {
		t.Fatalf("expected os.ErrInvalid, got %v", err)
	}
	if w != nil {
		t.Fatal("expected nil watcher when callback is invalid")
	}
}

func waitFor(t *testing.T, events <-chan []ports.FileEvent, match func(ports.FileEvent) bool) ports.FileEvent {
	t.Helper()
	timeout := time.After(3 * time.Second)
	for {
		select {
		case batch := <-events:
			for _, ev := range batch {
				if match(ev) {
					return ev
				}
			}
		case <-timeout:
			t.Fatal("timed out waiting for file event")
			return ports.FileEvent{}
		}
	}
}

func TestWatcher_ForwardsAssemblyAndDescriptorChanges(t *testing.T) {
	tmpDir := t.TempDir()
	if err := os.MkdirAll(filepath.Join(tmpDir, "build"), 0o755); err != nil {
		t.Fatal(err)
	}

	events := make(chan []ports.FileEvent, 16)
	w, err := NewWatcher(50*time.Millisecond, []string{"build"}, ".mplab.json", func(batch []ports.FileEvent) {
		events <- batch
	})
	if err != nil {
		t.Fatal(err)
	}
	defer w.Close()

	if err := w.Watch([]string{tmpDir}); err != nil {
		t.Fatal(err)
	}

	src := filepath.Join(tmpDir, "main.S")
	if err := os.WriteFile(src, []byte("reset: rjmp reset\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	waitFor(t, events, func(ev ports.FileEvent) bool { return ev.Path == src })

	descriptor := filepath.Join(tmpDir, "board.mplab.json")
	if err := os.WriteFile(descriptor, []byte(`{"device":"ATmega328P"}`), 0o644); err != nil {
		t.Fatal(err)
	}
	waitFor(t, events, func(ev ports.FileEvent) bool { return ev.Path == descriptor })

	if err := os.Remove(src); err != nil {
		t.Fatal(err)
	}
	ev := waitFor(t, events, func(ev ports.FileEvent) bool { return ev.Path == src && ev.Kind == ports.EventDelete })
	if ev.Kind != ports.EventDelete {
		t.Fatalf("expected delete, got %+v", ev)
	}
}

func TestWatcher_NewDirectoryIsWatched(t *testing.T) {
	tmpDir := t.TempDir()
	events := make(chan []ports.FileEvent, 16)
	w, err := NewWatcher(50*time.Millisecond, nil, ".mplab.json", func(batch []ports.FileEvent) {
		events <- batch
	})
	if err != nil {
		t.Fatal(err)
	}
	defer w.Close()
	if err := w.Watch([]string{tmpDir}); err != nil {
		t.Fatal(err)
	}

	subdir := filepath.Join(tmpDir, "drivers")
	if err := os.MkdirAll(subdir, 0o755); err != nil {
		t.Fatal(err)
	}
	nested := filepath.Join(subdir, "uart.inc")
	if err := os.WriteFile(nested, []byte(".equ BAUD = 9600\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	waitFor(t, events, func(ev ports.FileEvent) bool { return ev.Path == nested })
}

func TestWatcher_Filters(t *testing.T) {
	w, err := NewWatcher(10*time.Millisecond, []string{"out*"}, ".mplab.json", func([]ports.FileEvent) {})
	if err != nil {
		t.Fatal(err)
	}
	defer w.Close()

	for _, name := range []string{"a.s", "A.S", "b.asm", "c.inc", "d.sx", "iom8.h", ".vscode/x.MPLAB.json"} {
		if !w.shouldForward(name) {
			t.Errorf("expected %s to be forwarded", name)
		}
	}
	for _, name := range []string{"main.c", "notes.txt", "settings.json"} {
		if w.shouldForward(name) {
			t.Errorf("expected %s to be ignored", name)
		}
	}
	if !w.shouldExcludeDir("/p/output") || !w.shouldExcludeDir("/p/.git") || w.shouldExcludeDir("/p/src") {
		t.Fatal("unexpected directory exclusion result")
	}
}

func TestClassify(t *testing.T) {
	cases := []struct {
		op   fsnotify.Op
		want ports.EventKind
	}{
		{fsnotify.Create, ports.EventCreate},
		{fsnotify.Write, ports.EventSave},
		{fsnotify.Remove, ports.EventDelete},
		{fsnotify.Rename, ports.EventRename},
		{fsnotify.Create | fsnotify.Write, ports.EventCreate},
	}
	for _, tc := range cases {
		got, ok := classify(tc.op)
		if !ok || got != tc.want {
			t.Errorf("classify(%v) = %q, want %q", tc.op, got, tc.want)
		}
	}
	if _, ok := classify(fsnotify.Chmod); ok {
		t.Error("chmod must not be forwarded")
	}
}

func TestScheduleChange_KeepsStrongestKind(t *testing.T) {
	events := make(chan []ports.FileEvent, 1)
	w, err := NewWatcher(time.Hour, nil, "", func(batch []ports.FileEvent) { events <- batch })
	if err != nil {
		t.Fatal(err)
	}
	defer w.Close()

	w.scheduleChange("/p/a.s", ports.EventCreate)
	w.scheduleChange("/p/a.s", ports.EventSave)
	w.scheduleChange("/p/b.s", ports.EventSave)
	w.flushChanges()

	batch := <-events
	if len(batch) != 2 || batch[0].Path != "/p/a.s" || batch[0].Kind != ports.EventCreate || batch[1].Kind != ports.EventSave {
		t.Fatalf("unexpected batch: %+v", batch)
	}
}
