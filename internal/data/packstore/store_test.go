package packstore

import (
	"packsense/internal/core/ports"
	"packsense/internal/engine/scanner"
	"path/filepath"
	"testing"
	"time"
)

func TestSQLiteStore_RoundTripKeyedBySizeAndMtime(t *testing.T) {
	store, err := Open(filepath.Join(t.TempDir(), "nested", "packs.db"))
	if err != nil {
		t.Fatalf("open pack store: %v", err)
	}
	defer store.Close()

	info := ports.FileInfo{Size: 42, ModTime: time.Unix(1700000000, 5)}
	occs := scanner.ScanText("/pack/m328Pdef.inc", ".equ PORTB = 0x05\n.equ DDRB = 0x04\n", scanner.FileInclude)

	if _, hit, err := store.Load("/pack/m328Pdef.inc", info); err != nil || hit {
		t.Fatalf("expected miss before save, got hit=%v err=%v", hit, err)
	}
	if err := store.Save("/pack/m328Pdef.inc", info, occs); err != nil {
		t.Fatalf("save: %v", err)
	}

	got, hit, err := store.Load("/pack/m328Pdef.inc", info)
	if err != nil || !hit {
		t.Fatalf("expected hit, got hit=%v err=%v", hit, err)
	}
	if len(got) != 2 || got[0] != occs[0] || got[1] != occs[1] {
		t.Fatalf("stored occurrences differ: %+v vs %+v", got, occs)
	}

	changed := info
	changed.ModTime = info.ModTime.Add(time.Second)
	if _, hit, _ := store.Load("/pack/m328Pdef.inc", changed); hit {
		t.Fatal("expected miss after mtime change")
	}
	changed = info
	changed.Size++
	if _, hit, _ := store.Load("/pack/m328Pdef.inc", changed); hit {
		t.Fatal("expected miss after size change")
	}

	st, err := store.Stats()
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if st.Files != 1 || st.Hits != 1 || st.Misses != 3 {
		t.Fatalf("unexpected stats %+v", st)
	}
}

func TestSQLiteStore_PruneMissingAndEmptyScan(t *testing.T) {
	path := filepath.Join(t.TempDir(), "packs.db")
	store, err := Open(path)
	if err != nil {
		t.Fatalf("open pack store: %v", err)
	}
	info := ports.FileInfo{Size: 1, ModTime: time.Unix(1, 0)}
	if err := store.Save("/keep.h", info, nil); err != nil {
		t.Fatalf("save keep: %v", err)
	}
	if err := store.Save("/gone.h", info, nil); err != nil {
		t.Fatalf("save gone: %v", err)
	}
	n, err := store.PruneMissing(func(p string) bool { return p == "/keep.h" })
	if err != nil || n != 1 {
		t.Fatalf("expected one pruned row, got %d (%v)", n, err)
	}
	_ = store.Close()

	reopened, err := Open(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer reopened.Close()
	got, hit, err := reopened.Load("/keep.h", info)
	if err != nil || !hit || len(got) != 0 {
		t.Fatalf("expected empty hit after reopen, got %+v hit=%v err=%v", got, hit, err)
	}
}

func TestOpen_RejectsDirectory(t *testing.T) {
	if _, err := Open(t.TempDir()); err == nil {
		t.Fatal("expected directory path to be rejected")
	}
	if _, err := Open("  "); err == nil {
		t.Fatal("expected empty path to be rejected")
	}
}
