package workspace

import (
	"context"
	"os"
	"packsense/internal/core/errors"
	"packsense/internal/core/ports"
	"packsense/internal/data/fsys"
	"path/filepath"
	"testing"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestWordAt(t *testing.T) {
	line := "  ldi r16, LED_PIN ; 0x05"
	cases := []struct {
		col        int
		start, end int
		ok         bool
	}{
		{2, 2, 5, true},
		{5, 2, 5, true},
		{13, 11, 18, true},
		{18, 11, 18, true},
		{0, 0, 0, false},
		{22, 22, 25, true}, // "x05" inside 0x05
		{99, 0, 0, false},
	}
	for _, tc := range cases {
		start, end, ok := WordAt(line, tc.col)
		if ok != tc.ok || (ok && (start != tc.start || end != tc.end)) {
			t.Errorf("WordAt(col=%d) = (%d, %d, %v), want (%d, %d, %v)", tc.col, start, end, ok, tc.start, tc.end, tc.ok)
		}
	}
}

func TestDocument_WordRangeAt(t *testing.T) {
	doc := NewDocument("file:///proj/main.S", "start:\r\n  rjmp start\n", 1)
	if doc.Path() != filepath.FromSlash("/proj/main.S") {
		t.Fatalf("unexpected path %q", doc.Path())
	}
	rng, ok := doc.WordRangeAt(ports.Position{Line: 1, Character: 8})
	if !ok || rng.Start.Character != 7 || rng.End.Character != 12 {
		t.Fatalf("unexpected range %+v %v", rng, ok)
	}
	if _, ok := doc.WordRangeAt(ports.Position{Line: 5}); ok {
		t.Fatal("expected no word past end of document")
	}
}

func TestPathFromURI(t *testing.T) {
	if got := PathFromURI("untitled:Untitled-1"); got != "" {
		t.Fatalf("expected no path for untitled buffer, got %q", got)
	}
	if got := PathFromURI("file:///tmp/a%20b.S"); got != filepath.FromSlash("/tmp/a b.S") {
		t.Fatalf("unexpected decoded path %q", got)
	}
	abs := filepath.Join(t.TempDir(), "x.S")
	if got := PathFromURI(URIFromPath(abs)); got != abs {
		t.Fatalf("round trip mismatch: %q vs %q", got, abs)
	}
}

func TestLocal_OverlayAndLifecycle(t *testing.T) {
	root := t.TempDir()
	path := filepath.Join(root, "main.S")
	writeFile(t, path, "disk:\n")
	ws := New(fsys.OS{}, []string{root}, nil)

	if text, ok := ws.ReadText(path); !ok || text != "disk:\n" {
		t.Fatalf("expected disk text, got %q %v", text, ok)
	}
	uri := URIFromPath(path)
	ws.Open(uri, "buffer:\n", 1)
	if text, _ := ws.ReadText(path); text != "buffer:\n" {
		t.Fatalf("expected overlay text, got %q", text)
	}
	if _, err := ws.Change(uri, "edited:\n", 2); err != nil {
		t.Fatalf("change: %v", err)
	}
	doc, ok := ws.Document(uri)
	if !ok || doc.Version() != 2 || doc.Text() != "edited:\n" {
		t.Fatalf("unexpected document %+v", doc)
	}
	if err := ws.Close(uri); err != nil {
		t.Fatalf("close: %v", err)
	}
	if text, _ := ws.ReadText(path); text != "disk:\n" {
		t.Fatalf("expected disk text after close, got %q", text)
	}
	if _, err := ws.Change(uri, "", 3); !errors.IsCode(err, errors.CodeNotFound) {
		t.Fatalf("expected NOT_FOUND for closed document, got %v", err)
	}
	if _, ok := ws.ReadText(filepath.Join(root, "missing.S")); ok {
		t.Fatal("expected missing file to read as absent")
	}
}

func TestLocal_FindFiles(t *testing.T) {
	root := t.TempDir()
	for _, rel := range []string{"main.S", "lib/util.asm", "lib/defs.inc", "build/out.S", "notes.txt", "b.s"} {
		writeFile(t, filepath.Join(root, filepath.FromSlash(rel)), "")
	}
	ws := New(fsys.OS{}, []string{root}, nil)

	got, err := ws.FindFiles(context.Background(), root, "**/*.{s,S,asm,inc}", "**/build/**", 10)
	if err != nil {
		t.Fatalf("find files: %v", err)
	}
	var rels []string
	for _, p := range got {
		rel, _ := filepath.Rel(root, p)
		rels = append(rels, filepath.ToSlash(rel))
	}
	want := []string{"b.s", "lib/defs.inc", "lib/util.asm", "main.S"}
	if len(rels) != len(want) {
		t.Fatalf("expected %v, got %v", want, rels)
	}
	for i := range want {
		if rels[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, rels)
		}
	}

	capped, err := ws.FindFiles(context.Background(), root, "**/*.{s,S,asm,inc}", "", 2)
	if err != nil || len(capped) != 2 {
		t.Fatalf("expected cap of 2, got %v (%v)", capped, err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := ws.FindFiles(ctx, root, "", "", 10); err == nil {
		t.Fatal("expected cancellation error")
	}

	if _, err := ws.FindFiles(context.Background(), root, "[", "", 10); !errors.IsCode(err, errors.CodeValidationError) {
		t.Fatalf("expected validation error for bad glob, got %v", err)
	}
}

func TestLocal_SetRootsReportsChange(t *testing.T) {
	a, b := t.TempDir(), t.TempDir()
	ws := New(fsys.OS{}, []string{a}, nil)
	if ws.SetRoots([]string{a, a}) {
		t.Fatal("expected duplicate root to be a no-op")
	}
	if !ws.SetRoots([]string{b, a}) {
		t.Fatal("expected added root to report a change")
	}
	if len(ws.Roots()) != 2 {
		t.Fatalf("unexpected roots %v", ws.Roots())
	}
}
