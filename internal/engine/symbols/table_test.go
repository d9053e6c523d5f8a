package symbols

import (
	"packsense/internal/core/ports"
	"packsense/internal/engine/scanner"
	"testing"
)

type doc struct {
	uri     string
	text    string
	version int
}

func (d *doc) URI() string { return d.uri }
func (d *doc) Path() string { return "" }
func (d *doc) Version() int { return d.version }
func (d *doc) Text() string { return d.text }
func (d *doc) WordRangeAt(ports.Position) (ports.Range, bool) {
	return ports.Range{}, false
}

func TestBuild_LastDefinitionWins(t *testing.T) {
	table := Build("loop:\n  nop\n.equ LIMIT = 1\nloop:\n.set LIMIT = 2\n", 3)
	if table.Version != 3 {
		t.Fatalf("expected version 3, got %d", table.Version)
	}
	if len(table.Ordered) != 4 {
		t.Fatalf("expected 4 ordered occurrences, got %+v", table.Ordered)
	}
	loop, ok := table.Lookup("loop")
	if !ok || loop.Line != 4 || loop.File != scanner.CurrentDocument {
		t.Fatalf("expected redefinition on line 4, got %+v", loop)
	}
	limit, _ := table.Lookup("LIMIT")
	if limit.Kind != scanner.KindSet || limit.Line != 5 {
		t.Fatalf("expected .set redefinition to win, got %+v", limit)
	}
	if _, ok := table.Lookup("Loop"); ok {
		t.Fatal("lookup must be case-sensitive")
	}
}

func TestCache_RescansOnVersionChange(t *testing.T) {
	c := NewCache()
	d := &doc{uri: "file:///a.S", text: "start:\n", version: 1}

	first := c.Get(d)
	if second := c.Get(d); second != first {
		t.Fatal("expected cached table for unchanged version")
	}
	if c.Scans() != 1 {
		t.Fatalf("expected one scan, got %d", c.Scans())
	}

	d.text, d.version = "start:\nend:\n", 2
	updated := c.Get(d)
	if _, ok := updated.Lookup("end"); !ok {
		t.Fatal("expected rescan to pick up new label")
	}
	if c.Scans() != 2 {
		t.Fatalf("expected two scans, got %d", c.Scans())
	}

	c.Forget(d.uri)
	if c.Len() != 0 {
		t.Fatalf("expected empty cache after forget, got %d", c.Len())
	}
}
