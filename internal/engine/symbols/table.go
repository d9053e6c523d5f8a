// Package symbols keeps per-document tables of locally defined symbols.
package symbols

import (
	"packsense/internal/core/ports"
	"packsense/internal/engine/scanner"
	"sync"
)

// Table is the scan result of one document version.
type Table struct {
	Version int
	// Symbols maps a name to its last definition in the document.
	Symbols map[string]scanner.Occurrence
	// Ordered lists every occurrence in scan order.
	Ordered []scanner.Occurrence
}

// Lookup returns the local definition of name, if any.
func (t *Table) Lookup(name string) (scanner.Occurrence, bool) {
	if t == nil {
		return scanner.Occurrence{}, false
	}
	occ, ok := t.Symbols[name]
	return occ, ok
}

// Build scans text into a fresh table.
func Build(text string, version int) *Table {
	t := &Table{Version: version, Symbols: make(map[string]scanner.Occurrence)}
	for _, occ := range scanner.ScanText(scanner.CurrentDocument, text, scanner.FileAssembly) {
		t.Symbols[occ.Name] = occ
		t.Ordered = append(t.Ordered, occ)
	}
	return t
}

// Cache holds one table per document URI.
type Cache struct {
	mu     sync.Mutex
	tables map[string]*Table
	scans  int
}

func NewCache() *Cache {
	return &Cache{tables: make(map[string]*Table)}
}

// Get returns the cached table for doc when its version matches and
// rescans the document otherwise.
func (c *Cache) Get(doc ports.Document) *Table {
	if doc == nil {
		return nil
	}
	uri, version := doc.URI(), doc.Version()

	c.mu.Lock()
	if t, ok := c.tables[uri]; ok && t.Version == version {
		c.mu.Unlock()
		return t
	}
	c.mu.Unlock()

	t := Build(doc.Text(), version)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.scans++
	if cur, ok := c.tables[uri]; ok && cur.Version == version {
		return cur
	}
	c.tables[uri] = t
	return t
}

// Forget drops the table of a closed document.
func (c *Cache) Forget(uri string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.tables, uri)
}

// Len reports how many documents have a cached table.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.tables)
}

// Scans reports how many times a document was rescanned.
func (c *Cache) Scans() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.scans
}
