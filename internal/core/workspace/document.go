package workspace

import (
	"net/url"
	"packsense/internal/core/ports"
	"packsense/internal/engine/scanner"
	"path/filepath"
	"regexp"
	"strings"
)

var wordPattern = regexp.MustCompile(`[A-Za-z_.$][A-Za-z0-9_.$]*`)

// Document is an immutable snapshot of an editor buffer.
type Document struct {
	uri     string
	path    string
	version int
	text    string
}

var _ ports.Document = (*Document)(nil)

func NewDocument(uri, text string, version int) *Document {
	return &Document{uri: uri, path: PathFromURI(uri), version: version, text: text}
}

func (d *Document) URI() string  { return d.uri }
func (d *Document) Path() string { return d.path }
func (d *Document) Version() int { return d.version }
func (d *Document) Text() string { return d.text }

func (d *Document) WordRangeAt(pos ports.Position) (ports.Range, bool) {
	lines := scanner.SplitLines(d.text)
	if pos.Line < 0 || pos.Line >= len(lines) {
		return ports.Range{}, false
	}
	start, end, ok := WordAt(lines[pos.Line], pos.Character)
	if !ok {
		return ports.Range{}, false
	}
	return ports.Range{
		Start: ports.Position{Line: pos.Line, Character: start},
		End:   ports.Position{Line: pos.Line, Character: end},
	}, true
}

// WordAt finds the identifier on line whose span [start, end] contains col.
// A cursor right after the last character still selects the word.
func WordAt(line string, col int) (int, int, bool) {
	if col < 0 || col > len(line) {
		return 0, 0, false
	}
	for _, loc := range wordPattern.FindAllStringIndex(line, -1) {
		if loc[0] <= col && col <= loc[1] {
			return loc[0], loc[1], true
		}
		if loc[0] > col {
			break
		}
	}
	return 0, 0, false
}

// PathFromURI maps file:// URIs and bare paths to a cleaned file-system
// path. Other schemes have no path.
func PathFromURI(uri string) string {
	if uri == "" {
		return ""
	}
	if !strings.Contains(uri, "://") {
		if strings.Contains(uri, ":") && !filepath.IsAbs(uri) && len(uri) > 1 && uri[1] != ':' {
			return ""
		}
		return filepath.Clean(uri)
	}
	u, err := url.Parse(uri)
	if err != nil || u.Scheme != "file" {
		return ""
	}
	return filepath.Clean(filepath.FromSlash(u.Path))
}

// URIFromPath is the inverse of PathFromURI for absolute paths.
func URIFromPath(path string) string {
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}
	return (&url.URL{Scheme: "file", Path: filepath.ToSlash(abs)}).String()
}
