package workspace

import (
	"strings"

	"github.com/gobwas/glob"
)

// Matcher matches slash-separated relative paths against one glob. A
// leading "**/" also matches at the root.
type Matcher struct {
	pattern string
	globs   []glob.Glob
}

func CompileMatcher(pattern string) (*Matcher, error) {
	pattern = strings.TrimSpace(pattern)
	if pattern == "" {
		return &Matcher{}, nil
	}
	g, err := glob.Compile(pattern, '/')
	if err != nil {
		return nil, err
	}
	m := &Matcher{pattern: pattern, globs: []glob.Glob{g}}
	if rest, ok := strings.CutPrefix(pattern, "**/"); ok && rest != "" {
		if g2, err := glob.Compile(rest, '/'); err == nil {
			m.globs = append(m.globs, g2)
		}
	}
	return m, nil
}

// Empty reports whether the matcher was compiled from an empty pattern.
func (m *Matcher) Empty() bool { return m == nil || len(m.globs) == 0 }

func (m *Matcher) Match(rel string) bool {
	if m == nil {
		return false
	}
	for _, g := range m.globs {
		if g.Match(rel) {
			return true
		}
	}
	return false
}

func (m *Matcher) String() string {
	if m == nil {
		return ""
	}
	return m.pattern
}
