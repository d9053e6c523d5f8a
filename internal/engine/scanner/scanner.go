// # internal/engine/scanner/scanner.go
package scanner

import (
	"path/filepath"
	"regexp"
	"strings"
)

// Kind is the syntactic form that produced an occurrence.
type Kind string

const (
	KindLabel     Kind = "label"
	KindEqu       Kind = "equ"
	KindSet       Kind = "set"
	KindMacro     Kind = "macro"
	KindEnum      Kind = "enum"
	KindAttribute Kind = "atdf-attribute"
)

// FileKind tells the scanner which pattern families apply to a line.
type FileKind string

const (
	FileAssembly   FileKind = "asm"
	FileHeader     FileKind = "header"
	FileInclude    FileKind = "include"
	FileCoreHeader FileKind = "core-header"
	FileAttribute  FileKind = "atdf"
)

// AssemblyExtensions are the lower-cased extensions of assembly-family
// sources and the headers they include.
var AssemblyExtensions = []string{".s", ".asm", ".inc", ".sx", ".h"}

// IsAssemblyFile reports whether path has an assembly-family extension,
// ignoring case.
func IsAssemblyFile(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, known := range AssemblyExtensions {
		if ext == known {
			return true
		}
	}
	return false
}

// CurrentDocument marks occurrences that belong to the buffer being queried
// rather than a file on disk.
const CurrentDocument = "<current>"

// MaxLineText bounds the raw line text kept on an occurrence.
const MaxLineText = 200

// Match is a single symbol found on one line.
type Match struct {
	Name   string
	Kind   Kind
	Column int
}

// Occurrence is one definition site.
type Occurrence struct {
	Name   string
	File   string
	Line   int // 1-based
	Column int // 0-based byte offset
	Text   string
	Kind   Kind
}

type rule struct {
	kind    Kind
	pattern *regexp.Regexp
	applies func(FileKind) bool
	accept  func(string) bool
	all     bool
}

const identClass = `[A-Za-z_.$][A-Za-z0-9_.$]*`

var rules = []rule{
	{
		kind:    KindLabel,
		pattern: regexp.MustCompile(`^\s*(` + identClass + `):`),
		applies: notAttribute,
	},
	{
		kind:    KindEqu,
		pattern: regexp.MustCompile(`^\s*(?i:\.equ)\s+(` + identClass + `)\s*[=,]`),
		applies: notAttribute,
	},
	{
		kind:    KindSet,
		pattern: regexp.MustCompile(`^\s*(?i:\.set)\s+(` + identClass + `)\s*[=,]`),
		applies: notAttribute,
	},
	{
		kind:    KindMacro,
		pattern: regexp.MustCompile(`^\s*#\s*define\s+([A-Za-z_][A-Za-z0-9_]*)\b`),
		applies: notAttribute,
	},
	{
		kind:    KindEnum,
		pattern: regexp.MustCompile(`^\s*([A-Za-z_][A-Za-z0-9_]*)\s*=\s*\(.*\)\s*,`),
		applies: func(k FileKind) bool { return k == FileHeader || k == FileCoreHeader },
	},
	{
		kind:    KindAttribute,
		pattern: regexp.MustCompile(`\bname="([A-Za-z_][A-Za-z0-9_]*)"`),
		applies: func(k FileKind) bool { return k == FileAttribute },
		accept:  acceptAttributeValue,
		all:     true,
	},
}

func notAttribute(k FileKind) bool { return k != FileAttribute }

// acceptAttributeValue drops vendor-internal attribute values: only names with
// an underscore or written entirely in upper case become symbols.
func acceptAttributeValue(value string) bool {
	if strings.Contains(value, "_") {
		return true
	}
	return value == strings.ToUpper(value)
}

// ScanLine returns every symbol match on line. Patterns are evaluated
// independently, so one line can yield several matches. Nothing is
// deduplicated here.
func ScanLine(line string, hint FileKind) []Match {
	var out []Match
	for _, r := range rules {
		if !r.applies(hint) {
			continue
		}
		var groups [][]string
		if r.all {
			groups = r.pattern.FindAllStringSubmatch(line, -1)
		} else if m := r.pattern.FindStringSubmatch(line); m != nil {
			groups = [][]string{m}
		}
		for _, g := range groups {
			name := g[1]
			if r.accept != nil && !r.accept(name) {
				continue
			}
			out = append(out, Match{
				Name:   name,
				Kind:   r.kind,
				Column: strings.Index(line, name),
			})
		}
	}
	return out
}

// ScanText splits text into lines and scans each of them, stamping the
// resulting occurrences with file and 1-based line numbers.
func ScanText(file, text string, hint FileKind) []Occurrence {
	var out []Occurrence
	for i, line := range SplitLines(text) {
		for _, m := range ScanLine(line, hint) {
			out = append(out, Occurrence{
				Name:   m.Name,
				File:   file,
				Line:   i + 1,
				Column: m.Column,
				Text:   TruncateLine(line),
				Kind:   m.Kind,
			})
		}
	}
	return out
}

// SplitLines splits on \n and strips a trailing \r from each line.
func SplitLines(text string) []string {
	if text == "" {
		return nil
	}
	lines := strings.Split(text, "\n")
	for i, l := range lines {
		lines[i] = strings.TrimSuffix(l, "\r")
	}
	return lines
}

func TruncateLine(line string) string {
	line = strings.TrimSpace(line)
	if len(line) <= MaxLineText {
		return line
	}
	return line[:MaxLineText] + "…"
}

// IsDefinitionForm reports whether kind comes from a label, .equ or .set line.
func IsDefinitionForm(kind Kind) bool {
	return kind == KindLabel || kind == KindEqu || kind == KindSet
}

// IsIdentChar reports whether b belongs to the identifier class used for
// symbol tokens.
func IsIdentChar(b byte) bool {
	return b == '_' || b == '.' || b == '$' ||
		(b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z') || (b >= '0' && b <= '9')
}

// IsIdentStart reports whether b may begin an identifier.
func IsIdentStart(b byte) bool {
	return IsIdentChar(b) && !(b >= '0' && b <= '9')
}
