package pack

import (
	"packsense/internal/core/ports"
	"packsense/internal/engine/device"
	"packsense/internal/engine/scanner"
	"path/filepath"
	"sort"
	"strings"
)

// Pack-relative locations of the files that define device symbols.
var (
	headerDir    = filepath.Join("include", "avr")
	includeDir   = filepath.Join("avrasm", "inc")
	attributeDir = "atdf"
	coreHeaders  = []string{"common.h", "sfr_defs.h"}
)

// FileSpec is one pack file to scan and the scanner hint it needs.
type FileSpec struct {
	Kind scanner.FileKind
	Path string
}

// ResolveFiles lists, in scan order, the register header, the include
// definition file, the core header extras and the attribute description
// file for dev under root. Files that do not exist are left out.
func ResolveFiles(fsys ports.FileSystem, root, dev string) []FileSpec {
	if root == "" || dev == "" {
		return nil
	}
	var out []FileSpec
	if p := locateHeader(fsys, root, dev); p != "" {
		out = append(out, FileSpec{Kind: scanner.FileHeader, Path: p})
	}
	if p := locateInclude(fsys, root, dev); p != "" {
		out = append(out, FileSpec{Kind: scanner.FileInclude, Path: p})
	}
	for _, name := range coreHeaders {
		p := filepath.Join(root, headerDir, name)
		if fsys.Exists(p) {
			out = append(out, FileSpec{Kind: scanner.FileCoreHeader, Path: p})
		}
	}
	if p := locateAttribute(fsys, root, dev); p != "" {
		out = append(out, FileSpec{Kind: scanner.FileAttribute, Path: p})
	}
	return out
}

func locateHeader(fsys ports.FileSystem, root, dev string) string {
	dir := filepath.Join(root, headerDir)
	lib := device.LibraryName(dev)
	if exact := filepath.Join(dir, "io"+lib+".h"); fsys.Exists(exact) {
		return exact
	}
	return fuzzyMatch(fsys, dir, "io", ".h", lib, device.Token(dev))
}

func locateInclude(fsys ports.FileSystem, root, dev string) string {
	dir := filepath.Join(root, includeDir)
	lib := device.LibraryName(dev)
	if exact := filepath.Join(dir, lib+"def.inc"); fsys.Exists(exact) {
		return exact
	}
	return fuzzyMatch(fsys, dir, "", "def.inc", lib, device.Token(dev))
}

func locateAttribute(fsys ports.FileSystem, root, dev string) string {
	dir := filepath.Join(root, attributeDir)
	if exact := filepath.Join(dir, dev+".atdf"); fsys.Exists(exact) {
		return exact
	}
	want := strings.ToLower(dev + ".atdf")
	entries := fsys.ReadDir(dir)
	for _, e := range entries {
		if !e.IsDir && strings.ToLower(e.Name) == want {
			return filepath.Join(dir, e.Name)
		}
	}
	return fuzzyMatch(fsys, dir, "", ".atdf", strings.ToLower(dev), device.Token(dev))
}

type fuzzyCandidate struct {
	name string
	stem string
	rank int
}

// fuzzyMatch picks the best file in dir named prefix+stem+suffix (compared
// case-insensitively) for a device. Ranking: the stem equals lib, the stem
// ends with token, the stem contains token. Ties go to the shorter stem,
// then to the lexicographically smaller file name.
func fuzzyMatch(fsys ports.FileSystem, dir, prefix, suffix, lib, token string) string {
	if token == "" {
		return ""
	}
	lib = strings.ToLower(lib)
	var cands []fuzzyCandidate
	for _, e := range fsys.ReadDir(dir) {
		if e.IsDir {
			continue
		}
		lower := strings.ToLower(e.Name)
		if !strings.HasPrefix(lower, prefix) || !strings.HasSuffix(lower, suffix) {
			continue
		}
		stem := strings.TrimSuffix(strings.TrimPrefix(lower, prefix), suffix)
		if stem == "" {
			continue
		}
		rank := -1
		switch {
		case stem == lib:
			rank = 0
		case strings.HasSuffix(stem, token):
			rank = 1
		case strings.Contains(stem, token):
			rank = 2
		}
		if rank < 0 {
			continue
		}
		cands = append(cands, fuzzyCandidate{name: e.Name, stem: stem, rank: rank})
	}
	if len(cands) == 0 {
		return ""
	}
	sort.Slice(cands, func(i, j int) bool {
		if cands[i].rank != cands[j].rank {
			return cands[i].rank < cands[j].rank
		}
		if len(cands[i].stem) != len(cands[j].stem) {
			return len(cands[i].stem) < len(cands[j].stem)
		}
		return cands[i].name < cands[j].name
	})
	return filepath.Join(dir, cands[0].name)
}

// deviceFromAttributes infers a device from the shortest, then
// lexicographically first, attribute description file in the pack.
func deviceFromAttributes(fsys ports.FileSystem, root string) string {
	var names []string
	for _, e := range fsys.ReadDir(filepath.Join(root, attributeDir)) {
		if !e.IsDir && strings.HasSuffix(strings.ToLower(e.Name), ".atdf") {
			names = append(names, e.Name)
		}
	}
	if len(names) == 0 {
		return ""
	}
	sort.Slice(names, func(i, j int) bool {
		if len(names[i]) != len(names[j]) {
			return len(names[i]) < len(names[j])
		}
		return names[i] < names[j]
	})
	return names[0][:len(names[0])-len(".atdf")]
}
