// Package fsys implements the tolerant file-system port on top of os.
package fsys

import (
	"errors"
	"io/fs"
	"os"
	"packsense/internal/core/ports"
	"sort"
)

// OS reads from the local disk. The zero value is ready to use.
type OS struct{}

var _ ports.FileSystem = OS{}

func (OS) ReadFile(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if isMissing(err) {
			return nil, nil
		}
		return nil, err
	}
	return data, nil
}

func (OS) Exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func (OS) Stat(path string) (ports.FileInfo, bool) {
	info, err := os.Stat(path)
	if err != nil {
		return ports.FileInfo{}, false
	}
	return ports.FileInfo{IsDir: info.IsDir(), Size: info.Size(), ModTime: info.ModTime()}, true
}

// ReadDir lists path sorted by name. Unreadable directories list as empty.
func (OS) ReadDir(path string) []ports.DirEntry {
	entries, err := os.ReadDir(path)
	if err != nil {
		return nil
	}
	out := make([]ports.DirEntry, 0, len(entries))
	for _, e := range entries {
		out = append(out, ports.DirEntry{Name: e.Name(), IsDir: e.IsDir()})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// isMissing treats "is a directory" style failures like absence so a
// mistyped path never fails a build.
func isMissing(err error) bool {
	if errors.Is(err, fs.ErrNotExist) {
		return true
	}
	var pe *fs.PathError
	if errors.As(err, &pe) {
		if info, statErr := os.Stat(pe.Path); statErr == nil && info.IsDir() {
			return true
		}
	}
	return false
}
