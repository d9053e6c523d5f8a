package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// FileName is the configuration file looked up in project roots.
const FileName = "packsense.toml"

type ResolvedPaths struct {
	Roots     []string
	PackPath  string
	CacheDir  string
	StorePath string
}

// ResolvePaths turns configured paths into absolute ones. Workspace roots
// are relative to cwd; when none are configured the detected project root
// containing cwd is used.
func ResolvePaths(cfg *Config, cwd string) (ResolvedPaths, error) {
	if strings.TrimSpace(cwd) == "" {
		return ResolvedPaths{}, fmt.Errorf("cwd must not be empty")
	}

	var roots []string
	for _, r := range cfg.Workspace.Roots {
		roots = append(roots, ResolveRelative(cwd, ExpandHome(r)))
	}
	if len(roots) == 0 {
		root, err := DetectProjectRoot([]string{cwd})
		if err != nil {
			return ResolvedPaths{}, err
		}
		roots = []string{root}
	}

	resolved := ResolvedPaths{
		Roots:     roots,
		CacheDir:  ResolveRelative(cwd, ExpandHome(cfg.Pack.CacheDir)),
		StorePath: ResolveRelative(cwd, ExpandHome(cfg.Store.Path)),
	}
	if p := strings.TrimSpace(cfg.Pack.Path); p != "" {
		resolved.PackPath = ResolveRelative(cwd, ExpandHome(p))
	}
	return resolved, nil
}

func ResolveRelative(base, value string) string {
	raw := strings.TrimSpace(value)
	if raw == "" {
		return filepath.Clean(base)
	}
	if filepath.IsAbs(raw) {
		return filepath.Clean(raw)
	}
	return filepath.Clean(filepath.Join(base, raw))
}

// ExpandHome replaces a leading "~" with the user's home directory.
func ExpandHome(value string) string {
	raw := strings.TrimSpace(value)
	if raw != "~" && !strings.HasPrefix(raw, "~/") {
		return raw
	}
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return raw
	}
	return filepath.Join(home, strings.TrimPrefix(raw, "~"))
}

// FindConfig walks up from start and returns the first packsense.toml found,
// or "" when there is none.
func FindConfig(start string) string {
	abs, err := filepath.Abs(start)
	if err != nil {
		return ""
	}
	dir := abs
	for {
		candidate := filepath.Join(dir, FileName)
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			return candidate
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
}

func DetectProjectRoot(candidates []string) (string, error) {
	markers := []string{
		FileName,
		".git",
		".vscode",
	}

	for _, candidate := range candidates {
		if strings.TrimSpace(candidate) == "" {
			continue
		}

		abs, err := filepath.Abs(candidate)
		if err != nil {
			continue
		}
		root := abs
		if info, err := os.Stat(abs); err == nil && !info.IsDir() {
			root = filepath.Dir(abs)
		}

		for {
			for _, marker := range markers {
				if _, err := os.Stat(filepath.Join(root, marker)); err == nil {
					return filepath.Clean(root), nil
				}
			}
			parent := filepath.Dir(root)
			if parent == root {
				break
			}
			root = parent
		}
	}

	for _, candidate := range candidates {
		if strings.TrimSpace(candidate) != "" {
			return filepath.Abs(candidate)
		}
	}
	cwd, err := os.Getwd()
	if err != nil {
		return "", err
	}
	return filepath.Clean(cwd), nil
}
