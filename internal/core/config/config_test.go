package config

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), FileName)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad(t *testing.T) {
	path := writeConfig(t, `
[pack]
path = "/opt/packs/ATmega_DFP/3.1.264"
device = "m328p"
auto_detect = false

[features]
references = false

[limits]
max_hover_results = 3
max_scan_files = 0
max_completion_items = 999999

[workspace]
roots = ["./firmware", "", "./firmware", "./boot"]

[watch]
debounce = "1s"

[store]
enabled = true
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Version != 1 {
		t.Errorf("expected version default 1, got %d", cfg.Version)
	}
	if cfg.Pack.Device != "m328p" || cfg.Pack.AutoDetectEnabled() {
		t.Errorf("unexpected pack section: %+v", cfg.Pack)
	}
	if cfg.Pack.Vendor != DefaultVendor || cfg.Pack.CacheDir != DefaultCacheDir {
		t.Errorf("expected pack defaults, got %+v", cfg.Pack)
	}
	if cfg.Features.ReferencesEnabled() || !cfg.Features.CompletionEnabled() {
		t.Errorf("unexpected feature toggles: %+v", cfg.Features)
	}
	if got := cfg.Limits.HoverResults(); got != 3 {
		t.Errorf("expected hover cap 3, got %d", got)
	}
	if got := cfg.Limits.ScanFiles(); got != DefaultMaxScanFiles {
		t.Errorf("expected zero limit to fall back to %d, got %d", DefaultMaxScanFiles, got)
	}
	if got := cfg.Limits.CompletionItems(); got != maxCompletionItemsCap {
		t.Errorf("expected completion cap clamped to %d, got %d", maxCompletionItemsCap, got)
	}
	if len(cfg.Workspace.Roots) != 2 || cfg.Workspace.Roots[0] != "./firmware" || cfg.Workspace.Roots[1] != "./boot" {
		t.Errorf("unexpected roots: %v", cfg.Workspace.Roots)
	}
	if cfg.Workspace.Include != DefaultInclude {
		t.Errorf("expected default include, got %q", cfg.Workspace.Include)
	}
	if cfg.Watch.Debounce != time.Second {
		t.Errorf("expected debounce 1s, got %v", cfg.Watch.Debounce)
	}
	if !cfg.Store.Enabled || cfg.Store.Path != DefaultStorePath {
		t.Errorf("unexpected store section: %+v", cfg.Store)
	}
	if cfg.MCP.Transport != "stdio" || cfg.MCP.RequestTimeout != 30*time.Second {
		t.Errorf("unexpected mcp defaults: %+v", cfg.MCP)
	}
}

func TestDefault(t *testing.T) {
	cfg := Default()
	if !cfg.Pack.AutoDetectEnabled() || !cfg.Features.InstructionCompletionEnabled() || !cfg.Features.WorkspaceIncludesPack() {
		t.Fatalf("expected boolean defaults to be true: %+v", cfg)
	}
	if cfg.Store.Enabled {
		t.Fatal("expected store to be disabled by default")
	}
	if cfg.Limits.HoverResults() != 6 || cfg.Limits.CompletionItems() != 200 || cfg.Limits.ScanFiles() != 400 ||
		cfg.Limits.WorkspaceSymbols() != 300 || cfg.Limits.ReferenceResults() != 500 {
		t.Fatalf("unexpected default limits")
	}
}

func TestLoadOrDefault_MissingFile(t *testing.T) {
	cfg, err := LoadOrDefault(filepath.Join(t.TempDir(), "absent.toml"))
	if err != nil {
		t.Fatalf("expected defaults for a missing file, got %v", err)
	}
	if cfg.Pack.DescriptorSuffix != DefaultDescriptorSuffix {
		t.Fatalf("expected defaults, got %+v", cfg.Pack)
	}
}

func TestLoad_Validation(t *testing.T) {
	cases := map[string]string{
		"version":   "version = 3\n",
		"vendor":    "[pack]\nvendor = \"a/b\"\n",
		"suffix":    "[pack]\ndescriptor_suffix = \"json\"\n",
		"transport": "[mcp]\ntransport = \"http\"\n",
		"warmup":    "[observability]\nwarmup_rate = -1.0\n",
	}
	for name, content := range cases {
		if _, err := Load(writeConfig(t, content)); err == nil {
			t.Errorf("%s: expected validation error", name)
		}
	}
}

func TestApplyEnvOverrides(t *testing.T) {
	t.Setenv("PACKSENSE_PACK_DEVICE", "tn85")
	t.Setenv("PACKSENSE_PACK_AUTO_DETECT", "false")
	t.Setenv("PACKSENSE_FEATURES_COMPLETION", "FALSE")
	t.Setenv("PACKSENSE_LIMITS_MAX_HOVER_RESULTS", "4.9")
	t.Setenv("PACKSENSE_LIMITS_MAX_SCAN_FILES", "not-a-number")
	t.Setenv("PACKSENSE_WATCH_DEBOUNCE", "2s")
	t.Setenv("PACKSENSE_STORE_ENABLED", "true")

	cfg := Default()
	ApplyEnvOverrides(cfg)

	if cfg.Pack.Device != "tn85" || cfg.Pack.AutoDetectEnabled() {
		t.Errorf("unexpected pack overrides: %+v", cfg.Pack)
	}
	if cfg.Features.CompletionEnabled() {
		t.Error("expected completion disabled by env")
	}
	if cfg.Limits.MaxHoverResults != 4 {
		t.Errorf("expected float override truncated to 4, got %d", cfg.Limits.MaxHoverResults)
	}
	if cfg.Limits.MaxScanFiles != 0 {
		t.Errorf("expected invalid override ignored, got %d", cfg.Limits.MaxScanFiles)
	}
	if cfg.Watch.Debounce != 2*time.Second || !cfg.Store.Enabled {
		t.Errorf("unexpected overrides: %+v %+v", cfg.Watch, cfg.Store)
	}
}

func TestLookupCoversEveryKey(t *testing.T) {
	cfg := Default()
	for _, key := range Keys {
		if _, ok := cfg.Lookup(key); !ok {
			t.Errorf("Lookup(%q) not recognized", key)
		}
	}
	if _, ok := cfg.Lookup("packsense.unknown"); ok {
		t.Error("expected unknown key to be rejected")
	}
	v, _ := cfg.Lookup("packsense.limits.maxReferenceResults")
	if v != 500 {
		t.Errorf("expected effective limit 500, got %v", v)
	}
	if !strings.Contains(cfg.Dump(), "packsense.pack.vendor = Microchip\n") {
		t.Errorf("dump is missing vendor line:\n%s", cfg.Dump())
	}
}

func TestResolvePaths(t *testing.T) {
	cwd := t.TempDir()
	cfg := Default()
	cfg.Workspace.Roots = []string{"fw"}
	cfg.Pack.Path = "packs/ATtiny_DFP"
	cfg.Pack.CacheDir = "/abs/cache"

	got, err := ResolvePaths(cfg, cwd)
	if err != nil {
		t.Fatal(err)
	}
	if len(got.Roots) != 1 || got.Roots[0] != filepath.Join(cwd, "fw") {
		t.Errorf("unexpected roots: %v", got.Roots)
	}
	if got.PackPath != filepath.Join(cwd, "packs", "ATtiny_DFP") || got.CacheDir != "/abs/cache" {
		t.Errorf("unexpected paths: %+v", got)
	}

	if _, err := ResolvePaths(cfg, " "); err == nil {
		t.Error("expected error for empty cwd")
	}
}

func TestResolvePaths_DetectsProjectRoot(t *testing.T) {
	root := t.TempDir()
	if err := os.MkdirAll(filepath.Join(root, ".vscode"), 0o755); err != nil {
		t.Fatal(err)
	}
	nested := filepath.Join(root, "src", "drivers")
	if err := os.MkdirAll(nested, 0o755); err != nil {
		t.Fatal(err)
	}

	got, err := ResolvePaths(Default(), nested)
	if err != nil {
		t.Fatal(err)
	}
	if len(got.Roots) != 1 || got.Roots[0] != filepath.Clean(root) {
		t.Fatalf("expected detected root %s, got %v", root, got.Roots)
	}
}

func TestExpandHome(t *testing.T) {
	t.Setenv("HOME", "/home/dev")
	if got := ExpandHome("~/.mchp_packs"); got != "/home/dev/.mchp_packs" {
		t.Errorf("unexpected expansion: %q", got)
	}
	if got := ExpandHome("rel/~x"); got != "rel/~x" {
		t.Errorf("unexpected expansion: %q", got)
	}
}

func TestFindConfig(t *testing.T) {
	root := t.TempDir()
	path := filepath.Join(root, FileName)
	if err := os.WriteFile(path, []byte("version = 1\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	nested := filepath.Join(root, "a", "b")
	if err := os.MkdirAll(nested, 0o755); err != nil {
		t.Fatal(err)
	}
	if got := FindConfig(nested); got != path {
		t.Fatalf("expected %s, got %q", path, got)
	}
}

func TestWatcher_ReloadsOnWrite(t *testing.T) {
	path := writeConfig(t, "[pack]\ndevice = \"m8\"\n")

	got := make(chan *Config, 4)
	w := NewWatcher(path, func(cfg *Config) { got <- cfg })
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := w.Start(ctx); err != nil {
		t.Fatal(err)
	}
	defer w.Stop()

	if err := os.WriteFile(path, []byte("[pack]\ndevice = \"m328p\"\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	select {
	case cfg := <-got:
		if cfg.Pack.Device != "m328p" {
			t.Fatalf("expected reloaded device, got %q", cfg.Pack.Device)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for reload")
	}
}
