package config

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

type Config struct {
	Version       int           `toml:"version"`
	Pack          Pack          `toml:"pack"`
	Features      Features      `toml:"features"`
	Limits        Limits        `toml:"limits"`
	Workspace     Workspace     `toml:"workspace"`
	Watch         Watch         `toml:"watch"`
	Store         Store         `toml:"store"`
	MCP           MCP           `toml:"mcp"`
	Observability Observability `toml:"observability"`
}

// Pack selects the device and the device family pack.
type Pack struct {
	Path             string `toml:"path"`
	Device           string `toml:"device"`
	AutoDetect       *bool  `toml:"auto_detect"`
	CacheDir         string `toml:"cache_dir"`
	Vendor           string `toml:"vendor"`
	DescriptorDir    string `toml:"descriptor_dir"`
	DescriptorSuffix string `toml:"descriptor_suffix"`
}

func (p Pack) AutoDetectEnabled() bool {
	if p.AutoDetect == nil {
		return true
	}
	return *p.AutoDetect
}

type Features struct {
	Completion                  *bool `toml:"completion"`
	InstructionCompletion       *bool `toml:"instruction_completion"`
	References                  *bool `toml:"references"`
	WorkspaceSymbolsIncludePack *bool `toml:"workspace_symbols_include_pack"`
}

func (f Features) CompletionEnabled() bool            { return boolOr(f.Completion, true) }
func (f Features) InstructionCompletionEnabled() bool { return boolOr(f.InstructionCompletion, true) }
func (f Features) ReferencesEnabled() bool            { return boolOr(f.References, true) }
func (f Features) WorkspaceIncludesPack() bool        { return boolOr(f.WorkspaceSymbolsIncludePack, true) }

const (
	DefaultMaxHoverResults     = 6
	DefaultMaxCompletionItems  = 200
	DefaultMaxScanFiles        = 400
	DefaultMaxWorkspaceSymbols = 300
	DefaultMaxReferenceResults = 500
)

// Upper bounds applied when a limit is read.
const (
	maxHoverResultsCap     = 50
	maxCompletionItemsCap  = 5000
	maxScanFilesCap        = 10000
	maxWorkspaceSymbolsCap = 10000
	maxReferenceResultsCap = 20000
)

// Limits holds raw configured caps. Zero or negative values fall back to the
// defaults; use the accessor methods to read effective values.
type Limits struct {
	MaxHoverResults     int `toml:"max_hover_results"`
	MaxCompletionItems  int `toml:"max_completion_items"`
	MaxScanFiles        int `toml:"max_scan_files"`
	MaxWorkspaceSymbols int `toml:"max_workspace_symbols"`
	MaxReferenceResults int `toml:"max_reference_results"`
}

func (l Limits) HoverResults() int {
	return clampLimit(l.MaxHoverResults, DefaultMaxHoverResults, maxHoverResultsCap)
}

func (l Limits) CompletionItems() int {
	return clampLimit(l.MaxCompletionItems, DefaultMaxCompletionItems, maxCompletionItemsCap)
}

func (l Limits) ScanFiles() int {
	return clampLimit(l.MaxScanFiles, DefaultMaxScanFiles, maxScanFilesCap)
}

func (l Limits) WorkspaceSymbols() int {
	return clampLimit(l.MaxWorkspaceSymbols, DefaultMaxWorkspaceSymbols, maxWorkspaceSymbolsCap)
}

func (l Limits) ReferenceResults() int {
	return clampLimit(l.MaxReferenceResults, DefaultMaxReferenceResults, maxReferenceResultsCap)
}

type Workspace struct {
	Roots   []string `toml:"roots"`
	Include string   `toml:"include"`
	Exclude string   `toml:"exclude"`
}

// Watch configures the workspace watcher. ExcludeDirs are glob patterns
// matched against directory base names.
type Watch struct {
	Enabled     *bool         `toml:"enabled"`
	Debounce    time.Duration `toml:"debounce"`
	ExcludeDirs []string      `toml:"exclude_dirs"`
}

func (w Watch) IsEnabled() bool { return boolOr(w.Enabled, true) }

// Store configures the persistent pack scan cache.
type Store struct {
	Enabled bool   `toml:"enabled"`
	Path    string `toml:"path"`
}

// MCP configures the stdio tool server. RateLimit is requests per minute.
// An empty Operations list exposes every operation.
type MCP struct {
	Transport      string        `toml:"transport"`
	ServerName     string        `toml:"server_name"`
	RateLimit      int           `toml:"rate_limit"`
	RateBurst      int           `toml:"rate_burst"`
	RequestTimeout time.Duration `toml:"request_timeout"`
	Operations     []string      `toml:"operations"`
}

type Observability struct {
	MetricsAddr  string `toml:"metrics_addr"`
	OTLPEndpoint string `toml:"otlp_endpoint"`
	OTLPInsecure bool   `toml:"otlp_insecure"`
	// WarmupRate is how many scope builds per second warm-up starts.
	WarmupRate float64 `toml:"warmup_rate"`
}

const (
	DefaultInclude          = "**/*.{s,S,asm,inc,sx}"
	DefaultExclude          = "**/{build,out,.git}/**"
	DefaultVendor           = "Microchip"
	DefaultCacheDir         = "~/.mchp_packs"
	DefaultDescriptorDir    = ".vscode"
	DefaultDescriptorSuffix = ".mplab.json"
	DefaultStorePath        = "~/.cache/packsense/packs.db"
	DefaultDebounce         = 250 * time.Millisecond
)

// Default returns a configuration with every default applied, as used when
// no configuration file exists.
func Default() *Config {
	cfg := &Config{}
	applyDefaults(cfg)
	return cfg
}

// Keys lists every recognized flat configuration key in declaration order.
var Keys = []string{
	"packsense.pack.path",
	"packsense.pack.device",
	"packsense.pack.autoDetect",
	"packsense.pack.cacheDir",
	"packsense.pack.vendor",
	"packsense.pack.descriptorDir",
	"packsense.pack.descriptorSuffix",
	"packsense.features.completion",
	"packsense.features.instructionCompletion",
	"packsense.features.references",
	"packsense.features.workspaceSymbolsIncludePack",
	"packsense.limits.maxHoverResults",
	"packsense.limits.maxCompletionItems",
	"packsense.limits.maxScanFiles",
	"packsense.limits.maxWorkspaceSymbols",
	"packsense.limits.maxReferenceResults",
	"packsense.workspace.roots",
	"packsense.workspace.include",
	"packsense.workspace.exclude",
	"packsense.watch.enabled",
	"packsense.watch.debounce",
	"packsense.store.enabled",
	"packsense.store.path",
	"packsense.mcp.transport",
	"packsense.mcp.rateLimit",
	"packsense.mcp.requestTimeout",
	"packsense.observability.metricsAddr",
	"packsense.observability.otlpEndpoint",
}

// Lookup returns the effective value of a flat key. Limits and optional
// booleans are reported after defaults and clamping.
func (c *Config) Lookup(key string) (any, bool) {
	switch key {
	case "packsense.pack.path":
		return c.Pack.Path, true
	case "packsense.pack.device":
		return c.Pack.Device, true
	case "packsense.pack.autoDetect":
		return c.Pack.AutoDetectEnabled(), true
	case "packsense.pack.cacheDir":
		return c.Pack.CacheDir, true
	case "packsense.pack.vendor":
		return c.Pack.Vendor, true
	case "packsense.pack.descriptorDir":
		return c.Pack.DescriptorDir, true
	case "packsense.pack.descriptorSuffix":
		return c.Pack.DescriptorSuffix, true
	case "packsense.features.completion":
		return c.Features.CompletionEnabled(), true
	case "packsense.features.instructionCompletion":
		return c.Features.InstructionCompletionEnabled(), true
	case "packsense.features.references":
		return c.Features.ReferencesEnabled(), true
	case "packsense.features.workspaceSymbolsIncludePack":
		return c.Features.WorkspaceIncludesPack(), true
	case "packsense.limits.maxHoverResults":
		return c.Limits.HoverResults(), true
	case "packsense.limits.maxCompletionItems":
		return c.Limits.CompletionItems(), true
	case "packsense.limits.maxScanFiles":
		return c.Limits.ScanFiles(), true
	case "packsense.limits.maxWorkspaceSymbols":
		return c.Limits.WorkspaceSymbols(), true
	case "packsense.limits.maxReferenceResults":
		return c.Limits.ReferenceResults(), true
	case "packsense.workspace.roots":
		return append([]string(nil), c.Workspace.Roots...), true
	case "packsense.workspace.include":
		return c.Workspace.Include, true
	case "packsense.workspace.exclude":
		return c.Workspace.Exclude, true
	case "packsense.watch.enabled":
		return c.Watch.IsEnabled(), true
	case "packsense.watch.debounce":
		return c.Watch.Debounce, true
	case "packsense.store.enabled":
		return c.Store.Enabled, true
	case "packsense.store.path":
		return c.Store.Path, true
	case "packsense.mcp.transport":
		return c.MCP.Transport, true
	case "packsense.mcp.rateLimit":
		return c.MCP.RateLimit, true
	case "packsense.mcp.requestTimeout":
		return c.MCP.RequestTimeout, true
	case "packsense.observability.metricsAddr":
		return c.Observability.MetricsAddr, true
	case "packsense.observability.otlpEndpoint":
		return c.Observability.OTLPEndpoint, true
	}
	return nil, false
}

// Dump renders every key as "key = value" lines, sorted by key.
func (c *Config) Dump() string {
	keys := append([]string(nil), Keys...)
	sort.Strings(keys)
	var b strings.Builder
	for _, k := range keys {
		v, _ := c.Lookup(k)
		fmt.Fprintf(&b, "%s = %v\n", k, v)
	}
	return b.String()
}

func boolOr(v *bool, def bool) bool {
	if v == nil {
		return def
	}
	return *v
}

func clampLimit(v, def, upper int) int {
	if v <= 0 {
		return def
	}
	if v > upper {
		return upper
	}
	return v
}
