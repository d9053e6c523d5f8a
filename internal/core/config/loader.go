package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if _, err := toml.Decode(string(data), &cfg); err != nil {
		return nil, err
	}

	applyDefaults(&cfg)
	normalizeWorkspace(&cfg)
	normalizeMCP(&cfg)

	if err := validateVersion(&cfg); err != nil {
		return nil, err
	}
	if err := validatePack(&cfg); err != nil {
		return nil, err
	}
	if err := validateMCP(&cfg); err != nil {
		return nil, err
	}
	if err := validateObservability(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// LoadOrDefault loads path, or returns the defaults when path is empty or
// the file does not exist.
func LoadOrDefault(path string) (*Config, error) {
	if strings.TrimSpace(path) == "" {
		return Default(), nil
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return Default(), nil
	}
	return Load(path)
}

func applyDefaults(cfg *Config) {
	if cfg.Version == 0 {
		cfg.Version = 1
	}

	if strings.TrimSpace(cfg.Pack.CacheDir) == "" {
		cfg.Pack.CacheDir = DefaultCacheDir
	}
	if strings.TrimSpace(cfg.Pack.Vendor) == "" {
		cfg.Pack.Vendor = DefaultVendor
	}
	if strings.TrimSpace(cfg.Pack.DescriptorDir) == "" {
		cfg.Pack.DescriptorDir = DefaultDescriptorDir
	}
	if strings.TrimSpace(cfg.Pack.DescriptorSuffix) == "" {
		cfg.Pack.DescriptorSuffix = DefaultDescriptorSuffix
	}

	if strings.TrimSpace(cfg.Workspace.Include) == "" {
		cfg.Workspace.Include = DefaultInclude
	}
	if strings.TrimSpace(cfg.Workspace.Exclude) == "" {
		cfg.Workspace.Exclude = DefaultExclude
	}

	if cfg.Watch.Debounce <= 0 {
		cfg.Watch.Debounce = DefaultDebounce
	}
	if cfg.Watch.ExcludeDirs == nil {
		cfg.Watch.ExcludeDirs = []string{"build", "out", "node_modules"}
	}

	if strings.TrimSpace(cfg.Store.Path) == "" {
		cfg.Store.Path = DefaultStorePath
	}

	if strings.TrimSpace(cfg.MCP.Transport) == "" {
		cfg.MCP.Transport = "stdio"
	}
	if strings.TrimSpace(cfg.MCP.ServerName) == "" {
		cfg.MCP.ServerName = "packsense"
	}
	if cfg.MCP.RateLimit == 0 {
		cfg.MCP.RateLimit = 600
	}
	if cfg.MCP.RateBurst == 0 {
		cfg.MCP.RateBurst = 50
	}
	if cfg.MCP.RequestTimeout == 0 {
		cfg.MCP.RequestTimeout = 30 * time.Second
	}

	if cfg.Observability.WarmupRate == 0 {
		cfg.Observability.WarmupRate = 2
	}
}

func normalizeWorkspace(cfg *Config) {
	seen := make(map[string]bool, len(cfg.Workspace.Roots))
	roots := make([]string, 0, len(cfg.Workspace.Roots))
	for _, r := range cfg.Workspace.Roots {
		r = strings.TrimSpace(r)
		if r == "" || seen[r] {
			continue
		}
		seen[r] = true
		roots = append(roots, r)
	}
	cfg.Workspace.Roots = roots
	cfg.Workspace.Include = strings.TrimSpace(cfg.Workspace.Include)
	cfg.Workspace.Exclude = strings.TrimSpace(cfg.Workspace.Exclude)
}

func normalizeMCP(cfg *Config) {
	cfg.MCP.Transport = strings.ToLower(strings.TrimSpace(cfg.MCP.Transport))
	cfg.MCP.ServerName = strings.TrimSpace(cfg.MCP.ServerName)
	ops := make([]string, 0, len(cfg.MCP.Operations))
	for _, op := range cfg.MCP.Operations {
		if op = strings.ToLower(strings.TrimSpace(op)); op != "" {
			ops = append(ops, op)
		}
	}
	cfg.MCP.Operations = ops
}

func validateVersion(cfg *Config) error {
	if cfg.Version != 1 {
		return fmt.Errorf("unsupported config version %d; supported version is 1", cfg.Version)
	}
	return nil
}

func validatePack(cfg *Config) error {
	if strings.ContainsAny(cfg.Pack.Vendor, `/\`) {
		return fmt.Errorf("pack.vendor must be a single directory name, got %q", cfg.Pack.Vendor)
	}
	if !strings.HasPrefix(cfg.Pack.DescriptorSuffix, ".") {
		return fmt.Errorf("pack.descriptor_suffix must start with '.', got %q", cfg.Pack.DescriptorSuffix)
	}
	return nil
}

func validateMCP(cfg *Config) error {
	if cfg.MCP.Transport != "stdio" {
		return fmt.Errorf("mcp.transport must be stdio, got %q", cfg.MCP.Transport)
	}
	if cfg.MCP.RateLimit < 0 || cfg.MCP.RateBurst < 0 {
		return fmt.Errorf("mcp.rate_limit and mcp.rate_burst must be >= 0")
	}
	if cfg.MCP.RequestTimeout < 0 {
		return fmt.Errorf("mcp.request_timeout must be >= 0")
	}
	return nil
}

func validateObservability(cfg *Config) error {
	if cfg.Observability.WarmupRate < 0 {
		return fmt.Errorf("observability.warmup_rate must be >= 0, got %v", cfg.Observability.WarmupRate)
	}
	return nil
}
