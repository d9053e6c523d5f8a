package config

import (
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

// ApplyEnvOverrides applies environment variable overrides to the configuration.
// Pattern: PACKSENSE_[SECTION]_[KEY] (e.g., PACKSENSE_PACK_DEVICE).
func ApplyEnvOverrides(cfg *Config) {
	// Pack
	setEnvString(&cfg.Pack.Path, "PACKSENSE_PACK_PATH")
	setEnvString(&cfg.Pack.Device, "PACKSENSE_PACK_DEVICE")
	setEnvBoolPtr(&cfg.Pack.AutoDetect, "PACKSENSE_PACK_AUTO_DETECT")
	setEnvString(&cfg.Pack.CacheDir, "PACKSENSE_PACK_CACHE_DIR")
	setEnvString(&cfg.Pack.Vendor, "PACKSENSE_PACK_VENDOR")

	// Features
	setEnvBoolPtr(&cfg.Features.Completion, "PACKSENSE_FEATURES_COMPLETION")
	setEnvBoolPtr(&cfg.Features.InstructionCompletion, "PACKSENSE_FEATURES_INSTRUCTION_COMPLETION")
	setEnvBoolPtr(&cfg.Features.References, "PACKSENSE_FEATURES_REFERENCES")
	setEnvBoolPtr(&cfg.Features.WorkspaceSymbolsIncludePack, "PACKSENSE_FEATURES_WORKSPACE_SYMBOLS_INCLUDE_PACK")

	// Limits
	setEnvInt(&cfg.Limits.MaxHoverResults, "PACKSENSE_LIMITS_MAX_HOVER_RESULTS")
	setEnvInt(&cfg.Limits.MaxCompletionItems, "PACKSENSE_LIMITS_MAX_COMPLETION_ITEMS")
	setEnvInt(&cfg.Limits.MaxScanFiles, "PACKSENSE_LIMITS_MAX_SCAN_FILES")
	setEnvInt(&cfg.Limits.MaxWorkspaceSymbols, "PACKSENSE_LIMITS_MAX_WORKSPACE_SYMBOLS")
	setEnvInt(&cfg.Limits.MaxReferenceResults, "PACKSENSE_LIMITS_MAX_REFERENCE_RESULTS")

	// Workspace
	setEnvString(&cfg.Workspace.Include, "PACKSENSE_WORKSPACE_INCLUDE")
	setEnvString(&cfg.Workspace.Exclude, "PACKSENSE_WORKSPACE_EXCLUDE")

	// Watch
	setEnvBoolPtr(&cfg.Watch.Enabled, "PACKSENSE_WATCH_ENABLED")
	setEnvDuration(&cfg.Watch.Debounce, "PACKSENSE_WATCH_DEBOUNCE")

	// Store
	setEnvBool(&cfg.Store.Enabled, "PACKSENSE_STORE_ENABLED")
	setEnvString(&cfg.Store.Path, "PACKSENSE_STORE_PATH")

	// MCP
	setEnvInt(&cfg.MCP.RateLimit, "PACKSENSE_MCP_RATE_LIMIT")
	setEnvInt(&cfg.MCP.RateBurst, "PACKSENSE_MCP_RATE_BURST")
	setEnvDuration(&cfg.MCP.RequestTimeout, "PACKSENSE_MCP_REQUEST_TIMEOUT")

	// Observability
	setEnvString(&cfg.Observability.MetricsAddr, "PACKSENSE_OBSERVABILITY_METRICS_ADDR")
	setEnvString(&cfg.Observability.OTLPEndpoint, "PACKSENSE_OBSERVABILITY_OTLP_ENDPOINT")
	setEnvBool(&cfg.Observability.OTLPInsecure, "PACKSENSE_OBSERVABILITY_OTLP_INSECURE")
	setEnvFloat64(&cfg.Observability.WarmupRate, "PACKSENSE_OBSERVABILITY_WARMUP_RATE")
}

func setEnvString(target *string, key string) {
	if val, ok := os.LookupEnv(key); ok {
		slog.Debug("applying env override", "key", key, "value", val)
		*target = val
	}
}

// setEnvInt accepts integers and truncates decimal values.
func setEnvInt(target *int, key string) {
	val, ok := os.LookupEnv(key)
	if !ok {
		return
	}
	val = strings.TrimSpace(val)
	if i, err := strconv.Atoi(val); err == nil {
		slog.Debug("applying env override", "key", key, "value", val)
		*target = i
		return
	}
	if f, err := strconv.ParseFloat(val, 64); err == nil {
		slog.Debug("applying env override", "key", key, "value", val)
		*target = int(f)
		return
	}
	slog.Warn("ignoring invalid env override", "key", key, "value", val)
}

func setEnvBool(target *bool, key string) {
	if val, ok := os.LookupEnv(key); ok {
		b, err := strconv.ParseBool(strings.ToLower(strings.TrimSpace(val)))
		if err != nil {
			slog.Warn("ignoring invalid env override", "key", key, "value", val)
			return
		}
		slog.Debug("applying env override", "key", key, "value", val)
		*target = b
	}
}

func setEnvBoolPtr(target **bool, key string) {
	val, ok := os.LookupEnv(key)
	if !ok {
		return
	}
	b, err := strconv.ParseBool(strings.ToLower(strings.TrimSpace(val)))
	if err != nil {
		slog.Warn("ignoring invalid env override", "key", key, "value", val)
		return
	}
	slog.Debug("applying env override", "key", key, "value", val)
	*target = &b
}

func setEnvFloat64(target *float64, key string) {
	if val, ok := os.LookupEnv(key); ok {
		if f, err := strconv.ParseFloat(strings.TrimSpace(val), 64); err == nil {
			slog.Debug("applying env override", "key", key, "value", val)
			*target = f
		}
	}
}

func setEnvDuration(target *time.Duration, key string) {
	if val, ok := os.LookupEnv(key); ok {
		if d, err := time.ParseDuration(strings.TrimSpace(val)); err == nil {
			slog.Debug("applying env override", "key", key, "value", val)
			*target = d
		}
	}
}
