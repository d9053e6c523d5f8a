package runtime

import (
	"bytes"
	"packsense/internal/core/config"
	"testing"
)

func TestBuild_RejectsUnsupportedTransport(t *testing.T) {
	cfg := config.Default()
	cfg.MCP.Transport = "sse"
	if _, err := Build(cfg, Dependencies{Symbols: newFakeSymbols()}, &bytes.Buffer{}, &bytes.Buffer{}); err == nil {
		t.Fatal("expected unsupported transport error")
	}
}

func TestBuild_RequiresConfig(t *testing.T) {
	if _, err := Build(nil, Dependencies{Symbols: newFakeSymbols()}, nil, nil); err == nil {
		t.Fatal("expected error for nil config")
	}
}

func TestBuild_StdioDefault(t *testing.T) {
	for _, name := range []string{"", "stdio", " STDIO "} {
		cfg := config.Default()
		cfg.MCP.Transport = name
		server, err := Build(cfg, Dependencies{Symbols: newFakeSymbols()}, &bytes.Buffer{}, &bytes.Buffer{})
		if err != nil {
			t.Fatalf("transport %q: %v", name, err)
		}
		if server == nil {
			t.Fatalf("transport %q: expected server", name)
		}
		_ = server.Stop()
	}
}
