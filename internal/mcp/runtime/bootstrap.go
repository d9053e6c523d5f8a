package runtime

import (
	"fmt"
	"io"
	"packsense/internal/core/config"
	"packsense/internal/mcp/registry"
	"packsense/internal/mcp/schema"
	"packsense/internal/mcp/transport"
	"strings"
)

// Build wires a stdio server for the configured transport. Nil streams use
// the process stdin and stdout.
func Build(cfg *config.Config, deps Dependencies, in io.Reader, out io.Writer) (*Server, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	allowlist := BuildOperationAllowlist(cfg)
	adapter, err := buildTransport(cfg, deps, allowlist, in, out)
	if err != nil {
		return nil, err
	}
	return New(cfg, deps, registry.New(), adapter, allowlist)
}

func buildTransport(cfg *config.Config, deps Dependencies, allowlist OperationAllowlist, in io.Reader, out io.Writer) (transport.Adapter, error) {
	transportName := strings.ToLower(strings.TrimSpace(cfg.MCP.Transport))
	switch transportName {
	case "", "stdio":
		tools := func() []schema.ToolDefinition { return schema.BuildToolDefinitions(allowlist.Allows) }
		return transport.NewStdio(cfg.MCP, in, out, tools, deps.Logger)
	default:
		return nil, fmt.Errorf("unsupported MCP transport: %s", transportName)
	}
}
