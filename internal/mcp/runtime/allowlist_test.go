package runtime

import (
	"packsense/internal/core/config"
	"packsense/internal/mcp/contracts"
	"testing"
)

func TestBuildOperationAllowlist_Aliases(t *testing.T) {
	cfg := &config.Config{
		MCP: config.MCP{
			Operations: []string{"hover", "symbols.definition", "describe", "bogus"},
		},
	}
	allowlist := BuildOperationAllowlist(cfg)
	if !allowlist.Allows(contracts.OperationSymbolsHover) {
		t.Fatalf("expected symbols.hover allowed")
	}
	if !allowlist.Allows(contracts.OperationSymbolsDefinition) {
		t.Fatalf("expected symbols.definition allowed")
	}
	if !allowlist.Allows(contracts.OperationTargetDescribe) {
		t.Fatalf("expected target.describe allowed")
	}
	if allowlist.Allows(contracts.OperationIndexRebuild) {
		t.Fatalf("did not expect index.rebuild allowed")
	}
	if allowlist.Allows("bogus") {
		t.Fatalf("did not expect unknown operation allowed")
	}
}

func TestBuildOperationAllowlist_EmptyAllowsAll(t *testing.T) {
	for _, cfg := range []*config.Config{nil, {}} {
		allowlist := BuildOperationAllowlist(cfg)
		for _, op := range contracts.Operations {
			if !allowlist.Allows(op) {
				t.Fatalf("expected %s allowed", op)
			}
		}
	}
}
