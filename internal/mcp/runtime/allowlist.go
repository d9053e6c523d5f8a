package runtime

import (
	"packsense/internal/core/config"
	"packsense/internal/mcp/contracts"
	"packsense/internal/mcp/validate"
)

type OperationAllowlist struct {
	allowAll bool
	allowed  map[contracts.OperationID]bool
}

// BuildOperationAllowlist exposes every operation unless mcp.operations
// names a subset. Unknown entries are ignored.
func BuildOperationAllowlist(cfg *config.Config) OperationAllowlist {
	if cfg == nil || len(cfg.MCP.Operations) == 0 {
		return OperationAllowlist{allowAll: true}
	}

	known := make(map[contracts.OperationID]bool, len(contracts.Operations))
	for _, op := range contracts.Operations {
		known[op] = true
	}

	allowed := make(map[contracts.OperationID]bool)
	for _, entry := range cfg.MCP.Operations {
		id := validate.NormalizeOperation(entry)
		if known[id] {
			allowed[id] = true
		}
	}
	return OperationAllowlist{allowed: allowed}
}

func (o OperationAllowlist) Allows(id contracts.OperationID) bool {
	if o.allowAll {
		return true
	}
	return o.allowed[id]
}
