package app

import (
	"fmt"
	"packsense/internal/core/ports"
	"strings"
	"time"
)

// FormatTarget renders the human-readable resolution summary shown by the
// describe operation.
func FormatTarget(t ports.TargetDescription) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Scope:       %s\n", t.Scope)
	fmt.Fprintf(&b, "Device:      %s\n", orNone(t.Device, t.DeviceSource))
	if t.Library != "" {
		fmt.Fprintf(&b, "Library:     %s\n", t.Library)
	}
	fmt.Fprintf(&b, "Pack root:   %s\n", orNone(t.PackRoot, t.PackSource))
	if t.Descriptor != "" {
		fmt.Fprintf(&b, "Descriptor:  %s\n", t.Descriptor)
	}
	fmt.Fprintf(&b, "Files:       %d\n", len(t.Files))
	for _, f := range t.Files {
		fmt.Fprintf(&b, "  - [%s] %s\n", f.Kind, f.Path)
	}
	fmt.Fprintf(&b, "Symbols:     %d (%d occurrences)\n", t.SymbolCount, t.OccurrenceCount)
	if !t.BuiltAt.IsZero() {
		fmt.Fprintf(&b, "Built:       %s (%s)\n", t.BuiltAt.UTC().Format(time.RFC3339), t.BuildID)
	}
	return b.String()
}

func orNone(value, source string) string {
	if value == "" {
		return "(none)"
	}
	if source == "" {
		return value
	}
	return fmt.Sprintf("%s [%s]", value, source)
}
