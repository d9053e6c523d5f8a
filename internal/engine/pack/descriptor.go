package pack

import (
	"encoding/json"
	"log/slog"
	"packsense/internal/core/ports"
	"packsense/internal/engine/device"
	"path/filepath"
	"sort"
	"strings"
)

// PackageMarker identifies device-family packs among installed packages.
const PackageMarker = "DFP"

// PackRef names an installed vendor package.
type PackRef struct {
	Vendor  string `json:"vendor"`
	Name    string `json:"name"`
	Version string `json:"version"`
}

// Descriptor is the usable content of one project-descriptor file.
type Descriptor struct {
	Path   string
	Device string
	Pack   *PackRef
}

type descriptorConfiguration struct {
	Device string    `json:"device"`
	Packs  []PackRef `json:"packs"`
}

type descriptorDocument struct {
	Device         string                    `json:"device"`
	Packs          []PackRef                 `json:"packs"`
	Configurations []descriptorConfiguration `json:"configurations"`
}

// ParseDescriptor extracts the device and preferred pack reference from a
// descriptor payload. ok is false when the payload does not parse or names
// neither a device nor a pack.
func ParseDescriptor(data []byte) (dev string, ref *PackRef, ok bool) {
	var doc descriptorDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return "", nil, false
	}
	dev = strings.TrimSpace(doc.Device)
	packs := append([]PackRef(nil), doc.Packs...)
	for _, cfg := range doc.Configurations {
		if dev == "" {
			dev = strings.TrimSpace(cfg.Device)
		}
		packs = append(packs, cfg.Packs...)
	}
	ref = preferredPack(packs)
	if dev == "" && ref == nil {
		return "", nil, false
	}
	return device.Canonicalize(dev), ref, true
}

// preferredPack picks the first pack carrying the package marker, else the
// first pack with a name.
func preferredPack(packs []PackRef) *PackRef {
	var first *PackRef
	for i := range packs {
		p := packs[i]
		if strings.TrimSpace(p.Name) == "" {
			continue
		}
		if strings.Contains(p.Name, PackageMarker) {
			return &p
		}
		if first == nil {
			first = &p
		}
	}
	return first
}

// FindDescriptor scans dir non-recursively for files ending in suffix, in
// lexicographic order, and returns the first usable one.
func FindDescriptor(fsys ports.FileSystem, dir, suffix string, logger *slog.Logger) (Descriptor, bool) {
	if dir == "" || suffix == "" {
		return Descriptor{}, false
	}
	if logger == nil {
		logger = slog.Default()
	}
	var names []string
	for _, e := range fsys.ReadDir(dir) {
		if !e.IsDir && strings.HasSuffix(e.Name, suffix) {
			names = append(names, e.Name)
		}
	}
	sort.Strings(names)
	for _, name := range names {
		path := filepath.Join(dir, name)
		data, err := fsys.ReadFile(path)
		if err != nil || data == nil {
			continue
		}
		dev, ref, ok := ParseDescriptor(data)
		if !ok {
			logger.Debug("skipping unusable project descriptor", "path", path)
			continue
		}
		return Descriptor{Path: path, Device: dev, Pack: ref}, true
	}
	return Descriptor{}, false
}
