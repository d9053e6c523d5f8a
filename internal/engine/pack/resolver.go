// # internal/engine/pack/resolver.go
package pack

import (
	"context"
	"log/slog"
	"packsense/internal/core/ports"
	"packsense/internal/engine/device"
	"packsense/internal/shared/util"
	"path/filepath"
	"sort"
	"strings"
)

// Source records which tier produced a resolved field.
type Source string

const (
	SourceNone       Source = ""
	SourceConfig     Source = "config"
	SourceDescriptor Source = "descriptor"
	SourceWorkspace  Source = "workspace"
	SourcePack       Source = "pack"
	SourceCache      Source = "cache"
)

// Options carries the configuration the resolver reads for one scope.
type Options struct {
	PackPath         string
	Device           string
	AutoDetect       bool
	CacheDir         string
	Vendor           string
	DescriptorDir    string
	DescriptorSuffix string
	ScanLimit        int
	Include          string
	Exclude          string
}

// Result is the outcome of resolving one scope. It is recomputed for every
// index build.
type Result struct {
	PackRoot     string
	PackSource   Source
	Device       string
	DeviceSource Source
	Library      string
	Descriptor   string
	Files        []FileSpec
}

type Resolver struct {
	fs     ports.FileSystem
	ws     ports.Workspace
	logger *slog.Logger
}

// NewResolver builds a resolver. ws may be nil, in which case workspace
// inference is skipped.
func NewResolver(fsys ports.FileSystem, ws ports.Workspace, logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{fs: fsys, ws: ws, logger: logger}
}

// Resolve determines device, pack root and file specs for the scope rooted
// at root. An empty root is the global scope.
func (r *Resolver) Resolve(ctx context.Context, root string, opts Options) (Result, error) {
	var res Result
	var ref *PackRef

	if d := device.Canonicalize(opts.Device); d != "" {
		res.Device, res.DeviceSource = d, SourceConfig
	}

	if opts.AutoDetect && root != "" {
		dir := filepath.Join(root, opts.DescriptorDir)
		if desc, ok := FindDescriptor(r.fs, dir, opts.DescriptorSuffix, r.logger); ok {
			res.Descriptor = desc.Path
			ref = desc.Pack
			if res.Device == "" && desc.Device != "" {
				res.Device, res.DeviceSource = desc.Device, SourceDescriptor
			}
		}
	}

	if res.Device == "" && opts.AutoDetect {
		d, err := r.inferFromWorkspace(ctx, root, opts)
		if err != nil {
			return Result{}, err
		}
		if d != "" {
			res.Device, res.DeviceSource = d, SourceWorkspace
		}
	}

	res.PackRoot, res.PackSource = r.resolvePackRoot(opts, ref)

	if res.Device == "" && res.PackRoot != "" {
		if d := deviceFromAttributes(r.fs, res.PackRoot); d != "" {
			res.Device, res.DeviceSource = d, SourcePack
		}
	}

	if res.Device != "" {
		res.Library = device.LibraryName(res.Device)
	}
	res.Files = ResolveFiles(r.fs, res.PackRoot, res.Device)

	r.logger.Debug("resolved pack target",
		"scope", root,
		"device", res.Device,
		"device_source", res.DeviceSource,
		"pack", res.PackRoot,
		"pack_source", res.PackSource,
		"files", len(res.Files))
	return res, nil
}

func (r *Resolver) inferFromWorkspace(ctx context.Context, root string, opts Options) (string, error) {
	if r.ws == nil {
		return "", nil
	}
	limit := device.HardInferenceCap
	if opts.ScanLimit > 0 && opts.ScanLimit < limit {
		limit = opts.ScanLimit
	}

	var paths []string
	if root != "" {
		found, err := r.ws.FindFiles(ctx, root, opts.Include, opts.Exclude, limit)
		if err != nil {
			return "", err
		}
		paths = found
	}

	scorer := device.NewScorer()
	seen := make(map[string]bool, len(paths))
	for _, p := range paths {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		seen[p] = true
		if text, ok := r.ws.ReadText(p); ok {
			scorer.Add(text)
		}
	}
	// Open buffers outside the sampled set still count, within the same cap.
	for _, doc := range r.ws.OpenDocuments() {
		if len(seen) >= limit {
			break
		}
		p := doc.Path()
		key := p
		if key == "" {
			key = doc.URI()
		}
		if seen[key] || (root != "" && !util.WithinDir(root, p)) {
			continue
		}
		seen[key] = true
		scorer.Add(doc.Text())
	}
	best, _ := scorer.Best()
	return best, nil
}

type installedPack struct {
	name    string
	version string
	path    string
}

func (r *Resolver) resolvePackRoot(opts Options, ref *PackRef) (string, Source) {
	if p := strings.TrimSpace(opts.PackPath); p != "" {
		return p, SourceConfig
	}
	if opts.CacheDir == "" {
		return "", SourceNone
	}
	if ref != nil {
		vendor := ref.Vendor
		if vendor == "" {
			vendor = opts.Vendor
		}
		if ref.Version != "" {
			p := filepath.Join(opts.CacheDir, vendor, ref.Name, ref.Version)
			if info, ok := r.fs.Stat(p); ok && info.IsDir {
				return p, SourceDescriptor
			}
		}
		if versions := r.versionsOf(filepath.Join(opts.CacheDir, vendor), ref.Name); len(versions) > 0 {
			return versions[0].path, SourceDescriptor
		}
	}
	if p := r.latestInstalled(opts); p != "" {
		return p, SourceCache
	}
	return "", SourceNone
}

// latestInstalled returns the newest marker pack under the vendor cache,
// whether or not it carries files for the device.
func (r *Resolver) latestInstalled(opts Options) string {
	vendorDir := filepath.Join(opts.CacheDir, opts.Vendor)
	var all []installedPack
	for _, e := range r.fs.ReadDir(vendorDir) {
		if !e.IsDir || !strings.Contains(e.Name, PackageMarker) {
			continue
		}
		all = append(all, r.versionsOf(vendorDir, e.Name)...)
	}
	if len(all) == 0 {
		return ""
	}
	sortNewestFirst(all)
	return all[0].path
}

// versionsOf lists installed versions of one pack, newest first.
func (r *Resolver) versionsOf(vendorDir, name string) []installedPack {
	if name == "" {
		return nil
	}
	dir := filepath.Join(vendorDir, name)
	var out []installedPack
	for _, e := range r.fs.ReadDir(dir) {
		if e.IsDir {
			out = append(out, installedPack{name: name, version: e.Name, path: filepath.Join(dir, e.Name)})
		}
	}
	sortNewestFirst(out)
	return out
}

func sortNewestFirst(packs []installedPack) {
	sort.SliceStable(packs, func(i, j int) bool {
		if c := compareLatest(packs[i].version, packs[j].version); c != 0 {
			return c > 0
		}
		return packs[i].name < packs[j].name
	})
}

