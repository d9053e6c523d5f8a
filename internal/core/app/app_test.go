package app

import (
	"context"
	stderrors "errors"
	"os"
	"packsense/internal/core/config"
	domainerrors "packsense/internal/core/errors"
	"packsense/internal/core/ports"
	"packsense/internal/core/workspace"
	"packsense/internal/data/fsys"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const mainSource = "; board: ATmega328P\n" +
	".include \"m328pdef.inc\"\n" +
	"LED_PIN: sbi PORTB, 5\n" +
	"        rjmp LED_PIN\n"

type fixture struct {
	dir     string
	root    string
	packDir string
	mainURI string
	cfg     *config.Config
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	dir := t.TempDir()
	root := filepath.Join(dir, "fw")
	packDir := filepath.Join(dir, "cache", "Microchip", "ATmega_DFP", "3.0.158")

	writeFile(t, filepath.Join(root, "main.S"), mainSource)
	writeFile(t, filepath.Join(root, "notes.txt"), "nothing to see")
	writeFile(t, filepath.Join(packDir, "include", "avr", "iom328p.h"),
		"#define PORTB _SFR_IO8(0x05)\n#define DDRB _SFR_IO8(0x04)\n")
	writeFile(t, filepath.Join(packDir, "avrasm", "inc", "m328pdef.inc"),
		".equ PINB = 0x03\n.equ LED_REG = 0x2a\n")

	cfg := config.Default()
	cfg.Pack.CacheDir = filepath.Join(dir, "cache")
	cfg.Workspace.Roots = []string{root}
	disabled := false
	cfg.Watch.Enabled = &disabled

	return fixture{
		dir:     dir,
		root:    root,
		packDir: packDir,
		mainURI: workspace.URIFromPath(filepath.Join(root, "main.S")),
		cfg:     cfg,
	}
}

func newSession(t *testing.T, fx fixture, opts ...Option) *Session {
	t.Helper()
	opts = append([]Option{WithWorkingDir(fx.dir)}, opts...)
	s, err := New(fx.cfg, opts...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func positionOf(t *testing.T, text, needle string, occurrence int) ports.Position {
	t.Helper()
	seen := 0
	for i, line := range strings.Split(text, "\n") {
		from := 0
		for {
			col := strings.Index(line[from:], needle)
			if col < 0 {
				break
			}
			if seen == occurrence {
				return ports.Position{Line: i, Character: from + col}
			}
			seen++
			from += col + len(needle)
		}
	}
	t.Fatalf("%q not found", needle)
	return ports.Position{}
}

func TestSession_QueriesMergeLocalAndPack(t *testing.T) {
	fx := newFixture(t)
	s := newSession(t, fx)
	ctx := context.Background()

	require.NoError(t, s.OpenDocument(fx.mainURI, mainSource, 1))

	hover, err := s.Hover(ctx, fx.mainURI, positionOf(t, mainSource, "PORTB", 0))
	require.NoError(t, err)
	require.NotNil(t, hover)
	assert.Equal(t, "PORTB", hover.Symbol)
	assert.Contains(t, hover.Markdown, "Pack definitions (ATmega328P):")
	assert.Contains(t, hover.Markdown, "iom328p.h")

	locs, err := s.Definition(ctx, fx.mainURI, positionOf(t, mainSource, "LED_PIN", 1))
	require.NoError(t, err)
	require.Len(t, locs, 1)
	assert.Equal(t, filepath.Join(fx.root, "main.S"), locs[0].Path)
	assert.Equal(t, 2, locs[0].Range.Start.Line)

	refs, err := s.References(ctx, fx.mainURI, positionOf(t, mainSource, "LED_PIN", 1), false)
	require.NoError(t, err)
	require.Len(t, refs, 1)
	assert.Equal(t, 3, refs[0].Location.Range.Start.Line)

	syms, err := s.DocumentSymbols(ctx, fx.mainURI)
	require.NoError(t, err)
	require.Len(t, syms, 1)
	assert.Equal(t, "LED_PIN", syms[0].Name)

	found, err := s.WorkspaceSymbols(ctx, "led")
	require.NoError(t, err)
	var containers []string
	for _, sym := range found {
		containers = append(containers, sym.Name+"@"+sym.Container)
	}
	assert.Equal(t, []string{"LED_PIN@workspace", "LED_REG@ATmega328P"}, containers)
}

func TestSession_DescribeActiveTarget(t *testing.T) {
	fx := newFixture(t)
	s := newSession(t, fx)

	desc, err := s.DescribeActiveTarget(context.Background(), fx.mainURI)
	require.NoError(t, err)
	assert.Equal(t, filepath.Clean(fx.root), desc.Scope)
	assert.Equal(t, "ATmega328P", desc.Device)
	assert.Equal(t, "workspace", desc.DeviceSource)
	assert.Equal(t, "m328p", desc.Library)
	assert.Equal(t, fx.packDir, desc.PackRoot)
	assert.Equal(t, "cache", desc.PackSource)
	require.Len(t, desc.Files, 2)
	assert.Equal(t, 4, desc.SymbolCount)
	assert.NotEmpty(t, desc.BuildID)

	summary := FormatTarget(desc)
	assert.Contains(t, summary, "Device:      ATmega328P [workspace]")
	assert.Contains(t, summary, "Symbols:     4 (4 occurrences)")
}

func TestSession_RebuildReflectsSavedPackChanges(t *testing.T) {
	fx := newFixture(t)
	clock := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	s := newSession(t, fx, WithClock(func() time.Time {
		clock = clock.Add(time.Second)
		return clock
	}))
	ctx := context.Background()

	first, err := s.DescribeActiveTarget(ctx, fx.mainURI)
	require.NoError(t, err)

	writeFile(t, filepath.Join(fx.packDir, "avrasm", "inc", "m328pdef.inc"), ".equ PINB = 0x03\n")
	again, err := s.DescribeActiveTarget(ctx, fx.mainURI)
	require.NoError(t, err)
	assert.Equal(t, first.BuildID, again.BuildID, "cached index must be reused without invalidation")

	rebuilt, err := s.RebuildIndex(ctx, fx.mainURI)
	require.NoError(t, err)
	assert.NotEqual(t, first.BuildID, rebuilt.BuildID)
	assert.True(t, rebuilt.BuiltAt.After(first.BuiltAt))
	assert.Equal(t, 3, rebuilt.SymbolCount)
}

func TestSession_UnknownDocument(t *testing.T) {
	fx := newFixture(t)
	s := newSession(t, fx)

	_, err := s.Hover(context.Background(), "untitled:Untitled-1", ports.Position{})
	require.Error(t, err)
	assert.True(t, domainerrors.IsCode(err, domainerrors.CodeNotFound))

	err = s.ChangeDocument(fx.mainURI, "x", 2)
	assert.True(t, domainerrors.IsCode(err, domainerrors.CodeNotFound))
	assert.True(t, domainerrors.IsCode(s.CloseDocument(fx.mainURI), domainerrors.CodeNotFound))
	assert.True(t, domainerrors.IsCode(s.OpenDocument(" ", "", 1), domainerrors.CodeValidationError))
}

func TestSession_ClosedDocumentIsReadFromDisk(t *testing.T) {
	fx := newFixture(t)
	s := newSession(t, fx)

	syms, err := s.DocumentSymbols(context.Background(), fx.mainURI)
	require.NoError(t, err)
	require.Len(t, syms, 1)
	assert.Equal(t, 0, s.locals.Len(), "transient documents must not stay cached")
}

func TestSession_HandleEvents(t *testing.T) {
	fx := newFixture(t)
	s := newSession(t, fx)
	ctx := context.Background()
	key := filepath.Clean(fx.root)

	_, err := s.DescribeActiveTarget(ctx, fx.mainURI)
	require.NoError(t, err)

	s.HandleEvents([]ports.FileEvent{{Kind: ports.EventSave, Path: filepath.Join(fx.root, "notes.txt")}})
	_, ok := s.Store().Peek(key)
	assert.True(t, ok, "irrelevant files must not invalidate")

	s.HandleEvents([]ports.FileEvent{{Kind: ports.EventSave, Path: filepath.Join(fx.root, "main.S")}})
	_, ok = s.Store().Peek(key)
	assert.False(t, ok, "an assembly save must invalidate its scope")

	_, err = s.DescribeActiveTarget(ctx, fx.mainURI)
	require.NoError(t, err)
	s.HandleEvents([]ports.FileEvent{{Kind: ports.EventCreate, Path: filepath.Join(fx.root, ".vscode", "board.mplab.json")}})
	_, ok = s.Store().Peek(key)
	assert.False(t, ok, "a descriptor change must invalidate its scope")

	_, err = s.DescribeActiveTarget(ctx, fx.mainURI)
	require.NoError(t, err)
	s.HandleEvents([]ports.FileEvent{{Kind: ports.EventDelete, Path: filepath.Join(fx.dir, "elsewhere", "x.inc")}})
	_, ok = s.Store().Peek(key)
	assert.False(t, ok, "events outside every root invalidate all scopes")
}

func TestSession_StartWatcherInvalidatesOnSave(t *testing.T) {
	fx := newFixture(t)
	fx.cfg.Watch.Enabled = nil
	fx.cfg.Watch.Debounce = 20 * time.Millisecond
	s := newSession(t, fx)
	ctx := context.Background()
	key := filepath.Clean(fx.root)

	require.NoError(t, s.StartWatcher())
	_, err := s.DescribeActiveTarget(ctx, fx.mainURI)
	require.NoError(t, err)
	_, ok := s.Store().Peek(key)
	require.True(t, ok)

	writeFile(t, filepath.Join(fx.root, "main.S"), mainSource+"; edited\n")
	assert.Eventually(t, func() bool {
		_, ok := s.Store().Peek(key)
		return !ok
	}, 5*time.Second, 20*time.Millisecond)

	require.NoError(t, s.Close())
}

func TestSession_UpdateConfig(t *testing.T) {
	fx := newFixture(t)
	s := newSession(t, fx)
	ctx := context.Background()
	key := filepath.Clean(fx.root)

	_, err := s.DescribeActiveTarget(ctx, fx.mainURI)
	require.NoError(t, err)

	same := *fx.cfg
	require.NoError(t, s.UpdateConfig(&same))
	_, ok := s.Store().Peek(key)
	assert.True(t, ok, "an unchanged configuration must keep the index")

	changed := *fx.cfg
	changed.Pack.Device = "ATtiny85"
	changed.Limits.MaxHoverResults = 2
	require.NoError(t, s.UpdateConfig(&changed))
	_, ok = s.Store().Peek(key)
	assert.False(t, ok)
	assert.Equal(t, 2, s.engine.Settings().MaxHoverResults)

	desc, err := s.DescribeActiveTarget(ctx, fx.mainURI)
	require.NoError(t, err)
	assert.Equal(t, "ATtiny85", desc.Device)
	assert.Equal(t, "config", desc.DeviceSource)
	assert.Empty(t, desc.Files)
}

func TestSession_SetRootsInvalidates(t *testing.T) {
	fx := newFixture(t)
	s := newSession(t, fx)

	_, err := s.DescribeActiveTarget(context.Background(), fx.mainURI)
	require.NoError(t, err)

	s.SetRoots([]string{fx.root})
	assert.Len(t, s.Store().Known(), 1)

	s.SetRoots([]string{fx.root, filepath.Join(fx.dir, "boot")})
	assert.Empty(t, s.Store().Known())
}

type failingFS struct {
	fsys.OS
	suffix string
}

func (f failingFS) ReadFile(path string) ([]byte, error) {
	if strings.HasSuffix(path, f.suffix) {
		return nil, stderrors.New("disk on fire")
	}
	return f.OS.ReadFile(path)
}

func TestSession_BuildFailures(t *testing.T) {
	fx := newFixture(t)
	s := newSession(t, fx, WithFileSystem(failingFS{suffix: "def.inc"}))
	ctx := context.Background()

	require.NoError(t, s.OpenDocument(fx.mainURI, mainSource, 1))

	hover, err := s.Hover(ctx, fx.mainURI, positionOf(t, mainSource, "PORTB", 0))
	assert.NoError(t, err, "query failures are logged, not returned")
	assert.Nil(t, hover)

	items, err := s.Completion(ctx, fx.mainURI, positionOf(t, mainSource, "LED_PIN", 1))
	assert.NoError(t, err)
	assert.Empty(t, items)

	_, err = s.RebuildIndex(ctx, fx.mainURI)
	require.Error(t, err)
	assert.True(t, domainerrors.IsCode(err, domainerrors.CodeIndexBuildFailed))

	_, err = s.DescribeActiveTarget(ctx, fx.mainURI)
	assert.True(t, domainerrors.IsCode(err, domainerrors.CodeIndexBuildFailed))
}

func TestSession_Warmup(t *testing.T) {
	fx := newFixture(t)
	boot := filepath.Join(fx.dir, "boot")
	writeFile(t, filepath.Join(boot, "boot.S"), "; ATmega328P\nboot: rjmp boot\n")
	fx.cfg.Workspace.Roots = []string{fx.root, boot}
	fx.cfg.Observability.WarmupRate = 0
	s := newSession(t, fx)

	require.NoError(t, s.Warmup(context.Background()))
	assert.Len(t, s.Store().Known(), 2)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, s.Warmup(ctx), context.Canceled)
}

func TestSession_PackStoreServesRebuilds(t *testing.T) {
	fx := newFixture(t)
	fx.cfg.Store.Enabled = true
	fx.cfg.Store.Path = filepath.Join(fx.dir, "state", "packs.db")
	s := newSession(t, fx)
	ctx := context.Background()

	first, err := s.RebuildIndex(ctx, fx.mainURI)
	require.NoError(t, err)
	second, err := s.RebuildIndex(ctx, fx.mainURI)
	require.NoError(t, err)
	assert.Equal(t, first.SymbolCount, second.SymbolCount)

	require.NotNil(t, s.packStore)
	stats, err := s.packStore.Stats()
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Files)
	assert.GreaterOrEqual(t, stats.Hits, 2)

	pruned, err := s.PrunePackStore()
	require.NoError(t, err)
	assert.Equal(t, 0, pruned)

	status := NewHealthService(s).Check(ctx)
	assert.Equal(t, "up", status.Status)
	assert.Contains(t, status.Components["pack_store"], "2 files")
}
