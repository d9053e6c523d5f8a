package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	coreapp "packsense/internal/core/app"
	"packsense/internal/core/config"
	"packsense/internal/core/ports"
	"packsense/internal/core/workspace"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
)

func Run(args []string) int {
	cwd, err := os.Getwd()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: failed to detect working directory: %v\n", err)
		return 1
	}
	return run(args, cwd, os.Stdin, os.Stdout, os.Stderr, coreSessionFactory{})
}

func run(args []string, cwd string, stdin io.Reader, stdout, stderr io.Writer, factory sessionFactory) int {
	r := &runner{
		opts:    &cliOptions{},
		cwd:     cwd,
		stdin:   stdin,
		stdout:  stdout,
		stderr:  stderr,
		factory: factory,
	}
	root := newRootCommand(r)
	root.SetArgs(args)
	if err := root.Execute(); err != nil {
		fmt.Fprintf(stderr, "error: %v\n", err)
		return 1
	}
	return 0
}

// loadConfig reads an explicit path, or the nearest packsense.toml above
// cwd, falling back to the defaults. The returned path is empty when no file
// was read.
func loadConfig(path, cwd string) (*config.Config, string, error) {
	if strings.TrimSpace(path) != "" {
		path = config.ResolveRelative(cwd, config.ExpandHome(path))
		cfg, err := config.Load(path)
		if err != nil {
			return nil, "", fmt.Errorf("load config %s: %w", path, err)
		}
		config.ApplyEnvOverrides(cfg)
		return cfg, path, nil
	}

	found := config.FindConfig(cwd)
	cfg, err := config.LoadOrDefault(found)
	if err != nil {
		return nil, "", fmt.Errorf("load config %s: %w", found, err)
	}
	config.ApplyEnvOverrides(cfg)
	return cfg, found, nil
}

func (r *runner) applyOverrides(cfg *config.Config) {
	if len(r.opts.roots) > 0 {
		cfg.Workspace.Roots = append([]string(nil), r.opts.roots...)
	}
}

// openSession loads configuration and builds a session for a one-shot
// command. File watching is always off outside serve.
func (r *runner) openSession() (*coreapp.Session, error) {
	cfg, cfgPath, err := loadConfig(r.opts.configPath, r.cwd)
	if err != nil {
		return nil, err
	}
	r.applyOverrides(cfg)
	disabled := false
	cfg.Watch.Enabled = &disabled

	slog.Debug("configuration loaded", "path", cfgPath, "roots", cfg.Workspace.Roots)
	return initializeSession(cfg, r.cwd, r.factory)
}

func (r *runner) withSession(fn func(ctx context.Context, s *coreapp.Session) error) error {
	session, err := r.openSession()
	if err != nil {
		return err
	}
	defer func() {
		if err := session.Close(); err != nil {
			slog.Warn("failed to close session", "error", err)
		}
	}()
	return fn(context.Background(), session)
}

func (r *runner) fileURI(arg string) string {
	arg = strings.TrimSpace(arg)
	if arg == "" || strings.Contains(arg, "://") || strings.HasPrefix(arg, "untitled:") {
		return arg
	}
	return workspace.URIFromPath(config.ResolveRelative(r.cwd, config.ExpandHome(arg)))
}

// parsePosition converts 1-based command-line coordinates to a 0-based
// position.
func parsePosition(lineArg, columnArg string) (ports.Position, error) {
	line, err := strconv.Atoi(strings.TrimSpace(lineArg))
	if err != nil || line < 1 {
		return ports.Position{}, fmt.Errorf("line must be a positive integer, got %q", lineArg)
	}
	column, err := strconv.Atoi(strings.TrimSpace(columnArg))
	if err != nil || column < 1 {
		return ports.Position{}, fmt.Errorf("column must be a positive integer, got %q", columnArg)
	}
	return ports.Position{Line: line - 1, Character: column - 1}, nil
}

func (r *runner) printJSON(v any) error {
	enc := json.NewEncoder(r.stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func formatLocation(loc ports.Location) string {
	return fmt.Sprintf("%s:%d:%d", loc.Path, loc.Range.Start.Line+1, loc.Range.Start.Character+1)
}

func (r *runner) runDescribe(_ *cobra.Command, args []string) error {
	return r.withSession(func(ctx context.Context, s *coreapp.Session) error {
		target, err := s.DescribeActiveTarget(ctx, r.optionalURI(args))
		if err != nil {
			return err
		}
		return r.printTarget(target)
	})
}

func (r *runner) runRebuild(_ *cobra.Command, args []string) error {
	return r.withSession(func(ctx context.Context, s *coreapp.Session) error {
		target, err := s.RebuildIndex(ctx, r.optionalURI(args))
		if err != nil {
			return err
		}
		return r.printTarget(target)
	})
}

func (r *runner) optionalURI(args []string) string {
	if len(args) == 0 {
		return ""
	}
	return r.fileURI(args[0])
}

func (r *runner) printTarget(target ports.TargetDescription) error {
	if r.opts.jsonOutput {
		return r.printJSON(target)
	}
	_, err := io.WriteString(r.stdout, coreapp.FormatTarget(target))
	return err
}

func (r *runner) runHover(_ *cobra.Command, args []string) error {
	pos, err := parsePosition(args[1], args[2])
	if err != nil {
		return err
	}
	return r.withSession(func(ctx context.Context, s *coreapp.Session) error {
		h, err := s.Hover(ctx, r.fileURI(args[0]), pos)
		if err != nil {
			return err
		}
		if r.opts.jsonOutput {
			return r.printJSON(h)
		}
		if h == nil {
			fmt.Fprintln(r.stdout, "no hover information")
			return nil
		}
		fmt.Fprintln(r.stdout, h.Markdown)
		return nil
	})
}

func (r *runner) runDefinition(_ *cobra.Command, args []string) error {
	pos, err := parsePosition(args[1], args[2])
	if err != nil {
		return err
	}
	return r.withSession(func(ctx context.Context, s *coreapp.Session) error {
		locs, err := s.Definition(ctx, r.fileURI(args[0]), pos)
		if err != nil {
			return err
		}
		if r.opts.jsonOutput {
			return r.printJSON(nonNil(locs))
		}
		for _, loc := range locs {
			fmt.Fprintln(r.stdout, formatLocation(loc))
		}
		return nil
	})
}

func (r *runner) runReferences(_ *cobra.Command, args []string) error {
	pos, err := parsePosition(args[1], args[2])
	if err != nil {
		return err
	}
	return r.withSession(func(ctx context.Context, s *coreapp.Session) error {
		refs, err := s.References(ctx, r.fileURI(args[0]), pos, r.opts.declaration)
		if err != nil {
			return err
		}
		if r.opts.jsonOutput {
			return r.printJSON(nonNil(refs))
		}
		for _, ref := range refs {
			line := formatLocation(ref.Location)
			if ref.Declaration {
				line += " (declaration)"
			}
			fmt.Fprintln(r.stdout, line)
		}
		return nil
	})
}

func (r *runner) runComplete(_ *cobra.Command, args []string) error {
	pos, err := parsePosition(args[1], args[2])
	if err != nil {
		return err
	}
	return r.withSession(func(ctx context.Context, s *coreapp.Session) error {
		items, err := s.Completion(ctx, r.fileURI(args[0]), pos)
		if err != nil {
			return err
		}
		if r.opts.jsonOutput {
			return r.printJSON(nonNil(items))
		}
		for _, item := range items {
			fmt.Fprintf(r.stdout, "%s\t%s\t%s\t%s\n", item.Label, item.Source, item.Kind, item.Detail)
		}
		return nil
	})
}

func (r *runner) runSymbols(_ *cobra.Command, args []string) error {
	return r.withSession(func(ctx context.Context, s *coreapp.Session) error {
		syms, err := s.DocumentSymbols(ctx, r.fileURI(args[0]))
		if err != nil {
			return err
		}
		if r.opts.jsonOutput {
			return r.printJSON(nonNil(syms))
		}
		for _, sym := range syms {
			start := sym.SelectionRange.Start
			fmt.Fprintf(r.stdout, "%d:%d\t%s\t%s\n", start.Line+1, start.Character+1, sym.Kind, sym.Name)
		}
		return nil
	})
}

func (r *runner) runSearch(_ *cobra.Command, args []string) error {
	return r.withSession(func(ctx context.Context, s *coreapp.Session) error {
		syms, err := s.WorkspaceSymbols(ctx, args[0])
		if err != nil {
			return err
		}
		if r.opts.jsonOutput {
			return r.printJSON(nonNil(syms))
		}
		for _, sym := range syms {
			fmt.Fprintf(r.stdout, "%s\t%s\t%s\t%s\n", sym.Name, sym.Kind, sym.Container, formatLocation(sym.Location))
		}
		return nil
	})
}

func configureLogging(w io.Writer, verbose bool) {
	logLevel := slog.LevelInfo
	if verbose {
		logLevel = slog.LevelDebug
	}
	// stdout carries command output and the tool protocol.
	logger := slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: logLevel}))
	slog.SetDefault(logger)
}

func nonNil[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}
