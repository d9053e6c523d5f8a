package cli

import (
	"io"

	"github.com/spf13/cobra"
)

const versionString = "0.4.0"

type cliOptions struct {
	configPath  string
	roots       []string
	verbose     bool
	jsonOutput  bool
	declaration bool
}

func newRootCommand(r *runner) *cobra.Command {
	root := &cobra.Command{
		Use:           "packsense",
		Short:         "Symbol lookups for AVR assembly against device family packs",
		Version:       versionString,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, _ []string) {
			configureLogging(r.stderr, r.opts.verbose)
		},
	}
	root.SetOut(r.stdout)
	root.SetErr(r.stderr)

	flags := root.PersistentFlags()
	flags.StringVar(&r.opts.configPath, "config", "", "Path to packsense.toml (default: nearest one above the working directory)")
	flags.StringSliceVar(&r.opts.roots, "root", nil, "Workspace root; repeatable, overrides workspace.roots")
	flags.BoolVar(&r.opts.verbose, "verbose", false, "Enable debug logging on stderr")
	flags.BoolVar(&r.opts.jsonOutput, "json", false, "Print results as JSON")

	references := &cobra.Command{
		Use:   "references <file> <line> <column>",
		Short: "List whole-token occurrences of the symbol at a position",
		Args:  cobra.ExactArgs(3),
		RunE:  r.runReferences,
	}
	references.Flags().BoolVar(&r.opts.declaration, "declaration", false, "Include the declaration site")

	root.AddCommand(
		&cobra.Command{
			Use:   "describe [file]",
			Short: "Show the device, pack and files behind a file's scope",
			Args:  cobra.MaximumNArgs(1),
			RunE:  r.runDescribe,
		},
		&cobra.Command{
			Use:   "rebuild [file]",
			Short: "Discard and rebuild the pack index for a file's scope",
			Args:  cobra.MaximumNArgs(1),
			RunE:  r.runRebuild,
		},
		&cobra.Command{
			Use:   "hover <file> <line> <column>",
			Short: "Show hover content for the symbol at a 1-based position",
			Args:  cobra.ExactArgs(3),
			RunE:  r.runHover,
		},
		&cobra.Command{
			Use:   "definition <file> <line> <column>",
			Short: "List definition sites of the symbol at a position",
			Args:  cobra.ExactArgs(3),
			RunE:  r.runDefinition,
		},
		references,
		&cobra.Command{
			Use:     "complete <file> <line> <column>",
			Short:   "List completion candidates at a position",
			Aliases: []string{"completion"},
			Args:    cobra.ExactArgs(3),
			RunE:    r.runComplete,
		},
		&cobra.Command{
			Use:   "symbols <file>",
			Short: "List the symbols defined in a file",
			Args:  cobra.ExactArgs(1),
			RunE:  r.runSymbols,
		},
		&cobra.Command{
			Use:   "search <query>",
			Short: "Search workspace and pack symbols by substring",
			Args:  cobra.ExactArgs(1),
			RunE:  r.runSearch,
		},
		&cobra.Command{
			Use:   "serve",
			Short: "Run the stdio tool server with file watching and warm-up",
			Args:  cobra.NoArgs,
			RunE:  r.runServe,
		},
	)
	return root
}

type runner struct {
	opts    *cliOptions
	cwd     string
	stdin   io.Reader
	stdout  io.Writer
	stderr  io.Writer
	factory sessionFactory
}
