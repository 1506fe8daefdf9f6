package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"mercator-hq/meridian/pkg/analysis/index"
	"mercator-hq/meridian/pkg/analysis/search"
	"mercator-hq/meridian/pkg/cli"
	"mercator-hq/meridian/pkg/workspace"
)

var searchFlags struct {
	mode    string
	kind    string
	limit   int
	project string
	reindex bool
	format  string
}

var searchCmd = &cobra.Command{
	Use:   "search <pattern>",
	Short: "Search the shared index by name",
	Long: `Search element names across every project of the workspace.

The pattern is matched as a glob when it contains *, ? or [ and as a
substring otherwise, unless --mode says otherwise. A memory index is built
for every invocation; a SQLite index is reused unless --reindex is given.

Exits with status 2 when nothing matches.

Examples:
  # Every Go test file
  meridian search "*_test.go" --kind file

  # Exact name inside one project
  meridian search main.go --mode exact --project ~/src/app`,
	Args: cobra.ExactArgs(1),
	RunE: searchIndex,
}

func init() {
	rootCmd.AddCommand(searchCmd)

	searchCmd.Flags().StringVar(&searchFlags.mode, "mode", "", "match mode: exact, prefix, contains, glob (default: auto)")
	searchCmd.Flags().StringVar(&searchFlags.kind, "kind", "", "element kind: file, directory")
	searchCmd.Flags().IntVar(&searchFlags.limit, "limit", search.DefaultLimit, "max results (negative for no limit)")
	searchCmd.Flags().StringVar(&searchFlags.project, "project", "", "restrict results to one project directory")
	searchCmd.Flags().BoolVar(&searchFlags.reindex, "reindex", false, "rebuild the index before searching")
	searchCmd.Flags().StringVar(&searchFlags.format, "format", "text", "output format: text, json, csv")
}

func searchIndex(cmd *cobra.Command, args []string) error {
	format, err := cli.ParseOutputFormat(searchFlags.format)
	if err != nil {
		return cli.NewCommandError("search", err)
	}
	opts, err := searchOptions(searchFlags.mode, searchFlags.kind, searchFlags.limit)
	if err != nil {
		return cli.NewCommandError("search", err)
	}

	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	ctx := cmd.Context()
	if a.cfg.Index.Backend == "memory" || searchFlags.reindex {
		if _, err := a.registry.IndexAll(ctx); err != nil {
			slog.Warn("workspace indexed with errors", "error", err)
		}
	}

	engine := a.registry.NewSearchEngine()
	var elements []index.Element
	if searchFlags.project != "" {
		elements, err = engine.FindInProject(ctx, workspace.ProjectResource(searchFlags.project), args[0], opts)
	} else {
		elements, err = engine.FindByName(ctx, args[0], opts)
	}
	if err != nil {
		return cli.NewCommandError("search", err)
	}

	table := &cli.Table{Headers: []string{"NAME", "KIND", "PROJECT", "PATH"}}
	for _, e := range elements {
		table.Append(e.Name, string(e.Kind), e.Project, e.Path)
	}
	if err := render(cmd.OutOrStdout(), format, table, elements); err != nil {
		return cli.NewCommandError("search", err)
	}

	if len(elements) == 0 {
		return cli.NewCommandError("search", fmt.Errorf("%w: no element matches %q", cli.ErrNotFound, args[0]))
	}
	return nil
}

// searchOptions validates the search flags.
func searchOptions(mode, kind string, limit int) (search.Options, error) {
	opts := search.Options{Mode: search.Mode(mode), Limit: limit}

	switch opts.Mode {
	case search.ModeAuto, search.ModeExact, search.ModePrefix, search.ModeContains, search.ModeGlob:
	default:
		return opts, fmt.Errorf("unknown match mode %q", mode)
	}

	switch index.ElementKind(kind) {
	case "", index.KindFile, index.KindDirectory:
		opts.Kind = index.ElementKind(kind)
	default:
		return opts, fmt.Errorf("unknown element kind %q", kind)
	}

	return opts, nil
}
