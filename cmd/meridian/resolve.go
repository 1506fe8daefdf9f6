package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"mercator-hq/meridian/pkg/analysis"
	"mercator-hq/meridian/pkg/cli"
)

var resolveFlags struct {
	format string
}

var resolveCmd = &cobra.Command{
	Use:   "resolve <path>...",
	Short: "Find the workspace resource that owns a file",
	Long: `Ask every project of the workspace, in enumeration order, for the resource
corresponding to each path. The first project that answers wins.

Exits with status 2 when any path belongs to no project.

Examples:
  meridian resolve ~/src/app/main.go
  meridian resolve --format json ./cmd/meridian/main.go ./README.md`,
	Args: cobra.MinimumNArgs(1),
	RunE: resolvePaths,
}

func init() {
	rootCmd.AddCommand(resolveCmd)

	resolveCmd.Flags().StringVar(&resolveFlags.format, "format", "text", "output format: text, json, csv")
}

type resolution struct {
	Source   string `json:"source"`
	Found    bool   `json:"found"`
	Kind     string `json:"kind,omitempty"`
	Resource string `json:"resource,omitempty"`
}

func resolvePaths(cmd *cobra.Command, args []string) error {
	format, err := cli.ParseOutputFormat(resolveFlags.format)
	if err != nil {
		return cli.NewCommandError("resolve", err)
	}

	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	var (
		results = make([]resolution, 0, len(args))
		table   = &cli.Table{Headers: []string{"SOURCE", "KIND", "RESOURCE"}}
		missing []string
	)
	for _, arg := range args {
		src := analysis.NewSource(arg)
		res, found, err := a.registry.ResourceFor(cmd.Context(), src)
		if err != nil {
			return cli.NewCommandError("resolve", err)
		}

		r := resolution{Source: src.Path, Found: found}
		if found {
			r.Kind = res.Kind.String()
			r.Resource = res.Path
			table.Append(src.Path, r.Kind, r.Resource)
		} else {
			missing = append(missing, src.Path)
			table.Append(src.Path, "-", "-")
		}
		results = append(results, r)
	}

	if err := render(cmd.OutOrStdout(), format, table, results); err != nil {
		return cli.NewCommandError("resolve", err)
	}

	if len(missing) > 0 {
		return cli.NewCommandError("resolve", fmt.Errorf("%w: %d of %d paths belong to no project", cli.ErrNotFound, len(missing), len(args)))
	}
	return nil
}
