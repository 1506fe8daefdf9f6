package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"

	"github.com/spf13/cobra"

	"mercator-hq/meridian/pkg/cli"
	"mercator-hq/meridian/pkg/workspace"
)

var projectsFlags struct {
	index  bool
	format string
}

var projectsCmd = &cobra.Command{
	Use:   "projects",
	Short: "List workspace projects",
	Long: `List the projects of the workspace in enumeration order, with the number
of indexed elements and the VCS head of each project.

With the memory index backend nothing is indexed between runs, so counts
are zero unless --index is given.

Examples:
  # List projects
  meridian projects

  # Index first, then list
  meridian projects --index

  # Machine readable output
  meridian projects --format json`,
	Args: cobra.NoArgs,
	RunE: listProjects,
}

func init() {
	rootCmd.AddCommand(projectsCmd)

	projectsCmd.Flags().BoolVar(&projectsFlags.index, "index", false, "index every project before listing")
	projectsCmd.Flags().StringVar(&projectsFlags.format, "format", "text", "output format: text, json, csv")
}

func listProjects(cmd *cobra.Command, args []string) error {
	format, err := cli.ParseOutputFormat(projectsFlags.format)
	if err != nil {
		return cli.NewCommandError("projects", err)
	}

	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	ctx := cmd.Context()
	projects, err := a.registry.AllProjects(ctx)
	if err != nil {
		return cli.NewCommandError("projects", err)
	}

	if projectsFlags.index {
		progress := cli.NewProgressReporter(cmd.ErrOrStderr(), "projects")
		progress.Start(int64(len(projects)))
		for _, p := range projects {
			if _, err := a.registry.IndexProject(ctx, p); err != nil {
				progress.Error(err)
				return cli.NewCommandError("projects", err)
			}
			progress.Increment()
		}
		progress.Finish()
	}

	infos := make([]projectInfo, 0, len(projects))
	table := &cli.Table{Headers: []string{"NAME", "PATH", "ELEMENTS", "HEAD"}}
	for _, p := range projects {
		res := p.Resource()
		count, err := a.registry.Index().Count(ctx, res.Path)
		if err != nil {
			return cli.NewCommandError("projects", err)
		}
		info := projectInfo{Name: res.Name(), Path: res.Path, Elements: count, Head: headLabel(res.Path)}
		infos = append(infos, info)
		table.Append(info.Name, info.Path, strconv.Itoa(info.Elements), info.Head)
	}

	if err := render(cmd.OutOrStdout(), format, table, infos); err != nil {
		return cli.NewCommandError("projects", err)
	}
	if format == cli.FormatText {
		fmt.Fprintf(cmd.OutOrStdout(), "\n%d projects\n", len(projects))
	}
	return nil
}

type projectInfo struct {
	Name     string `json:"name"`
	Path     string `json:"path"`
	Elements int    `json:"elements"`
	Head     string `json:"head"`
}

// render writes table for text and CSV output and v for JSON output.
func render(w io.Writer, format cli.OutputFormat, table *cli.Table, v any) error {
	if format == cli.FormatJSON {
		return (&cli.JSONFormatter{Indent: true}).FormatTo(w, v)
	}
	return cli.NewFormatter(format).FormatTo(w, table)
}

// headLabel describes the VCS head of the repository containing path.
func headLabel(path string) string {
	head, err := workspace.Head(path)
	switch {
	case errors.Is(err, workspace.ErrNoRepository):
		return "-"
	case err != nil:
		slog.Warn("failed to read repository head", "path", path, "error", err)
		return "?"
	default:
		return head.String()
	}
}
