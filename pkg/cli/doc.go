/*
Package cli provides command-line helpers used by the meridian command.

Output Formatting:

Commands render results as text, JSON or CSV. Tabular results are built as
a *Table so every format can render them:

	table := &cli.Table{Headers: []string{"NAME", "PATH"}}
	table.Append(res.Name(), res.Path)
	if err := cli.NewFormatter(format).FormatTo(os.Stdout, table); err != nil {
		return err
	}

Progress Reporting:

	progress := cli.NewProgressReporter(os.Stderr, "projects")
	progress.Start(int64(len(projects)))
	for _, p := range projects {
		// index p
		progress.Increment()
	}
	progress.Finish()

Signal Handling:

	ctx, stop := cli.SetupSignalHandler(context.Background())
	defer stop()

Errors:

Commands return *CommandError or *ConfigError; ExitCode maps them (and
ErrNotFound) to process exit codes.
*/
package cli
