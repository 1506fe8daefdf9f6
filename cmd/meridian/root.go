package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"mercator-hq/meridian/pkg/cli"
)

var (
	// Global flags
	cfgFile       string
	verbose       bool
	workspaceRoot string
	logLevel      string
)

var rootCmd = &cobra.Command{
	Use:   "meridian",
	Short: "Meridian - workspace project registry and code index",
	Long: `Meridian maps the projects of a workspace to analysis projects that share
one code index.

It provides:
  - A lazily populated project registry keyed by workspace resource
  - A shared name index (in memory or SQLite) and search engines over it
  - Resolution of a file to the project resource that owns it
  - Privacy-tagged instrumentation records for every registry operation`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command and exits with the code matching the error.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(cli.ExitCode(err))
	}
}

func init() {
	// Global persistent flags (available to all subcommands)
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file path (defaults and MERIDIAN_* environment when empty)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output (debug logging)")
	rootCmd.PersistentFlags().StringVarP(&workspaceRoot, "workspace", "w", "", "override workspace root")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "override log level (debug, info, warn, error)")
}
