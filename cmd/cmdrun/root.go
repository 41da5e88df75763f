// SPDX-License-Identifier: MPL-2.0

// Package cmd contains all CLI commands for cmdrun.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/charmbracelet/fang"
	"github.com/spf13/cobra"

	"github.com/cmdrun/cmdrun/internal/issue"
	"github.com/cmdrun/cmdrun/pkg/types"
)

var (
	// Version is the semantic version (set via -ldflags).
	Version = "dev"
	// Commit is the git commit hash (set via -ldflags).
	Commit = "unknown"
	// BuildDate is the build timestamp (set via -ldflags).
	BuildDate = "unknown"
)

// globalFlags are the persistent flags shared by every subcommand.
type globalFlags struct {
	verbose    bool
	configPath string
	filePath   string
}

// NewRootCommand builds the command tree around app.
func NewRootCommand(app *App) *cobra.Command {
	flags := &globalFlags{}

	root := &cobra.Command{
		Use:   "cmdrun",
		Short: "Run project commands with dependencies",
		Long: TitleStyle.Render("cmdrun") + SubtitleStyle.Render(" - a project command runner") + `

cmdrun runs the commands declared in a commands.toml file. Commands can
depend on each other, take positional arguments, expand ${VARIABLES}
and run independent work in parallel.

` + SubtitleStyle.Render("Examples:") + `
  cmdrun list               List all available commands
  cmdrun run build          Run 'build' and everything it depends on
  cmdrun run test ./pkg     Run 'test' with ${1} set to ./pkg
  cmdrun graph build        Show the dependency tree of 'build'
  cmdrun watch test         Re-run 'test' when files change
  cmdrun history            Show recent runs`,
		SilenceUsage: true,
	}

	root.PersistentFlags().BoolVarP(&flags.verbose, "verbose", "v", false, "enable verbose output")
	root.PersistentFlags().StringVar(&flags.configPath, "config", "", "config file (default is $HOME/.config/cmdrun/config.toml)")
	root.PersistentFlags().StringVarP(&flags.filePath, "file", "f", "", "commands file (default: search upwards for commands.toml)")

	root.AddCommand(
		newInitCommand(app, flags),
		newRunCommand(app, flags),
		newRetryCommand(app, flags),
		newInfoCommand(app, flags),
		newListCommand(app, flags),
		newGraphCommand(app, flags),
		newValidateCommand(app, flags),
		newHistoryCommand(app, flags),
		newWatchCommand(app, flags),
		newEnvCommand(app, flags),
		newConfigCommand(app, flags),
		newCompletionCommand(),
	)

	return root
}

// getVersionString returns a formatted version string for display.
func getVersionString() string {
	if Version == "dev" {
		return "dev (built from source)"
	}
	return fmt.Sprintf("%s (commit: %s, built: %s)", Version, Commit, BuildDate)
}

// Execute builds the command tree and runs it. This is called by main.main().
func Execute() {
	app, err := NewApp(Dependencies{})
	if err != nil {
		fmt.Fprintln(os.Stderr, formatErrorForDisplay(err, false))
		os.Exit(int(types.ExitFailure))
	}

	// fang overrides rootCmd.Version, so the version goes through WithVersion.
	if err := fang.Execute(
		context.Background(),
		NewRootCommand(app),
		fang.WithVersion(getVersionString()),
		fang.WithNotifySignal(os.Interrupt),
	); err != nil {
		var exitErr *ExitError
		if errors.As(err, &exitErr) {
			os.Exit(int(exitErr.Code))
		}
		os.Exit(int(types.ExitFailure))
	}
}

// formatErrorForDisplay formats an error for user display.
// If the error is an ActionableError, it uses the Format method.
// In verbose mode, shows the full error chain.
func formatErrorForDisplay(err error, verboseMode bool) string {
	var ae *issue.ActionableError
	if errors.As(err, &ae) {
		return ae.Format(verboseMode)
	}
	return err.Error()
}
