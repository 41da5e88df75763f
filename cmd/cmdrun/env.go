// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"
	"io"
	"maps"
	"slices"

	"github.com/spf13/cobra"

	"github.com/cmdrun/cmdrun/internal/app/execute"
	"github.com/cmdrun/cmdrun/internal/interpolate"
	"github.com/cmdrun/cmdrun/internal/issue"
	"github.com/cmdrun/cmdrun/internal/security"
)

// newEnvCommand creates the `cmdrun env` command.
func newEnvCommand(app *App, gf *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "env [command] [args...]",
		Short: "Show the expanded environment",
		Long: `Show the global environment of the commands file after expansion, and
with a command name the variables that command adds on top. Values of
variables that look like secrets are masked.`,
		Args: cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.SilenceErrors = true
			cmd.SilenceUsage = true

			s, err := app.loadSession(cmd.Context(), gf)
			if err != nil {
				return reportError(app.stderr, err, gf.verbose)
			}

			vars, err := execute.GlobalEnv(s.settings, s.file.Dir())
			if err != nil {
				return reportError(app.stderr, err, s.verbose)
			}

			var positional []string
			if len(args) > 1 {
				positional = args[1:]
			}
			system := interpolate.SystemEnv()
			global, err := interpolate.ExpandEnv(vars, interpolate.NewContext(positional, system), s.settings.StrictMode)
			if err != nil {
				return reportError(app.stderr, envError(err, "global env"), s.verbose)
			}
			printEnv(app.stdout, "Global", global)

			if len(args) == 0 {
				return nil
			}
			c, err := s.file.Resolve(args[0])
			if err != nil {
				return reportError(app.stderr, unknownCommand(err, args[0]), s.verbose)
			}
			local, err := interpolate.ExpandEnv(c.Env, interpolate.NewContext(positional, global, system), s.settings.StrictMode)
			if err != nil {
				return reportError(app.stderr, envError(err, string(c.ID)), s.verbose)
			}
			fmt.Fprintln(app.stdout)
			printEnv(app.stdout, string(c.ID), local)
			return nil
		},
	}
	cmd.Flags().SetInterspersed(false)

	return cmd
}

// printEnv writes env sorted by name with secrets masked.
func printEnv(w io.Writer, title string, env map[string]string) {
	fmt.Fprintln(w, TitleStyle.Render(title))
	if len(env) == 0 {
		fmt.Fprintln(w, SubtitleStyle.Render("  (none)"))
		return
	}
	masked := security.MaskEnv(env)
	for _, name := range slices.Sorted(maps.Keys(masked)) {
		fmt.Fprintf(w, "  %s=%s\n", CmdStyle.Render(name), masked[name])
	}
}

func envError(err error, resource string) error {
	return issue.NewErrorContext().
		WithOperation("expand env").
		WithResource(resource).
		WithIssue(validationIssue(err)).
		Wrap(err).
		BuildError()
}
