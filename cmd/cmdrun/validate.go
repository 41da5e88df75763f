// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/cmdrun/cmdrun/internal/app/execute"
	"github.com/cmdrun/cmdrun/internal/dag"
	"github.com/cmdrun/cmdrun/internal/interpolate"
	"github.com/cmdrun/cmdrun/internal/issue"
	"github.com/cmdrun/cmdrun/pkg/cmdfile"
	"github.com/cmdrun/cmdrun/pkg/types"
)

// newValidateCommand creates the `cmdrun validate` command.
func newValidateCommand(app *App, gf *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Check the commands file",
		Long: `Check the commands file: schema, dependency and alias targets,
platform variants and dependency cycles across all commands.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cmd.SilenceErrors = true
			cmd.SilenceUsage = true

			s, err := app.loadSession(cmd.Context(), gf)
			if err != nil {
				return reportError(app.stderr, err, gf.verbose)
			}
			return validateFile(app.stdout, app.stderr, s)
		},
	}
}

// validateFile reports every problem of the session's file. Cycles are
// only looked for once the cross-references are sound. In strict mode a
// ${NAME} reference that no env layer defines is a problem too.
func validateFile(stdout, stderr io.Writer, s *session) error {
	f := s.file
	if err := f.Validate(); err != nil {
		var invalid *cmdfile.InvalidFileError
		if errors.As(err, &invalid) {
			problems := make([]string, len(invalid.Problems))
			for i, p := range invalid.Problems {
				problems[i] = p.Error()
			}
			printProblems(stderr, f.Path, problems)
			return &ExitError{Code: types.ExitUsage}
		}
		return reportError(stderr, err, s.verbose)
	}

	order, err := dag.Order(f.Commands)
	if err != nil {
		return reportError(stderr, issue.NewErrorContext().
			WithOperation("validate dependency graph").
			WithResource(f.Path).
			WithIssue(validationIssue(err)).
			Wrap(err).
			BuildError(), s.verbose)
	}

	if s.settings.StrictMode {
		global, err := execute.GlobalEnv(s.settings, f.Dir())
		if err != nil {
			return reportError(stderr, issue.NewErrorContext().
				WithOperation("load env files").
				WithResource(f.Path).
				WithIssue(issue.CommandsFileParseErrorId).
				Wrap(err).
				BuildError(), s.verbose)
		}
		layers := []interpolate.Layer{interpolate.MapLayer(cmdfile.EnvMap(global)), interpolate.SystemEnv()}

		var problems []string
		for _, id := range order {
			for _, name := range execute.UnboundReferences(f.Commands[id], layers...) {
				problems = append(problems, fmt.Sprintf("command %q: ${%s} is not defined by any env layer", id, name))
			}
		}
		if len(problems) > 0 {
			printProblems(stderr, f.Path, problems)
			fmt.Fprintln(stderr, VerboseStyle.Render("  strict_mode is on; define the variables or use ${NAME:-default}"))
			return &ExitError{Code: types.ExitUsage}
		}
	}

	fmt.Fprintln(stdout, SuccessStyle.Render(fmt.Sprintf("✓ %s is valid (%d commands)", f.Path, len(f.Commands))))
	if s.verbose {
		ids := make([]string, len(order))
		for i, id := range order {
			ids[i] = string(id)
		}
		fmt.Fprintf(stdout, "  %s %s\n", VerboseStyle.Render("order:"), strings.Join(ids, " → "))
	}
	return nil
}

func printProblems(w io.Writer, path string, problems []string) {
	fmt.Fprintln(w, ErrorStyle.Render(fmt.Sprintf("✗ %s has %d problem(s):", path, len(problems))))
	for _, p := range problems {
		fmt.Fprintf(w, "  • %s\n", p)
	}
}
