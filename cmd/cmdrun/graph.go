// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/cmdrun/cmdrun/internal/graphview"
	"github.com/cmdrun/cmdrun/pkg/cmdfile"
)

// newGraphCommand creates the `cmdrun graph` command.
func newGraphCommand(app *App, gf *globalFlags) *cobra.Command {
	var (
		format     string
		showGroups bool
	)

	cmd := &cobra.Command{
		Use:   "graph [command]",
		Short: "Show the dependency graph",
		Long: `Show the dependency graph of a command, or of every command when none
is given. The tree format is meant for terminals; dot and mermaid can be
fed to Graphviz or pasted into Markdown.`,
		Example: `  cmdrun graph build
  cmdrun graph --groups release
  cmdrun graph --format dot | dot -Tsvg > deps.svg`,
		Args: cobra.MaximumNArgs(1),
		ValidArgsFunction: func(cmd *cobra.Command, args []string, _ string) ([]string, cobra.ShellCompDirective) {
			if len(args) > 0 {
				return nil, cobra.ShellCompDirectiveNoFileComp
			}
			return completeCommandNames(cmd.Context(), app, gf), cobra.ShellCompDirectiveNoFileComp
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.SilenceErrors = true
			cmd.SilenceUsage = true

			s, err := app.loadSession(cmd.Context(), gf)
			if err != nil {
				return reportError(app.stderr, err, gf.verbose)
			}

			var root cmdfile.CommandID
			if len(args) == 1 {
				c, err := s.file.Resolve(args[0])
				if err != nil {
					return reportError(app.stderr, unknownCommand(err, args[0]), s.verbose)
				}
				root = c.ID
			}

			out, err := graphview.Render(s.file, root, graphview.Format(format), showGroups)
			if err != nil {
				return reportError(app.stderr, planError(err, root), s.verbose)
			}
			fmt.Fprint(app.stdout, out)
			if !strings.HasSuffix(out, "\n") {
				fmt.Fprintln(app.stdout)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&format, "format", string(graphview.FormatTree), "output format ("+formatNames()+")")
	cmd.Flags().BoolVar(&showGroups, "groups", false, "include execution groups")
	_ = cmd.RegisterFlagCompletionFunc("format", func(*cobra.Command, []string, string) ([]string, cobra.ShellCompDirective) {
		var names []string
		for _, f := range graphview.Formats() {
			names = append(names, string(f))
		}
		return names, cobra.ShellCompDirectiveNoFileComp
	})

	return cmd
}

func formatNames() string {
	var names []string
	for _, f := range graphview.Formats() {
		names = append(names, string(f))
	}
	return strings.Join(names, ", ")
}
