// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"fmt"
	"io"
	"maps"
	"slices"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/cmdrun/cmdrun/pkg/cmdfile"
)

// newListCommand creates the `cmdrun list` command.
func newListCommand(app *App, gf *globalFlags) *cobra.Command {
	var tag string

	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List available commands",
		Long: `List the commands of the commands file with their descriptions.
With --verbose, dependencies, platforms and options are shown as well.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cmd.SilenceErrors = true
			cmd.SilenceUsage = true

			s, err := app.loadSession(cmd.Context(), gf)
			if err != nil {
				return reportError(app.stderr, err, gf.verbose)
			}
			renderCommandList(app.stdout, s.file, tag, s.verbose)
			return nil
		},
	}
	cmd.Flags().StringVarP(&tag, "tag", "t", "", "only list commands with this tag")

	return cmd
}

// renderCommandList writes the commands of f, filtered by tag when set.
func renderCommandList(w io.Writer, f *cmdfile.File, tag string, verbose bool) {
	var ids []cmdfile.CommandID
	for _, id := range f.IDs() {
		if tag == "" || f.Commands[id].HasTag(tag) {
			ids = append(ids, id)
		}
	}

	if len(ids) == 0 {
		if tag != "" {
			fmt.Fprintf(w, "No commands tagged %q in %s\n", tag, f.Path)
		} else {
			fmt.Fprintf(w, "No commands defined in %s\n", f.Path)
		}
		return
	}

	fmt.Fprintln(w, TitleStyle.Render("Available commands")+" "+SubtitleStyle.Render("("+f.Path+")"))
	fmt.Fprintln(w)

	width := 0
	for _, id := range ids {
		width = max(width, lipgloss.Width(string(id)))
	}
	nameStyle := CmdStyle.Width(width + 2)

	aliases := aliasesByTarget(f)
	for _, id := range ids {
		c := f.Commands[id]
		line := "  " + nameStyle.Render(string(id)) + c.Description
		if len(c.Tags) > 0 {
			line += " " + tagStyle.Render("["+strings.Join(c.Tags, ", ")+"]")
		}
		fmt.Fprintln(w, line)

		if !verbose {
			continue
		}
		if names := aliases[id]; len(names) > 0 {
			fmt.Fprintf(w, "      %s %s\n", VerboseStyle.Render("aliases:"), strings.Join(names, ", "))
		}
		if len(c.Deps) > 0 {
			deps := make([]string, len(c.Deps))
			for i, d := range c.Deps {
				deps[i] = string(d)
			}
			fmt.Fprintf(w, "      %s %s\n", VerboseStyle.Render("deps:"), strings.Join(deps, ", "))
		}
		if len(c.Platforms) > 0 {
			platforms := make([]string, len(c.Platforms))
			for i, p := range c.Platforms {
				platforms[i] = p.String()
			}
			fmt.Fprintf(w, "      %s %s\n", VerboseStyle.Render("platforms:"), strings.Join(platforms, ", "))
		}
		if opts := commandOptions(c); len(opts) > 0 {
			fmt.Fprintf(w, "      %s %s\n", VerboseStyle.Render("options:"), strings.Join(opts, ", "))
		}
	}

	if !verbose && len(f.Aliases) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, SubtitleStyle.Render("Aliases:"))
		for _, alias := range slices.Sorted(maps.Keys(f.Aliases)) {
			fmt.Fprintf(w, "  %s → %s\n", alias, CmdStyle.Render(string(f.Aliases[alias])))
		}
	}
}

func aliasesByTarget(f *cmdfile.File) map[cmdfile.CommandID][]string {
	out := make(map[cmdfile.CommandID][]string)
	for _, alias := range slices.Sorted(maps.Keys(f.Aliases)) {
		target := f.Aliases[alias]
		out[target] = append(out[target], alias)
	}
	return out
}

// commandOptions names the boolean options and timeout set on c.
func commandOptions(c *cmdfile.Command) []string {
	var opts []string
	if c.Parallel {
		opts = append(opts, "parallel")
	}
	if c.Confirm {
		opts = append(opts, "confirm")
	}
	if c.AllowChaining {
		opts = append(opts, "allow_chaining")
	}
	if c.AllowSubshells {
		opts = append(opts, "allow_subshells")
	}
	if c.Timeout > 0 {
		opts = append(opts, "timeout="+c.Timeout.String())
	}
	if c.Watch != nil {
		opts = append(opts, "watch")
	}
	return opts
}

// completeCommandNames returns command ids and aliases for shell completion.
// Errors yield no suggestions.
func completeCommandNames(ctx context.Context, app *App, gf *globalFlags) []string {
	s, err := app.loadSession(ctx, gf)
	if err != nil {
		return nil
	}
	var names []string
	for _, id := range s.file.IDs() {
		names = append(names, string(id)+"\t"+s.file.Commands[id].Description)
	}
	for _, alias := range slices.Sorted(maps.Keys(s.file.Aliases)) {
		names = append(names, alias+"\talias of "+string(s.file.Aliases[alias]))
	}
	return names
}
