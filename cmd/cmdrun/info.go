// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"
	"io"
	"maps"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"github.com/cmdrun/cmdrun/internal/app/execute"
	"github.com/cmdrun/cmdrun/internal/dag"
	"github.com/cmdrun/cmdrun/internal/security"
	"github.com/cmdrun/cmdrun/pkg/cmdfile"
	"github.com/cmdrun/cmdrun/pkg/platform"
)

// newInfoCommand creates the `cmdrun info` command.
func newInfoCommand(app *App, gf *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "info <command>",
		Short: "Show everything about one command",
		Long: `Show the declaration of one command: its steps per platform, the line
selected for this platform, dependencies and execution plan, env, hooks
and options. Secret-looking env values are masked.`,
		Args: cobra.ExactArgs(1),
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
			c, err := s.file.Resolve(args[0])
			if err != nil {
				return reportError(app.stderr, unknownCommand(err, args[0]), s.verbose)
			}
			renderInfo(app.stdout, s.file, c, platform.Current())
			return nil
		},
	}
}

// renderInfo writes the details of c as seen on platform p.
func renderInfo(w io.Writer, f *cmdfile.File, c *cmdfile.Command, p platform.Platform) {
	field := func(name, value string) {
		fmt.Fprintf(w, "  %s %s\n", VerboseStyle.Render(name+":"), value)
	}

	fmt.Fprintln(w, TitleStyle.Render(string(c.ID)))
	if c.Description != "" {
		fmt.Fprintln(w, SubtitleStyle.Render(c.Description))
	}
	fmt.Fprintln(w)

	if names := aliasesByTarget(f)[c.ID]; len(names) > 0 {
		field("aliases", strings.Join(names, ", "))
	}
	if len(c.Tags) > 0 {
		field("tags", strings.Join(c.Tags, ", "))
	}

	fmt.Fprintln(w, "  "+VerboseStyle.Render("steps:"))
	if ps, ok := c.Spec.(cmdfile.PlatformSteps); ok {
		for _, k := range slices.Sorted(maps.Keys(ps)) {
			fmt.Fprintf(w, "    %s %s\n", CmdStyle.Render(k.String()+":"), ps[k])
		}
	} else {
		for _, line := range c.Spec.Lines() {
			fmt.Fprintf(w, "    %s %s\n", VerboseStyle.Render("$"), line)
		}
	}
	if lines, err := execute.ResolveSteps(c, p); err != nil {
		field("on "+p.String(), WarningStyle.Render(err.Error()))
	} else if _, ok := c.Spec.(cmdfile.PlatformSteps); ok {
		field("on "+p.String(), strings.Join(lines, "; "))
	}

	if len(c.Deps) > 0 {
		deps := make([]string, len(c.Deps))
		for i, d := range c.Deps {
			deps[i] = string(d)
		}
		field("deps", strings.Join(deps, ", "))
	}
	if plan, err := dag.BuildPlan(f.Commands, c.ID); err != nil {
		field("plan", ErrorStyle.Render(err.Error()))
	} else if plan.Len() > 1 {
		groups := make([]string, len(plan.Groups))
		for i, g := range plan.Groups {
			ids := make([]string, len(g))
			for j, id := range g {
				ids[j] = string(id)
			}
			groups[i] = strings.Join(ids, " + ")
		}
		field("plan", strings.Join(groups, " → "))
	}

	if len(c.Platforms) > 0 {
		platforms := make([]string, len(c.Platforms))
		for i, r := range c.Platforms {
			platforms[i] = r.String()
		}
		field("platforms", strings.Join(platforms, ", "))
	}
	if c.WorkingDir != "" {
		field("working_dir", c.WorkingDir)
	}
	if opts := commandOptions(c); len(opts) > 0 {
		field("options", strings.Join(opts, ", "))
	}

	if hooks, ok := f.Hooks.Commands[c.ID]; ok {
		if hooks.PreRun != "" {
			field("pre_run", hooks.PreRun)
		}
		if hooks.PostRun != "" {
			field("post_run", hooks.PostRun)
		}
	}

	if len(c.Env) > 0 {
		env := security.MaskEnv(cmdfile.EnvMap(c.Env))
		fmt.Fprintln(w, "  "+VerboseStyle.Render("env:"))
		for _, name := range slices.Sorted(maps.Keys(env)) {
			fmt.Fprintf(w, "    %s=%s\n", name, env[name])
		}
	}
}
