// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/cmdrun/cmdrun/internal/watch"
	"github.com/cmdrun/cmdrun/pkg/cmdfile"
)

// watchFlags are the flags of `cmdrun watch` on top of the run flags.
type watchFlags struct {
	patterns []string
	ignore   []string
	debounce time.Duration
	clear    bool
}

// newWatchCommand creates the `cmdrun watch` command.
func newWatchCommand(app *App, gf *globalFlags) *cobra.Command {
	rf := &runFlags{}
	wf := &watchFlags{}

	cmd := &cobra.Command{
		Use:   "watch <command> [args...]",
		Short: "Re-run a command when files change",
		Long: `Run a command, then run it again whenever a watched file changes.

Patterns come from the command's [commands.<id>.watch] table and from
--pattern; without any pattern every file below the working directory is
watched. Version control, dependency and build directories are always
ignored. Runs never overlap: changes seen during a run start exactly one
more run once it finishes.`,
		Example: `  cmdrun watch test
  cmdrun watch --pattern '**/*.go' --debounce 1s build`,
		Args: cobra.MinimumNArgs(1),
		ValidArgsFunction: func(cmd *cobra.Command, args []string, _ string) ([]string, cobra.ShellCompDirective) {
			if len(args) > 0 {
				return nil, cobra.ShellCompDirectiveDefault
			}
			return completeCommandNames(cmd.Context(), app, gf), cobra.ShellCompDirectiveNoFileComp
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.SilenceErrors = true
			cmd.SilenceUsage = true
			return app.watchCommand(cmd.Context(), gf, *rf, *wf, args[0], args[1:])
		},
	}
	cmd.Flags().SetInterspersed(false)
	rf.register(cmd)
	cmd.Flags().StringSliceVar(&wf.patterns, "pattern", nil, "glob of files that trigger a run (repeatable)")
	cmd.Flags().StringSliceVar(&wf.ignore, "ignore", nil, "glob of files to ignore (repeatable)")
	cmd.Flags().DurationVar(&wf.debounce, "debounce", 0, "quiet period before re-running (default 500ms)")
	cmd.Flags().BoolVar(&wf.clear, "clear", false, "clear the screen before each run")

	return cmd
}

// watchCommand runs name once and then on every debounced change until ctx
// ends.
func (a *App) watchCommand(ctx context.Context, gf *globalFlags, rf runFlags, wf watchFlags, name string, args []string) error {
	s, err := a.loadSession(ctx, gf)
	if err != nil {
		return reportError(a.stderr, err, gf.verbose)
	}
	root, err := s.file.Resolve(name)
	if err != nil {
		return reportError(a.stderr, unknownCommand(err, name), s.verbose)
	}
	r, err := a.newRunner(s, rf)
	if err != nil {
		return reportError(a.stderr, err, s.verbose)
	}

	cfg := watch.ConfigFor(root, watchDir(s, root), wf.patterns, wf.ignore, wf.debounce)
	cfg.ClearScreen = cfg.ClearScreen || wf.clear
	cfg.RunOnStart = true
	cfg.Stdout = a.stdout
	cfg.Logger = s.logger.WithPrefix("watch")
	cfg.OnChange = func(ctx context.Context, changed []string) error {
		if len(changed) > 0 {
			fmt.Fprintln(a.stderr, SubtitleStyle.Render("changed: "+strings.Join(changed, ", ")))
		}
		results, err := r.run(ctx, root, args)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
		printSummary(a.stderr, root.ID, results)
		return nil
	}

	w, err := watch.New(cfg)
	if err != nil {
		return reportError(a.stderr, err, s.verbose)
	}

	what := "all files"
	if len(cfg.Patterns) > 0 {
		what = strings.Join(cfg.Patterns, ", ")
	}
	fmt.Fprintf(a.stderr, "%s %s in %s (%s). Press Ctrl+C to stop.\n",
		TitleStyle.Render("Watching"), what, cfg.BaseDir, CmdStyle.Render(string(root.ID)))

	if err := w.Run(ctx); err != nil {
		return reportError(a.stderr, err, s.verbose)
	}
	return nil
}

// watchDir is the directory watched for root: its working_dir, else the
// [config] working_dir, else the directory of the commands file.
func watchDir(s *session, root *cmdfile.Command) string {
	base := s.file.Dir()
	dir := s.settings.WorkingDir
	if root.WorkingDir != "" {
		dir = root.WorkingDir
	}
	switch {
	case dir == "":
		return base
	case filepath.IsAbs(dir):
		return dir
	default:
		return filepath.Join(base, dir)
	}
}
