// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"errors"
	goruntime "runtime"
	"time"

	"github.com/spf13/cobra"

	"github.com/cmdrun/cmdrun/internal/app/execute"
	"github.com/cmdrun/cmdrun/internal/dag"
	"github.com/cmdrun/cmdrun/internal/history"
	"github.com/cmdrun/cmdrun/internal/issue"
	"github.com/cmdrun/cmdrun/internal/runtime"
	"github.com/cmdrun/cmdrun/internal/security"
	"github.com/cmdrun/cmdrun/pkg/cmdfile"
	"github.com/cmdrun/cmdrun/pkg/types"
)

type (
	// runFlags are the execution flags shared by run and watch.
	runFlags struct {
		parallel    bool
		maxParallel int
		yes         bool
		dryRun      bool
		noHistory   bool
		timeout     time.Duration
		shell       string
	}

	// runner executes plans of one commands file.
	runner struct {
		app   *App
		s     *session
		flags runFlags
		orch  *execute.Orchestrator
	}
)

// newRunCommand creates the `cmdrun run` command.
func newRunCommand(app *App, gf *globalFlags) *cobra.Command {
	rf := &runFlags{}

	cmd := &cobra.Command{
		Use:   "run <command> [args...]",
		Short: "Run a command and its dependencies",
		Long: `Run a command from the commands file. Its dependencies run first, in
execution groups; members of a group run concurrently with --parallel.

Arguments after the command name are available as ${1}, ${2}, ... in every
command of the run. Flags for cmdrun must come before the command name.`,
		Example: `  # Run build and everything it depends on
  cmdrun run build

  # Pass arguments to the command
  cmdrun run deploy staging

  # Show what would run without running it
  cmdrun run --dry-run release v1.2.0`,
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
			return app.runCommand(cmd.Context(), gf, *rf, args[0], args[1:])
		},
	}
	cmd.Flags().SetInterspersed(false)
	rf.register(cmd)

	return cmd
}

func (rf *runFlags) register(cmd *cobra.Command) {
	cmd.Flags().BoolVarP(&rf.parallel, "parallel", "p", false, "run the members of every execution group concurrently")
	cmd.Flags().IntVar(&rf.maxParallel, "max-parallel", 0, "cap concurrent commands in a group (0 uses the config value)")
	cmd.Flags().BoolVarP(&rf.yes, "yes", "y", false, "skip confirmation prompts")
	cmd.Flags().BoolVar(&rf.dryRun, "dry-run", false, "print expanded command lines instead of running them")
	cmd.Flags().BoolVar(&rf.noHistory, "no-history", false, "do not record this run in the history")
	cmd.Flags().DurationVar(&rf.timeout, "timeout", 0, "default per-command timeout (e.g. 30s, 5m)")
	cmd.Flags().StringVar(&rf.shell, "shell", "", "shell that runs command lines (bash, sh, zsh, pwsh, powershell, cmd, virtual)")
}

// runCommand resolves name, runs it and maps the outcome to an exit code.
func (a *App) runCommand(ctx context.Context, gf *globalFlags, rf runFlags, name string, args []string) error {
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

	results, err := r.run(ctx, root, args)
	switch {
	case err != nil && ctx.Err() != nil:
		printSummary(a.stderr, root.ID, results)
		return &ExitError{Code: types.ExitInterrupted}
	case err != nil:
		return reportError(a.stderr, err, s.verbose)
	}

	if !rf.dryRun {
		printSummary(a.stderr, root.ID, results)
	}
	if code := execute.ExitCodeFor(results); code != types.ExitSuccess {
		return &ExitError{Code: code}
	}
	return nil
}

// newRunner wires an orchestrator for s: launcher, validator, history and
// console reporter.
func (a *App) newRunner(s *session, rf runFlags) (*runner, error) {
	shell := runtime.Shell(s.settings.Shell)
	if rf.shell != "" {
		shell = runtime.Shell(rf.shell)
	}

	launcher, err := a.Launchers(shell, s.logger)
	if err != nil {
		return nil, issue.NewErrorContext().
			WithOperation("prepare launcher").
			WithResource(shell.String()).
			WithSuggestion("Set 'shell' in the [config] table or pass --shell").
			WithIssue(issue.ShellNotFoundId).
			Wrap(err).
			BuildError()
	}

	env, err := execute.GlobalEnv(s.settings, s.file.Dir())
	if err != nil {
		return nil, issue.NewErrorContext().
			WithOperation("load env files").
			WithResource(s.file.Path).
			WithIssue(issue.CommandsFileParseErrorId).
			Wrap(err).
			BuildError()
	}

	validator := security.NewValidator()
	validator.Strict = shell.IsPOSIX(goruntime.GOOS)

	var sink execute.HistorySink
	if s.cfg.History.Enabled && !rf.noHistory {
		path, err := s.cfg.HistoryPath()
		if err != nil {
			s.logger.Warn("history disabled", "error", err)
		} else {
			sink = history.NewRecorder(history.NewStore(path, s.cfg.History.MaxEntries))
		}
	}

	orch, err := execute.New(execute.Config{
		Launcher:  launcher,
		Gate:      a.Gate,
		Validator: validator,
		History:   sink,
		Reporter:  newConsoleReporter(a.stderr, s.verbose),
		Logger:    s.logger,
		Env:       env,
		Hooks:     s.file.Hooks,
		BaseDir:   s.file.Dir(),
	})
	if err != nil {
		return nil, err
	}
	return &runner{app: a, s: s, flags: rf, orch: orch}, nil
}

// run builds the plan of root and executes it.
func (r *runner) run(ctx context.Context, root *cmdfile.Command, args []string) ([]execute.ExecutionResult, error) {
	plan, err := dag.BuildPlan(r.s.file.Commands, root.ID)
	if err != nil {
		return nil, planError(err, root.ID)
	}

	results, err := r.orch.Run(ctx, plan, r.s.file.Commands, args, r.options())
	if err != nil && ctx.Err() == nil {
		var noMatch *execute.NoPlatformMatchError
		if errors.As(err, &noMatch) {
			return results, issue.NewErrorContext().
				WithOperation("select steps").
				WithResource(string(root.ID)).
				WithSuggestion("Add a variant for this platform or a 'unix' fallback to the cmd table").
				WithIssue(issue.PlatformNotSupportedId).
				Wrap(err).
				BuildError()
		}
		return results, issue.NewErrorContext().
			WithOperation("run").
			WithResource(string(root.ID)).
			WithIssue(validationIssue(err)).
			Wrap(err).
			BuildError()
	}
	return results, err
}

// options merges command-line flags over the session settings.
func (r *runner) options() execute.RunOptions {
	maxParallel := r.s.cfg.MaxParallel
	if r.flags.maxParallel > 0 {
		maxParallel = r.flags.maxParallel
	}
	timeout := r.s.settings.Timeout
	if r.flags.timeout > 0 {
		timeout = r.flags.timeout
	}

	return execute.RunOptions{
		Parallel:       r.flags.parallel || r.s.settings.Parallel,
		MaxParallel:    maxParallel,
		Yes:            r.flags.yes,
		DryRun:         r.flags.dryRun,
		Strict:         r.s.settings.StrictMode,
		DefaultTimeout: timeout,
		WorkingDir:     r.s.settings.WorkingDir,
		Stdin:          r.app.stdin,
		Stdout:         r.app.stdout,
		Stderr:         r.app.stderr,
	}
}

// planError attaches a guide to a dependency graph error.
func planError(err error, root cmdfile.CommandID) error {
	ec := issue.NewErrorContext().
		WithOperation("build execution plan").
		WithResource(string(root)).
		WithIssue(validationIssue(err))
	if errors.Is(err, dag.ErrCycleDetected) {
		ec = ec.WithSuggestion("Remove one of the deps entries that close the cycle")
	}
	return ec.Wrap(err).BuildError()
}

// unknownCommand attaches suggestions to a failed lookup.
func unknownCommand(err error, name string) error {
	ec := issue.NewErrorContext().
		WithOperation("find command").
		WithResource(name).
		WithIssue(issue.CommandNotFoundId)
	var uce *cmdfile.UnknownCommandError
	if errors.As(err, &uce) {
		for _, s := range uce.Suggestions {
			ec = ec.WithSuggestion("Did you mean '" + string(s) + "'?")
		}
	}
	return ec.WithSuggestion("Run 'cmdrun list' to see available commands").Wrap(err).BuildError()
}
