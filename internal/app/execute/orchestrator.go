// SPDX-License-Identifier: MPL-2.0

package execute

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"

	"github.com/cmdrun/cmdrun/internal/dag"
	"github.com/cmdrun/cmdrun/internal/interpolate"
	"github.com/cmdrun/cmdrun/pkg/cmdfile"
	"github.com/cmdrun/cmdrun/pkg/platform"
	"github.com/cmdrun/cmdrun/pkg/types"
)

type (
	// Config wires an Orchestrator to its collaborators. Only Launcher is
	// required.
	Config struct {
		Launcher Launcher
		// Gate confirms commands marked confirm. Without a gate such
		// commands are cancelled unless RunOptions.Yes is set.
		Gate ConfirmGate
		// Validator vets every expanded line. Nil skips validation.
		Validator Validator
		History   HistorySink
		Reporter  Reporter
		Logger    *log.Logger
		// Platform selects step variants. Zero means platform.Current().
		Platform platform.Platform
		// Env is the global env layer, expanded in order.
		Env   []cmdfile.EnvVar
		Hooks cmdfile.Hooks
		// BaseDir anchors relative working directories, normally the
		// directory of the commands file.
		BaseDir string
		// System is the lowest variable layer. Nil means the process
		// environment.
		System interpolate.Layer
		// Now is the clock used for StartedAt and Duration.
		Now func() time.Time
	}

	// RunOptions are per-run settings.
	RunOptions struct {
		// Parallel runs the members of every execution group concurrently.
		Parallel bool
		// MaxParallel caps concurrent members; zero means no cap.
		MaxParallel int
		// Yes bypasses the confirmation gate.
		Yes bool
		// DryRun expands and validates lines and prints them instead of
		// launching. Hooks do not run.
		DryRun bool
		// Strict makes undefined variables an error.
		Strict bool
		// DefaultTimeout applies to commands without their own timeout and
		// to hooks.
		DefaultTimeout time.Duration
		// WorkingDir is used by commands without their own working_dir.
		WorkingDir string
		Stdin      io.Reader
		Stdout     io.Writer
		Stderr     io.Writer
	}

	// Orchestrator runs execution plans. It runs one plan at a time; a
	// concurrent Run call waits for the current one to finish.
	Orchestrator struct {
		mu     sync.Mutex
		cfg    Config
		logger *log.Logger
	}

	// run is the state of one Run call.
	run struct {
		o        *Orchestrator
		plan     *dag.ExecutionPlan
		commands map[cmdfile.CommandID]*cmdfile.Command
		steps    map[cmdfile.CommandID][]string
		args     []string
		opts     RunOptions
		global   interpolate.MapLayer
		system   interpolate.Layer
		rootEnv  map[string]string
		// confirmMu keeps at most one prompt open across a parallel group.
		confirmMu sync.Mutex
	}

	// outcome is the result of launching one or more lines.
	outcome struct {
		status Status
		code   types.ExitCode
		err    error
	}
)

// New returns an Orchestrator for cfg.
func New(cfg Config) (*Orchestrator, error) {
	if cfg.Launcher == nil {
		return nil, ErrNoLauncher
	}
	if cfg.Platform == "" {
		cfg.Platform = platform.Current()
	}
	if cfg.System == nil {
		cfg.System = interpolate.SystemEnv()
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	logger := cfg.Logger
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &Orchestrator{cfg: cfg, logger: logger}, nil
}

// Run executes plan. Every command's steps are resolved for the current
// platform first, so a NoPlatformMatchError is returned before anything
// runs. Command failures are reported through the results, not the error.
// When ctx ends, running children are killed, no further groups start, and
// the results so far are returned together with ctx.Err().
func (o *Orchestrator) Run(ctx context.Context, plan *dag.ExecutionPlan, commands map[cmdfile.CommandID]*cmdfile.Command, args []string, opts RunOptions) ([]ExecutionResult, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if plan == nil {
		return nil, errors.New("nil execution plan")
	}

	steps := make(map[cmdfile.CommandID][]string, plan.Len())
	for _, id := range plan.IDs() {
		cmd, ok := commands[id]
		if !ok {
			return nil, &dag.UnknownDependencyError{Missing: id}
		}
		lines, err := ResolveSteps(cmd, o.cfg.Platform)
		if err != nil {
			return nil, err
		}
		steps[id] = lines
	}

	global, err := interpolate.ExpandEnv(o.cfg.Env, interpolate.NewContext(args, o.cfg.System), opts.Strict)
	if err != nil {
		return nil, fmt.Errorf("global env: %w", err)
	}

	if opts.DefaultTimeout <= 0 {
		opts.DefaultTimeout = cmdfile.DefaultTimeout
	}
	opts.Stdout = syncWriter(opts.Stdout)
	opts.Stderr = syncWriter(opts.Stderr)

	r := &run{
		o:        o,
		plan:     plan,
		commands: commands,
		steps:    steps,
		args:     args,
		opts:     opts,
		global:   global,
		system:   o.cfg.System,
	}

	o.logger.Debug("running plan", "root", plan.Root, "groups", len(plan.Groups), "parallel", opts.Parallel)
	results := r.execute(ctx)

	if o.cfg.History != nil && !opts.DryRun {
		record := RunRecord{
			Root:       plan.Root,
			Args:       args,
			WorkingDir: r.workDir(commands[plan.Root]),
			Env:        mergeEnv(global, r.rootEnv),
			Results:    results,
		}
		if err := o.cfg.History.Record(context.WithoutCancel(ctx), record); err != nil {
			o.logger.Warn("failed to record history", "error", err)
		}
	}

	if err := ctx.Err(); err != nil {
		return results, err
	}
	return results, nil
}

// syncWriter makes w safe for concurrent steps. Files are handed to
// children unchanged so they inherit the descriptor directly.
func syncWriter(w io.Writer) io.Writer {
	switch w := w.(type) {
	case nil:
		return io.Discard
	case *os.File, *lockedWriter:
		return w
	}
	return &lockedWriter{w: w}
}

func (r *run) execute(ctx context.Context) []ExecutionResult {
	var results []ExecutionResult
	hooks := r.o.cfg.Hooks
	hookDir := r.workDir(nil)
	hookVars := interpolate.NewContext(r.args, r.global, r.system)

	if hooks.PreRun != "" && !r.opts.DryRun {
		res := r.globalHook(ctx, PreRunHookID, "pre_run", hooks.PreRun, hookVars, hookDir)
		if !res.Success() {
			return append(results, res)
		}
	}

	for i, group := range r.plan.Groups {
		if ctx.Err() != nil {
			return results
		}
		r.o.logger.Debug("starting group", "index", i, "members", len(group))
		groupResults := r.runGroup(ctx, group)
		results = append(results, groupResults...)
		for _, res := range groupResults {
			if !res.Success() {
				return results
			}
		}
	}

	if hooks.PostRun != "" && !r.opts.DryRun && ctx.Err() == nil {
		res := r.globalHook(ctx, PostRunHookID, "post_run", hooks.PostRun, hookVars, hookDir)
		if !res.Success() {
			results = append(results, res)
		}
	}
	return results
}

// concurrent reports whether the members of group run at the same time.
func (r *run) concurrent(group dag.ExecutionGroup) bool {
	if len(group) < 2 {
		return false
	}
	if r.opts.Parallel {
		return true
	}
	for _, id := range group {
		if !r.commands[id].Parallel {
			return false
		}
	}
	return true
}

// runGroup runs one execution group. Sequential groups stop at the first
// non-success. Concurrent members are never cancelled by a failing sibling.
func (r *run) runGroup(ctx context.Context, group dag.ExecutionGroup) []ExecutionResult {
	if !r.concurrent(group) {
		out := make([]ExecutionResult, 0, len(group))
		for _, id := range group {
			if ctx.Err() != nil {
				break
			}
			res := r.runCommand(ctx, id)
			out = append(out, res)
			if !res.Success() {
				break
			}
		}
		return out
	}

	out := make([]ExecutionResult, len(group))
	var g errgroup.Group
	if r.opts.MaxParallel > 0 {
		g.SetLimit(r.opts.MaxParallel)
	}
	for i, id := range group {
		g.Go(func() error {
			out[i] = r.runCommand(ctx, id)
			return nil
		})
	}
	_ = g.Wait()
	return out
}

func (r *run) runCommand(ctx context.Context, id cmdfile.CommandID) ExecutionResult {
	cmd := r.commands[id]
	res := ExecutionResult{ID: id, StartedAt: r.o.cfg.Now()}
	logger := r.o.logger.With("command", id)

	if rep := r.o.cfg.Reporter; rep != nil {
		rep.CommandStarted(id)
	}
	finish := func(o outcome) ExecutionResult {
		res.Status, res.ExitCode, res.Err = o.status, o.code, o.err
		res.Duration = r.o.cfg.Now().Sub(res.StartedAt)
		if o.status == StatusSuccess {
			logger.Debug("command finished", "duration", res.Duration)
		} else {
			logger.Info("command did not succeed", "status", o.status, "error", o.err)
		}
		if rep := r.o.cfg.Reporter; rep != nil {
			rep.CommandFinished(res)
		}
		return res
	}

	if err := ctx.Err(); err != nil {
		return finish(outcome{StatusCancelled, types.ExitInterrupted, err})
	}

	env, err := interpolate.ExpandEnv(cmd.Env, interpolate.NewContext(r.args, r.global, r.system), r.opts.Strict)
	if err != nil {
		return finish(outcome{StatusExpansionFailed, types.ExitFailure, err})
	}
	if id == r.plan.Root {
		r.rootEnv = env
	}
	vars := interpolate.NewContext(r.args, env, r.global, r.system)
	launchEnv := mergeEnv(r.global, env)
	dir := r.workDir(cmd)
	hooks := r.o.cfg.Hooks.For(id)

	if hooks.PreRun != "" && !r.opts.DryRun {
		if o := r.hook(ctx, "pre_run", hooks.PreRun, vars, dir, launchEnv); o.status != StatusSuccess {
			return finish(o)
		}
	}

	lines := r.steps[id]
	if cmd.Confirm && !r.opts.Yes && !r.opts.DryRun {
		if o, ok := r.confirm(ctx, id, strings.Join(lines, "\n")); !ok {
			return finish(o)
		}
	}

	expanded := make([]string, len(lines))
	for i, line := range lines {
		x, err := interpolate.Expand(line, vars, r.opts.Strict)
		if err != nil {
			return finish(outcome{StatusExpansionFailed, types.ExitFailure, fmt.Errorf("step %d: %w", i+1, err)})
		}
		expanded[i] = x
	}
	res.CommandLines = expanded

	if v := r.o.cfg.Validator; v != nil {
		for i, line := range expanded {
			if err := v.Validate(line, cmd.AllowChaining, cmd.AllowSubshells); err != nil {
				return finish(outcome{StatusRejectedByPolicy, types.ExitFailure, fmt.Errorf("step %d: %w", i+1, err)})
			}
		}
	}

	if r.opts.DryRun {
		for _, line := range expanded {
			fmt.Fprintf(r.opts.Stdout, "[%s] %s\n", id, line)
		}
		return finish(outcome{status: StatusSuccess})
	}

	timeout := cmd.Timeout
	if timeout <= 0 {
		timeout = r.opts.DefaultTimeout
	}
	if o := r.launchSteps(ctx, expanded, cmd.Parallel, dir, launchEnv, timeout); o.status != StatusSuccess {
		return finish(o)
	}

	if hooks.PostRun != "" {
		if o := r.hook(ctx, "post_run", hooks.PostRun, vars, dir, launchEnv); o.status != StatusSuccess {
			return finish(o)
		}
	}
	return finish(outcome{status: StatusSuccess})
}

// confirm asks the gate. It returns false with the outcome to record when
// the command must not run.
func (r *run) confirm(ctx context.Context, id cmdfile.CommandID, line string) (outcome, bool) {
	gate := r.o.cfg.Gate
	if gate == nil {
		return outcome{status: StatusCancelled}, false
	}
	r.confirmMu.Lock()
	ok, err := gate.Confirm(ctx, id, line)
	r.confirmMu.Unlock()
	switch {
	case ctx.Err() != nil:
		return outcome{StatusCancelled, types.ExitInterrupted, ctx.Err()}, false
	case err != nil:
		return outcome{StatusFailed, types.ExitFailure, fmt.Errorf("confirmation: %w", err)}, false
	case !ok:
		return outcome{status: StatusCancelled}, false
	}
	return outcome{}, true
}

// launchSteps runs lines under one timeout, in order and stopping at the
// first failure, or all at once when parallel is set.
func (r *run) launchSteps(ctx context.Context, lines []string, parallel bool, dir string, env map[string]string, timeout time.Duration) outcome {
	stepCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if !parallel || len(lines) == 1 {
		for _, line := range lines {
			if o := r.launch(ctx, stepCtx, line, dir, env, timeout); o.status != StatusSuccess {
				return o
			}
		}
		return outcome{status: StatusSuccess}
	}

	outs := make([]outcome, len(lines))
	var g errgroup.Group
	for i, line := range lines {
		g.Go(func() error {
			outs[i] = r.launch(ctx, stepCtx, line, dir, env, timeout)
			return nil
		})
	}
	_ = g.Wait()
	return worst(outs)
}

// worst picks the outcome that describes a set of concurrent steps:
// cancellation, then timeout, then the first other failure.
func worst(outs []outcome) outcome {
	for _, want := range []Status{StatusCancelled, StatusTimedOut} {
		for _, o := range outs {
			if o.status == want {
				return o
			}
		}
	}
	for _, o := range outs {
		if o.status != StatusSuccess {
			return o
		}
	}
	return outcome{status: StatusSuccess}
}

// launch runs one line. parent is the run context, stepCtx carries the
// command timeout.
func (r *run) launch(parent, stepCtx context.Context, line, dir string, env map[string]string, timeout time.Duration) outcome {
	code, err := r.o.cfg.Launcher.Launch(stepCtx, LaunchRequest{
		Line:   line,
		Dir:    dir,
		Env:    env,
		Stdin:  r.opts.Stdin,
		Stdout: r.opts.Stdout,
		Stderr: r.opts.Stderr,
	})
	switch {
	case parent.Err() != nil:
		return outcome{StatusCancelled, types.ExitInterrupted, parent.Err()}
	case errors.Is(stepCtx.Err(), context.DeadlineExceeded):
		return outcome{StatusTimedOut, types.ExitTimedOut, &TimeoutError{Line: line, Timeout: timeout}}
	case err != nil:
		return outcome{StatusFailed, code, err}
	case code != types.ExitSuccess:
		return outcome{StatusNonZeroExit, code, &ExitError{Line: line, Code: code}}
	}
	return outcome{status: StatusSuccess}
}

// hook expands and runs a hook line. Hooks are author-written, so the
// validator allows chaining and subshells in them.
func (r *run) hook(ctx context.Context, name, line string, vars *interpolate.Context, dir string, env map[string]string) outcome {
	fail := func(o outcome) outcome {
		if o.status == StatusCancelled {
			return o
		}
		return outcome{StatusHookFailed, o.code, &HookError{Hook: name, Line: line, Err: o.err}}
	}

	expanded, err := interpolate.Expand(line, vars, r.opts.Strict)
	if err != nil {
		return fail(outcome{StatusExpansionFailed, types.ExitFailure, err})
	}
	if v := r.o.cfg.Validator; v != nil {
		if err := v.Validate(expanded, true, true); err != nil {
			return fail(outcome{StatusRejectedByPolicy, types.ExitFailure, err})
		}
	}
	if o := r.launchSteps(ctx, []string{expanded}, false, dir, env, r.opts.DefaultTimeout); o.status != StatusSuccess {
		return fail(o)
	}
	return outcome{status: StatusSuccess}
}

// globalHook runs a plan-level hook and reports it as a synthetic result.
func (r *run) globalHook(ctx context.Context, id cmdfile.CommandID, name, line string, vars *interpolate.Context, dir string) ExecutionResult {
	start := r.o.cfg.Now()
	o := r.hook(ctx, name, line, vars, dir, r.global)
	return ExecutionResult{
		ID:           id,
		Status:       o.status,
		ExitCode:     o.code,
		StartedAt:    start,
		Duration:     r.o.cfg.Now().Sub(start),
		CommandLines: []string{line},
		Err:          o.err,
	}
}

// workDir resolves the directory cmd runs in. cmd may be nil for global
// hooks.
func (r *run) workDir(cmd *cmdfile.Command) string {
	dir := r.opts.WorkingDir
	if cmd != nil && cmd.WorkingDir != "" {
		dir = cmd.WorkingDir
	}
	base := r.o.cfg.BaseDir
	switch {
	case dir == "":
		return base
	case filepath.IsAbs(dir) || base == "":
		return dir
	default:
		return filepath.Join(base, dir)
	}
}
