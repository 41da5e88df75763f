// SPDX-License-Identifier: MPL-2.0

package execute

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"slices"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/cmdrun/cmdrun/internal/dag"
	"github.com/cmdrun/cmdrun/internal/interpolate"
	"github.com/cmdrun/cmdrun/internal/security"
	"github.com/cmdrun/cmdrun/internal/testutil"
	"github.com/cmdrun/cmdrun/pkg/cmdfile"
	"github.com/cmdrun/cmdrun/pkg/platform"
	"github.com/cmdrun/cmdrun/pkg/types"
)

type (
	launchFunc func(ctx context.Context) (types.ExitCode, error)

	fakeLauncher struct {
		mu       sync.Mutex
		funcs    map[string]launchFunc
		launched []LaunchRequest
		started  chan string
	}

	fakeGate struct {
		mu     sync.Mutex
		answer map[cmdfile.CommandID]bool
		asked  []cmdfile.CommandID
	}

	fakeSink struct {
		records []RunRecord
	}
)

func (f *fakeLauncher) Launch(ctx context.Context, req LaunchRequest) (types.ExitCode, error) {
	f.mu.Lock()
	f.launched = append(f.launched, req)
	fn := f.funcs[req.Line]
	f.mu.Unlock()

	if f.started != nil {
		select {
		case f.started <- req.Line:
		default:
		}
	}
	if fn == nil {
		return types.ExitSuccess, nil
	}
	return fn(ctx)
}

func (f *fakeLauncher) lines() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, 0, len(f.launched))
	for _, req := range f.launched {
		out = append(out, req.Line)
	}
	return out
}

func (g *fakeGate) Confirm(_ context.Context, id cmdfile.CommandID, _ string) (bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.asked = append(g.asked, id)
	return g.answer[id], nil
}

func (s *fakeSink) Record(_ context.Context, run RunRecord) error {
	s.records = append(s.records, run)
	return nil
}

func exitWith(code types.ExitCode) launchFunc {
	return func(context.Context) (types.ExitCode, error) { return code, nil }
}

func blockUntilDone(ctx context.Context) (types.ExitCode, error) {
	<-ctx.Done()
	return types.ExitFailure, ctx.Err()
}

func afterDelay(d time.Duration, code types.ExitCode) launchFunc {
	return func(ctx context.Context) (types.ExitCode, error) {
		select {
		case <-time.After(d):
			return code, nil
		case <-ctx.Done():
			return types.ExitFailure, ctx.Err()
		}
	}
}

func command(id, line string, deps ...string) *cmdfile.Command {
	cmd := &cmdfile.Command{ID: cmdfile.CommandID(id), Spec: cmdfile.SingleStep(line)}
	for _, d := range deps {
		cmd.Deps = append(cmd.Deps, cmdfile.CommandID(d))
	}
	return cmd
}

func commandSet(cmds ...*cmdfile.Command) map[cmdfile.CommandID]*cmdfile.Command {
	m := make(map[cmdfile.CommandID]*cmdfile.Command, len(cmds))
	for _, c := range cmds {
		m[c.ID] = c
	}
	return m
}

func newTestOrchestrator(t *testing.T, l *fakeLauncher, mutate func(*Config)) *Orchestrator {
	t.Helper()
	cfg := Config{
		Launcher: l,
		Platform: platform.PlatformLinux,
		System:   interpolate.MapLayer{"HOME": "/home/test"},
	}
	if mutate != nil {
		mutate(&cfg)
	}
	o, err := New(cfg)
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	return o
}

func runRoot(t *testing.T, ctx context.Context, o *Orchestrator, cmds map[cmdfile.CommandID]*cmdfile.Command, root string, args []string, opts RunOptions) ([]ExecutionResult, error) {
	t.Helper()
	plan, err := dag.BuildPlan(cmds, cmdfile.CommandID(root))
	if err != nil {
		t.Fatalf("BuildPlan() error: %v", err)
	}
	return o.Run(ctx, plan, cmds, args, opts)
}

func statuses(results []ExecutionResult) map[cmdfile.CommandID]Status {
	m := make(map[cmdfile.CommandID]Status, len(results))
	for _, r := range results {
		m[r.ID] = r.Status
	}
	return m
}

func TestNew_RequiresLauncher(t *testing.T) {
	t.Parallel()

	if _, err := New(Config{}); !errors.Is(err, ErrNoLauncher) {
		t.Fatalf("expected ErrNoLauncher, got %v", err)
	}
}

func TestRun_DependencyOrder(t *testing.T) {
	t.Parallel()

	l := &fakeLauncher{}
	o := newTestOrchestrator(t, l, nil)
	cmds := commandSet(
		command("deploy", "deploy", "build"),
		command("build", "build", "fmt"),
		command("fmt", "fmt"),
		command("unrelated", "unrelated"),
	)

	results, err := runRoot(t, context.Background(), o, cmds, "deploy", nil, RunOptions{})
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	if got := l.lines(); !slices.Equal(got, []string{"fmt", "build", "deploy"}) {
		t.Errorf("launch order = %v", got)
	}
	if len(results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(results))
	}
	for _, r := range results {
		if !r.Success() || r.ExitCode != 0 {
			t.Errorf("%s: status %s, code %d", r.ID, r.Status, r.ExitCode)
		}
	}
	if Failed(results) {
		t.Error("Failed() should be false")
	}
}

func TestRun_PartialFailureIsolation(t *testing.T) {
	t.Parallel()

	l := &fakeLauncher{funcs: map[string]launchFunc{
		"a": afterDelay(50*time.Millisecond, 0),
		"b": exitWith(1),
	}}
	o := newTestOrchestrator(t, l, nil)
	cmds := commandSet(
		command("a", "a"),
		command("b", "b"),
		command("root", "root", "a", "b"),
	)

	results, err := runRoot(t, context.Background(), o, cmds, "root", nil, RunOptions{Parallel: true})
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}

	got := statuses(results)
	if len(results) != 2 || got["a"] != StatusSuccess || got["b"] != StatusNonZeroExit {
		t.Fatalf("unexpected results %v", got)
	}
	if slices.Contains(l.lines(), "root") {
		t.Error("next group must not start after a failure")
	}
	if code := ExitCodeFor(results); code != 1 {
		t.Errorf("ExitCodeFor() = %d, want 1", code)
	}
}

func TestRun_ParallelGroupMembersOverlap(t *testing.T) {
	t.Parallel()

	var barrier sync.WaitGroup
	barrier.Add(2)
	meet := func(ctx context.Context) (types.ExitCode, error) {
		barrier.Done()
		done := make(chan struct{})
		go func() { barrier.Wait(); close(done) }()
		select {
		case <-done:
			return 0, nil
		case <-ctx.Done():
			return types.ExitFailure, ctx.Err()
		}
	}
	l := &fakeLauncher{funcs: map[string]launchFunc{"a": meet, "b": meet}}
	o := newTestOrchestrator(t, l, nil)

	a, b := command("a", "a"), command("b", "b")
	a.Parallel, b.Parallel = true, true
	cmds := commandSet(a, b, command("root", "root", "a", "b"))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	// Both members declare parallel, so the run does not need to.
	results, err := runRoot(t, ctx, o, cmds, "root", nil, RunOptions{})
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	for _, r := range results {
		if !r.Success() {
			t.Errorf("%s: %s (%v)", r.ID, r.Status, r.Err)
		}
	}
}

func TestRun_SequentialGroupStopsAtFirstFailure(t *testing.T) {
	t.Parallel()

	l := &fakeLauncher{funcs: map[string]launchFunc{"a": exitWith(3)}}
	o := newTestOrchestrator(t, l, nil)
	cmds := commandSet(
		command("a", "a"),
		command("b", "b"),
		command("root", "root", "a", "b"),
	)

	results, err := runRoot(t, context.Background(), o, cmds, "root", nil, RunOptions{})
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	if got := l.lines(); !slices.Equal(got, []string{"a"}) {
		t.Errorf("launched %v, want only a", got)
	}
	if len(results) != 1 || results[0].Status != StatusNonZeroExit || results[0].ExitCode != 3 {
		t.Fatalf("unexpected results %+v", results)
	}
	var exitErr *ExitError
	if !errors.As(results[0].Err, &exitErr) || exitErr.Code != 3 {
		t.Errorf("expected ExitError, got %v", results[0].Err)
	}
	if code := ExitCodeFor(results); code != 3 {
		t.Errorf("ExitCodeFor() = %d, want 3", code)
	}
}

func TestRun_Confirmation(t *testing.T) {
	t.Parallel()

	newCmds := func() map[cmdfile.CommandID]*cmdfile.Command {
		danger := command("danger", "rm -rf build")
		danger.Confirm = true
		return commandSet(danger, command("root", "root", "danger"))
	}

	t.Run("declined", func(t *testing.T) {
		t.Parallel()
		l := &fakeLauncher{}
		gate := &fakeGate{answer: map[cmdfile.CommandID]bool{"danger": false}}
		o := newTestOrchestrator(t, l, func(c *Config) { c.Gate = gate })

		results, err := runRoot(t, context.Background(), o, newCmds(), "root", nil, RunOptions{})
		if err != nil {
			t.Fatalf("declined confirmation is not an error: %v", err)
		}
		if len(results) != 1 || results[0].Status != StatusCancelled || results[0].Err != nil {
			t.Fatalf("unexpected results %+v", results)
		}
		if len(l.lines()) != 0 {
			t.Errorf("nothing should launch, got %v", l.lines())
		}
		if Failed(results) || ExitCodeFor(results) != 0 {
			t.Error("cancellation is not a failure")
		}
	})

	t.Run("accepted", func(t *testing.T) {
		t.Parallel()
		l := &fakeLauncher{}
		gate := &fakeGate{answer: map[cmdfile.CommandID]bool{"danger": true}}
		o := newTestOrchestrator(t, l, func(c *Config) { c.Gate = gate })

		if _, err := runRoot(t, context.Background(), o, newCmds(), "root", nil, RunOptions{}); err != nil {
			t.Fatal(err)
		}
		if !slices.Equal(gate.asked, []cmdfile.CommandID{"danger"}) {
			t.Errorf("asked %v", gate.asked)
		}
		if got := l.lines(); !slices.Equal(got, []string{"rm -rf build", "root"}) {
			t.Errorf("launched %v", got)
		}
	})

	t.Run("yes bypasses gate", func(t *testing.T) {
		t.Parallel()
		l := &fakeLauncher{}
		gate := &fakeGate{}
		o := newTestOrchestrator(t, l, func(c *Config) { c.Gate = gate })

		if _, err := runRoot(t, context.Background(), o, newCmds(), "root", nil, RunOptions{Yes: true}); err != nil {
			t.Fatal(err)
		}
		if len(gate.asked) != 0 {
			t.Errorf("gate should not be asked, asked %v", gate.asked)
		}
		if len(l.lines()) != 2 {
			t.Errorf("launched %v", l.lines())
		}
	})

	t.Run("no gate denies", func(t *testing.T) {
		t.Parallel()
		l := &fakeLauncher{}
		o := newTestOrchestrator(t, l, nil)

		results, err := runRoot(t, context.Background(), o, newCmds(), "root", nil, RunOptions{})
		if err != nil {
			t.Fatal(err)
		}
		if results[0].Status != StatusCancelled {
			t.Errorf("status = %s, want cancelled", results[0].Status)
		}
	})
}

// lineGate answers from a shared line reader and records how many prompts
// were open at the same time.
type lineGate struct {
	in         *bufio.Reader
	pending    atomic.Int32
	maxPending atomic.Int32
}

func (g *lineGate) Confirm(_ context.Context, _ cmdfile.CommandID, _ string) (bool, error) {
	n := g.pending.Add(1)
	defer g.pending.Add(-1)
	for {
		cur := g.maxPending.Load()
		if n <= cur || g.maxPending.CompareAndSwap(cur, n) {
			break
		}
	}
	answer, err := g.in.ReadString('\n')
	if err != nil {
		return false, err
	}
	return strings.TrimSpace(answer) == "y", nil
}

func TestRun_ParallelConfirmationsAreSerialized(t *testing.T) {
	t.Parallel()

	pr, pw := io.Pipe()
	t.Cleanup(func() { _ = pr.Close() })
	gate := &lineGate{in: bufio.NewReader(pr)}

	l := &fakeLauncher{}
	o := newTestOrchestrator(t, l, func(c *Config) { c.Gate = gate })
	a, b := command("a", "a"), command("b", "b")
	a.Confirm, b.Confirm = true, true
	cmds := commandSet(a, b, command("root", "root", "a", "b"))

	go func() {
		for range 2 {
			// Leave time for a second prompt to open if calls overlap.
			time.Sleep(20 * time.Millisecond)
			if _, err := io.WriteString(pw, "y\n"); err != nil {
				return
			}
		}
	}()

	results, err := runRoot(t, context.Background(), o, cmds, "root", nil, RunOptions{Parallel: true})
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	if got := gate.maxPending.Load(); got != 1 {
		t.Errorf("%d prompts were open at once", got)
	}
	for id, st := range statuses(results) {
		if st != StatusSuccess {
			t.Errorf("%s: status %s", id, st)
		}
	}
}

func TestRun_FileOutputsPassedThrough(t *testing.T) {
	t.Parallel()

	l := &fakeLauncher{}
	o := newTestOrchestrator(t, l, nil)

	if _, err := runRoot(t, context.Background(), o, commandSet(command("a", "a")), "a", nil,
		RunOptions{Stdout: os.Stdout, Stderr: os.Stderr}); err != nil {
		t.Fatal(err)
	}
	req := l.launched[0]
	if req.Stdout != io.Writer(os.Stdout) || req.Stderr != io.Writer(os.Stderr) {
		t.Errorf("files should reach the launcher unwrapped, got %T and %T", req.Stdout, req.Stderr)
	}

	var buf bytes.Buffer
	if _, err := runRoot(t, context.Background(), o, commandSet(command("a", "a")), "a", nil,
		RunOptions{Stdout: &buf}); err != nil {
		t.Fatal(err)
	}
	if _, ok := l.launched[1].Stdout.(*lockedWriter); !ok {
		t.Errorf("buffers are shared by concurrent steps and need locking, got %T", l.launched[1].Stdout)
	}
}

func TestRun_Hooks(t *testing.T) {
	t.Parallel()

	hooks := cmdfile.Hooks{
		PreRun:  "global-pre",
		PostRun: "global-post",
		Commands: map[cmdfile.CommandID]cmdfile.CommandHooks{
			"a": {PreRun: "pre-a ${HOME}", PostRun: "post-a"},
		},
	}

	tests := []struct {
		name         string
		funcs        map[string]launchFunc
		wantLaunched []string
		wantStatus   map[cmdfile.CommandID]Status
	}{
		{
			name:         "all succeed",
			wantLaunched: []string{"global-pre", "pre-a /home/test", "a", "post-a", "global-post"},
			wantStatus:   map[cmdfile.CommandID]Status{"a": StatusSuccess},
		},
		{
			name:         "command fails",
			funcs:        map[string]launchFunc{"a": exitWith(2)},
			wantLaunched: []string{"global-pre", "pre-a /home/test", "a"},
			wantStatus:   map[cmdfile.CommandID]Status{"a": StatusNonZeroExit},
		},
		{
			name:         "command pre-hook fails",
			funcs:        map[string]launchFunc{"pre-a /home/test": exitWith(1)},
			wantLaunched: []string{"global-pre", "pre-a /home/test"},
			wantStatus:   map[cmdfile.CommandID]Status{"a": StatusHookFailed},
		},
		{
			name:         "command post-hook fails",
			funcs:        map[string]launchFunc{"post-a": exitWith(1)},
			wantLaunched: []string{"global-pre", "pre-a /home/test", "a", "post-a"},
			wantStatus:   map[cmdfile.CommandID]Status{"a": StatusHookFailed},
		},
		{
			name:         "global pre-hook fails",
			funcs:        map[string]launchFunc{"global-pre": exitWith(1)},
			wantLaunched: []string{"global-pre"},
			wantStatus:   map[cmdfile.CommandID]Status{PreRunHookID: StatusHookFailed},
		},
		{
			name:         "global post-hook fails",
			funcs:        map[string]launchFunc{"global-post": exitWith(1)},
			wantLaunched: []string{"global-pre", "pre-a /home/test", "a", "post-a", "global-post"},
			wantStatus:   map[cmdfile.CommandID]Status{"a": StatusSuccess, PostRunHookID: StatusHookFailed},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			l := &fakeLauncher{funcs: tt.funcs}
			o := newTestOrchestrator(t, l, func(c *Config) { c.Hooks = hooks })

			results, err := runRoot(t, context.Background(), o, commandSet(command("a", "a")), "a", nil, RunOptions{})
			if err != nil {
				t.Fatalf("Run() error: %v", err)
			}
			if got := l.lines(); !slices.Equal(got, tt.wantLaunched) {
				t.Errorf("launched %v, want %v", got, tt.wantLaunched)
			}
			got := statuses(results)
			if len(got) != len(tt.wantStatus) {
				t.Fatalf("results %v, want %v", got, tt.wantStatus)
			}
			for id, want := range tt.wantStatus {
				if got[id] != want {
					t.Errorf("%s: status %s, want %s", id, got[id], want)
				}
			}
			for _, r := range results {
				if r.Status == StatusHookFailed && !errors.Is(r.Err, ErrHookFailed) {
					t.Errorf("%s: expected ErrHookFailed, got %v", r.ID, r.Err)
				}
			}
		})
	}
}

func TestRun_Timeout(t *testing.T) {
	t.Parallel()

	l := &fakeLauncher{funcs: map[string]launchFunc{"slow": blockUntilDone}}
	o := newTestOrchestrator(t, l, nil)
	slow := command("slow", "slow")
	slow.Timeout = 20 * time.Millisecond
	cmds := commandSet(slow, command("root", "root", "slow"))

	results, err := runRoot(t, context.Background(), o, cmds, "root", nil, RunOptions{})
	if err != nil {
		t.Fatalf("a timeout is not a run error: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("expected one result, got %+v", results)
	}
	r := results[0]
	if r.Status != StatusTimedOut || r.ExitCode != types.ExitTimedOut || !errors.Is(r.Err, ErrTimedOut) {
		t.Errorf("unexpected result %+v", r)
	}
	if ExitCodeFor(results) != types.ExitTimedOut {
		t.Errorf("ExitCodeFor() = %d, want 124", ExitCodeFor(results))
	}
}

func TestRun_DefaultTimeout(t *testing.T) {
	t.Parallel()

	l := &fakeLauncher{funcs: map[string]launchFunc{"slow": blockUntilDone}}
	o := newTestOrchestrator(t, l, nil)

	results, err := runRoot(t, context.Background(), o, commandSet(command("slow", "slow")), "slow", nil,
		RunOptions{DefaultTimeout: 20 * time.Millisecond})
	if err != nil {
		t.Fatal(err)
	}
	if results[0].Status != StatusTimedOut {
		t.Errorf("status = %s, want timed_out", results[0].Status)
	}
}

func TestRun_ExternalCancellation(t *testing.T) {
	t.Parallel()

	l := &fakeLauncher{
		funcs:   map[string]launchFunc{"long": blockUntilDone},
		started: make(chan string, 1),
	}
	sink := &fakeSink{}
	o := newTestOrchestrator(t, l, func(c *Config) { c.History = sink })
	cmds := commandSet(command("long", "long"), command("root", "root", "long"))

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		<-l.started
		cancel()
	}()

	results, err := runRoot(t, ctx, o, cmds, "root", nil, RunOptions{})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if len(results) != 1 || results[0].Status != StatusCancelled {
		t.Fatalf("unexpected results %+v", results)
	}
	if slices.Contains(l.lines(), "root") {
		t.Error("no group may start after cancellation")
	}
	if len(sink.records) != 1 || len(sink.records[0].Results) != 1 {
		t.Errorf("partial run should be recorded, got %+v", sink.records)
	}
}

func TestRun_NoPlatformMatchIsStructural(t *testing.T) {
	t.Parallel()

	l := &fakeLauncher{}
	o := newTestOrchestrator(t, l, nil)
	win := &cmdfile.Command{ID: "win", Spec: cmdfile.PlatformSteps{platform.PlatformWindows: "dir"}}
	cmds := commandSet(command("first", "first"), win, command("root", "root", "first", "win"))

	results, err := runRoot(t, context.Background(), o, cmds, "root", nil, RunOptions{})
	if !errors.Is(err, ErrNoPlatformMatch) {
		t.Fatalf("expected ErrNoPlatformMatch, got %v", err)
	}
	if results != nil || len(l.lines()) != 0 {
		t.Errorf("nothing may run: results %v, launched %v", results, l.lines())
	}
}

func TestRun_Expansion(t *testing.T) {
	t.Parallel()

	l := &fakeLauncher{}
	o := newTestOrchestrator(t, l, func(c *Config) {
		c.Env = []cmdfile.EnvVar{{Name: "GREETING", Value: "hi"}, {Name: "TARGET", Value: "global"}}
	})

	cp := command("cp", "cp ${1} ${2:-out.txt} # ${NAME} ${TARGET} ${HOME}")
	cp.Env = []cmdfile.EnvVar{{Name: "NAME", Value: "${GREETING}-x"}, {Name: "TARGET", Value: "local"}}

	results, err := runRoot(t, context.Background(), o, commandSet(cp), "cp", []string{"in.txt"}, RunOptions{Strict: true})
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}

	want := "cp in.txt out.txt # hi-x local /home/test"
	if got := l.lines(); !slices.Equal(got, []string{want}) {
		t.Errorf("launched %v, want %q", got, want)
	}
	if !slices.Equal(results[0].CommandLines, []string{want}) {
		t.Errorf("CommandLines = %v", results[0].CommandLines)
	}

	env := l.launched[0].Env
	if env["NAME"] != "hi-x" || env["GREETING"] != "hi" || env["TARGET"] != "local" {
		t.Errorf("launch env = %v", env)
	}
	if _, ok := env["HOME"]; ok {
		t.Error("system variables are inherited by the launcher, not copied")
	}
}

func TestRun_ExpansionFailure(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		line    string
		strict  bool
		wantErr error
	}{
		{"strict undefined", "echo ${MISSING}", true, interpolate.ErrUndefinedVariable},
		{"required", "echo ${REQ:?must set REQ}", false, interpolate.ErrRequiredVariableMissing},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			l := &fakeLauncher{}
			o := newTestOrchestrator(t, l, nil)
			cmds := commandSet(command("a", tt.line), command("root", "root", "a"))

			results, err := runRoot(t, context.Background(), o, cmds, "root", nil, RunOptions{Strict: tt.strict})
			if err != nil {
				t.Fatal(err)
			}
			if len(results) != 1 || results[0].Status != StatusExpansionFailed || !errors.Is(results[0].Err, tt.wantErr) {
				t.Fatalf("unexpected results %+v", results)
			}
			if len(l.lines()) != 0 {
				t.Errorf("nothing should launch, got %v", l.lines())
			}
		})
	}

	t.Run("non-strict undefined is empty", func(t *testing.T) {
		t.Parallel()
		l := &fakeLauncher{}
		o := newTestOrchestrator(t, l, nil)
		if _, err := runRoot(t, context.Background(), o, commandSet(command("a", "echo [${MISSING}]")), "a", nil, RunOptions{}); err != nil {
			t.Fatal(err)
		}
		if got := l.lines(); !slices.Equal(got, []string{"echo []"}) {
			t.Errorf("launched %v", got)
		}
	})
}

func TestRun_Validator(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		line       string
		chaining   bool
		subshells  bool
		wantStatus Status
	}{
		{"plain", "go build ./...", false, false, StatusSuccess},
		{"chaining rejected", "make && make install", false, false, StatusRejectedByPolicy},
		{"chaining allowed", "make && make install", true, false, StatusSuccess},
		{"subshell rejected", "echo $(date)", true, false, StatusRejectedByPolicy},
		{"subshell allowed", "echo $(date)", false, true, StatusSuccess},
		{"injected value rejected", "echo ${1}", false, false, StatusRejectedByPolicy},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			l := &fakeLauncher{}
			o := newTestOrchestrator(t, l, func(c *Config) { c.Validator = security.NewValidator() })
			cmd := command("a", tt.line)
			cmd.AllowChaining, cmd.AllowSubshells = tt.chaining, tt.subshells

			results, err := runRoot(t, context.Background(), o, commandSet(cmd), "a", []string{"x; rm -r ~"}, RunOptions{})
			if err != nil {
				t.Fatal(err)
			}
			if results[0].Status != tt.wantStatus {
				t.Fatalf("status = %s (%v), want %s", results[0].Status, results[0].Err, tt.wantStatus)
			}
			if tt.wantStatus == StatusRejectedByPolicy && len(l.lines()) != 0 {
				t.Errorf("rejected line launched: %v", l.lines())
			}
		})
	}
}

func TestRun_StepSequence(t *testing.T) {
	t.Parallel()

	t.Run("sequential stops at first failure", func(t *testing.T) {
		t.Parallel()
		l := &fakeLauncher{funcs: map[string]launchFunc{"two": exitWith(4)}}
		o := newTestOrchestrator(t, l, nil)
		cmd := &cmdfile.Command{ID: "seq", Spec: cmdfile.StepSequence{"one", "two", "three"}}

		results, err := runRoot(t, context.Background(), o, commandSet(cmd), "seq", nil, RunOptions{})
		if err != nil {
			t.Fatal(err)
		}
		if got := l.lines(); !slices.Equal(got, []string{"one", "two"}) {
			t.Errorf("launched %v", got)
		}
		if results[0].Status != StatusNonZeroExit || results[0].ExitCode != 4 {
			t.Errorf("unexpected result %+v", results[0])
		}
	})

	t.Run("parallel runs every step", func(t *testing.T) {
		t.Parallel()
		l := &fakeLauncher{funcs: map[string]launchFunc{"one": exitWith(5)}}
		o := newTestOrchestrator(t, l, nil)
		cmd := &cmdfile.Command{ID: "par", Spec: cmdfile.StepSequence{"one", "two", "three"}, Parallel: true}

		results, err := runRoot(t, context.Background(), o, commandSet(cmd), "par", nil, RunOptions{})
		if err != nil {
			t.Fatal(err)
		}
		got := l.lines()
		slices.Sort(got)
		if !slices.Equal(got, []string{"one", "three", "two"}) {
			t.Errorf("launched %v", got)
		}
		if results[0].Status != StatusNonZeroExit || results[0].ExitCode != 5 {
			t.Errorf("unexpected result %+v", results[0])
		}
	})
}

func TestRun_DryRun(t *testing.T) {
	t.Parallel()

	l := &fakeLauncher{}
	sink := &fakeSink{}
	o := newTestOrchestrator(t, l, func(c *Config) {
		c.History = sink
		c.Hooks = cmdfile.Hooks{PreRun: "pre"}
	})
	danger := command("a", "echo ${1}")
	danger.Confirm = true

	var out bytes.Buffer
	results, err := runRoot(t, context.Background(), o, commandSet(danger), "a", []string{"hello"}, RunOptions{DryRun: true, Stdout: &out})
	if err != nil {
		t.Fatal(err)
	}
	if len(l.lines()) != 0 {
		t.Errorf("dry run launched %v", l.lines())
	}
	if out.String() != "[a] echo hello\n" {
		t.Errorf("output = %q", out.String())
	}
	if !results[0].Success() || len(sink.records) != 0 {
		t.Errorf("results %+v, records %d", results, len(sink.records))
	}
}

func TestRun_WorkingDirAndHistory(t *testing.T) {
	t.Parallel()

	l := &fakeLauncher{}
	sink := &fakeSink{}
	o := newTestOrchestrator(t, l, func(c *Config) {
		c.BaseDir = "/project"
		c.History = sink
	})
	sub := command("sub", "sub")
	sub.WorkingDir = "web"
	abs := command("abs", "abs", "sub")
	abs.WorkingDir = "/tmp"
	abs.Env = []cmdfile.EnvVar{{Name: "MODE", Value: "x"}}
	cmds := commandSet(sub, abs, command("plain", "plain", "abs"))

	if _, err := runRoot(t, context.Background(), o, cmds, "plain", []string{"a1"}, RunOptions{WorkingDir: "build"}); err != nil {
		t.Fatal(err)
	}

	dirs := make(map[string]string)
	for _, req := range l.launched {
		dirs[req.Line] = req.Dir
	}
	want := map[string]string{"sub": "/project/web", "abs": "/tmp", "plain": "/project/build"}
	for line, dir := range want {
		if dirs[line] != dir {
			t.Errorf("%s ran in %q, want %q", line, dirs[line], dir)
		}
	}

	if len(sink.records) != 1 {
		t.Fatalf("expected one record, got %d", len(sink.records))
	}
	rec := sink.records[0]
	if rec.Root != "plain" || !slices.Equal(rec.Args, []string{"a1"}) || rec.WorkingDir != "/project/build" || len(rec.Results) != 3 {
		t.Errorf("unexpected record %+v", rec)
	}
}

func TestRun_ReporterSeesEveryCommand(t *testing.T) {
	t.Parallel()

	rep := &recordingReporter{}
	o := newTestOrchestrator(t, &fakeLauncher{}, func(c *Config) { c.Reporter = rep })
	cmds := commandSet(command("a", "a"), command("b", "b"), command("root", "root", "a", "b"))

	if _, err := runRoot(t, context.Background(), o, cmds, "root", nil, RunOptions{Parallel: true}); err != nil {
		t.Fatal(err)
	}
	rep.mu.Lock()
	defer rep.mu.Unlock()
	if len(rep.started) != 3 || len(rep.finished) != 3 {
		t.Errorf("started %v, finished %v", rep.started, rep.finished)
	}
}

type recordingReporter struct {
	mu       sync.Mutex
	started  []cmdfile.CommandID
	finished []cmdfile.CommandID
}

func (r *recordingReporter) CommandStarted(id cmdfile.CommandID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.started = append(r.started, id)
}

func (r *recordingReporter) CommandFinished(res ExecutionResult) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.finished = append(r.finished, res.ID)
}

func TestRun_Timestamps(t *testing.T) {
	t.Parallel()

	clock := testutil.NewFakeClock(time.Time{})
	start := clock.Now()
	advance := func(d time.Duration) launchFunc {
		return func(context.Context) (types.ExitCode, error) {
			clock.Advance(d)
			return types.ExitSuccess, nil
		}
	}

	l := &fakeLauncher{funcs: map[string]launchFunc{
		"fmt":   advance(2 * time.Second),
		"build": advance(3 * time.Second),
	}}
	o := newTestOrchestrator(t, l, func(c *Config) { c.Now = clock.Now })
	cmds := commandSet(command("build", "build", "fmt"), command("fmt", "fmt"))

	results, err := runRoot(t, context.Background(), o, cmds, "build", nil, RunOptions{})
	if err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}

	want := []struct {
		startedAt time.Time
		duration  time.Duration
	}{
		{start, 2 * time.Second},
		{start.Add(2 * time.Second), 3 * time.Second},
	}
	for i, r := range results {
		if !r.StartedAt.Equal(want[i].startedAt) || r.Duration != want[i].duration {
			t.Errorf("%s: started %v after %v, want %v after %v",
				r.ID, r.StartedAt.Sub(start), r.Duration, want[i].startedAt.Sub(start), want[i].duration)
		}
	}
}
