// SPDX-License-Identifier: MPL-2.0

package runtime

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/log"
	"mvdan.cc/sh/v3/expand"
	"mvdan.cc/sh/v3/interp"
	"mvdan.cc/sh/v3/syntax"

	"github.com/cmdrun/cmdrun/pkg/types"
)

// VirtualLauncher runs lines with the embedded mvdan/sh interpreter. Builtins
// run in-process; other programs are started from PATH.
type VirtualLauncher struct {
	Logger *log.Logger
}

// NewVirtualLauncher returns a launcher backed by the embedded interpreter.
// logger may be nil.
func NewVirtualLauncher(logger *log.Logger) *VirtualLauncher {
	return &VirtualLauncher{Logger: logger}
}

// Name returns the launcher name.
func (l *VirtualLauncher) Name() string { return "virtual" }

// Available is always true: the interpreter is built in.
func (l *VirtualLauncher) Available() bool { return true }

// Launch parses and runs req.Line.
func (l *VirtualLauncher) Launch(ctx context.Context, req Request) (types.ExitCode, error) {
	prog, err := syntax.NewParser().Parse(strings.NewReader(req.Line), "")
	if err != nil {
		return types.ExitFailure, fmt.Errorf("failed to parse command: %w", err)
	}

	opts := []interp.RunnerOption{
		interp.Env(expand.ListEnviron(Environ(req.Env)...)),
		interp.StdIO(req.Stdin, req.Stdout, req.Stderr),
	}
	if req.Dir != "" {
		opts = append(opts, interp.Dir(req.Dir))
	}

	runner, err := interp.New(opts...)
	if err != nil {
		return types.ExitFailure, fmt.Errorf("failed to create interpreter: %w", err)
	}

	if l.Logger != nil {
		l.Logger.Debug("launching", "shell", "virtual", "dir", req.Dir, "line", req.Line)
	}

	err = runner.Run(ctx, prog)
	if ctx.Err() != nil {
		return types.ExitFailure, interrupted(ctx, req.Line)
	}
	if err != nil {
		var exitStatus interp.ExitStatus
		if errors.As(err, &exitStatus) {
			return types.ExitCode(exitStatus), nil
		}
		return types.ExitFailure, fmt.Errorf("script execution failed: %w", err)
	}
	return types.ExitSuccess, nil
}
