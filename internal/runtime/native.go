// SPDX-License-Identifier: MPL-2.0

package runtime

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	goruntime "runtime"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"github.com/cmdrun/cmdrun/pkg/types"
)

// ErrNoShell is returned when no usable host shell can be found.
var ErrNoShell = errors.New("no shell found")

// killGrace bounds how long Launch waits for output pipes after the process
// group has been killed.
const killGrace = 2 * time.Second

// NativeLauncher runs lines through the host shell.
type NativeLauncher struct {
	// Shell overrides the default shell, by name or path.
	Shell string
	// ShellArgs are passed before the line; derived from the shell when empty.
	ShellArgs []string
	Logger    *log.Logger
}

// NewNativeLauncher returns a launcher for shell, a name or path. An empty
// shell means the platform default. logger may be nil.
func NewNativeLauncher(shell string, logger *log.Logger) *NativeLauncher {
	return &NativeLauncher{Shell: shell, Logger: logger}
}

// Name returns the launcher name.
func (l *NativeLauncher) Name() string { return "native" }

// Available reports whether a shell can be found.
func (l *NativeLauncher) Available() bool {
	_, err := l.shell()
	return err == nil
}

// Launch runs req.Line and waits for it. When ctx ends first, the child's
// whole process group is killed and the ctx error is returned.
func (l *NativeLauncher) Launch(ctx context.Context, req Request) (types.ExitCode, error) {
	shell, err := l.shell()
	if err != nil {
		return types.ExitFailure, err
	}

	args := append(l.shellArgs(shell), req.Line)
	cmd := exec.CommandContext(ctx, shell, args...)
	cmd.Dir = req.Dir
	cmd.Env = Environ(req.Env)
	cmd.Stdin = req.Stdin
	cmd.Stdout = req.Stdout
	cmd.Stderr = req.Stderr

	setProcessGroup(cmd)
	cmd.Cancel = func() error { return killProcessGroup(cmd) }
	cmd.WaitDelay = killGrace

	if l.Logger != nil {
		l.Logger.Debug("launching", "shell", shell, "dir", req.Dir, "line", req.Line)
	}

	err = cmd.Run()
	if ctx.Err() != nil {
		return types.ExitFailure, interrupted(ctx, req.Line)
	}
	return exitCodeFrom(err)
}

// shell determines which shell to use.
func (l *NativeLauncher) shell() (string, error) {
	if l.Shell != "" {
		if filepath.IsAbs(l.Shell) {
			return l.Shell, nil
		}
		path, err := exec.LookPath(l.Shell)
		if err != nil {
			return "", fmt.Errorf("%w: %s", ErrNoShell, l.Shell)
		}
		return path, nil
	}

	switch goruntime.GOOS {
	case "windows":
		for _, name := range []string{"pwsh", "powershell", "cmd"} {
			if path, err := exec.LookPath(name); err == nil {
				return path, nil
			}
		}
		return "", ErrNoShell
	default:
		if shell := os.Getenv("SHELL"); shell != "" {
			return shell, nil
		}
		for _, name := range []string{"bash", "sh"} {
			if path, err := exec.LookPath(name); err == nil {
				return path, nil
			}
		}
		return "", ErrNoShell
	}
}

// shellArgs returns the arguments that make shell run a single line.
func (l *NativeLauncher) shellArgs(shell string) []string {
	if len(l.ShellArgs) > 0 {
		return append([]string(nil), l.ShellArgs...)
	}

	base := filepath.Base(shell)
	if i := strings.LastIndex(base, `\`); i >= 0 {
		base = base[i+1:]
	}
	base = strings.TrimSuffix(strings.ToLower(base), ".exe")

	switch base {
	case "cmd":
		return []string{"/C"}
	case "powershell", "pwsh":
		return []string{"-NoProfile", "-Command"}
	default:
		return []string{"-c"}
	}
}
