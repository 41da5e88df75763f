// SPDX-License-Identifier: MPL-2.0

package runtime

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"slices"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/cmdrun/cmdrun/pkg/types"
)

// Shell names accepted in configuration.
const (
	// ShellAuto picks the platform default shell.
	ShellAuto       Shell = ""
	ShellBash       Shell = "bash"
	ShellSh         Shell = "sh"
	ShellZsh        Shell = "zsh"
	ShellPwsh       Shell = "pwsh"
	ShellPowerShell Shell = "powershell"
	ShellCmd        Shell = "cmd"
	// ShellVirtual runs lines in the embedded interpreter.
	ShellVirtual Shell = "virtual"
)

// ErrInvalidShell is the sentinel error wrapped by InvalidShellError.
var ErrInvalidShell = errors.New("invalid shell")

type (
	// Shell names the interpreter that runs command lines.
	Shell string

	// InvalidShellError is returned when a Shell is not one of the known names.
	InvalidShellError struct {
		Value Shell
	}

	// Request is one line to launch.
	Request struct {
		// Line is the fully expanded command line.
		Line string
		// Dir is the working directory; empty means the current directory.
		Dir string
		// Env is added to the inherited process environment, overriding
		// variables of the same name.
		Env    map[string]string
		Stdin  io.Reader
		Stdout io.Writer
		Stderr io.Writer
	}

	// Launcher runs a Request to completion. A non-zero exit is reported
	// through the ExitCode with a nil error; errors mean the line could not
	// be started or was interrupted by ctx.
	Launcher interface {
		Launch(ctx context.Context, req Request) (types.ExitCode, error)
		// Name identifies the launcher in logs and `cmdrun info`.
		Name() string
		// Available reports whether lines can be launched at all.
		Available() bool
	}
)

// Error implements the error interface.
func (e *InvalidShellError) Error() string {
	return fmt.Sprintf("invalid shell %q (valid: %s)", e.Value, strings.Join(shellNames(), ", "))
}

// Unwrap returns ErrInvalidShell so callers can use errors.Is for programmatic detection.
func (e *InvalidShellError) Unwrap() error { return ErrInvalidShell }

// Shells lists every named shell.
func Shells() []Shell {
	return []Shell{ShellBash, ShellSh, ShellZsh, ShellPwsh, ShellPowerShell, ShellCmd, ShellVirtual}
}

func shellNames() []string {
	names := make([]string, 0, len(Shells()))
	for _, s := range Shells() {
		names = append(names, string(s))
	}
	return names
}

// IsValid returns whether the Shell is empty or a known name,
// and a list of validation errors if it is not.
func (s Shell) IsValid() (bool, []error) {
	if s == ShellAuto || slices.Contains(Shells(), s) {
		return true, nil
	}
	return false, []error{&InvalidShellError{Value: s}}
}

// IsVirtual reports whether lines run in the embedded interpreter.
func (s Shell) IsVirtual() bool { return s == ShellVirtual }

// IsPOSIX reports whether the shell parses POSIX syntax. The platform
// default counts as POSIX everywhere but Windows.
func (s Shell) IsPOSIX(goos string) bool {
	switch s {
	case ShellBash, ShellSh, ShellZsh, ShellVirtual:
		return true
	case ShellAuto:
		return goos != "windows"
	default:
		return false
	}
}

// String returns the shell name.
func (s Shell) String() string { return string(s) }

// NewLauncher returns the launcher for shell. logger may be nil.
func NewLauncher(shell Shell, logger *log.Logger) (Launcher, error) {
	if ok, errs := shell.IsValid(); !ok {
		return nil, errors.Join(errs...)
	}
	if logger == nil {
		logger = log.New(io.Discard)
	}
	if shell.IsVirtual() {
		return NewVirtualLauncher(logger), nil
	}
	return NewNativeLauncher(string(shell), logger), nil
}

// Environ returns the process environment overlaid with env.
func Environ(env map[string]string) []string {
	base := os.Environ()
	if len(env) == 0 {
		return base
	}
	out := make([]string, 0, len(base)+len(env))
	for _, kv := range base {
		name, _, _ := strings.Cut(kv, "=")
		if _, overridden := env[name]; overridden {
			continue
		}
		out = append(out, kv)
	}
	return append(out, EnvToSlice(env)...)
}

// EnvToSlice converts a map of environment variables to KEY=VALUE pairs,
// sorted by key.
func EnvToSlice(env map[string]string) []string {
	keys := make([]string, 0, len(env))
	for k := range env {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	result := make([]string, 0, len(env))
	for _, k := range keys {
		result = append(result, k+"="+env[k])
	}
	return result
}

// interrupted wraps ctx.Err() when ctx ended while the line was running.
func interrupted(ctx context.Context, line string) error {
	return fmt.Errorf("command %q interrupted: %w", line, ctx.Err())
}
