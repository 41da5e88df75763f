// SPDX-License-Identifier: MPL-2.0

package execute

import (
	"errors"
	"fmt"
	"time"

	"github.com/cmdrun/cmdrun/pkg/cmdfile"
	"github.com/cmdrun/cmdrun/pkg/platform"
	"github.com/cmdrun/cmdrun/pkg/types"
)

var (
	// ErrNoPlatformMatch is returned before launch when a command cannot run
	// on the current platform.
	ErrNoPlatformMatch = errors.New("no platform match")
	// ErrNoSteps is returned before launch for a command without steps.
	ErrNoSteps = errors.New("command has no steps")
	// ErrNoLauncher is returned by New when Config.Launcher is nil.
	ErrNoLauncher = errors.New("no launcher configured")
	// ErrNonZeroExit marks a step that exited with a non-zero code.
	ErrNonZeroExit = errors.New("non-zero exit")
	// ErrTimedOut marks a step killed by its timeout.
	ErrTimedOut = errors.New("timed out")
	// ErrHookFailed marks a failed pre-run or post-run hook.
	ErrHookFailed = errors.New("hook failed")
)

type (
	// NoPlatformMatchError reports a command that has no variant for, or is
	// restricted away from, the current platform.
	NoPlatformMatchError struct {
		Command  cmdfile.CommandID
		Platform platform.Platform
		// Available lists the restriction or the variant keys.
		Available []platform.Platform
	}

	// ExitError reports a step that exited with a non-zero code.
	ExitError struct {
		Line string
		Code types.ExitCode
	}

	// TimeoutError reports a step killed after Timeout.
	TimeoutError struct {
		Line    string
		Timeout time.Duration
	}

	// HookError reports a failed hook.
	HookError struct {
		// Hook is "pre_run" or "post_run".
		Hook string
		Line string
		Err  error
	}
)

// Error implements the error interface.
func (e *NoPlatformMatchError) Error() string {
	return fmt.Sprintf("command %q cannot run on %s (available: %v)", e.Command, e.Platform, e.Available)
}

// Unwrap returns ErrNoPlatformMatch.
func (e *NoPlatformMatchError) Unwrap() error { return ErrNoPlatformMatch }

// Error implements the error interface.
func (e *ExitError) Error() string {
	return fmt.Sprintf("%q exited with code %d", e.Line, e.Code)
}

// Unwrap returns ErrNonZeroExit.
func (e *ExitError) Unwrap() error { return ErrNonZeroExit }

// Error implements the error interface.
func (e *TimeoutError) Error() string {
	return fmt.Sprintf("%q timed out after %s", e.Line, e.Timeout)
}

// Unwrap returns ErrTimedOut.
func (e *TimeoutError) Unwrap() error { return ErrTimedOut }

// Error implements the error interface.
func (e *HookError) Error() string {
	return fmt.Sprintf("%s hook %q failed: %v", e.Hook, e.Line, e.Err)
}

// Unwrap returns both ErrHookFailed and the cause.
func (e *HookError) Unwrap() []error { return []error{ErrHookFailed, e.Err} }
