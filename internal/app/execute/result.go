// SPDX-License-Identifier: MPL-2.0

package execute

import (
	"errors"
	"fmt"
	"time"

	"github.com/cmdrun/cmdrun/pkg/cmdfile"
	"github.com/cmdrun/cmdrun/pkg/types"
)

// Terminal statuses of a command.
const (
	StatusSuccess          Status = "success"
	StatusNonZeroExit      Status = "non_zero_exit"
	StatusTimedOut         Status = "timed_out"
	StatusCancelled        Status = "cancelled"
	StatusHookFailed       Status = "hook_failed"
	StatusExpansionFailed  Status = "expansion_failed"
	StatusRejectedByPolicy Status = "rejected_by_policy"
	StatusFailed           Status = "failed"
)

// Synthetic ids for results of the global hooks.
const (
	PreRunHookID  cmdfile.CommandID = "hooks.pre_run"
	PostRunHookID cmdfile.CommandID = "hooks.post_run"
)

// ErrInvalidStatus is the sentinel error wrapped by InvalidStatusError.
var ErrInvalidStatus = errors.New("invalid status")

type (
	// Status is the terminal state of one command.
	Status string

	// InvalidStatusError is returned when a Status is not a known value.
	InvalidStatusError struct {
		Value Status
	}

	// ExecutionResult records how one command ended. Results are created
	// when the command finishes and never modified afterwards.
	ExecutionResult struct {
		ID       cmdfile.CommandID
		Status   Status
		ExitCode types.ExitCode
		// StartedAt is when the command was picked up, before hooks.
		StartedAt time.Time
		Duration  time.Duration
		// CommandLines are the expanded lines, set once expansion succeeded.
		CommandLines []string
		// Err explains a non-success status. Nil for success and for a
		// declined confirmation.
		Err error
	}
)

// Error implements the error interface.
func (e *InvalidStatusError) Error() string {
	return fmt.Sprintf("invalid status %q", string(e.Value))
}

// Unwrap returns ErrInvalidStatus.
func (e *InvalidStatusError) Unwrap() error { return ErrInvalidStatus }

// IsValid returns whether the Status is a known value, and a list of
// validation errors if it is not.
func (s Status) IsValid() (bool, []error) {
	switch s {
	case StatusSuccess, StatusNonZeroExit, StatusTimedOut, StatusCancelled,
		StatusHookFailed, StatusExpansionFailed, StatusRejectedByPolicy, StatusFailed:
		return true, nil
	default:
		return false, []error{&InvalidStatusError{Value: s}}
	}
}

// IsFailure reports whether s counts as a failure. Cancelled stops a plan
// but is not a failure.
func (s Status) IsFailure() bool {
	return s != StatusSuccess && s != StatusCancelled
}

// String returns the status name.
func (s Status) String() string { return string(s) }

// Success reports whether the command completed successfully.
func (r ExecutionResult) Success() bool { return r.Status == StatusSuccess }

// Failed reports whether any result is a failure.
func Failed(results []ExecutionResult) bool {
	for _, r := range results {
		if r.Status.IsFailure() {
			return true
		}
	}
	return false
}

// ExitCodeFor maps a run to a process exit code: the first failure decides.
// A non-zero exit passes the child's code through, a timeout is 124, other
// failures are 1. Success and cancellation are 0.
func ExitCodeFor(results []ExecutionResult) types.ExitCode {
	for _, r := range results {
		switch {
		case !r.Status.IsFailure():
			continue
		case r.Status == StatusNonZeroExit && r.ExitCode != types.ExitSuccess:
			return r.ExitCode
		case r.Status == StatusTimedOut:
			return types.ExitTimedOut
		default:
			return types.ExitFailure
		}
	}
	return types.ExitSuccess
}
