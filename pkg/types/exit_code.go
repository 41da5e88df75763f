// SPDX-License-Identifier: MPL-2.0

// Package types holds small value types shared by the command file, the
// launchers, and the CLI. It imports only the standard library.
package types

import (
	"errors"
	"fmt"
	"strconv"
)

// Exit codes with a fixed meaning across cmdrun.
const (
	// ExitSuccess is a clean exit.
	ExitSuccess ExitCode = 0
	// ExitFailure is a generic failure that did not come from a child process.
	ExitFailure ExitCode = 1
	// ExitUsage reports configuration or plan errors detected before launch.
	ExitUsage ExitCode = 2
	// ExitTimedOut mirrors timeout(1).
	ExitTimedOut ExitCode = 124
	// ExitInterrupted is 128+SIGINT.
	ExitInterrupted ExitCode = 130
)

// ErrInvalidExitCode is the sentinel error wrapped by InvalidExitCodeError.
var ErrInvalidExitCode = errors.New("invalid exit code")

type (
	// ExitCode is a process exit status in the range 0-255.
	ExitCode int

	// InvalidExitCodeError is returned when an ExitCode is outside 0-255.
	InvalidExitCodeError struct {
		Value ExitCode
	}
)

// Error implements the error interface.
func (e *InvalidExitCodeError) Error() string {
	return fmt.Sprintf("invalid exit code %d (must be in range 0-255)", e.Value)
}

// Unwrap returns ErrInvalidExitCode.
func (e *InvalidExitCodeError) Unwrap() error { return ErrInvalidExitCode }

// Validate returns an error if the ExitCode is outside 0-255.
func (c ExitCode) Validate() error {
	if c < 0 || c > 255 {
		return &InvalidExitCodeError{Value: c}
	}
	return nil
}

// IsSuccess reports whether c is zero.
func (c ExitCode) IsSuccess() bool { return c == ExitSuccess }

// Clamp folds out-of-range codes (negative codes from signal deaths on some
// platforms, Windows NTSTATUS values) into ExitFailure.
func (c ExitCode) Clamp() ExitCode {
	if c.Validate() != nil {
		return ExitFailure
	}
	return c
}

// String returns the decimal representation.
func (c ExitCode) String() string { return strconv.Itoa(int(c)) }
