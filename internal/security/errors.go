// SPDX-License-Identifier: MPL-2.0

package security

import (
	"errors"
	"fmt"
)

var (
	// ErrEmptyCommand is returned for blank command lines.
	ErrEmptyCommand = errors.New("command is empty")
	// ErrTooLong is returned when a line exceeds Validator.MaxLength.
	ErrTooLong = errors.New("command exceeds maximum length")
	// ErrNullByte is returned when a line contains a NUL byte.
	ErrNullByte = errors.New("command contains a null byte")
	// ErrForbiddenPattern is returned when a line matches a forbidden pattern.
	ErrForbiddenPattern = errors.New("command matches a forbidden pattern")
	// ErrChainingNotAllowed is returned for lists and pipelines when chaining is off.
	ErrChainingNotAllowed = errors.New("command chaining is not allowed")
	// ErrSubshellNotAllowed is returned for substitutions and subshells when they are off.
	ErrSubshellNotAllowed = errors.New("subshells are not allowed")
	// ErrUnparseable is returned in strict mode when a line is not valid shell.
	ErrUnparseable = errors.New("command could not be parsed")
)

// PolicyError reports why a command line was rejected.
type PolicyError struct {
	// Kind is one of the package sentinels.
	Kind error
	// Line is the rejected command line.
	Line string
	// Detail is optional extra context, such as the matched pattern.
	Detail string
}

func (e *PolicyError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("command rejected: %v", e.Kind)
	}
	return fmt.Sprintf("command rejected: %v: %s", e.Kind, e.Detail)
}

func (e *PolicyError) Unwrap() error { return e.Kind }
