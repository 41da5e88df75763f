// SPDX-License-Identifier: MPL-2.0

package cmdfile

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNotFound is returned by Find when no commands file exists.
	ErrNotFound = errors.New("commands file not found")
	// ErrUnknownCommand is the sentinel error wrapped by UnknownCommandError.
	ErrUnknownCommand = errors.New("unknown command")
	// ErrInvalidFile is the sentinel error wrapped by InvalidFileError.
	ErrInvalidFile = errors.New("invalid commands file")
)

type (
	// UnknownCommandError is returned by File.Resolve for a name that is
	// neither a command nor an alias.
	UnknownCommandError struct {
		Name        string
		Suggestions []CommandID
	}

	// InvalidFileError collects the problems found by File.Validate.
	InvalidFileError struct {
		Path     string
		Problems []error
	}
)

// Error implements the error interface.
func (e *UnknownCommandError) Error() string {
	msg := fmt.Sprintf("unknown command %q", e.Name)
	if len(e.Suggestions) == 0 {
		return msg
	}
	names := make([]string, len(e.Suggestions))
	for i, s := range e.Suggestions {
		names[i] = string(s)
	}
	return msg + " (did you mean: " + strings.Join(names, ", ") + "?)"
}

// Unwrap returns ErrUnknownCommand.
func (e *UnknownCommandError) Unwrap() error { return ErrUnknownCommand }

// Error implements the error interface.
func (e *InvalidFileError) Error() string {
	lines := make([]string, len(e.Problems))
	for i, p := range e.Problems {
		lines[i] = "  - " + p.Error()
	}
	return fmt.Sprintf("%s: %d problem(s):\n%s", e.Path, len(e.Problems), strings.Join(lines, "\n"))
}

// Unwrap returns ErrInvalidFile and every collected problem.
func (e *InvalidFileError) Unwrap() []error {
	return append([]error{ErrInvalidFile}, e.Problems...)
}
