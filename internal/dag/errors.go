// SPDX-License-Identifier: MPL-2.0

package dag

import (
	"errors"
	"fmt"
	"strings"

	"github.com/cmdrun/cmdrun/pkg/cmdfile"
)

var (
	// ErrUnknownDependency is the sentinel error wrapped by UnknownDependencyError.
	ErrUnknownDependency = errors.New("unknown dependency")
	// ErrCycleDetected is the sentinel error wrapped by CycleError.
	ErrCycleDetected = errors.New("dependency cycle detected")
)

type (
	// UnknownDependencyError reports a dependency id (or the root itself,
	// with From empty) that is not declared.
	UnknownDependencyError struct {
		From    cmdfile.CommandID
		Missing cmdfile.CommandID
	}

	// CycleError reports a dependency cycle. When produced by BuildPlan,
	// Path starts and ends with the same id, e.g. [a b a].
	CycleError struct {
		Path []string
	}
)

// Error implements the error interface.
func (e *UnknownDependencyError) Error() string {
	if e.From == "" {
		return fmt.Sprintf("unknown command %q", e.Missing)
	}
	return fmt.Sprintf("command %q depends on unknown command %q", e.From, e.Missing)
}

// Unwrap returns ErrUnknownDependency.
func (e *UnknownDependencyError) Unwrap() error { return ErrUnknownDependency }

// Error implements the error interface.
func (e *CycleError) Error() string {
	return fmt.Sprintf("dependency cycle detected: %s", strings.Join(e.Path, " -> "))
}

// Unwrap returns ErrCycleDetected.
func (e *CycleError) Unwrap() error { return ErrCycleDetected }
