// SPDX-License-Identifier: MPL-2.0

package cmdfile

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/cmdrun/cmdrun/pkg/platform"
)

// ErrInvalidCommandID is the sentinel error wrapped by InvalidCommandIDError.
var ErrInvalidCommandID = errors.New("invalid command id")

type (
	// CommandID is the unique key of a command in a commands file.
	// A valid id is non-empty and contains no whitespace.
	CommandID string

	// InvalidCommandIDError is returned when a CommandID is empty or contains
	// whitespace.
	InvalidCommandIDError struct {
		Value CommandID
	}

	// EnvVar is one entry of an ordered environment mapping. Value is raw:
	// it may still contain ${...} tokens.
	EnvVar struct {
		Name  string
		Value string
	}

	// Command is one declared unit of work.
	Command struct {
		// ID is the table key under [commands].
		ID CommandID
		// Description is free text shown by `cmdrun list`.
		Description string
		// Spec produces the command's steps. Never nil for a parsed command.
		Spec StepSpec
		// Deps must finish successfully before this command's own steps run.
		Deps []CommandID
		// Env is applied in declaration order on top of the global env.
		Env []EnvVar
		// WorkingDir is relative to the commands file when not absolute.
		WorkingDir string
		// Platforms restricts where the command may run. Empty means anywhere.
		Platforms []platform.Platform
		// Tags group commands for `cmdrun list --tag`.
		Tags []string
		// Timeout overrides the global timeout when non-zero.
		Timeout time.Duration
		// Parallel runs a StepSequence concurrently and lets this command run
		// alongside its execution-group siblings.
		Parallel bool
		// Confirm asks before launching.
		Confirm bool
		// AllowChaining permits &&, ||, ; and pipes in the expanded line.
		AllowChaining bool
		// AllowSubshells permits $(...), backticks and ( ... ) groups.
		AllowSubshells bool
		// Watch configures `cmdrun watch` for this command. May be nil.
		Watch *WatchConfig
	}

	// WatchConfig defines file-watching behaviour for `cmdrun watch`.
	WatchConfig struct {
		// Patterns are doublestar globs relative to the working directory.
		Patterns []string
		// Ignore are extra globs excluded on top of the built-in ignores.
		Ignore []string
		// Debounce is the quiet period before re-running. Zero means default.
		Debounce time.Duration
		// ClearScreen clears the terminal before each run.
		ClearScreen bool
	}
)

// Error implements the error interface.
func (e *InvalidCommandIDError) Error() string {
	return fmt.Sprintf("invalid command id %q (must be non-empty and contain no whitespace)", string(e.Value))
}

// Unwrap returns ErrInvalidCommandID.
func (e *InvalidCommandIDError) Unwrap() error { return ErrInvalidCommandID }

// IsValid returns whether the CommandID is usable as a command key,
// and a list of validation errors if it is not.
func (id CommandID) IsValid() (bool, []error) {
	if id == "" || strings.ContainsFunc(string(id), isSpace) {
		return false, []error{&InvalidCommandIDError{Value: id}}
	}
	return true, nil
}

// String returns the id.
func (id CommandID) String() string { return string(id) }

func isSpace(r rune) bool {
	return r == ' ' || r == '\t' || r == '\n' || r == '\r' || r == '\v' || r == '\f'
}

// HasTag reports whether the command carries tag.
func (c *Command) HasTag(tag string) bool {
	return slices.Contains(c.Tags, tag)
}

// SupportsPlatform reports whether the platform restriction admits p.
func (c *Command) SupportsPlatform(p platform.Platform) bool {
	if len(c.Platforms) == 0 {
		return true
	}
	for _, r := range c.Platforms {
		if p.Matches(r) {
			return true
		}
	}
	return false
}

// EnvMap flattens an ordered env list. Later entries win.
func EnvMap(vars []EnvVar) map[string]string {
	m := make(map[string]string, len(vars))
	for _, v := range vars {
		m[v.Name] = v.Value
	}
	return m
}
