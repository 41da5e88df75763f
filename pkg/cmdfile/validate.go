// SPDX-License-Identifier: MPL-2.0

package cmdfile

import (
	"fmt"
	"strings"

	"github.com/cmdrun/cmdrun/pkg/platform"
)

// Validate checks the cross-references that the schema cannot express:
// dependency and hook targets exist, aliases point at commands without
// shadowing one, and platform-keyed commands have a usable variant for
// every platform they are restricted to. Dependency cycles are the
// scheduler's concern and are not checked here.
//
// All problems are reported together in an *InvalidFileError.
func (f *File) Validate() error {
	var problems []error

	for _, id := range f.IDs() {
		cmd := f.Commands[id]
		if ok, errs := id.IsValid(); !ok {
			problems = append(problems, errs...)
		}
		for _, dep := range cmd.Deps {
			if _, ok := f.Commands[dep]; !ok {
				problems = append(problems, fmt.Errorf("command %q depends on unknown command %q", id, dep))
			}
			if dep == id {
				problems = append(problems, fmt.Errorf("command %q depends on itself", id))
			}
		}
		for _, p := range cmd.Platforms {
			if ok, errs := p.IsValid(); !ok {
				problems = append(problems, fmt.Errorf("command %q: %w", id, errs[0]))
			}
		}
		problems = append(problems, validateSpec(cmd)...)
	}

	for alias, target := range f.Aliases {
		if _, ok := f.Commands[target]; !ok {
			problems = append(problems, fmt.Errorf("alias %q points to unknown command %q", alias, target))
		}
		if _, ok := f.Commands[CommandID(alias)]; ok {
			problems = append(problems, fmt.Errorf("alias %q shadows a command with the same id", alias))
		}
	}

	for id := range f.Hooks.Commands {
		if _, ok := f.Commands[id]; !ok {
			problems = append(problems, fmt.Errorf("hooks declared for unknown command %q", id))
		}
	}

	if len(problems) == 0 {
		return nil
	}
	return &InvalidFileError{Path: f.Path, Problems: problems}
}

func validateSpec(cmd *Command) []error {
	var problems []error
	switch spec := cmd.Spec.(type) {
	case nil:
		problems = append(problems, fmt.Errorf("command %q has no cmd", cmd.ID))
	case SingleStep:
		if strings.TrimSpace(string(spec)) == "" {
			problems = append(problems, fmt.Errorf("command %q has an empty cmd", cmd.ID))
		}
	case StepSequence:
		if len(spec) == 0 {
			problems = append(problems, fmt.Errorf("command %q has an empty cmd list", cmd.ID))
		}
	case PlatformSteps:
		for key := range spec {
			if ok, errs := key.IsValid(); !ok {
				problems = append(problems, fmt.Errorf("command %q: cmd: %w", cmd.ID, errs[0]))
			}
		}
		for _, p := range cmd.Platforms {
			if spec.covers(p) {
				continue
			}
			problems = append(problems, fmt.Errorf("command %q is restricted to %s but has no cmd variant for it", cmd.ID, p))
		}
	}
	return problems
}

// covers reports whether a variant resolves for p. A "unix" restriction
// needs either a unix variant or both linux and macos.
func (s PlatformSteps) covers(p platform.Platform) bool {
	if _, ok := s[p]; ok {
		return true
	}
	if _, ok := s[platform.PlatformUnix]; ok && p.IsUnixFamily() {
		return true
	}
	if p == platform.PlatformUnix {
		_, linux := s[platform.PlatformLinux]
		_, macos := s[platform.PlatformMacOS]
		return linux && macos
	}
	return false
}
