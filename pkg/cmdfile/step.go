// SPDX-License-Identifier: MPL-2.0

package cmdfile

import (
	"slices"

	"github.com/cmdrun/cmdrun/pkg/platform"
)

type (
	// StepSpec is the step-producing part of a command. It is a closed set:
	// SingleStep, StepSequence and PlatformSteps are the only
	// implementations, and consumers switch on the concrete type.
	StepSpec interface {
		// Lines returns every command line the spec mentions, for display
		// and validation. It does not select a platform.
		Lines() []string
		stepSpec()
	}

	// SingleStep is `cmd = "..."`.
	SingleStep string

	// StepSequence is `cmd = ["...", "..."]`, run in order.
	StepSequence []string

	// PlatformSteps is `cmd = { unix = "...", windows = "..." }`.
	PlatformSteps map[platform.Platform]string
)

func (SingleStep) stepSpec()    {}
func (StepSequence) stepSpec()  {}
func (PlatformSteps) stepSpec() {}

// Lines implements StepSpec.
func (s SingleStep) Lines() []string { return []string{string(s)} }

// Lines implements StepSpec.
func (s StepSequence) Lines() []string { return slices.Clone(s) }

// Lines returns the variants ordered by platform tag.
func (s PlatformSteps) Lines() []string {
	keys := make([]platform.Platform, 0, len(s))
	for k := range s {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	lines := make([]string, 0, len(keys))
	for _, k := range keys {
		lines = append(lines, s[k])
	}
	return lines
}
