// SPDX-License-Identifier: MPL-2.0

package execute

import (
	"fmt"
	"slices"

	"github.com/cmdrun/cmdrun/pkg/cmdfile"
	"github.com/cmdrun/cmdrun/pkg/platform"
)

// ResolveSteps returns the lines cmd runs on platform p. A platform map
// uses the exact key, then "unix" on a Unix-family platform. Anything else
// is a NoPlatformMatchError.
func ResolveSteps(cmd *cmdfile.Command, p platform.Platform) ([]string, error) {
	if !cmd.SupportsPlatform(p) {
		return nil, &NoPlatformMatchError{Command: cmd.ID, Platform: p, Available: cmd.Platforms}
	}

	var lines []string
	switch spec := cmd.Spec.(type) {
	case cmdfile.SingleStep:
		lines = []string{string(spec)}
	case cmdfile.StepSequence:
		lines = slices.Clone(spec)
	case cmdfile.PlatformSteps:
		line, ok := spec[p]
		if !ok && p.IsUnixFamily() {
			line, ok = spec[platform.PlatformUnix]
		}
		if !ok {
			keys := make([]platform.Platform, 0, len(spec))
			for k := range spec {
				keys = append(keys, k)
			}
			slices.Sort(keys)
			return nil, &NoPlatformMatchError{Command: cmd.ID, Platform: p, Available: keys}
		}
		lines = []string{line}
	}

	if len(lines) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoSteps, cmd.ID)
	}
	return lines, nil
}
