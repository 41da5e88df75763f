// SPDX-License-Identifier: MPL-2.0

package runtime

import (
	"errors"
	"fmt"
	"os/exec"

	"github.com/cmdrun/cmdrun/pkg/types"
)

// exitCodeFrom maps the error of a finished process to its exit code.
// Errors other than a non-zero exit (shell not found, permission denied)
// are returned.
func exitCodeFrom(err error) (types.ExitCode, error) {
	if err == nil {
		return types.ExitSuccess, nil
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		code := exitErr.ExitCode()
		if code < 0 {
			// Killed by a signal.
			return types.ExitFailure, nil
		}
		return types.ExitCode(code).Clamp(), nil
	}

	return types.ExitFailure, fmt.Errorf("failed to execute command: %w", err)
}
