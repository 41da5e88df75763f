// SPDX-License-Identifier: MPL-2.0

//go:build windows

package runtime

import "os/exec"

func setProcessGroup(*exec.Cmd) {}

// killProcessGroup kills the shell process. Windows has no process groups
// reachable through os/exec, so grandchildren may outlive it.
func killProcessGroup(cmd *exec.Cmd) error {
	if cmd.Process == nil {
		return nil
	}
	return cmd.Process.Kill()
}
