// SPDX-License-Identifier: MPL-2.0

// Package runtime launches expanded command lines.
//
// Two launchers are available:
//   - native: runs the line through the host shell (sh/bash/zsh, PowerShell or cmd.exe)
//     in its own process group, so a timeout or cancellation kills every descendant
//   - virtual: runs the line in the embedded mvdan/sh interpreter, without a host shell
//
// Both inherit the process environment overlaid with the request's variables.
package runtime
