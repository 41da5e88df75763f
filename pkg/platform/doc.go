// SPDX-License-Identifier: MPL-2.0

// Package platform names the host platforms a command can target and
// detects the one the process is running on.
package platform
