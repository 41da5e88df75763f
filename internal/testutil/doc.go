// SPDX-License-Identifier: MPL-2.0

// Package testutil provides helpers shared by cmdrun tests: commands file
// fixtures, environment and directory management, and a manually driven
// clock for code that timestamps its results.
package testutil
