// SPDX-License-Identifier: MPL-2.0

package testutil

import (
	"path/filepath"
	"runtime"
	"testing"
)

// SetConfigHome points the platform configuration base directory at dir
// for the rest of the test and returns the base the config package will
// resolve, without the application directory.
//
// Platform handling:
//   - Windows: sets APPDATA
//   - macOS: sets HOME; the base is ~/Library/Application Support
//   - Linux and others: sets XDG_CONFIG_HOME
//
// Tests using it cannot run in parallel.
func SetConfigHome(t *testing.T, dir string) string {
	t.Helper()

	switch runtime.GOOS {
	case "windows":
		t.Setenv("APPDATA", dir)
		return dir
	case "darwin":
		t.Setenv("HOME", dir)
		return filepath.Join(dir, "Library", "Application Support")
	default:
		t.Setenv("XDG_CONFIG_HOME", dir)
		return dir
	}
}
