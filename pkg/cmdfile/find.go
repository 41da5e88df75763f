// SPDX-License-Identifier: MPL-2.0

package cmdfile

import (
	"fmt"
	"os"
	"path/filepath"
)

// FileNames are the names searched for in each directory, in priority order.
var FileNames = []string{"commands.toml", ".cmdrun.toml", "cmdrun.toml"}

// Find walks from startDir up to the filesystem root looking for one of
// FileNames, then tries each fallback directory in order. It returns
// ErrNotFound when nothing matches.
func Find(startDir string, fallbackDirs ...string) (string, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return "", fmt.Errorf("resolve %s: %w", startDir, err)
	}

	for {
		if path, ok := findIn(dir); ok {
			return path, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}

	for _, fb := range fallbackDirs {
		if fb == "" {
			continue
		}
		if path, ok := findIn(fb); ok {
			return path, nil
		}
	}

	return "", fmt.Errorf("%w (searched from %s for %v)", ErrNotFound, startDir, FileNames)
}

func findIn(dir string) (string, bool) {
	for _, name := range FileNames {
		path := filepath.Join(dir, name)
		if info, err := os.Stat(path); err == nil && !info.IsDir() {
			return path, true
		}
	}
	return "", false
}
