// SPDX-License-Identifier: MPL-2.0

package runtime

import (
	"errors"
	"fmt"
	"io/fs"
	"maps"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
)

// LoadEnvFile reads a dotenv file and merges its contents into env, with
// file values overriding existing keys. Relative paths are resolved against
// baseDir. A trailing '?' marks the file optional: a missing optional file
// is not an error.
func LoadEnvFile(env map[string]string, path, baseDir string) error {
	optional := strings.HasSuffix(path, "?")
	if optional {
		path = strings.TrimSuffix(path, "?")
	}

	fullPath := filepath.FromSlash(path)
	if !filepath.IsAbs(fullPath) {
		fullPath = filepath.Join(baseDir, fullPath)
	}

	values, err := godotenv.Read(fullPath)
	if err != nil {
		if optional && errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("failed to read env file '%s': %w", path, err)
	}

	maps.Copy(env, values)
	return nil
}

// ParseEnvFile parses dotenv content and merges it into env. The filename
// is only used in error messages.
func ParseEnvFile(env map[string]string, content []byte, filename string) error {
	values, err := godotenv.UnmarshalBytes(content)
	if err != nil {
		return fmt.Errorf("failed to parse env file '%s': %w", filename, err)
	}
	maps.Copy(env, values)
	return nil
}
