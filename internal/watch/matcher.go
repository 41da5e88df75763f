// SPDX-License-Identifier: MPL-2.0

package watch

import (
	"fmt"
	"path/filepath"
	"slices"

	"github.com/bmatcuk/doublestar/v4"
)

// defaultIgnores are always excluded: VCS metadata, dependency and build
// output trees, editor swap files and OS metadata.
var defaultIgnores = []string{
	"**/.git/**",
	"**/node_modules/**",
	"**/target/**",
	"**/__pycache__/**",
	"**/*.swp",
	"**/*.swo",
	"**/*~",
	"**/.DS_Store",
}

// Matcher decides which relative paths are interesting.
type Matcher struct {
	patterns []string
	ignores  []string
}

// NewMatcher validates patterns and ignore globs. The built-in ignores are
// always added. No patterns means every path that is not ignored matches.
func NewMatcher(patterns, ignore []string) (*Matcher, error) {
	if err := validatePatterns(patterns, "watch"); err != nil {
		return nil, err
	}
	if err := validatePatterns(ignore, "ignore"); err != nil {
		return nil, err
	}
	return &Matcher{
		patterns: slices.Clone(patterns),
		ignores:  slices.Concat(defaultIgnores, ignore),
	}, nil
}

// Ignored reports whether rel matches an ignore glob.
func (m *Matcher) Ignored(rel string) bool {
	return matchAny(m.ignores, rel)
}

// Match reports whether a change to rel should trigger a run.
func (m *Matcher) Match(rel string) bool {
	if m.Ignored(rel) {
		return false
	}
	return len(m.patterns) == 0 || matchAny(m.patterns, rel)
}

// DefaultIgnores returns a copy of the built-in ignore globs.
func DefaultIgnores() []string {
	return slices.Clone(defaultIgnores)
}

func matchAny(patterns []string, rel string) bool {
	normalized := filepath.ToSlash(rel)
	for _, pat := range patterns {
		if ok, err := doublestar.Match(pat, normalized); err == nil && ok {
			return true
		}
	}
	return false
}

func validatePatterns(patterns []string, label string) error {
	for _, pat := range patterns {
		if !doublestar.ValidatePattern(pat) {
			return fmt.Errorf("watch: invalid %s pattern %q: %w", label, pat, doublestar.ErrBadPattern)
		}
	}
	return nil
}
