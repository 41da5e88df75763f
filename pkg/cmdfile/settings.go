// SPDX-License-Identifier: MPL-2.0

package cmdfile

import (
	"slices"
	"time"
)

// DefaultTimeout applies when neither the command nor [config] sets one.
const DefaultTimeout = 300 * time.Second

type (
	// Settings is the [config] table of a commands file.
	Settings struct {
		// Shell names the launcher: a shell binary, or "virtual" for the
		// embedded interpreter. Empty means auto-detect.
		Shell string
		// StrictMode turns undefined ${NAME} references into errors.
		StrictMode bool
		// Parallel runs execution-group members concurrently.
		Parallel bool
		// Timeout is the default per-command timeout.
		Timeout time.Duration
		// WorkingDir is the default working directory for every command.
		WorkingDir string
		// Env is the global env layer, below command env.
		Env []EnvVar
		// EnvFiles are dotenv files merged under Env. A trailing '?' marks
		// a file as optional.
		EnvFiles []string
		// Declared lists the [config] keys present in the file, so user
		// config only fills in what the project leaves out.
		Declared []string
	}

	// Hooks holds the [hooks] table.
	Hooks struct {
		// PreRun runs once before the first execution group.
		PreRun string
		// PostRun runs once after the last group when nothing failed.
		PostRun string
		// Commands holds per-command hooks.
		Commands map[CommandID]CommandHooks
	}

	// CommandHooks are the hooks of a single command.
	CommandHooks struct {
		PreRun  string
		PostRun string
	}
)

// DefaultSettings returns the settings used when a commands file has no
// [config] table.
func DefaultSettings() Settings {
	return Settings{
		StrictMode: true,
		Timeout:    DefaultTimeout,
	}
}

// IsDeclared reports whether the [config] table set key.
func (s Settings) IsDeclared(key string) bool {
	return slices.Contains(s.Declared, key)
}

// For returns the hooks of a single command, zero when none are declared.
func (h Hooks) For(id CommandID) CommandHooks {
	return h.Commands[id]
}
