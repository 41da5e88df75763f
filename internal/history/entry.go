// SPDX-License-Identifier: MPL-2.0

package history

import (
	"strings"
	"time"
)

type (
	// Entry is one recorded run of a root command.
	Entry struct {
		// ID is a ULID, so ids sort by creation time.
		ID         string            `json:"id"`
		Command    string            `json:"command"`
		Args       []string          `json:"args,omitempty"`
		StartedAt  time.Time         `json:"started_at"`
		Duration   time.Duration     `json:"duration"`
		ExitCode   int               `json:"exit_code"`
		Status     string            `json:"status"`
		Success    bool              `json:"success"`
		WorkingDir string            `json:"working_dir,omitempty"`
		Env        map[string]string `json:"env,omitempty"`
		// Results holds one item per command of the plan that ran.
		Results []CommandResult `json:"results,omitempty"`
	}

	// CommandResult is the recorded outcome of one command of a run.
	CommandResult struct {
		Command      string        `json:"command"`
		Status       string        `json:"status"`
		ExitCode     int           `json:"exit_code"`
		Duration     time.Duration `json:"duration"`
		CommandLines []string      `json:"command_lines,omitempty"`
		Error        string        `json:"error,omitempty"`
	}
)

// CommandLine returns the root command and its arguments as typed.
func (e Entry) CommandLine() string {
	if len(e.Args) == 0 {
		return e.Command
	}
	return e.Command + " " + strings.Join(e.Args, " ")
}

// matches reports whether query appears in the command, its arguments or
// any launched line, ignoring case.
func (e Entry) matches(query string) bool {
	q := strings.ToLower(query)
	if strings.Contains(strings.ToLower(e.CommandLine()), q) {
		return true
	}
	for _, r := range e.Results {
		for _, line := range r.CommandLines {
			if strings.Contains(strings.ToLower(line), q) {
				return true
			}
		}
	}
	return false
}
