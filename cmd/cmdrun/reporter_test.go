// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"bytes"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/cmdrun/cmdrun/internal/app/execute"
)

func TestConsoleReporter(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	r := newConsoleReporter(&buf, true)

	r.CommandStarted("build")
	r.CommandFinished(execute.ExecutionResult{
		ID:           "build",
		Status:       execute.StatusSuccess,
		Duration:     1500 * time.Millisecond,
		CommandLines: []string{"go build ./..."},
	})
	r.CommandFinished(execute.ExecutionResult{
		ID:       "test",
		Status:   execute.StatusNonZeroExit,
		ExitCode: 2,
		Err:      errors.New("step 1: exit status 2"),
	})
	r.CommandFinished(execute.ExecutionResult{ID: "deploy", Status: execute.StatusCancelled})

	out := buf.String()
	assert.Contains(t, out, "▶ build")
	assert.Contains(t, out, "✓ build (1.5s)")
	assert.Contains(t, out, "$ go build ./...")
	assert.Contains(t, out, "✗ test exited with 2")
	assert.Contains(t, out, "step 1: exit status 2")
	assert.Contains(t, out, "○ deploy cancelled")
}

func TestConsoleReporter_QuietHidesLines(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	newConsoleReporter(&buf, false).CommandFinished(execute.ExecutionResult{
		ID:           "build",
		Status:       execute.StatusSuccess,
		CommandLines: []string{"go build ./..."},
	})
	assert.NotContains(t, buf.String(), "go build")
}

func TestPrintSummary(t *testing.T) {
	t.Parallel()

	start := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	ok := execute.ExecutionResult{ID: "fmt", Status: execute.StatusSuccess, StartedAt: start, Duration: time.Second}
	last := execute.ExecutionResult{ID: "build", Status: execute.StatusSuccess, StartedAt: start.Add(time.Second), Duration: time.Second}

	tests := []struct {
		name    string
		results []execute.ExecutionResult
		want    string
	}{
		{"nothing ran", nil, "build did not run"},
		{"success", []execute.ExecutionResult{ok, last}, "build finished in 2s"},
		{"failure", []execute.ExecutionResult{ok, {ID: "build", Status: execute.StatusTimedOut, StartedAt: start.Add(time.Second), Duration: 3 * time.Second}}, "build failed after 4s"},
		{"declined", []execute.ExecutionResult{ok, {ID: "build", Status: execute.StatusCancelled, StartedAt: start.Add(time.Second)}}, "build cancelled after 1s"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			var buf bytes.Buffer
			printSummary(&buf, "build", tt.results)
			assert.Contains(t, buf.String(), tt.want)
		})
	}
}

func TestFormatDuration(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "500µs", formatDuration(500*time.Microsecond))
	assert.Equal(t, "12ms", formatDuration(12345*time.Microsecond))
	assert.Equal(t, "1.23s", formatDuration(1234*time.Millisecond))
}
