// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/cmdrun/cmdrun/internal/app/execute"
	"github.com/cmdrun/cmdrun/pkg/cmdfile"
)

// consoleReporter prints one line when a command starts and one when it
// finishes. Members of a parallel group report concurrently.
type consoleReporter struct {
	mu      sync.Mutex
	w       io.Writer
	verbose bool
}

func newConsoleReporter(w io.Writer, verbose bool) *consoleReporter {
	return &consoleReporter{w: w, verbose: verbose}
}

func (r *consoleReporter) CommandStarted(id cmdfile.CommandID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	fmt.Fprintf(r.w, "%s %s\n", SubtitleStyle.Render("▶"), CmdStyle.Render(string(id)))
}

func (r *consoleReporter) CommandFinished(res execute.ExecutionResult) {
	r.mu.Lock()
	defer r.mu.Unlock()

	took := VerboseStyle.Render("(" + formatDuration(res.Duration) + ")")
	switch {
	case res.Success():
		fmt.Fprintf(r.w, "%s %s %s\n", SuccessStyle.Render("✓"), CmdStyle.Render(string(res.ID)), took)
	case res.Status == execute.StatusCancelled:
		fmt.Fprintf(r.w, "%s %s %s %s\n", WarningStyle.Render("○"), CmdStyle.Render(string(res.ID)), WarningStyle.Render("cancelled"), took)
	default:
		fmt.Fprintf(r.w, "%s %s %s %s\n", ErrorStyle.Render("✗"), CmdStyle.Render(string(res.ID)), ErrorStyle.Render(statusLabel(res)), took)
		if res.Err != nil {
			fmt.Fprintf(r.w, "  %s\n", res.Err)
		}
	}
	if r.verbose {
		for _, line := range res.CommandLines {
			fmt.Fprintf(r.w, "  %s %s\n", VerboseStyle.Render("$"), line)
		}
	}
}

// statusLabel describes a result in a few words.
func statusLabel(res execute.ExecutionResult) string {
	switch res.Status {
	case execute.StatusNonZeroExit:
		return fmt.Sprintf("exited with %d", res.ExitCode)
	case execute.StatusTimedOut:
		return "timed out"
	case execute.StatusHookFailed:
		return "hook failed"
	case execute.StatusExpansionFailed:
		return "expansion failed"
	case execute.StatusRejectedByPolicy:
		return "rejected by policy"
	default:
		return res.Status.String()
	}
}

// printSummary writes the closing line of a run.
func printSummary(w io.Writer, root cmdfile.CommandID, results []execute.ExecutionResult) {
	var total time.Duration
	for _, r := range results {
		total = max(total, r.StartedAt.Add(r.Duration).Sub(results[0].StartedAt))
	}

	switch {
	case len(results) == 0:
		fmt.Fprintln(w, WarningStyle.Render(fmt.Sprintf("%s did not run", root)))
	case execute.Failed(results):
		fmt.Fprintln(w, ErrorStyle.Render(fmt.Sprintf("%s failed after %s", root, formatDuration(total))))
	case !lastSucceeded(results):
		fmt.Fprintln(w, WarningStyle.Render(fmt.Sprintf("%s cancelled after %s", root, formatDuration(total))))
	default:
		fmt.Fprintln(w, SuccessStyle.Render(fmt.Sprintf("%s finished in %s", root, formatDuration(total))))
	}
}

func lastSucceeded(results []execute.ExecutionResult) bool {
	return results[len(results)-1].Success()
}

// formatDuration rounds d for display.
func formatDuration(d time.Duration) string {
	switch {
	case d < time.Millisecond:
		return d.String()
	case d < time.Second:
		return d.Round(time.Millisecond).String()
	default:
		return d.Round(10 * time.Millisecond).String()
	}
}
