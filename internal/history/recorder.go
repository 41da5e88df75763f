// SPDX-License-Identifier: MPL-2.0

package history

import (
	"context"

	"github.com/cmdrun/cmdrun/internal/app/execute"
	"github.com/cmdrun/cmdrun/internal/security"
)

// Recorder turns finished runs into entries of a Store.
type Recorder struct {
	Store *Store
	// KeepSecrets stores sensitive env values unmasked.
	KeepSecrets bool
}

// NewRecorder returns a Recorder that masks sensitive values.
func NewRecorder(store *Store) *Recorder {
	return &Recorder{Store: store}
}

// Record implements execute.HistorySink.
func (r *Recorder) Record(_ context.Context, run execute.RunRecord) error {
	_, err := r.Store.Add(r.entry(run))
	return err
}

func (r *Recorder) entry(run execute.RunRecord) Entry {
	e := Entry{
		Command:    string(run.Root),
		Args:       run.Args,
		WorkingDir: run.WorkingDir,
		Env:        run.Env,
		ExitCode:   int(execute.ExitCodeFor(run.Results)),
		Status:     string(execute.StatusSuccess),
		Success:    len(run.Results) > 0,
	}
	if len(run.Results) == 0 {
		e.Status = string(execute.StatusCancelled)
	}
	if !r.KeepSecrets {
		e.Env = security.MaskEnv(run.Env)
	}

	for i, res := range run.Results {
		if i == 0 {
			e.StartedAt = res.StartedAt
		}
		if end := res.StartedAt.Add(res.Duration); end.Sub(e.StartedAt) > e.Duration {
			e.Duration = end.Sub(e.StartedAt)
		}
		if !res.Success() && e.Success {
			e.Success = false
			e.Status = string(res.Status)
		}

		cr := CommandResult{
			Command:      string(res.ID),
			Status:       string(res.Status),
			ExitCode:     int(res.ExitCode),
			Duration:     res.Duration,
			CommandLines: res.CommandLines,
		}
		if res.Err != nil {
			cr.Error = res.Err.Error()
		}
		e.Results = append(e.Results, cr)
	}
	return e
}
