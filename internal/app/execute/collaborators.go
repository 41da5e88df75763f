// SPDX-License-Identifier: MPL-2.0

package execute

import (
	"context"

	"github.com/cmdrun/cmdrun/internal/runtime"
	"github.com/cmdrun/cmdrun/pkg/cmdfile"
	"github.com/cmdrun/cmdrun/pkg/types"
)

type (
	// LaunchRequest is one expanded line handed to a Launcher.
	LaunchRequest = runtime.Request

	// Launcher runs a line to completion. It must kill everything it
	// started when ctx ends, and then return an error wrapping ctx.Err().
	Launcher interface {
		Launch(ctx context.Context, req LaunchRequest) (types.ExitCode, error)
	}

	// ConfirmGate asks whether a command may run. It may block on user input.
	ConfirmGate interface {
		Confirm(ctx context.Context, id cmdfile.CommandID, line string) (bool, error)
	}

	// Validator vets an expanded line before launch.
	Validator interface {
		Validate(line string, allowChaining, allowSubshells bool) error
	}

	// HistorySink receives every finished run, including partial ones.
	HistorySink interface {
		Record(ctx context.Context, run RunRecord) error
	}

	// Reporter is told when commands start and finish. Calls for members
	// of a parallel group arrive concurrently.
	Reporter interface {
		CommandStarted(id cmdfile.CommandID)
		CommandFinished(result ExecutionResult)
	}

	// RunRecord is what a HistorySink receives.
	RunRecord struct {
		Root       cmdfile.CommandID
		Args       []string
		WorkingDir string
		// Env is the global and root command env as launched.
		Env     map[string]string
		Results []ExecutionResult
	}
)
