// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"errors"
	"fmt"
	"io"

	"github.com/cmdrun/cmdrun/internal/app/execute"
	"github.com/cmdrun/cmdrun/internal/config"
	"github.com/cmdrun/cmdrun/internal/dag"
	"github.com/cmdrun/cmdrun/internal/interpolate"
	"github.com/cmdrun/cmdrun/internal/issue"
	"github.com/cmdrun/cmdrun/internal/runtime"
	"github.com/cmdrun/cmdrun/pkg/cmdfile"
	"github.com/cmdrun/cmdrun/pkg/types"
)

// classifyExitCode maps an error that stopped a subcommand before any
// command ran to a process exit code. Configuration and plan errors are
// usage errors; everything else is a generic failure.
func classifyExitCode(err error) types.ExitCode {
	var exitErr *ExitError
	switch {
	case errors.As(err, &exitErr):
		return exitErr.Code
	case errors.Is(err, cmdfile.ErrNotFound),
		errors.Is(err, cmdfile.ErrInvalidFile),
		errors.Is(err, cmdfile.ErrUnknownCommand),
		errors.Is(err, dag.ErrUnknownDependency),
		errors.Is(err, dag.ErrCycleDetected),
		errors.Is(err, execute.ErrNoPlatformMatch),
		errors.Is(err, runtime.ErrInvalidShell),
		errors.Is(err, runtime.ErrNoShell),
		errors.Is(err, config.ErrInvalidConfig),
		errors.Is(err, interpolate.ErrUndefinedVariable),
		errors.Is(err, interpolate.ErrRequiredVariableMissing),
		errors.Is(err, interpolate.ErrRecursionLimitExceeded),
		errors.Is(err, interpolate.ErrExpansionTooLarge):
		return types.ExitUsage
	}

	// Every guide except the permission one describes a problem in the
	// commands file or configuration.
	var ae *issue.ActionableError
	if errors.As(err, &ae) && ae.Issue != 0 && ae.Issue != issue.PermissionDeniedId {
		return types.ExitUsage
	}
	return types.ExitFailure
}

// validationIssue picks the guide that best explains a plan or file error.
func validationIssue(err error) issue.Id {
	switch {
	case errors.Is(err, dag.ErrCycleDetected):
		return issue.DependencyCycleId
	case errors.Is(err, dag.ErrUnknownDependency):
		return issue.UnknownDependencyId
	case errors.Is(err, cmdfile.ErrUnknownCommand):
		return issue.CommandNotFoundId
	case errors.Is(err, execute.ErrNoPlatformMatch):
		return issue.PlatformNotSupportedId
	case errors.Is(err, runtime.ErrNoShell), errors.Is(err, runtime.ErrInvalidShell):
		return issue.ShellNotFoundId
	case errors.Is(err, interpolate.ErrUndefinedVariable),
		errors.Is(err, interpolate.ErrRequiredVariableMissing):
		return issue.UndefinedVariableId
	default:
		return issue.CommandsFileParseErrorId
	}
}

// reportError prints err to w and returns the ExitError that ends the
// subcommand. In verbose mode the Markdown guide attached to the error is
// rendered below it.
func reportError(w io.Writer, err error, verbose bool) error {
	fmt.Fprintln(w, ErrorStyle.Render("Error: ")+formatErrorForDisplay(err, verbose))

	var ae *issue.ActionableError
	if verbose && errors.As(err, &ae) {
		if guide := ae.Guide(); guide != nil {
			if rendered, renderErr := guide.Render(""); renderErr == nil {
				fmt.Fprint(w, rendered)
			}
		}
	}
	return &ExitError{Code: classifyExitCode(err)}
}
