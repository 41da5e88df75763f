// SPDX-License-Identifier: MPL-2.0

package history

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"
)

// Export formats.
const (
	FormatJSON ExportFormat = "json"
	FormatCSV  ExportFormat = "csv"
)

// ErrInvalidExportFormat is the sentinel error wrapped by
// InvalidExportFormatError.
var ErrInvalidExportFormat = errors.New("invalid export format")

type (
	// ExportFormat selects how Export writes entries.
	ExportFormat string

	// InvalidExportFormatError is returned for an unknown ExportFormat.
	InvalidExportFormatError struct {
		Value ExportFormat
	}
)

var csvHeader = []string{"id", "started_at", "command", "args", "status", "exit_code", "success", "duration_ms", "working_dir"}

// Error implements the error interface.
func (e *InvalidExportFormatError) Error() string {
	return fmt.Sprintf("invalid export format %q (expected json or csv)", string(e.Value))
}

// Unwrap returns ErrInvalidExportFormat.
func (e *InvalidExportFormatError) Unwrap() error { return ErrInvalidExportFormat }

// IsValid returns whether the format is known, and a list of validation
// errors if it is not.
func (f ExportFormat) IsValid() (bool, []error) {
	switch f {
	case FormatJSON, FormatCSV:
		return true, nil
	default:
		return false, []error{&InvalidExportFormatError{Value: f}}
	}
}

// Export writes entries to w. JSON keeps every field, including per-command
// results and the recorded env; CSV has one row per run.
func Export(w io.Writer, entries []Entry, format ExportFormat) error {
	if ok, errs := format.IsValid(); !ok {
		return errors.Join(errs...)
	}
	if entries == nil {
		entries = []Entry{}
	}

	if format == FormatJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(fileFormat{Entries: entries}); err != nil {
			return fmt.Errorf("failed to encode history: %w", err)
		}
		return nil
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return fmt.Errorf("failed to write csv: %w", err)
	}
	for _, e := range entries {
		row := []string{
			e.ID,
			e.StartedAt.UTC().Format(time.RFC3339),
			e.Command,
			strings.Join(e.Args, " "),
			e.Status,
			strconv.Itoa(e.ExitCode),
			strconv.FormatBool(e.Success),
			strconv.FormatInt(e.Duration.Milliseconds(), 10),
			e.WorkingDir,
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("failed to write csv: %w", err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("failed to write csv: %w", err)
	}
	return nil
}
