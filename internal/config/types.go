// SPDX-License-Identifier: MPL-2.0

package config

import (
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/cmdrun/cmdrun/internal/history"
	"github.com/cmdrun/cmdrun/internal/runtime"
	"github.com/cmdrun/cmdrun/pkg/cmdfile"
)

const (
	// ColorAuto colors output when stdout is a terminal.
	ColorAuto ColorMode = "auto"
	// ColorAlways forces colored output.
	ColorAlways ColorMode = "always"
	// ColorNever disables colors.
	ColorNever ColorMode = "never"
)

var (
	// ErrInvalidColorMode is returned when a ColorMode value is not recognized.
	ErrInvalidColorMode = errors.New("invalid color mode")
	// ErrInvalidConfig is the sentinel error wrapped by InvalidConfigError.
	ErrInvalidConfig = errors.New("invalid config")
)

type (
	// ColorMode controls colored terminal output.
	ColorMode string

	// InvalidColorModeError is returned when a ColorMode value is not recognized.
	InvalidColorModeError struct {
		Value ColorMode
	}

	// InvalidConfigError collects every field error of a Config.
	InvalidConfigError struct {
		FieldErrors []error
	}

	// Config is the user configuration.
	Config struct {
		// Shell is the default launcher shell. Empty auto-detects.
		Shell runtime.Shell `mapstructure:"shell"`
		// StrictMode turns undefined ${NAME} references into errors.
		StrictMode bool `mapstructure:"strict_mode"`
		// Timeout is the per-command timeout when neither the command nor
		// the project sets one.
		Timeout time.Duration `mapstructure:"timeout"`
		// Parallel runs execution-group members concurrently.
		Parallel bool `mapstructure:"parallel"`
		// MaxParallel caps concurrent commands in a group. Zero means no cap.
		MaxParallel int           `mapstructure:"max_parallel"`
		History     HistoryConfig `mapstructure:"history"`
		UI          UIConfig      `mapstructure:"ui"`

		// Dir is the configuration directory the file was looked up in.
		Dir string `mapstructure:"-"`
		// Path is the file that was loaded, empty when defaults were used.
		Path string `mapstructure:"-"`
	}

	// HistoryConfig configures the run history.
	HistoryConfig struct {
		Enabled    bool `mapstructure:"enabled"`
		MaxEntries int  `mapstructure:"max_entries"`
		// Path overrides <config dir>/history.json.
		Path string `mapstructure:"path"`
	}

	// UIConfig configures terminal output.
	UIConfig struct {
		Verbose bool      `mapstructure:"verbose"`
		Color   ColorMode `mapstructure:"color"`
	}
)

// DefaultConfig returns the configuration used when no file exists.
func DefaultConfig() *Config {
	return &Config{
		StrictMode: true,
		Timeout:    cmdfile.DefaultTimeout,
		History: HistoryConfig{
			Enabled:    true,
			MaxEntries: history.DefaultMaxEntries,
		},
		UI: UIConfig{Color: ColorAuto},
	}
}

// ColorModes returns every valid ColorMode.
func ColorModes() []ColorMode {
	return []ColorMode{ColorAuto, ColorAlways, ColorNever}
}

// IsValid returns whether the ColorMode is recognized. Empty means auto.
func (m ColorMode) IsValid() (bool, []error) {
	if m == "" || slices.Contains(ColorModes(), m) {
		return true, nil
	}
	return false, []error{&InvalidColorModeError{Value: m}}
}

func (m ColorMode) String() string { return string(m) }

func (e *InvalidColorModeError) Error() string {
	return fmt.Sprintf("invalid color mode %q (valid: auto, always, never)", e.Value)
}

func (e *InvalidColorModeError) Unwrap() error { return ErrInvalidColorMode }

// IsValid checks every field of the Config.
func (c Config) IsValid() (bool, []error) {
	var errs []error
	if valid, fieldErrs := c.Shell.IsValid(); !valid {
		errs = append(errs, fieldErrs...)
	}
	if valid, fieldErrs := c.UI.Color.IsValid(); !valid {
		errs = append(errs, fieldErrs...)
	}
	if c.Timeout < 0 {
		errs = append(errs, fmt.Errorf("timeout must not be negative, got %s", c.Timeout))
	}
	if c.MaxParallel < 0 {
		errs = append(errs, fmt.Errorf("max_parallel must not be negative, got %d", c.MaxParallel))
	}
	if c.History.MaxEntries < 0 {
		errs = append(errs, fmt.Errorf("history.max_entries must not be negative, got %d", c.History.MaxEntries))
	}
	if len(errs) > 0 {
		return false, []error{&InvalidConfigError{FieldErrors: errs}}
	}
	return true, nil
}

func (e *InvalidConfigError) Error() string {
	msg := fmt.Sprintf("invalid config: %d field error(s)", len(e.FieldErrors))
	for _, err := range e.FieldErrors {
		msg += "\n  - " + err.Error()
	}
	return msg
}

func (e *InvalidConfigError) Unwrap() error { return ErrInvalidConfig }
