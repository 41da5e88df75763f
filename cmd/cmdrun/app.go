// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"
	"github.com/muesli/termenv"

	"github.com/cmdrun/cmdrun/internal/app/execute"
	"github.com/cmdrun/cmdrun/internal/config"
	"github.com/cmdrun/cmdrun/internal/issue"
	"github.com/cmdrun/cmdrun/internal/runtime"
	"github.com/cmdrun/cmdrun/pkg/cmdfile"
)

type (
	// App wires CLI services and shared dependencies. It is the composition
	// root for the CLI layer: every Cobra handler receives an App and goes
	// through it for configuration, launchers and terminal I/O.
	App struct {
		Config    ConfigProvider
		Launchers LauncherFactory
		// Gate confirms commands marked confirm.
		Gate   execute.ConfirmGate
		stdin  io.Reader
		stdout io.Writer
		stderr io.Writer
	}

	// Dependencies defines the injection points for building an App. Nil
	// fields are replaced with production defaults by NewApp.
	Dependencies struct {
		Config    ConfigProvider
		Launchers LauncherFactory
		Gate      execute.ConfirmGate
		Stdin     io.Reader
		Stdout    io.Writer
		Stderr    io.Writer
	}

	// ConfigProvider loads configuration using explicit options.
	ConfigProvider interface {
		Load(ctx context.Context, opts config.LoadOptions) (*config.Config, error)
	}

	// LauncherFactory returns the launcher for a shell name.
	LauncherFactory func(shell runtime.Shell, logger *log.Logger) (execute.Launcher, error)

	// session is everything a subcommand needs after startup: the user
	// config, the commands file and the settings merged from both.
	session struct {
		cfg      *config.Config
		file     *cmdfile.File
		settings cmdfile.Settings
		logger   *log.Logger
		verbose  bool
	}
)

// NewApp creates an App with defaults for omitted dependencies.
func NewApp(deps Dependencies) (*App, error) {
	if deps.Stdin == nil {
		deps.Stdin = os.Stdin
	}
	if deps.Stdout == nil {
		deps.Stdout = os.Stdout
	}
	if deps.Stderr == nil {
		deps.Stderr = os.Stderr
	}
	if deps.Config == nil {
		deps.Config = config.NewProvider()
	}
	if deps.Launchers == nil {
		deps.Launchers = defaultLauncher
	}
	if deps.Gate == nil {
		deps.Gate = newTerminalGate(deps.Stdin, deps.Stderr)
	}

	return &App{
		Config:    deps.Config,
		Launchers: deps.Launchers,
		Gate:      deps.Gate,
		stdin:     deps.Stdin,
		stdout:    deps.Stdout,
		stderr:    deps.Stderr,
	}, nil
}

// defaultLauncher returns the runtime launcher for shell, failing early
// with runtime.ErrNoShell when no shell binary can be found.
func defaultLauncher(shell runtime.Shell, logger *log.Logger) (execute.Launcher, error) {
	l, err := runtime.NewLauncher(shell, logger)
	if err != nil {
		return nil, err
	}
	if !l.Available() {
		return nil, fmt.Errorf("%w: %s launcher for shell %q", runtime.ErrNoShell, l.Name(), shell)
	}
	if logger != nil {
		logger.Debug("launcher ready", "launcher", l.Name(), "shell", shell)
	}
	return l, nil
}

// loadConfig loads the user configuration and applies its color mode.
func (a *App) loadConfig(ctx context.Context, flags *globalFlags) (*config.Config, error) {
	cfg, err := a.Config.Load(ctx, config.LoadOptions{ConfigFilePath: flags.configPath})
	if err != nil {
		return nil, err
	}
	applyColorMode(cfg.UI.Color)
	return cfg, nil
}

// loadSession loads the user configuration, then finds and parses the
// commands file. Cross-reference checks are left to the plan builder and
// 'cmdrun validate', so a broken command does not block unrelated ones.
func (a *App) loadSession(ctx context.Context, flags *globalFlags) (*session, error) {
	cfg, err := a.loadConfig(ctx, flags)
	if err != nil {
		return nil, err
	}

	path := flags.filePath
	if path == "" {
		cwd, err := os.Getwd()
		if err != nil {
			return nil, err
		}
		path, err = cmdfile.Find(cwd, cfg.Dir)
		if err != nil {
			if errors.Is(err, cmdfile.ErrNotFound) {
				return nil, issue.NewErrorContext().
					WithOperation("find commands file").
					WithResource(cwd).
					WithSuggestion("Create a commands.toml in your project root").
					WithSuggestion("Pass an explicit file with --file").
					WithIssue(issue.CommandsFileNotFoundId).
					Wrap(err).
					BuildError()
			}
			return nil, err
		}
	}

	file, err := cmdfile.Load(path)
	if err != nil {
		return nil, issue.NewErrorContext().
			WithOperation("load commands file").
			WithResource(path).
			WithSuggestion("Run 'cmdrun validate' for details").
			WithIssue(issue.CommandsFileParseErrorId).
			Wrap(err).
			BuildError()
	}

	verbose := flags.verbose || cfg.UI.Verbose
	return &session{
		cfg:      cfg,
		file:     file,
		settings: cfg.Settings(file.Settings),
		logger:   newLogger(a.stderr, verbose, cfg.UI.Color),
		verbose:  verbose,
	}, nil
}

// newLogger returns the CLI logger: debug output with verbose, warnings
// otherwise.
func newLogger(w io.Writer, verbose bool, color config.ColorMode) *log.Logger {
	level := log.WarnLevel
	if verbose {
		level = log.DebugLevel
	}
	logger := log.NewWithOptions(w, log.Options{
		Prefix: "cmdrun",
		Level:  level,
	})
	switch color {
	case config.ColorNever:
		logger.SetColorProfile(termenv.Ascii)
	case config.ColorAlways:
		logger.SetColorProfile(termenv.TrueColor)
	}
	return logger
}

// applyColorMode forces the lipgloss color profile when ui.color is not
// auto.
func applyColorMode(mode config.ColorMode) {
	switch mode {
	case config.ColorNever:
		lipgloss.SetColorProfile(termenv.Ascii)
	case config.ColorAlways:
		lipgloss.SetColorProfile(termenv.TrueColor)
	}
}
