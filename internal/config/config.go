// SPDX-License-Identifier: MPL-2.0

package config

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	goruntime "runtime"
	"strconv"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/viper"

	"github.com/cmdrun/cmdrun/internal/history"
	"github.com/cmdrun/cmdrun/internal/issue"
	"github.com/cmdrun/cmdrun/pkg/cmdfile"
	"github.com/cmdrun/cmdrun/pkg/cueutil"
)

const (
	// AppName is the application name.
	AppName = "cmdrun"
	// ConfigFileName is the name of the config file (without extension).
	ConfigFileName = "config"
	// ConfigFileExt is the config file extension.
	ConfigFileExt = "toml"
	// EnvPrefix prefixes environment overrides, e.g. CMDRUN_SHELL.
	EnvPrefix = "CMDRUN"
)

// ErrConfigExists is returned by Init when the file is already there.
var ErrConfigExists = errors.New("config file already exists")

type (
	// fileFormat is the on-disk layout written by Init.
	fileFormat struct {
		Shell       string        `toml:"shell"`
		StrictMode  bool          `toml:"strict_mode"`
		Timeout     string        `toml:"timeout"`
		Parallel    bool          `toml:"parallel"`
		MaxParallel int           `toml:"max_parallel"`
		History     historyFormat `toml:"history"`
		UI          uiFormat      `toml:"ui"`
	}

	historyFormat struct {
		Enabled    bool   `toml:"enabled"`
		MaxEntries int    `toml:"max_entries"`
		Path       string `toml:"path,omitempty"`
	}

	uiFormat struct {
		Verbose bool   `toml:"verbose"`
		Color   string `toml:"color"`
	}
)

// ConfigDir returns the cmdrun configuration directory using platform
// conventions: Windows uses %APPDATA%, macOS ~/Library/Application Support,
// Linux and others $XDG_CONFIG_HOME (defaulting to ~/.config).
//
//nolint:revive // ConfigDir is more descriptive than Dir for external callers
func ConfigDir() (string, error) {
	var configDir string

	switch goruntime.GOOS {
	case "windows":
		configDir = os.Getenv("APPDATA")
		if configDir == "" {
			configDir = filepath.Join(os.Getenv("USERPROFILE"), "AppData", "Roaming")
		}
	case "darwin":
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		configDir = filepath.Join(home, "Library", "Application Support")
	default:
		configDir = os.Getenv("XDG_CONFIG_HOME")
		if configDir == "" {
			home, err := os.UserHomeDir()
			if err != nil {
				return "", fmt.Errorf("failed to get home directory: %w", err)
			}
			configDir = filepath.Join(home, ".config")
		}
	}

	return filepath.Join(configDir, AppName), nil
}

// FilePath returns the config file location inside dir.
func FilePath(dir string) string {
	return filepath.Join(dir, ConfigFileName+"."+ConfigFileExt)
}

// loadWithOptions reads defaults, then the config file, then CMDRUN_
// environment overrides. A missing default file is not an error; a missing
// explicit file is.
func loadWithOptions(ctx context.Context, opts LoadOptions) (*Config, error) {
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("load config canceled: %w", ctx.Err())
	default:
	}

	v := viper.New()
	v.SetConfigType(ConfigFileExt)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	defaults := DefaultConfig()
	v.SetDefault("shell", string(defaults.Shell))
	v.SetDefault("strict_mode", defaults.StrictMode)
	v.SetDefault("timeout", defaults.Timeout)
	v.SetDefault("parallel", defaults.Parallel)
	v.SetDefault("max_parallel", defaults.MaxParallel)
	v.SetDefault("history.enabled", defaults.History.Enabled)
	v.SetDefault("history.max_entries", defaults.History.MaxEntries)
	v.SetDefault("history.path", defaults.History.Path)
	v.SetDefault("ui.verbose", defaults.UI.Verbose)
	v.SetDefault("ui.color", string(defaults.UI.Color))

	dir, dirErr := configDirWithOverride(opts.ConfigDirPath)

	path := opts.ConfigFilePath
	if path != "" {
		if !fileExists(path) {
			return nil, issue.NewErrorContext().
				WithOperation("load configuration").
				WithResource(path).
				WithSuggestion("Verify the file path is correct").
				WithSuggestion("Use 'cmdrun config init' to create a default configuration").
				WithIssue(issue.ConfigLoadFailedId).
				Wrap(fmt.Errorf("config file not found: %s", path)).
				BuildError()
		}
		if dirErr != nil {
			dir, dirErr = filepath.Dir(path), nil
		}
	} else {
		if dirErr != nil {
			return nil, dirErr
		}
		if candidate := FilePath(dir); fileExists(candidate) {
			path = candidate
		}
	}

	if path != "" {
		if err := readInto(v, path); err != nil {
			return nil, issue.NewErrorContext().
				WithOperation("load configuration").
				WithResource(path).
				WithSuggestion("Check that the file contains valid TOML").
				WithSuggestion("See 'cmdrun config show' for the expected keys").
				WithIssue(issue.ConfigLoadFailedId).
				Wrap(err).
				BuildError()
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg, decodeHook()); err != nil {
		return nil, issue.NewErrorContext().
			WithOperation("parse configuration").
			WithResource(path).
			WithIssue(issue.ConfigLoadFailedId).
			Wrap(err).
			BuildError()
	}
	cfg.Dir = dir
	cfg.Path = path

	if valid, errs := cfg.IsValid(); !valid {
		return nil, issue.NewErrorContext().
			WithOperation("validate configuration").
			WithResource(path).
			WithSuggestion("Valid shells: bash, sh, zsh, pwsh, powershell, cmd, virtual").
			WithSuggestion("Durations are strings such as \"90s\" or integer seconds").
			WithIssue(issue.ConfigLoadFailedId).
			Wrap(errors.Join(errs...)).
			BuildError()
	}

	return &cfg, nil
}

func configDirWithOverride(configDirPath string) (string, error) {
	if configDirPath != "" {
		return configDirPath, nil
	}
	return ConfigDir()
}

func readInto(v *viper.Viper, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	if err := cueutil.CheckFileSize(data, cueutil.DefaultMaxFileSize, path); err != nil {
		return err
	}
	if err := v.ReadConfig(strings.NewReader(string(data))); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}
	return nil
}

func decodeHook() viper.DecoderConfigOption {
	return viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		secondsToDurationHook,
		mapstructure.StringToTimeDurationHookFunc(),
	))
}

// secondsToDurationHook reads bare numbers as seconds, matching the
// commands file, before the stock string hook sees them.
func secondsToDurationHook(_ reflect.Type, to reflect.Type, data any) (any, error) {
	if to != reflect.TypeFor[time.Duration]() {
		return data, nil
	}
	switch n := data.(type) {
	case int:
		return time.Duration(n) * time.Second, nil
	case int64:
		return time.Duration(n) * time.Second, nil
	case float64:
		return time.Duration(n * float64(time.Second)), nil
	case string:
		if secs, err := strconv.Atoi(strings.TrimSpace(n)); err == nil {
			return time.Duration(secs) * time.Second, nil
		}
	}
	return data, nil
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

// Settings returns project overlaid on the user configuration: every
// [config] key the project declares wins, the rest comes from c.
func (c *Config) Settings(project cmdfile.Settings) cmdfile.Settings {
	s := project
	if !project.IsDeclared("shell") {
		s.Shell = string(c.Shell)
	}
	if !project.IsDeclared("strict_mode") {
		s.StrictMode = c.StrictMode
	}
	if !project.IsDeclared("parallel") {
		s.Parallel = c.Parallel
	}
	if !project.IsDeclared("timeout") {
		s.Timeout = c.Timeout
	}
	return s
}

// HistoryPath returns where runs are recorded. A leading "~/" in
// history.path is expanded.
func (c *Config) HistoryPath() (string, error) {
	p := c.History.Path
	if p == "" {
		return filepath.Join(c.Dir, history.FileName), nil
	}
	if rest, ok := strings.CutPrefix(p, "~/"); ok {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		p = filepath.Join(home, rest)
	}
	return p, nil
}

// Encode renders cfg in the on-disk TOML layout.
func Encode(cfg *Config) ([]byte, error) {
	f := fileFormat{
		Shell:       string(cfg.Shell),
		StrictMode:  cfg.StrictMode,
		Timeout:     cfg.Timeout.String(),
		Parallel:    cfg.Parallel,
		MaxParallel: cfg.MaxParallel,
		History: historyFormat{
			Enabled:    cfg.History.Enabled,
			MaxEntries: cfg.History.MaxEntries,
			Path:       cfg.History.Path,
		},
		UI: uiFormat{
			Verbose: cfg.UI.Verbose,
			Color:   string(cfg.UI.Color),
		},
	}
	data, err := toml.Marshal(f)
	if err != nil {
		return nil, fmt.Errorf("failed to encode config: %w", err)
	}
	header := "# cmdrun configuration. Keys can be overridden with CMDRUN_<KEY> variables.\n\n"
	return append([]byte(header), data...), nil
}

// Init writes the default configuration into dir and returns the file
// path. An existing file is kept unless force is set.
func Init(dir string, force bool) (string, error) {
	path := FilePath(dir)
	if !force && fileExists(path) {
		return path, fmt.Errorf("%w: %s", ErrConfigExists, path)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := Encode(DefaultConfig())
	if err != nil {
		return "", err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("failed to write config file: %w", err)
	}
	return path, nil
}
