// SPDX-License-Identifier: MPL-2.0

package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/cmdrun/cmdrun/internal/runtime"
)

// ErrUnknownKey is the sentinel error wrapped by UnknownKeyError.
var ErrUnknownKey = errors.New("unknown config key")

type (
	// UnknownKeyError is returned by Get and Set for a key that is not
	// part of the configuration.
	UnknownKeyError struct {
		Key string
	}

	// key binds a dotted config key to its field.
	key struct {
		name string
		get  func(*Config) string
		set  func(*Config, string) error
	}
)

var keys = []key{
	{
		name: "shell",
		get: func(c *Config) string {
			if c.Shell == runtime.ShellAuto {
				return "auto"
			}
			return string(c.Shell)
		},
		set: func(c *Config, v string) error {
			if v == "auto" {
				v = ""
			}
			c.Shell = runtime.Shell(v)
			return nil
		},
	},
	{
		name: "strict_mode",
		get:  func(c *Config) string { return strconv.FormatBool(c.StrictMode) },
		set:  func(c *Config, v string) error { return setBool(&c.StrictMode, v) },
	},
	{
		name: "timeout",
		get:  func(c *Config) string { return c.Timeout.String() },
		set: func(c *Config, v string) error {
			if secs, err := strconv.Atoi(v); err == nil {
				c.Timeout = time.Duration(secs) * time.Second
				return nil
			}
			d, err := time.ParseDuration(v)
			if err != nil {
				return err
			}
			c.Timeout = d
			return nil
		},
	},
	{
		name: "parallel",
		get:  func(c *Config) string { return strconv.FormatBool(c.Parallel) },
		set:  func(c *Config, v string) error { return setBool(&c.Parallel, v) },
	},
	{
		name: "max_parallel",
		get:  func(c *Config) string { return strconv.Itoa(c.MaxParallel) },
		set:  func(c *Config, v string) error { return setInt(&c.MaxParallel, v) },
	},
	{
		name: "history.enabled",
		get:  func(c *Config) string { return strconv.FormatBool(c.History.Enabled) },
		set:  func(c *Config, v string) error { return setBool(&c.History.Enabled, v) },
	},
	{
		name: "history.max_entries",
		get:  func(c *Config) string { return strconv.Itoa(c.History.MaxEntries) },
		set:  func(c *Config, v string) error { return setInt(&c.History.MaxEntries, v) },
	},
	{
		name: "history.path",
		get:  func(c *Config) string { return c.History.Path },
		set:  func(c *Config, v string) error { c.History.Path = v; return nil },
	},
	{
		name: "ui.verbose",
		get:  func(c *Config) string { return strconv.FormatBool(c.UI.Verbose) },
		set:  func(c *Config, v string) error { return setBool(&c.UI.Verbose, v) },
	},
	{
		name: "ui.color",
		get:  func(c *Config) string { return c.UI.Color.String() },
		set:  func(c *Config, v string) error { c.UI.Color = ColorMode(v); return nil },
	},
}

// Error implements the error interface.
func (e *UnknownKeyError) Error() string {
	return fmt.Sprintf("unknown config key %q (valid: %s)", e.Key, strings.Join(Keys(), ", "))
}

// Unwrap returns ErrUnknownKey.
func (e *UnknownKeyError) Unwrap() error { return ErrUnknownKey }

// Keys lists every dotted config key in display order.
func Keys() []string {
	names := make([]string, len(keys))
	for i, k := range keys {
		names[i] = k.name
	}
	return names
}

func lookupKey(name string) (key, error) {
	for _, k := range keys {
		if k.name == name {
			return k, nil
		}
	}
	return key{}, &UnknownKeyError{Key: name}
}

// Get returns the value of a dotted key as `config show` prints it.
func (c *Config) Get(name string) (string, error) {
	k, err := lookupKey(name)
	if err != nil {
		return "", err
	}
	return k.get(c), nil
}

// Set parses value into the field behind a dotted key. The result is not
// validated; see IsValid.
func (c *Config) Set(name, value string) error {
	k, err := lookupKey(name)
	if err != nil {
		return err
	}
	if err := k.set(c, strings.TrimSpace(value)); err != nil {
		return fmt.Errorf("invalid value %q for %s: %w", value, name, err)
	}
	return nil
}

// SetValue updates one key in the config file at path, creating the file
// from defaults when it does not exist. Environment overrides are not
// applied, so they never leak into the file. It returns the saved config.
func SetValue(path, name, value string) (*Config, error) {
	cfg := DefaultConfig()
	if fileExists(path) {
		v := viper.New()
		v.SetConfigType(ConfigFileExt)
		if err := readInto(v, path); err != nil {
			return nil, err
		}
		if err := v.Unmarshal(cfg, decodeHook()); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	if err := cfg.Set(name, value); err != nil {
		return nil, err
	}
	if ok, errs := cfg.IsValid(); !ok {
		return nil, errors.Join(errs...)
	}

	data, err := Encode(cfg)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return nil, fmt.Errorf("failed to write config file: %w", err)
	}
	cfg.Path = path
	return cfg, nil
}

func setBool(dst *bool, v string) error {
	b, err := strconv.ParseBool(v)
	if err != nil {
		return err
	}
	*dst = b
	return nil
}

func setInt(dst *int, v string) error {
	n, err := strconv.Atoi(v)
	if err != nil {
		return err
	}
	*dst = n
	return nil
}
