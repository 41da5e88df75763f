// SPDX-License-Identifier: MPL-2.0

// Package config loads the user configuration of cmdrun with Viper.
//
// The file is TOML and lives at <config dir>/cmdrun/config.toml, where the
// config dir follows platform conventions ($XDG_CONFIG_HOME or ~/.config
// on Linux, ~/Library/Application Support on macOS, %APPDATA% on Windows).
// Every key can be overridden with a CMDRUN_ environment variable, dots
// replaced by underscores (CMDRUN_HISTORY_ENABLED=false). Values declared
// in a project's [config] table win over the user configuration.
package config
