// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/cmdrun/cmdrun/internal/config"
	"github.com/cmdrun/cmdrun/internal/issue"
)

// newConfigCommand creates the `cmdrun config` command tree.
func newConfigCommand(app *App, gf *globalFlags) *cobra.Command {
	cfgCmd := &cobra.Command{
		Use:   "config",
		Short: "Manage cmdrun configuration",
		Long: `Manage the cmdrun user configuration.

Configuration is stored in:
  - Linux: ~/.config/cmdrun/config.toml
  - macOS: ~/Library/Application Support/cmdrun/config.toml
  - Windows: %APPDATA%\cmdrun\config.toml

Every key can be overridden with a CMDRUN_ variable, e.g.
CMDRUN_HISTORY_ENABLED=false. The [config] table of a commands file
takes precedence for the keys it sets.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
	}

	cfgCmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show current configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cmd.SilenceErrors = true
			cmd.SilenceUsage = true

			cfg, err := app.loadConfig(cmd.Context(), gf)
			if err != nil {
				return reportError(app.stderr, err, gf.verbose)
			}
			showConfig(app, cfg)
			return nil
		},
	})

	var force bool
	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Create default configuration file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cmd.SilenceErrors = true
			cmd.SilenceUsage = true

			dir, err := config.ConfigDir()
			if err != nil {
				return reportError(app.stderr, err, gf.verbose)
			}
			path, err := config.Init(dir, force)
			if err != nil {
				if errors.Is(err, config.ErrConfigExists) {
					err = issue.NewErrorContext().
						WithOperation("create config").
						WithResource(path).
						WithSuggestion("Use --force to overwrite it").
						Wrap(err).
						BuildError()
				}
				return reportError(app.stderr, err, gf.verbose)
			}
			fmt.Fprintf(app.stdout, "%s Created default configuration at %s\n", SuccessStyle.Render("✓"), path)
			return nil
		},
	}
	initCmd.Flags().BoolVar(&force, "force", false, "overwrite an existing config file")
	cfgCmd.AddCommand(initCmd)

	cfgCmd.AddCommand(&cobra.Command{
		Use:   "path",
		Short: "Show configuration file path",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cmd.SilenceErrors = true
			cmd.SilenceUsage = true

			if gf.configPath != "" {
				fmt.Fprintf(app.stdout, "Config file: %s\n", gf.configPath)
				return nil
			}
			dir, err := config.ConfigDir()
			if err != nil {
				return reportError(app.stderr, err, gf.verbose)
			}
			fmt.Fprintf(app.stdout, "Config directory: %s\n", dir)
			fmt.Fprintf(app.stdout, "Config file: %s\n", config.FilePath(dir))
			return nil
		},
	})

	cfgCmd.AddCommand(&cobra.Command{
		Use:       "get <key>",
		Short:     "Print one configuration value",
		Args:      cobra.ExactArgs(1),
		ValidArgs: config.Keys(),
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.SilenceErrors = true
			cmd.SilenceUsage = true

			cfg, err := app.loadConfig(cmd.Context(), gf)
			if err != nil {
				return reportError(app.stderr, err, gf.verbose)
			}
			value, err := cfg.Get(args[0])
			if err != nil {
				return reportError(app.stderr, unknownKey(err, args[0]), gf.verbose)
			}
			fmt.Fprintln(app.stdout, value)
			return nil
		},
	})

	cfgCmd.AddCommand(&cobra.Command{
		Use:   "set <key> <value>",
		Short: "Change one configuration value",
		Long: `Change one key in the config file, creating the file when needed.
The value is validated before anything is written.`,
		Example: `  cmdrun config set shell zsh
  cmdrun config set timeout 10m
  cmdrun config set history.enabled false`,
		Args:      cobra.ExactArgs(2),
		ValidArgs: config.Keys(),
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.SilenceErrors = true
			cmd.SilenceUsage = true

			path := gf.configPath
			if path == "" {
				dir, err := config.ConfigDir()
				if err != nil {
					return reportError(app.stderr, err, gf.verbose)
				}
				path = config.FilePath(dir)
			}

			cfg, err := config.SetValue(path, args[0], args[1])
			if err != nil {
				if errors.Is(err, config.ErrUnknownKey) {
					return reportError(app.stderr, unknownKey(err, args[0]), gf.verbose)
				}
				return reportError(app.stderr, issue.NewErrorContext().
					WithOperation("set "+args[0]).
					WithResource(path).
					WithIssue(issue.ConfigLoadFailedId).
					Wrap(err).
					BuildError(), gf.verbose)
			}
			value, _ := cfg.Get(args[0])
			fmt.Fprintf(app.stdout, "%s %s = %s in %s\n", SuccessStyle.Render("✓"), args[0], value, path)
			return nil
		},
	})

	return cfgCmd
}

// unknownKey attaches the list of valid keys to a failed lookup.
func unknownKey(err error, key string) error {
	return issue.NewErrorContext().
		WithOperation("look up config key").
		WithResource(key).
		WithIssue(issue.ConfigLoadFailedId).
		WithSuggestion("Valid keys: " + strings.Join(config.Keys(), ", ")).
		Wrap(err).
		BuildError()
}

func showConfig(app *App, cfg *config.Config) {
	keyStyle := CmdStyle
	valueStyle := SuccessStyle
	w := app.stdout

	fmt.Fprintln(w, TitleStyle.Render("Current Configuration"))
	fmt.Fprintln(w)
	if cfg.Path != "" {
		fmt.Fprintf(w, "%s: %s\n", keyStyle.Render("Config file"), cfg.Path)
	} else {
		fmt.Fprintf(w, "%s: %s\n", keyStyle.Render("Config file"), SubtitleStyle.Render("(using defaults)"))
	}
	fmt.Fprintln(w)

	historyPath, err := cfg.HistoryPath()
	if err != nil {
		historyPath = err.Error()
	}

	for _, key := range config.Keys() {
		value, _ := cfg.Get(key)
		if key == "history.path" {
			value = historyPath
		}
		fmt.Fprintf(w, "%s: %s\n", keyStyle.Render(key), valueStyle.Render(value))
	}
}
