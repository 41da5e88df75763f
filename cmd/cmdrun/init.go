// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"github.com/cmdrun/cmdrun/internal/issue"
	"github.com/cmdrun/cmdrun/pkg/cmdfile"
)

//go:embed templates/*.toml
var templateFS embed.FS

// errFileExists is returned by init when the target exists and --force is off.
var errFileExists = errors.New("commands file already exists")

// templateNames lists the embedded commands file templates.
func templateNames() []string {
	entries, _ := fs.ReadDir(templateFS, "templates")
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, strings.TrimSuffix(e.Name(), ".toml"))
	}
	slices.Sort(names)
	return names
}

func commandsTemplate(name string) ([]byte, error) {
	data, err := templateFS.ReadFile("templates/" + name + ".toml")
	if err != nil {
		return nil, issue.NewErrorContext().
			WithOperation("create commands file").
			WithResource(name).
			WithIssue(issue.CommandsFileParseErrorId).
			WithSuggestion("Available templates: " + strings.Join(templateNames(), ", ")).
			Wrap(fmt.Errorf("unknown template %q", name)).
			BuildError()
	}
	return data, nil
}

// newInitCommand creates the `cmdrun init` command.
func newInitCommand(app *App, gf *globalFlags) *cobra.Command {
	var (
		force    bool
		template string
	)

	cmd := &cobra.Command{
		Use:   "init [file]",
		Short: "Create a commands file in the current directory",
		Long: `Create a starter commands file with example commands.

Without an argument the file is written to ./` + cmdfile.FileNames[0] + `.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.SilenceErrors = true
			cmd.SilenceUsage = true

			path := cmdfile.FileNames[0]
			if len(args) > 0 {
				path = args[0]
			}
			abs, err := writeCommandsFile(path, template, force)
			if err != nil {
				return reportError(app.stderr, err, gf.verbose)
			}

			fmt.Fprintf(app.stdout, "%s Created %s\n", SuccessStyle.Render("✓"), abs)
			fmt.Fprintln(app.stdout)
			fmt.Fprintln(app.stdout, SubtitleStyle.Render("Next steps:"))
			fmt.Fprintln(app.stdout, "  1. Edit the file to add your commands")
			fmt.Fprintln(app.stdout, "  2. Run 'cmdrun list' to see available commands")
			fmt.Fprintln(app.stdout, "  3. Run 'cmdrun run <command>' to execute a command")
			return nil
		},
	}

	cmd.Flags().BoolVarP(&force, "force", "f", false, "overwrite an existing commands file")
	cmd.Flags().StringVarP(&template, "template", "t", "default", "template to use ("+strings.Join(templateNames(), ", ")+")")
	_ = cmd.RegisterFlagCompletionFunc("template", func(*cobra.Command, []string, string) ([]string, cobra.ShellCompDirective) {
		return templateNames(), cobra.ShellCompDirectiveNoFileComp
	})

	return cmd
}

// writeCommandsFile writes the named template to path and returns the
// absolute path written.
func writeCommandsFile(path, template string, force bool) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}
	data, err := commandsTemplate(template)
	if err != nil {
		return abs, err
	}

	if _, err := os.Stat(abs); err == nil && !force {
		return abs, issue.NewErrorContext().
			WithOperation("create commands file").
			WithResource(abs).
			WithSuggestion("Use --force to overwrite it").
			Wrap(errFileExists).
			BuildError()
	}

	if err := os.MkdirAll(filepath.Dir(abs), 0o755); err != nil {
		return abs, fmt.Errorf("create directory: %w", err)
	}
	if err := os.WriteFile(abs, data, 0o644); err != nil {
		return abs, fmt.Errorf("failed to write file: %w", err)
	}
	return abs, nil
}
