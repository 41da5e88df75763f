// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"maps"
	"os"
	"slices"

	"github.com/spf13/cobra"

	"github.com/cmdrun/cmdrun/internal/app/execute"
	"github.com/cmdrun/cmdrun/internal/history"
	"github.com/cmdrun/cmdrun/pkg/types"
)

// newHistoryCommand creates the `cmdrun history` command tree. Without a
// subcommand it lists recent runs.
func newHistoryCommand(app *App, gf *globalFlags) *cobra.Command {
	var limit int

	list := func(cmd *cobra.Command, _ []string) error {
		cmd.SilenceErrors = true
		cmd.SilenceUsage = true

		store, err := app.historyStore(cmd.Context(), gf)
		if err != nil {
			return reportError(app.stderr, err, gf.verbose)
		}
		entries, err := store.List(limit)
		if err != nil {
			return reportError(app.stderr, err, gf.verbose)
		}
		renderEntries(app.stdout, entries, "No runs recorded yet")
		return nil
	}

	historyCmd := &cobra.Command{
		Use:   "history",
		Short: "Show recorded runs",
		Long: `Show, search and summarize recorded runs. Every 'cmdrun run' is
recorded unless history is disabled in the config or --no-history is given.
Values of secret-looking variables are masked before they are stored.`,
		Args: cobra.NoArgs,
		RunE: list,
	}
	historyCmd.PersistentFlags().IntVarP(&limit, "limit", "n", 20, "maximum number of entries to show (0 for all)")

	historyCmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List recent runs, newest first",
		Args:  cobra.NoArgs,
		RunE:  list,
	})

	historyCmd.AddCommand(&cobra.Command{
		Use:   "search <query>",
		Short: "Find runs whose command line contains query",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.SilenceErrors = true
			cmd.SilenceUsage = true

			store, err := app.historyStore(cmd.Context(), gf)
			if err != nil {
				return reportError(app.stderr, err, gf.verbose)
			}
			entries, err := store.Search(args[0], limit)
			if err != nil {
				return reportError(app.stderr, err, gf.verbose)
			}
			renderEntries(app.stdout, entries, fmt.Sprintf("No runs match %q", args[0]))
			return nil
		},
	})

	historyCmd.AddCommand(&cobra.Command{
		Use:   "stats",
		Short: "Summarize recorded runs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cmd.SilenceErrors = true
			cmd.SilenceUsage = true

			store, err := app.historyStore(cmd.Context(), gf)
			if err != nil {
				return reportError(app.stderr, err, gf.verbose)
			}
			st, err := store.Stats()
			if err != nil {
				return reportError(app.stderr, err, gf.verbose)
			}
			w := app.stdout
			fmt.Fprintln(w, TitleStyle.Render("History statistics"))
			fmt.Fprintf(w, "  %s %d\n", CmdStyle.Render("total:"), st.Total)
			fmt.Fprintf(w, "  %s %s\n", CmdStyle.Render("successful:"), SuccessStyle.Render(fmt.Sprint(st.Successful)))
			fmt.Fprintf(w, "  %s %s\n", CmdStyle.Render("failed:"), ErrorStyle.Render(fmt.Sprint(st.Failed)))
			fmt.Fprintf(w, "  %s %.1f%%\n", CmdStyle.Render("success rate:"), st.SuccessRate())
			fmt.Fprintf(w, "  %s %s\n", CmdStyle.Render("average duration:"), formatDuration(st.AvgDuration))
			return nil
		},
	})

	clearCmd := &cobra.Command{
		Use:   "clear",
		Short: "Delete all recorded runs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cmd.SilenceErrors = true
			cmd.SilenceUsage = true

			store, err := app.historyStore(cmd.Context(), gf)
			if err != nil {
				return reportError(app.stderr, err, gf.verbose)
			}
			n, err := store.Clear()
			if err != nil {
				return reportError(app.stderr, err, gf.verbose)
			}
			fmt.Fprintf(app.stdout, "%s Removed %d entries\n", SuccessStyle.Render("✓"), n)
			return nil
		},
	}
	historyCmd.AddCommand(clearCmd)

	var failed bool
	lastCmd := &cobra.Command{
		Use:   "last [id]",
		Short: "Show the details of the last run, or of the run with id",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.SilenceErrors = true
			cmd.SilenceUsage = true

			store, err := app.historyStore(cmd.Context(), gf)
			if err != nil {
				return reportError(app.stderr, err, gf.verbose)
			}

			var e history.Entry
			switch {
			case len(args) == 1:
				e, err = store.Get(args[0])
			case failed:
				e, err = store.LastFailed()
			default:
				e, err = store.Last()
			}
			if errors.Is(err, history.ErrNotFound) {
				fmt.Fprintln(app.stdout, SubtitleStyle.Render("No matching run recorded"))
				return nil
			}
			if err != nil {
				return reportError(app.stderr, err, gf.verbose)
			}
			renderEntry(app.stdout, e)
			return nil
		},
	}
	lastCmd.Flags().BoolVar(&failed, "failed", false, "show the last run that did not succeed")
	historyCmd.AddCommand(lastCmd)

	var (
		format string
		output string
	)
	exportCmd := &cobra.Command{
		Use:   "export",
		Short: "Write recorded runs as JSON or CSV",
		Long: `Write recorded runs, newest first, to stdout or a file. JSON keeps
every field including per-command results; CSV has one row per run.`,
		Example: `  cmdrun history export > runs.json
  cmdrun history export --format csv --output runs.csv -n 0`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cmd.SilenceErrors = true
			cmd.SilenceUsage = true

			f := history.ExportFormat(format)
			if ok, errs := f.IsValid(); !ok {
				fmt.Fprintln(app.stderr, ErrorStyle.Render(errors.Join(errs...).Error()))
				return &ExitError{Code: types.ExitUsage}
			}

			store, err := app.historyStore(cmd.Context(), gf)
			if err != nil {
				return reportError(app.stderr, err, gf.verbose)
			}
			entries, err := store.List(limit)
			if err != nil {
				return reportError(app.stderr, err, gf.verbose)
			}

			if output == "" {
				if err := history.Export(app.stdout, entries, f); err != nil {
					return reportError(app.stderr, err, gf.verbose)
				}
				return nil
			}

			var buf bytes.Buffer
			if err := history.Export(&buf, entries, f); err != nil {
				return reportError(app.stderr, err, gf.verbose)
			}
			if err := os.WriteFile(output, buf.Bytes(), 0o644); err != nil {
				return reportError(app.stderr, err, gf.verbose)
			}
			fmt.Fprintf(app.stderr, "%s Exported %d runs to %s\n", SuccessStyle.Render("✓"), len(entries), output)
			return nil
		},
	}
	exportCmd.Flags().StringVar(&format, "format", string(history.FormatJSON), "output format (json, csv)")
	exportCmd.Flags().StringVarP(&output, "output", "o", "", "write to a file instead of stdout")
	historyCmd.AddCommand(exportCmd)

	return historyCmd
}

// historyStore opens the store configured in the user config.
func (a *App) historyStore(ctx context.Context, gf *globalFlags) (*history.Store, error) {
	cfg, err := a.loadConfig(ctx, gf)
	if err != nil {
		return nil, err
	}
	path, err := cfg.HistoryPath()
	if err != nil {
		return nil, err
	}
	return history.NewStore(path, cfg.History.MaxEntries), nil
}

// renderEntries writes one line per entry.
func renderEntries(w io.Writer, entries []history.Entry, empty string) {
	if len(entries) == 0 {
		fmt.Fprintln(w, SubtitleStyle.Render(empty))
		return
	}
	for _, e := range entries {
		fmt.Fprintf(w, "%s %s %s %s %s\n",
			statusMark(e),
			SubtitleStyle.Render(e.StartedAt.Local().Format("2006-01-02 15:04:05")),
			CmdStyle.Render(e.CommandLine()),
			VerboseStyle.Render("("+formatDuration(e.Duration)+")"),
			SubtitleStyle.Render(e.ID),
		)
	}
}

// renderEntry writes the details of one run.
func renderEntry(w io.Writer, e history.Entry) {
	fmt.Fprintf(w, "%s %s\n", statusMark(e), TitleStyle.Render(e.CommandLine()))
	fmt.Fprintf(w, "  %s %s\n", VerboseStyle.Render("id:"), e.ID)
	fmt.Fprintf(w, "  %s %s\n", VerboseStyle.Render("started:"), e.StartedAt.Local().Format("2006-01-02 15:04:05"))
	fmt.Fprintf(w, "  %s %s\n", VerboseStyle.Render("duration:"), formatDuration(e.Duration))
	fmt.Fprintf(w, "  %s %s (exit %d)\n", VerboseStyle.Render("status:"), e.Status, e.ExitCode)
	if e.WorkingDir != "" {
		fmt.Fprintf(w, "  %s %s\n", VerboseStyle.Render("dir:"), e.WorkingDir)
	}

	if len(e.Results) > 0 {
		fmt.Fprintln(w)
		for _, r := range e.Results {
			fmt.Fprintf(w, "  %s %s %s\n", CmdStyle.Render(r.Command), r.Status, VerboseStyle.Render("("+formatDuration(r.Duration)+")"))
			for _, line := range r.CommandLines {
				fmt.Fprintf(w, "    %s %s\n", VerboseStyle.Render("$"), line)
			}
			if r.Error != "" {
				fmt.Fprintf(w, "    %s\n", ErrorStyle.Render(r.Error))
			}
		}
	}

	if len(e.Env) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "  "+VerboseStyle.Render("env:"))
		for _, name := range slices.Sorted(maps.Keys(e.Env)) {
			fmt.Fprintf(w, "    %s=%s\n", name, e.Env[name])
		}
	}
}

func statusMark(e history.Entry) string {
	switch {
	case e.Success:
		return SuccessStyle.Render("✓")
	case e.Status == execute.StatusCancelled.String():
		return WarningStyle.Render("○")
	default:
		return ErrorStyle.Render("✗")
	}
}
