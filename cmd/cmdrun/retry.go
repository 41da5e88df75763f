// SPDX-License-Identifier: MPL-2.0

package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cmdrun/cmdrun/internal/history"
)

// newRetryCommand creates the `cmdrun retry` command.
func newRetryCommand(app *App, gf *globalFlags) *cobra.Command {
	rf := &runFlags{}

	cmd := &cobra.Command{
		Use:   "retry [id]",
		Short: "Run the last failed run again",
		Long: `Run the last recorded run that did not succeed again, with the same
command and arguments. Pass a history id to retry a specific run instead.
The commands file is read again, so edits made since the failure apply.`,
		Example: `  # Retry the last failure
  cmdrun retry

  # Retry a specific run from 'cmdrun history'
  cmdrun retry 01J9Z3QK5V6M8B7W2X4Y0N1C2D`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.SilenceErrors = true
			cmd.SilenceUsage = true

			store, err := app.historyStore(cmd.Context(), gf)
			if err != nil {
				return reportError(app.stderr, err, gf.verbose)
			}

			var e history.Entry
			if len(args) == 1 {
				e, err = store.Get(args[0])
			} else {
				e, err = store.LastFailed()
			}
			if errors.Is(err, history.ErrNotFound) {
				if len(args) == 1 {
					fmt.Fprintf(app.stdout, "%s\n", SubtitleStyle.Render("No run recorded with id "+args[0]))
					return nil
				}
				fmt.Fprintln(app.stdout, SubtitleStyle.Render("No failed run to retry"))
				return nil
			}
			if err != nil {
				return reportError(app.stderr, err, gf.verbose)
			}

			fmt.Fprintf(app.stderr, "%s %s %s\n", WarningStyle.Render("↻"), CmdStyle.Render(e.CommandLine()), SubtitleStyle.Render("("+e.ID+")"))
			return app.runCommand(cmd.Context(), gf, *rf, e.Command, e.Args)
		},
	}
	rf.register(cmd)

	return cmd
}
