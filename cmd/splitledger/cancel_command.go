package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"splitledger/internal/repair"
)

func newCancelPendingCommand(ctx *commandContext) *cobra.Command {
	var (
		dryRun bool
		flags  scopeFlags
	)

	cmd := &cobra.Command{
		Use:   "cancel-pending",
		Short: "Cancel unconfirmed splits for released songs",
		Long: `Cancel unconfirmed splits for released songs.

Songs released today (or within the given window, which must not reach past
today) with pending first-revision splits get those shares reallocated back
to the owner as a regenerated active revision. Songs in scope with no
splits at all get a 100% owner split. Safe to re-run.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			scope, err := flags.scope()
			if err != nil {
				return err
			}
			runner, cleanup, err := ctx.newRunner("cancel-pending")
			if err != nil {
				return err
			}
			defer cleanup()

			summary, err := runner.CancelPending(cmd.Context(), repair.Options{DryRun: dryRun, Scope: scope})
			if err != nil {
				return err
			}
			if stdoutIsTerminal() {
				out := cmd.OutOrStdout()
				if len(summary.CreatedSplits) > 0 {
					fmt.Fprintln(out, "Regenerated splits:")
					fmt.Fprintln(out, renderTable(splitTableHeaders, splitTableRows(summary.CreatedSplits), splitTableAligns))
				}
				fmt.Fprintf(out, "Cancelled %d songs, backfilled %d, skipped %d (dry-run=%v)\n",
					summary.CancelledSongs, len(summary.BackfilledSongs), summary.SkippedSongs, summary.DryRun)
				return nil
			}
			return writeJSON(cmd, summary)
		},
	}

	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Report the change-set without writing")
	flags.register(cmd, true)
	return cmd
}
