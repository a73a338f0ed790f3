package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"splitledger/internal/repair"
)

func newFixOwnerChangesCommand(ctx *commandContext) *cobra.Command {
	var (
		dryRun bool
		limit  int
		flags  scopeFlags
	)

	cmd := &cobra.Command{
		Use:   "fix-owner-changes",
		Short: "Repair splits after artist owner reassignment",
		Long: `Repair splits after artist owner reassignment.

Where a previous owner still holds a non-owner active split, the active
revision is archived the day before the recorded change and a new active
revision reassigns that share to the new owner. Artists with more than one
historical owner change are reported for manual fixing.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			scope, err := flags.scope()
			if err != nil {
				return err
			}
			runner, cleanup, err := ctx.newRunner("fix-owner-changes")
			if err != nil {
				return err
			}
			defer cleanup()

			summary, err := runner.FixChangedArtistOwners(cmd.Context(), repair.Options{
				DryRun: dryRun,
				Scope:  scope,
				Limit:  limit,
			})
			if err != nil {
				return err
			}
			if stdoutIsTerminal() {
				out := cmd.OutOrStdout()
				for _, artistID := range summary.ManualArtists {
					fmt.Fprintf(out, "Artist %d needs manual fixing (multiple owner changes)\n", artistID)
				}
				fmt.Fprintf(out, "Repaired %d songs across %d artists, skipped %d songs (dry-run=%v)\n",
					len(summary.RepairedSongs), summary.ArtistsFound, summary.SkippedSongs, summary.DryRun)
				return nil
			}
			return writeJSON(cmd, summary)
		},
	}

	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Report the change-set without writing")
	cmd.Flags().IntVar(&limit, "limit", 0, "Process at most this many artists (0 uses jobs.batch_limit)")
	flags.register(cmd, false)
	return cmd
}
