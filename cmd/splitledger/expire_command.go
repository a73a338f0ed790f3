package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"splitledger/internal/repair"
)

func newExpireInvitesCommand(ctx *commandContext) *cobra.Command {
	var (
		dryRun bool
		flags  scopeFlags
	)

	cmd := &cobra.Command{
		Use:   "expire-invites",
		Short: "Delete unsettled revisions with expired invitations",
		Long: `Delete unsettled revisions with expired invitations.

Pending invitations sent longer ago than the configured acceptance window
pull their whole unsettled revision down with them. Only post-initial
revisions qualify; first-revision cleanup belongs to cancel-pending.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			scope, err := flags.scope()
			if err != nil {
				return err
			}
			runner, cleanup, err := ctx.newRunner("expire-invites")
			if err != nil {
				return err
			}
			defer cleanup()

			summary, err := runner.ExpireInvites(cmd.Context(), repair.Options{DryRun: dryRun, Scope: scope})
			if err != nil {
				return err
			}
			if stdoutIsTerminal() {
				out := cmd.OutOrStdout()
				for _, expired := range summary.Expired {
					fmt.Fprintf(out, "Expired %q revision %d (%d splits)\n",
						expired.SongName, expired.Revision, len(expired.Deleted))
				}
				fmt.Fprintf(out, "Deleted %d splits across %d revisions (dry-run=%v)\n",
					summary.DeletedSplits, len(summary.Expired), summary.DryRun)
				return nil
			}
			return writeJSON(cmd, summary)
		},
	}

	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Report the change-set without writing")
	flags.register(cmd, false)
	return cmd
}
