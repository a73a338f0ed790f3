package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"splitledger/internal/repair"
)

func newVerifyCommand(ctx *commandContext) *cobra.Command {
	var flags scopeFlags

	cmd := &cobra.Command{
		Use:   "verify",
		Short: "Check split data integrity",
		Long: `Check split data integrity.

Runs every integrity check (rate sums, owner flags, active revision
presence, timeseries continuity, status sequences, duplicate accounts,
revision numbering) over the songs in scope. Read-only; exits nonzero when
violations are found.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			scope, err := flags.scope()
			if err != nil {
				return err
			}
			runner, cleanup, err := ctx.newRunner("verify")
			if err != nil {
				return err
			}
			defer cleanup()

			summary, err := runner.Verify(cmd.Context(), repair.Options{Scope: scope})
			if err != nil {
				return err
			}
			if stdoutIsTerminal() {
				out := cmd.OutOrStdout()
				if summary.Healthy() {
					fmt.Fprintf(out, "Checked %d songs, no violations\n", summary.CheckedSongs)
					return nil
				}
				headers := []string{"SONG", "RELEASE", "VIOLATIONS"}
				rows := make([][]string, len(summary.Reports))
				for i, report := range summary.Reports {
					rows[i] = []string{
						formatInt64(report.SongID),
						formatInt64(report.ReleaseID),
						strings.Join(report.Violations, ", "),
					}
				}
				fmt.Fprintln(out, renderTable(headers, rows, []columnAlignment{alignRight, alignRight, alignLeft}))
			} else if err := writeJSON(cmd, summary); err != nil {
				return err
			}
			if !summary.Healthy() {
				return fmt.Errorf("integrity violations on %d of %d songs", len(summary.Reports), summary.CheckedSongs)
			}
			return nil
		},
	}

	flags.register(cmd, true)
	return cmd
}
