package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"splitledger/internal/repair"
)

func newRepairCommand(ctx *commandContext) *cobra.Command {
	var (
		fixType string
		dryRun  bool
		flags   scopeFlags
	)

	cmd := &cobra.Command{
		Use:   "repair",
		Short: "Repair broken splits",
		Long: `Repair broken splits.

Fix types:
  invalid_owner  correct is_owner flags that disagree with the release's
                 main primary artist owner
  same_user      merge duplicate splits for the same account within one
                 (song, revision) into a single split`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if fixType == "" {
				return fmt.Errorf("specify what type of fix to run with --fix-type")
			}
			scope, err := flags.scope()
			if err != nil {
				return err
			}
			runner, cleanup, err := ctx.newRunner("repair")
			if err != nil {
				return err
			}
			defer cleanup()

			opts := repair.Options{DryRun: dryRun, Scope: scope}
			switch fixType {
			case "invalid_owner":
				summary, err := runner.FixInvalidOwner(cmd.Context(), opts)
				if err != nil {
					return err
				}
				return emitOwnerFlagSummary(cmd, summary)
			case "same_user":
				summary, err := runner.FixSameUser(cmd.Context(), opts)
				if err != nil {
					return err
				}
				return emitSameUserSummary(cmd, summary)
			default:
				return fmt.Errorf("%s is not a valid option for --fix-type", fixType)
			}
		},
	}

	cmd.Flags().StringVar(&fixType, "fix-type", "", "Fix to run: invalid_owner or same_user")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Report the change-set without writing")
	flags.register(cmd, true)
	return cmd
}

func emitOwnerFlagSummary(cmd *cobra.Command, summary *repair.OwnerFlagSummary) error {
	if stdoutIsTerminal() {
		out := cmd.OutOrStdout()
		if len(summary.FlagCleared) > 0 {
			fmt.Fprintln(out, "Splits with is_owner set but a different owner:")
			fmt.Fprintln(out, renderTable(splitTableHeaders, splitTableRows(summary.FlagCleared), splitTableAligns))
		}
		if len(summary.FlagSet) > 0 {
			fmt.Fprintln(out, "Owner splits missing the is_owner flag:")
			fmt.Fprintln(out, renderTable(splitTableHeaders, splitTableRows(summary.FlagSet), splitTableAligns))
		}
		fmt.Fprintf(out, "Updated %d splits (dry-run=%v)\n", summary.Updated, summary.DryRun)
		return nil
	}
	return writeJSON(cmd, summary)
}

func emitSameUserSummary(cmd *cobra.Command, summary *repair.SameUserSummary) error {
	if stdoutIsTerminal() {
		out := cmd.OutOrStdout()
		if len(summary.Updates) > 0 {
			fmt.Fprintln(out, "Surviving splits after merge:")
			fmt.Fprintln(out, renderTable(splitTableHeaders, splitTableRows(summary.Updates), splitTableAligns))
		}
		if len(summary.Deletes) > 0 {
			fmt.Fprintln(out, "Duplicate splits to delete:")
			fmt.Fprintln(out, renderTable(splitTableHeaders, splitTableRows(summary.Deletes), splitTableAligns))
		}
		fmt.Fprintf(out, "Merged %d songs (dry-run=%v)\n", summary.MergedSongs, summary.DryRun)
		return nil
	}
	return writeJSON(cmd, summary)
}
