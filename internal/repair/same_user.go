package repair

import (
	"context"

	"splitledger/internal/splits"
)

// SameUserSummary reports the duplicate-consolidation change-set.
type SameUserSummary struct {
	RunID       string     `json:"run_id"`
	DryRun      bool       `json:"dry_run"`
	Updates     []SplitRef `json:"update_splits"`
	Deletes     []SplitRef `json:"delete_splits"`
	MergedSongs int        `json:"merged_songs"`
	FailedSongs int        `json:"failed_songs"`
}

// FixSameUser merges duplicate splits sharing a (song, revision, account)
// into one, summing rates and recomputing the owner flag against the song's
// actual owner. Unresolved-invitee splits never merge and locked songs are
// skipped.
func (r *Runner) FixSameUser(ctx context.Context, opts Options) (*SameUserSummary, error) {
	release, err := r.acquireLock(opts)
	if err != nil {
		return nil, err
	}
	defer release()

	summary := &SameUserSummary{RunID: NewRunID(), DryRun: opts.DryRun}
	logger := r.logger.With("job", "fix_same_user", "run_id", summary.RunID)

	locked, err := r.splits.LockedSongIDs(ctx, opts.Scope)
	if err != nil {
		return nil, err
	}
	all, err := r.splits.InScope(ctx, opts.Scope)
	if err != nil {
		return nil, err
	}
	candidates := all[:0]
	for _, split := range all {
		if _, skip := locked[split.SongID]; skip {
			continue
		}
		candidates = append(candidates, split)
	}
	if len(candidates) == 0 {
		logger.Info("no splits found")
		return summary, nil
	}

	// First pass finds the affected songs so owner lookups stay bounded,
	// second pass plans with owner flags resolved.
	owners := make(map[int64]*int64)
	for _, songID := range splits.MergeDuplicates(candidates, nil).SongIDs() {
		ownerID, err := r.catalog.SongOwnerID(ctx, songID)
		if err != nil {
			return nil, err
		}
		owners[songID] = ownerID
	}
	plan := splits.MergeDuplicates(candidates, owners)

	summary.Updates = splitRefs(plan.Updates)
	summary.Deletes = splitRefs(plan.Deletes)
	logger.Info("duplicates planned", "updates", len(plan.Updates), "deletes", len(plan.Deletes))
	if opts.DryRun || plan.IsEmpty() {
		return summary, nil
	}

	for _, songID := range plan.SongIDs() {
		err := r.splits.Tx(ctx, func(tx *splits.Tx) error {
			for _, survivor := range plan.Updates {
				if survivor.SongID != songID {
					continue
				}
				if err := tx.Update(ctx, survivor); err != nil {
					return err
				}
			}
			var doomed []int64
			for _, dup := range plan.Deletes {
				if dup.SongID == songID {
					doomed = append(doomed, dup.ID)
				}
			}
			_, err := tx.Delete(ctx, doomed...)
			return err
		})
		if err != nil {
			summary.FailedSongs++
			logger.Error("merge failed", "song_id", songID, "error", err)
			continue
		}
		summary.MergedSongs++
	}

	logger.Info("duplicates merged", "merged_songs", summary.MergedSongs, "failed_songs", summary.FailedSongs)
	return summary, nil
}
