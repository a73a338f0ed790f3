package repair

import (
	"context"
	"sort"

	"splitledger/internal/splits"
)

// OwnerFlagSummary reports what the owner-flag job found and changed.
type OwnerFlagSummary struct {
	RunID        string     `json:"run_id"`
	DryRun       bool       `json:"dry_run"`
	FlagCleared  []SplitRef `json:"flag_cleared"`
	FlagSet      []SplitRef `json:"flag_set"`
	Updated      int        `json:"updated"`
	SkippedSongs int        `json:"skipped_songs"`
	FailedSongs  int        `json:"failed_songs"`
}

// FixInvalidOwner corrects is_owner flags that disagree with the actual
// owner of each song's release main primary artist: wrongly-set flags are
// cleared and missing flags on true owner splits are set. Songs with locked
// splits are skipped.
func (r *Runner) FixInvalidOwner(ctx context.Context, opts Options) (*OwnerFlagSummary, error) {
	release, err := r.acquireLock(opts)
	if err != nil {
		return nil, err
	}
	defer release()

	summary := &OwnerFlagSummary{RunID: NewRunID(), DryRun: opts.DryRun}
	logger := r.logger.With("job", "fix_invalid_owner", "run_id", summary.RunID)

	locked, err := r.splits.LockedSongIDs(ctx, opts.Scope)
	if err != nil {
		return nil, err
	}

	wrongTrue, err := r.splits.InvalidTrueOwner(ctx, opts.Scope)
	if err != nil {
		return nil, err
	}
	wrongFalse, err := r.splits.InvalidFalseOwner(ctx, opts.Scope)
	if err != nil {
		return nil, err
	}

	type songFix struct {
		clear []int64
		set   []int64
	}
	bySong := make(map[int64]*songFix)
	fix := func(songID int64) *songFix {
		if f, ok := bySong[songID]; ok {
			return f
		}
		f := &songFix{}
		bySong[songID] = f
		return f
	}
	skipped := make(map[int64]struct{})
	for _, split := range wrongTrue {
		if _, skip := locked[split.SongID]; skip {
			skipped[split.SongID] = struct{}{}
			continue
		}
		fix(split.SongID).clear = append(fix(split.SongID).clear, split.ID)
		summary.FlagCleared = append(summary.FlagCleared, newSplitRef(split))
	}
	for _, split := range wrongFalse {
		if _, skip := locked[split.SongID]; skip {
			skipped[split.SongID] = struct{}{}
			continue
		}
		fix(split.SongID).set = append(fix(split.SongID).set, split.ID)
		summary.FlagSet = append(summary.FlagSet, newSplitRef(split))
	}
	summary.SkippedSongs = len(skipped)

	logger.Info("owner flags inspected",
		"flag_cleared", len(summary.FlagCleared),
		"flag_set", len(summary.FlagSet),
		"skipped_songs", summary.SkippedSongs,
	)
	if opts.DryRun {
		return summary, nil
	}

	songIDs := make([]int64, 0, len(bySong))
	for songID := range bySong {
		songIDs = append(songIDs, songID)
	}
	sort.Slice(songIDs, func(i, j int) bool { return songIDs[i] < songIDs[j] })

	for _, songID := range songIDs {
		f := bySong[songID]
		err := r.splits.Tx(ctx, func(tx *splits.Tx) error {
			if err := tx.SetIsOwner(ctx, false, f.clear...); err != nil {
				return err
			}
			return tx.SetIsOwner(ctx, true, f.set...)
		})
		if err != nil {
			summary.FailedSongs++
			logger.Error("owner flag fix failed", "song_id", songID, "error", err)
			continue
		}
		summary.Updated += len(f.clear) + len(f.set)
	}

	logger.Info("owner flags fixed", "updated", summary.Updated, "failed_songs", summary.FailedSongs)
	return summary, nil
}
