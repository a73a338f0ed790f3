package repair

import (
	"context"
	"log/slog"
	"sort"

	"github.com/shopspring/decimal"

	"splitledger/internal/splits"
)

// CancelSummary reports the cancellation job's work.
type CancelSummary struct {
	RunID           string     `json:"run_id"`
	DryRun          bool       `json:"dry_run"`
	CancelledSongs  int        `json:"cancelled_songs"`
	DeletedSplits   int        `json:"deleted_splits"`
	CreatedSplits   []SplitRef `json:"created_splits"`
	BackfilledSongs []int64    `json:"backfilled_songs,omitempty"`
	SkippedSongs    int        `json:"skipped_songs"`
	FailedSongs     int        `json:"failed_songs"`
}

// CancelPending reallocates unconfirmed first-revision splits back to the
// owner for songs whose release date has passed. Confirmed collaborator
// splits survive into the regenerated active revision; pending rates and
// the owner's own share fold into a single owner split. Songs in scope with
// no splits at all get a 100% owner split backfilled. Safe to re-run: the
// job deletes what it cancels.
func (r *Runner) CancelPending(ctx context.Context, opts Options) (*CancelSummary, error) {
	today := opts.today()
	if !opts.Scope.HasDateRange() {
		day := today
		opts.Scope.From = &day
		opts.Scope.To = &day
	}
	if opts.Scope.To.After(today) {
		return nil, ErrFutureWindow
	}

	release, err := r.acquireLock(opts)
	if err != nil {
		return nil, err
	}
	defer release()

	summary := &CancelSummary{RunID: NewRunID(), DryRun: opts.DryRun}
	logger := r.logger.With("job", "cancel_pending", "run_id", summary.RunID)

	grouped, err := r.splits.PendingFirstRevision(ctx, opts.Scope)
	if err != nil {
		return nil, err
	}
	locked, err := r.splits.LockedSongIDs(ctx, opts.Scope)
	if err != nil {
		return nil, err
	}
	logger.Info("unsettled released songs found", "songs", len(grouped))

	songIDs := make([]int64, 0, len(grouped))
	for songID := range grouped {
		songIDs = append(songIDs, songID)
	}
	sort.Slice(songIDs, func(i, j int) bool { return songIDs[i] < songIDs[j] })

	for _, songID := range songIDs {
		if _, skip := locked[songID]; skip {
			summary.SkippedSongs++
			continue
		}
		regenerated, err := r.regenerateSong(ctx, songID, grouped[songID], opts.DryRun, logger)
		if err != nil {
			summary.FailedSongs++
			logger.Error("cancellation failed", "song_id", songID, "error", err)
			continue
		}
		if regenerated == nil {
			summary.SkippedSongs++
			continue
		}
		summary.CancelledSongs++
		summary.DeletedSplits += len(grouped[songID])
		summary.CreatedSplits = append(summary.CreatedSplits, splitRefs(regenerated)...)
	}

	if err := r.backfillMissing(ctx, opts, summary, logger); err != nil {
		return nil, err
	}

	logger.Info("cancellation finished",
		"cancelled_songs", summary.CancelledSongs,
		"created_splits", len(summary.CreatedSplits),
		"backfilled_songs", len(summary.BackfilledSongs),
		"skipped_songs", summary.SkippedSongs,
		"failed_songs", summary.FailedSongs,
	)
	return summary, nil
}

// regenerateSong computes the replacement active revision for one song and
// applies it in a single transaction. Returns nil when the song cannot be
// regenerated because no owner account is resolvable.
func (r *Runner) regenerateSong(ctx context.Context, songID int64, group []*splits.Split, dryRun bool, logger *slog.Logger) ([]*splits.Split, error) {
	ownerRate := decimal.Zero
	var ownerID *int64
	var regenerated []*splits.Split

	for _, split := range group {
		if split.IsOwner {
			ownerID = split.UserID
		}
		if split.IsOwner || split.Status == splits.StatusPending {
			ownerRate = ownerRate.Add(split.Rate)
			continue
		}
		keep := split.Clone()
		keep.ID = 0
		keep.Revision = 1
		keep.Status = splits.StatusActive
		keep.StartDate = nil
		keep.EndDate = nil
		keep.IsOwner = false
		regenerated = append(regenerated, keep)
	}

	if ownerRate.IsPositive() {
		if ownerID == nil {
			resolved, err := r.catalog.SongOwnerID(ctx, songID)
			if err != nil {
				return nil, err
			}
			if resolved == nil {
				logger.Warn("no owner account resolvable", "song_id", songID)
				return nil, nil
			}
			ownerID = resolved
		}
		regenerated = append(regenerated, &splits.Split{
			SongID:   songID,
			UserID:   ownerID,
			Rate:     ownerRate,
			Revision: 1,
			Status:   splits.StatusActive,
			IsOwner:  true,
		})
	}

	if dryRun {
		return regenerated, nil
	}
	err := r.splits.Tx(ctx, func(tx *splits.Tx) error {
		// Every split for the song goes: stray extra revisions of pending
		// drafts have no business surviving a cancellation.
		if _, err := tx.DeleteForSong(ctx, songID); err != nil {
			return err
		}
		for _, split := range regenerated {
			if err := tx.Create(ctx, split); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return regenerated, nil
}

// backfillMissing creates a 100% owner split for in-scope songs with no
// splits at all.
func (r *Runner) backfillMissing(ctx context.Context, opts Options, summary *CancelSummary, logger *slog.Logger) error {
	missing, err := r.splits.SongIDsMissingSplits(ctx, opts.Scope)
	if err != nil {
		return err
	}
	logger.Info("songs without splits found", "songs", len(missing))

	for _, songID := range missing {
		ownerID, err := r.catalog.SongOwnerID(ctx, songID)
		if err != nil {
			return err
		}
		if ownerID == nil {
			logger.Warn("no owner account resolvable", "song_id", songID)
			summary.SkippedSongs++
			continue
		}
		split := &splits.Split{
			SongID:   songID,
			UserID:   ownerID,
			Rate:     splits.FullRate,
			Revision: 1,
			Status:   splits.StatusActive,
			IsOwner:  true,
		}
		if !opts.DryRun {
			if err := r.splits.Create(ctx, split); err != nil {
				summary.FailedSongs++
				continue
			}
		}
		summary.BackfilledSongs = append(summary.BackfilledSongs, songID)
		summary.CreatedSplits = append(summary.CreatedSplits, newSplitRef(split))
	}
	return nil
}
