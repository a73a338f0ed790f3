package repair

import (
	"context"
	"log/slog"
	"sort"
	"time"

	"splitledger/internal/catalog"
	"splitledger/internal/splits"
)

// OwnerChangeSummary reports the artist owner-change repair.
type OwnerChangeSummary struct {
	RunID          string  `json:"run_id"`
	DryRun         bool    `json:"dry_run"`
	ArtistsFound   int     `json:"artists_found"`
	ManualArtists  []int64 `json:"manual_fix_artists,omitempty"`
	RepairedSongs  []int64 `json:"repaired_songs,omitempty"`
	SkippedArtists int     `json:"skipped_artists"`
	SkippedSongs   int     `json:"skipped_songs"`
	FailedSongs    int     `json:"failed_songs"`
}

type ownerChangeFix struct {
	artistID        int64
	previousOwnerID int64
	currentOwnerID  int64
	changeDate      time.Time
}

// FixChangedArtistOwners repairs splits left behind when an artist's owning
// account was reassigned: where the previous owner still holds a non-owner
// active split, the active revision is archived the day before the change
// and a new active revision reassigns that share to the new owner. Artists
// with more than one historical owner change are reported for manual fixing
// rather than guessed at.
func (r *Runner) FixChangedArtistOwners(ctx context.Context, opts Options) (*OwnerChangeSummary, error) {
	release, err := r.acquireLock(opts)
	if err != nil {
		return nil, err
	}
	defer release()

	summary := &OwnerChangeSummary{RunID: NewRunID(), DryRun: opts.DryRun}
	logger := r.logger.With("job", "fix_owner_changes", "run_id", summary.RunID)

	var fixes []ownerChangeFix
	if len(opts.Scope.ReleaseIDs) > 0 {
		fixes, err = r.releaseScopedFixes(ctx, opts.Scope.ReleaseIDs, summary, logger)
	} else {
		fixes, err = r.historyScopedFixes(ctx, summary, logger)
	}
	if err != nil {
		return nil, err
	}
	summary.ArtistsFound = len(fixes)
	logger.Info("changed artists found", "artists", len(fixes), "manual", len(summary.ManualArtists))

	if limit := r.effectiveLimit(opts); limit > 0 && len(fixes) > limit {
		logger.Info("limiting artists processed", "limit", limit)
		fixes = fixes[:limit]
	}

	locked, err := r.splits.LockedSongIDs(ctx, catalog.Scope{})
	if err != nil {
		return nil, err
	}

	for _, fix := range fixes {
		songIDs, err := r.songsForFix(ctx, opts, fix)
		if err != nil {
			return nil, err
		}
		anyLocked := false
		for _, songID := range songIDs {
			if _, hit := locked[songID]; hit {
				anyLocked = true
				break
			}
		}
		if anyLocked {
			logger.Warn("artist has locked splits", "artist_id", fix.artistID)
			summary.SkippedArtists++
			continue
		}
		for _, songID := range songIDs {
			repaired, err := r.repairSongOwnership(ctx, songID, fix, opts.DryRun, logger)
			if err != nil {
				summary.FailedSongs++
				logger.Error("ownership repair failed", "song_id", songID, "artist_id", fix.artistID, "error", err)
				continue
			}
			if repaired {
				summary.RepairedSongs = append(summary.RepairedSongs, songID)
			} else {
				summary.SkippedSongs++
			}
		}
	}

	logger.Info("owner-change repair finished",
		"repaired_songs", len(summary.RepairedSongs),
		"skipped_songs", summary.SkippedSongs,
		"failed_songs", summary.FailedSongs,
	)
	return summary, nil
}

// historyScopedFixes derives fixes from recorded owner-change events.
func (r *Runner) historyScopedFixes(ctx context.Context, summary *OwnerChangeSummary, logger *slog.Logger) ([]ownerChangeFix, error) {
	grouped, err := r.catalog.OwnerChangesByArtist(ctx)
	if err != nil {
		return nil, err
	}

	artistIDs := make([]int64, 0, len(grouped))
	for artistID := range grouped {
		artistIDs = append(artistIDs, artistID)
	}
	sort.Slice(artistIDs, func(i, j int) bool { return artistIDs[i] < artistIDs[j] })

	var fixes []ownerChangeFix
	for _, artistID := range artistIDs {
		artist, err := r.catalog.Artist(ctx, artistID)
		if err != nil {
			return nil, err
		}
		if artist == nil {
			continue
		}
		changes := grouped[artistID]
		previous := make(map[int64]struct{})
		for _, change := range changes {
			if change.OldOwnerID != artist.OwnerID {
				previous[change.OldOwnerID] = struct{}{}
			}
		}
		if len(previous) > 1 {
			logger.Warn("artist needs manual fix",
				"artist_id", artistID,
				"owner_changes", len(previous),
			)
			summary.ManualArtists = append(summary.ManualArtists, artistID)
			continue
		}
		if len(previous) == 0 {
			continue
		}
		var previousOwnerID int64
		for ownerID := range previous {
			previousOwnerID = ownerID
		}
		// The change date is when the current owner took over.
		var changeDate *time.Time
		for _, change := range changes {
			if change.NewOwnerID == artist.OwnerID {
				date := change.ChangedAt
				changeDate = &date
				break
			}
		}
		if changeDate == nil {
			continue
		}
		fixes = append(fixes, ownerChangeFix{
			artistID:        artistID,
			previousOwnerID: previousOwnerID,
			currentOwnerID:  artist.OwnerID,
			changeDate:      *changeDate,
		})
	}
	return fixes, nil
}

// releaseScopedFixes derives fixes from explicit release ids, treating the
// release creator as the previous owner.
func (r *Runner) releaseScopedFixes(ctx context.Context, releaseIDs []int64, summary *OwnerChangeSummary, logger *slog.Logger) ([]ownerChangeFix, error) {
	var fixes []ownerChangeFix
	for _, releaseID := range releaseIDs {
		rel, err := r.catalog.Release(ctx, releaseID)
		if err != nil {
			return nil, err
		}
		if rel == nil {
			logger.Warn("release not found", "release_id", releaseID)
			continue
		}
		artist, err := r.catalog.MainPrimaryArtist(ctx, releaseID)
		if err != nil {
			return nil, err
		}
		if artist == nil {
			logger.Warn("no main primary artist", "release_id", releaseID)
			continue
		}
		if artist.OwnerID == rel.CreatedBy {
			logger.Info("owner has not changed", "release_id", releaseID)
			continue
		}
		changes, err := r.catalog.OwnerChangesForArtist(ctx, artist.ID)
		if err != nil {
			return nil, err
		}
		if len(changes) == 0 {
			logger.Warn("no owner-change event recorded", "artist_id", artist.ID)
			continue
		}
		fixes = append(fixes, ownerChangeFix{
			artistID:        artist.ID,
			previousOwnerID: rel.CreatedBy,
			currentOwnerID:  artist.OwnerID,
			changeDate:      changes[0].ChangedAt,
		})
	}
	return fixes, nil
}

func (r *Runner) songsForFix(ctx context.Context, opts Options, fix ownerChangeFix) ([]int64, error) {
	if len(opts.Scope.ReleaseIDs) > 0 {
		var songIDs []int64
		for _, releaseID := range opts.Scope.ReleaseIDs {
			ids, err := r.catalog.SongIDsForRelease(ctx, releaseID)
			if err != nil {
				return nil, err
			}
			songIDs = append(songIDs, ids...)
		}
		return songIDs, nil
	}
	return r.catalog.SongIDsForMainPrimaryArtist(ctx, fix.artistID)
}

// repairSongOwnership archives the active revision and rebuilds it with the
// previous owner's share reassigned, all inside one transaction.
func (r *Runner) repairSongOwnership(ctx context.Context, songID int64, fix ownerChangeFix, dryRun bool, logger *slog.Logger) (bool, error) {
	all, err := r.splits.ForSong(ctx, songID)
	if err != nil {
		return false, err
	}

	// The previous owner must still hold a non-owner split, and its latest
	// occurrence must be active; anything else is not ours to touch.
	var lastHeld *splits.Split
	for _, split := range all {
		if split.BelongsTo(fix.previousOwnerID) && !split.IsOwner {
			if lastHeld == nil || split.Revision > lastHeld.Revision {
				lastHeld = split
			}
		}
	}
	if lastHeld == nil {
		logger.Info("no non-owner split held by previous owner", "song_id", songID, "artist_id", fix.artistID)
		return false, nil
	}
	if lastHeld.Status != splits.StatusActive {
		logger.Info("previous owner split not active", "song_id", songID, "artist_id", fix.artistID)
		return false, nil
	}

	latest := 0
	for _, split := range all {
		if split.Revision > latest {
			latest = split.Revision
		}
	}
	var lastRevision []*splits.Split
	for _, split := range all {
		if split.Revision == latest {
			lastRevision = append(lastRevision, split)
		}
	}

	changeDay := fix.changeDate
	endDate := changeDay.AddDate(0, 0, -1)
	newRevision := latest + 1

	logger.Info("repairing song ownership",
		"song_id", songID,
		"artist_id", fix.artistID,
		"archived_revision", latest,
		"new_revision", newRevision,
		"end_date", endDate.Format("2006-01-02"),
	)
	if dryRun {
		return true, nil
	}

	return true, r.splits.Tx(ctx, func(tx *splits.Tx) error {
		// Flag the previous owner's split before archival so the retired
		// revision records who owned it at the time.
		for _, split := range lastRevision {
			if split.BelongsTo(fix.previousOwnerID) {
				split.IsOwner = true
				if err := tx.Update(ctx, split); err != nil {
					return err
				}
			}
		}
		if err := tx.Archive(ctx, lastRevision, endDate); err != nil {
			return err
		}
		for _, archived := range lastRevision {
			replacement := archived.Clone()
			replacement.ID = 0
			replacement.Revision = newRevision
			replacement.Status = splits.StatusActive
			start := changeDay
			replacement.StartDate = &start
			replacement.EndDate = nil
			if replacement.BelongsTo(fix.previousOwnerID) {
				owner := fix.currentOwnerID
				replacement.UserID = &owner
				replacement.IsOwner = true
			}
			if err := tx.Create(ctx, replacement); err != nil {
				return err
			}
		}
		return nil
	})
}
