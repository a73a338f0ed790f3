package repair

import (
	"context"

	"splitledger/internal/splits"
)

// ExpiredRevision is one (song, revision) torn down by invitation expiry.
type ExpiredRevision struct {
	SongID    int64      `json:"song_id"`
	SongName  string     `json:"song_name"`
	Revision  int        `json:"revision"`
	InviterID int64      `json:"inviter_id"`
	Deleted   []SplitRef `json:"deleted_splits"`
}

// ExpireSummary reports the invitation-expiry job.
type ExpireSummary struct {
	RunID         string            `json:"run_id"`
	DryRun        bool              `json:"dry_run"`
	Expired       []ExpiredRevision `json:"expired,omitempty"`
	DeletedSplits int               `json:"deleted_splits"`
	FailedSongs   int               `json:"failed_songs"`
}

// ExpireInvites deletes unsettled revisions whose invitations were sent too
// long ago and never accepted. Only post-initial revisions qualify;
// revision 1 cleanup belongs to the cancellation job. Invitation rows go
// with their splits through the cascade.
func (r *Runner) ExpireInvites(ctx context.Context, opts Options) (*ExpireSummary, error) {
	release, err := r.acquireLock(opts)
	if err != nil {
		return nil, err
	}
	defer release()

	summary := &ExpireSummary{RunID: NewRunID(), DryRun: opts.DryRun}
	logger := r.logger.With("job", "expire_invites", "run_id", summary.RunID)

	cutoff := opts.today().AddDate(0, 0, -r.cfg.Jobs.InviteExpiryDays)
	groups, err := r.invites.ExpiredGroups(ctx, cutoff, opts.Scope.ReleaseIDs)
	if err != nil {
		return nil, err
	}
	logger.Info("expired invitations found", "groups", len(groups), "cutoff", cutoff.Format("2006-01-02"))

	for _, group := range groups {
		doomed, err := r.splits.ForRevision(ctx, group.SongID, group.Revision)
		if err != nil {
			return nil, err
		}
		if len(doomed) == 0 {
			continue
		}
		expired := ExpiredRevision{
			SongID:    group.SongID,
			SongName:  group.SongName,
			Revision:  group.Revision,
			InviterID: group.InviterID,
			Deleted:   splitRefs(doomed),
		}
		for _, split := range doomed {
			logger.Info("deleting expired split",
				"split_id", split.ID,
				"song_id", split.SongID,
				"user_id", split.UserID,
				"revision", split.Revision,
				"rate", split.Rate.StringFixed(4),
				"status", split.Status,
				"is_owner", split.IsOwner,
			)
		}
		if !opts.DryRun {
			ids := make([]int64, len(doomed))
			for i, split := range doomed {
				ids[i] = split.ID
			}
			err := r.splits.Tx(ctx, func(tx *splits.Tx) error {
				_, err := tx.Delete(ctx, ids...)
				return err
			})
			if err != nil {
				summary.FailedSongs++
				logger.Error("expiry failed", "song_id", group.SongID, "revision", group.Revision, "error", err)
				continue
			}
		}
		summary.Expired = append(summary.Expired, expired)
		summary.DeletedSplits += len(doomed)
	}

	logger.Info("expiry finished", "expired_revisions", len(summary.Expired), "deleted_splits", summary.DeletedSplits)
	return summary, nil
}
