package splits

import (
	"context"
	"fmt"
	"time"
)

// GroupKey verifies the group belongs to exactly one (song, revision) and
// returns that pair. Lifecycle operations act on whole revisions only.
func GroupKey(group []*Split) (songID int64, revision int, err error) {
	if len(group) == 0 {
		return 0, 0, ErrEmptyGroup
	}
	songID = group[0].SongID
	revision = group[0].Revision
	for _, split := range group[1:] {
		if split.SongID != songID {
			return 0, 0, &MixedSongError{Expected: songID, Found: split.SongID}
		}
		if split.Revision != revision {
			return 0, 0, &MixedRevisionError{SongID: songID, Expected: revision, Found: split.Revision}
		}
	}
	return songID, revision, nil
}

// IsFullyConfirmed reports whether every split in the revision has been
// accepted, counting already-active members as confirmed.
func IsFullyConfirmed(group []*Split) bool {
	if len(group) == 0 {
		return false
	}
	for _, split := range group {
		if split.Status != StatusConfirmed && split.Status != StatusActive {
			return false
		}
	}
	return true
}

// Activate promotes a whole revision to active. The revision's rates must
// sum to exactly 1. Revision 1 keeps a NULL start date because the first
// revision applies from the beginning of time; later revisions that carry
// no start date begin today.
func (t *Tx) Activate(ctx context.Context, group []*Split, today time.Time) error {
	songID, revision, err := GroupKey(group)
	if err != nil {
		return err
	}
	if sum := SumRates(group); !sum.Equal(FullRate) {
		return fmt.Errorf("song %d revision %d sums to %s: %w", songID, revision, sum.StringFixed(4), ErrUnbalancedRevision)
	}
	for _, split := range group {
		split.Status = StatusActive
		split.EndDate = nil
		if revision > 1 && split.StartDate == nil {
			start := today
			split.StartDate = &start
		}
		if revision == 1 {
			split.StartDate = nil
		}
		if err := t.Update(ctx, split); err != nil {
			return err
		}
	}
	return nil
}

// Archive retires a whole revision, closing it on the given end date.
func (t *Tx) Archive(ctx context.Context, group []*Split, endDate time.Time) error {
	if _, _, err := GroupKey(group); err != nil {
		return err
	}
	for _, split := range group {
		split.Status = StatusArchived
		end := endDate
		split.EndDate = &end
		if err := t.Update(ctx, split); err != nil {
			return err
		}
	}
	return nil
}
