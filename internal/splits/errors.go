package splits

import (
	"errors"
	"fmt"
)

// ErrEmptyGroup is returned when a lifecycle operation receives no splits.
var ErrEmptyGroup = errors.New("split group is empty")

// ErrUnbalancedRevision is returned when activation is attempted on a
// revision whose rates do not sum to exactly 1.
var ErrUnbalancedRevision = errors.New("revision rates do not sum to 1")

// MixedSongError reports a batch lifecycle call spanning more than one song.
// This is a programming or data-integrity bug upstream, never recoverable
// within the batch.
type MixedSongError struct {
	Expected int64
	Found    int64
}

func (e *MixedSongError) Error() string {
	return fmt.Sprintf("split group mixes songs %d and %d", e.Expected, e.Found)
}

// MixedRevisionError reports a batch lifecycle call spanning more than one
// revision of a song.
type MixedRevisionError struct {
	SongID   int64
	Expected int
	Found    int
}

func (e *MixedRevisionError) Error() string {
	return fmt.Sprintf("split group for song %d mixes revisions %d and %d", e.SongID, e.Expected, e.Found)
}
