package repair

import (
	"context"

	"splitledger/internal/splits"
)

// SongReport lists the integrity violations found on one song.
type SongReport struct {
	SongID     int64    `json:"song_id"`
	ReleaseID  int64    `json:"release_id"`
	Violations []string `json:"violations"`
}

// VerifySummary reports a read-only integrity sweep.
type VerifySummary struct {
	RunID        string       `json:"run_id"`
	CheckedSongs int          `json:"checked_songs"`
	Reports      []SongReport `json:"reports,omitempty"`
}

// Healthy reports whether the sweep found nothing wrong.
func (s *VerifySummary) Healthy() bool {
	return len(s.Reports) == 0
}

// Verify runs every split integrity check over the songs in scope. It never
// writes, so it takes no lock and has no dry-run mode.
func (r *Runner) Verify(ctx context.Context, opts Options) (*VerifySummary, error) {
	summary := &VerifySummary{RunID: NewRunID()}
	logger := r.logger.With("job", "verify", "run_id", summary.RunID)
	today := opts.today()

	songIDs, err := r.splits.SongIDsWithSplits(ctx, opts.Scope)
	if err != nil {
		return nil, err
	}

	for _, songID := range songIDs {
		songSplits, err := r.splits.ForSong(ctx, songID)
		if err != nil {
			return nil, err
		}
		rel, err := r.catalog.ReleaseForSong(ctx, songID)
		if err != nil {
			return nil, err
		}
		if rel == nil {
			continue
		}
		ownerID, err := r.catalog.ReleaseOwnerID(ctx, rel.ID)
		if err != nil {
			return nil, err
		}

		data := splits.SongData{
			SongID:        songID,
			ReleaseID:     rel.ID,
			ReleaseStatus: rel.Status,
			ReleaseDate:   rel.ReleaseDate,
			OwnerID:       ownerID,
			Splits:        songSplits,
		}
		summary.CheckedSongs++

		violations := splits.Validate(data, today)
		if len(violations) == 0 {
			continue
		}
		report := SongReport{SongID: songID, ReleaseID: rel.ID}
		for _, violation := range violations {
			report.Violations = append(report.Violations, string(violation))
		}
		summary.Reports = append(summary.Reports, report)
		logger.Error("split integrity violation",
			"song_id", songID,
			"release_id", rel.ID,
			"violations", report.Violations,
		)
	}

	logger.Info("verification finished", "checked_songs", summary.CheckedSongs, "unhealthy_songs", len(summary.Reports))
	return summary, nil
}
