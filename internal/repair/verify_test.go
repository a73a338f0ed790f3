package repair_test

import (
	"context"
	"slices"
	"testing"

	"splitledger/internal/catalog"
	"splitledger/internal/repair"
	"splitledger/internal/splits"
	"splitledger/internal/testsupport"
)

func TestVerifyReportsNothingForHealthySongs(t *testing.T) {
	r := newTestRunner(t)
	ctx := context.Background()

	const ownerID = 10
	song := testsupport.NewSong(t, r.Catalog(), ownerID, catalog.ReleaseStatusReleased, testsupport.Date(t, "2024-01-01"))
	testsupport.NewSplit(t, r.Splits(), &splits.Split{
		SongID: song.SongID, UserID: testsupport.Int64(ownerID), Rate: testsupport.Rate(t, "1.0"),
		Revision: 1, Status: splits.StatusActive, IsOwner: true,
	})

	summary, err := r.Verify(ctx, repair.Options{Now: testsupport.Date(t, "2024-06-01")})
	if err != nil {
		t.Fatal(err)
	}
	if !summary.Healthy() {
		t.Fatalf("expected a healthy sweep, got %+v", summary.Reports)
	}
	if summary.CheckedSongs != 1 {
		t.Fatalf("expected one checked song, got %d", summary.CheckedSongs)
	}
}

func TestVerifyReportsViolationsPerSong(t *testing.T) {
	r := newTestRunner(t)
	ctx := context.Background()

	const ownerID = 10
	song := testsupport.NewSong(t, r.Catalog(), ownerID, catalog.ReleaseStatusReleased, testsupport.Date(t, "2024-01-01"))
	// Half the revenue is unaccounted for and nobody holds the owner flag.
	testsupport.NewSplit(t, r.Splits(), &splits.Split{
		SongID: song.SongID, UserID: testsupport.Int64(20), Rate: testsupport.Rate(t, "0.5"),
		Revision: 1, Status: splits.StatusActive,
	})

	summary, err := r.Verify(ctx, repair.Options{Now: testsupport.Date(t, "2024-06-01")})
	if err != nil {
		t.Fatal(err)
	}
	if summary.Healthy() {
		t.Fatal("expected violations")
	}
	if len(summary.Reports) != 1 {
		t.Fatalf("expected one report, got %d", len(summary.Reports))
	}
	report := summary.Reports[0]
	if report.SongID != song.SongID || report.ReleaseID != song.ReleaseID {
		t.Fatalf("report names the wrong song: %+v", report)
	}
	if !slices.Contains(report.Violations, string(splits.ViolationInvalidRate)) {
		t.Fatalf("expected an invalid-rate violation, got %v", report.Violations)
	}
	if !slices.Contains(report.Violations, string(splits.ViolationOwnerMismatch)) {
		t.Fatalf("expected an owner-mismatch violation, got %v", report.Violations)
	}
}

func TestVerifyHonorsReleaseScope(t *testing.T) {
	r := newTestRunner(t)
	ctx := context.Background()

	healthy := testsupport.NewSong(t, r.Catalog(), 1, catalog.ReleaseStatusReleased, testsupport.Date(t, "2024-01-01"))
	testsupport.NewSplit(t, r.Splits(), &splits.Split{
		SongID: healthy.SongID, UserID: testsupport.Int64(1), Rate: testsupport.Rate(t, "1.0"),
		Revision: 1, Status: splits.StatusActive, IsOwner: true,
	})
	broken := testsupport.NewSong(t, r.Catalog(), 2, catalog.ReleaseStatusReleased, testsupport.Date(t, "2024-01-01"))
	testsupport.NewSplit(t, r.Splits(), &splits.Split{
		SongID: broken.SongID, UserID: testsupport.Int64(2), Rate: testsupport.Rate(t, "0.5"),
		Revision: 1, Status: splits.StatusActive, IsOwner: true,
	})

	summary, err := r.Verify(ctx, repair.Options{
		Now:   testsupport.Date(t, "2024-06-01"),
		Scope: catalog.Scope{ReleaseIDs: []int64{healthy.ReleaseID}},
	})
	if err != nil {
		t.Fatal(err)
	}
	if summary.CheckedSongs != 1 {
		t.Fatalf("expected only the scoped song checked, got %d", summary.CheckedSongs)
	}
	if !summary.Healthy() {
		t.Fatalf("the out-of-scope song must not be reported, got %+v", summary.Reports)
	}
}
