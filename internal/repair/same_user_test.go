package repair_test

import (
	"context"
	"testing"

	"splitledger/internal/catalog"
	"splitledger/internal/repair"
	"splitledger/internal/splits"
	"splitledger/internal/testsupport"
)

func TestFixSameUserMergesDuplicateAccounts(t *testing.T) {
	r := newTestRunner(t)
	ctx := context.Background()

	const ownerID = 10
	song := testsupport.NewSong(t, r.Catalog(), ownerID, catalog.ReleaseStatusReleased, testsupport.Date(t, "2024-01-01"))
	testsupport.NewSplit(t, r.Splits(), &splits.Split{
		SongID: song.SongID, UserID: testsupport.Int64(ownerID), Rate: testsupport.Rate(t, "0.4"),
		Revision: 1, Status: splits.StatusConfirmed, IsOwner: true,
	})
	first := testsupport.NewSplit(t, r.Splits(), &splits.Split{
		SongID: song.SongID, UserID: testsupport.Int64(20), Rate: testsupport.Rate(t, "0.3"),
		Revision: 1, Status: splits.StatusConfirmed,
	})
	second := testsupport.NewSplit(t, r.Splits(), &splits.Split{
		SongID: song.SongID, UserID: testsupport.Int64(20), Rate: testsupport.Rate(t, "0.3"),
		Revision: 1, Status: splits.StatusConfirmed,
	})

	summary, err := r.FixSameUser(ctx, repair.Options{})
	if err != nil {
		t.Fatal(err)
	}
	if summary.MergedSongs != 1 {
		t.Fatalf("expected one merged song, got %d", summary.MergedSongs)
	}

	survivor, err := r.Splits().ByID(ctx, first.ID)
	if err != nil {
		t.Fatal(err)
	}
	if survivor == nil {
		t.Fatal("expected the earliest duplicate to survive")
	}
	if !survivor.Rate.Equal(testsupport.Rate(t, "0.6")) {
		t.Fatalf("expected merged rate 0.6, got %s", survivor.Rate)
	}
	if survivor.IsOwner {
		t.Fatal("a non-owner account must not gain the owner flag")
	}
	if gone, err := r.Splits().ByID(ctx, second.ID); err != nil || gone != nil {
		t.Fatalf("expected duplicate deleted, got %v (%v)", gone, err)
	}

	group, err := r.Splits().ForRevision(ctx, song.SongID, 1)
	if err != nil {
		t.Fatal(err)
	}
	if len(group) != 2 {
		t.Fatalf("expected two splits after merge, got %d", len(group))
	}
	if !splits.SumRates(group).Equal(splits.FullRate) {
		t.Fatalf("merge must conserve the total rate, got %s", splits.SumRates(group))
	}

	// A second run finds nothing left to merge.
	again, err := r.FixSameUser(ctx, repair.Options{})
	if err != nil {
		t.Fatal(err)
	}
	if again.MergedSongs != 0 || len(again.Updates) != 0 || len(again.Deletes) != 0 {
		t.Fatalf("second run must be a no-op, got %d merged %d updates %d deletes",
			again.MergedSongs, len(again.Updates), len(again.Deletes))
	}
	survivor, err = r.Splits().ByID(ctx, first.ID)
	if err != nil {
		t.Fatal(err)
	}
	if survivor == nil || !survivor.Rate.Equal(testsupport.Rate(t, "0.6")) {
		t.Fatalf("second run must not re-sum the survivor, got %+v", survivor)
	}
	group, err = r.Splits().ForRevision(ctx, song.SongID, 1)
	if err != nil {
		t.Fatal(err)
	}
	if len(group) != 2 {
		t.Fatalf("second run must leave the record set unchanged, got %d splits", len(group))
	}
}

func TestFixSameUserDryRunWritesNothing(t *testing.T) {
	r := newTestRunner(t)
	ctx := context.Background()

	song := testsupport.NewSong(t, r.Catalog(), 10, catalog.ReleaseStatusReleased, testsupport.Date(t, "2024-01-01"))
	for i := 0; i < 2; i++ {
		testsupport.NewSplit(t, r.Splits(), &splits.Split{
			SongID: song.SongID, UserID: testsupport.Int64(20), Rate: testsupport.Rate(t, "0.5"),
			Revision: 1, Status: splits.StatusConfirmed,
		})
	}

	summary, err := r.FixSameUser(ctx, repair.Options{DryRun: true})
	if err != nil {
		t.Fatal(err)
	}
	if len(summary.Updates) != 1 || len(summary.Deletes) != 1 {
		t.Fatalf("dry run must report the plan, got %d updates %d deletes", len(summary.Updates), len(summary.Deletes))
	}
	if summary.MergedSongs != 0 {
		t.Fatalf("dry run must not merge, got %d", summary.MergedSongs)
	}

	group, err := r.Splits().ForRevision(ctx, song.SongID, 1)
	if err != nil {
		t.Fatal(err)
	}
	if len(group) != 2 {
		t.Fatalf("dry run must leave both duplicates, got %d", len(group))
	}
}

func TestFixSameUserSkipsLockedSongs(t *testing.T) {
	r := newTestRunner(t)
	ctx := context.Background()

	song := testsupport.NewSong(t, r.Catalog(), 10, catalog.ReleaseStatusReleased, testsupport.Date(t, "2024-01-01"))
	testsupport.NewSplit(t, r.Splits(), &splits.Split{
		SongID: song.SongID, UserID: testsupport.Int64(20), Rate: testsupport.Rate(t, "0.5"),
		Revision: 1, Status: splits.StatusConfirmed, IsLocked: true,
	})
	testsupport.NewSplit(t, r.Splits(), &splits.Split{
		SongID: song.SongID, UserID: testsupport.Int64(20), Rate: testsupport.Rate(t, "0.5"),
		Revision: 1, Status: splits.StatusConfirmed,
	})

	summary, err := r.FixSameUser(ctx, repair.Options{})
	if err != nil {
		t.Fatal(err)
	}
	if summary.MergedSongs != 0 || len(summary.Updates) != 0 {
		t.Fatal("locked songs must never merge")
	}

	group, err := r.Splits().ForRevision(ctx, song.SongID, 1)
	if err != nil {
		t.Fatal(err)
	}
	if len(group) != 2 {
		t.Fatalf("expected both splits untouched, got %d", len(group))
	}
}
