package repair_test

import (
	"context"
	"errors"
	"testing"

	"splitledger/internal/catalog"
	"splitledger/internal/repair"
	"splitledger/internal/splits"
	"splitledger/internal/testsupport"
)

func TestCancelPendingReallocatesUnconfirmedRates(t *testing.T) {
	r := newTestRunner(t)
	ctx := context.Background()
	today := testsupport.Date(t, "2024-05-10")

	const ownerID = 10
	song := testsupport.NewSong(t, r.Catalog(), ownerID, catalog.ReleaseStatusReleased, today)
	testsupport.NewSplit(t, r.Splits(), &splits.Split{
		SongID: song.SongID, UserID: testsupport.Int64(ownerID), Rate: testsupport.Rate(t, "0.5"),
		Revision: 1, Status: splits.StatusConfirmed, IsOwner: true,
	})
	testsupport.NewSplit(t, r.Splits(), &splits.Split{
		SongID: song.SongID, Rate: testsupport.Rate(t, "0.3"),
		Revision: 1, Status: splits.StatusPending,
	})
	confirmed := testsupport.NewSplit(t, r.Splits(), &splits.Split{
		SongID: song.SongID, UserID: testsupport.Int64(20), Rate: testsupport.Rate(t, "0.2"),
		Revision: 1, Status: splits.StatusConfirmed,
	})

	summary, err := r.CancelPending(ctx, repair.Options{Now: today})
	if err != nil {
		t.Fatal(err)
	}
	if summary.CancelledSongs != 1 {
		t.Fatalf("expected one cancelled song, got %d", summary.CancelledSongs)
	}
	if summary.DeletedSplits != 3 {
		t.Fatalf("expected three deleted splits, got %d", summary.DeletedSplits)
	}

	group, err := r.Splits().ForRevision(ctx, song.SongID, 1)
	if err != nil {
		t.Fatal(err)
	}
	if len(group) != 2 {
		t.Fatalf("expected owner plus collaborator, got %d splits", len(group))
	}
	for _, split := range group {
		if split.Status != splits.StatusActive {
			t.Fatalf("regenerated splits must be active, got %s", split.Status)
		}
		if split.StartDate != nil || split.EndDate != nil {
			t.Fatalf("regenerated first revision must be open-ended, got %v..%v", split.StartDate, split.EndDate)
		}
		switch {
		case split.BelongsTo(ownerID):
			if !split.IsOwner {
				t.Fatal("owner split must carry the flag")
			}
			// The pending 0.3 folds back into the owner's own 0.5.
			if !split.Rate.Equal(testsupport.Rate(t, "0.8")) {
				t.Fatalf("expected owner rate 0.8, got %s", split.Rate)
			}
		case split.BelongsTo(20):
			if split.IsOwner {
				t.Fatal("collaborator must not carry the owner flag")
			}
			if !split.Rate.Equal(confirmed.Rate) {
				t.Fatalf("confirmed collaborator rate must survive, got %s", split.Rate)
			}
		default:
			t.Fatalf("unexpected split %+v", split)
		}
	}
	if !splits.SumRates(group).Equal(splits.FullRate) {
		t.Fatalf("regenerated revision must sum to 1, got %s", splits.SumRates(group))
	}

	// Running the job again over the same window changes nothing.
	again, err := r.CancelPending(ctx, repair.Options{Now: today})
	if err != nil {
		t.Fatal(err)
	}
	if again.CancelledSongs != 0 || len(again.CreatedSplits) != 0 {
		t.Fatalf("second run must be a no-op, got %+v", again)
	}
}

func TestCancelPendingBackfillsSongsWithoutSplits(t *testing.T) {
	r := newTestRunner(t)
	ctx := context.Background()
	today := testsupport.Date(t, "2024-05-10")

	const ownerID = 10
	song := testsupport.NewSong(t, r.Catalog(), ownerID, catalog.ReleaseStatusReleased, today)

	summary, err := r.CancelPending(ctx, repair.Options{Now: today})
	if err != nil {
		t.Fatal(err)
	}
	if len(summary.BackfilledSongs) != 1 || summary.BackfilledSongs[0] != song.SongID {
		t.Fatalf("expected song %d backfilled, got %v", song.SongID, summary.BackfilledSongs)
	}

	group, err := r.Splits().ForRevision(ctx, song.SongID, 1)
	if err != nil {
		t.Fatal(err)
	}
	if len(group) != 1 {
		t.Fatalf("expected one backfilled split, got %d", len(group))
	}
	split := group[0]
	if !split.BelongsTo(ownerID) || !split.IsOwner {
		t.Fatalf("backfill must go to the owner, got %+v", split)
	}
	if !split.Rate.Equal(splits.FullRate) {
		t.Fatalf("backfill must be the full rate, got %s", split.Rate)
	}
	if split.Status != splits.StatusActive {
		t.Fatalf("backfill must be active, got %s", split.Status)
	}
}

func TestCancelPendingRejectsFutureWindows(t *testing.T) {
	r := newTestRunner(t)
	today := testsupport.Date(t, "2024-05-10")
	tomorrow := testsupport.Date(t, "2024-05-11")

	_, err := r.CancelPending(context.Background(), repair.Options{
		Now:   today,
		Scope: catalog.Scope{From: &today, To: &tomorrow},
	})
	if !errors.Is(err, repair.ErrFutureWindow) {
		t.Fatalf("expected ErrFutureWindow, got %v", err)
	}
}

func TestCancelPendingSkipsLockedSongs(t *testing.T) {
	r := newTestRunner(t)
	ctx := context.Background()
	today := testsupport.Date(t, "2024-05-10")

	song := testsupport.NewSong(t, r.Catalog(), 10, catalog.ReleaseStatusReleased, today)
	pending := testsupport.NewSplit(t, r.Splits(), &splits.Split{
		SongID: song.SongID, Rate: testsupport.Rate(t, "1.0"),
		Revision: 1, Status: splits.StatusPending, IsLocked: true,
	})

	summary, err := r.CancelPending(ctx, repair.Options{Now: today})
	if err != nil {
		t.Fatal(err)
	}
	if summary.CancelledSongs != 0 {
		t.Fatalf("locked song must not be cancelled, got %d", summary.CancelledSongs)
	}
	if summary.SkippedSongs == 0 {
		t.Fatal("expected the locked song counted as skipped")
	}

	got, err := r.Splits().ByID(ctx, pending.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got == nil || got.Status != splits.StatusPending {
		t.Fatalf("locked split must survive untouched, got %+v", got)
	}
}

func TestCancelPendingDryRunWritesNothing(t *testing.T) {
	r := newTestRunner(t)
	ctx := context.Background()
	today := testsupport.Date(t, "2024-05-10")

	song := testsupport.NewSong(t, r.Catalog(), 10, catalog.ReleaseStatusReleased, today)
	pending := testsupport.NewSplit(t, r.Splits(), &splits.Split{
		SongID: song.SongID, Rate: testsupport.Rate(t, "1.0"),
		Revision: 1, Status: splits.StatusPending,
	})

	summary, err := r.CancelPending(ctx, repair.Options{Now: today, DryRun: true})
	if err != nil {
		t.Fatal(err)
	}
	if len(summary.CreatedSplits) == 0 {
		t.Fatal("dry run must still report the replacement splits")
	}

	got, err := r.Splits().ByID(ctx, pending.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got == nil || got.Status != splits.StatusPending {
		t.Fatalf("dry run must leave the pending split, got %+v", got)
	}
}
