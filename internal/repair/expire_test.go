package repair_test

import (
	"context"
	"testing"
	"time"

	"splitledger/internal/catalog"
	"splitledger/internal/invite"
	"splitledger/internal/repair"
	"splitledger/internal/splits"
	"splitledger/internal/testsupport"
)

func seedPendingInvitation(t *testing.T, r *repair.Runner, splitID, inviterID int64, lastSent time.Time) {
	t.Helper()
	inv := &invite.Invitation{
		SplitID:   splitID,
		InviterID: inviterID,
		Name:      "Invitee",
		Email:     "invitee@example.com",
		Token:     invite.NewToken(),
		Status:    invite.StatusPending,
		LastSent:  &lastSent,
	}
	if err := r.Invites().Create(context.Background(), inv); err != nil {
		t.Fatalf("invite.Create: %v", err)
	}
}

func TestExpireInvitesTearsDownStaleRevisions(t *testing.T) {
	r := newTestRunner(t)
	ctx := context.Background()
	today := testsupport.Date(t, "2024-05-10")

	const ownerID = 10
	song := testsupport.NewSong(t, r.Catalog(), ownerID, catalog.ReleaseStatusReleased, testsupport.Date(t, "2024-01-01"))
	settled := testsupport.NewSplit(t, r.Splits(), &splits.Split{
		SongID: song.SongID, UserID: testsupport.Int64(ownerID), Rate: testsupport.Rate(t, "1.0"),
		Revision: 1, Status: splits.StatusActive, IsOwner: true,
	})
	testsupport.NewSplit(t, r.Splits(), &splits.Split{
		SongID: song.SongID, UserID: testsupport.Int64(ownerID), Rate: testsupport.Rate(t, "0.5"),
		Revision: 2, Status: splits.StatusConfirmed, IsOwner: true,
	})
	invited := testsupport.NewSplit(t, r.Splits(), &splits.Split{
		SongID: song.SongID, Rate: testsupport.Rate(t, "0.5"),
		Revision: 2, Status: splits.StatusPending,
	})
	seedPendingInvitation(t, r, invited.ID, ownerID, today.AddDate(0, 0, -40))

	summary, err := r.ExpireInvites(ctx, repair.Options{Now: today})
	if err != nil {
		t.Fatal(err)
	}
	if len(summary.Expired) != 1 {
		t.Fatalf("expected one expired revision, got %d", len(summary.Expired))
	}
	expired := summary.Expired[0]
	if expired.SongID != song.SongID || expired.Revision != 2 {
		t.Fatalf("expected (song %d, revision 2), got %+v", song.SongID, expired)
	}
	if summary.DeletedSplits != 2 {
		t.Fatalf("expected the whole revision deleted, got %d", summary.DeletedSplits)
	}

	leftover, err := r.Splits().ForRevision(ctx, song.SongID, 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(leftover) != 0 {
		t.Fatalf("expected revision 2 gone, got %d splits", len(leftover))
	}
	kept, err := r.Splits().ByID(ctx, settled.ID)
	if err != nil {
		t.Fatal(err)
	}
	if kept == nil || kept.Status != splits.StatusActive {
		t.Fatalf("the active revision must survive, got %+v", kept)
	}
}

func TestExpireInvitesLeavesFirstRevisionsAlone(t *testing.T) {
	r := newTestRunner(t)
	ctx := context.Background()
	today := testsupport.Date(t, "2024-05-10")

	const ownerID = 10
	song := testsupport.NewSong(t, r.Catalog(), ownerID, catalog.ReleaseStatusReleased, testsupport.Date(t, "2024-01-01"))
	invited := testsupport.NewSplit(t, r.Splits(), &splits.Split{
		SongID: song.SongID, Rate: testsupport.Rate(t, "1.0"),
		Revision: 1, Status: splits.StatusPending,
	})
	seedPendingInvitation(t, r, invited.ID, ownerID, today.AddDate(0, 0, -40))

	summary, err := r.ExpireInvites(ctx, repair.Options{Now: today})
	if err != nil {
		t.Fatal(err)
	}
	if len(summary.Expired) != 0 {
		t.Fatalf("initial revisions belong to the cancellation job, got %+v", summary.Expired)
	}
	if got, err := r.Splits().ByID(ctx, invited.ID); err != nil || got == nil {
		t.Fatalf("first-revision split must survive, got %v (%v)", got, err)
	}
}

func TestExpireInvitesRespectsTheAcceptanceWindow(t *testing.T) {
	r := newTestRunner(t)
	ctx := context.Background()
	today := testsupport.Date(t, "2024-05-10")

	const ownerID = 10
	song := testsupport.NewSong(t, r.Catalog(), ownerID, catalog.ReleaseStatusReleased, testsupport.Date(t, "2024-01-01"))
	testsupport.NewSplit(t, r.Splits(), &splits.Split{
		SongID: song.SongID, UserID: testsupport.Int64(ownerID), Rate: testsupport.Rate(t, "1.0"),
		Revision: 1, Status: splits.StatusActive, IsOwner: true,
	})
	invited := testsupport.NewSplit(t, r.Splits(), &splits.Split{
		SongID: song.SongID, Rate: testsupport.Rate(t, "1.0"),
		Revision: 2, Status: splits.StatusPending,
	})
	seedPendingInvitation(t, r, invited.ID, ownerID, today.AddDate(0, 0, -5))

	summary, err := r.ExpireInvites(ctx, repair.Options{Now: today})
	if err != nil {
		t.Fatal(err)
	}
	if len(summary.Expired) != 0 {
		t.Fatalf("a recently sent invitation must not expire, got %+v", summary.Expired)
	}
}

func TestExpireInvitesDryRunWritesNothing(t *testing.T) {
	r := newTestRunner(t)
	ctx := context.Background()
	today := testsupport.Date(t, "2024-05-10")

	const ownerID = 10
	song := testsupport.NewSong(t, r.Catalog(), ownerID, catalog.ReleaseStatusReleased, testsupport.Date(t, "2024-01-01"))
	testsupport.NewSplit(t, r.Splits(), &splits.Split{
		SongID: song.SongID, UserID: testsupport.Int64(ownerID), Rate: testsupport.Rate(t, "1.0"),
		Revision: 1, Status: splits.StatusActive, IsOwner: true,
	})
	invited := testsupport.NewSplit(t, r.Splits(), &splits.Split{
		SongID: song.SongID, Rate: testsupport.Rate(t, "1.0"),
		Revision: 2, Status: splits.StatusPending,
	})
	seedPendingInvitation(t, r, invited.ID, ownerID, today.AddDate(0, 0, -40))

	summary, err := r.ExpireInvites(ctx, repair.Options{Now: today, DryRun: true})
	if err != nil {
		t.Fatal(err)
	}
	if len(summary.Expired) != 1 {
		t.Fatalf("dry run must still report the expiry, got %+v", summary.Expired)
	}
	if got, err := r.Splits().ByID(ctx, invited.ID); err != nil || got == nil {
		t.Fatalf("dry run must leave the splits, got %v (%v)", got, err)
	}
}
