package testsupport

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"splitledger/internal/catalog"
	"splitledger/internal/config"
	"splitledger/internal/splits"
	"splitledger/internal/storage"
)

// MustOpenDB opens the shared database for tests and registers cleanup.
func MustOpenDB(t testing.TB, cfg *config.Config) *storage.DB {
	t.Helper()

	db, err := storage.Open(cfg)
	if err != nil {
		t.Fatalf("storage.Open: %v", err)
	}
	t.Cleanup(func() {
		db.Close()
	})
	return db
}

// Song bundles the catalog rows most split tests need: one release with a
// main primary artist owned by OwnerID, holding one song.
type Song struct {
	SongID    int64
	ReleaseID int64
	ArtistID  int64
	OwnerID   int64
}

// NewSong seeds a released song whose main primary artist is owned by
// ownerID.
func NewSong(t testing.TB, store *catalog.Store, ownerID int64, status catalog.ReleaseStatus, releaseDate time.Time) Song {
	t.Helper()
	ctx := context.Background()

	artist, err := store.AddArtist(ctx, "Artist", ownerID)
	if err != nil {
		t.Fatalf("AddArtist: %v", err)
	}
	release, err := store.AddRelease(ctx, "Release", status, &releaseDate, ownerID)
	if err != nil {
		t.Fatalf("AddRelease: %v", err)
	}
	if err := store.SetMainPrimaryArtist(ctx, release.ID, artist.ID); err != nil {
		t.Fatalf("SetMainPrimaryArtist: %v", err)
	}
	song, err := store.AddSong(ctx, release.ID, "Song")
	if err != nil {
		t.Fatalf("AddSong: %v", err)
	}
	return Song{SongID: song.ID, ReleaseID: release.ID, ArtistID: artist.ID, OwnerID: ownerID}
}

// NewSplit inserts a split and returns it with its assigned id.
func NewSplit(t testing.TB, store *splits.Store, split *splits.Split) *splits.Split {
	t.Helper()

	if err := store.Create(context.Background(), split); err != nil {
		t.Fatalf("splits.Create: %v", err)
	}
	return split
}

// Rate parses a decimal rate literal.
func Rate(t testing.TB, value string) decimal.Decimal {
	t.Helper()

	rate, err := decimal.NewFromString(value)
	if err != nil {
		t.Fatalf("parse rate %q: %v", value, err)
	}
	return rate
}

// Date parses a calendar date literal.
func Date(t testing.TB, value string) time.Time {
	t.Helper()

	date, err := time.Parse("2006-01-02", value)
	if err != nil {
		t.Fatalf("parse date %q: %v", value, err)
	}
	return date
}

// Int64 returns a pointer to the given id, for nullable user columns.
func Int64(v int64) *int64 {
	return &v
}
