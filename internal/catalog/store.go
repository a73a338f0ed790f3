package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"splitledger/internal/storage"
)

// Store provides catalog persistence over the shared database.
type Store struct {
	db *storage.DB
}

// NewStore wraps the shared database handle.
func NewStore(db *storage.DB) *Store {
	return &Store{db: db}
}

// AddArtist inserts an artist owned by the given user account.
func (s *Store) AddArtist(ctx context.Context, name string, ownerID int64) (*Artist, error) {
	res, err := s.db.Exec(ctx, `INSERT INTO artists (name, owner_id) VALUES (?, ?)`, name, ownerID)
	if err != nil {
		return nil, fmt.Errorf("insert artist: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return &Artist{ID: id, Name: name, OwnerID: ownerID}, nil
}

// Artist fetches an artist by id, returning nil when absent.
func (s *Store) Artist(ctx context.Context, id int64) (*Artist, error) {
	row := s.db.SQL().QueryRowContext(ctx, `SELECT id, name, owner_id FROM artists WHERE id = ?`, id)
	var artist Artist
	if err := row.Scan(&artist.ID, &artist.Name, &artist.OwnerID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get artist: %w", err)
	}
	return &artist, nil
}

// SetArtistOwner reassigns the artist's owning account. The caller is
// responsible for recording the matching owner-change event.
func (s *Store) SetArtistOwner(ctx context.Context, artistID, ownerID int64) error {
	if _, err := s.db.Exec(ctx, `UPDATE artists SET owner_id = ? WHERE id = ?`, ownerID, artistID); err != nil {
		return fmt.Errorf("update artist owner: %w", err)
	}
	return nil
}

// AddRelease inserts a release.
func (s *Store) AddRelease(ctx context.Context, name string, status ReleaseStatus, releaseDate *time.Time, createdBy int64) (*Release, error) {
	res, err := s.db.Exec(
		ctx,
		`INSERT INTO releases (name, status, release_date, created_by) VALUES (?, ?, ?, ?)`,
		name,
		status,
		storage.NullableDate(releaseDate),
		createdBy,
	)
	if err != nil {
		return nil, fmt.Errorf("insert release: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return &Release{ID: id, Name: name, Status: status, ReleaseDate: releaseDate, CreatedBy: createdBy}, nil
}

// Release fetches a release by id, returning nil when absent.
func (s *Store) Release(ctx context.Context, id int64) (*Release, error) {
	row := s.db.SQL().QueryRowContext(
		ctx,
		`SELECT id, name, status, release_date, created_by FROM releases WHERE id = ?`,
		id,
	)
	return scanRelease(row)
}

// SetMainPrimaryArtist records the artist as the release's main primary artist.
func (s *Store) SetMainPrimaryArtist(ctx context.Context, releaseID, artistID int64) error {
	_, err := s.db.Exec(
		ctx,
		`INSERT INTO release_artist_roles (release_id, artist_id, role, main_primary_artist) VALUES (?, ?, ?, 1)`,
		releaseID,
		artistID,
		RolePrimaryArtist,
	)
	if err != nil {
		return fmt.Errorf("insert release artist role: %w", err)
	}
	return nil
}

// AddSong inserts a song on a release.
func (s *Store) AddSong(ctx context.Context, releaseID int64, name string) (*Song, error) {
	res, err := s.db.Exec(ctx, `INSERT INTO songs (release_id, name) VALUES (?, ?)`, releaseID, name)
	if err != nil {
		return nil, fmt.Errorf("insert song: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return &Song{ID: id, ReleaseID: releaseID, Name: name}, nil
}

// Song fetches a song by id, returning nil when absent.
func (s *Store) Song(ctx context.Context, id int64) (*Song, error) {
	row := s.db.SQL().QueryRowContext(ctx, `SELECT id, release_id, name FROM songs WHERE id = ?`, id)
	var song Song
	if err := row.Scan(&song.ID, &song.ReleaseID, &song.Name); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get song: %w", err)
	}
	return &song, nil
}

// ReleaseForSong fetches the release a song belongs to, nil when either is
// absent.
func (s *Store) ReleaseForSong(ctx context.Context, songID int64) (*Release, error) {
	row := s.db.SQL().QueryRowContext(
		ctx,
		`SELECT r.id, r.name, r.status, r.release_date, r.created_by
         FROM releases r JOIN songs s ON s.release_id = r.id
         WHERE s.id = ?`,
		songID,
	)
	return scanRelease(row)
}

// ownerSubquery resolves the owning account of a release's main primary
// artist. Lowest role id wins when data holds more than one row.
const ownerSubquery = `SELECT a.owner_id
    FROM release_artist_roles rar
    JOIN artists a ON a.id = rar.artist_id
    WHERE rar.release_id = ? AND rar.role = ? AND rar.main_primary_artist = 1
    ORDER BY rar.id LIMIT 1`

// SongOwnerID resolves the account that owns the song's release main primary
// artist. Returns nil when no main primary artist is resolvable.
func (s *Store) SongOwnerID(ctx context.Context, songID int64) (*int64, error) {
	song, err := s.Song(ctx, songID)
	if err != nil {
		return nil, err
	}
	if song == nil {
		return nil, nil
	}
	return s.ReleaseOwnerID(ctx, song.ReleaseID)
}

// ReleaseOwnerID resolves the owning account for a release's main primary
// artist, nil when unresolvable.
func (s *Store) ReleaseOwnerID(ctx context.Context, releaseID int64) (*int64, error) {
	row := s.db.SQL().QueryRowContext(ctx, ownerSubquery, releaseID, RolePrimaryArtist)
	var ownerID int64
	if err := row.Scan(&ownerID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("resolve release owner: %w", err)
	}
	return &ownerID, nil
}

// MainPrimaryArtist fetches the release's main primary artist, nil when
// none is recorded.
func (s *Store) MainPrimaryArtist(ctx context.Context, releaseID int64) (*Artist, error) {
	row := s.db.SQL().QueryRowContext(
		ctx,
		`SELECT a.id, a.name, a.owner_id
         FROM release_artist_roles rar
         JOIN artists a ON a.id = rar.artist_id
         WHERE rar.release_id = ? AND rar.role = ? AND rar.main_primary_artist = 1
         ORDER BY rar.id LIMIT 1`,
		releaseID,
		RolePrimaryArtist,
	)
	var artist Artist
	if err := row.Scan(&artist.ID, &artist.Name, &artist.OwnerID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get main primary artist: %w", err)
	}
	return &artist, nil
}

// SongIDsForMainPrimaryArtist lists songs on releases where the artist is
// main primary artist.
func (s *Store) SongIDsForMainPrimaryArtist(ctx context.Context, artistID int64) ([]int64, error) {
	rows, err := s.db.SQL().QueryContext(
		ctx,
		`SELECT s.id
         FROM songs s
         JOIN release_artist_roles rar ON rar.release_id = s.release_id
         WHERE rar.artist_id = ? AND rar.main_primary_artist = 1
         ORDER BY s.id`,
		artistID,
	)
	if err != nil {
		return nil, fmt.Errorf("query artist songs: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// SongIDsForRelease lists the release's songs ordered by id.
func (s *Store) SongIDsForRelease(ctx context.Context, releaseID int64) ([]int64, error) {
	rows, err := s.db.SQL().QueryContext(ctx, `SELECT id FROM songs WHERE release_id = ? ORDER BY id`, releaseID)
	if err != nil {
		return nil, fmt.Errorf("query release songs: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// RecordOwnerChange stores an owner-change event supplied by the
// surrounding system.
func (s *Store) RecordOwnerChange(ctx context.Context, artistID, oldOwnerID, newOwnerID int64, changedAt time.Time) (*OwnerChange, error) {
	res, err := s.db.Exec(
		ctx,
		`INSERT INTO owner_changes (artist_id, old_owner_id, new_owner_id, changed_at) VALUES (?, ?, ?, ?)`,
		artistID,
		oldOwnerID,
		newOwnerID,
		storage.FormatTime(changedAt),
	)
	if err != nil {
		return nil, fmt.Errorf("insert owner change: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return &OwnerChange{
		ID:         id,
		ArtistID:   artistID,
		OldOwnerID: oldOwnerID,
		NewOwnerID: newOwnerID,
		ChangedAt:  changedAt,
	}, nil
}

// OwnerChangesByArtist returns every recorded owner-change event grouped by
// artist, ordered by change time within each group.
func (s *Store) OwnerChangesByArtist(ctx context.Context) (map[int64][]OwnerChange, error) {
	rows, err := s.db.SQL().QueryContext(
		ctx,
		`SELECT id, artist_id, old_owner_id, new_owner_id, changed_at
         FROM owner_changes ORDER BY artist_id, changed_at, id`,
	)
	if err != nil {
		return nil, fmt.Errorf("query owner changes: %w", err)
	}
	defer rows.Close()

	grouped := make(map[int64][]OwnerChange)
	for rows.Next() {
		var (
			change     OwnerChange
			changedRaw string
		)
		if err := rows.Scan(&change.ID, &change.ArtistID, &change.OldOwnerID, &change.NewOwnerID, &changedRaw); err != nil {
			return nil, err
		}
		if changed, err := storage.ParseTime(changedRaw); err == nil {
			change.ChangedAt = changed
		}
		grouped[change.ArtistID] = append(grouped[change.ArtistID], change)
	}
	return grouped, rows.Err()
}

// OwnerChangesForArtist returns the artist's recorded owner changes in
// change-time order.
func (s *Store) OwnerChangesForArtist(ctx context.Context, artistID int64) ([]OwnerChange, error) {
	grouped, err := s.OwnerChangesByArtist(ctx)
	if err != nil {
		return nil, err
	}
	return grouped[artistID], nil
}

func scanRelease(row *sql.Row) (*Release, error) {
	var (
		release Release
		status  string
		dateRaw sql.NullString
	)
	if err := row.Scan(&release.ID, &release.Name, &status, &dateRaw, &release.CreatedBy); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get release: %w", err)
	}
	release.Status = ReleaseStatus(status)
	if dateRaw.Valid {
		if date, err := storage.ParseDate(dateRaw.String); err == nil {
			release.ReleaseDate = &date
		}
	}
	return &release, nil
}
