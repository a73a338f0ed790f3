package splits

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"splitledger/internal/catalog"
	"splitledger/internal/storage"
)

// Store provides split persistence over the shared database.
type Store struct {
	db *storage.DB
}

// NewStore wraps the shared database handle.
func NewStore(db *storage.DB) *Store {
	return &Store{db: db}
}

const splitColumns = `sp.id, sp.song_id, sp.user_id, sp.rate, sp.revision, sp.status,
    sp.is_owner, sp.is_locked, sp.start_date, sp.end_date, sp.created_at`

// songOwnerExpr resolves the owning account of the joined release's main
// primary artist. Expects releases aliased as r and one role argument.
const songOwnerExpr = `(SELECT a.owner_id
    FROM release_artist_roles rar
    JOIN artists a ON a.id = rar.artist_id
    WHERE rar.release_id = r.id AND rar.role = ? AND rar.main_primary_artist = 1
    ORDER BY rar.id LIMIT 1)`

// Create inserts a split outside any batch transaction. The split's ID and
// CreatedAt are filled in on success.
func (s *Store) Create(ctx context.Context, split *Split) error {
	return insertSplit(ctx, s.db.SQL(), split)
}

// ByID fetches a split, returning nil when absent.
func (s *Store) ByID(ctx context.Context, id int64) (*Split, error) {
	row := s.db.SQL().QueryRowContext(
		ctx,
		`SELECT `+splitColumns+` FROM royalty_splits sp WHERE sp.id = ?`,
		id,
	)
	split, err := scanSplit(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return split, err
}

// ForSong returns every split of a song ordered by revision then id.
func (s *Store) ForSong(ctx context.Context, songID int64) ([]*Split, error) {
	return s.query(
		ctx,
		`SELECT `+splitColumns+` FROM royalty_splits sp WHERE sp.song_id = ? ORDER BY sp.revision, sp.id`,
		songID,
	)
}

// ForRevision returns one revision's splits ordered by id.
func (s *Store) ForRevision(ctx context.Context, songID int64, revision int) ([]*Split, error) {
	return s.query(
		ctx,
		`SELECT `+splitColumns+` FROM royalty_splits sp WHERE sp.song_id = ? AND sp.revision = ? ORDER BY sp.id`,
		songID,
		revision,
	)
}

// LatestRevision returns the highest revision number for a song, zero when
// the song has no splits.
func (s *Store) LatestRevision(ctx context.Context, songID int64) (int, error) {
	row := s.db.SQL().QueryRowContext(
		ctx,
		`SELECT IFNULL(MAX(revision), 0) FROM royalty_splits WHERE song_id = ?`,
		songID,
	)
	var revision int
	if err := row.Scan(&revision); err != nil {
		return 0, fmt.Errorf("latest revision: %w", err)
	}
	return revision, nil
}

// LockedSongIDs returns the ids of songs carrying at least one encumbered
// split, narrowed by scope. Batch jobs must leave these songs untouched.
func (s *Store) LockedSongIDs(ctx context.Context, scope catalog.Scope) (map[int64]struct{}, error) {
	query := `SELECT DISTINCT sp.song_id
        FROM royalty_splits sp
        JOIN songs s ON s.id = sp.song_id
        JOIN releases r ON r.id = s.release_id
        WHERE sp.is_locked = 1`
	filter, args := scopeFilter(scope)
	rows, err := s.db.SQL().QueryContext(ctx, query+filter, args...)
	if err != nil {
		return nil, fmt.Errorf("query locked songs: %w", err)
	}
	defer rows.Close()

	locked := make(map[int64]struct{})
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		locked[id] = struct{}{}
	}
	return locked, rows.Err()
}

// InvalidTrueOwner returns splits flagged is_owner whose account is not the
// owner of the song's release main primary artist. Splits with no account
// at all cannot be owner splits and are included.
func (s *Store) InvalidTrueOwner(ctx context.Context, scope catalog.Scope) ([]*Split, error) {
	query := `SELECT ` + splitColumns + `
        FROM royalty_splits sp
        JOIN songs s ON s.id = sp.song_id
        JOIN releases r ON r.id = s.release_id
        WHERE sp.is_owner = 1
          AND (sp.user_id IS NULL OR sp.user_id <> IFNULL(` + songOwnerExpr + `, -1))`
	args := []any{catalog.RolePrimaryArtist}
	filter, filterArgs := scopeFilter(scope)
	args = append(args, filterArgs...)
	return s.query(ctx, query+filter+` ORDER BY sp.id`, args...)
}

// InvalidFalseOwner returns splits not flagged is_owner whose account is in
// fact the owner of the song's release main primary artist.
func (s *Store) InvalidFalseOwner(ctx context.Context, scope catalog.Scope) ([]*Split, error) {
	query := `SELECT ` + splitColumns + `
        FROM royalty_splits sp
        JOIN songs s ON s.id = sp.song_id
        JOIN releases r ON r.id = s.release_id
        WHERE sp.is_owner = 0
          AND sp.user_id IS NOT NULL
          AND sp.user_id = ` + songOwnerExpr
	args := []any{catalog.RolePrimaryArtist}
	filter, filterArgs := scopeFilter(scope)
	args = append(args, filterArgs...)
	return s.query(ctx, query+filter+` ORDER BY sp.id`, args...)
}

// InScope returns every split within the scope ordered by song, revision and
// id. The duplicate-merge job feeds this to its planner.
func (s *Store) InScope(ctx context.Context, scope catalog.Scope) ([]*Split, error) {
	query := `SELECT ` + splitColumns + `
        FROM royalty_splits sp
        JOIN songs s ON s.id = sp.song_id
        JOIN releases r ON r.id = s.release_id
        WHERE 1 = 1`
	filter, args := scopeFilter(scope)
	return s.query(ctx, query+filter+` ORDER BY sp.song_id, sp.revision, sp.id`, args...)
}

// PendingFirstRevision returns revision-1 splits still pending or confirmed
// on released releases, grouped by song. The cancellation job reallocates
// these back to the owner.
func (s *Store) PendingFirstRevision(ctx context.Context, scope catalog.Scope) (map[int64][]*Split, error) {
	query := `SELECT ` + splitColumns + `
        FROM royalty_splits sp
        JOIN songs s ON s.id = sp.song_id
        JOIN releases r ON r.id = s.release_id
        WHERE sp.revision = 1
          AND sp.status IN (?, ?)
          AND r.status IN (` + releasedStatusPlaceholders() + `)`
	args := []any{StatusPending, StatusConfirmed}
	args = append(args, releasedStatusArgs()...)
	filter, filterArgs := scopeFilter(scope)
	args = append(args, filterArgs...)

	found, err := s.query(ctx, query+filter+` ORDER BY sp.song_id, sp.id`, args...)
	if err != nil {
		return nil, err
	}
	grouped := make(map[int64][]*Split)
	for _, split := range found {
		grouped[split.SongID] = append(grouped[split.SongID], split)
	}
	return grouped, nil
}

// SongIDsMissingSplits returns songs on released releases that have no
// splits at all, narrowed by scope.
func (s *Store) SongIDsMissingSplits(ctx context.Context, scope catalog.Scope) ([]int64, error) {
	query := `SELECT s.id
        FROM songs s
        JOIN releases r ON r.id = s.release_id
        WHERE r.status IN (` + releasedStatusPlaceholders() + `)
          AND NOT EXISTS (SELECT 1 FROM royalty_splits sp WHERE sp.song_id = s.id)`
	args := releasedStatusArgs()
	filter, filterArgs := scopeFilter(scope)
	args = append(args, filterArgs...)

	rows, err := s.db.SQL().QueryContext(ctx, query+filter+` ORDER BY s.id`, args...)
	if err != nil {
		return nil, fmt.Errorf("query songs missing splits: %w", err)
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

// SongIDsWithSplits returns the distinct songs holding splits in scope.
func (s *Store) SongIDsWithSplits(ctx context.Context, scope catalog.Scope) ([]int64, error) {
	query := `SELECT DISTINCT sp.song_id
        FROM royalty_splits sp
        JOIN songs s ON s.id = sp.song_id
        JOIN releases r ON r.id = s.release_id
        WHERE 1 = 1`
	filter, args := scopeFilter(scope)

	rows, err := s.db.SQL().QueryContext(ctx, query+filter+` ORDER BY sp.song_id`, args...)
	if err != nil {
		return nil, fmt.Errorf("query songs with splits: %w", err)
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

// Tx runs fn inside a transaction scoped to one song's mutations.
func (s *Store) Tx(ctx context.Context, fn func(tx *Tx) error) error {
	return s.db.WithTx(ctx, func(tx *sql.Tx) error {
		return fn(&Tx{tx: tx})
	})
}

// Tx carries the mutations of one per-song transaction.
type Tx struct {
	tx *sql.Tx
}

// NewTx wraps an open transaction so callers coordinating split mutations
// with their own writes can share one commit.
func NewTx(tx *sql.Tx) *Tx {
	return &Tx{tx: tx}
}

// Create inserts a split, filling in its ID and CreatedAt.
func (t *Tx) Create(ctx context.Context, split *Split) error {
	return insertSplit(ctx, t.tx, split)
}

// Update persists every mutable column of the split.
func (t *Tx) Update(ctx context.Context, split *Split) error {
	_, err := t.tx.ExecContext(
		ctx,
		`UPDATE royalty_splits
         SET user_id = ?, rate = ?, revision = ?, status = ?, is_owner = ?, is_locked = ?,
             start_date = ?, end_date = ?
         WHERE id = ?`,
		storage.NullableInt64(split.UserID),
		split.Rate.StringFixed(4),
		split.Revision,
		split.Status,
		storage.BoolToInt(split.IsOwner),
		storage.BoolToInt(split.IsLocked),
		storage.NullableDate(split.StartDate),
		storage.NullableDate(split.EndDate),
		split.ID,
	)
	if err != nil {
		return fmt.Errorf("update split %d: %w", split.ID, err)
	}
	return nil
}

// Delete removes splits by id and reports how many rows went away.
func (t *Tx) Delete(ctx context.Context, ids ...int64) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	res, err := t.tx.ExecContext(
		ctx,
		`DELETE FROM royalty_splits WHERE id IN (`+storage.MakePlaceholders(len(ids))+`)`,
		args...,
	)
	if err != nil {
		return 0, fmt.Errorf("delete splits: %w", err)
	}
	return res.RowsAffected()
}

// DeleteForSong removes every split of a song.
func (t *Tx) DeleteForSong(ctx context.Context, songID int64) (int64, error) {
	res, err := t.tx.ExecContext(ctx, `DELETE FROM royalty_splits WHERE song_id = ?`, songID)
	if err != nil {
		return 0, fmt.Errorf("delete song splits: %w", err)
	}
	return res.RowsAffected()
}

// SetIsOwner flips the owner flag on the given splits.
func (t *Tx) SetIsOwner(ctx context.Context, isOwner bool, ids ...int64) error {
	if len(ids) == 0 {
		return nil
	}
	args := []any{storage.BoolToInt(isOwner)}
	for _, id := range ids {
		args = append(args, id)
	}
	_, err := t.tx.ExecContext(
		ctx,
		`UPDATE royalty_splits SET is_owner = ? WHERE id IN (`+storage.MakePlaceholders(len(ids))+`)`,
		args...,
	)
	if err != nil {
		return fmt.Errorf("set is_owner: %w", err)
	}
	return nil
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func insertSplit(ctx context.Context, ex execer, split *Split) error {
	if split.CreatedAt.IsZero() {
		split.CreatedAt = time.Now().UTC()
	}
	if split.Status == "" {
		split.Status = StatusPending
	}
	res, err := ex.ExecContext(
		ctx,
		`INSERT INTO royalty_splits
             (song_id, user_id, rate, revision, status, is_owner, is_locked, start_date, end_date, created_at)
         VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		split.SongID,
		storage.NullableInt64(split.UserID),
		split.Rate.StringFixed(4),
		split.Revision,
		split.Status,
		storage.BoolToInt(split.IsOwner),
		storage.BoolToInt(split.IsLocked),
		storage.NullableDate(split.StartDate),
		storage.NullableDate(split.EndDate),
		storage.FormatTime(split.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("insert split: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("last insert id: %w", err)
	}
	split.ID = id
	return nil
}

func (s *Store) query(ctx context.Context, query string, args ...any) ([]*Split, error) {
	rows, err := s.db.SQL().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query splits: %w", err)
	}
	defer rows.Close()

	var found []*Split
	for rows.Next() {
		split, err := scanSplit(rows)
		if err != nil {
			return nil, err
		}
		found = append(found, split)
	}
	return found, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSplit(row rowScanner) (*Split, error) {
	var (
		split      Split
		userID     sql.NullInt64
		rateRaw    string
		statusRaw  string
		isOwner    int
		isLocked   int
		startRaw   sql.NullString
		endRaw     sql.NullString
		createdRaw string
	)
	err := row.Scan(
		&split.ID,
		&split.SongID,
		&userID,
		&rateRaw,
		&split.Revision,
		&statusRaw,
		&isOwner,
		&isLocked,
		&startRaw,
		&endRaw,
		&createdRaw,
	)
	if err != nil {
		return nil, err
	}
	if userID.Valid {
		v := userID.Int64
		split.UserID = &v
	}
	rate, err := decimal.NewFromString(rateRaw)
	if err != nil {
		return nil, fmt.Errorf("split %d: parse rate %q: %w", split.ID, rateRaw, err)
	}
	split.Rate = rate
	status, ok := ParseStatus(statusRaw)
	if !ok {
		return nil, fmt.Errorf("split %d: unknown status %q", split.ID, statusRaw)
	}
	split.Status = status
	split.IsOwner = isOwner != 0
	split.IsLocked = isLocked != 0
	if startRaw.Valid {
		if date, err := storage.ParseDate(startRaw.String); err == nil {
			split.StartDate = &date
		}
	}
	if endRaw.Valid {
		if date, err := storage.ParseDate(endRaw.String); err == nil {
			split.EndDate = &date
		}
	}
	if created, err := storage.ParseTime(createdRaw); err == nil {
		split.CreatedAt = created
	}
	return &split, nil
}

func scopeFilter(scope catalog.Scope) (string, []any) {
	var (
		clauses []string
		args    []any
	)
	if len(scope.ReleaseIDs) > 0 {
		clauses = append(clauses, `r.id IN (`+storage.MakePlaceholders(len(scope.ReleaseIDs))+`)`)
		for _, id := range scope.ReleaseIDs {
			args = append(args, id)
		}
	}
	if scope.HasDateRange() {
		clauses = append(clauses, `r.release_date >= ? AND r.release_date <= ?`)
		args = append(args, storage.FormatDate(*scope.From), storage.FormatDate(*scope.To))
	}
	if len(clauses) == 0 {
		return "", nil
	}
	return ` AND ` + strings.Join(clauses, ` AND `), args
}

func releasedStatusPlaceholders() string {
	return storage.MakePlaceholders(len(catalog.ReleasedStatuses))
}

func releasedStatusArgs() []any {
	args := make([]any, len(catalog.ReleasedStatuses))
	for i, status := range catalog.ReleasedStatuses {
		args[i] = string(status)
	}
	return args
}
