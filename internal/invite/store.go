package invite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"splitledger/internal/catalog"
	"splitledger/internal/splits"
	"splitledger/internal/storage"
)

// Store provides invitation persistence over the shared database.
type Store struct {
	db *storage.DB
}

// NewStore wraps the shared database handle.
func NewStore(db *storage.DB) *Store {
	return &Store{db: db}
}

const invitationColumns = `inv.id, inv.split_id, inv.inviter_id, inv.invitee_id,
    inv.name, inv.email, inv.token, inv.status, inv.last_sent, inv.created_at`

// Create inserts an invitation, filling in its ID and CreatedAt.
func (s *Store) Create(ctx context.Context, inv *Invitation) error {
	if inv.CreatedAt.IsZero() {
		inv.CreatedAt = time.Now().UTC()
	}
	if inv.Status == "" {
		inv.Status = StatusCreated
	}
	var lastSent any
	if inv.LastSent != nil {
		lastSent = storage.FormatTime(*inv.LastSent)
	}
	res, err := s.db.Exec(
		ctx,
		`INSERT INTO royalty_invitations
             (split_id, inviter_id, invitee_id, name, email, token, status, last_sent, created_at)
         VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		inv.SplitID,
		inv.InviterID,
		storage.NullableInt64(inv.InviteeID),
		inv.Name,
		inv.Email,
		inv.Token,
		inv.Status,
		lastSent,
		storage.FormatTime(inv.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("insert invitation: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("last insert id: %w", err)
	}
	inv.ID = id
	return nil
}

// ByToken fetches an invitation, returning nil when the token is unknown.
func (s *Store) ByToken(ctx context.Context, token string) (*Invitation, error) {
	row := s.db.SQL().QueryRowContext(
		ctx,
		`SELECT `+invitationColumns+` FROM royalty_invitations inv WHERE inv.token = ?`,
		token,
	)
	inv, err := scanInvitation(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return inv, err
}

// BySplit fetches the invitation attached to a split, nil when absent.
func (s *Store) BySplit(ctx context.Context, splitID int64) (*Invitation, error) {
	row := s.db.SQL().QueryRowContext(
		ctx,
		`SELECT `+invitationColumns+` FROM royalty_invitations inv WHERE inv.split_id = ? ORDER BY inv.id LIMIT 1`,
		splitID,
	)
	inv, err := scanInvitation(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return inv, err
}

// MarkSent records a (re)send, which opens the acceptance window.
func (s *Store) MarkSent(ctx context.Context, id int64, at time.Time) error {
	_, err := s.db.Exec(
		ctx,
		`UPDATE royalty_invitations SET status = ?, last_sent = ? WHERE id = ?`,
		StatusPending,
		storage.FormatTime(at),
		id,
	)
	if err != nil {
		return fmt.Errorf("mark invitation sent: %w", err)
	}
	return nil
}

// Decline marks the invitation refused by its invitee.
func (s *Store) Decline(ctx context.Context, id int64) error {
	_, err := s.db.Exec(ctx, `UPDATE royalty_invitations SET status = ? WHERE id = ?`, StatusDeclined, id)
	if err != nil {
		return fmt.Errorf("decline invitation: %w", err)
	}
	return nil
}

// ExpiredGroup identifies one (song, revision) whose pending invitation has
// outlived its acceptance window.
type ExpiredGroup struct {
	InviterID int64
	SongID    int64
	SongName  string
	Revision  int
}

// ExpiredGroups finds pending invitations sent before the cutoff whose
// splits are still unsettled in the latest post-initial revision of a song
// on a released release. Revision 1 is exempt: the cancellation job owns
// initial-revision cleanup.
func (s *Store) ExpiredGroups(ctx context.Context, cutoff time.Time, releaseIDs []int64) ([]ExpiredGroup, error) {
	query := `SELECT DISTINCT inv.inviter_id, sp.song_id, s.name, sp.revision
        FROM royalty_invitations inv
        JOIN royalty_splits sp ON sp.id = inv.split_id
        JOIN songs s ON s.id = sp.song_id
        JOIN releases r ON r.id = s.release_id
        WHERE inv.status = ?
          AND inv.last_sent IS NOT NULL AND inv.last_sent < ?
          AND sp.status IN (?, ?)
          AND sp.revision = (
              SELECT MAX(x.revision) FROM royalty_splits x
              WHERE x.song_id = sp.song_id AND x.revision > 1)
          AND r.status IN (` + storage.MakePlaceholders(len(catalog.ReleasedStatuses)) + `)`
	args := []any{
		StatusPending,
		storage.FormatTime(cutoff),
		splits.StatusPending,
		splits.StatusConfirmed,
	}
	for _, status := range catalog.ReleasedStatuses {
		args = append(args, string(status))
	}
	if len(releaseIDs) > 0 {
		query += ` AND r.id IN (` + storage.MakePlaceholders(len(releaseIDs)) + `)`
		for _, id := range releaseIDs {
			args = append(args, id)
		}
	}
	query += ` ORDER BY sp.song_id, sp.revision`

	rows, err := s.db.SQL().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query expired invitations: %w", err)
	}
	defer rows.Close()

	var groups []ExpiredGroup
	for rows.Next() {
		var group ExpiredGroup
		if err := rows.Scan(&group.InviterID, &group.SongID, &group.SongName, &group.Revision); err != nil {
			return nil, err
		}
		groups = append(groups, group)
	}
	return groups, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanInvitation(row rowScanner) (*Invitation, error) {
	var (
		inv        Invitation
		inviteeID  sql.NullInt64
		statusRaw  string
		lastSent   sql.NullString
		createdRaw string
	)
	err := row.Scan(
		&inv.ID,
		&inv.SplitID,
		&inv.InviterID,
		&inviteeID,
		&inv.Name,
		&inv.Email,
		&inv.Token,
		&statusRaw,
		&lastSent,
		&createdRaw,
	)
	if err != nil {
		return nil, err
	}
	if inviteeID.Valid {
		v := inviteeID.Int64
		inv.InviteeID = &v
	}
	inv.Status = Status(statusRaw)
	if lastSent.Valid {
		if sent, err := storage.ParseTime(lastSent.String); err == nil {
			inv.LastSent = &sent
		}
	}
	if created, err := storage.ParseTime(createdRaw); err == nil {
		inv.CreatedAt = created
	}
	return &inv, nil
}
