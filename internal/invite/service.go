package invite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"

	"splitledger/internal/splits"
	"splitledger/internal/storage"
)

// ErrInvalidToken is returned for unknown, declined, unsent or
// already-claimed tokens.
var ErrInvalidToken = errors.New("invalid invitation token")

// ErrExpiredToken is returned when the acceptance window has closed.
var ErrExpiredToken = errors.New("invitation token expired")

// Service wires invitation acceptance into the split lifecycle.
type Service struct {
	db         *storage.DB
	invites    *Store
	splits     *splits.Store
	logger     *slog.Logger
	expiryDays int
}

// NewService assembles the invitation service. expiryDays bounds how long a
// sent invitation stays acceptable.
func NewService(db *storage.DB, invites *Store, splitStore *splits.Store, logger *slog.Logger, expiryDays int) *Service {
	return &Service{
		db:         db,
		invites:    invites,
		splits:     splitStore,
		logger:     logger,
		expiryDays: expiryDays,
	}
}

// NewToken mints an invitation token.
func NewToken() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}

// Invite creates an invitation for an unresolved split and records the
// initial send.
func (s *Service) Invite(ctx context.Context, splitID, inviterID int64, name, email string, now time.Time) (*Invitation, error) {
	split, err := s.splits.ByID(ctx, splitID)
	if err != nil {
		return nil, err
	}
	if split == nil {
		return nil, fmt.Errorf("split %d not found", splitID)
	}
	if split.HasUser() {
		return nil, fmt.Errorf("split %d already has an account", splitID)
	}
	inv := &Invitation{
		SplitID:   splitID,
		InviterID: inviterID,
		Name:      NormalizeName(name),
		Email:     NormalizeEmail(email),
		Token:     NewToken(),
		Status:    StatusCreated,
		CreatedAt: now.UTC(),
	}
	if err := s.invites.Create(ctx, inv); err != nil {
		return nil, err
	}
	if err := s.invites.MarkSent(ctx, inv.ID, now); err != nil {
		return nil, err
	}
	inv.Status = StatusPending
	sent := now
	inv.LastSent = &sent
	s.logger.Info("invitation created", "invitation_id", inv.ID, "split_id", splitID, "inviter_id", inviterID)
	return inv, nil
}

// Confirm accepts an invitation on behalf of the given account. It resolves
// the split's beneficiary, consolidates same-account confirmed splits in the
// revision, and activates the revision once every member is confirmed,
// retiring whatever revision was active before. Re-confirming an accepted
// token by the same account is a no-op returning the same split.
func (s *Service) Confirm(ctx context.Context, token string, userID int64, today time.Time) (*splits.Split, error) {
	inv, err := s.invites.ByToken(ctx, token)
	if err != nil {
		return nil, err
	}
	if inv == nil {
		return nil, ErrInvalidToken
	}

	if inv.Status == StatusAccepted {
		if inv.InviteeID != nil && *inv.InviteeID == userID {
			return s.splits.ByID(ctx, inv.SplitID)
		}
		return nil, ErrInvalidToken
	}
	if inv.Status != StatusPending {
		return nil, ErrInvalidToken
	}
	if inv.Expired(today.AddDate(0, 0, -s.expiryDays)) {
		return nil, ErrExpiredToken
	}

	primary, err := s.splits.ByID(ctx, inv.SplitID)
	if err != nil {
		return nil, err
	}
	if primary == nil {
		return nil, ErrInvalidToken
	}

	songSplits, err := s.splits.ForSong(ctx, primary.SongID)
	if err != nil {
		return nil, err
	}

	err = s.db.WithTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(
			ctx,
			`UPDATE royalty_invitations SET status = ?, invitee_id = ? WHERE id = ?`,
			StatusAccepted,
			userID,
			inv.ID,
		); err != nil {
			return fmt.Errorf("accept invitation: %w", err)
		}
		st := splits.NewTx(tx)
		return s.settleRevision(ctx, st, primary, songSplits, userID, today)
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("invitation accepted",
		"invitation_id", inv.ID,
		"split_id", primary.ID,
		"song_id", primary.SongID,
		"user_id", userID,
	)
	return primary, nil
}

// settleRevision applies the post-acceptance split mutations inside the
// caller's transaction.
func (s *Service) settleRevision(ctx context.Context, st *splits.Tx, primary *splits.Split, songSplits []*splits.Split, userID int64, today time.Time) error {
	primary.Status = splits.StatusConfirmed
	primary.UserID = &userID

	var (
		group    []*splits.Split
		others   []*splits.Split
		obsolete []int64
	)
	for _, split := range songSplits {
		if split.ID == primary.ID {
			continue
		}
		if split.Revision != primary.Revision {
			others = append(others, split)
			continue
		}
		// An account may only appear once per revision, so a confirmed
		// split already belonging to the accepting account folds into the
		// accepted one.
		if split.Status == splits.StatusConfirmed && split.BelongsTo(userID) {
			primary.Rate = primary.Rate.Add(split.Rate)
			primary.IsOwner = primary.IsOwner || split.IsOwner
			obsolete = append(obsolete, split.ID)
			continue
		}
		group = append(group, split)
	}
	if err := st.Update(ctx, primary); err != nil {
		return err
	}
	if len(obsolete) > 0 {
		s.logger.Info("consolidated same-account splits",
			"song_id", primary.SongID,
			"revision", primary.Revision,
			"split_ids", obsolete,
		)
		if _, err := st.Delete(ctx, obsolete...); err != nil {
			return err
		}
	}
	group = append(group, primary)

	if !splits.IsFullyConfirmed(group) {
		return nil
	}
	if err := st.Activate(ctx, group, today); err != nil {
		return err
	}

	// Retire the superseded revision: archive yesterday's active splits,
	// drop ones activated earlier today so no zero-length window survives.
	activeByRevision := make(map[int][]*splits.Split)
	var sameDay []int64
	for _, split := range others {
		if split.Status != splits.StatusActive {
			continue
		}
		if split.StartDate != nil && storage.FormatDate(*split.StartDate) == storage.FormatDate(today) {
			sameDay = append(sameDay, split.ID)
			continue
		}
		activeByRevision[split.Revision] = append(activeByRevision[split.Revision], split)
	}
	for _, revGroup := range activeByRevision {
		if err := st.Archive(ctx, revGroup, today.AddDate(0, 0, -1)); err != nil {
			return err
		}
	}
	if len(sameDay) > 0 {
		s.logger.Info("deleted same-day active splits", "song_id", primary.SongID, "split_ids", sameDay)
		if _, err := st.Delete(ctx, sameDay...); err != nil {
			return err
		}
	}

	// Unsettled older revisions are abandoned drafts once this one wins.
	var stale []int64
	remaining := 0
	for _, split := range others {
		switch split.Status {
		case splits.StatusPending, splits.StatusConfirmed:
			stale = append(stale, split.ID)
		default:
			if slices.Contains(sameDay, split.ID) {
				continue
			}
			if split.Revision > remaining {
				remaining = split.Revision
			}
		}
	}
	if len(stale) > 0 {
		s.logger.Info("deleted unsettled splits", "song_id", primary.SongID, "split_ids", stale)
		if _, err := st.Delete(ctx, stale...); err != nil {
			return err
		}
	}

	// Renumber so revisions stay consecutive after the deletions.
	if next := remaining + 1; next != primary.Revision {
		s.logger.Info("renumbered revision",
			"song_id", primary.SongID,
			"from", primary.Revision,
			"to", next,
		)
		for _, split := range group {
			split.Revision = next
			if err := st.Update(ctx, split); err != nil {
				return err
			}
		}
	}
	return nil
}
