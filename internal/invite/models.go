package invite

import (
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Status tracks an invitation from creation to resolution.
type Status string

const (
	StatusCreated  Status = "created"
	StatusPending  Status = "pending"
	StatusAccepted Status = "accepted"
	StatusDeclined Status = "declined"
)

// Invitation links an unresolved split to the person asked to accept it.
// InviteeID stays nil until the invitee confirms with an account.
type Invitation struct {
	ID        int64
	SplitID   int64
	InviterID int64
	InviteeID *int64
	Name      string
	Email     string
	Token     string
	Status    Status
	LastSent  *time.Time
	CreatedAt time.Time
}

// Expired reports whether the invitation has outlived its send window.
func (inv *Invitation) Expired(cutoff time.Time) bool {
	return inv.LastSent == nil || inv.LastSent.Before(cutoff)
}

var nameCaser = cases.Title(language.Und)

// NormalizeName trims and title-cases an invitee display name.
func NormalizeName(name string) string {
	return nameCaser.String(strings.Join(strings.Fields(name), " "))
}

// NormalizeEmail lowercases and trims an invitee email address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
