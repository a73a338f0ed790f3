package splits

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Status represents the lifecycle of a split revision.
type Status string

const (
	StatusPending   Status = "pending"
	StatusConfirmed Status = "confirmed"
	StatusActive    Status = "active"
	StatusArchived  Status = "archived"
)

var allStatuses = []Status{
	StatusPending,
	StatusConfirmed,
	StatusActive,
	StatusArchived,
}

var statusSet = func() map[Status]struct{} {
	set := make(map[Status]struct{}, len(allStatuses))
	for _, status := range allStatuses {
		set[status] = struct{}{}
	}
	return set
}()

// AllStatuses returns the ordered list of known statuses.
func AllStatuses() []Status {
	cp := make([]Status, len(allStatuses))
	copy(cp, allStatuses)
	return cp
}

// ParseStatus converts a string into a known Status.
func ParseStatus(value string) (Status, bool) {
	normalized := Status(strings.ToLower(strings.TrimSpace(value)))
	if normalized == "" {
		return "", false
	}
	_, ok := statusSet[normalized]
	return normalized, ok
}

// FullRate is the rate a revision's splits must sum to once confirmed.
var FullRate = decimal.NewFromInt(1)

// Split is one account's share of a song's royalties within one revision.
// A nil UserID means the beneficiary is an unresolved invitee.
type Split struct {
	ID        int64
	SongID    int64
	UserID    *int64
	Rate      decimal.Decimal
	Revision  int
	Status    Status
	IsOwner   bool
	IsLocked  bool
	StartDate *time.Time
	EndDate   *time.Time
	CreatedAt time.Time
}

// HasUser reports whether the beneficiary account is resolved.
func (s *Split) HasUser() bool {
	return s != nil && s.UserID != nil
}

// BelongsTo reports whether the split belongs to the given account.
func (s *Split) BelongsTo(userID int64) bool {
	return s.HasUser() && *s.UserID == userID
}

// Clone returns a deep copy, used when planning new revisions from
// existing ones.
func (s *Split) Clone() *Split {
	if s == nil {
		return nil
	}
	cp := *s
	if s.UserID != nil {
		v := *s.UserID
		cp.UserID = &v
	}
	if s.StartDate != nil {
		v := *s.StartDate
		cp.StartDate = &v
	}
	if s.EndDate != nil {
		v := *s.EndDate
		cp.EndDate = &v
	}
	return &cp
}

// SumRates adds the rates of every split in the group.
func SumRates(group []*Split) decimal.Decimal {
	sum := decimal.Zero
	for _, split := range group {
		sum = sum.Add(split.Rate)
	}
	return sum
}

// ContainsLocked reports whether any group member is encumbered.
func ContainsLocked(group []*Split) bool {
	for _, split := range group {
		if split.IsLocked {
			return true
		}
	}
	return false
}
