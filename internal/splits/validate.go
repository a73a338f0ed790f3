package splits

import (
	"sort"
	"time"

	"splitledger/internal/catalog"
	"splitledger/internal/storage"
)

// Violation identifies one integrity check a song's splits failed.
type Violation string

const (
	ViolationInvalidRate      Violation = "invalid_rate"
	ViolationOwnerMismatch    Violation = "owner_is_not_main_primary_artist"
	ViolationNoActiveRevision Violation = "no_active_revision"
	ViolationBadTimeseries    Violation = "incorrect_timeseries"
	ViolationBadStatuses      Violation = "incorrect_statuses"
	ViolationMultipleOwners   Violation = "multiple_is_owner"
	ViolationSameUserSplit    Violation = "same_user_split"
	ViolationBadRevisionOrder Violation = "incorrect_revision_order"
)

// SongData is everything the validators need to judge one song's splits.
type SongData struct {
	SongID        int64
	ReleaseID     int64
	ReleaseStatus catalog.ReleaseStatus
	ReleaseDate   *time.Time
	OwnerID       *int64
	Splits        []*Split
}

// Validate runs every integrity check against one song's splits and returns
// the violations found, empty when the song is healthy.
func Validate(data SongData, today time.Time) []Violation {
	if len(data.Splits) == 0 {
		return nil
	}
	var violations []Violation
	checks := []struct {
		violation Violation
		ok        func() bool
	}{
		{ViolationInvalidRate, func() bool { return revisionRatesValid(data.Splits) }},
		{ViolationOwnerMismatch, func() bool { return ownerFlagsValid(data.Splits, data.OwnerID) }},
		{ViolationNoActiveRevision, func() bool { return activeRevisionPresent(data, today) }},
		{ViolationBadTimeseries, func() bool { return timeseriesValid(data.Splits) }},
		{ViolationBadStatuses, func() bool { return revisionStatusesValid(data.Splits) }},
		{ViolationMultipleOwners, func() bool { return singleOwnerPerRevision(data.Splits) }},
		{ViolationSameUserSplit, func() bool { return uniqueUsersPerRevision(data.Splits) }},
		{ViolationBadRevisionOrder, func() bool { return revisionsConsecutive(data.Splits) }},
	}
	for _, check := range checks {
		if !check.ok() {
			violations = append(violations, check.violation)
		}
	}
	return violations
}

func groupByRevision(all []*Split) map[int][]*Split {
	grouped := make(map[int][]*Split)
	for _, split := range all {
		grouped[split.Revision] = append(grouped[split.Revision], split)
	}
	return grouped
}

func sortedRevisions(grouped map[int][]*Split) []int {
	revisions := make([]int, 0, len(grouped))
	for revision := range grouped {
		revisions = append(revisions, revision)
	}
	sort.Ints(revisions)
	return revisions
}

// Every revision's rates must sum to exactly 1.
func revisionRatesValid(all []*Split) bool {
	for _, group := range groupByRevision(all) {
		if !SumRates(group).Equal(FullRate) {
			return false
		}
	}
	return true
}

// An is_owner split must belong to the owning account and no split of the
// owning account may carry a cleared flag.
func ownerFlagsValid(all []*Split, ownerID *int64) bool {
	for _, split := range all {
		isOwnerAccount := split.HasUser() && ownerID != nil && *split.UserID == *ownerID
		if split.IsOwner && !isOwnerAccount {
			return false
		}
		if !split.IsOwner && isOwnerAccount {
			return false
		}
	}
	return true
}

// A released song must have an active revision: the latest revision when it
// is settled, otherwise the one just below a still-pending latest revision.
func activeRevisionPresent(data SongData, today time.Time) bool {
	released := false
	for _, status := range catalog.ReleasedStatuses {
		if data.ReleaseStatus == status {
			released = true
			break
		}
	}
	if !released || data.ReleaseDate == nil || data.ReleaseDate.After(today) {
		return true
	}

	grouped := groupByRevision(data.Splits)
	revisions := sortedRevisions(grouped)
	latest := revisions[len(revisions)-1]

	if hasUnsettled(grouped[latest]) {
		if latest == 1 {
			return false
		}
		latest--
	}
	group, ok := grouped[latest]
	if !ok {
		return false
	}
	for _, split := range group {
		if split.Status != StatusActive {
			return false
		}
	}
	return true
}

func hasUnsettled(group []*Split) bool {
	for _, split := range group {
		if split.Status == StatusPending || split.Status == StatusConfirmed {
			return true
		}
	}
	return false
}

// All splits in a revision share one (start, end) pair; ordered by revision
// the pairs form a gapless series open at both ends. A nil previous end is
// tolerated because an active revision stays open until its successor is
// activated.
func timeseriesValid(all []*Split) bool {
	type window struct {
		start *time.Time
		end   *time.Time
	}
	grouped := groupByRevision(all)
	windows := make(map[int]window, len(grouped))
	for revision, group := range grouped {
		first := window{start: group[0].StartDate, end: group[0].EndDate}
		for _, split := range group[1:] {
			if !sameDate(split.StartDate, first.start) || !sameDate(split.EndDate, first.end) {
				return false
			}
		}
		windows[revision] = first
	}

	revisions := sortedRevisions(grouped)
	if windows[revisions[0]].start != nil {
		return false
	}
	if windows[revisions[len(revisions)-1]].end != nil {
		return false
	}
	for i := 1; i < len(revisions); i++ {
		prevEnd := windows[revisions[i-1]].end
		if prevEnd == nil {
			continue
		}
		start := windows[revisions[i]].start
		if start == nil || !start.AddDate(0, 0, -1).Equal(*prevEnd) {
			return false
		}
	}
	return true
}

func sameDate(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == b
	}
	return storage.FormatDate(*a) == storage.FormatDate(*b)
}

// statusRule describes one allowed (previous, current, next) triple of
// revision-level statuses; the empty status means no such neighbor.
type statusRule struct {
	prev Status
	cur  Status
	next Status
}

var validRevisionStatusRules = []statusRule{
	{prev: "", cur: StatusPending, next: ""},
	{prev: "", cur: StatusActive, next: ""},
	{prev: "", cur: StatusActive, next: StatusPending},
	{prev: "", cur: StatusArchived, next: StatusActive},
	{prev: "", cur: StatusArchived, next: StatusArchived},
	{prev: StatusArchived, cur: StatusArchived, next: StatusActive},
	{prev: StatusArchived, cur: StatusActive, next: StatusPending},
	{prev: StatusArchived, cur: StatusArchived, next: StatusArchived},
	{prev: StatusActive, cur: StatusPending, next: ""},
	{prev: StatusArchived, cur: StatusActive, next: ""},
}

// Each revision collapses to one status (pending and confirmed mix while a
// revision gathers acceptances); the collapsed sequence must then follow
// archived* -> active -> pending with pending only ever last.
func revisionStatusesValid(all []*Split) bool {
	grouped := groupByRevision(all)
	revisions := sortedRevisions(grouped)
	if revisions[0] != 1 {
		return false
	}

	collapsed := make(map[int]Status, len(grouped))
	for revision, group := range grouped {
		statuses := make(map[Status]struct{})
		for _, split := range group {
			statuses[split.Status] = struct{}{}
		}
		switch {
		case len(statuses) == 1:
			for status := range statuses {
				collapsed[revision] = status
			}
			// A revision cannot be confirmed-only: confirmation without a
			// remaining pending invite should have activated it.
			if collapsed[revision] == StatusConfirmed {
				return false
			}
		case len(statuses) == 2:
			_, pending := statuses[StatusPending]
			_, confirmed := statuses[StatusConfirmed]
			if !pending || !confirmed {
				return false
			}
			collapsed[revision] = StatusPending
		default:
			return false
		}
	}

	last := revisions[len(revisions)-1]
	for _, revision := range revisions {
		rule := statusRule{cur: collapsed[revision]}
		if revision > 1 {
			rule.prev = collapsed[revision-1]
		}
		if revision < last {
			rule.next = collapsed[revision+1]
		}
		allowed := false
		for _, candidate := range validRevisionStatusRules {
			if candidate == rule {
				allowed = true
				break
			}
		}
		if !allowed {
			return false
		}
	}
	return true
}

func singleOwnerPerRevision(all []*Split) bool {
	for _, group := range groupByRevision(all) {
		owners := 0
		for _, split := range group {
			if split.IsOwner {
				owners++
			}
		}
		if owners > 1 {
			return false
		}
	}
	return true
}

func uniqueUsersPerRevision(all []*Split) bool {
	for _, group := range groupByRevision(all) {
		seen := make(map[int64]struct{})
		for _, split := range group {
			if !split.HasUser() {
				continue
			}
			if _, dup := seen[*split.UserID]; dup {
				return false
			}
			seen[*split.UserID] = struct{}{}
		}
	}
	return true
}

func revisionsConsecutive(all []*Split) bool {
	revisions := sortedRevisions(groupByRevision(all))
	if revisions[0] != 1 {
		return false
	}
	for i, revision := range revisions {
		if revision != i+1 {
			return false
		}
	}
	return true
}
