package catalog

import "time"

// ReleaseStatus tracks a release through delivery to stores.
type ReleaseStatus string

const (
	ReleaseStatusPending   ReleaseStatus = "pending"
	ReleaseStatusApproved  ReleaseStatus = "approved"
	ReleaseStatusDelivered ReleaseStatus = "delivered"
	ReleaseStatusReleased  ReleaseStatus = "released"
	ReleaseStatusTakedown  ReleaseStatus = "takedown"
)

// ReleasedStatuses are the statuses in which a release is (or was) live on
// stores. Batch jobs that reconcile splits only consider these.
var ReleasedStatuses = []ReleaseStatus{
	ReleaseStatusDelivered,
	ReleaseStatusReleased,
	ReleaseStatusTakedown,
}

// RolePrimaryArtist is the role a main primary artist holds on a release.
const RolePrimaryArtist = "primary_artist"

// Artist is a performing artist with an owning user account.
type Artist struct {
	ID      int64
	Name    string
	OwnerID int64
}

// Release is a delivered collection of songs.
type Release struct {
	ID          int64
	Name        string
	Status      ReleaseStatus
	ReleaseDate *time.Time
	CreatedBy   int64
}

// Song belongs to exactly one release.
type Song struct {
	ID        int64
	ReleaseID int64
	Name      string
}

// OwnerChange records that an artist's owning account was reassigned.
// These events are supplied by the surrounding system (admin tooling);
// the engine only replays them.
type OwnerChange struct {
	ID         int64
	ArtistID   int64
	OldOwnerID int64
	NewOwnerID int64
	ChangedAt  time.Time
}

// Scope narrows batch jobs to a set of releases and/or a release-date window.
// From and To are inclusive and must be set together.
type Scope struct {
	ReleaseIDs []int64
	From       *time.Time
	To         *time.Time
}

// HasDateRange reports whether the scope carries a release-date window.
func (s Scope) HasDateRange() bool {
	return s.From != nil && s.To != nil
}
