package splits_test

import (
	"testing"
	"time"

	"splitledger/internal/catalog"
	"splitledger/internal/splits"
	"splitledger/internal/testsupport"
)

func healthySongData(t *testing.T) splits.SongData {
	t.Helper()
	owner := testsupport.Int64(1)
	collaborator := testsupport.Int64(2)
	releaseDate := testsupport.Date(t, "2024-01-15")
	archiveEnd := testsupport.Date(t, "2024-02-29")
	secondStart := testsupport.Date(t, "2024-03-01")
	return splits.SongData{
		SongID:        1,
		ReleaseID:     1,
		ReleaseStatus: catalog.ReleaseStatusReleased,
		ReleaseDate:   &releaseDate,
		OwnerID:       owner,
		Splits: []*splits.Split{
			{ID: 1, SongID: 1, UserID: owner, Rate: testsupport.Rate(t, "1.0"), Revision: 1,
				Status: splits.StatusArchived, IsOwner: true, EndDate: &archiveEnd},
			{ID: 2, SongID: 1, UserID: owner, Rate: testsupport.Rate(t, "0.5"), Revision: 2,
				Status: splits.StatusActive, IsOwner: true, StartDate: &secondStart},
			{ID: 3, SongID: 1, UserID: collaborator, Rate: testsupport.Rate(t, "0.5"), Revision: 2,
				Status: splits.StatusActive, StartDate: &secondStart},
		},
	}
}

func assertViolation(t *testing.T, data splits.SongData, today time.Time, want splits.Violation) {
	t.Helper()
	for _, got := range splits.Validate(data, today) {
		if got == want {
			return
		}
	}
	t.Fatalf("expected violation %s, got %v", want, splits.Validate(data, today))
}

func TestValidateHealthySong(t *testing.T) {
	data := healthySongData(t)
	if violations := splits.Validate(data, testsupport.Date(t, "2024-06-01")); len(violations) != 0 {
		t.Fatalf("expected no violations, got %v", violations)
	}
}

func TestValidateFlagsUnbalancedRevision(t *testing.T) {
	data := healthySongData(t)
	data.Splits[1].Rate = testsupport.Rate(t, "0.4")
	assertViolation(t, data, testsupport.Date(t, "2024-06-01"), splits.ViolationInvalidRate)
}

func TestValidateFlagsOwnerMismatch(t *testing.T) {
	data := healthySongData(t)
	data.Splits[2].IsOwner = true
	assertViolation(t, data, testsupport.Date(t, "2024-06-01"), splits.ViolationOwnerMismatch)

	data = healthySongData(t)
	data.Splits[1].IsOwner = false
	assertViolation(t, data, testsupport.Date(t, "2024-06-01"), splits.ViolationOwnerMismatch)
}

func TestValidateFlagsMissingActiveRevision(t *testing.T) {
	data := healthySongData(t)
	for _, split := range data.Splits {
		split.Status = splits.StatusPending
		split.StartDate = nil
		split.EndDate = nil
	}
	data.Splits = data.Splits[:1]
	data.Splits[0].Revision = 1
	assertViolation(t, data, testsupport.Date(t, "2024-06-01"), splits.ViolationNoActiveRevision)
}

func TestValidateAcceptsPendingLatestRevisionOverActivePredecessor(t *testing.T) {
	owner := testsupport.Int64(1)
	releaseDate := testsupport.Date(t, "2024-01-15")
	data := splits.SongData{
		SongID:        1,
		ReleaseID:     1,
		ReleaseStatus: catalog.ReleaseStatusReleased,
		ReleaseDate:   &releaseDate,
		OwnerID:       owner,
		Splits: []*splits.Split{
			{ID: 1, SongID: 1, UserID: owner, Rate: testsupport.Rate(t, "1.0"), Revision: 1,
				Status: splits.StatusActive, IsOwner: true},
			{ID: 2, SongID: 1, UserID: owner, Rate: testsupport.Rate(t, "0.6"), Revision: 2,
				Status: splits.StatusPending, IsOwner: true},
			{ID: 3, SongID: 1, Rate: testsupport.Rate(t, "0.4"), Revision: 2,
				Status: splits.StatusPending},
		},
	}
	if violations := splits.Validate(data, testsupport.Date(t, "2024-06-01")); len(violations) != 0 {
		t.Fatalf("expected no violations, got %v", violations)
	}
}

func TestValidateFlagsBrokenTimeseries(t *testing.T) {
	data := healthySongData(t)
	gap := testsupport.Date(t, "2024-03-05")
	data.Splits[1].StartDate = &gap
	data.Splits[2].StartDate = &gap
	assertViolation(t, data, testsupport.Date(t, "2024-06-01"), splits.ViolationBadTimeseries)
}

func TestValidateFlagsConfirmedOnlyRevision(t *testing.T) {
	data := healthySongData(t)
	data.Splits[1].Status = splits.StatusConfirmed
	data.Splits[2].Status = splits.StatusConfirmed
	assertViolation(t, data, testsupport.Date(t, "2024-06-01"), splits.ViolationBadStatuses)
}

func TestValidateFlagsMultipleOwnersInRevision(t *testing.T) {
	data := healthySongData(t)
	data.Splits[2].UserID = testsupport.Int64(1)
	data.Splits[2].IsOwner = true
	assertViolation(t, data, testsupport.Date(t, "2024-06-01"), splits.ViolationMultipleOwners)
}

func TestValidateFlagsDuplicateAccountsInRevision(t *testing.T) {
	data := healthySongData(t)
	data.Splits[2].UserID = data.Splits[1].UserID
	assertViolation(t, data, testsupport.Date(t, "2024-06-01"), splits.ViolationSameUserSplit)
}

func TestValidateFlagsRevisionGaps(t *testing.T) {
	data := healthySongData(t)
	data.Splits[1].Revision = 3
	data.Splits[2].Revision = 3
	assertViolation(t, data, testsupport.Date(t, "2024-06-01"), splits.ViolationBadRevisionOrder)
}

func TestValidateIgnoresUnreleasedSongsForActiveRevision(t *testing.T) {
	data := healthySongData(t)
	data.ReleaseStatus = catalog.ReleaseStatusPending
	for _, split := range data.Splits {
		split.Status = splits.StatusPending
		split.StartDate = nil
		split.EndDate = nil
	}
	data.Splits = data.Splits[1:]
	for _, split := range data.Splits {
		split.Revision = 1
	}
	for _, got := range splits.Validate(data, testsupport.Date(t, "2024-06-01")) {
		if got == splits.ViolationNoActiveRevision {
			t.Fatal("unreleased songs must not require an active revision")
		}
	}
}
