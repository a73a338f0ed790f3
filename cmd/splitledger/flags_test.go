package main

import (
	"errors"
	"testing"
	"time"
)

func TestScopeFlagsRequireBothDates(t *testing.T) {
	flags := scopeFlags{startDate: "2024-01-01"}
	if _, err := flags.scope(); !errors.Is(err, errDatePair) {
		t.Fatalf("expected errDatePair, got %v", err)
	}

	flags = scopeFlags{endDate: "2024-01-01"}
	if _, err := flags.scope(); !errors.Is(err, errDatePair) {
		t.Fatalf("expected errDatePair, got %v", err)
	}
}

func TestScopeFlagsParseWindow(t *testing.T) {
	flags := scopeFlags{startDate: "2024-01-01", endDate: "2024-06-30", releaseIDs: []int64{1, 2}}
	scope, err := flags.scope()
	if err != nil {
		t.Fatal(err)
	}
	if !scope.HasDateRange() {
		t.Fatal("expected a date range")
	}
	if !scope.From.Equal(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("unexpected from: %v", scope.From)
	}
	if !scope.To.Equal(time.Date(2024, 6, 30, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("unexpected to: %v", scope.To)
	}
	if len(scope.ReleaseIDs) != 2 {
		t.Fatalf("unexpected release ids: %v", scope.ReleaseIDs)
	}
}

func TestScopeFlagsRejectInvertedWindow(t *testing.T) {
	flags := scopeFlags{startDate: "2024-06-30", endDate: "2024-01-01"}
	if _, err := flags.scope(); err == nil {
		t.Fatal("expected error for inverted window")
	}
}

func TestScopeFlagsRejectMalformedDates(t *testing.T) {
	flags := scopeFlags{startDate: "01/01/2024", endDate: "2024-06-30"}
	if _, err := flags.scope(); err == nil {
		t.Fatal("expected error for malformed date")
	}
}

func TestScopeFlagsEmpty(t *testing.T) {
	var flags scopeFlags
	scope, err := flags.scope()
	if err != nil {
		t.Fatal(err)
	}
	if scope.HasDateRange() || len(scope.ReleaseIDs) != 0 {
		t.Fatalf("expected empty scope, got %+v", scope)
	}
}
