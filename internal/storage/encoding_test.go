package storage_test

import (
	"testing"
	"time"

	"splitledger/internal/storage"
)

func TestDateRoundTrip(t *testing.T) {
	want := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	got, err := storage.ParseDate(storage.FormatDate(want))
	if err != nil {
		t.Fatal(err)
	}
	if !got.Equal(want) {
		t.Fatalf("round trip changed the date: %v != %v", got, want)
	}
	if _, err := storage.ParseDate(""); err == nil {
		t.Fatal("expected error for empty date")
	}
}

func TestParseTimeAcceptsLegacyLayout(t *testing.T) {
	got, err := storage.ParseTime("2024-03-01 12:30:45")
	if err != nil {
		t.Fatal(err)
	}
	if got.Hour() != 12 || got.Minute() != 30 {
		t.Fatalf("unexpected time %v", got)
	}

	now := time.Date(2024, 3, 1, 12, 30, 45, 123456789, time.UTC)
	round, err := storage.ParseTime(storage.FormatTime(now))
	if err != nil {
		t.Fatal(err)
	}
	if !round.Equal(now) {
		t.Fatalf("round trip changed the timestamp: %v != %v", round, now)
	}
}

func TestNullableHelpers(t *testing.T) {
	if storage.NullableString("") != nil {
		t.Fatal("empty string must map to NULL")
	}
	if storage.NullableString("x") != "x" {
		t.Fatal("non-empty string must pass through")
	}
	if storage.NullableInt64(nil) != nil {
		t.Fatal("nil pointer must map to NULL")
	}
	v := int64(7)
	if storage.NullableInt64(&v) != int64(7) {
		t.Fatal("pointer value must pass through")
	}
	if storage.NullableDate(nil) != nil {
		t.Fatal("nil date must map to NULL")
	}
}

func TestMakePlaceholders(t *testing.T) {
	if got := storage.MakePlaceholders(0); got != "" {
		t.Fatalf("expected empty string, got %q", got)
	}
	if got := storage.MakePlaceholders(3); got != "?,?,?" {
		t.Fatalf("expected three placeholders, got %q", got)
	}
}
