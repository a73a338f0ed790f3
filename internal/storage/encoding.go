package storage

import (
	"errors"
	"time"
)

const dateLayout = "2006-01-02"

// FormatDate encodes a calendar date for storage.
func FormatDate(t time.Time) string {
	return t.Format(dateLayout)
}

// ParseDate decodes a stored calendar date.
func ParseDate(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, errors.New("empty date")
	}
	return time.Parse(dateLayout, value)
}

// FormatTime encodes a timestamp for storage.
func FormatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

// ParseTime decodes a stored timestamp.
func ParseTime(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, errors.New("empty timestamp")
	}
	if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02 15:04:05", value)
}

// NullableString maps empty strings to NULL.
func NullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

// NullableInt64 maps nil pointers to NULL.
func NullableInt64(value *int64) any {
	if value == nil {
		return nil
	}
	return *value
}

// NullableDate maps nil pointers to NULL.
func NullableDate(value *time.Time) any {
	if value == nil {
		return nil
	}
	return FormatDate(*value)
}

// BoolToInt encodes a boolean flag for storage.
func BoolToInt(value bool) int {
	if value {
		return 1
	}
	return 0
}

// MakePlaceholders returns "?,?,..." for IN clauses.
func MakePlaceholders(count int) string {
	if count <= 0 {
		return ""
	}
	placeholders := make([]byte, 0, count*2)
	for i := 0; i < count; i++ {
		if i > 0 {
			placeholders = append(placeholders, ',')
		}
		placeholders = append(placeholders, '?')
	}
	return string(placeholders)
}
