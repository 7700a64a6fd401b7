package shared

import (
	"strconv"
	"strings"
	"time"
)

// ParseDate accepts RFC3339 or YYYY-MM-DD and returns the calendar day in UTC.
func ParseDate(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, nil
	}
	if parsed, err := time.Parse(time.RFC3339, value); err == nil {
		return time.Date(parsed.Year(), parsed.Month(), parsed.Day(), 0, 0, 0, 0, time.UTC), nil
	}
	return time.Parse("2006-01-02", value)
}

// ParseYear accepts a four digit year between 1900 and 9999.
func ParseYear(value string) (int, bool) {
	year, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil || year < 1900 || year > 9999 {
		return 0, false
	}
	return year, true
}
