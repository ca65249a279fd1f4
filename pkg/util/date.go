package util

import (
	"strconv"
	"time"
)

// ParseTime tries RFC3339, RFC3339Nano, date-only, and unix seconds.
// Returns (t, true) if any worked.
func ParseTime(s string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, true
	}
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t, true
	}
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return t, true
	}
	if ts, err := strconv.ParseInt(s, 10, 64); err == nil && ts > 0 {
		return time.Unix(ts, 0), true
	}
	return time.Time{}, false
}

// ParseTimeDefault parses time or returns default if empty/invalid.
func ParseTimeDefault(s string, def time.Time) time.Time {
	if t, ok := ParseTime(s); ok {
		return t
	}
	return def
}

// TruncateWeek aligns a timestamp to its weekly bucket (Monday 00:00 UTC).
func TruncateWeek(t time.Time) time.Time {
	t = t.UTC().Truncate(24 * time.Hour)
	back := (int(t.Weekday()) + 6) % 7
	return t.AddDate(0, 0, -back)
}

// AlignWeekRange rounds a time range outward-in to weekly bucket boundaries.
func AlignWeekRange(from, to time.Time) (time.Time, time.Time) {
	return TruncateWeek(from), TruncateWeek(to)
}
