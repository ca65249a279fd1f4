package util

import (
    "strconv"
    "testing"
    "time"
)

func TestParseTimeRFC3339(t *testing.T) {
    s := "2025-03-10T00:00:00Z"
    got, ok := ParseTime(s)
    if !ok {
        t.Fatalf("expected ok")
    }
    if got.UTC().Format(time.RFC3339) != s {
        t.Fatalf("unexpected time %v", got)
    }
}

func TestParseTimeDateOnly(t *testing.T) {
    got, ok := ParseTime("2025-03-10")
    if !ok {
        t.Fatalf("expected ok")
    }
    if got.Year() != 2025 || got.Month() != 3 || got.Day() != 10 {
        t.Fatalf("unexpected date %v", got)
    }
}

func TestParseTimeUnix(t *testing.T) {
    ts := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC).Unix()
    got, ok := ParseTime(strconv.FormatInt(ts, 10))
    if !ok {
        t.Fatalf("expected ok")
    }
    if got.Unix() != ts {
        t.Fatalf("unexpected unix %v", got.Unix())
    }
}

func TestParseTimeDefault(t *testing.T) {
    def := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)
    got := ParseTimeDefault("", def)
    if !got.Equal(def) {
        t.Fatalf("expected default")
    }
}

func TestTruncateWeek(t *testing.T) {
    // Wednesday March 12, 2025 -> Monday March 10
    wed := time.Date(2025, 3, 12, 15, 30, 0, 0, time.UTC)
    got := TruncateWeek(wed)
    want := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)
    if !got.Equal(want) {
        t.Fatalf("got %v want %v", got, want)
    }
    // Monday is a fixed point
    if !TruncateWeek(want).Equal(want) {
        t.Fatalf("monday must be a fixed point")
    }
    // Sunday rolls back to the previous Monday
    sun := time.Date(2025, 3, 16, 23, 0, 0, 0, time.UTC)
    if !TruncateWeek(sun).Equal(want) {
        t.Fatalf("sunday should map to prior monday, got %v", TruncateWeek(sun))
    }
}
