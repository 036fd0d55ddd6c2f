package util

import (
    "strconv"
    "testing"
    "time"
)

func TestParseTimeRFC3339(t *testing.T) {
    s := "2024-10-10T10:10:10Z"
    got, ok := ParseTime(s)
    if !ok {
        t.Fatalf("expected ok")
    }
    if got.UTC().Format(time.RFC3339) != s {
        t.Fatalf("unexpected time %v", got)
    }
}

func TestParseTimeUnix(t *testing.T) {
    ts := time.Date(2024, 10, 10, 10, 10, 10, 0, time.UTC).Unix()
    got, ok := ParseTime(strconv.FormatInt(ts, 10))
    if !ok {
        t.Fatalf("expected ok")
    }
    if got.Unix() != ts {
        t.Fatalf("unexpected unix %v", got.Unix())
    }
}

func TestParseTimeDefault(t *testing.T) {
    def := time.Date(2024, 10, 10, 10, 10, 10, 0, time.UTC)
    got := ParseTimeDefault("", def)
    if !got.Equal(def) {
        t.Fatalf("expected default")
    }
}

func TestClampSince(t *testing.T) {
    now := time.Date(2024, 10, 10, 12, 0, 0, 0, time.UTC)
    window := 24 * time.Hour
    floor := now.Add(-window)

    if got := ClampSince(time.Time{}, now, window); !got.Equal(floor) {
        t.Fatalf("zero since: got %v, want %v", got, floor)
    }
    if got := ClampSince(now.Add(-48*time.Hour), now, window); !got.Equal(floor) {
        t.Fatalf("too-old since: got %v, want %v", got, floor)
    }
    in := now.Add(-time.Hour)
    if got := ClampSince(in, now, window); !got.Equal(in) {
        t.Fatalf("in-range since: got %v, want %v", got, in)
    }
    if got := ClampSince(now.Add(time.Hour), now, window); !got.Equal(now) {
        t.Fatalf("future since: got %v, want %v", got, now)
    }
}