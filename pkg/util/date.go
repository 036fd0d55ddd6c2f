package util

import (
    "strconv"
    "time"
)

// ParseTime tries RFC3339, RFC3339Nano, and unix seconds. Returns (t, true) if any worked.
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

// ClampSince bounds a lookback start so queries never reach further back
// than maxWindow from now. A zero since defaults to the full window.
func ClampSince(since, now time.Time, maxWindow time.Duration) time.Time {
    floor := now.Add(-maxWindow)
    if since.IsZero() || since.Before(floor) {
        return floor
    }
    if since.After(now) {
        return now
    }
    return since
}

// No extra helpers here; use strconv where needed.