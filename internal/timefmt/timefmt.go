// Package timefmt renders pipeline timestamps and durations for display.
// Every function accepts zero times and degrades to an empty or zero value.
package timefmt

import (
	"fmt"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
)

var layouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02 15:04:05 -0700",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
}

// ParseTimestamp parses provider and git timestamps.
// Malformed or empty input yields the zero time.
func ParseTimestamp(raw string) time.Time {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}
	}
	for _, layout := range layouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t
		}
	}
	return time.Time{}
}

// FormatDuration renders the elapsed time between start and end as
// "{m}m {s}s", or "{s}s" under a minute. A zero end means the work is still
// in progress and now is used instead. Negative spans clamp to "0s".
func FormatDuration(start, end, now time.Time) string {
	if start.IsZero() {
		return "0s"
	}
	if end.IsZero() {
		end = now
	}
	secs := int64(end.Sub(start) / time.Second)
	if secs < 0 {
		secs = 0
	}
	mins := secs / 60
	secs = secs % 60
	if mins > 0 {
		return fmt.Sprintf("%dm %ds", mins, secs)
	}
	return fmt.Sprintf("%ds", secs)
}

// Duration is FormatDuration against the wall clock.
func Duration(start, end time.Time) string {
	return FormatDuration(start, end, time.Now())
}

// Ago renders t relative to now, e.g. "3 minutes ago".
func Ago(t, now time.Time) string {
	if t.IsZero() {
		return ""
	}
	return humanize.RelTime(t, now, "ago", "from now")
}

// Humanize renders the span between start and end without a suffix,
// e.g. "4 minutes".
func Humanize(start, end time.Time) string {
	if start.IsZero() || end.IsZero() {
		return ""
	}
	return strings.TrimSpace(humanize.RelTime(start, end, "", ""))
}

// Tooltip renders t in UTC and in loc for precise inspection.
func Tooltip(t time.Time, loc *time.Location) string {
	if t.IsZero() {
		return ""
	}
	if loc == nil {
		loc = time.Local
	}
	return fmt.Sprintf("%s UTC · %s",
		t.UTC().Format("2006-01-02 15:04:05"),
		t.In(loc).Format("2006-01-02 15:04:05 MST"))
}
