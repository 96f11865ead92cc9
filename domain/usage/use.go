// Package usage provides the use event type and pure bucketing helpers.
package usage

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// DayLayout is the calendar-day key format used for daily buckets.
const DayLayout = "2006-01-02"

// ErrBadInstant is returned by ParseInstant for unparseable input.
var ErrBadInstant = errors.New("must be an RFC 3339 timestamp or a YYYY-MM-DD date")

// Use records one consumption of one accumulated unit.
// Several uses may share a timestamp.
type Use struct {
	ID        string
	ItemID    string
	CreatedAt time.Time
}

// New creates a use at the given instant.
func New(id, itemID string, at time.Time) Use {
	return Use{ID: id, ItemID: itemID, CreatedAt: at}
}

// StartOfDay returns midnight of t's calendar day in loc.
// This is a PURE function.
func StartOfDay(t time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	t = t.In(loc)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
}

// EndOfDay returns the last nanosecond of t's calendar day in loc.
// This is a PURE function.
func EndOfDay(t time.Time, loc *time.Location) time.Time {
	return StartOfDay(t, loc).AddDate(0, 0, 1).Add(-time.Nanosecond)
}

// DayKey formats t's calendar day in loc as YYYY-MM-DD.
// This is a PURE function.
func DayKey(t time.Time, loc *time.Location) string {
	if loc == nil {
		loc = time.UTC
	}
	return t.In(loc).Format(DayLayout)
}

// SameDay reports whether a and b fall on the same calendar day in loc.
func SameDay(a, b time.Time, loc *time.Location) bool {
	return DayKey(a, loc) == DayKey(b, loc)
}

// ParseInstant accepts an RFC 3339 instant or a YYYY-MM-DD date. A date
// means the start of that day in loc. The result is in UTC.
func ParseInstant(s string, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.UTC
	}
	s = strings.TrimSpace(s)
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t.UTC(), nil
	}
	if t, err := time.ParseInLocation(DayLayout, s, loc); err == nil {
		return t.UTC(), nil
	}
	return time.Time{}, fmt.Errorf("%q %w", s, ErrBadInstant)
}
