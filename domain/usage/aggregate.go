package usage

import (
	"fmt"
	"time"
)

// DayOfWeekCount is the number of uses on one weekday.
type DayOfWeekCount struct {
	Day   string `json:"day"`
	Count int    `json:"count"`
}

// HourCount is the number of uses within one hour of the day.
type HourCount struct {
	Hour  string `json:"hour"`
	Count int    `json:"count"`
}

// CountByDay buckets uses by calendar day in loc.
// This is a PURE function.
func CountByDay(uses []Use, loc *time.Location) map[string]int {
	counts := make(map[string]int, len(uses))
	for _, u := range uses {
		counts[DayKey(u.CreatedAt, loc)]++
	}
	return counts
}

// ByDayOfWeek counts uses per weekday. The result always has seven
// entries, Sunday first, labelled "Sun".."Sat".
// This is a PURE function.
func ByDayOfWeek(uses []Use, loc *time.Location) []DayOfWeekCount {
	if loc == nil {
		loc = time.UTC
	}
	out := make([]DayOfWeekCount, 7)
	for i := range out {
		out[i].Day = time.Weekday(i).String()[:3]
	}
	for _, u := range uses {
		out[u.CreatedAt.In(loc).Weekday()].Count++
	}
	return out
}

// ByHour counts uses per hour of day. The result always has 24 entries
// labelled "00:00".."23:00".
// This is a PURE function.
func ByHour(uses []Use, loc *time.Location) []HourCount {
	if loc == nil {
		loc = time.UTC
	}
	out := make([]HourCount, 24)
	for i := range out {
		out[i].Hour = fmt.Sprintf("%02d:00", i)
	}
	for _, u := range uses {
		out[u.CreatedAt.In(loc).Hour()].Count++
	}
	return out
}

// Earliest returns the oldest use timestamp, or false when uses is empty.
// This is a PURE function.
func Earliest(uses []Use) (time.Time, bool) {
	if len(uses) == 0 {
		return time.Time{}, false
	}
	first := uses[0].CreatedAt
	for _, u := range uses[1:] {
		if u.CreatedAt.Before(first) {
			first = u.CreatedAt
		}
	}
	return first, true
}
