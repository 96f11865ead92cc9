package accrual

import (
	"fmt"
	"math"
)

const (
	secondsPerMinute = 60
	secondsPerHour   = 60 * secondsPerMinute
	secondsPerDay    = 24 * secondsPerHour
	secondsPerMonth  = 30 * secondsPerDay
)

// FormatCountdown renders a duration in seconds as the two most significant
// units, e.g. "3 mins 12 seconds" or "1 day 4 hours". Durations below one
// second are shown in milliseconds.
// This is a PURE function.
func FormatCountdown(s float64) string {
	if s < 0 || math.IsNaN(s) {
		s = 0
	}
	switch {
	case s < 1:
		return plural(int64(math.Floor(s*1000)), "millisecond")
	case s < secondsPerMinute:
		return plural(int64(s), "second")
	case s < secondsPerHour:
		mins := int64(s / secondsPerMinute)
		secs := int64(s - float64(mins*secondsPerMinute))
		return plural(mins, "min") + " " + plural(secs, "second")
	case s < secondsPerDay:
		hours := int64(s / secondsPerHour)
		mins := int64((s - float64(hours*secondsPerHour)) / secondsPerMinute)
		return plural(hours, "hour") + " " + plural(mins, "min")
	case s < secondsPerMonth:
		days := int64(s / secondsPerDay)
		hours := int64((s - float64(days*secondsPerDay)) / secondsPerHour)
		return plural(days, "day") + " " + plural(hours, "hour")
	default:
		months := int64(s / secondsPerMonth)
		days := int64((s - float64(months*secondsPerMonth)) / secondsPerDay)
		return plural(months, "month") + " " + plural(days, "day")
	}
}

func plural(n int64, unit string) string {
	if n == 1 {
		return fmt.Sprintf("%d %s", n, unit)
	}
	return fmt.Sprintf("%d %ss", n, unit)
}
