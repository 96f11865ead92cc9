package rate

import (
	"fmt"
	"strings"
)

// Unit is the period a rate's value is expressed over.
type Unit string

const (
	Minute Unit = "Minute"
	Hour   Unit = "Hour"
	Day    Unit = "Day"
	Week   Unit = "Week"
	Month  Unit = "Month" // always 30 days
	Year   Unit = "Year"  // always 365 days
)

// SecondsPerDay is the length of a Day unit in seconds.
const SecondsPerDay = 86400

var unitSeconds = map[Unit]float64{
	Minute: 60,
	Hour:   60 * 60,
	Day:    SecondsPerDay,
	Week:   SecondsPerDay * 7,
	Month:  SecondsPerDay * 30,
	Year:   SecondsPerDay * 365,
}

// Units lists every unit in ascending length.
func Units() []Unit {
	return []Unit{Minute, Hour, Day, Week, Month, Year}
}

// Seconds returns the fixed length of the unit. Unknown units return 0.
func (u Unit) Seconds() float64 {
	return unitSeconds[u]
}

// Valid reports whether u is one of the known units.
func (u Unit) Valid() bool {
	_, ok := unitSeconds[u]
	return ok
}

func (u Unit) String() string {
	return string(u)
}

// ParseUnit parses a unit name case-insensitively.
func ParseUnit(s string) (Unit, error) {
	s = strings.TrimSpace(s)
	for _, u := range Units() {
		if strings.EqualFold(s, string(u)) {
			return u, nil
		}
	}
	return "", fmt.Errorf("unknown rate unit %q", s)
}
