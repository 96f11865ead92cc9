// Package accrual computes accumulated balances and time-bucketed analytics
// from an item's rate intervals and uses.
// All functions are pure - the caller supplies "now" and the day location.
package accrual

import (
	"math"
	"time"

	"github.com/artpar/accrue/domain/rate"
	"github.com/artpar/accrue/domain/usage"
)

// Accumulation is the balance of an item at an instant (value type).
type Accumulation struct {
	Total                int64    // whole units accumulated
	Exact                float64  // unfloored running total
	CurrentRatePerSecond *float64 // nil when no rate is active
	SecondsUntilNext     *float64 // nil when the active rate is zero or absent
}

// Compute returns the total accumulated by now across rates, the currently
// effective per-second rate and the seconds until the next whole unit.
//
// Rates starting after now are ignored. A bounded rate accrues until its To,
// an open rate until now. A rate is current when it is open-ended or when now
// falls on or before the calendar day (in loc) its accrual ended; the last
// matching rate wins.
// This is a PURE function.
func Compute(rates []rate.Rate, now time.Time, loc *time.Location) Accumulation {
	var (
		total   float64
		current *float64
	)

	for _, r := range rates {
		if r.From.After(now) {
			continue
		}
		end := now
		if r.To != nil && r.To.Before(now) {
			end = *r.To
		}

		perSec := r.PerSecond()
		total += perSec * end.Sub(r.From).Seconds()

		if r.To == nil || activeOn(now, r.From, end, loc) {
			v := perSec
			current = &v
		}
	}

	acc := Accumulation{
		Total:                int64(math.Floor(total)),
		Exact:                total,
		CurrentRatePerSecond: current,
	}
	if current != nil && *current > 0 {
		next := (1 - (total - math.Floor(total))) / *current
		acc.SecondsUntilNext = &next
	}
	return acc
}

// activeOn reports whether now lies within [from, end] at day granularity.
func activeOn(now, from, end time.Time, loc *time.Location) bool {
	day := usage.StartOfDay(now, loc)
	return !day.Before(usage.StartOfDay(from, loc)) && !day.After(usage.StartOfDay(end, loc))
}
