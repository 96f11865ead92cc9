// Package rate provides rate interval types and the overlap validator.
// All functions are pure - no side effects.
package rate

import (
	"errors"
	"math"
	"time"
)

// Validation errors.
var (
	ErrInvalidValue = errors.New("rate value must be a finite number")
	ErrInvalidUnit  = errors.New("rate unit is invalid")
	ErrMissingFrom  = errors.New("rate from date is required")
	ErrInvalidSpan  = errors.New("rate to date must not be before from date")
)

// Rate is a time-bounded accrual rule attached to an item (value type).
// A nil To means the rate is open-ended and still active.
type Rate struct {
	ID        string
	ItemID    string
	Value     float64
	Unit      Unit
	From      time.Time
	To        *time.Time
	CreatedAt time.Time
}

// PerSecond converts the rate to units per second.
func (r Rate) PerSecond() float64 {
	secs := r.Unit.Seconds()
	if secs == 0 {
		return 0
	}
	return r.Value / secs
}

// PerDay converts the rate to units per day.
func (r Rate) PerDay() float64 {
	return r.PerSecond() * SecondsPerDay
}

// OpenEnded reports whether the rate has no end.
func (r Rate) OpenEnded() bool {
	return r.To == nil
}

// Span returns the rate's interval.
func (r Rate) Span() Span {
	return Span{From: r.From, To: r.To}
}

// Validate checks a rate's own fields. Overlap with other rates is
// checked separately by CheckOverlap.
func Validate(r Rate) error {
	if math.IsNaN(r.Value) || math.IsInf(r.Value, 0) {
		return ErrInvalidValue
	}
	if !r.Unit.Valid() {
		return ErrInvalidUnit
	}
	if r.From.IsZero() {
		return ErrMissingFrom
	}
	if r.To != nil && r.To.Before(r.From) {
		return ErrInvalidSpan
	}
	return nil
}
