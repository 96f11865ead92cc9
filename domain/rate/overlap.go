package rate

import (
	"errors"
	"time"
)

// ErrConflict matches every ConflictError via errors.Is.
var ErrConflict = errors.New("rate conflict")

// Conflict reasons.
const (
	ReasonOpenEndedExists = "Rate without to date already exists."
	ReasonOverlap         = "Overlaps with existing rate dates."
)

// ConflictError reports why a candidate rate cannot be written.
type ConflictError struct {
	Reason string
	RateID string // existing rate that caused the conflict, if any
}

func (e *ConflictError) Error() string {
	return e.Reason
}

// Is lets errors.Is(err, ErrConflict) match.
func (e *ConflictError) Is(target error) bool {
	return target == ErrConflict
}

// Span is a rate interval. A nil To is unbounded.
type Span struct {
	From time.Time
	To   *time.Time
}

// CoversStart reports whether existing already covers the candidate's start.
func CoversStart(existing Rate, c Span) bool {
	if existing.From.After(c.From) {
		return false
	}
	return existing.To == nil || !c.From.After(*existing.To)
}

// NestedIn reports whether a bounded existing rate lies fully inside a bounded candidate.
func NestedIn(existing Rate, c Span) bool {
	if c.To == nil || existing.To == nil {
		return false
	}
	return !existing.From.Before(c.From) && !existing.To.After(*c.To)
}

// OpenBeforeEnd reports whether an open-ended existing rate starts before a
// bounded candidate ends.
func OpenBeforeEnd(existing Rate, c Span) bool {
	if c.To == nil || existing.To != nil {
		return false
	}
	return !existing.From.After(*c.To)
}

// CoversEnd reports whether a bounded existing rate covers a bounded candidate's end.
func CoversEnd(existing Rate, c Span) bool {
	if c.To == nil || existing.To == nil {
		return false
	}
	return !existing.From.After(*c.To) && !c.To.After(*existing.To)
}

// StartsAtOrAfter reports whether existing starts at or after an open-ended
// candidate's start.
func StartsAtOrAfter(existing Rate, c Span) bool {
	if c.To != nil {
		return false
	}
	return !existing.From.Before(c.From)
}

// Overlaps reports whether existing conflicts with candidate c.
func Overlaps(existing Rate, c Span) bool {
	if CoversStart(existing, c) {
		return true
	}
	if c.To != nil {
		return NestedIn(existing, c) || OpenBeforeEnd(existing, c) || CoversEnd(existing, c)
	}
	return StartsAtOrAfter(existing, c)
}

// CheckOverlap validates a candidate interval against an item's existing rates.
// Rates whose ID is listed in exclude are ignored (an update excludes itself).
// This is a PURE function.
func CheckOverlap(c Span, existing []Rate, exclude ...string) error {
	skip := make(map[string]bool, len(exclude))
	for _, id := range exclude {
		skip[id] = true
	}

	if c.To == nil {
		for _, r := range existing {
			if !skip[r.ID] && r.To == nil {
				return &ConflictError{Reason: ReasonOpenEndedExists, RateID: r.ID}
			}
		}
	}

	for _, r := range existing {
		if skip[r.ID] {
			continue
		}
		if Overlaps(r, c) {
			return &ConflictError{Reason: ReasonOverlap, RateID: r.ID}
		}
	}
	return nil
}
