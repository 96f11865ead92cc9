package clock_test

import (
	"testing"
	"time"

	"github.com/artpar/accrue/adapters/clock"
)

func TestReal_NowIsUTC(t *testing.T) {
	before := time.Now()
	got := clock.Real{}.Now()
	after := time.Now()

	if got.Location() != time.UTC {
		t.Errorf("Location = %v, want UTC", got.Location())
	}
	if got.Before(before.Add(-time.Second)) || got.After(after.Add(time.Second)) {
		t.Errorf("Now() = %v, expected between %v and %v", got, before, after)
	}
}

func TestFake(t *testing.T) {
	start := time.Date(2024, 3, 9, 12, 0, 0, 0, time.UTC)
	c := clock.NewFake(start)

	if !c.Now().Equal(start) {
		t.Errorf("Now() = %v, want %v", c.Now(), start)
	}

	c.Advance(90 * time.Minute)
	if want := start.Add(90 * time.Minute); !c.Now().Equal(want) {
		t.Errorf("after Advance = %v, want %v", c.Now(), want)
	}

	c.AdvanceDays(2)
	if want := time.Date(2024, 3, 11, 13, 30, 0, 0, time.UTC); !c.Now().Equal(want) {
		t.Errorf("after AdvanceDays = %v, want %v", c.Now(), want)
	}

	c.Set(start)
	if !c.Now().Equal(start) {
		t.Errorf("after Set = %v, want %v", c.Now(), start)
	}
}
