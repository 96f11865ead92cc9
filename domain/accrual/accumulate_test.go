package accrual_test

import (
	"math"
	"testing"
	"time"

	"github.com/artpar/accrue/domain/accrual"
	"github.com/artpar/accrue/domain/rate"
)

var base = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func ptr(t time.Time) *time.Time { return &t }

func days(n int) time.Duration { return time.Duration(n) * 24 * time.Hour }

func TestCompute_NoRates(t *testing.T) {
	acc := accrual.Compute(nil, base, time.UTC)

	if acc.Total != 0 {
		t.Errorf("Total = %d, want 0", acc.Total)
	}
	if acc.CurrentRatePerSecond != nil {
		t.Errorf("CurrentRatePerSecond = %v, want nil", *acc.CurrentRatePerSecond)
	}
	if acc.SecondsUntilNext != nil {
		t.Errorf("SecondsUntilNext = %v, want nil", *acc.SecondsUntilNext)
	}
}

func TestCompute_OneUnitPerDayForTenDays(t *testing.T) {
	rates := []rate.Rate{{ID: "r1", Value: 1, Unit: rate.Day, From: base}}
	now := base.Add(days(10) + time.Hour)

	acc := accrual.Compute(rates, now, time.UTC)

	if acc.Total != 10 {
		t.Errorf("Total = %d, want 10", acc.Total)
	}
	if acc.CurrentRatePerSecond == nil || *acc.CurrentRatePerSecond != 1.0/86400 {
		t.Fatalf("CurrentRatePerSecond = %v, want 1/86400", acc.CurrentRatePerSecond)
	}
	if acc.SecondsUntilNext == nil {
		t.Fatal("SecondsUntilNext = nil")
	}
	if got := *acc.SecondsUntilNext; math.Abs(got-23*3600) > 1e-6 {
		t.Errorf("SecondsUntilNext = %v, want %v", got, 23*3600)
	}
}

func TestCompute_CountdownDecreases(t *testing.T) {
	rates := []rate.Rate{{Value: 1, Unit: rate.Hour, From: base}}

	prev := math.Inf(1)
	prevTotal := int64(-1)
	for i := 1; i < 7200; i += 97 {
		acc := accrual.Compute(rates, base.Add(time.Duration(i)*time.Second), time.UTC)
		next := *acc.SecondsUntilNext
		if acc.Total == prevTotal && next >= prev {
			t.Fatalf("at %ds countdown %v did not decrease from %v", i, next, prev)
		}
		if acc.Total != prevTotal && prevTotal >= 0 && next <= prev {
			t.Fatalf("at %ds countdown %v did not reset after increment", i, next)
		}
		prev, prevTotal = next, acc.Total
	}
}

func TestCompute_SkipsFutureRates(t *testing.T) {
	rates := []rate.Rate{
		{Value: 3600, Unit: rate.Hour, From: base, To: ptr(base.Add(10 * time.Second))},
		{Value: 1000, Unit: rate.Minute, From: base.Add(days(5))},
	}

	acc := accrual.Compute(rates, base.Add(days(1)), time.UTC)

	if acc.Total != 10 {
		t.Errorf("Total = %d, want 10", acc.Total)
	}
	if acc.CurrentRatePerSecond != nil {
		t.Errorf("CurrentRatePerSecond = %v, want nil", *acc.CurrentRatePerSecond)
	}
}

func TestCompute_BoundedRateEndingToday(t *testing.T) {
	// Bounded rate ended at 06:00; now is 18:00 the same day.
	rates := []rate.Rate{{Value: 3600, Unit: rate.Hour, From: base, To: ptr(base.Add(6 * time.Hour))}}

	acc := accrual.Compute(rates, base.Add(18*time.Hour), time.UTC)

	if acc.Total != 6*3600 {
		t.Errorf("Total = %d, want %d", acc.Total, 6*3600)
	}
	if acc.CurrentRatePerSecond == nil || *acc.CurrentRatePerSecond != 1 {
		t.Errorf("CurrentRatePerSecond = %v, want 1", acc.CurrentRatePerSecond)
	}
}

func TestCompute_ZeroRate(t *testing.T) {
	rates := []rate.Rate{{Value: 0, Unit: rate.Day, From: base}}

	acc := accrual.Compute(rates, base.Add(days(3)), time.UTC)

	if acc.Total != 0 {
		t.Errorf("Total = %d, want 0", acc.Total)
	}
	if acc.CurrentRatePerSecond == nil || *acc.CurrentRatePerSecond != 0 {
		t.Errorf("CurrentRatePerSecond = %v, want 0", acc.CurrentRatePerSecond)
	}
	if acc.SecondsUntilNext != nil {
		t.Errorf("SecondsUntilNext = %v, want nil", *acc.SecondsUntilNext)
	}
}

func TestCompute_SumsHistory(t *testing.T) {
	rates := []rate.Rate{
		{Value: 60, Unit: rate.Minute, From: base, To: ptr(base.Add(100 * time.Second))},
		{Value: 7200, Unit: rate.Hour, From: base.Add(200 * time.Second)},
	}

	acc := accrual.Compute(rates, base.Add(250*time.Second), time.UTC)

	// 100s at 1/s + 50s at 2/s
	if acc.Total != 200 {
		t.Errorf("Total = %d, want 200", acc.Total)
	}
	if *acc.CurrentRatePerSecond != 2 {
		t.Errorf("CurrentRatePerSecond = %v, want 2", *acc.CurrentRatePerSecond)
	}
}

func TestCompute_UnknownUnit(t *testing.T) {
	rates := []rate.Rate{{Value: 5, Unit: "Eon", From: base}}

	acc := accrual.Compute(rates, base.Add(days(1)), time.UTC)

	if acc.Total != 0 || acc.SecondsUntilNext != nil {
		t.Errorf("unknown unit should accrue nothing, got %+v", acc)
	}
}
