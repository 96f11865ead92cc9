package accrual

import (
	"math"
	"time"

	"github.com/shopspring/decimal"

	"github.com/artpar/accrue/domain/rate"
	"github.com/artpar/accrue/domain/usage"
)

// DailyPoint is one calendar day of the analytics series.
type DailyPoint struct {
	Date                  string  `json:"date"`
	Rate                  float64 `json:"rate"` // per day, 2 dp
	CumulativeUsage       int     `json:"cumulativeUsage"`
	CumulativeAccumulated int64   `json:"cumulativeAccumulated"`
	DailyUsage            int     `json:"dailyUsage"`
}

// Stats is the analytics result for one item over a range.
type Stats struct {
	Daily             []DailyPoint           `json:"daily"`
	UsageByDayOfWeek  []usage.DayOfWeekCount `json:"usageByDayOfWeek"`
	UsageByHour       []usage.HourCount      `json:"usageByHour"`
	TotalUsage        int                    `json:"totalUsage"`
	TotalAccumulated  int64                  `json:"totalAccumulated"`
	AvgUsagePerDay    float64                `json:"avgUsagePerDay"`
	CurrentRate       *float64               `json:"currentRate"` // per day
	StreakDays        int                    `json:"streakDays"`
	LongestStreakDays int                    `json:"longestStreakDays"`
}

// StatsInput carries everything BuildStats needs.
// Uses are expected to be already filtered to the requested range.
type StatsInput struct {
	Rates    []rate.Rate
	Uses     []usage.Use
	From     *time.Time
	To       *time.Time
	Now      time.Time
	Location *time.Location
}

// BuildStats walks every calendar day of the range and derives the daily
// series, histograms, streaks and totals.
// This is a PURE function.
func BuildStats(in StatsInput) Stats {
	loc := in.Location
	if loc == nil {
		loc = time.UTC
	}

	first, hasData := earliest(in.Rates, in.Uses)
	if !hasData && in.From == nil {
		return emptyStats(loc)
	}

	minDate := usage.StartOfDay(first, loc)
	if in.From != nil {
		minDate = usage.StartOfDay(*in.From, loc)
	}
	maxDate := usage.EndOfDay(in.Now, loc)
	if in.To != nil {
		maxDate = usage.EndOfDay(*in.To, loc)
	}

	byDay := usage.CountByDay(in.Uses, loc)

	daily := make([]DailyPoint, 0)
	var (
		cumulativeUsage int
		cumulativeAcc   float64
	)
	for day := minDate; !day.After(maxDate); day = day.AddDate(0, 0, 1) {
		dayStart := day
		dayEnd := usage.EndOfDay(day, loc)
		perDay := effectivePerDay(in.Rates, dayStart, dayEnd)

		key := dayStart.Format(usage.DayLayout)
		dailyUsage := byDay[key]
		cumulativeUsage += dailyUsage
		cumulativeAcc += perDay

		daily = append(daily, DailyPoint{
			Date:                  key,
			Rate:                  round2(perDay),
			CumulativeUsage:       cumulativeUsage,
			CumulativeAccumulated: int64(math.Floor(cumulativeAcc)),
			DailyUsage:            dailyUsage,
		})
	}

	acc := Compute(in.Rates, in.Now, loc)
	var currentRate *float64 // nil unless a positive rate is active
	if acc.CurrentRatePerSecond != nil && *acc.CurrentRatePerSecond > 0 {
		v := round2(*acc.CurrentRatePerSecond * rate.SecondsPerDay)
		currentRate = &v
	}

	totalDays := len(daily)
	if totalDays == 0 {
		totalDays = 1
	}

	return Stats{
		Daily:             daily,
		UsageByDayOfWeek:  usage.ByDayOfWeek(in.Uses, loc),
		UsageByHour:       usage.ByHour(in.Uses, loc),
		TotalUsage:        len(in.Uses),
		TotalAccumulated:  acc.Total,
		AvgUsagePerDay:    round2(float64(len(in.Uses)) / float64(totalDays)),
		CurrentRate:       currentRate,
		StreakDays:        CurrentStreak(byDay, in.Now, loc),
		LongestStreakDays: LongestStreak(daily),
	}
}

// CurrentStreak counts consecutive days with at least one use, walking back
// from the day containing now. It stops at the first day without uses.
// This is a PURE function.
func CurrentStreak(byDay map[string]int, now time.Time, loc *time.Location) int {
	streak := 0
	for day := usage.StartOfDay(now, loc); byDay[day.Format(usage.DayLayout)] > 0; day = day.AddDate(0, 0, -1) {
		streak++
	}
	return streak
}

// LongestStreak returns the longest run of consecutive days with uses.
// This is a PURE function.
func LongestStreak(daily []DailyPoint) int {
	longest, run := 0, 0
	for _, p := range daily {
		if p.DailyUsage > 0 {
			run++
			longest = max(longest, run)
		} else {
			run = 0
		}
	}
	return longest
}

// effectivePerDay returns the per-day value of the last rate overlapping
// [dayStart, dayEnd], or 0.
func effectivePerDay(rates []rate.Rate, dayStart, dayEnd time.Time) float64 {
	perDay := 0.0
	for _, r := range rates {
		if r.From.Before(dayEnd) && (r.To == nil || r.To.After(dayStart)) {
			perDay = r.PerDay()
		}
	}
	return perDay
}

func earliest(rates []rate.Rate, uses []usage.Use) (time.Time, bool) {
	first, ok := usage.Earliest(uses)
	consider := func(t time.Time) {
		if !ok || t.Before(first) {
			first, ok = t, true
		}
	}
	for _, r := range rates {
		consider(r.From)
		if r.To != nil {
			consider(*r.To)
		}
	}
	return first, ok
}

func emptyStats(loc *time.Location) Stats {
	return Stats{
		Daily:            []DailyPoint{},
		UsageByDayOfWeek: usage.ByDayOfWeek(nil, loc),
		UsageByHour:      usage.ByHour(nil, loc),
	}
}

// round2 rounds half away from zero to two decimal places.
func round2(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return v
	}
	return decimal.NewFromFloat(v).Round(2).InexactFloat64()
}
