package main

import (
	"io"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/artpar/accrue/domain/accrual"
	"github.com/artpar/accrue/domain/rate"
	"github.com/artpar/accrue/domain/usage"
)

const timeLayout = "2006-01-02 15:04:05"

func newTable(w io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
}

// formatWhen prints t in loc followed by a relative hint.
func formatWhen(t time.Time, loc *time.Location) string {
	return t.In(loc).Format(timeLayout) + " (" + humanize.Time(t) + ")"
}

func formatDate(t *time.Time, loc *time.Location) string {
	if t == nil {
		return "open"
	}
	return t.In(loc).Format(timeLayout)
}

func formatRate(r rate.Rate) string {
	return humanize.Ftoa(r.Value) + "/" + r.Unit.String()
}

func formatPerDay(v float64) string {
	return humanize.FormatFloat("#,###.##", v)
}

// formatCurrent renders a per second rate as a per day figure.
func formatCurrent(perSec *float64) string {
	if perSec == nil {
		return "-"
	}
	return formatPerDay(*perSec*rate.SecondsPerDay) + "/day"
}

func formatNext(sec *float64) string {
	if sec == nil {
		return "-"
	}
	return accrual.FormatCountdown(*sec)
}

// parseOptionalTime parses a flag value that may be empty.
func parseOptionalTime(s string, loc *time.Location) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	t, err := usage.ParseInstant(s, loc)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
