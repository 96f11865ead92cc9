package main

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/artpar/accrue/app"
	"github.com/artpar/accrue/domain/accrual"
)

var statsCmd = &cobra.Command{
	Use:   "stats <item-id>",
	Short: "Show usage and accumulation analytics for an item",
	Long: `Show the daily series, weekday histogram, streaks and totals for an item.

Without --from the range starts at the item's earliest rate or use.
Without --to it ends today in the configured timezone.

Examples:
  accrue stats <item-id>
  accrue stats <item-id> --from 2024-03-01 --to 2024-03-31
  accrue stats <item-id> --days 0
  accrue stats <item-id> --json`,
	Args: cobra.ExactArgs(1),
	RunE: runStats,
}

var (
	statsFrom string
	statsTo   string
	statsDays int
	statsJSON bool
)

func init() {
	rootCmd.AddCommand(statsCmd)

	statsCmd.Flags().StringVar(&statsFrom, "from", "", "first day of the range")
	statsCmd.Flags().StringVar(&statsTo, "to", "", "last day of the range")
	statsCmd.Flags().IntVar(&statsDays, "days", 14, "daily rows to show, most recent last (0 = all)")
	statsCmd.Flags().BoolVar(&statsJSON, "json", false, "print the raw analytics as JSON")
}

func runStats(cmd *cobra.Command, args []string) error {
	return withTracker(cmd, func(ctx context.Context, t *app.Tracker) error {
		loc := t.Location()
		from, err := parseOptionalTime(statsFrom, loc)
		if err != nil {
			return fmt.Errorf("invalid --from: %w", err)
		}
		to, err := parseOptionalTime(statsTo, loc)
		if err != nil {
			return fmt.Errorf("invalid --to: %w", err)
		}

		s, err := t.Stats(ctx, args[0], from, to)
		if err != nil {
			return describe(err, "item", args[0])
		}
		if s == nil {
			return fmt.Errorf("item not found: %s", args[0])
		}

		out := cmd.OutOrStdout()
		if statsJSON {
			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			return enc.Encode(s)
		}
		printStats(cmd, *s)
		return nil
	})
}

func printStats(cmd *cobra.Command, s accrual.Stats) {
	out := cmd.OutOrStdout()

	current := "-"
	if s.CurrentRate != nil {
		current = formatPerDay(*s.CurrentRate) + "/day"
	}
	fmt.Fprintf(out, "Total uses:         %s\n", humanize.Comma(int64(s.TotalUsage)))
	fmt.Fprintf(out, "Total accumulated:  %s\n", humanize.Comma(s.TotalAccumulated))
	fmt.Fprintf(out, "Uses per day:       %s\n", formatPerDay(s.AvgUsagePerDay))
	fmt.Fprintf(out, "Current rate:       %s\n", current)
	fmt.Fprintf(out, "Streak:             %d days (longest %d)\n", s.StreakDays, s.LongestStreakDays)

	if len(s.Daily) == 0 {
		return
	}

	fmt.Fprintln(out)
	w := newTable(out)
	fmt.Fprintln(w, "DAY\tUSES\t")
	fmt.Fprintln(w, "---\t----\t")
	for _, d := range s.UsageByDayOfWeek {
		fmt.Fprintf(w, "%s\t%d\t%s\n", d.Day, d.Count, strings.Repeat("#", min(d.Count, 50)))
	}
	w.Flush()

	daily := s.Daily
	if statsDays > 0 && len(daily) > statsDays {
		daily = daily[len(daily)-statsDays:]
	}
	fmt.Fprintln(out)
	w = newTable(out)
	fmt.Fprintln(w, "DATE\tRATE/DAY\tUSED\tTOTAL USED\tTOTAL ACCUMULATED")
	fmt.Fprintln(w, "----\t--------\t----\t----------\t-----------------")
	for _, d := range daily {
		fmt.Fprintf(w, "%s\t%s\t%d\t%s\t%s\n",
			d.Date, formatPerDay(d.Rate), d.DailyUsage,
			humanize.Comma(int64(d.CumulativeUsage)), humanize.Comma(d.CumulativeAccumulated))
	}
	w.Flush()
}
