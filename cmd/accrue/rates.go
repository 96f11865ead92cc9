package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/artpar/accrue/app"
	"github.com/artpar/accrue/domain/rate"
	"github.com/artpar/accrue/domain/usage"
)

var ratesCmd = &cobra.Command{
	Use:   "rates",
	Short: "Manage accumulation rates",
	Long: `Manage the dated rates an item accumulates at.

Rates of one item never overlap, and at most one may be open ended.
Dates are RFC 3339 timestamps or YYYY-MM-DD days in the configured timezone.
Units: Minute, Hour, Day, Week, Month (30 days), Year (365 days).

Examples:
  accrue rates list <item-id>
  accrue rates set <item-id> --value 2 --unit Day --from 2024-03-01
  accrue rates set <item-id> --id <rate-id> --to 2024-06-30
  accrue rates set <item-id> --id <rate-id> --open
  accrue rates delete <rate-id>`,
}

var ratesListCmd = &cobra.Command{
	Use:   "list <item-id>",
	Short: "List an item's rates, newest first",
	Args:  cobra.ExactArgs(1),
	RunE:  runRatesList,
}

var ratesSetCmd = &cobra.Command{
	Use:   "set <item-id>",
	Short: "Create a rate, or update one with --id",
	Args:  cobra.ExactArgs(1),
	RunE:  runRatesSet,
}

var ratesDeleteCmd = &cobra.Command{
	Use:   "delete <rate-id>",
	Short: "Delete a rate",
	Args:  cobra.ExactArgs(1),
	RunE:  runRatesDelete,
}

var (
	rateID    string
	rateValue float64
	rateUnit  string
	rateFrom  string
	rateTo    string
	rateOpen  bool
)

func init() {
	rootCmd.AddCommand(ratesCmd)

	ratesCmd.AddCommand(ratesListCmd)
	ratesCmd.AddCommand(ratesSetCmd)
	ratesCmd.AddCommand(ratesDeleteCmd)

	ratesSetCmd.Flags().StringVar(&rateID, "id", "", "rate to update (omit to create)")
	ratesSetCmd.Flags().Float64Var(&rateValue, "value", 0, "units accumulated per period")
	ratesSetCmd.Flags().StringVar(&rateUnit, "unit", "", "period: Minute, Hour, Day, Week, Month or Year")
	ratesSetCmd.Flags().StringVar(&rateFrom, "from", "", "start of the rate")
	ratesSetCmd.Flags().StringVar(&rateTo, "to", "", "end of the rate (omit for open ended)")
	ratesSetCmd.Flags().BoolVar(&rateOpen, "open", false, "clear the end date of an existing rate")
	ratesSetCmd.MarkFlagsMutuallyExclusive("to", "open")
}

func runRatesList(cmd *cobra.Command, args []string) error {
	return withTracker(cmd, func(ctx context.Context, t *app.Tracker) error {
		rates, err := t.ListRates(ctx, args[0])
		if err != nil {
			return describe(err, "item", args[0])
		}
		out := cmd.OutOrStdout()
		if len(rates) == 0 {
			fmt.Fprintln(out, "No rates found.")
			return nil
		}
		printRates(out, rates, t.Location())
		return nil
	})
}

func runRatesSet(cmd *cobra.Command, args []string) error {
	return withTracker(cmd, func(ctx context.Context, t *app.Tracker) error {
		in, err := rateInput(ctx, cmd, t, args[0])
		if err != nil {
			return err
		}
		r, err := t.SaveRate(ctx, in)
		if err != nil {
			if in.ID != "" {
				return describe(err, "rate", in.ID)
			}
			return describe(err, "item", in.ItemID)
		}

		verb := "Created"
		if in.ID != "" {
			verb = "Updated"
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s rate %s: %s from %s to %s\n",
			verb, r.ID, formatRate(r), formatDate(&r.From, t.Location()), formatDate(r.To, t.Location()))
		return nil
	})
}

// rateInput builds the save request from flags. Updates start from the
// stored rate so only the given flags change.
func rateInput(ctx context.Context, cmd *cobra.Command, t *app.Tracker, itemID string) (app.RateInput, error) {
	flags := cmd.Flags()
	loc := t.Location()
	in := app.RateInput{ID: rateID, ItemID: itemID}

	if rateID != "" {
		existing, err := t.GetRate(ctx, rateID)
		if err != nil {
			return in, describe(err, "rate", rateID)
		}
		in.Value, in.Unit, in.From, in.To = existing.Value, existing.Unit, existing.From, existing.To
	} else {
		for _, name := range []string{"value", "unit", "from"} {
			if !flags.Changed(name) {
				return in, fmt.Errorf("--%s is required when creating a rate", name)
			}
		}
		if rateOpen {
			return in, errors.New("--open only applies to an existing rate")
		}
	}

	if flags.Changed("value") {
		in.Value = rateValue
	}
	if flags.Changed("unit") {
		u, err := rate.ParseUnit(rateUnit)
		if err != nil {
			return in, err
		}
		in.Unit = u
	}
	if flags.Changed("from") {
		from, err := usage.ParseInstant(rateFrom, loc)
		if err != nil {
			return in, fmt.Errorf("invalid --from: %w", err)
		}
		in.From = from
	}
	if flags.Changed("to") {
		to, err := usage.ParseInstant(rateTo, loc)
		if err != nil {
			return in, fmt.Errorf("invalid --to: %w", err)
		}
		in.To = &to
	}
	if rateOpen {
		in.To = nil
	}
	return in, nil
}

func runRatesDelete(cmd *cobra.Command, args []string) error {
	return withTracker(cmd, func(ctx context.Context, t *app.Tracker) error {
		r, err := t.DeleteRate(ctx, args[0])
		if err != nil {
			return describe(err, "rate", args[0])
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Deleted rate %s of item %s\n", r.ID, r.ItemID)
		return nil
	})
}

func printRates(out io.Writer, rates []rate.Rate, loc *time.Location) {
	w := newTable(out)
	fmt.Fprintln(w, "ID\tRATE\tPER DAY\tFROM\tTO")
	fmt.Fprintln(w, "--\t----\t-------\t----\t--")
	for _, r := range rates {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
			r.ID, formatRate(r), formatPerDay(r.PerDay()), formatDate(&r.From, loc), formatDate(r.To, loc))
	}
	w.Flush()
}
