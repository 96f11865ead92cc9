package main

import (
	"context"
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/artpar/accrue/app"
	"github.com/artpar/accrue/domain/usage"
)

var itemsCmd = &cobra.Command{
	Use:   "items",
	Short: "Manage tracked items",
	Long: `Manage tracked items.

An item accumulates a balance from its rates and is drawn down by uses.

Examples:
  accrue items list
  accrue items list --page 2 --page-size 20
  accrue items create "Coffee beans" --description "the good ones"
  accrue items show <item-id>`,
}

var itemsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List items, newest first",
	Args:  cobra.NoArgs,
	RunE:  runItemsList,
}

var itemsCreateCmd = &cobra.Command{
	Use:   "create <name>",
	Short: "Create a new item",
	Args:  cobra.ExactArgs(1),
	RunE:  runItemsCreate,
}

var itemsShowCmd = &cobra.Command{
	Use:   "show <item-id>",
	Short: "Show an item with its balance and rates",
	Args:  cobra.ExactArgs(1),
	RunE:  runItemsShow,
}

var (
	itemsPage        int
	itemsPageSize    int
	itemsDescription string
)

func init() {
	rootCmd.AddCommand(itemsCmd)

	itemsCmd.AddCommand(itemsListCmd)
	itemsCmd.AddCommand(itemsCreateCmd)
	itemsCmd.AddCommand(itemsShowCmd)

	itemsListCmd.Flags().IntVar(&itemsPage, "page", 1, "page number")
	itemsListCmd.Flags().IntVar(&itemsPageSize, "page-size", app.DefaultItemPageSize, "items per page")
	itemsCreateCmd.Flags().StringVar(&itemsDescription, "description", "", "item description")
}

func runItemsList(cmd *cobra.Command, args []string) error {
	return withTracker(cmd, func(ctx context.Context, t *app.Tracker) error {
		page, err := t.ListItems(ctx, itemsPage, itemsPageSize)
		if err != nil {
			return describe(err, "page", "")
		}

		out := cmd.OutOrStdout()
		if page.Total == 0 {
			fmt.Fprintln(out, "No items found.")
			fmt.Fprintln(out)
			fmt.Fprintln(out, `Create one with: accrue items create "Coffee beans"`)
			return nil
		}

		w := newTable(out)
		fmt.Fprintln(w, "ID\tNAME\tACCUMULATED\tRATE\tNEXT IN\tUSES\tCREATED")
		fmt.Fprintln(w, "--\t----\t-----------\t----\t-------\t----\t-------")
		for _, v := range page.Items {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
				v.ID, v.Name,
				humanize.Comma(v.Accumulated),
				formatCurrent(v.CurrentRatePerSec),
				formatNext(v.NextInSec),
				humanize.Comma(int64(v.UsageCount)),
				humanize.Time(v.CreatedAt))
		}
		w.Flush()

		pages := (page.Total + page.PageSize - 1) / page.PageSize
		fmt.Fprintf(out, "\nPage %d of %d (%s items)\n", page.Page, pages, humanize.Comma(int64(page.Total)))
		return nil
	})
}

func runItemsCreate(cmd *cobra.Command, args []string) error {
	return withTracker(cmd, func(ctx context.Context, t *app.Tracker) error {
		it, err := t.CreateItem(ctx, args[0], itemsDescription)
		if err != nil {
			return describe(err, "item", "")
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Created item %s (%s)\n", it.ID, it.Name)
		return nil
	})
}

func runItemsShow(cmd *cobra.Command, args []string) error {
	return withTracker(cmd, func(ctx context.Context, t *app.Tracker) error {
		v, err := t.GetItem(ctx, args[0])
		if err != nil {
			return err
		}
		if v == nil {
			return fmt.Errorf("item not found: %s", args[0])
		}

		loc := t.Location()
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "ID:            %s\n", v.ID)
		fmt.Fprintf(out, "Name:          %s\n", v.Name)
		if v.Description != "" {
			fmt.Fprintf(out, "Description:   %s\n", v.Description)
		}
		fmt.Fprintf(out, "Created:       %s\n", formatWhen(v.CreatedAt, loc))
		fmt.Fprintf(out, "Accumulated:   %s\n", humanize.Comma(v.Accumulated))
		fmt.Fprintf(out, "Current rate:  %s\n", formatCurrent(v.CurrentRatePerSec))
		fmt.Fprintf(out, "Next unit in:  %s\n", formatNext(v.NextInSec))
		fmt.Fprintf(out, "Uses:          %s\n", humanize.Comma(int64(v.UsageCount)))
		if v.FirstUsageDate != nil {
			fmt.Fprintf(out, "First use:     %s\n", formatWhen(*v.FirstUsageDate, loc))
		}

		fmt.Fprintln(out)
		if len(v.Rates) == 0 {
			fmt.Fprintf(out, "No rates. Add one with: accrue rates set %s --value 1 --unit Day --from %s\n",
				v.ID, usage.DayKey(v.CreatedAt, loc))
			return nil
		}
		printRates(out, v.Rates, loc)
		return nil
	})
}
