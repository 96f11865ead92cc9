package main

import (
	"context"
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/artpar/accrue/app"
	"github.com/artpar/accrue/domain/usage"
)

var usesCmd = &cobra.Command{
	Use:   "uses",
	Short: "Record and edit uses",
	Long: `Record, list, re-date and delete uses of an item.

Each use consumes one accumulated unit.

Examples:
  accrue uses add <item-id>
  accrue uses add <item-id> --at 2024-03-01T08:30:00Z
  accrue uses list <item-id>
  accrue uses edit <use-id> --at 2024-03-02
  accrue uses delete <use-id>`,
}

var usesListCmd = &cobra.Command{
	Use:   "list <item-id>",
	Short: "List an item's uses, newest first",
	Args:  cobra.ExactArgs(1),
	RunE:  runUsesList,
}

var usesAddCmd = &cobra.Command{
	Use:   "add <item-id>",
	Short: "Record a use, now unless --at is given",
	Args:  cobra.ExactArgs(1),
	RunE:  runUsesAdd,
}

var usesEditCmd = &cobra.Command{
	Use:   "edit <use-id>",
	Short: "Change when a use happened",
	Args:  cobra.ExactArgs(1),
	RunE:  runUsesEdit,
}

var usesDeleteCmd = &cobra.Command{
	Use:   "delete <use-id>",
	Short: "Delete a use",
	Args:  cobra.ExactArgs(1),
	RunE:  runUsesDelete,
}

var (
	usesPage     int
	usesPageSize int
	useAt        string
)

func init() {
	rootCmd.AddCommand(usesCmd)

	usesCmd.AddCommand(usesListCmd)
	usesCmd.AddCommand(usesAddCmd)
	usesCmd.AddCommand(usesEditCmd)
	usesCmd.AddCommand(usesDeleteCmd)

	usesListCmd.Flags().IntVar(&usesPage, "page", 1, "page number")
	usesListCmd.Flags().IntVar(&usesPageSize, "page-size", app.DefaultUsePageSize, "uses per page")
	usesAddCmd.Flags().StringVar(&useAt, "at", "", "when the use happened (default now)")
	usesEditCmd.Flags().StringVar(&useAt, "at", "", "new time of the use (required)")
	usesEditCmd.MarkFlagRequired("at")
}

func runUsesList(cmd *cobra.Command, args []string) error {
	return withTracker(cmd, func(ctx context.Context, t *app.Tracker) error {
		page, err := t.ListUses(ctx, args[0], usesPage, usesPageSize)
		if err != nil {
			return describe(err, "item", args[0])
		}

		out := cmd.OutOrStdout()
		if page.Total == 0 {
			fmt.Fprintln(out, "No uses recorded.")
			return nil
		}

		loc := t.Location()
		w := newTable(out)
		fmt.Fprintln(w, "ID\tWHEN\tAGO")
		fmt.Fprintln(w, "--\t----\t---")
		for _, u := range page.Uses {
			fmt.Fprintf(w, "%s\t%s\t%s\n", u.ID, u.CreatedAt.In(loc).Format(timeLayout), humanize.Time(u.CreatedAt))
		}
		w.Flush()

		pages := (page.Total + page.PageSize - 1) / page.PageSize
		fmt.Fprintf(out, "\nPage %d of %d (%s uses)\n", page.Page, pages, humanize.Comma(int64(page.Total)))
		return nil
	})
}

func runUsesAdd(cmd *cobra.Command, args []string) error {
	return withTracker(cmd, func(ctx context.Context, t *app.Tracker) error {
		at, err := parseOptionalTime(useAt, t.Location())
		if err != nil {
			return fmt.Errorf("invalid --at: %w", err)
		}
		u, err := t.RecordUse(ctx, args[0], at)
		if err != nil {
			return describe(err, "item", args[0])
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Recorded use %s at %s\n", u.ID, u.CreatedAt.In(t.Location()).Format(timeLayout))
		return nil
	})
}

func runUsesEdit(cmd *cobra.Command, args []string) error {
	return withTracker(cmd, func(ctx context.Context, t *app.Tracker) error {
		at, err := usage.ParseInstant(useAt, t.Location())
		if err != nil {
			return fmt.Errorf("invalid --at: %w", err)
		}
		u, err := t.UpdateUse(ctx, args[0], at)
		if err != nil {
			return describe(err, "use", args[0])
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Moved use %s to %s\n", u.ID, u.CreatedAt.In(t.Location()).Format(timeLayout))
		return nil
	})
}

func runUsesDelete(cmd *cobra.Command, args []string) error {
	return withTracker(cmd, func(ctx context.Context, t *app.Tracker) error {
		u, err := t.DeleteUse(ctx, args[0])
		if err != nil {
			return describe(err, "use", args[0])
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Deleted use %s of item %s\n", u.ID, u.ItemID)
		return nil
	})
}
