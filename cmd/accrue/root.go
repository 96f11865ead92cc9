package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/artpar/accrue/app"
	"github.com/artpar/accrue/bootstrap"
	"github.com/artpar/accrue/config"
	"github.com/artpar/accrue/domain/rate"
	"github.com/artpar/accrue/ports"
)

var (
	// Global flags
	cfgFile string
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "accrue",
	Short: "Track items that accumulate over time and the uses that consume them",
	Long: `accrue tracks items whose balance grows from dated rates
("2 per Day from March 1st") and shrinks with every recorded use.

Quick start:
  accrue items create "Coffee beans"
  accrue rates set <item-id> --value 2 --unit Day --from 2024-03-01
  accrue uses add <item-id>
  accrue serve

Management:
  accrue items      # Manage items
  accrue rates      # Manage rates
  accrue uses       # Record and edit uses
  accrue stats      # Show analytics for an item
  accrue validate   # Validate configuration`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		stop()
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "accrue.yaml", "config file path")
}

// openApp wires the application for a one-shot command. Logs go to stderr
// and stay quiet below warn unless the config asks for debug.
func openApp(cmd *cobra.Command) (*bootstrap.App, error) {
	cfg, err := config.LoadWithFallback(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("error loading config: %w", err)
	}
	if cfg.Logging.Level != "debug" {
		cfg.Logging.Level = "warn"
	}
	cfg.Logging.Format = "console"

	a, err := bootstrap.New(cfg, bootstrap.Options{
		Version:   version,
		LogOutput: cmd.ErrOrStderr(),
	})
	if err != nil {
		return nil, fmt.Errorf("error initializing: %w", err)
	}
	return a, nil
}

// withTracker runs fn against a freshly wired tracker and releases it after.
func withTracker(cmd *cobra.Command, fn func(ctx context.Context, t *app.Tracker) error) error {
	a, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer a.Shutdown()
	return fn(cmd.Context(), a.Tracker)
}

// describe turns tracker errors into messages fit for a terminal.
func describe(err error, what, id string) error {
	var (
		verr     *app.ValidationError
		conflict *rate.ConflictError
	)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ports.ErrNotFound):
		return fmt.Errorf("%s not found: %s", what, id)
	case errors.As(err, &verr):
		return fmt.Errorf("invalid %s", verr.Error())
	case errors.As(err, &conflict):
		if conflict.RateID != "" {
			return fmt.Errorf("rate conflict with %s: %s", conflict.RateID, conflict.Reason)
		}
		return fmt.Errorf("rate conflict: %s", conflict.Reason)
	}
	return err
}
