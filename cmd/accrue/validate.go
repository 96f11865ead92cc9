package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/artpar/accrue/adapters/sqlite"
	"github.com/artpar/accrue/config"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate configuration before deployment",
	Long: `Validate the accrue configuration file.

Checks:
  - YAML syntax is valid
  - Values are in range (port, driver, timezone, log level, MQTT)
  - Database opens and migrates (optional)

Examples:
  accrue validate
  accrue validate --config /etc/accrue/config.yaml --check-database`,
	Args: cobra.NoArgs,
	RunE: runValidate,
}

var (
	validateCheckDatabase bool
)

func init() {
	rootCmd.AddCommand(validateCmd)

	validateCmd.Flags().BoolVar(&validateCheckDatabase, "check-database", false, "check that the database opens and migrates")
}

func runValidate(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Validating %s...\n\n", cfgFile)

	if _, err := os.Stat(cfgFile); os.IsNotExist(err) {
		fmt.Fprintf(out, "  %s Config file exists\n", crossMark)
		return fmt.Errorf("config file not found: %s", cfgFile)
	}
	fmt.Fprintf(out, "  %s Config file exists\n", checkMark)

	cfg, err := config.Load(cfgFile)
	if err != nil {
		fmt.Fprintf(out, "  %s Config valid\n", crossMark)
		return fmt.Errorf("config error: %w", err)
	}
	fmt.Fprintf(out, "  %s Config valid\n", checkMark)

	// Show config summary
	fmt.Fprintf(out, "  %s Listen: %s\n", checkMark, cfg.Server.Addr())
	if cfg.Database.Driver == config.DriverMemory {
		fmt.Fprintf(out, "  %s Database: in memory\n", checkMark)
	} else {
		fmt.Fprintf(out, "  %s Database: %s (%s)\n", checkMark, cfg.Database.Path, cfg.Database.Driver)
	}
	fmt.Fprintf(out, "  %s Timezone: %s\n", checkMark, cfg.Engine.Timezone)
	if cfg.Cache.Enabled {
		fmt.Fprintf(out, "  %s Cache: %s ttl\n", checkMark, cfg.Cache.TTL)
	}
	if cfg.MQTT.Enabled {
		fmt.Fprintf(out, "  %s MQTT: %s (topic %s/...)\n", checkMark, cfg.MQTT.Broker, cfg.MQTT.TopicPrefix)
	}

	if validateCheckDatabase && cfg.Database.Driver != config.DriverMemory {
		if err := checkDatabase(cfg.Database.Driver, cfg.Database.Path); err != nil {
			fmt.Fprintf(out, "  %s Database ready\n", crossMark)
			fmt.Fprintf(out, "      Error: %v\n", err)
		} else {
			fmt.Fprintf(out, "  %s Database ready\n", checkMark)
		}
	}

	fmt.Fprintln(out)
	fmt.Fprintln(out, "Configuration is valid.")
	return nil
}

func checkDatabase(driver, path string) error {
	db, err := sqlite.Open(driver, path)
	if err != nil {
		return err
	}
	defer db.Close()

	if err := db.Migrate(); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return db.PingContext(ctx)
}

const (
	checkMark = "\033[32m✓\033[0m"
	crossMark = "\033[31m✗\033[0m"
)
