package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/artpar/accrue/bootstrap"
	"github.com/artpar/accrue/config"
)

var (
	hotReload bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API server",
	Long: `Start the accrue HTTP API server.

The server will:
  - Load configuration from accrue.yaml (or --config)
  - Or load configuration from ACCRUE_* environment variables
  - Open and migrate the database
  - Serve the JSON:API under /api, with /health, /metrics and /swagger

Environment variables (for Docker deployments):
  ACCRUE_DATABASE_DRIVER    - sqlite3, sqlite (pure Go) or memory
  ACCRUE_DATABASE_PATH      - Database path (default: accrue.db)
  ACCRUE_SERVER_PORT        - Server port (default: 8080)
  ACCRUE_TIMEZONE           - IANA zone for day boundaries (default: UTC)
  ACCRUE_LOG_LEVEL          - Log level: debug, info, warn, error
  ACCRUE_MQTT_BROKER        - Publish item state to this MQTT broker

Examples:
  accrue serve
  accrue serve --config /etc/accrue/config.yaml
  accrue serve --hot-reload=false

  # Docker (env vars only):
  ACCRUE_DATABASE_PATH=/data/accrue.db accrue serve`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().BoolVar(&hotReload, "hot-reload", true, "enable hot reload of configuration")
}

func runServe(cmd *cobra.Command, args []string) error {
	hasConfigFile := false
	if _, err := os.Stat(cfgFile); err == nil {
		hasConfigFile = true
	}

	cfg, err := config.LoadWithFallback(cfgFile)
	if err != nil {
		return fmt.Errorf("error loading config: %w", err)
	}
	if !hasConfigFile {
		fmt.Fprintln(cmd.OutOrStdout(), "Running with environment variables (no config file)")
	}

	a, err := bootstrap.New(cfg, bootstrap.Options{Version: version})
	if err != nil {
		return fmt.Errorf("error initializing: %w", err)
	}

	// Hot reload only works with a config file
	if hasConfigFile && hotReload {
		holder, err := config.NewHolder(cfgFile, a.Logger)
		if err != nil {
			a.Shutdown()
			return fmt.Errorf("error loading config: %w", err)
		}
		defer holder.Stop()
		if err := a.Watch(holder); err != nil {
			a.Logger.Warn().Err(err).Msg("config file watching disabled")
		}
	}

	// Run (blocks until shutdown)
	return a.Run(cmd.Context())
}
