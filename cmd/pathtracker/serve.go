package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/pathtracker/pathtracker/bootstrap"
	"github.com/pathtracker/pathtracker/config"
)

var (
	hotReload bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the tracking server",
	Long: `Start the PathTracker HTTP server.

The server will:
  - Load configuration from pathtracker.yaml (or --config)
  - Apply PATHTRACKER_* environment variable overrides
  - Open the database and run migrations
  - Serve event ingestion and dashboard query endpoints

Environment variables (for Docker deployments):
  PATHTRACKER_DATABASE_DSN    - Database path (default: pathtracker.db)
  PATHTRACKER_SERVER_PORT     - Server port (default: 8080)
  PATHTRACKER_LOG_LEVEL       - Log level: debug, info, warn, error
  PATHTRACKER_SESSION_TTL     - Dashboard session lifetime (default: 24h)

Examples:
  pathtracker serve
  pathtracker serve --config /etc/pathtracker/config.yaml
  pathtracker serve --hot-reload=false`,
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

	var app *bootstrap.App
	var err error

	if hasConfigFile && hotReload {
		// Hot reload only works with a config file
		app, err = bootstrap.NewWithHotReload(cfgFile)
	} else {
		cfg, loadErr := config.LoadWithFallback(cfgFile)
		if loadErr != nil {
			return fmt.Errorf("error loading config: %w", loadErr)
		}

		if !hasConfigFile {
			fmt.Println("Running with defaults and environment variables (no config file)")
		}

		app, err = bootstrap.New(cfg)
	}

	if err != nil {
		return fmt.Errorf("error initializing: %w", err)
	}

	// Run (blocks until shutdown)
	return app.Run()
}
