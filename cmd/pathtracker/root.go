package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	// Global flags
	cfgFile string
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "pathtracker",
	Short: "Multi-tenant request tracking and analytics service",
	Long: `PathTracker ingests REST and LLM request events from instrumented
applications and serves per-tenant analytics over them.

Quick start:
  pathtracker tenants create acme   # Create a tenant
  pathtracker keys create           # Issue a tracking API key
  pathtracker serve                 # Start the HTTP server

Management:
  pathtracker tenants    # Manage tenants
  pathtracker keys       # Manage API keys
  pathtracker sessions   # Issue dashboard sessions`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "pathtracker.yaml", "config file path")
}
