package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/pathtracker/pathtracker/adapters/clock"
	"github.com/pathtracker/pathtracker/adapters/idgen"
	"github.com/pathtracker/pathtracker/adapters/random"
	"github.com/pathtracker/pathtracker/adapters/sqlite"
	"github.com/pathtracker/pathtracker/app"
	"github.com/pathtracker/pathtracker/config"
)

var sessionsCmd = &cobra.Command{
	Use:   "sessions",
	Short: "Issue dashboard sessions",
	Long: `Issue PathTracker dashboard sessions.

A session token authenticates the analytics endpoints (logs, metrics,
paths, users) and the settings and key management endpoints.

Examples:
  pathtracker sessions create --tenant=tn_123
  pathtracker sessions create --tenant=tn_123 --ttl=1h
  pathtracker sessions purge`,
}

var sessionsCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a dashboard session",
	RunE:  runSessionsCreate,
}

var sessionsPurgeCmd = &cobra.Command{
	Use:   "purge",
	Short: "Delete expired sessions",
	RunE:  runSessionsPurge,
}

var (
	sessionTenantID string
	sessionTTL      time.Duration
)

func init() {
	rootCmd.AddCommand(sessionsCmd)

	sessionsCmd.AddCommand(sessionsCreateCmd)
	sessionsCmd.AddCommand(sessionsPurgeCmd)

	sessionsCreateCmd.Flags().StringVar(&sessionTenantID, "tenant", "", "tenant ID (required)")
	sessionsCreateCmd.Flags().DurationVar(&sessionTTL, "ttl", 0, "session lifetime (default: configured sessions.ttl)")
	sessionsCreateCmd.MarkFlagRequired("tenant")
}

func newSessionService(db *sqlite.DB, cfg *config.Config) *app.SessionService {
	svc := app.NewSessionService(sqlite.NewSessionStore(db), sqlite.NewTenantStore(db), random.Real{}, clock.Real{}, idgen.UUID{})
	svc.SetDefaultTTL(cfg.Sessions.TTL)
	return svc
}

func runSessionsCreate(cmd *cobra.Command, args []string) error {
	db, cfg, err := openDatabase()
	if err != nil {
		return err
	}
	defer db.Close()

	token, sess, err := newSessionService(db, cfg).Create(context.Background(), sessionTenantID, sessionTTL)
	if err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}

	fmt.Printf("%s Created session for tenant %s\n", checkMark, sessionTenantID)
	fmt.Println()
	fmt.Println("Session token (save this, shown once):")
	fmt.Printf("  %s\n", token)
	fmt.Println()
	fmt.Printf("Expires: %s\n", sess.ExpiresAt.Format(time.RFC3339))

	return nil
}

func runSessionsPurge(cmd *cobra.Command, args []string) error {
	db, cfg, err := openDatabase()
	if err != nil {
		return err
	}
	defer db.Close()

	n, err := newSessionService(db, cfg).PurgeExpired(context.Background())
	if err != nil {
		return fmt.Errorf("failed to purge sessions: %w", err)
	}

	fmt.Printf("%s Deleted %d expired session(s)\n", checkMark, n)
	return nil
}
