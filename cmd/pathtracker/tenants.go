package main

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/pathtracker/pathtracker/adapters/clock"
	"github.com/pathtracker/pathtracker/adapters/idgen"
	"github.com/pathtracker/pathtracker/adapters/sqlite"
	"github.com/pathtracker/pathtracker/app"
)

var tenantsCmd = &cobra.Command{
	Use:   "tenants",
	Short: "Manage tenants",
	Long: `Manage PathTracker tenants.

Every event, key, and dashboard session belongs to exactly one tenant.

Examples:
  pathtracker tenants create acme
  pathtracker tenants list`,
}

var tenantsCreateCmd = &cobra.Command{
	Use:   "create <name>",
	Short: "Create a new tenant",
	Args:  cobra.ExactArgs(1),
	RunE:  runTenantsCreate,
}

var tenantsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List tenants",
	RunE:  runTenantsList,
}

func init() {
	rootCmd.AddCommand(tenantsCmd)

	tenantsCmd.AddCommand(tenantsCreateCmd)
	tenantsCmd.AddCommand(tenantsListCmd)
}

func runTenantsCreate(cmd *cobra.Command, args []string) error {
	db, _, err := openDatabase()
	if err != nil {
		return err
	}
	defer db.Close()

	svc := app.NewSettingsService(sqlite.NewTenantStore(db), clock.Real{}, idgen.UUID{})
	t, err := svc.CreateTenant(context.Background(), args[0])
	if err != nil {
		return fmt.Errorf("failed to create tenant: %w", err)
	}

	fmt.Printf("%s Created tenant: %s\n", checkMark, t.Name)
	fmt.Println()
	fmt.Printf("Tenant ID: %s\n", t.ID)

	return nil
}

func runTenantsList(cmd *cobra.Command, args []string) error {
	db, _, err := openDatabase()
	if err != nil {
		return err
	}
	defer db.Close()

	tenants, err := sqlite.NewTenantStore(db).List(context.Background())
	if err != nil {
		return fmt.Errorf("failed to list tenants: %w", err)
	}

	if len(tenants) == 0 {
		fmt.Println("No tenants found.")
		fmt.Println()
		fmt.Println("Create one with: pathtracker tenants create <name>")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tRETENTION\tBODY LIMIT\tCREATED")
	fmt.Fprintln(w, "--\t----\t---------\t----------\t-------")

	for _, t := range tenants {
		created := t.CreatedAt.Format("2006-01-02")
		fmt.Fprintf(w, "%s\t%s\t%dd\t%d\t%s\n", t.ID, t.Name, t.RetentionDays, t.BodySizeLimitBytes, created)
	}

	w.Flush()
	return nil
}
