package main

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/pathtracker/pathtracker/adapters/clock"
	"github.com/pathtracker/pathtracker/adapters/hasher"
	"github.com/pathtracker/pathtracker/adapters/idgen"
	"github.com/pathtracker/pathtracker/adapters/random"
	"github.com/pathtracker/pathtracker/adapters/sqlite"
	"github.com/pathtracker/pathtracker/app"
)

var keysCmd = &cobra.Command{
	Use:   "keys",
	Short: "Manage API keys",
	Long: `Manage PathTracker API keys.

Each tenant can have multiple tracking keys. Keys authenticate
event ingestion requests from instrumented applications.

Examples:
  pathtracker keys list --tenant=tn_123
  pathtracker keys create --tenant=tn_123 --name=production
  pathtracker keys revoke key_abc123 --tenant=tn_123`,
}

var keysListCmd = &cobra.Command{
	Use:   "list",
	Short: "List API keys for a tenant",
	RunE:  runKeysList,
}

var keysCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a new API key",
	RunE:  runKeysCreate,
}

var keysRevokeCmd = &cobra.Command{
	Use:   "revoke <key-id>",
	Short: "Revoke an API key",
	Args:  cobra.ExactArgs(1),
	RunE:  runKeysRevoke,
}

var (
	keyTenantID  string
	keyName      string
	keyExpiresIn time.Duration
)

func init() {
	rootCmd.AddCommand(keysCmd)

	keysCmd.AddCommand(keysListCmd)
	keysCmd.AddCommand(keysCreateCmd)
	keysCmd.AddCommand(keysRevokeCmd)

	keysCmd.PersistentFlags().StringVar(&keyTenantID, "tenant", "", "tenant ID (required)")
	keysCmd.MarkPersistentFlagRequired("tenant")

	keysCreateCmd.Flags().StringVar(&keyName, "name", "", "key name (required)")
	keysCreateCmd.Flags().DurationVar(&keyExpiresIn, "expires", 0, "expiry from now, e.g. 720h (0 = never)")
	keysCreateCmd.MarkFlagRequired("name")
}

func newKeyService(db *sqlite.DB) *app.KeyService {
	return app.NewKeyService(sqlite.NewKeyStore(db), hasher.NewBcrypt(hasher.DefaultCost), random.Real{}, clock.Real{}, idgen.UUID{})
}

func runKeysList(cmd *cobra.Command, args []string) error {
	db, _, err := openDatabase()
	if err != nil {
		return err
	}
	defer db.Close()

	keys, err := newKeyService(db).List(context.Background(), keyTenantID)
	if err != nil {
		return fmt.Errorf("failed to list keys: %w", err)
	}

	if len(keys) == 0 {
		fmt.Printf("No keys found for tenant %s.\n", keyTenantID)
		fmt.Println()
		fmt.Println("Create a key with: pathtracker keys create --tenant=<tenant-id> --name=<name>")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tPREVIEW\tSTATUS\tUSAGE\tCREATED")
	fmt.Fprintln(w, "--\t----\t-------\t------\t-----\t-------")

	for _, k := range keys {
		status := "active"
		if k.RevokedAt != nil {
			status = "revoked"
		} else if k.ExpiresAt != nil && k.ExpiresAt.Before(time.Now()) {
			status = "expired"
		}
		created := k.CreatedAt.Format("2006-01-02")
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\t%s\n", k.ID, k.Name, k.Preview(), status, k.UsageCount, created)
	}

	w.Flush()
	return nil
}

func runKeysCreate(cmd *cobra.Command, args []string) error {
	db, _, err := openDatabase()
	if err != nil {
		return err
	}
	defer db.Close()

	// Verify tenant exists
	tenantStore := sqlite.NewTenantStore(db)
	if _, err := tenantStore.Get(context.Background(), keyTenantID); err != nil {
		return fmt.Errorf("tenant not found: %s", keyTenantID)
	}

	var expiresAt *time.Time
	if keyExpiresIn > 0 {
		t := time.Now().UTC().Add(keyExpiresIn)
		expiresAt = &t
	}

	created, err := newKeyService(db).Create(context.Background(), keyTenantID, keyName, expiresAt)
	if err != nil {
		return fmt.Errorf("failed to create key: %w", err)
	}

	fmt.Printf("%s Created API key %q for tenant %s\n", checkMark, keyName, keyTenantID)
	fmt.Println()
	fmt.Println("API Key (save this, shown once):")
	fmt.Printf("  %s\n", created.Secret)
	fmt.Println()
	fmt.Printf("Key ID: %s\n", created.Key.ID)

	return nil
}

func runKeysRevoke(cmd *cobra.Command, args []string) error {
	keyID := args[0]

	db, _, err := openDatabase()
	if err != nil {
		return err
	}
	defer db.Close()

	keyStore := sqlite.NewKeyStore(db)

	// Check if key exists
	k, err := keyStore.GetByID(context.Background(), keyTenantID, keyID)
	if err != nil {
		return fmt.Errorf("key not found: %s", keyID)
	}

	if k.RevokedAt != nil {
		fmt.Printf("Key %s is already revoked.\n", keyID)
		return nil
	}

	// Confirm revocation
	if !confirm(fmt.Sprintf("Revoke key %s?", keyID)) {
		fmt.Println("Aborted.")
		return nil
	}

	if err := newKeyService(db).Revoke(context.Background(), keyTenantID, keyID); err != nil {
		return fmt.Errorf("failed to revoke key: %w", err)
	}

	fmt.Printf("%s Revoked key: %s\n", checkMark, keyID)
	return nil
}
