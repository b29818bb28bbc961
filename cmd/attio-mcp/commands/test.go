package commands

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/attio-labs/attio-mcp/internal/attio"
	"github.com/attio-labs/attio-mcp/internal/normalize"
)

var testResourceType string

// testCmd represents the test command
var testCmd = &cobra.Command{
	Use:   "test",
	Short: "Test the connection to Attio",
	Long: `Test the connection to Attio using a configured profile.

Connects with the profile's API key, lists the workspace objects, and
optionally fetches the attribute schema of one resource type.

Examples:
  # Test the default profile
  attio-mcp test

  # Test a specific profile and inspect the deals schema
  attio-mcp test --profile production --resource-type deals`,
	RunE: runTest,
}

func init() {
	rootCmd.AddCommand(testCmd)

	testCmd.Flags().StringVar(&testResourceType, "resource-type", "", "also fetch the attribute schema for this resource type")
}

func runTest(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	profileName := profile
	if profileName == "" {
		profileName = cfg.Profiles.Default
		if profileName == "" {
			return fmt.Errorf("no profile specified and no default profile configured")
		}
	}

	store, err := openProfileStore(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	prof, err := store.Get(profileName)
	if err != nil {
		return fmt.Errorf("failed to get profile: %w", err)
	}

	client, err := attio.NewClient(prof.Config["api_key"])
	if err != nil {
		return fmt.Errorf("failed to create client: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	fmt.Printf("Testing profile %q...\n\n", profileName)

	fmt.Print("Connection: ")
	if err := client.TestConnection(ctx); err != nil {
		fmt.Println("failed")
		return fmt.Errorf("connection test failed: %w", err)
	}
	fmt.Println("ok")

	objects, err := client.ListObjects(ctx)
	if err != nil {
		return fmt.Errorf("failed to list objects: %w", err)
	}
	fmt.Printf("Objects:    %d (custom: %d)\n", len(objects), len(client.CustomObjectSlugs()))
	verboseLog("resource types: %v", normalize.ValidResourceTypes(client))

	if testResourceType == "" {
		fmt.Println("\nProfile is working correctly.")
		return nil
	}

	resourceType, err := normalize.CanonicalizeResourceType(testResourceType, client)
	if err != nil {
		return err
	}

	attrs, err := client.GetAttributes(ctx, resourceType)
	if err != nil {
		return fmt.Errorf("failed to fetch attributes: %w", err)
	}

	fmt.Printf("\nAttributes of %s:\n", resourceType)
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "SLUG\tTYPE\tARRAY\tWRITABLE")
	for _, attr := range attrs {
		writable := attr.IsWritable && !normalize.IsReadOnlyField(resourceType, attr.APISlug)
		fmt.Fprintf(w, "%s\t%s\t%v\t%v\n", attr.APISlug, attr.Type, attr.IsArray, writable)
	}
	return w.Flush()
}
