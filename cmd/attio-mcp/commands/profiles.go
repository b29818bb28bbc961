package commands

import (
	"fmt"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
)

// profilesCmd represents the profiles command
var profilesCmd = &cobra.Command{
	Use:   "profiles",
	Short: "Manage Attio profiles",
	Long: `List, delete, and manage Attio API-key profiles.

Profiles store encrypted Attio API keys so the server can connect to
different workspaces.`,
}

var profilesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all profiles",
	RunE:  runProfilesList,
}

var profilesDeleteCmd = &cobra.Command{
	Use:   "delete [profile]",
	Short: "Delete a profile",
	Long:  `Delete a profile. This action cannot be undone.`,
	Args:  cobra.ExactArgs(1),
	RunE:  runProfilesDelete,
}

var profilesSetDefaultCmd = &cobra.Command{
	Use:   "set-default [profile]",
	Short: "Set default profile",
	Long:  `Set the default profile to use when no --profile flag is specified.`,
	Args:  cobra.ExactArgs(1),
	RunE:  runProfilesSetDefault,
}

var profilesShowCmd = &cobra.Command{
	Use:   "show [profile]",
	Short: "Show profile details",
	Args:  cobra.ExactArgs(1),
	RunE:  runProfilesShow,
}

func init() {
	rootCmd.AddCommand(profilesCmd)
	profilesCmd.AddCommand(profilesListCmd)
	profilesCmd.AddCommand(profilesDeleteCmd)
	profilesCmd.AddCommand(profilesSetDefaultCmd)
	profilesCmd.AddCommand(profilesShowCmd)
}

func runProfilesList(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	store, err := openProfileStore(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	names := store.List()
	if len(names) == 0 {
		fmt.Println("No profiles configured.")
		fmt.Println("\nTo create a profile, run:")
		fmt.Println("  attio-mcp init --profile <name> --api-key <key>")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "PROFILE\tDEFAULT")
	fmt.Fprintln(w, "-------\t-------")
	for _, name := range names {
		isDefault := ""
		if name == cfg.Profiles.Default {
			isDefault = "*"
		}
		fmt.Fprintf(w, "%s\t%s\n", name, isDefault)
	}
	return w.Flush()
}

func runProfilesDelete(cmd *cobra.Command, args []string) error {
	profileName := args[0]

	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	store, err := openProfileStore(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	fmt.Printf("Are you sure you want to delete profile %q? This action cannot be undone.\n", profileName)
	fmt.Print("Type 'yes' to confirm: ")
	var confirm string
	fmt.Scanln(&confirm)
	if strings.ToLower(strings.TrimSpace(confirm)) != "yes" {
		fmt.Println("Deletion cancelled.")
		return nil
	}

	if err := store.Delete(profileName); err != nil {
		return fmt.Errorf("failed to delete profile: %w", err)
	}

	if cfg.Profiles.Default == profileName {
		cfg.Profiles.Default = ""
		if err := cfg.Save(configFile); err != nil {
			return fmt.Errorf("failed to update config: %w", err)
		}
		fmt.Println("Default profile cleared")
	}

	fmt.Printf("Profile %q deleted successfully\n", profileName)
	return nil
}

func runProfilesSetDefault(cmd *cobra.Command, args []string) error {
	profileName := args[0]

	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	store, err := openProfileStore(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	if !store.Exists(profileName) {
		return fmt.Errorf("profile %q does not exist", profileName)
	}

	cfg.Profiles.Default = profileName
	if err := cfg.Save(configFile); err != nil {
		return fmt.Errorf("failed to save config: %w", err)
	}

	fmt.Printf("Default profile set to %q\n", profileName)
	return nil
}

func runProfilesShow(cmd *cobra.Command, args []string) error {
	profileName := args[0]

	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	store, err := openProfileStore(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	prof, err := store.Get(profileName)
	if err != nil {
		return fmt.Errorf("profile %q not found", profileName)
	}

	fmt.Printf("Profile: %s\n", prof.Name)
	fmt.Printf("Default: %v\n", prof.Name == cfg.Profiles.Default)
	if !prof.CreatedAt.IsZero() {
		fmt.Printf("Created: %s\n", prof.CreatedAt.Format(time.RFC3339))
	}
	if !prof.UpdatedAt.IsZero() {
		fmt.Printf("Updated: %s\n", prof.UpdatedAt.Format(time.RFC3339))
	}

	fmt.Println("\nAttio Configuration:")
	if workspace, ok := prof.Config["workspace"]; ok && workspace != "" {
		fmt.Printf("  Workspace: %s\n", workspace)
	}
	if apiKey, ok := prof.Config["api_key"]; ok {
		fmt.Printf("  API Key: %s\n", maskSensitive(apiKey))
	}
	return nil
}

func maskSensitive(value string) string {
	if len(value) <= 8 {
		return "********"
	}
	return value[:4] + "..." + value[len(value)-4:]
}
