package commands

import (
	"context"
	"fmt"
	"os"
	"regexp"

	"github.com/spf13/cobra"

	"github.com/attio-labs/attio-mcp/internal/attio"
	"github.com/attio-labs/attio-mcp/internal/config"
	"github.com/attio-labs/attio-mcp/internal/storage"
)

var (
	initProfile      string
	initAPIKey       string
	initWorkspace    string
	initNoPassphrase bool
)

var profileNamePattern = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9_-]{0,63}$`)

// initCmd represents the init command
var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize a new Attio profile",
	Long: `Initialize a new Attio profile with an API key.

Examples:
  # Initialize with an API key
  attio-mcp init --profile myworkspace --api-key sk_live_...

  # Initialize from environment variable
  export ATTIO_API_KEY="sk_live_..."
  attio-mcp init --profile myworkspace`,
	RunE: runInit,
}

func init() {
	rootCmd.AddCommand(initCmd)

	initCmd.SetOut(os.Stderr)
	initCmd.SetErr(os.Stderr)

	initCmd.Flags().StringVar(&initProfile, "profile", "", "profile name (required)")
	initCmd.Flags().StringVar(&initAPIKey, "api-key", "", "Attio API key")
	initCmd.Flags().StringVar(&initWorkspace, "workspace", "", "workspace label for this profile")
	initCmd.Flags().BoolVar(&initNoPassphrase, "no-passphrase", false, "store the API key without encryption (NOT RECOMMENDED)")
	_ = initCmd.MarkFlagRequired("profile")
}

func runInit(cmd *cobra.Command, args []string) error {
	if initAPIKey == "" {
		initAPIKey = os.Getenv("ATTIO_API_KEY")
	}
	if initAPIKey == "" {
		return fmt.Errorf("either --api-key or the ATTIO_API_KEY environment variable must be provided")
	}

	if !profileNamePattern.MatchString(initProfile) {
		return fmt.Errorf("invalid profile name %q: use letters, digits, dashes and underscores", initProfile)
	}

	configDir := config.ConfigDir()
	if err := os.MkdirAll(configDir, 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	var store *storage.FileProfileStore
	if cfg.Profiles.Sealed {
		store, err = openProfileStore(cfg)
		if err != nil {
			return fmt.Errorf("failed to open profile store: %w", err)
		}
	} else if initNoPassphrase {
		fmt.Fprintln(os.Stderr, "WARNING: storing the API key without encryption.")
		store, err = storage.NewFileProfileStore(configDir)
		if err != nil {
			return fmt.Errorf("failed to create profile store: %w", err)
		}
	} else {
		// First time setup with encryption.
		fmt.Fprintln(os.Stderr, "First time setup - please create a passphrase to encrypt stored API keys.")
		fmt.Fprint(os.Stderr, "Enter passphrase: ")
		passphrase, err := readPassphrase()
		if err != nil {
			return fmt.Errorf("failed to read passphrase: %w", err)
		}
		fmt.Fprint(os.Stderr, "Confirm passphrase: ")
		confirm, err := readPassphrase()
		if err != nil {
			return fmt.Errorf("failed to read passphrase: %w", err)
		}
		if passphrase != confirm {
			return fmt.Errorf("passphrases do not match")
		}

		store, err = storage.NewSealedProfileStore(configDir, passphrase)
		if err != nil {
			return fmt.Errorf("failed to create profile store: %w", err)
		}

		cfg.Profiles.Sealed = true
		if err := cfg.Save(configFile); err != nil {
			return fmt.Errorf("failed to save config: %w", err)
		}
	}
	defer store.Close()

	if store.Exists(initProfile) {
		return fmt.Errorf("profile %q already exists", initProfile)
	}

	fmt.Fprintf(os.Stderr, "Initializing profile %q...\n", initProfile)

	// Test the key before persisting it.
	fmt.Fprint(os.Stderr, "Testing connection to Attio... ")
	client, err := attio.NewClient(initAPIKey)
	if err != nil {
		fmt.Fprintln(os.Stderr, "failed")
		return fmt.Errorf("failed to create client: %w", err)
	}
	if err := client.TestConnection(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "failed")
		return fmt.Errorf("failed to connect to Attio: %w", err)
	}
	fmt.Fprintln(os.Stderr, "ok")

	profileConfig := map[string]string{"api_key": initAPIKey}
	if initWorkspace != "" {
		profileConfig["workspace"] = initWorkspace
	}
	if err := store.Create(initProfile, profileConfig); err != nil {
		return fmt.Errorf("failed to save profile: %w", err)
	}

	// First profile becomes the default.
	if cfg.Profiles.Default == "" {
		cfg.Profiles.Default = initProfile
		if err := cfg.Save(configFile); err != nil {
			return fmt.Errorf("failed to update default profile: %w", err)
		}
		fmt.Fprintf(os.Stderr, "Set %q as default profile\n", initProfile)
	}

	fmt.Fprintf(os.Stderr, "\nProfile %q initialized successfully!\n", initProfile)
	fmt.Fprintln(os.Stderr, "\nTo start the MCP server, run:")
	fmt.Fprintf(os.Stderr, "  attio-mcp serve --profile %s\n", initProfile)
	return nil
}
