package commands

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/attio-labs/attio-mcp/internal/config"
	"github.com/attio-labs/attio-mcp/internal/storage"
)

var (
	version    = "dev"
	configFile string
	profile    string
	verbose    bool
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "attio-mcp",
	Short: "Attio MCP Server",
	Long: `A Model Context Protocol (MCP) server for the Attio CRM.

It exposes Attio records as MCP tools and normalizes the loose field
names, filters, and values AI agents produce into the exact shapes the
Attio API expects.`,
	Version: version,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	// Configure cobra to use stderr for all output (important for MCP)
	rootCmd.SetOut(os.Stderr)
	rootCmd.SetErr(os.Stderr)

	// Global flags
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "config file (default is ~/.attio-mcp/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&profile, "profile", "", "profile to use (overrides config default)")
	rootCmd.PersistentFlags().BoolVar(&verbose, "verbose", false, "verbose output")
}

// SetVersion sets the version for the CLI
func SetVersion(v string) {
	version = v
	rootCmd.Version = v
}

// verboseLog prints a message only if verbose mode is enabled
func verboseLog(format string, args ...interface{}) {
	if verbose {
		fmt.Fprintf(os.Stderr, "[DEBUG] "+format+"\n", args...)
	}
}

// loadConfig reads the config file, falling back to defaults when no
// file exists yet.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configFile)
	if err == config.ErrConfigNotFound {
		return config.DefaultConfig(), nil
	}
	return cfg, err
}

// openProfileStore opens the profile store, prompting for the
// passphrase when the profiles are sealed.
func openProfileStore(cfg *config.Config) (*storage.FileProfileStore, error) {
	configDir := config.ConfigDir()
	if !cfg.Profiles.Sealed {
		return storage.NewFileProfileStore(configDir)
	}

	passphrase := os.Getenv("ATTIO_MCP_PASSPHRASE")
	if passphrase == "" {
		fmt.Fprint(os.Stderr, "Enter passphrase: ")
		var err error
		passphrase, err = readPassphrase()
		if err != nil {
			return nil, fmt.Errorf("failed to read passphrase: %w", err)
		}
	}
	return storage.NewSealedProfileStore(configDir, passphrase)
}

// readPassphrase reads a passphrase from stdin
func readPassphrase() (string, error) {
	var passphrase string
	if _, err := fmt.Scanln(&passphrase); err != nil {
		return "", err
	}
	return strings.TrimSpace(passphrase), nil
}
