package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/attio-labs/attio-mcp/internal/audit"
	"github.com/attio-labs/attio-mcp/internal/config"
	"github.com/attio-labs/attio-mcp/internal/mcp"
)

var serveTimeout time.Duration

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the Attio MCP server",
	Long: `Start the Attio Model Context Protocol server to handle requests from AI agents.

The server communicates over stdio (stdin/stdout) using the MCP protocol.
It requires a configured profile holding an Attio API key.

Examples:
  # Start server with default profile
  attio-mcp serve

  # Start server with specific profile
  attio-mcp serve --profile production`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	// Ensure serve command outputs to stderr (important for MCP protocol)
	serveCmd.SetOut(os.Stderr)
	serveCmd.SetErr(os.Stderr)

	serveCmd.Flags().DurationVar(&serveTimeout, "timeout", 30*time.Second, "operation timeout")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	profileName := profile // from global flag
	if profileName == "" {
		profileName = cfg.Profiles.Default
		if profileName == "" {
			return fmt.Errorf("no profile specified and no default profile configured")
		}
	}

	store, err := openProfileStore(cfg)
	if err != nil {
		return fmt.Errorf("failed to open profile store: %w", err)
	}
	defer store.Close()

	logger, err := audit.NewLogger(audit.Config{
		FilePath: cfg.AuditLogPath(),
		MaxSize:  100 * 1024 * 1024, // 100MB
	})
	if err != nil {
		return fmt.Errorf("failed to create audit logger: %w", err)
	}
	defer logger.Close()

	timeout := serveTimeout
	if cfg.MCP.Timeout > 0 && !cmd.Flags().Changed("timeout") {
		timeout = cfg.MCP.Timeout
	}

	server := mcp.NewServer(store, logger, &mcp.ServerOptions{
		Timeout:     timeout,
		ProfileName: profileName,
		RateLimit:   cfg.MCP.RateLimit.RequestsPerMinute,
		Mappings:    cfg.Mappings(),
	})

	// Reload the field mapping dictionaries when the config file changes.
	watchErr := config.Watch(configFile, func(fresh *config.Config) {
		server.ReplaceMappings(fresh.Mappings())
	}, func(err error) {
		logger.LogError("config", err, nil)
	})
	if watchErr != nil {
		verboseLog("config watch disabled: %v", watchErr)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		cancel()
	}()

	if err := server.Start(ctx); err != nil && err != context.Canceled {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}
