package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"

	"github.com/attio-labs/attio-mcp/internal/normalize"
)

// ErrConfigNotFound is returned when the config file is not found by Load.
var ErrConfigNotFound = errors.New("configuration file not found")

// Config represents the application configuration
type Config struct {
	MCP           MCPConfig          `mapstructure:"mcp"`
	Logging       LoggingConfig      `mapstructure:"logging"`
	Profiles      ProfilesConfig     `mapstructure:"profiles"`
	FieldMappings FieldMappingConfig `mapstructure:"field_mappings"`
}

// MCPConfig represents MCP protocol settings
type MCPConfig struct {
	Timeout   time.Duration `mapstructure:"timeout"`
	RateLimit RateLimit     `mapstructure:"rate_limit"`
}

// RateLimit represents rate limiting configuration
type RateLimit struct {
	RequestsPerMinute int `mapstructure:"requests_per_minute"`
}

// LoggingConfig represents logging configuration
type LoggingConfig struct {
	Level string `mapstructure:"level"`
	File  string `mapstructure:"file"`
}

// ProfilesConfig represents profile settings
type ProfilesConfig struct {
	Default string `mapstructure:"default"`
	Sealed  bool   `mapstructure:"sealed"` // profiles are passphrase-encrypted
}

// FieldMappingConfig holds the configurable alias dictionaries. Entries
// extend the built-in defaults; a configured alias overrides a default
// alias with the same name, but never the curated special cases.
type FieldMappingConfig struct {
	Common      map[string]string            `mapstructure:"common"`
	PerResource map[string]map[string]string `mapstructure:"per_resource"`
}

// DefaultConfig returns a configuration with default values
func DefaultConfig() *Config {
	return &Config{
		MCP: MCPConfig{
			Timeout: 30 * time.Second,
			RateLimit: RateLimit{
				RequestsPerMinute: 60,
			},
		},
		Logging: LoggingConfig{
			Level: "info",
		},
		Profiles: ProfilesConfig{
			Default: "default",
		},
	}
}

// Load loads configuration from file. An empty configFile reads the
// default location; a missing default file yields ErrConfigNotFound so
// callers can fall back to DefaultConfig.
func Load(configFile string) (*Config, error) {
	config := DefaultConfig()

	v := newViper(configFile)

	resolved := configFile
	if resolved == "" {
		resolved = filepath.Join(ConfigDir(), "config.yaml")
	}
	if _, err := os.Stat(resolved); os.IsNotExist(err) {
		return nil, ErrConfigNotFound
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return nil, ErrConfigNotFound
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := v.Unmarshal(config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	return config, nil
}

func newViper(configFile string) *viper.Viper {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")

	if configFile == "" {
		v.AddConfigPath(ConfigDir())
		v.AddConfigPath(".")
	} else {
		v.SetConfigFile(configFile)
	}

	v.SetEnvPrefix("ATTIO_MCP")
	v.AutomaticEnv()
	_ = v.BindEnv("logging.level", "ATTIO_MCP_LOG_LEVEL")
	_ = v.BindEnv("profiles.default", "ATTIO_MCP_PROFILE")

	return v
}

// Save writes the configuration to the given path, creating the
// directory if needed. An empty path uses the default location.
func (c *Config) Save(path string) error {
	if path == "" {
		path = filepath.Join(ConfigDir(), "config.yaml")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.Set("mcp.timeout", c.MCP.Timeout.String())
	v.Set("mcp.rate_limit.requests_per_minute", c.MCP.RateLimit.RequestsPerMinute)
	v.Set("logging.level", c.Logging.Level)
	v.Set("logging.file", c.Logging.File)
	v.Set("profiles.default", c.Profiles.Default)
	v.Set("profiles.sealed", c.Profiles.Sealed)
	if len(c.FieldMappings.Common) > 0 {
		v.Set("field_mappings.common", c.FieldMappings.Common)
	}
	if len(c.FieldMappings.PerResource) > 0 {
		v.Set("field_mappings.per_resource", c.FieldMappings.PerResource)
	}

	if err := v.WriteConfig(); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// Watch re-reads the config file whenever it changes and invokes
// onReload with the fresh configuration. Parse failures keep the
// previous configuration and are reported through onError.
func Watch(configFile string, onReload func(*Config), onError func(error)) error {
	v := newViper(configFile)
	if err := v.ReadInConfig(); err != nil {
		return fmt.Errorf("cannot watch config that does not load: %w", err)
	}

	v.OnConfigChange(func(fsnotify.Event) {
		fresh := DefaultConfig()
		if err := v.Unmarshal(fresh); err != nil {
			if onError != nil {
				onError(fmt.Errorf("config reload failed, keeping previous: %w", err))
			}
			return
		}
		onReload(fresh)
	})
	v.WatchConfig()
	return nil
}

// Mappings merges the configured alias dictionaries over the built-in
// defaults and returns the result for the field resolver.
func (c *Config) Mappings() *normalize.Mappings {
	merged := normalize.DefaultMappings()
	for alias, slug := range c.FieldMappings.Common {
		merged.Common[alias] = slug
	}
	for resourceType, dict := range c.FieldMappings.PerResource {
		if merged.PerResource[resourceType] == nil {
			merged.PerResource[resourceType] = make(map[string]string, len(dict))
		}
		for alias, slug := range dict {
			merged.PerResource[resourceType][alias] = slug
		}
	}
	return merged
}

// ConfigDir returns the configuration directory
func ConfigDir() string {
	if dir := os.Getenv("ATTIO_MCP_CONFIG_DIR"); dir != "" {
		return dir
	}
	homeDir, err := os.UserHomeDir()
	if err != nil {
		cwd, _ := os.Getwd()
		return filepath.Join(cwd, ".attio-mcp")
	}
	return filepath.Join(homeDir, ".attio-mcp")
}

// AuditLogPath returns the configured audit log path, defaulting to a
// file under the config directory.
func (c *Config) AuditLogPath() string {
	if c.Logging.File != "" {
		return c.Logging.File
	}
	return filepath.Join(ConfigDir(), "audit.log")
}
