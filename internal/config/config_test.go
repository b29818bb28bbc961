package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, contents string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte(contents), 0600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "config.yaml"))
	if !errors.Is(err, ErrConfigNotFound) {
		t.Fatalf("expected ErrConfigNotFound, got %v", err)
	}
}

func TestLoadDefaults(t *testing.T) {
	path := writeConfig(t, "logging:\n  level: debug\n")
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("expected level debug, got %q", cfg.Logging.Level)
	}
	if cfg.MCP.Timeout != 30*time.Second {
		t.Errorf("expected default timeout, got %v", cfg.MCP.Timeout)
	}
	if cfg.MCP.RateLimit.RequestsPerMinute != 60 {
		t.Errorf("expected default rate limit, got %d", cfg.MCP.RateLimit.RequestsPerMinute)
	}
	if cfg.Profiles.Default != "default" {
		t.Errorf("expected default profile, got %q", cfg.Profiles.Default)
	}
}

func TestLoadFieldMappings(t *testing.T) {
	path := writeConfig(t, `
field_mappings:
  common:
    org: company
  per_resource:
    companies:
      ticker: stock_symbol
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got := cfg.FieldMappings.Common["org"]; got != "company" {
		t.Errorf("common mapping = %q, want company", got)
	}
	if got := cfg.FieldMappings.PerResource["companies"]["ticker"]; got != "stock_symbol" {
		t.Errorf("per_resource mapping = %q, want stock_symbol", got)
	}
}

func TestMappingsMergeOverDefaults(t *testing.T) {
	cfg := DefaultConfig()
	cfg.FieldMappings = FieldMappingConfig{
		Common: map[string]string{
			"org": "company",
			"id":  "custom_id", // overrides the built-in alias
		},
		PerResource: map[string]map[string]string{
			"companies": {"ticker": "stock_symbol"},
			"invoices":  {"amount": "total_amount"},
		},
	}

	m := cfg.Mappings()
	if got := m.Common["org"]; got != "company" {
		t.Errorf("configured common alias = %q, want company", got)
	}
	if got := m.Common["id"]; got != "custom_id" {
		t.Errorf("configured alias should override default, got %q", got)
	}
	if got := m.Common["created"]; got != "created_at" {
		t.Errorf("default common alias should survive merge, got %q", got)
	}
	if got := m.PerResource["companies"]["ticker"]; got != "stock_symbol" {
		t.Errorf("configured per-resource alias = %q, want stock_symbol", got)
	}
	if got := m.PerResource["companies"]["website"]; got != "domains" {
		t.Errorf("default per-resource alias should survive merge, got %q", got)
	}
	if got := m.PerResource["invoices"]["amount"]; got != "total_amount" {
		t.Errorf("alias for new resource type = %q, want total_amount", got)
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")

	cfg := DefaultConfig()
	cfg.MCP.Timeout = 45 * time.Second
	cfg.MCP.RateLimit.RequestsPerMinute = 120
	cfg.Logging.Level = "debug"
	cfg.Profiles.Default = "work"
	cfg.Profiles.Sealed = true
	cfg.FieldMappings = FieldMappingConfig{
		Common:      map[string]string{"org": "company"},
		PerResource: map[string]map[string]string{"companies": {"ticker": "stock_symbol"}},
	}

	if err := cfg.Save(path); err != nil {
		t.Fatalf("Save: %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if loaded.MCP.Timeout != 45*time.Second {
		t.Errorf("timeout = %v, want 45s", loaded.MCP.Timeout)
	}
	if loaded.MCP.RateLimit.RequestsPerMinute != 120 {
		t.Errorf("rate limit = %d, want 120", loaded.MCP.RateLimit.RequestsPerMinute)
	}
	if loaded.Logging.Level != "debug" {
		t.Errorf("level = %q, want debug", loaded.Logging.Level)
	}
	if loaded.Profiles.Default != "work" || !loaded.Profiles.Sealed {
		t.Errorf("profiles = %+v", loaded.Profiles)
	}
	if got := loaded.FieldMappings.Common["org"]; got != "company" {
		t.Errorf("common mapping = %q, want company", got)
	}
	if got := loaded.FieldMappings.PerResource["companies"]["ticker"]; got != "stock_symbol" {
		t.Errorf("per_resource mapping = %q, want stock_symbol", got)
	}
}

func TestConfigDirEnvOverride(t *testing.T) {
	t.Setenv("ATTIO_MCP_CONFIG_DIR", "/tmp/attio-test")
	if got := ConfigDir(); got != "/tmp/attio-test" {
		t.Errorf("ConfigDir = %q, want /tmp/attio-test", got)
	}
}

func TestAuditLogPath(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Logging.File = "/var/log/attio.log"
	if got := cfg.AuditLogPath(); got != "/var/log/attio.log" {
		t.Errorf("AuditLogPath = %q", got)
	}

	cfg.Logging.File = ""
	t.Setenv("ATTIO_MCP_CONFIG_DIR", "/tmp/attio-test")
	want := filepath.Join("/tmp/attio-test", "audit.log")
	if got := cfg.AuditLogPath(); got != want {
		t.Errorf("AuditLogPath = %q, want %q", got, want)
	}
}
