package storage

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const testPassphrase = "test-passphrase-123"

func validConfig() map[string]string {
	return map[string]string{
		"api_key":   "attio_key_0123456789abcdef",
		"workspace": "acme",
	}
}

func TestCreateAndGet(t *testing.T) {
	store, err := NewSealedProfileStore(t.TempDir(), testPassphrase)
	if err != nil {
		t.Fatalf("NewSealedProfileStore: %v", err)
	}

	if err := store.Create("default", validConfig()); err != nil {
		t.Fatalf("Create: %v", err)
	}

	profile, err := store.Get("default")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if profile.Config["api_key"] != "attio_key_0123456789abcdef" {
		t.Errorf("api_key = %q", profile.Config["api_key"])
	}

	// Get returns a copy; mutating it must not affect the store.
	profile.Config["api_key"] = "mutated"
	again, err := store.Get("default")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if again.Config["api_key"] != "attio_key_0123456789abcdef" {
		t.Error("Get returned a reference to internal state")
	}
}

func TestCreateValidation(t *testing.T) {
	store, err := NewSealedProfileStore(t.TempDir(), testPassphrase)
	if err != nil {
		t.Fatalf("NewSealedProfileStore: %v", err)
	}

	tests := []struct {
		name   string
		pname  string
		config map[string]string
	}{
		{"empty name", "", validConfig()},
		{"nil config", "p", nil},
		{"missing api_key", "p", map[string]string{"workspace": "acme"}},
		{"short api_key", "p", map[string]string{"api_key": "short"}},
		{"blank api_key", "p", map[string]string{"api_key": "   "}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := store.Create(tt.pname, tt.config); err == nil {
				t.Error("expected validation error")
			}
		})
	}

	if err := store.Create("dup", validConfig()); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := store.Create("dup", validConfig()); err == nil {
		t.Error("expected error for duplicate profile")
	}
}

func TestPersistenceAcrossReopen(t *testing.T) {
	dir := t.TempDir()

	store, err := NewSealedProfileStore(dir, testPassphrase)
	if err != nil {
		t.Fatalf("NewSealedProfileStore: %v", err)
	}
	if err := store.Create("prod", validConfig()); err != nil {
		t.Fatalf("Create: %v", err)
	}

	reopened, err := NewSealedProfileStore(dir, testPassphrase)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	profile, err := reopened.Get("prod")
	if err != nil {
		t.Fatalf("Get after reopen: %v", err)
	}
	if profile.Config["workspace"] != "acme" {
		t.Errorf("workspace = %q", profile.Config["workspace"])
	}
}

func TestSealedPayloadNotPlaintext(t *testing.T) {
	dir := t.TempDir()

	store, err := NewSealedProfileStore(dir, testPassphrase)
	if err != nil {
		t.Fatalf("NewSealedProfileStore: %v", err)
	}
	if err := store.Create("prod", validConfig()); err != nil {
		t.Fatalf("Create: %v", err)
	}

	raw, err := os.ReadFile(filepath.Join(dir, ProfilesFileName))
	if err != nil {
		t.Fatalf("read profiles file: %v", err)
	}
	if strings.Contains(string(raw), "attio_key_0123456789abcdef") {
		t.Error("API key appears in plaintext in sealed profiles file")
	}
}

func TestWrongPassphraseSkipsProfile(t *testing.T) {
	dir := t.TempDir()

	store, err := NewSealedProfileStore(dir, testPassphrase)
	if err != nil {
		t.Fatalf("NewSealedProfileStore: %v", err)
	}
	if err := store.Create("prod", validConfig()); err != nil {
		t.Fatalf("Create: %v", err)
	}

	reopened, err := NewSealedProfileStore(dir, "another-passphrase")
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	if reopened.Exists("prod") {
		t.Error("profile should not be readable with the wrong passphrase")
	}
}

func TestUnsealedStore(t *testing.T) {
	dir := t.TempDir()

	store, err := NewFileProfileStore(dir)
	if err != nil {
		t.Fatalf("NewFileProfileStore: %v", err)
	}
	if err := store.Create("local", validConfig()); err != nil {
		t.Fatalf("Create: %v", err)
	}

	reopened, err := NewFileProfileStore(dir)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	if !reopened.Exists("local") {
		t.Error("unsealed profile should survive reopen")
	}
}

func TestUpdateDeleteList(t *testing.T) {
	store, err := NewSealedProfileStore(t.TempDir(), testPassphrase)
	if err != nil {
		t.Fatalf("NewSealedProfileStore: %v", err)
	}

	for _, name := range []string{"beta", "alpha"} {
		if err := store.Create(name, validConfig()); err != nil {
			t.Fatalf("Create %s: %v", name, err)
		}
	}

	names := store.List()
	if len(names) != 2 || names[0] != "alpha" || names[1] != "beta" {
		t.Errorf("List = %v, want sorted [alpha beta]", names)
	}

	updated := validConfig()
	updated["workspace"] = "globex"
	if err := store.Update("alpha", updated); err != nil {
		t.Fatalf("Update: %v", err)
	}
	profile, err := store.Get("alpha")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if profile.Config["workspace"] != "globex" {
		t.Errorf("workspace = %q after update", profile.Config["workspace"])
	}

	if err := store.Update("missing", validConfig()); err == nil {
		t.Error("expected error updating missing profile")
	}

	if err := store.Delete("beta"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if store.Exists("beta") {
		t.Error("beta should be gone")
	}
	if err := store.Delete("beta"); err == nil {
		t.Error("expected error deleting missing profile")
	}
}

func TestShortPassphraseRejected(t *testing.T) {
	if _, err := NewSealedProfileStore(t.TempDir(), "short"); err == nil {
		t.Error("expected error for short passphrase")
	}
}

func TestClose(t *testing.T) {
	store, err := NewSealedProfileStore(t.TempDir(), testPassphrase)
	if err != nil {
		t.Fatalf("NewSealedProfileStore: %v", err)
	}
	if err := store.Create("prod", validConfig()); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if store.Exists("prod") {
		t.Error("profiles should be cleared after Close")
	}
}
