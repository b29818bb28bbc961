// Package storage persists named Attio credential profiles, sealed
// with a passphrase when one is provided.
package storage

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/attio-labs/attio-mcp/internal/crypto"
	"github.com/attio-labs/attio-mcp/pkg/types"
)

var _ ProfileStore = (*FileProfileStore)(nil)

// ProfilesFileName is the filename for the profiles database.
const ProfilesFileName = "profiles.json"

// FileProfileStore manages profiles in a JSON file under the config
// directory. With a sealer set, each profile payload is encrypted at
// rest; otherwise it is stored plaintext.
type FileProfileStore struct {
	mu        sync.RWMutex
	configDir string
	sealer    *crypto.Sealer
	profiles  map[string]*types.Profile
}

type storedProfile struct {
	Name      string    `json:"name"`
	Payload   string    `json:"payload"`
	Sealed    bool      `json:"sealed"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type profilesFile struct {
	Version   int                       `json:"version"`
	Profiles  map[string]*storedProfile `json:"profiles"`
	UpdatedAt time.Time                 `json:"updated_at"`
}

// NewFileProfileStore opens the profile store without encryption.
func NewFileProfileStore(configDir string) (*FileProfileStore, error) {
	return newStore(configDir, nil)
}

// NewSealedProfileStore opens the profile store sealed with the given
// passphrase.
func NewSealedProfileStore(configDir, passphrase string) (*FileProfileStore, error) {
	if err := crypto.ValidatePassphrase(passphrase); err != nil {
		return nil, fmt.Errorf("invalid passphrase: %w", err)
	}
	return newStore(configDir, crypto.NewSealer(passphrase))
}

func newStore(configDir string, sealer *crypto.Sealer) (*FileProfileStore, error) {
	store := &FileProfileStore{
		configDir: configDir,
		sealer:    sealer,
		profiles:  make(map[string]*types.Profile),
	}
	if err := store.load(); err != nil {
		return nil, fmt.Errorf("failed to load profiles: %w", err)
	}
	return store, nil
}

// Create adds a new profile. The config must carry a plausible Attio
// API key under "api_key".
func (s *FileProfileStore) Create(name string, config map[string]string) error {
	if name == "" {
		return fmt.Errorf("profile name cannot be empty")
	}
	if err := validateAttioConfig(config); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.profiles[name]; exists {
		return fmt.Errorf("profile %q already exists", name)
	}

	now := time.Now()
	s.profiles[name] = &types.Profile{
		Name:      name,
		Config:    copyConfig(config),
		CreatedAt: now,
		UpdatedAt: now,
	}
	return s.save()
}

// Get returns a copy of the named profile.
func (s *FileProfileStore) Get(name string) (*types.Profile, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	profile, exists := s.profiles[name]
	if !exists {
		return nil, fmt.Errorf("profile %q not found", name)
	}
	return &types.Profile{
		Name:      profile.Name,
		Config:    copyConfig(profile.Config),
		CreatedAt: profile.CreatedAt,
		UpdatedAt: profile.UpdatedAt,
	}, nil
}

// List returns all profile names in sorted order.
func (s *FileProfileStore) List() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	names := make([]string, 0, len(s.profiles))
	for name := range s.profiles {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Update replaces the config of an existing profile.
func (s *FileProfileStore) Update(name string, config map[string]string) error {
	if err := validateAttioConfig(config); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	profile, exists := s.profiles[name]
	if !exists {
		return fmt.Errorf("profile %q not found", name)
	}
	profile.Config = copyConfig(config)
	profile.UpdatedAt = time.Now()
	return s.save()
}

// Delete removes a profile.
func (s *FileProfileStore) Delete(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.profiles[name]; !exists {
		return fmt.Errorf("profile %q not found", name)
	}
	delete(s.profiles, name)
	return s.save()
}

// Exists reports whether a profile is present.
func (s *FileProfileStore) Exists(name string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, exists := s.profiles[name]
	return exists
}

// Metadata returns non-sensitive metadata for every profile.
func (s *FileProfileStore) Metadata() map[string]types.ProfileMetadata {
	s.mu.RLock()
	defer s.mu.RUnlock()

	meta := make(map[string]types.ProfileMetadata, len(s.profiles))
	for name, profile := range s.profiles {
		meta[name] = types.ProfileMetadata{
			Name:      profile.Name,
			CreatedAt: profile.CreatedAt,
			UpdatedAt: profile.UpdatedAt,
		}
	}
	return meta
}

// Close clears decrypted credentials from memory.
func (s *FileProfileStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for name, profile := range s.profiles {
		for key := range profile.Config {
			profile.Config[key] = ""
		}
		delete(s.profiles, name)
	}
	return nil
}

func (s *FileProfileStore) save() error {
	db := &profilesFile{
		Version:   1,
		Profiles:  make(map[string]*storedProfile, len(s.profiles)),
		UpdatedAt: time.Now(),
	}

	for name, profile := range s.profiles {
		raw, err := json.Marshal(profile)
		if err != nil {
			return fmt.Errorf("failed to serialize profile %q: %w", name, err)
		}

		payload := string(raw)
		if s.sealer != nil {
			payload, err = s.sealer.Seal(raw)
			if err != nil {
				return fmt.Errorf("failed to seal profile %q: %w", name, err)
			}
		}

		db.Profiles[name] = &storedProfile{
			Name:      name,
			Payload:   payload,
			Sealed:    s.sealer != nil,
			CreatedAt: profile.CreatedAt,
			UpdatedAt: profile.UpdatedAt,
		}
	}

	data, err := json.MarshalIndent(db, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to serialize profiles database: %w", err)
	}

	if err := os.MkdirAll(s.configDir, 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	// Write-then-rename so a crash never leaves a half-written database.
	path := filepath.Join(s.configDir, ProfilesFileName)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0600); err != nil {
		return fmt.Errorf("failed to write profiles temp file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("failed to replace profiles file: %w", err)
	}
	return nil
}

func (s *FileProfileStore) load() error {
	path := filepath.Join(s.configDir, ProfilesFileName)
	data, err := os.ReadFile(path) // #nosec G304 - path is under the validated config dir
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read profiles file: %w", err)
	}

	var db profilesFile
	if err := json.Unmarshal(data, &db); err != nil {
		return fmt.Errorf("failed to parse profiles database: %w", err)
	}

	loaded := make(map[string]*types.Profile, len(db.Profiles))
	for name, stored := range db.Profiles {
		raw := []byte(stored.Payload)
		if stored.Sealed {
			if s.sealer == nil {
				fmt.Fprintf(os.Stderr, "Warning: profile %q is sealed but no passphrase was given, skipping\n", name)
				continue
			}
			raw, err = s.sealer.Open(stored.Payload)
			if err != nil {
				fmt.Fprintf(os.Stderr, "Warning: failed to unseal profile %q, skipping: %v\n", name, err)
				continue
			}
		}

		var profile types.Profile
		if err := json.Unmarshal(raw, &profile); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: failed to parse profile %q, skipping: %v\n", name, err)
			continue
		}
		loaded[name] = &profile
	}
	s.profiles = loaded
	return nil
}

func validateAttioConfig(config map[string]string) error {
	if config == nil {
		return fmt.Errorf("configuration cannot be nil")
	}
	apiKey, ok := config["api_key"]
	if !ok || strings.TrimSpace(apiKey) == "" {
		return fmt.Errorf("required field %q is missing", "api_key")
	}
	if len(apiKey) < 10 {
		return fmt.Errorf("api_key appears to be invalid")
	}
	return nil
}

func copyConfig(config map[string]string) map[string]string {
	out := make(map[string]string, len(config))
	for k, v := range config {
		out[k] = v
	}
	return out
}
