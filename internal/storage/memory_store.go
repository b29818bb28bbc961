package storage

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/attio-labs/attio-mcp/pkg/types"
)

var _ ProfileStore = (*MemoryProfileStore)(nil)

// MemoryProfileStore is an in-memory ProfileStore for tests and
// ephemeral sessions where nothing should touch disk.
type MemoryProfileStore struct {
	mu       sync.RWMutex
	profiles map[string]*types.Profile
}

// NewMemoryProfileStore creates an empty in-memory store.
func NewMemoryProfileStore() *MemoryProfileStore {
	return &MemoryProfileStore{
		profiles: make(map[string]*types.Profile),
	}
}

// Get retrieves a profile by name.
func (m *MemoryProfileStore) Get(name string) (*types.Profile, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	profile, exists := m.profiles[name]
	if !exists {
		return nil, fmt.Errorf("profile %q not found", name)
	}
	return profile, nil
}

// Create adds a new profile.
func (m *MemoryProfileStore) Create(name string, config map[string]string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.profiles[name]; exists {
		return fmt.Errorf("profile %q already exists", name)
	}
	now := time.Now()
	m.profiles[name] = &types.Profile{
		Name:      name,
		Config:    config,
		CreatedAt: now,
		UpdatedAt: now,
	}
	return nil
}

// Update replaces the config of an existing profile.
func (m *MemoryProfileStore) Update(name string, config map[string]string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	profile, exists := m.profiles[name]
	if !exists {
		return fmt.Errorf("profile %q not found", name)
	}
	profile.Config = config
	profile.UpdatedAt = time.Now()
	return nil
}

// Delete removes a profile.
func (m *MemoryProfileStore) Delete(name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.profiles, name)
	return nil
}

// List returns all profile names in sorted order.
func (m *MemoryProfileStore) List() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	names := make([]string, 0, len(m.profiles))
	for name := range m.profiles {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Exists reports whether a profile is present.
func (m *MemoryProfileStore) Exists(name string) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()

	_, exists := m.profiles[name]
	return exists
}
