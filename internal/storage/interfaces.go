package storage

import "github.com/attio-labs/attio-mcp/pkg/types"

// ProfileStore defines the interface for profile storage
type ProfileStore interface {
	Get(name string) (*types.Profile, error)
	Create(name string, config map[string]string) error
	Update(name string, config map[string]string) error
	Delete(name string) error
	List() []string
	Exists(name string) bool
}
