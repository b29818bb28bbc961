package mcp

import (
	"context"

	"github.com/attio-labs/attio-mcp/internal/attio"
	"github.com/attio-labs/attio-mcp/pkg/types"
)

// AttioClient is the surface of the Attio API client the server uses.
// It matches *attio.Client and lets tests substitute a fake workspace.
type AttioClient interface {
	TestConnection(ctx context.Context) error
	RefreshObjects(ctx context.Context) error
	CustomObjectSlugs() []string
	GetAttributes(ctx context.Context, resourceType string) ([]types.AttributeMetadata, error)
	GetStatusOptions(ctx context.Context, resourceType, attributeSlug string) ([]types.StatusOption, error)
	QueryRecords(ctx context.Context, resourceType string, filter map[string]interface{}, limit, offset int) ([]attio.Record, error)
	GetRecord(ctx context.Context, resourceType, recordID string) (*attio.Record, error)
	CreateRecord(ctx context.Context, resourceType string, values map[string]interface{}) (*attio.Record, error)
	UpdateRecord(ctx context.Context, resourceType, recordID string, values map[string]interface{}, mode attio.UpdateMode) (*attio.Record, error)
	DeleteRecord(ctx context.Context, resourceType, recordID string) error
}
