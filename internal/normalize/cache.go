package normalize

import (
	"context"
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/attio-labs/attio-mcp/pkg/types"
)

// SchemaSource fetches attribute schemas and option sets from the CRM.
// The HTTP client implements it; tests supply fakes.
type SchemaSource interface {
	GetAttributes(ctx context.Context, resourceType string) ([]types.AttributeMetadata, error)
	GetStatusOptions(ctx context.Context, resourceType, attributeSlug string) ([]types.StatusOption, error)
}

// defaultCacheSize bounds each cache; a workspace rarely has more than a
// handful of objects, the bound only guards against unbounded custom
// object churn.
const defaultCacheSize = 128

// SchemaCache is a read-through cache over a SchemaSource, keyed by
// resource type (attributes) and resource type plus attribute slug
// (option sets). Entries live for the process lifetime; Invalidate and
// Purge exist for explicit refresh and for tests. Concurrent reads are
// safe; racing fills compute the same value, so last writer wins.
type SchemaCache struct {
	source     SchemaSource
	attributes *lru.Cache[string, map[string]types.AttributeMetadata]
	options    *lru.Cache[string, []types.StatusOption]
}

// NewSchemaCache creates a cache over the given source.
func NewSchemaCache(source SchemaSource) (*SchemaCache, error) {
	attrs, err := lru.New[string, map[string]types.AttributeMetadata](defaultCacheSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create attribute cache: %w", err)
	}
	opts, err := lru.New[string, []types.StatusOption](defaultCacheSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create option cache: %w", err)
	}
	return &SchemaCache{source: source, attributes: attrs, options: opts}, nil
}

// Attributes returns the attribute metadata for a resource type, keyed
// by api_slug, fetching it on first use.
func (c *SchemaCache) Attributes(ctx context.Context, resourceType string) (map[string]types.AttributeMetadata, error) {
	if cached, ok := c.attributes.Get(resourceType); ok {
		return cached, nil
	}

	list, err := c.source.GetAttributes(ctx, resourceType)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch attributes for %s: %w", resourceType, err)
	}

	bySlug := make(map[string]types.AttributeMetadata, len(list))
	for _, attr := range list {
		bySlug[attr.APISlug] = attr
	}
	c.attributes.Add(resourceType, bySlug)
	return bySlug, nil
}

// Options returns the option set for a status or select attribute,
// fetching it on first use.
func (c *SchemaCache) Options(ctx context.Context, resourceType, attributeSlug string) ([]types.StatusOption, error) {
	key := resourceType + "/" + attributeSlug
	if cached, ok := c.options.Get(key); ok {
		return cached, nil
	}

	opts, err := c.source.GetStatusOptions(ctx, resourceType, attributeSlug)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch options for %s.%s: %w", resourceType, attributeSlug, err)
	}
	c.options.Add(key, opts)
	return opts, nil
}

// Invalidate drops cached schema for one resource type, including every
// option set under it.
func (c *SchemaCache) Invalidate(resourceType string) {
	c.attributes.Remove(resourceType)
	for _, key := range c.options.Keys() {
		if len(key) > len(resourceType) && key[:len(resourceType)+1] == resourceType+"/" {
			c.options.Remove(key)
		}
	}
}

// Purge drops everything. Test hook.
func (c *SchemaCache) Purge() {
	c.attributes.Purge()
	c.options.Purge()
}
