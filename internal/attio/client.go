// Package attio is a thin HTTP client for the Attio v2 API. It covers
// the surfaces the MCP tools need: object discovery, attribute schemas,
// option sets, and record CRUD. It performs no retries; transient
// failures surface to the caller as APIErrors.
package attio

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/attio-labs/attio-mcp/internal/audit"
	"github.com/attio-labs/attio-mcp/pkg/types"
)

// DefaultBaseURL is the production Attio API endpoint.
const DefaultBaseURL = "https://api.attio.com/v2"

// APIError is a non-2xx response from the Attio API.
type APIError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("attio API error %d (%s): %s", e.StatusCode, e.Code, e.Message)
	}
	return fmt.Sprintf("attio API error %d: %s", e.StatusCode, e.Message)
}

// Client talks to the Attio API for one workspace.
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	logger     *audit.Logger

	mu      sync.RWMutex
	objects []types.ObjectInfo
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL overrides the API endpoint. Used by tests.
func WithBaseURL(url string) Option {
	return func(c *Client) { c.baseURL = strings.TrimRight(url, "/") }
}

// WithHTTPClient overrides the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithLogger attaches an audit logger.
func WithLogger(logger *audit.Logger) Option {
	return func(c *Client) { c.logger = logger }
}

// NewClient creates a client authenticated with the given API key.
func NewClient(apiKey string, opts ...Option) (*Client, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("api key cannot be empty")
	}
	c := &Client{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		baseURL:    DefaultBaseURL,
		apiKey:     apiKey,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// dataEnvelope is the {"data": ...} wrapper every Attio response uses.
type dataEnvelope struct {
	Data json.RawMessage `json:"data"`
}

// do performs one API call. A nil out discards the response body.
func (c *Client) do(ctx context.Context, method, path string, body, out interface{}) error {
	var reqBody io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request body: %w", err)
		}
		reqBody = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request to %s failed: %w", path, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := &APIError{StatusCode: resp.StatusCode, Message: string(respBody)}
		var parsed struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		}
		if json.Unmarshal(respBody, &parsed) == nil && parsed.Message != "" {
			apiErr.Code = parsed.Code
			apiErr.Message = parsed.Message
		}
		if c.logger != nil {
			c.logger.LogError("attio", apiErr, map[string]interface{}{
				"method": method,
				"path":   path,
			})
		}
		return apiErr
	}

	if out == nil {
		return nil
	}
	var envelope dataEnvelope
	if err := json.Unmarshal(respBody, &envelope); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	if err := json.Unmarshal(envelope.Data, out); err != nil {
		return fmt.Errorf("failed to decode response data: %w", err)
	}
	return nil
}

// TestConnection verifies the API key by identifying the caller.
func (c *Client) TestConnection(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "/self", nil, nil)
}

type wireObject struct {
	ID       map[string]string `json:"id"`
	APISlug  string            `json:"api_slug"`
	Singular string            `json:"singular_noun"`
	Plural   string            `json:"plural_noun"`
}

// ListObjects returns every object in the workspace, standard and
// custom. The result is cached; RefreshObjects forces a reload.
func (c *Client) ListObjects(ctx context.Context) ([]types.ObjectInfo, error) {
	c.mu.RLock()
	cached := c.objects
	c.mu.RUnlock()
	if cached != nil {
		return cached, nil
	}
	return c.refreshObjects(ctx)
}

// RefreshObjects reloads the object registry from the API.
func (c *Client) RefreshObjects(ctx context.Context) error {
	_, err := c.refreshObjects(ctx)
	return err
}

func (c *Client) refreshObjects(ctx context.Context) ([]types.ObjectInfo, error) {
	var wire []wireObject
	if err := c.do(ctx, http.MethodGet, "/objects", nil, &wire); err != nil {
		return nil, fmt.Errorf("failed to list objects: %w", err)
	}

	objects := make([]types.ObjectInfo, 0, len(wire))
	for _, o := range wire {
		objects = append(objects, types.ObjectInfo{
			ID:       o.ID["object_id"],
			APISlug:  o.APISlug,
			Singular: o.Singular,
			Plural:   o.Plural,
		})
	}

	c.mu.Lock()
	c.objects = objects
	c.mu.Unlock()
	return objects, nil
}

// CustomObjectSlugs returns the cached object slugs. It satisfies the
// canonicalizer's registry interface; call ListObjects or RefreshObjects
// first to populate it.
func (c *Client) CustomObjectSlugs() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	slugs := make([]string, 0, len(c.objects))
	for _, o := range c.objects {
		slugs = append(slugs, o.APISlug)
	}
	return slugs
}

type wireAttribute struct {
	APISlug       string `json:"api_slug"`
	Title         string `json:"title"`
	Type          string `json:"type"`
	IsMultiselect bool   `json:"is_multiselect"`
	IsRequired    bool   `json:"is_required"`
	IsUnique      bool   `json:"is_unique"`
	IsWritable    bool   `json:"is_writable"`
}

// GetAttributes fetches the attribute schema for a resource type.
func (c *Client) GetAttributes(ctx context.Context, resourceType string) ([]types.AttributeMetadata, error) {
	var wire []wireAttribute
	path := schemaPath(resourceType) + "/attributes"
	if err := c.do(ctx, http.MethodGet, path, nil, &wire); err != nil {
		return nil, fmt.Errorf("failed to fetch attributes for %s: %w", resourceType, err)
	}

	attrs := make([]types.AttributeMetadata, 0, len(wire))
	for _, a := range wire {
		attrs = append(attrs, types.AttributeMetadata{
			APISlug:    a.APISlug,
			Title:      a.Title,
			Type:       a.Type,
			IsArray:    a.IsMultiselect,
			IsRequired: a.IsRequired,
			IsUnique:   a.IsUnique,
			IsWritable: a.IsWritable,
		})
	}
	return attrs, nil
}

type wireOption struct {
	ID         map[string]string `json:"id"`
	Title      string            `json:"title"`
	IsArchived bool              `json:"is_archived"`
}

// GetStatusOptions fetches the option set for a status or select
// attribute. Status attributes live under /statuses, select attributes
// under /options; the status endpoint is tried first.
func (c *Client) GetStatusOptions(ctx context.Context, resourceType, attributeSlug string) ([]types.StatusOption, error) {
	base := fmt.Sprintf("%s/attributes/%s", schemaPath(resourceType), attributeSlug)

	var wire []wireOption
	err := c.do(ctx, http.MethodGet, base+"/statuses", nil, &wire)
	if err != nil {
		var apiErr *APIError
		if !errors.As(err, &apiErr) || apiErr.StatusCode != http.StatusNotFound {
			return nil, err
		}
		if err := c.do(ctx, http.MethodGet, base+"/options", nil, &wire); err != nil {
			return nil, err
		}
	}

	options := make([]types.StatusOption, 0, len(wire))
	for _, o := range wire {
		id := o.ID["status_id"]
		if id == "" {
			id = o.ID["option_id"]
		}
		options = append(options, types.StatusOption{
			ID:         id,
			Title:      o.Title,
			IsArchived: o.IsArchived,
		})
	}
	return options, nil
}

// schemaPath maps a resource type to its schema URL prefix. Tasks and
// lists have first-class endpoints; everything else is an object.
func schemaPath(resourceType string) string {
	switch resourceType {
	case "tasks":
		return "/tasks"
	case "lists":
		return "/lists"
	default:
		return "/objects/" + resourceType
	}
}
