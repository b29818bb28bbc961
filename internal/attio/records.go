package attio

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/attio-labs/attio-mcp/internal/audit"
)

// UpdateMode selects how multi-value attributes behave on update.
type UpdateMode string

const (
	// UpdateOverwrite replaces existing values (PUT semantics).
	UpdateOverwrite UpdateMode = "overwrite"
	// UpdateAppend adds to existing values (PATCH semantics).
	UpdateAppend UpdateMode = "append"
)

// Record is one CRM record as returned by the records endpoints.
type Record struct {
	ID     map[string]interface{} `json:"id"`
	Values map[string]interface{} `json:"values"`
}

// StringID returns the record's primary id, whichever id key the
// endpoint uses.
func (r *Record) StringID() string {
	if r == nil {
		return ""
	}
	for _, key := range []string{"record_id", "task_id", "list_id"} {
		if id, ok := r.ID[key].(string); ok {
			return id
		}
	}
	return ""
}

// recordsPath maps a resource type to its records URL prefix.
func recordsPath(resourceType string) string {
	switch resourceType {
	case "tasks":
		return "/tasks"
	case "lists":
		return "/lists"
	default:
		return "/objects/" + resourceType + "/records"
	}
}

// queryable reports whether the resource type supports server-side
// filtered queries. Tasks and lists are list-only endpoints.
func queryable(resourceType string) bool {
	return resourceType != "tasks" && resourceType != "lists"
}

// QueryRecords runs a filtered query. filter is the compiled operator
// object; nil means no filter. Tasks and lists do not support
// server-side filters, only pagination.
func (c *Client) QueryRecords(ctx context.Context, resourceType string, filter map[string]interface{}, limit, offset int) ([]Record, error) {
	if limit <= 0 {
		limit = 25
	}

	if !queryable(resourceType) {
		if len(filter) > 0 {
			return nil, fmt.Errorf("resource type %q does not support filtered queries", resourceType)
		}
		query := url.Values{}
		query.Set("limit", fmt.Sprintf("%d", limit))
		query.Set("offset", fmt.Sprintf("%d", offset))
		var records []Record
		path := recordsPath(resourceType) + "?" + query.Encode()
		if err := c.do(ctx, http.MethodGet, path, nil, &records); err != nil {
			return nil, fmt.Errorf("failed to list %s: %w", resourceType, err)
		}
		return records, nil
	}

	body := map[string]interface{}{
		"limit":  limit,
		"offset": offset,
	}
	if len(filter) > 0 {
		body["filter"] = filter
	}

	var records []Record
	if err := c.do(ctx, http.MethodPost, recordsPath(resourceType)+"/query", body, &records); err != nil {
		return nil, fmt.Errorf("failed to query %s: %w", resourceType, err)
	}
	return records, nil
}

// GetRecord fetches one record by id.
func (c *Client) GetRecord(ctx context.Context, resourceType, recordID string) (*Record, error) {
	var record Record
	path := recordsPath(resourceType) + "/" + url.PathEscape(recordID)
	if err := c.do(ctx, http.MethodGet, path, nil, &record); err != nil {
		return nil, fmt.Errorf("failed to get %s record %s: %w", resourceType, recordID, err)
	}
	return &record, nil
}

// CreateRecord creates a record from already-normalized values.
func (c *Client) CreateRecord(ctx context.Context, resourceType string, values map[string]interface{}) (*Record, error) {
	body := map[string]interface{}{
		"data": map[string]interface{}{"values": values},
	}
	if resourceType == "tasks" {
		body = map[string]interface{}{"data": values}
	}

	var record Record
	if err := c.do(ctx, http.MethodPost, recordsPath(resourceType), body, &record); err != nil {
		return nil, fmt.Errorf("failed to create %s record: %w", resourceType, err)
	}

	if c.logger != nil {
		c.logger.LogRecordOperation(audit.EventRecordCreate, resourceType, record.StringID(), "", true, nil)
	}
	return &record, nil
}

// UpdateRecord updates a record from already-normalized values. Mode
// selects overwrite (PUT) or append (PATCH) semantics for multi-value
// attributes.
func (c *Client) UpdateRecord(ctx context.Context, resourceType, recordID string, values map[string]interface{}, mode UpdateMode) (*Record, error) {
	method := http.MethodPut
	if mode == UpdateAppend {
		method = http.MethodPatch
	}

	body := map[string]interface{}{
		"data": map[string]interface{}{"values": values},
	}
	if resourceType == "tasks" {
		body = map[string]interface{}{"data": values}
	}

	var record Record
	path := recordsPath(resourceType) + "/" + url.PathEscape(recordID)
	if err := c.do(ctx, method, path, body, &record); err != nil {
		return nil, fmt.Errorf("failed to update %s record %s: %w", resourceType, recordID, err)
	}

	if c.logger != nil {
		c.logger.LogRecordOperation(audit.EventRecordUpdate, resourceType, recordID, "", true, nil)
	}
	return &record, nil
}

// DeleteRecord deletes a record by id.
func (c *Client) DeleteRecord(ctx context.Context, resourceType, recordID string) error {
	path := recordsPath(resourceType) + "/" + url.PathEscape(recordID)
	if err := c.do(ctx, http.MethodDelete, path, nil, nil); err != nil {
		return fmt.Errorf("failed to delete %s record %s: %w", resourceType, recordID, err)
	}

	if c.logger != nil {
		c.logger.LogRecordOperation(audit.EventRecordDelete, resourceType, recordID, "", true, nil)
	}
	return nil
}
