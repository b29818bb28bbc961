package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/attio-labs/attio-mcp/internal/audit"
	"github.com/attio-labs/attio-mcp/internal/normalize"
	"github.com/attio-labs/attio-mcp/pkg/types"
)

func resourceTypeSchema() map[string]interface{} {
	return map[string]interface{}{
		"type": "string",
		"description": fmt.Sprintf("Resource type: %s, or a custom object slug",
			strings.Join(normalize.StandardResourceTypes, ", ")),
	}
}

// getAvailableTools returns the list of available MCP tools
func (s *Server) getAvailableTools() []types.MCPTool {
	return []types.MCPTool{
		{
			Name:        "search_records",
			Description: "Search records of a resource type with optional filters",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"resource_type": resourceTypeSchema(),
					"query": map[string]interface{}{
						"type":        "string",
						"description": "Free-text search on the record name",
					},
					"filters": map[string]interface{}{
						"type":        "object",
						"description": "Filter request: {filters: [{attribute: {slug}, condition, value}], matchAny}",
						"properties": map[string]interface{}{
							"filters": map[string]interface{}{
								"type":  "array",
								"items": map[string]interface{}{"type": "object"},
							},
							"matchAny": map[string]interface{}{
								"type":        "boolean",
								"description": "Combine filters with OR instead of AND",
							},
						},
					},
					"limit": map[string]interface{}{
						"type":        "integer",
						"description": "Maximum records to return (default: 25)",
					},
					"offset": map[string]interface{}{
						"type":        "integer",
						"description": "Pagination offset",
					},
				},
				"required": []string{"resource_type"},
			},
		},
		{
			Name:        "get_record",
			Description: "Get a single record by ID",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"resource_type": resourceTypeSchema(),
					"record_id": map[string]interface{}{
						"type":        "string",
						"description": "Record ID",
					},
					"fields": map[string]interface{}{
						"type":        "array",
						"items":       map[string]interface{}{"type": "string"},
						"description": "Fields to return (default: all). Aliases are resolved.",
					},
				},
				"required": []string{"resource_type", "record_id"},
			},
		},
		{
			Name:        "get_attributes",
			Description: "List the attributes of a resource type with their types and writability",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"resource_type": resourceTypeSchema(),
				},
				"required": []string{"resource_type"},
			},
		},
		{
			Name:        "create_record",
			Description: "Create a record. Field aliases are resolved and values coerced to Attio's formats.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"resource_type": resourceTypeSchema(),
					"values": map[string]interface{}{
						"type":        "object",
						"description": "Field values keyed by attribute slug or alias",
					},
				},
				"required": []string{"resource_type", "values"},
			},
		},
		{
			Name:        "update_record",
			Description: "Update a record. Field aliases are resolved and values coerced to Attio's formats.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"resource_type": resourceTypeSchema(),
					"record_id": map[string]interface{}{
						"type":        "string",
						"description": "Record ID to update",
					},
					"values": map[string]interface{}{
						"type":        "object",
						"description": "Field values keyed by attribute slug or alias",
					},
					"mode": map[string]interface{}{
						"type":        "string",
						"enum":        []string{"overwrite", "append"},
						"description": "overwrite replaces multiselect values, append adds to them (default: overwrite)",
					},
				},
				"required": []string{"resource_type", "record_id", "values"},
			},
		},
		{
			Name:        "delete_record",
			Description: "Delete a record by ID",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"resource_type": resourceTypeSchema(),
					"record_id": map[string]interface{}{
						"type":        "string",
						"description": "Record ID to delete",
					},
				},
				"required": []string{"resource_type", "record_id"},
			},
		},
		{
			Name:        "health_check",
			Description: "Check the health status of the MCP server",
			InputSchema: map[string]interface{}{
				"type":       "object",
				"properties": map[string]interface{}{},
			},
		},
	}
}

// executeTool executes a tool with the given arguments
func (s *Server) executeTool(ctx context.Context, toolName string, args json.RawMessage) (interface{}, error) {
	if toolName == "health_check" {
		return s.handleHealthCheck(ctx)
	}

	sess, err := s.currentSession()
	if err != nil {
		return nil, fmt.Errorf("no active session: %w", err)
	}

	s.logger.LogSystem(audit.EventAccess, "Tool called", map[string]interface{}{
		"tool":    toolName,
		"profile": s.currentProfile,
	})

	switch toolName {
	case "search_records":
		return s.executeSearchRecords(ctx, sess, args)
	case "get_record":
		return s.executeGetRecord(ctx, sess, args)
	case "get_attributes":
		return s.executeGetAttributes(ctx, sess, args)
	case "create_record":
		return s.executeCreateRecord(ctx, sess, args)
	case "update_record":
		return s.executeUpdateRecord(ctx, sess, args)
	case "delete_record":
		return s.executeDeleteRecord(ctx, sess, args)
	default:
		return nil, fmt.Errorf("unknown tool: %s", toolName)
	}
}
