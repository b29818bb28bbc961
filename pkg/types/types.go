package types

import "time"

// Profile represents a stored Attio workspace configuration
type Profile struct {
	Name      string            `json:"name"`
	Config    map[string]string `json:"config"` // Encrypted Attio config (api_key, workspace)
	CreatedAt time.Time         `json:"created_at"`
	UpdatedAt time.Time         `json:"updated_at"`
}

// ProfileMetadata represents metadata about a profile
type ProfileMetadata struct {
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// FilterAttribute identifies the attribute a filter leaf applies to
type FilterAttribute struct {
	Slug string `json:"slug"`
}

// Filter is a node in a declarative filter tree. A leaf carries an
// attribute, condition and value; a composite carries child filters
// combined with AND semantics by default, or OR when MatchAny is set.
type Filter struct {
	Attribute *FilterAttribute `json:"attribute,omitempty"`
	Condition string           `json:"condition,omitempty"`
	Value     interface{}      `json:"value,omitempty"`

	Filters  []Filter `json:"filters,omitempty"`
	MatchAny bool     `json:"matchAny,omitempty"`
}

// IsComposite reports whether the node carries child filters rather than
// its own attribute/condition.
func (f Filter) IsComposite() bool {
	return len(f.Filters) > 0
}

// FilterRequest is the top-level filter payload accepted by search tools.
type FilterRequest struct {
	Filters  []Filter `json:"filters"`
	MatchAny bool     `json:"matchAny,omitempty"`
}

// AttributeMetadata describes a single CRM attribute as reported by the
// schema endpoint.
type AttributeMetadata struct {
	APISlug    string `json:"api_slug"`
	Title      string `json:"title"`
	Type       string `json:"type"` // text, number, checkbox, status, select, location, record-reference, ...
	IsArray    bool   `json:"is_array"`
	IsRequired bool   `json:"is_required"`
	IsUnique   bool   `json:"is_unique"`
	IsWritable bool   `json:"is_writable"`
}

// StatusOption is one entry of an attribute's option set.
type StatusOption struct {
	ID         string `json:"id"`
	Title      string `json:"title"`
	IsArchived bool   `json:"is_archived"`
}

// ObjectInfo describes one object (standard or custom) in the workspace.
type ObjectInfo struct {
	ID       string `json:"id"`
	APISlug  string `json:"api_slug"`
	Singular string `json:"singular_noun"`
	Plural   string `json:"plural_noun"`
}

// SearchRecordsParams parameters for the search_records tool
type SearchRecordsParams struct {
	ResourceType string         `json:"resource_type"`
	Query        string         `json:"query,omitempty"`
	Filters      *FilterRequest `json:"filters,omitempty"`
	Limit        int            `json:"limit,omitempty"`
	Offset       int            `json:"offset,omitempty"`
}

// GetRecordParams parameters for the get_record tool
type GetRecordParams struct {
	ResourceType string   `json:"resource_type"`
	RecordID     string   `json:"record_id"`
	Fields       []string `json:"fields,omitempty"`
}

// GetAttributesParams parameters for the get_attributes tool
type GetAttributesParams struct {
	ResourceType string `json:"resource_type"`
}

// CreateRecordParams parameters for the create_record tool
type CreateRecordParams struct {
	ResourceType string                 `json:"resource_type"`
	Values       map[string]interface{} `json:"values"`
}

// UpdateRecordParams parameters for the update_record tool
type UpdateRecordParams struct {
	ResourceType string                 `json:"resource_type"`
	RecordID     string                 `json:"record_id"`
	Values       map[string]interface{} `json:"values"`
	Mode         string                 `json:"mode,omitempty"` // overwrite (default) or append
}

// DeleteRecordParams parameters for the delete_record tool
type DeleteRecordParams struct {
	ResourceType string `json:"resource_type"`
	RecordID     string `json:"record_id"`
}

// MCPRequest represents an MCP protocol request
type MCPRequest struct {
	JSONRPC string      `json:"jsonrpc"`
	ID      interface{} `json:"id"`
	Method  string      `json:"method"`
	Params  interface{} `json:"params,omitempty"`
}

// MCPResponse represents an MCP protocol response
type MCPResponse struct {
	JSONRPC string      `json:"jsonrpc"`
	ID      interface{} `json:"id"`
	Result  interface{} `json:"result,omitempty"`
	Error   *MCPError   `json:"error,omitempty"`
}

// MCPError represents an MCP protocol error
type MCPError struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// MCPTool represents an MCP tool definition
type MCPTool struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	InputSchema map[string]interface{} `json:"inputSchema"`
}
