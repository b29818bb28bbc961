package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/attio-labs/attio-mcp/internal/attio"
	"github.com/attio-labs/attio-mcp/internal/audit"
	"github.com/attio-labs/attio-mcp/internal/normalize"
)

func unmarshalArgs(args json.RawMessage, v interface{}) error {
	if len(args) == 0 {
		return fmt.Errorf("missing arguments")
	}
	if err := json.Unmarshal(args, v); err != nil {
		return fmt.Errorf("invalid arguments: %w", err)
	}
	return nil
}

func (s *Server) executeSearchRecords(ctx context.Context, sess *session, args json.RawMessage) (interface{}, error) {
	var params struct {
		ResourceType string          `json:"resource_type"`
		Query        string          `json:"query"`
		Filters      json.RawMessage `json:"filters"`
		Limit        int             `json:"limit"`
		Offset       int             `json:"offset"`
	}
	if err := unmarshalArgs(args, &params); err != nil {
		return nil, err
	}

	resourceType, err := normalize.CanonicalizeResourceType(params.ResourceType, sess.client)
	if err != nil {
		return nil, err
	}

	var filter map[string]interface{}
	if len(params.Filters) > 0 && string(params.Filters) != "null" {
		request, err := normalize.ParseFilterRequest(params.Filters)
		if err != nil {
			return nil, err
		}
		compiled, err := normalize.ValidateAndCompileFilters(request)
		if err != nil {
			return nil, err
		}
		if compiled.MatchNothing {
			return map[string]interface{}{
				"records":       []interface{}{},
				"count":         0,
				"resource_type": resourceType,
				"note":          "an empty filter list matches no records; omit filters to list all records",
			}, nil
		}
		filter = compiled.Filter
	}

	if params.Query != "" {
		nameSlug := s.resolver.Resolve(resourceType, "name")
		queryFilter := map[string]interface{}{
			nameSlug: map[string]interface{}{"$contains": params.Query},
		}
		if filter == nil {
			filter = queryFilter
		} else {
			filter = map[string]interface{}{
				"$and": []interface{}{filter, queryFilter},
			}
		}
	}

	records, err := sess.client.QueryRecords(ctx, resourceType, filter, params.Limit, params.Offset)
	if err != nil {
		return nil, err
	}

	s.logger.LogRecordOperation(audit.EventRecordSearch, resourceType, "", s.currentProfile, true, map[string]interface{}{
		"count":    len(records),
		"filtered": filter != nil,
	})

	return map[string]interface{}{
		"records":       records,
		"count":         len(records),
		"resource_type": resourceType,
	}, nil
}

func (s *Server) executeGetRecord(ctx context.Context, sess *session, args json.RawMessage) (interface{}, error) {
	var params struct {
		ResourceType string   `json:"resource_type"`
		RecordID     string   `json:"record_id"`
		Fields       []string `json:"fields"`
	}
	if err := unmarshalArgs(args, &params); err != nil {
		return nil, err
	}
	if params.RecordID == "" {
		return nil, fmt.Errorf("record_id is required")
	}

	resourceType, err := normalize.CanonicalizeResourceType(params.ResourceType, sess.client)
	if err != nil {
		return nil, err
	}

	record, err := sess.client.GetRecord(ctx, resourceType, params.RecordID)
	if err != nil {
		return nil, err
	}

	// Project onto the requested fields, resolving aliases first.
	if len(params.Fields) > 0 {
		projected := make(map[string]interface{}, len(params.Fields))
		for _, field := range params.Fields {
			slug := s.resolver.Resolve(resourceType, field)
			if value, ok := record.Values[slug]; ok {
				projected[slug] = value
			}
		}
		record = &attio.Record{ID: record.ID, Values: projected}
	}

	s.logger.LogRecordOperation(audit.EventRecordGet, resourceType, params.RecordID, s.currentProfile, true, nil)

	return map[string]interface{}{
		"record":        record,
		"resource_type": resourceType,
	}, nil
}

func (s *Server) executeGetAttributes(ctx context.Context, sess *session, args json.RawMessage) (interface{}, error) {
	var params struct {
		ResourceType string `json:"resource_type"`
	}
	if err := unmarshalArgs(args, &params); err != nil {
		return nil, err
	}

	resourceType, err := normalize.CanonicalizeResourceType(params.ResourceType, sess.client)
	if err != nil {
		return nil, err
	}

	attrs, err := sess.schema.Attributes(ctx, resourceType)
	if err != nil {
		return nil, err
	}

	slugs := make([]string, 0, len(attrs))
	for slug := range attrs {
		slugs = append(slugs, slug)
	}
	sort.Strings(slugs)

	list := make([]map[string]interface{}, 0, len(slugs))
	for _, slug := range slugs {
		meta := attrs[slug]
		list = append(list, map[string]interface{}{
			"api_slug":    meta.APISlug,
			"title":       meta.Title,
			"type":        meta.Type,
			"is_array":    meta.IsArray,
			"is_required": meta.IsRequired,
			"is_unique":   meta.IsUnique,
			"is_writable": meta.IsWritable && !normalize.IsReadOnlyField(resourceType, slug),
		})
	}

	return map[string]interface{}{
		"resource_type":        resourceType,
		"attributes":           list,
		"supported_conditions": normalize.SupportedConditions(),
	}, nil
}

func (s *Server) executeCreateRecord(ctx context.Context, sess *session, args json.RawMessage) (interface{}, error) {
	var params struct {
		ResourceType string                 `json:"resource_type"`
		Values       map[string]interface{} `json:"values"`
	}
	if err := unmarshalArgs(args, &params); err != nil {
		return nil, err
	}
	if len(params.Values) == 0 {
		return nil, fmt.Errorf("values is required")
	}

	resourceType, err := normalize.CanonicalizeResourceType(params.ResourceType, sess.client)
	if err != nil {
		return nil, err
	}

	values, warnings, err := s.normalizeRecord(ctx, sess, resourceType, params.Values, normalize.OpCreate)
	if err != nil {
		return nil, err
	}

	record, err := sess.client.CreateRecord(ctx, resourceType, values)
	if err != nil {
		return nil, err
	}

	s.logger.LogRecordOperation(audit.EventRecordCreate, resourceType, record.StringID(), s.currentProfile, true, nil)

	result := map[string]interface{}{
		"record":        record,
		"resource_type": resourceType,
	}
	if len(warnings) > 0 {
		result["warnings"] = warnings
	}
	return result, nil
}

func (s *Server) executeUpdateRecord(ctx context.Context, sess *session, args json.RawMessage) (interface{}, error) {
	var params struct {
		ResourceType string                 `json:"resource_type"`
		RecordID     string                 `json:"record_id"`
		Values       map[string]interface{} `json:"values"`
		Mode         string                 `json:"mode"`
	}
	if err := unmarshalArgs(args, &params); err != nil {
		return nil, err
	}
	if params.RecordID == "" {
		return nil, fmt.Errorf("record_id is required")
	}
	if len(params.Values) == 0 {
		return nil, fmt.Errorf("values is required")
	}

	var mode attio.UpdateMode
	switch params.Mode {
	case "", "overwrite":
		mode = attio.UpdateOverwrite
	case "append":
		mode = attio.UpdateAppend
	default:
		return nil, fmt.Errorf("invalid mode %q: must be overwrite or append", params.Mode)
	}

	resourceType, err := normalize.CanonicalizeResourceType(params.ResourceType, sess.client)
	if err != nil {
		return nil, err
	}

	values, warnings, err := s.normalizeRecord(ctx, sess, resourceType, params.Values, normalize.OpUpdate)
	if err != nil {
		return nil, err
	}

	record, err := sess.client.UpdateRecord(ctx, resourceType, params.RecordID, values, mode)
	if err != nil {
		return nil, err
	}

	s.logger.LogRecordOperation(audit.EventRecordUpdate, resourceType, params.RecordID, s.currentProfile, true, map[string]interface{}{
		"mode": params.Mode,
	})

	result := map[string]interface{}{
		"record":        record,
		"resource_type": resourceType,
	}
	if len(warnings) > 0 {
		result["warnings"] = warnings
	}
	return result, nil
}

func (s *Server) executeDeleteRecord(ctx context.Context, sess *session, args json.RawMessage) (interface{}, error) {
	var params struct {
		ResourceType string `json:"resource_type"`
		RecordID     string `json:"record_id"`
	}
	if err := unmarshalArgs(args, &params); err != nil {
		return nil, err
	}
	if params.RecordID == "" {
		return nil, fmt.Errorf("record_id is required")
	}

	resourceType, err := normalize.CanonicalizeResourceType(params.ResourceType, sess.client)
	if err != nil {
		return nil, err
	}

	if err := sess.client.DeleteRecord(ctx, resourceType, params.RecordID); err != nil {
		return nil, err
	}

	s.logger.LogRecordOperation(audit.EventRecordDelete, resourceType, params.RecordID, s.currentProfile, true, nil)

	return map[string]interface{}{
		"deleted":       true,
		"record_id":     params.RecordID,
		"resource_type": resourceType,
	}, nil
}

// normalizeRecord runs the full write pipeline: alias resolution and
// collision detection, then value transformation against the cached
// schema, then a warning for any slug the schema does not know.
func (s *Server) normalizeRecord(ctx context.Context, sess *session, resourceType string, values map[string]interface{}, op normalize.Operation) (map[string]interface{}, []string, error) {
	mapped, err := s.resolver.MapFields(resourceType, values, op)
	if err != nil {
		return nil, nil, err
	}
	warnings := mapped.Warnings

	transformed, err := sess.transformer.TransformValues(ctx, resourceType, mapped.Mapped)
	if err != nil {
		return nil, nil, err
	}

	if attrs, err := sess.schema.Attributes(ctx, resourceType); err == nil {
		slugs := make([]string, 0, len(transformed))
		for slug := range transformed {
			slugs = append(slugs, slug)
		}
		sort.Strings(slugs)
		for _, slug := range slugs {
			if _, known := attrs[slug]; known {
				continue
			}
			warning := fmt.Sprintf("attribute %q is not in the %s schema", slug, resourceType)
			if suggestions := s.resolver.SuggestField(resourceType, slug, 1); len(suggestions) > 0 {
				warning += fmt.Sprintf("; did you mean %q?", suggestions[0])
			}
			warnings = append(warnings, warning)
		}
	}

	if len(warnings) > 0 {
		s.logger.LogFieldWarnings(resourceType, warnings)
	}
	return transformed, warnings, nil
}
