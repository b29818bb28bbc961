package normalize

import (
	"context"
	"sort"
	"strconv"
	"strings"

	"github.com/attio-labs/attio-mcp/pkg/types"
)

// Transformer converts caller-supplied values into the shapes the record
// API's write endpoints require, dispatching on attribute metadata.
type Transformer struct {
	schema *SchemaCache
}

// NewTransformer creates a transformer over the given schema cache.
func NewTransformer(schema *SchemaCache) *Transformer {
	return &Transformer{schema: schema}
}

// TransformValues transforms every value of record according to its
// attribute's type. Keys must already be canonical slugs (run MapFields
// first). Unknown attributes pass through untouched. The first coercion
// failure aborts the whole transformation; there are no partial results.
func (t *Transformer) TransformValues(ctx context.Context, resourceType string, record map[string]interface{}) (map[string]interface{}, error) {
	metadata, err := t.schema.Attributes(ctx, resourceType)
	if err != nil {
		return nil, err
	}

	keys := make([]string, 0, len(record))
	for k := range record {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make(map[string]interface{}, len(record))
	for _, slug := range keys {
		value := record[slug]
		meta, known := metadata[slug]
		if !known || value == nil {
			out[slug] = value
			continue
		}

		transformed, err := t.transformValue(ctx, resourceType, slug, meta, value)
		if err != nil {
			return nil, err
		}
		out[slug] = transformed
	}
	return out, nil
}

func (t *Transformer) transformValue(ctx context.Context, resourceType, slug string, meta types.AttributeMetadata, value interface{}) (interface{}, error) {
	switch meta.Type {
	case "number", "currency", "rating":
		return coerceNumber(slug, value)
	case "checkbox":
		return coerceBool(slug, value)
	case "status":
		return t.resolveStatus(ctx, resourceType, slug, value)
	case "select", "multi_select":
		resolved, err := t.resolveSelect(ctx, resourceType, slug, meta, value)
		if err != nil {
			return nil, err
		}
		if meta.IsArray {
			return wrapArray(resolved), nil
		}
		return resolved, nil
	case "location":
		return normalizeLocation(slug, value)
	default:
		if meta.IsArray {
			return wrapArray(value), nil
		}
		return value, nil
	}
}

// coerceNumber accepts native numbers and numeric strings.
func coerceNumber(slug string, value interface{}) (interface{}, error) {
	switch v := value.(type) {
	case float64, float32, int, int32, int64:
		return value, nil
	case string:
		n, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return nil, &InvalidFieldValueError{Field: slug, Value: value, Type: "number"}
		}
		return n, nil
	default:
		return nil, &InvalidFieldValueError{Field: slug, Value: value, Type: "number"}
	}
}

// Permissive string forms accepted for checkbox fields. "done" and
// "complete" show up when callers treat a task's completion flag as a
// status.
var (
	truthyStrings = map[string]struct{}{
		"true": {}, "yes": {}, "y": {}, "1": {},
		"done": {}, "complete": {}, "completed": {},
	}
	falsyStrings = map[string]struct{}{
		"false": {}, "no": {}, "n": {}, "0": {},
		"open": {}, "incomplete": {},
	}
)

func coerceBool(slug string, value interface{}) (interface{}, error) {
	switch v := value.(type) {
	case bool:
		return v, nil
	case string:
		lower := strings.ToLower(strings.TrimSpace(v))
		if _, ok := truthyStrings[lower]; ok {
			return true, nil
		}
		if _, ok := falsyStrings[lower]; ok {
			return false, nil
		}
		return nil, &InvalidFieldValueError{Field: slug, Value: value, Type: "boolean"}
	case float64:
		return v != 0, nil
	default:
		return nil, &InvalidFieldValueError{Field: slug, Value: value, Type: "boolean"}
	}
}

// resolveStatus resolves a human status title to its id. A value that is
// already shaped {status_id: ...} passes through byte-for-byte: stage and
// status identifiers are UUIDs and must never be reinterpreted as
// titles, even if one happens to equal a known title.
func (t *Transformer) resolveStatus(ctx context.Context, resourceType, slug string, value interface{}) (interface{}, error) {
	if m, ok := value.(map[string]interface{}); ok {
		if _, has := m["status_id"]; has {
			return value, nil
		}
	}

	title, ok := value.(string)
	if !ok {
		return nil, &InvalidFieldValueError{Field: slug, Value: value, Type: "status"}
	}

	options, err := t.schema.Options(ctx, resourceType, slug)
	if err != nil {
		return nil, err
	}

	// Case-sensitive, non-archived options first.
	for _, opt := range options {
		if !opt.IsArchived && opt.Title == title {
			return map[string]interface{}{"status_id": opt.ID}, nil
		}
	}
	for _, opt := range options {
		if opt.IsArchived && opt.Title == title {
			return map[string]interface{}{"status_id": opt.ID}, nil
		}
	}

	titles := make([]string, 0, len(options))
	for _, opt := range options {
		if !opt.IsArchived {
			titles = append(titles, opt.Title)
		}
	}
	return nil, &InvalidStatusValueError{
		Field:       slug,
		Value:       title,
		ValidTitles: titles,
		Suggestions: FindSimilarOptions(title, titles, 3),
	}
}

// resolveSelect maps select titles to option ids where the option set
// knows them; unknown strings pass through so the API can report its own
// validation (select attributes accept free-form creation in some
// workspaces). A failed option-set fetch aborts the transformation
// rather than silently writing an unresolved title.
func (t *Transformer) resolveSelect(ctx context.Context, resourceType, slug string, meta types.AttributeMetadata, value interface{}) (interface{}, error) {
	resolveOne := func(v interface{}) (interface{}, error) {
		title, ok := v.(string)
		if !ok {
			return v, nil
		}
		options, err := t.schema.Options(ctx, resourceType, slug)
		if err != nil {
			return nil, err
		}
		for _, opt := range options {
			if !opt.IsArchived && opt.Title == title {
				return map[string]interface{}{"option": opt.ID}, nil
			}
		}
		return v, nil
	}

	if list, ok := value.([]interface{}); ok {
		out := make([]interface{}, len(list))
		for i, v := range list {
			resolved, err := resolveOne(v)
			if err != nil {
				return nil, err
			}
			out[i] = resolved
		}
		return out, nil
	}
	return resolveOne(value)
}

// wrapArray wraps a scalar into a single-element array; arrays pass
// through unchanged.
func wrapArray(value interface{}) interface{} {
	if _, ok := value.([]interface{}); ok {
		return value
	}
	return []interface{}{value}
}

// locationKeys is the fixed shape the write API requires for location
// values. Every key is always present; unsupplied ones are explicit
// nulls.
var locationKeys = []string{
	"line_1", "line_2", "line_3", "line_4",
	"locality", "region", "postcode", "country_code",
	"latitude", "longitude",
}

// locationAliases folds caller naming conventions onto the canonical
// keys. A canonical key supplied alongside its alias always wins.
var locationAliases = map[string]string{
	"street":      "line_1",
	"address":     "line_1",
	"city":        "locality",
	"state":       "region",
	"province":    "region",
	"zip":         "postcode",
	"zip_code":    "postcode",
	"postal_code": "postcode",
	"country":     "country_code",
	"lat":         "latitude",
	"lng":         "longitude",
	"lon":         "longitude",
}

// normalizeLocation folds a loosely keyed address object into the fixed
// ten-key shape. The attribute_type hint some readers echo back is
// read-only metadata and is dropped.
func normalizeLocation(slug string, value interface{}) (interface{}, error) {
	input, ok := value.(map[string]interface{})
	if !ok {
		return nil, &InvalidFieldValueError{Field: slug, Value: value, Type: "location"}
	}

	out := make(map[string]interface{}, len(locationKeys))
	for _, key := range locationKeys {
		out[key] = nil
	}

	// Aliases first so canonical keys overwrite them afterwards. Sorted
	// iteration keeps the winner deterministic when two aliases of the
	// same canonical key appear together; the lexicographically first
	// raw key wins.
	aliased := make([]string, 0, len(input))
	for key := range input {
		if _, ok := locationAliases[strings.ToLower(key)]; ok {
			aliased = append(aliased, key)
		}
	}
	sort.Strings(aliased)
	for _, key := range aliased {
		canonical := locationAliases[strings.ToLower(key)]
		if out[canonical] == nil {
			out[canonical] = input[key]
		}
	}
	for _, key := range locationKeys {
		if v, ok := input[key]; ok {
			out[key] = v
		}
	}
	return out, nil
}
