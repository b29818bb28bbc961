package normalize

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/attio-labs/attio-mcp/pkg/types"
)

// conditionOperators maps every supported filter condition to the query
// operator the record API expects.
var conditionOperators = map[string]string{
	"equals":                 "$eq",
	"not_equals":             "$not_eq",
	"contains":               "$contains",
	"not_contains":           "$not_contains",
	"starts_with":            "$starts_with",
	"ends_with":              "$ends_with",
	"greater_than":           "$gt",
	"greater_than_or_equals": "$gte",
	"less_than":              "$lt",
	"less_than_or_equals":    "$lte",
	"in":                     "$in",
	"is_empty":               "$is_empty",
	"is_not_empty":           "$not_empty",
}

// shorthandSlugs lists attributes whose compiled form must be the bare
// value rather than an operator object; the record API rejects the
// operator envelope for them.
var shorthandSlugs = map[string]struct{}{
	"record_id": {},
	"list_id":   {},
}

// SupportedConditions returns the sorted list of valid filter conditions.
func SupportedConditions() []string {
	out := make([]string, 0, len(conditionOperators))
	for c := range conditionOperators {
		out = append(out, c)
	}
	sort.Strings(out)
	return out
}

// CompiledQuery is the record API's literal filter object.
//
// MatchNothing marks a query produced from an empty filter list. An
// empty list deliberately compiles to "match nothing", never to an
// unrestricted match: an accidentally empty filter set must not select
// every record. Callers must check MatchNothing and short-circuit with
// zero results instead of sending Filter upstream.
type CompiledQuery struct {
	Filter       map[string]interface{}
	MatchNothing bool
}

// ParseFilterRequest decodes a raw filters payload, distinguishing the
// two top-level shape defects (missing property, wrong type) before the
// typed decode.
func ParseFilterRequest(raw json.RawMessage) (*types.FilterRequest, error) {
	var envelope map[string]json.RawMessage
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return nil, &FilterValidationError{
			Category: FilterErrorStructure,
			Problems: []FilterProblem{{
				Index:    -1,
				Code:     CodeMissingFiltersProperty,
				Category: FilterErrorStructure,
				Message:  "filters payload must be a JSON object",
			}},
		}
	}

	filtersRaw, ok := envelope["filters"]
	if !ok {
		return nil, &FilterValidationError{
			Category: FilterErrorStructure,
			Problems: []FilterProblem{{
				Index:    -1,
				Code:     CodeMissingFiltersProperty,
				Category: FilterErrorStructure,
				Message:  "payload has no \"filters\" property",
			}},
		}
	}

	var probe []json.RawMessage
	if err := json.Unmarshal(filtersRaw, &probe); err != nil {
		return nil, &FilterValidationError{
			Category: FilterErrorStructure,
			Problems: []FilterProblem{{
				Index:    -1,
				Code:     CodeFiltersNotArray,
				Category: FilterErrorStructure,
				Message:  "\"filters\" must be an array",
			}},
		}
	}

	var req types.FilterRequest
	if err := json.Unmarshal(raw, &req); err != nil {
		return nil, &FilterValidationError{
			Category: FilterErrorStructure,
			Problems: []FilterProblem{{
				Index:    -1,
				Code:     CodeFiltersNotArray,
				Category: FilterErrorStructure,
				Message:  fmt.Sprintf("filters payload did not decode: %v", err),
			}},
		}
	}
	return &req, nil
}

// ValidateAndCompileFilters validates the shape of a filter tree and
// compiles it into the record API's literal operator format. Validation
// reports every structural problem found, each attributed to its filter
// index; it never stops at the first.
//
// An empty filter list compiles to a MatchNothing query (see
// CompiledQuery). If validation leaves zero usable filters the error is
// AllFiltersInvalidError, which carries a worked example.
func ValidateAndCompileFilters(req *types.FilterRequest) (*CompiledQuery, error) {
	if req == nil {
		return nil, &FilterValidationError{
			Category: FilterErrorStructure,
			Problems: []FilterProblem{{
				Index:    -1,
				Code:     CodeMissingFiltersProperty,
				Category: FilterErrorStructure,
				Message:  "payload has no \"filters\" property",
			}},
		}
	}

	if len(req.Filters) == 0 {
		return &CompiledQuery{MatchNothing: true}, nil
	}

	var problems []FilterProblem
	validCount := 0
	for i, f := range req.Filters {
		ps := validateFilterNode(i, f)
		if len(ps) == 0 {
			validCount++
		}
		problems = append(problems, ps...)
	}

	if len(problems) > 0 {
		category := dominantCategory(problems)
		if validCount == 0 {
			return nil, &AllFiltersInvalidError{Category: category, Problems: problems}
		}
		return nil, &FilterValidationError{Category: category, Problems: problems}
	}

	filter := compileNodes(req.Filters, req.MatchAny)
	return &CompiledQuery{Filter: filter}, nil
}

// validateFilterNode checks one node. A composite node needs a non-empty
// child array; a leaf needs attribute.slug, condition, and a condition
// from the supported set.
func validateFilterNode(index int, f types.Filter) []FilterProblem {
	if f.IsComposite() {
		var problems []FilterProblem
		for _, child := range f.Filters {
			problems = append(problems, validateFilterNode(index, child)...)
		}
		return problems
	}

	var problems []FilterProblem
	switch {
	case f.Attribute == nil:
		problems = append(problems, FilterProblem{
			Index:    index,
			Code:     CodeMissingAttribute,
			Category: FilterErrorAttribute,
			Message:  "missing \"attribute\" object",
		})
	case f.Attribute.Slug == "":
		problems = append(problems, FilterProblem{
			Index:    index,
			Code:     CodeMissingAttributeSlug,
			Category: FilterErrorAttribute,
			Message:  "\"attribute\" has no \"slug\"",
		})
	}

	if f.Condition == "" {
		problems = append(problems, FilterProblem{
			Index:    index,
			Code:     CodeMissingCondition,
			Category: FilterErrorCondition,
			Message:  "missing \"condition\"",
		})
	} else if _, ok := conditionOperators[f.Condition]; !ok {
		problems = append(problems, FilterProblem{
			Index:    index,
			Code:     CodeInvalidCondition,
			Category: FilterErrorCondition,
			Message: fmt.Sprintf("unsupported condition %q; valid conditions are: %s",
				f.Condition, strings.Join(SupportedConditions(), ", ")),
		})
	}
	return problems
}

// dominantCategory picks the error category for a mixed problem list.
// Structural defects outrank attribute defects, which outrank condition
// defects.
func dominantCategory(problems []FilterProblem) FilterErrorCategory {
	category := FilterErrorCondition
	for _, p := range problems {
		switch p.Category {
		case FilterErrorStructure:
			return FilterErrorStructure
		case FilterErrorAttribute:
			category = FilterErrorAttribute
		}
	}
	return category
}

// compileNodes compiles validated sibling nodes. Under AND semantics the
// leaves merge into one conjunctive object while their constraints stay
// disjoint; as soon as two siblings constrain the same slug with the
// same operator the whole group compiles to an explicit $and array
// instead, so no leaf is ever dropped. Under OR they become an $or
// array.
func compileNodes(filters []types.Filter, matchAny bool) map[string]interface{} {
	if matchAny {
		branches := make([]interface{}, 0, len(filters))
		for _, f := range filters {
			branches = append(branches, compileNode(f))
		}
		return map[string]interface{}{"$or": branches}
	}

	merged := make(map[string]interface{})
	for _, f := range filters {
		if mergeFilter(merged, compileNode(f)) {
			continue
		}
		// Recompile every sibling into its own branch; the maps already
		// merged may have been cross-polluted.
		branches := make([]interface{}, 0, len(filters))
		for _, g := range filters {
			branches = append(branches, compileNode(g))
		}
		return map[string]interface{}{"$and": branches}
	}
	return merged
}

func compileNode(f types.Filter) map[string]interface{} {
	if f.IsComposite() {
		return compileNodes(f.Filters, f.MatchAny)
	}

	slug := f.Attribute.Slug
	if _, ok := shorthandSlugs[slug]; ok && f.Condition == "equals" {
		return map[string]interface{}{slug: f.Value}
	}
	return map[string]interface{}{
		slug: map[string]interface{}{conditionOperators[f.Condition]: f.Value},
	}
}

// mergeFilter merges src into dst for AND semantics. Two leaves on the
// same slug merge their operator objects when the operators differ. It
// reports false when merging would overwrite an existing constraint;
// the caller must then fall back to an explicit $and.
func mergeFilter(dst, src map[string]interface{}) bool {
	for k, v := range src {
		existing, ok := dst[k]
		if !ok {
			dst[k] = v
			continue
		}
		existingMap, okA := existing.(map[string]interface{})
		incomingMap, okB := v.(map[string]interface{})
		if !okA || !okB {
			return false
		}
		for op := range incomingMap {
			if _, dup := existingMap[op]; dup {
				return false
			}
		}
		for op, opVal := range incomingMap {
			existingMap[op] = opVal
		}
	}
	return true
}
