package normalize

import (
	"fmt"
	"sort"
	"strings"
	"sync"
)

// Operation tags whether a record payload is being created or updated.
// Post-mapping rules (defaulted fields, read-only wording) depend on it.
type Operation string

const (
	OpCreate Operation = "create"
	OpUpdate Operation = "update"
)

// Mappings holds the alias dictionaries: a common dictionary applied to
// every resource type and per-resource dictionaries that take priority
// over it. Keys are caller-supplied variants, values are canonical
// attribute slugs.
type Mappings struct {
	Common      map[string]string            `mapstructure:"common"`
	PerResource map[string]map[string]string `mapstructure:"per_resource"`
}

// DefaultMappings returns the built-in alias dictionaries. Configuration
// may extend or override them, except for the curated special cases
// which always win.
func DefaultMappings() *Mappings {
	return &Mappings{
		Common: map[string]string{
			"id":        "record_id",
			"recordId":  "record_id",
			"created":   "created_at",
			"createdAt": "created_at",
			"updatedAt": "updated_at",
		},
		PerResource: map[string]map[string]string{
			ResourceCompanies: {
				"companyName":    "name",
				"company name":   "name",
				"website":        "domains",
				"url":            "domains",
				"domain":         "domains",
				"employees":      "employee_range",
				"company size":   "employee_range",
				"headcount":      "employee_range",
				"address":        "primary_location",
				"location":       "primary_location",
				"annual revenue": "estimated_arr_usd",
				"arr":            "estimated_arr_usd",
			},
			ResourcePeople: {
				"fullName":     "name",
				"full name":    "name",
				"email":        "email_addresses",
				"emails":       "email_addresses",
				"emailAddress": "email_addresses",
				"phone":        "phone_numbers",
				"phones":       "phone_numbers",
				"phoneNumber":  "phone_numbers",
				"title":        "job_title",
				"jobTitle":     "job_title",
				"position":     "job_title",
				"role":         "job_title",
				"employer":     "company",
				"organization": "company",
			},
			ResourceDeals: {
				"dealName":  "name",
				"deal name": "name",
				"title":     "name",
				"amount":    "value",
				"dealValue": "value",
				"worth":     "value",
				"status":    "stage",
				"dealStage": "stage",
				"account":   "associated_company",
				"company":   "associated_company",
				"contact":   "associated_people",
				"owner":     "owner",
			},
			ResourceTasks: {
				"title":       "content",
				"name":        "content",
				"task":        "content",
				"description": "content",
				"due":         "deadline_at",
				"dueDate":     "deadline_at",
				"due date":    "deadline_at",
				"deadline":    "deadline_at",
				"assignee":    "assignees",
				"assigned to": "assignees",
				"owner":       "assignees",
				"completed":   "is_completed",
				"done":        "is_completed",
				"records":     "linked_records",
				"record":      "linked_records",
			},
			ResourceLists: {
				"title":  "name",
				"object": "parent_object",
				"parent": "parent_object",
			},
		},
	}
}

// specialCase is one curated rename evaluated before any dictionary or
// normalization tier. These encode CRM renames no generic normalization
// could infer (the canonical slug shares nothing with its aliases).
type specialCase struct {
	resourceType string // empty matches every resource type
	variants     []string
	slug         string
}

func (sc specialCase) matches(field string) bool {
	normalized := aggressiveNormalize(field)
	for _, v := range sc.variants {
		if aggressiveNormalize(v) == normalized {
			return true
		}
	}
	return false
}

// specialCases is evaluated in order; the first match wins. Keeping the
// curated tier above the dictionaries prevents a configured fuzzy alias
// from shadowing a deliberate rename.
var specialCases = []specialCase{
	{ResourceCompanies, []string{"industry", "industries", "sector", "vertical", "verticals"}, "categories"},
	{ResourceTasks, []string{"status", "state"}, "is_completed"},
	{ResourcePeople, []string{"works at", "employed by"}, "company"},
}

// Resolver maps caller-supplied field names to canonical attribute
// slugs. It is safe for concurrent use; ReplaceMappings swaps the
// dictionaries atomically when configuration is reloaded.
type Resolver struct {
	mu       sync.RWMutex
	mappings *Mappings
}

// NewResolver creates a resolver over the given dictionaries. A nil
// argument uses the built-in defaults.
func NewResolver(m *Mappings) *Resolver {
	if m == nil {
		m = DefaultMappings()
	}
	return &Resolver{mappings: m}
}

// ReplaceMappings swaps in freshly loaded dictionaries. Used by the
// config watcher on hot reload.
func (r *Resolver) ReplaceMappings(m *Mappings) {
	if m == nil {
		return
	}
	r.mu.Lock()
	r.mappings = m
	r.mu.Unlock()
}

// Resolve maps a raw field name to its canonical attribute slug for the
// given resource type. Tiers, first match wins:
//
//  1. curated special cases
//  2. per-resource dictionary, exact
//  3. common dictionary, exact
//  4. case-insensitive match over both dictionaries
//  5. whitespace/punctuation-normalized match
//  6. aggressive alphanumeric-only match
//
// When no tier matches the input is returned unchanged: the raw name may
// already be the canonical slug, and unknown fields are rejected later
// by collision and required-field validation, not here. Ties within a
// tier resolve to the lexicographically smallest canonical slug.
func (r *Resolver) Resolve(resourceType, rawField string) string {
	for _, sc := range specialCases {
		if sc.resourceType != "" && sc.resourceType != resourceType {
			continue
		}
		if sc.matches(rawField) {
			return sc.slug
		}
	}

	r.mu.RLock()
	perType := r.mappings.PerResource[resourceType]
	common := r.mappings.Common
	r.mu.RUnlock()

	if slug, ok := perType[rawField]; ok {
		return slug
	}
	if slug, ok := common[rawField]; ok {
		return slug
	}

	canonicalizers := []func(string) string{
		strings.ToLower,
		normalizeSpacing,
		aggressiveNormalize,
	}
	for _, canon := range canonicalizers {
		// Per-resource entries shadow common ones within each tier.
		if slug, ok := lookupNormalized(perType, rawField, canon); ok {
			return slug
		}
		if slug, ok := lookupNormalized(common, rawField, canon); ok {
			return slug
		}
	}

	return rawField
}

// lookupNormalized matches rawField against dict aliases under the given
// canonicalization. Several aliases can collapse to the same normalized
// form; the lexicographically smallest target slug wins so resolution is
// deterministic regardless of map iteration order.
func lookupNormalized(dict map[string]string, rawField string, canon func(string) string) (string, bool) {
	want := canon(rawField)
	best := ""
	for alias, slug := range dict {
		if canon(alias) != want {
			continue
		}
		if best == "" || slug < best {
			best = slug
		}
	}
	return best, best != ""
}

// normalizeSpacing lowercases, collapses runs of whitespace to one space
// and strips hyphens, underscores and dots.
func normalizeSpacing(s string) string {
	s = strings.ToLower(s)
	s = strings.NewReplacer("-", "", "_", "", ".", "").Replace(s)
	return strings.Join(strings.Fields(s), " ")
}

// aggressiveNormalize strips everything but letters and digits and
// lowercases the remainder. Last-resort matching only.
func aggressiveNormalize(s string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(s) {
		if ('a' <= r && r <= 'z') || ('0' <= r && r <= '9') {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// MapResult is the outcome of mapping a record's field names.
type MapResult struct {
	Mapped   map[string]interface{}
	Warnings []string
}

// MapFields resolves every key of record to its canonical attribute
// slug. Two distinct raw keys resolving to the same slug fail the whole
// operation with a FieldCollisionError; silently preferring one would
// corrupt data depending on the caller's key order. Every rewritten key
// yields a non-fatal warning. Writes to server-managed fields fail with
// a ReadOnlyFieldError worded for the operation.
func (r *Resolver) MapFields(resourceType string, record map[string]interface{}, op Operation) (*MapResult, error) {
	result := &MapResult{Mapped: make(map[string]interface{}, len(record))}

	// Sorted keys keep warnings and collision reports deterministic.
	keys := make([]string, 0, len(record))
	for k := range record {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	resolvedBy := make(map[string]string, len(record))
	for _, key := range keys {
		slug := r.Resolve(resourceType, key)

		if prev, ok := resolvedBy[slug]; ok {
			return nil, &FieldCollisionError{
				ResourceType: resourceType,
				FirstKey:     prev,
				SecondKey:    key,
				Slug:         slug,
			}
		}
		resolvedBy[slug] = key

		if IsReadOnlyField(resourceType, slug) {
			return nil, &ReadOnlyFieldError{
				ResourceType: resourceType,
				Field:        slug,
				Operation:    string(op),
			}
		}

		if slug != key {
			result.Warnings = append(result.Warnings,
				fmt.Sprintf("field %q was mapped to attribute %q", key, slug))
		}
		result.Mapped[slug] = record[key]
	}

	applyPostMappingRules(resourceType, op, result.Mapped)
	return result, nil
}

// applyPostMappingRules runs resource-specific fixups that depend on the
// operation. Rules run after aliasing so they see canonical slugs only.
func applyPostMappingRules(resourceType string, op Operation, mapped map[string]interface{}) {
	if op != OpCreate {
		return
	}
	switch resourceType {
	case ResourceTasks:
		// The task write API requires a format alongside content.
		if _, ok := mapped["content"]; ok {
			if _, ok := mapped["format"]; !ok {
				mapped["format"] = "plaintext"
			}
		}
	}
}
