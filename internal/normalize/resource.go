package normalize

import (
	"sort"
	"strings"
)

// Standard resource types understood without any registry lookup.
const (
	ResourceCompanies = "companies"
	ResourcePeople    = "people"
	ResourceDeals     = "deals"
	ResourceTasks     = "tasks"
	ResourceLists     = "lists"
	ResourceRecords   = "records"
)

// StandardResourceTypes is the static resource-type set, in display order.
var StandardResourceTypes = []string{
	ResourceCompanies,
	ResourcePeople,
	ResourceDeals,
	ResourceTasks,
	ResourceLists,
	ResourceRecords,
}

// singularResourceTypes maps singular display forms onto the canonical
// plural slugs.
var singularResourceTypes = map[string]string{
	"company": ResourceCompanies,
	"person":  ResourcePeople,
	"deal":    ResourceDeals,
	"task":    ResourceTasks,
	"list":    ResourceLists,
	"record":  ResourceRecords,
}

// ObjectRegistry reports the custom objects currently known to the
// workspace. The canonicalizer reads it but never mutates it; refresh
// is the owning client's concern.
type ObjectRegistry interface {
	CustomObjectSlugs() []string
}

// StaticRegistry is an ObjectRegistry over a fixed slug list, used by
// tests and by callers with no custom objects.
type StaticRegistry []string

func (s StaticRegistry) CustomObjectSlugs() []string { return s }

// CanonicalizeResourceType normalizes a caller-supplied resource type
// against the standard set plus the registry's custom objects. Singular
// forms resolve to their plural slug ("Company" means companies, a
// custom "fund" means funds). The result is always lowercase. An
// unknown type fails with an error that enumerates the full,
// deduplicated valid set.
func CanonicalizeResourceType(raw string, registry ObjectRegistry) (string, error) {
	normalized := strings.ToLower(strings.TrimSpace(raw))

	if normalized != "" {
		for _, t := range StandardResourceTypes {
			if normalized == t {
				return t, nil
			}
		}
		if t, ok := singularResourceTypes[normalized]; ok {
			return t, nil
		}
		if registry != nil {
			for _, slug := range registry.CustomObjectSlugs() {
				lower := strings.ToLower(slug)
				if normalized == lower || normalized+"s" == lower || normalized+"es" == lower {
					return lower, nil
				}
			}
		}
	}

	valid := ValidResourceTypes(registry)
	return "", &InvalidResourceTypeError{
		Input:      raw,
		ValidTypes: valid,
		Suggestion: firstOrEmpty(FindSimilarOptions(normalized, valid, 1)),
	}
}

// ValidResourceTypes returns the union of the standard set and the
// registry's custom objects, lowercased, deduplicated, standard types
// first and custom objects sorted after them.
func ValidResourceTypes(registry ObjectRegistry) []string {
	seen := make(map[string]struct{}, len(StandardResourceTypes))
	valid := make([]string, 0, len(StandardResourceTypes))
	for _, t := range StandardResourceTypes {
		seen[t] = struct{}{}
		valid = append(valid, t)
	}
	if registry == nil {
		return valid
	}
	var custom []string
	for _, slug := range registry.CustomObjectSlugs() {
		lower := strings.ToLower(slug)
		if _, ok := seen[lower]; ok {
			continue
		}
		seen[lower] = struct{}{}
		custom = append(custom, lower)
	}
	sort.Strings(custom)
	return append(valid, custom...)
}

func firstOrEmpty(s []string) string {
	if len(s) == 0 {
		return ""
	}
	return s[0]
}
