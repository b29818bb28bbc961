package normalize

import (
	"fmt"
	"sort"
	"strings"

	"github.com/agnivade/levenshtein"
)

// suggestThreshold is the maximum edit distance for a candidate to count
// as a near match. Beyond it we fall back to substring containment.
const suggestThreshold = 3

// EditDistance returns the Levenshtein distance between two strings,
// case-insensitive.
func EditDistance(a, b string) int {
	return levenshtein.ComputeDistance(strings.ToLower(a), strings.ToLower(b))
}

// FindSimilarOptions ranks candidates by edit distance to input and
// returns at most max of them, closest first. Candidates beyond the
// distance threshold are considered only via substring containment.
// Ties break lexicographically so results are deterministic regardless
// of candidate order.
func FindSimilarOptions(input string, candidates []string, max int) []string {
	if max <= 0 || len(candidates) == 0 {
		return nil
	}

	type scored struct {
		value    string
		distance int
	}

	var near []scored
	for _, c := range candidates {
		if d := EditDistance(input, c); d <= suggestThreshold {
			near = append(near, scored{value: c, distance: d})
		}
	}

	if len(near) == 0 {
		// Substring fallback: "industry" should still surface for "ind".
		lower := strings.ToLower(input)
		for _, c := range candidates {
			cl := strings.ToLower(c)
			if strings.Contains(cl, lower) || strings.Contains(lower, cl) {
				near = append(near, scored{value: c, distance: suggestThreshold + 1})
			}
		}
	}

	if len(near) == 0 {
		return nil
	}

	sort.Slice(near, func(i, j int) bool {
		if near[i].distance != near[j].distance {
			return near[i].distance < near[j].distance
		}
		return near[i].value < near[j].value
	})

	if len(near) > max {
		near = near[:max]
	}
	out := make([]string, len(near))
	for i, s := range near {
		out[i] = s.value
	}
	return out
}

// readOnlyFields lists server-managed attributes per resource type.
// Writes to them always fail regardless of operation.
var readOnlyFields = map[string][]string{
	"companies": {"created_at", "created_by", "record_id"},
	"people":    {"created_at", "created_by", "record_id"},
	"deals":     {"created_at", "created_by", "record_id"},
	"tasks":     {"created_at", "created_by"},
	"records":   {"created_at", "created_by", "record_id"},
}

// IsReadOnlyField reports whether slug is server-managed for the given
// resource type.
func IsReadOnlyField(resourceType, slug string) bool {
	for _, f := range readOnlyFields[resourceType] {
		if f == slug {
			return true
		}
	}
	return false
}

// maxListedOptions caps how many vocabulary entries a formatted message
// enumerates before truncating.
const maxListedOptions = 15

// FormatUnknownValueMessage builds a self-sufficient diagnostic for an
// unrecognized value: a "did you mean" hint when a close candidate
// exists, otherwise the (possibly truncated) valid vocabulary.
func FormatUnknownValueMessage(kind, input string, valid []string) string {
	msg := fmt.Sprintf("Unknown %s %q.", kind, input)
	if suggestions := FindSimilarOptions(input, valid, 1); len(suggestions) > 0 {
		return fmt.Sprintf("%s Did you mean %q?", msg, suggestions[0])
	}
	if len(valid) == 0 {
		return msg
	}
	sorted := append([]string(nil), valid...)
	sort.Strings(sorted)
	if len(sorted) > maxListedOptions {
		return fmt.Sprintf("%s Valid options are: %s (and %d more)",
			msg, strings.Join(sorted[:maxListedOptions], ", "), len(sorted)-maxListedOptions)
	}
	return fmt.Sprintf("%s Valid options are: %s", msg, strings.Join(sorted, ", "))
}

// SuggestField returns up to max canonical field suggestions for an
// unknown field name on the given resource type, drawn from the alias
// dictionaries' canonical targets.
func (r *Resolver) SuggestField(resourceType, unknownField string, max int) []string {
	seen := make(map[string]struct{})
	var vocab []string
	add := func(m map[string]string) {
		for alias, slug := range m {
			for _, v := range []string{alias, slug} {
				if _, ok := seen[v]; !ok {
					seen[v] = struct{}{}
					vocab = append(vocab, v)
				}
			}
		}
	}
	r.mu.RLock()
	add(r.mappings.PerResource[resourceType])
	add(r.mappings.Common)
	r.mu.RUnlock()
	for _, sc := range specialCases {
		if sc.resourceType != "" && sc.resourceType != resourceType {
			continue
		}
		for _, v := range append(sc.variants, sc.slug) {
			if _, ok := seen[v]; !ok {
				seen[v] = struct{}{}
				vocab = append(vocab, v)
			}
		}
	}

	matches := FindSimilarOptions(unknownField, vocab, max)

	// Suggestions should point at canonical slugs, not at other aliases.
	out := make([]string, 0, len(matches))
	outSeen := make(map[string]struct{})
	for _, m := range matches {
		slug := r.Resolve(resourceType, m)
		if _, ok := outSeen[slug]; ok {
			continue
		}
		outSeen[slug] = struct{}{}
		out = append(out, slug)
	}
	return out
}

// SuggestEnumValue returns up to max suggestions for an invalid enum
// value from the attribute's valid titles.
func SuggestEnumValue(field, value string, validValues []string, max int) []string {
	return FindSimilarOptions(value, validValues, max)
}
