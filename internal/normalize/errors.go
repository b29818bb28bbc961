package normalize

import (
	"fmt"
	"strings"
)

// Structural validation codes reported by the filter validator. Each
// invalid filter is reported with its index so the caller can fix all
// of them in one pass.
const (
	CodeMissingFiltersProperty = "MISSING_FILTERS_PROPERTY"
	CodeFiltersNotArray        = "FILTERS_NOT_ARRAY"
	CodeMissingAttribute       = "MISSING_ATTRIBUTE"
	CodeMissingAttributeSlug   = "MISSING_ATTRIBUTE_SLUG"
	CodeMissingCondition       = "MISSING_CONDITION"
	CodeInvalidCondition       = "INVALID_CONDITION"
)

// FilterErrorCategory classifies what part of a filter was malformed.
type FilterErrorCategory string

const (
	FilterErrorStructure FilterErrorCategory = "structure"
	FilterErrorAttribute FilterErrorCategory = "attribute"
	FilterErrorCondition FilterErrorCategory = "condition"
)

// InvalidResourceTypeError is returned when a caller-supplied resource
// type matches neither the static set nor any registered custom object.
type InvalidResourceTypeError struct {
	Input      string
	ValidTypes []string
	Suggestion string
}

func (e *InvalidResourceTypeError) Error() string {
	msg := fmt.Sprintf("invalid resource type %q", e.Input)
	if e.Suggestion != "" {
		msg += fmt.Sprintf(". Did you mean %q?", e.Suggestion)
	}
	if len(e.ValidTypes) > 0 {
		msg += fmt.Sprintf(" Valid types are: %s", strings.Join(e.ValidTypes, ", "))
	}
	return msg
}

// FieldCollisionError is returned when two distinct input field names
// resolve to the same canonical attribute slug. The operation fails as
// a whole; silently preferring one key would corrupt data depending on
// caller key order.
type FieldCollisionError struct {
	ResourceType string
	FirstKey     string
	SecondKey    string
	Slug         string
}

func (e *FieldCollisionError) Error() string {
	return fmt.Sprintf("field collision on %s: both %q and %q map to attribute %q; supply only one of them",
		e.ResourceType, e.FirstKey, e.SecondKey, e.Slug)
}

// FilterProblem is one structural defect found in a filter tree,
// attributed to the filter's position in the input array.
type FilterProblem struct {
	Index    int
	Code     string
	Category FilterErrorCategory
	Message  string
}

func (p FilterProblem) String() string {
	if p.Index < 0 {
		return fmt.Sprintf("[%s] %s", p.Code, p.Message)
	}
	return fmt.Sprintf("Filter [%d]: [%s] %s", p.Index, p.Code, p.Message)
}

// FilterValidationError aggregates every structural problem found in a
// filter tree. Validation does not stop at the first defect.
type FilterValidationError struct {
	Category FilterErrorCategory
	Problems []FilterProblem
}

func (e *FilterValidationError) Error() string {
	msgs := make([]string, len(e.Problems))
	for i, p := range e.Problems {
		msgs[i] = p.String()
	}
	return fmt.Sprintf("invalid filters: %s", strings.Join(msgs, "; "))
}

// AllFiltersInvalidError is returned when validation left zero usable
// filter leaves. The message carries a worked example so the caller can
// correct the payload without consulting documentation.
type AllFiltersInvalidError struct {
	Category FilterErrorCategory
	Problems []FilterProblem
}

func (e *AllFiltersInvalidError) Error() string {
	msgs := make([]string, len(e.Problems))
	for i, p := range e.Problems {
		msgs[i] = p.String()
	}
	return fmt.Sprintf("no valid filters remain: %s. Example of a valid filter: %s",
		strings.Join(msgs, "; "), e.exampleFilter())
}

func (e *AllFiltersInvalidError) exampleFilter() string {
	if e.Category == FilterErrorCondition {
		return `{"attribute": {"slug": "name"}, "condition": "contains", "value": "Acme"}`
	}
	return `{"attribute": {"slug": "name"}, "condition": "equals", "value": "Acme Corp"}`
}

// InvalidFieldValueError is returned when a supplied value cannot be
// coerced to the attribute's declared type.
type InvalidFieldValueError struct {
	Field string
	Value interface{}
	Type  string
}

func (e *InvalidFieldValueError) Error() string {
	return fmt.Sprintf("invalid value %v for %s field %q", e.Value, e.Type, e.Field)
}

// InvalidStatusValueError is returned when a status or select title has
// no match in the attribute's option set.
type InvalidStatusValueError struct {
	Field       string
	Value       string
	ValidTitles []string
	Suggestions []string
}

// maxTitlesInError caps how many valid option titles an error message lists.
const maxTitlesInError = 10

func (e *InvalidStatusValueError) Error() string {
	msg := fmt.Sprintf("invalid value %q for status field %q", e.Value, e.Field)
	if len(e.Suggestions) > 0 {
		msg += fmt.Sprintf(". Did you mean %q?", e.Suggestions[0])
	}
	titles := e.ValidTitles
	if len(titles) > maxTitlesInError {
		msg += fmt.Sprintf(" Valid options are: %s (and %d more)",
			strings.Join(titles[:maxTitlesInError], ", "), len(titles)-maxTitlesInError)
	} else if len(titles) > 0 {
		msg += fmt.Sprintf(" Valid options are: %s", strings.Join(titles, ", "))
	}
	return msg
}

// ReadOnlyFieldError is returned when a caller attempts to write a
// server-managed field.
type ReadOnlyFieldError struct {
	ResourceType string
	Field        string
	Operation    string // create or update
}

func (e *ReadOnlyFieldError) Error() string {
	if e.Operation == "create" {
		return fmt.Sprintf("field %q on %s is read-only and cannot be set when creating a record; it is populated automatically",
			e.Field, e.ResourceType)
	}
	return fmt.Sprintf("field %q on %s is read-only and cannot be updated; remove it from the payload",
		e.Field, e.ResourceType)
}
