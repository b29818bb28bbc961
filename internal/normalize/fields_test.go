package normalize

import (
	"errors"
	"strings"
	"testing"
)

func TestResolveTiers(t *testing.T) {
	r := NewResolver(nil)

	tests := []struct {
		name         string
		resourceType string
		field        string
		want         string
	}{
		// Curated special cases beat everything else
		{"special case industry", ResourceCompanies, "industry", "categories"},
		{"special case industry cased", ResourceCompanies, "Industry", "categories"},
		{"special case sector", ResourceCompanies, "sector", "categories"},
		{"special case task status", ResourceTasks, "status", "is_completed"},
		{"special case scoped to type", ResourceDeals, "status", "stage"},

		// Exact dictionary hits
		{"per-type exact", ResourcePeople, "email", "email_addresses"},
		{"per-type camelCase", ResourcePeople, "jobTitle", "job_title"},
		{"common exact", ResourceCompanies, "createdAt", "created_at"},

		// Case-insensitive tier
		{"case insensitive", ResourcePeople, "Email", "email_addresses"},
		{"case insensitive camel", ResourceDeals, "DEALNAME", "name"},

		// Whitespace/punctuation tier
		{"spaced", ResourceCompanies, "company  name", "name"},
		{"underscored", ResourceTasks, "due_date", "deadline_at"},
		{"dotted", ResourcePeople, "job.title", "job_title"},

		// Aggressive tier
		{"aggressive", ResourcePeople, "E-Mail!", "email_addresses"},

		// Pass-through: unknown names and already-canonical slugs
		{"canonical slug", ResourceCompanies, "domains", "domains"},
		{"unknown passes through", ResourceCompanies, "frobnicator", "frobnicator"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := r.Resolve(tt.resourceType, tt.field); got != tt.want {
				t.Errorf("Resolve(%q, %q) = %q, want %q", tt.resourceType, tt.field, got, tt.want)
			}
		})
	}
}

func TestResolveTieBreakDeterministic(t *testing.T) {
	// Neither alias matches the input until the punctuation-stripped
	// tier, where both collapse to "somefield"; the lexicographically
	// smaller slug must win on every run.
	r := NewResolver(&Mappings{
		Common: map[string]string{
			"some-field": "zeta_field",
			"some_field": "alpha_field",
		},
	})
	for i := 0; i < 20; i++ {
		if got := r.Resolve(ResourceCompanies, "some.field"); got != "alpha_field" {
			t.Fatalf("run %d: Resolve = %q, want alpha_field", i, got)
		}
	}
}

func TestResolveEarlierTierBeatsLaterTie(t *testing.T) {
	// A case-insensitive hit resolves before the punctuation-stripped
	// tier ever sees its would-be tie partner.
	r := NewResolver(&Mappings{
		Common: map[string]string{
			"some field": "zeta_field",
			"Some-Field": "alpha_field",
		},
	})
	if got := r.Resolve(ResourceCompanies, "SOME FIELD"); got != "zeta_field" {
		t.Errorf("Resolve = %q, want zeta_field from the case-insensitive tier", got)
	}
}

func TestMapFieldsIdempotent(t *testing.T) {
	r := NewResolver(nil)
	record := map[string]interface{}{
		"name":    "Acme Corp",
		"domains": []interface{}{"acme.com"},
	}

	result, err := r.MapFields(ResourceCompanies, record, OpUpdate)
	if err != nil {
		t.Fatalf("MapFields: %v", err)
	}
	if len(result.Warnings) != 0 {
		t.Errorf("canonical input produced warnings: %v", result.Warnings)
	}

	again, err := r.MapFields(ResourceCompanies, result.Mapped, OpUpdate)
	if err != nil {
		t.Fatalf("MapFields second pass: %v", err)
	}
	if len(again.Warnings) != 0 {
		t.Errorf("second pass produced warnings: %v", again.Warnings)
	}
	for k, v := range record {
		got, ok := again.Mapped[k]
		if !ok {
			t.Errorf("key %q lost on second pass", k)
			continue
		}
		switch val := v.(type) {
		case string:
			if got != val {
				t.Errorf("key %q changed: %v != %v", k, got, val)
			}
		}
	}
}

func TestMapFieldsWarnsOnAlias(t *testing.T) {
	r := NewResolver(nil)
	result, err := r.MapFields(ResourcePeople, map[string]interface{}{
		"email": "jan@example.com",
	}, OpCreate)
	if err != nil {
		t.Fatalf("MapFields: %v", err)
	}
	if _, ok := result.Mapped["email_addresses"]; !ok {
		t.Fatal("email was not rewritten to email_addresses")
	}
	if len(result.Warnings) != 1 {
		t.Fatalf("warnings = %v, want exactly one", result.Warnings)
	}
	if !strings.Contains(result.Warnings[0], "email_addresses") {
		t.Errorf("warning does not name the target slug: %s", result.Warnings[0])
	}
}

func TestMapFieldsCollision(t *testing.T) {
	r := NewResolver(nil)

	tests := []struct {
		name         string
		resourceType string
		record       map[string]interface{}
		wantSlug     string
	}{
		{
			"title and name on tasks",
			ResourceTasks,
			map[string]interface{}{"title": "Call Jan", "name": "Follow up"},
			"content",
		},
		{
			"alias and canonical",
			ResourcePeople,
			map[string]interface{}{"email": "a@b.c", "email_addresses": "d@e.f"},
			"email_addresses",
		},
		{
			"two aliases",
			ResourceCompanies,
			map[string]interface{}{"website": "acme.com", "url": "acme.io"},
			"domains",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := r.MapFields(tt.resourceType, tt.record, OpCreate)
			var collision *FieldCollisionError
			if !errors.As(err, &collision) {
				t.Fatalf("error = %v, want *FieldCollisionError", err)
			}
			if collision.Slug != tt.wantSlug {
				t.Errorf("collision slug = %q, want %q", collision.Slug, tt.wantSlug)
			}
			msg := err.Error()
			for key := range tt.record {
				if !strings.Contains(msg, key) {
					t.Errorf("collision message missing raw key %q: %s", key, msg)
				}
			}
		})
	}
}

func TestMapFieldsReadOnly(t *testing.T) {
	r := NewResolver(nil)

	_, err := r.MapFields(ResourceCompanies, map[string]interface{}{
		"created_at": "2026-01-01",
	}, OpCreate)
	var readOnly *ReadOnlyFieldError
	if !errors.As(err, &readOnly) {
		t.Fatalf("error = %v, want *ReadOnlyFieldError", err)
	}
	createMsg := err.Error()

	_, err = r.MapFields(ResourceCompanies, map[string]interface{}{
		"created_at": "2026-01-01",
	}, OpUpdate)
	if !errors.As(err, &readOnly) {
		t.Fatalf("error = %v, want *ReadOnlyFieldError", err)
	}
	if err.Error() == createMsg {
		t.Error("create and update read-only messages should differ")
	}
}

func TestMapFieldsTaskFormatDefault(t *testing.T) {
	r := NewResolver(nil)

	created, err := r.MapFields(ResourceTasks, map[string]interface{}{
		"title": "Call Jan",
	}, OpCreate)
	if err != nil {
		t.Fatalf("MapFields: %v", err)
	}
	if created.Mapped["format"] != "plaintext" {
		t.Errorf("create did not default format, got %v", created.Mapped["format"])
	}

	updated, err := r.MapFields(ResourceTasks, map[string]interface{}{
		"title": "Call Jan",
	}, OpUpdate)
	if err != nil {
		t.Fatalf("MapFields: %v", err)
	}
	if _, ok := updated.Mapped["format"]; ok {
		t.Error("update must not synthesize format")
	}
}

func TestReplaceMappings(t *testing.T) {
	r := NewResolver(nil)
	if got := r.Resolve(ResourceCompanies, "budget"); got != "budget" {
		t.Fatalf("unexpected mapping before reload: %q", got)
	}

	r.ReplaceMappings(&Mappings{
		Common: map[string]string{"budget": "annual_budget"},
	})
	if got := r.Resolve(ResourceCompanies, "budget"); got != "annual_budget" {
		t.Errorf("Resolve after reload = %q, want annual_budget", got)
	}

	// Curated special cases survive configuration reloads.
	if got := r.Resolve(ResourceCompanies, "industry"); got != "categories" {
		t.Errorf("special case lost after reload: %q", got)
	}
}
