package normalize

import (
	"errors"
	"strings"
	"testing"
)

func TestCanonicalizeResourceType(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		registry ObjectRegistry
		want     string
		wantErr  bool
	}{
		{"lowercase", "companies", nil, "companies", false},
		{"uppercase", "COMPANIES", nil, "companies", false},
		{"mixed case", "Companies", nil, "companies", false},
		{"surrounding whitespace", "  people ", nil, "people", false},
		{"tasks", "tasks", nil, "tasks", false},
		{"lists", "Lists", nil, "lists", false},
		{"records", "records", nil, "records", false},
		{"singular", "company", nil, "companies", false},
		{"singular mixed case", "Company", nil, "companies", false},
		{"singular person", "Person", nil, "people", false},
		{"singular deal", "deal", nil, "deals", false},
		{"custom object", "funds", StaticRegistry{"funds"}, "funds", false},
		{"custom object singular", "fund", StaticRegistry{"funds"}, "funds", false},
		{"custom object mixed case", "Funds", StaticRegistry{"funds"}, "funds", false},
		{"custom registered uppercase", "funds", StaticRegistry{"FUNDS"}, "funds", false},
		{"unknown", "widgets", nil, "", true},
		{"unknown despite registry", "widgets", StaticRegistry{"funds"}, "", true},
		{"empty", "", nil, "", true},
		{"whitespace only", "   ", nil, "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := CanonicalizeResourceType(tt.input, tt.registry)
			if (err != nil) != tt.wantErr {
				t.Fatalf("CanonicalizeResourceType(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("CanonicalizeResourceType(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestCanonicalizeResourceTypeErrorListsValidSet(t *testing.T) {
	_, err := CanonicalizeResourceType("widgets", StaticRegistry{"funds", "properties"})
	if err == nil {
		t.Fatal("expected error for unknown resource type")
	}

	var invalidErr *InvalidResourceTypeError
	if !errors.As(err, &invalidErr) {
		t.Fatalf("error type = %T, want *InvalidResourceTypeError", err)
	}

	msg := err.Error()
	for _, want := range []string{"companies", "people", "deals", "tasks", "lists", "records", "funds", "properties"} {
		if !strings.Contains(msg, want) {
			t.Errorf("error message missing %q: %s", want, msg)
		}
	}
}

func TestValidResourceTypesDeduplicates(t *testing.T) {
	// A custom object sharing a name with a static type must not be listed twice.
	valid := ValidResourceTypes(StaticRegistry{"companies", "funds", "Funds"})

	counts := make(map[string]int)
	for _, v := range valid {
		counts[v]++
	}
	if counts["companies"] != 1 {
		t.Errorf("companies listed %d times, want 1", counts["companies"])
	}
	if counts["funds"] != 1 {
		t.Errorf("funds listed %d times, want 1", counts["funds"])
	}
}

func TestCanonicalizeResourceTypeSuggestion(t *testing.T) {
	_, err := CanonicalizeResourceType("companees", nil)
	if err == nil {
		t.Fatal("expected error")
	}
	var invalidErr *InvalidResourceTypeError
	if !errors.As(err, &invalidErr) {
		t.Fatalf("error type = %T, want *InvalidResourceTypeError", err)
	}
	if invalidErr.Suggestion != "companies" {
		t.Errorf("Suggestion = %q, want %q", invalidErr.Suggestion, "companies")
	}
}
