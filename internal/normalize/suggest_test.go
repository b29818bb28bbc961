package normalize

import (
	"reflect"
	"strings"
	"testing"
)

func TestEditDistance(t *testing.T) {
	tests := []struct {
		a, b string
		want int
	}{
		{"", "", 0},
		{"abc", "abc", 0},
		{"ABC", "abc", 0},
		{"kitten", "sitting", 3},
		{"industry", "Industrey", 1},
		{"name", "", 4},
	}
	for _, tt := range tests {
		if got := EditDistance(tt.a, tt.b); got != tt.want {
			t.Errorf("EditDistance(%q, %q) = %d, want %d", tt.a, tt.b, got, tt.want)
		}
	}
}

func TestFindSimilarOptions(t *testing.T) {
	candidates := []string{"name", "domains", "categories", "employee_range", "description"}

	tests := []struct {
		name  string
		input string
		max   int
		want  []string
	}{
		{"close match first", "nmae", 3, []string{"name"}},
		{"respects max", "domain", 1, []string{"domains"}},
		{"no near match falls back to substring", "ployee", 3, []string{"employee_range"}},
		{"nothing similar", "zzzzzzzz", 3, nil},
		{"zero max", "name", 0, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FindSimilarOptions(tt.input, candidates, tt.max)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("FindSimilarOptions(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestFindSimilarOptionsDeterministicTieBreak(t *testing.T) {
	// Both candidates are distance 1 from the input; the
	// lexicographically smaller one must rank first on every run.
	for i := 0; i < 20; i++ {
		got := FindSimilarOptions("stagx", []string{"stagy", "stage"}, 2)
		if !reflect.DeepEqual(got, []string{"stage", "stagy"}) {
			t.Fatalf("run %d: got %v", i, got)
		}
	}
}

func TestSuggestField(t *testing.T) {
	r := NewResolver(nil)

	got := r.SuggestField(ResourceCompanies, "Industrey", 3)
	if len(got) == 0 || got[0] != "categories" {
		t.Errorf("SuggestField(companies, Industrey) = %v, want categories first", got)
	}

	got = r.SuggestField(ResourcePeople, "emial", 3)
	if len(got) == 0 || got[0] != "email_addresses" {
		t.Errorf("SuggestField(people, emial) = %v, want email_addresses first", got)
	}
}

func TestSuggestEnumValue(t *testing.T) {
	valid := []string{"Lead", "In Progress", "Won"}
	got := SuggestEnumValue("stage", "won", valid, 2)
	if len(got) == 0 || got[0] != "Won" {
		t.Errorf("SuggestEnumValue = %v, want Won first", got)
	}
}

func TestFormatUnknownValueMessage(t *testing.T) {
	msg := FormatUnknownValueMessage("field", "Industrey", []string{"industry", "categories"})
	if !strings.Contains(msg, "Did you mean") || !strings.Contains(msg, "industry") {
		t.Errorf("expected a did-you-mean hint: %s", msg)
	}

	var many []string
	for i := 0; i < 30; i++ {
		many = append(many, strings.Repeat("z", 8)+string(rune('a'+i)))
	}
	msg = FormatUnknownValueMessage("field", "shortname", many)
	if !strings.Contains(msg, "and 15 more") {
		t.Errorf("expected truncation suffix: %s", msg)
	}
}

func TestIsReadOnlyField(t *testing.T) {
	if !IsReadOnlyField("companies", "created_at") {
		t.Error("created_at should be read-only on companies")
	}
	if IsReadOnlyField("companies", "name") {
		t.Error("name should be writable on companies")
	}
}
