package suggest_test

import (
	"fmt"
	"testing"

	"github.com/func/seeder/suggest"
)

func ExampleString() {
	userProvided := "sharetype"
	candidates := []string{"share_type", "volume_type", "project"}

	suggestion := suggest.String(userProvided, candidates)
	fmt.Printf("Did you mean %q?", suggestion)
	// Output: Did you mean "share_type"?
}

func TestString(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		options []string
		want    string
	}{
		{"Exact", "project", []string{"domain", "project"}, "project"},
		{"Case", "Project", []string{"domain", "project"}, "project"},
		{"Dash", "dns-zone", []string{"dns_zone", "domain"}, "dns_zone"},
		{"Almost", "projet", []string{"domain", "project"}, "project"},
		{"NoMatch", "go", []string{"bar", "foo"}, ""},
		{"Long", "resource_provder", []string{"resource_provider", "role_assignment"}, "resource_provider"},
		{"Tie", "aa", []string{"ba", "ab"}, "ab"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := suggest.String(tt.input, tt.options)
			if got != tt.want {
				t.Errorf("String(%s, %v) got = %q, want = %q", tt.input, tt.options, got, tt.want)
			}
		})
	}
}

func TestHint(t *testing.T) {
	if got, want := suggest.Hint("projects", []string{"project"}), ` (did you mean "project"?)`; got != want {
		t.Errorf("Hint() = %q, want = %q", got, want)
	}
	if got := suggest.Hint("xyz", []string{"project"}); got != "" {
		t.Errorf("Hint() = %q, want empty", got)
	}
}
