package graph_test

import (
	"strings"
	"testing"

	"github.com/func/seeder/resource"
	"github.com/func/seeder/resource/graph"
	"github.com/google/go-cmp/cmp"
	"github.com/zclconf/go-cty/cty"
)

func kind(name string, refs ...string) *resource.Kind {
	k := &resource.Kind{
		Name:   name,
		Fields: []*resource.Field{{Name: "name", Type: cty.String, Key: true}},
	}
	for _, r := range refs {
		k.Fields = append(k.Fields, &resource.Field{Name: r, Type: cty.String, Ref: &resource.Ref{Kind: r}})
	}
	return k
}

func names(kinds []*resource.Kind) []string {
	out := make([]string, len(kinds))
	for i, k := range kinds {
		out[i] = k.Name
	}
	return out
}

func TestNew_order(t *testing.T) {
	kinds := []*resource.Kind{
		kind("role_assignment", "role", "user", "project"),
		kind("user", "domain", "project"),
		kind("role"),
		kind("project", "domain"),
		kind("domain"),
		kind("flavor"),
	}

	g, err := graph.New(kinds)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	order := names(g.Order())
	if len(order) != len(kinds) {
		t.Fatalf("Order() = %v, want %d kinds", order, len(kinds))
	}
	pos := make(map[string]int)
	for i, n := range order {
		pos[n] = i
	}
	for _, k := range kinds {
		for _, dep := range k.Dependencies() {
			if pos[dep] > pos[k.Name] {
				t.Errorf("%s ordered before its dependency %s: %v", k.Name, dep, order)
			}
		}
	}

	// Stable across runs.
	for i := 0; i < 10; i++ {
		g2, err := graph.New(kinds)
		if err != nil {
			t.Fatal(err)
		}
		if diff := cmp.Diff(names(g2.Order()), order); diff != "" {
			t.Fatalf("Run %d Diff (-got +want)\n%s", i, diff)
		}
	}

	plan := names(g.Plan([]string{"user", "flavor", "project", "nope"}))
	var want []string
	for _, n := range order {
		if n == "user" || n == "flavor" || n == "project" {
			want = append(want, n)
		}
	}
	if diff := cmp.Diff(plan, want); diff != "" {
		t.Errorf("Plan() Diff (-got +want)\n%s", diff)
	}
	if pos["project"] > pos["user"] {
		t.Errorf("Plan() = %v, project must come before user", plan)
	}

	parents := g.Parents("user")
	if diff := cmp.Diff(parents, []string{"domain", "project"}); diff != "" {
		t.Errorf("Parents() Diff (-got +want)\n%s", diff)
	}
}

func TestNew_explicitDependsOn(t *testing.T) {
	b := kind("b")
	a := kind("a")
	a.DependsOn = []string{"b"}
	g, err := graph.New([]*resource.Kind{a, b})
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(names(g.Order()), []string{"b", "a"}); diff != "" {
		t.Errorf("Diff (-got +want)\n%s", diff)
	}
}

func TestNew_cycle(t *testing.T) {
	tests := []struct {
		name  string
		kinds []*resource.Kind
		path  []string
	}{
		{
			name:  "Self",
			kinds: []*resource.Kind{kind("a", "a")},
			path:  []string{"a -> a"},
		},
		{
			name:  "Pair",
			kinds: []*resource.Kind{kind("a", "b"), kind("b", "a")},
			path:  []string{"a -> b -> a", "b -> a -> b"},
		},
		{
			name:  "Triangle",
			kinds: []*resource.Kind{kind("x"), kind("a", "c"), kind("b", "a"), kind("c", "b")},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := graph.New(tc.kinds)
			if err == nil {
				t.Fatal("New() error = nil")
			}
			if got := resource.ClassOf(err); got != resource.DependencyCycle {
				t.Errorf("Class = %s, want = %s", got, resource.DependencyCycle)
			}
			if len(tc.path) == 0 {
				return
			}
			found := false
			for _, p := range tc.path {
				if strings.Contains(err.Error(), p) {
					found = true
				}
			}
			if !found {
				t.Errorf("Error %q does not contain any of %q", err, tc.path)
			}
		})
	}
}

func TestNew_unknownDependency(t *testing.T) {
	_, err := graph.New([]*resource.Kind{kind("user", "domain")})
	if err == nil {
		t.Fatal("New() error = nil")
	}
}
