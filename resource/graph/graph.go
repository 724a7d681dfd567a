// Package graph orders kinds by their dependencies.
package graph

import (
	"sort"
	"strings"

	"github.com/func/seeder/resource"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/graph"
	"gonum.org/v1/gonum/graph/simple"
	"gonum.org/v1/gonum/graph/topo"
)

// A Graph maintains kinds and their dependency order.
//
// The Graph should be created with New().
type Graph struct {
	*simple.DirectedGraph

	nodes map[string]*kindNode
	order []*resource.Kind
}

type kindNode struct {
	graph.Node
	kind *resource.Kind
}

// New creates a dependency graph of the given kinds. An edge is added from
// every dependency to the dependent kind.
//
// The resulting order is stable for the same input. A cycle returns an error
// with class DependencyCycle that names the kinds in the cycle.
func New(kinds []*resource.Kind) (*Graph, error) {
	g := &Graph{
		DirectedGraph: simple.NewDirectedGraph(),
		nodes:         make(map[string]*kindNode, len(kinds)),
	}

	for _, k := range kinds {
		if _, dup := g.nodes[k.Name]; dup {
			return nil, errors.Errorf("duplicate kind %q", k.Name)
		}
		n := &kindNode{Node: g.NewNode(), kind: k}
		g.AddNode(n)
		g.nodes[k.Name] = n
	}

	for _, k := range kinds {
		child := g.nodes[k.Name]
		for _, dep := range k.Dependencies() {
			if dep == k.Name {
				return nil, &resource.Error{
					Class: resource.DependencyCycle,
					Err:   errors.Errorf("dependency cycle: %s -> %s", k.Name, k.Name),
				}
			}
			parent, ok := g.nodes[dep]
			if !ok {
				return nil, errors.Errorf("kind %q depends on unknown kind %q", k.Name, dep)
			}
			g.SetEdge(g.NewEdge(parent, child))
		}
	}

	sorted, err := topo.SortStabilized(g, byIDDesc)
	if err != nil {
		return nil, &resource.Error{
			Class: resource.DependencyCycle,
			Err:   errors.Errorf("dependency cycle: %s", g.cyclePath()),
		}
	}

	g.order = make([]*resource.Kind, len(sorted))
	for i, n := range sorted {
		g.order[i] = n.(*kindNode).kind
	}

	return g, nil
}

// byIDDesc visits later kinds first. The sort emits nodes in reverse visit
// order, which keeps independent kinds close to their input order.
func byIDDesc(nodes []graph.Node) {
	sort.Slice(nodes, func(i, j int) bool { return nodes[i].ID() > nodes[j].ID() })
}

// cyclePath formats the first cycle in the graph, such as "a -> b -> a".
func (g *Graph) cyclePath() string {
	cycles := topo.DirectedCyclesIn(g)
	if len(cycles) == 0 {
		return "unknown"
	}
	sort.Slice(cycles, func(i, j int) bool {
		return cycles[i][0].ID() < cycles[j][0].ID()
	})
	cycle := cycles[0]
	names := make([]string, 0, len(cycle)+1)
	for _, n := range cycle {
		names = append(names, n.(*kindNode).kind.Name)
	}
	if cycle[0].ID() != cycle[len(cycle)-1].ID() {
		names = append(names, names[0])
	}
	return strings.Join(names, " -> ")
}

// Order returns every kind in dependency order.
func (g *Graph) Order() []*resource.Kind {
	return append([]*resource.Kind(nil), g.order...)
}

// Plan returns the named kinds in dependency order. Names that are not in the
// graph are ignored.
func (g *Graph) Plan(names []string) []*resource.Kind {
	want := make(map[string]bool, len(names))
	for _, n := range names {
		want[n] = true
	}
	var out []*resource.Kind
	for _, k := range g.order {
		if want[k.Name] {
			out = append(out, k)
		}
	}
	return out
}

// Parents returns the names of the kinds the named kind directly depends on,
// in dependency order.
func (g *Graph) Parents(name string) []string {
	n, ok := g.nodes[name]
	if !ok {
		return nil
	}
	parents := make(map[int64]bool)
	it := g.To(n.ID())
	for it.Next() {
		parents[it.Node().ID()] = true
	}
	var out []string
	for _, k := range g.order {
		if parents[g.nodes[k.Name].ID()] {
			out = append(out, k.Name)
		}
	}
	return out
}
