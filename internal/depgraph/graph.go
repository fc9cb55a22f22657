package depgraph

import (
	"sort"

	"github.com/roach88/shardsim/internal/formula"
)

// Graph is a read-only view over a formula set: a forward lookup by name
// plus one reverse-edge index per dependency kind. Each reverse index maps
// a dependency name to the sorted, deduplicated list of formulas that
// declare it as that kind of dependency.
//
// A Graph is immutable after Build and safe for concurrent reads. It is
// built once per simulation run and discarded afterwards.
type Graph struct {
	byName         map[string]formula.Formula
	reverseRuntime map[string][]string
	reverseBuild   map[string][]string
	reverseTest    map[string][]string
}

// Build constructs the graph from normalized formulas.
//
// Duplicate names are resolved last-write-wins; this is a defensive
// default for a feed that should not contain duplicates, not a
// correctness guarantee. Reverse-edge lists are deduplicated and sorted
// after all insertions so that discovery and feature-set results are
// deterministic regardless of input ordering.
func Build(formulas []formula.Formula) *Graph {
	g := &Graph{
		byName:         make(map[string]formula.Formula, len(formulas)),
		reverseRuntime: make(map[string][]string),
		reverseBuild:   make(map[string][]string),
		reverseTest:    make(map[string][]string),
	}

	for _, f := range formulas {
		g.byName[f.Name] = f
		appendEdges(g.reverseRuntime, f.Name, f.RuntimeDeps)
		appendEdges(g.reverseBuild, f.Name, f.BuildDeps)
		appendEdges(g.reverseTest, f.Name, f.TestDeps)
	}

	sortIndex(g.reverseRuntime)
	sortIndex(g.reverseBuild)
	sortIndex(g.reverseTest)
	return g
}

// Lookup returns the formula with the given name, if present.
func (g *Graph) Lookup(name string) (formula.Formula, bool) {
	f, ok := g.byName[name]
	return f, ok
}

// Contains reports whether a formula with the given name is in the graph.
func (g *Graph) Contains(name string) bool {
	_, ok := g.byName[name]
	return ok
}

// Len returns the number of formulas in the graph.
func (g *Graph) Len() int {
	return len(g.byName)
}

// appendEdges records dependent as a reverse edge of every declared dep.
// Index entries are created on demand.
func appendEdges(index map[string][]string, dependent string, deps []string) {
	for _, dep := range deps {
		index[dep] = append(index[dep], dependent)
	}
}

// sortIndex deduplicates and lexicographically sorts every entry in a
// reverse index. Idempotent: a second pass over sorted input is a no-op.
func sortIndex(index map[string][]string) {
	for dep, dependents := range index {
		index[dep] = sortedUnique(dependents)
	}
}

// sortedUnique returns the sorted, deduplicated copy of names.
func sortedUnique(names []string) []string {
	out := make([]string, len(names))
	copy(out, names)
	sort.Strings(out)
	n := 0
	for i, name := range out {
		if i > 0 && name == out[n-1] {
			continue
		}
		out[n] = name
		n++
	}
	return out[:n]
}
