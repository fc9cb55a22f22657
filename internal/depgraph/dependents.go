package depgraph

import (
	"sort"

	"github.com/gammazero/deque"
)

// TraversalOptions selects which reverse edges a discovery walk follows
// and whether the walk expands past the first hop.
type TraversalOptions struct {
	// Recursive expands every discovered dependent in turn. When false,
	// only formulas one hop from the target are discovered.
	Recursive bool

	// IncludeBuild follows reverse build-dependency edges.
	IncludeBuild bool

	// IncludeTest follows reverse test-dependency edges.
	IncludeTest bool
}

// Dependents returns the sorted set of formulas that depend on target,
// directly or (when opts.Recursive) transitively. The target itself is
// never included.
//
// A target absent from the graph yields an empty result rather than an
// error; reporting "formula not found" is the caller's concern.
func (g *Graph) Dependents(target string, opts TraversalOptions) []string {
	if !g.Contains(target) {
		return []string{}
	}

	visited := map[string]bool{target: true}
	result := make([]string, 0)

	var frontier deque.Deque[string]
	frontier.PushBack(target)

	for frontier.Len() > 0 {
		current := frontier.PopFront()
		for _, neighbor := range g.reverseNeighbors(current, opts) {
			if visited[neighbor] {
				continue
			}
			visited[neighbor] = true
			result = append(result, neighbor)
			if opts.Recursive {
				frontier.PushBack(neighbor)
			}
		}
	}

	sort.Strings(result)
	return result
}

// reverseNeighbors returns the direct dependents of name: reverse runtime
// edges always, reverse build/test edges per the options. The reverse
// indices are sorted at build time, so iteration order is deterministic.
func (g *Graph) reverseNeighbors(name string, opts TraversalOptions) []string {
	neighbors := g.reverseRuntime[name]
	if !opts.IncludeBuild && !opts.IncludeTest {
		return neighbors
	}
	merged := make([]string, 0, len(neighbors))
	merged = append(merged, neighbors...)
	if opts.IncludeBuild {
		merged = append(merged, g.reverseBuild[name]...)
	}
	if opts.IncludeTest {
		merged = append(merged, g.reverseTest[name]...)
	}
	return merged
}
