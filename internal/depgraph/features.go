package depgraph

import (
	"sort"

	"github.com/roach88/shardsim/internal/formula"
)

// featureKey identifies one memoized feature-set computation. Feature
// sets differ per edge configuration, so the flags are part of the key.
type featureKey struct {
	name         string
	includeBuild bool
	includeTest  bool
}

// FeatureResolver computes transitive forward-dependency sets
// ("features") with cross-call memoization.
//
// The resolver is the similarity signal source for shard assignment:
// formulas with overlapping feature sets share setup work and should be
// colocated on the same runner.
//
// Not safe for concurrent use. Each logical simulation run owns its own
// resolver; the memo table is not designed for concurrent writes.
type FeatureResolver struct {
	graph *Graph
	memo  map[featureKey][]string
}

// NewFeatureResolver creates a resolver over the given graph.
func NewFeatureResolver(g *Graph) *FeatureResolver {
	return &FeatureResolver{
		graph: g,
		memo:  make(map[featureKey][]string),
	}
}

// FeatureSet returns the sorted set of formula names reachable from name
// by following forward dependency edges (runtime always, build/test per
// the flags), excluding name itself.
//
// A name absent from the graph yields an empty set: dependency
// declarations may reference formulas outside the fetched dataset.
func (r *FeatureResolver) FeatureSet(name string, includeBuild, includeTest bool) []string {
	seen := map[string]bool{name: true}
	return r.resolve(name, includeBuild, includeTest, seen)
}

// resolve is the memoized recursive core.
//
// seen holds the current recursion path only. A dependency already on the
// path is counted as a feature but not re-expanded, which terminates
// cycles while the global memo still serves unrelated sibling calls.
func (r *FeatureResolver) resolve(name string, includeBuild, includeTest bool, seen map[string]bool) []string {
	key := featureKey{name: name, includeBuild: includeBuild, includeTest: includeTest}
	if cached, ok := r.memo[key]; ok {
		return cached
	}

	f, ok := r.graph.byName[name]
	if !ok {
		empty := []string{}
		r.memo[key] = empty
		return empty
	}

	features := make(map[string]bool)
	for _, dep := range r.forwardDeps(f, includeBuild, includeTest) {
		features[dep] = true
		if seen[dep] {
			continue
		}
		seen[dep] = true
		for _, sub := range r.resolve(dep, includeBuild, includeTest, seen) {
			features[sub] = true
		}
		delete(seen, dep)
	}

	// A formula is never its own feature, even through a cycle.
	delete(features, name)

	out := make([]string, 0, len(features))
	for feat := range features {
		out = append(out, feat)
	}
	sort.Strings(out)
	r.memo[key] = out
	return out
}

// forwardDeps returns the formula's direct forward edges for the given
// configuration: runtime always, build/test when enabled.
func (r *FeatureResolver) forwardDeps(f formula.Formula, includeBuild, includeTest bool) []string {
	deps := f.RuntimeDeps
	if !includeBuild && !includeTest {
		return deps
	}
	merged := make([]string, 0, len(deps))
	merged = append(merged, deps...)
	if includeBuild {
		merged = append(merged, f.BuildDeps...)
	}
	if includeTest {
		merged = append(merged, f.TestDeps...)
	}
	return merged
}
