// Package sim orchestrates one sharding simulation run: it discovers the
// target's dependents, filters them by runner-tag compatibility, computes
// the shard count, runs the greedy assignment, and assembles the
// structured result.
//
// A run is a pure, deterministic function of the graph and configuration.
// Each run owns its own feature-set resolver, so concurrent runs over the
// same (immutable) graph never share mutable state.
package sim
