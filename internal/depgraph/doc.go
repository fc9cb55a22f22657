// Package depgraph builds the forward and reverse dependency views over a
// normalized formula set and answers the two traversal questions the
// simulator needs: "who depends on X?" (reverse, breadth-first) and
// "what does X transitively pull in?" (forward, memoized).
//
// Determinism is load-bearing throughout: every reverse-edge list is
// deduplicated and lexicographically sorted at build time, and every
// result slice is sorted before it is returned, so downstream shard
// assignment is a pure function of the input dataset.
package depgraph
