// Package shard implements the greedy, capacity-aware shard assignment
// that partitions a dependent set across test runners.
//
// The heuristic is decreasing-first-fit with an overlap objective: the
// most entangled formulas (largest feature sets) are placed first, and
// each placement goes to the shard whose accumulated feature set shares
// the most with the candidate. The full tie-break chain is fixed and must
// never change, since it determines repeatability of the simulation.
package shard

import "sort"

// TieBreakRule documents the fixed selection order for human consumers of
// the explainability block.
const TieBreakRule = "max overlap, then min feature load, then min size, then lowest shard index"

// OrderEntry is one formula in assignment order with its feature count.
type OrderEntry struct {
	Name         string `json:"name"`
	FeatureCount int    `json:"feature_count"`
}

// CandidateScore is one shard's score for one placement decision.
type CandidateScore struct {
	// Shard is the 1-based shard index.
	Shard int `json:"shard"`
	// Overlap is the intersection size between the candidate formula's
	// feature set and the shard's accumulated feature set.
	Overlap int `json:"overlap"`
	// FeatureLoad and Size are the shard's pre-placement tie-break inputs.
	FeatureLoad int `json:"feature_load"`
	Size        int `json:"size"`
	// Eligible is false when the shard was at capacity for this step.
	Eligible bool `json:"eligible"`
}

// Step is an immutable record of one assignment decision.
type Step struct {
	Step         int              `json:"step"`
	Formula      string           `json:"formula"`
	FeatureCount int              `json:"feature_count"`
	ChosenShard  int              `json:"chosen_shard"`
	Candidates   []CandidateScore `json:"candidates"`
	LoadBefore   int              `json:"load_before"`
	LoadAfter    int              `json:"load_after"`
	SizeBefore   int              `json:"size_before"`
	SizeAfter    int              `json:"size_after"`
	// CapacityConstrained is true when at least one shard was at capacity
	// this step.
	CapacityConstrained bool `json:"capacity_constrained"`
	// ForcedByCapacity is true when an at-capacity shard had strictly
	// higher overlap than the shard chosen: the cap changed the outcome.
	ForcedByCapacity bool `json:"forced_by_capacity"`
}

// Assignment is the output of Assign.
type Assignment struct {
	// Shards holds the member names per shard, lexicographically sorted.
	// Sorting is cosmetic, applied after all decisions.
	Shards [][]string `json:"shards"`
	// Loads holds each shard's final feature load.
	Loads []int `json:"loads"`
	// Order is the sequence formulas were assigned in.
	Order []OrderEntry `json:"order"`
	// MaxShardSize is the capacity cap used during assignment.
	MaxShardSize int `json:"max_shard_size"`
	// Trace holds the per-step decision records, nil unless requested.
	Trace []Step `json:"trace,omitempty"`
}

// shardState is one shard's mutable accumulators during assignment.
// Each formula belongs to exactly one shard once placed, so the states
// are a plain owned slice with no sharing.
type shardState struct {
	members     []string
	features    map[string]bool
	featureLoad int
}

// Assign partitions names across shardCount shards.
//
// Placement order is descending by feature-set size, ties ascending by
// name. Capacity is max(ceil(len(names)/shardCount), 1); when every shard
// is at capacity (rounding can cause this), the cap is ignored for that
// placement so assignment always completes, and it is not re-tightened
// for the remainder of the run.
//
// shardCount below 1 is treated as 1.
func Assign(names []string, featureSets map[string][]string, shardCount int, includeTrace bool) *Assignment {
	if shardCount < 1 {
		shardCount = 1
	}

	ordered := make([]string, len(names))
	copy(ordered, names)
	sort.Slice(ordered, func(i, j int) bool {
		ci, cj := len(featureSets[ordered[i]]), len(featureSets[ordered[j]])
		if ci != cj {
			return ci > cj
		}
		return ordered[i] < ordered[j]
	})

	maxShardSize := (len(names) + shardCount - 1) / shardCount
	if maxShardSize < 1 {
		maxShardSize = 1
	}

	states := make([]shardState, shardCount)
	for i := range states {
		states[i].members = []string{}
		states[i].features = make(map[string]bool)
	}

	asg := &Assignment{
		Order:        make([]OrderEntry, 0, len(ordered)),
		MaxShardSize: maxShardSize,
	}

	for stepIndex, name := range ordered {
		features := featureSets[name]
		asg.Order = append(asg.Order, OrderEntry{Name: name, FeatureCount: len(features)})

		eligible := make([]bool, shardCount)
		anyEligible := false
		capacityConstrained := false
		for i := range states {
			if len(states[i].members) < maxShardSize {
				eligible[i] = true
				anyEligible = true
			} else {
				capacityConstrained = true
			}
		}
		if !anyEligible {
			// All shards at capacity: ignore the cap so progress completes.
			for i := range eligible {
				eligible[i] = true
			}
		}

		overlaps := make([]int, shardCount)
		chosen := -1
		for i := range states {
			overlaps[i] = overlap(features, states[i].features)
			if !eligible[i] {
				continue
			}
			if chosen < 0 || beats(overlaps[i], &states[i], overlaps[chosen], &states[chosen]) {
				chosen = i
			}
		}

		forced := false
		for i := range states {
			if !eligible[i] && overlaps[i] > overlaps[chosen] {
				forced = true
			}
		}

		if includeTrace {
			candidates := make([]CandidateScore, shardCount)
			for i := range states {
				candidates[i] = CandidateScore{
					Shard:       i + 1,
					Overlap:     overlaps[i],
					FeatureLoad: states[i].featureLoad,
					Size:        len(states[i].members),
					Eligible:    eligible[i],
				}
			}
			asg.Trace = append(asg.Trace, Step{
				Step:                stepIndex + 1,
				Formula:             name,
				FeatureCount:        len(features),
				ChosenShard:         chosen + 1,
				Candidates:          candidates,
				LoadBefore:          states[chosen].featureLoad,
				LoadAfter:           states[chosen].featureLoad + len(features),
				SizeBefore:          len(states[chosen].members),
				SizeAfter:           len(states[chosen].members) + 1,
				CapacityConstrained: capacityConstrained,
				ForcedByCapacity:    forced,
			})
		}

		states[chosen].members = append(states[chosen].members, name)
		states[chosen].featureLoad += len(features)
		for _, feat := range features {
			states[chosen].features[feat] = true
		}
	}

	asg.Shards = make([][]string, shardCount)
	asg.Loads = make([]int, shardCount)
	for i := range states {
		sort.Strings(states[i].members)
		asg.Shards[i] = states[i].members
		asg.Loads[i] = states[i].featureLoad
	}
	return asg
}

// beats reports whether a candidate shard with the given overlap and
// state wins against the current best. Lower index wins final ties via
// the caller's iteration order.
func beats(overlap int, s *shardState, bestOverlap int, best *shardState) bool {
	if overlap != bestOverlap {
		return overlap > bestOverlap
	}
	if s.featureLoad != best.featureLoad {
		return s.featureLoad < best.featureLoad
	}
	return len(s.members) < len(best.members)
}

// overlap counts how many of features are already accumulated in have.
func overlap(features []string, have map[string]bool) int {
	n := 0
	for _, feat := range features {
		if have[feat] {
			n++
		}
	}
	return n
}
