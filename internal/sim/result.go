package sim

import (
	"encoding/json"
	"time"

	"github.com/roach88/shardsim/internal/shard"
)

// Config is the full configuration surface of one simulation run.
// Minimums are clamped to valid ranges before use rather than rejected;
// this is a simulator, and sensible defaults matter more than strict
// validation.
type Config struct {
	// Target is the formula whose dependents are sharded.
	Target string `json:"target" yaml:"target"`

	// MaxRunners bounds the shard count (>= 1).
	MaxRunners int `json:"max_runners" yaml:"max_runners"`

	// MinPerRunner is the minimum dependents per runner before another
	// shard is opened (>= 1).
	MinPerRunner int `json:"min_per_runner" yaml:"min_per_runner"`

	// Recursive discovers transitive dependents, not just direct ones.
	Recursive bool `json:"recursive" yaml:"recursive"`

	// IncludeBuild and IncludeTest follow build/test dependency edges in
	// both discovery and feature-set computation.
	IncludeBuild bool `json:"include_build" yaml:"include_build"`
	IncludeTest  bool `json:"include_test" yaml:"include_test"`

	// RunnerTag filters dependents by bottle platform tag. The wildcard
	// "all" (also the default for an empty tag) filters nothing.
	RunnerTag string `json:"runner_tag" yaml:"runner_tag"`

	// CoreCompat models the legacy behavior where every shard redundantly
	// re-runs the full compatible set instead of its partition.
	CoreCompat bool `json:"core_compat" yaml:"core_compat"`
}

// ShardSummary describes one shard in the result.
type ShardSummary struct {
	Index       int      `json:"index"`
	Size        int      `json:"size"`
	FeatureLoad int      `json:"feature_load"`
	Members     []string `json:"members"`
}

// Explanation is the conditional explainability block. It is included
// only when the compatible-dependent count is below ExplainThreshold,
// to bound output size.
type Explanation struct {
	TieBreakRule string             `json:"tie_break_rule"`
	MaxShardSize int                `json:"max_shard_size"`
	Order        []shard.OrderEntry `json:"order"`
	Trace        []shard.Step       `json:"trace"`
}

// Result is the structured output of one simulation run.
//
// When the target formula is absent from the dataset, Error is the only
// populated field and the JSON encoding collapses to a single-field
// object; callers should check it before reading anything else. The core
// never produces a partial payload.
type Result struct {
	Error string `json:"error,omitempty"`

	RunID       string    `json:"run_id"`
	GeneratedAt time.Time `json:"generated_at"`
	Config      Config    `json:"config"`

	DiscoveredCount int `json:"discovered_count"`
	CompatibleCount int `json:"compatible_count"`
	FilteredCount   int `json:"filtered_count"`

	ShardCount int            `json:"shard_count"`
	Shards     []ShardSummary `json:"shards"`

	Compatible []string `json:"compatible"`
	Filtered   []string `json:"filtered"`

	TotalTestsExecutedEstimate int `json:"total_tests_executed_estimate"`
	DuplicateWorkEstimate      int `json:"duplicate_work_estimate"`

	Explanation *Explanation `json:"explanation,omitempty"`
}

// MarshalJSON collapses an error result to its single error field, so a
// not-found target renders as {"error": "..."} rather than a zeroed
// payload.
func (r Result) MarshalJSON() ([]byte, error) {
	if r.Error != "" {
		return json.Marshal(struct {
			Error string `json:"error"`
		}{Error: r.Error})
	}
	type plain Result
	return json.Marshal(plain(r))
}
