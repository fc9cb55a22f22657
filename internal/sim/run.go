package sim

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/roach88/shardsim/internal/depgraph"
	"github.com/roach88/shardsim/internal/formula"
	"github.com/roach88/shardsim/internal/shard"
)

// ExplainThreshold is the compatible-dependent count at or above which
// the explainability block is omitted from the result.
const ExplainThreshold = 30

// Runner executes simulation runs against a graph.
//
// The zero value is not usable; construct with NewRunner. Clock and ID
// generation are injectable so tests and golden comparisons can produce
// byte-identical results.
type Runner struct {
	now   func() time.Time
	runID RunIDGenerator
}

// RunnerOption configures a Runner.
type RunnerOption func(*Runner)

// WithClock overrides the wall clock used for result timestamps.
func WithClock(now func() time.Time) RunnerOption {
	return func(r *Runner) {
		r.now = now
	}
}

// WithRunIDGenerator overrides the run ID source.
func WithRunIDGenerator(gen RunIDGenerator) RunnerOption {
	return func(r *Runner) {
		r.runID = gen
	}
}

// NewRunner creates a Runner with production defaults: wall clock time
// and UUIDv7 run IDs.
func NewRunner(opts ...RunnerOption) *Runner {
	r := &Runner{
		now:   time.Now,
		runID: UUIDv7Generator{},
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run executes one simulation over the graph.
//
// The pipeline is discover -> filter by runner tag -> resolve feature
// sets -> assign shards -> assemble. It is synchronous and deterministic:
// two runs with identical graph and configuration produce identical shard
// contents and trace ordering (timestamps and run IDs aside).
//
// A target absent from the graph yields an error result, not a Go error.
func (r *Runner) Run(g *depgraph.Graph, cfg Config) *Result {
	cfg = clampConfig(cfg)

	if !g.Contains(cfg.Target) {
		return &Result{Error: fmt.Sprintf("formula not found: %s", cfg.Target)}
	}

	discovered := g.Dependents(cfg.Target, depgraph.TraversalOptions{
		Recursive:    cfg.Recursive,
		IncludeBuild: cfg.IncludeBuild,
		IncludeTest:  cfg.IncludeTest,
	})

	compatible, filtered := splitByTag(g, discovered, cfg.RunnerTag)
	slog.Debug("dependents discovered",
		"target", cfg.Target,
		"discovered", len(discovered),
		"compatible", len(compatible),
		"filtered", len(filtered))

	shardCount := clamp(len(compatible)/cfg.MinPerRunner, 1, cfg.MaxRunners)

	resolver := depgraph.NewFeatureResolver(g)
	featureSets := make(map[string][]string, len(compatible))
	for _, name := range compatible {
		featureSets[name] = resolver.FeatureSet(name, cfg.IncludeBuild, cfg.IncludeTest)
	}

	includeTrace := len(compatible) < ExplainThreshold
	asg := shard.Assign(compatible, featureSets, shardCount, includeTrace)

	total := len(compatible)
	if cfg.CoreCompat && shardCount > 1 {
		total = len(compatible) * shardCount
	}
	duplicate := total - len(compatible)
	if duplicate < 0 {
		duplicate = 0
	}

	result := &Result{
		RunID:           r.runID.Generate(),
		GeneratedAt:     r.now().UTC(),
		Config:          cfg,
		DiscoveredCount: len(discovered),
		CompatibleCount: len(compatible),
		FilteredCount:   len(filtered),
		ShardCount:      shardCount,
		Shards:          summarize(asg),
		Compatible:      compatible,
		Filtered:        filtered,

		TotalTestsExecutedEstimate: total,
		DuplicateWorkEstimate:      duplicate,
	}

	if includeTrace {
		result.Explanation = &Explanation{
			TieBreakRule: shard.TieBreakRule,
			MaxShardSize: asg.MaxShardSize,
			Order:        asg.Order,
			Trace:        asg.Trace,
		}
	}
	return result
}

// clampConfig applies the degenerate-configuration policy: minimums of 1
// and the wildcard tag for an empty tag.
func clampConfig(cfg Config) Config {
	if cfg.MaxRunners < 1 {
		cfg.MaxRunners = 1
	}
	if cfg.MinPerRunner < 1 {
		cfg.MinPerRunner = 1
	}
	if cfg.RunnerTag == "" {
		cfg.RunnerTag = formula.WildcardTag
	}
	return cfg
}

// splitByTag partitions names into tag-compatible and filtered-out sets,
// preserving the incoming (sorted) order.
func splitByTag(g *depgraph.Graph, names []string, tag string) (compatible, filtered []string) {
	compatible = make([]string, 0, len(names))
	filtered = []string{}
	for _, name := range names {
		f, ok := g.Lookup(name)
		if ok && f.HasTag(tag) {
			compatible = append(compatible, name)
		} else {
			filtered = append(filtered, name)
		}
	}
	return compatible, filtered
}

// summarize converts the assignment's raw shard lists into result
// summaries with 1-based indices.
func summarize(asg *shard.Assignment) []ShardSummary {
	shards := make([]ShardSummary, len(asg.Shards))
	for i, members := range asg.Shards {
		shards[i] = ShardSummary{
			Index:       i + 1,
			Size:        len(members),
			FeatureLoad: asg.Loads[i],
			Members:     members,
		}
	}
	return shards
}

// clamp bounds v to [lo, hi].
func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
