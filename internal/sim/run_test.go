package sim

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/shardsim/internal/depgraph"
	"github.com/roach88/shardsim/internal/formula"
)

// testRunner returns a Runner with a fixed clock and run ID so results
// are fully deterministic.
func testRunner() *Runner {
	return NewRunner(
		WithClock(func() time.Time {
			return time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC)
		}),
		WithRunIDGenerator(FixedGenerator{ID: "run-test"}),
	)
}

// fanOutGraph builds a target with n direct runtime dependents, each
// tagged per the tags map (absent = untagged).
func fanOutGraph(n int, tags map[int][]string) *depgraph.Graph {
	formulas := []formula.Formula{{Name: "target"}}
	for i := 0; i < n; i++ {
		f := formula.Formula{
			Name:        fmt.Sprintf("dep-%02d", i),
			RuntimeDeps: []string{"target"},
		}
		if t, ok := tags[i]; ok {
			f.BottleTags = t
		}
		formulas = append(formulas, f)
	}
	return depgraph.Build(formulas)
}

// TestRun_NotFound yields a single-field error result, not a Go error.
func TestRun_NotFound(t *testing.T) {
	g := fanOutGraph(3, nil)
	result := testRunner().Run(g, Config{Target: "no-such-formula"})

	assert.Equal(t, "formula not found: no-such-formula", result.Error)
	assert.Empty(t, result.RunID)
	assert.Zero(t, result.ShardCount)
}

// TestRun_ShardCountClamp verifies
// shard_count = clamp(compatible/min_per_runner, 1, max_runners).
func TestRun_ShardCountClamp(t *testing.T) {
	cases := []struct {
		name         string
		dependents   int
		maxRunners   int
		minPerRunner int
		want         int
	}{
		{"floor division", 10, 10, 3, 3},
		{"capped by max runners", 40, 4, 5, 4},
		{"at least one", 2, 10, 5, 1},
		{"zero dependents", 0, 10, 5, 1},
		{"degenerate config clamps to one runner", 10, 0, 0, 1},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			g := fanOutGraph(tc.dependents, nil)
			result := testRunner().Run(g, Config{
				Target:       "target",
				MaxRunners:   tc.maxRunners,
				MinPerRunner: tc.minPerRunner,
			})
			require.Empty(t, result.Error)
			assert.Equal(t, tc.want, result.ShardCount)
			assert.GreaterOrEqual(t, result.ShardCount, 1)
			assert.Equal(t, tc.dependents, result.CompatibleCount)
		})
	}
}

// TestRun_WildcardTagFiltersNothing verifies runner_tag="all" keeps every
// discovered dependent.
func TestRun_WildcardTagFiltersNothing(t *testing.T) {
	g := fanOutGraph(6, map[int][]string{
		0: {"arm64_sonoma"},
		1: {"x86_64_linux"},
	})
	result := testRunner().Run(g, Config{
		Target:     "target",
		MaxRunners: 3,
		RunnerTag:  formula.WildcardTag,
	})

	require.Empty(t, result.Error)
	assert.Equal(t, 6, result.DiscoveredCount)
	assert.Equal(t, 6, result.CompatibleCount)
	assert.Equal(t, 0, result.FilteredCount)
	assert.Empty(t, result.Filtered)
}

// TestRun_TagFiltering verifies the compatibility rule: matching tag,
// wildcard bottle, or no tags at all.
func TestRun_TagFiltering(t *testing.T) {
	g := fanOutGraph(4, map[int][]string{
		0: {"arm64_sonoma"},      // matches
		1: {"x86_64_linux"},      // filtered
		2: {formula.WildcardTag}, // wildcard bottle matches
		3: nil,                   // untagged matches
	})
	result := testRunner().Run(g, Config{
		Target:     "target",
		MaxRunners: 2,
		RunnerTag:  "arm64_sonoma",
	})

	require.Empty(t, result.Error)
	assert.Equal(t, 4, result.DiscoveredCount)
	assert.Equal(t, []string{"dep-00", "dep-02", "dep-03"}, result.Compatible)
	assert.Equal(t, []string{"dep-01"}, result.Filtered)
	assert.Equal(t, 3, result.CompatibleCount)
	assert.Equal(t, 1, result.FilteredCount)
}

// TestRun_CoreCompatEstimates verifies the duplicate-work model:
// core_compat with 3 shards over 40 compatible dependents re-runs the
// full set per shard.
func TestRun_CoreCompatEstimates(t *testing.T) {
	g := fanOutGraph(40, nil)
	result := testRunner().Run(g, Config{
		Target:       "target",
		MaxRunners:   3,
		MinPerRunner: 5,
		CoreCompat:   true,
	})

	require.Empty(t, result.Error)
	assert.Equal(t, 40, result.CompatibleCount)
	assert.Equal(t, 3, result.ShardCount)
	assert.Equal(t, 120, result.TotalTestsExecutedEstimate)
	assert.Equal(t, 80, result.DuplicateWorkEstimate)
}

// TestRun_CoreCompatSingleShard verifies core_compat adds nothing when
// there is only one shard.
func TestRun_CoreCompatSingleShard(t *testing.T) {
	g := fanOutGraph(3, nil)
	result := testRunner().Run(g, Config{
		Target:     "target",
		MaxRunners: 1,
		CoreCompat: true,
	})

	require.Empty(t, result.Error)
	assert.Equal(t, 1, result.ShardCount)
	assert.Equal(t, 3, result.TotalTestsExecutedEstimate)
	assert.Equal(t, 0, result.DuplicateWorkEstimate)
}

// TestRun_ExplainThresholdBoundary verifies the explainability block is
// included at 29 compatible dependents and omitted at 30.
func TestRun_ExplainThresholdBoundary(t *testing.T) {
	runner := testRunner()

	result := runner.Run(fanOutGraph(29, nil), Config{Target: "target", MaxRunners: 3})
	require.Empty(t, result.Error)
	require.NotNil(t, result.Explanation, "29 compatible: trace included")
	assert.Len(t, result.Explanation.Trace, 29)
	assert.NotEmpty(t, result.Explanation.TieBreakRule)

	result = runner.Run(fanOutGraph(30, nil), Config{Target: "target", MaxRunners: 3})
	require.Empty(t, result.Error)
	assert.Nil(t, result.Explanation, "30 compatible: trace omitted")
}

// TestRun_PartitionsCompatibleSet verifies shard members partition the
// compatible set exactly.
func TestRun_PartitionsCompatibleSet(t *testing.T) {
	g := fanOutGraph(17, nil)
	result := testRunner().Run(g, Config{
		Target:       "target",
		MaxRunners:   4,
		MinPerRunner: 4,
	})
	require.Empty(t, result.Error)

	seen := map[string]int{}
	total := 0
	for _, s := range result.Shards {
		assert.Equal(t, s.Size, len(s.Members))
		total += s.Size
		for _, m := range s.Members {
			seen[m]++
		}
	}
	assert.Equal(t, result.CompatibleCount, total)
	for _, name := range result.Compatible {
		assert.Equal(t, 1, seen[name], "%s must be in exactly one shard", name)
	}
}

// TestRun_Deterministic verifies identical inputs and configuration
// produce identical shard contents and trace ordering.
func TestRun_Deterministic(t *testing.T) {
	cfg := Config{
		Target:       "target",
		MaxRunners:   4,
		MinPerRunner: 2,
		Recursive:    true,
	}
	first := testRunner().Run(fanOutGraph(12, nil), cfg)
	second := testRunner().Run(fanOutGraph(12, nil), cfg)

	assert.Equal(t, first, second)
}

// TestRun_RecursiveSupersetOfDirect mirrors the zlib example: recursive
// discovery is a superset of the direct case.
func TestRun_RecursiveSupersetOfDirect(t *testing.T) {
	g := depgraph.Build([]formula.Formula{
		{Name: "zlib"},
		{Name: "libpng", RuntimeDeps: []string{"zlib"}},
		{Name: "curl", RuntimeDeps: []string{"zlib"}},
		{Name: "imagemagick", RuntimeDeps: []string{"libpng"}},
	})
	runner := testRunner()

	direct := runner.Run(g, Config{Target: "zlib", MaxRunners: 2})
	recursive := runner.Run(g, Config{Target: "zlib", MaxRunners: 2, Recursive: true})

	assert.Equal(t, []string{"curl", "libpng"}, direct.Compatible)
	assert.Equal(t, []string{"curl", "imagemagick", "libpng"}, recursive.Compatible)
	assert.Subset(t, recursive.Compatible, direct.Compatible)
}

// TestRun_ConfigEcho verifies the clamped configuration is echoed back.
func TestRun_ConfigEcho(t *testing.T) {
	g := fanOutGraph(2, nil)
	result := testRunner().Run(g, Config{Target: "target", MaxRunners: -3})

	require.Empty(t, result.Error)
	assert.Equal(t, 1, result.Config.MaxRunners)
	assert.Equal(t, 1, result.Config.MinPerRunner)
	assert.Equal(t, formula.WildcardTag, result.Config.RunnerTag)
	assert.Equal(t, "run-test", result.RunID)
	assert.Equal(t, time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC), result.GeneratedAt)
}
