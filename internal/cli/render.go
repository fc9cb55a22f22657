package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/roach88/shardsim/internal/sim"
)

// renderResultText writes a human-readable summary of a simulation result.
// The JSON format carries the full payload; text is a digest for terminals.
func renderResultText(w io.Writer, r *sim.Result) {
	fmt.Fprintf(w, "Sharding simulation for %s (run %s)\n", r.Config.Target, r.RunID)
	fmt.Fprintf(w, "  generated:    %s\n", r.GeneratedAt.Format("2006-01-02 15:04:05 MST"))
	fmt.Fprintf(w, "  dependents:   %d discovered, %d compatible, %d filtered (tag %q)\n",
		r.DiscoveredCount, r.CompatibleCount, r.FilteredCount, r.Config.RunnerTag)
	fmt.Fprintf(w, "  shards:       %d (max runners %d, min per runner %d)\n",
		r.ShardCount, r.Config.MaxRunners, r.Config.MinPerRunner)
	fmt.Fprintf(w, "  est. tests:   %d executed, %d duplicate\n",
		r.TotalTestsExecutedEstimate, r.DuplicateWorkEstimate)

	for _, s := range r.Shards {
		fmt.Fprintf(w, "  shard %d: %d members, feature load %d\n", s.Index, s.Size, s.FeatureLoad)
		if len(s.Members) > 0 {
			fmt.Fprintf(w, "    %s\n", strings.Join(s.Members, ", "))
		}
	}

	if r.Explanation != nil {
		fmt.Fprintf(w, "  explainability: max shard size %d, tie-break: %s\n",
			r.Explanation.MaxShardSize, r.Explanation.TieBreakRule)
		for _, step := range r.Explanation.Trace {
			flags := ""
			if step.ForcedByCapacity {
				flags = " [forced by capacity]"
			} else if step.CapacityConstrained {
				flags = " [capacity constrained]"
			}
			fmt.Fprintf(w, "    step %d: %s (%d features) -> shard %d%s\n",
				step.Step, step.Formula, step.FeatureCount, step.ChosenShard, flags)
		}
	}
}
