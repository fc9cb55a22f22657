package formula

// RawRecord is one untyped package record as delivered by the upstream
// metadata feed. Field names follow the upstream JSON API.
type RawRecord map[string]any

// Formula is the normalized shape of one package record.
//
// Dependency lists may reference formulas that are not present in the
// fetched dataset; consumers must treat unknown names as leaves.
//
// Formulas are immutable once normalized. One set is built per simulation
// run and discarded afterwards.
type Formula struct {
	// Name uniquely identifies the formula. NFC-normalized.
	Name string `json:"name"`

	// RuntimeDeps are dependency names required at runtime.
	RuntimeDeps []string `json:"runtime_deps"`

	// BuildDeps are dependency names required only at build time.
	BuildDeps []string `json:"build_deps"`

	// TestDeps are dependency names required only by the test block.
	TestDeps []string `json:"test_deps"`

	// BottleTags are the platform tags the stable bottle is built for.
	// An empty set means the formula is compatible with every runner.
	BottleTags []string `json:"bottle_tags"`
}

// HasTag reports whether the formula's bottle set covers the given
// platform tag. The wildcard tag "all" on either side always matches,
// and a formula with no tags at all is compatible with everything.
func (f Formula) HasTag(tag string) bool {
	if tag == WildcardTag || len(f.BottleTags) == 0 {
		return true
	}
	for _, t := range f.BottleTags {
		if t == tag || t == WildcardTag {
			return true
		}
	}
	return false
}

// WildcardTag matches every runner platform.
const WildcardTag = "all"
