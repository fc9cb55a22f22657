package sim

import "github.com/google/uuid"

// RunIDGenerator produces unique identifiers for simulation results.
// Implemented by UUIDv7Generator (production) and FixedGenerator (tests).
type RunIDGenerator interface {
	Generate() string
}

// UUIDv7Generator generates time-sortable UUIDv7 run IDs, so results
// collected from repeated runs sort by creation time.
//
// Stateless and safe for concurrent use.
type UUIDv7Generator struct{}

// Generate creates a new UUIDv7 as a hyphenated string.
// Panics if UUID generation fails (should never happen in practice).
func (g UUIDv7Generator) Generate() string {
	return uuid.Must(uuid.NewV7()).String()
}

// FixedGenerator returns a fixed run ID. Used by tests and golden
// comparisons that need byte-identical output across runs.
type FixedGenerator struct {
	ID string
}

// Generate returns the fixed ID.
func (g FixedGenerator) Generate() string {
	return g.ID
}
