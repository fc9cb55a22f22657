package cli

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/roach88/shardsim/internal/sim"
)

// LoadProfile reads a simulation configuration from a YAML file.
//
// Profiles carry the same fields as the simulate command's flags; flags
// set explicitly on the command line override profile values. Unknown
// keys are rejected so a typoed field fails loudly instead of silently
// using a default.
func LoadProfile(path string) (sim.Config, error) {
	var cfg sim.Config

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("failed to read profile %s: %w", path, err)
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil {
		// An empty profile is a valid (all-defaults) profile.
		if errors.Is(err, io.EOF) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("failed to parse profile %s: %w", path, err)
	}
	return cfg, nil
}
