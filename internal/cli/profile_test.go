package cli

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeFile writes a test file, failing the test on error.
func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

// TestLoadProfile reads a full profile.
func TestLoadProfile(t *testing.T) {
	path := t.TempDir() + "/profile.yaml"
	writeFile(t, path, `target: zlib
max_runners: 8
min_per_runner: 3
recursive: true
include_build: true
include_test: false
runner_tag: arm64_sonoma
core_compat: true
`)

	cfg, err := LoadProfile(path)
	require.NoError(t, err)

	assert.Equal(t, "zlib", cfg.Target)
	assert.Equal(t, 8, cfg.MaxRunners)
	assert.Equal(t, 3, cfg.MinPerRunner)
	assert.True(t, cfg.Recursive)
	assert.True(t, cfg.IncludeBuild)
	assert.False(t, cfg.IncludeTest)
	assert.Equal(t, "arm64_sonoma", cfg.RunnerTag)
	assert.True(t, cfg.CoreCompat)
}

// TestLoadProfile_UnknownField rejects typoed keys.
func TestLoadProfile_UnknownField(t *testing.T) {
	path := t.TempDir() + "/profile.yaml"
	writeFile(t, path, "max_runers: 8\n")

	_, err := LoadProfile(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "max_runers")
}

// TestLoadProfile_Empty accepts an empty file as all defaults.
func TestLoadProfile_Empty(t *testing.T) {
	path := t.TempDir() + "/profile.yaml"
	writeFile(t, path, "")

	cfg, err := LoadProfile(path)
	require.NoError(t, err)
	assert.Zero(t, cfg.MaxRunners)
}

// TestLoadProfile_Missing reports the unreadable file.
func TestLoadProfile_Missing(t *testing.T) {
	_, err := LoadProfile("does-not-exist.yaml")
	require.Error(t, err)
}
