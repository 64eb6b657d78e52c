package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chronovm/chronovm/config"
)

func TestDefault(t *testing.T) {
	cfg := config.Default()
	assert.True(t, cfg.GC)
	assert.Equal(t, 0, cfg.MaxSteps)
	assert.Equal(t, "text", cfg.Format)
}

func TestLoadOverridesOnlyGivenFields(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "chronovm.yaml")
	require.NoError(t, os.WriteFile(path, []byte("max_steps: 1000\n"), 0o644))

	cfg, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, 1000, cfg.MaxSteps)
	assert.True(t, cfg.GC, "unset fields should keep their Default() value")
	assert.Equal(t, "text", cfg.Format)
}

func TestLoadMissingFileReturnsError(t *testing.T) {
	_, err := config.Load(filepath.Join(t.TempDir(), "does-not-exist.yaml"))
	assert.Error(t, err)
}
