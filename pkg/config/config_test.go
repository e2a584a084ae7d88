package config

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pointfit/pkg/registration"
	"pointfit/pkg/solver"
	"pointfit/pkg/transform"
)

// TestDefaultConfig verifies the defaults select forward rigid plus scale registration
func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, "full", cfg.Registration.Variant)
	assert.Equal(t, runtime.NumCPU(), cfg.Registration.NumCores)
	assert.Equal(t, solver.DefaultXTol, cfg.Solver.XTol)
	assert.Zero(t, cfg.Solver.MaxFev)
	assert.True(t, cfg.Output.Verbose)

	opts, err := cfg.RegistrationOptions()
	require.NoError(t, err)
	assert.Equal(t, transform.RigidScale, opts.Stages)
	assert.Equal(t, registration.Forward, opts.Direction)
	assert.Equal(t, transform.Homogeneous, cfg.RowConvention())
}

func TestLoadConfigMissingFileGivesDefaults(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
}

// TestLoadConfigOverrides verifies that a partial file only overrides the keys it names
func TestLoadConfigOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
registration:
  variant: rigid-scale
  translate: true
  rotate: false
  scale: true
  reverse: true
solver:
  maxfev: 500
transform:
  legacyHomogeneousRow: true
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, 500, cfg.Solver.MaxFev)
	assert.Equal(t, solver.DefaultXTol, cfg.Solver.XTol)

	opts, err := cfg.RegistrationOptions()
	require.NoError(t, err)
	assert.Equal(t, transform.Translate|transform.Scale, opts.Stages)
	assert.Equal(t, registration.Reverse, opts.Direction)
	assert.Equal(t, 500, opts.Solver.MaxFev)
	assert.Equal(t, transform.LegacyRow, cfg.RowConvention())
}

func TestLoadConfigErrors(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("registration: [\n"), 0644))
	_, err := LoadConfig(path)
	assert.Error(t, err)

	cfg := DefaultConfig()
	cfg.Registration.Variant = "shear"
	_, err = cfg.RegistrationOptions()
	assert.Error(t, err)
}

func TestSaveConfigRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	require.NoError(t, CreateDefaultConfigFile(path))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)

	cfg.Registration.Variant = "anisotropic"
	cfg.Output.PreviewDir = "preview"
	require.NoError(t, SaveConfig(cfg, path))

	again, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, again)

	stages, err := again.Stages()
	require.NoError(t, err)
	assert.Equal(t, transform.RigidAnisotropic, stages)
}
