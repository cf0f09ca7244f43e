package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, 45.0, cfg.Drive.StartAngle)
	assert.Equal(t, 0.1, cfg.Drive.Stiffness)
	assert.Equal(t, 0.05, cfg.Drive.Damping)
	assert.Equal(t, 0.05, cfg.Dt)
	assert.Equal(t, -90.0, cfg.Drive.MinAngle)
	assert.Equal(t, 90.0, cfg.Drive.MaxAngle)
	assert.NoError(t, cfg.Validate())
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name string
		mod  func(c *Config)
	}{
		{"zero dt", func(c *Config) { c.Dt = 0 }},
		{"negative duration", func(c *Config) { c.Duration = -1 }},
		{"inverted limits", func(c *Config) { c.Drive.MinAngle, c.Drive.MaxAngle = 10, -10 }},
		{"negative damping", func(c *Config) { c.Drive.Damping = -0.1 }},
		{"zero coupler", func(c *Config) { c.Geometry.Coupler = 0 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mod(cfg)
			err := cfg.Validate()
			assert.True(t, errors.Is(err, ErrInvalid), "got %v", err)
		})
	}
}

func TestLoadSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fourbar.yaml")
	cfg := DefaultConfig()
	cfg.Drive.Stiffness = 0.7
	cfg.Geometry.Input = 35
	require.NoError(t, Save(path, cfg))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)
}

func TestLoadPartialKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "partial.yaml")
	require.NoError(t, os.WriteFile(path, []byte("drive:\n  damping: 0.2\n"), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 0.2, cfg.Drive.Damping)
	assert.Equal(t, 0.1, cfg.Drive.Stiffness)
	assert.Equal(t, 100.0, cfg.Geometry.Coupler)
}

func TestModel(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Drive.Stiffness = 2
	m := cfg.Model()
	assert.Equal(t, 2.0, m.K)
	assert.Equal(t, cfg.Drive.MaxAngle, m.MaxAngle)
}

func TestApplyEnv(t *testing.T) {
	dir := t.TempDir()
	envFile := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(envFile, []byte("FOURBAR_DT=0.01\nFOURBAR_INTEGRATOR=rk4\n"), 0644))

	env, err := Environment(envFile, filepath.Join(dir, "missing.env"))
	require.NoError(t, err)

	cfg := DefaultConfig()
	require.NoError(t, ApplyEnv(cfg, env))
	assert.Equal(t, 0.01, cfg.Dt)
	assert.Equal(t, "rk4", cfg.Integrator)
}

func TestApplyEnvRejectsGarbage(t *testing.T) {
	cfg := DefaultConfig()
	err := ApplyEnv(cfg, map[string]string{"FOURBAR_STIFFNESS": "stiff"})
	assert.ErrorIs(t, err, ErrInvalid)
}

func TestGetPreset(t *testing.T) {
	cfg := GetPreset("limit-stop")
	require.NotNil(t, cfg)
	assert.Equal(t, -30.0, cfg.Drive.StartAngle)
	assert.NoError(t, cfg.Validate())

	cfg.Drive.StartAngle = 0
	assert.Equal(t, -30.0, Presets["limit-stop"].Drive.StartAngle, "GetPreset must return a copy")

	assert.Nil(t, GetPreset("nonexistent"))
}

func TestListPresets(t *testing.T) {
	names := ListPresets()
	assert.Contains(t, names, "default")
	assert.Contains(t, names, "overdamped")
	for _, n := range names {
		assert.NoError(t, GetPreset(n).Validate(), n)
	}
}

func TestLoadOverKeepsBase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "partial.yaml")
	require.NoError(t, os.WriteFile(path, []byte("dt: 0.01\n"), 0644))

	base := GetPreset("stiff")
	cfg, err := LoadOver(path, base)
	require.NoError(t, err)
	assert.Equal(t, 0.01, cfg.Dt)
	assert.Equal(t, 1.0, cfg.Drive.Stiffness)
	assert.Equal(t, 0.05, base.Dt, "base must not be modified")
}

func TestControllerTargetFollowsEquilibrium(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Drive.EqAngle = 12
	assert.Equal(t, 12.0, cfg.GetControllerParams()["target"])

	cfg.SetTarget(0)
	assert.Equal(t, 0.0, cfg.GetControllerParams()["target"])

	actuated := GetPreset("actuated")
	assert.Equal(t, 30.0, actuated.GetControllerParams()["target"])
}

func TestLoadOverDoesNotShareTarget(t *testing.T) {
	path := filepath.Join(t.TempDir(), "target.yaml")
	require.NoError(t, os.WriteFile(path, []byte("controller_params:\n  target: -15\n"), 0644))

	cfg, err := LoadOver(path, GetPreset("actuated"))
	require.NoError(t, err)
	assert.Equal(t, -15.0, cfg.GetControllerParams()["target"])
	assert.Equal(t, 30.0, *Presets["actuated"].ControllerParams.Target)
}

func TestSetDriveParam(t *testing.T) {
	cfg := DefaultConfig()
	for i, name := range DriveParams {
		require.NoError(t, cfg.SetDriveParam(name, float64(i+1)))
	}
	assert.Equal(t, DriveConfig{Stiffness: 1, Damping: 2, EqAngle: 3, MinAngle: 4, MaxAngle: 5, StartAngle: 6}, cfg.Drive)

	err := cfg.SetDriveParam("mass", 1)
	assert.True(t, errors.Is(err, ErrInvalid))
}
