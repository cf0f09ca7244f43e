package experiment

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/san-kum/fourbar/internal/config"
	"github.com/san-kum/fourbar/internal/models"
)

func TestRegistryIntegrators(t *testing.T) {
	r := NewRegistry()
	for _, name := range []string{"euler", "symplectic", "rk4", "verlet", "exact"} {
		integ, err := r.GetIntegrator(name)
		require.NoError(t, err, name)
		assert.NotNil(t, integ)
	}
	_, err := r.GetIntegrator("leapfrog")
	assert.Error(t, err)
}

func TestRegistryControllers(t *testing.T) {
	r := NewRegistry()
	ctrl, err := r.GetController("none", nil)
	require.NoError(t, err)
	assert.Equal(t, []float64{0}, []float64(ctrl.Compute([]float64{1, 0}, 0)))

	ctrl, err = r.GetController("constant", map[string]float64{"torque": 0.5})
	require.NoError(t, err)
	assert.Equal(t, 0.5, ctrl.Compute([]float64{1, 0}, 0)[0])
	assert.Equal(t, []string{"constant", "none", "pid"}, r.ListControllers())

	_, err = r.GetController("lqr", nil)
	assert.Error(t, err)
}

func TestExperimentRunSettles(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Duration = 600

	e := New(cfg, NewRegistry())
	require.NoError(t, e.Setup())

	result, err := e.Run(context.Background())
	require.NoError(t, err)

	assert.True(t, result.Settled)
	assert.Greater(t, result.SettledAt, 0.0)
	for _, name := range []string{"energy", "peak_damping", "limit_hits", "overshoot", "stability", "control_effort"} {
		assert.Contains(t, result.Metrics, name)
	}
	for _, s := range result.States {
		assert.GreaterOrEqual(t, s[0], cfg.Drive.MinAngle)
		assert.LessOrEqual(t, s[0], cfg.Drive.MaxAngle)
	}
}

func TestDefaultConfigSettlesBeforeDuration(t *testing.T) {
	cfg := config.DefaultConfig()

	e := New(cfg, NewRegistry())
	require.NoError(t, e.Setup())
	result, err := e.Run(context.Background())
	require.NoError(t, err)

	require.True(t, result.Settled, "final state %v", result.States[len(result.States)-1])
	assert.Less(t, result.SettledAt, cfg.Duration)
	assert.InDelta(t, result.SettledAt, result.Times[len(result.Times)-1], 1e-9)
}

func TestUnderdampedPresetSettles(t *testing.T) {
	e := New(config.GetPreset("underdamped"), NewRegistry())
	require.NoError(t, e.Setup())
	result, err := e.Run(context.Background())
	require.NoError(t, err)
	assert.True(t, result.Settled)
}

func TestExperimentRejectsInvalidConfig(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Dt = -1
	e := New(cfg, NewRegistry())
	assert.ErrorIs(t, e.Setup(), config.ErrInvalid)

	_, err := e.Run(context.Background())
	assert.Error(t, err)
}

func TestExperimentSession(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Drive.StartAngle = 30
	e := New(cfg, NewRegistry())
	require.NoError(t, e.Setup())

	s, err := e.Session()
	require.NoError(t, err)
	assert.Equal(t, 30.0, s.Theta())
}

func TestSweepStartAngles(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Duration = 20
	points, err := SweepStartAngles(context.Background(), cfg, NewRegistry(), 5)
	require.NoError(t, err)
	require.Len(t, points, 5)
	assert.Equal(t, -90.0, points[0].StartAngle)
	assert.Equal(t, 90.0, points[4].StartAngle)
	assert.Equal(t, 0.0, points[2].StartAngle)

	// Starting at equilibrium and at rest settles on the first step.
	assert.True(t, points[2].Result.Settled)
	assert.Equal(t, 1, points[2].Result.StepsTaken)
}

func TestPIDDefaultsToEquilibrium(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Controller = "pid"
	cfg.Drive.EqAngle = 20

	e := New(cfg, NewRegistry())
	require.NoError(t, e.Setup())
	result, err := e.Run(context.Background())
	require.NoError(t, err)

	require.True(t, result.Settled)
	final := result.States[len(result.States)-1]
	assert.InDelta(t, 20.0, final[0], models.SettleAngle)
	assert.Positive(t, result.Metrics["control_effort"])
}
