package mechanism

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/san-kum/fourbar/internal/integrators"
	"github.com/san-kum/fourbar/internal/models"
	"github.com/san-kum/fourbar/internal/sim"
)

func newTestSession(t *testing.T) *Session {
	t.Helper()
	s, err := NewSession(models.NewSpringDamper(), integrators.NewSemiImplicitEuler(), nil, DefaultDt)
	require.NoError(t, err)
	return s
}

func TestNewSessionRejectsBadDt(t *testing.T) {
	_, err := NewSession(models.NewSpringDamper(), integrators.NewEuler(), nil, 0)
	assert.ErrorIs(t, err, sim.ErrInvalidConfig)
}

func TestSessionFirstStepMatchesUpdateOrder(t *testing.T) {
	s := newTestSession(t)
	s.Reset(45)

	settled := s.Step()
	assert.False(t, settled)

	omega := -0.1 * 45 * 0.05
	assert.InDelta(t, omega, s.Omega(), 1e-12)
	assert.InDelta(t, 45+omega*0.05, s.Theta(), 1e-12)
	assert.InDelta(t, 0.05, s.Time(), 1e-12)
	assert.Equal(t, 0.0, s.DampingTorque())

	ts, thetas := s.History()
	require.Len(t, ts, 1)
	require.Len(t, thetas, 1)
	assert.Equal(t, s.Theta(), thetas[0])
}

func TestSessionResetClearsHistory(t *testing.T) {
	s := newTestSession(t)
	for i := 0; i < 10; i++ {
		s.Step()
	}
	s.Reset(-30)

	ts, thetas := s.History()
	assert.Empty(t, ts)
	assert.Empty(t, thetas)
	assert.Equal(t, -30.0, s.Theta())
	assert.Equal(t, 0.0, s.Omega())
	assert.Equal(t, 0.0, s.Time())
}

func TestSessionThetaStaysWithinLimits(t *testing.T) {
	cases := []struct {
		name     string
		k, c     float64
		min, max float64
		start    float64
	}{
		{"stiff narrow", 2.0, 0.01, -10, 10, 10},
		{"default", 0.1, 0.05, -90, 90, 90},
		{"offset window", 1.0, 0.0, 5, 60, 60},
		{"start outside", 0.5, 0.1, -20, 20, 80},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			dyn := models.NewSpringDamper()
			dyn.K, dyn.C = tc.k, tc.c
			s, err := NewSession(dyn, integrators.NewSemiImplicitEuler(), nil, DefaultDt)
			require.NoError(t, err)
			require.NoError(t, s.SetLimits(tc.min, tc.max))
			s.Reset(tc.start)

			prevClamps := 0
			for i := 0; i < 2000; i++ {
				s.Step()
				require.GreaterOrEqual(t, s.Theta(), tc.min)
				require.LessOrEqual(t, s.Theta(), tc.max)
				if s.Clamps() > prevClamps {
					require.Equal(t, 0.0, s.Omega(), "omega must drop to zero on a clamp")
					prevClamps = s.Clamps()
				}
			}
		})
	}
}

func TestSessionClampCountsLimitHits(t *testing.T) {
	dyn := models.NewSpringDamper()
	dyn.K, dyn.C = 2.0, 0
	dyn.EqAngle = 8
	s, err := NewSession(dyn, integrators.NewSemiImplicitEuler(), nil, DefaultDt)
	require.NoError(t, err)
	require.NoError(t, s.SetLimits(-10, 10))
	s.Reset(-10)

	for i := 0; i < 500; i++ {
		s.Step()
	}
	assert.Positive(t, s.Clamps())
}

func TestSessionRestingOnStopCountsOnce(t *testing.T) {
	dyn := models.NewSpringDamper()
	dyn.K, dyn.C = 1.0, 2.0
	dyn.EqAngle = 30
	s, err := NewSession(dyn, integrators.NewSemiImplicitEuler(), nil, DefaultDt)
	require.NoError(t, err)
	require.NoError(t, s.SetLimits(-10, 10))
	s.Reset(0)

	for i := 0; i < 1000; i++ {
		s.Step()
	}
	assert.Equal(t, 10.0, s.Theta())
	assert.Equal(t, 1, s.Clamps())

	s.Reset(0)
	assert.Zero(t, s.Clamps())
	for i := 0; i < 1000; i++ {
		s.Step()
	}
	assert.Equal(t, 1, s.Clamps())
}

func TestSessionEventuallySettles(t *testing.T) {
	params := []struct{ k, c float64 }{
		{0.1, 0.05},
		{1.0, 0.5},
		{0.5, 2.0},
		{3.0, 0.2},
	}
	for _, p := range params {
		dyn := models.NewSpringDamper()
		dyn.K, dyn.C = p.k, p.c
		s, err := NewSession(dyn, integrators.NewSemiImplicitEuler(), nil, DefaultDt)
		require.NoError(t, err)
		s.Reset(45)

		settled := false
		for i := 0; i < 100000 && !settled; i++ {
			settled = s.Step()
		}
		assert.True(t, settled, "k=%v c=%v did not settle", p.k, p.c)
		assert.Less(t, math.Abs(s.Theta()), models.SettleAngle)
	}
}

func TestSessionResult(t *testing.T) {
	s := newTestSession(t)
	for i := 0; i < 5; i++ {
		s.Step()
	}
	r := s.Result()
	assert.Len(t, r.States, 5)
	assert.Len(t, r.Times, 5)
	assert.Equal(t, s.Theta(), r.States[4][0])
	assert.False(t, r.Settled)
}

type countingObserver struct{ n int }

func (c *countingObserver) OnStep(x sim.State, u sim.Control, t float64) { c.n++ }

func TestSessionNotifiesObservers(t *testing.T) {
	s := newTestSession(t)
	obs := &countingObserver{}
	s.AddObserver(obs)
	for i := 0; i < 3; i++ {
		s.Step()
	}
	assert.Equal(t, 3, obs.n)
}
