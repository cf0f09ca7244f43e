package models

import (
	"fmt"
	"math"

	"github.com/san-kum/fourbar/internal/sim"
)

const (
	DefaultStiffness = 0.1
	DefaultDamping   = 0.05
	DefaultEqAngle   = 0.0
	DefaultMinAngle  = -90.0
	DefaultMaxAngle  = 90.0

	// Settle thresholds: deg/s and deg.
	SettleOmega = 1e-2
	SettleAngle = 1.0
)

// SpringDamper is a torsional spring and dashpot acting on the input link.
// State is [theta, omega] in degrees and degrees per second; inertia is
// unity so torque and angular acceleration coincide.
type SpringDamper struct {
	K        float64
	C        float64
	EqAngle  float64
	MinAngle float64
	MaxAngle float64
}

func NewSpringDamper() *SpringDamper {
	return &SpringDamper{
		K:        DefaultStiffness,
		C:        DefaultDamping,
		EqAngle:  DefaultEqAngle,
		MinAngle: DefaultMinAngle,
		MaxAngle: DefaultMaxAngle,
	}
}

func (s *SpringDamper) StateDim() int   { return 2 }
func (s *SpringDamper) ControlDim() int { return 1 }

func (s *SpringDamper) Derivative(x sim.State, u sim.Control, t float64) sim.State {
	alpha := s.SpringTorque(x) + s.DampingTorque(x) + u.At(0)
	return sim.State{x[1], alpha}
}

func (s *SpringDamper) SpringTorque(x sim.State) float64 {
	return -s.K * (x[0] - s.EqAngle)
}

func (s *SpringDamper) DampingTorque(x sim.State) float64 {
	return -s.C * x[1]
}

// Constrain applies the limit stops. Hitting a stop is inelastic: the
// angle is pinned to the bound and the angular velocity is dropped.
func (s *SpringDamper) Constrain(x sim.State) (sim.State, bool) {
	switch {
	case x[0] < s.MinAngle:
		return sim.State{s.MinAngle, 0}, true
	case x[0] > s.MaxAngle:
		return sim.State{s.MaxAngle, 0}, true
	}
	return x, false
}

func (s *SpringDamper) Settled(x sim.State) bool {
	return math.Abs(x[1]) < SettleOmega && math.Abs(x[0]-s.EqAngle) < SettleAngle
}

func (s *SpringDamper) Energy(x sim.State) float64 {
	d := x[0] - s.EqAngle
	return 0.5*x[1]*x[1] + 0.5*s.K*d*d
}

// Spring exposes the parameters needed by closed-form steppers.
func (s *SpringDamper) Spring() (stiffness, damping, equilibrium float64) {
	return s.K, s.C, s.EqAngle
}

func (s *SpringDamper) SetLimits(min, max float64) error {
	if min > max {
		return fmt.Errorf("%w: min angle %.2f above max angle %.2f", ErrInvalidParam, min, max)
	}
	s.MinAngle = min
	s.MaxAngle = max
	return nil
}

// Clamp pins theta into the limits without touching velocity.
func (s *SpringDamper) Clamp(theta float64) float64 {
	return math.Max(s.MinAngle, math.Min(s.MaxAngle, theta))
}

func (s *SpringDamper) Params() map[string]float64 {
	return map[string]float64{
		"k":   s.K,
		"c":   s.C,
		"eq":  s.EqAngle,
		"min": s.MinAngle,
		"max": s.MaxAngle,
	}
}

func (s *SpringDamper) SetParam(name string, value float64) error {
	switch name {
	case "k":
		if value < 0 {
			return fmt.Errorf("%w: stiffness must be non-negative", ErrInvalidParam)
		}
		s.K = value
	case "c":
		if value < 0 {
			return fmt.Errorf("%w: damping must be non-negative", ErrInvalidParam)
		}
		s.C = value
	case "eq":
		s.EqAngle = value
	case "min":
		return s.SetLimits(value, s.MaxAngle)
	case "max":
		return s.SetLimits(s.MinAngle, value)
	default:
		return fmt.Errorf("%w: unknown parameter %q", ErrInvalidParam, name)
	}
	return nil
}
