package integrators

import (
	"math"

	"github.com/charmbracelet/harmonica"
	"github.com/san-kum/fourbar/internal/sim"
)

// Spring is implemented by linear single-degree-of-freedom oscillators
// with unit inertia.
type Spring interface {
	Spring() (stiffness, damping, equilibrium float64)
}

// Exact advances a linear spring-damper with the closed-form damped
// harmonic solution. A constant control torque u shifts the equilibrium
// by u/k. Systems that are not springs, or have zero stiffness, fall back
// to semi-implicit Euler.
type Exact struct {
	spring   harmonica.Spring
	dt, k, c float64
	valid    bool
	fallback *SemiImplicitEuler
}

func NewExact() *Exact {
	return &Exact{fallback: NewSemiImplicitEuler()}
}

func (e *Exact) Step(dyn sim.Dynamics, x sim.State, u sim.Control, t float64, dt float64) sim.State {
	s, ok := dyn.(Spring)
	if !ok || len(x) != 2 {
		return e.fallback.Step(dyn, x, u, t, dt)
	}
	k, c, eq := s.Spring()
	if k <= 0 {
		return e.fallback.Step(dyn, x, u, t, dt)
	}

	if !e.valid || e.dt != dt || e.k != k || e.c != c {
		w := math.Sqrt(k)
		e.spring = harmonica.NewSpring(dt, w, c/(2*w))
		e.dt, e.k, e.c, e.valid = dt, k, c, true
	}

	pos, vel := e.spring.Update(x[0], x[1], eq+u.At(0)/k)
	return sim.State{pos, vel}
}
