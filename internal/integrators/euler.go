package integrators

import "github.com/san-kum/fourbar/internal/sim"

// Euler is explicit forward Euler. The angle moves with the rate from the
// start of the step, so the undamped spring gains energy every step.
type Euler struct{}

func NewEuler() *Euler {
	return &Euler{}
}

func (Euler) Step(dyn sim.Dynamics, x sim.State, u sim.Control, t, dt float64) sim.State {
	return advance(make(sim.State, len(x)), x, dyn.Derivative(x, u, t), dt)
}
