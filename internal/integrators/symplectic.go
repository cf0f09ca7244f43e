package integrators

import "github.com/san-kum/fourbar/internal/sim"

// SemiImplicitEuler updates the velocity half of the state first and then
// advances the position half with the new velocity. The state layout is
// [positions..., velocities...].
type SemiImplicitEuler struct{}

func NewSemiImplicitEuler() *SemiImplicitEuler {
	return &SemiImplicitEuler{}
}

func (s *SemiImplicitEuler) Step(dyn sim.Dynamics, x sim.State, u sim.Control, t float64, dt float64) sim.State {
	n := len(x)
	half := n / 2
	dx := dyn.Derivative(x, u, t)

	result := make(sim.State, n)
	for i := half; i < n; i++ {
		result[i] = x[i] + dt*dx[i]
	}
	for i := 0; i < half; i++ {
		result[i] = x[i] + dt*result[half+i]
	}
	return result
}
