package metrics

import (
	"github.com/san-kum/fourbar/internal/sim"
)

// Energy averages the mechanical energy reported by a Hamiltonian system.
type Energy struct {
	name        string
	dyn         sim.Hamiltonian
	samples     int
	totalEnergy float64
}

func NewEnergy(dyn sim.Hamiltonian) *Energy {
	return &Energy{
		name: "energy",
		dyn:  dyn,
	}
}

func (e *Energy) Name() string { return e.name }

func (e *Energy) Observe(x sim.State, u sim.Control, t float64) {
	e.totalEnergy += e.dyn.Energy(x)
	e.samples++
}

func (e *Energy) Value() float64 {
	if e.samples == 0 {
		return 0
	}
	return e.totalEnergy / float64(e.samples)
}

func (e *Energy) Reset() {
	e.totalEnergy = 0
	e.samples = 0
}
