package metrics

import (
	"math"

	"github.com/san-kum/fourbar/internal/sim"
)

// ControlEffort is the absolute actuator impulse: |torque| integrated over
// the run, in torque-seconds. Runs start at t = 0. It stays zero for the
// free spring-damper.
type ControlEffort struct {
	impulse float64
	lastT   float64
}

func NewControlEffort() *ControlEffort {
	return &ControlEffort{}
}

func (c *ControlEffort) Name() string { return "control_effort" }

// Observe receives the torque that was held over (lastT, t].
func (c *ControlEffort) Observe(x sim.State, u sim.Control, t float64) {
	dt := t - c.lastT
	c.lastT = t
	if dt <= 0 {
		return
	}
	for _, torque := range u {
		c.impulse += math.Abs(torque) * dt
	}
}

func (c *ControlEffort) Value() float64 { return c.impulse }

func (c *ControlEffort) Reset() {
	c.impulse = 0
	c.lastT = 0
}
