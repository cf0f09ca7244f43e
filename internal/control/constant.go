package control

import (
	"fmt"

	"github.com/san-kum/fourbar/internal/sim"
)

// Constant holds a fixed torque on the input link. Zero torque leaves the
// spring-damper free.
type Constant struct {
	Torque float64
}

func NewConstant(torque float64) *Constant {
	return &Constant{Torque: torque}
}

func (c *Constant) Compute(x sim.State, t float64) sim.Control {
	return sim.Control{c.Torque}
}

func (c *Constant) Params() map[string]float64 {
	return map[string]float64{"torque": c.Torque}
}

func (c *Constant) SetParam(name string, value float64) error {
	if name != "torque" {
		return fmt.Errorf("control: unknown constant parameter %q", name)
	}
	c.Torque = value
	return nil
}
