package metrics

import (
	"math"

	"github.com/san-kum/fourbar/internal/sim"
)

// Overshoot is the largest excursion past the equilibrium angle on the
// side opposite to the first observed sample.
type Overshoot struct {
	name  string
	eq    float64
	side  float64
	worst float64
}

func NewOvershoot(eq float64) *Overshoot {
	return &Overshoot{
		name: "overshoot",
		eq:   eq,
	}
}

func (o *Overshoot) Name() string { return o.name }

func (o *Overshoot) Observe(x sim.State, u sim.Control, t float64) {
	if len(x) == 0 {
		return
	}
	d := x[0] - o.eq
	if o.side == 0 {
		if d != 0 {
			o.side = math.Copysign(1, d)
		}
		return
	}
	if d*o.side < 0 {
		o.worst = math.Max(o.worst, math.Abs(d))
	}
}

func (o *Overshoot) Value() float64 { return o.worst }

func (o *Overshoot) Reset() {
	o.side = 0
	o.worst = 0
}
