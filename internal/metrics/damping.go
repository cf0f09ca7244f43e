package metrics

import (
	"math"

	"github.com/san-kum/fourbar/internal/sim"
)

// PeakDamping tracks the largest dashpot torque magnitude, c*|omega|.
type PeakDamping struct {
	name string
	c    float64
	peak float64
}

func NewPeakDamping(c float64) *PeakDamping {
	return &PeakDamping{
		name: "peak_damping",
		c:    c,
	}
}

func (p *PeakDamping) Name() string { return p.name }

func (p *PeakDamping) Observe(x sim.State, u sim.Control, t float64) {
	if len(x) < 2 {
		return
	}
	p.peak = math.Max(p.peak, p.c*math.Abs(x[1]))
}

func (p *PeakDamping) Value() float64 { return p.peak }

func (p *PeakDamping) Reset() { p.peak = 0 }
