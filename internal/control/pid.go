package control

import (
	"fmt"
	"math"

	"github.com/san-kum/fourbar/internal/sim"
)

// PID drives the input angle toward Target. The derivative term acts on
// the measured angular velocity, so moving the target does not kick the
// torque.
type PID struct {
	Kp     float64
	Ki     float64
	Kd     float64
	Target float64

	// MaxTorque bounds the output when positive. The integral is held
	// while the output is saturated.
	MaxTorque float64

	integral float64
	prevT    float64
	started  bool
}

func NewPID(kp, ki, kd, target float64) *PID {
	return &PID{Kp: kp, Ki: ki, Kd: kd, Target: target}
}

func (p *PID) Compute(x sim.State, t float64) sim.Control {
	if len(x) < 2 {
		return sim.Control{0}
	}

	err := p.Target - x[0]
	step := 0.0
	if p.started && t > p.prevT {
		step = err * (t - p.prevT)
	}
	p.started = true
	p.prevT = t

	u := p.Kp*err + p.Ki*(p.integral+step) - p.Kd*x[1]
	if p.MaxTorque > 0 && math.Abs(u) > p.MaxTorque {
		return sim.Control{math.Copysign(p.MaxTorque, u)}
	}
	p.integral += step
	return sim.Control{u}
}

// Reset clears the integral and the step clock.
func (p *PID) Reset() {
	p.integral = 0
	p.prevT = 0
	p.started = false
}

func (p *PID) Params() map[string]float64 {
	return map[string]float64{
		"kp":         p.Kp,
		"ki":         p.Ki,
		"kd":         p.Kd,
		"target":     p.Target,
		"max_torque": p.MaxTorque,
	}
}

func (p *PID) SetParam(name string, value float64) error {
	switch name {
	case "kp":
		p.Kp = value
	case "ki":
		p.Ki = value
	case "kd":
		p.Kd = value
	case "target":
		p.Target = value
	case "max_torque":
		p.MaxTorque = value
	default:
		return fmt.Errorf("control: unknown pid parameter %q", name)
	}
	return nil
}
