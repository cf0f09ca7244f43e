// Package mechanism holds the per-run state of the driven linkage: the
// input-link angle and rate, elapsed time and the plotted history.
package mechanism

import (
	"fmt"
	"log/slog"

	"github.com/san-kum/fourbar/internal/models"
	"github.com/san-kum/fourbar/internal/sim"
)

const DefaultDt = 0.05

// Session is stepped once per animation tick. It is not safe for
// concurrent use.
type Session struct {
	dyn  *models.SpringDamper
	sim  *sim.Simulator
	dt   float64
	x    sim.State
	t    float64
	u    sim.Control
	log  *slog.Logger
	obs  []sim.Observer
	hist history

	dampingTorque float64
	clamps        int
	onStop        bool
	settled       bool
}

type history struct {
	times  []float64
	thetas []float64
	omegas []float64
}

func NewSession(dyn *models.SpringDamper, integ sim.Integrator, ctrl sim.Controller, dt float64) (*Session, error) {
	if dt <= 0 {
		return nil, fmt.Errorf("%w: dt must be positive, got %f", sim.ErrInvalidConfig, dt)
	}
	s := &Session{
		dyn: dyn,
		sim: sim.New(dyn, integ, ctrl),
		dt:  dt,
		log: slog.Default(),
	}
	s.Reset(45)
	return s, nil
}

func (s *Session) WithLogger(l *slog.Logger) *Session {
	s.log = l
	return s
}

func (s *Session) AddObserver(o sim.Observer) { s.obs = append(s.obs, o) }

func (s *Session) SetLimits(min, max float64) error {
	if err := s.dyn.SetLimits(min, max); err != nil {
		return err
	}
	s.x[0] = s.dyn.Clamp(s.x[0])
	return nil
}

// Reset starts a new run from startAngle at rest. The angle is pinned
// into the current limits.
func (s *Session) Reset(startAngle float64) {
	s.x = sim.State{s.dyn.Clamp(startAngle), 0}
	s.t = 0
	s.u = nil
	s.dampingTorque = 0
	s.clamps = 0
	s.onStop = false
	s.settled = false
	s.hist.times = s.hist.times[:0]
	s.hist.thetas = s.hist.thetas[:0]
	s.hist.omegas = s.hist.omegas[:0]
}

// Step advances one fixed timestep, applies the limit stops, records the
// new sample and reports whether the linkage has settled.
func (s *Session) Step() bool {
	s.dampingTorque = s.dyn.DampingTorque(s.x)
	s.u = s.sim.Control(s.x, s.t)

	next, clamped := s.sim.Step(s.x, s.u, s.t, s.dt)
	s.x = next
	s.t += s.dt

	if clamped && !s.onStop {
		s.clamps++
		s.log.Debug("limit stop", "t", s.t, "theta", s.x[0])
	}
	s.onStop = clamped

	s.hist.times = append(s.hist.times, s.t)
	s.hist.thetas = append(s.hist.thetas, s.x[0])
	s.hist.omegas = append(s.hist.omegas, s.x[1])

	for _, o := range s.obs {
		o.OnStep(s.x, s.u, s.t)
	}

	settled := s.sim.Settled(s.x)
	if settled && !s.settled {
		s.log.Debug("settled", "t", s.t, "theta", s.x[0], "steps", len(s.hist.times))
	}
	s.settled = settled
	return settled
}

func (s *Session) Theta() float64         { return s.x[0] }
func (s *Session) Omega() float64         { return s.x[1] }
func (s *Session) Time() float64          { return s.t }
func (s *Session) Dt() float64            { return s.dt }
func (s *Session) State() sim.State       { return s.x.Clone() }
func (s *Session) DampingTorque() float64 { return s.dampingTorque }
func (s *Session) Model() *models.SpringDamper {
	return s.dyn
}

// Clamps counts limit hits since the last Reset. A link held against a
// stop by the spring counts once until it leaves the stop.
func (s *Session) Clamps() int { return s.clamps }

// History returns the recorded time and theta sequences. The slices are
// owned by the session and are overwritten by the next Reset.
func (s *Session) History() (t, theta []float64) {
	return s.hist.times, s.hist.thetas
}

// Result packages the history in the shape produced by sim.Simulator.Run.
func (s *Session) Result() *sim.Result {
	n := len(s.hist.times)
	r := &sim.Result{
		States:     make([]sim.State, n),
		Times:      make([]float64, n),
		Metrics:    map[string]float64{},
		StepsTaken: n,
		Clamps:     s.clamps,
		Settled:    s.settled,
	}
	copy(r.Times, s.hist.times)
	for i := range s.hist.times {
		r.States[i] = sim.State{s.hist.thetas[i], s.hist.omegas[i]}
	}
	if s.settled && n > 0 {
		r.SettledAt = s.hist.times[n-1]
	}
	return r
}
