package sim

import (
	"context"
	"fmt"
)

const (
	// MaxSteps bounds Duration/Dt for a single run.
	MaxSteps = 100_000_000

	maxPrealloc = 1 << 16
)

type Simulator struct {
	dyn        Dynamics
	integrator Integrator
	controller Controller
	metrics    []Metric
	observers  []Observer
}

// New builds a simulator. A nil controller applies zero control.
func New(dyn Dynamics, integrator Integrator, controller Controller) *Simulator {
	return &Simulator{
		dyn:        dyn,
		integrator: integrator,
		controller: controller,
		metrics:    make([]Metric, 0),
		observers:  make([]Observer, 0),
	}
}

func (s *Simulator) AddMetric(m Metric)     { s.metrics = append(s.metrics, m) }
func (s *Simulator) AddObserver(o Observer) { s.observers = append(s.observers, o) }

func (s *Simulator) Dynamics() Dynamics { return s.dyn }

// Control evaluates the controller at (x, t).
func (s *Simulator) Control(x State, t float64) Control {
	if s.controller == nil {
		return make(Control, s.dyn.ControlDim())
	}
	return s.controller.Compute(x, t)
}

// Step advances x by one fixed step and applies the system's hard limits.
func (s *Simulator) Step(x State, u Control, t, dt float64) (State, bool) {
	next := s.integrator.Step(s.dyn, x, u, t, dt)
	if c, ok := s.dyn.(Constrainer); ok {
		return c.Constrain(next)
	}
	return next, false
}

// Settled reports whether the system is at rest in x. Systems without a
// settle predicate never settle.
func (s *Simulator) Settled(x State) bool {
	if st, ok := s.dyn.(Settler); ok {
		return st.Settled(x)
	}
	return false
}

func (s *Simulator) Run(ctx context.Context, x0 State, cfg Config) (*Result, error) {
	if err := s.validateConfig(cfg); err != nil {
		return nil, err
	}
	if len(x0) != s.dyn.StateDim() {
		return nil, fmt.Errorf("%w: got %d components, want %d", ErrDimensionMismatch, len(x0), s.dyn.StateDim())
	}

	steps := int(cfg.Duration/cfg.Dt + 1e-9)
	capacity := min(steps+1, maxPrealloc)
	result := &Result{
		States:   make([]State, 0, capacity),
		Controls: make([]Control, 0, capacity),
		Times:    make([]float64, 0, capacity),
		Metrics:  make(map[string]float64),
	}

	for _, m := range s.metrics {
		m.Reset()
	}

	x := x0.Clone()
	if c, ok := s.dyn.(Constrainer); ok {
		x, _ = c.Constrain(x)
	}
	t := 0.0
	resting := false

	result.States = append(result.States, x.Clone())
	result.Times = append(result.Times, t)

	for i := 0; i < steps; i++ {
		select {
		case <-ctx.Done():
			return result, ctx.Err()
		default:
		}

		u := s.Control(x, t)
		next, clamped := s.Step(x, u, t, cfg.Dt)

		if cfg.ValidateState && !next.IsValid() {
			return result, SimError{Time: t, Step: i, Message: "invalid state (NaN/Inf)"}
		}

		x = next
		t += cfg.Dt
		result.StepsTaken++
		if clamped && !resting {
			result.Clamps++
		}
		resting = clamped

		for _, m := range s.metrics {
			m.Observe(x, u, t)
		}
		for _, obs := range s.observers {
			obs.OnStep(x, u, t)
		}

		result.States = append(result.States, x.Clone())
		result.Controls = append(result.Controls, u)
		result.Times = append(result.Times, t)

		if s.Settled(x) {
			if !result.Settled {
				result.Settled = true
				result.SettledAt = t
			}
			if cfg.StopOnSettle {
				break
			}
		}
	}

	for _, m := range s.metrics {
		result.Metrics[m.Name()] = m.Value()
	}

	return result, nil
}

func (s *Simulator) validateConfig(cfg Config) error {
	if cfg.Dt <= 0 {
		return fmt.Errorf("%w: dt must be positive, got %f", ErrInvalidConfig, cfg.Dt)
	}
	if cfg.Duration <= 0 {
		return fmt.Errorf("%w: duration must be positive, got %f", ErrInvalidConfig, cfg.Duration)
	}
	if n := cfg.Duration / cfg.Dt; n > MaxSteps {
		return fmt.Errorf("%w: %.3g steps exceeds the limit of %d", ErrInvalidConfig, n, MaxSteps)
	}
	return nil
}
