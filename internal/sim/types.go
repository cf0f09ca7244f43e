package sim

import (
	"fmt"
	"math"
)

type State []float64

func (s State) Clone() State {
	c := make(State, len(s))
	copy(c, s)
	return c
}

func (s State) IsValid() bool {
	for _, v := range s {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

type Control []float64

// At returns u[i], or zero when the control vector is shorter.
func (u Control) At(i int) float64 {
	if i < len(u) {
		return u[i]
	}
	return 0
}

type Dynamics interface {
	Derivative(x State, u Control, t float64) State
	StateDim() int
	ControlDim() int
}

// Constrainer is implemented by systems with hard state limits. Constrain
// returns the projected state and whether any limit was hit.
type Constrainer interface {
	Constrain(x State) (State, bool)
}

// Settler reports when a system has come to rest.
type Settler interface {
	Settled(x State) bool
}

type Hamiltonian interface {
	Energy(x State) float64
}

type Configurable interface {
	Params() map[string]float64
	SetParam(name string, value float64) error
}

type Integrator interface {
	Step(dyn Dynamics, x State, u Control, t float64, dt float64) State
}

type Controller interface {
	Compute(x State, t float64) Control
}

type Metric interface {
	Name() string
	Observe(x State, u Control, t float64)
	Value() float64
	Reset()
}

type Observer interface {
	OnStep(x State, u Control, t float64)
}

type Config struct {
	Dt            float64
	Duration      float64
	StopOnSettle  bool
	ValidateState bool
}

func DefaultConfig() Config {
	return Config{
		Dt:            0.05,
		Duration:      120.0,
		StopOnSettle:  true,
		ValidateState: true,
	}
}

type Result struct {
	States     []State
	Controls   []Control
	Times      []float64
	Metrics    map[string]float64
	StepsTaken int
	// Clamps counts arrivals at a limit stop. Consecutive clamped steps
	// while resting on the stop count once.
	Clamps    int
	Settled   bool
	SettledAt float64
}

// Series returns component i of every recorded state.
func (r *Result) Series(i int) []float64 {
	out := make([]float64, len(r.States))
	for k, s := range r.States {
		if i < len(s) {
			out[k] = s[i]
		}
	}
	return out
}

type SimError struct {
	Time    float64
	Step    int
	Message string
}

func (e SimError) Error() string {
	return fmt.Sprintf("step %d (t=%.4f): %s", e.Step, e.Time, e.Message)
}

func (e SimError) Unwrap() error {
	return ErrInvalidState
}
