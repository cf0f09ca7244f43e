package integrators

import (
	"math"
	"testing"

	"github.com/san-kum/fourbar/internal/models"
	"github.com/san-kum/fourbar/internal/sim"
)

type simpleDynamics struct{}

func (s *simpleDynamics) Derivative(x sim.State, u sim.Control, t float64) sim.State {
	return sim.State{x[1], -x[0]}
}

func (s *simpleDynamics) StateDim() int   { return 2 }
func (s *simpleDynamics) ControlDim() int { return 0 }

func TestRK4Accuracy(t *testing.T) {
	dyn := &simpleDynamics{}
	integ := NewRK4()

	x := sim.State{1.0, 0.0}
	dt := 0.01
	steps := 100

	for i := 0; i < steps; i++ {
		x = integ.Step(dyn, x, nil, float64(i)*dt, dt)
	}

	expectedX := math.Cos(float64(steps) * dt)
	expectedV := -math.Sin(float64(steps) * dt)

	if math.Abs(x[0]-expectedX) > 1e-4 {
		t.Errorf("position error too large: got %.6f, expected %.6f", x[0], expectedX)
	}
	if math.Abs(x[1]-expectedV) > 1e-4 {
		t.Errorf("velocity error too large: got %.6f, expected %.6f", x[1], expectedV)
	}
}

func TestEulerSingleStep(t *testing.T) {
	sd := models.NewSpringDamper()
	x := NewEuler().Step(sd, sim.State{45, 0}, nil, 0, 0.05)

	// Explicit Euler leaves theta untouched on the first step from rest.
	if x[0] != 45 {
		t.Errorf("expected theta 45, got %f", x[0])
	}
	if math.Abs(x[1]-(-0.1*45*0.05)) > 1e-12 {
		t.Errorf("unexpected omega %f", x[1])
	}
}

func TestEulerGainsEnergyWithoutDamping(t *testing.T) {
	sd := models.NewSpringDamper()
	sd.C = 0
	x := sim.State{45, 0}
	e0 := sd.Energy(x)

	euler := NewEuler()
	for i := 0; i < 200; i++ {
		x = euler.Step(sd, x, nil, float64(i)*0.05, 0.05)
	}
	if sd.Energy(x) <= e0 {
		t.Errorf("expected energy above %f, got %f", e0, sd.Energy(x))
	}
}

func TestSemiImplicitEulerSingleStep(t *testing.T) {
	sd := models.NewSpringDamper()
	x := NewSemiImplicitEuler().Step(sd, sim.State{45, 0}, nil, 0, 0.05)

	omega := -0.1 * 45 * 0.05
	if math.Abs(x[1]-omega) > 1e-12 {
		t.Errorf("expected omega %f, got %f", omega, x[1])
	}
	if math.Abs(x[0]-(45+omega*0.05)) > 1e-12 {
		t.Errorf("theta should advance with the updated omega, got %f", x[0])
	}
}

func TestExactMatchesAnalyticSolution(t *testing.T) {
	sd := models.NewSpringDamper()
	integ := NewExact()

	x := sim.State{45, 0}
	dt := 0.05
	steps := 200
	for i := 0; i < steps; i++ {
		x = integ.Step(sd, x, nil, float64(i)*dt, dt)
	}

	w0 := math.Sqrt(sd.K)
	zeta := sd.C / (2 * w0)
	wd := w0 * math.Sqrt(1-zeta*zeta)
	tEnd := float64(steps) * dt
	expected := 45 * math.Exp(-zeta*w0*tEnd) * (math.Cos(wd*tEnd) + zeta*w0/wd*math.Sin(wd*tEnd))

	if math.Abs(x[0]-expected) > 1e-3 {
		t.Errorf("expected theta %.6f, got %.6f", expected, x[0])
	}
}

func TestExactFallsBack(t *testing.T) {
	dyn := &simpleDynamics{}
	got := NewExact().Step(dyn, sim.State{1, 0}, nil, 0, 0.1)
	want := NewSemiImplicitEuler().Step(dyn, sim.State{1, 0}, nil, 0, 0.1)

	if got[0] != want[0] || got[1] != want[1] {
		t.Errorf("expected fallback result %v, got %v", want, got)
	}
}

func TestIntegratorsDecayTowardEquilibrium(t *testing.T) {
	integs := map[string]sim.Integrator{
		"euler":      NewEuler(),
		"symplectic": NewSemiImplicitEuler(),
		"rk4":        NewRK4(),
		"exact":      NewExact(),
	}

	for name, integ := range integs {
		t.Run(name, func(t *testing.T) {
			sd := models.NewSpringDamper()
			x := sim.State{45, 0}
			for i := 0; i < 4000; i++ {
				x = integ.Step(sd, x, nil, float64(i)*0.05, 0.05)
			}
			if math.Abs(x[0]) > 1 {
				t.Errorf("theta did not decay: %f", x[0])
			}
		})
	}
}

func TestVerletConservesOscillatorEnergy(t *testing.T) {
	dyn := &simpleDynamics{}
	integ := NewVerlet()

	x := sim.State{1.0, 0.0}
	dt := 0.05
	for i := 0; i < 2000; i++ {
		x = integ.Step(dyn, x, nil, float64(i)*dt, dt)
	}

	energy := 0.5 * (x[0]*x[0] + x[1]*x[1])
	if math.Abs(energy-0.5) > 1e-3 {
		t.Errorf("energy drifted to %f", energy)
	}
}
