package experiment

import (
	"fmt"
	"sort"

	"github.com/san-kum/fourbar/internal/control"
	"github.com/san-kum/fourbar/internal/integrators"
	"github.com/san-kum/fourbar/internal/metrics"
	"github.com/san-kum/fourbar/internal/models"
	"github.com/san-kum/fourbar/internal/sim"
)

type Registry struct {
	integrators map[string]func() sim.Integrator
	controllers map[string]func(map[string]float64) sim.Controller
}

func NewRegistry() *Registry {
	r := &Registry{
		integrators: make(map[string]func() sim.Integrator),
		controllers: make(map[string]func(map[string]float64) sim.Controller),
	}

	r.integrators["euler"] = func() sim.Integrator { return integrators.NewEuler() }
	r.integrators["symplectic"] = func() sim.Integrator { return integrators.NewSemiImplicitEuler() }
	r.integrators["rk4"] = func() sim.Integrator { return integrators.NewRK4() }
	r.integrators["verlet"] = func() sim.Integrator { return integrators.NewVerlet() }
	r.integrators["exact"] = func() sim.Integrator { return integrators.NewExact() }

	r.controllers["none"] = func(map[string]float64) sim.Controller {
		return control.NewConstant(0)
	}
	r.controllers["constant"] = func(params map[string]float64) sim.Controller {
		return control.NewConstant(params["torque"])
	}
	r.controllers["pid"] = func(params map[string]float64) sim.Controller {
		pid := control.NewPID(params["kp"], params["ki"], params["kd"], params["target"])
		pid.MaxTorque = params["max_torque"]
		return pid
	}

	return r
}

func (r *Registry) GetIntegrator(name string) (sim.Integrator, error) {
	fn, ok := r.integrators[name]
	if !ok {
		return nil, fmt.Errorf("unknown integrator: %s (available: %v)", name, r.ListIntegrators())
	}
	return fn(), nil
}

func (r *Registry) GetController(name string, params map[string]float64) (sim.Controller, error) {
	fn, ok := r.controllers[name]
	if !ok {
		return nil, fmt.Errorf("unknown controller: %s (available: %v)", name, r.ListControllers())
	}
	return fn(params), nil
}

func (r *Registry) ListIntegrators() []string {
	names := make([]string, 0, len(r.integrators))
	for name := range r.integrators {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (r *Registry) ListControllers() []string {
	names := make([]string, 0, len(r.controllers))
	for name := range r.controllers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (r *Registry) DefaultMetrics(dyn *models.SpringDamper) []sim.Metric {
	return []sim.Metric{
		metrics.NewEnergy(dyn),
		metrics.NewPeakDamping(dyn.C),
		metrics.NewLimitHits(dyn.MinAngle, dyn.MaxAngle),
		metrics.NewOvershoot(dyn.EqAngle),
		metrics.NewStability(dyn.EqAngle, models.SettleAngle),
		metrics.NewControlEffort(),
	}
}
