package experiment

import (
	"context"
	"fmt"

	"github.com/san-kum/fourbar/internal/config"
	"github.com/san-kum/fourbar/internal/mechanism"
	"github.com/san-kum/fourbar/internal/models"
	"github.com/san-kum/fourbar/internal/sim"
)

type Experiment struct {
	cfg       *config.Config
	registry  *Registry
	dyn       *models.SpringDamper
	simulator *sim.Simulator
}

func New(cfg *config.Config, registry *Registry) *Experiment {
	return &Experiment{
		cfg:      cfg,
		registry: registry,
	}
}

// Setup validates the config and builds the model, integrator, controller
// and default metrics.
func (e *Experiment) Setup() error {
	if err := e.cfg.Validate(); err != nil {
		return err
	}

	e.dyn = e.cfg.Model()

	integ, err := e.registry.GetIntegrator(e.cfg.Integrator)
	if err != nil {
		return err
	}
	ctrl, err := e.registry.GetController(e.cfg.Controller, e.cfg.GetControllerParams())
	if err != nil {
		return err
	}

	e.simulator = sim.New(e.dyn, integ, ctrl)
	for _, m := range e.registry.DefaultMetrics(e.dyn) {
		e.simulator.AddMetric(m)
	}
	return nil
}

func (e *Experiment) Run(ctx context.Context) (*sim.Result, error) {
	if e.simulator == nil {
		return nil, fmt.Errorf("experiment not setup")
	}

	simCfg := sim.Config{
		Dt:            e.cfg.Dt,
		Duration:      e.cfg.Duration,
		StopOnSettle:  e.cfg.StopOnSettle,
		ValidateState: true,
	}

	return e.simulator.Run(ctx, sim.State(e.cfg.GetInitState()), simCfg)
}

// Session builds a tick-driven session for the configured model, used by
// the live view.
func (e *Experiment) Session() (*mechanism.Session, error) {
	if e.dyn == nil {
		return nil, fmt.Errorf("experiment not setup")
	}
	integ, err := e.registry.GetIntegrator(e.cfg.Integrator)
	if err != nil {
		return nil, err
	}
	ctrl, err := e.registry.GetController(e.cfg.Controller, e.cfg.GetControllerParams())
	if err != nil {
		return nil, err
	}
	s, err := mechanism.NewSession(e.dyn, integ, ctrl, e.cfg.Dt)
	if err != nil {
		return nil, err
	}
	s.Reset(e.cfg.Drive.StartAngle)
	return s, nil
}

func (e *Experiment) Config() *config.Config { return e.cfg }

// GetSimulator returns the underlying simulator for adding observers
func (e *Experiment) GetSimulator() *sim.Simulator {
	return e.simulator
}

func (e *Experiment) Model() *models.SpringDamper { return e.dyn }
