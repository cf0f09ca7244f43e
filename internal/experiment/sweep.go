package experiment

import (
	"context"

	"github.com/san-kum/fourbar/internal/config"
	"github.com/san-kum/fourbar/internal/sim"
)

type SweepPoint struct {
	StartAngle float64
	Result     *sim.Result
}

// SweepStartAngles runs the configured experiment from n start angles
// spread evenly across the angle limits.
func SweepStartAngles(ctx context.Context, cfg *config.Config, registry *Registry, n int) ([]SweepPoint, error) {
	if n < 2 {
		n = 2
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	starts := make([]float64, n)
	inits := make([]sim.State, n)
	span := cfg.Drive.MaxAngle - cfg.Drive.MinAngle
	for i := range starts {
		starts[i] = cfg.Drive.MinAngle + span*float64(i)/float64(n-1)
		inits[i] = sim.State{starts[i], 0}
	}

	var setupErr error
	factory := func() *sim.Simulator {
		e := New(cfg, registry)
		if err := e.Setup(); err != nil {
			setupErr = err
			return nil
		}
		return e.GetSimulator()
	}
	if first := factory(); first == nil {
		return nil, setupErr
	}

	results, err := sim.Sweep(ctx, factory, inits, sim.Config{
		Dt:            cfg.Dt,
		Duration:      cfg.Duration,
		StopOnSettle:  cfg.StopOnSettle,
		ValidateState: true,
	})
	if err != nil {
		return nil, err
	}

	points := make([]SweepPoint, n)
	for i := range points {
		points[i] = SweepPoint{StartAngle: starts[i], Result: results[i]}
	}
	return points, nil
}
