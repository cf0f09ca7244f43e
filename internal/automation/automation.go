package automation

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/san-kum/fourbar/internal/config"
	"github.com/san-kum/fourbar/internal/experiment"
	"github.com/san-kum/fourbar/internal/sim"
	"github.com/san-kum/fourbar/internal/storage"
)

// Scenario defines a scripted sequence of linkage runs
type Scenario struct {
	Name        string         `yaml:"name"`
	Description string         `yaml:"description"`
	Steps       []ScenarioStep `yaml:"steps"`
}

// ScenarioStep is one run. Zero fields keep the value of the preset, or of
// the base config when no preset is named.
type ScenarioStep struct {
	Name       string             `yaml:"name"`
	Preset     string             `yaml:"preset"`
	Integrator string             `yaml:"integrator"`
	Controller string             `yaml:"controller"`
	Duration   float64            `yaml:"duration"`
	Dt         float64            `yaml:"dt"`
	Drive      map[string]float64 `yaml:"drive"`
	Save       bool               `yaml:"save"`
}

type StepResult struct {
	Name   string
	RunID  string
	Config *config.Config
	Result *sim.Result
}

// LoadScenario loads a scenario from a YAML file
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var scenario Scenario
	if err := yaml.Unmarshal(data, &scenario); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if len(scenario.Steps) == 0 {
		return nil, fmt.Errorf("scenario %s has no steps", path)
	}

	return &scenario, nil
}

// Config resolves the configuration for a step on top of base.
func (st ScenarioStep) Config(base *config.Config) (*config.Config, error) {
	cfg := *base
	if st.Preset != "" {
		p := config.GetPreset(st.Preset)
		if p == nil {
			return nil, fmt.Errorf("unknown preset %q", st.Preset)
		}
		cfg = *p
		cfg.DataDir = base.DataDir
	}
	if st.Integrator != "" {
		cfg.Integrator = st.Integrator
	}
	if st.Controller != "" {
		cfg.Controller = st.Controller
	}
	if st.Duration > 0 {
		cfg.Duration = st.Duration
	}
	if st.Dt > 0 {
		cfg.Dt = st.Dt
	}
	for name, v := range st.Drive {
		if err := cfg.SetDriveParam(name, v); err != nil {
			return nil, err
		}
	}
	return &cfg, nil
}

// RunScenario executes all steps in a scenario. Steps marked save are
// written to store when it is not nil.
func RunScenario(ctx context.Context, scenario *Scenario, base *config.Config, registry *experiment.Registry, store *storage.Store, log *slog.Logger) ([]StepResult, error) {
	results := make([]StepResult, 0, len(scenario.Steps))

	for i, step := range scenario.Steps {
		name := step.Name
		if name == "" {
			name = fmt.Sprintf("step-%d", i+1)
		}
		log.Info("scenario step", "scenario", scenario.Name, "step", name, "n", i+1, "of", len(scenario.Steps))

		cfg, err := step.Config(base)
		if err != nil {
			return results, fmt.Errorf("step %d: %w", i+1, err)
		}

		exp := experiment.New(cfg, registry)
		if err := exp.Setup(); err != nil {
			return results, fmt.Errorf("step %d setup: %w", i+1, err)
		}

		result, err := exp.Run(ctx)
		if err != nil {
			return results, fmt.Errorf("step %d run: %w", i+1, err)
		}

		sr := StepResult{Name: name, Config: cfg, Result: result}
		if step.Save && store != nil {
			if sr.RunID, err = store.Save(cfg, result); err != nil {
				return results, fmt.Errorf("step %d save: %w", i+1, err)
			}
		}
		results = append(results, sr)
	}

	return results, nil
}

// ParameterSweep runs the base configuration across a range of one drive
// parameter.
type ParameterSweep struct {
	Param    string
	Min      float64
	Max      float64
	NumSteps int
}

// SweepResult holds results from a parameter sweep
type SweepResult struct {
	ParamValue float64
	FinalState sim.State
	MaxEnergy  float64
	MinEnergy  float64
	Settled    bool
	SettledAt  float64
	Clamps     int
}

// RunSweep executes a parameter sweep
func RunSweep(ctx context.Context, sweep *ParameterSweep, base *config.Config, registry *experiment.Registry) ([]SweepResult, error) {
	if sweep.NumSteps < 2 {
		return nil, fmt.Errorf("sweep needs at least 2 steps, got %d", sweep.NumSteps)
	}
	results := make([]SweepResult, 0, sweep.NumSteps)
	paramStep := (sweep.Max - sweep.Min) / float64(sweep.NumSteps-1)

	for i := 0; i < sweep.NumSteps; i++ {
		paramVal := sweep.Min + float64(i)*paramStep

		cfg := *base
		if err := cfg.SetDriveParam(sweep.Param, paramVal); err != nil {
			return nil, err
		}

		exp := experiment.New(&cfg, registry)
		if err := exp.Setup(); err != nil {
			return nil, fmt.Errorf("%s=%g: %w", sweep.Param, paramVal, err)
		}

		result, err := exp.Run(ctx)
		if err != nil {
			return nil, err
		}

		sr := SweepResult{
			ParamValue: paramVal,
			Settled:    result.Settled,
			SettledAt:  result.SettledAt,
			Clamps:     result.Clamps,
		}
		if len(result.States) > 0 {
			sr.FinalState = result.States[len(result.States)-1]
			sr.MinEnergy, sr.MaxEnergy = energyRange(exp, result.States)
		}
		results = append(results, sr)
	}

	return results, nil
}

func energyRange(exp *experiment.Experiment, states []sim.State) (lo, hi float64) {
	model := exp.Model()
	lo, hi = model.Energy(states[0]), model.Energy(states[0])
	for _, s := range states[1:] {
		e := model.Energy(s)
		if e > hi {
			hi = e
		}
		if e < lo {
			lo = e
		}
	}
	return lo, hi
}

// MonteCarloConfig perturbs the start angle of the base configuration.
type MonteCarloConfig struct {
	Perturbation float64
	NumTrials    int
	Seed         int64
}

// MonteCarloResult holds the outcome of one perturbed run
type MonteCarloResult struct {
	TrialID    int
	StartAngle float64
	FinalState sim.State
	Settled    bool
	SettledAt  float64
	Clamps     int
}

// RunMonteCarlo executes multiple trials with random start angles within
// Perturbation degrees of the base start, clamped into the limits.
func RunMonteCarlo(ctx context.Context, mc *MonteCarloConfig, base *config.Config, registry *experiment.Registry) ([]MonteCarloResult, error) {
	results := make([]MonteCarloResult, 0, mc.NumTrials)

	seed := mc.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	rng := rand.New(rand.NewSource(seed))
	model := base.Model()

	for trial := 0; trial < mc.NumTrials; trial++ {
		cfg := *base
		cfg.Drive.StartAngle = model.Clamp(base.Drive.StartAngle + (rng.Float64()-0.5)*2*mc.Perturbation)

		exp := experiment.New(&cfg, registry)
		if err := exp.Setup(); err != nil {
			return nil, err
		}

		result, err := exp.Run(ctx)
		if err != nil {
			return nil, err
		}

		r := MonteCarloResult{
			TrialID:    trial,
			StartAngle: cfg.Drive.StartAngle,
			Settled:    result.Settled,
			SettledAt:  result.SettledAt,
			Clamps:     result.Clamps,
		}
		if len(result.States) > 0 {
			r.FinalState = result.States[len(result.States)-1]
		}
		results = append(results, r)
	}

	return results, nil
}

// MonteCarloStats summarises trials: how many settled and their mean
// settle time.
func MonteCarloStats(results []MonteCarloResult) (settled, unsettled int, meanSettle float64) {
	sum := 0.0
	for _, r := range results {
		if r.Settled {
			settled++
			sum += r.SettledAt
		} else {
			unsettled++
		}
	}
	if settled > 0 {
		meanSettle = sum / float64(settled)
	}
	return
}
