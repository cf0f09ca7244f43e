package optim

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/san-kum/fourbar/internal/config"
	"github.com/san-kum/fourbar/internal/experiment"
	"github.com/san-kum/fourbar/internal/sim"
)

// SettleTime is the objective name that scores a run by when it settled.
const SettleTime = "settle_time"

var ErrNoCandidate = errors.New("optim: no grid point produced a result")

// Objective scores a run; lower is better.
type Objective func(*sim.Result) float64

// ObjectiveFor returns SettleTime scoring, or the named run metric.
// Runs that never settle score +Inf under SettleTime.
func ObjectiveFor(name string) Objective {
	if name == SettleTime {
		return func(r *sim.Result) float64 {
			if !r.Settled {
				return math.Inf(1)
			}
			return r.SettledAt
		}
	}
	return func(r *sim.Result) float64 {
		v, ok := r.Metrics[name]
		if !ok {
			return math.Inf(1)
		}
		return v
	}
}

// GridSearch tries every combination of drive parameter values.
type GridSearch struct {
	paramNames []string
	ranges     [][]float64
}

func NewGridSearch(params []string, ranges [][]float64) (*GridSearch, error) {
	if len(params) != len(ranges) {
		return nil, fmt.Errorf("optim: %d parameters but %d ranges", len(params), len(ranges))
	}
	check := config.DefaultConfig()
	for i, name := range params {
		if err := check.SetDriveParam(name, 0); err != nil {
			return nil, err
		}
		if len(ranges[i]) == 0 {
			return nil, fmt.Errorf("optim: empty range for %s", name)
		}
	}
	return &GridSearch{paramNames: params, ranges: ranges}, nil
}

// Size is the number of grid points.
func (g *GridSearch) Size() int {
	n := 1
	for _, r := range g.ranges {
		n *= len(r)
	}
	return n
}

type Best struct {
	Params map[string]float64
	Score  float64
	Result *sim.Result
	Tried  int
}

// Search runs base with every grid point applied and returns the lowest
// scoring one. Grid points that fail validation or setup are skipped.
func (g *GridSearch) Search(ctx context.Context, base *config.Config, registry *experiment.Registry, score Objective) (*Best, error) {
	best := &Best{Score: math.Inf(1)}
	if err := g.searchRecursive(ctx, 0, map[string]float64{}, base, registry, score, best); err != nil {
		return nil, err
	}
	if best.Params == nil {
		return nil, ErrNoCandidate
	}
	return best, nil
}

func (g *GridSearch) searchRecursive(
	ctx context.Context,
	depth int,
	current map[string]float64,
	base *config.Config,
	registry *experiment.Registry,
	score Objective,
	best *Best,
) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if depth == len(g.paramNames) {
		cfg := *base
		for name, v := range current {
			_ = cfg.SetDriveParam(name, v)
		}

		exp := experiment.New(&cfg, registry)
		if err := exp.Setup(); err != nil {
			return nil
		}
		result, err := exp.Run(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return nil
		}
		best.Tried++

		val := score(result)
		if best.Params == nil || val < best.Score {
			best.Score = val
			best.Result = result
			best.Params = make(map[string]float64, len(current))
			for k, v := range current {
				best.Params[k] = v
			}
		}
		return nil
	}

	paramName := g.paramNames[depth]
	for _, val := range g.ranges[depth] {
		next := make(map[string]float64, len(current)+1)
		for k, v := range current {
			next[k] = v
		}
		next[paramName] = val

		if err := g.searchRecursive(ctx, depth+1, next, base, registry, score, best); err != nil {
			return err
		}
	}
	return nil
}

// Linspace returns n evenly spaced values from lo to hi inclusive.
func Linspace(lo, hi float64, n int) []float64 {
	if n < 2 {
		return []float64{lo}
	}
	out := make([]float64, n)
	step := (hi - lo) / float64(n-1)
	for i := range out {
		out[i] = lo + float64(i)*step
	}
	return out
}
