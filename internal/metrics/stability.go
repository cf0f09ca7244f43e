package metrics

import (
	"math"

	"github.com/san-kum/fourbar/internal/sim"
)

// Stability is the fraction of samples whose angle stays within threshold
// degrees of equilibrium.
type Stability struct {
	name       string
	eq         float64
	threshold  float64
	violations int
	samples    int
}

func NewStability(eq, threshold float64) *Stability {
	return &Stability{
		name:      "stability",
		eq:        eq,
		threshold: threshold,
	}
}

func (s *Stability) Name() string {
	return s.name
}

func (s *Stability) Observe(x sim.State, u sim.Control, t float64) {
	if len(x) == 0 {
		return
	}
	s.samples++
	if math.Abs(x[0]-s.eq) > s.threshold {
		s.violations++
	}
}

func (s *Stability) Value() float64 {
	if s.samples == 0 {
		return 1.0
	}
	return 1.0 - float64(s.violations)/float64(s.samples)
}

func (s *Stability) Reset() {
	s.violations = 0
	s.samples = 0
}
