package metrics

import (
	"github.com/san-kum/fourbar/internal/sim"
)

// LimitHits counts arrivals at a limit stop: samples pinned on a bound
// with zero velocity that were not already resting there.
type LimitHits struct {
	name     string
	min, max float64
	hits     int
	resting  bool
}

func NewLimitHits(min, max float64) *LimitHits {
	return &LimitHits{
		name: "limit_hits",
		min:  min,
		max:  max,
	}
}

func (l *LimitHits) Name() string { return l.name }

func (l *LimitHits) Observe(x sim.State, u sim.Control, t float64) {
	if len(x) < 2 {
		return
	}
	onStop := (x[0] == l.min || x[0] == l.max) && x[1] == 0
	if onStop && !l.resting {
		l.hits++
	}
	l.resting = onStop
}

func (l *LimitHits) Value() float64 { return float64(l.hits) }

func (l *LimitHits) Reset() {
	l.hits = 0
	l.resting = false
}
