package linkage

import (
	"errors"
	"fmt"
	"math"
	"sort"
)

const (
	DefaultInput   = 50.0
	DefaultCoupler = 100.0
	DefaultOutput  = 50.0
	DefaultGround  = 100.0
)

var (
	ErrInvalidGeometry = errors.New("linkage: invalid geometry")

	// ErrDegenerate is returned when the input tip sits on the output pivot,
	// leaving the triangle solve undefined.
	ErrDegenerate = errors.New("linkage: degenerate pose (input tip on output pivot)")
)

// Geometry holds the four link lengths.
type Geometry struct {
	Input   float64 `yaml:"input" json:"input"`
	Coupler float64 `yaml:"coupler" json:"coupler"`
	Output  float64 `yaml:"output" json:"output"`
	Ground  float64 `yaml:"ground" json:"ground"`
}

func DefaultGeometry() Geometry {
	return Geometry{
		Input:   DefaultInput,
		Coupler: DefaultCoupler,
		Output:  DefaultOutput,
		Ground:  DefaultGround,
	}
}

// WithDefaults substitutes the default length for any zero link.
func (g Geometry) WithDefaults() Geometry {
	if g.Input == 0 {
		g.Input = DefaultInput
	}
	if g.Coupler == 0 {
		g.Coupler = DefaultCoupler
	}
	if g.Output == 0 {
		g.Output = DefaultOutput
	}
	if g.Ground == 0 {
		g.Ground = DefaultGround
	}
	return g
}

func (g Geometry) Validate() error {
	lengths := map[string]float64{
		"input":   g.Input,
		"coupler": g.Coupler,
		"output":  g.Output,
		"ground":  g.Ground,
	}
	for _, name := range []string{"input", "coupler", "output", "ground"} {
		l := lengths[name]
		if !(l > 0) || math.IsInf(l, 0) {
			return fmt.Errorf("%w: %s length must be positive, got %g", ErrInvalidGeometry, name, l)
		}
	}
	return nil
}

// Reach is the range of input-tip to output-pivot distances the coupler
// and output links can span without clamping.
func (g Geometry) Reach() (min, max float64) {
	return math.Abs(g.Coupler - g.Output), g.Coupler + g.Output
}

type Class string

const (
	CrankRocker  Class = "crank-rocker"
	DoubleCrank  Class = "double-crank"
	DoubleRocker Class = "double-rocker"
	ChangePoint  Class = "change-point"
	NonGrashof   Class = "triple-rocker"
)

// Grashof classifies the mechanism by the Grashof condition s+l <= p+q.
func (g Geometry) Grashof() Class {
	l := []float64{g.Input, g.Coupler, g.Output, g.Ground}
	sort.Float64s(l)
	s, p, q, long := l[0], l[1], l[2], l[3]

	lhs, rhs := s+long, p+q
	switch {
	case math.Abs(lhs-rhs) < 1e-9:
		return ChangePoint
	case lhs > rhs:
		return NonGrashof
	}

	shortest := s
	switch {
	case g.Ground == shortest:
		return DoubleCrank
	case g.Input == shortest || g.Output == shortest:
		return CrankRocker
	default:
		return DoubleRocker
	}
}
