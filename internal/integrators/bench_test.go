package integrators

import (
	"testing"

	"github.com/san-kum/fourbar/internal/models"
	"github.com/san-kum/fourbar/internal/sim"
)

func benchmarkIntegrator(b *testing.B, integrator sim.Integrator) {
	dyn := models.NewSpringDamper()
	x := sim.State{45.0, 0.0}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		x = integrator.Step(dyn, x, nil, 0, 0.05)
	}
}

func BenchmarkEuler(b *testing.B)      { benchmarkIntegrator(b, NewEuler()) }
func BenchmarkSymplectic(b *testing.B) { benchmarkIntegrator(b, NewSemiImplicitEuler()) }
func BenchmarkRK4(b *testing.B)        { benchmarkIntegrator(b, NewRK4()) }
func BenchmarkExact(b *testing.B)      { benchmarkIntegrator(b, NewExact()) }
