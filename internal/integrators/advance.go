package integrators

import "github.com/san-kum/fourbar/internal/sim"

// advance sets dst = x + h*dx and returns dst.
func advance(dst, x, dx sim.State, h float64) sim.State {
	for i := range x {
		dst[i] = x[i] + h*dx[i]
	}
	return dst
}
