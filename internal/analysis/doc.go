// Package analysis characterises recorded input-angle histories.
//
//   - [PowerSpectrum] and [DominantFrequency]: FFT of a uniformly sampled series
//   - [RingDown]: peak picking and logarithmic decrement of a free decay
//   - [PhasePortrait]: theta/omega trajectory rendered as text
//
// For a lightly damped free decay the estimates agree with the model:
//
//	rd := analysis.RingDown(times, thetas, eq)
//	// rd.DampingRatio ~ c / (2*sqrt(k)), rd.Period ~ 2*pi / omega_d
package analysis
