package analysis

import "math"

type Peak struct {
	Time  float64
	Value float64
}

// Decay summarises a free oscillation about an equilibrium.
type Decay struct {
	Peaks          []Peak
	LogDecrement   float64
	DampingRatio   float64
	Period         float64
	NaturalFreqRad float64
}

// Peaks returns local maxima of |x - eq| that alternate sides of the
// equilibrium, one per half cycle.
func Peaks(times, xs []float64, eq float64) []Peak {
	peaks := make([]Peak, 0)
	n := len(xs)
	if len(times) < n {
		n = len(times)
	}
	for i := 1; i < n-1; i++ {
		a := math.Abs(xs[i] - eq)
		if a == 0 || a < math.Abs(xs[i-1]-eq) || a <= math.Abs(xs[i+1]-eq) {
			continue
		}
		if math.Signbit(xs[i-1]-eq) != math.Signbit(xs[i]-eq) || math.Signbit(xs[i+1]-eq) != math.Signbit(xs[i]-eq) {
			continue
		}
		p := Peak{Time: times[i], Value: xs[i] - eq}
		if k := len(peaks); k > 0 && math.Signbit(peaks[k-1].Value) == math.Signbit(p.Value) {
			if math.Abs(p.Value) > math.Abs(peaks[k-1].Value) {
				peaks[k-1] = p
			}
			continue
		}
		peaks = append(peaks, p)
	}
	return peaks
}

// RingDown estimates damping from successive same-side peaks using the
// logarithmic decrement delta = ln(x_n / x_{n+1}), zeta = delta /
// sqrt(4*pi^2 + delta^2). Fewer than three alternating peaks yield a zero
// estimate.
func RingDown(times, xs []float64, eq float64) Decay {
	d := Decay{Peaks: Peaks(times, xs, eq)}
	if len(d.Peaks) < 3 {
		return d
	}

	sumDelta, sumPeriod := 0.0, 0.0
	count := 0
	for i := 0; i+2 < len(d.Peaks); i++ {
		a, b := math.Abs(d.Peaks[i].Value), math.Abs(d.Peaks[i+2].Value)
		if b == 0 {
			break
		}
		sumDelta += math.Log(a / b)
		sumPeriod += d.Peaks[i+2].Time - d.Peaks[i].Time
		count++
	}
	if count == 0 {
		return d
	}

	d.LogDecrement = sumDelta / float64(count)
	d.Period = sumPeriod / float64(count)
	d.DampingRatio = d.LogDecrement / math.Sqrt(4*math.Pi*math.Pi+d.LogDecrement*d.LogDecrement)
	if d.Period > 0 {
		wd := 2 * math.Pi / d.Period
		d.NaturalFreqRad = wd / math.Sqrt(1-d.DampingRatio*d.DampingRatio)
	}
	return d
}
