package analysis

import (
	"math"
	"strings"
	"testing"
)

func dampedCosine(zeta, w0, amp, dt float64, n int) ([]float64, []float64) {
	wd := w0 * math.Sqrt(1-zeta*zeta)
	ts := make([]float64, n)
	xs := make([]float64, n)
	for i := 0; i < n; i++ {
		t := float64(i) * dt
		ts[i] = t
		xs[i] = amp * math.Exp(-zeta*w0*t) * math.Cos(wd*t)
	}
	return ts, xs
}

func TestRingDownRecoversDamping(t *testing.T) {
	zeta, w0 := 0.079, math.Sqrt(0.1)
	ts, xs := dampedCosine(zeta, w0, 45, 0.05, 4000)

	d := RingDown(ts, xs, 0)
	if len(d.Peaks) < 3 {
		t.Fatalf("expected several peaks, got %d", len(d.Peaks))
	}
	if math.Abs(d.DampingRatio-zeta) > 0.005 {
		t.Errorf("expected damping ratio ~%.3f, got %.4f", zeta, d.DampingRatio)
	}

	wd := w0 * math.Sqrt(1-zeta*zeta)
	if math.Abs(d.Period-2*math.Pi/wd) > 0.1 {
		t.Errorf("expected period ~%.3f, got %.3f", 2*math.Pi/wd, d.Period)
	}
	if math.Abs(d.NaturalFreqRad-w0) > 0.01 {
		t.Errorf("expected natural frequency ~%.3f, got %.3f", w0, d.NaturalFreqRad)
	}
}

func TestRingDownTooFewPeaks(t *testing.T) {
	d := RingDown([]float64{0, 1, 2}, []float64{3, 2, 1}, 0)
	if d.DampingRatio != 0 || d.Period != 0 {
		t.Errorf("expected zero estimates, got %+v", d)
	}
}

func TestPeaksAlternate(t *testing.T) {
	ts, xs := dampedCosine(0.05, 1, 10, 0.01, 3000)
	peaks := Peaks(ts, xs, 0)
	for i := 1; i < len(peaks); i++ {
		if math.Signbit(peaks[i].Value) == math.Signbit(peaks[i-1].Value) {
			t.Fatalf("peaks %d and %d on the same side", i-1, i)
		}
	}
}

func TestDominantFrequency(t *testing.T) {
	dt := 0.01
	n := 1024
	f := 2.0
	xs := make([]float64, n)
	for i := range xs {
		xs[i] = math.Sin(2 * math.Pi * f * float64(i) * dt)
	}
	got := DominantFrequency(xs, dt)
	if math.Abs(got-f) > 0.15 {
		t.Errorf("expected ~%.2f Hz, got %.3f", f, got)
	}
}

func TestPadPow2(t *testing.T) {
	out := PadPow2([]float64{1, 2, 3})
	if len(out) != 4 {
		t.Fatalf("expected length 4, got %d", len(out))
	}
	if out[0] != -1 || out[2] != 1 || out[3] != 0 {
		t.Errorf("unexpected padded data %v", out)
	}
}

func TestPhasePortraitToASCII(t *testing.T) {
	pts := PhasePortrait([]float64{-1, 0, 1}, []float64{1, 0, -1})
	out := PhasePortraitToASCII(pts, 20, 10)
	if strings.Count(out, "\n") != 10 {
		t.Errorf("expected 10 rows, got %d", strings.Count(out, "\n"))
	}
	if !strings.Contains(out, "•") {
		t.Error("expected plotted points")
	}
	if PhasePortraitToASCII(nil, 20, 10) != "" {
		t.Error("expected empty output for no points")
	}
}
