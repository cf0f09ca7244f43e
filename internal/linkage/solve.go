package linkage

import "math"

type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

func (p Point) Dist(q Point) float64 { return math.Hypot(q.X-p.X, q.Y-p.Y) }

func Mid(p, q Point) Point { return Point{X: (p.X + q.X) / 2, Y: (p.Y + q.Y) / 2} }

// Pose is the solved position of every joint. A and B are the fixed
// pivots, C the input tip and D the coupler/output joint.
type Pose struct {
	Theta float64 `json:"theta"`
	A     Point   `json:"a"`
	B     Point   `json:"b"`
	C     Point   `json:"c"`
	D     Point   `json:"d"`

	// OutputAngle is the direction of link B->D in degrees.
	OutputAngle float64 `json:"output_angle"`
	// TransmissionAngle is the angle between coupler and output link in degrees.
	TransmissionAngle float64 `json:"transmission_angle"`

	Clamped  bool `json:"clamped"`
	Fallback bool `json:"fallback"`
}

// SpringAnchors returns the two points the spring and dashpot are drawn
// between: the coupler midpoint and the output-link midpoint.
func (p Pose) SpringAnchors() (Point, Point) {
	return Mid(p.C, p.D), Mid(p.B, p.D)
}

// CouplerLength is the realised C-D distance; it exceeds the nominal
// coupler length when the reach clamp was applied.
func (p Pose) CouplerLength() float64 { return p.C.Dist(p.D) }

func (p Pose) Finite() bool {
	for _, v := range []float64{p.C.X, p.C.Y, p.D.X, p.D.Y, p.OutputAngle, p.TransmissionAngle} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

func deg2rad(d float64) float64 { return d * math.Pi / 180 }
func rad2deg(r float64) float64 { return r * 180 / math.Pi }

// Solve places every joint for input angle thetaDeg.
func (g Geometry) Solve(thetaDeg float64) (Pose, error) {
	theta := deg2rad(thetaDeg)

	a := Point{0, 0}
	b := Point{g.Ground, 0}
	c := Point{a.X + g.Input*math.Cos(theta), a.Y + g.Input*math.Sin(theta)}

	dx := b.X - c.X
	dy := b.Y - c.Y
	d := math.Hypot(dx, dy)

	pose := Pose{Theta: thetaDeg, A: a, B: b, C: c}

	if _, max := g.Reach(); d > max {
		d = max
		pose.Clamped = true
	}
	if d == 0 {
		return pose, ErrDegenerate
	}

	angleCBD := 0.0
	cosArg := (g.Output*g.Output + d*d - g.Coupler*g.Coupler) / (2 * g.Output * d)
	if cosArg < -1 || cosArg > 1 || math.IsNaN(cosArg) {
		pose.Fallback = true
	} else {
		angleCBD = math.Acos(cosArg)
	}

	phi := math.Atan2(dy, dx) + angleCBD
	pose.D = Point{b.X - g.Output*math.Cos(phi), b.Y - g.Output*math.Sin(phi)}

	pose.OutputAngle = rad2deg(math.Atan2(pose.D.Y-b.Y, pose.D.X-b.X))
	pose.TransmissionAngle = transmission(pose)

	return pose, nil
}

func transmission(p Pose) float64 {
	ux, uy := p.C.X-p.D.X, p.C.Y-p.D.Y
	vx, vy := p.B.X-p.D.X, p.B.Y-p.D.Y
	nu, nv := math.Hypot(ux, uy), math.Hypot(vx, vy)
	if nu == 0 || nv == 0 {
		return 0
	}
	cos := (ux*vx + uy*vy) / (nu * nv)
	return rad2deg(math.Acos(math.Max(-1, math.Min(1, cos))))
}
