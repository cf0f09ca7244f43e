package viz

import (
	"math"

	"github.com/san-kum/fourbar/internal/linkage"
)

const (
	springCoils     = 8
	springAmplitude = 4.0
	pivotRadius     = 1
)

// Viewport maps linkage coordinates onto canvas dots with a uniform scale
// and y pointing up.
type Viewport struct {
	minX, minY float64
	scale      float64
	offX, offY float64
	height     int
}

// FitGeometry returns a viewport that keeps every reachable joint of g on
// a canvas of w x h dots.
func FitGeometry(g linkage.Geometry, w, h int) Viewport {
	r := math.Max(g.Input, g.Output)
	minX, maxX := -g.Input, g.Ground+g.Output
	minY, maxY := -r, r

	padX, padY := 0.08*(maxX-minX), 0.08*(maxY-minY)
	minX, maxX = minX-padX, maxX+padX
	minY, maxY = minY-padY, maxY+padY

	scale := math.Min(float64(w-1)/(maxX-minX), float64(h-1)/(maxY-minY))
	return Viewport{
		minX:   minX,
		minY:   minY,
		scale:  scale,
		offX:   (float64(w-1) - (maxX-minX)*scale) / 2,
		offY:   (float64(h-1) - (maxY-minY)*scale) / 2,
		height: h,
	}
}

func (v Viewport) Project(p linkage.Point) (int, int) {
	x := v.offX + (p.X-v.minX)*v.scale
	y := float64(v.height-1) - v.offY - (p.Y-v.minY)*v.scale
	return int(math.Round(x)), int(math.Round(y))
}

func (v Viewport) line(c *Canvas, p, q linkage.Point) {
	x0, y0 := v.Project(p)
	x1, y1 := v.Project(q)
	c.DrawLine(x0, y0, x1, y1)
}

func (v Viewport) polyline(c *Canvas, pts []linkage.Point) {
	for i := 1; i < len(pts); i++ {
		v.line(c, pts[i-1], pts[i])
	}
}

// Zigzag returns the vertices of a spring of n coils from p to q. The
// amplitude is measured perpendicular to p->q.
func Zigzag(p, q linkage.Point, n int, amp float64) []linkage.Point {
	dx, dy := q.X-p.X, q.Y-p.Y
	length := math.Hypot(dx, dy)
	if length == 0 || n < 1 {
		return []linkage.Point{p, q}
	}
	nx, ny := -dy/length, dx/length

	pts := make([]linkage.Point, 0, 2*n+2)
	pts = append(pts, p)
	segments := 2 * n
	for i := 1; i < segments; i++ {
		f := float64(i) / float64(segments)
		side := amp
		if i%2 == 0 {
			side = -amp
		}
		pts = append(pts, linkage.Point{X: p.X + dx*f + nx*side, Y: p.Y + dy*f + ny*side})
	}
	return append(pts, q)
}

func offset(p, q linkage.Point, d float64) (linkage.Point, linkage.Point) {
	dx, dy := q.X-p.X, q.Y-p.Y
	length := math.Hypot(dx, dy)
	if length == 0 {
		return p, q
	}
	nx, ny := -dy/length*d, dx/length*d
	return linkage.Point{X: p.X + nx, Y: p.Y + ny}, linkage.Point{X: q.X + nx, Y: q.Y + ny}
}

// dashpot draws a cylinder over the middle third of p->q with a piston rod
// entering it from q.
func (v Viewport) dashpot(c *Canvas, p, q linkage.Point, width float64) {
	at := func(f float64) linkage.Point {
		return linkage.Point{X: p.X + (q.X-p.X)*f, Y: p.Y + (q.Y-p.Y)*f}
	}
	v.line(c, p, at(0.35))
	l0, l1 := offset(at(0.35), at(0.65), width)
	r0, r1 := offset(at(0.35), at(0.65), -width)
	v.line(c, l0, l1)
	v.line(c, r0, r1)
	v.line(c, l0, r0)

	h0, _ := offset(at(0.5), at(0.55), width*0.7)
	k0, _ := offset(at(0.5), at(0.55), -width*0.7)
	v.line(c, h0, k0)
	v.line(c, at(0.5), q)
}

// DrawLinkage renders the ground link, fixed pivots, the three moving
// links and the spring and dashpot between the coupler midpoint and the
// output-link midpoint.
func DrawLinkage(c *Canvas, v Viewport, pose linkage.Pose) {
	v.line(c, pose.A, pose.B)
	for _, pivot := range []linkage.Point{pose.A, pose.B} {
		x, y := v.Project(pivot)
		c.FillDisc(x, y, pivotRadius+1)
		c.DrawLine(x-3, y+3, x+3, y+3)
	}

	v.line(c, pose.A, pose.C)
	v.line(c, pose.C, pose.D)
	v.line(c, pose.B, pose.D)
	for _, joint := range []linkage.Point{pose.C, pose.D} {
		x, y := v.Project(joint)
		c.FillDisc(x, y, pivotRadius)
	}

	from, to := pose.SpringAnchors()
	amp := springAmplitude / v.scale
	s0, s1 := offset(from, to, 2*amp)
	v.polyline(c, Zigzag(s0, s1, springCoils, amp))
	d0, d1 := offset(from, to, -2*amp)
	v.dashpot(c, d0, d1, amp)
}
