package viz

import (
	"math"
	"testing"

	"github.com/san-kum/fourbar/internal/linkage"
)

func TestFitGeometryKeepsJointsOnCanvas(t *testing.T) {
	g := linkage.DefaultGeometry()
	c := NewCanvas(width, height)
	w, h := c.Dots()
	v := FitGeometry(g, w, h)

	for theta := -180.0; theta <= 180; theta += 5 {
		pose, err := g.Solve(theta)
		if err != nil {
			continue
		}
		for _, p := range []linkage.Point{pose.A, pose.B, pose.C, pose.D} {
			x, y := v.Project(p)
			if x < 0 || x >= w || y < 0 || y >= h {
				t.Fatalf("theta=%v: point %+v projects off canvas to (%d,%d)", theta, p, x, y)
			}
		}
	}
}

func TestViewportYPointsUp(t *testing.T) {
	v := FitGeometry(linkage.DefaultGeometry(), 128, 88)
	_, low := v.Project(linkage.Point{X: 0, Y: 0})
	_, high := v.Project(linkage.Point{X: 0, Y: 40})
	if high >= low {
		t.Errorf("expected higher point to have smaller row, got %d >= %d", high, low)
	}
}

func TestZigzag(t *testing.T) {
	p, q := linkage.Point{X: 0, Y: 0}, linkage.Point{X: 10, Y: 0}
	pts := Zigzag(p, q, 4, 1)
	if len(pts) != 2*4+1 {
		t.Fatalf("expected %d vertices, got %d", 2*4+1, len(pts))
	}
	if pts[0] != p || pts[len(pts)-1] != q {
		t.Error("zigzag must start at p and end at q")
	}
	for _, pt := range pts[1 : len(pts)-1] {
		if math.Abs(math.Abs(pt.Y)-1) > 1e-9 {
			t.Errorf("vertex %+v off amplitude", pt)
		}
	}

	if got := Zigzag(p, p, 4, 1); len(got) != 2 {
		t.Errorf("zero-length spring should collapse to a line, got %d points", len(got))
	}
}

func TestDrawLinkageMarksPivots(t *testing.T) {
	g := linkage.DefaultGeometry()
	pose, err := g.Solve(45)
	if err != nil {
		t.Fatal(err)
	}
	c := NewCanvas(width, height)
	w, h := c.Dots()
	v := FitGeometry(g, w, h)
	DrawLinkage(c, v, pose)

	for _, p := range []linkage.Point{pose.A, pose.B, pose.C, pose.D} {
		x, y := v.Project(p)
		if !c.IsSet(x, y) {
			t.Errorf("joint %+v not drawn", p)
		}
	}
}
