package export

import (
	"fmt"
	"math"
	"strings"

	"github.com/san-kum/fourbar/internal/linkage"
	"github.com/san-kum/fourbar/internal/viz"
)

// CanvasToSVG converts a Braille canvas to SVG format
func CanvasToSVG(canvas *viz.Canvas, scale float64) string {
	if canvas == nil {
		return ""
	}

	w, h := canvas.Dots()
	width := float64(w) * scale
	height := float64(h) * scale

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf(`<?xml version="1.0" encoding="UTF-8"?>
<svg xmlns="http://www.w3.org/2000/svg" width="%.0f" height="%.0f" viewBox="0 0 %.0f %.0f">
<rect width="100%%" height="100%%" fill="#0a0a0a"/>
<g fill="#00ff00">
`, width, height, width, height))

	dotRadius := scale * 0.4
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			if !canvas.IsSet(x, y) {
				continue
			}
			sb.WriteString(fmt.Sprintf(`<circle cx="%.1f" cy="%.1f" r="%.1f"/>
`, float64(x)*scale+scale/2, float64(y)*scale+scale/2, dotRadius))
		}
	}

	sb.WriteString("</g>\n</svg>")
	return sb.String()
}

type frame struct {
	minX, minY, scale float64
	height            int
}

func (f frame) xy(p linkage.Point) (float64, float64) {
	return (p.X - f.minX) * f.scale, float64(f.height) - (p.Y-f.minY)*f.scale
}

// PoseToSVG draws one linkage pose: the ground link, fixed pivots, the
// moving links, and the spring and dashpot between the coupler midpoint
// and the output-link midpoint.
func PoseToSVG(g linkage.Geometry, pose linkage.Pose, width, height int) string {
	r := math.Max(g.Input, g.Output)
	minX, maxX := -g.Input, g.Ground+g.Output
	minY, maxY := -r, r
	padX, padY := 0.1*(maxX-minX), 0.1*(maxY-minY)
	minX, maxX, minY, maxY = minX-padX, maxX+padX, minY-padY, maxY+padY

	f := frame{
		minX:   minX,
		minY:   minY,
		scale:  math.Min(float64(width)/(maxX-minX), float64(height)/(maxY-minY)),
		height: height,
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf(`<?xml version="1.0" encoding="UTF-8"?>
<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d" viewBox="0 0 %d %d">
<rect width="100%%" height="100%%" fill="#ffffff"/>
`, width, height, width, height))

	line := func(p, q linkage.Point, stroke string, w float64) {
		x0, y0 := f.xy(p)
		x1, y1 := f.xy(q)
		sb.WriteString(fmt.Sprintf(`<line x1="%.2f" y1="%.2f" x2="%.2f" y2="%.2f" stroke="%s" stroke-width="%.1f"/>
`, x0, y0, x1, y1, stroke, w))
	}

	line(pose.A, pose.B, "#888888", 2)
	line(pose.A, pose.C, "#1f77b4", 4)
	line(pose.C, pose.D, "#2ca02c", 4)
	line(pose.B, pose.D, "#d62728", 4)

	from, to := pose.SpringAnchors()
	amp := 4 / f.scale
	s0, s1 := shift(from, to, 2*amp)
	sb.WriteString(`<polyline fill="none" stroke="#9467bd" stroke-width="1.5" points="`)
	for i, p := range viz.Zigzag(s0, s1, 8, amp) {
		x, y := f.xy(p)
		if i > 0 {
			sb.WriteString(" ")
		}
		sb.WriteString(fmt.Sprintf("%.2f,%.2f", x, y))
	}
	sb.WriteString("\"/>\n")

	d0, d1 := shift(from, to, -2*amp)
	line(d0, d1, "#8c564b", 1.5)
	mid := linkage.Mid(d0, d1)
	mx, my := f.xy(mid)
	sb.WriteString(fmt.Sprintf(`<rect x="%.2f" y="%.2f" width="%.2f" height="%.2f" fill="none" stroke="#8c564b" stroke-width="1.5" transform="rotate(%.2f %.2f %.2f)"/>
`, mx-0.15*from.Dist(to)*f.scale, my-amp*f.scale, 0.3*from.Dist(to)*f.scale, 2*amp*f.scale,
		-math.Atan2(d1.Y-d0.Y, d1.X-d0.X)*180/math.Pi, mx, my))

	for _, p := range []linkage.Point{pose.A, pose.B} {
		x, y := f.xy(p)
		sb.WriteString(fmt.Sprintf(`<circle cx="%.2f" cy="%.2f" r="6" fill="#333333"/>
`, x, y))
	}
	for _, p := range []linkage.Point{pose.C, pose.D} {
		x, y := f.xy(p)
		sb.WriteString(fmt.Sprintf(`<circle cx="%.2f" cy="%.2f" r="4" fill="#ffffff" stroke="#333333" stroke-width="2"/>
`, x, y))
	}

	sb.WriteString(fmt.Sprintf(`<text x="10" y="20" font-family="monospace" font-size="14">θ = %.2f°</text>
</svg>`, pose.Theta))
	return sb.String()
}

func shift(p, q linkage.Point, d float64) (linkage.Point, linkage.Point) {
	dx, dy := q.X-p.X, q.Y-p.Y
	length := math.Hypot(dx, dy)
	if length == 0 {
		return p, q
	}
	nx, ny := -dy/length*d, dx/length*d
	return linkage.Point{X: p.X + nx, Y: p.Y + ny}, linkage.Point{X: q.X + nx, Y: q.Y + ny}
}

// TrajectoryToSVG draws theta against time as a single path.
func TrajectoryToSVG(times, values []float64, width, height int, strokeColor string) string {
	n := len(times)
	if len(values) < n {
		n = len(values)
	}
	if n < 2 {
		return ""
	}

	minX, maxX := times[0], times[0]
	minY, maxY := values[0], values[0]
	for i := 0; i < n; i++ {
		minX, maxX = math.Min(minX, times[i]), math.Max(maxX, times[i])
		minY, maxY = math.Min(minY, values[i]), math.Max(maxY, values[i])
	}

	rangeX := maxX - minX
	rangeY := maxY - minY
	if rangeX == 0 {
		rangeX = 1
	}
	if rangeY == 0 {
		rangeY = 1
	}
	minX -= rangeX * 0.1
	maxX += rangeX * 0.1
	minY -= rangeY * 0.1
	maxY += rangeY * 0.1
	rangeX = maxX - minX
	rangeY = maxY - minY

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf(`<?xml version="1.0" encoding="UTF-8"?>
<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d" viewBox="0 0 %d %d">
<rect width="100%%" height="100%%" fill="#0a0a0a"/>
<path fill="none" stroke="%s" stroke-width="1.5" d="M`,
		width, height, width, height, strokeColor))

	for i := 0; i < n; i++ {
		x := (times[i] - minX) / rangeX * float64(width)
		y := float64(height) - (values[i]-minY)/rangeY*float64(height)

		if i == 0 {
			sb.WriteString(fmt.Sprintf("%.1f,%.1f", x, y))
		} else {
			sb.WriteString(fmt.Sprintf(" L%.1f,%.1f", x, y))
		}
	}

	sb.WriteString(`"/>
</svg>`)
	return sb.String()
}
