package export

import (
	"bufio"
	"fmt"
	"image/color"
	"io"
	"math"
	"os"
	"path/filepath"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/draw"
	"gonum.org/v1/plot/vg/vgimg"

	"github.com/san-kum/fourbar/internal/sim"
)

const (
	plotWidthIn  = 8.0
	plotHeightIn = 5.0
	plotDPI      = 150
)

func limitedTicker(maxLabels int, labelFmt string) plot.Ticker {
	if maxLabels < 2 {
		maxLabels = 2
	}
	return plot.TickerFunc(func(min, max float64) []plot.Tick {
		if math.IsNaN(min) || math.IsNaN(max) || math.IsInf(min, 0) || math.IsInf(max, 0) {
			return nil
		}
		if min == max {
			return []plot.Tick{{Value: min, Label: fmt.Sprintf(labelFmt, min)}}
		}
		step := (max - min) / float64(maxLabels-1)
		ticks := make([]plot.Tick, 0, maxLabels)
		for i := 0; i < maxLabels; i++ {
			v := min + float64(i)*step
			ticks = append(ticks, plot.Tick{Value: v, Label: fmt.Sprintf(labelFmt, v)})
		}
		return ticks
	})
}

func stylePlot(p *plot.Plot) {
	p.Title.TextStyle.Font.Size = vg.Points(16)
	p.Title.Padding = vg.Points(8)

	p.X.Label.TextStyle.Font.Size = vg.Points(13)
	p.Y.Label.TextStyle.Font.Size = vg.Points(13)
	p.X.Padding = vg.Points(10)
	p.Y.Padding = vg.Points(10)

	p.X.Tick.Label.Font.Size = vg.Points(11)
	p.Y.Tick.Label.Font.Size = vg.Points(11)

	p.X.Tick.Marker = limitedTicker(8, "%.1f")
	p.Y.Tick.Marker = limitedTicker(8, "%.1f")
	p.Add(plotter.NewGrid())
}

// HistoryPlot plots theta against time with the equilibrium and the angle
// limits as reference lines.
func HistoryPlot(result *sim.Result, eq, min, max float64) (*plot.Plot, error) {
	if len(result.Times) == 0 || len(result.Times) != len(result.States) {
		return nil, fmt.Errorf("plot data invalid")
	}

	p := plot.New()
	p.Title.Text = "Input angle vs time"
	p.X.Label.Text = "time (s)"
	p.Y.Label.Text = "theta (deg)"
	stylePlot(p)

	pts := make(plotter.XYs, len(result.Times))
	for i := range result.Times {
		pts[i].X = result.Times[i]
		pts[i].Y = result.States[i][0]
	}
	line, err := plotter.NewLine(pts)
	if err != nil {
		return nil, err
	}
	line.LineStyle.Width = vg.Points(2)
	line.LineStyle.Color = color.RGBA{R: 31, G: 119, B: 180, A: 255}
	p.Add(line)
	p.Legend.Add("theta", line)

	t0, t1 := result.Times[0], result.Times[len(result.Times)-1]
	ref := func(y float64, c color.Color, dashed bool) error {
		l, err := plotter.NewLine(plotter.XYs{{X: t0, Y: y}, {X: t1, Y: y}})
		if err != nil {
			return err
		}
		l.LineStyle.Color = c
		l.LineStyle.Width = vg.Points(1)
		if dashed {
			l.LineStyle.Dashes = []vg.Length{vg.Points(4), vg.Points(3)}
		}
		p.Add(l)
		return nil
	}
	if err := ref(eq, color.RGBA{R: 44, G: 160, B: 44, A: 255}, true); err != nil {
		return nil, err
	}
	for _, lim := range []float64{min, max} {
		if err := ref(lim, color.RGBA{R: 214, G: 39, B: 40, A: 255}, false); err != nil {
			return nil, err
		}
	}
	p.Y.Min = math.Min(p.Y.Min, min)
	p.Y.Max = math.Max(p.Y.Max, max)

	return p, nil
}

// WritePNG renders p as a PNG of the given size in inches.
func WritePNG(w io.Writer, p *plot.Plot, widthIn, heightIn float64) error {
	c := vgimg.NewWith(
		vgimg.UseWH(vg.Length(widthIn)*vg.Inch, vg.Length(heightIn)*vg.Inch),
		vgimg.UseDPI(plotDPI),
	)
	p.Draw(draw.New(c))

	bw := bufio.NewWriter(w)
	if _, err := (vgimg.PngCanvas{Canvas: c}).WriteTo(bw); err != nil {
		return fmt.Errorf("cannot write png: %w", err)
	}
	return bw.Flush()
}

// SaveHistoryPNG writes the theta history plot to filename.
func SaveHistoryPNG(filename string, result *sim.Result, eq, min, max float64) error {
	p, err := HistoryPlot(result, eq, min, max)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(filename), 0o755); err != nil {
		return fmt.Errorf("cannot create directory: %w", err)
	}
	f, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("cannot create png: %w", err)
	}
	defer f.Close()
	return WritePNG(f, p, plotWidthIn, plotHeightIn)
}
