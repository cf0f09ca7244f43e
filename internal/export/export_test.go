package export

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/phpdave11/gofpdf"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/san-kum/fourbar/internal/config"
	"github.com/san-kum/fourbar/internal/experiment"
	"github.com/san-kum/fourbar/internal/linkage"
	"github.com/san-kum/fourbar/internal/sim"
	"github.com/san-kum/fourbar/internal/storage"
	"github.com/san-kum/fourbar/internal/viz"
)

func runDefault(t *testing.T) (storage.RunMetadata, *sim.Result) {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.Duration = 30
	e := experiment.New(cfg, experiment.NewRegistry())
	require.NoError(t, e.Setup())
	res, err := e.Run(context.Background())
	require.NoError(t, err)
	meta := storage.MetadataFor(cfg, res)
	meta.ID = "fourbar_test"
	return meta, res
}

func TestPoseToSVG(t *testing.T) {
	g := linkage.DefaultGeometry()
	pose, err := g.Solve(45)
	require.NoError(t, err)

	svg := PoseToSVG(g, pose, 640, 360)
	assert.True(t, strings.HasPrefix(svg, "<?xml"))
	assert.True(t, strings.HasSuffix(svg, "</svg>"))
	assert.Equal(t, 5, strings.Count(svg, "<line"), "ground, three links and dashpot rod")
	assert.Contains(t, svg, "<polyline")
	assert.Contains(t, svg, "45.00°")
	assert.NotContains(t, svg, "NaN")
}

func TestTrajectoryToSVG(t *testing.T) {
	assert.Empty(t, TrajectoryToSVG([]float64{0}, []float64{1}, 100, 100, "#fff"))

	svg := TrajectoryToSVG([]float64{0, 1, 2}, []float64{45, 10, -3}, 200, 100, "#00ff00")
	assert.Contains(t, svg, `stroke="#00ff00"`)
	assert.Equal(t, 2, strings.Count(svg, " L"))
}

func TestCanvasToSVG(t *testing.T) {
	assert.Empty(t, CanvasToSVG(nil, 2))

	c := viz.NewCanvas(4, 2)
	c.Set(0, 0)
	c.Set(7, 7)
	svg := CanvasToSVG(c, 2)
	assert.Equal(t, 2, strings.Count(svg, "<circle"))
}

func TestWriteJSON(t *testing.T) {
	meta, res := runDefault(t)

	var buf bytes.Buffer
	require.NoError(t, WriteJSON(&buf, meta, res))

	var got Data
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	assert.Equal(t, "fourbar_test", got.Run.ID)
	assert.Equal(t, linkage.DefaultGeometry().Grashof(), got.Class)
	require.Len(t, got.Samples, len(res.States))
	assert.Equal(t, 45.0, got.Samples[0].Theta)
}

func TestWriteXLSX(t *testing.T) {
	meta, res := runDefault(t)

	var buf bytes.Buffer
	require.NoError(t, WriteXLSX(&buf, meta, res))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(historySheet)
	require.NoError(t, err)
	assert.Len(t, rows, len(res.States)+1)
	assert.Equal(t, []string{"time", "theta", "omega"}, rows[0])

	summary, err := f.GetRows(summarySheet)
	require.NoError(t, err)
	assert.Equal(t, []string{"run", "fourbar_test"}, summary[0])
}

func TestHistoryPlotAndPNG(t *testing.T) {
	meta, res := runDefault(t)

	_, err := HistoryPlot(&sim.Result{}, 0, -90, 90)
	assert.Error(t, err)

	p, err := HistoryPlot(res, meta.Drive.EqAngle, meta.Drive.MinAngle, meta.Drive.MaxAngle)
	require.NoError(t, err)
	assert.LessOrEqual(t, p.Y.Min, -90.0)
	assert.GreaterOrEqual(t, p.Y.Max, 90.0)

	var buf bytes.Buffer
	require.NoError(t, WritePNG(&buf, p, 4, 3))
	assert.True(t, bytes.HasPrefix(buf.Bytes(), []byte("\x89PNG")))
}

func TestWriteReport(t *testing.T) {
	meta, res := runDefault(t)

	var buf bytes.Buffer
	require.NoError(t, WriteReport(&buf, ReportInput{Meta: meta, Result: res, Notes: "default preset"}))
	assert.True(t, bytes.HasPrefix(buf.Bytes(), []byte("%PDF")))

	assert.Error(t, WriteReport(&buf, ReportInput{Meta: meta}))
}

func TestWriteReportNonLatinText(t *testing.T) {
	meta, res := runDefault(t)

	var buf bytes.Buffer
	err := WriteReport(&buf, ReportInput{
		Title:  "Kurbelschwinge → Dämpfung",
		Author: "Zoë",
		Notes:  "θ ≈ 45°, Federsteifigkeit 0.1",
		Meta:   meta,
		Result: res,
	})
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(buf.Bytes(), []byte("%PDF")))

	tr := gofpdf.New("P", "mm", "A4", "").UnicodeTranslatorFromDescriptor("")
	assert.Equal(t, "D\xe4mpfung 45\xb0", tr("Dämpfung 45°"))
}
