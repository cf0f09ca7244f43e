package export

import (
	"bytes"
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/phpdave11/gofpdf"

	"github.com/san-kum/fourbar/internal/analysis"
	"github.com/san-kum/fourbar/internal/sim"
	"github.com/san-kum/fourbar/internal/storage"
)

type ReportInput struct {
	Title  string
	Author string
	Notes  string
	Meta   storage.RunMetadata
	Result *sim.Result
}

// WriteReport renders a one-page PDF summary of a run: parameters,
// outcome, metrics, ring-down estimate and the theta history plot.
func WriteReport(w io.Writer, input ReportInput) error {
	if input.Result == nil {
		return fmt.Errorf("report needs a result")
	}
	if input.Title == "" {
		input.Title = "Four-bar linkage run"
	}
	meta, res := input.Meta, input.Result

	pdf := gofpdf.New("P", "mm", "A4", "")
	// core fonts are cp1252; user text arrives as UTF-8
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.AddPage()
	pdf.SetFont("Helvetica", "B", 16)
	pdf.Cell(0, 10, tr(input.Title))
	pdf.Ln(12)

	pdf.SetFont("Helvetica", "", 11)
	pdf.Cell(0, 6, fmt.Sprintf("Run: %s", meta.ID))
	pdf.Ln(6)
	if input.Author != "" {
		pdf.Cell(0, 6, tr("Author: "+input.Author))
		pdf.Ln(6)
	}
	pdf.Cell(0, 6, fmt.Sprintf("Date: %s", time.Now().Format("2006-01-02")))
	pdf.Ln(10)

	section := func(title string) {
		pdf.SetFont("Helvetica", "B", 12)
		pdf.Cell(0, 7, title)
		pdf.Ln(8)
		pdf.SetFont("Helvetica", "", 10)
	}
	row := func(label, value string) {
		pdf.CellFormat(60, 6, label, "", 0, "L", false, 0, "")
		pdf.CellFormat(0, 6, value, "", 1, "L", false, 0, "")
	}

	section("Parameters")
	row("Integrator", fmt.Sprintf("%s (dt = %g s)", meta.Integrator, meta.Dt))
	row("Stiffness / damping", fmt.Sprintf("%g / %g", meta.Drive.Stiffness, meta.Drive.Damping))
	row("Equilibrium", fmt.Sprintf("%.2f deg", meta.Drive.EqAngle))
	row("Limits", fmt.Sprintf("[%.2f, %.2f] deg", meta.Drive.MinAngle, meta.Drive.MaxAngle))
	row("Start angle", fmt.Sprintf("%.2f deg", meta.Drive.StartAngle))
	g := meta.Geometry
	row("Links (in/cpl/out/gnd)", fmt.Sprintf("%g / %g / %g / %g (%s)", g.Input, g.Coupler, g.Output, g.Ground, g.Grashof()))
	pdf.Ln(4)

	section("Outcome")
	row("Steps", fmt.Sprintf("%d", res.StepsTaken))
	row("Limit stops", fmt.Sprintf("%d", res.Clamps))
	if res.Settled {
		row("Settled", fmt.Sprintf("yes, at %.2f s", res.SettledAt))
	} else {
		row("Settled", "no")
	}
	names := make([]string, 0, len(res.Metrics))
	for name := range res.Metrics {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		row(name, fmt.Sprintf("%.4f", res.Metrics[name]))
	}

	decay := analysis.RingDown(res.Times, res.Series(0), meta.Drive.EqAngle)
	if decay.DampingRatio > 0 {
		row("Damping ratio (est.)", fmt.Sprintf("%.4f", decay.DampingRatio))
		row("Damped period (est.)", fmt.Sprintf("%.3f s", decay.Period))
	}
	pdf.Ln(4)

	if input.Notes != "" {
		section("Notes")
		pdf.MultiCell(0, 6, tr(input.Notes), "", "L", false)
		pdf.Ln(4)
	}

	if len(res.Times) > 1 {
		p, err := HistoryPlot(res, meta.Drive.EqAngle, meta.Drive.MinAngle, meta.Drive.MaxAngle)
		if err != nil {
			return err
		}
		var img bytes.Buffer
		if err := WritePNG(&img, p, plotWidthIn, plotHeightIn); err != nil {
			return err
		}
		opts := gofpdf.ImageOptions{ImageType: "PNG", ReadDpi: true}
		pdf.RegisterImageOptionsReader("history", opts, &img)
		pdf.ImageOptions("history", pdf.GetX(), pdf.GetY(), 180, 0, true, opts, 0, "")
	}

	if err := pdf.Error(); err != nil {
		return err
	}
	return pdf.Output(w)
}
