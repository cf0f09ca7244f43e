package export

import (
	"fmt"
	"io"
	"sort"

	"github.com/xuri/excelize/v2"

	"github.com/san-kum/fourbar/internal/sim"
	"github.com/san-kum/fourbar/internal/storage"
)

const (
	historySheet = "history"
	summarySheet = "summary"
)

// WorkbookFor builds a workbook with the sample history on one sheet and
// the run parameters and metrics on another.
func WorkbookFor(meta storage.RunMetadata, result *sim.Result) (*excelize.File, error) {
	f := excelize.NewFile()

	if err := f.SetSheetName("Sheet1", historySheet); err != nil {
		f.Close()
		return nil, err
	}
	if err := f.SetSheetRow(historySheet, "A1", &[]interface{}{"time", "theta", "omega"}); err != nil {
		f.Close()
		return nil, err
	}
	for i, s := range result.States {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			f.Close()
			return nil, err
		}
		row := []interface{}{result.Times[i], s[0], 0.0}
		if len(s) > 1 {
			row[2] = s[1]
		}
		if err := f.SetSheetRow(historySheet, cell, &row); err != nil {
			f.Close()
			return nil, err
		}
	}

	if _, err := f.NewSheet(summarySheet); err != nil {
		f.Close()
		return nil, err
	}
	rows := [][]interface{}{
		{"run", meta.ID},
		{"integrator", meta.Integrator},
		{"controller", meta.Controller},
		{"dt", meta.Dt},
		{"stiffness", meta.Drive.Stiffness},
		{"damping", meta.Drive.Damping},
		{"eq_angle", meta.Drive.EqAngle},
		{"min_angle", meta.Drive.MinAngle},
		{"max_angle", meta.Drive.MaxAngle},
		{"start_angle", meta.Drive.StartAngle},
		{"input", meta.Geometry.Input},
		{"coupler", meta.Geometry.Coupler},
		{"output", meta.Geometry.Output},
		{"ground", meta.Geometry.Ground},
		{"class", string(meta.Geometry.Grashof())},
		{"steps", result.StepsTaken},
		{"clamps", result.Clamps},
		{"settled", result.Settled},
		{"settled_at", result.SettledAt},
	}
	names := make([]string, 0, len(result.Metrics))
	for name := range result.Metrics {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		rows = append(rows, []interface{}{name, result.Metrics[name]})
	}
	for i, row := range rows {
		if err := f.SetSheetRow(summarySheet, fmt.Sprintf("A%d", i+1), &row); err != nil {
			f.Close()
			return nil, err
		}
	}

	return f, nil
}

func WriteXLSX(w io.Writer, meta storage.RunMetadata, result *sim.Result) error {
	f, err := WorkbookFor(meta, result)
	if err != nil {
		return err
	}
	defer f.Close()
	return f.Write(w)
}
