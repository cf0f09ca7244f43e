package main

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"os"
	"os/signal"
	"sort"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/guptarohit/asciigraph"
	"github.com/spf13/cobra"

	"github.com/san-kum/fourbar/internal/analysis"
	"github.com/san-kum/fourbar/internal/automation"
	"github.com/san-kum/fourbar/internal/config"
	"github.com/san-kum/fourbar/internal/experiment"
	"github.com/san-kum/fourbar/internal/export"
	"github.com/san-kum/fourbar/internal/linkage"
	"github.com/san-kum/fourbar/internal/optim"
	"github.com/san-kum/fourbar/internal/record"
	"github.com/san-kum/fourbar/internal/server"
	"github.com/san-kum/fourbar/internal/sim"
	"github.com/san-kum/fourbar/internal/storage"
	"github.com/san-kum/fourbar/internal/viz"
)

func runSimulation(cmd *cobra.Command, args []string) error {
	cfg, err := resolveConfig(cmd)
	if err != nil {
		return err
	}

	st := storage.New(cfg.DataDir)
	if err := st.Init(); err != nil {
		return err
	}

	exp := experiment.New(cfg, experiment.NewRegistry())
	if err := exp.Setup(); err != nil {
		return err
	}

	runID := storage.NewRunID()

	var rec *record.Recorder
	if recordPath != "" {
		rec, err = record.Open(recordPath)
		if err != nil {
			return fmt.Errorf("open recorder: %w", err)
		}
		defer rec.Close()
		if err := rec.StartRun(runID, cfg); err != nil {
			return err
		}
		exp.GetSimulator().AddObserver(rec)
	}

	fmt.Printf("running %s simulation from %.2f°...\n", cfg.Integrator, cfg.Drive.StartAngle)
	start := time.Now()

	result, err := exp.Run(context.Background())
	if err != nil {
		return err
	}
	elapsed := time.Since(start)

	if rec != nil {
		if err := rec.FinishRun(result); err != nil {
			return err
		}
	}

	if _, err := st.SaveAs(runID, cfg, result); err != nil {
		return err
	}

	fmt.Printf("completed in %v\n", elapsed)
	fmt.Printf("run id: %s\n", runID)
	fmt.Printf("steps: %d\n", result.StepsTaken)
	fmt.Printf("limit stops: %d\n", result.Clamps)
	if result.Settled {
		fmt.Printf("settled at: %.2fs (theta %.2f°)\n", result.SettledAt, result.States[len(result.States)-1][0])
	} else {
		fmt.Printf("not settled after %.2fs\n", result.Times[len(result.Times)-1])
	}
	printMetrics(result.Metrics)

	return nil
}

func printMetrics(m map[string]float64) {
	fmt.Println("\nmetrics:")
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	for _, name := range sortedKeys(m) {
		fmt.Fprintf(w, "  %s\t%.6f\n", name, m[name])
	}
	w.Flush()
}

func sortedKeys(m map[string]float64) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func runLive(cmd *cobra.Command, args []string) error {
	cfg, err := resolveConfig(cmd)
	if err != nil {
		return err
	}

	exp := experiment.New(cfg, experiment.NewRegistry())
	if err := exp.Setup(); err != nil {
		return err
	}
	session, err := exp.Session()
	if err != nil {
		return err
	}
	session.WithLogger(slog.Default())

	st := storage.New(cfg.DataDir)
	m := viz.NewModel(session, cfg.Geometry, cfg.Drive.StartAngle).
		WithLogger(slog.Default()).
		WithTheme(theme).
		WithSaver(func(start float64, r *sim.Result) (string, error) {
			if err := st.Init(); err != nil {
				return "", err
			}
			run := *cfg
			run.Drive.StartAngle = start
			return st.Save(&run, r)
		})
	return viz.Run(m)
}

func listRuns(cmd *cobra.Command, args []string) error {
	runs, err := openStore(cmd).List()
	if err != nil {
		return err
	}

	if len(runs) == 0 {
		fmt.Println("no runs found")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tTIME\tINTEG\tK\tC\tSTART\tSTEPS\tSETTLED")

	for _, run := range runs {
		settled := "-"
		if run.Settled {
			settled = fmt.Sprintf("%.2fs", run.SettledAt)
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%g\t%g\t%.2f°\t%d\t%s\n",
			run.ID,
			run.Timestamp.Format("2006-01-02 15:04:05"),
			run.Integrator,
			run.Drive.Stiffness,
			run.Drive.Damping,
			run.Drive.StartAngle,
			run.Steps,
			settled,
		)
	}

	return w.Flush()
}

func listRecords(cmd *cobra.Command, args []string) error {
	if _, err := os.Stat(args[0]); err != nil {
		return fmt.Errorf("no recording: %w", err)
	}
	rec, err := record.Open(args[0])
	if err != nil {
		return err
	}
	defer rec.Close()

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	defer w.Flush()

	if len(args) == 2 {
		samples, err := rec.Samples(args[1])
		if err != nil {
			return err
		}
		if len(samples) == 0 {
			return fmt.Errorf("no steps recorded for %s", args[1])
		}
		fmt.Fprintln(w, "STEP\tTIME\tTHETA\tOMEGA\tTORQUE")
		for _, s := range samples {
			fmt.Fprintf(w, "%d\t%.3f\t%.4f\t%.4f\t%.4f\n", s.Step, s.Time, s.Theta, s.Omega, s.Torque)
		}
		return nil
	}

	runs, err := rec.Runs()
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Fprintln(w, "no recorded runs")
		return nil
	}
	fmt.Fprintln(w, "ID\tSTARTED\tINTEG\tDT\tK\tC\tSTART\tSTEPS\tHITS\tSETTLED")
	for _, run := range runs {
		settled := "-"
		if run.Settled {
			settled = fmt.Sprintf("%.2fs", run.SettledAt)
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%g\t%.2f\t%.2f\t%.1f\t%d\t%d\t%s\n",
			run.ID, run.Started.Format("2006-01-02 15:04"), run.Integrator, run.Dt,
			run.Stiffness, run.Damping, run.StartAngle, run.Steps, run.Clamps, settled)
	}
	return nil
}

func loadRun(cmd *cobra.Command, runID string) (*storage.RunMetadata, *sim.Result, error) {
	meta, res, err := openStore(cmd).LoadResult(runID)
	if err != nil {
		return nil, nil, err
	}
	if len(res.States) == 0 {
		return nil, nil, fmt.Errorf("run %s has no samples", runID)
	}
	return meta, res, nil
}

func plotRun(cmd *cobra.Command, args []string) error {
	meta, res, err := loadRun(cmd, args[0])
	if err != nil {
		return err
	}

	fmt.Printf("run: %s\n", meta.ID)
	fmt.Printf("samples: %d\n\n", len(res.States))

	captions := []string{"theta (deg) vs time", "omega (deg/s) vs time"}
	for i, caption := range captions {
		graph := asciigraph.Plot(res.Series(i),
			asciigraph.Height(10),
			asciigraph.Width(80),
			asciigraph.Caption(caption),
		)
		fmt.Println(graph)
		fmt.Println()
	}
	return nil
}

func phasePlot(cmd *cobra.Command, args []string) error {
	meta, res, err := loadRun(cmd, args[0])
	if err != nil {
		return err
	}

	fmt.Printf("phase portrait: %s\n", meta.ID)
	fmt.Printf("x-axis: theta (deg), y-axis: omega (deg/s)\n\n")
	points := analysis.PhasePortrait(res.Series(0), res.Series(1))
	fmt.Print(analysis.PhasePortraitToASCII(points, 70, 20))
	return nil
}

func outputFor(runID, ext string) string {
	if outPath != "" {
		return outPath
	}
	return runID + ext
}

func exportPNG(cmd *cobra.Command, args []string) error {
	meta, res, err := loadRun(cmd, args[0])
	if err != nil {
		return err
	}
	path := outputFor(meta.ID, ".png")
	if err := export.SaveHistoryPNG(path, res, meta.Drive.EqAngle, meta.Drive.MinAngle, meta.Drive.MaxAngle); err != nil {
		return err
	}
	fmt.Printf("wrote %s\n", path)
	return nil
}

func exportSVG(cmd *cobra.Command, args []string) error {
	theta, err := strconv.ParseFloat(args[0], 64)
	if err != nil {
		return fmt.Errorf("invalid angle %q: %w", args[0], err)
	}
	g := geometryFlags(cmd, linkage.DefaultGeometry())
	if err := g.Validate(); err != nil {
		return err
	}
	pose, err := g.Solve(theta)
	if err != nil {
		return err
	}

	svg := export.PoseToSVG(g, pose, 640, 360)
	if outPath == "" {
		fmt.Println(svg)
		return nil
	}
	if err := os.WriteFile(outPath, []byte(svg), 0644); err != nil {
		return err
	}
	fmt.Printf("wrote %s\n", outPath)
	return nil
}

func solvePoses(cmd *cobra.Command, args []string) error {
	g := geometryFlags(cmd, linkage.DefaultGeometry())
	if err := g.Validate(); err != nil {
		return err
	}

	fmt.Printf("linkage: input %g, coupler %g, output %g, ground %g (%s)\n\n",
		g.Input, g.Coupler, g.Output, g.Ground, g.Grashof())

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "THETA\tC\tD\tOUTPUT\tTRANSMISSION\tNOTE")
	for _, arg := range args {
		theta, err := strconv.ParseFloat(arg, 64)
		if err != nil {
			return fmt.Errorf("invalid angle %q: %w", arg, err)
		}
		pose, err := g.Solve(theta)
		if err != nil {
			fmt.Fprintf(w, "%.2f°\t-\t-\t-\t-\t%v\n", theta, err)
			continue
		}
		note := ""
		switch {
		case pose.Clamped:
			note = "out of reach"
		case pose.Fallback:
			note = "no triangle"
		}
		fmt.Fprintf(w, "%.2f°\t(%.2f, %.2f)\t(%.2f, %.2f)\t%.2f°\t%.2f°\t%s\n",
			theta, pose.C.X, pose.C.Y, pose.D.X, pose.D.Y, pose.OutputAngle, pose.TransmissionAngle, note)
	}
	return w.Flush()
}

func exportCSV(cmd *cobra.Command, args []string) error {
	_, res, err := loadRun(cmd, args[0])
	if err != nil {
		return err
	}
	return storage.WriteStatesCSV(os.Stdout, res)
}

func exportJSON(cmd *cobra.Command, args []string) error {
	meta, res, err := loadRun(cmd, args[0])
	if err != nil {
		return err
	}
	return export.WriteJSON(os.Stdout, *meta, res)
}

func exportXLSX(cmd *cobra.Command, args []string) error {
	meta, res, err := loadRun(cmd, args[0])
	if err != nil {
		return err
	}
	path := outputFor(meta.ID, ".xlsx")
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	if err := export.WriteXLSX(f, *meta, res); err != nil {
		return err
	}
	fmt.Printf("wrote %s\n", path)
	return nil
}

func writeReport(cmd *cobra.Command, args []string) error {
	meta, res, err := loadRun(cmd, args[0])
	if err != nil {
		return err
	}
	path := outputFor(meta.ID, ".pdf")
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	if err := export.WriteReport(f, export.ReportInput{
		Title:  title,
		Author: os.Getenv("USER"),
		Notes:  notes,
		Meta:   *meta,
		Result: res,
	}); err != nil {
		return err
	}
	fmt.Printf("wrote %s\n", path)
	return nil
}

func analyzeRun(cmd *cobra.Command, args []string) error {
	meta, res, err := loadRun(cmd, args[0])
	if err != nil {
		return err
	}

	theta := res.Series(0)
	fmt.Printf("analysis: %s\n\n", meta.ID)

	decay := analysis.RingDown(res.Times, theta, meta.Drive.EqAngle)
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "peaks\t%d\n", len(decay.Peaks))
	if decay.DampingRatio > 0 {
		fmt.Fprintf(w, "log decrement\t%.4f\n", decay.LogDecrement)
		fmt.Fprintf(w, "damping ratio\t%.4f\n", decay.DampingRatio)
		fmt.Fprintf(w, "damped period\t%.3f s\n", decay.Period)
		fmt.Fprintf(w, "natural freq\t%.4f rad/s\n", decay.NaturalFreqRad)
	} else {
		fmt.Fprintf(w, "damping ratio\tn/a (fewer than three peaks)\n")
	}

	// closed form for the linear drive with unit inertia
	if k, c := meta.Drive.Stiffness, meta.Drive.Damping; k > 0 {
		fmt.Fprintf(w, "model damping ratio\t%.4f\n", c/(2*math.Sqrt(k)))
	}
	if err := w.Flush(); err != nil {
		return err
	}

	if len(theta) < 4 {
		return nil
	}
	detrended := make([]float64, len(theta))
	for i, v := range theta {
		detrended[i] = v - meta.Drive.EqAngle
	}
	ps := analysis.PowerSpectrum(analysis.PadPow2(detrended))
	if n := len(ps) / 4; n > 1 {
		fmt.Println()
		fmt.Println(asciigraph.Plot(ps[:n],
			asciigraph.Height(12),
			asciigraph.Width(80),
			asciigraph.Caption("power spectrum (theta)"),
		))
	}
	if freq := analysis.DominantFrequency(detrended, meta.Dt); freq > 0 {
		fmt.Printf("\ndominant frequency: %.4f hz\n", freq)
		fmt.Printf("period: %.3f s\n", 1.0/freq)
	}
	return nil
}

func compareIntegrators(cmd *cobra.Command, args []string) error {
	cfg, err := resolveConfig(cmd)
	if err != nil {
		return err
	}
	registry := experiment.NewRegistry()

	fmt.Printf("comparing integrators from %.2f° (dt=%g, k=%g, c=%g)\n\n",
		cfg.Drive.StartAngle, cfg.Dt, cfg.Drive.Stiffness, cfg.Drive.Damping)

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "INTEGRATOR\tSTEPS\tSETTLED\tFINAL\tENERGY\tOVERSHOOT\tTIME")

	for _, name := range args {
		c := *cfg
		c.Integrator = name
		exp := experiment.New(&c, registry)
		if err := exp.Setup(); err != nil {
			return err
		}

		start := time.Now()
		res, err := exp.Run(context.Background())
		elapsed := time.Since(start)
		if err != nil {
			fmt.Fprintf(w, "%s\t-\t-\t-\t-\t-\t%v\n", name, err)
			continue
		}

		settled := "-"
		if res.Settled {
			settled = fmt.Sprintf("%.2fs", res.SettledAt)
		}
		final := res.States[len(res.States)-1][0]
		fmt.Fprintf(w, "%s\t%d\t%s\t%.3f°\t%.4f\t%.3f\t%v\n",
			name, res.StepsTaken, settled, final, res.Metrics["energy"], res.Metrics["overshoot"], elapsed)
	}
	return w.Flush()
}

func sweepStarts(cmd *cobra.Command, args []string) error {
	cfg, err := resolveConfig(cmd)
	if err != nil {
		return err
	}

	points, err := experiment.SweepStartAngles(context.Background(), cfg, experiment.NewRegistry(), sweepN)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "START\tSTEPS\tSETTLED\tCLAMPS\tPEAK DAMPING")
	for _, p := range points {
		settled := "-"
		if p.Result.Settled {
			settled = fmt.Sprintf("%.2fs", p.Result.SettledAt)
		}
		fmt.Fprintf(w, "%.2f°\t%d\t%s\t%d\t%.4f\n",
			p.StartAngle, p.Result.StepsTaken, settled, p.Result.Clamps, p.Result.Metrics["peak_damping"])
	}
	return w.Flush()
}

func listPresets(cmd *cobra.Command, args []string) error {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "PRESET\tK\tC\tEQ\tLIMITS\tSTART\tCONTROLLER")
	for _, name := range config.ListPresets() {
		p := config.GetPreset(name)
		fmt.Fprintf(w, "%s\t%g\t%g\t%.0f°\t[%.0f°, %.0f°]\t%.0f°\t%s\n",
			name, p.Drive.Stiffness, p.Drive.Damping, p.Drive.EqAngle,
			p.Drive.MinAngle, p.Drive.MaxAngle, p.Drive.StartAngle, p.Controller)
	}
	return w.Flush()
}

func serve(cmd *cobra.Command, args []string) error {
	cfg, err := resolveConfig(cmd)
	if err != nil {
		return err
	}

	st := storage.New(cfg.DataDir)
	if err := st.Init(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	srv := server.New(st, experiment.NewRegistry(), cfg, slog.Default())
	fmt.Printf("serving %s on %s\n", cfg.DataDir, addr)
	return srv.ListenAndServe(ctx, addr)
}

func runScenario(cmd *cobra.Command, args []string) error {
	base, err := resolveConfig(cmd)
	if err != nil {
		return err
	}
	sc, err := automation.LoadScenario(args[0])
	if err != nil {
		return err
	}

	st := storage.New(base.DataDir)
	if err := st.Init(); err != nil {
		return err
	}

	fmt.Printf("scenario: %s (%d steps)\n", sc.Name, len(sc.Steps))
	if sc.Description != "" {
		fmt.Println(sc.Description)
	}
	fmt.Println()

	results, err := automation.RunScenario(context.Background(), sc, base, experiment.NewRegistry(), st, slog.Default())
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "STEP\tINTEG\tK\tC\tSTART\tSTEPS\tSETTLED\tRUN")
	for _, r := range results {
		settled := "-"
		if r.Result.Settled {
			settled = fmt.Sprintf("%.2fs", r.Result.SettledAt)
		}
		runID := r.RunID
		if runID == "" {
			runID = "-"
		}
		fmt.Fprintf(w, "%s\t%s\t%g\t%g\t%.2f°\t%d\t%s\t%s\n",
			r.Name, r.Config.Integrator, r.Config.Drive.Stiffness, r.Config.Drive.Damping,
			r.Config.Drive.StartAngle, r.Result.StepsTaken, settled, runID)
	}
	if ferr := w.Flush(); ferr != nil {
		return ferr
	}
	return err
}

func scanParameter(cmd *cobra.Command, args []string) error {
	cfg, err := resolveConfig(cmd)
	if err != nil {
		return err
	}

	sweep := &automation.ParameterSweep{Param: scanParam, Min: scanMin, Max: scanMax, NumSteps: scanN}
	results, err := automation.RunSweep(context.Background(), sweep, cfg, experiment.NewRegistry())
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "%s\tSETTLED\tCLAMPS\tFINAL\tMAX ENERGY\tMIN ENERGY\n", scanParam)
	for _, r := range results {
		settled := "-"
		if r.Settled {
			settled = fmt.Sprintf("%.2fs", r.SettledAt)
		}
		fmt.Fprintf(w, "%g\t%s\t%d\t%.3f°\t%.4f\t%.4f\n",
			r.ParamValue, settled, r.Clamps, r.FinalState[0], r.MaxEnergy, r.MinEnergy)
	}
	return w.Flush()
}

func monteCarlo(cmd *cobra.Command, args []string) error {
	cfg, err := resolveConfig(cmd)
	if err != nil {
		return err
	}

	mc := &automation.MonteCarloConfig{Perturbation: mcSpread, NumTrials: mcTrials, Seed: mcSeed}
	results, err := automation.RunMonteCarlo(context.Background(), mc, cfg, experiment.NewRegistry())
	if err != nil {
		return err
	}

	settled, unsettled, mean := automation.MonteCarloStats(results)
	fmt.Printf("trials: %d around %.2f° (±%g°)\n", len(results), cfg.Drive.StartAngle, mcSpread)
	fmt.Printf("settled: %d\n", settled)
	fmt.Printf("not settled: %d\n", unsettled)
	if settled > 0 {
		fmt.Printf("mean settle time: %.2fs\n", mean)
	}
	return nil
}

func tuneDrive(cmd *cobra.Command, args []string) error {
	cfg, err := resolveConfig(cmd)
	if err != nil {
		return err
	}

	g, err := optim.NewGridSearch([]string{"k", "c"}, [][]float64{tuneK, tuneC})
	if err != nil {
		return err
	}
	fmt.Printf("searching %d drive settings for lowest %s...\n", g.Size(), tuneMetric)

	best, err := g.Search(context.Background(), cfg, experiment.NewRegistry(), optim.ObjectiveFor(tuneMetric))
	if err != nil {
		return err
	}

	fmt.Printf("tried: %d\n", best.Tried)
	fmt.Printf("best: k=%g c=%g\n", best.Params["k"], best.Params["c"])
	if math.IsInf(best.Score, 1) {
		fmt.Printf("%s: none of the runs produced a score\n", tuneMetric)
		return nil
	}
	fmt.Printf("%s: %.4f\n", tuneMetric, best.Score)
	return nil
}
