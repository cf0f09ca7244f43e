package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"github.com/tebeka/atexit"

	"github.com/san-kum/fourbar/internal/config"
	"github.com/san-kum/fourbar/internal/linkage"
	"github.com/san-kum/fourbar/internal/optim"
	"github.com/san-kum/fourbar/internal/storage"
)

var (
	dataDir    string
	envFile    string
	verbose    bool
	configFile string
	preset     string

	dt         float64
	duration   float64
	startAngle float64
	stiffness  float64
	damping    float64
	eqAngle    float64
	minAngle   float64
	maxAngle   float64
	integrator string
	controller string
	kp         float64
	ki         float64
	kd         float64
	target     float64
	maxTorque  float64
	torque     float64
	noSettle   bool

	inputLen   float64
	couplerLen float64
	outputLen  float64
	groundLen  float64

	recordPath string
	outPath    string
	addr       string
	theme      string
	sweepN     int
	title      string
	notes      string

	scanParam  string
	scanMin    float64
	scanMax    float64
	scanN      int
	mcTrials   int
	mcSpread   float64
	mcSeed     int64
	tuneK      []float64
	tuneC      []float64
	tuneMetric string
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "fourbar",
		Short: "four-bar linkage spring-damper simulation lab",
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			level := slog.LevelWarn
			if verbose {
				level = slog.LevelDebug
			}
			slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
		},
		RunE:          runLive,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVar(&dataDir, "data", config.DefaultDataDir, "data directory")
	rootCmd.PersistentFlags().StringVar(&envFile, "env", ".env", "dotenv file with FOURBAR_* settings")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging on stderr")
	addSimFlags(rootCmd)

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "run simulation and store the result",
		Args:  cobra.NoArgs,
		RunE:  runSimulation,
	}
	addSimFlags(runCmd)
	runCmd.Flags().StringVar(&recordPath, "record", "", "also record every step to this sqlite file")

	liveCmd := &cobra.Command{
		Use:   "live",
		Short: "animate the linkage in the terminal",
		Args:  cobra.NoArgs,
		RunE:  runLive,
	}
	addSimFlags(liveCmd)

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "list runs",
		Args:  cobra.NoArgs,
		RunE:  listRuns,
	}

	recordsCmd := &cobra.Command{
		Use:   "records [db] [run_id]",
		Short: "list runs in a step recording, or the steps of one run",
		Args:  cobra.RangeArgs(1, 2),
		RunE:  listRecords,
	}

	plotCmd := &cobra.Command{
		Use:   "plot [run_id]",
		Short: "plot run results",
		Args:  cobra.ExactArgs(1),
		RunE:  plotRun,
	}

	phaseCmd := &cobra.Command{
		Use:   "phase [run_id]",
		Short: "theta/omega phase portrait",
		Args:  cobra.ExactArgs(1),
		RunE:  phasePlot,
	}

	pngCmd := &cobra.Command{
		Use:   "png [run_id]",
		Short: "render theta vs time to a PNG file",
		Args:  cobra.ExactArgs(1),
		RunE:  exportPNG,
	}
	pngCmd.Flags().StringVarP(&outPath, "out", "o", "", "output file (default <run_id>.png)")

	svgCmd := &cobra.Command{
		Use:   "svg [angle]",
		Short: "draw the linkage at an input angle as SVG",
		Args:  cobra.ExactArgs(1),
		RunE:  exportSVG,
	}
	addGeometryFlags(svgCmd)
	svgCmd.Flags().StringVarP(&outPath, "out", "o", "", "output file (default stdout)")

	poseCmd := &cobra.Command{
		Use:   "pose [angle...]",
		Short: "solve joint positions for input angles",
		Args:  cobra.MinimumNArgs(1),
		RunE:  solvePoses,
	}
	addGeometryFlags(poseCmd)

	exportCSVCmd := &cobra.Command{
		Use:   "export-csv [run_id]",
		Short: "export run data to CSV",
		Args:  cobra.ExactArgs(1),
		RunE:  exportCSV,
	}

	exportJSONCmd := &cobra.Command{
		Use:   "export-json [run_id]",
		Short: "export run data to JSON",
		Args:  cobra.ExactArgs(1),
		RunE:  exportJSON,
	}

	exportXLSXCmd := &cobra.Command{
		Use:   "export-xlsx [run_id]",
		Short: "export run data to an Excel workbook",
		Args:  cobra.ExactArgs(1),
		RunE:  exportXLSX,
	}
	exportXLSXCmd.Flags().StringVarP(&outPath, "out", "o", "", "output file (default <run_id>.xlsx)")

	reportCmd := &cobra.Command{
		Use:   "report [run_id]",
		Short: "write a PDF report for a run",
		Args:  cobra.ExactArgs(1),
		RunE:  writeReport,
	}
	reportCmd.Flags().StringVarP(&outPath, "out", "o", "", "output file (default <run_id>.pdf)")
	reportCmd.Flags().StringVar(&title, "title", "", "report title")
	reportCmd.Flags().StringVar(&notes, "notes", "", "free text added to the report")

	analyzeCmd := &cobra.Command{
		Use:   "analyze [run_id]",
		Short: "ring-down and frequency analysis",
		Args:  cobra.ExactArgs(1),
		RunE:  analyzeRun,
	}

	compareCmd := &cobra.Command{
		Use:   "compare [integrator1] [integrator2] ...",
		Short: "compare integrators on the same drive",
		Args:  cobra.MinimumNArgs(2),
		RunE:  compareIntegrators,
	}
	addSimFlags(compareCmd)

	sweepCmd := &cobra.Command{
		Use:   "sweep",
		Short: "run from start angles spread across the limits",
		Args:  cobra.NoArgs,
		RunE:  sweepStarts,
	}
	addSimFlags(sweepCmd)
	sweepCmd.Flags().IntVar(&sweepN, "n", 7, "number of start angles")

	presetsCmd := &cobra.Command{
		Use:   "presets",
		Short: "list available presets",
		Args:  cobra.NoArgs,
		RunE:  listPresets,
	}

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "serve runs and the simulator over HTTP",
		Args:  cobra.NoArgs,
		RunE:  serve,
	}
	addSimFlags(serveCmd)
	serveCmd.Flags().StringVar(&addr, "addr", ":8080", "listen address")

	scenarioCmd := &cobra.Command{
		Use:   "scenario [file]",
		Short: "run the steps of a yaml scenario",
		Args:  cobra.ExactArgs(1),
		RunE:  runScenario,
	}
	addSimFlags(scenarioCmd)

	scanCmd := &cobra.Command{
		Use:   "scan",
		Short: "sweep one drive parameter (k, c, eq, min, max, start)",
		Args:  cobra.NoArgs,
		RunE:  scanParameter,
	}
	addSimFlags(scanCmd)
	scanCmd.Flags().StringVar(&scanParam, "param", "c", "drive parameter to vary")
	scanCmd.Flags().Float64Var(&scanMin, "from", 0, "first value")
	scanCmd.Flags().Float64Var(&scanMax, "to", 1, "last value")
	scanCmd.Flags().IntVar(&scanN, "n", 5, "number of values")

	monteCarloCmd := &cobra.Command{
		Use:   "montecarlo",
		Short: "run from randomly perturbed start angles",
		Args:  cobra.NoArgs,
		RunE:  monteCarlo,
	}
	addSimFlags(monteCarloCmd)
	monteCarloCmd.Flags().IntVar(&mcTrials, "trials", 20, "number of trials")
	monteCarloCmd.Flags().Float64Var(&mcSpread, "spread", 10, "start angle perturbation (deg)")
	monteCarloCmd.Flags().Int64Var(&mcSeed, "seed", 0, "random seed (0: time based)")

	tuneCmd := &cobra.Command{
		Use:   "tune",
		Short: "grid search stiffness and damping for the best run",
		Args:  cobra.NoArgs,
		RunE:  tuneDrive,
	}
	addSimFlags(tuneCmd)
	tuneCmd.Flags().Float64SliceVar(&tuneK, "k-values", []float64{0.05, 0.1, 0.2, 0.5}, "stiffness values")
	tuneCmd.Flags().Float64SliceVar(&tuneC, "c-values", []float64{0.05, 0.2, 0.5, 1}, "damping values")
	tuneCmd.Flags().StringVar(&tuneMetric, "metric", optim.SettleTime, "objective to minimise (settle_time or a metric name)")

	rootCmd.AddCommand(runCmd, liveCmd, listCmd, recordsCmd, plotCmd, phaseCmd, pngCmd, svgCmd, poseCmd,
		exportCSVCmd, exportJSONCmd, exportXLSXCmd, reportCmd, analyzeCmd, compareCmd,
		sweepCmd, scenarioCmd, scanCmd, monteCarloCmd, tuneCmd, presetsCmd, serveCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		atexit.Exit(1)
	}
	atexit.Exit(0)
}

func addSimFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.StringVar(&configFile, "config", "", "config file path (yaml)")
	f.StringVar(&preset, "preset", "", "use preset configuration")
	f.Float64Var(&dt, "dt", 0, "timestep (s)")
	f.Float64Var(&duration, "time", 0, "maximum simulated time (s)")
	f.Float64Var(&startAngle, "theta", 0, "start angle (deg)")
	f.Float64Var(&stiffness, "k", 0, "spring stiffness")
	f.Float64Var(&damping, "c", 0, "damping coefficient")
	f.Float64Var(&eqAngle, "eq", 0, "equilibrium angle (deg)")
	f.Float64Var(&minAngle, "min", 0, "lower angle limit (deg)")
	f.Float64Var(&maxAngle, "max", 0, "upper angle limit (deg)")
	f.StringVar(&integrator, "integrator", "", "integrator (euler, symplectic, rk4, verlet, exact)")
	f.StringVar(&controller, "controller", "", "controller (none, constant, pid)")
	f.Float64Var(&kp, "kp", 0, "pid kp")
	f.Float64Var(&ki, "ki", 0, "pid ki")
	f.Float64Var(&kd, "kd", 0, "pid kd")
	f.Float64Var(&target, "target", 0, "pid target angle (deg, default: equilibrium)")
	f.Float64Var(&maxTorque, "max-torque", 0, "pid torque limit (0: unlimited)")
	f.Float64Var(&torque, "torque", 0, "constant controller torque")
	f.BoolVar(&noSettle, "no-settle", false, "keep running after the drive settles")
	f.StringVar(&theme, "theme", "classic", "live view theme")
	addGeometryFlags(cmd)
}

func addGeometryFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.Float64Var(&inputLen, "input", 0, "input link length")
	f.Float64Var(&couplerLen, "coupler", 0, "coupler link length")
	f.Float64Var(&outputLen, "output", 0, "output link length")
	f.Float64Var(&groundLen, "ground", 0, "ground link length")
}

// resolveConfig builds the effective configuration. Later sources win:
// defaults, environment, preset, config file, flags.
func resolveConfig(cmd *cobra.Command) (*config.Config, error) {
	env, err := config.Environment(envFile)
	if err != nil {
		return nil, err
	}

	cfg := config.DefaultConfig()
	if err := config.ApplyEnv(cfg, env); err != nil {
		return nil, err
	}

	if preset != "" {
		p := config.GetPreset(preset)
		if p == nil {
			return nil, fmt.Errorf("unknown preset: %s (available: %v)", preset, config.ListPresets())
		}
		p.DataDir = cfg.DataDir
		cfg = p
	}

	if configFile != "" {
		cfg, err = config.LoadOver(configFile, cfg)
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
	}

	flags := cmd.Flags()
	floats := map[string]*float64{
		"dt":         &cfg.Dt,
		"time":       &cfg.Duration,
		"theta":      &cfg.Drive.StartAngle,
		"k":          &cfg.Drive.Stiffness,
		"c":          &cfg.Drive.Damping,
		"eq":         &cfg.Drive.EqAngle,
		"min":        &cfg.Drive.MinAngle,
		"max":        &cfg.Drive.MaxAngle,
		"kp":         &cfg.ControllerParams.Kp,
		"ki":         &cfg.ControllerParams.Ki,
		"kd":         &cfg.ControllerParams.Kd,
		"max-torque": &cfg.ControllerParams.MaxTorque,
		"torque":     &cfg.ControllerParams.Torque,
	}
	for name, dst := range floats {
		if flags.Changed(name) {
			*dst, _ = flags.GetFloat64(name)
		}
	}
	if flags.Changed("target") {
		cfg.SetTarget(target)
	}
	if flags.Changed("integrator") {
		cfg.Integrator = integrator
	}
	if flags.Changed("controller") {
		cfg.Controller = controller
	}
	if flags.Changed("no-settle") {
		cfg.StopOnSettle = !noSettle
	}
	cfg.Geometry = geometryFlags(cmd, cfg.Geometry)
	if flags.Changed("data") {
		cfg.DataDir = dataDir
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	slog.Debug("config", "integrator", cfg.Integrator, "dt", cfg.Dt, "k", cfg.Drive.Stiffness,
		"c", cfg.Drive.Damping, "start", cfg.Drive.StartAngle, "data", cfg.DataDir)
	return cfg, nil
}

func geometryFlags(cmd *cobra.Command, g linkage.Geometry) linkage.Geometry {
	flags := cmd.Flags()
	for name, dst := range map[string]*float64{
		"input":   &g.Input,
		"coupler": &g.Coupler,
		"output":  &g.Output,
		"ground":  &g.Ground,
	} {
		if flags.Changed(name) {
			*dst, _ = flags.GetFloat64(name)
		}
	}
	return g.WithDefaults()
}

// openStore resolves the data directory the same way simulation commands
// do, without requiring a valid drive configuration.
func openStore(cmd *cobra.Command) *storage.Store {
	dir := dataDir
	if !cmd.Flags().Changed("data") {
		if env, err := config.Environment(envFile); err == nil {
			if v := env[config.EnvPrefix+"DATA"]; v != "" {
				dir = v
			}
		}
	}
	return storage.New(dir)
}
