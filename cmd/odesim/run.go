package main

import (
	"context"
	"errors"
	"fmt"
	"math"
	"os"
	"os/signal"
	"sort"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/san-kum/odesim/internal/config"
	"github.com/san-kum/odesim/internal/dynamo"
	"github.com/san-kum/odesim/internal/events"
	"github.com/san-kum/odesim/internal/experiment"
	"github.com/san-kum/odesim/internal/logging"
	"github.com/san-kum/odesim/internal/models"
	"github.com/san-kum/odesim/internal/roots"
	"github.com/san-kum/odesim/internal/sim"
	"github.com/san-kum/odesim/internal/storage"
	"github.com/san-kum/odesim/internal/viz"
)

// loadConfig resolves the run config from, in increasing priority: the
// defaults or a preset or a config file, then explicitly set flags.
func loadConfig(cmd *cobra.Command, args []string) (*config.Config, error) {
	model := ""
	if len(args) > 0 {
		model = args[0]
	}

	var cfg *config.Config
	switch {
	case configFile != "":
		c, err := config.Load(configFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
		cfg = c
		if model != "" {
			cfg.Model = model
		}
	case preset != "":
		if model == "" {
			return nil, fmt.Errorf("--preset needs a model")
		}
		cfg = config.GetPreset(model, preset)
		if cfg == nil {
			return nil, fmt.Errorf("unknown preset: %s (available: %v)", preset, config.ListPresets(model))
		}
	default:
		cfg = config.DefaultConfig()
		if model != "" {
			cfg.Model = model
		}
	}

	f := cmd.Flags()
	if f.Changed("integrator") {
		cfg.Integrator = integrator
	}
	if f.Changed("solver") {
		cfg.RootSolver = rootSolver
	}
	if f.Changed("t0") {
		cfg.T0 = t0
	}
	if f.Changed("t1") {
		cfg.T1 = t1
	}
	if f.Changed("step") {
		cfg.StepSize = stepSize
	}
	if f.Changed("fixed") {
		cfg.FixedStep = fixedStep
	}
	if f.Changed("atol") {
		cfg.AbsTol = absTol
	}
	if f.Changed("rtol") {
		cfg.RelTol = relTol
	}
	if f.Changed("max-step") {
		cfg.MaxStep = maxStep
	}
	if f.Changed("max-steps") {
		cfg.MaxSteps = maxSteps
	}
	if f.Changed("bodies") {
		cfg.Bodies = numBodies
	}
	if f.Changed("record-every") {
		cfg.RecordEvery = recordEvery
	}
	if f.Changed("timeout") {
		cfg.Timeout = timeout
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	// A config file may choose the logging setup unless flags override it.
	root := cmd.Root().PersistentFlags()
	if !root.Changed("log-level") && !root.Changed("log-format") && configFile != "" {
		l, err := logging.NewLogger(cfg.Logging.Level, cfg.Logging.Format, os.Stderr)
		if err != nil {
			return nil, err
		}
		logger = l
	}
	return cfg, nil
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt)
}

func storeFor() *storage.Store {
	return storage.New(dataDir)
}

func runSimulation(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd, args)
	if err != nil {
		return err
	}
	if saveConfig != "" {
		if err := config.Save(saveConfig, cfg); err != nil {
			return err
		}
	}

	st := storeFor()
	if err := st.Init(); err != nil {
		return err
	}

	exp, err := experiment.New(cfg, experiment.NewRegistry(), logger)
	if err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	fmt.Printf("running %s with %s...\n", cfg.Model, cfg.Integrator)
	result, runErr := exp.Run(ctx)
	if result == nil {
		return runErr
	}

	runID, err := st.Save(storage.NewMetadata(cfg, exp.Model()), result)
	if err != nil {
		return errors.Join(runErr, err)
	}

	printResult(runID, result)
	if runErr != nil {
		return fmt.Errorf("%s error: %w", dynamo.KindOf(runErr), runErr)
	}
	return nil
}

func printResult(runID string, result *sim.Result) {
	tf, _ := result.Final()
	fmt.Printf("completed in %v\n", result.Elapsed)
	fmt.Printf("run id: %s\n", runID)
	fmt.Printf("stopped: %s at t=%g\n", result.Reason, tf)
	fmt.Printf("steps: %d accepted, %d rejected, %d evaluations\n",
		result.Stats.Accepted, result.Stats.Rejected, result.Stats.Evaluations)
	if result.Stats.Accepted > 0 {
		fmt.Printf("step size: %.3g .. %.3g\n", result.Stats.SmallestStep, result.Stats.LargestStep)
	}

	if len(result.Events) > 0 {
		fmt.Println("\nevents:")
		printEvents(result.Events)
	}

	fmt.Println("\nmetrics:")
	names := make([]string, 0, len(result.Metrics))
	for name := range result.Metrics {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Printf("  %s: %.6g\n", name, result.Metrics[name])
	}
}

func printEvents(crossings []events.Crossing) {
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "  DETECTOR\tTIME\tDIRECTION\tPRECISE\tITER")
	for _, c := range crossings {
		fmt.Fprintf(w, "  %s\t%.10g\t%s\t%v\t%d\n", c.Detector, c.Time, c.Direction, c.Precise, c.Stats.Iterations)
	}
	w.Flush()
}

func compareIntegrators(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd, args[:1])
	if err != nil {
		return err
	}
	reg := experiment.NewRegistry()

	ctx, cancel := signalContext()
	defer cancel()

	fmt.Printf("comparing integrators for %s over [%g, %g]\n\n", cfg.Model, cfg.T0, cfg.T1)
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "INTEGRATOR\tFINAL_X0\tENERGY_DRIFT\tSTEPS\tREJECTED\tEVALS\tTIME")
	for _, name := range args[1:] {
		c := cfg.Clone()
		c.Integrator = name
		exp, err := experiment.New(c, reg, logger)
		if err != nil {
			fmt.Fprintf(w, "%s\terror: %v\n", name, err)
			continue
		}
		result, err := exp.Run(ctx)
		if err != nil {
			fmt.Fprintf(w, "%s\terror: %v\n", name, err)
			continue
		}
		_, final := result.Final()
		fmt.Fprintf(w, "%s\t%.10g\t%.2e\t%d\t%d\t%d\t%v\n",
			name, final[0], result.EnergyDrift,
			result.Stats.Accepted, result.Stats.Rejected, result.Stats.Evaluations,
			result.Elapsed.Round(time.Microsecond))
	}
	return w.Flush()
}

func benchModel(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd, args[:1])
	if err != nil {
		return err
	}
	reg := experiment.NewRegistry()
	names := args[1:]
	if len(names) == 0 {
		names = reg.ListIntegrators()
	}

	fmt.Printf("benchmarking %s over [%g, %g]\n\n", cfg.Model, cfg.T0, cfg.T1)
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "INTEGRATOR\tMODE\tSTEPS\tEVALS\tTIME\tSTEPS/SEC")
	for _, name := range names {
		c := cfg.Clone()
		c.Integrator = name
		c.RecordEvery = math.MaxInt32
		exp, err := experiment.New(c, reg, logging.Discard())
		if err != nil {
			return err
		}

		start := time.Now()
		result, err := exp.Run(context.Background())
		if err != nil {
			fmt.Fprintf(w, "%s\terror: %v\n", name, err)
			continue
		}
		elapsed := time.Since(start)

		mode := "fixed"
		if exp.Integrator().Adaptive() {
			mode = "adaptive"
		}
		steps := result.Stats.Accepted
		fmt.Fprintf(w, "%s\t%s\t%d\t%d\t%v\t%.0f\n",
			name, mode, steps, result.Stats.Evaluations, elapsed, float64(steps)/elapsed.Seconds())
	}
	return w.Flush()
}

func runEnsemble(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd, args)
	if err != nil {
		return err
	}
	if members < 1 {
		return fmt.Errorf("%w: need at least one member", dynamo.ErrConfiguration)
	}
	reg := experiment.NewRegistry()

	base, err := experiment.New(cfg, reg, logger)
	if err != nil {
		return err
	}
	initial := make([]dynamo.State, members)
	x0 := base.InitialState()
	for i := range initial {
		y := x0.Clone()
		if members > 1 {
			y[0] += spread * (float64(i)/float64(members-1) - 0.5)
		}
		initial[i] = y
	}

	ens := sim.NewEnsemble(func() (*sim.Simulator, error) {
		exp, err := experiment.New(cfg.Clone(), reg, logger)
		if err != nil {
			return nil, err
		}
		return exp.Simulator(), nil
	}, workers)

	ctx, cancel := signalContext()
	defer cancel()

	start := time.Now()
	results, err := ens.Run(ctx, initial, sim.Config{
		T0:          cfg.T0,
		T1:          cfg.T1,
		Timeout:     cfg.Timeout,
		RecordEvery: cfg.RecordEvery,
	})
	if err != nil {
		return err
	}

	fmt.Printf("%d trajectories of %s in %v\n\n", members, cfg.Model, time.Since(start))
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "MEMBER\tX0\tREASON\tT_FINAL\tFINAL_X0\tEVENTS\tSTEPS")
	for i, r := range results {
		tf, final := r.Final()
		fmt.Fprintf(w, "%d\t%.6g\t%s\t%.6g\t%.6g\t%d\t%d\n",
			i, initial[i][0], r.Reason, tf, final[0], len(r.Events), r.Stats.Accepted)
	}
	return w.Flush()
}

func solveKepler(cmd *cobra.Command, args []string) error {
	reg := experiment.NewRegistry()
	fmt.Printf("E - %g sin E = %g\n\n", eccentricity, meanAnomaly)

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "SOLVER\tE\tRESIDUAL\tITER\tCALLS\tCONVERGED")
	for _, name := range reg.ListSolvers() {
		s, err := reg.Solver(name, roots.DefaultConfig())
		if err != nil {
			return err
		}
		e, stats, err := models.EccentricAnomaly(s, meanAnomaly, eccentricity)
		if err != nil && !errors.Is(err, dynamo.ErrConvergence) {
			return err
		}
		residual := e - eccentricity*math.Sin(e) - meanAnomaly
		fmt.Fprintf(w, "%s\t%.15g\t%.2e\t%d\t%d\t%v\n",
			name, e, residual, stats.Iterations, stats.FuncCalls, stats.Converged)
	}
	return w.Flush()
}

func runLive(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd, args)
	if err != nil {
		return err
	}
	// Log records would tear the terminal UI.
	exp, err := experiment.New(cfg, experiment.NewRegistry(), logging.Discard())
	if err != nil {
		return err
	}
	return viz.Run(exp, viz.WithTheme(theme))
}

func showInfo(cmd *cobra.Command, args []string) error {
	reg := experiment.NewRegistry()
	fmt.Println("models:")
	for _, m := range reg.ListModels() {
		fmt.Printf("  %-16s presets: %s\n", m, strings.Join(config.ListPresets(m), ", "))
	}

	fmt.Println("\nintegrators:")
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "  NAME\tSTAGES\tORDER\tEMBEDDED")
	for _, name := range reg.ListIntegrators() {
		in, err := reg.Integrator(name)
		if err != nil {
			return err
		}
		tab := in.Tableau()
		fmt.Fprintf(w, "  %s\t%d\t%d\t%v\n", name, tab.Stages(), tab.Order, tab.Embedded())
	}
	if err := w.Flush(); err != nil {
		return err
	}

	fmt.Println("\nroot solvers:")
	for _, s := range reg.ListSolvers() {
		fmt.Printf("  %s\n", s)
	}
	return nil
}
