package main

import (
	"fmt"
	"math"
	"os"
	"text/tabwriter"

	"github.com/guptarohit/asciigraph"
	"github.com/spf13/cobra"

	"github.com/san-kum/odesim/internal/analysis"
	"github.com/san-kum/odesim/internal/config"
	"github.com/san-kum/odesim/internal/dynamo"
	"github.com/san-kum/odesim/internal/events"
	"github.com/san-kum/odesim/internal/experiment"
	"github.com/san-kum/odesim/internal/integrators"
	"github.com/san-kum/odesim/internal/roots"
)

var (
	component   int
	resample    int
	interval    float64
	separation  float64
	sweepParam  string
	sweepFrom   float64
	sweepTo     float64
	sweepSteps  int
	sectionComp int
	sectionGoal float64
	transient   float64
	resolution  float64
)

func analyzeRun(cmd *cobra.Command, args []string) error {
	st := storeFor()
	meta, err := st.Load(args[0])
	if err != nil {
		return err
	}
	states, times, err := st.LoadStates(args[0])
	if err != nil {
		return err
	}
	if len(states) == 0 {
		return fmt.Errorf("no data to analyze")
	}
	if component < 0 || component >= len(states[0]) {
		return fmt.Errorf("%w: component %d outside state of dimension %d", dynamo.ErrDimensionMismatch, component, len(states[0]))
	}

	values := make([]float64, len(states))
	for i, y := range states {
		values[i] = y[component]
	}
	ps, err := analysis.PowerSpectrum(times, values, resample)
	if err != nil {
		return err
	}

	fmt.Printf("run: %s\n", meta.ID)
	fmt.Printf("model: %s, component: %s\n", meta.Model, caption(meta.Model, component))
	fmt.Printf("samples: %d, resampled with dt=%.4g\n\n", len(times), ps.Step)

	// Skip the DC bin, it is zero after mean removal.
	graph := asciigraph.Plot(ps.Power[1:],
		asciigraph.Height(12),
		asciigraph.Width(80),
		asciigraph.Caption(fmt.Sprintf("power, frequency %.4g .. %.4g", ps.Freqs[1], ps.Freqs[len(ps.Freqs)-1])),
	)
	fmt.Println(graph)
	fmt.Println()
	fmt.Printf("dominant frequency: %.6g\n", ps.Dominant)
	fmt.Printf("period: %.6g\n", ps.Period())
	return nil
}

// bareIntegrator builds an integrator from cfg without the config's event
// detectors.
func bareIntegrator(reg *experiment.Registry, cfg *config.Config) (*integrators.Integrator, error) {
	solver, err := roots.Lookup(cfg.RootSolver)
	if err != nil {
		return nil, err
	}
	ic := cfg.IntegratorConfig()
	opts := []integrators.Option{
		integrators.WithConfig(ic),
		integrators.WithRootSolver(solver, ic.Root),
		integrators.WithLogger(logger.With("model", cfg.Model, "integrator", cfg.Integrator)),
	}
	if cfg.FixedStep {
		opts = append(opts, integrators.WithFixedStep())
	}
	return reg.Integrator(cfg.Integrator, opts...)
}

func estimateLyapunov(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd, args)
	if err != nil {
		return err
	}
	if math.IsInf(cfg.T1, 0) {
		return fmt.Errorf("%w: lyapunov needs a finite end time", dynamo.ErrConfiguration)
	}
	reg := experiment.NewRegistry()
	exp, err := experiment.New(cfg, reg, logger)
	if err != nil {
		return err
	}
	ref, err := bareIntegrator(reg, cfg)
	if err != nil {
		return err
	}
	pert, err := bareIntegrator(reg, cfg)
	if err != nil {
		return err
	}

	lc := analysis.LyapunovConfig{T0: cfg.T0, T1: cfg.T1, Interval: interval, Separation: separation}
	lambda, err := analysis.LargestLyapunov(exp.Model(), ref, pert, exp.InitialState(), lc)
	if err != nil {
		return fmt.Errorf("%s error: %w", dynamo.KindOf(err), err)
	}

	fmt.Printf("model: %s, integrator: %s\n", cfg.Model, cfg.Integrator)
	fmt.Printf("span: [%g, %g], interval: %g, separation: %g\n", cfg.T0, cfg.T1, interval, separation)
	fmt.Printf("largest lyapunov exponent: %.6g\n", lambda)
	if lambda > 0 {
		fmt.Printf("lyapunov time: %.6g\n", 1/lambda)
	}
	return nil
}

func sweepBifurcation(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd, args)
	if err != nil {
		return err
	}
	if sweepParam == "" {
		return fmt.Errorf("%w: --param is required", dynamo.ErrConfiguration)
	}
	reg := experiment.NewRegistry()
	exp, err := experiment.New(cfg, reg, logger)
	if err != nil {
		return err
	}
	in, err := bareIntegrator(reg, cfg)
	if err != nil {
		return err
	}
	x0 := exp.InitialState()
	if sectionComp < 0 || sectionComp >= len(x0) {
		return fmt.Errorf("%w: section component %d outside state of dimension %d", dynamo.ErrDimensionMismatch, sectionComp, len(x0))
	}

	c := sectionComp
	section := events.New("section", func(t float64, y dynamo.State) float64 { return y[c] }, sectionGoal, events.Decreasing)
	section.RepeatCount = 0
	section.Action = events.Continue

	ctx, cancel := signalContext()
	defer cancel()

	points, err := analysis.Bifurcation(ctx, exp.Model(), in, section, x0, analysis.SweepConfig{
		Param:      sweepParam,
		Values:     analysis.Linspace(sweepFrom, sweepTo, sweepSteps),
		T0:         cfg.T0,
		T1:         cfg.T1,
		Transient:  transient,
		Component:  component,
		Resolution: resolution,
	})
	if err != nil {
		return fmt.Errorf("%s error: %w", dynamo.KindOf(err), err)
	}

	fmt.Printf("%s: %s swept over [%g, %g], section x%d = %g\n\n", cfg.Model, sweepParam, sweepFrom, sweepTo, sectionComp, sectionGoal)
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "%s\tBRANCHES\tMIN\tMAX\n", sweepParam)
	for _, p := range points {
		if len(p.Values) == 0 {
			fmt.Fprintf(w, "%.6g\t0\t-\t-\n", p.Param)
			continue
		}
		fmt.Fprintf(w, "%.6g\t%d\t%.6g\t%.6g\n", p.Param, len(p.Values), p.Values[0], p.Values[len(p.Values)-1])
	}
	return w.Flush()
}

func analysisCommands() []*cobra.Command {
	analyzeCmd := &cobra.Command{
		Use:   "analyze [run_id]",
		Short: "power spectrum of one state component of a stored run",
		Args:  cobra.ExactArgs(1),
		RunE:  analyzeRun,
	}
	analyzeCmd.Flags().IntVar(&component, "component", 0, "state index to analyze")
	analyzeCmd.Flags().IntVar(&resample, "points", 0, "resampling points (0 = next power of two above the sample count)")

	lyapunovCmd := &cobra.Command{
		Use:   "lyapunov [model]",
		Short: "estimate the largest Lyapunov exponent",
		Args:  cobra.MaximumNArgs(1),
		RunE:  estimateLyapunov,
	}
	addConfigFlags(lyapunovCmd)
	d := analysis.DefaultLyapunovConfig()
	lyapunovCmd.Flags().Float64Var(&interval, "interval", d.Interval, "model time between renormalizations")
	lyapunovCmd.Flags().Float64Var(&separation, "separation", d.Separation, "initial trajectory separation")

	bifurcationCmd := &cobra.Command{
		Use:   "bifurcation [model]",
		Short: "sweep a model parameter and record Poincaré section values",
		Args:  cobra.MaximumNArgs(1),
		RunE:  sweepBifurcation,
	}
	addConfigFlags(bifurcationCmd)
	f := bifurcationCmd.Flags()
	f.StringVar(&sweepParam, "param", "", "parameter to sweep")
	f.Float64Var(&sweepFrom, "from", 0, "first parameter value")
	f.Float64Var(&sweepTo, "to", 1, "last parameter value")
	f.IntVar(&sweepSteps, "steps", 11, "number of parameter values")
	f.IntVar(&component, "component", 0, "state index recorded at each crossing")
	f.IntVar(&sectionComp, "section-component", 1, "state index defining the section")
	f.Float64Var(&sectionGoal, "goal", 0, "section value")
	f.Float64Var(&transient, "transient", 0, "model time ignored before recording")
	f.Float64Var(&resolution, "resolution", 1e-4, "merge recorded values closer than this")

	return []*cobra.Command{analyzeCmd, lyapunovCmd, bifurcationCmd}
}
