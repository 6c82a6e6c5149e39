package main

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/san-kum/odesim/internal/config"
	"github.com/san-kum/odesim/internal/experiment"
	"github.com/san-kum/odesim/internal/logging"
	"github.com/san-kum/odesim/internal/viz"
)

var (
	dataDir   string
	logLevel  string
	logFormat string
	logger    *slog.Logger

	configFile  string
	preset      string
	integrator  string
	rootSolver  string
	t0          float64
	t1          float64
	stepSize    float64
	fixedStep   bool
	absTol      float64
	relTol      float64
	maxStep     float64
	maxSteps    int
	numBodies   int
	recordEvery int
	timeout     time.Duration
	saveConfig  string

	xAxis int
	yAxis int

	members int
	workers int
	spread  float64

	eccentricity float64
	meanAnomaly  float64

	theme string
)

func main() {
	rootCmd := &cobra.Command{
		Use:          "odesim",
		Short:        "ordinary differential equation integration lab",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			var err error
			logger, err = logging.NewLogger(logLevel, logFormat, os.Stderr)
			return err
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return viz.RunMenu(experiment.NewRegistry(), logging.Discard())
		},
	}

	rootCmd.PersistentFlags().StringVar(&dataDir, "data", ".odesim", "data directory")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "text", "log format (text, json)")

	runCmd := &cobra.Command{
		Use:   "run [model]",
		Short: "integrate a model and store the run",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runSimulation,
	}
	addConfigFlags(runCmd)
	runCmd.Flags().StringVar(&saveConfig, "save-config", "", "write the effective config to this yaml file")

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "list stored runs",
		Args:  cobra.NoArgs,
		RunE:  listRuns,
	}

	showCmd := &cobra.Command{
		Use:   "show [run_id]",
		Short: "print run metadata and events",
		Args:  cobra.ExactArgs(1),
		RunE:  showRun,
	}

	plotCmd := &cobra.Command{
		Use:   "plot [run_id]",
		Short: "plot state components against time",
		Args:  cobra.ExactArgs(1),
		RunE:  plotRun,
	}

	phaseCmd := &cobra.Command{
		Use:   "phase [run_id]",
		Short: "phase space plot",
		Args:  cobra.ExactArgs(1),
		RunE:  phasePlot,
	}
	phaseCmd.Flags().IntVar(&xAxis, "x-axis", 0, "state index for x-axis")
	phaseCmd.Flags().IntVar(&yAxis, "y-axis", 1, "state index for y-axis")

	exportCSVCmd := &cobra.Command{
		Use:   "export-csv [run_id]",
		Short: "write the trajectory of a run as CSV",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return storeFor().ExportCSV(cmd.OutOrStdout(), args[0])
		},
	}

	exportJSONCmd := &cobra.Command{
		Use:   "export-json [run_id]",
		Short: "write a run with trajectory and events as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return storeFor().ExportJSON(cmd.OutOrStdout(), args[0])
		},
	}

	exportSVGCmd := &cobra.Command{
		Use:   "export-svg [run_id]",
		Short: "write a phase space plot of a run as SVG",
		Args:  cobra.ExactArgs(1),
		RunE:  exportSVG,
	}
	exportSVGCmd.Flags().IntVar(&xAxis, "x-axis", 0, "state index for x-axis")
	exportSVGCmd.Flags().IntVar(&yAxis, "y-axis", 1, "state index for y-axis")
	exportSVGCmd.Flags().StringVar(&theme, "theme", "cyberpunk", "color theme")

	compareCmd := &cobra.Command{
		Use:   "compare [model] [integrator1] [integrator2] ...",
		Short: "compare integrators on the same model",
		Args:  cobra.MinimumNArgs(2),
		RunE:  compareIntegrators,
	}
	addConfigFlags(compareCmd)

	benchCmd := &cobra.Command{
		Use:   "bench [model] [integrator...]",
		Short: "time every integrator on a model",
		Args:  cobra.MinimumNArgs(1),
		RunE:  benchModel,
	}
	addConfigFlags(benchCmd)

	ensembleCmd := &cobra.Command{
		Use:   "ensemble [model]",
		Short: "integrate perturbed copies of a run concurrently",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runEnsemble,
	}
	addConfigFlags(ensembleCmd)
	ensembleCmd.Flags().IntVar(&members, "members", 8, "number of trajectories")
	ensembleCmd.Flags().IntVar(&workers, "workers", 0, "concurrent trajectories (0 = unlimited)")
	ensembleCmd.Flags().Float64Var(&spread, "spread", 0.01, "total perturbation of the first state component")

	keplerCmd := &cobra.Command{
		Use:   "kepler",
		Short: "solve Kepler's equation with every root finder",
		Args:  cobra.NoArgs,
		RunE:  solveKepler,
	}
	keplerCmd.Flags().Float64Var(&eccentricity, "ecc", 0.5, "orbital eccentricity")
	keplerCmd.Flags().Float64Var(&meanAnomaly, "mean", 1.0, "mean anomaly (rad)")

	liveCmd := &cobra.Command{
		Use:   "live [model]",
		Short: "run a model with live visualization",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runLive,
	}
	addConfigFlags(liveCmd)
	liveCmd.Flags().StringVar(&theme, "theme", "cyberpunk", "color theme")

	presetsCmd := &cobra.Command{
		Use:   "presets [model]",
		Short: "list available presets for a model",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			presets := config.ListPresets(args[0])
			if len(presets) == 0 {
				fmt.Printf("no presets for model: %s\n", args[0])
				return nil
			}
			fmt.Printf("presets for %s:\n", args[0])
			for _, p := range presets {
				fmt.Printf("  %s\n", p)
			}
			return nil
		},
	}

	infoCmd := &cobra.Command{
		Use:   "info",
		Short: "list models, integrators and root solvers",
		Args:  cobra.NoArgs,
		RunE:  showInfo,
	}

	rootCmd.AddCommand(runCmd, listCmd, showCmd, plotCmd, phaseCmd, exportCSVCmd, exportJSONCmd, exportSVGCmd,
		compareCmd, benchCmd, ensembleCmd, keplerCmd, liveCmd, presetsCmd, infoCmd)
	rootCmd.AddCommand(analysisCommands()...)
	rootCmd.AddCommand(batchCommands()...)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func addConfigFlags(cmd *cobra.Command) {
	d := config.DefaultConfig()
	f := cmd.Flags()
	f.StringVar(&configFile, "config", "", "config file path (yaml)")
	f.StringVar(&preset, "preset", "", "use preset configuration")
	f.StringVar(&integrator, "integrator", d.Integrator, "integration method")
	f.StringVar(&rootSolver, "solver", d.RootSolver, "root solver for event location")
	f.Float64Var(&t0, "t0", d.T0, "start time")
	f.Float64Var(&t1, "t1", d.T1, "end time (inf integrates until an event stops the run)")
	f.Float64Var(&stepSize, "step", d.StepSize, "step size (initial step for adaptive methods)")
	f.BoolVar(&fixedStep, "fixed", false, "disable error control")
	f.Float64Var(&absTol, "atol", d.AbsTol, "absolute tolerance")
	f.Float64Var(&relTol, "rtol", d.RelTol, "relative tolerance")
	f.Float64Var(&maxStep, "max-step", 0, "largest step size (0 = span)")
	f.IntVar(&maxSteps, "max-steps", d.MaxSteps, "accepted step limit (0 = none)")
	f.IntVar(&numBodies, "bodies", d.Bodies, "number of bodies (nbody)")
	f.IntVar(&recordEvery, "record-every", 0, "keep every n-th point")
	f.DurationVar(&timeout, "timeout", 0, "wall-clock limit per run")
}
