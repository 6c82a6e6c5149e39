package main

import (
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/san-kum/odesim/internal/automation"
	"github.com/san-kum/odesim/internal/dynamo"
	"github.com/san-kum/odesim/internal/experiment"
	"github.com/san-kum/odesim/internal/optim"
)

var (
	noSave    bool
	grids     []string
	bounds    []string
	objective string
)

func runScenario(cmd *cobra.Command, args []string) error {
	sc, err := automation.LoadScenario(args[0])
	if err != nil {
		return err
	}
	st := storeFor()
	if noSave {
		st = nil
	}

	ctx, cancel := signalContext()
	defer cancel()

	fmt.Printf("scenario %s: %d steps\n", sc.Name, len(sc.Steps))
	if sc.Description != "" {
		fmt.Println(sc.Description)
	}
	fmt.Println()

	results, runErr := automation.NewRunner(experiment.NewRegistry(), st, logger).Run(ctx, sc)
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "STEP\tMODEL\tINTEG\tREASON\tT_FINAL\tSTEPS\tEVENTS\tRUN_ID")
	for _, r := range results {
		if r.Result == nil {
			fmt.Fprintf(w, "%s\terror: %v\n", r.Step, r.Err)
			continue
		}
		tf, _ := r.Result.Final()
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%.6g\t%d\t%d\t%s\n",
			r.Step, r.Config.Model, r.Config.Integrator, r.Result.Reason, tf,
			r.Result.Stats.Accepted, len(r.Result.Events), r.RunID)
	}
	if err := w.Flush(); err != nil {
		return err
	}
	if runErr != nil {
		return fmt.Errorf("%s error: %w", dynamo.KindOf(runErr), runErr)
	}
	return nil
}

// parseGrid reads "name=v1,v2,...".
func parseGrid(s string) (string, []float64, error) {
	name, list, ok := strings.Cut(s, "=")
	if !ok || name == "" {
		return "", nil, fmt.Errorf("%w: grid %q is not of the form name=v1,v2", dynamo.ErrConfiguration, s)
	}
	var values []float64
	for _, f := range strings.Split(list, ",") {
		v, err := strconv.ParseFloat(strings.TrimSpace(f), 64)
		if err != nil {
			return "", nil, fmt.Errorf("%w: grid %s: %w", dynamo.ErrConfiguration, name, err)
		}
		values = append(values, v)
	}
	return name, values, nil
}

func tuneSettings(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd, args)
	if err != nil {
		return err
	}
	if len(grids) == 0 {
		return fmt.Errorf("%w: at least one --grid is required", dynamo.ErrConfiguration)
	}
	var names []string
	var values [][]float64
	for _, g := range grids {
		name, v, err := parseGrid(g)
		if err != nil {
			return err
		}
		names = append(names, name)
		values = append(values, v)
	}
	var bs []optim.Bound
	for _, s := range bounds {
		b, err := optim.ParseBound(s)
		if err != nil {
			return err
		}
		bs = append(bs, b)
	}
	search, err := optim.NewGridSearch(names, values, workers)
	if err != nil {
		return err
	}

	reg := experiment.NewRegistry()
	build := func(settings map[string]float64) (*experiment.Experiment, error) {
		c := cfg.Clone()
		for name, v := range settings {
			optim.Apply(c, name, v)
		}
		if err := c.Validate(); err != nil {
			return nil, err
		}
		return experiment.New(c, reg, logger)
	}

	ctx, cancel := signalContext()
	defer cancel()

	fmt.Printf("tuning %s with %s: %d settings, minimizing %s\n\n", cfg.Model, cfg.Integrator, search.Size(), objective)
	best, all, searchErr := search.Search(ctx, build, objective, bs...)

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "%s\t%s\tFEASIBLE\n", strings.ToUpper(strings.Join(names, "\t")), strings.ToUpper(objective))
	for _, c := range all {
		cols := make([]string, len(names))
		for i, n := range names {
			cols[i] = strconv.FormatFloat(c.Settings[n], 'g', -1, 64)
		}
		if c.Err != nil {
			fmt.Fprintf(w, "%s\terror: %v\n", strings.Join(cols, "\t"), c.Err)
			continue
		}
		fmt.Fprintf(w, "%s\t%.6g\t%v\n", strings.Join(cols, "\t"), c.Score, c.Feasible)
	}
	if err := w.Flush(); err != nil {
		return err
	}
	if searchErr != nil {
		return fmt.Errorf("%s error: %w", dynamo.KindOf(searchErr), searchErr)
	}

	keys := make([]string, 0, len(best.Settings))
	for k := range best.Settings {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	fmt.Print("\nbest:")
	for _, k := range keys {
		fmt.Printf(" %s=%g", k, best.Settings[k])
	}
	fmt.Printf(" (%s=%.6g)\n", objective, best.Score)
	return nil
}

func batchCommands() []*cobra.Command {
	scenarioCmd := &cobra.Command{
		Use:   "scenario [file]",
		Short: "run the steps of a yaml scenario in order",
		Args:  cobra.ExactArgs(1),
		RunE:  runScenario,
	}
	scenarioCmd.Flags().BoolVar(&noSave, "no-save", false, "do not store runs marked for saving")

	tuneCmd := &cobra.Command{
		Use:   "tune [model]",
		Short: "grid search run settings or model parameters",
		Args:  cobra.MaximumNArgs(1),
		RunE:  tuneSettings,
	}
	addConfigFlags(tuneCmd)
	f := tuneCmd.Flags()
	f.StringArrayVar(&grids, "grid", nil, "name=v1,v2,... for atol, rtol, step, max_step, t1 or a model parameter (repeatable)")
	f.StringArrayVar(&bounds, "bound", nil, "quantity<=max constraint (repeatable)")
	f.StringVar(&objective, "objective", "evaluations", "quantity to minimize")
	f.IntVar(&workers, "workers", 0, "concurrent runs (0 = unlimited)")

	return []*cobra.Command{scenarioCmd, tuneCmd}
}
