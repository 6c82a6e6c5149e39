// Package optim tunes run settings by exhaustive search.
package optim

import (
	"context"
	"fmt"
	"math"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/san-kum/odesim/internal/config"
	"github.com/san-kum/odesim/internal/dynamo"
	"github.com/san-kum/odesim/internal/experiment"
	"github.com/san-kum/odesim/internal/sim"
)

// Bound rejects a candidate whose named quantity exceeds Max in magnitude.
type Bound struct {
	Quantity string
	Max      float64
}

// ParseBound reads "quantity<=max".
func ParseBound(s string) (Bound, error) {
	name, limit, ok := strings.Cut(s, "<=")
	if !ok {
		return Bound{}, fmt.Errorf("%w: bound %q is not of the form name<=max", dynamo.ErrConfiguration, s)
	}
	var b Bound
	b.Quantity = strings.TrimSpace(name)
	if _, err := fmt.Sscan(strings.TrimSpace(limit), &b.Max); err != nil {
		return Bound{}, fmt.Errorf("%w: bound %q: %w", dynamo.ErrConfiguration, s, err)
	}
	return b, nil
}

// Candidate is one point of the grid and what its run produced.
type Candidate struct {
	Settings map[string]float64
	Score    float64
	Feasible bool
	Result   *sim.Result
	Err      error
}

type GridSearch struct {
	names   []string
	values  [][]float64
	workers int
}

// NewGridSearch searches every combination of values[i] for names[i].
// workers bounds the concurrent runs; zero means no limit.
func NewGridSearch(names []string, values [][]float64, workers int) (*GridSearch, error) {
	if len(names) == 0 || len(names) != len(values) {
		return nil, fmt.Errorf("%w: %d names for %d value lists", dynamo.ErrConfiguration, len(names), len(values))
	}
	for i, v := range values {
		if len(v) == 0 {
			return nil, fmt.Errorf("%w: no values for %s", dynamo.ErrConfiguration, names[i])
		}
	}
	return &GridSearch{names: names, values: values, workers: workers}, nil
}

// Size is the number of grid points.
func (g *GridSearch) Size() int {
	n := 1
	for _, v := range g.values {
		n *= len(v)
	}
	return n
}

// points enumerates the grid with the last name varying fastest.
func (g *GridSearch) points() []map[string]float64 {
	out := make([]map[string]float64, 0, g.Size())
	idx := make([]int, len(g.names))
	for {
		p := make(map[string]float64, len(g.names))
		for i, name := range g.names {
			p[name] = g.values[i][idx[i]]
		}
		out = append(out, p)

		k := len(idx) - 1
		for ; k >= 0; k-- {
			idx[k]++
			if idx[k] < len(g.values[k]) {
				break
			}
			idx[k] = 0
		}
		if k < 0 {
			return out
		}
	}
}

// Search runs an experiment for every grid point and returns the feasible
// candidate with the smallest objective, along with every candidate in
// grid order. Runs that fail are recorded and skipped. Ties go to the
// earlier grid point.
func (g *GridSearch) Search(
	ctx context.Context,
	build func(settings map[string]float64) (*experiment.Experiment, error),
	objective string,
	bounds ...Bound,
) (*Candidate, []Candidate, error) {
	points := g.points()
	all := make([]Candidate, len(points))

	eg, ctx := errgroup.WithContext(ctx)
	if g.workers > 0 {
		eg.SetLimit(g.workers)
	}
	for i, p := range points {
		eg.Go(func() error {
			if err := ctx.Err(); err != nil {
				return fmt.Errorf("%w: %w", dynamo.ErrContextCanceled, err)
			}
			all[i] = evaluate(ctx, build, p, objective, bounds)
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, all, err
	}

	var best *Candidate
	for i := range all {
		c := &all[i]
		if c.Feasible && (best == nil || c.Score < best.Score) {
			best = c
		}
	}
	if best == nil {
		return nil, all, fmt.Errorf("%w: none of %d settings satisfies the bounds", dynamo.ErrConvergence, len(all))
	}
	return best, all, nil
}

func evaluate(
	ctx context.Context,
	build func(map[string]float64) (*experiment.Experiment, error),
	settings map[string]float64,
	objective string,
	bounds []Bound,
) Candidate {
	c := Candidate{Settings: settings, Score: math.Inf(1)}
	exp, err := build(settings)
	if err != nil {
		c.Err = err
		return c
	}
	c.Result, c.Err = exp.Run(ctx)
	if c.Err != nil {
		return c
	}

	score, ok := Quantity(c.Result, objective)
	if !ok {
		c.Err = fmt.Errorf("%w: unknown objective %q", dynamo.ErrConfiguration, objective)
		return c
	}
	c.Score = score
	c.Feasible = !math.IsNaN(score)
	for _, b := range bounds {
		v, ok := Quantity(c.Result, b.Quantity)
		if !ok {
			c.Err = fmt.Errorf("%w: unknown bound quantity %q", dynamo.ErrConfiguration, b.Quantity)
			c.Feasible = false
			return c
		}
		if !(math.Abs(v) <= b.Max) {
			c.Feasible = false
		}
	}
	return c
}

// Quantity looks up a named figure of a run: a metric, or one of steps,
// rejected, evaluations, events, energy_drift and elapsed (seconds).
func Quantity(r *sim.Result, name string) (float64, bool) {
	switch name {
	case "steps":
		return float64(r.Stats.Accepted), true
	case "rejected":
		return float64(r.Stats.Rejected), true
	case "evaluations":
		return float64(r.Stats.Evaluations), true
	case "events":
		return float64(len(r.Events)), true
	case "energy_drift":
		return math.Abs(r.EnergyDrift), true
	case "elapsed":
		return r.Elapsed.Seconds(), true
	}
	v, ok := r.Metrics[name]
	return v, ok
}

// Apply sets a named knob on cfg. Run settings are atol, rtol, step,
// max_step and t1; any other name is a model parameter.
func Apply(cfg *config.Config, name string, v float64) {
	switch name {
	case "atol":
		cfg.AbsTol = v
	case "rtol":
		cfg.RelTol = v
	case "step":
		cfg.StepSize = v
	case "max_step":
		cfg.MaxStep = v
	case "t1":
		cfg.T1 = v
	default:
		if cfg.Params == nil {
			cfg.Params = make(map[string]float64)
		}
		cfg.Params[name] = v
	}
}
