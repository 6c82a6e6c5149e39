package analysis

import (
	"context"
	"fmt"
	"math"
	"sort"

	"github.com/san-kum/odesim/internal/dynamo"
	"github.com/san-kum/odesim/internal/events"
	"github.com/san-kum/odesim/internal/integrators"
)

// BifurcationPoint holds the distinct section values observed for one
// parameter value.
type BifurcationPoint struct {
	Param  float64
	Values []float64
}

type SweepConfig struct {
	Param  string
	Values []float64
	T0, T1 float64
	// Transient is the model time after T0 during which crossings are
	// ignored while the trajectory settles.
	Transient float64
	// Component is the state entry recorded at every crossing.
	Component int
	// Resolution merges recorded values closer than this. Zero keeps
	// every crossing.
	Resolution float64
}

// Bifurcation sweeps a parameter of sys and records, for every value, the
// chosen state component at each crossing of the Poincaré section
// detected by section. The detector is registered on in for the duration
// of the sweep and must not stop the run.
func Bifurcation(ctx context.Context, sys dynamo.System, in *integrators.Integrator, section *events.Detector, x0 dynamo.State, cfg SweepConfig) ([]BifurcationPoint, error) {
	tunable, ok := sys.(dynamo.Configurable)
	if !ok {
		return nil, fmt.Errorf("%w: system has no parameters to sweep", dynamo.ErrConfiguration)
	}
	if cfg.Component < 0 || cfg.Component >= len(x0) {
		return nil, fmt.Errorf("%w: component %d outside state of dimension %d", dynamo.ErrDimensionMismatch, cfg.Component, len(x0))
	}
	if !(cfg.T1 > cfg.T0+cfg.Transient) || math.IsInf(cfg.T1, 0) {
		return nil, fmt.Errorf("%w: recording window [%v, %v] is empty", dynamo.ErrConfiguration, cfg.T0+cfg.Transient, cfg.T1)
	}
	if section.Action == events.Stop {
		return nil, fmt.Errorf("%w: section detector %q stops the run", dynamo.ErrConfiguration, section.Name)
	}

	original, hasOriginal := tunable.GetParams()[cfg.Param]
	if hasOriginal {
		defer tunable.SetParam(cfg.Param, original)
	}

	h := in.AddEventDetector(section)
	defer in.RemoveEventDetector(h)

	points := make([]BifurcationPoint, 0, len(cfg.Values))
	for _, p := range cfg.Values {
		if err := ctx.Err(); err != nil {
			return points, fmt.Errorf("%w: %w", dynamo.ErrContextCanceled, err)
		}
		if err := tunable.SetParam(cfg.Param, p); err != nil {
			return points, err
		}
		res, err := in.Integrate(sys, cfg.T0, x0, cfg.T1)
		if err != nil {
			return points, fmt.Errorf("%s=%g: %w", cfg.Param, p, err)
		}
		if res.Reason != integrators.StopReached {
			return points, fmt.Errorf("%w: %s=%g stopped early (%s) at t=%g", dynamo.ErrNumerical, cfg.Param, p, res.Reason, res.Time)
		}

		var values []float64
		for _, c := range res.Events {
			if c.Detector == section.Name && c.Time >= cfg.T0+cfg.Transient {
				values = append(values, c.State[cfg.Component])
			}
		}
		points = append(points, BifurcationPoint{Param: p, Values: distinct(values, cfg.Resolution)})
	}
	return points, nil
}

// distinct sorts values and drops those within tol of the previous kept one.
func distinct(values []float64, tol float64) []float64 {
	if tol <= 0 || len(values) == 0 {
		return values
	}
	sort.Float64s(values)
	out := values[:1]
	for _, v := range values[1:] {
		if v-out[len(out)-1] > tol {
			out = append(out, v)
		}
	}
	return out
}

// Linspace returns n evenly spaced values from lo to hi inclusive.
func Linspace(lo, hi float64, n int) []float64 {
	if n <= 1 {
		return []float64{lo}
	}
	out := make([]float64, n)
	for i := range out {
		out[i] = lo + (hi-lo)*float64(i)/float64(n-1)
	}
	return out
}
