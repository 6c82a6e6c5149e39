package analysis

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"

	"github.com/san-kum/odesim/internal/dynamo"
	"github.com/san-kum/odesim/internal/integrators"
)

type LyapunovConfig struct {
	T0, T1 float64
	// Interval is the model time between renormalizations.
	Interval float64
	// Separation is the initial distance between the two trajectories,
	// applied to the first state component.
	Separation float64
}

func DefaultLyapunovConfig() LyapunovConfig {
	return LyapunovConfig{T0: 0, T1: 100, Interval: 1, Separation: 1e-8}
}

func (c LyapunovConfig) Validate() error {
	switch {
	case !(c.T1 > c.T0) || math.IsInf(c.T1, 0):
		return fmt.Errorf("%w: need a finite forward span, got [%v, %v]", dynamo.ErrConfiguration, c.T0, c.T1)
	case !(c.Interval > 0):
		return fmt.Errorf("%w: renormalization interval must be positive", dynamo.ErrConfiguration)
	case !(c.Separation > 0):
		return fmt.Errorf("%w: separation must be positive", dynamo.ErrConfiguration)
	}
	return nil
}

// LargestLyapunov estimates the largest Lyapunov exponent with the
// renormalization method: a reference and a perturbed trajectory are
// advanced together, and after every interval the logarithm of their
// separation growth is accumulated before the perturbed one is pulled back
// to the initial distance. ref and pert must be distinct integrators; an
// integrator drives a single trajectory.
func LargestLyapunov(sys dynamo.System, ref, pert *integrators.Integrator, x0 dynamo.State, cfg LyapunovConfig) (float64, error) {
	if err := cfg.Validate(); err != nil {
		return 0, err
	}
	if ref == pert {
		return 0, fmt.Errorf("%w: reference and perturbed trajectories need separate integrators", dynamo.ErrPrecondition)
	}

	if err := ref.Initialize(sys, cfg.T0, x0); err != nil {
		return 0, err
	}
	xp := x0.Clone()
	xp[0] += cfg.Separation
	if err := pert.Initialize(sys, cfg.T0, xp); err != nil {
		return 0, err
	}

	sum := 0.0
	diff := make([]float64, len(x0))
	for t := cfg.T0; t < cfg.T1; {
		target := math.Min(t+cfg.Interval, cfg.T1)
		if err := advance(ref, target); err != nil {
			return 0, err
		}
		if err := advance(pert, target); err != nil {
			return 0, err
		}

		_, a := ref.State()
		_, b := pert.State()
		floats.SubTo(diff, b, a)
		d := floats.Norm(diff, 2)
		if d == 0 {
			// The trajectories merged; restart the perturbation.
			floats.Scale(0, diff)
			diff[0] = cfg.Separation
		} else {
			sum += math.Log(d / cfg.Separation)
			floats.Scale(cfg.Separation/d, diff)
		}
		floats.AddTo(b, a, diff)
		if err := pert.Initialize(sys, target, b); err != nil {
			return 0, err
		}
		t = target
	}
	return sum / (cfg.T1 - cfg.T0), nil
}

// advance integrates in until it reaches target.
func advance(in *integrators.Integrator, target float64) error {
	for {
		reason, err := in.IntegrateStep(target)
		if err != nil {
			return err
		}
		switch reason {
		case integrators.StopReached:
			return nil
		case integrators.StopMaxSteps:
			return fmt.Errorf("%w: step limit reached before t=%g", dynamo.ErrNumerical, target)
		}
	}
}
