package events

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/san-kum/odesim/internal/dynamo"
	"github.com/san-kum/odesim/internal/roots"
)

type Direction int

const (
	Decreasing Direction = -1
	Both       Direction = 0
	Increasing Direction = 1
)

func (d Direction) String() string {
	switch d {
	case Decreasing:
		return "decreasing"
	case Increasing:
		return "increasing"
	default:
		return "both"
	}
}

func ParseDirection(s string) (Direction, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "both", "any":
		return Both, nil
	case "decreasing", "decrease", "down", "-":
		return Decreasing, nil
	case "increasing", "increase", "up", "+":
		return Increasing, nil
	default:
		return Both, fmt.Errorf("%w: unknown event direction %q", dynamo.ErrConfiguration, s)
	}
}

// Action tells the integrator what to do after a crossing.
type Action int

const (
	Stop Action = iota
	Continue
)

func (a Action) String() string {
	if a == Continue {
		return "continue"
	}
	return "stop"
}

func ParseAction(s string) (Action, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "stop", "terminate":
		return Stop, nil
	case "continue", "record":
		return Continue, nil
	default:
		return Stop, fmt.Errorf("%w: unknown event action %q", dynamo.ErrConfiguration, s)
	}
}

const (
	DefaultThreshold   = 1e-10
	DefaultRepeatCount = 1
)

// Detector watches a scalar function of the trajectory for crossings of Goal.
//
// RepeatCount limits how many times the detector fires; zero means no limit.
// Threshold is the tolerance handed to the root solver when a crossing is
// located. OnEvent, when set, overrides Action.
type Detector struct {
	Name        string
	Func        dynamo.ScalarFunc
	Goal        float64
	Direction   Direction
	Threshold   float64
	RepeatCount int
	Action      Action
	OnEvent     func(c Crossing) Action

	fired int
	last  float64
}

// New returns a detector that stops integration at its first crossing.
func New(name string, fn dynamo.ScalarFunc, goal float64, dir Direction) *Detector {
	return &Detector{
		Name:        name,
		Func:        fn,
		Goal:        goal,
		Direction:   dir,
		Threshold:   DefaultThreshold,
		RepeatCount: DefaultRepeatCount,
		Action:      Stop,
	}
}

// Difference returns the scalar value at (t, y) minus the goal.
func (d *Detector) Difference(t float64, y dynamo.State) float64 {
	return d.Func(t, y) - d.Goal
}

// Active reports whether the detector can still fire.
func (d *Detector) Active() bool {
	return d.RepeatCount <= 0 || d.fired < d.RepeatCount
}

func (d *Detector) Fired() int { return d.fired }

// Last returns the difference recorded at the most recent checkpoint.
func (d *Detector) Last() float64 { return d.last }

// Reset clears the fire count and records the baseline at (t, y).
func (d *Detector) Reset(t float64, y dynamo.State) {
	d.fired = 0
	d.Prime(t, y)
}

// Prime records the baseline at (t, y) without touching the fire count.
func (d *Detector) Prime(t float64, y dynamo.State) {
	d.last = d.Difference(t, y)
}

// Check evaluates the detector at the end of a step. It returns the new
// difference and whether a qualifying crossing happened since the baseline.
func (d *Detector) Check(t float64, y dynamo.State) (float64, bool) {
	g := d.Difference(t, y)
	if !d.Active() {
		return g, false
	}
	return g, Crossed(d.Direction, d.last, g)
}

// Advance moves the baseline to a checkpoint value.
func (d *Detector) Advance(g float64) {
	d.last = g
}

// Fire records a crossing and returns the action to take. The baseline is
// cleared so the same crossing is not reported again from the crossing point.
func (d *Detector) Fire(c Crossing) Action {
	d.fired++
	d.last = 0
	if d.OnEvent != nil {
		return d.OnEvent(c)
	}
	return d.Action
}

// SolverConfig narrows a base solver config to the detector threshold.
func (d *Detector) SolverConfig(base roots.Config) roots.Config {
	cfg := base
	if d.Threshold > 0 {
		cfg.AbsTol = d.Threshold
	}
	return cfg
}

// Crossed reports whether the sign change from g0 to g1 matches dir. A
// baseline of exactly zero never counts; that point was already reported.
func Crossed(dir Direction, g0, g1 float64) bool {
	if g0 == 0 || math.IsNaN(g0) || math.IsNaN(g1) {
		return false
	}
	rising := g0 < 0 && g1 >= 0
	falling := g0 > 0 && g1 <= 0
	switch dir {
	case Increasing:
		return rising
	case Decreasing:
		return falling
	default:
		return rising || falling
	}
}

// Crossing is a located event.
type Crossing struct {
	Detector  string
	Time      float64
	State     dynamo.State
	Value     float64
	Direction Direction
	// Precise is false when the root solver did not converge and Time is a
	// best-effort estimate.
	Precise bool
	Stats   roots.Stats
}

// StateAt returns the trajectory state at t inside the step being examined.
type StateAt func(t float64) (dynamo.State, error)

// Locate finds the crossing time inside [t0, t1] given the differences g0
// and g1 at the ends. Solver convergence failures are recovered as an
// imprecise crossing; failures of stateAt are returned.
func (d *Detector) Locate(solver roots.Solver, t0, g0, t1, g1 float64, stateAt StateAt) (Crossing, error) {
	var evalErr error
	f := func(t float64) float64 {
		switch t {
		case t0:
			return g0
		case t1:
			return g1
		}
		y, err := stateAt(t)
		if err != nil {
			evalErr = err
			return math.NaN()
		}
		return d.Difference(t, y)
	}

	lo, hi := t0, t1
	if lo > hi {
		lo, hi = hi, lo
	}

	c := Crossing{Detector: d.Name, Direction: Decreasing, Precise: true}
	if g1 > g0 {
		c.Direction = Increasing
	}

	root, st, err := solver.Solve(f, lo, hi)
	c.Stats = st
	switch {
	case evalErr != nil:
		return c, evalErr
	case errors.Is(err, roots.ErrNotConverged), errors.Is(err, roots.ErrStalled):
		c.Precise = false
	case errors.Is(err, roots.ErrNoBracket):
		c.Precise = false
		root = t1
	case err != nil:
		return c, fmt.Errorf("locate %s: %w", d.Name, err)
	}

	y, err := stateAt(root)
	if err != nil {
		return c, err
	}
	c.Time = root
	c.State = y.Clone()
	c.Value = d.Difference(root, y)
	return c, nil
}
