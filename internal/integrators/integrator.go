package integrators

import (
	"fmt"
	"log/slog"
	"math"

	"github.com/san-kum/odesim/internal/dynamo"
	"github.com/san-kum/odesim/internal/events"
	"github.com/san-kum/odesim/internal/roots"
)

type StopReason int

const (
	StopNone StopReason = iota
	StopReached
	StopEvent
	StopMaxSteps
	StopFailed
	StopCanceled
)

func (r StopReason) String() string {
	switch r {
	case StopReached:
		return "reached"
	case StopEvent:
		return "event"
	case StopMaxSteps:
		return "max_steps"
	case StopFailed:
		return "failed"
	case StopCanceled:
		return "canceled"
	default:
		return "running"
	}
}

// Stats are the step diagnostics of the current run.
type Stats struct {
	Accepted     int
	Rejected     int
	Evaluations  int
	SmallestStep float64
	LargestStep  float64
}

type Result struct {
	Time   float64
	State  dynamo.State
	Reason StopReason
	Events []events.Crossing
	Stats  Stats
}

// Integrator drives one trajectory with an explicit Runge-Kutta tableau.
// Tableaus with an embedded formula run with error control unless
// WithFixedStep is given.
//
// An Integrator is not safe for concurrent use.
type Integrator struct {
	tab      *Tableau
	cfg      Config
	adaptive bool
	solver   roots.Factory
	logger   *slog.Logger

	sys   dynamo.System
	ws    *Workspace
	ready bool

	t, tPrev float64
	y, yPrev dynamo.State
	h        float64
	dir      float64
	span     float64

	stats     Stats
	lastSolve roots.Stats
	crossings []events.Crossing

	observers  []observerEntry
	detectors  []detectorEntry
	nextHandle Handle
}

func New(tab *Tableau, opts ...Option) *Integrator {
	in := &Integrator{
		tab:      tab,
		cfg:      DefaultConfig(),
		adaptive: tab.Embedded(),
		solver:   func(cfg roots.Config) roots.Solver { return roots.NewBrentq(cfg) },
		logger:   slog.New(slog.DiscardHandler),
		dir:      1,
	}
	for _, opt := range opts {
		opt(in)
	}
	return in
}

func (in *Integrator) Tableau() *Tableau { return in.tab }

func (in *Integrator) Adaptive() bool { return in.adaptive }

func (in *Integrator) Config() Config { return in.cfg }

// Initialize binds the integrator to sys and sets the initial point. It
// resets statistics and the fire counts of registered detectors.
func (in *Integrator) Initialize(sys dynamo.System, t0 float64, y0 dynamo.State) error {
	if sys == nil {
		return fmt.Errorf("%w: nil system", dynamo.ErrConfiguration)
	}
	if err := in.cfg.Validate(); err != nil {
		return err
	}
	if err := in.tab.Validate(); err != nil {
		return err
	}
	n := sys.Dimension()
	if n <= 0 || len(y0) != n {
		return fmt.Errorf("%w: state has %d components, system expects %d", dynamo.ErrDimensionMismatch, len(y0), n)
	}
	if !y0.IsValid() || math.IsNaN(t0) || math.IsInf(t0, 0) {
		return fmt.Errorf("initial point: %w", dynamo.ErrInvalidState)
	}

	if in.ws == nil {
		in.ws = newWorkspace(n, in.tab.Stages())
	} else {
		in.ws.ensure(n, in.tab.Stages())
	}
	in.y = resize(in.y, n)
	in.yPrev = resize(in.yPrev, n)
	copy(in.y, y0)
	copy(in.yPrev, y0)

	in.sys = sys
	in.t, in.tPrev = t0, t0
	in.h = in.cfg.StepSize
	in.dir = 1
	in.span = 0
	in.stats = Stats{}
	in.lastSolve = roots.Stats{}
	in.crossings = nil
	in.ready = true

	for _, e := range in.detectors {
		e.det.Reset(t0, in.y)
	}
	return nil
}

// Reset forgets the current run. Observers and detectors stay registered.
func (in *Integrator) Reset() {
	in.ready = false
	in.sys = nil
	in.stats = Stats{}
	in.lastSolve = roots.Stats{}
	in.crossings = nil
}

// SingleStep advances exactly one internal step in the current direction.
// Adaptive methods retry rejected attempts inside the call.
func (in *Integrator) SingleStep() (StopReason, error) {
	if !in.ready {
		return StopFailed, dynamo.ErrNotInitialized
	}
	if in.cfg.MaxSteps > 0 && in.stats.Accepted >= in.cfg.MaxSteps {
		return StopMaxSteps, nil
	}
	h, _, err := in.takeStep(0, false)
	if err != nil {
		return StopFailed, in.fail(err)
	}
	return in.commit(h, false, 0)
}

// IntegrateStep advances one accepted step toward target, landing exactly
// on target when it is within reach. It returns StopNone while target has
// not been reached.
func (in *Integrator) IntegrateStep(target float64) (StopReason, error) {
	if !in.ready {
		return StopFailed, dynamo.ErrNotInitialized
	}
	if math.IsNaN(target) {
		return StopFailed, fmt.Errorf("%w: target time is NaN", dynamo.ErrConfiguration)
	}
	if in.t == target {
		return StopReached, nil
	}
	if in.cfg.MaxSteps > 0 && in.stats.Accepted >= in.cfg.MaxSteps {
		return StopMaxSteps, nil
	}
	in.dir = 1
	if target < in.t {
		in.dir = -1
	}
	if in.span == 0 {
		in.span = math.Abs(target - in.t)
	}

	h, landed, err := in.takeStep(target, true)
	if err != nil {
		return StopFailed, in.fail(err)
	}
	return in.commit(h, landed, target)
}

// Integrate runs from (t0, y0) to t1 and reports why it stopped. t1 may be
// infinite to integrate until an event or the step cap stops the run.
// Observers are notified of the initial point before the first step.
func (in *Integrator) Integrate(sys dynamo.System, t0 float64, y0 dynamo.State, t1 float64) (*Result, error) {
	if err := in.Initialize(sys, t0, y0); err != nil {
		return nil, err
	}
	in.span = math.Abs(t1 - t0)
	in.notify()

	for {
		reason, err := in.IntegrateStep(t1)
		if err != nil {
			return in.result(StopFailed), err
		}
		if reason != StopNone {
			in.logger.Debug("integration stopped",
				"reason", reason,
				"t", in.t,
				"steps", in.stats.Accepted,
				"rejected", in.stats.Rejected)
			return in.result(reason), nil
		}
	}
}

func (in *Integrator) result(reason StopReason) *Result {
	return &Result{
		Time:   in.t,
		State:  in.y.Clone(),
		Reason: reason,
		Events: append([]events.Crossing(nil), in.crossings...),
		Stats:  in.stats,
	}
}

// commit makes the step in the workspace the current point, then runs
// event detection and observer notification. A terminal crossing at the
// start of the step undoes it: the step is not counted and observers,
// which already saw that point, are not notified again.
func (in *Integrator) commit(h float64, landed bool, target float64) (StopReason, error) {
	in.tPrev = in.t
	copy(in.yPrev, in.y)
	copy(in.y, in.ws.ynew)
	if landed {
		in.t = target
	} else {
		in.t = in.tPrev + h
	}

	stop, err := in.detectEvents()
	if err != nil {
		return StopFailed, in.fail(err)
	}
	taken := math.Abs(in.t - in.tPrev)
	if stop && taken == 0 {
		return StopEvent, nil
	}

	in.stats.Accepted++
	if in.stats.Accepted == 1 {
		in.stats.SmallestStep = taken
		in.stats.LargestStep = taken
	} else {
		in.stats.SmallestStep = math.Min(in.stats.SmallestStep, taken)
		in.stats.LargestStep = math.Max(in.stats.LargestStep, taken)
	}
	in.notify()

	switch {
	case stop:
		return StopEvent, nil
	case landed:
		return StopReached, nil
	default:
		return StopNone, nil
	}
}

func (in *Integrator) fail(err error) error {
	in.logger.Error("integration failed",
		"t", in.t,
		"step", in.stats.Accepted,
		"error", err)
	return &dynamo.SimulationError{
		Step:    in.stats.Accepted,
		Time:    in.t,
		State:   in.y.Clone(),
		Wrapped: err,
	}
}

// Time returns the current time.
func (in *Integrator) Time() float64 { return in.t }

// State returns a copy of the current point.
func (in *Integrator) State() (float64, dynamo.State) {
	return in.t, in.y.Clone()
}

// Previous returns a copy of the point before the most recent accepted step.
func (in *Integrator) Previous() (float64, dynamo.State) {
	return in.tPrev, in.yPrev.Clone()
}

func (in *Integrator) Stats() Stats { return in.stats }

// LastSolve returns the statistics of the most recent event localization.
func (in *Integrator) LastSolve() roots.Stats { return in.lastSolve }

// Events returns the crossings found since Initialize.
func (in *Integrator) Events() []events.Crossing {
	return append([]events.Crossing(nil), in.crossings...)
}

// NextStepSize is the magnitude of the next step the controller will try.
func (in *Integrator) NextStepSize() float64 {
	if !in.adaptive {
		return in.cfg.StepSize
	}
	return in.h
}

func resize(s dynamo.State, n int) dynamo.State {
	if cap(s) < n {
		return make(dynamo.State, n)
	}
	return s[:n]
}
