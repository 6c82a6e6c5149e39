package experiment

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/san-kum/odesim/internal/config"
	"github.com/san-kum/odesim/internal/dynamo"
	"github.com/san-kum/odesim/internal/events"
	"github.com/san-kum/odesim/internal/integrators"
	"github.com/san-kum/odesim/internal/roots"
	"github.com/san-kum/odesim/internal/sim"
)

// Experiment is a run assembled from a config: model, integrator, event
// detectors and metrics.
type Experiment struct {
	cfg       *config.Config
	model     Model
	x0        dynamo.State
	integ     *integrators.Integrator
	detectors []*events.Detector
	simulator *sim.Simulator
}

func New(cfg *config.Config, reg *Registry, logger *slog.Logger) (*Experiment, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}

	model, err := reg.Model(cfg.Model, cfg)
	if err != nil {
		return nil, err
	}
	if c, ok := model.(dynamo.Configurable); ok {
		for name, v := range cfg.Params {
			if err := c.SetParam(name, v); err != nil {
				return nil, err
			}
		}
	} else if len(cfg.Params) > 0 {
		return nil, fmt.Errorf("%w: model %s takes no parameters", dynamo.ErrConfiguration, cfg.Model)
	}

	x0 := model.DefaultState()
	if len(cfg.InitState) > 0 {
		x0 = dynamo.State(cfg.InitState).Clone()
	}
	if len(x0) != model.Dimension() {
		return nil, fmt.Errorf("%w: %s needs %d initial values, got %d",
			dynamo.ErrDimensionMismatch, cfg.Model, model.Dimension(), len(x0))
	}

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
	integ, err := reg.Integrator(cfg.Integrator, opts...)
	if err != nil {
		return nil, err
	}

	e := &Experiment{cfg: cfg, model: model, x0: x0, integ: integ}
	for i, ec := range cfg.Events {
		d, err := e.detector(i, ec)
		if err != nil {
			return nil, err
		}
		e.detectors = append(e.detectors, d)
		integ.AddEventDetector(d)
	}

	e.simulator = sim.New(model, integ)
	e.simulator.SetLogger(logger)
	for _, m := range reg.DefaultMetrics(model) {
		e.simulator.AddMetric(m)
	}
	return e, nil
}

func (e *Experiment) detector(i int, ec config.EventConfig) (*events.Detector, error) {
	dir, err := events.ParseDirection(ec.Direction)
	if err != nil {
		return nil, err
	}
	action, err := events.ParseAction(ec.Action)
	if err != nil {
		return nil, err
	}

	var fn dynamo.ScalarFunc
	if ec.Quantity != "" {
		q, ok := e.model.(quantifier)
		if ok {
			fn = q.Quantities()[ec.Quantity]
		}
		if fn == nil {
			return nil, fmt.Errorf("%w: model %s has no quantity %q", dynamo.ErrConfiguration, e.cfg.Model, ec.Quantity)
		}
	} else {
		if ec.Component >= e.model.Dimension() {
			return nil, fmt.Errorf("%w: event component %d outside state of dimension %d",
				dynamo.ErrDimensionMismatch, ec.Component, e.model.Dimension())
		}
		c := ec.Component
		fn = func(t float64, y dynamo.State) float64 { return y[c] }
	}

	name := ec.Name
	if name == "" {
		name = fmt.Sprintf("event%d", i)
	}
	d := events.New(name, fn, ec.Goal, dir)
	if ec.Threshold > 0 {
		d.Threshold = ec.Threshold
	}
	d.RepeatCount = ec.Repeat
	d.Action = action
	return d, nil
}

func (e *Experiment) Run(ctx context.Context) (*sim.Result, error) {
	return e.simulator.Run(ctx, e.x0, sim.Config{
		T0:          e.cfg.T0,
		T1:          e.cfg.T1,
		Timeout:     e.cfg.Timeout,
		RecordEvery: e.cfg.RecordEvery,
	})
}

func (e *Experiment) Config() *config.Config { return e.cfg }

func (e *Experiment) Model() Model { return e.model }

func (e *Experiment) InitialState() dynamo.State { return e.x0.Clone() }

func (e *Experiment) Integrator() *integrators.Integrator { return e.integ }

func (e *Experiment) Detectors() []*events.Detector { return e.detectors }

// Simulator returns the underlying simulator for adding observers.
func (e *Experiment) Simulator() *sim.Simulator { return e.simulator }
