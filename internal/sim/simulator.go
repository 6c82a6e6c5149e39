package sim

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/san-kum/odesim/internal/dynamo"
	"github.com/san-kum/odesim/internal/integrators"
	"github.com/san-kum/odesim/internal/metrics"
)

// Simulator runs one trajectory of a system through an integrator, records
// it, and summarises it with metrics.
type Simulator struct {
	sys       dynamo.System
	integ     *integrators.Integrator
	metrics   metrics.Set
	observers []integrators.Observer
	logger    *slog.Logger
}

func New(sys dynamo.System, integ *integrators.Integrator) *Simulator {
	return &Simulator{
		sys:    sys,
		integ:  integ,
		logger: slog.Default(),
	}
}

func (s *Simulator) AddMetric(m metrics.Metric)         { s.metrics = append(s.metrics, m) }
func (s *Simulator) AddObserver(o integrators.Observer) { s.observers = append(s.observers, o) }

func (s *Simulator) SetLogger(l *slog.Logger) { s.logger = l }

func (s *Simulator) Integrator() *integrators.Integrator { return s.integ }

func (s *Simulator) System() dynamo.System { return s.sys }

// Run integrates from (cfg.T0, x0) toward cfg.T1 one accepted step at a
// time. Cancelling ctx or exceeding cfg.Timeout stops the run with
// StopCanceled and an error wrapping dynamo.ErrContextCanceled; the partial
// result is returned alongside.
func (s *Simulator) Run(ctx context.Context, x0 dynamo.State, cfg Config) (*Result, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.Timeout)
		defer cancel()
	}

	result := &Result{Metrics: make(map[string]float64)}
	s.metrics.Reset()

	every := cfg.RecordEvery
	if every <= 0 {
		every = 1
	}
	accepted := 0
	var lastT float64
	var lastY dynamo.State
	record := func(t float64, y dynamo.State) {
		lastT, lastY = t, y
		if accepted%every == 0 {
			result.Times = append(result.Times, t)
			result.States = append(result.States, y)
		}
		accepted++
	}

	fanout := integrators.ObserverFunc(func(t float64, y dynamo.State) {
		record(t, y)
		s.metrics.OnStep(t, y)
		for _, o := range s.observers {
			o.OnStep(t, y)
		}
	})

	if err := s.integ.Initialize(s.sys, cfg.T0, x0); err != nil {
		return nil, err
	}
	h := s.integ.AddStateObserver(fanout)
	defer s.integ.RemoveStateObserver(h)

	start := time.Now()
	fanout.OnStep(cfg.T0, x0.Clone())

	reason := integrators.StopNone
	var runErr error
	for reason == integrators.StopNone {
		select {
		case <-ctx.Done():
			reason = integrators.StopCanceled
			runErr = fmt.Errorf("%w at t=%g: %w", dynamo.ErrContextCanceled, s.integ.Time(), ctx.Err())
			continue
		default:
		}
		reason, runErr = s.integ.IntegrateStep(cfg.T1)
	}

	if n := len(result.Times); n == 0 || result.Times[n-1] != lastT {
		result.Times = append(result.Times, lastT)
		result.States = append(result.States, lastY)
	}
	result.Reason = reason
	result.Events = s.integ.Events()
	result.Stats = s.integ.Stats()
	result.Elapsed = time.Since(start)
	result.Metrics = s.metrics.Values()
	result.EnergyDrift = s.energyDrift(result.States[0], lastY)

	attrs := []any{
		"reason", reason,
		"t", lastT,
		"steps", result.Stats.Accepted,
		"rejected", result.Stats.Rejected,
		"events", len(result.Events),
		"elapsed", result.Elapsed,
	}
	switch {
	case errors.Is(runErr, dynamo.ErrContextCanceled):
		s.logger.Warn("run canceled", attrs...)
	case runErr != nil:
		s.logger.Error("run failed", append(attrs, "error", runErr)...)
	default:
		s.logger.Debug("run finished", attrs...)
	}
	return result, runErr
}

func (s *Simulator) energyDrift(first, last dynamo.State) float64 {
	h, ok := s.sys.(dynamo.Hamiltonian)
	if !ok || last == nil {
		return 0
	}
	e0 := h.Energy(first)
	if e0 == 0 {
		return 0
	}
	return math.Abs(h.Energy(last)-e0) / math.Abs(e0)
}
