package integrators

import (
	"sort"

	"github.com/san-kum/odesim/internal/dynamo"
	"github.com/san-kum/odesim/internal/events"
)

type hit struct {
	entry    detectorEntry
	end      float64
	crossing events.Crossing
}

// detectEvents checks every active detector across the last accepted step.
// Crossings are located by re-stepping from the start of the step. When a
// crossing stops the run, the current point moves back to it and crossings
// found later in the step are discarded.
func (in *Integrator) detectEvents() (bool, error) {
	if len(in.detectors) == 0 {
		return false, nil
	}

	var hits []hit
	for _, e := range in.detectors {
		d := e.det
		g0 := d.Last()
		g1, crossed := d.Check(in.t, in.y)
		if !crossed {
			d.Advance(g1)
			continue
		}
		solver := in.solver(d.SolverConfig(in.cfg.Root))
		c, err := d.Locate(solver, in.tPrev, g0, in.t, g1, in.stateAt)
		in.lastSolve = c.Stats
		if err != nil {
			return false, err
		}
		if !c.Precise {
			in.logger.Warn("event located imprecisely",
				"detector", d.Name,
				"t", c.Time,
				"iterations", c.Stats.Iterations,
				"error", c.Stats.Error)
		}
		hits = append(hits, hit{entry: e, end: g1, crossing: c})
	}
	if len(hits) == 0 {
		return false, nil
	}

	sort.SliceStable(hits, func(i, j int) bool {
		return in.dir*hits[i].crossing.Time < in.dir*hits[j].crossing.Time
	})

	stopped := false
	var stopAt float64
	var stopState dynamo.State
	firedAtStop := map[Handle]bool{}
	for _, h := range hits {
		c := h.crossing
		if stopped && in.dir*c.Time > in.dir*stopAt {
			break
		}
		in.crossings = append(in.crossings, c)
		action := h.entry.det.Fire(c)
		in.logger.Debug("event",
			"detector", c.Detector,
			"t", c.Time,
			"direction", c.Direction,
			"precise", c.Precise,
			"action", action)

		if stopped || action == events.Stop {
			firedAtStop[h.entry.handle] = true
		} else {
			h.entry.det.Advance(h.end)
		}
		if action == events.Stop && !stopped {
			stopped = true
			stopAt = c.Time
			stopState = c.State
		}
	}
	if !stopped {
		return false, nil
	}

	for _, e := range in.detectors {
		if !firedAtStop[e.handle] {
			e.det.Prime(stopAt, stopState)
		}
	}
	in.t = stopAt
	copy(in.y, stopState)
	return true, nil
}

// stateAt re-steps from the start of the last accepted step to t.
func (in *Integrator) stateAt(t float64) (dynamo.State, error) {
	if t == in.tPrev {
		return in.yPrev, nil
	}
	if err := in.stepFrom(in.tPrev, t-in.tPrev, in.yPrev, in.ws.ytrial); err != nil {
		return nil, err
	}
	return in.ws.ytrial, nil
}
