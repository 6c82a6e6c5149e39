package integrators

import (
	"github.com/san-kum/odesim/internal/dynamo"
	"github.com/san-kum/odesim/internal/events"
)

// Handle identifies a registered observer or event detector.
type Handle uint64

// Observer is notified after every accepted step with a copy of the state.
type Observer interface {
	OnStep(t float64, y dynamo.State)
}

type ObserverFunc func(t float64, y dynamo.State)

func (f ObserverFunc) OnStep(t float64, y dynamo.State) { f(t, y) }

type observerEntry struct {
	handle Handle
	obs    Observer
}

type detectorEntry struct {
	handle Handle
	det    *events.Detector
}

// AddStateObserver registers o. Observers run in registration order.
func (in *Integrator) AddStateObserver(o Observer) Handle {
	in.nextHandle++
	in.observers = append(in.observers, observerEntry{handle: in.nextHandle, obs: o})
	return in.nextHandle
}

func (in *Integrator) RemoveStateObserver(h Handle) bool {
	kept := make([]observerEntry, 0, len(in.observers))
	found := false
	for _, e := range in.observers {
		if e.handle == h {
			found = true
			continue
		}
		kept = append(kept, e)
	}
	in.observers = kept
	return found
}

// AddEventDetector registers d. The integrator does not own d; the caller
// may keep inspecting it.
func (in *Integrator) AddEventDetector(d *events.Detector) Handle {
	in.nextHandle++
	in.detectors = append(in.detectors, detectorEntry{handle: in.nextHandle, det: d})
	if in.ready {
		d.Prime(in.t, in.y)
	}
	return in.nextHandle
}

// AddEvent builds and registers a detector. A zero threshold selects the
// default and a zero repeat count means no limit.
func (in *Integrator) AddEvent(fn dynamo.ScalarFunc, goal float64, dir events.Direction, threshold float64, repeat int) (*events.Detector, Handle) {
	d := events.New("", fn, goal, dir)
	if threshold > 0 {
		d.Threshold = threshold
	}
	d.RepeatCount = repeat
	return d, in.AddEventDetector(d)
}

func (in *Integrator) RemoveEventDetector(h Handle) bool {
	kept := make([]detectorEntry, 0, len(in.detectors))
	found := false
	for _, e := range in.detectors {
		if e.handle == h {
			found = true
			continue
		}
		kept = append(kept, e)
	}
	in.detectors = kept
	return found
}

func (in *Integrator) notify() {
	for _, e := range in.observers {
		e.obs.OnStep(in.t, in.y.Clone())
	}
}

// Collector records every point it observes.
type Collector struct {
	Times  []float64
	States []dynamo.State
}

func (c *Collector) OnStep(t float64, y dynamo.State) {
	c.Times = append(c.Times, t)
	c.States = append(c.States, y)
}

func (c *Collector) Len() int { return len(c.Times) }
