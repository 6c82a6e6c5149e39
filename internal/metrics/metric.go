// Package metrics summarises a trajectory while it is integrated. Metrics
// see every accepted point, including the initial one.
package metrics

import "github.com/san-kum/odesim/internal/dynamo"

type Metric interface {
	Name() string
	Observe(t float64, y dynamo.State)
	Value() float64
	Reset()
}

// Set fans accepted steps out to several metrics. It satisfies the
// integrator's step observer interface.
type Set []Metric

func (s Set) OnStep(t float64, y dynamo.State) {
	for _, m := range s {
		m.Observe(t, y)
	}
}

// Values returns the current value of every metric by name.
func (s Set) Values() map[string]float64 {
	out := make(map[string]float64, len(s))
	for _, m := range s {
		out[m.Name()] = m.Value()
	}
	return out
}

func (s Set) Reset() {
	for _, m := range s {
		m.Reset()
	}
}
