package dynamo

import (
	"math"

	"gonum.org/v1/gonum/floats"
)

type State []float64

func (s State) Clone() State {
	c := make(State, len(s))
	copy(c, s)
	return c
}

func (s State) IsValid() bool {
	for _, v := range s {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

func (s State) Norm() float64 {
	if len(s) == 0 {
		return 0
	}
	return floats.Norm(s, 2)
}

// MaxNorm returns the largest absolute component.
func (s State) MaxNorm() float64 {
	if len(s) == 0 {
		return 0
	}
	return floats.Norm(s, math.Inf(1))
}

func (s State) Add(other State) State {
	result := make(State, len(s))
	for i := range s {
		if i < len(other) {
			result[i] = s[i] + other[i]
		} else {
			result[i] = s[i]
		}
	}
	return result
}

func (s State) Scale(factor float64) State {
	result := make(State, len(s))
	for i := range s {
		result[i] = s[i] * factor
	}
	return result
}

func (s State) Sub(other State) State {
	result := make(State, len(s))
	for i := range s {
		if i < len(other) {
			result[i] = s[i] - other[i]
		} else {
			result[i] = s[i]
		}
	}
	return result
}

// System is a first-order ODE dy/dt = f(t, y).
//
// Evaluate writes the derivative into dy, which has length Dimension().
// It must not retain y or dy and must not depend on hidden mutable state,
// since step methods call it several times per step.
type System interface {
	Dimension() int
	Evaluate(t float64, y, dy State) error
}

// SystemFunc adapts a plain derivative function to System.
type SystemFunc struct {
	Dim int
	Fn  func(t float64, y, dy State) error
}

func (s SystemFunc) Dimension() int { return s.Dim }

func (s SystemFunc) Evaluate(t float64, y, dy State) error {
	return s.Fn(t, y, dy)
}

// ScalarFunc maps a point of a trajectory to a scalar, e.g. an event function.
type ScalarFunc func(t float64, y State) float64

type Hamiltonian interface {
	Energy(y State) float64
}

type Configurable interface {
	GetParams() map[string]float64
	SetParam(name string, value float64) error
}
