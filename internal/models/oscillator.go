package models

import (
	"math"

	"github.com/san-kum/odesim/internal/dynamo"
)

const (
	DefaultMass      = 1.0
	DefaultStiffness = 1.0
	DefaultLength    = 1.0
	DefaultGravity   = 9.81
)

// Oscillator is a damped spring-mass system with state (x, v).
type Oscillator struct {
	Mass      float64
	Stiffness float64
	Damping   float64
}

func NewOscillator() *Oscillator {
	return &Oscillator{
		Mass:      DefaultMass,
		Stiffness: DefaultStiffness,
	}
}

func (o *Oscillator) Dimension() int { return 2 }

func (o *Oscillator) Evaluate(t float64, y, dy dynamo.State) error {
	dy[0] = y[1]
	dy[1] = (-o.Stiffness*y[0] - o.Damping*y[1]) / o.Mass
	return nil
}

func (o *Oscillator) DefaultState() dynamo.State { return dynamo.State{1.0, 0.0} }

func (o *Oscillator) Energy(y dynamo.State) float64 {
	return 0.5*o.Mass*y[1]*y[1] + 0.5*o.Stiffness*y[0]*y[0]
}

// Period of the undamped motion.
func (o *Oscillator) Period() float64 {
	return 2 * math.Pi * math.Sqrt(o.Mass/o.Stiffness)
}

func (o *Oscillator) Quantities() map[string]dynamo.ScalarFunc {
	return map[string]dynamo.ScalarFunc{
		"energy": func(t float64, y dynamo.State) float64 { return o.Energy(y) },
	}
}

func (o *Oscillator) GetParams() map[string]float64 {
	return map[string]float64{"mass": o.Mass, "stiffness": o.Stiffness, "damping": o.Damping}
}

func (o *Oscillator) SetParam(name string, value float64) error {
	switch name {
	case "mass":
		if err := positive("oscillator", name, value); err != nil {
			return err
		}
		o.Mass = value
	case "stiffness":
		if err := positive("oscillator", name, value); err != nil {
			return err
		}
		o.Stiffness = value
	case "damping":
		if err := nonNegative("oscillator", name, value); err != nil {
			return err
		}
		o.Damping = value
	default:
		return unknownParam("oscillator", name)
	}
	return nil
}
