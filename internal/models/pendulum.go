package models

import (
	"math"

	"github.com/san-kum/odesim/internal/dynamo"
)

// Pendulum is a damped simple pendulum with state (theta, omega).
type Pendulum struct {
	Mass    float64
	Length  float64
	Damping float64
	Gravity float64
}

func NewPendulum() *Pendulum {
	return &Pendulum{
		Mass:    DefaultMass,
		Length:  DefaultLength,
		Damping: 0.1,
		Gravity: DefaultGravity,
	}
}

func (p *Pendulum) Dimension() int { return 2 }

func (p *Pendulum) Evaluate(t float64, y, dy dynamo.State) error {
	theta, omega := y[0], y[1]
	dy[0] = omega
	dy[1] = (-p.Damping*omega - p.Mass*p.Gravity*p.Length*math.Sin(theta)) / (p.Mass * p.Length * p.Length)
	return nil
}

func (p *Pendulum) DefaultState() dynamo.State { return dynamo.State{math.Pi / 4, 0} }

func (p *Pendulum) Energy(y dynamo.State) float64 {
	theta, omega := y[0], y[1]
	ke := 0.5 * p.Mass * p.Length * p.Length * omega * omega
	pe := p.Mass * p.Gravity * p.Length * (1 - math.Cos(theta))
	return ke + pe
}

func (p *Pendulum) Quantities() map[string]dynamo.ScalarFunc {
	return map[string]dynamo.ScalarFunc{
		"energy": func(t float64, y dynamo.State) float64 { return p.Energy(y) },
	}
}

func (p *Pendulum) GetParams() map[string]float64 {
	return map[string]float64{
		"mass":    p.Mass,
		"length":  p.Length,
		"damping": p.Damping,
		"gravity": p.Gravity,
	}
}

func (p *Pendulum) SetParam(name string, value float64) error {
	switch name {
	case "mass", "length":
		if err := positive("pendulum", name, value); err != nil {
			return err
		}
		if name == "mass" {
			p.Mass = value
		} else {
			p.Length = value
		}
	case "damping", "gravity":
		if err := nonNegative("pendulum", name, value); err != nil {
			return err
		}
		if name == "damping" {
			p.Damping = value
		} else {
			p.Gravity = value
		}
	default:
		return unknownParam("pendulum", name)
	}
	return nil
}
