package models

import (
	"math"

	"github.com/san-kum/odesim/internal/dynamo"
)

// Duffing is the periodically forced oscillator
//
//	x'' + delta x' + alpha x + beta x³ = gamma cos(omega t)
//
// with state (x, x'). The forcing makes it non-autonomous.
type Duffing struct {
	Alpha, Beta, Delta, Gamma, Omega float64
}

// NewDuffing returns the double-well setup with chaotic forcing.
func NewDuffing() *Duffing {
	return &Duffing{Alpha: -1.0, Beta: 1.0, Delta: 0.3, Gamma: 0.5, Omega: 1.2}
}

func (d *Duffing) Dimension() int { return 2 }

func (d *Duffing) Evaluate(t float64, y, dy dynamo.State) error {
	x, v := y[0], y[1]
	dy[0] = v
	dy[1] = -d.Delta*v - d.Alpha*x - d.Beta*x*x*x + d.Gamma*math.Cos(d.Omega*t)
	return nil
}

func (d *Duffing) DefaultState() dynamo.State { return dynamo.State{1.0, 0.0} }

// Potential is the unforced energy landscape at x.
func (d *Duffing) Potential(x float64) float64 {
	return 0.5*d.Alpha*x*x + 0.25*d.Beta*x*x*x*x
}

// Quantities exposes drive, which crosses zero upwards once per forcing
// period and so gives a stroboscopic section.
func (d *Duffing) Quantities() map[string]dynamo.ScalarFunc {
	return map[string]dynamo.ScalarFunc{
		"drive": func(t float64, y dynamo.State) float64 { return math.Sin(d.Omega * t) },
		"potential": func(t float64, y dynamo.State) float64 {
			return d.Potential(y[0]) + 0.5*y[1]*y[1]
		},
	}
}

func (d *Duffing) GetParams() map[string]float64 {
	return map[string]float64{"alpha": d.Alpha, "beta": d.Beta, "delta": d.Delta, "gamma": d.Gamma, "omega": d.Omega}
}

func (d *Duffing) SetParam(name string, value float64) error {
	if err := finite("duffing", name, value); err != nil {
		return err
	}
	switch name {
	case "alpha":
		d.Alpha = value
	case "beta":
		d.Beta = value
	case "delta":
		if err := nonNegative("duffing", name, value); err != nil {
			return err
		}
		d.Delta = value
	case "gamma":
		d.Gamma = value
	case "omega":
		if err := positive("duffing", name, value); err != nil {
			return err
		}
		d.Omega = value
	default:
		return unknownParam("duffing", name)
	}
	return nil
}
