package models

import (
	"math"

	"github.com/san-kum/odesim/internal/dynamo"
)

// Decay is y' = -Rate*y, the linear test equation with a known solution.
type Decay struct {
	Rate float64
}

func NewDecay() *Decay {
	return &Decay{Rate: 1.0}
}

func (d *Decay) Dimension() int { return 1 }

func (d *Decay) Evaluate(t float64, y, dy dynamo.State) error {
	dy[0] = -d.Rate * y[0]
	return nil
}

func (d *Decay) DefaultState() dynamo.State { return dynamo.State{1.0} }

// Exact returns y(t) for y(0) = y0.
func (d *Decay) Exact(t, y0 float64) float64 {
	return y0 * math.Exp(-d.Rate*t)
}

func (d *Decay) GetParams() map[string]float64 {
	return map[string]float64{"rate": d.Rate}
}

func (d *Decay) SetParam(name string, value float64) error {
	if name != "rate" {
		return unknownParam("decay", name)
	}
	if err := finite("decay", name, value); err != nil {
		return err
	}
	d.Rate = value
	return nil
}
