package models

import "github.com/san-kum/odesim/internal/dynamo"

type Rossler struct {
	A, B, C float64
}

func NewRossler() *Rossler { return &Rossler{A: 0.2, B: 0.2, C: 5.7} }

func (r *Rossler) Dimension() int { return 3 }

func (r *Rossler) Evaluate(t float64, y, dy dynamo.State) error {
	dy[0] = -y[1] - y[2]
	dy[1] = y[0] + r.A*y[1]
	dy[2] = r.B + y[2]*(y[0]-r.C)
	return nil
}

func (r *Rossler) DefaultState() dynamo.State { return dynamo.State{1.0, 1.0, 1.0} }

func (r *Rossler) GetParams() map[string]float64 {
	return map[string]float64{"a": r.A, "b": r.B, "c": r.C}
}

func (r *Rossler) SetParam(name string, value float64) error {
	if err := finite("rossler", name, value); err != nil {
		return err
	}
	switch name {
	case "a":
		r.A = value
	case "b":
		r.B = value
	case "c":
		r.C = value
	default:
		return unknownParam("rossler", name)
	}
	return nil
}
