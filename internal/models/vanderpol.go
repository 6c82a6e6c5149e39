package models

import "github.com/san-kum/odesim/internal/dynamo"

// VanDerPol is the relaxation oscillator x'' = mu(1 - x²)x' - x with state
// (x, x'). Every trajectory except the origin approaches one limit cycle.
type VanDerPol struct {
	Mu float64
}

func NewVanDerPol() *VanDerPol { return &VanDerPol{Mu: 1.0} }

func (v *VanDerPol) Dimension() int { return 2 }

func (v *VanDerPol) Evaluate(t float64, y, dy dynamo.State) error {
	x, u := y[0], y[1]
	dy[0] = u
	dy[1] = v.Mu*(1-x*x)*u - x
	return nil
}

func (v *VanDerPol) DefaultState() dynamo.State { return dynamo.State{2.0, 0.0} }

func (v *VanDerPol) GetParams() map[string]float64 {
	return map[string]float64{"mu": v.Mu}
}

func (v *VanDerPol) SetParam(name string, value float64) error {
	if name != "mu" {
		return unknownParam("vanderpol", name)
	}
	if err := nonNegative("vanderpol", name, value); err != nil {
		return err
	}
	v.Mu = value
	return nil
}
