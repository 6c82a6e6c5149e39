package models

import "github.com/san-kum/odesim/internal/dynamo"

type Lorenz struct {
	Sigma, Rho, Beta float64
}

func NewLorenz() *Lorenz { return &Lorenz{Sigma: 10.0, Rho: 28.0, Beta: 8.0 / 3.0} }

func (l *Lorenz) Dimension() int { return 3 }

func (l *Lorenz) Evaluate(t float64, y, dy dynamo.State) error {
	dy[0] = l.Sigma * (y[1] - y[0])
	dy[1] = y[0]*(l.Rho-y[2]) - y[1]
	dy[2] = y[0]*y[1] - l.Beta*y[2]
	return nil
}

func (l *Lorenz) DefaultState() dynamo.State { return dynamo.State{1.0, 1.0, 1.0} }

func (l *Lorenz) GetParams() map[string]float64 {
	return map[string]float64{"sigma": l.Sigma, "rho": l.Rho, "beta": l.Beta}
}

func (l *Lorenz) SetParam(name string, value float64) error {
	if err := finite("lorenz", name, value); err != nil {
		return err
	}
	switch name {
	case "sigma":
		l.Sigma = value
	case "rho":
		l.Rho = value
	case "beta":
		l.Beta = value
	default:
		return unknownParam("lorenz", name)
	}
	return nil
}
