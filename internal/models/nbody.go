package models

import (
	"math"

	"github.com/san-kum/odesim/internal/dynamo"
)

// NBody is planar Newtonian gravity. Body i occupies state entries
// 4i..4i+3 as (x, y, vx, vy).
type NBody struct {
	NumBodies int
	Masses    []float64
	G         float64
	// Softening keeps close encounters finite.
	Softening float64
}

func NewNBody(n int) *NBody {
	masses := make([]float64, n)
	for i := range masses {
		masses[i] = 1.0
	}
	return &NBody{
		NumBodies: n,
		Masses:    masses,
		G:         1.0,
	}
}

func (nb *NBody) Dimension() int { return nb.NumBodies * 4 }

func (nb *NBody) Evaluate(t float64, y, dy dynamo.State) error {
	n := nb.NumBodies
	eps2 := nb.Softening * nb.Softening

	for i := 0; i < n; i++ {
		dy[i*4] = y[i*4+2]
		dy[i*4+1] = y[i*4+3]

		ax, ay := 0.0, 0.0
		for j := 0; j < n; j++ {
			if i == j {
				continue
			}
			rx := y[j*4] - y[i*4]
			ry := y[j*4+1] - y[i*4+1]
			r2 := rx*rx + ry*ry + eps2
			if r2 == 0 {
				continue
			}
			f := nb.G * nb.Masses[j] / (r2 * math.Sqrt(r2))
			ax += f * rx
			ay += f * ry
		}
		dy[i*4+2] = ax
		dy[i*4+3] = ay
	}
	return nil
}

// DefaultState places the bodies on a ring with velocities for a rigid
// rotation, a relative equilibrium for equal masses.
func (nb *NBody) DefaultState() dynamo.State {
	n := nb.NumBodies
	y := make(dynamo.State, 4*n)
	if n < 2 {
		return y
	}
	// Net pull on one body of a unit ring of n equal masses.
	pull := 0.0
	for k := 1; k < n; k++ {
		pull += 1 / (4 * math.Sin(math.Pi*float64(k)/float64(n)))
	}
	v := math.Sqrt(nb.G * nb.Masses[0] * pull)
	for i := 0; i < n; i++ {
		a := 2 * math.Pi * float64(i) / float64(n)
		y[4*i] = math.Cos(a)
		y[4*i+1] = math.Sin(a)
		y[4*i+2] = -v * math.Sin(a)
		y[4*i+3] = v * math.Cos(a)
	}
	return y
}

func (nb *NBody) Energy(y dynamo.State) float64 {
	n := nb.NumBodies
	eps2 := nb.Softening * nb.Softening
	e := 0.0
	for i := 0; i < n; i++ {
		vx, vy := y[i*4+2], y[i*4+3]
		e += 0.5 * nb.Masses[i] * (vx*vx + vy*vy)
		for j := i + 1; j < n; j++ {
			rx := y[j*4] - y[i*4]
			ry := y[j*4+1] - y[i*4+1]
			r := math.Sqrt(rx*rx + ry*ry + eps2)
			if r > 0 {
				e -= nb.G * nb.Masses[i] * nb.Masses[j] / r
			}
		}
	}
	return e
}

func (nb *NBody) GetParams() map[string]float64 {
	return map[string]float64{"g": nb.G, "softening": nb.Softening}
}

func (nb *NBody) SetParam(name string, value float64) error {
	switch name {
	case "g":
		if err := positive("nbody", name, value); err != nil {
			return err
		}
		nb.G = value
	case "softening":
		if err := nonNegative("nbody", name, value); err != nil {
			return err
		}
		nb.Softening = value
	default:
		return unknownParam("nbody", name)
	}
	return nil
}
