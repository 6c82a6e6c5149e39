package models

import (
	"fmt"
	"math"

	"github.com/san-kum/odesim/internal/dynamo"
	"github.com/san-kum/odesim/internal/roots"
)

// EarthMu is the geocentric gravitational parameter in km^3/s^2.
const EarthMu = 398600.4418

// TwoBody is unperturbed Keplerian motion about a point mass. The state is
// (x, y, z, vx, vy, vz) in km and km/s.
type TwoBody struct {
	Mu float64
}

func NewTwoBody() *TwoBody {
	return &TwoBody{Mu: EarthMu}
}

func (k *TwoBody) Dimension() int { return 6 }

func (k *TwoBody) Evaluate(t float64, y, dy dynamo.State) error {
	r := math.Sqrt(y[0]*y[0] + y[1]*y[1] + y[2]*y[2])
	if r == 0 {
		return fmt.Errorf("two-body: collision with the central body at t=%g", t)
	}
	f := -k.Mu / (r * r * r)
	dy[0], dy[1], dy[2] = y[3], y[4], y[5]
	dy[3], dy[4], dy[5] = f*y[0], f*y[1], f*y[2]
	return nil
}

// DefaultState is a circular orbit of radius 7000 km in the xy plane.
func (k *TwoBody) DefaultState() dynamo.State {
	return k.Circular(7000)
}

func (k *TwoBody) Circular(radius float64) dynamo.State {
	return dynamo.State{radius, 0, 0, 0, math.Sqrt(k.Mu / radius), 0}
}

// Energy is the specific orbital energy v^2/2 - mu/r.
func (k *TwoBody) Energy(y dynamo.State) float64 {
	v2 := y[3]*y[3] + y[4]*y[4] + y[5]*y[5]
	return 0.5*v2 - k.Mu/Radius(0, y)
}

// Period returns the orbital period for the state, or +Inf when the orbit
// is not bound.
func (k *TwoBody) Period(y dynamo.State) float64 {
	e := k.Energy(y)
	if e >= 0 {
		return math.Inf(1)
	}
	a := -k.Mu / (2 * e)
	return 2 * math.Pi * math.Sqrt(a*a*a/k.Mu)
}

// Radius is the distance from the central body.
func Radius(t float64, y dynamo.State) float64 {
	return math.Sqrt(y[0]*y[0] + y[1]*y[1] + y[2]*y[2])
}

// RadialVelocity is r.v / |r|; it crosses zero at apsides.
func RadialVelocity(t float64, y dynamo.State) float64 {
	r := Radius(t, y)
	if r == 0 {
		return 0
	}
	return (y[0]*y[3] + y[1]*y[4] + y[2]*y[5]) / r
}

// Quantities names scalar functions of the state usable as event functions.
func (k *TwoBody) Quantities() map[string]dynamo.ScalarFunc {
	return map[string]dynamo.ScalarFunc{
		"radius":          Radius,
		"radial_velocity": RadialVelocity,
		"energy":          func(t float64, y dynamo.State) float64 { return k.Energy(y) },
	}
}

func (k *TwoBody) GetParams() map[string]float64 {
	return map[string]float64{"mu": k.Mu}
}

func (k *TwoBody) SetParam(name string, value float64) error {
	if name != "mu" {
		return unknownParam("two_body", name)
	}
	if err := positive("two_body", name, value); err != nil {
		return err
	}
	k.Mu = value
	return nil
}

// EccentricAnomaly solves Kepler's equation E - e sin E = M for an elliptic
// orbit. The root always lies in [M-e, M+e].
func EccentricAnomaly(s roots.Solver, meanAnomaly, ecc float64) (float64, roots.Stats, error) {
	if ecc < 0 || ecc >= 1 {
		return math.NaN(), roots.Stats{}, fmt.Errorf("%w: eccentricity %v outside [0, 1)", dynamo.ErrPrecondition, ecc)
	}
	if ecc == 0 {
		return meanAnomaly, roots.Stats{Converged: true}, nil
	}
	f := func(e float64) float64 {
		return e - ecc*math.Sin(e) - meanAnomaly
	}
	return s.Solve(f, meanAnomaly-ecc, meanAnomaly+ecc)
}
