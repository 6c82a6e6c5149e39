package integrators

// RK4 is the classical fourth-order method.
var RK4 = register(&Tableau{
	Name:  "rk4",
	Order: 4,
	C:     []float64{0, 0.5, 0.5, 1},
	A: [][]float64{
		{},
		{0.5},
		{0, 0.5},
		{0, 0, 1},
	},
	B: []float64{1.0 / 6.0, 1.0 / 3.0, 1.0 / 3.0, 1.0 / 6.0},
})

func NewRK4(opts ...Option) *Integrator {
	return New(RK4, opts...)
}
