package integrators

var Euler = register(&Tableau{
	Name:  "euler",
	Order: 1,
	C:     []float64{0},
	A:     [][]float64{{}},
	B:     []float64{1},
})

func NewEuler(opts ...Option) *Integrator {
	return New(Euler, opts...)
}
