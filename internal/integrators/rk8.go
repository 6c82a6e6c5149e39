package integrators

import "math"

// RK8 is Shanks' ten-stage formula. Its rational coefficients are truncated
// approximations and the method converges at seventh order.
var RK8 = register(&Tableau{
	Name:  "rk8",
	Order: 7,
	C:     []float64{0, 4.0 / 27.0, 2.0 / 9.0, 1.0 / 3.0, 1.0 / 2.0, 2.0 / 3.0, 1.0 / 6.0, 1, 5.0 / 6.0, 1},
	A: [][]float64{
		{},
		{4.0 / 27.0},
		{1.0 / 18.0, 3.0 / 18.0},
		{1.0 / 12.0, 0, 3.0 / 12.0},
		{1.0 / 8.0, 0, 0, 3.0 / 8.0},
		{13.0 / 54.0, 0, -27.0 / 54.0, 42.0 / 54.0, 8.0 / 54.0},
		{389.0 / 4320.0, 0, -54.0 / 4320.0, 966.0 / 4320.0, -824.0 / 4320.0, 243.0 / 4320.0},
		{-231.0 / 20.0, 0, 81.0 / 20.0, -1164.0 / 20.0, 656.0 / 20.0, -122.0 / 20.0, 800.0 / 20.0},
		{-127.0 / 288.0, 0, 18.0 / 288.0, -678.0 / 288.0, 456.0 / 288.0, -9.0 / 288.0, 576.0 / 288.0, 4.0 / 288.0},
		{1481.0 / 820.0, 0, -81.0 / 820.0, 7104.0 / 820.0, -3376.0 / 820.0, 72.0 / 820.0, -5040.0 / 820.0, -60.0 / 820.0, 720.0 / 820.0},
	},
	B: []float64{41.0 / 840.0, 0, 0, 27.0 / 840.0, 272.0 / 840.0, 27.0 / 840.0, 216.0 / 840.0, 0, 216.0 / 840.0, 41.0 / 840.0},
})

var sqrt21 = math.Sqrt(21)

// RKV8 is the Cooper-Verner eleven-stage eighth-order method.
var RKV8 = register(&Tableau{
	Name:  "rkv8",
	Order: 8,
	C: []float64{
		0, 0.5, 0.5,
		(7 - sqrt21) / 14, (7 - sqrt21) / 14, 0.5,
		(7 + sqrt21) / 14, (7 + sqrt21) / 14, 0.5,
		(7 - sqrt21) / 14, 1,
	},
	A: [][]float64{
		{},
		{1.0 / 2.0},
		{1.0 / 4.0, 1.0 / 4.0},
		{1.0 / 7.0, (-7 + 3*sqrt21) / 98, (21 - 5*sqrt21) / 49},
		{(11 - sqrt21) / 84, 0, (18 - 4*sqrt21) / 63, (21 + sqrt21) / 252},
		{(5 - sqrt21) / 48, 0, (9 - sqrt21) / 36, (-231 - 14*sqrt21) / 360, (63 + 7*sqrt21) / 80},
		{(10 + sqrt21) / 42, 0, (-432 - 92*sqrt21) / 315, (633 + 145*sqrt21) / 90, (-504 - 115*sqrt21) / 70, (63 + 13*sqrt21) / 35},
		{1.0 / 14.0, 0, 0, 0, (14 + 3*sqrt21) / 126, (13 + 3*sqrt21) / 63, 1.0 / 9.0},
		{1.0 / 32.0, 0, 0, 0, (91 + 21*sqrt21) / 576, 11.0 / 72.0, (-385 + 75*sqrt21) / 1152, (63 - 13*sqrt21) / 128},
		{1.0 / 14.0, 0, 0, 0, 1.0 / 9.0, (-733 + 147*sqrt21) / 2205, (515 - 111*sqrt21) / 504, (-51 + 11*sqrt21) / 56, (132 - 28*sqrt21) / 245},
		{0, 0, 0, 0, (-42 - 7*sqrt21) / 18, (-18 - 28*sqrt21) / 45, (-273 + 53*sqrt21) / 72, (301 - 53*sqrt21) / 72, (28 + 28*sqrt21) / 45, (49 + 7*sqrt21) / 18},
	},
	B: []float64{9.0 / 180.0, 0, 0, 0, 0, 0, 0, 49.0 / 180.0, 64.0 / 180.0, 49.0 / 180.0, 9.0 / 180.0},
})

func NewRK8(opts ...Option) *Integrator {
	return New(RK8, opts...)
}

func NewRKV8(opts ...Option) *Integrator {
	return New(RKV8, opts...)
}
