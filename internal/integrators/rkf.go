package integrators

// Embedded pairs. B carries the higher-order weights and E the difference to
// the lower-order ones, so every pair propagates its more accurate solution.

var RKF45 = register(&Tableau{
	Name:          "rkf45",
	Order:         5,
	EmbeddedOrder: 4,
	C:             []float64{0, 1.0 / 4.0, 3.0 / 8.0, 12.0 / 13.0, 1, 1.0 / 2.0},
	A: [][]float64{
		{},
		{1.0 / 4.0},
		{3.0 / 32.0, 9.0 / 32.0},
		{1932.0 / 2197.0, -7200.0 / 2197.0, 7296.0 / 2197.0},
		{439.0 / 216.0, -8, 3680.0 / 513.0, -845.0 / 4104.0},
		{-8.0 / 27.0, 2, -3544.0 / 2565.0, 1859.0 / 4104.0, -11.0 / 40.0},
	},
	B: []float64{16.0 / 135.0, 0, 6656.0 / 12825.0, 28561.0 / 56430.0, -9.0 / 50.0, 2.0 / 55.0},
	E: []float64{1.0 / 360.0, 0, -128.0 / 4275.0, -2197.0 / 75240.0, 1.0 / 50.0, 2.0 / 55.0},
})

// RKCK is the Cash-Karp 5(4) pair.
var RKCK = register(&Tableau{
	Name:          "rkck",
	Order:         5,
	EmbeddedOrder: 4,
	C:             []float64{0, 1.0 / 5.0, 3.0 / 10.0, 3.0 / 5.0, 1, 7.0 / 8.0},
	A: [][]float64{
		{},
		{1.0 / 5.0},
		{3.0 / 40.0, 9.0 / 40.0},
		{3.0 / 10.0, -9.0 / 10.0, 6.0 / 5.0},
		{-11.0 / 54.0, 5.0 / 2.0, -70.0 / 27.0, 35.0 / 27.0},
		{1631.0 / 55296.0, 175.0 / 512.0, 575.0 / 13824.0, 44275.0 / 110592.0, 253.0 / 4096.0},
	},
	B: []float64{37.0 / 378.0, 0, 250.0 / 621.0, 125.0 / 594.0, 0, 512.0 / 1771.0},
	E: []float64{
		37.0/378.0 - 2825.0/27648.0,
		0,
		250.0/621.0 - 18575.0/48384.0,
		125.0/594.0 - 13525.0/55296.0,
		-277.0 / 14336.0,
		512.0/1771.0 - 1.0/4.0,
	},
})

var RKF56 = register(&Tableau{
	Name:          "rkf56",
	Order:         6,
	EmbeddedOrder: 5,
	C:             []float64{0, 1.0 / 6.0, 4.0 / 15.0, 2.0 / 3.0, 4.0 / 5.0, 1, 0, 1},
	A: [][]float64{
		{},
		{1.0 / 6.0},
		{4.0 / 75.0, 16.0 / 75.0},
		{5.0 / 6.0, -8.0 / 3.0, 5.0 / 2.0},
		{-8.0 / 5.0, 144.0 / 25.0, -4, 16.0 / 25.0},
		{361.0 / 320.0, -18.0 / 5.0, 407.0 / 128.0, -11.0 / 80.0, 55.0 / 128.0},
		{-11.0 / 640.0, 0, 11.0 / 256.0, -11.0 / 160.0, 11.0 / 256.0, 0},
		{93.0 / 640.0, -18.0 / 5.0, 803.0 / 256.0, -11.0 / 160.0, 99.0 / 256.0, 0, 1},
	},
	B: []float64{7.0 / 1408.0, 0, 1125.0 / 2816.0, 9.0 / 32.0, 125.0 / 768.0, 0, 5.0 / 66.0, 5.0 / 66.0},
	E: []float64{-5.0 / 66.0, 0, 0, 0, 0, -5.0 / 66.0, 5.0 / 66.0, 5.0 / 66.0},
})

var RKF78 = register(&Tableau{
	Name:          "rkf78",
	Order:         8,
	EmbeddedOrder: 7,
	C: []float64{
		0, 2.0 / 27.0, 1.0 / 9.0, 1.0 / 6.0, 5.0 / 12.0, 1.0 / 2.0, 5.0 / 6.0,
		1.0 / 6.0, 2.0 / 3.0, 1.0 / 3.0, 1, 0, 1,
	},
	A: [][]float64{
		{},
		{2.0 / 27.0},
		{1.0 / 36.0, 1.0 / 12.0},
		{1.0 / 24.0, 0, 1.0 / 8.0},
		{5.0 / 12.0, 0, -25.0 / 16.0, 25.0 / 16.0},
		{1.0 / 20.0, 0, 0, 1.0 / 4.0, 1.0 / 5.0},
		{-25.0 / 108.0, 0, 0, 125.0 / 108.0, -65.0 / 27.0, 125.0 / 54.0},
		{31.0 / 300.0, 0, 0, 0, 61.0 / 225.0, -2.0 / 9.0, 13.0 / 900.0},
		{2, 0, 0, -53.0 / 6.0, 704.0 / 45.0, -107.0 / 9.0, 67.0 / 90.0, 3},
		{-91.0 / 108.0, 0, 0, 23.0 / 108.0, -976.0 / 135.0, 311.0 / 54.0, -19.0 / 60.0, 17.0 / 6.0, -1.0 / 12.0},
		{2383.0 / 4100.0, 0, 0, -341.0 / 164.0, 4496.0 / 1025.0, -301.0 / 82.0, 2133.0 / 4100.0, 45.0 / 82.0, 45.0 / 164.0, 18.0 / 41.0},
		{3.0 / 205.0, 0, 0, 0, 0, -6.0 / 41.0, -3.0 / 205.0, -3.0 / 41.0, 3.0 / 41.0, 6.0 / 41.0},
		{-1777.0 / 4100.0, 0, 0, -341.0 / 164.0, 4496.0 / 1025.0, -289.0 / 82.0, 2193.0 / 4100.0, 51.0 / 82.0, 33.0 / 164.0, 12.0 / 41.0, 0, 1},
	},
	B: []float64{0, 0, 0, 0, 0, 34.0 / 105.0, 9.0 / 35.0, 9.0 / 35.0, 9.0 / 280.0, 9.0 / 280.0, 0, 41.0 / 840.0, 41.0 / 840.0},
	E: []float64{-41.0 / 840.0, 0, 0, 0, 0, 0, 0, 0, 0, 0, -41.0 / 840.0, 41.0 / 840.0, 41.0 / 840.0},
})

func NewRKF45(opts ...Option) *Integrator {
	return New(RKF45, opts...)
}

func NewRKCK(opts ...Option) *Integrator {
	return New(RKCK, opts...)
}

func NewRKF56(opts ...Option) *Integrator {
	return New(RKF56, opts...)
}

func NewRKF78(opts ...Option) *Integrator {
	return New(RKF78, opts...)
}
