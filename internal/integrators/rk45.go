package integrators

// Dormand-Prince coefficients (RK45)
var (
	dp1 = 35.0 / 384.0
	dp3 = 500.0 / 1113.0
	dp4 = 125.0 / 192.0
	dp5 = -2187.0 / 6784.0
	dp6 = 11.0 / 84.0

	dc1 = dp1 - 5179.0/57600.0
	dc3 = dp3 - 7571.0/16695.0
	dc4 = dp4 - 393.0/640.0
	dc5 = dp5 - -92097.0/339200.0
	dc6 = dp6 - 187.0/2100.0
	dc7 = -1.0 / 40.0
)

// RK45 is the Dormand-Prince 5(4) pair. The seventh stage is evaluated at
// the new point so the error estimate costs no extra step.
var RK45 = register(&Tableau{
	Name:          "rk45",
	Order:         5,
	EmbeddedOrder: 4,
	C:             []float64{0, 1.0 / 5.0, 3.0 / 10.0, 4.0 / 5.0, 8.0 / 9.0, 1, 1},
	A: [][]float64{
		{},
		{1.0 / 5.0},
		{3.0 / 40.0, 9.0 / 40.0},
		{44.0 / 45.0, -56.0 / 15.0, 32.0 / 9.0},
		{19372.0 / 6561.0, -25360.0 / 2187.0, 64448.0 / 6561.0, -212.0 / 729.0},
		{9017.0 / 3168.0, -355.0 / 33.0, 46732.0 / 5247.0, 49.0 / 176.0, -5103.0 / 18656.0},
		{dp1, 0, dp3, dp4, dp5, dp6},
	},
	B: []float64{dp1, 0, dp3, dp4, dp5, dp6, 0},
	E: []float64{dc1, 0, dc3, dc4, dc5, dc6, dc7},
})

func NewRK45(opts ...Option) *Integrator {
	return New(RK45, opts...)
}
