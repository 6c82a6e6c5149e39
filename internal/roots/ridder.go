package roots

import (
	"math"
)

// Ridder adds an exponential-interpolation evaluation to each bisection
// midpoint while keeping the root bracketed.
type Ridder struct {
	cfg Config
}

func NewRidder(cfg Config) *Ridder {
	return &Ridder{cfg: cfg.withDefaults()}
}

func (s *Ridder) Name() string { return "ridder" }

func (s *Ridder) Solve(f Func, a, b float64) (float64, Stats, error) {
	var st Stats
	if err := s.cfg.Validate(); err != nil {
		return math.NaN(), st, err
	}

	fa, fb, root, done, err := bracket(f, a, b, &st)
	if err != nil || done {
		return root, st, err
	}

	tol := s.cfg.AbsTol
	xn := a
	for i := 0; i < s.cfg.MaxIter; i++ {
		st.Iterations++
		dm := 0.5 * (b - a)
		xm := a + dm
		fm := f(xm)
		dn := sign(fb-fa) * dm * fm / math.Sqrt(fm*fm-fa*fb)
		xn = xm - sign(dn)*math.Min(math.Abs(dn), math.Abs(dm)-0.5*tol)
		fn := f(xn)
		st.FuncCalls += 2
		if math.IsNaN(fm) || math.IsNaN(fn) {
			return xn, st, ErrNonFinite
		}

		switch {
		case fn*fm < 0:
			a, fa = xn, fn
			b, fb = xm, fm
		case fn*fa < 0:
			b, fb = xn, fn
		default:
			a, fa = xn, fn
		}

		tol = s.cfg.AbsTol + s.cfg.RelTol*math.Abs(xn)
		st.Error = math.Abs(b - a)
		if fn == 0 || math.Abs(fn) <= s.cfg.AbsTol || st.Error < tol {
			st.Converged = true
			return xn, st, nil
		}
	}
	return xn, st, notConverged(s.Name(), st)
}

func sign(x float64) float64 {
	if x < 0 {
		return -1
	}
	return 1
}
