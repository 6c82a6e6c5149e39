package roots

import (
	"math"
)

// Secant extrapolates through the last two iterates. It needs no bracket and
// may diverge; prefer a bracketed method when convergence must be guaranteed.
type Secant struct {
	cfg Config
}

func NewSecant(cfg Config) *Secant {
	return &Secant{cfg: cfg.withDefaults()}
}

func (s *Secant) Name() string { return "secant" }

// Solve starts the iteration from x0 and x1.
func (s *Secant) Solve(f Func, x0, x1 float64) (float64, Stats, error) {
	var st Stats
	if err := s.cfg.Validate(); err != nil {
		return math.NaN(), st, err
	}

	f0, f1 := f(x0), f(x1)
	st.FuncCalls += 2
	if math.IsNaN(f0) || math.IsNaN(f1) {
		return x1, st, ErrNonFinite
	}
	if f0 == 0 {
		st.Converged = true
		return x0, st, nil
	}

	for i := 0; i < s.cfg.MaxIter; i++ {
		if f1 == 0 {
			st.Converged = true
			return x1, st, nil
		}
		if f1 == f0 {
			return x1, st, ErrStalled
		}
		st.Iterations++
		x2 := x1 - f1*(x1-x0)/(f1-f0)
		x0, f0 = x1, f1
		x1 = x2
		f1 = f(x1)
		st.FuncCalls++
		st.Error = math.Abs(x1 - x0)
		if math.IsNaN(f1) || math.IsInf(x1, 0) {
			return x1, st, ErrNonFinite
		}
		if math.Abs(f1) <= s.cfg.AbsTol || st.Error <= s.cfg.AbsTol+s.cfg.RelTol*math.Abs(x1) {
			st.Converged = true
			return x1, st, nil
		}
	}
	return x1, st, notConverged(s.Name(), st)
}
