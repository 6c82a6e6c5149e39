package roots

import (
	"math"
)

// Bisection halves the bracket every iteration. Slow but it cannot fail on a
// valid bracket.
type Bisection struct {
	cfg Config
}

func NewBisection(cfg Config) *Bisection {
	return &Bisection{cfg: cfg.withDefaults()}
}

func (s *Bisection) Name() string { return "bisection" }

func (s *Bisection) Solve(f Func, a, b float64) (float64, Stats, error) {
	var st Stats
	if err := s.cfg.Validate(); err != nil {
		return math.NaN(), st, err
	}

	fa, _, root, done, err := bracket(f, a, b, &st)
	if err != nil || done {
		return root, st, err
	}

	dm := b - a
	xm := a
	for i := 0; i < s.cfg.MaxIter; i++ {
		st.Iterations++
		dm *= 0.5
		xm = a + dm
		fm := f(xm)
		st.FuncCalls++
		st.Error = math.Abs(dm)
		if math.IsNaN(fm) {
			return xm, st, ErrNonFinite
		}
		if fm*fa >= 0 {
			a, fa = xm, fm
		}
		if fm == 0 || math.Abs(fm) <= s.cfg.AbsTol || math.Abs(dm) < s.cfg.AbsTol+s.cfg.RelTol*math.Abs(xm) {
			st.Converged = true
			return xm, st, nil
		}
	}
	return xm, st, notConverged(s.Name(), st)
}
