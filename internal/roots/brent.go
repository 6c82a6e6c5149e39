package roots

import (
	"math"
)

// Brentq is Brent's method with inverse quadratic extrapolation. It is the
// default solver for event localization.
type Brentq struct {
	cfg Config
}

func NewBrentq(cfg Config) *Brentq {
	return &Brentq{cfg: cfg.withDefaults()}
}

func (s *Brentq) Name() string { return "brentq" }

func (s *Brentq) Solve(f Func, a, b float64) (float64, Stats, error) {
	return brent(s.Name(), s.cfg, f, a, b, quadratic)
}

// Brenth is Brent's method with hyperbolic extrapolation.
type Brenth struct {
	cfg Config
}

func NewBrenth(cfg Config) *Brenth {
	return &Brenth{cfg: cfg.withDefaults()}
}

func (s *Brenth) Name() string { return "brenth" }

func (s *Brenth) Solve(f Func, a, b float64) (float64, Stats, error) {
	return brent(s.Name(), s.cfg, f, a, b, hyperbolic)
}

// extrapolator proposes a step from the current point given the previous
// point and the contrapoint of the bracket.
type extrapolator func(fcur, fpre, fblk, dpre, dblk float64) float64

func quadratic(fcur, fpre, fblk, dpre, dblk float64) float64 {
	return -fcur * (fblk*dblk - fpre*dpre) / (dblk * dpre * (fblk - fpre))
}

func hyperbolic(fcur, fpre, fblk, dpre, dblk float64) float64 {
	return -fcur * (fblk - fpre) / (fblk*dpre - fpre*dblk)
}

func brent(name string, cfg Config, f Func, a, b float64, extrapolate extrapolator) (float64, Stats, error) {
	var st Stats
	if err := cfg.Validate(); err != nil {
		return math.NaN(), st, err
	}

	fpre, fcur, root, done, err := bracket(f, a, b, &st)
	if err != nil || done {
		return root, st, err
	}

	xpre, xcur := a, b
	var xblk, fblk, spre, scur float64
	for i := 0; i < cfg.MaxIter; i++ {
		st.Iterations++
		if fpre != 0 && fcur != 0 && math.Signbit(fpre) != math.Signbit(fcur) {
			xblk, fblk = xpre, fpre
			spre = xcur - xpre
			scur = spre
		}
		if math.Abs(fblk) < math.Abs(fcur) {
			xpre, xcur, xblk = xcur, xblk, xcur
			fpre, fcur, fblk = fcur, fblk, fcur
		}

		delta := (cfg.AbsTol + cfg.RelTol*math.Abs(xcur)) / 2
		sbis := (xblk - xcur) / 2
		st.Error = math.Abs(xblk - xcur)
		if fcur == 0 || math.Abs(sbis) < delta {
			st.Converged = true
			return xcur, st, nil
		}

		if math.Abs(spre) > delta && math.Abs(fcur) < math.Abs(fpre) {
			var stry float64
			if xpre == xblk {
				// secant
				stry = -fcur * (xcur - xpre) / (fcur - fpre)
			} else {
				dpre := (fpre - fcur) / (xpre - xcur)
				dblk := (fblk - fcur) / (xblk - xcur)
				stry = extrapolate(fcur, fpre, fblk, dpre, dblk)
			}
			if 2*math.Abs(stry) < math.Min(math.Abs(spre), 3*math.Abs(sbis)-delta) {
				spre, scur = scur, stry
			} else {
				spre, scur = sbis, sbis
			}
		} else {
			spre, scur = sbis, sbis
		}

		xpre, fpre = xcur, fcur
		if math.Abs(scur) > delta {
			xcur += scur
		} else if sbis > 0 {
			xcur += delta
		} else {
			xcur -= delta
		}

		fcur = f(xcur)
		st.FuncCalls++
		if math.IsNaN(fcur) {
			return xcur, st, ErrNonFinite
		}
	}
	return xcur, st, notConverged(name, st)
}
