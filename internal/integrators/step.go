package integrators

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"

	"github.com/san-kum/odesim/internal/dynamo"
)

// landingTol lets a fixed step absorb rounding in the remaining interval
// instead of leaving a sliver of a step at the end.
const landingTol = 1e-9

// stepFrom evaluates one tableau step of length h from (t, y0) into out. For
// embedded tableaus the local error estimate is left in the workspace.
func (in *Integrator) stepFrom(t, h float64, y0, out dynamo.State) error {
	ws := in.ws
	tab := in.tab
	n := len(y0)

	for s := 0; s < tab.Stages(); s++ {
		row := tab.A[s]
		for i := 0; i < n; i++ {
			sum := 0.0
			for j, a := range row {
				if a != 0 {
					sum += a * ws.k[j][i]
				}
			}
			ws.ymid[i] = y0[i] + h*sum
		}
		if err := in.sys.Evaluate(t+tab.C[s]*h, ws.ymid, ws.k[s]); err != nil {
			return fmt.Errorf("%w: %w", dynamo.ErrDerivative, err)
		}
		in.stats.Evaluations++
	}

	for i := 0; i < n; i++ {
		sum := 0.0
		for s, b := range tab.B {
			if b != 0 {
				sum += b * ws.k[s][i]
			}
		}
		out[i] = y0[i] + h*sum
	}

	if tab.Embedded() {
		for i := 0; i < n; i++ {
			sum := 0.0
			for s, e := range tab.E {
				if e != 0 {
					sum += e * ws.k[s][i]
				}
			}
			ws.errv[i] = h * sum
		}
	}

	if !out.IsValid() {
		return fmt.Errorf("step from t=%g with h=%g: %w", t, h, dynamo.ErrInvalidState)
	}
	return nil
}

// takeStep computes one accepted step into the workspace and returns its
// signed length. landed is true when the step ends exactly on target.
func (in *Integrator) takeStep(target float64, bounded bool) (float64, bool, error) {
	if !in.adaptive {
		h := in.dir * in.cfg.StepSize
		landed := false
		if bounded {
			if rem := target - in.t; math.Abs(rem) <= math.Abs(h)*(1+landingTol) {
				h = rem
				landed = true
			}
		}
		if err := in.stepFrom(in.t, h, in.y, in.ws.ynew); err != nil {
			return 0, false, err
		}
		return h, landed, nil
	}

	absh := in.h
	maxStep := in.maxStep()
	rejected := false
	for attempt := 0; attempt < in.cfg.MaxStepAttempts; attempt++ {
		absh = math.Min(absh, maxStep)
		h := in.dir * absh
		landed := false
		if bounded {
			if rem := target - in.t; 1.1*absh >= math.Abs(rem) && math.Abs(rem) <= maxStep {
				h = rem
				landed = true
			}
		}
		if !landed && absh < in.minStep() {
			return 0, false, fmt.Errorf("%w: |h|=%g at t=%g", dynamo.ErrStepTooSmall, absh, in.t)
		}

		if err := in.stepFrom(in.t, h, in.y, in.ws.ynew); err != nil {
			return 0, false, err
		}
		ratio := in.errorRatio(in.y, in.ws.ynew)
		if ratio <= 1 {
			factor := in.growth(ratio)
			if rejected {
				factor = math.Min(factor, 1)
			}
			next := math.Abs(h) * factor
			if landed {
				next = math.Max(next, absh)
			}
			in.h = math.Min(next, maxStep)
			return h, landed, nil
		}

		rejected = true
		in.stats.Rejected++
		in.logger.Debug("step rejected",
			"t", in.t,
			"h", h,
			"error_ratio", ratio)
		absh = math.Abs(h) * in.growth(ratio)
	}
	return 0, false, fmt.Errorf("%w: %d attempts at t=%g", dynamo.ErrTooManyRejections, in.cfg.MaxStepAttempts, in.t)
}

// errorRatio scales the local error by the componentwise tolerance. A step
// is acceptable when the ratio is at most one.
func (in *Integrator) errorRatio(y0, y1 dynamo.State) float64 {
	ws := in.ws
	for i := range y0 {
		tol := in.cfg.AbsTol + in.cfg.RelTol*math.Max(math.Abs(y0[i]), math.Abs(y1[i]))
		if tol == 0 {
			tol = math.SmallestNonzeroFloat64
		}
		ws.scaled[i] = math.Abs(ws.errv[i]) / tol
	}
	if in.cfg.Norm == NormRMS {
		return floats.Norm(ws.scaled, 2) / math.Sqrt(float64(len(ws.scaled)))
	}
	return floats.Max(ws.scaled)
}

// growth is the step scale factor for an error ratio, clamped to the
// configured bounds.
func (in *Integrator) growth(ratio float64) float64 {
	if ratio == 0 {
		return in.cfg.MaxScale
	}
	f := in.cfg.Safety * math.Pow(ratio, -in.tab.ErrorExponent())
	return math.Max(in.cfg.MinScale, math.Min(in.cfg.MaxScale, f))
}

func (in *Integrator) minStep() float64 {
	at := math.Abs(in.t)
	floor := 16 * (math.Nextafter(at, math.Inf(1)) - at)
	return math.Max(in.cfg.MinStepSize, floor)
}

func (in *Integrator) maxStep() float64 {
	switch {
	case in.cfg.MaxStepSize > 0:
		return in.cfg.MaxStepSize
	case in.span > 0:
		return in.span
	default:
		return math.Inf(1)
	}
}
