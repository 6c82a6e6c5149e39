package analysis

import (
	"fmt"
	"math"
	"math/cmplx"

	"gonum.org/v1/gonum/dsp/fourier"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/interp"

	"github.com/san-kum/odesim/internal/dynamo"
)

// Spectrum is the one-sided power spectrum of a signal resampled on a
// uniform grid. Frequencies are in cycles per unit of model time.
type Spectrum struct {
	Freqs []float64
	Power []float64
	// Dominant is the frequency of the strongest non-constant component.
	Dominant float64
	// Step is the spacing of the uniform grid.
	Step float64
}

// Period is the reciprocal of the dominant frequency, or +Inf if the
// signal has no oscillating component.
func (s *Spectrum) Period() float64 {
	if s.Dominant == 0 {
		return math.Inf(1)
	}
	return 1 / s.Dominant
}

// PowerSpectrum resamples values, taken at the possibly uneven times of an
// adaptive run, onto n evenly spaced points and transforms them. n <= 0
// picks the next power of two above the sample count. The mean is removed
// first so the constant term does not dominate.
func PowerSpectrum(times, values []float64, n int) (*Spectrum, error) {
	if len(times) != len(values) {
		return nil, fmt.Errorf("%w: %d times for %d values", dynamo.ErrPrecondition, len(times), len(values))
	}

	// interp needs strictly increasing abscissae.
	ts := make([]float64, 0, len(times))
	vs := make([]float64, 0, len(values))
	for i, t := range times {
		if len(ts) > 0 && t <= ts[len(ts)-1] {
			continue
		}
		ts = append(ts, t)
		vs = append(vs, values[i])
	}
	if len(ts) < 4 {
		return nil, fmt.Errorf("%w: need at least 4 distinct samples, got %d", dynamo.ErrPrecondition, len(ts))
	}

	if n <= 0 {
		n = 1
		for n < len(ts) {
			n *= 2
		}
	}

	var pl interp.PiecewiseLinear
	if err := pl.Fit(ts, vs); err != nil {
		return nil, fmt.Errorf("%w: %w", dynamo.ErrPrecondition, err)
	}
	t0, t1 := ts[0], ts[len(ts)-1]
	step := (t1 - t0) / float64(n-1)
	grid := make([]float64, n)
	for i := range grid {
		grid[i] = pl.Predict(t0 + float64(i)*step)
	}
	floats.AddConst(-floats.Sum(grid)/float64(n), grid)

	fft := fourier.NewFFT(n)
	coeffs := fft.Coefficients(nil, grid)

	s := &Spectrum{
		Freqs: make([]float64, len(coeffs)),
		Power: make([]float64, len(coeffs)),
		Step:  step,
	}
	for k, c := range coeffs {
		s.Freqs[k] = fft.Freq(k) / step
		a := cmplx.Abs(c)
		s.Power[k] = a * a / float64(n)
	}
	if len(s.Power) > 1 {
		k := floats.MaxIdx(s.Power[1:]) + 1
		if s.Power[k] > 0 {
			s.Dominant = s.Freqs[k]
		}
	}
	return s, nil
}
