package integrators

import (
	"errors"
	"math"
	"testing"

	"github.com/san-kum/odesim/internal/dynamo"
)

func decay(k float64) dynamo.System {
	return dynamo.SystemFunc{Dim: 1, Fn: func(t float64, y, dy dynamo.State) error {
		dy[0] = -k * y[0]
		return nil
	}}
}

// y' = y cos t, y(0) = 1, exact solution exp(sin t).
var growth = dynamo.SystemFunc{Dim: 1, Fn: func(t float64, y, dy dynamo.State) error {
	dy[0] = y[0] * math.Cos(t)
	return nil
}}

var oscillator = dynamo.SystemFunc{Dim: 2, Fn: func(t float64, y, dy dynamo.State) error {
	dy[0] = y[1]
	dy[1] = -y[0]
	return nil
}}

func TestTableaus_Validate(t *testing.T) {
	for _, name := range []string{"euler", "rk4", "rk8", "rkv8", "rk45", "rkf45", "rkck", "rkf56", "rkf78"} {
		tab, err := Lookup(name)
		if err != nil {
			t.Fatalf("Lookup(%q): %v", name, err)
		}
		if err := tab.Validate(); err != nil {
			t.Errorf("%s: %v", name, err)
		}
		if tab.Name != name {
			t.Errorf("expected name %q, got %q", name, tab.Name)
		}
	}
	if _, err := Lookup("midpoint"); dynamo.KindOf(err) != dynamo.KindConfiguration {
		t.Errorf("expected configuration error, got %v", err)
	}
}

func TestTableau_ValidateRejectsBadCoefficients(t *testing.T) {
	bad := &Tableau{
		Name:  "bad",
		Order: 2,
		C:     []float64{0, 0.5},
		A:     [][]float64{{}, {0.4}},
		B:     []float64{0, 1},
	}
	if err := bad.Validate(); !errors.Is(err, dynamo.ErrConfiguration) {
		t.Errorf("expected configuration error for inconsistent row, got %v", err)
	}

	implicit := &Tableau{
		Name:  "implicit",
		Order: 1,
		C:     []float64{1},
		A:     [][]float64{{1}},
		B:     []float64{1},
	}
	if err := implicit.Validate(); !errors.Is(err, dynamo.ErrConfiguration) {
		t.Errorf("expected configuration error for implicit row, got %v", err)
	}
}

func TestRK4_DecayScenario(t *testing.T) {
	integ := NewRK4(WithStepSize(0.1))
	res, err := integ.Integrate(decay(1), 0, dynamo.State{1}, 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Reason != StopReached {
		t.Errorf("expected reached, got %v", res.Reason)
	}
	if res.Time != 1 {
		t.Errorf("expected final time exactly 1, got %v", res.Time)
	}
	if math.Abs(res.State[0]-math.Exp(-1)) > 1e-4 {
		t.Errorf("expected %.6f, got %.6f", math.Exp(-1), res.State[0])
	}
	if res.Stats.Accepted != 10 {
		t.Errorf("expected 10 steps, got %d", res.Stats.Accepted)
	}
	if res.Stats.Evaluations != 40 {
		t.Errorf("expected 40 derivative evaluations, got %d", res.Stats.Evaluations)
	}
}

func TestFixedStep_ConvergenceOrder(t *testing.T) {
	tests := []struct {
		name  string
		steps int
	}{
		{"euler", 16},
		{"rk4", 8},
		{"rk8", 8},
		{"rkv8", 4},
		{"rk45", 16},
		{"rkf45", 16},
		{"rkck", 16},
		{"rkf56", 8},
	}

	exact := math.Exp(math.Sin(2))
	globalError := func(tab *Tableau, n int) float64 {
		integ := New(tab, WithFixedStep(), WithStepSize(2/float64(n)))
		res, err := integ.Integrate(growth, 0, dynamo.State{1}, 2)
		if err != nil {
			t.Fatalf("%s: %v", tab.Name, err)
		}
		if res.Stats.Accepted != n {
			t.Fatalf("%s: expected %d steps, got %d", tab.Name, n, res.Stats.Accepted)
		}
		return math.Abs(res.State[0] - exact)
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tab, _ := Lookup(tt.name)
			coarse := globalError(tab, tt.steps)
			fine := globalError(tab, 2*tt.steps)
			ratio := coarse / fine
			expected := math.Pow(2, float64(tab.Order))
			if ratio < 0.6*expected {
				t.Errorf("order %d: halving h reduced error by %.1f, expected about %.0f", tab.Order, ratio, expected)
			}
		})
	}
}

func TestRKF78_FixedStepAccuracy(t *testing.T) {
	integ := NewRKF78(WithFixedStep(), WithStepSize(0.25))
	res, err := integ.Integrate(growth, 0, dynamo.State{1}, 2)
	if err != nil {
		t.Fatal(err)
	}
	if diff := math.Abs(res.State[0] - math.Exp(math.Sin(2))); diff > 1e-10 {
		t.Errorf("error too large: %v", diff)
	}
}

func TestAdaptive_MeetsTolerance(t *testing.T) {
	for _, name := range []string{"rk45", "rkf45", "rkck", "rkf56", "rkf78"} {
		t.Run(name, func(t *testing.T) {
			tab, _ := Lookup(name)
			const tol = 1e-8
			integ := New(tab, WithTolerances(tol, tol), WithStepSize(0.01))
			if !integ.Adaptive() {
				t.Fatal("expected adaptive integrator")
			}
			c := &Collector{}
			integ.AddStateObserver(c)

			res, err := integ.Integrate(decay(1), 0, dynamo.State{1}, 5)
			if err != nil {
				t.Fatal(err)
			}
			if res.Reason != StopReached || res.Time != 5 {
				t.Fatalf("expected to reach t=5, got %v at %v", res.Reason, res.Time)
			}
			for i := 1; i < c.Len(); i++ {
				h := c.Times[i] - c.Times[i-1]
				local := c.States[i-1][0] * math.Exp(-h)
				if diff := math.Abs(c.States[i][0] - local); diff > 2*(tol+tol*math.Abs(local)) {
					t.Fatalf("step %d: local error %v exceeds tolerance", i, diff)
				}
			}
			if math.Abs(res.State[0]-math.Exp(-5)) > 1e-6 {
				t.Errorf("expected %v, got %v", math.Exp(-5), res.State[0])
			}
		})
	}
}

func TestAdaptive_ShrinksAfterRejection(t *testing.T) {
	integ := NewRKF45(WithTolerances(1e-12, 1e-12), WithStepSize(1))
	c := &Collector{}
	integ.AddStateObserver(c)

	if err := integ.Initialize(decay(1), 0, dynamo.State{1}); err != nil {
		t.Fatal(err)
	}
	if _, err := integ.SingleStep(); err != nil {
		t.Fatal(err)
	}
	stats := integ.Stats()
	if stats.Rejected == 0 {
		t.Fatal("expected the oversized first step to be rejected")
	}
	if tm := integ.Time(); tm >= 1 || tm <= 0 {
		t.Errorf("expected an accepted step shorter than 1, got %v", tm)
	}
	if integ.NextStepSize() > integ.Time() {
		t.Errorf("step grew after a rejection: next %v, taken %v", integ.NextStepSize(), integ.Time())
	}
}

func TestAdaptive_GrowthIsBounded(t *testing.T) {
	const h0 = 1e-6
	integ := NewRKF45(WithTolerances(1e-8, 1e-8), WithStepSize(h0))
	if err := integ.Initialize(decay(1), 0, dynamo.State{1}); err != nil {
		t.Fatal(err)
	}

	prev := h0
	for i := 0; i < 4; i++ {
		if _, err := integ.SingleStep(); err != nil {
			t.Fatal(err)
		}
		next := integ.NextStepSize()
		if next <= prev {
			t.Fatalf("step %d: expected growth on an easy problem, %v -> %v", i, prev, next)
		}
		if next > DefaultMaxScale*prev*(1+1e-12) {
			t.Fatalf("step %d: growth %v exceeds max scale", i, next/prev)
		}
		prev = next
	}
	if integ.Stats().Rejected != 0 {
		t.Errorf("expected no rejections, got %d", integ.Stats().Rejected)
	}
}

func TestAdaptive_StepTooSmall(t *testing.T) {
	// y = 1/(1-t) blows up at t = 1
	blowup := dynamo.SystemFunc{Dim: 1, Fn: func(t float64, y, dy dynamo.State) error {
		dy[0] = y[0] * y[0]
		return nil
	}}
	integ := NewRKF45(WithTolerances(1e-8, 1e-8), WithStepBounds(1e-6, 0))
	res, err := integ.Integrate(blowup, 0, dynamo.State{1}, 2)
	if !errors.Is(err, dynamo.ErrStepTooSmall) {
		t.Fatalf("expected ErrStepTooSmall, got %v", err)
	}
	if dynamo.KindOf(err) != dynamo.KindNumerical {
		t.Errorf("expected numerical failure, got %v", dynamo.KindOf(err))
	}
	var simErr *dynamo.SimulationError
	if !errors.As(err, &simErr) {
		t.Fatal("expected SimulationError with the last valid point")
	}
	if res.Reason != StopFailed {
		t.Errorf("expected failed, got %v", res.Reason)
	}
	if res.Time >= 1 || !res.State.IsValid() {
		t.Errorf("expected last valid point before the singularity, got t=%v y=%v", res.Time, res.State)
	}
	if simErr.Time != res.Time {
		t.Errorf("error time %v does not match result time %v", simErr.Time, res.Time)
	}
}

func TestDerivativeFailure(t *testing.T) {
	boom := errors.New("force model unavailable")
	sys := dynamo.SystemFunc{Dim: 1, Fn: func(t float64, y, dy dynamo.State) error {
		if t > 0.5 {
			return boom
		}
		dy[0] = 1
		return nil
	}}

	res, err := NewRK4(WithStepSize(0.1)).Integrate(sys, 0, dynamo.State{0}, 1)
	if !errors.Is(err, boom) || !errors.Is(err, dynamo.ErrDerivative) {
		t.Fatalf("expected wrapped derivative error, got %v", err)
	}
	if res.Reason != StopFailed {
		t.Errorf("expected failed, got %v", res.Reason)
	}
	if res.Time > 0.5 {
		t.Errorf("expected to stop before t=0.5, got %v", res.Time)
	}
}

func TestNonFiniteDerivative(t *testing.T) {
	sys := dynamo.SystemFunc{Dim: 1, Fn: func(t float64, y, dy dynamo.State) error {
		dy[0] = math.NaN()
		return nil
	}}
	_, err := NewEuler().Integrate(sys, 0, dynamo.State{0}, 1)
	if !errors.Is(err, dynamo.ErrInvalidState) {
		t.Fatalf("expected ErrInvalidState, got %v", err)
	}
}

func TestInitialize_DimensionMismatch(t *testing.T) {
	integ := NewRK4()
	err := integ.Initialize(oscillator, 0, dynamo.State{1})
	if !errors.Is(err, dynamo.ErrDimensionMismatch) {
		t.Fatalf("expected ErrDimensionMismatch, got %v", err)
	}
	if dynamo.KindOf(err) != dynamo.KindConfiguration {
		t.Errorf("expected configuration kind, got %v", dynamo.KindOf(err))
	}
	if _, err := integ.SingleStep(); !errors.Is(err, dynamo.ErrNotInitialized) {
		t.Errorf("expected ErrNotInitialized, got %v", err)
	}
}

func TestInitialize_InvalidConfig(t *testing.T) {
	tests := []struct {
		name string
		opt  Option
	}{
		{"zero step", WithStepSize(0)},
		{"zero tolerances", WithTolerances(0, 0)},
		{"inverted bounds", WithStepBounds(1, 0.1)},
		{"bad safety", WithStepControl(1.5, 0.2, 10)},
		{"no attempts", WithMaxStepAttempts(0)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := NewRKF45(tt.opt).Initialize(decay(1), 0, dynamo.State{1})
			if dynamo.KindOf(err) != dynamo.KindConfiguration {
				t.Errorf("expected configuration error, got %v", err)
			}
		})
	}
}

func TestWorkspace_ReboundOnDimensionChange(t *testing.T) {
	integ := NewRK4()
	if err := integ.Initialize(decay(1), 0, dynamo.State{1}); err != nil {
		t.Fatal(err)
	}
	ws := integ.ws
	if ws.Dimension() != 1 || ws.Stages() != 4 {
		t.Fatalf("unexpected workspace %d x %d", ws.Stages(), ws.Dimension())
	}
	k0 := &ws.k[0][0]

	if err := integ.Initialize(decay(2), 0, dynamo.State{3}); err != nil {
		t.Fatal(err)
	}
	if &integ.ws.k[0][0] != k0 {
		t.Error("expected buffers to be reused for the same dimension")
	}

	if err := integ.Initialize(oscillator, 0, dynamo.State{1, 0}); err != nil {
		t.Fatal(err)
	}
	if integ.ws.Dimension() != 2 {
		t.Errorf("expected workspace rebound to dimension 2, got %d", integ.ws.Dimension())
	}
}

func TestMaxSteps(t *testing.T) {
	integ := NewRK4(WithStepSize(0.1), WithMaxSteps(5))
	res, err := integ.Integrate(decay(1), 0, dynamo.State{1}, 1)
	if err != nil {
		t.Fatalf("step cap is not an error, got %v", err)
	}
	if res.Reason != StopMaxSteps {
		t.Errorf("expected max_steps, got %v", res.Reason)
	}
	if res.Stats.Accepted != 5 || math.Abs(res.Time-0.5) > 1e-12 {
		t.Errorf("expected 5 steps to t=0.5, got %d to %v", res.Stats.Accepted, res.Time)
	}
}

func TestRoundTrip(t *testing.T) {
	tests := []struct {
		name  string
		integ *Integrator
		tol   float64
	}{
		{"rk4", NewRK4(WithStepSize(0.01)), 1e-8},
		{"rkf78", NewRKF78(WithTolerances(1e-12, 1e-12)), 1e-9},
		{"rk45", NewRK45(WithTolerances(1e-11, 1e-11)), 1e-8},
	}

	y0 := dynamo.State{1, 0}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fwd, err := tt.integ.Integrate(oscillator, 0, y0, 3)
			if err != nil {
				t.Fatal(err)
			}
			back, err := tt.integ.Integrate(oscillator, fwd.Time, fwd.State, 0)
			if err != nil {
				t.Fatal(err)
			}
			if back.Time != 0 {
				t.Errorf("expected to return to t=0, got %v", back.Time)
			}
			for i := range y0 {
				if math.Abs(back.State[i]-y0[i]) > tt.tol {
					t.Errorf("component %d: expected %v, got %v", i, y0[i], back.State[i])
				}
			}
		})
	}
}

func TestBackwardIntegration(t *testing.T) {
	res, err := NewRKF45().Integrate(decay(1), 1, dynamo.State{math.Exp(-1)}, 0)
	if err != nil {
		t.Fatal(err)
	}
	if math.Abs(res.State[0]-1) > 1e-8 {
		t.Errorf("expected 1, got %v", res.State[0])
	}
}

func TestStats_StepBookkeeping(t *testing.T) {
	integ := NewRK45(WithTolerances(1e-9, 1e-9))
	res, err := integ.Integrate(oscillator, 0, dynamo.State{1, 0}, 10)
	if err != nil {
		t.Fatal(err)
	}
	s := res.Stats
	if s.Accepted == 0 || s.SmallestStep <= 0 || s.LargestStep < s.SmallestStep {
		t.Errorf("inconsistent stats: %+v", s)
	}
	if s.Evaluations < s.Accepted*RK45.Stages() {
		t.Errorf("expected at least %d evaluations, got %d", s.Accepted*RK45.Stages(), s.Evaluations)
	}
	if integ.Stats() != s {
		t.Error("Stats() does not match the result")
	}
}

func TestMaxStep_LandingStep(t *testing.T) {
	constant := dynamo.SystemFunc{Dim: 1, Fn: func(t float64, y, dy dynamo.State) error {
		dy[0] = 1
		return nil
	}}
	const maxStep = 0.1
	integ := NewRK45(WithStepSize(maxStep), WithStepBounds(0, maxStep))
	c := &Collector{}
	integ.AddStateObserver(c)

	// 0.105 is within the 10% merge margin of one maximum step.
	res, err := integ.Integrate(constant, 0, dynamo.State{0}, 0.105)
	if err != nil {
		t.Fatal(err)
	}
	if res.Reason != StopReached || res.Time != 0.105 {
		t.Fatalf("expected to reach t=0.105, got %v at %v", res.Reason, res.Time)
	}
	for i := 1; i < c.Len(); i++ {
		if h := c.Times[i] - c.Times[i-1]; h > maxStep*(1+1e-12) {
			t.Errorf("step %d: expected at most %v, got %v", i, maxStep, h)
		}
	}
	if res.Stats.Accepted != 2 {
		t.Errorf("expected 2 steps, got %d", res.Stats.Accepted)
	}
	if res.Stats.LargestStep > maxStep*(1+1e-12) {
		t.Errorf("expected largest step at most %v, got %v", maxStep, res.Stats.LargestStep)
	}
}

func TestErrorNorm_RMS(t *testing.T) {
	integ := NewRKCK(WithErrorNorm(NormRMS), WithTolerances(1e-9, 1e-9))
	res, err := integ.Integrate(oscillator, 0, dynamo.State{1, 0}, math.Pi)
	if err != nil {
		t.Fatal(err)
	}
	if math.Abs(res.State[0]+1) > 1e-7 {
		t.Errorf("expected cos(pi) = -1, got %v", res.State[0])
	}
}

func TestObserverReceivesCopies(t *testing.T) {
	integ := NewRK4(WithStepSize(0.25))
	integ.AddStateObserver(ObserverFunc(func(t float64, y dynamo.State) {
		y[0] = 1e9
	}))
	res, err := integ.Integrate(decay(1), 0, dynamo.State{1}, 1)
	if err != nil {
		t.Fatal(err)
	}
	if math.Abs(res.State[0]-math.Exp(-1)) > 1e-3 {
		t.Errorf("observer mutation leaked into the integrator: %v", res.State[0])
	}
}
