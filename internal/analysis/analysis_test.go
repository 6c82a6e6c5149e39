package analysis

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/san-kum/odesim/internal/dynamo"
	"github.com/san-kum/odesim/internal/events"
	"github.com/san-kum/odesim/internal/integrators"
	"github.com/san-kum/odesim/internal/models"
)

func newIntegrator(t *testing.T, name string, opts ...integrators.Option) *integrators.Integrator {
	t.Helper()
	tab, err := integrators.Lookup(name)
	if err != nil {
		t.Fatal(err)
	}
	return integrators.New(tab, opts...)
}

func TestPowerSpectrumUnevenSamples(t *testing.T) {
	const n = 400
	times := make([]float64, n)
	values := make([]float64, n)
	for i := range times {
		// Denser samples early on, as an adaptive run would produce.
		times[i] = 20 * math.Pow(float64(i)/(n-1), 1.3)
		values[i] = math.Sin(2 * math.Pi * 0.5 * times[i])
	}

	s, err := PowerSpectrum(times, values, 512)
	if err != nil {
		t.Fatal(err)
	}
	if math.Abs(s.Dominant-0.5) > 0.05 {
		t.Errorf("expected dominant frequency 0.5, got %v", s.Dominant)
	}
	if math.Abs(s.Period()-2) > 0.2 {
		t.Errorf("expected period 2, got %v", s.Period())
	}
	if len(s.Freqs) != 257 || len(s.Power) != 257 {
		t.Errorf("expected 257 bins, got %d", len(s.Freqs))
	}
}

func TestPowerSpectrumRemovesMean(t *testing.T) {
	times := make([]float64, 256)
	values := make([]float64, 256)
	for i := range times {
		times[i] = float64(i) * 0.1
		values[i] = 3 + math.Cos(2*math.Pi*0.25*times[i])
	}

	s, err := PowerSpectrum(times, values, 0)
	if err != nil {
		t.Fatal(err)
	}
	if s.Power[0] > 1e-9 {
		t.Errorf("constant term should be removed, got power %v", s.Power[0])
	}
	if math.Abs(s.Dominant-0.25) > 0.05 {
		t.Errorf("expected dominant frequency 0.25, got %v", s.Dominant)
	}
}

func TestPowerSpectrumErrors(t *testing.T) {
	if _, err := PowerSpectrum([]float64{0, 1}, []float64{0}, 0); !errors.Is(err, dynamo.ErrPrecondition) {
		t.Errorf("expected precondition error for length mismatch, got %v", err)
	}
	if _, err := PowerSpectrum([]float64{0, 1, 1, 1}, []float64{0, 1, 2, 3}, 0); !errors.Is(err, dynamo.ErrPrecondition) {
		t.Errorf("expected precondition error for too few distinct samples, got %v", err)
	}
	flat, err := PowerSpectrum([]float64{0, 1, 2, 3, 4}, []float64{1, 1, 1, 1, 1}, 8)
	if err != nil {
		t.Fatal(err)
	}
	if !math.IsInf(flat.Period(), 1) {
		t.Errorf("constant signal should have no period, got %v", flat.Period())
	}
}

func TestLargestLyapunov(t *testing.T) {
	fixed := []integrators.Option{integrators.WithFixedStep(), integrators.WithStepSize(0.01)}

	tests := []struct {
		name     string
		sys      dynamo.System
		x0       dynamo.State
		cfg      LyapunovConfig
		min, max float64
	}{
		{"decay contracts at its rate", models.NewDecay(), dynamo.State{1}, LyapunovConfig{T1: 10, Interval: 1, Separation: 1e-6}, -1.0001, -0.9999},
		{"oscillator is neutral", models.NewOscillator(), dynamo.State{1, 0}, LyapunovConfig{T1: 20, Interval: 0.5, Separation: 1e-6}, -1e-3, 1e-3},
		{"lorenz is chaotic", models.NewLorenz(), dynamo.State{1, 1, 1}, LyapunovConfig{T1: 100, Interval: 1, Separation: 1e-8}, 0.5, 1.3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ref := newIntegrator(t, "rk4", fixed...)
			pert := newIntegrator(t, "rk4", fixed...)
			got, err := LargestLyapunov(tt.sys, ref, pert, tt.x0, tt.cfg)
			if err != nil {
				t.Fatal(err)
			}
			if got < tt.min || got > tt.max {
				t.Errorf("exponent %v outside [%v, %v]", got, tt.min, tt.max)
			}
		})
	}
}

func TestLargestLyapunovErrors(t *testing.T) {
	in := newIntegrator(t, "rk45")
	sys := models.NewDecay()

	if _, err := LargestLyapunov(sys, in, in, dynamo.State{1}, DefaultLyapunovConfig()); !errors.Is(err, dynamo.ErrPrecondition) {
		t.Errorf("expected precondition error for shared integrator, got %v", err)
	}

	bad := DefaultLyapunovConfig()
	bad.Interval = 0
	if _, err := LargestLyapunov(sys, in, newIntegrator(t, "rk45"), dynamo.State{1}, bad); !errors.Is(err, dynamo.ErrConfiguration) {
		t.Errorf("expected configuration error, got %v", err)
	}
}

func maxima(name string) *events.Detector {
	d := events.New(name, func(t float64, y dynamo.State) float64 { return y[1] }, 0, events.Decreasing)
	d.Action = events.Continue
	d.RepeatCount = 0
	return d
}

func TestBifurcation(t *testing.T) {
	osc := models.NewOscillator()
	in := newIntegrator(t, "rk45")
	section := maxima("max")

	points, err := Bifurcation(context.Background(), osc, in, section, dynamo.State{1, 0}, SweepConfig{
		Param:      "damping",
		Values:     []float64{0, 0.5},
		T1:         20,
		Component:  0,
		Resolution: 1e-3,
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(points) != 2 {
		t.Fatalf("expected 2 points, got %d", len(points))
	}

	undamped := points[0]
	if len(undamped.Values) != 1 || math.Abs(undamped.Values[0]-1) > 1e-4 {
		t.Errorf("undamped maxima should all be 1, got %v", undamped.Values)
	}
	if len(points[1].Values) < 2 {
		t.Errorf("damped maxima should decay, got %v", points[1].Values)
	}
	for _, v := range points[1].Values {
		if v >= 1 {
			t.Errorf("damped maximum %v should be below the initial amplitude", v)
		}
	}

	if osc.Damping != 0 {
		t.Errorf("sweep should restore damping, got %v", osc.Damping)
	}
	if in.RemoveEventDetector(1) {
		t.Error("section detector should be removed after the sweep")
	}
}

func TestBifurcationTransient(t *testing.T) {
	in := newIntegrator(t, "rk45")
	points, err := Bifurcation(context.Background(), models.NewOscillator(), in, maxima("max"), dynamo.State{1, 0}, SweepConfig{
		Param:     "damping",
		Values:    []float64{0.5},
		T1:        20,
		Transient: 10,
	})
	if err != nil {
		t.Fatal(err)
	}
	// Maxima near 6.5, 13 and 19.5; only the last two are past the transient.
	if got := len(points[0].Values); got != 2 {
		t.Errorf("expected 2 maxima after the transient, got %d", got)
	}
}

func TestBifurcationErrors(t *testing.T) {
	in := newIntegrator(t, "rk45")
	cfg := SweepConfig{Param: "damping", Values: []float64{0}, T1: 10}

	stopping := events.New("stop", func(t float64, y dynamo.State) float64 { return y[1] }, 0, events.Both)
	if _, err := Bifurcation(context.Background(), models.NewOscillator(), in, stopping, dynamo.State{1, 0}, cfg); !errors.Is(err, dynamo.ErrConfiguration) {
		t.Errorf("expected configuration error for a stopping section, got %v", err)
	}

	plain := dynamo.SystemFunc{Dim: 2, Fn: func(t float64, y, dy dynamo.State) error { return nil }}
	if _, err := Bifurcation(context.Background(), plain, in, maxima("max"), dynamo.State{1, 0}, cfg); !errors.Is(err, dynamo.ErrConfiguration) {
		t.Errorf("expected configuration error for a fixed system, got %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := Bifurcation(ctx, models.NewOscillator(), in, maxima("max"), dynamo.State{1, 0}, cfg); !errors.Is(err, dynamo.ErrContextCanceled) {
		t.Errorf("expected cancellation, got %v", err)
	}
}

func TestLinspace(t *testing.T) {
	got := Linspace(0, 1, 5)
	want := []float64{0, 0.25, 0.5, 0.75, 1}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Linspace[%d] = %v, want %v", i, got[i], want[i])
		}
	}
	if len(Linspace(2, 3, 1)) != 1 {
		t.Error("single point sweep should return lo")
	}
}
