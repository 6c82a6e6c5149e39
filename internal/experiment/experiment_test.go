package experiment

import (
	"context"
	"errors"
	"log/slog"
	"math"
	"testing"

	"github.com/san-kum/odesim/internal/config"
	"github.com/san-kum/odesim/internal/dynamo"
	"github.com/san-kum/odesim/internal/integrators"
	"github.com/san-kum/odesim/internal/models"
)

var quiet = slog.New(slog.DiscardHandler)

func TestRegistryLists(t *testing.T) {
	r := NewRegistry()

	if got := len(r.ListModels()); got != 10 {
		t.Errorf("expected 10 models, got %d: %v", got, r.ListModels())
	}
	if got := len(r.ListIntegrators()); got != 9 {
		t.Errorf("expected 9 integrators, got %d: %v", got, r.ListIntegrators())
	}
	if got := len(r.ListSolvers()); got != 5 {
		t.Errorf("expected 5 root solvers, got %d", got)
	}

	for _, name := range r.ListModels() {
		m, err := r.Model(name, nil)
		if err != nil {
			t.Errorf("%s: %v", name, err)
			continue
		}
		if len(m.DefaultState()) != m.Dimension() {
			t.Errorf("%s: default state does not match dimension", name)
		}
	}
}

func TestRegistryUnknown(t *testing.T) {
	r := NewRegistry()
	if _, err := r.Model("cartpole", nil); !errors.Is(err, dynamo.ErrConfiguration) {
		t.Errorf("expected configuration error for unknown model, got %v", err)
	}
	if _, err := r.Integrator("leapfrog"); !errors.Is(err, dynamo.ErrConfiguration) {
		t.Errorf("expected configuration error for unknown integrator, got %v", err)
	}
	if _, err := r.Solver("newton", config.DefaultConfig().Root); !errors.Is(err, dynamo.ErrConfiguration) {
		t.Errorf("expected configuration error for unknown solver, got %v", err)
	}
}

func TestDefaultMetrics(t *testing.T) {
	r := NewRegistry()
	if got := len(r.DefaultMetrics(models.NewOscillator())); got != 4 {
		t.Errorf("expected 4 metrics for a conservative system, got %d", got)
	}
	if got := len(r.DefaultMetrics(models.NewLorenz())); got != 2 {
		t.Errorf("expected 2 metrics for lorenz, got %d", got)
	}
}

func TestNewErrors(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*config.Config)
		want   error
	}{
		{"unknown model", func(c *config.Config) { c.Model = "drone" }, dynamo.ErrConfiguration},
		{"unknown integrator", func(c *config.Config) { c.Integrator = "verlet" }, dynamo.ErrConfiguration},
		{"unknown solver", func(c *config.Config) { c.RootSolver = "halley" }, dynamo.ErrConfiguration},
		{"bad parameter", func(c *config.Config) { c.Params = map[string]float64{"mass": -1} }, dynamo.ErrParameterBounds},
		{"short state", func(c *config.Config) { c.InitState = []float64{1} }, dynamo.ErrDimensionMismatch},
		{"component out of range", func(c *config.Config) {
			c.Events = []config.EventConfig{{Component: 2}}
		}, dynamo.ErrDimensionMismatch},
		{"unknown quantity", func(c *config.Config) {
			c.Events = []config.EventConfig{{Quantity: "radius"}}
		}, dynamo.ErrConfiguration},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.DefaultConfig()
			tt.modify(cfg)
			if _, err := New(cfg, NewRegistry(), quiet); !errors.Is(err, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, err)
			}
		})
	}
}

func TestPresetsRun(t *testing.T) {
	reg := NewRegistry()
	for model, presets := range config.Presets {
		for name := range presets {
			t.Run(model+"/"+name, func(t *testing.T) {
				cfg := config.GetPreset(model, name)
				cfg.T1 = cfg.T0 + 1
				exp, err := New(cfg, reg, quiet)
				if err != nil {
					t.Fatalf("setup: %v", err)
				}
				res, err := exp.Run(context.Background())
				if err != nil {
					t.Fatalf("run: %v", err)
				}
				if res.Reason != integrators.StopReached && res.Reason != integrators.StopEvent {
					t.Errorf("unexpected stop reason %v", res.Reason)
				}
			})
		}
	}
}

func TestHalfLifePreset(t *testing.T) {
	exp, err := New(config.GetPreset("decay", "half_life"), NewRegistry(), quiet)
	if err != nil {
		t.Fatal(err)
	}
	res, err := exp.Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if res.Reason != integrators.StopEvent {
		t.Fatalf("expected event stop, got %v", res.Reason)
	}
	if math.Abs(res.Events[0].Time-math.Ln2) > 1e-8 {
		t.Errorf("expected half life ln 2, got %v", res.Events[0].Time)
	}
	if res.Events[0].Detector != "half" {
		t.Errorf("expected detector name half, got %s", res.Events[0].Detector)
	}
}

func TestReentryPreset(t *testing.T) {
	exp, err := New(config.GetPreset("two_body", "reentry"), NewRegistry(), quiet)
	if err != nil {
		t.Fatal(err)
	}
	res, err := exp.Run(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if res.Reason != integrators.StopEvent {
		t.Fatalf("expected the surface event, got %v", res.Reason)
	}
	_, y := res.Final()
	if r := models.Radius(0, y); math.Abs(r-6378.137) > 1e-6 {
		t.Errorf("expected to stop at the surface, radius %v", r)
	}
	if res.EnergyDrift > 1e-7 {
		t.Errorf("expected energy conserved, drift %g", res.EnergyDrift)
	}
}

func TestParamsAndInitState(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Model = "pendulum"
	cfg.Params = map[string]float64{"length": 2}
	cfg.InitState = []float64{0.3, 0}

	exp, err := New(cfg, NewRegistry(), quiet)
	if err != nil {
		t.Fatal(err)
	}
	if l := exp.Model().(*models.Pendulum).Length; l != 2 {
		t.Errorf("expected length 2, got %v", l)
	}
	x0 := exp.InitialState()
	x0[0] = 7
	if exp.InitialState()[0] != 0.3 {
		t.Error("initial state was not copied")
	}
	if !exp.Integrator().Adaptive() {
		t.Error("expected the default integrator to be adaptive")
	}

	cfg.FixedStep = true
	exp, err = New(cfg, NewRegistry(), quiet)
	if err != nil {
		t.Fatal(err)
	}
	if exp.Integrator().Adaptive() {
		t.Error("expected fixed-step integration")
	}
}
