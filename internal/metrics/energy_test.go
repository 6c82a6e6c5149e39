package metrics

import (
	"math"
	"testing"

	"github.com/san-kum/odesim/internal/dynamo"
	"github.com/san-kum/odesim/internal/models"
)

func TestEnergyOfPendulum(t *testing.T) {
	p := models.NewPendulum()
	m := NewEnergy(p)

	theta := math.Pi / 4
	x := dynamo.State{theta, 0}

	m.Observe(0, x)
	e1 := m.Value()
	m.Reset()
	m.Observe(0, x)
	e2 := m.Value()

	expected := 9.81 * (1 - math.Cos(theta))
	if math.Abs(e1-expected) > 1e-6 {
		t.Errorf("expected energy %f, got %f", expected, e1)
	}
	if math.Abs(e2-expected) > 1e-6 {
		t.Errorf("expected energy %f after reset, got %f", expected, e2)
	}
}

func TestEnergyReset(t *testing.T) {
	m := NewEnergy(models.NewPendulum())

	m.Observe(0, dynamo.State{1.0, 1.0})
	if m.Value() == 0 {
		t.Error("expected non-zero energy")
	}
	m.Reset()
	if m.Value() != 0 {
		t.Error("expected zero energy after reset")
	}
}

func TestEnergyDrift(t *testing.T) {
	o := models.NewOscillator()
	d := NewEnergyDrift(o)

	d.Observe(0, dynamo.State{1, 0})
	d.Observe(1, dynamo.State{0, 1.1})
	d.Observe(2, dynamo.State{1, 0})

	if math.Abs(d.Value()-0.21) > 1e-12 {
		t.Errorf("expected max drift 0.21, got %f", d.Value())
	}
	if d.Current() != 0.5 {
		t.Errorf("expected current energy 0.5, got %f", d.Current())
	}

	lorenz := NewEnergyDrift(models.NewLorenz())
	lorenz.Observe(0, dynamo.State{1, 1, 1})
	if lorenz.Value() != 0 {
		t.Errorf("expected zero drift without an energy function, got %f", lorenz.Value())
	}
}

func TestStability(t *testing.T) {
	s := NewStability(10)
	if s.Value() != 1 {
		t.Errorf("expected 1 before any sample, got %f", s.Value())
	}
	s.Observe(0, dynamo.State{1, -2})
	s.Observe(1, dynamo.State{1, -20})
	s.Observe(2, dynamo.State{math.NaN(), 0})
	s.Observe(3, dynamo.State{0, 0})
	if s.Value() != 0.5 {
		t.Errorf("expected 0.5, got %f", s.Value())
	}
}

func TestStepSizeAndSet(t *testing.T) {
	step := NewStepSize()
	set := Set{step, NewStability(1)}

	for _, tt := range []float64{0, 0.1, 0.3, 0.6} {
		set.OnStep(tt, dynamo.State{0})
	}
	values := set.Values()
	if math.Abs(values["mean_step"]-0.2) > 1e-12 {
		t.Errorf("expected mean step 0.2, got %f", values["mean_step"])
	}
	lo, hi := step.Bounds()
	if math.Abs(lo-0.1) > 1e-12 || math.Abs(hi-0.3) > 1e-12 {
		t.Errorf("expected bounds [0.1, 0.3], got [%f, %f]", lo, hi)
	}
	if values["stability"] != 1 {
		t.Errorf("expected stability 1, got %f", values["stability"])
	}

	set.Reset()
	if step.Value() != 0 {
		t.Errorf("expected zero after reset, got %f", step.Value())
	}
}
