package config

import (
	"math"
	"sort"

	"github.com/san-kum/odesim/internal/roots"
)

var Presets = map[string]map[string]*Config{
	"oscillator": {
		"undamped": {
			Model: "oscillator", Integrator: "rk45", T1: 20,
			InitState: []float64{1, 0},
		},
		"damped": {
			Model: "oscillator", Integrator: "rk45", T1: 30,
			InitState: []float64{1, 0}, Params: map[string]float64{"damping": 0.2},
		},
		"turning_points": {
			Model: "oscillator", Integrator: "rkf45", T1: 20,
			InitState: []float64{1, 0},
			Events: []EventConfig{
				{Name: "turn", Component: 1, Goal: 0, Direction: "both", Action: "continue"},
			},
		},
	},
	"pendulum": {
		"small": {
			Model: "pendulum", Integrator: "rk4", StepSize: 0.01, FixedStep: true, T1: 20,
			InitState: []float64{0.2, 0},
		},
		"large": {
			Model: "pendulum", Integrator: "rk45", T1: 20,
			InitState: []float64{2.5, 0},
		},
		"spinning": {
			Model: "pendulum", Integrator: "rkck", T1: 30,
			InitState: []float64{0.1, 8},
		},
	},
	"double_pendulum": {
		"symmetric": {
			Model: "double_pendulum", Integrator: "rkf78", T1: 30,
			InitState: []float64{1.5, 1.5, 0, 0},
		},
		"chaos": {
			Model: "double_pendulum", Integrator: "rkf78", T1: 60,
			InitState: []float64{3, 3, 0, 0},
		},
	},
	"two_body": {
		"leo": {
			Model: "two_body", Integrator: "rkf78", T1: 6000,
			InitState: []float64{7000, 0, 0, 0, 7.546053290107541, 0},
		},
		"apsides": {
			Model: "two_body", Integrator: "rkv8", T1: 20000, AbsTol: 1e-9, RelTol: 1e-12,
			InitState: []float64{7000, 0, 0, 0, 8.5, 0},
			Events: []EventConfig{
				{Name: "apogee", Quantity: "radial_velocity", Direction: "decreasing", Action: "continue"},
			},
		},
		"reentry": {
			Model: "two_body", Integrator: "rkf56", T1: math.Inf(1),
			InitState: []float64{7000, 0, 0, 0, 6.5, 0},
			Events: []EventConfig{
				{Name: "surface", Quantity: "radius", Goal: 6378.137, Direction: "decreasing", Action: "stop"},
			},
		},
	},
	"lorenz": {
		"classic": {
			Model: "lorenz", Integrator: "rk45", T1: 50,
			InitState: []float64{1, 1, 1},
		},
		"section": {
			Model: "lorenz", Integrator: "rk45", T1: 50,
			InitState: []float64{1, 1, 1},
			Events: []EventConfig{
				{Name: "z27", Component: 2, Goal: 27, Direction: "increasing", Action: "continue"},
			},
		},
	},
	"rossler": {
		"spiral": {
			Model: "rossler", Integrator: "rk45", T1: 200,
			InitState: []float64{1, 1, 1},
		},
		"funnel": {
			Model: "rossler", Integrator: "rk45", T1: 200,
			InitState: []float64{1, 1, 1}, Params: map[string]float64{"c": 18},
		},
	},
	"vanderpol": {
		"limit_cycle": {
			Model: "vanderpol", Integrator: "rk45", T1: 30,
			InitState: []float64{0.5, 0},
			Events: []EventConfig{
				{Name: "peak", Component: 1, Direction: "decreasing", Action: "continue"},
			},
		},
		"stiff": {
			Model: "vanderpol", Integrator: "rkf45", T1: 300, RelTol: 1e-6, AbsTol: 1e-8,
			InitState: []float64{2, 0}, Params: map[string]float64{"mu": 100},
		},
	},
	"duffing": {
		"chaotic": {
			Model: "duffing", Integrator: "rk45", T1: 300,
			InitState: []float64{1, 0},
		},
		"stroboscopic": {
			Model: "duffing", Integrator: "rkf78", T1: 500,
			InitState: []float64{1, 0},
			Events: []EventConfig{
				{Name: "strobe", Quantity: "drive", Direction: "increasing", Action: "continue"},
			},
		},
	},
	"nbody": {
		"ring": {
			Model: "nbody", Integrator: "rkf78", T1: 20, Bodies: 3,
		},
		"binary": {
			Model: "nbody", Integrator: "rkf78", T1: 30, Bodies: 2,
		},
	},
	"decay": {
		"half_life": {
			Model: "decay", Integrator: "rkf45", T1: 10,
			InitState: []float64{1},
			Events: []EventConfig{
				{Name: "half", Component: 0, Goal: 0.5, Direction: "decreasing", Action: "stop"},
			},
		},
	},
}

// GetPreset returns a copy of the named preset with defaults filled in, or
// nil if there is none.
func GetPreset(model, preset string) *Config {
	modelPresets, ok := Presets[model]
	if !ok {
		return nil
	}
	p, ok := modelPresets[preset]
	if !ok {
		return nil
	}
	return p.withDefaults()
}

func ListPresets(model string) []string {
	modelPresets, ok := Presets[model]
	if !ok {
		return nil
	}
	names := make([]string, 0, len(modelPresets))
	for name := range modelPresets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (c *Config) withDefaults() *Config {
	out := c.Clone()
	d := DefaultConfig()
	if out.RootSolver == "" {
		out.RootSolver = d.RootSolver
	}
	if out.Root == (roots.Config{}) {
		out.Root = d.Root
	}
	if out.StepSize == 0 {
		out.StepSize = d.StepSize
	}
	if out.AbsTol == 0 && out.RelTol == 0 {
		out.AbsTol, out.RelTol = d.AbsTol, d.RelTol
	}
	if out.MaxSteps == 0 {
		out.MaxSteps = d.MaxSteps
	}
	if out.ErrorNorm == "" {
		out.ErrorNorm = d.ErrorNorm
	}
	if out.Model == "nbody" && out.Bodies == 0 {
		out.Bodies = d.Bodies
	}
	if out.Logging == (LoggingConfig{}) {
		out.Logging = d.Logging
	}
	return out
}
