package experiment

import (
	"fmt"
	"sort"

	"github.com/san-kum/odesim/internal/config"
	"github.com/san-kum/odesim/internal/dynamo"
	"github.com/san-kum/odesim/internal/integrators"
	"github.com/san-kum/odesim/internal/metrics"
	"github.com/san-kum/odesim/internal/models"
	"github.com/san-kum/odesim/internal/roots"
)

// Model is a system with a sensible starting point.
type Model interface {
	dynamo.System
	DefaultState() dynamo.State
}

// quantifier is implemented by models that name scalar functions of their
// state for use as event functions.
type quantifier interface {
	Quantities() map[string]dynamo.ScalarFunc
}

type Registry struct {
	models map[string]func(cfg *config.Config) Model
}

func NewRegistry() *Registry {
	r := &Registry{
		models: make(map[string]func(cfg *config.Config) Model),
	}

	r.models["decay"] = func(*config.Config) Model { return models.NewDecay() }
	r.models["oscillator"] = func(*config.Config) Model { return models.NewOscillator() }
	r.models["pendulum"] = func(*config.Config) Model { return models.NewPendulum() }
	r.models["double_pendulum"] = func(*config.Config) Model { return models.NewDoublePendulum() }
	r.models["two_body"] = func(*config.Config) Model { return models.NewTwoBody() }
	r.models["lorenz"] = func(*config.Config) Model { return models.NewLorenz() }
	r.models["rossler"] = func(*config.Config) Model { return models.NewRossler() }
	r.models["vanderpol"] = func(*config.Config) Model { return models.NewVanDerPol() }
	r.models["duffing"] = func(*config.Config) Model { return models.NewDuffing() }
	r.models["nbody"] = func(cfg *config.Config) Model {
		n := config.DefaultBodies
		if cfg != nil && cfg.Bodies > 0 {
			n = cfg.Bodies
		}
		return models.NewNBody(n)
	}

	return r
}

// Register adds or replaces a model factory.
func (r *Registry) Register(name string, factory func(cfg *config.Config) Model) {
	r.models[name] = factory
}

// Model builds the named model. cfg may be nil.
func (r *Registry) Model(name string, cfg *config.Config) (Model, error) {
	fn, ok := r.models[name]
	if !ok {
		return nil, fmt.Errorf("%w: unknown model %q", dynamo.ErrConfiguration, name)
	}
	return fn(cfg), nil
}

func (r *Registry) Integrator(name string, opts ...integrators.Option) (*integrators.Integrator, error) {
	tab, err := integrators.Lookup(name)
	if err != nil {
		return nil, err
	}
	return integrators.New(tab, opts...), nil
}

func (r *Registry) Solver(name string, cfg roots.Config) (roots.Solver, error) {
	f, err := roots.Lookup(name)
	if err != nil {
		return nil, err
	}
	return f(cfg), nil
}

func (r *Registry) ListModels() []string {
	names := make([]string, 0, len(r.models))
	for name := range r.models {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (r *Registry) ListIntegrators() []string { return integrators.Names() }

func (r *Registry) ListSolvers() []string { return roots.Names() }

// DefaultMetrics returns the metrics worth tracking for sys.
func (r *Registry) DefaultMetrics(sys dynamo.System) []metrics.Metric {
	ms := []metrics.Metric{
		metrics.NewStability(1e6),
		metrics.NewStepSize(),
	}
	if h, ok := sys.(dynamo.Hamiltonian); ok {
		ms = append(ms, metrics.NewEnergy(h), metrics.NewEnergyDrift(sys))
	}
	return ms
}
