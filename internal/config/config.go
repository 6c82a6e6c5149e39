package config

import (
	"fmt"
	"math"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/san-kum/odesim/internal/dynamo"
	"github.com/san-kum/odesim/internal/events"
	"github.com/san-kum/odesim/internal/integrators"
	"github.com/san-kum/odesim/internal/roots"
)

const (
	DefaultModel      = "oscillator"
	DefaultIntegrator = "rk45"
	DefaultRootSolver = "brentq"
	DefaultDuration   = 10.0
	DefaultBodies     = 3
)

// Config describes one run. Zero-valued optional fields fall back to the
// integrator defaults.
type Config struct {
	Model       string             `yaml:"model"`
	Integrator  string             `yaml:"integrator"`
	RootSolver  string             `yaml:"root_solver"`
	Root        roots.Config       `yaml:"root"`
	T0          float64            `yaml:"t0"`
	T1          float64            `yaml:"t1"`
	StepSize    float64            `yaml:"step_size"`
	FixedStep   bool               `yaml:"fixed_step"`
	AbsTol      float64            `yaml:"abs_tol"`
	RelTol      float64            `yaml:"rel_tol"`
	MinStep     float64            `yaml:"min_step"`
	MaxStep     float64            `yaml:"max_step"`
	MaxSteps    int                `yaml:"max_steps"`
	ErrorNorm   string             `yaml:"error_norm"`
	RecordEvery int                `yaml:"record_every"`
	Timeout     time.Duration      `yaml:"timeout"`
	Bodies      int                `yaml:"bodies,omitempty"`
	InitState   []float64          `yaml:"init_state,omitempty"`
	Params      map[string]float64 `yaml:"params,omitempty"`
	Events      []EventConfig      `yaml:"events,omitempty"`
	Logging     LoggingConfig      `yaml:"logging"`
}

// EventConfig watches one state component, or a named quantity of the
// model, for crossings of Goal.
type EventConfig struct {
	Name      string  `yaml:"name"`
	Component int     `yaml:"component"`
	Quantity  string  `yaml:"quantity,omitempty"`
	Goal      float64 `yaml:"goal"`
	Direction string  `yaml:"direction"`
	Threshold float64 `yaml:"threshold,omitempty"`
	Repeat    int     `yaml:"repeat"`
	Action    string  `yaml:"action"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

func DefaultConfig() *Config {
	return &Config{
		Model:      DefaultModel,
		Integrator: DefaultIntegrator,
		RootSolver: DefaultRootSolver,
		Root:       roots.DefaultConfig(),
		T0:         0,
		T1:         DefaultDuration,
		StepSize:   integrators.DefaultStepSize,
		AbsTol:     integrators.DefaultAbsTol,
		RelTol:     integrators.DefaultRelTol,
		MaxSteps:   integrators.DefaultMaxSteps,
		ErrorNorm:  "max",
		Bodies:     DefaultBodies,
		Logging:    LoggingConfig{Level: "info", Format: "text"},
	}
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// Clone returns a deep copy, so presets can be customised safely.
func (c *Config) Clone() *Config {
	out := *c
	out.InitState = append([]float64(nil), c.InitState...)
	out.Events = append([]EventConfig(nil), c.Events...)
	if c.Params != nil {
		out.Params = make(map[string]float64, len(c.Params))
		for k, v := range c.Params {
			out.Params[k] = v
		}
	}
	return &out
}

func (c *Config) Validate() error {
	switch {
	case c.Model == "":
		return fmt.Errorf("%w: model is required", dynamo.ErrConfiguration)
	case c.Integrator == "":
		return fmt.Errorf("%w: integrator is required", dynamo.ErrConfiguration)
	case math.IsNaN(c.T0) || math.IsInf(c.T0, 0) || math.IsNaN(c.T1):
		return fmt.Errorf("%w: t0 must be finite and t1 a number", dynamo.ErrConfiguration)
	case c.T0 == c.T1:
		return fmt.Errorf("%w: empty time span", dynamo.ErrConfiguration)
	case c.Timeout < 0 || c.RecordEvery < 0 || c.MaxSteps < 0:
		return fmt.Errorf("%w: timeout, record_every and max_steps must be non-negative", dynamo.ErrConfiguration)
	case c.Bodies < 0:
		return fmt.Errorf("%w: bodies must be non-negative", dynamo.ErrConfiguration)
	}
	if _, err := c.Norm(); err != nil {
		return err
	}
	if err := c.IntegratorConfig().Validate(); err != nil {
		return err
	}
	for i, e := range c.Events {
		if e.Component < 0 {
			return fmt.Errorf("%w: event %d: negative component", dynamo.ErrConfiguration, i)
		}
		if e.Repeat < 0 || e.Threshold < 0 {
			return fmt.Errorf("%w: event %d: repeat and threshold must be non-negative", dynamo.ErrConfiguration, i)
		}
		if _, err := events.ParseDirection(e.Direction); err != nil {
			return fmt.Errorf("event %d: %w", i, err)
		}
		if _, err := events.ParseAction(e.Action); err != nil {
			return fmt.Errorf("event %d: %w", i, err)
		}
	}
	return nil
}

func (c *Config) Norm() (integrators.ErrorNorm, error) {
	switch c.ErrorNorm {
	case "", "max":
		return integrators.NormMax, nil
	case "rms":
		return integrators.NormRMS, nil
	default:
		return integrators.NormMax, fmt.Errorf("%w: unknown error norm %q", dynamo.ErrConfiguration, c.ErrorNorm)
	}
}

// IntegratorConfig maps the run settings onto the integrator step control.
func (c *Config) IntegratorConfig() integrators.Config {
	ic := integrators.DefaultConfig()
	if c.StepSize != 0 {
		ic.StepSize = c.StepSize
	}
	if c.AbsTol != 0 || c.RelTol != 0 {
		ic.AbsTol, ic.RelTol = c.AbsTol, c.RelTol
	}
	ic.MinStepSize = c.MinStep
	ic.MaxStepSize = c.MaxStep
	ic.MaxSteps = c.MaxSteps
	ic.Norm, _ = c.Norm()
	if c.Root != (roots.Config{}) {
		ic.Root = c.Root
	}
	return ic
}
