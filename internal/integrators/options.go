package integrators

import (
	"fmt"
	"log/slog"
	"math"

	"github.com/san-kum/odesim/internal/dynamo"
	"github.com/san-kum/odesim/internal/roots"
)

type ErrorNorm int

const (
	NormMax ErrorNorm = iota
	NormRMS
)

func (n ErrorNorm) String() string {
	if n == NormRMS {
		return "rms"
	}
	return "max"
}

const (
	DefaultStepSize        = 0.01
	DefaultAbsTol          = 1e-10
	DefaultRelTol          = 1e-10
	DefaultSafety          = 0.9
	DefaultMinScale        = 0.2
	DefaultMaxScale        = 10.0
	DefaultMaxStepAttempts = 50
	DefaultMaxSteps        = 1_000_000
)

// Config holds the step control settings. For fixed-step integration only
// StepSize, MaxSteps and Root apply. A zero MinStepSize selects a floor of
// 16 ulps of the current time; a zero MaxStepSize lets a step span the whole
// integration interval.
type Config struct {
	StepSize        float64
	AbsTol          float64
	RelTol          float64
	MinStepSize     float64
	MaxStepSize     float64
	Safety          float64
	MinScale        float64
	MaxScale        float64
	MaxStepAttempts int
	MaxSteps        int
	Norm            ErrorNorm
	Root            roots.Config
}

func DefaultConfig() Config {
	return Config{
		StepSize:        DefaultStepSize,
		AbsTol:          DefaultAbsTol,
		RelTol:          DefaultRelTol,
		Safety:          DefaultSafety,
		MinScale:        DefaultMinScale,
		MaxScale:        DefaultMaxScale,
		MaxStepAttempts: DefaultMaxStepAttempts,
		MaxSteps:        DefaultMaxSteps,
		Norm:            NormMax,
		Root:            roots.DefaultConfig(),
	}
}

func (c Config) Validate() error {
	switch {
	case !(c.StepSize > 0) || math.IsInf(c.StepSize, 0):
		return fmt.Errorf("%w: step size must be positive, got %v", dynamo.ErrConfiguration, c.StepSize)
	case c.AbsTol < 0 || c.RelTol < 0 || (c.AbsTol == 0 && c.RelTol == 0):
		return fmt.Errorf("%w: tolerances must be non-negative and not both zero", dynamo.ErrConfiguration)
	case c.MinStepSize < 0 || c.MaxStepSize < 0:
		return fmt.Errorf("%w: step bounds must be non-negative", dynamo.ErrConfiguration)
	case c.MaxStepSize > 0 && c.MinStepSize > c.MaxStepSize:
		return fmt.Errorf("%w: min step %v exceeds max step %v", dynamo.ErrConfiguration, c.MinStepSize, c.MaxStepSize)
	case !(c.Safety > 0) || c.Safety > 1:
		return fmt.Errorf("%w: safety factor must be in (0, 1], got %v", dynamo.ErrConfiguration, c.Safety)
	case !(c.MinScale > 0) || c.MinScale >= 1 || c.MaxScale <= 1:
		return fmt.Errorf("%w: scale bounds must satisfy 0 < min < 1 < max", dynamo.ErrConfiguration)
	case c.MaxStepAttempts <= 0:
		return fmt.Errorf("%w: max step attempts must be positive", dynamo.ErrConfiguration)
	case c.MaxSteps < 0:
		return fmt.Errorf("%w: max steps must be non-negative", dynamo.ErrConfiguration)
	}
	return c.Root.Validate()
}

type Option func(*Integrator)

// WithConfig replaces the whole configuration.
func WithConfig(cfg Config) Option {
	return func(in *Integrator) { in.cfg = cfg }
}

// WithStepSize sets the fixed step, or the initial step for adaptive methods.
func WithStepSize(h float64) Option {
	return func(in *Integrator) { in.cfg.StepSize = h }
}

func WithTolerances(abs, rel float64) Option {
	return func(in *Integrator) {
		in.cfg.AbsTol = abs
		in.cfg.RelTol = rel
	}
}

func WithStepBounds(minStep, maxStep float64) Option {
	return func(in *Integrator) {
		in.cfg.MinStepSize = minStep
		in.cfg.MaxStepSize = maxStep
	}
}

// WithStepControl sets the safety factor and the per-step growth bounds.
func WithStepControl(safety, minScale, maxScale float64) Option {
	return func(in *Integrator) {
		in.cfg.Safety = safety
		in.cfg.MinScale = minScale
		in.cfg.MaxScale = maxScale
	}
}

// WithMaxSteps caps accepted steps per run. Zero disables the cap.
func WithMaxSteps(n int) Option {
	return func(in *Integrator) { in.cfg.MaxSteps = n }
}

func WithMaxStepAttempts(n int) Option {
	return func(in *Integrator) { in.cfg.MaxStepAttempts = n }
}

func WithErrorNorm(n ErrorNorm) Option {
	return func(in *Integrator) { in.cfg.Norm = n }
}

// WithRootSolver selects the solver used to locate events.
func WithRootSolver(f roots.Factory, cfg roots.Config) Option {
	return func(in *Integrator) {
		in.solver = f
		in.cfg.Root = cfg
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(in *Integrator) { in.logger = l }
}

// WithFixedStep disables error control even if the tableau has an
// embedded formula.
func WithFixedStep() Option {
	return func(in *Integrator) { in.adaptive = false }
}
