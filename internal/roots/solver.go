package roots

import (
	"fmt"
	"math"
	"sort"

	"github.com/san-kum/odesim/internal/dynamo"
)

// Func is a scalar function of one real argument.
type Func func(x float64) float64

var (
	// ErrNoBracket is returned by bracketed methods when f(a) and f(b)
	// do not have opposite signs.
	ErrNoBracket = fmt.Errorf("%w: f(a) and f(b) must have opposite signs", dynamo.ErrPrecondition)

	// ErrNotConverged is returned when the iteration limit is hit. The root
	// returned alongside it is a best-effort estimate.
	ErrNotConverged = fmt.Errorf("%w: root solver did not converge", dynamo.ErrConvergence)

	// ErrNonFinite is returned when f evaluates to NaN.
	ErrNonFinite = fmt.Errorf("%w: function value is NaN", dynamo.ErrNumerical)

	// ErrStalled is returned by the secant method when two iterates have equal
	// function values and no further extrapolation is possible.
	ErrStalled = fmt.Errorf("%w: secant stalled on a flat function", dynamo.ErrConvergence)

	ErrInvalidConfig = fmt.Errorf("%w: invalid root solver config", dynamo.ErrConfiguration)
)

const (
	DefaultAbsTol  = 1e-12
	DefaultRelTol  = 1e-14
	DefaultMaxIter = 100
)

type Config struct {
	AbsTol  float64 `yaml:"abs_tol"`
	RelTol  float64 `yaml:"rel_tol"`
	MaxIter int     `yaml:"max_iter"`
}

func DefaultConfig() Config {
	return Config{
		AbsTol:  DefaultAbsTol,
		RelTol:  DefaultRelTol,
		MaxIter: DefaultMaxIter,
	}
}

func (c Config) Validate() error {
	if c.AbsTol < 0 || c.RelTol < 0 || math.IsNaN(c.AbsTol) || math.IsNaN(c.RelTol) {
		return fmt.Errorf("%w: tolerances must be non-negative", ErrInvalidConfig)
	}
	if c.MaxIter <= 0 {
		return fmt.Errorf("%w: max iterations must be positive, got %d", ErrInvalidConfig, c.MaxIter)
	}
	return nil
}

func (c Config) withDefaults() Config {
	if c == (Config{}) {
		return DefaultConfig()
	}
	return c
}

// Stats describes a single Solve call.
type Stats struct {
	Iterations int
	FuncCalls  int
	// Error is the final bracket width for bracketed methods or the last
	// step length for the secant method.
	Error     float64
	Converged bool
}

// Solver finds a root of f. Bracketed methods require f(a) and f(b) to have
// opposite signs; the secant method uses a and b as its two starting iterates.
type Solver interface {
	Name() string
	Solve(f Func, a, b float64) (float64, Stats, error)
}

// Factory builds a Solver from a Config.
type Factory func(cfg Config) Solver

var methods = map[string]Factory{
	"bisection": func(cfg Config) Solver { return NewBisection(cfg) },
	"secant":    func(cfg Config) Solver { return NewSecant(cfg) },
	"ridder":    func(cfg Config) Solver { return NewRidder(cfg) },
	"brentq":    func(cfg Config) Solver { return NewBrentq(cfg) },
	"brenth":    func(cfg Config) Solver { return NewBrenth(cfg) },
}

// Lookup returns the factory registered under name.
func Lookup(name string) (Factory, error) {
	f, ok := methods[name]
	if !ok {
		return nil, fmt.Errorf("%w: unknown root solver %q", dynamo.ErrConfiguration, name)
	}
	return f, nil
}

func Names() []string {
	names := make([]string, 0, len(methods))
	for name := range methods {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// bracket evaluates both ends and checks the sign-change precondition.
// done is true when one end is already an exact root.
func bracket(f Func, a, b float64, st *Stats) (fa, fb, root float64, done bool, err error) {
	fa, fb = f(a), f(b)
	st.FuncCalls += 2
	if math.IsNaN(fa) || math.IsNaN(fb) {
		return fa, fb, 0, false, ErrNonFinite
	}
	if fa*fb > 0 {
		return fa, fb, 0, false, fmt.Errorf("%w: f(%g)=%g, f(%g)=%g", ErrNoBracket, a, fa, b, fb)
	}
	if fa == 0 {
		st.Converged = true
		return fa, fb, a, true, nil
	}
	if fb == 0 {
		st.Converged = true
		return fa, fb, b, true, nil
	}
	return fa, fb, 0, false, nil
}

func notConverged(name string, st Stats) error {
	return fmt.Errorf("%w: %s after %d iterations (error %g)", ErrNotConverged, name, st.Iterations, st.Error)
}
