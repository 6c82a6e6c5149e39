package dynamo

import (
	"context"
	"errors"
	"fmt"
)

// Error kinds. Every error produced by the integration engine wraps exactly
// one of these.
var (
	// ErrPrecondition indicates a call made with invalid inputs, such as a
	// root bracket without a sign change.
	ErrPrecondition = errors.New("precondition failed")

	// ErrNumerical indicates the integration cannot progress.
	ErrNumerical = errors.New("numerical failure")

	// ErrConvergence indicates an iterative method ran out of iterations.
	ErrConvergence = errors.New("convergence failure")

	// ErrConfiguration indicates an integrator or system set up inconsistently.
	ErrConfiguration = errors.New("configuration error")
)

// Domain errors for simulation operations.
var (
	// ErrInvalidState indicates a state vector with NaN or Inf components.
	ErrInvalidState = fmt.Errorf("%w: invalid state (NaN or Inf detected)", ErrNumerical)

	// ErrStepTooSmall indicates the adaptive step fell below the minimum.
	ErrStepTooSmall = fmt.Errorf("%w: step size below minimum", ErrNumerical)

	// ErrTooManyRejections indicates a step was rejected too many times in a row.
	ErrTooManyRejections = fmt.Errorf("%w: too many rejected step attempts", ErrNumerical)

	// ErrDerivative indicates the system failed to evaluate its derivative.
	ErrDerivative = fmt.Errorf("%w: derivative evaluation failed", ErrNumerical)

	// ErrDimensionMismatch indicates a state whose length differs from the system dimension.
	ErrDimensionMismatch = fmt.Errorf("%w: dimension mismatch between state and system", ErrConfiguration)

	// ErrParameterBounds indicates a parameter value is outside valid range.
	ErrParameterBounds = fmt.Errorf("%w: parameter out of valid bounds", ErrConfiguration)

	// ErrNotInitialized indicates stepping before Initialize.
	ErrNotInitialized = fmt.Errorf("%w: integrator not initialized", ErrConfiguration)
)

// ErrContextCanceled indicates the caller interrupted the run. It is a stop
// condition rather than a failure and wraps none of the failure kinds;
// KindOf reports it as KindCanceled.
var ErrContextCanceled = errors.New("simulation canceled by context")

type Kind int

const (
	KindUnknown Kind = iota
	KindPrecondition
	KindNumerical
	KindConvergence
	KindConfiguration
	KindCanceled
)

func (k Kind) String() string {
	switch k {
	case KindPrecondition:
		return "precondition"
	case KindNumerical:
		return "numerical"
	case KindConvergence:
		return "convergence"
	case KindConfiguration:
		return "configuration"
	case KindCanceled:
		return "canceled"
	default:
		return "unknown"
	}
}

// KindOf classifies err into one of the error kinds. Cancellation takes
// precedence over any failure it interrupted.
func KindOf(err error) Kind {
	switch {
	case err == nil:
		return KindUnknown
	case errors.Is(err, ErrContextCanceled), errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return KindCanceled
	case errors.Is(err, ErrPrecondition):
		return KindPrecondition
	case errors.Is(err, ErrNumerical):
		return KindNumerical
	case errors.Is(err, ErrConvergence):
		return KindConvergence
	case errors.Is(err, ErrConfiguration):
		return KindConfiguration
	default:
		return KindUnknown
	}
}

// SimulationError wraps an error with the last valid point of the run.
type SimulationError struct {
	Step    int
	Time    float64
	State   State
	Wrapped error
}

func (e *SimulationError) Error() string {
	return fmt.Sprintf("step %d (t=%.6g): %v", e.Step, e.Time, e.Wrapped)
}

func (e *SimulationError) Unwrap() error {
	return e.Wrapped
}
