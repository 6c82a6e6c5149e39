// Package dynamo provides the core primitives shared by the integration engine.
//
//   - [State]: vector representing system state
//   - [System]: first-order ODE contract (dy/dt = f(t, y))
//   - [SystemFunc]: adapter from a plain derivative function
//   - [ScalarFunc]: scalar function of a trajectory point
//   - [StatePool]: recycled state buffers
//
// # Errors
//
// Errors are classified into four kinds: [ErrPrecondition], [ErrNumerical],
// [ErrConvergence] and [ErrConfiguration]. Use [KindOf] or errors.Is to tell
// them apart. Numerical failures during a run are reported as a
// [SimulationError] carrying the last valid point. An interrupted run
// returns [ErrContextCanceled], which is not a failure kind; [KindOf]
// reports it as [KindCanceled].
//
// # Example
//
//	sys := dynamo.SystemFunc{Dim: 1, Fn: func(t float64, y, dy dynamo.State) error {
//		dy[0] = -y[0]
//		return nil
//	}}
//	integ := integrators.NewRK4(integrators.WithStepSize(0.1))
//	res, _ := integ.Integrate(sys, 0, dynamo.State{1}, 1)
package dynamo
