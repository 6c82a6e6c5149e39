// Package roots implements scalar root finders.
//
//   - [Bisection]: bracketed, linear convergence, always safe
//   - [Secant]: unbracketed, superlinear, may diverge
//   - [Ridder]: bracketed, exponential interpolation
//   - [Brentq], [Brenth]: bracketed hybrids of bisection and interpolation
//
// All solvers share [Config] and report [Stats] for every call. A solver
// that runs out of iterations returns its best estimate together with
// [ErrNotConverged]; callers must treat that estimate as unreliable.
package roots
