// Package analysis characterizes trajectories produced by the integrators.
//
//   - [PowerSpectrum]: frequency content of a sampled trajectory
//   - [LargestLyapunov]: growth rate of nearby trajectories
//   - [Bifurcation]: Poincaré section values across a parameter sweep
//
// # Chaos Detection
//
// A positive largest Lyapunov exponent indicates chaotic dynamics:
//
//	lambda, err := analysis.LargestLyapunov(sys, ref, pert, x0, cfg)
//	if err == nil && lambda > 0 {
//	    // sensitive dependence on initial conditions
//	}
package analysis
