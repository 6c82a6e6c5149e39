// Package models provides reference dynamical systems for exercising the
// integrators: closed-form problems for accuracy checks, conservative
// systems for energy drift, and chaotic ones for stress.
package models
