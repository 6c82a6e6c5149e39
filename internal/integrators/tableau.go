package integrators

import (
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"

	"github.com/san-kum/odesim/internal/dynamo"
)

// Tableau describes an explicit Runge-Kutta method.
//
// A is strictly lower triangular and stored row by row; row i holds the
// coefficients for stages 0..i-1 and may be shorter than i when the
// trailing entries are zero. B propagates the solution. E holds the
// difference between B and the embedded weights and is nil for methods
// without an error estimate.
type Tableau struct {
	Name          string
	Order         int
	EmbeddedOrder int
	C             []float64
	A             [][]float64
	B             []float64
	E             []float64
}

func (t *Tableau) Stages() int { return len(t.B) }

// Embedded reports whether the tableau carries an error estimate.
func (t *Tableau) Embedded() bool { return len(t.E) > 0 }

// ErrorExponent is the exponent applied to the error ratio by the step
// controller.
func (t *Tableau) ErrorExponent() float64 {
	q := t.Order
	if t.EmbeddedOrder > 0 && t.EmbeddedOrder < q {
		q = t.EmbeddedOrder
	}
	return 1.0 / float64(q+1)
}

const tableauTol = 1e-12

// Validate checks the consistency conditions of the coefficients.
func (t *Tableau) Validate() error {
	s := t.Stages()
	if s == 0 || t.Order <= 0 {
		return fmt.Errorf("%w: tableau %q has no stages", dynamo.ErrConfiguration, t.Name)
	}
	if len(t.C) != s || len(t.A) != s {
		return fmt.Errorf("%w: tableau %q has %d weights, %d nodes, %d rows",
			dynamo.ErrConfiguration, t.Name, s, len(t.C), len(t.A))
	}
	if t.Embedded() && len(t.E) != s {
		return fmt.Errorf("%w: tableau %q has %d error weights for %d stages",
			dynamo.ErrConfiguration, t.Name, len(t.E), s)
	}
	if math.Abs(floats.Sum(t.B)-1) > tableauTol {
		return fmt.Errorf("%w: tableau %q weights sum to %v", dynamo.ErrConfiguration, t.Name, floats.Sum(t.B))
	}
	if t.Embedded() && math.Abs(floats.Sum(t.E)) > tableauTol {
		return fmt.Errorf("%w: tableau %q error weights sum to %v", dynamo.ErrConfiguration, t.Name, floats.Sum(t.E))
	}
	for i, row := range t.A {
		if len(row) > i {
			return fmt.Errorf("%w: tableau %q row %d is not explicit", dynamo.ErrConfiguration, t.Name, i)
		}
		sum := 0.0
		if len(row) > 0 {
			sum = floats.Sum(row)
		}
		if math.Abs(sum-t.C[i]) > tableauTol {
			return fmt.Errorf("%w: tableau %q row %d sums to %v, node is %v",
				dynamo.ErrConfiguration, t.Name, i, sum, t.C[i])
		}
	}
	return nil
}

var tableaus = map[string]*Tableau{}

func register(t *Tableau) *Tableau {
	tableaus[t.Name] = t
	return t
}

// Lookup returns the tableau registered under name.
func Lookup(name string) (*Tableau, error) {
	t, ok := tableaus[name]
	if !ok {
		return nil, fmt.Errorf("%w: unknown integrator %q", dynamo.ErrConfiguration, name)
	}
	return t, nil
}

// Names lists the registered tableaus in sorted order.
func Names() []string {
	names := make([]string, 0, len(tableaus))
	for name := range tableaus {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
