package models

import (
	"fmt"
	"math"

	"github.com/san-kum/odesim/internal/dynamo"
)

func unknownParam(model, name string) error {
	return fmt.Errorf("%w: %s has no parameter %q", dynamo.ErrParameterBounds, model, name)
}

func positive(model, name string, v float64) error {
	if !(v > 0) || math.IsInf(v, 0) {
		return fmt.Errorf("%w: %s.%s must be positive, got %v", dynamo.ErrParameterBounds, model, name, v)
	}
	return nil
}

func nonNegative(model, name string, v float64) error {
	if v < 0 || math.IsNaN(v) || math.IsInf(v, 0) {
		return fmt.Errorf("%w: %s.%s must be non-negative, got %v", dynamo.ErrParameterBounds, model, name, v)
	}
	return nil
}

func finite(model, name string, v float64) error {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return fmt.Errorf("%w: %s.%s must be finite, got %v", dynamo.ErrParameterBounds, model, name, v)
	}
	return nil
}
