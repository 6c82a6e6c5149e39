package metrics

import (
	"math"

	"github.com/san-kum/odesim/internal/dynamo"
)

// StepSize is the mean absolute spacing between observed points.
type StepSize struct {
	name     string
	last     float64
	total    float64
	smallest float64
	largest  float64
	samples  int
}

func NewStepSize() *StepSize {
	return &StepSize{name: "mean_step"}
}

func (s *StepSize) Name() string { return s.name }

func (s *StepSize) Observe(t float64, y dynamo.State) {
	if s.samples > 0 {
		h := math.Abs(t - s.last)
		s.total += h
		if s.samples == 1 {
			s.smallest, s.largest = h, h
		} else {
			s.smallest = math.Min(s.smallest, h)
			s.largest = math.Max(s.largest, h)
		}
	}
	s.last = t
	s.samples++
}

func (s *StepSize) Value() float64 {
	if s.samples < 2 {
		return 0
	}
	return s.total / float64(s.samples-1)
}

// Bounds returns the smallest and largest spacing seen.
func (s *StepSize) Bounds() (float64, float64) { return s.smallest, s.largest }

func (s *StepSize) Reset() {
	*s = StepSize{name: s.name}
}
