package sim

import (
	"fmt"
	"math"
	"time"

	"github.com/san-kum/odesim/internal/dynamo"
	"github.com/san-kum/odesim/internal/events"
	"github.com/san-kum/odesim/internal/integrators"
)

type Config struct {
	T0 float64
	// T1 may be infinite; the run then ends on a terminal event, the step
	// cap or cancellation.
	T1 float64
	// Timeout bounds the wall-clock time of one run. Zero means no limit.
	Timeout time.Duration
	// RecordEvery keeps every n-th accepted point of the trajectory. The
	// first and last points are always kept. Zero keeps everything.
	RecordEvery int
}

func (c Config) Validate() error {
	switch {
	case math.IsNaN(c.T0) || math.IsInf(c.T0, 0):
		return fmt.Errorf("%w: start time must be finite, got %v", dynamo.ErrConfiguration, c.T0)
	case math.IsNaN(c.T1):
		return fmt.Errorf("%w: end time is NaN", dynamo.ErrConfiguration)
	case c.T1 == c.T0:
		return fmt.Errorf("%w: empty time span [%v, %v]", dynamo.ErrConfiguration, c.T0, c.T1)
	case c.Timeout < 0:
		return fmt.Errorf("%w: timeout must be non-negative", dynamo.ErrConfiguration)
	case c.RecordEvery < 0:
		return fmt.Errorf("%w: record interval must be non-negative", dynamo.ErrConfiguration)
	}
	return nil
}

type Result struct {
	Times  []float64
	States []dynamo.State
	Events []events.Crossing
	// Metrics holds the final value of every registered metric by name.
	Metrics map[string]float64
	Reason  integrators.StopReason
	Stats   integrators.Stats
	// EnergyDrift is the relative change of energy between the first and
	// last point for systems that define one.
	EnergyDrift float64
	Elapsed     time.Duration
}

// Final returns the last recorded point.
func (r *Result) Final() (float64, dynamo.State) {
	if len(r.Times) == 0 {
		return math.NaN(), nil
	}
	n := len(r.Times) - 1
	return r.Times[n], r.States[n]
}
