package sim

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/san-kum/odesim/internal/dynamo"
)

// Ensemble integrates many independent trajectories concurrently. An
// integrator drives a single trajectory, so every run gets its own
// Simulator from the factory.
type Ensemble struct {
	newSim func() (*Simulator, error)
	limit  int
}

// NewEnsemble runs at most limit trajectories at once; zero or less means
// no limit.
func NewEnsemble(newSim func() (*Simulator, error), limit int) *Ensemble {
	return &Ensemble{newSim: newSim, limit: limit}
}

// Run integrates every initial state with the same config. The first
// failure cancels the remaining runs.
func (e *Ensemble) Run(ctx context.Context, initial []dynamo.State, cfg Config) ([]*Result, error) {
	results := make([]*Result, len(initial))

	g, ctx := errgroup.WithContext(ctx)
	if e.limit > 0 {
		g.SetLimit(e.limit)
	}
	for i, x0 := range initial {
		g.Go(func() error {
			s, err := e.newSim()
			if err != nil {
				return err
			}
			res, err := s.Run(ctx, x0, cfg)
			results[i] = res
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return results, err
	}
	return results, nil
}
