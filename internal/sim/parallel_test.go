package sim_test

import (
	"context"
	"errors"
	"math"
	"sync/atomic"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/san-kum/odesim/internal/dynamo"
	"github.com/san-kum/odesim/internal/integrators"
	"github.com/san-kum/odesim/internal/metrics"
	"github.com/san-kum/odesim/internal/models"
	"github.com/san-kum/odesim/internal/sim"
)

var _ = Describe("Ensemble", func() {
	var built atomic.Int32

	factory := func() (*sim.Simulator, error) {
		built.Add(1)
		s := sim.New(models.NewDecay(), integrators.NewRKF45())
		s.AddMetric(metrics.NewStepSize())
		return s, nil
	}

	BeforeEach(func() {
		built.Store(0)
	})

	It("integrates every initial state independently", func() {
		initial := []dynamo.State{{1}, {2}, {4}, {8}}
		results, err := sim.NewEnsemble(factory, 2).Run(context.Background(), initial, sim.Config{T0: 0, T1: 2})

		Expect(err).NotTo(HaveOccurred())
		Expect(results).To(HaveLen(4))
		Expect(built.Load()).To(BeEquivalentTo(4))
		for i, r := range results {
			tf, yf := r.Final()
			Expect(tf).To(Equal(2.0))
			Expect(yf[0]).To(BeNumerically("~", initial[i][0]*math.Exp(-2), 1e-8))
			Expect(r.Metrics).To(HaveKey("mean_step"))
		}
	})

	It("reports the first failure", func() {
		failing := func() (*sim.Simulator, error) {
			return nil, errors.New("no integrator")
		}
		_, err := sim.NewEnsemble(failing, 0).Run(context.Background(), []dynamo.State{{1}, {2}}, sim.Config{T0: 0, T1: 1})
		Expect(err).To(MatchError("no integrator"))
	})

	It("stops when the context is canceled", func() {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		results, err := sim.NewEnsemble(factory, 0).Run(ctx, []dynamo.State{{1}}, sim.Config{T0: 0, T1: 1})
		Expect(err).To(MatchError(dynamo.ErrContextCanceled))
		Expect(results[0].Reason).To(Equal(integrators.StopCanceled))
	})
})
