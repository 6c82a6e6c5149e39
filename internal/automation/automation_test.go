package automation_test

import (
	"context"
	"math"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/san-kum/odesim/internal/automation"
	"github.com/san-kum/odesim/internal/dynamo"
	"github.com/san-kum/odesim/internal/experiment"
	"github.com/san-kum/odesim/internal/integrators"
	"github.com/san-kum/odesim/internal/logging"
	"github.com/san-kum/odesim/internal/storage"
)

const scenario = `
name: decay-study
description: half life, then a longer damped oscillator
steps:
  - name: half
    model: decay
    preset: half_life
    save: true
  - model: oscillator
    preset: damped
    config:
      integrator: rk4
      fixed_step: true
      step_size: 0.01
      t1: 5
      params:
        damping: 0.5
`

var _ = Describe("Scenario", func() {
	It("resolves steps on top of presets", func() {
		sc, err := automation.ParseScenario([]byte(scenario))
		Expect(err).NotTo(HaveOccurred())
		Expect(sc.Name).To(Equal("decay-study"))
		Expect(sc.Steps).To(HaveLen(2))

		cfg, err := sc.Steps[1].Resolve()
		Expect(err).NotTo(HaveOccurred())
		Expect(cfg.Model).To(Equal("oscillator"))
		Expect(cfg.Integrator).To(Equal("rk4"))
		Expect(cfg.FixedStep).To(BeTrue())
		Expect(cfg.T1).To(Equal(5.0))
		Expect(cfg.Params).To(HaveKeyWithValue("damping", 0.5))
		Expect(cfg.InitState).To(Equal([]float64{1, 0}))
	})

	It("uses the defaults without a preset", func() {
		step := automation.Step{Model: "lorenz"}
		cfg, err := step.Resolve()
		Expect(err).NotTo(HaveOccurred())
		Expect(cfg.Model).To(Equal("lorenz"))
		Expect(cfg.Integrator).To(Equal("rk45"))
	})

	DescribeTable("rejects invalid scenarios",
		func(doc string) {
			_, err := automation.ParseScenario([]byte(doc))
			Expect(err).To(MatchError(dynamo.ErrConfiguration))
		},
		Entry("no steps", "name: empty\n"),
		Entry("preset without model", "steps:\n  - preset: damped\n"),
		Entry("unknown preset", "steps:\n  - model: oscillator\n    preset: nope\n"),
		Entry("bad override", "steps:\n  - model: oscillator\n    config:\n      t1: 0\n"),
		Entry("malformed yaml", "steps: [\n"),
	)
})

var _ = Describe("Runner", func() {
	var (
		store *storage.Store
		run   *automation.Runner
	)

	BeforeEach(func() {
		store = storage.New(GinkgoT().TempDir())
		run = automation.NewRunner(experiment.NewRegistry(), store, logging.Discard())
	})

	It("runs every step and saves the marked ones", func() {
		sc, err := automation.ParseScenario([]byte(scenario))
		Expect(err).NotTo(HaveOccurred())

		results, err := run.Run(context.Background(), sc)
		Expect(err).NotTo(HaveOccurred())
		Expect(results).To(HaveLen(2))

		half := results[0]
		Expect(half.Step).To(Equal("half"))
		Expect(half.Err).NotTo(HaveOccurred())
		Expect(half.Result.Reason).To(Equal(integrators.StopEvent))
		tf, _ := half.Result.Final()
		Expect(tf).To(BeNumerically("~", math.Ln2, 1e-8))
		Expect(half.RunID).To(HavePrefix("decay_"))

		osc := results[1]
		Expect(osc.Step).To(Equal("step2"))
		Expect(osc.RunID).To(BeEmpty())
		Expect(osc.Result.Reason).To(Equal(integrators.StopReached))

		runs, err := store.List()
		Expect(err).NotTo(HaveOccurred())
		Expect(runs).To(HaveLen(1))
		Expect(runs[0].ID).To(Equal(half.RunID))
	})

	It("stops at the first failing step", func() {
		sc := &automation.Scenario{Steps: []automation.Step{{Model: "missing"}, {Model: "decay"}}}
		results, err := run.Run(context.Background(), sc)
		Expect(err).To(HaveOccurred())
		Expect(results).To(HaveLen(1))
		Expect(results[0].Err).To(HaveOccurred())
	})

	It("continues past failures when asked", func() {
		sc := &automation.Scenario{
			ContinueOnError: true,
			Steps:           []automation.Step{{Model: "missing"}, {Model: "decay"}},
		}
		results, err := run.Run(context.Background(), sc)
		Expect(err).NotTo(HaveOccurred())
		Expect(results).To(HaveLen(2))
		Expect(results[0].Err).To(HaveOccurred())
		Expect(results[1].Err).NotTo(HaveOccurred())
	})

	It("honours cancellation between steps", func() {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		results, err := run.Run(ctx, &automation.Scenario{Steps: []automation.Step{{Model: "decay"}}})
		Expect(err).To(MatchError(dynamo.ErrContextCanceled))
		Expect(results).To(BeEmpty())
	})
})
