package integrators_test

import (
	"math"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/san-kum/odesim/internal/dynamo"
	"github.com/san-kum/odesim/internal/events"
	"github.com/san-kum/odesim/internal/integrators"
	"github.com/san-kum/odesim/internal/roots"
)

// y' = -1 from y(0) = 1, so y(t) = 1 - t.
var ramp = dynamo.SystemFunc{Dim: 1, Fn: func(t float64, y, dy dynamo.State) error {
	dy[0] = -1
	return nil
}}

// y' = 1 from y(0) = 0, so y(t) = t.
var clock = dynamo.SystemFunc{Dim: 1, Fn: func(t float64, y, dy dynamo.State) error {
	dy[0] = 1
	return nil
}}

var decay = dynamo.SystemFunc{Dim: 1, Fn: func(t float64, y, dy dynamo.State) error {
	dy[0] = -y[0]
	return nil
}}

var oscillator = dynamo.SystemFunc{Dim: 2, Fn: func(t float64, y, dy dynamo.State) error {
	dy[0] = y[1]
	dy[1] = -y[0]
	return nil
}}

func component(i int) dynamo.ScalarFunc {
	return func(t float64, y dynamo.State) float64 { return y[i] }
}

var _ = Describe("Event detection", func() {
	var integ *integrators.Integrator

	BeforeEach(func() {
		integ = integrators.NewRK4(integrators.WithStepSize(0.1))
	})

	It("locates a decreasing linear crossing", func() {
		d := events.New("ground", component(0), 0, events.Decreasing)
		integ.AddEventDetector(d)

		res, err := integ.Integrate(ramp, 0, dynamo.State{1}, 2)
		Expect(err).NotTo(HaveOccurred())
		Expect(res.Reason).To(Equal(integrators.StopEvent))
		Expect(res.Time).To(BeNumerically("~", 1, d.Threshold))
		Expect(res.State[0]).To(BeNumerically("~", 0, 1e-9))
		Expect(res.Events).To(HaveLen(1))
		Expect(res.Events[0].Detector).To(Equal("ground"))
		Expect(res.Events[0].Precise).To(BeTrue())
		Expect(d.Fired()).To(Equal(1))
	})

	It("ignores crossings in the filtered direction", func() {
		integ.AddEventDetector(events.New("rising", component(0), 0, events.Increasing))

		res, err := integ.Integrate(ramp, 0, dynamo.State{1}, 2)
		Expect(err).NotTo(HaveOccurred())
		Expect(res.Reason).To(Equal(integrators.StopReached))
		Expect(res.Events).To(BeEmpty())
		Expect(res.State[0]).To(BeNumerically("~", -1, 1e-12))
	})

	It("finds y = 0.5 on exponential decay with an adaptive pair", func() {
		integ = integrators.NewRKF45()
		integ.AddEventDetector(events.New("half", component(0), 0.5, events.Both))

		res, err := integ.Integrate(decay, 0, dynamo.State{1}, 10)
		Expect(err).NotTo(HaveOccurred())
		Expect(res.Reason).To(Equal(integrators.StopEvent))
		Expect(res.Time).To(BeNumerically("~", math.Ln2, 1e-6))
		Expect(res.State[0]).To(BeNumerically("~", 0.5, 1e-6))
		Expect(integ.LastSolve().Converged).To(BeTrue())
		Expect(integ.LastSolve().Iterations).To(BeNumerically(">", 0))
	})

	It("records continuing events up to the repeat count", func() {
		d := events.New("apoapsis", component(1), 0, events.Decreasing)
		d.Action = events.Continue
		d.RepeatCount = 0
		integ.AddEventDetector(d)

		res, err := integ.Integrate(oscillator, 0, dynamo.State{1, 0}, 13)
		Expect(err).NotTo(HaveOccurred())
		Expect(res.Reason).To(Equal(integrators.StopReached))
		Expect(res.Events).To(HaveLen(2))
		Expect(res.Events[0].Time).To(BeNumerically("~", 2*math.Pi, 1e-4))
		Expect(res.Events[1].Time).To(BeNumerically("~", 4*math.Pi, 1e-4))
		for _, c := range res.Events {
			Expect(c.Direction).To(Equal(events.Decreasing))
		}
	})

	It("stops firing once the repeat count is used up", func() {
		d := events.New("sign", component(1), 0, events.Both)
		d.Action = events.Continue
		d.RepeatCount = 3
		integ.AddEventDetector(d)

		res, err := integ.Integrate(oscillator, 0, dynamo.State{1, 0}, 20)
		Expect(err).NotTo(HaveOccurred())
		Expect(res.Events).To(HaveLen(3))
		Expect(res.Events[2].Time).To(BeNumerically("~", 3*math.Pi, 1e-4))
		Expect(d.Active()).To(BeFalse())
	})

	It("stops at the earliest terminal crossing in a step", func() {
		integ = integrators.NewRK4(integrators.WithStepSize(1))
		early := events.New("early", component(0), 0.2, events.Increasing)
		early.Action = events.Continue
		integ.AddEventDetector(events.New("late", component(0), 0.6, events.Increasing))
		integ.AddEventDetector(events.New("first", component(0), 0.3, events.Increasing))
		integ.AddEventDetector(early)

		res, err := integ.Integrate(clock, 0, dynamo.State{0}, 5)
		Expect(err).NotTo(HaveOccurred())
		Expect(res.Reason).To(Equal(integrators.StopEvent))
		Expect(res.Time).To(BeNumerically("~", 0.3, 1e-9))
		Expect(res.Events).To(HaveLen(2))
		Expect(res.Events[0].Detector).To(Equal("early"))
		Expect(res.Events[1].Detector).To(Equal("first"))
	})

	It("resumes after a terminal event without re-reporting it", func() {
		d := events.New("zero", component(0), 0, events.Both)
		d.RepeatCount = 0
		integ.AddEventDetector(d)

		Expect(integ.Initialize(oscillator, 0, dynamo.State{1, 0})).To(Succeed())
		var reasons []integrators.StopReason
		for i := 0; i < 1000; i++ {
			reason, err := integ.IntegrateStep(4)
			Expect(err).NotTo(HaveOccurred())
			if reason == integrators.StopEvent {
				reasons = append(reasons, reason)
				continue
			}
			if reason == integrators.StopReached {
				break
			}
		}
		Expect(reasons).To(HaveLen(1))
		Expect(integ.Events()[0].Time).To(BeNumerically("~", math.Pi/2, 1e-4))
		Expect(integ.Time()).To(Equal(4.0))
	})

	It("reports an imprecise crossing instead of failing", func() {
		bisect, err := roots.Lookup("bisection")
		Expect(err).NotTo(HaveOccurred())
		integ = integrators.NewRK4(
			integrators.WithStepSize(0.1),
			integrators.WithRootSolver(bisect, roots.Config{AbsTol: 1e-12, RelTol: 0, MaxIter: 1}),
		)
		integ.AddEventDetector(events.New("ground", component(0), 0, events.Decreasing))

		res, err := integ.Integrate(ramp, 0, dynamo.State{1}, 2)
		Expect(err).NotTo(HaveOccurred())
		Expect(res.Reason).To(Equal(integrators.StopEvent))
		Expect(res.Events).To(HaveLen(1))
		Expect(res.Events[0].Precise).To(BeFalse())
		Expect(res.Events[0].Stats.Converged).To(BeFalse())
		Expect(res.Time).To(BeNumerically("~", 1, 0.1))
	})

	It("supports the convenience registration and removal", func() {
		d, h := integ.AddEvent(component(0), 0.5, events.Decreasing, 1e-12, 1)
		Expect(d.Threshold).To(Equal(1e-12))
		Expect(integ.RemoveEventDetector(h)).To(BeTrue())
		Expect(integ.RemoveEventDetector(h)).To(BeFalse())

		res, err := integ.Integrate(ramp, 0, dynamo.State{1}, 2)
		Expect(err).NotTo(HaveOccurred())
		Expect(res.Reason).To(Equal(integrators.StopReached))
	})

	It("primes detectors added between steps", func() {
		Expect(integ.Initialize(ramp, 0, dynamo.State{1})).To(Succeed())
		for i := 0; i < 3; i++ {
			_, err := integ.IntegrateStep(2)
			Expect(err).NotTo(HaveOccurred())
		}
		integ.AddEventDetector(events.New("mid", component(0), 0.5, events.Decreasing))

		var reason integrators.StopReason
		for reason == integrators.StopNone {
			var err error
			reason, err = integ.IntegrateStep(2)
			Expect(err).NotTo(HaveOccurred())
		}
		Expect(reason).To(Equal(integrators.StopEvent))
		Expect(integ.Time()).To(BeNumerically("~", 0.5, 1e-9))
	})

	It("runs callbacks that can override the action", func() {
		var seen []float64
		d := events.New("cb", component(1), 0, events.Both)
		d.RepeatCount = 0
		d.OnEvent = func(c events.Crossing) events.Action {
			seen = append(seen, c.Time)
			if len(seen) == 2 {
				return events.Stop
			}
			return events.Continue
		}
		integ.AddEventDetector(d)

		res, err := integ.Integrate(oscillator, 0, dynamo.State{1, 0}, 20)
		Expect(err).NotTo(HaveOccurred())
		Expect(res.Reason).To(Equal(integrators.StopEvent))
		Expect(seen).To(HaveLen(2))
		Expect(res.Time).To(BeNumerically("~", 2*math.Pi, 1e-4))
	})
})

var _ = Describe("State observers", func() {
	var integ *integrators.Integrator

	BeforeEach(func() {
		integ = integrators.NewRK4(integrators.WithStepSize(0.25))
	})

	It("notifies in registration order after every accepted step", func() {
		var order []string
		integ.AddStateObserver(integrators.ObserverFunc(func(t float64, y dynamo.State) {
			order = append(order, "a")
		}))
		integ.AddStateObserver(integrators.ObserverFunc(func(t float64, y dynamo.State) {
			order = append(order, "b")
		}))

		res, err := integ.Integrate(decay, 0, dynamo.State{1}, 1)
		Expect(err).NotTo(HaveOccurred())
		Expect(res.Stats.Accepted).To(Equal(4))
		Expect(order).To(HaveLen(2 * 5))
		for i := 0; i < len(order); i += 2 {
			Expect(order[i : i+2]).To(Equal([]string{"a", "b"}))
		}
	})

	It("collects the trajectory including the initial point", func() {
		c := &integrators.Collector{}
		integ.AddStateObserver(c)

		_, err := integ.Integrate(decay, 0, dynamo.State{1}, 1)
		Expect(err).NotTo(HaveOccurred())
		Expect(c.Times).To(Equal([]float64{0, 0.25, 0.5, 0.75, 1}))
		Expect(c.States[0]).To(Equal(dynamo.State{1}))
		Expect(c.States[4][0]).To(BeNumerically("~", math.Exp(-1), 1e-4))
	})

	It("stops notifying removed observers", func() {
		calls := 0
		h := integ.AddStateObserver(integrators.ObserverFunc(func(t float64, y dynamo.State) {
			calls++
		}))

		Expect(integ.Initialize(decay, 0, dynamo.State{1})).To(Succeed())
		_, err := integ.SingleStep()
		Expect(err).NotTo(HaveOccurred())
		Expect(integ.RemoveStateObserver(h)).To(BeTrue())
		_, err = integ.SingleStep()
		Expect(err).NotTo(HaveOccurred())
		Expect(calls).To(Equal(1))
	})

	It("sees the crossing point when an event stops the run", func() {
		// With h = 0.3 the crossing at t = 1 falls inside the step from 0.9.
		integ = integrators.NewRK4(integrators.WithStepSize(0.3))
		c := &integrators.Collector{}
		integ.AddStateObserver(c)
		integ.AddEventDetector(events.New("ground", component(0), 0, events.Decreasing))

		res, err := integ.Integrate(ramp, 0, dynamo.State{1}, 2)
		Expect(err).NotTo(HaveOccurred())
		Expect(res.Reason).To(Equal(integrators.StopEvent))
		Expect(res.Time).To(BeNumerically("~", 1, 1e-9))
		Expect(c.Times[c.Len()-1]).To(Equal(res.Time))
		prevT, _ := integ.Previous()
		Expect(prevT).To(BeNumerically("~", 0.9, 1e-12))
		Expect(res.Stats.Accepted).To(Equal(4))
		Expect(res.Stats.SmallestStep).To(BeNumerically("~", 0.1, 1e-9))
		Expect(res.Stats.LargestStep).To(BeNumerically("~", 0.3, 1e-12))
	})

	It("undoes a step whose stopping crossing is at its start", func() {
		integ = integrators.NewRK4(
			integrators.WithStepSize(0.25),
			integrators.WithRootSolver(func(roots.Config) roots.Solver { return bracketStart{} }, roots.DefaultConfig()),
		)
		c := &integrators.Collector{}
		integ.AddStateObserver(c)
		deadline := func(t float64, y dynamo.State) float64 { return 1.1 - t }
		integ.AddEventDetector(events.New("deadline", deadline, 0, events.Decreasing))

		res, err := integ.Integrate(clock, 0, dynamo.State{0}, 2)
		Expect(err).NotTo(HaveOccurred())
		Expect(res.Reason).To(Equal(integrators.StopEvent))
		Expect(res.Time).To(Equal(1.0))
		Expect(res.Events).To(HaveLen(1))
		Expect(c.Times).To(Equal([]float64{0, 0.25, 0.5, 0.75, 1}))
		Expect(res.Stats.Accepted).To(Equal(4))
		Expect(res.Stats.LargestStep).To(Equal(0.25))
	})
})

// bracketStart reports every root at the lower end of its bracket.
type bracketStart struct{}

func (bracketStart) Name() string { return "bracket_start" }

func (bracketStart) Solve(f roots.Func, a, b float64) (float64, roots.Stats, error) {
	return a, roots.Stats{Iterations: 1, Converged: true}, nil
}
