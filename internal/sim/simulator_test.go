package sim_test

import (
	"context"
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/san-kum/timedpid/internal/control"
	"github.com/san-kum/timedpid/internal/dynamo"
	"github.com/san-kum/timedpid/internal/integrators"
	"github.com/san-kum/timedpid/internal/metrics"
	"github.com/san-kum/timedpid/internal/sim"
	"github.com/san-kum/timedpid/pid"
)

// lag is dx/dt = u - x with x measured.
type lag struct{}

func (l *lag) Derive(x dynamo.State, u dynamo.Control, t float64) dynamo.State {
	return dynamo.State{u[0] - x[0]}
}
func (l *lag) StateDim() int   { return 1 }
func (l *lag) ControlDim() int { return 1 }

func (l *lag) ProcessVariable(x dynamo.State) float64 { return x[0] }

type counter struct{ n int }

func (c *counter) OnStep(dynamo.Sample) { c.n++ }

func newLoop(cfg control.LoopConfig) *control.Loop {
	loop, err := control.NewLoop(cfg, (&lag{}).ProcessVariable)
	Expect(err).NotTo(HaveOccurred())
	return loop
}

var _ = Describe("Simulator", func() {
	var (
		ctx context.Context
		cfg dynamo.Config
		pi  control.LoopConfig
	)

	BeforeEach(func() {
		ctx = context.Background()
		cfg = dynamo.Config{Dt: 0.01, Duration: 20, ValidateState: true}
		pi = control.LoopConfig{
			Gains:    pid.Gains{Kp: 2, Ki: 1},
			Mode:     control.ModeStep,
			Dt:       cfg.Dt,
			Setpoint: control.Constant(1),
		}
	})

	It("drives a first-order lag to the setpoint", func() {
		s := sim.New(&lag{}, integrators.NewEuler(), newLoop(pi))
		result, err := s.Run(ctx, dynamo.State{0}, cfg)
		Expect(err).NotTo(HaveOccurred())
		Expect(result.Final()).To(BeNumerically("~", 1, 0.05))
	})

	It("records one control per step and one state per instant", func() {
		obs := &counter{}
		s := sim.New(&lag{}, integrators.NewRK4(), newLoop(pi))
		s.AddObserver(obs)

		cfg.Duration = 1
		result, err := s.Run(ctx, dynamo.State{0}, cfg)
		Expect(err).NotTo(HaveOccurred())
		Expect(result.Times).To(HaveLen(101))
		Expect(result.States).To(HaveLen(101))
		Expect(result.Setpoints).To(HaveLen(101))
		Expect(result.Outputs).To(HaveLen(101))
		Expect(result.Controls).To(HaveLen(100))
		Expect(obs.n).To(Equal(100))
		Expect(result.Setpoints[0]).To(Equal(1.0))
	})

	It("collects metric values", func() {
		s := sim.New(&lag{}, integrators.NewEuler(), newLoop(pi))
		for _, m := range metrics.Default(nil) {
			s.AddMetric(m)
		}
		result, err := s.Run(ctx, dynamo.State{0}, cfg)
		Expect(err).NotTo(HaveOccurred())
		Expect(result.Metrics).To(HaveKey("iae"))
		Expect(result.Metrics["iae"]).To(BeNumerically(">", 0))
		Expect(result.Metrics["settling_time"]).To(BeNumerically(">", 0))
	})

	It("produces the same trajectory in auto and step mode", func() {
		auto := pi
		auto.Mode = control.ModeAuto

		stepRes, err := sim.New(&lag{}, integrators.NewEuler(), newLoop(pi)).Run(ctx, dynamo.State{0}, cfg)
		Expect(err).NotTo(HaveOccurred())
		autoRes, err := sim.New(&lag{}, integrators.NewEuler(), newLoop(auto)).Run(ctx, dynamo.State{0}, cfg)
		Expect(err).NotTo(HaveOccurred())

		for i := range stepRes.Controls {
			Expect(autoRes.Controls[i][0]).To(BeNumerically("~", stepRes.Controls[i][0], 1e-9))
		}
	})

	It("rejects an invalid configuration", func() {
		s := sim.New(&lag{}, integrators.NewEuler(), newLoop(pi))
		_, err := s.Run(ctx, dynamo.State{0}, dynamo.Config{Dt: 0, Duration: 1})
		Expect(err).To(MatchError(dynamo.ErrInvalidConfig))
	})

	It("rejects an initial state of the wrong size", func() {
		s := sim.New(&lag{}, integrators.NewEuler(), newLoop(pi))
		_, err := s.Run(ctx, dynamo.State{0, 0}, cfg)
		Expect(err).To(MatchError(dynamo.ErrDimensionMismatch))
	})

	It("stops on cancellation with a partial result", func() {
		cctx, cancel := context.WithCancel(ctx)
		cancel()
		s := sim.New(&lag{}, integrators.NewEuler(), newLoop(pi))
		result, err := s.Run(cctx, dynamo.State{0}, cfg)
		Expect(errors.Is(err, context.Canceled)).To(BeTrue())
		Expect(result.States).To(HaveLen(1))
	})

	It("aborts when a strict loop refuses a zero step", func() {
		pi.Dt = 0
		pi.Strict = true
		s := sim.New(&lag{}, integrators.NewEuler(), newLoop(pi))
		_, err := s.Run(ctx, dynamo.State{0}, cfg)

		var simErr *dynamo.SimulationError
		Expect(errors.As(err, &simErr)).To(BeTrue())
		Expect(simErr.Step).To(Equal(0))
		Expect(err).To(MatchError(pid.ErrZeroTimeStep))
	})

	It("flags the non-finite state a lenient zero step produces", func() {
		pi.Dt = 0
		pi.Gains.Kd = 1
		s := sim.New(&lag{}, integrators.NewEuler(), newLoop(pi))
		_, err := s.Run(ctx, dynamo.State{0}, cfg)
		Expect(err).To(MatchError(dynamo.ErrInvalidState))
	})
})

var _ = Describe("Batch", func() {
	It("runs every job and keeps errors in place", func() {
		boom := errors.New("boom")
		jobs := []sim.Job{
			func(context.Context) (*dynamo.Result, error) { return &dynamo.Result{Outputs: []float64{1}}, nil },
			func(context.Context) (*dynamo.Result, error) { return nil, boom },
			func(context.Context) (*dynamo.Result, error) { return &dynamo.Result{Outputs: []float64{3}}, nil },
		}

		results, errs := sim.NewBatch(2).Run(context.Background(), jobs)
		Expect(results).To(HaveLen(3))
		Expect(errs[0]).NotTo(HaveOccurred())
		Expect(errs[1]).To(MatchError(boom))
		Expect(results[2].Final()).To(Equal(3.0))
	})
})
