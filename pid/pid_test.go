package pid_test

import (
	"errors"
	"math"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/san-kum/timedpid/pid"
)

// fakeClock is advanced by hand so elapsed time is exact.
type fakeClock struct {
	now uint32
}

func (c *fakeClock) Micros() uint32 { return c.now }

func (c *fakeClock) advance(us uint32) { c.now += us }

var _ = Describe("Controller", func() {
	var clock *fakeClock

	BeforeEach(func() {
		clock = &fakeClock{now: 1_000}
	})

	Describe("construction", func() {
		It("defaults to a unit proportional gain", func() {
			c := pid.NewDefault(pid.WithClock(clock))
			Expect(c.Gains()).To(Equal(pid.Gains{Kp: 1, Ki: 0, Kd: 0}))
			Expect(c.Cmd(3, 1)).To(Equal(2.0))
		})

		It("starts with zeroed errors, no bound and a fresh stamp", func() {
			c := pid.New(1, 2, 3, pid.WithClock(clock))
			Expect(c.ErrorPrevious()).To(BeZero())
			Expect(c.ErrorIntegral()).To(BeZero())
			Expect(c.LastCmdTime()).To(Equal(uint32(1_000)))
			_, _, ok := c.CmdRange()
			Expect(ok).To(BeFalse())
		})

		It("falls back to the monotonic clock", func() {
			c := pid.New(1, 0, 0)
			Expect(c.Cmd(1, 0)).To(Equal(1.0))
		})
	})

	Describe("Cmd", func() {
		It("accumulates the integral once per call", func() {
			c := pid.New(0, 1, 0, pid.WithClock(clock))
			for i, want := range []float64{1, 2, 3} {
				Expect(c.Cmd(1, 0)).To(Equal(want), "call %d", i)
				Expect(c.ErrorIntegral()).To(Equal(want))
			}
		})

		It("responds only to changes in error through the derivative", func() {
			c := pid.New(0, 0, 1, pid.WithClock(clock))
			Expect(c.Cmd(5, 0)).To(Equal(5.0))
			Expect(c.Cmd(5, 0)).To(Equal(0.0))
			Expect(c.ErrorPrevious()).To(Equal(5.0))
		})

		It("is a pure function of the input sequence", func() {
			inputs := [][2]float64{{10, 0}, {10, 3}, {10, 7}, {12, 9}, {12, 12.5}}
			run := func() []float64 {
				c := pid.New(1.5, 0.3, 0.7, pid.WithClock(clock))
				out := make([]float64, 0, len(inputs))
				for _, in := range inputs {
					out = append(out, c.Cmd(in[0], in[1]))
					clock.advance(12_345)
				}
				return out
			}
			Expect(run()).To(Equal(run()))
		})

		It("does not touch the clock stamp", func() {
			c := pid.New(1, 1, 1, pid.WithClock(clock))
			clock.advance(500)
			c.Cmd(1, 0)
			Expect(c.LastCmdTime()).To(Equal(uint32(1_000)))
		})
	})

	Describe("CmdStep", func() {
		It("integrates with the trapezoid rule", func() {
			c := pid.New(0, 1, 0, pid.WithClock(clock))
			Expect(c.CmdStep(3, 0, 2)).To(Equal(3.0))
			Expect(c.CmdStep(3, 0, 2)).To(Equal(9.0))
			Expect(c.ErrorIntegral()).To(Equal(9.0))
		})

		It("divides the error change by the step", func() {
			c := pid.New(0, 0, 1, pid.WithClock(clock))
			Expect(c.CmdStep(4, 0, 0.5)).To(Equal(8.0))
			Expect(c.CmdStep(2, 0, 0.5)).To(Equal(-4.0))
		})

		It("propagates a non-finite derivative for a zero step", func() {
			c := pid.New(1, 0, 1, pid.WithClock(clock))
			Expect(math.IsInf(c.CmdStep(5, 0, 0), 1)).To(BeTrue())

			c.Reset()
			Expect(math.IsNaN(c.CmdStep(0, 0, 0))).To(BeTrue())
		})

		It("accepts a negative step and inverts the integral contribution", func() {
			c := pid.New(0, 1, 0, pid.WithClock(clock))
			Expect(c.CmdStep(2, 0, -1)).To(Equal(-1.0))
		})
	})

	Describe("CmdAutoStep", func() {
		It("matches CmdStep over the measured interval", func() {
			auto := pid.New(2, 0.5, 0.1, pid.WithClock(clock))
			manual := pid.New(2, 0.5, 0.1, pid.WithClock(clock))

			inputs := [][2]float64{{10, 0}, {10, 4}, {10, 8}, {10, 11}}
			deltas := []uint32{250_000, 10_000, 1_500_000, 3}
			for i, in := range inputs {
				clock.advance(deltas[i])
				got := auto.CmdAutoStep(in[0], in[1])
				want := manual.CmdStep(in[0], in[1], float64(deltas[i])/1e6)
				Expect(got).To(Equal(want), "call %d", i)
			}
			Expect(auto.ErrorIntegral()).To(Equal(manual.ErrorIntegral()))
			Expect(auto.LastCmdTime()).To(Equal(clock.now))
		})

		It("measures the first interval from construction", func() {
			c := pid.New(0, 1, 0, pid.WithClock(clock))
			clock.advance(2_000_000)
			Expect(c.CmdAutoStep(1, 0)).To(Equal(1.0))
		})

		It("survives the clock wrapping around", func() {
			clock.now = math.MaxUint32 - 99
			c := pid.New(0, 1, 0, pid.WithClock(clock))
			clock.advance(500_000)
			Expect(c.LastCmdTime()).To(Equal(uint32(math.MaxUint32 - 99)))
			Expect(c.CmdAutoStep(2, 0)).To(Equal(0.5))
		})

		It("yields a non-finite command within a single tick", func() {
			c := pid.New(0, 0, 1, pid.WithClock(clock))
			Expect(math.IsInf(c.CmdAutoStep(1, 0), 1)).To(BeTrue())
		})
	})

	Describe("checked variants", func() {
		It("rejects a zero step without mutating state", func() {
			c := pid.New(1, 1, 1, pid.WithClock(clock))
			c.Cmd(2, 0)

			_, err := c.CmdStepChecked(5, 0, 0)
			Expect(err).To(MatchError(pid.ErrZeroTimeStep))
			Expect(c.ErrorPrevious()).To(Equal(2.0))
			Expect(c.ErrorIntegral()).To(Equal(2.0))
		})

		It("rejects a negative step", func() {
			c := pid.New(1, 1, 1, pid.WithClock(clock))
			_, err := c.CmdStepChecked(5, 0, -0.1)
			Expect(err).To(MatchError(pid.ErrNegativeTimeStep))
		})

		It("rejects NaN and infinite steps without mutating state", func() {
			for _, dt := range []float64{math.NaN(), math.Inf(1), math.Inf(-1)} {
				c := pid.New(1, 1, 1, pid.WithClock(clock))
				c.Cmd(2, 0)

				_, err := c.CmdStepChecked(5, 0, dt)
				Expect(errors.Is(err, pid.ErrNonFinite)).To(BeTrue(), "dt=%v", dt)
				Expect(c.ErrorPrevious()).To(Equal(2.0))
				Expect(c.ErrorIntegral()).To(Equal(2.0))

				cmd, err := c.CmdStepChecked(2, 0, 0.1)
				Expect(err).NotTo(HaveOccurred())
				Expect(math.IsNaN(cmd)).To(BeFalse())
			}
		})

		It("reports a non-finite command", func() {
			c := pid.New(1, 0, 0, pid.WithClock(clock))
			cmd, err := c.CmdStepChecked(math.Inf(1), 0, 1)
			Expect(errors.Is(err, pid.ErrNonFinite)).To(BeTrue())
			Expect(math.IsNaN(cmd) || math.IsInf(cmd, 0)).To(BeTrue())
		})

		It("returns the same command as the unchecked path", func() {
			a := pid.New(1, 2, 3, pid.WithClock(clock))
			b := pid.New(1, 2, 3, pid.WithClock(clock))
			got, err := a.CmdStepChecked(4, 1, 0.1)
			Expect(err).NotTo(HaveOccurred())
			Expect(got).To(Equal(b.CmdStep(4, 1, 0.1)))
		})

		It("keeps the stamp when no tick has elapsed", func() {
			c := pid.New(0, 1, 0, pid.WithClock(clock))
			_, err := c.CmdAutoStepChecked(1, 0)
			Expect(err).To(MatchError(pid.ErrZeroTimeStep))
			Expect(c.LastCmdTime()).To(Equal(uint32(1_000)))

			clock.advance(1_000_000)
			cmd, err := c.CmdAutoStepChecked(1, 0)
			Expect(err).NotTo(HaveOccurred())
			Expect(cmd).To(Equal(0.5))
		})
	})

	Describe("command range", func() {
		It("clamps commands into the range", func() {
			c := pid.New(1, 0, 0, pid.WithClock(clock))
			c.SetCmdRange(-2, 2)
			for _, pv := range []float64{-100, -2.5, -1, 0, 1.5, 3, 1e9} {
				cmd := c.Cmd(0, pv)
				Expect(cmd).To(BeNumerically(">=", -2))
				Expect(cmd).To(BeNumerically("<=", 2))
				if -pv >= -2 && -pv <= 2 {
					Expect(cmd).To(Equal(-pv))
				}
			}
		})

		It("leaves the integral unclamped", func() {
			c := pid.New(0, 1, 0, pid.WithClock(clock))
			c.SetCmdRange(0, 1)
			for i := 0; i < 5; i++ {
				Expect(c.Cmd(10, 0)).To(Equal(1.0))
			}
			Expect(c.ErrorIntegral()).To(Equal(50.0))
		})

		It("tests the minimum first when the range is inverted", func() {
			c := pid.New(1, 0, 0, pid.WithClock(clock))
			c.SetCmdRange(5, -5)
			Expect(c.Cmd(0, 0)).To(Equal(5.0))
			Expect(c.Cmd(10, 0)).To(Equal(-5.0))
		})

		It("stays in force across other operations", func() {
			c := pid.New(1, 0, 0, pid.WithClock(clock))
			c.SetCmdRange(-1, 1)
			c.SetGains(100, 5, 5)
			c.Reset()
			Expect(c.Cmd(10, 0)).To(Equal(1.0))
			Expect(c.CmdStep(-10, 0, 0.1)).To(Equal(-1.0))
			_, _, ok := c.CmdRange()
			Expect(ok).To(BeTrue())
		})
	})

	Describe("Reset", func() {
		It("zeroes the errors and restamps but keeps gains and range", func() {
			c := pid.New(1, 1, 1, pid.WithClock(clock))
			c.SetCmdRange(-3, 3)
			c.Cmd(2, 0)
			c.Cmd(4, 1)

			clock.advance(7_000)
			c.Reset()

			Expect(c.ErrorPrevious()).To(BeZero())
			Expect(c.ErrorIntegral()).To(BeZero())
			Expect(c.LastCmdTime()).To(Equal(uint32(8_000)))
			Expect(c.Gains()).To(Equal(pid.Gains{Kp: 1, Ki: 1, Kd: 1}))
			lo, hi, ok := c.CmdRange()
			Expect([]float64{lo, hi}).To(Equal([]float64{-3, 3}))
			Expect(ok).To(BeTrue())
		})

		It("is idempotent", func() {
			c := pid.New(1, 1, 1, pid.WithClock(clock))
			c.Cmd(2, 0)
			c.Reset()
			once := []float64{c.ErrorPrevious(), c.ErrorIntegral(), float64(c.LastCmdTime())}
			c.Reset()
			twice := []float64{c.ErrorPrevious(), c.ErrorIntegral(), float64(c.LastCmdTime())}
			Expect(twice).To(Equal(once))
		})
	})

	Describe("gains", func() {
		It("apply from the next command without touching the errors", func() {
			c := pid.New(0, 1, 0, pid.WithClock(clock))
			c.Cmd(1, 0)
			c.SetGains(0, 2, 0)
			Expect(c.ErrorIntegral()).To(Equal(1.0))
			Expect(c.Cmd(1, 0)).To(Equal(4.0))
		})

		It("can be tuned by name", func() {
			c := pid.NewDefault(pid.WithClock(clock))
			Expect(c.SetParam("Ki", 0.25)).To(Succeed())
			Expect(c.Params()).To(HaveKeyWithValue("Ki", 0.25))
			Expect(c.SetParam("Kx", 1)).To(MatchError(pid.ErrUnknownParam))
		})

		It("accepts negative values", func() {
			c := pid.New(-2, 0, 0, pid.WithClock(clock))
			Expect(c.Cmd(1, 0)).To(Equal(-2.0))
		})
	})
})
